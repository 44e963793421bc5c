package httpsig_test

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/yaronf/httpsig"
)

func ExampleSignRequest() {
	key, _ := httpsig.NewHMACSigningKey(httpsig.AlgorithmHMACSHA256, bytes.Repeat([]byte{0x77}, 64))
	// Created is not signed to keep the output stable; sign it in production to limit replay
	signer, _ := httpsig.NewSigner("my-shared-secret", key, nil, httpsig.Headers("(request-target)", "host", "date"))
	reqStr := `GET /foo HTTP/1.1
Host: example.org
Date: Tue, 20 Apr 2021 02:07:55 GMT
Cache-Control: max-age=60

`
	req, _ := http.ReadRequest(bufio.NewReader(strings.NewReader(reqStr)))
	_ = httpsig.SignRequest(req, signer)
	fmt.Printf("Signature: %s", req.Header.Get("Signature"))
	// Output: Signature: keyId="my-shared-secret",algorithm="hmac-sha256",headers="(request-target) host date",signature="wcAlne5afqZhzXV7MMQnEBHiwc2o7GL/8Q7sp+6KEaA="
}

func ExampleVerifyRequest() {
	key, _ := httpsig.NewHMACVerifyingKey(httpsig.AlgorithmHMACSHA256, bytes.Repeat([]byte{0x77}, 64))
	verifier, _ := httpsig.NewVerifier(httpsig.KeyResolverFunc(func(_ context.Context, keyID string) (*httpsig.VerifyingKey, error) {
		if keyID != "my-shared-secret" {
			return nil, httpsig.ErrKeyNotFound
		}
		return key, nil
	}), nil)
	reqStr := `GET /foo HTTP/1.1
Host: example.org
Date: Tue, 20 Apr 2021 02:07:55 GMT
Cache-Control: max-age=60
Signature: keyId="my-shared-secret",algorithm="hmac-sha256",headers="(request-target) host date",signature="wcAlne5afqZhzXV7MMQnEBHiwc2o7GL/8Q7sp+6KEaA="

`
	req, _ := http.ReadRequest(bufio.NewReader(strings.NewReader(reqStr)))
	verified, err := httpsig.VerifyRequest(req, verifier)
	if err != nil {
		fmt.Println("rejected:", httpsig.ReasonOf(err))
		return
	}
	fmt.Printf("verified: key %s, headers %s\n", verified.KeyID, verified.Headers)

	// Any change to a covered header breaks the signature
	req.Header.Set("Date", "Tue, 20 Apr 2021 02:07:56 GMT")
	_, err = httpsig.VerifyRequest(req, verifier)
	fmt.Println("rejected:", httpsig.ReasonOf(err))
	// Output: verified: key my-shared-secret, headers (request-target) host date
	// rejected: SignatureMismatch
}
