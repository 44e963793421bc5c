package httpsig

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var httpreq1 = `POST /foo?param=value&pet=dog HTTP/1.1
Host: example.com
Date: Tue, 20 Apr 2021 02:07:55 GMT
Content-Type: application/json
Digest: SHA-256=X48E9qOokqqrvdts8nOJRJN3OWDUoyWxBf7kbu9DBPE=
Cache-Control: max-age=60
Cache-Control:    must-revalidate
Content-Length: 18

{"hello": "world"}
`

var httpres1 = `HTTP/1.1 200 OK
Date: Tue, 20 Apr 2021 02:07:56 GMT
Content-Type: application/json
Digest: SHA-256=X48E9qOokqqrvdts8nOJRJN3OWDUoyWxBf7kbu9DBPE=
Content-Length: 18

{"hello": "world"}`

func sharedSecretSigner(t *testing.T, keyID string, fields Fields) (*Signer, *Verifier) {
	t.Helper()
	key, err := NewHMACSigningKey(AlgorithmHMACSHA256, bytes.Repeat([]byte{0x99}, 64))
	require.NoError(t, err)
	signer, err := NewSigner(keyID, key, nil, fields)
	require.NoError(t, err)
	verifier, err := NewVerifier(&staticResolver{keys: map[string]*VerifyingKey{keyID: key.VerifyingKey()}}, nil)
	require.NoError(t, err)
	return signer, verifier
}

func TestSignRequest(t *testing.T) {
	tests := []struct {
		name    string
		fields  Fields
		want    string
		wantErr error
	}{
		{
			name:   "request target and digest",
			fields: Headers(RequestTarget, "content-type", "digest"),
			want:   `keyId="test-shared-secret",algorithm="hmac-sha256",headers="(request-target) content-type digest",signature="XxhOsS1wnWyykSaqYxr+K0k+eVEOLftDBc8Wjz/e+Ok="`,
		},
		{
			name:    "missing header",
			fields:  Headers(RequestTarget, "x-missing"),
			wantErr: ErrMissingHeader,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer, _ := sharedSecretSigner(t, "test-shared-secret", tt.fields)
			req := readRequest(httpreq1)
			require.NotNil(t, req)
			err := SignRequest(req, signer)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, req.Header.Get(SignatureHeader))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Header.Get(SignatureHeader))
		})
	}

	assert.ErrorIs(t, SignRequest(readRequest(httpreq1), nil), ErrInvalidConfiguration)
}

func TestSignRequestReplacesSignature(t *testing.T) {
	signer, _ := sharedSecretSigner(t, "test-shared-secret", Headers(RequestTarget, "content-type", "digest"))
	req := readRequest(httpreq1)
	require.NotNil(t, req)
	req.Header.Add(SignatureHeader, "stale")
	req.Header.Add(SignatureHeader, "staler")
	require.NoError(t, SignRequest(req, signer))
	assert.Len(t, req.Header.Values(SignatureHeader), 1)
}

func TestFoldedHeaderValues(t *testing.T) {
	req := readRequest(httpreq1)
	require.NotNil(t, req)
	msg, err := NewRequestMessage(req)
	require.NoError(t, err)
	s, err := SigningString(msg, Headers("cache-control", "host"))
	require.NoError(t, err)
	assert.Equal(t, "cache-control: max-age=60, must-revalidate\nhost: example.com", s)
}

func TestSignAndVerify(t *testing.T) {
	fields := Headers(RequestTarget, "host", "date", "cache-control", "digest")
	signer, verifier := sharedSecretSigner(t, "test-shared-secret", fields)

	t.Run("signature header", func(t *testing.T) {
		req := readRequest(httpreq1)
		require.NoError(t, SignRequest(req, signer))
		verified, err := VerifyRequest(req, verifier)
		require.NoError(t, err)
		assert.Equal(t, "test-shared-secret", verified.KeyID)
		assert.Equal(t, AlgorithmHMACSHA256, verified.Algorithm)
		assert.Equal(t, fields, verified.Headers)
	})

	t.Run("authorization header", func(t *testing.T) {
		req := readRequest(httpreq1)
		require.NoError(t, AuthorizeRequest(req, signer))
		assert.Empty(t, req.Header.Get(SignatureHeader))
		assert.Contains(t, req.Header.Get(AuthorizationHeader), "Signature keyId=\"test-shared-secret\"")
		_, err := VerifyRequest(req, verifier)
		assert.NoError(t, err)
	})

	t.Run("authorization header with a tab after the scheme", func(t *testing.T) {
		req := readRequest(httpreq1)
		require.NoError(t, AuthorizeRequest(req, signer))
		auth := req.Header.Get(AuthorizationHeader)
		req.Header.Set(AuthorizationHeader, strings.Replace(auth, "Signature ", "Signature\t", 1))
		verified, err := VerifyRequest(req, verifier)
		require.NoError(t, err)
		assert.Equal(t, "test-shared-secret", verified.KeyID)
	})

	t.Run("other authorization schemes are skipped", func(t *testing.T) {
		req := readRequest(httpreq1)
		require.NoError(t, AuthorizeRequest(req, signer))
		sig := req.Header.Get(AuthorizationHeader)
		req.Header.Set(AuthorizationHeader, "Bearer abc")
		req.Header.Add(AuthorizationHeader, sig)
		_, err := VerifyRequest(req, verifier)
		assert.NoError(t, err)
	})

	t.Run("signature header wins", func(t *testing.T) {
		req := readRequest(httpreq1)
		require.NoError(t, AuthorizeRequest(req, signer))
		req.Header.Set(SignatureHeader, `keyId="test-shared-secret",headers="date",signature="AAAA"`)
		_, err := VerifyRequest(req, verifier)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("tampered header", func(t *testing.T) {
		req := readRequest(httpreq1)
		require.NoError(t, SignRequest(req, signer))
		req.Header.Add("Cache-Control", "no-store")
		_, err := VerifyRequest(req, verifier)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
		var rejection *RejectionError
		require.ErrorAs(t, err, &rejection)
		assert.Equal(t, StateAlgorithmChecked, rejection.State)
	})

	t.Run("tampered target", func(t *testing.T) {
		req := readRequest(httpreq1)
		require.NoError(t, SignRequest(req, signer))
		req.URL.RawQuery = "param=value&pet=cat"
		_, err := VerifyRequest(req, verifier)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("two signature headers", func(t *testing.T) {
		req := readRequest(httpreq1)
		require.NoError(t, SignRequest(req, signer))
		req.Header.Add(SignatureHeader, req.Header.Get(SignatureHeader))
		_, err := VerifyRequest(req, verifier)
		assert.ErrorIs(t, err, ErrMalformedHeader)
	})

	t.Run("no signature", func(t *testing.T) {
		_, err := VerifyRequest(readRequest(httpreq1), verifier)
		assert.ErrorIs(t, err, ErrMalformedHeader)
		assert.Equal(t, "MalformedHeader", ReasonOf(err))
	})

	t.Run("nil verifier", func(t *testing.T) {
		_, err := VerifyRequest(readRequest(httpreq1), nil)
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})
}

func TestSignAndVerifyResponse(t *testing.T) {
	signer, verifier := sharedSecretSigner(t, "server-key", Headers("date", "content-type", "digest"))

	res := readResponse(httpres1)
	require.NotNil(t, res)
	require.NoError(t, SignResponse(res, signer))
	verified, err := VerifyResponse(res, verifier)
	require.NoError(t, err)
	assert.Equal(t, "server-key", verified.KeyID)

	// the body digest still matches after signing
	assert.NoError(t, ValidateDigestHeader(res.Header.Values(DigestHeader), &res.Body))

	res.Header.Set("Content-Type", "text/plain")
	_, err = VerifyResponse(res, verifier)
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	// responses have no request target
	rtSigner, _ := sharedSecretSigner(t, "server-key", Headers(RequestTarget))
	assert.ErrorIs(t, SignResponse(readResponse(httpres1), rtSigner), ErrMissingHeader)
	assert.ErrorIs(t, SignResponse(readResponse(httpres1), nil), ErrInvalidConfiguration)
	_, err = VerifyResponse(res, nil)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestVerifyRequestUsesRequestContext(t *testing.T) {
	signer, _ := sharedSecretSigner(t, "test-shared-secret", Headers(RequestTarget, "date"))
	req := readRequest(httpreq1)
	require.NoError(t, SignRequest(req, signer))

	verifier, err := NewVerifier(KeyResolverFunc(func(ctx context.Context, _ string) (*VerifyingKey, error) {
		return nil, ctx.Err()
	}), nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = VerifyRequest(req.WithContext(ctx), verifier)
	assert.ErrorIs(t, err, ErrKeyResolutionFailed)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = VerifyRequest(readRequest(httpreq1), verifier)
	assert.ErrorIs(t, err, ErrMalformedHeader)
}
