package httpsig

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// SignRequest signs an HTTP request and adds the result as a Signature header.
// Any previous Signature header is replaced.
func SignRequest(req *http.Request, signer *Signer) error {
	p, err := signRequestParams(req, signer)
	if err != nil {
		return err
	}
	req.Header.Set(SignatureHeader, p.String())
	return nil
}

// AuthorizeRequest signs an HTTP request and adds the result as an "Authorization: Signature ..." header.
func AuthorizeRequest(req *http.Request, signer *Signer) error {
	p, err := signRequestParams(req, signer)
	if err != nil {
		return err
	}
	req.Header.Set(AuthorizationHeader, p.AuthorizationHeader())
	return nil
}

func signRequestParams(req *http.Request, signer *Signer) (*SignatureParams, error) {
	if signer == nil {
		return nil, fmt.Errorf("%w: nil signer", ErrInvalidConfiguration)
	}
	msg, err := NewRequestMessage(req)
	if err != nil {
		return nil, err
	}
	if req.Header == nil {
		req.Header = http.Header{}
	}
	return signer.SignParams(msg)
}

// SignResponse signs an HTTP response and adds the result as a Signature header.
// Responses have no request target, so the signer must cover real headers only.
func SignResponse(res *http.Response, signer *Signer) error {
	if signer == nil {
		return fmt.Errorf("%w: nil signer", ErrInvalidConfiguration)
	}
	msg, err := NewResponseMessage(res)
	if err != nil {
		return err
	}
	sig, err := signer.Sign(msg)
	if err != nil {
		return err
	}
	res.Header.Set(SignatureHeader, sig)
	return nil
}

// VerifyRequest verifies a signed HTTP request. The signature is taken from the Signature header
// or, when there is none, from an Authorization header with the Signature scheme.
func VerifyRequest(req *http.Request, verifier *Verifier) (*Verified, error) {
	if verifier == nil {
		return nil, fmt.Errorf("%w: nil verifier", ErrInvalidConfiguration)
	}
	msg, err := NewRequestMessage(req)
	if err != nil {
		return nil, reject(StateParsed, err)
	}
	p, err := signatureFromHeader(req.Header)
	if err != nil {
		return nil, reject(StateParsed, err)
	}
	return verifier.VerifyParams(req.Context(), msg, p)
}

// VerifyResponse verifies a signed HTTP response.
func VerifyResponse(res *http.Response, verifier *Verifier) (*Verified, error) {
	if verifier == nil {
		return nil, fmt.Errorf("%w: nil verifier", ErrInvalidConfiguration)
	}
	msg, err := NewResponseMessage(res)
	if err != nil {
		return nil, reject(StateParsed, err)
	}
	p, err := signatureFromHeader(res.Header)
	if err != nil {
		return nil, reject(StateParsed, err)
	}
	ctx := context.Background()
	if res.Request != nil {
		ctx = res.Request.Context()
	}
	return verifier.VerifyParams(ctx, msg, p)
}

func signatureFromHeader(h http.Header) (*SignatureParams, error) {
	if sigs := h.Values(SignatureHeader); len(sigs) > 0 {
		if len(sigs) > 1 {
			return nil, fmt.Errorf("%w: more than one Signature header", ErrMalformedHeader)
		}
		return ParseSignatureHeader(sigs[0])
	}
	for _, auth := range h.Values(AuthorizationHeader) {
		if scheme, _ := splitAuthScheme(auth); strings.EqualFold(scheme, authScheme) {
			return ParseAuthorizationHeader(auth)
		}
	}
	return nil, fmt.Errorf("%w: no Signature or Authorization header", ErrMalformedHeader)
}
