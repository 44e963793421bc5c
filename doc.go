// Package httpsig signs and verifies HTTP messages with the "Signature" header scheme of
// draft-cavage-http-signatures. See https://datatracker.ietf.org/doc/html/draft-cavage-http-signatures-12.
//
// A Signer covers a list of headers, including the (request-target), (created) and (expires)
// pseudo-headers, and produces a header such as
//
//	Signature: keyId="key1",algorithm="hmac-sha256",headers="(request-target) host date",signature="..."
//
// A Verifier parses that header, resolves the key through a KeyResolver, rebuilds the signing string
// and checks the signature and its freshness. Rejections are reported as *RejectionError, and
// ReasonOf maps them to a short reason that is safe to log.
//
// For client-side message signing and verification, use the Client wrapper.
// Alternatively you can use SignRequest, VerifyResponse etc. directly.
// For server-side operation, WrapHandler installs a wrapper around a normal HTTP message handler.
// Keys may be loaded from PEM or JWK data (ParseSigningKey, JWKSetResolver) or from a keyring file,
// see the keyring package.
package httpsig
