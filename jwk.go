package httpsig

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// JWS algorithm names and the signature algorithms they correspond to.
var jwsAlgorithms = map[string]Algorithm{
	jwa.RS256.String(): AlgorithmRSASHA256,
	jwa.RS512.String(): AlgorithmRSASHA512,
	jwa.HS256.String(): AlgorithmHMACSHA256,
	jwa.HS512.String(): AlgorithmHMACSHA512,
	jwa.ES256.String(): AlgorithmECDSASHA256,
	jwa.EdDSA.String(): AlgorithmEd25519,
}

// keyAlgorithm decides which algorithm a JWK is used with: the explicit one if given, else the key's
// "alg" member, else a default for the key type. An explicit algorithm that contradicts "alg" is an error.
func keyAlgorithm(key jwk.Key, alg Algorithm) (Algorithm, error) {
	var fromJWK Algorithm
	if name := key.Algorithm().String(); name != "" {
		a, ok := jwsAlgorithms[name]
		if !ok {
			return "", fmt.Errorf("%w: JWK algorithm \"%s\"", ErrUnsupportedAlgorithm, name)
		}
		fromJWK = a
	}
	switch {
	case alg != "" && fromJWK != "" && alg != fromJWK:
		return "", fmt.Errorf("%w: JWK is for \"%s\", not \"%s\"", ErrKeyAlgorithmMismatch, fromJWK, alg)
	case alg != "":
		return alg, nil
	case fromJWK != "":
		return fromJWK, nil
	}
	switch key.KeyType() {
	case jwa.RSA:
		return AlgorithmRSASHA256, nil
	case jwa.EC:
		return AlgorithmECDSASHA256, nil
	case jwa.OKP:
		return AlgorithmEd25519, nil
	case jwa.OctetSeq:
		return AlgorithmHMACSHA256, nil
	default:
		return "", fmt.Errorf("%w: unsupported JWK key type \"%s\"", ErrInvalidKey, key.KeyType())
	}
}

// SigningKeyFromJWK converts a private (or symmetric) JWK. Alg may be empty, see keyAlgorithm.
func SigningKeyFromJWK(key jwk.Key, alg Algorithm) (*SigningKey, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: nil JWK", ErrInvalidKey)
	}
	alg, err := keyAlgorithm(key, alg)
	if err != nil {
		return nil, err
	}
	var raw interface{}
	if err := key.Raw(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	switch k := raw.(type) {
	case *rsa.PrivateKey:
		return NewRSASigningKey(alg, k)
	case []byte:
		return NewHMACSigningKey(alg, k)
	case *ecdsa.PrivateKey:
		if alg != AlgorithmECDSASHA256 {
			return nil, fmt.Errorf("%w: ecdsa key used for \"%s\"", ErrKeyAlgorithmMismatch, alg)
		}
		return NewECDSASigningKey(k)
	case ed25519.PrivateKey:
		if alg != AlgorithmEd25519 {
			return nil, fmt.Errorf("%w: ed25519 key used for \"%s\"", ErrKeyAlgorithmMismatch, alg)
		}
		return NewEd25519SigningKey(k)
	default:
		return nil, fmt.Errorf("%w: JWK does not hold a private key, got %T", ErrInvalidKey, raw)
	}
}

// VerifyingKeyFromJWK converts a public, private or symmetric JWK. For private keys, the public part is used.
func VerifyingKeyFromJWK(key jwk.Key, alg Algorithm) (*VerifyingKey, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: nil JWK", ErrInvalidKey)
	}
	alg, err := keyAlgorithm(key, alg)
	if err != nil {
		return nil, err
	}
	var raw interface{}
	if err := key.Raw(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	switch k := raw.(type) {
	case *rsa.PrivateKey:
		return NewRSAVerifyingKey(alg, &k.PublicKey)
	case *rsa.PublicKey:
		return NewRSAVerifyingKey(alg, k)
	case []byte:
		return NewHMACVerifyingKey(alg, k)
	case *ecdsa.PrivateKey:
		return ecdsaVerifyingKey(alg, &k.PublicKey)
	case *ecdsa.PublicKey:
		return ecdsaVerifyingKey(alg, k)
	case ed25519.PrivateKey:
		return ed25519VerifyingKey(alg, k.Public().(ed25519.PublicKey))
	case ed25519.PublicKey:
		return ed25519VerifyingKey(alg, k)
	default:
		return nil, fmt.Errorf("%w: unsupported JWK key material %T", ErrInvalidKey, raw)
	}
}

func ecdsaVerifyingKey(alg Algorithm, k *ecdsa.PublicKey) (*VerifyingKey, error) {
	if alg != AlgorithmECDSASHA256 {
		return nil, fmt.Errorf("%w: ecdsa key used for \"%s\"", ErrKeyAlgorithmMismatch, alg)
	}
	return NewECDSAVerifyingKey(k)
}

func ed25519VerifyingKey(alg Algorithm, k ed25519.PublicKey) (*VerifyingKey, error) {
	if alg != AlgorithmEd25519 {
		return nil, fmt.Errorf("%w: ed25519 key used for \"%s\"", ErrKeyAlgorithmMismatch, alg)
	}
	return NewEd25519VerifyingKey(k)
}

func parseKeyData(data []byte) (jwk.Key, error) {
	var key jwk.Key
	var err error
	if bytes.Contains(data, []byte("-----BEGIN")) {
		key, err = jwk.ParseKey(data, jwk.WithPEM(true))
	} else {
		key, err = jwk.ParseKey(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, nil
}

// ParseSigningKey reads a private key, either as a single JWK (JSON) or PEM encoded.
func ParseSigningKey(data []byte, alg Algorithm) (*SigningKey, error) {
	key, err := parseKeyData(data)
	if err != nil {
		return nil, err
	}
	return SigningKeyFromJWK(key, alg)
}

// ParseVerifyingKey reads a public key, either as a single JWK (JSON) or PEM encoded.
func ParseVerifyingKey(data []byte, alg Algorithm) (*VerifyingKey, error) {
	key, err := parseKeyData(data)
	if err != nil {
		return nil, err
	}
	return VerifyingKeyFromJWK(key, alg)
}

// JWKSetResolver is a KeyResolver that looks up the keyId among the "kid" members of a JWK set.
type JWKSetResolver struct {
	Set jwk.Set
}

// NewJWKSetResolver parses a JWK set, as served from a jwks_uri.
func NewJWKSetResolver(data []byte) (*JWKSetResolver, error) {
	set, err := jwk.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &JWKSetResolver{Set: set}, nil
}

// Resolve implements KeyResolver.
func (r *JWKSetResolver) Resolve(_ context.Context, keyID string) (*VerifyingKey, error) {
	if r.Set == nil {
		return nil, fmt.Errorf("%w: \"%s\", empty key set", ErrKeyNotFound, keyID)
	}
	key, ok := r.Set.LookupKeyID(keyID)
	if !ok {
		return nil, fmt.Errorf("%w: \"%s\"", ErrKeyNotFound, keyID)
	}
	return VerifyingKeyFromJWK(key, "")
}
