package httpsig

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"sort"
)

// Algorithm is the token carried in the "algorithm" signature parameter.
type Algorithm string

const (
	// AlgorithmRSASHA256 is RSASSA-PKCS1-v1_5 using SHA-256.
	AlgorithmRSASHA256 Algorithm = "rsa-sha256"

	// AlgorithmRSASHA512 is RSASSA-PKCS1-v1_5 using SHA-512.
	AlgorithmRSASHA512 Algorithm = "rsa-sha512"

	// AlgorithmHMACSHA256 is HMAC using SHA-256.
	AlgorithmHMACSHA256 Algorithm = "hmac-sha256"

	// AlgorithmHMACSHA512 is HMAC using SHA-512.
	AlgorithmHMACSHA512 Algorithm = "hmac-sha512"

	// AlgorithmECDSASHA256 is ECDSA using curve P-256 and SHA-256.
	AlgorithmECDSASHA256 Algorithm = "ecdsa-sha256"

	// AlgorithmEd25519 is EdDSA using curve 25519.
	AlgorithmEd25519 Algorithm = "ed25519"
)

func (a Algorithm) String() string {
	return string(a)
}

// AlgorithmProvider signs and verifies raw bytes for one algorithm.
// Both operations fail with ErrKeyAlgorithmMismatch when the key is tagged with another algorithm.
// Verify returns false, with no error, when the signature does not match.
type AlgorithmProvider interface {
	Algorithm() Algorithm
	Sign(message []byte, key *SigningKey) ([]byte, error)
	Verify(message, signature []byte, key *VerifyingKey) (bool, error)
}

// The set of algorithms is closed: this table is the only place providers are registered.
var providers = map[Algorithm]AlgorithmProvider{
	AlgorithmRSASHA256:   rsaProvider{alg: AlgorithmRSASHA256, hash: crypto.SHA256},
	AlgorithmRSASHA512:   rsaProvider{alg: AlgorithmRSASHA512, hash: crypto.SHA512},
	AlgorithmHMACSHA256:  hmacProvider{alg: AlgorithmHMACSHA256, hash: sha256.New},
	AlgorithmHMACSHA512:  hmacProvider{alg: AlgorithmHMACSHA512, hash: sha512.New},
	AlgorithmECDSASHA256: ecdsaProvider{alg: AlgorithmECDSASHA256},
	AlgorithmEd25519:     ed25519Provider{},
}

// LookupAlgorithm returns the provider registered for the token.
func LookupAlgorithm(alg Algorithm) (AlgorithmProvider, error) {
	p, ok := providers[alg]
	if !ok {
		return nil, fmt.Errorf("%w: \"%s\"", ErrUnsupportedAlgorithm, alg)
	}
	return p, nil
}

// Algorithms returns the supported algorithm tokens, sorted.
func Algorithms() []Algorithm {
	algs := make([]Algorithm, 0, len(providers))
	for a := range providers {
		algs = append(algs, a)
	}
	sort.Slice(algs, func(i, j int) bool { return algs[i] < algs[j] })
	return algs
}

func signingKeyMaterial(alg Algorithm, key *SigningKey) (interface{}, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: nil signing key", ErrInvalidKey)
	}
	if key.alg != alg {
		return nil, fmt.Errorf("%w: key is for \"%s\", not \"%s\"", ErrKeyAlgorithmMismatch, key.alg, alg)
	}
	return key.key, nil
}

func verifyingKeyMaterial(alg Algorithm, key *VerifyingKey) (interface{}, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: nil verifying key", ErrInvalidKey)
	}
	if key.alg != alg {
		return nil, fmt.Errorf("%w: key is for \"%s\", not \"%s\"", ErrKeyAlgorithmMismatch, key.alg, alg)
	}
	return key.key, nil
}

func wrongKeyType(alg Algorithm, key interface{}) error {
	return fmt.Errorf("%w: %T cannot be used with \"%s\"", ErrInvalidKey, key, alg)
}

func hashMessage(h crypto.Hash, message []byte) []byte {
	d := h.New()
	d.Write(message)
	return d.Sum(nil)
}

type rsaProvider struct {
	alg  Algorithm
	hash crypto.Hash
}

func (p rsaProvider) Algorithm() Algorithm { return p.alg }

func (p rsaProvider) Sign(message []byte, key *SigningKey) ([]byte, error) {
	k, err := signingKeyMaterial(p.alg, key)
	if err != nil {
		return nil, err
	}
	priv, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, wrongKeyType(p.alg, k)
	}
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, p.hash, hashMessage(p.hash, message))
	if err != nil {
		return nil, fmt.Errorf("RSA signature failed: %w", err)
	}
	return sig, nil
}

func (p rsaProvider) Verify(message, signature []byte, key *VerifyingKey) (bool, error) {
	k, err := verifyingKeyMaterial(p.alg, key)
	if err != nil {
		return false, err
	}
	pub, ok := k.(*rsa.PublicKey)
	if !ok {
		return false, wrongKeyType(p.alg, k)
	}
	return rsa.VerifyPKCS1v15(pub, p.hash, hashMessage(p.hash, message), signature) == nil, nil
}

type hmacProvider struct {
	alg  Algorithm
	hash func() hash.Hash
}

func (p hmacProvider) Algorithm() Algorithm { return p.alg }

func (p hmacProvider) mac(k interface{}, message []byte) ([]byte, error) {
	secret, ok := k.([]byte)
	if !ok {
		return nil, wrongKeyType(p.alg, k)
	}
	mac := hmac.New(p.hash, secret)
	mac.Write(message)
	return mac.Sum(nil), nil
}

func (p hmacProvider) Sign(message []byte, key *SigningKey) ([]byte, error) {
	k, err := signingKeyMaterial(p.alg, key)
	if err != nil {
		return nil, err
	}
	return p.mac(k, message)
}

func (p hmacProvider) Verify(message, signature []byte, key *VerifyingKey) (bool, error) {
	k, err := verifyingKeyMaterial(p.alg, key)
	if err != nil {
		return false, err
	}
	expected, err := p.mac(k, message)
	if err != nil {
		return false, err
	}
	return hmac.Equal(expected, signature), nil // constant time
}

type ecdsaProvider struct {
	alg Algorithm
}

func (p ecdsaProvider) Algorithm() Algorithm { return p.alg }

func (p ecdsaProvider) Sign(message []byte, key *SigningKey) ([]byte, error) {
	k, err := signingKeyMaterial(p.alg, key)
	if err != nil {
		return nil, err
	}
	priv, ok := k.(*ecdsa.PrivateKey)
	if !ok {
		return nil, wrongKeyType(p.alg, k)
	}
	hashed := sha256.Sum256(message)
	return ecdsa.SignASN1(rand.Reader, priv, hashed[:])
}

func (p ecdsaProvider) Verify(message, signature []byte, key *VerifyingKey) (bool, error) {
	k, err := verifyingKeyMaterial(p.alg, key)
	if err != nil {
		return false, err
	}
	pub, ok := k.(*ecdsa.PublicKey)
	if !ok {
		return false, wrongKeyType(p.alg, k)
	}
	hashed := sha256.Sum256(message)
	return ecdsaVerify(pub, hashed[:], signature)
}

type ed25519Provider struct{}

func (ed25519Provider) Algorithm() Algorithm { return AlgorithmEd25519 }

func (p ed25519Provider) Sign(message []byte, key *SigningKey) ([]byte, error) {
	k, err := signingKeyMaterial(AlgorithmEd25519, key)
	if err != nil {
		return nil, err
	}
	priv, ok := k.(ed25519.PrivateKey)
	if !ok {
		return nil, wrongKeyType(AlgorithmEd25519, k)
	}
	return ed25519.Sign(priv, message), nil
}

func (p ed25519Provider) Verify(message, signature []byte, key *VerifyingKey) (bool, error) {
	k, err := verifyingKeyMaterial(AlgorithmEd25519, key)
	if err != nil {
		return false, err
	}
	pub, ok := k.(ed25519.PublicKey)
	if !ok {
		return false, wrongKeyType(AlgorithmEd25519, k)
	}
	return ed25519.Verify(pub, message, signature), nil
}
