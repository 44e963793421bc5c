package httpsig

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"fmt"
)

// Minimum RSA key size in bits.
const minRSAKeyBits = 2048

const minHMACKeyBytes = 32

// SigningKey is private or shared key material tagged with the algorithm it may be used with.
// The key material is referenced, not copied.
type SigningKey struct {
	alg Algorithm
	key interface{}
}

// Algorithm returns the algorithm the key is tagged with.
func (k *SigningKey) Algorithm() Algorithm {
	return k.alg
}

// VerifyingKey is public or shared key material tagged with the algorithm it may be used with.
type VerifyingKey struct {
	alg Algorithm
	key interface{}
}

// Algorithm returns the algorithm the key is tagged with.
func (k *VerifyingKey) Algorithm() Algorithm {
	return k.alg
}

// VerifyingKey returns the matching verification key: the public key for asymmetric algorithms,
// the same secret for HMAC.
func (k *SigningKey) VerifyingKey() *VerifyingKey {
	switch key := k.key.(type) {
	case *rsa.PrivateKey:
		return &VerifyingKey{alg: k.alg, key: &key.PublicKey}
	case *ecdsa.PrivateKey:
		return &VerifyingKey{alg: k.alg, key: &key.PublicKey}
	case ed25519.PrivateKey:
		return &VerifyingKey{alg: k.alg, key: key.Public().(ed25519.PublicKey)}
	default:
		return &VerifyingKey{alg: k.alg, key: k.key}
	}
}

func checkRSAAlg(alg Algorithm) error {
	if alg != AlgorithmRSASHA256 && alg != AlgorithmRSASHA512 {
		return fmt.Errorf("%w: \"%s\" is not an RSA algorithm", ErrKeyAlgorithmMismatch, alg)
	}
	return nil
}

func checkHMACAlg(alg Algorithm) error {
	if alg != AlgorithmHMACSHA256 && alg != AlgorithmHMACSHA512 {
		return fmt.Errorf("%w: \"%s\" is not an HMAC algorithm", ErrKeyAlgorithmMismatch, alg)
	}
	return nil
}

// NewRSASigningKey returns a SigningKey for rsa-sha256 or rsa-sha512. The key must be at least 2048 bits.
func NewRSASigningKey(alg Algorithm, key *rsa.PrivateKey) (*SigningKey, error) {
	if err := checkRSAAlg(alg); err != nil {
		return nil, err
	}
	if key == nil {
		return nil, fmt.Errorf("%w: rsa private key must not be nil", ErrInvalidKey)
	}
	if key.N.BitLen() < minRSAKeyBits {
		return nil, fmt.Errorf("%w: rsa key must be at least %d bits", ErrInvalidKey, minRSAKeyBits)
	}
	return &SigningKey{alg: alg, key: key}, nil
}

// NewRSAVerifyingKey returns a VerifyingKey for rsa-sha256 or rsa-sha512.
func NewRSAVerifyingKey(alg Algorithm, key *rsa.PublicKey) (*VerifyingKey, error) {
	if err := checkRSAAlg(alg); err != nil {
		return nil, err
	}
	if key == nil {
		return nil, fmt.Errorf("%w: rsa public key must not be nil", ErrInvalidKey)
	}
	if key.N.BitLen() < minRSAKeyBits {
		return nil, fmt.Errorf("%w: rsa key must be at least %d bits", ErrInvalidKey, minRSAKeyBits)
	}
	return &VerifyingKey{alg: alg, key: key}, nil
}

// NewHMACSigningKey returns a SigningKey for hmac-sha256 or hmac-sha512. The secret must be at least 32 bytes long.
func NewHMACSigningKey(alg Algorithm, secret []byte) (*SigningKey, error) {
	if err := checkHMACAlg(alg); err != nil {
		return nil, err
	}
	if len(secret) < minHMACKeyBytes {
		return nil, fmt.Errorf("%w: hmac key must be at least %d bytes", ErrInvalidKey, minHMACKeyBytes)
	}
	return &SigningKey{alg: alg, key: secret}, nil
}

// NewHMACVerifyingKey returns a VerifyingKey for hmac-sha256 or hmac-sha512.
func NewHMACVerifyingKey(alg Algorithm, secret []byte) (*VerifyingKey, error) {
	if err := checkHMACAlg(alg); err != nil {
		return nil, err
	}
	if len(secret) < minHMACKeyBytes {
		return nil, fmt.Errorf("%w: hmac key must be at least %d bytes", ErrInvalidKey, minHMACKeyBytes)
	}
	return &VerifyingKey{alg: alg, key: secret}, nil
}

// NewECDSASigningKey returns a SigningKey for ecdsa-sha256. Key must be on curve P-256.
func NewECDSASigningKey(key *ecdsa.PrivateKey) (*SigningKey, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: ecdsa private key must not be nil", ErrInvalidKey)
	}
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("%w: key curve must be P-256", ErrInvalidKey)
	}
	return &SigningKey{alg: AlgorithmECDSASHA256, key: key}, nil
}

// NewECDSAVerifyingKey returns a VerifyingKey for ecdsa-sha256. Key must be on curve P-256.
func NewECDSAVerifyingKey(key *ecdsa.PublicKey) (*VerifyingKey, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: ecdsa public key must not be nil", ErrInvalidKey)
	}
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("%w: key curve must be P-256", ErrInvalidKey)
	}
	return &VerifyingKey{alg: AlgorithmECDSASHA256, key: key}, nil
}

// NewEd25519SigningKey returns a SigningKey for ed25519.
func NewEd25519SigningKey(key ed25519.PrivateKey) (*SigningKey, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: ed25519 private key must be %d bytes", ErrInvalidKey, ed25519.PrivateKeySize)
	}
	return &SigningKey{alg: AlgorithmEd25519, key: key}, nil
}

// NewEd25519VerifyingKey returns a VerifyingKey for ed25519.
func NewEd25519VerifyingKey(key ed25519.PublicKey) (*VerifyingKey, error) {
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: ed25519 public key must be %d bytes", ErrInvalidKey, ed25519.PublicKeySize)
	}
	return &VerifyingKey{alg: AlgorithmEd25519, key: key}, nil
}
