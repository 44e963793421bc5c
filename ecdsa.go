package httpsig

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
)

// ECDSA signatures are produced ASN.1 DER encoded. For interoperability, verification also
// accepts the raw, JWS-style r||s encoding.

func ecdsaVerify(pub *ecdsa.PublicKey, hash []byte, sig []byte) (bool, error) {
	if pub == nil {
		return false, fmt.Errorf("%w: nil public key", ErrInvalidKey)
	}
	lr, ls, err := sigComponentLen(pub.Params().Name)
	if err != nil {
		return false, err
	}
	if len(sig) == lr+ls {
		ok, err := ecdsaVerifyRaw(pub, hash, sig)
		if err == nil && ok {
			return true, nil
		}
	}
	return ecdsa.VerifyASN1(pub, hash, sig), nil
}

func ecdsaVerifyRaw(pub *ecdsa.PublicKey, hash []byte, sig []byte) (bool, error) {
	if pub == nil {
		return false, fmt.Errorf("%w: nil public key", ErrInvalidKey)
	}
	curve := pub.Params().Name
	lr, ls, err := sigComponentLen(curve)
	if err != nil {
		return false, err
	}
	if len(sig) != lr+ls {
		return false, fmt.Errorf("signature length is %d, expecting %d", len(sig), lr+ls)
	}
	r := new(big.Int)
	r.SetBytes(sig[0:lr])
	s := new(big.Int)
	s.SetBytes(sig[lr : lr+ls])
	return ecdsa.Verify(pub, hash, r, s), nil
}

func sigComponentLen(curve string) (int, int, error) {
	switch curve {
	case "P-256":
		return 32, 32, nil
	default:
		return 0, 0, fmt.Errorf("%w: unknown curve \"%s\"", ErrInvalidKey, curve)
	}
}
