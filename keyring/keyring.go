// Package keyring loads signature keys from a YAML file and resolves them by key ID.
//
// A keyring file lists one entry per key. Each entry carries exactly one of a base64 shared secret,
// a path to a PEM or JWK file (relative to the keyring file), or an inline JWK:
//
//	keys:
//	  - key_id: hmac-key-1
//	    algorithm: hmac-sha256
//	    secret: c2VjcmV0LXNlY3JldC1zZWNyZXQtc2VjcmV0LXNlY3JldA==
//	  - key_id: rsa-key-1
//	    algorithm: rsa-sha256
//	    key_file: rsa-key-1.pem
//	  - key_id: ed-key-1
//	    jwk: '{"kty":"OKP","crv":"Ed25519","x":"..."}'
package keyring

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/yaronf/httpsig"
)

type file struct {
	Keys []entry `yaml:"keys"`
}

type entry struct {
	KeyID     string `yaml:"key_id"`
	Algorithm string `yaml:"algorithm"`
	Secret    string `yaml:"secret"`
	KeyFile   string `yaml:"key_file"`
	JWK       string `yaml:"jwk"`
}

type keyPair struct {
	signing   *httpsig.SigningKey // nil for public keys
	verifying *httpsig.VerifyingKey
}

// Keyring is a read-only set of keys indexed by key ID. It implements httpsig.KeyResolver.
type Keyring struct {
	keys map[string]keyPair
}

// Parse reads a keyring from YAML. Relative key_file paths are resolved against the working directory.
func Parse(data []byte) (*Keyring, error) {
	return parse(data, "")
}

// Load reads a keyring file. Relative key_file paths are resolved against the keyring's directory.
func Load(path string) (*Keyring, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keyring: %w", err)
	}
	return parse(data, filepath.Dir(path))
}

func parse(data []byte, dir string) (*Keyring, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("keyring: %w: %v", httpsig.ErrInvalidConfiguration, err)
	}
	kr := &Keyring{keys: make(map[string]keyPair, len(f.Keys))}
	for i, e := range f.Keys {
		if e.KeyID == "" {
			return nil, fmt.Errorf("keyring: %w: entry %d has no key_id", httpsig.ErrInvalidConfiguration, i)
		}
		if _, ok := kr.keys[e.KeyID]; ok {
			return nil, fmt.Errorf("keyring: %w: duplicate key_id \"%s\"", httpsig.ErrInvalidConfiguration, e.KeyID)
		}
		pair, err := e.load(dir)
		if err != nil {
			return nil, fmt.Errorf("keyring: key \"%s\": %w", e.KeyID, err)
		}
		kr.keys[e.KeyID] = pair
	}
	return kr, nil
}

func (e entry) load(dir string) (keyPair, error) {
	n := 0
	for _, s := range []string{e.Secret, e.KeyFile, e.JWK} {
		if s != "" {
			n++
		}
	}
	if n != 1 {
		return keyPair{}, fmt.Errorf("%w: exactly one of secret, key_file and jwk is required", httpsig.ErrInvalidConfiguration)
	}
	alg := httpsig.Algorithm(e.Algorithm)
	switch {
	case e.Secret != "":
		if alg == "" {
			alg = httpsig.AlgorithmHMACSHA256
		}
		secret, err := base64.StdEncoding.DecodeString(e.Secret)
		if err != nil {
			return keyPair{}, fmt.Errorf("%w: secret is not base64", httpsig.ErrInvalidKey)
		}
		signing, err := httpsig.NewHMACSigningKey(alg, secret)
		if err != nil {
			return keyPair{}, err
		}
		return keyPair{signing: signing, verifying: signing.VerifyingKey()}, nil
	case e.KeyFile != "":
		path := e.KeyFile
		if !filepath.IsAbs(path) && dir != "" {
			path = filepath.Join(dir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return keyPair{}, err
		}
		return parseKey(data, alg)
	default:
		return parseKey([]byte(e.JWK), alg)
	}
}

// parseKey accepts private and public keys; only private keys can sign.
func parseKey(data []byte, alg httpsig.Algorithm) (keyPair, error) {
	if signing, err := httpsig.ParseSigningKey(data, alg); err == nil {
		return keyPair{signing: signing, verifying: signing.VerifyingKey()}, nil
	}
	verifying, err := httpsig.ParseVerifyingKey(data, alg)
	if err != nil {
		return keyPair{}, err
	}
	return keyPair{verifying: verifying}, nil
}

// Resolve implements httpsig.KeyResolver.
func (k *Keyring) Resolve(_ context.Context, keyID string) (*httpsig.VerifyingKey, error) {
	pair, ok := k.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("%w: \"%s\"", httpsig.ErrKeyNotFound, keyID)
	}
	return pair.verifying, nil
}

// SigningKey returns the private or shared key for keyID. Public-only entries cannot sign.
func (k *Keyring) SigningKey(keyID string) (*httpsig.SigningKey, error) {
	pair, ok := k.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("%w: \"%s\"", httpsig.ErrKeyNotFound, keyID)
	}
	if pair.signing == nil {
		return nil, fmt.Errorf("%w: \"%s\" is a public key", httpsig.ErrInvalidKey, keyID)
	}
	return pair.signing, nil
}

// KeyIDs returns the key IDs, sorted.
func (k *Keyring) KeyIDs() []string {
	ids := make([]string, 0, len(k.keys))
	for id := range k.keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
