package httpsig

import (
	"fmt"
	"time"
)

// Signer signs messages with one key, covering a fixed list of headers.
// It holds no mutable state and may be shared between goroutines.
type Signer struct {
	keyID    string
	key      *SigningKey
	provider AlgorithmProvider
	config   *SignConfig
	fields   Fields
}

// NewSigner returns a new Signer. The algorithm is the one the key is tagged with.
// Config may be nil for a default configuration.
func NewSigner(keyID string, key *SigningKey, config *SignConfig, fields Fields) (*Signer, error) {
	if keyID == "" {
		return nil, fmt.Errorf("%w: key ID must not be empty", ErrInvalidConfiguration)
	}
	if key == nil {
		return nil, fmt.Errorf("%w: key must not be nil", ErrInvalidKey)
	}
	provider, err := LookupAlgorithm(key.Algorithm())
	if err != nil {
		return nil, err
	}
	if err := fields.validate(); err != nil {
		return nil, err
	}
	if config == nil {
		config = NewSignConfig()
	}
	if fields.Contains(Headers(Created)) && !config.signCreated {
		return nil, fmt.Errorf("%w: %s is covered but created is not signed", ErrInvalidConfiguration, Created)
	}
	if fields.Contains(Headers(Expires)) && config.expiresIn <= 0 {
		return nil, fmt.Errorf("%w: %s is covered but expires is not set", ErrInvalidConfiguration, Expires)
	}
	return &Signer{
		keyID:    keyID,
		key:      key,
		provider: provider,
		config:   config,
		fields:   append(Fields(nil), fields...),
	}, nil
}

// Sign is a shortcut that signs the given headers of view and returns the Signature header value.
func Sign(view RequestView, fields Fields, keyID string, key *SigningKey) (string, error) {
	signer, err := NewSigner(keyID, key, nil, fields)
	if err != nil {
		return "", err
	}
	return signer.Sign(view)
}

// KeyID returns the key identifier placed in signatures.
func (s *Signer) KeyID() string {
	return s.keyID
}

// Fields returns the covered headers.
func (s *Signer) Fields() Fields {
	return append(Fields(nil), s.fields...)
}

// Sign signs the message and returns the value of a Signature header.
func (s *Signer) Sign(view RequestView) (string, error) {
	p, err := s.SignParams(view)
	if err != nil {
		return "", err
	}
	return p.String(), nil
}

// SignParams signs the message and returns the signature parameters, to be serialized
// by the caller with String or AuthorizationHeader.
func (s *Signer) SignParams(view RequestView) (*SignatureParams, error) {
	p := &SignatureParams{
		KeyID:     s.keyID,
		Algorithm: s.key.Algorithm(),
		Headers:   s.Fields(),
	}
	now := s.config.signingTime()
	if s.config.signCreated {
		created := time.Unix(now.Unix(), 0)
		p.Created = &created
	}
	if s.config.expiresIn > 0 {
		expires := time.Unix(now.Add(s.config.expiresIn).Unix(), 0)
		p.Expires = &expires
	}
	input, err := signingString(view, s.fields, p)
	if err != nil {
		return nil, err
	}
	sig, err := s.provider.Sign([]byte(input), s.key)
	if err != nil {
		return nil, err
	}
	p.Signature = sig
	return p, nil
}
