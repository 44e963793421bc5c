package httpsig

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// KeyResolver returns the verification key for a key ID. It should return an error wrapping
// ErrKeyNotFound when the key ID is unknown. Any other error is reported as ErrKeyResolutionFailed.
// Caching, retries and timeouts are the resolver's business.
type KeyResolver interface {
	Resolve(ctx context.Context, keyID string) (*VerifyingKey, error)
}

// KeyResolverFunc is a convenience type for implementing a KeyResolver with a regular function.
type KeyResolverFunc func(ctx context.Context, keyID string) (*VerifyingKey, error)

// Resolve calls f(ctx, keyID)
func (f KeyResolverFunc) Resolve(ctx context.Context, keyID string) (*VerifyingKey, error) {
	return f(ctx, keyID)
}

// Verified describes an accepted signature. Headers is the list that was actually covered;
// enforcing a minimum set (e.g. "date" or "digest") is up to the application, see Fields.Contains.
type Verified struct {
	KeyID     string
	Algorithm Algorithm
	Headers   Fields
	Created   *time.Time
	Expires   *time.Time
}

// Verifier checks signatures, looking up keys through a KeyResolver.
// It holds no mutable state and may be shared between goroutines.
type Verifier struct {
	resolver KeyResolver
	config   *VerifyConfig
}

// NewVerifier returns a new Verifier. Config may be nil for a default configuration.
func NewVerifier(resolver KeyResolver, config *VerifyConfig) (*Verifier, error) {
	if resolver == nil {
		return nil, fmt.Errorf("%w: key resolver must not be nil", ErrInvalidConfiguration)
	}
	if config == nil {
		config = NewVerifyConfig()
	}
	return &Verifier{resolver: resolver, config: config}, nil
}

// Verify parses a Signature header value and verifies it against the message.
// On failure the error is a *RejectionError; do not send its details to the peer.
func (v *Verifier) Verify(ctx context.Context, view RequestView, header string) (*Verified, error) {
	p, err := ParseSignatureHeader(header)
	if err != nil {
		return nil, reject(StateParsed, err)
	}
	return v.VerifyParams(ctx, view, p)
}

// VerifyParams verifies already parsed signature parameters against the message.
func (v *Verifier) VerifyParams(ctx context.Context, view RequestView, p *SignatureParams) (*Verified, error) {
	if p == nil {
		return nil, reject(StateParsed, fmt.Errorf("%w: no signature parameters", ErrMalformedHeader))
	}
	key, provider, err := v.resolveKey(ctx, p)
	if err != nil {
		return nil, reject(StateHeadersResolved, err)
	}
	input, err := signingString(view, p.Headers, p)
	if err != nil {
		return nil, reject(StateStringReconstructed, err)
	}
	ok, err := provider.Verify([]byte(input), p.Signature, key)
	if err != nil {
		return nil, reject(StateAlgorithmChecked, err)
	}
	if !ok {
		return nil, reject(StateAlgorithmChecked, ErrSignatureMismatch)
	}
	if err := v.checkFreshness(p); err != nil {
		return nil, reject(StateFreshnessChecked, err)
	}
	return &Verified{
		KeyID:     p.KeyID,
		Algorithm: key.Algorithm(),
		Headers:   append(Fields(nil), p.Headers...),
		Created:   p.Created,
		Expires:   p.Expires,
	}, nil
}

func (v *Verifier) resolveKey(ctx context.Context, p *SignatureParams) (*VerifyingKey, AlgorithmProvider, error) {
	if p.Algorithm != "" {
		if _, err := LookupAlgorithm(p.Algorithm); err != nil {
			return nil, nil, err
		}
	}
	key, err := v.resolver.Resolve(ctx, p.KeyID)
	switch {
	case errors.Is(err, ErrKeyNotFound):
		return nil, nil, fmt.Errorf("key \"%s\": %w", p.KeyID, err)
	case err != nil:
		return nil, nil, fmt.Errorf("%w: key \"%s\": %w", ErrKeyResolutionFailed, p.KeyID, err)
	case key == nil:
		return nil, nil, fmt.Errorf("%w: \"%s\"", ErrKeyNotFound, p.KeyID)
	}
	if p.Algorithm != "" && p.Algorithm != key.Algorithm() {
		return nil, nil, fmt.Errorf("%w: signature uses \"%s\", key \"%s\" is for \"%s\"",
			ErrKeyAlgorithmMismatch, p.Algorithm, p.KeyID, key.Algorithm())
	}
	provider, err := LookupAlgorithm(key.Algorithm())
	if err != nil {
		return nil, nil, err
	}
	return key, provider, nil
}

func (v *Verifier) checkFreshness(p *SignatureParams) error {
	now := v.config.currentTime()
	if p.Expires != nil && now.Unix() > p.Expires.Unix() {
		return fmt.Errorf("%w: expired at %d", ErrExpired, p.Expires.Unix())
	}
	if p.Created != nil && p.Created.Unix() > now.Add(v.config.clockSkew).Unix() {
		return fmt.Errorf("%w: created at %d", ErrNotYetValid, p.Created.Unix())
	}
	return nil
}
