package httpsig

import (
	"errors"
	"fmt"
)

// Errors returned when a signature is built or checked. Callers should match them with errors.Is,
// since most of them are wrapped with a detail message.
var (
	// ErrMalformedHeader is returned when a signature header cannot be parsed.
	ErrMalformedHeader = errors.New("httpsig: malformed signature header")

	// ErrUnsupportedAlgorithm is returned for an algorithm token that has no provider.
	ErrUnsupportedAlgorithm = errors.New("httpsig: unsupported algorithm")

	// ErrKeyAlgorithmMismatch is returned when key material is tagged with a different
	// algorithm than the one requested.
	ErrKeyAlgorithmMismatch = errors.New("httpsig: key algorithm mismatch")

	// ErrMissingHeader is returned when a covered header is absent from the message.
	ErrMissingHeader = errors.New("httpsig: missing header")

	// ErrKeyNotFound is returned, or expected from a KeyResolver, when no key matches the key ID.
	ErrKeyNotFound = errors.New("httpsig: key not found")

	// ErrKeyResolutionFailed is returned when the KeyResolver failed for any other reason.
	ErrKeyResolutionFailed = errors.New("httpsig: key resolution failed")

	// ErrSignatureMismatch is returned when the signature does not match the signing string.
	ErrSignatureMismatch = errors.New("httpsig: signature mismatch")

	// ErrExpired is returned when the expires parameter is in the past.
	ErrExpired = errors.New("httpsig: signature expired")

	// ErrNotYetValid is returned when the created parameter is in the future.
	ErrNotYetValid = errors.New("httpsig: signature not yet valid")

	// ErrInvalidConfiguration is returned for unusable settings, e.g. an empty header list.
	ErrInvalidConfiguration = errors.New("httpsig: invalid configuration")

	// ErrInvalidKey is returned when key material is nil, too short or of the wrong kind.
	ErrInvalidKey = errors.New("httpsig: invalid key material")
)

var reasons = []struct {
	err  error
	name string
}{
	{ErrMalformedHeader, "MalformedHeader"},
	{ErrUnsupportedAlgorithm, "UnsupportedAlgorithm"},
	{ErrKeyAlgorithmMismatch, "KeyAlgorithmMismatch"},
	{ErrMissingHeader, "MissingHeader"},
	{ErrKeyNotFound, "KeyNotFound"},
	{ErrKeyResolutionFailed, "KeyResolutionFailed"},
	{ErrSignatureMismatch, "SignatureMismatch"},
	{ErrExpired, "Expired"},
	{ErrNotYetValid, "NotYetValid"},
	{ErrInvalidConfiguration, "InvalidConfiguration"},
	{ErrInvalidKey, "InvalidKey"},
	{ErrDigestMismatch, "DigestMismatch"},
}

// ReasonOf returns a short name for the failure carried by err, e.g. "MissingHeader",
// suitable for logs and metrics. It returns "" for nil and "Unknown" for foreign errors.
func ReasonOf(err error) string {
	if err == nil {
		return ""
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.name
		}
	}
	return "Unknown"
}

// State is a step of signature verification.
type State int

const (
	StateParsed State = iota + 1
	StateHeadersResolved
	StateStringReconstructed
	StateAlgorithmChecked
	StateFreshnessChecked
	StateAccepted
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateParsed:
		return "Parsed"
	case StateHeadersResolved:
		return "HeadersResolved"
	case StateStringReconstructed:
		return "StringReconstructed"
	case StateAlgorithmChecked:
		return "AlgorithmChecked"
	case StateFreshnessChecked:
		return "FreshnessChecked"
	case StateAccepted:
		return "Accepted"
	case StateRejected:
		return "Rejected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// RejectionError is returned by Verifier.Verify. State is the step that failed to complete.
// All rejections are final, no reason is weaker than another.
type RejectionError struct {
	State State
	Err   error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("signature rejected at %s: %v", e.State, e.Err)
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

func reject(state State, err error) error {
	return &RejectionError{State: state, Err: err}
}
