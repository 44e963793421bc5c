package httpsig

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dunglas/httpsfv"
)

// Constants define the hash algorithm to be used for the digest. The Digest header (RFC 3230)
// uses the upper-case names, the Content-Digest header (RFC 9530) the lower-case ones.
const (
	DigestSha256 = "sha-256"
	DigestSha512 = "sha-512"
)

// Header names for body digests.
const (
	DigestHeader        = "Digest"
	ContentDigestHeader = "Content-Digest"
)

// ErrDigestMismatch is returned when a body digest does not match the body.
var ErrDigestMismatch = errors.New("httpsig: digest mismatch")

var errUnknownDigestScheme = fmt.Errorf("unknown digest scheme")

// GenerateDigestHeader generates the value of a Digest header, e.g. "SHA-256=X48E9q...",
// for the given scheme(s) (DigestSha256 and DigestSha512).
// Side effect: the message body is fully read, and replaced by a static buffer
// containing the body contents.
func GenerateDigestHeader(body *io.ReadCloser, schemes ...string) (string, error) {
	if len(schemes) == 0 {
		return "", fmt.Errorf("received empty list of digest schemes")
	}
	if err := validateSchemes(schemes); err != nil {
		return "", err
	}
	buff, err := duplicateBody(body)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(schemes))
	for _, scheme := range schemes {
		raw, err := rawDigest(buff.Bytes(), scheme)
		if err != nil {
			return "", err
		}
		parts = append(parts, strings.ToUpper(scheme)+"="+base64.StdEncoding.EncodeToString(raw))
	}
	return strings.Join(parts, ","), nil
}

// ValidateDigestHeader validates the Digest header values against the body: at least one
// known scheme must be present, and every known scheme must match. Unknown schemes are ignored.
// "received" is typically retrieved through the "Values" method of the header.
func ValidateDigestHeader(received []string, body *io.ReadCloser) error {
	if len(received) == 0 {
		return fmt.Errorf("%w: no Digest header", ErrMissingHeader)
	}
	buff, err := duplicateBody(body)
	if err != nil {
		return err
	}
	var found bool
	for _, line := range received {
		for _, item := range strings.Split(line, ",") {
			scheme, value, ok := strings.Cut(strings.TrimSpace(item), "=")
			if !ok {
				return fmt.Errorf("%w: malformed Digest header", ErrDigestMismatch)
			}
			raw, err := rawDigest(buff.Bytes(), strings.ToLower(scheme))
			if errors.Is(err, errUnknownDigestScheme) {
				continue
			}
			got, err := base64.StdEncoding.DecodeString(value)
			if err != nil {
				return fmt.Errorf("%w: bad base64 for %s", ErrDigestMismatch, scheme)
			}
			if !bytes.Equal(raw, got) {
				return fmt.Errorf("%w: scheme %s", ErrDigestMismatch, scheme)
			}
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: no known scheme in Digest header", ErrDigestMismatch)
	}
	return nil
}

// GenerateContentDigestHeader generates a Content-Digest header value, a structured-field
// dictionary of the message body digests according to the given scheme(s).
// Side effect: the message body is fully read, and replaced by a static buffer
// containing the body contents.
func GenerateContentDigestHeader(body *io.ReadCloser, schemes []string) (string, error) {
	if len(schemes) == 0 {
		return "", fmt.Errorf("received empty list of digest schemes")
	}
	err := validateSchemes(schemes)
	if err != nil {
		return "", err
	}
	buff, err := duplicateBody(body)
	if err != nil {
		return "", err
	}
	dict := httpsfv.NewDictionary()
	for _, scheme := range schemes {
		raw, err := rawDigest(buff.Bytes(), scheme)
		if err != nil { // When sending, must recognize all schemes
			return "", err
		}
		i := httpsfv.NewItem(raw)
		dict.Add(scheme, httpsfv.Member(i))
	}
	return httpsfv.Marshal(dict)
}

// ValidateContentDigestHeader validates that the Content-Digest header complies to policy: at least
// one of the "accepted" schemes is used, and all known schemes are associated with a correct
// digest of the message body. Returns nil if validation is successful.
func ValidateContentDigestHeader(received []string, body *io.ReadCloser, accepted []string) error {
	if len(accepted) == 0 {
		return fmt.Errorf("received an empty list of acceptable digest schemes")
	}
	err := validateSchemes(accepted)
	if err != nil {
		return err
	}
	receivedDict, err := httpsfv.UnmarshalDictionary(received)
	if err != nil {
		return fmt.Errorf("%w: received Content-Digest header: %v", ErrDigestMismatch, err)
	}
	buff, err := duplicateBody(body)
	if err != nil {
		return err
	}
	var ok bool
found:
	for _, a := range accepted {
		for _, r := range receivedDict.Names() {
			if a == r {
				ok = true
				break found
			}
		}
	}
	if !ok {
		return fmt.Errorf("%w: no acceptable digest scheme found in Content-Digest header", ErrDigestMismatch)
	}
	// But regardless of the list of accepted schemes, all included digest values (if recognized) must be correct
	for _, scheme := range receivedDict.Names() {
		raw, err := rawDigest(buff.Bytes(), scheme)
		if errors.Is(err, errUnknownDigestScheme) {
			continue // unknown schemes are ignored
		} else if err != nil {
			return err
		}
		m, _ := receivedDict.Get(scheme)
		i, ok := m.(httpsfv.Item)
		if !ok {
			return fmt.Errorf("%w: received Content-Digest header is malformed", ErrDigestMismatch)
		}
		b, ok := i.Value.([]byte)
		if !ok {
			return fmt.Errorf("%w: non-byte string in received Content-Digest header", ErrDigestMismatch)
		}
		if !bytes.Equal(raw, b) {
			return fmt.Errorf("%w: scheme %s", ErrDigestMismatch, scheme)
		}
	}
	return nil
}

func duplicateBody(body *io.ReadCloser) (*bytes.Buffer, error) {
	buff := &bytes.Buffer{}
	if body != nil && *body != nil {
		_, err := buff.ReadFrom(*body)
		if err != nil {
			return nil, err
		}

		_ = (*body).Close()

		*body = io.NopCloser(bytes.NewReader(buff.Bytes()))
	}
	return buff, nil
}

func rawDigest(b []byte, scheme string) ([]byte, error) {
	switch scheme {
	case DigestSha256:
		s := sha256.Sum256(b)
		return s[:], nil
	case DigestSha512:
		s := sha512.Sum512(b)
		return s[:], nil
	default:
		return nil, errUnknownDigestScheme
	}
}

func validateSchemes(schemes []string) error {
	valid := map[string]bool{DigestSha256: true, DigestSha512: true}
	for _, s := range schemes {
		if !valid[s] {
			return fmt.Errorf("invalid scheme: %s", s)
		}
	}
	return nil
}
