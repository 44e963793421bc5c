package httpsig

import (
	"fmt"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Pseudo-headers that may appear in a header list next to real header names.
const (
	RequestTarget = "(request-target)"
	Created       = "(created)"
	Expires       = "(expires)"
)

// Fields is an ordered list of the header names covered by a signature. To initialize, use Headers.
// Order matters: the signing string has one line per name, in list order.
type Fields []string

// Headers is a simple way to generate a Fields list. Names are lowercased.
func Headers(hs ...string) Fields {
	fs := make(Fields, 0, len(hs))
	return fs.AddHeaders(hs...)
}

// AddHeaders returns the list with the given header names appended
func (fs Fields) AddHeaders(hs ...string) Fields {
	for _, h := range hs {
		fs = append(fs, strings.ToLower(h))
	}
	return fs
}

// ParseFields splits the space-separated value of the "headers" parameter.
func ParseFields(s string) Fields {
	return Headers(strings.Fields(s)...)
}

// String returns the names separated by single spaces, as sent on the wire.
func (fs Fields) String() string {
	return strings.Join(fs, " ")
}

// Contains reports whether every one of the required names is in fs (yes, this is O(n^2)).
// Applications use it to enforce a minimum header set on verified signatures.
func (fs Fields) Contains(required Fields) bool {
outer:
	for _, f1 := range required {
		for _, f2 := range fs {
			if strings.EqualFold(f1, f2) {
				continue outer
			}
		}
		return false
	}
	return true
}

func isPseudoHeader(name string) bool {
	return name == RequestTarget || name == Created || name == Expires
}

func (fs Fields) validate() error {
	if len(fs) == 0 {
		return fmt.Errorf("%w: empty header list", ErrInvalidConfiguration)
	}
	for _, f := range fs {
		if isPseudoHeader(strings.ToLower(f)) {
			continue
		}
		if !httpguts.ValidHeaderFieldName(f) {
			return fmt.Errorf("%w: invalid header name \"%s\"", ErrInvalidConfiguration, f)
		}
	}
	return nil
}
