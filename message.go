package httpsig

import (
	"fmt"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strings"
)

// RequestView is the read-only view of an HTTP-like message that signing and verification work on.
// Header lookup is case-insensitive and returns the values in the order they were received;
// an absent header yields no values.
// For a response, Method and Target return "".
type RequestView interface {
	Method() string
	Target() string
	Header(name string) []string
}

// Message is a RequestView over a method, a request target and a set of headers.
// The headers are borrowed, not copied: do not modify them while the Message is in use.
type Message struct {
	method  string
	target  string
	headers http.Header
}

// NewMessage constructs a new Message from the provided config.
func NewMessage(config *MessageConfig) (*Message, error) {
	if config == nil {
		config = NewMessageConfig()
	}
	if config.headers == nil {
		return nil, fmt.Errorf("%w: message must have headers", ErrInvalidConfiguration)
	}
	if config.method != "" && config.target == "" {
		return nil, fmt.Errorf("%w: request message must have a target", ErrInvalidConfiguration)
	}
	if config.method == "" && config.target != "" {
		return nil, fmt.Errorf("%w: request message must have a method", ErrInvalidConfiguration)
	}
	if err := validateMessageHeaders(config.headers); err != nil {
		return nil, err
	}
	return &Message{
		method:  config.method,
		target:  config.target,
		headers: config.headers,
	}, nil
}

// Method returns the request method as received, e.g. "GET".
func (m *Message) Method() string {
	return m.method
}

// Target returns the request path, including the query if any.
func (m *Message) Target() string {
	return m.target
}

// Header returns all values of the named header.
// Values stored under the canonical key come first, then those of keys that were set
// directly on the map with another case, in key order.
func (m *Message) Header(name string) []string {
	canonical := textproto.CanonicalMIMEHeaderKey(name)
	values := m.headers[canonical]
	var others []string
	for k := range m.headers {
		if k != canonical && strings.EqualFold(k, name) {
			others = append(others, k)
		}
	}
	if len(others) == 0 {
		return values
	}
	sort.Strings(others)
	merged := append([]string(nil), values...)
	for _, k := range others {
		merged = append(merged, m.headers[k]...)
	}
	return merged
}

// AllHeaders returns the header list that covers the whole message: the request target
// (for requests) followed by every header name, lowercased and sorted.
func (m *Message) AllHeaders() Fields {
	var fs Fields
	if m.method != "" {
		fs = append(fs, RequestTarget)
	}
	names := make([]string, 0, len(m.headers))
	seen := map[string]bool{}
	for k := range m.headers {
		n := strings.ToLower(k)
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return append(fs, names...)
}

// MessageConfig configures a Message.
type MessageConfig struct {
	method  string
	target  string
	headers http.Header
}

// NewMessageConfig returns a new MessageConfig.
func NewMessageConfig() *MessageConfig {
	return &MessageConfig{}
}

func (b *MessageConfig) WithMethod(method string) *MessageConfig {
	b.method = method
	return b
}

// WithTarget sets the request target, an escaped path with an optional "?query" suffix.
func (b *MessageConfig) WithTarget(target string) *MessageConfig {
	b.target = target
	return b
}

// WithURL sets the request target from the path and query of u.
func (b *MessageConfig) WithURL(u *url.URL) *MessageConfig {
	b.target = requestTarget(u)
	return b
}

func (b *MessageConfig) WithHeaders(headers http.Header) *MessageConfig {
	b.headers = headers
	return b
}

// WithRequest takes the method, target and headers from an http.Request.
// Host is not part of req.Header on the server side, so it is added back when missing.
func (b *MessageConfig) WithRequest(req *http.Request) *MessageConfig {
	if req == nil {
		return b
	}
	return b.
		WithMethod(req.Method).
		WithURL(req.URL).
		WithHeaders(requestHeaders(req))
}

// WithResponse takes the headers of an http.Response. Responses have no request target.
func (b *MessageConfig) WithResponse(res *http.Response) *MessageConfig {
	if res == nil {
		return b
	}
	b.method = ""
	b.target = ""
	return b.WithHeaders(res.Header)
}
