package httpsig

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// NewRequestMessage returns a Message for an incoming or outgoing http.Request.
func NewRequestMessage(req *http.Request) (*Message, error) {
	if req == nil || req.URL == nil {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidConfiguration)
	}
	return NewMessage(NewMessageConfig().WithRequest(req))
}

// NewResponseMessage returns a Message for an http.Response.
func NewResponseMessage(res *http.Response) (*Message, error) {
	if res == nil {
		return nil, fmt.Errorf("%w: nil response", ErrInvalidConfiguration)
	}
	return NewMessage(NewMessageConfig().WithResponse(res))
}

func requestTarget(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.RequestURI()
}

func requestHeaders(req *http.Request) http.Header {
	header := req.Header
	if header == nil {
		header = http.Header{}
	}
	if req.Host != "" && header.Get("Host") == "" {
		header = header.Clone()
		header.Set("Host", req.Host)
	}
	return header
}

func validateMessageHeaders(header http.Header) error {
	// Go accepts header names such as "(request-target)", which would be confused with pseudo-headers
	for k := range header {
		if strings.HasPrefix(k, "(") {
			return fmt.Errorf("%w: potentially malicious header detected \"%s\"", ErrInvalidConfiguration, k)
		}
	}
	return nil
}
