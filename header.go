package httpsig

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Names of the header fields a signature is usually attached to.
const (
	SignatureHeader     = "Signature"
	AuthorizationHeader = "Authorization"
	authScheme          = "Signature"
)

// SignatureParams is the content of a signature header:
//
//	keyId="rsa-key-1",algorithm="rsa-sha256",headers="(request-target) host date",signature="Base64..."
type SignatureParams struct {
	KeyID     string
	Algorithm Algorithm // may be empty on received headers, the key's algorithm is used then
	Headers   Fields
	Signature []byte
	Created   *time.Time
	Expires   *time.Time
}

// ParseSignatureHeader parses the value of a Signature header. Unknown parameters are ignored.
// When the headers parameter is absent, the signature covers only (request-target).
func ParseSignatureHeader(raw string) (*SignatureParams, error) {
	return parseSignatureParams(raw)
}

// ParseAuthorizationHeader parses the value of an Authorization header that uses the Signature scheme.
func ParseAuthorizationHeader(raw string) (*SignatureParams, error) {
	scheme, params := splitAuthScheme(raw)
	if !strings.EqualFold(scheme, authScheme) || params == "" {
		return nil, fmt.Errorf("%w: authorization scheme is not \"%s\"", ErrMalformedHeader, authScheme)
	}
	return parseSignatureParams(params)
}

// splitAuthScheme splits an Authorization value into the scheme and the rest,
// at the first space or tab.
func splitAuthScheme(raw string) (scheme, params string) {
	raw = strings.TrimLeft(raw, " \t")
	i := strings.IndexAny(raw, " \t")
	if i < 0 {
		return raw, ""
	}
	return raw[:i], raw[i+1:]
}

func malformed(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedHeader, fmt.Sprintf(format, a...))
}

func isTokenChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_' || c == '.'
}

type paramScanner struct {
	s   string
	pos int
}

func (sc *paramScanner) skipOWS() {
	for sc.pos < len(sc.s) && (sc.s[sc.pos] == ' ' || sc.s[sc.pos] == '\t') {
		sc.pos++
	}
}

func (sc *paramScanner) done() bool {
	return sc.pos >= len(sc.s)
}

func (sc *paramScanner) token() string {
	start := sc.pos
	for sc.pos < len(sc.s) && isTokenChar(sc.s[sc.pos]) {
		sc.pos++
	}
	return sc.s[start:sc.pos]
}

// quoted reads an HTTP quoted-string; the scanner is positioned on the opening quote.
func (sc *paramScanner) quoted() (string, error) {
	sc.pos++
	var sb strings.Builder
	for sc.pos < len(sc.s) {
		c := sc.s[sc.pos]
		switch c {
		case '"':
			sc.pos++
			return sb.String(), nil
		case '\\':
			if sc.pos+1 >= len(sc.s) {
				return "", malformed("unterminated escape at position %d", sc.pos)
			}
			sb.WriteByte(sc.s[sc.pos+1])
			sc.pos += 2
		default:
			sb.WriteByte(c)
			sc.pos++
		}
	}
	return "", malformed("unterminated quoted string")
}

var knownParams = map[string]bool{
	"keyid": true, "algorithm": true, "headers": true, "signature": true, "created": true, "expires": true,
}

func parseSignatureParams(raw string) (*SignatureParams, error) {
	p := &SignatureParams{}
	seen := map[string]bool{}
	sc := &paramScanner{s: raw}
	for {
		sc.skipOWS()
		if sc.done() {
			break
		}
		if sc.s[sc.pos] == ',' { // empty list element
			sc.pos++
			continue
		}
		key := sc.token()
		if key == "" {
			return nil, malformed("unexpected character at position %d", sc.pos)
		}
		sc.skipOWS()
		if sc.done() || sc.s[sc.pos] != '=' {
			return nil, malformed("expected '=' after \"%s\"", key)
		}
		sc.pos++
		sc.skipOWS()
		var value string
		if !sc.done() && sc.s[sc.pos] == '"' {
			v, err := sc.quoted()
			if err != nil {
				return nil, err
			}
			value = v
		} else {
			value = sc.token()
			if value == "" {
				return nil, malformed("unexpected value for \"%s\" at position %d", key, sc.pos)
			}
		}
		sc.skipOWS()
		if !sc.done() {
			if sc.s[sc.pos] != ',' {
				return nil, malformed("expected ',' at position %d", sc.pos)
			}
			sc.pos++
		}
		name := strings.ToLower(key)
		if !knownParams[name] {
			continue // e.g. "extensions", may repeat
		}
		if seen[name] {
			return nil, malformed("duplicate parameter \"%s\"", key)
		}
		seen[name] = true
		if err := p.set(name, value); err != nil {
			return nil, err
		}
	}
	if p.KeyID == "" {
		return nil, malformed("missing keyId")
	}
	if len(p.Signature) == 0 {
		return nil, malformed("missing signature")
	}
	if !seen["headers"] {
		p.Headers = Fields{RequestTarget}
	}
	return p, nil
}

func (p *SignatureParams) set(name, value string) error {
	switch name {
	case "keyid":
		p.KeyID = value
	case "algorithm":
		p.Algorithm = Algorithm(value)
	case "headers":
		fs := ParseFields(value)
		if err := fs.validate(); err != nil {
			return malformed("headers: %v", err)
		}
		p.Headers = fs
	case "signature":
		sig, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return malformed("signature: %v", err)
		}
		p.Signature = sig
	case "created", "expires":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return malformed("%s is not an integer", name)
		}
		t := time.Unix(n, 0)
		if name == "created" {
			p.Created = &t
		} else {
			p.Expires = &t
		}
	}
	return nil
}

func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}

// String serializes the parameters in a fixed order: keyId, algorithm, headers, created, expires, signature.
func (p *SignatureParams) String() string {
	parts := make([]string, 0, 6)
	parts = append(parts, "keyId="+quote(p.KeyID))
	if p.Algorithm != "" {
		parts = append(parts, "algorithm="+quote(p.Algorithm.String()))
	}
	if len(p.Headers) > 0 {
		parts = append(parts, "headers="+quote(p.Headers.String()))
	}
	if p.Created != nil {
		parts = append(parts, "created="+quote(strconv.FormatInt(p.Created.Unix(), 10)))
	}
	if p.Expires != nil {
		parts = append(parts, "expires="+quote(strconv.FormatInt(p.Expires.Unix(), 10)))
	}
	parts = append(parts, "signature="+quote(base64.StdEncoding.EncodeToString(p.Signature)))
	return strings.Join(parts, ",")
}

// AuthorizationHeader serializes the parameters as an Authorization header value.
func (p *SignatureParams) AuthorizationHeader() string {
	return authScheme + " " + p.String()
}
