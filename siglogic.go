package httpsig

import (
	"fmt"
	"strconv"
	"strings"
)

// SigningString builds the string that is signed for the given message and header list.
// Each name produces one "name: value" line, lines are separated by "\n" with no trailing newline.
// Multiple values of one header are trimmed and joined with ", ". The (created) and (expires)
// pseudo-headers need signature parameters, so they are reported missing here; the Signer and
// Verifier render them.
func SigningString(view RequestView, fields Fields) (string, error) {
	return signingString(view, fields, nil)
}

func signingString(view RequestView, fields Fields, params *SignatureParams) (string, error) {
	if view == nil {
		return "", fmt.Errorf("%w: nil message", ErrInvalidConfiguration)
	}
	if err := fields.validate(); err != nil {
		return "", err
	}
	var sb strings.Builder
	for i, f := range fields {
		name := strings.ToLower(f)
		value, err := fieldValue(view, name, params)
		if err != nil {
			return "", err
		}
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(value)
	}
	return sb.String(), nil
}

func fieldValue(view RequestView, name string, params *SignatureParams) (string, error) {
	switch name {
	case RequestTarget:
		if view.Method() == "" {
			return "", fmt.Errorf("%w: %s (not a request)", ErrMissingHeader, name)
		}
		return strings.ToLower(view.Method()) + " " + view.Target(), nil
	case Created:
		if params == nil || params.Created == nil {
			return "", fmt.Errorf("%w: %s", ErrMissingHeader, name)
		}
		return strconv.FormatInt(params.Created.Unix(), 10), nil
	case Expires:
		if params == nil || params.Expires == nil {
			return "", fmt.Errorf("%w: %s", ErrMissingHeader, name)
		}
		return strconv.FormatInt(params.Expires.Unix(), 10), nil
	}
	values := view.Header(name)
	if len(values) == 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingHeader, name)
	}
	return foldValues(values), nil
}

func foldValues(values []string) string {
	ff := strings.TrimSpace(values[0])
	for i := 1; i < len(values); i++ {
		ff += ", " + strings.TrimSpace(values[i])
	}
	return ff
}
