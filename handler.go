package httpsig

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// WrapHandler wraps a server's HTTP request handler so that the incoming request is verified
// and the response is signed. Both operations are optional. If config is nil, the default
// configuration is applied: requests are verified (and fail, as there is no verifier)
// and responses are not signed.
// A rejected request gets a 401 response carrying no detail; the reason goes to the configured logger.
func WrapHandler(h http.Handler, config *HandlerConfig) http.Handler {
	if config == nil {
		config = NewHandlerConfig()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if config.verifyRequest {
			if !verifyServerRequest(w, r, config) {
				return
			}
		}
		wrapped := newWrappedResponseWriter(w, r, config) // and this includes response signature
		h.ServeHTTP(wrapped, r)
		if !wrapped.wroteBody { // Body-less responses are rare but possible
			if config.signResponse {
				if signServerResponse(wrapped, r, config) {
					wrapped.ResponseWriter.WriteHeader(wrapped.statusOrOK())
				}
			} else if wrapped.wroteHeader {
				wrapped.ResponseWriter.WriteHeader(wrapped.status)
			}
		}
	})
}

func handlerLogger(config *HandlerConfig) *logrus.Logger {
	if config.logger == nil {
		return logrus.StandardLogger()
	}
	return config.logger
}

func verifyServerRequest(w http.ResponseWriter, r *http.Request, config *HandlerConfig) bool {
	notVerified := config.reqNotVerified
	if notVerified == nil {
		notVerified = challenge(config)
	}
	err := checkServerRequest(r, config)
	if err != nil {
		handlerLogger(config).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"reason": ReasonOf(err),
		}).WithError(err).Info("request signature rejected")
		notVerified(w, r, err)
		return false
	}
	return true
}

func checkServerRequest(r *http.Request, config *HandlerConfig) error {
	if config.verifier == nil {
		return fmt.Errorf("%w: no verifier configured", ErrInvalidConfiguration)
	}
	verified, err := VerifyRequest(r, config.verifier)
	if err != nil {
		return err
	}
	if !verified.Headers.Contains(config.requiredHeaders) {
		return reject(StateRejected, fmt.Errorf("%w: signature does not cover all of \"%s\"",
			ErrMissingHeader, config.requiredHeaders))
	}
	if config.requireDigest {
		if err := checkBodyDigest(r, verified.Headers); err != nil {
			return err
		}
	}
	handlerLogger(config).WithFields(logrus.Fields{
		"key_id":  verified.KeyID,
		"headers": verified.Headers.String(),
	}).Debug("request signature accepted")
	return nil
}

// Schemes a received Content-Digest header may use.
var acceptedDigestSchemes = []string{DigestSha256, DigestSha512}

// checkBodyDigest validates the body against every digest header the signature covers,
// Digest (RFC 3230) and Content-Digest (RFC 9530). At least one of them must be covered.
func checkBodyDigest(r *http.Request, covered Fields) error {
	var checked bool
	if covered.Contains(Headers("digest")) {
		if err := ValidateDigestHeader(r.Header.Values(DigestHeader), &r.Body); err != nil {
			return err
		}
		checked = true
	}
	if covered.Contains(Headers("content-digest")) {
		err := ValidateContentDigestHeader(r.Header.Values(ContentDigestHeader), &r.Body, acceptedDigestSchemes)
		if err != nil {
			return err
		}
		checked = true
	}
	if !checked {
		return reject(StateRejected, fmt.Errorf("%w: signature covers neither digest nor content-digest", ErrMissingHeader))
	}
	return nil
}

// challenge returns the default rejection callback: 401 with a WWW-Authenticate challenge.
func challenge(config *HandlerConfig) func(w http.ResponseWriter, r *http.Request, err error) {
	value := authScheme + " realm=" + quote(config.realm)
	if len(config.requiredHeaders) > 0 {
		value += ",headers=" + quote(config.requiredHeaders.String())
	}
	return func(w http.ResponseWriter, _ *http.Request, _ error) {
		w.Header().Set("WWW-Authenticate", value)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	}
}

// This error case is not optional, as it's always a server bug
func sigFailed(w http.ResponseWriter, _ *http.Request, err error) {
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = fmt.Fprintln(w, "Failed to sign response: "+err.Error())
}

// This needs to happen exactly at the point when the response headers (other than status!) had been written,
// but not yet the body, so that signature headers can be added.
func signServerResponse(wrapped *wrappedResponseWriter, r *http.Request, config *HandlerConfig) (success bool) {
	if wrapped.Header().Get("Date") == "" {
		wrapped.Header().Set("Date", time.Now().UTC().Format(http.TimeFormat))
	}
	status := wrapped.statusOrOK()
	response := http.Response{
		Status:     strconv.Itoa(status),
		StatusCode: status,
		Proto:      r.Proto,
		ProtoMajor: r.ProtoMajor,
		ProtoMinor: r.ProtoMinor,
		Header:     wrapped.Header(),
		Request:    r,
	}
	if config.fetchSigner == nil {
		sigFailed(wrapped.ResponseWriter, r, fmt.Errorf("could not fetch a signer"))
		return false
	}
	signer := config.fetchSigner(response, r)
	if signer == nil {
		sigFailed(wrapped.ResponseWriter, r, fmt.Errorf("could not fetch a signer, check key ID"))
		return false
	}
	if err := SignResponse(&response, signer); err != nil {
		handlerLogger(config).WithError(err).Error("failed to sign response")
		sigFailed(wrapped.ResponseWriter, r, fmt.Errorf("failed to sign the response: %w", err))
		return false
	}
	return true
}

type wrappedResponseWriter struct {
	http.ResponseWriter
	status       int
	wroteHeader  bool
	wroteBody    bool
	ignoreWrites bool
	config       *HandlerConfig
	r            *http.Request
}

func newWrappedResponseWriter(w http.ResponseWriter, r *http.Request, config *HandlerConfig) *wrappedResponseWriter {
	return &wrappedResponseWriter{ResponseWriter: w, r: r, config: config}
}

func (w *wrappedResponseWriter) statusOrOK() int {
	if !w.wroteHeader {
		return http.StatusOK
	}
	return w.status
}

func (w *wrappedResponseWriter) Write(p []byte) (n int, err error) {
	if !w.wroteBody {
		w.wroteBody = true
		if w.config.signResponse {
			if !signServerResponse(w, w.r, w.config) {
				w.ignoreWrites = true
				return 0, fmt.Errorf("failed to sign response headers")
			}
		}
		w.ResponseWriter.WriteHeader(w.statusOrOK())
		w.wroteHeader = true
	}
	if !w.ignoreWrites {
		return w.ResponseWriter.Write(p)
	}
	return len(p), nil // write is silently ignored
}

// WriteHeader is delayed until the first Write, so that handlers may still set headers
// that the response signature covers.
func (w *wrappedResponseWriter) WriteHeader(code int) {
	w.status = code
	w.wroteHeader = true
}
