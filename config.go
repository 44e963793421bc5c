package httpsig

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultClockSkew is the tolerance applied to the created parameter of received signatures.
const DefaultClockSkew = 30 * time.Second

// SignConfig contains additional configuration for the signer.
type SignConfig struct {
	signCreated bool
	expiresIn   time.Duration
	fakeCreated int64
	now         func() time.Time
}

// NewSignConfig generates a default configuration: no created or expires parameters.
func NewSignConfig() *SignConfig {
	return &SignConfig{
		signCreated: false,
		expiresIn:   0,
		fakeCreated: 0,
		now:         time.Now,
	}
}

// SetCreated indicates whether the created parameter is added to signatures. Cover the (created)
// pseudo-header to protect its value.
func (c *SignConfig) SetCreated(b bool) *SignConfig {
	c.signCreated = b
	return c
}

// SetExpiresIn adds an expires parameter, d after signing time. Zero disables it.
func (c *SignConfig) SetExpiresIn(d time.Duration) *SignConfig {
	c.expiresIn = d
	return c
}

// setFakeCreated is for testing only
func (c *SignConfig) setFakeCreated(ts int64) *SignConfig {
	c.fakeCreated = ts
	return c
}

func (c *SignConfig) signingTime() time.Time {
	if c.fakeCreated != 0 {
		return time.Unix(c.fakeCreated, 0)
	}
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

// VerifyConfig contains additional configuration for the verifier.
type VerifyConfig struct {
	clockSkew time.Duration
	now       func() time.Time
}

// NewVerifyConfig generates a default configuration, with a clock skew of DefaultClockSkew.
func NewVerifyConfig() *VerifyConfig {
	return &VerifyConfig{
		clockSkew: DefaultClockSkew,
		now:       time.Now,
	}
}

// SetClockSkew sets how far in the future the created parameter may be.
func (c *VerifyConfig) SetClockSkew(d time.Duration) *VerifyConfig {
	c.clockSkew = d
	return c
}

// setNow is for testing only
func (c *VerifyConfig) setNow(now func() time.Time) *VerifyConfig {
	c.now = now
	return c
}

func (c *VerifyConfig) currentTime() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

// HandlerConfig contains additional configuration for the HTTP message handler wrapper.
// Request verification is on by default, response signing is off.
type HandlerConfig struct {
	verifyRequest   bool
	signResponse    bool
	verifier        *Verifier
	requiredHeaders Fields
	requireDigest   bool
	realm           string
	reqNotVerified  func(w http.ResponseWriter, r *http.Request, err error)
	fetchSigner     func(res http.Response, r *http.Request) *Signer
	logger          *logrus.Logger
}

// NewHandlerConfig generates a default configuration. When verification is enabled,
// the client should also provide a verifier.
func NewHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		verifyRequest: true,
		signResponse:  false,
		realm:         "httpsig",
		logger:        logrus.StandardLogger(),
	}
}

// SetVerifyRequest indicates that all incoming requests should be verified.
func (h *HandlerConfig) SetVerifyRequest(b bool) *HandlerConfig {
	h.verifyRequest = b
	return h
}

// SetSignResponse indicates that all HTTP responses should be signed.
func (h *HandlerConfig) SetSignResponse(b bool) *HandlerConfig {
	h.signResponse = b
	return h
}

// SetVerifier sets the verifier for incoming requests.
func (h *HandlerConfig) SetVerifier(v *Verifier) *HandlerConfig {
	h.verifier = v
	return h
}

// SetRequiredHeaders sets the headers that every accepted signature must cover,
// e.g. Headers("(request-target)", "date", "digest").
func (h *HandlerConfig) SetRequiredHeaders(fs Fields) *HandlerConfig {
	h.requiredHeaders = fs
	return h
}

// SetRequireDigest requires the signature to cover a Digest or a Content-Digest header,
// and every covered digest header to match the request body.
func (h *HandlerConfig) SetRequireDigest(b bool) *HandlerConfig {
	h.requireDigest = b
	return h
}

// SetRealm sets the realm sent in WWW-Authenticate challenges.
func (h *HandlerConfig) SetRealm(realm string) *HandlerConfig {
	h.realm = realm
	return h
}

// SetReqNotVerified defines a callback to be called when a request fails to verify.
// The default callback sends a 401 status code with a challenge and no detail.
func (h *HandlerConfig) SetReqNotVerified(f func(w http.ResponseWriter, r *http.Request, err error)) *HandlerConfig {
	h.reqNotVerified = f
	return h
}

// SetFetchSigner defines a callback that looks at the outgoing response and provides
// a Signer structure.
func (h *HandlerConfig) SetFetchSigner(f func(res http.Response, r *http.Request) *Signer) *HandlerConfig {
	h.fetchSigner = f
	return h
}

// SetLogger sets the logger that receives rejection details.
func (h *HandlerConfig) SetLogger(l *logrus.Logger) *HandlerConfig {
	h.logger = l
	return h
}

// ClientConfig contains configuration for the HTTP client.
type ClientConfig struct {
	signer        *Signer
	authorization bool
	digest        bool
	contentDigest bool
	verifier      *Verifier
	logger        *logrus.Logger
}

// NewClientConfig returns a default configuration: requests are sent unsigned and
// responses are not verified.
func NewClientConfig() *ClientConfig {
	return &ClientConfig{
		logger: logrus.StandardLogger(),
	}
}

// SetSigner sets the signer for outgoing requests.
func (c *ClientConfig) SetSigner(s *Signer) *ClientConfig {
	c.signer = s
	return c
}

// SetAuthorization sends the signature as "Authorization: Signature ..." rather than
// as a Signature header.
func (c *ClientConfig) SetAuthorization(b bool) *ClientConfig {
	c.authorization = b
	return c
}

// SetDigest adds a Digest header with the SHA-256 of the request body before signing.
func (c *ClientConfig) SetDigest(b bool) *ClientConfig {
	c.digest = b
	return c
}

// SetContentDigest selects the Content-Digest header (RFC 9530) instead of Digest
// for the body digest. It implies SetDigest(true) when b is true.
func (c *ClientConfig) SetContentDigest(b bool) *ClientConfig {
	c.contentDigest = b
	if b {
		c.digest = true
	}
	return c
}

// SetVerifier sets a verifier for responses.
func (c *ClientConfig) SetVerifier(v *Verifier) *ClientConfig {
	c.verifier = v
	return c
}

// SetLogger sets the logger used for diagnostics.
func (c *ClientConfig) SetLogger(l *logrus.Logger) *ClientConfig {
	c.logger = l
	return c
}
