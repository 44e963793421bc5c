package main

import (
	"bytes"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaronf/httpsig"
	"github.com/yaronf/httpsig/keyring"
)

const rawRequest = "POST /foo?param=value&pet=dog HTTP/1.1\r\n" +
	"Host: example.com\r\n" +
	"Date: Sun, 05 Jan 2014 21:31:40 GMT\r\n" +
	"Content-Type: application/json\r\n" +
	"Content-Length: 18\r\n" +
	"\r\n" +
	"{\"hello\": \"world\"}"

var secret = []byte("an hmac secret that is long enough!!")

func writeKeyring(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keyring.yaml")
	data := "keys:\n  - key_id: hmac-key-1\n    algorithm: hmac-sha256\n    secret: " +
		base64.StdEncoding.EncodeToString(secret) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func testConfig(mode, keyringPath string) *Config {
	return &Config{
		Mode:       mode,
		Keyring:    keyringPath,
		KeyID:      "hmac-key-1",
		Headers:    "(request-target) host date content-type",
		HeaderName: "Signature",
		ClockSkew:  httpsig.DefaultClockSkew,
		CacheTTL:   time.Minute,
	}
}

func testLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSignThenVerify(t *testing.T) {
	tests := []struct {
		name       string
		headerName string
		headers    string
		wantHeader string
	}{
		{
			name:       "signature header",
			headerName: "Signature",
			headers:    "(request-target) host date content-type",
			wantHeader: "Signature: keyId=\"hmac-key-1\",algorithm=\"hmac-sha256\",headers=\"(request-target) host date content-type\",signature=",
		},
		{
			name:       "authorization header",
			headerName: "Authorization",
			headers:    "(request-target) host date",
			wantHeader: "Authorization: Signature keyId=\"hmac-key-1\"",
		},
		{
			name:       "all headers",
			headerName: "Signature",
			headers:    "*",
			wantHeader: "headers=\"(request-target) content-length content-type date host\"",
		},
	}
	path := writeKeyring(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("sign", path)
			cfg.HeaderName = tt.headerName
			cfg.Headers = tt.headers
			signed := &bytes.Buffer{}
			require.NoError(t, run(cfg, strings.NewReader(rawRequest), signed, testLogger()))
			assert.Contains(t, signed.String(), tt.wantHeader)

			cfg.Mode = "verify"
			out := &bytes.Buffer{}
			require.NoError(t, run(cfg, bytes.NewReader(signed.Bytes()), out, testLogger()))
			assert.True(t, strings.HasPrefix(out.String(), "accepted key_id=hmac-key-1 algorithm=hmac-sha256"), out.String())
		})
	}
}

func TestVerifyRejects(t *testing.T) {
	path := writeKeyring(t)
	signed := &bytes.Buffer{}
	require.NoError(t, run(testConfig("sign", path), strings.NewReader(rawRequest), signed, testLogger()))

	tampered := strings.Replace(signed.String(), "Sun, 05 Jan 2014", "Mon, 06 Jan 2014", 1)
	err := run(testConfig("verify", path), strings.NewReader(tampered), io.Discard, testLogger())
	assert.ErrorIs(t, err, httpsig.ErrSignatureMismatch)

	// the verifier may require more than was signed
	cfg := testConfig("verify", path)
	cfg.Headers = "(request-target) host date digest"
	err = run(cfg, bytes.NewReader(signed.Bytes()), io.Discard, testLogger())
	assert.ErrorIs(t, err, httpsig.ErrMissingHeader)

	err = run(testConfig("verify", path), strings.NewReader(rawRequest), io.Discard, testLogger())
	assert.ErrorIs(t, err, httpsig.ErrMalformedHeader)
}

func TestRunConfigErrors(t *testing.T) {
	path := writeKeyring(t)
	tests := []struct {
		name   string
		config func() *Config
	}{
		{"unknown mode", func() *Config { return testConfig("dance", path) }},
		{"no key id", func() *Config { c := testConfig("sign", path); c.KeyID = ""; return c }},
		{"no key", func() *Config { c := testConfig("sign", ""); return c }},
		{"unknown key id", func() *Config { c := testConfig("sign", path); c.KeyID = "other"; return c }},
		{"proxy without remote", func() *Config { return testConfig("proxy", path) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(tt.config(), strings.NewReader(rawRequest), io.Discard, testLogger())
			assert.Error(t, err)
		})
	}
}

func TestProxy(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "hello from "+r.URL.Path)
	}))
	defer backend.Close()

	path := writeKeyring(t)
	cfg := testConfig("proxy", path)
	cfg.Headers = "(request-target) date"
	cfg.RemoteAddress = backend.URL
	handler, err := newProxy(cfg, testLogger())
	require.NoError(t, err)
	proxy := httptest.NewServer(handler)
	defer proxy.Close()

	kr, err := keyring.Load(path)
	require.NoError(t, err)
	key, err := kr.SigningKey("hmac-key-1")
	require.NoError(t, err)
	signer, err := httpsig.NewSigner("hmac-key-1", key, nil, httpsig.Headers("(request-target)", "date"))
	require.NoError(t, err)

	req, err := http.NewRequest("GET", proxy.URL+"/greeting", nil)
	require.NoError(t, err)
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	require.NoError(t, httpsig.SignRequest(req, signer))
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	_ = res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "hello from /greeting", string(body))

	res, err = http.Get(proxy.URL + "/greeting")
	require.NoError(t, err)
	_ = res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "Signature realm=\"httpsig\",headers=\"(request-target) date\"", res.Header.Get("WWW-Authenticate"))
}
