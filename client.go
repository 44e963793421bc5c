package httpsig

import (
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Client represents an HTTP client that optionally signs requests and optionally verifies responses.
// The client embeds an http.Client, which may be http.DefaultClient or any other.
type Client struct {
	config ClientConfig
	client http.Client
}

// NewClient constructs a new client, with the flexibility of including a custom http.Client.
// Config may be nil, in which case the client neither signs nor verifies.
func NewClient(client http.Client, config *ClientConfig) *Client {
	if config == nil {
		config = NewClientConfig()
	}
	return &Client{config: *config, client: client}
}

// NewDefaultClient constructs a new client, based on the http.DefaultClient.
func NewDefaultClient(config *ClientConfig) *Client {
	return NewClient(*http.DefaultClient, config)
}

func (c *Client) logger() *logrus.Logger {
	if c.config.logger == nil {
		return logrus.StandardLogger()
	}
	return c.config.logger
}

// Do sends an http.Request, with optional signing and/or verification. Errors may be produced by any of
// these operations.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("nil client")
	}
	if c.config.signer != nil {
		if req.Header == nil {
			req.Header = http.Header{}
		}
		if c.config.digest {
			if err := addDigest(req, c.config.contentDigest); err != nil {
				return nil, fmt.Errorf("failed to digest request body: %w", err)
			}
		}
		var err error
		if c.config.authorization {
			err = AuthorizeRequest(req, c.config.signer)
		} else {
			err = SignRequest(req, c.config.signer)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to sign request: %w", err)
		}
	}

	// Send the request, receive response
	res, err := c.client.Do(req)
	if err != nil {
		return res, err
	}

	if c.config.verifier != nil {
		if _, err := VerifyResponse(res, c.config.verifier); err != nil {
			c.logger().WithFields(logrus.Fields{
				"url":    req.URL.String(),
				"reason": ReasonOf(err),
			}).Warn("response signature rejected")
			_ = res.Body.Close()
			return nil, err
		}
	}
	return res, nil
}

func addDigest(req *http.Request, content bool) error {
	if content {
		digest, err := GenerateContentDigestHeader(&req.Body, []string{DigestSha256})
		if err != nil {
			return err
		}
		req.Header.Set(ContentDigestHeader, digest)
		return nil
	}
	digest, err := GenerateDigestHeader(&req.Body, DigestSha256)
	if err != nil {
		return err
	}
	req.Header.Set(DigestHeader, digest)
	return nil
}

// Get sends an HTTP GET, a wrapper for Do.
func (c *Client) Get(url string) (res *http.Response, err error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Head sends an HTTP HEAD, a wrapper for Do.
func (c *Client) Head(url string) (res *http.Response, err error) {
	req, err := http.NewRequest("HEAD", url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Post sends an HTTP POST, a wrapper for Do.
func (c *Client) Post(url, contentType string, body io.Reader) (res *http.Response, err error) {
	req, err := http.NewRequest("POST", url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return c.Do(req)
}
