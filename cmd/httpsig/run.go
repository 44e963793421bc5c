package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/yaronf/httpsig"
	"github.com/yaronf/httpsig/keyring"
)

func run(cfg *Config, in io.Reader, out io.Writer, logger *log.Logger) error {
	switch cfg.Mode {
	case "sign":
		return signMode(cfg, in, out)
	case "verify":
		return verifyMode(cfg, in, out, logger)
	case "proxy":
		handler, err := newProxy(cfg, logger)
		if err != nil {
			return err
		}
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Infof("starting proxy on: %s", addr)
		return http.ListenAndServe(addr, handler)
	default:
		return fmt.Errorf("unknown mode \"%s\", expected sign, verify or proxy", cfg.Mode)
	}
}

func readRequest(in io.Reader) (*http.Request, error) {
	req, err := http.ReadRequest(bufio.NewReader(in))
	if err != nil {
		return nil, fmt.Errorf("could not read request: %w", err)
	}
	return req, nil
}

func fields(cfg *Config, req *http.Request) (httpsig.Fields, error) {
	if strings.TrimSpace(cfg.Headers) == "*" {
		msg, err := httpsig.NewRequestMessage(req)
		if err != nil {
			return nil, err
		}
		return msg.AllHeaders(), nil
	}
	return httpsig.ParseFields(cfg.Headers), nil
}

func signingKey(cfg *Config) (*httpsig.SigningKey, error) {
	if cfg.KeyID == "" {
		return nil, fmt.Errorf("HTTPSIG_KEY_ID is required for signing")
	}
	switch {
	case cfg.Keyring != "":
		kr, err := keyring.Load(cfg.Keyring)
		if err != nil {
			return nil, err
		}
		return kr.SigningKey(cfg.KeyID)
	case cfg.KeyFile != "":
		data, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, err
		}
		return httpsig.ParseSigningKey(data, httpsig.Algorithm(cfg.Algorithm))
	default:
		return nil, fmt.Errorf("one of HTTPSIG_KEYRING and HTTPSIG_KEY_FILE is required")
	}
}

func resolver(cfg *Config) (httpsig.KeyResolver, error) {
	switch {
	case cfg.Keyring != "":
		return keyring.Load(cfg.Keyring)
	case cfg.KeyFile != "":
		if cfg.KeyID == "" {
			return nil, fmt.Errorf("HTTPSIG_KEY_ID is required with HTTPSIG_KEY_FILE")
		}
		data, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, err
		}
		key, err := httpsig.ParseVerifyingKey(data, httpsig.Algorithm(cfg.Algorithm))
		if err != nil {
			return nil, err
		}
		return httpsig.KeyResolverFunc(func(_ context.Context, keyID string) (*httpsig.VerifyingKey, error) {
			if keyID != cfg.KeyID {
				return nil, fmt.Errorf("%w: \"%s\"", httpsig.ErrKeyNotFound, keyID)
			}
			return key, nil
		}), nil
	default:
		return nil, fmt.Errorf("one of HTTPSIG_KEYRING and HTTPSIG_KEY_FILE is required")
	}
}

func verifier(cfg *Config, r httpsig.KeyResolver) (*httpsig.Verifier, error) {
	return httpsig.NewVerifier(r, httpsig.NewVerifyConfig().SetClockSkew(cfg.ClockSkew))
}

func signMode(cfg *Config, in io.Reader, out io.Writer) error {
	req, err := readRequest(in)
	if err != nil {
		return err
	}
	key, err := signingKey(cfg)
	if err != nil {
		return err
	}
	fs, err := fields(cfg, req)
	if err != nil {
		return err
	}
	config := httpsig.NewSignConfig().SetCreated(cfg.Created).SetExpiresIn(cfg.ExpiresIn)
	signer, err := httpsig.NewSigner(cfg.KeyID, key, config, fs)
	if err != nil {
		return err
	}
	if strings.EqualFold(cfg.HeaderName, httpsig.AuthorizationHeader) {
		err = httpsig.AuthorizeRequest(req, signer)
	} else {
		err = httpsig.SignRequest(req, signer)
	}
	if err != nil {
		return err
	}
	return req.Write(out)
}

func verifyMode(cfg *Config, in io.Reader, out io.Writer, logger *log.Logger) error {
	req, err := readRequest(in)
	if err != nil {
		return err
	}
	r, err := resolver(cfg)
	if err != nil {
		return err
	}
	v, err := verifier(cfg, r)
	if err != nil {
		return err
	}
	verified, err := httpsig.VerifyRequest(req, v)
	if err == nil && strings.TrimSpace(cfg.Headers) != "*" {
		if required := httpsig.ParseFields(cfg.Headers); !verified.Headers.Contains(required) {
			err = fmt.Errorf("%w: signature does not cover \"%s\"", httpsig.ErrMissingHeader, required)
		}
	}
	if err != nil {
		entry := logger.WithField("reason", httpsig.ReasonOf(err))
		var rejection *httpsig.RejectionError
		if errors.As(err, &rejection) {
			entry = entry.WithField("state", rejection.State.String())
		}
		entry.WithError(err).Warn("signature rejected")
		return err
	}
	_, err = fmt.Fprintf(out, "accepted key_id=%s algorithm=%s headers=\"%s\"\n",
		verified.KeyID, verified.Algorithm, verified.Headers)
	return err
}

func newProxy(cfg *Config, logger *log.Logger) (http.Handler, error) {
	if cfg.RemoteAddress == "" {
		return nil, fmt.Errorf("REMOTE_ADDRESS is required in proxy mode")
	}
	remote, err := url.Parse(cfg.RemoteAddress)
	if err != nil {
		return nil, fmt.Errorf("could not parse REMOTE_ADDRESS: %w", err)
	}
	r, err := resolver(cfg)
	if err != nil {
		return nil, err
	}
	v, err := verifier(cfg, keyring.NewCache(r, cfg.CacheTTL))
	if err != nil {
		return nil, err
	}
	config := httpsig.NewHandlerConfig().
		SetVerifier(v).
		SetLogger(logger)
	if strings.TrimSpace(cfg.Headers) != "*" {
		config.SetRequiredHeaders(httpsig.ParseFields(cfg.Headers))
	}
	return httpsig.WrapHandler(httputil.NewSingleHostReverseProxy(remote), config), nil
}
