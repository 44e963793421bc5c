// Command httpsig signs and verifies HTTP requests from the command line, or runs a reverse proxy
// that only forwards requests with a valid signature.
//
// Configuration comes from the environment:
//
//	HTTPSIG_MODE=sign    read a raw request on stdin, write it back with a signature added
//	HTTPSIG_MODE=verify  read a signed request on stdin, exit with status 1 if it is rejected
//	HTTPSIG_MODE=proxy   listen on PORT and forward verified requests to REMOTE_ADDRESS
package main

import (
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	log "github.com/sirupsen/logrus"
)

// Config is read from environment variables.
type Config struct {
	Mode string `env:"HTTPSIG_MODE" envDefault:"sign"`

	// Key material: either a keyring file, or a single key file (PEM or JWK) used with KeyID.
	Keyring   string `env:"HTTPSIG_KEYRING"`
	KeyFile   string `env:"HTTPSIG_KEY_FILE"`
	KeyID     string `env:"HTTPSIG_KEY_ID"`
	Algorithm string `env:"HTTPSIG_ALGORITHM"`

	// Space-separated header list to sign or to require. "*" signs every header.
	Headers string `env:"HTTPSIG_HEADERS" envDefault:"(request-target) host date"`
	// Signature or Authorization
	HeaderName string        `env:"HTTPSIG_HEADER_NAME" envDefault:"Signature"`
	Created    bool          `env:"HTTPSIG_CREATED"`
	ExpiresIn  time.Duration `env:"HTTPSIG_EXPIRES_IN"`
	ClockSkew  time.Duration `env:"HTTPSIG_CLOCK_SKEW" envDefault:"30s"`

	Port          int           `env:"PORT" envDefault:"3000"`
	RemoteAddress string        `env:"REMOTE_ADDRESS"`
	CacheTTL      time.Duration `env:"HTTPSIG_CACHE_TTL" envDefault:"5m"`
	Debug         bool          `env:"HTTPSIG_DEBUG"`
}

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("could not parse config: %s", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if err := run(&cfg, os.Stdin, os.Stdout, log.StandardLogger()); err != nil {
		log.WithError(err).Error("httpsig failed")
		os.Exit(1)
	}
}
