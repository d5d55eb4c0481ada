// Package config loads the environment configuration shared by the binaries.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"git.sr.ht/~jakintosh/fbgraph/pkg/auth"
	"git.sr.ht/~jakintosh/fbgraph/pkg/graph"
	"github.com/caarlos0/env/v11"
)

const Prefix = "FBGRAPH_"

var (
	ErrMissingCredentials = errors.New("app id and secret, or a credentials file, are required")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidSessionKey  = errors.New("session key must be 32 hex-encoded bytes")
)

type Config struct {
	AppID           string `env:"APP_ID"`
	AppSecret       string `env:"APP_SECRET"`
	CredentialsFile string `env:"CREDENTIALS_FILE"`

	Endpoint string        `env:"ENDPOINT" envDefault:"https://graph.facebook.com/v2.1/"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"15s"`

	// --- example server ---
	ListenAddr   string   `env:"LISTEN_ADDR" envDefault:":10000"`
	CanvasURL    string   `env:"CANVAS_URL"`
	Scope        []string `env:"SCOPE" envSeparator:","`
	SessionKey   string   `env:"SESSION_KEY"`
	InsecureHTTP bool     `env:"INSECURE_HTTP" envDefault:"false"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"error"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom reads the configuration from environment, as if each key were a
// process environment variable.
func LoadFrom(environment map[string]string) (*Config, error) {
	return parse(env.Options{
		Prefix:      Prefix,
		Environment: environment,
	})
}

func parse(opts env.Options) (*Config, error) {
	cfg := Config{}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, err
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(c *Config) error {
	if c.CredentialsFile == "" && (c.AppID == "" || c.AppSecret == "") {
		return ErrMissingCredentials
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.SessionKey != "" {
		if _, err := c.SessionKeyBytes(); err != nil {
			return err
		}
	}
	return nil
}

// GraphOptions returns the client options described by the configuration.
func (c *Config) GraphOptions() []graph.Option {
	return []graph.Option{
		graph.WithEndpoint(c.Endpoint),
		graph.WithTimeout(c.Timeout),
	}
}

// SessionKeyBytes decodes SessionKey.
func (c *Config) SessionKeyBytes() ([]byte, error) {
	key, err := hex.DecodeString(c.SessionKey)
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidSessionKey
	}
	return key, nil
}

func ParseLogLevel(level string) (auth.LogLevel, error) {
	switch strings.ToLower(level) {
	case "none":
		return auth.LogLevelNone, nil
	case "error", "":
		return auth.LogLevelError, nil
	case "info":
		return auth.LogLevelInfo, nil
	case "debug":
		return auth.LogLevelDebug, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, level)
	}
}
