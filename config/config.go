package config

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"time"

	"github.com/jonwraymond/draftops/auth"
	"github.com/jonwraymond/draftops/keyed"
	"github.com/jonwraymond/draftops/observe"
	"github.com/jonwraymond/draftops/resilience"
	"github.com/jonwraymond/draftops/store"
)

// Config holds all configuration of a draftops client.
type Config struct {
	ServiceName string `yaml:"service_name" split_words:"true"`
	Version     string `yaml:"version" split_words:"true"`

	// Owner is the principal drafts are attributed to until a token
	// identifies the user. Empty means anonymous.
	Owner string `yaml:"owner" split_words:"true"`

	Store       StoreConfig       `yaml:"store" split_words:"true"`
	Persistence PersistenceConfig `yaml:"persistence" split_words:"true"`
	Resilience  ResilienceConfig  `yaml:"resilience" split_words:"true"`
	Observe     ObserveConfig     `yaml:"observe" split_words:"true"`
}

// StoreConfig configures the entity server.
type StoreConfig struct {
	// BaseURL of the REST server. Empty keeps entities in memory.
	BaseURL string        `yaml:"base_url" split_words:"true"`
	Timeout time.Duration `yaml:"timeout" split_words:"true"`
}

// PersistenceConfig configures where drafts survive restarts.
type PersistenceConfig struct {
	Backend  string        `yaml:"backend" split_words:"true"` // file|redis|none
	Path     string        `yaml:"path" split_words:"true"`
	RedisURL string        `yaml:"redis_url" split_words:"true"`
	RedisKey string        `yaml:"redis_key" split_words:"true"`
	TTL      time.Duration `yaml:"ttl" split_words:"true"`
}

// ResilienceConfig configures retries and the circuit breaker of entity
// stores.
type ResilienceConfig struct {
	MaxAttempts     int           `yaml:"max_attempts" split_words:"true"`
	InitialDelay    time.Duration `yaml:"initial_delay" split_words:"true"`
	MaxDelay        time.Duration `yaml:"max_delay" split_words:"true"`
	BreakerFailures int           `yaml:"breaker_failures" split_words:"true"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout" split_words:"true"`
	Timeout         time.Duration `yaml:"timeout" split_words:"true"`
}

// ObserveConfig mirrors observe.Config.
type ObserveConfig struct {
	Tracing struct {
		Enabled   bool    `yaml:"enabled" split_words:"true"`
		Exporter  string  `yaml:"exporter" split_words:"true"`
		SamplePct float64 `yaml:"sample_pct" split_words:"true"`
	} `yaml:"tracing" split_words:"true"`
	Metrics struct {
		Enabled  bool   `yaml:"enabled" split_words:"true"`
		Exporter string `yaml:"exporter" split_words:"true"`
	} `yaml:"metrics" split_words:"true"`
	Logging struct {
		Enabled bool   `yaml:"enabled" split_words:"true"`
		Level   string `yaml:"level" split_words:"true"`
	} `yaml:"logging" split_words:"true"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	c := &Config{
		ServiceName: "draftops",
		Store: StoreConfig{
			Timeout: 30 * time.Second,
		},
		Persistence: PersistenceConfig{
			Backend:  BackendFile,
			Path:     "drafts.json",
			RedisKey: keyed.DefaultRedisKey,
		},
		Resilience: ResilienceConfig{
			MaxAttempts:     3,
			InitialDelay:    200 * time.Millisecond,
			MaxDelay:        5 * time.Second,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
			Timeout:         10 * time.Second,
		},
	}
	c.Observe.Tracing.Exporter = "none"
	c.Observe.Tracing.SamplePct = 1.0
	c.Observe.Metrics.Exporter = "none"
	c.Observe.Logging.Enabled = true
	c.Observe.Logging.Level = "info"
	return c
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}

	if c.Store.BaseURL != "" {
		u, err := url.Parse(c.Store.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.Store.BaseURL)
		}
	}

	if !slices.Contains(ValidBackends, c.Persistence.Backend) {
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Persistence.Backend)
	}
	switch c.Persistence.Backend {
	case BackendFile:
		if c.Persistence.Path == "" {
			return ErrMissingPath
		}
	case BackendRedis:
		if c.Persistence.RedisURL == "" {
			return ErrMissingRedisURL
		}
	}

	r := c.Resilience
	if r.MaxAttempts < 1 || r.BreakerFailures < 1 || r.InitialDelay < 0 || r.MaxDelay < r.InitialDelay {
		return fmt.Errorf("%w: attempts=%d failures=%d delay=%s..%s",
			ErrInvalidResilience, r.MaxAttempts, r.BreakerFailures, r.InitialDelay, r.MaxDelay)
	}

	oc := c.ObserveConfig()
	return oc.Validate()
}

// ObserveConfig returns the observer configuration.
func (c *Config) ObserveConfig() observe.Config {
	o := c.Observe
	return observe.Config{
		ServiceName: c.ServiceName,
		Version:     c.Version,
		Owner:       c.Owner,
		Tracing: observe.TracingConfig{
			Enabled:   o.Tracing.Enabled,
			Exporter:  o.Tracing.Exporter,
			SamplePct: o.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.Metrics.Enabled,
			Exporter: o.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: o.Logging.Enabled,
			Level:   o.Logging.Level,
		},
	}
}

// ResilienceConfig returns the executor settings of entity stores.
func (c *Config) ResilienceConfig() resilience.Config {
	r := c.Resilience
	return resilience.Config{
		MaxAttempts:     r.MaxAttempts,
		InitialDelay:    r.InitialDelay,
		MaxDelay:        r.MaxDelay,
		BreakerFailures: r.BreakerFailures,
		BreakerTimeout:  r.BreakerTimeout,
		Timeout:         r.Timeout,
	}
}

// HTTPStore returns the HTTP store settings for kind, authenticated with
// tokens.
func (c *Config) HTTPStore(kind string, tokens auth.TokenSource) store.HTTPConfig {
	return store.HTTPConfig{
		BaseURL:     c.Store.BaseURL,
		Kind:        kind,
		Timeout:     c.Store.Timeout,
		TokenSource: tokens,
	}
}

// Identity returns the identity drafts start out owned by.
func (c *Config) Identity() *auth.Identity {
	if c.Owner == "" {
		return auth.AnonymousIdentity()
	}
	return &auth.Identity{Principal: c.Owner, Method: auth.AuthMethodStatic}
}

// Persister builds the configured draft persister. The none backend
// returns nil.
func (c *Config) Persister(ctx context.Context) (keyed.Persister, error) {
	p := c.Persistence
	switch p.Backend {
	case BackendFile:
		return keyed.NewFilePersister(p.Path, keyed.DefaultCodec), nil
	case BackendRedis:
		rp, err := keyed.NewRedisPersister(ctx, p.RedisURL, p.RedisKey, p.TTL)
		if err != nil {
			return nil, err
		}
		return rp, nil
	case BackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidBackend, p.Backend)
	}
}
