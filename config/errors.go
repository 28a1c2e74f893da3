package config

import "errors"

var (
	// ErrMissingServiceName is returned when the service name is empty.
	ErrMissingServiceName = errors.New("config: service name is required")

	// ErrInvalidBackend is returned for an unknown persistence backend.
	ErrInvalidBackend = errors.New("config: invalid persistence backend")

	// ErrMissingPath is returned when the file backend has no path.
	ErrMissingPath = errors.New("config: persistence path is required")

	// ErrMissingRedisURL is returned when the redis backend has no url.
	ErrMissingRedisURL = errors.New("config: redis url is required")

	// ErrInvalidBaseURL is returned for a store base url that is not http(s).
	ErrInvalidBaseURL = errors.New("config: invalid store base url")

	// ErrInvalidResilience is returned for non-positive retry or breaker
	// settings.
	ErrInvalidResilience = errors.New("config: invalid resilience settings")

	// ErrMissingEnv is returned when the YAML file references an unset
	// environment variable.
	ErrMissingEnv = errors.New("config: missing environment variables")
)

// Persistence backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// ValidBackends lists valid persistence backends.
var ValidBackends = []string{BackendFile, BackendRedis, BackendNone}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DRAFTOPS"
