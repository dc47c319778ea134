// Package config is the process-level configuration surface for an embedding
// control plane: a functional-options Config struct covering the handful of
// knobs the runtime needs and nothing else (§1.3).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the tunables an embedding control plane may want to override
// before constructing a system.System. Unlike the reference framework's
// process-wide Config, this module never binds a port or reads a config
// file: it is populated programmatically, with environment variables
// providing only numeric overrides for local experimentation. No package in
// this module reads a Config: system.New, AgentRuntime and the other
// packages use their own built-in values, so the field descriptions below
// name what each value is for, not a wiring that exists here.
type Config struct {
	// EventBusCapacity is the event.Bus ring-buffer size (events dropped,
	// oldest first, once full).
	EventBusCapacity int `json:"event_bus_capacity" env:"KAIREI_EVENT_BUS_CAPACITY" default:"256"`

	// AgentConcurrency bounds the number of handler invocations an
	// AgentRuntime runs concurrently.
	AgentConcurrency int `json:"agent_concurrency" env:"KAIREI_AGENT_CONCURRENCY" default:"8"`

	// RequestTimeout is the default request.Manager timeout applied when a
	// caller does not specify one explicitly.
	RequestTimeout time.Duration `json:"request_timeout" env:"KAIREI_REQUEST_TIMEOUT" default:"30s"`

	// StopDrainTimeout bounds how long AgentRuntime.Stop waits for in-flight
	// handlers to finish before giving up and tearing down anyway.
	StopDrainTimeout time.Duration `json:"stop_drain_timeout" env:"KAIREI_STOP_DRAIN_TIMEOUT" default:"5s"`

	// TickerInterval is the period between system.Ticker Tick events.
	TickerInterval time.Duration `json:"ticker_interval" env:"KAIREI_TICKER_INTERVAL" default:"1s"`

	// SharedMemoryTTL is the default expiry applied to shared-memory plugin
	// entries that do not specify their own TTL.
	SharedMemoryTTL time.Duration `json:"shared_memory_ttl" env:"KAIREI_SHARED_MEMORY_TTL" default:"1h"`

	// SharedMemoryCapacity bounds the in-memory store's entry count before
	// LRU eviction kicks in.
	SharedMemoryCapacity int `json:"shared_memory_capacity" env:"KAIREI_SHARED_MEMORY_CAPACITY" default:"1000"`

	// ProviderOrder names providers in the order their plugins' sections
	// should be considered when priorities tie; an empty slice leaves the
	// registry's own (alphabetical) ordering in place.
	ProviderOrder []string `json:"provider_order"`
}

// Option is a functional option for Config, following the reference
// framework's WithX convention.
type Option func(*Config) error

// Default returns a Config populated with sensible defaults, mirroring the
// reference framework's DefaultConfig/Config split.
func Default() *Config {
	return &Config{
		EventBusCapacity:     256,
		AgentConcurrency:     8,
		RequestTimeout:       30 * time.Second,
		StopDrainTimeout:     5 * time.Second,
		TickerInterval:       time.Second,
		SharedMemoryTTL:      time.Hour,
		SharedMemoryCapacity: 1000,
	}
}

// WithEventBusCapacity sets the event bus buffer size. Must be positive.
func WithEventBusCapacity(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("config: event bus capacity must be positive, got %d", n)
		}
		c.EventBusCapacity = n
		return nil
	}
}

// WithAgentConcurrency sets the per-agent handler concurrency bound. Must be
// positive.
func WithAgentConcurrency(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("config: agent concurrency must be positive, got %d", n)
		}
		c.AgentConcurrency = n
		return nil
	}
}

// WithRequestTimeout sets the default request/response round-trip timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return fmt.Errorf("config: request timeout must be positive, got %s", d)
		}
		c.RequestTimeout = d
		return nil
	}
}

// WithStopDrainTimeout sets the bound on AgentRuntime.Stop's in-flight drain.
func WithStopDrainTimeout(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return fmt.Errorf("config: stop drain timeout must be positive, got %s", d)
		}
		c.StopDrainTimeout = d
		return nil
	}
}

// WithTickerInterval sets the period between Tick events.
func WithTickerInterval(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return fmt.Errorf("config: ticker interval must be positive, got %s", d)
		}
		c.TickerInterval = d
		return nil
	}
}

// WithSharedMemory sets both the default TTL and entry-count capacity for
// shared-memory plugin storage.
func WithSharedMemory(ttl time.Duration, capacity int) Option {
	return func(c *Config) error {
		if ttl <= 0 {
			return fmt.Errorf("config: shared memory TTL must be positive, got %s", ttl)
		}
		if capacity <= 0 {
			return fmt.Errorf("config: shared memory capacity must be positive, got %d", capacity)
		}
		c.SharedMemoryTTL = ttl
		c.SharedMemoryCapacity = capacity
		return nil
	}
}

// WithProviderOrder pins the order providers are considered when plugin
// section priorities tie.
func WithProviderOrder(names ...string) Option {
	return func(c *Config) error {
		c.ProviderOrder = append([]string(nil), names...)
		return nil
	}
}

// loadFromEnv applies the handful of numeric/duration environment overrides
// named in each field's `env` tag, lowest priority after defaults.
func (c *Config) loadFromEnv() error {
	if v := os.Getenv("KAIREI_EVENT_BUS_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid KAIREI_EVENT_BUS_CAPACITY %q: %w", v, err)
		}
		c.EventBusCapacity = n
	}
	if v := os.Getenv("KAIREI_AGENT_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid KAIREI_AGENT_CONCURRENCY %q: %w", v, err)
		}
		c.AgentConcurrency = n
	}
	if v := os.Getenv("KAIREI_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid KAIREI_REQUEST_TIMEOUT %q: %w", v, err)
		}
		c.RequestTimeout = d
	}
	if v := os.Getenv("KAIREI_STOP_DRAIN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid KAIREI_STOP_DRAIN_TIMEOUT %q: %w", v, err)
		}
		c.StopDrainTimeout = d
	}
	if v := os.Getenv("KAIREI_TICKER_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid KAIREI_TICKER_INTERVAL %q: %w", v, err)
		}
		c.TickerInterval = d
	}
	if v := os.Getenv("KAIREI_SHARED_MEMORY_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid KAIREI_SHARED_MEMORY_TTL %q: %w", v, err)
		}
		c.SharedMemoryTTL = d
	}
	if v := os.Getenv("KAIREI_SHARED_MEMORY_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid KAIREI_SHARED_MEMORY_CAPACITY %q: %w", v, err)
		}
		c.SharedMemoryCapacity = n
	}
	return nil
}

// Validate checks that every count and duration field is positive;
// loadFromEnv only checks that the values it reads parse.
func (c *Config) Validate() error {
	if c.EventBusCapacity <= 0 {
		return fmt.Errorf("config: event bus capacity must be positive, got %d", c.EventBusCapacity)
	}
	if c.AgentConcurrency <= 0 {
		return fmt.Errorf("config: agent concurrency must be positive, got %d", c.AgentConcurrency)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.StopDrainTimeout <= 0 {
		return fmt.Errorf("config: stop drain timeout must be positive, got %s", c.StopDrainTimeout)
	}
	if c.TickerInterval <= 0 {
		return fmt.Errorf("config: ticker interval must be positive, got %s", c.TickerInterval)
	}
	if c.SharedMemoryTTL <= 0 {
		return fmt.Errorf("config: shared memory TTL must be positive, got %s", c.SharedMemoryTTL)
	}
	if c.SharedMemoryCapacity <= 0 {
		return fmt.Errorf("config: shared memory capacity must be positive, got %d", c.SharedMemoryCapacity)
	}
	return nil
}

// New builds a Config from Default(), environment overrides, then opts, in
// that ascending priority order, and validates the result.
func New(opts ...Option) (*Config, error) {
	c := Default()
	if err := c.loadFromEnv(); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
