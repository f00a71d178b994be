package recharge

import "time"

// Default configuration values.
const (
	DefaultDuplicateWindow     = 2 * time.Minute
	DefaultEstimatedResolution = 30 * time.Second
	DefaultResolveTimeout      = 10 * time.Second
)

// Config holds the configuration for the lifecycle engine and resolver.
type Config struct {
	// DuplicateWindow is the trailing interval during which an
	// identical-looking request is suppressed, default 2m.
	DuplicateWindow time.Duration

	// NetworkDelayMin/Max bound the synthetic request latency, default
	// 200ms-800ms.
	NetworkDelayMin time.Duration
	NetworkDelayMax time.Duration

	// ResolutionDelayMin/Max bound how long a pending transaction waits
	// before resolving, default 15s-45s.
	ResolutionDelayMin time.Duration
	ResolutionDelayMax time.Duration

	// EstimatedResolution is the resolution hint returned to callers for
	// PENDING results, default 30s.
	EstimatedResolution time.Duration

	// ResolveTimeout bounds the store round-trips of a single resolution
	// firing, default 10s.
	ResolveTimeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DuplicateWindow:     DefaultDuplicateWindow,
		NetworkDelayMin:     DefaultNetworkDelayMin,
		NetworkDelayMax:     DefaultNetworkDelayMax,
		ResolutionDelayMin:  DefaultResolutionDelayMin,
		ResolutionDelayMax:  DefaultResolutionDelayMax,
		EstimatedResolution: DefaultEstimatedResolution,
		ResolveTimeout:      DefaultResolveTimeout,
	}
}

// Option is a function that modifies the Config.
type Option func(*Config)

// WithDuplicateWindow sets the duplicate suppression window.
func WithDuplicateWindow(window time.Duration) Option {
	return func(c *Config) {
		c.DuplicateWindow = window
	}
}

// WithNetworkDelay sets the synthetic request latency bounds.
func WithNetworkDelay(min, max time.Duration) Option {
	return func(c *Config) {
		c.NetworkDelayMin = min
		c.NetworkDelayMax = max
	}
}

// WithResolutionDelay sets the pending resolution delay bounds.
func WithResolutionDelay(min, max time.Duration) Option {
	return func(c *Config) {
		c.ResolutionDelayMin = min
		c.ResolutionDelayMax = max
	}
}

// WithEstimatedResolution sets the resolution hint for PENDING results.
func WithEstimatedResolution(d time.Duration) Option {
	return func(c *Config) {
		c.EstimatedResolution = d
	}
}

// WithResolveTimeout bounds how long a single resolution firing may spend on the store.
func WithResolveTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ResolveTimeout = d
	}
}

// ApplyOptions applies the given options to a default config.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DuplicateWindow <= 0 {
		return ErrInvalidConfig
	}
	if c.NetworkDelayMin < 0 || c.NetworkDelayMax < c.NetworkDelayMin {
		return ErrInvalidConfig
	}
	if c.ResolutionDelayMin < 0 || c.ResolutionDelayMax < c.ResolutionDelayMin {
		return ErrInvalidConfig
	}
	if c.EstimatedResolution <= 0 {
		return ErrInvalidConfig
	}
	if c.ResolveTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}
