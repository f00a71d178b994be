package recharge

import (
	"math/rand"
	"sync"
	"time"
)

// Simulator decides transaction outcomes and timing. The weighted random
// implementation below stands in for a real settlement backend; a gateway
// integration can be swapped in behind this contract without touching the
// lifecycle engine or the resolver.
type Simulator interface {
	// InitialStatus draws the status assigned at first submission.
	InitialStatus() Status

	// RetryStatus draws the status assigned to a retry. Retries are modeled
	// as more likely to succeed than first submissions.
	RetryStatus() Status

	// FinalStatus draws the terminal status applied when a pending
	// transaction resolves. isRetry selects the retry-biased distribution.
	// The result is always SUCCESS or FAILED, never PENDING.
	FinalStatus(isRetry bool) Status

	// FailureReason picks a human-readable failure reason.
	FailureReason() string

	// NetworkDelay draws the synthetic request latency applied before a
	// response is produced.
	NetworkDelay() time.Duration

	// ResolutionDelay draws how long a pending transaction waits before it
	// resolves. The isRetry flag is part of the contract so a settlement
	// backend may differentiate; the weighted implementation uses the same
	// bounds for both.
	ResolutionDelay(isRetry bool) time.Duration
}

// failureReasons is the fixed catalog of synthetic failure reasons.
var failureReasons = []string{
	"Operator network is busy. Please try again.",
	"Insufficient balance in operator system.",
	"Invalid plan selected for this number.",
	"Technical error occurred. Please retry.",
	"Recharge service temporarily unavailable.",
}

// Default delay bounds for the weighted simulator.
const (
	DefaultNetworkDelayMin = 200 * time.Millisecond
	DefaultNetworkDelayMax = 800 * time.Millisecond

	DefaultResolutionDelayMin = 15 * time.Second
	DefaultResolutionDelayMax = 45 * time.Second
)

// WeightedSimulator implements Simulator with weighted random draws:
// initial submissions land SUCCESS 70%, FAILED 20%, PENDING 10%; retries
// land SUCCESS 80%, FAILED 15%, PENDING 5%; pending resolutions finish
// SUCCESS 70% (80% on retry chains).
type WeightedSimulator struct {
	mu  sync.Mutex
	rng *rand.Rand

	networkDelayMin time.Duration
	networkDelayMax time.Duration

	resolutionDelayMin time.Duration
	resolutionDelayMax time.Duration
}

var _ Simulator = (*WeightedSimulator)(nil)

// SimulatorOption configures a WeightedSimulator.
type SimulatorOption func(*WeightedSimulator)

// WithRand sets the random source. Useful for deterministic tests.
func WithRand(rng *rand.Rand) SimulatorOption {
	return func(s *WeightedSimulator) {
		s.rng = rng
	}
}

// WithNetworkDelayBounds sets the synthetic request latency bounds.
func WithNetworkDelayBounds(min, max time.Duration) SimulatorOption {
	return func(s *WeightedSimulator) {
		s.networkDelayMin = min
		s.networkDelayMax = max
	}
}

// WithResolutionDelayBounds sets the pending resolution delay bounds.
func WithResolutionDelayBounds(min, max time.Duration) SimulatorOption {
	return func(s *WeightedSimulator) {
		s.resolutionDelayMin = min
		s.resolutionDelayMax = max
	}
}

// NewWeightedSimulator creates a WeightedSimulator with the given options.
func NewWeightedSimulator(opts ...SimulatorOption) *WeightedSimulator {
	s := &WeightedSimulator{
		rng:                rand.New(rand.NewSource(time.Now().UnixNano())),
		networkDelayMin:    DefaultNetworkDelayMin,
		networkDelayMax:    DefaultNetworkDelayMax,
		resolutionDelayMin: DefaultResolutionDelayMin,
		resolutionDelayMax: DefaultResolutionDelayMax,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// roll draws a uniform value in [0, 100).
func (s *WeightedSimulator) roll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() * 100
}

// InitialStatus draws the status for a first submission.
func (s *WeightedSimulator) InitialStatus() Status {
	r := s.roll()
	switch {
	case r < 70:
		return StatusSuccess
	case r < 90:
		return StatusFailed
	default:
		return StatusPending
	}
}

// RetryStatus draws the status for a retry submission.
func (s *WeightedSimulator) RetryStatus() Status {
	r := s.roll()
	switch {
	case r < 80:
		return StatusSuccess
	case r < 95:
		return StatusFailed
	default:
		return StatusPending
	}
}

// FinalStatus draws the terminal status for a pending resolution.
func (s *WeightedSimulator) FinalStatus(isRetry bool) Status {
	threshold := 70.0
	if isRetry {
		threshold = 80.0
	}
	if s.roll() < threshold {
		return StatusSuccess
	}
	return StatusFailed
}

// FailureReason picks a reason uniformly from the fixed catalog.
func (s *WeightedSimulator) FailureReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return failureReasons[s.rng.Intn(len(failureReasons))]
}

// NetworkDelay draws a uniform duration within the network delay bounds.
func (s *WeightedSimulator) NetworkDelay() time.Duration {
	return s.between(s.networkDelayMin, s.networkDelayMax)
}

// ResolutionDelay draws a uniform duration within the resolution delay bounds.
func (s *WeightedSimulator) ResolutionDelay(isRetry bool) time.Duration {
	return s.between(s.resolutionDelayMin, s.resolutionDelayMax)
}

// between draws a uniform duration in [min, max].
func (s *WeightedSimulator) between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return min + time.Duration(s.rng.Int63n(int64(max-min)+1))
}
