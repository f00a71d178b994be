package recharge

import (
	"context"
	"sync"
	"time"

	"github.com/Tarunvoff/mobile-backend/event"
	"github.com/Tarunvoff/mobile-backend/metrics"
	"github.com/Tarunvoff/mobile-backend/tracing"
)

// Resolver settles pending transactions after a simulated delay. Each
// Schedule call arms a one-shot timer; when it fires, the transaction is
// re-read and, if still pending, flipped to a terminal status with a
// conditional store update. Timers live in process memory only, so pending
// transactions lose their timer on restart; the recovery worker re-arms them.
type Resolver struct {
	store TxStore
	sim   Simulator

	metrics metrics.Metrics
	events  event.EventBus
	tracer  tracing.Tracer
	logger  Logger

	timeout time.Duration

	mu     sync.Mutex
	armed  map[string]struct{}
	stopCh chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// ResolverOption is a function that configures the Resolver.
type ResolverOption func(*Resolver)

// WithResolverStore sets the transaction store.
func WithResolverStore(s TxStore) ResolverOption {
	return func(r *Resolver) {
		r.store = s
	}
}

// WithResolverSimulator sets the outcome simulator.
func WithResolverSimulator(s Simulator) ResolverOption {
	return func(r *Resolver) {
		r.sim = s
	}
}

// WithResolverMetrics sets the metrics collector.
func WithResolverMetrics(m metrics.Metrics) ResolverOption {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithResolverEventBus sets the event bus.
func WithResolverEventBus(eb event.EventBus) ResolverOption {
	return func(r *Resolver) {
		r.events = eb
	}
}

// WithResolverTracer sets the tracer.
func WithResolverTracer(t tracing.Tracer) ResolverOption {
	return func(r *Resolver) {
		r.tracer = t
	}
}

// WithResolverLogger sets the logger.
func WithResolverLogger(l Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

// WithResolverTimeout bounds the store round-trips of a single firing.
func WithResolverTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.timeout = d
	}
}

// NewResolver creates a new Resolver with the given options.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		timeout: DefaultResolveTimeout,
		armed:   make(map[string]struct{}),
		stopCh:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.metrics == nil {
		r.metrics = &metrics.NoopMetrics{}
	}
	if r.events == nil {
		r.events = event.NewNoOpEventBus()
	}
	if r.tracer == nil {
		r.tracer = &tracing.NoopTracer{}
	}
	if r.logger == nil {
		r.logger = &defaultLogger{}
	}
	if r.sim == nil {
		r.sim = NewWeightedSimulator()
	}

	return r
}

// Schedule arms a one-shot resolution for the given transaction. The delay
// is drawn at registration time. Scheduling the same transaction twice while
// the first timer is armed is a no-op; after the resolver is stopped,
// Schedule does nothing.
func (r *Resolver) Schedule(txID string, isRetry bool) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if _, ok := r.armed[txID]; ok {
		r.mu.Unlock()
		return
	}
	r.armed[txID] = struct{}{}
	r.wg.Add(1)
	r.mu.Unlock()

	r.metrics.ResolutionScheduled()
	delay := r.sim.ResolutionDelay(isRetry)

	go func() {
		defer r.wg.Done()
		defer r.disarm(txID)

		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-r.stopCh:
			return
		}

		r.resolve(txID, isRetry)
	}()
}

// Armed reports whether a resolution timer is currently armed for the
// transaction. The recovery worker uses this to skip transactions that are
// already scheduled locally.
func (r *Resolver) Armed(txID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.armed[txID]
	return ok
}

// PendingCount returns the number of armed resolution timers.
func (r *Resolver) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.armed)
}

// Stop shuts the resolver down. Armed timers are abandoned without firing;
// the affected transactions stay PENDING until a recovery sweep re-arms
// them. Stop blocks until all timer goroutines have exited.
func (r *Resolver) Stop() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.stopCh)
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Resolver) disarm(txID string) {
	r.mu.Lock()
	delete(r.armed, txID)
	r.mu.Unlock()
}

// resolve flips a still-pending transaction to its terminal status. Any
// store failure is logged and the transaction is left PENDING for a later
// recovery sweep.
func (r *Resolver) resolve(txID string, isRetry bool) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	ctx, span := r.tracer.StartResolve(ctx, txID)
	defer span.End()

	tx, err := r.store.GetTransaction(ctx, txID, "")
	if err != nil {
		span.SetError(err)
		r.logger.Printf("[Resolver] load %s: %v", txID, err)
		return
	}
	if tx.Status != StatusPending {
		// Already settled elsewhere, nothing to do.
		return
	}

	status := r.sim.FinalStatus(isRetry)
	failureReason := ""
	if status == StatusFailed {
		failureReason = r.sim.FailureReason()
	}
	resolvedAt := time.Now()

	applied, err := r.store.ResolveTransaction(ctx, txID, status, failureReason, resolvedAt)
	if err != nil {
		span.SetError(err)
		r.logger.Printf("[Resolver] resolve %s: %v", txID, err)
		return
	}
	if !applied {
		// Lost the race to a concurrent resolution, which is fine.
		return
	}

	r.metrics.TxResolved(string(tx.ServiceType), string(status), resolvedAt.Sub(tx.CreatedAt))
	r.events.Publish(ctx, event.NewEvent(event.EventTxResolved).
		WithTxID(txID).
		WithService(string(tx.ServiceType)).
		WithStatus(string(status)).
		WithData("pendingFor", resolvedAt.Sub(tx.CreatedAt).String()))
	if status == StatusFailed {
		r.events.Publish(ctx, event.NewEvent(event.EventTxFailed).
			WithTxID(txID).
			WithService(string(tx.ServiceType)).
			WithStatus(string(status)).
			WithData("reason", failureReason))
	}
}
