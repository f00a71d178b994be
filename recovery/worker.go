// Package recovery provides the recovery worker that re-arms pending
// transactions whose resolution timers were lost to a restart.
package recovery

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	recharge "github.com/Tarunvoff/mobile-backend"
	"github.com/Tarunvoff/mobile-backend/event"
	"github.com/Tarunvoff/mobile-backend/lock"
	"github.com/Tarunvoff/mobile-backend/metrics"
)

// TxStore defines the storage interface needed by the recovery worker.
type TxStore interface {
	GetTransaction(ctx context.Context, txID, ownerID string) (*recharge.Transaction, error)
	UnresolvedTransactions(ctx context.Context, olderThan time.Duration) ([]*recharge.Transaction, error)
}

// Scheduler defines the resolver interface needed by the recovery worker.
type Scheduler interface {
	Schedule(txID string, isRetry bool)
	Armed(txID string) bool
}

// Config holds the configuration for the recovery worker.
type Config struct {
	// ScanInterval is the interval between recovery scans.
	ScanInterval time.Duration
	// PendingThreshold is how old a PENDING transaction must be before the
	// sweep considers its timer lost. It must exceed the maximum resolution
	// delay or the sweep races healthy timers.
	PendingThreshold time.Duration
	// LockTTL is the TTL for per-transaction recovery locks.
	LockTTL time.Duration
}

// DefaultConfig returns the default configuration for the recovery worker.
func DefaultConfig() Config {
	return Config{
		ScanInterval:     30 * time.Second,
		PendingThreshold: 2 * time.Minute,
		LockTTL:          30 * time.Second,
	}
}

// Logger defines the logging interface.
type Logger interface {
	Printf(format string, v ...any)
}

type defaultLogger struct{}

func (l *defaultLogger) Printf(format string, v ...any) {
	log.Printf("[RecoveryWorker] "+format, v...)
}

// Worker periodically scans for stale pending transactions and re-arms their
// resolution through the scheduler. A per-transaction distributed lock keeps
// concurrent instances from re-arming the same transaction; the conditional
// resolve in the store makes any remaining double-fire harmless.
type Worker struct {
	store     TxStore
	scheduler Scheduler
	locker    lock.Locker
	events    event.EventBus
	metrics   metrics.Metrics
	config    Config
	logger    Logger

	// State
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex

	// Counters
	scannedCount int64
	rearmedCount int64
	failedCount  int64
	countersMu   sync.RWMutex
}

// WorkerOption is a function that configures the Worker.
type WorkerOption func(*Worker)

// WithStore sets the store for the worker.
func WithStore(s TxStore) WorkerOption {
	return func(w *Worker) {
		w.store = s
	}
}

// WithScheduler sets the scheduler for the worker.
func WithScheduler(s Scheduler) WorkerOption {
	return func(w *Worker) {
		w.scheduler = s
	}
}

// WithLocker sets the locker for the worker.
func WithLocker(l lock.Locker) WorkerOption {
	return func(w *Worker) {
		w.locker = l
	}
}

// WithEventBus sets the event bus for the worker.
func WithEventBus(e event.EventBus) WorkerOption {
	return func(w *Worker) {
		w.events = e
	}
}

// WithMetrics sets the metrics collector for the worker.
func WithMetrics(m metrics.Metrics) WorkerOption {
	return func(w *Worker) {
		w.metrics = m
	}
}

// WithConfig sets the configuration for the worker.
func WithConfig(cfg Config) WorkerOption {
	return func(w *Worker) {
		w.config = cfg
	}
}

// WithLogger sets the logger for the worker.
func WithLogger(l Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = l
	}
}

// NewWorker creates a new recovery worker with the given options.
func NewWorker(opts ...WorkerOption) *Worker {
	w := &Worker{
		config: DefaultConfig(),
		logger: &defaultLogger{},
		stopCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.locker == nil {
		w.locker = &lock.NoopLocker{}
	}
	if w.events == nil {
		w.events = event.NewNoOpEventBus()
	}
	if w.metrics == nil {
		w.metrics = &metrics.NoopMetrics{}
	}

	return w
}

// Start starts the recovery worker. It runs in the background and
// periodically scans for pending transactions with no armed timer.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("recovery worker already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Printf("started with interval=%v, pendingThreshold=%v", w.config.ScanInterval, w.config.PendingThreshold)
	return nil
}

// Stop stops the recovery worker gracefully.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Printf("stopped")
}

// IsRunning returns true if the worker is running.
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// run is the main loop of the recovery worker.
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.ScanInterval)
	defer ticker.Stop()

	// Run initial scan immediately
	w.scan(ctx)

	for {
		select {
		case <-ticker.C:
			w.scan(ctx)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// scan performs a single recovery scan.
func (w *Worker) scan(ctx context.Context) {
	w.events.Publish(ctx, event.NewEvent(event.EventRecoveryStart))

	stale, err := w.store.UnresolvedTransactions(ctx, w.config.PendingThreshold)
	if err != nil {
		w.logger.Printf("failed to list unresolved transactions: %v", err)
		return
	}

	w.incrementScanned(int64(len(stale)))
	w.metrics.RecoveryScanned(len(stale))

	for _, tx := range stale {
		w.rearmTransaction(ctx, tx)
	}
}

// rearmTransaction re-arms the resolution for one stale pending transaction.
func (w *Worker) rearmTransaction(ctx context.Context, tx *recharge.Transaction) {
	// A locally armed timer means the transaction is already scheduled;
	// nothing to recover.
	if w.scheduler.Armed(tx.TransactionID) {
		return
	}

	lockKey := fmt.Sprintf("recovery:%s", tx.TransactionID)
	handle, err := w.locker.Acquire(ctx, lockKey, w.config.LockTTL)
	if err != nil {
		// Another instance is processing this transaction
		return
	}
	defer handle.Release(ctx)

	// Reload to confirm the transaction still needs recovery
	current, err := w.store.GetTransaction(ctx, tx.TransactionID, "")
	if err != nil {
		w.logger.Printf("failed to reload tx %s: %v", tx.TransactionID, err)
		w.incrementFailed()
		w.metrics.RecoveryRearmed(false)
		w.events.Publish(ctx, event.NewEvent(event.EventAlertWarning).
			WithTxID(tx.TransactionID).
			WithData("message", fmt.Sprintf("recovery reload failed: %v", err)).
			WithError(err))
		return
	}
	if current.Status != recharge.StatusPending {
		return
	}

	w.logger.Printf("re-arming pending tx %s (created %v)", current.TransactionID, current.CreatedAt)
	w.scheduler.Schedule(current.TransactionID, current.IsRetry())

	w.incrementRearmed()
	w.metrics.RecoveryRearmed(true)
}

// Counter methods

func (w *Worker) incrementScanned(count int64) {
	w.countersMu.Lock()
	defer w.countersMu.Unlock()
	w.scannedCount += count
}

func (w *Worker) incrementRearmed() {
	w.countersMu.Lock()
	defer w.countersMu.Unlock()
	w.rearmedCount++
}

func (w *Worker) incrementFailed() {
	w.countersMu.Lock()
	defer w.countersMu.Unlock()
	w.failedCount++
}

// Stats holds the current statistics of the recovery worker.
type Stats struct {
	ScannedCount int64
	RearmedCount int64
	FailedCount  int64
	IsRunning    bool
}

// Stats returns the current statistics of the recovery worker.
func (w *Worker) Stats() Stats {
	w.countersMu.RLock()
	defer w.countersMu.RUnlock()
	return Stats{
		ScannedCount: w.scannedCount,
		RearmedCount: w.rearmedCount,
		FailedCount:  w.failedCount,
		IsRunning:    w.IsRunning(),
	}
}

// ResetStats resets the statistics counters.
func (w *Worker) ResetStats() {
	w.countersMu.Lock()
	defer w.countersMu.Unlock()
	w.scannedCount = 0
	w.rearmedCount = 0
	w.failedCount = 0
}

// ScanOnce performs a single recovery scan synchronously.
// This is useful for testing.
func (w *Worker) ScanOnce(ctx context.Context) {
	w.scan(ctx)
}
