package recharge

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Tarunvoff/mobile-backend/event"
	"github.com/Tarunvoff/mobile-backend/metrics"
	"github.com/Tarunvoff/mobile-backend/tracing"
)

// Logger is the minimal logging contract used across the engine.
type Logger interface {
	Printf(format string, v ...any)
}

type defaultLogger struct{}

func (l *defaultLogger) Printf(format string, v ...any) {
	log.Printf(format, v...)
}

// InitiateRequest describes a recharge or bill payment submission.
type InitiateRequest struct {
	OwnerID       string
	ServiceType   ServiceType
	Identifier    string
	OperatorCode  string
	PlanID        string
	Amount        float64
	PaymentMethod PaymentMethod
}

// TxResult is the caller-facing outcome of a submission or retry.
type TxResult struct {
	TransactionID       string
	ParentTransactionID string
	Status              Status
	FailureReason       string
	Amount              float64

	// EstimatedResolution is a hint for PENDING results: how long the caller
	// should expect to wait before the transaction settles. Zero for
	// terminal results.
	EstimatedResolution time.Duration
}

// Engine is the main entry point for the recharge transaction lifecycle.
// It validates submissions, guards against duplicates, draws outcomes, and
// arms the resolver for pending transactions.
type Engine struct {
	store    TxStore
	catalog  Catalog
	sim      Simulator
	guard    DuplicateGuard
	resolver *Resolver

	metrics metrics.Metrics
	events  event.EventBus
	tracer  tracing.Tracer
	logger  Logger

	config Config
}

// EngineOption is a function that configures the Engine.
type EngineOption func(*Engine)

// WithEngineStore sets the transaction store for the engine.
func WithEngineStore(s TxStore) EngineOption {
	return func(e *Engine) {
		e.store = s
	}
}

// WithEngineCatalog sets the operator catalog for the engine.
func WithEngineCatalog(c Catalog) EngineOption {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithEngineSimulator sets the outcome simulator for the engine.
func WithEngineSimulator(s Simulator) EngineOption {
	return func(e *Engine) {
		e.sim = s
	}
}

// WithEngineGuard sets the duplicate guard for the engine.
func WithEngineGuard(g DuplicateGuard) EngineOption {
	return func(e *Engine) {
		e.guard = g
	}
}

// WithEngineResolver sets the resolver for the engine.
func WithEngineResolver(r *Resolver) EngineOption {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithEngineMetrics sets the metrics collector for the engine.
func WithEngineMetrics(m metrics.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithEngineEventBus sets the event bus for the engine.
func WithEngineEventBus(eb event.EventBus) EngineOption {
	return func(e *Engine) {
		e.events = eb
	}
}

// WithEngineTracer sets the tracer for the engine.
func WithEngineTracer(t tracing.Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithEngineLogger sets the logger for the engine.
func WithEngineLogger(l Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithEngineConfig sets the configuration for the engine.
func WithEngineConfig(cfg Config) EngineOption {
	return func(e *Engine) {
		e.config = cfg
	}
}

// NewEngine creates a new Engine with the given options.
// The engine must be configured with at least a store and a catalog before
// accepting submissions; every other dependency has a working default.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		config: DefaultConfig(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.metrics == nil {
		e.metrics = &metrics.NoopMetrics{}
	}
	if e.events == nil {
		e.events = event.NewNoOpEventBus()
	}
	if e.tracer == nil {
		e.tracer = &tracing.NoopTracer{}
	}
	if e.logger == nil {
		e.logger = &defaultLogger{}
	}
	if e.sim == nil {
		e.sim = NewWeightedSimulator(
			WithNetworkDelayBounds(e.config.NetworkDelayMin, e.config.NetworkDelayMax),
			WithResolutionDelayBounds(e.config.ResolutionDelayMin, e.config.ResolutionDelayMax),
		)
	}
	if e.guard == nil && e.store != nil {
		e.guard = NewStoreGuard(e.store, e.config.DuplicateWindow)
	}
	if e.resolver == nil && e.store != nil {
		e.resolver = NewResolver(
			WithResolverStore(e.store),
			WithResolverSimulator(e.sim),
			WithResolverMetrics(e.metrics),
			WithResolverEventBus(e.events),
			WithResolverTracer(e.tracer),
			WithResolverLogger(e.logger),
			WithResolverTimeout(e.config.ResolveTimeout),
		)
	}

	return e
}

// Initiate validates and submits a transaction, returning its immediate
// outcome. PENDING results have the resolver armed before Initiate returns;
// resolution itself happens later in the background.
func (e *Engine) Initiate(ctx context.Context, req InitiateRequest) (*TxResult, error) {
	ctx, span := e.tracer.StartInitiate(ctx, string(req.ServiceType))
	defer span.End()

	// The upstream gateway round-trip is simulated before any validation,
	// matching the latency profile of a real operator call.
	if err := e.waitNetworkDelay(ctx); err != nil {
		span.SetError(err)
		return nil, err
	}

	op, plan, err := e.validate(ctx, &req)
	if err != nil {
		span.SetError(err)
		e.metrics.TxRejected(string(req.ServiceType), rejectReason(err))
		return nil, err
	}

	dup, err := e.guard.IsDuplicate(ctx, &DuplicateCriteria{
		OwnerID:      req.OwnerID,
		ServiceType:  req.ServiceType,
		Identifier:   req.Identifier,
		OperatorCode: req.OperatorCode,
		PlanID:       req.PlanID,
		Amount:       req.Amount,
	})
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("%w: duplicate check: %v", ErrStoreOperationFailed, err)
	}
	if dup {
		e.metrics.DuplicateSuppressed(string(req.ServiceType))
		e.events.Publish(ctx, event.NewEvent(event.EventTxDuplicate).
			WithService(string(req.ServiceType)).
			WithData("ownerId", req.OwnerID).
			WithData("identifier", req.Identifier))
		span.SetError(ErrDuplicateTransaction)
		e.metrics.TxRejected(string(req.ServiceType), rejectReason(ErrDuplicateTransaction))
		return nil, ErrDuplicateTransaction
	}

	now := time.Now()
	tx := &Transaction{
		TransactionID: NewTransactionID(),
		OwnerID:       req.OwnerID,
		ServiceType:   req.ServiceType,
		Identifier:    req.Identifier,
		Operator:      OperatorRef{Name: op.Name, Code: op.Code},
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Status:        e.sim.InitialStatus(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if plan != nil {
		tx.Plan = &PlanSnapshot{
			ID:          plan.ID,
			Name:        plan.Name,
			Amount:      plan.Amount,
			Validity:    plan.Validity,
			Data:        plan.Data,
			Description: plan.Description,
		}
	}
	switch tx.Status {
	case StatusFailed:
		tx.FailureReason = e.sim.FailureReason()
		resolved := now
		tx.ResolvedAt = &resolved
	case StatusSuccess:
		resolved := now
		tx.ResolvedAt = &resolved
	}

	if err := e.store.CreateTransaction(ctx, tx); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("%w: create transaction: %v", ErrStoreOperationFailed, err)
	}

	e.metrics.TxInitiated(string(tx.ServiceType), string(tx.Status))
	e.publishOutcome(ctx, tx, event.EventTxInitiated)

	if tx.Status == StatusPending {
		e.resolver.Schedule(tx.TransactionID, false)
	}

	return e.result(tx), nil
}

// validate runs the submission preconditions in order and resolves the
// operator and plan the transaction will snapshot.
func (e *Engine) validate(ctx context.Context, req *InitiateRequest) (*Operator, *Plan, error) {
	svc, ok := ServiceFor(req.ServiceType)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedService, req.ServiceType)
	}

	if req.OwnerID == "" {
		return nil, nil, ErrMissingOwner
	}

	if !svc.MatchIdentifier(req.Identifier) {
		return nil, nil, fmt.Errorf("%w: %s %q", ErrInvalidIdentifier, svc.IdentifierLabel, req.Identifier)
	}

	if req.OperatorCode == "" {
		return nil, nil, ErrInvalidOperator
	}
	op, err := e.catalog.FindOperator(ctx, req.OperatorCode)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, nil, fmt.Errorf("%w: %q", ErrInvalidOperator, req.OperatorCode)
		}
		return nil, nil, fmt.Errorf("%w: operator lookup: %v", ErrCatalogUnavailable, err)
	}
	if op.ServiceType != req.ServiceType {
		return nil, nil, fmt.Errorf("%w: operator %s serves %s", ErrOperatorServiceMismatch, op.Code, op.ServiceType)
	}

	var plan *Plan
	if svc.PlanRequired {
		if req.PlanID == "" {
			return nil, nil, ErrInvalidPlan
		}
		p, ok := op.PlanByID(req.PlanID)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q", ErrInvalidPlan, req.PlanID)
		}
		if req.Amount != p.Amount {
			return nil, nil, fmt.Errorf("%w: got %.2f, plan %s costs %.2f", ErrAmountMismatch, req.Amount, p.ID, p.Amount)
		}
		plan = p
	} else {
		if req.Amount <= 0 {
			return nil, nil, fmt.Errorf("%w: %.2f", ErrInvalidAmount, req.Amount)
		}
	}

	if !KnownPaymentMethod(req.PaymentMethod) {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, req.PaymentMethod)
	}

	return op, plan, nil
}

// waitNetworkDelay sleeps for a simulated network round-trip, honoring
// context cancellation.
func (e *Engine) waitNetworkDelay(ctx context.Context) error {
	delay := e.sim.NetworkDelay()
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// publishOutcome emits the lifecycle event for a freshly persisted transaction.
func (e *Engine) publishOutcome(ctx context.Context, tx *Transaction, eventType event.EventType) {
	ev := event.NewEvent(eventType).
		WithTxID(tx.TransactionID).
		WithService(string(tx.ServiceType)).
		WithStatus(string(tx.Status)).
		WithData("amount", tx.Amount).
		WithData("operator", tx.Operator.Code)
	e.events.Publish(ctx, ev)

	if tx.Status == StatusFailed {
		e.events.Publish(ctx, event.NewEvent(event.EventTxFailed).
			WithTxID(tx.TransactionID).
			WithService(string(tx.ServiceType)).
			WithStatus(string(tx.Status)).
			WithData("reason", tx.FailureReason))
	}
}

// result builds the caller-facing view of a persisted transaction.
func (e *Engine) result(tx *Transaction) *TxResult {
	res := &TxResult{
		TransactionID:       tx.TransactionID,
		ParentTransactionID: tx.ParentTransactionID,
		Status:              tx.Status,
		FailureReason:       tx.FailureReason,
		Amount:              tx.Amount,
	}
	if tx.Status == StatusPending {
		res.EstimatedResolution = e.config.EstimatedResolution
	}
	return res
}

// rejectReason maps a precondition error to a short metrics label.
func rejectReason(err error) string {
	switch {
	case IsValidationError(err):
		return "validation"
	case IsConflictError(err):
		return "duplicate"
	default:
		return "other"
	}
}

// Status returns a single transaction scoped to its owner.
func (e *Engine) Status(ctx context.Context, txID, ownerID string) (*Transaction, error) {
	return e.store.GetTransaction(ctx, txID, ownerID)
}

// History lists an owner's transactions matching the filter, newest first,
// along with the total match count for pagination.
func (e *Engine) History(ctx context.Context, filter *TxFilter) ([]*Transaction, int64, error) {
	return e.store.ListTransactions(ctx, filter)
}

// AccountSummary aggregates an owner's transaction statistics.
func (e *Engine) AccountSummary(ctx context.Context, ownerID string) (*AccountSummary, error) {
	if ownerID == "" {
		return nil, ErrMissingOwner
	}
	return e.store.Summary(ctx, ownerID)
}

// Subscribe subscribes a handler to a specific event type.
func (e *Engine) Subscribe(eventType event.EventType, handler event.EventHandler) error {
	return e.events.Subscribe(eventType, handler)
}

// SubscribeAll subscribes a handler to all events.
func (e *Engine) SubscribeAll(handler event.EventHandler) error {
	return e.events.SubscribeAll(handler)
}

// Resolver returns the underlying resolver.
// This is useful for advanced use cases like recovery.
func (e *Engine) Resolver() *Resolver {
	return e.resolver
}

// Store returns the underlying store.
func (e *Engine) Store() TxStore {
	return e.store
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}
