package recharge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// ============================================================================
// Test doubles
// ============================================================================

// stubSimulator returns scripted outcomes with zero delays.
type stubSimulator struct {
	mu      sync.Mutex
	initial Status
	retry   Status
	final   Status
	reason  string

	resolutionDelay time.Duration
}

func newStubSimulator() *stubSimulator {
	return &stubSimulator{
		initial: StatusSuccess,
		retry:   StatusSuccess,
		final:   StatusSuccess,
		reason:  "Technical error occurred. Please retry.",
	}
}

func (s *stubSimulator) set(initial, retry, final Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initial, s.retry, s.final = initial, retry, final
}

func (s *stubSimulator) InitialStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initial
}

func (s *stubSimulator) RetryStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retry
}

func (s *stubSimulator) FinalStatus(bool) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.final
}

func (s *stubSimulator) FailureReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

func (s *stubSimulator) setResolutionDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolutionDelay = d
}

func (s *stubSimulator) NetworkDelay() time.Duration { return 0 }

func (s *stubSimulator) ResolutionDelay(bool) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolutionDelay
}

// mockStore is an in-package TxStore double with optional scripted failures.
type mockStore struct {
	mu   sync.Mutex
	byID map[string]*Transaction

	createErr error
	findErr   error
}

func newMockStore() *mockStore {
	return &mockStore{byID: make(map[string]*Transaction)}
}

func (m *mockStore) CreateTransaction(_ context.Context, tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.byID[tx.TransactionID]; exists {
		return ErrTransactionAlreadyExists
	}
	m.byID[tx.TransactionID] = tx.Clone()
	return nil
}

func (m *mockStore) GetTransaction(_ context.Context, txID, ownerID string) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.byID[txID]
	if !ok || (ownerID != "" && tx.OwnerID != ownerID) {
		return nil, ErrTransactionNotFound
	}
	return tx.Clone(), nil
}

func (m *mockStore) FindDuplicate(_ context.Context, c *DuplicateCriteria) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, tx := range m.byID {
		if tx.CreatedAt.Before(c.Since) {
			continue
		}
		if tx.OwnerID != c.OwnerID || tx.ServiceType != c.ServiceType ||
			tx.Identifier != c.Identifier || tx.Operator.Code != c.OperatorCode {
			continue
		}
		if c.PlanID != "" {
			if tx.Plan == nil || tx.Plan.ID != c.PlanID {
				continue
			}
		} else if tx.Amount != c.Amount {
			continue
		}
		return tx.Clone(), nil
	}
	return nil, nil
}

func (m *mockStore) ResolveTransaction(_ context.Context, txID string, status Status, failureReason string, resolvedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.byID[txID]
	if !ok {
		return false, ErrTransactionNotFound
	}
	if tx.Status != StatusPending {
		return false, nil
	}
	tx.Status = status
	if status == StatusFailed {
		tx.FailureReason = failureReason
	}
	resolved := resolvedAt
	tx.ResolvedAt = &resolved
	tx.UpdatedAt = resolvedAt
	return true, nil
}

func (m *mockStore) IncrementRetryCount(_ context.Context, txID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.byID[txID]
	if !ok {
		return ErrTransactionNotFound
	}
	tx.RetryCount++
	return nil
}

func (m *mockStore) ListTransactions(_ context.Context, filter *TxFilter) ([]*Transaction, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Transaction
	for _, tx := range m.byID {
		if filter.OwnerID != "" && tx.OwnerID != filter.OwnerID {
			continue
		}
		out = append(out, tx.Clone())
	}
	return out, int64(len(out)), nil
}

func (m *mockStore) UnresolvedTransactions(_ context.Context, olderThan time.Duration) ([]*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	threshold := time.Now().Add(-olderThan)
	var out []*Transaction
	for _, tx := range m.byID {
		if tx.Status == StatusPending && tx.CreatedAt.Before(threshold) {
			out = append(out, tx.Clone())
		}
	}
	return out, nil
}

func (m *mockStore) Summary(_ context.Context, ownerID string) (*AccountSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary := &AccountSummary{}
	for _, tx := range m.byID {
		if tx.OwnerID != ownerID {
			continue
		}
		summary.TotalTransactions++
		summary.TotalAmount += tx.Amount
	}
	return summary, nil
}

func (m *mockStore) get(txID string) *Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx, ok := m.byID[txID]; ok {
		return tx.Clone()
	}
	return nil
}

// mockCatalog serves a fixed operator set.
type mockCatalog struct {
	operators map[string]*Operator
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		operators: map[string]*Operator{
			"AIR": {
				Name:        "Airtel",
				Code:        "AIR",
				ServiceType: ServiceMobile,
				Plans: []Plan{
					{ID: "plan_air_199", Amount: 199, Validity: "28 days"},
					{ID: "plan_air_299", Amount: 299, Validity: "28 days"},
				},
			},
			"TPD": {
				Name:        "Tata Play DTH",
				Code:        "TPD",
				ServiceType: ServiceDTH,
			},
			"BES": {
				Name:        "BESCOM Electricity",
				Code:        "BES",
				ServiceType: ServiceBill,
			},
		},
	}
}

func (c *mockCatalog) FindOperator(_ context.Context, code string) (*Operator, error) {
	op, ok := c.operators[code]
	if !ok {
		return nil, ErrOperatorNotFound
	}
	return op, nil
}

func (c *mockCatalog) ListOperators(_ context.Context, serviceType ServiceType) ([]*Operator, error) {
	var out []*Operator
	for _, op := range c.operators {
		if serviceType != "" && op.ServiceType != serviceType {
			continue
		}
		out = append(out, op)
	}
	return out, nil
}

// newTestEngine wires an engine with zero-delay doubles.
func newTestEngine(t *testing.T) (*Engine, *mockStore, *stubSimulator) {
	t.Helper()
	store := newMockStore()
	sim := newStubSimulator()
	engine := NewEngine(
		WithEngineStore(store),
		WithEngineCatalog(newMockCatalog()),
		WithEngineSimulator(sim),
	)
	t.Cleanup(engine.Resolver().Stop)
	return engine, store, sim
}

func mobileRequest() InitiateRequest {
	return InitiateRequest{
		OwnerID:       "user-1",
		ServiceType:   ServiceMobile,
		Identifier:    "9876543210",
		OperatorCode:  "AIR",
		PlanID:        "plan_air_199",
		Amount:        199,
		PaymentMethod: PaymentUPI,
	}
}

// ============================================================================
// Initiate validation
// ============================================================================

func TestInitiate_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*InitiateRequest)
		wantErr error
	}{
		{
			name:    "unsupported service",
			mutate:  func(r *InitiateRequest) { r.ServiceType = "BROADBAND" },
			wantErr: ErrUnsupportedService,
		},
		{
			name:    "missing owner",
			mutate:  func(r *InitiateRequest) { r.OwnerID = "" },
			wantErr: ErrMissingOwner,
		},
		{
			name:    "empty identifier",
			mutate:  func(r *InitiateRequest) { r.Identifier = "" },
			wantErr: ErrInvalidIdentifier,
		},
		{
			name:    "identifier pattern mismatch",
			mutate:  func(r *InitiateRequest) { r.Identifier = "12345" },
			wantErr: ErrInvalidIdentifier,
		},
		{
			name:    "identifier wrong leading digit",
			mutate:  func(r *InitiateRequest) { r.Identifier = "5876543210" },
			wantErr: ErrInvalidIdentifier,
		},
		{
			name:    "empty operator",
			mutate:  func(r *InitiateRequest) { r.OperatorCode = "" },
			wantErr: ErrInvalidOperator,
		},
		{
			name:    "unknown operator",
			mutate:  func(r *InitiateRequest) { r.OperatorCode = "XYZ" },
			wantErr: ErrInvalidOperator,
		},
		{
			name: "operator service mismatch",
			mutate: func(r *InitiateRequest) {
				r.OperatorCode = "TPD" // DTH operator on a MOBILE request
			},
			wantErr: ErrOperatorServiceMismatch,
		},
		{
			name:    "missing plan on plan-required service",
			mutate:  func(r *InitiateRequest) { r.PlanID = "" },
			wantErr: ErrInvalidPlan,
		},
		{
			name:    "unknown plan",
			mutate:  func(r *InitiateRequest) { r.PlanID = "plan_unknown" },
			wantErr: ErrInvalidPlan,
		},
		{
			name:    "amount does not match plan",
			mutate:  func(r *InitiateRequest) { r.Amount = 200 },
			wantErr: ErrAmountMismatch,
		},
		{
			name:    "invalid payment method",
			mutate:  func(r *InitiateRequest) { r.PaymentMethod = "Cheque" },
			wantErr: ErrInvalidPaymentMethod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, store, _ := newTestEngine(t)

			req := mobileRequest()
			tt.mutate(&req)

			_, err := engine.Initiate(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Initiate() error = %v, want %v", err, tt.wantErr)
			}
			if !IsValidationError(err) {
				t.Errorf("error %v should classify as validation", err)
			}
			if len(store.byID) != 0 {
				t.Error("no transaction should be persisted on validation failure")
			}
		})
	}
}

func TestInitiate_PlanFreeServiceAmountValidation(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	req := InitiateRequest{
		OwnerID:       "user-1",
		ServiceType:   ServiceDTH,
		Identifier:    "123456789",
		OperatorCode:  "TPD",
		Amount:        0,
		PaymentMethod: PaymentCard,
	}

	_, err := engine.Initiate(context.Background(), req)
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("Initiate() error = %v, want ErrInvalidAmount", err)
	}

	req.Amount = -50
	_, err = engine.Initiate(context.Background(), req)
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("Initiate() error = %v, want ErrInvalidAmount", err)
	}
}

// ============================================================================
// Initiate outcomes
// ============================================================================

func TestInitiate_Success(t *testing.T) {
	engine, store, sim := newTestEngine(t)
	sim.set(StatusSuccess, StatusSuccess, StatusSuccess)

	res, err := engine.Initiate(context.Background(), mobileRequest())
	if err != nil {
		t.Fatalf("Initiate() error = %v", err)
	}

	if res.Status != StatusSuccess {
		t.Errorf("status = %s, want SUCCESS", res.Status)
	}
	if res.Amount != 199 {
		t.Errorf("amount = %v, want 199", res.Amount)
	}
	if res.EstimatedResolution != 0 {
		t.Error("terminal result should not carry an estimated resolution")
	}

	tx := store.get(res.TransactionID)
	if tx == nil {
		t.Fatal("transaction not persisted")
	}
	if tx.ResolvedAt == nil {
		t.Error("terminal transaction should have ResolvedAt set at creation")
	}
	if tx.Plan == nil || tx.Plan.ID != "plan_air_199" {
		t.Errorf("plan snapshot = %+v, want plan_air_199", tx.Plan)
	}
	if tx.Operator.Code != "AIR" || tx.Operator.Name != "Airtel" {
		t.Errorf("operator snapshot = %+v", tx.Operator)
	}
	if tx.RetryCount != 0 {
		t.Errorf("retry count = %d, want 0", tx.RetryCount)
	}
}

func TestInitiate_Failed(t *testing.T) {
	engine, store, sim := newTestEngine(t)
	sim.set(StatusFailed, StatusSuccess, StatusSuccess)

	res, err := engine.Initiate(context.Background(), mobileRequest())
	if err != nil {
		t.Fatalf("Initiate() error = %v", err)
	}

	if res.Status != StatusFailed {
		t.Fatalf("status = %s, want FAILED", res.Status)
	}
	if res.FailureReason == "" {
		t.Error("failed result should carry a failure reason")
	}

	tx := store.get(res.TransactionID)
	if tx.FailureReason == "" {
		t.Error("failed transaction should persist a failure reason")
	}
	if tx.ResolvedAt == nil {
		t.Error("failed transaction should have ResolvedAt set at creation")
	}
}

func TestInitiate_PendingArmsResolver(t *testing.T) {
	engine, store, sim := newTestEngine(t)
	sim.set(StatusPending, StatusSuccess, StatusSuccess)

	res, err := engine.Initiate(context.Background(), mobileRequest())
	if err != nil {
		t.Fatalf("Initiate() error = %v", err)
	}

	if res.Status != StatusPending {
		t.Fatalf("status = %s, want PENDING", res.Status)
	}
	if res.EstimatedResolution <= 0 {
		t.Error("pending result should carry an estimated resolution")
	}

	// The zero-delay stub resolves almost immediately.
	waitForStatus(t, store, res.TransactionID, StatusSuccess)

	tx := store.get(res.TransactionID)
	if tx.ResolvedAt == nil {
		t.Error("resolved transaction should have ResolvedAt")
	}
}

func TestInitiate_PendingResolvesToFailure(t *testing.T) {
	engine, store, sim := newTestEngine(t)
	sim.set(StatusPending, StatusSuccess, StatusFailed)

	res, err := engine.Initiate(context.Background(), mobileRequest())
	if err != nil {
		t.Fatalf("Initiate() error = %v", err)
	}

	waitForStatus(t, store, res.TransactionID, StatusFailed)

	tx := store.get(res.TransactionID)
	if tx.FailureReason == "" {
		t.Error("failed resolution should persist a failure reason")
	}
}

func waitForStatus(t *testing.T, store *mockStore, txID string, want Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if tx := store.get(txID); tx != nil && tx.Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	tx := store.get(txID)
	t.Fatalf("transaction %s did not reach %s in time, status=%v", txID, want, tx.Status)
}

// ============================================================================
// Duplicate suppression
// ============================================================================

func TestInitiate_DuplicateRejected(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	if _, err := engine.Initiate(context.Background(), mobileRequest()); err != nil {
		t.Fatalf("first Initiate() error = %v", err)
	}

	_, err := engine.Initiate(context.Background(), mobileRequest())
	if !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("second Initiate() error = %v, want ErrDuplicateTransaction", err)
	}
	if !IsConflictError(err) {
		t.Error("duplicate error should classify as conflict")
	}
}

func TestInitiate_DuplicateMatchIgnoresStatus(t *testing.T) {
	engine, _, sim := newTestEngine(t)
	sim.set(StatusFailed, StatusSuccess, StatusSuccess)

	if _, err := engine.Initiate(context.Background(), mobileRequest()); err != nil {
		t.Fatalf("first Initiate() error = %v", err)
	}

	// Even though the first attempt failed, the same tuple is suppressed.
	sim.set(StatusSuccess, StatusSuccess, StatusSuccess)
	_, err := engine.Initiate(context.Background(), mobileRequest())
	if !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("Initiate() error = %v, want ErrDuplicateTransaction", err)
	}
}

func TestInitiate_DifferentPlanIsNotDuplicate(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	if _, err := engine.Initiate(context.Background(), mobileRequest()); err != nil {
		t.Fatalf("first Initiate() error = %v", err)
	}

	req := mobileRequest()
	req.PlanID = "plan_air_299"
	req.Amount = 299
	if _, err := engine.Initiate(context.Background(), req); err != nil {
		t.Fatalf("different plan should not be a duplicate, got %v", err)
	}
}

func TestInitiate_DifferentOwnerIsNotDuplicate(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	if _, err := engine.Initiate(context.Background(), mobileRequest()); err != nil {
		t.Fatalf("first Initiate() error = %v", err)
	}

	req := mobileRequest()
	req.OwnerID = "user-2"
	if _, err := engine.Initiate(context.Background(), req); err != nil {
		t.Fatalf("different owner should not be a duplicate, got %v", err)
	}
}

func TestInitiate_GuardStoreFailure(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	store.findErr = errors.New("connection reset")

	_, err := engine.Initiate(context.Background(), mobileRequest())
	if !errors.Is(err, ErrStoreOperationFailed) {
		t.Fatalf("Initiate() error = %v, want ErrStoreOperationFailed", err)
	}
}

// ============================================================================
// Projections
// ============================================================================

func TestStatus_OwnerScoped(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	res, err := engine.Initiate(context.Background(), mobileRequest())
	if err != nil {
		t.Fatalf("Initiate() error = %v", err)
	}

	if _, err := engine.Status(context.Background(), res.TransactionID, "user-1"); err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}

	_, err = engine.Status(context.Background(), res.TransactionID, "someone-else")
	if !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("foreign owner lookup error = %v, want ErrTransactionNotFound", err)
	}
}

func TestAccountSummary_RequiresOwner(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.AccountSummary(context.Background(), "")
	if !errors.Is(err, ErrMissingOwner) {
		t.Fatalf("AccountSummary(\"\") error = %v, want ErrMissingOwner", err)
	}
}

func TestInitiate_ContextCancelledDuringDelay(t *testing.T) {
	store := newMockStore()
	engine := NewEngine(
		WithEngineStore(store),
		WithEngineCatalog(newMockCatalog()),
		WithEngineSimulator(NewWeightedSimulator(
			WithNetworkDelayBounds(time.Second, 2*time.Second),
		)),
	)
	t.Cleanup(engine.Resolver().Stop)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Initiate(ctx, mobileRequest())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Initiate() error = %v, want context.Canceled", err)
	}
	if len(store.byID) != 0 {
		t.Error("no transaction should be persisted after cancellation")
	}
}
