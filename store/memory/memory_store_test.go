package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	recharge "github.com/Tarunvoff/mobile-backend"
)

func newTx(ownerID string, status recharge.Status, createdAt time.Time) *recharge.Transaction {
	return &recharge.Transaction{
		TransactionID: recharge.NewTransactionID(),
		OwnerID:       ownerID,
		ServiceType:   recharge.ServiceMobile,
		Identifier:    "9876543210",
		Operator:      recharge.OperatorRef{Name: "Airtel", Code: "AIR"},
		Plan:          &recharge.PlanSnapshot{ID: "plan_air_199", Amount: 199},
		Amount:        199,
		PaymentMethod: recharge.PaymentUPI,
		Status:        status,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

func mustCreate(t *testing.T, store *MemoryStore, tx *recharge.Transaction) {
	t.Helper()
	if err := store.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
}

func TestCreateAndGet(t *testing.T) {
	store := New()
	tx := newTx("user-1", recharge.StatusPending, time.Now())
	mustCreate(t, store, tx)

	if tx.ID == 0 {
		t.Error("CreateTransaction should assign a row id")
	}

	got, err := store.GetTransaction(context.Background(), tx.TransactionID, "user-1")
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.TransactionID != tx.TransactionID || got.Amount != 199 {
		t.Errorf("got %+v", got)
	}

	// Stored copy must be isolated from caller mutations.
	got.Amount = 999
	again, err := store.GetTransaction(context.Background(), tx.TransactionID, "")
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if again.Amount != 199 {
		t.Error("store must return independent copies")
	}
}

func TestCreate_DuplicateID(t *testing.T) {
	store := New()
	tx := newTx("user-1", recharge.StatusPending, time.Now())
	mustCreate(t, store, tx)

	dup := newTx("user-1", recharge.StatusPending, time.Now())
	dup.TransactionID = tx.TransactionID
	err := store.CreateTransaction(context.Background(), dup)
	if !errors.Is(err, recharge.ErrTransactionAlreadyExists) {
		t.Fatalf("CreateTransaction() error = %v, want ErrTransactionAlreadyExists", err)
	}
}

func TestGet_OwnerScope(t *testing.T) {
	store := New()
	tx := newTx("user-1", recharge.StatusSuccess, time.Now())
	mustCreate(t, store, tx)

	if _, err := store.GetTransaction(context.Background(), tx.TransactionID, "user-2"); !errors.Is(err, recharge.ErrTransactionNotFound) {
		t.Errorf("foreign owner error = %v, want ErrTransactionNotFound", err)
	}

	// Empty owner is the unscoped internal lookup.
	if _, err := store.GetTransaction(context.Background(), tx.TransactionID, ""); err != nil {
		t.Errorf("unscoped lookup error = %v", err)
	}

	if _, err := store.GetTransaction(context.Background(), "TXNMISSING00", ""); !errors.Is(err, recharge.ErrTransactionNotFound) {
		t.Errorf("missing id error = %v, want ErrTransactionNotFound", err)
	}
}

func TestFindDuplicate(t *testing.T) {
	store := New()
	now := time.Now()
	tx := newTx("user-1", recharge.StatusFailed, now)
	mustCreate(t, store, tx)

	base := recharge.DuplicateCriteria{
		OwnerID:      "user-1",
		ServiceType:  recharge.ServiceMobile,
		Identifier:   "9876543210",
		OperatorCode: "AIR",
		PlanID:       "plan_air_199",
		Amount:       199,
		Since:        now.Add(-time.Minute),
	}

	tests := []struct {
		name   string
		mutate func(*recharge.DuplicateCriteria)
		want   bool
	}{
		{"exact match", func(*recharge.DuplicateCriteria) {}, true},
		{"status ignored", func(*recharge.DuplicateCriteria) {}, true},
		{"outside window", func(c *recharge.DuplicateCriteria) { c.Since = now.Add(time.Minute) }, false},
		{"different owner", func(c *recharge.DuplicateCriteria) { c.OwnerID = "user-2" }, false},
		{"different identifier", func(c *recharge.DuplicateCriteria) { c.Identifier = "9123456789" }, false},
		{"different operator", func(c *recharge.DuplicateCriteria) { c.OperatorCode = "JIO" }, false},
		{"different plan", func(c *recharge.DuplicateCriteria) { c.PlanID = "plan_air_299" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			match, err := store.FindDuplicate(context.Background(), &c)
			if err != nil {
				t.Fatalf("FindDuplicate() error = %v", err)
			}
			if (match != nil) != tt.want {
				t.Errorf("match = %v, want match %v", match, tt.want)
			}
		})
	}
}

func TestFindDuplicate_AmountMatchWithoutPlan(t *testing.T) {
	store := New()
	now := time.Now()
	tx := newTx("user-1", recharge.StatusSuccess, now)
	tx.ServiceType = recharge.ServiceBill
	tx.Plan = nil
	tx.Amount = 1450
	mustCreate(t, store, tx)

	c := recharge.DuplicateCriteria{
		OwnerID:      "user-1",
		ServiceType:  recharge.ServiceBill,
		Identifier:   "9876543210",
		OperatorCode: "AIR",
		Amount:       1450,
		Since:        now.Add(-time.Minute),
	}
	match, err := store.FindDuplicate(context.Background(), &c)
	if err != nil {
		t.Fatalf("FindDuplicate() error = %v", err)
	}
	if match == nil {
		t.Fatal("plan-free duplicate should match on amount")
	}

	c.Amount = 1451
	match, err = store.FindDuplicate(context.Background(), &c)
	if err != nil {
		t.Fatalf("FindDuplicate() error = %v", err)
	}
	if match != nil {
		t.Error("different amount should not match without a plan")
	}
}

func TestResolveTransaction_CAS(t *testing.T) {
	store := New()
	tx := newTx("user-1", recharge.StatusPending, time.Now())
	mustCreate(t, store, tx)

	resolvedAt := time.Now()
	applied, err := store.ResolveTransaction(context.Background(), tx.TransactionID, recharge.StatusFailed, "Operator server timeout. Please try again later.", resolvedAt)
	if err != nil {
		t.Fatalf("ResolveTransaction() error = %v", err)
	}
	if !applied {
		t.Fatal("first resolution should apply")
	}

	got, _ := store.GetTransaction(context.Background(), tx.TransactionID, "")
	if got.Status != recharge.StatusFailed || got.FailureReason == "" || got.ResolvedAt == nil {
		t.Errorf("resolved transaction = %+v", got)
	}

	// Second firing loses the CAS and is harmless.
	applied, err = store.ResolveTransaction(context.Background(), tx.TransactionID, recharge.StatusSuccess, "", time.Now())
	if err != nil {
		t.Fatalf("ResolveTransaction() error = %v", err)
	}
	if applied {
		t.Error("second resolution should not apply")
	}

	again, _ := store.GetTransaction(context.Background(), tx.TransactionID, "")
	if again.Status != recharge.StatusFailed {
		t.Errorf("status changed to %s after lost CAS", again.Status)
	}

	_, err = store.ResolveTransaction(context.Background(), "TXNMISSING00", recharge.StatusSuccess, "", time.Now())
	if !errors.Is(err, recharge.ErrTransactionNotFound) {
		t.Errorf("missing id error = %v, want ErrTransactionNotFound", err)
	}
}

func TestIncrementRetryCount(t *testing.T) {
	store := New()
	tx := newTx("user-1", recharge.StatusFailed, time.Now())
	mustCreate(t, store, tx)

	for i := 0; i < 3; i++ {
		if err := store.IncrementRetryCount(context.Background(), tx.TransactionID); err != nil {
			t.Fatalf("IncrementRetryCount() error = %v", err)
		}
	}

	got, _ := store.GetTransaction(context.Background(), tx.TransactionID, "")
	if got.RetryCount != 3 {
		t.Errorf("retry count = %d, want 3", got.RetryCount)
	}

	if err := store.IncrementRetryCount(context.Background(), "TXNMISSING00"); !errors.Is(err, recharge.ErrTransactionNotFound) {
		t.Errorf("missing id error = %v, want ErrTransactionNotFound", err)
	}
}

func TestListTransactions(t *testing.T) {
	store := New()
	base := time.Now().Add(-time.Hour)

	var ids []string
	for i := 0; i < 5; i++ {
		tx := newTx("user-1", recharge.StatusSuccess, base.Add(time.Duration(i)*time.Minute))
		tx.Identifier = fmt.Sprintf("98765432%02d", i)
		mustCreate(t, store, tx)
		ids = append(ids, tx.TransactionID)
	}
	mustCreate(t, store, newTx("user-2", recharge.StatusFailed, base))

	list, total, err := store.ListTransactions(context.Background(), recharge.NewTxFilter("user-1"))
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if total != 5 || len(list) != 5 {
		t.Fatalf("total = %d, len = %d, want 5", total, len(list))
	}

	// Newest first.
	if list[0].TransactionID != ids[4] || list[4].TransactionID != ids[0] {
		t.Error("list should be ordered newest first")
	}

	// Pagination keeps the full total.
	page, total, err := store.ListTransactions(context.Background(), recharge.NewTxFilter("user-1").WithPagination(2, 2))
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if total != 5 {
		t.Errorf("paged total = %d, want 5", total)
	}
	if len(page) != 2 || page[0].TransactionID != ids[2] {
		t.Errorf("page = %v", page)
	}

	// Status filter.
	failed, _, err := store.ListTransactions(context.Background(), recharge.NewTxFilter("user-2").WithStatus(recharge.StatusFailed))
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(failed) != 1 || failed[0].OwnerID != "user-2" {
		t.Errorf("failed list = %v", failed)
	}

	// Identifier filter.
	byIdent, _, err := store.ListTransactions(context.Background(), recharge.NewTxFilter("user-1").WithIdentifier("9876543203"))
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(byIdent) != 1 {
		t.Errorf("identifier filter returned %d rows, want 1", len(byIdent))
	}
}

func TestUnresolvedTransactions(t *testing.T) {
	store := New()
	now := time.Now()

	stale := newTx("user-1", recharge.StatusPending, now.Add(-5*time.Minute))
	staler := newTx("user-1", recharge.StatusPending, now.Add(-10*time.Minute))
	fresh := newTx("user-1", recharge.StatusPending, now.Add(-10*time.Second))
	settled := newTx("user-1", recharge.StatusSuccess, now.Add(-10*time.Minute))
	for _, tx := range []*recharge.Transaction{stale, staler, fresh, settled} {
		mustCreate(t, store, tx)
	}

	pending, err := store.UnresolvedTransactions(context.Background(), 2*time.Minute)
	if err != nil {
		t.Fatalf("UnresolvedTransactions() error = %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("len = %d, want 2", len(pending))
	}
	// Oldest first.
	if pending[0].TransactionID != staler.TransactionID || pending[1].TransactionID != stale.TransactionID {
		t.Error("unresolved list should be ordered oldest first")
	}
}

func TestSummary(t *testing.T) {
	store := New()
	now := time.Now()

	success := newTx("user-1", recharge.StatusSuccess, now.Add(-3*time.Minute))
	failed := newTx("user-1", recharge.StatusFailed, now.Add(-2*time.Minute))
	pending := newTx("user-1", recharge.StatusPending, now.Add(-time.Minute))
	pending.ServiceType = recharge.ServiceDTH
	pending.Plan = nil
	pending.Amount = 300
	other := newTx("user-2", recharge.StatusSuccess, now)
	for _, tx := range []*recharge.Transaction{success, failed, pending, other} {
		mustCreate(t, store, tx)
	}

	summary, err := store.Summary(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}

	if summary.TotalTransactions != 3 {
		t.Errorf("total = %d, want 3", summary.TotalTransactions)
	}
	if summary.Success != 1 || summary.Failed != 1 || summary.Pending != 1 {
		t.Errorf("breakdown = %d/%d/%d", summary.Success, summary.Failed, summary.Pending)
	}
	if summary.TotalAmount != 199+199+300 {
		t.Errorf("total amount = %v", summary.TotalAmount)
	}
	if summary.SuccessRate != 33 {
		t.Errorf("success rate = %d, want 33", summary.SuccessRate)
	}
	if summary.LastTransaction == nil || summary.LastTransaction.TransactionID != pending.TransactionID {
		t.Error("last transaction should be the newest for the owner")
	}

	if len(summary.Services) != 2 {
		t.Fatalf("services = %d, want 2", len(summary.Services))
	}
	// MOBILE has two transactions and sorts first.
	if summary.Services[0].ServiceType != recharge.ServiceMobile || summary.Services[0].TotalTransactions != 2 {
		t.Errorf("first service = %+v", summary.Services[0])
	}

	empty, err := store.Summary(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if empty.TotalTransactions != 0 || empty.SuccessRate != 0 || empty.LastTransaction != nil {
		t.Errorf("empty summary = %+v", empty)
	}
}
