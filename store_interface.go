package recharge

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OperatorRef is the denormalized operator snapshot stored on each
// transaction. It is a value copy taken at creation time so later catalog
// edits never alter historical records.
type OperatorRef struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// PlanSnapshot is the denormalized plan snapshot stored on plan-required
// transactions. Like OperatorRef it is a value copy, not a live reference.
type PlanSnapshot struct {
	ID          string  `json:"id"`
	Name        string  `json:"name,omitempty"`
	Amount      float64 `json:"amount"`
	Validity    string  `json:"validity,omitempty"`
	Data        string  `json:"data,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Transaction is a recharge transaction record.
type Transaction struct {
	// ID is the auto-increment primary key (storage backends that use one).
	ID int64 `json:"-"`

	// TransactionID is the globally unique, human-inspectable identifier,
	// generated at creation and immutable.
	TransactionID string `json:"transactionId"`

	// OwnerID is the account that owns this transaction. All querying is
	// scoped by it.
	OwnerID string `json:"ownerId"`

	// ServiceType is the recharge category, immutable after creation.
	ServiceType ServiceType `json:"serviceType"`

	// Identifier is the subscriber/account identifier being recharged.
	Identifier string `json:"identifier"`

	// Operator is the operator snapshot at time of transaction.
	Operator OperatorRef `json:"operator"`

	// Plan is the plan snapshot; present iff the service type requires a plan.
	Plan *PlanSnapshot `json:"plan,omitempty"`

	// Amount is the transaction amount, positive.
	Amount float64 `json:"amount"`

	// PaymentMethod is the instrument used to fund the transaction.
	PaymentMethod PaymentMethod `json:"paymentMethod"`

	// Status is the settlement status. It transitions at most once,
	// PENDING to a terminal status.
	Status Status `json:"status"`

	// FailureReason is present iff Status is FAILED.
	FailureReason string `json:"failureReason,omitempty"`

	// RetryCount on a chain root equals the number of retries ever spawned
	// from that chain. It stays zero on retry transactions themselves.
	RetryCount int `json:"retryCount"`

	// ParentTransactionID is set only on retry-spawned transactions and
	// always points at the chain root, never at an intermediate retry.
	ParentTransactionID string `json:"parentTransactionId,omitempty"`

	// CreatedAt is when the transaction was created, immutable.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt reflects the latest mutation (resolution, retry count bump).
	UpdatedAt time.Time `json:"updatedAt"`

	// ResolvedAt is set exactly when the status leaves PENDING, or at
	// creation if the transaction was created already terminal.
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

// IsTerminal returns true if the transaction has reached a terminal status.
func (t *Transaction) IsTerminal() bool {
	return IsTerminal(t.Status)
}

// IsRetry reports whether this transaction was spawned by a retry.
func (t *Transaction) IsRetry() bool {
	return t.ParentTransactionID != ""
}

// RootID returns the id of the chain root: the parent for retries, the
// transaction's own id otherwise.
func (t *Transaction) RootID() string {
	if t.ParentTransactionID != "" {
		return t.ParentTransactionID
	}
	return t.TransactionID
}

// Clone returns a deep copy of the transaction.
func (t *Transaction) Clone() *Transaction {
	clone := *t
	if t.Plan != nil {
		plan := *t.Plan
		clone.Plan = &plan
	}
	if t.ResolvedAt != nil {
		resolved := *t.ResolvedAt
		clone.ResolvedAt = &resolved
	}
	return &clone
}

// NewTransactionID generates a transaction identifier: a TXN prefix followed
// by ten uppercase hex characters drawn from a random UUID.
func NewTransactionID() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "TXN" + strings.ToUpper(raw[:10])
}

// DuplicateCriteria is the identity tuple matched by the duplicate guard.
// Status is intentionally not part of the tuple: even a failed transaction
// suppresses resubmission inside the window.
type DuplicateCriteria struct {
	// OwnerID scopes the match to one account.
	OwnerID string

	// ServiceType, Identifier and OperatorCode identify the recharge target.
	ServiceType  ServiceType
	Identifier   string
	OperatorCode string

	// PlanID is matched when set (plan-required services); otherwise Amount
	// is matched instead.
	PlanID string
	Amount float64

	// Since is the lower bound of the trailing window; records created at or
	// after it are considered.
	Since time.Time
}

// TxFilter defines owner-scoped filters for listing transactions.
type TxFilter struct {
	// OwnerID scopes the listing; required.
	OwnerID string

	// Status filters by settlement status (multiple allowed).
	Status []Status

	// ServiceType filters by recharge category when non-empty.
	ServiceType ServiceType

	// Identifier filters by the subscriber identifier when non-empty.
	Identifier string

	// TransactionID filters by exact transaction id when non-empty.
	TransactionID string

	// StartTime/EndTime bound the creation time when non-zero.
	StartTime time.Time
	EndTime   time.Time

	// Limit and Offset paginate the newest-first listing.
	Limit  int
	Offset int
}

// NewTxFilter creates a TxFilter for one owner with default pagination.
func NewTxFilter(ownerID string) *TxFilter {
	return &TxFilter{
		OwnerID: ownerID,
		Limit:   20,
		Offset:  0,
	}
}

// WithStatus adds status filters.
func (f *TxFilter) WithStatus(status ...Status) *TxFilter {
	f.Status = append(f.Status, status...)
	return f
}

// WithServiceType sets the service type filter.
func (f *TxFilter) WithServiceType(serviceType ServiceType) *TxFilter {
	f.ServiceType = serviceType
	return f
}

// WithIdentifier sets the identifier filter.
func (f *TxFilter) WithIdentifier(identifier string) *TxFilter {
	f.Identifier = strings.TrimSpace(identifier)
	return f
}

// WithTransactionID sets the exact transaction id filter.
func (f *TxFilter) WithTransactionID(txID string) *TxFilter {
	f.TransactionID = strings.TrimSpace(txID)
	return f
}

// WithTimeRange sets the creation time range filter.
func (f *TxFilter) WithTimeRange(start, end time.Time) *TxFilter {
	f.StartTime = start
	f.EndTime = end
	return f
}

// WithPagination sets pagination parameters.
func (f *TxFilter) WithPagination(limit, offset int) *TxFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

// ServiceSummary aggregates one owner's transactions for one service type.
type ServiceSummary struct {
	ServiceType       ServiceType `json:"serviceType"`
	Name              string      `json:"name"`
	TotalTransactions int64       `json:"totalTransactions"`
	TotalAmount       float64     `json:"totalAmount"`
	Success           int64       `json:"success"`
	Failed            int64       `json:"failed"`
	Pending           int64       `json:"pending"`
}

// AccountSummary aggregates one owner's transaction history.
type AccountSummary struct {
	TotalTransactions int64 `json:"totalTransactions"`

	// TotalAmount sums all transaction amounts regardless of status.
	TotalAmount float64 `json:"totalAmount"`

	// SuccessRate is the percentage of transactions that succeeded, rounded
	// to the nearest integer; zero when there are no transactions.
	SuccessRate int `json:"successRate"`

	Success int64 `json:"success"`
	Failed  int64 `json:"failed"`
	Pending int64 `json:"pending"`

	// Services is the per-service breakdown ordered by transaction count,
	// highest first.
	Services []*ServiceSummary `json:"services"`

	// LastTransaction is the owner's most recent transaction, nil when the
	// history is empty.
	LastTransaction *Transaction `json:"lastTransaction,omitempty"`
}

// TxStore defines the durable storage interface for transactions.
// Implemented by store/mysql and store/memory.
type TxStore interface {
	// CreateTransaction persists a new transaction in one atomic insert.
	// A transaction id collision returns ErrTransactionAlreadyExists.
	CreateTransaction(ctx context.Context, tx *Transaction) error

	// GetTransaction retrieves a transaction by id. A non-empty ownerID
	// scopes the lookup to that owner; the empty string is unscoped and is
	// reserved for internal callers (resolver, recovery sweep).
	// Returns ErrTransactionNotFound when absent or owned by someone else.
	GetTransaction(ctx context.Context, txID, ownerID string) (*Transaction, error)

	// FindDuplicate returns a transaction matching the identity tuple
	// created at or after c.Since, or nil when no match exists.
	FindDuplicate(ctx context.Context, c *DuplicateCriteria) (*Transaction, error)

	// ResolveTransaction conditionally finalizes a PENDING transaction:
	// the update applies only while the stored status is still PENDING
	// (compare-and-swap). The returned bool reports whether it applied.
	// failureReason is stored only when status is FAILED.
	ResolveTransaction(ctx context.Context, txID string, status Status, failureReason string, resolvedAt time.Time) (bool, error)

	// IncrementRetryCount atomically bumps the retry counter on the chain
	// root identified by txID.
	IncrementRetryCount(ctx context.Context, txID string) error

	// ListTransactions lists transactions newest first with the given
	// filters, along with the total match count for pagination.
	ListTransactions(ctx context.Context, filter *TxFilter) ([]*Transaction, int64, error)

	// UnresolvedTransactions returns PENDING transactions created more than
	// olderThan ago. Used by the recovery sweep to re-arm resolutions lost
	// to a restart.
	UnresolvedTransactions(ctx context.Context, olderThan time.Duration) ([]*Transaction, error)

	// Summary aggregates one owner's history: status counts, amount totals,
	// per-service breakdown and the most recent transaction.
	Summary(ctx context.Context, ownerID string) (*AccountSummary, error)
}
