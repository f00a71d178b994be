// Package mysql provides a MySQL implementation of the recharge.TxStore interface.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	recharge "github.com/Tarunvoff/mobile-backend"
)

// MySQLStore implements the recharge.TxStore interface using MySQL.
type MySQLStore struct {
	db *sql.DB
}

// New creates a new MySQLStore with the given database connection.
func New(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

var _ recharge.TxStore = (*MySQLStore)(nil)

const txColumns = `id, tx_id, owner_id, service_type, identifier,
	operator_name, operator_code, plan_snapshot, amount, payment_method,
	status, failure_reason, retry_count, parent_tx_id,
	created_at, updated_at, resolved_at`

// ============================================================================
// Transaction Operations
// ============================================================================

// CreateTransaction creates a new transaction record.
func (s *MySQLStore) CreateTransaction(ctx context.Context, tx *recharge.Transaction) error {
	query := `
		INSERT INTO recharges (
			tx_id, owner_id, service_type, identifier,
			operator_name, operator_code, plan_snapshot, amount, payment_method,
			status, failure_reason, retry_count, parent_tx_id,
			created_at, updated_at, resolved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	planJSON, err := marshalPlan(tx.Plan)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, query,
		tx.TransactionID, tx.OwnerID, tx.ServiceType, tx.Identifier,
		tx.Operator.Name, tx.Operator.Code, planJSON, tx.Amount, tx.PaymentMethod,
		tx.Status, tx.FailureReason, tx.RetryCount, tx.ParentTransactionID,
		tx.CreatedAt, tx.UpdatedAt, tx.ResolvedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return recharge.ErrTransactionAlreadyExists
		}
		return fmt.Errorf("%w: create transaction: %v", recharge.ErrStoreOperationFailed, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	tx.ID = id

	return nil
}

// GetTransaction retrieves a transaction by its public id. A non-empty
// ownerID scopes the lookup to that owner.
func (s *MySQLStore) GetTransaction(ctx context.Context, txID, ownerID string) (*recharge.Transaction, error) {
	query := fmt.Sprintf("SELECT %s FROM recharges WHERE tx_id = ?", txColumns)
	args := []interface{}{txID}
	if ownerID != "" {
		query += " AND owner_id = ?"
		args = append(args, ownerID)
	}

	tx, err := s.scanTransaction(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, recharge.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("%w: get transaction: %v", recharge.ErrStoreOperationFailed, err)
	}
	return tx, nil
}

// FindDuplicate returns a transaction matching the identity tuple created at
// or after c.Since, or nil when no match exists. Status is deliberately not
// part of the match.
func (s *MySQLStore) FindDuplicate(ctx context.Context, c *recharge.DuplicateCriteria) (*recharge.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM recharges
		WHERE owner_id = ? AND service_type = ? AND identifier = ? AND operator_code = ?
		AND created_at >= ?`, txColumns)
	args := []interface{}{c.OwnerID, c.ServiceType, c.Identifier, c.OperatorCode, c.Since}

	if c.PlanID != "" {
		query += ` AND JSON_UNQUOTE(JSON_EXTRACT(plan_snapshot, '$.id')) = ?`
		args = append(args, c.PlanID)
	} else {
		query += ` AND amount = ?`
		args = append(args, c.Amount)
	}
	query += ` ORDER BY created_at DESC LIMIT 1`

	tx, err := s.scanTransaction(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: find duplicate: %v", recharge.ErrStoreOperationFailed, err)
	}
	return tx, nil
}

// ResolveTransaction conditionally finalizes a PENDING transaction. The
// WHERE clause is the compare-and-swap: the update applies only while the
// stored status is still PENDING.
func (s *MySQLStore) ResolveTransaction(ctx context.Context, txID string, status recharge.Status, failureReason string, resolvedAt time.Time) (bool, error) {
	if !recharge.ValidateTransition(recharge.StatusPending, status) {
		return false, fmt.Errorf("%w: invalid transition PENDING -> %s", recharge.ErrStoreOperationFailed, status)
	}

	query := `
		UPDATE recharges SET
			status = ?, failure_reason = ?, resolved_at = ?, updated_at = ?
		WHERE tx_id = ? AND status = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		status, failureReason, resolvedAt, resolvedAt,
		txID, recharge.StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("%w: resolve transaction: %v", recharge.ErrStoreOperationFailed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		exists, err := s.transactionExists(ctx, txID)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, recharge.ErrTransactionNotFound
		}
		// Already resolved by a concurrent firing.
		return false, nil
	}

	return true, nil
}

// IncrementRetryCount atomically bumps the retry counter on the chain root.
func (s *MySQLStore) IncrementRetryCount(ctx context.Context, txID string) error {
	query := `UPDATE recharges SET retry_count = retry_count + 1, updated_at = ? WHERE tx_id = ?`

	result, err := s.db.ExecContext(ctx, query, time.Now(), txID)
	if err != nil {
		return fmt.Errorf("%w: increment retry count: %v", recharge.ErrStoreOperationFailed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return recharge.ErrTransactionNotFound
	}
	return nil
}

// transactionExists checks if a transaction exists.
func (s *MySQLStore) transactionExists(ctx context.Context, txID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM recharges WHERE tx_id = ?", txID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("%w: check transaction exists: %v", recharge.ErrStoreOperationFailed, err)
	}
	return count > 0, nil
}

// ============================================================================
// Listing and Recovery Queries
// ============================================================================

// ListTransactions lists transactions newest first with the given filters.
func (s *MySQLStore) ListTransactions(ctx context.Context, filter *recharge.TxFilter) ([]*recharge.Transaction, int64, error) {
	var conditions []string
	var args []interface{}

	if filter.OwnerID != "" {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			placeholders[i] = "?"
			args = append(args, status)
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	if filter.ServiceType != "" {
		conditions = append(conditions, "service_type = ?")
		args = append(args, filter.ServiceType)
	}

	if filter.Identifier != "" {
		conditions = append(conditions, "identifier = ?")
		args = append(args, filter.Identifier)
	}

	if filter.TransactionID != "" {
		conditions = append(conditions, "tx_id = ?")
		args = append(args, filter.TransactionID)
	}

	if !filter.StartTime.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.StartTime)
	}

	if !filter.EndTime.IsZero() {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, filter.EndTime)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM recharges %s", whereClause)
	var total int64
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: count transactions: %v", recharge.ErrStoreOperationFailed, err)
	}

	query := fmt.Sprintf(`SELECT %s FROM recharges %s ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		txColumns, whereClause)

	args = append(args, filter.Limit, filter.Offset)
	transactions, err := s.queryTransactions(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}

	return transactions, total, nil
}

// UnresolvedTransactions returns PENDING transactions created more than
// olderThan ago, oldest first.
func (s *MySQLStore) UnresolvedTransactions(ctx context.Context, olderThan time.Duration) ([]*recharge.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM recharges
		WHERE status = ? AND created_at < ?
		ORDER BY created_at ASC`, txColumns)

	threshold := time.Now().Add(-olderThan)
	return s.queryTransactions(ctx, query, recharge.StatusPending, threshold)
}

// Summary aggregates one owner's history with grouped queries.
func (s *MySQLStore) Summary(ctx context.Context, ownerID string) (*recharge.AccountSummary, error) {
	summary := &recharge.AccountSummary{}

	totalsQuery := `
		SELECT COUNT(*), COALESCE(SUM(amount), 0),
			COALESCE(SUM(status = 'SUCCESS'), 0),
			COALESCE(SUM(status = 'FAILED'), 0),
			COALESCE(SUM(status = 'PENDING'), 0)
		FROM recharges WHERE owner_id = ?
	`
	err := s.db.QueryRowContext(ctx, totalsQuery, ownerID).Scan(
		&summary.TotalTransactions, &summary.TotalAmount,
		&summary.Success, &summary.Failed, &summary.Pending,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: summary totals: %v", recharge.ErrStoreOperationFailed, err)
	}

	if summary.TotalTransactions == 0 {
		return summary, nil
	}
	summary.SuccessRate = int(float64(summary.Success)/float64(summary.TotalTransactions)*100 + 0.5)

	servicesQuery := `
		SELECT service_type, COUNT(*), COALESCE(SUM(amount), 0),
			COALESCE(SUM(status = 'SUCCESS'), 0),
			COALESCE(SUM(status = 'FAILED'), 0),
			COALESCE(SUM(status = 'PENDING'), 0)
		FROM recharges WHERE owner_id = ?
		GROUP BY service_type
		ORDER BY COUNT(*) DESC, service_type ASC
	`
	rows, err := s.db.QueryContext(ctx, servicesQuery, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: summary services: %v", recharge.ErrStoreOperationFailed, err)
	}
	defer rows.Close()

	for rows.Next() {
		svc := &recharge.ServiceSummary{}
		err := rows.Scan(
			&svc.ServiceType, &svc.TotalTransactions, &svc.TotalAmount,
			&svc.Success, &svc.Failed, &svc.Pending,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scan service summary: %v", recharge.ErrStoreOperationFailed, err)
		}
		if def, ok := recharge.ServiceFor(svc.ServiceType); ok {
			svc.Name = def.Name
		}
		summary.Services = append(summary.Services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate service summaries: %v", recharge.ErrStoreOperationFailed, err)
	}

	lastQuery := fmt.Sprintf(`SELECT %s FROM recharges
		WHERE owner_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, txColumns)
	last, err := s.scanTransaction(s.db.QueryRowContext(ctx, lastQuery, ownerID))
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("%w: summary last transaction: %v", recharge.ErrStoreOperationFailed, err)
	}
	if last != nil {
		summary.LastTransaction = last
	}

	return summary, nil
}

// ============================================================================
// Helper Functions
// ============================================================================

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *MySQLStore) scanTransaction(row rowScanner) (*recharge.Transaction, error) {
	tx := &recharge.Transaction{}
	var planJSON sql.NullString
	var failureReason, parentTxID sql.NullString
	var resolvedAt sql.NullTime

	err := row.Scan(
		&tx.ID, &tx.TransactionID, &tx.OwnerID, &tx.ServiceType, &tx.Identifier,
		&tx.Operator.Name, &tx.Operator.Code, &planJSON, &tx.Amount, &tx.PaymentMethod,
		&tx.Status, &failureReason, &tx.RetryCount, &parentTxID,
		&tx.CreatedAt, &tx.UpdatedAt, &resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.FailureReason = failureReason.String
	tx.ParentTransactionID = parentTxID.String
	if resolvedAt.Valid {
		t := resolvedAt.Time
		tx.ResolvedAt = &t
	}
	if planJSON.Valid && planJSON.String != "" {
		plan := &recharge.PlanSnapshot{}
		if err := json.Unmarshal([]byte(planJSON.String), plan); err != nil {
			return nil, fmt.Errorf("unmarshal plan_snapshot: %w", err)
		}
		tx.Plan = plan
	}

	return tx, nil
}

func (s *MySQLStore) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]*recharge.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query transactions: %v", recharge.ErrStoreOperationFailed, err)
	}
	defer rows.Close()

	var transactions []*recharge.Transaction
	for rows.Next() {
		tx, err := s.scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan transaction: %v", recharge.ErrStoreOperationFailed, err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate transactions: %v", recharge.ErrStoreOperationFailed, err)
	}

	return transactions, nil
}

func marshalPlan(plan *recharge.PlanSnapshot) (interface{}, error) {
	if plan == nil {
		return nil, nil
	}
	data, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("marshal plan_snapshot: %w", err)
	}
	return string(data), nil
}

// isDuplicateKeyError checks if the error is a MySQL duplicate key error.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	// MySQL error code 1062 is for duplicate entry
	return strings.Contains(err.Error(), "Duplicate entry") ||
		strings.Contains(err.Error(), "1062")
}
