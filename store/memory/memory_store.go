// Package memory provides an in-memory implementation of the recharge.TxStore
// interface, intended for tests and single-process deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	recharge "github.com/Tarunvoff/mobile-backend"
)

// MemoryStore implements recharge.TxStore with an in-process map.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*recharge.Transaction
	nextID int64
}

var _ recharge.TxStore = (*MemoryStore)(nil)

// New creates an empty MemoryStore.
func New() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*recharge.Transaction),
		nextID: 1,
	}
}

// CreateTransaction persists a new transaction.
func (s *MemoryStore) CreateTransaction(_ context.Context, tx *recharge.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[tx.TransactionID]; exists {
		return recharge.ErrTransactionAlreadyExists
	}

	tx.ID = s.nextID
	s.nextID++
	s.byID[tx.TransactionID] = tx.Clone()
	return nil
}

// GetTransaction retrieves a transaction by id, optionally owner-scoped.
func (s *MemoryStore) GetTransaction(_ context.Context, txID, ownerID string) (*recharge.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.byID[txID]
	if !ok {
		return nil, recharge.ErrTransactionNotFound
	}
	if ownerID != "" && tx.OwnerID != ownerID {
		return nil, recharge.ErrTransactionNotFound
	}
	return tx.Clone(), nil
}

// FindDuplicate returns a transaction matching the identity tuple created at
// or after c.Since, or nil when no match exists.
func (s *MemoryStore) FindDuplicate(_ context.Context, c *recharge.DuplicateCriteria) (*recharge.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tx := range s.byID {
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

// ResolveTransaction conditionally finalizes a PENDING transaction.
func (s *MemoryStore) ResolveTransaction(_ context.Context, txID string, status recharge.Status, failureReason string, resolvedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.byID[txID]
	if !ok {
		return false, recharge.ErrTransactionNotFound
	}
	if tx.Status != recharge.StatusPending {
		return false, nil
	}
	if !recharge.ValidateTransition(tx.Status, status) {
		return false, fmt.Errorf("%w: invalid transition %s -> %s", recharge.ErrStoreOperationFailed, tx.Status, status)
	}

	tx.Status = status
	if status == recharge.StatusFailed {
		tx.FailureReason = failureReason
	}
	resolved := resolvedAt
	tx.ResolvedAt = &resolved
	tx.UpdatedAt = resolvedAt
	return true, nil
}

// IncrementRetryCount atomically bumps the retry counter on the chain root.
func (s *MemoryStore) IncrementRetryCount(_ context.Context, txID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.byID[txID]
	if !ok {
		return recharge.ErrTransactionNotFound
	}
	tx.RetryCount++
	tx.UpdatedAt = time.Now()
	return nil
}

// ListTransactions lists transactions newest first with the given filters.
func (s *MemoryStore) ListTransactions(_ context.Context, filter *recharge.TxFilter) ([]*recharge.Transaction, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*recharge.Transaction
	for _, tx := range s.byID {
		if !matchesFilter(tx, filter) {
			continue
		}
		matches = append(matches, tx)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID > matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	total := int64(len(matches))

	start := filter.Offset
	if start > len(matches) {
		start = len(matches)
	}
	end := len(matches)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}

	page := make([]*recharge.Transaction, 0, end-start)
	for _, tx := range matches[start:end] {
		page = append(page, tx.Clone())
	}
	return page, total, nil
}

func matchesFilter(tx *recharge.Transaction, filter *recharge.TxFilter) bool {
	if filter.OwnerID != "" && tx.OwnerID != filter.OwnerID {
		return false
	}
	if len(filter.Status) > 0 {
		found := false
		for _, status := range filter.Status {
			if tx.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.ServiceType != "" && tx.ServiceType != filter.ServiceType {
		return false
	}
	if filter.Identifier != "" && tx.Identifier != filter.Identifier {
		return false
	}
	if filter.TransactionID != "" && tx.TransactionID != filter.TransactionID {
		return false
	}
	if !filter.StartTime.IsZero() && tx.CreatedAt.Before(filter.StartTime) {
		return false
	}
	if !filter.EndTime.IsZero() && tx.CreatedAt.After(filter.EndTime) {
		return false
	}
	return true
}

// UnresolvedTransactions returns PENDING transactions created more than
// olderThan ago, oldest first.
func (s *MemoryStore) UnresolvedTransactions(_ context.Context, olderThan time.Duration) ([]*recharge.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	threshold := time.Now().Add(-olderThan)
	var pending []*recharge.Transaction
	for _, tx := range s.byID {
		if tx.Status == recharge.StatusPending && tx.CreatedAt.Before(threshold) {
			pending = append(pending, tx.Clone())
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	return pending, nil
}

// Summary aggregates one owner's history.
func (s *MemoryStore) Summary(_ context.Context, ownerID string) (*recharge.AccountSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &recharge.AccountSummary{}
	perService := make(map[recharge.ServiceType]*recharge.ServiceSummary)
	var last *recharge.Transaction

	for _, tx := range s.byID {
		if tx.OwnerID != ownerID {
			continue
		}

		summary.TotalTransactions++
		summary.TotalAmount += tx.Amount
		switch tx.Status {
		case recharge.StatusSuccess:
			summary.Success++
		case recharge.StatusFailed:
			summary.Failed++
		case recharge.StatusPending:
			summary.Pending++
		}

		svc, ok := perService[tx.ServiceType]
		if !ok {
			svc = &recharge.ServiceSummary{ServiceType: tx.ServiceType}
			if def, found := recharge.ServiceFor(tx.ServiceType); found {
				svc.Name = def.Name
			}
			perService[tx.ServiceType] = svc
		}
		svc.TotalTransactions++
		svc.TotalAmount += tx.Amount
		switch tx.Status {
		case recharge.StatusSuccess:
			svc.Success++
		case recharge.StatusFailed:
			svc.Failed++
		case recharge.StatusPending:
			svc.Pending++
		}

		if last == nil || tx.CreatedAt.After(last.CreatedAt) {
			last = tx
		}
	}

	if summary.TotalTransactions > 0 {
		summary.SuccessRate = int(float64(summary.Success)/float64(summary.TotalTransactions)*100 + 0.5)
	}

	for _, svc := range perService {
		summary.Services = append(summary.Services, svc)
	}
	sort.Slice(summary.Services, func(i, j int) bool {
		if summary.Services[i].TotalTransactions == summary.Services[j].TotalTransactions {
			return summary.Services[i].ServiceType < summary.Services[j].ServiceType
		}
		return summary.Services[i].TotalTransactions > summary.Services[j].TotalTransactions
	})

	if last != nil {
		summary.LastTransaction = last.Clone()
	}
	return summary, nil
}

// Len returns the number of stored transactions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
