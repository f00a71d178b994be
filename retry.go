package recharge

import (
	"context"
	"fmt"
	"time"

	"github.com/Tarunvoff/mobile-backend/event"
)

// Retry spawns a new transaction from a failed one. The new transaction
// copies the original's service, identifier, snapshots, amount, and payment
// method, and always parents to the root of the retry chain. The root's
// RetryCount is bumped after the new record commits.
//
// Retries bypass the duplicate guard and submission validation: the copied
// fields were validated when the original was created.
func (e *Engine) Retry(ctx context.Context, txID, ownerID string) (*TxResult, error) {
	ctx, span := e.tracer.StartRetry(ctx, txID)
	defer span.End()

	if err := e.waitNetworkDelay(ctx); err != nil {
		span.SetError(err)
		return nil, err
	}

	orig, err := e.store.GetTransaction(ctx, txID, ownerID)
	if err != nil {
		span.SetError(err)
		if IsNotFoundError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load original: %v", ErrStoreOperationFailed, err)
	}

	if orig.Status != StatusFailed {
		span.SetError(ErrRetryNotAllowed)
		return nil, fmt.Errorf("%w: transaction %s is %s", ErrRetryNotAllowed, orig.TransactionID, orig.Status)
	}

	now := time.Now()
	tx := &Transaction{
		TransactionID:       NewTransactionID(),
		OwnerID:             orig.OwnerID,
		ServiceType:         orig.ServiceType,
		Identifier:          orig.Identifier,
		Operator:            orig.Operator,
		Amount:              orig.Amount,
		PaymentMethod:       orig.PaymentMethod,
		Status:              e.sim.RetryStatus(),
		ParentTransactionID: orig.RootID(),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if orig.Plan != nil {
		snapshot := *orig.Plan
		tx.Plan = &snapshot
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
		return nil, fmt.Errorf("%w: create retry: %v", ErrStoreOperationFailed, err)
	}

	// The retry count lives on the chain root so callers can see the attempt
	// total without walking the chain. A failed bump leaves the count stale
	// but never orphans the new transaction.
	if err := e.store.IncrementRetryCount(ctx, tx.ParentTransactionID); err != nil {
		e.logger.Printf("[Engine] retry count bump failed for %s: %v", tx.ParentTransactionID, err)
	}

	e.metrics.RetrySpawned(string(tx.ServiceType), string(tx.Status))
	e.events.Publish(ctx, event.NewEvent(event.EventTxRetried).
		WithTxID(tx.TransactionID).
		WithService(string(tx.ServiceType)).
		WithStatus(string(tx.Status)).
		WithData("parentId", tx.ParentTransactionID))
	if tx.Status == StatusFailed {
		e.events.Publish(ctx, event.NewEvent(event.EventTxFailed).
			WithTxID(tx.TransactionID).
			WithService(string(tx.ServiceType)).
			WithStatus(string(tx.Status)).
			WithData("reason", tx.FailureReason))
	}

	if tx.Status == StatusPending {
		e.resolver.Schedule(tx.TransactionID, true)
	}

	return e.result(tx), nil
}
