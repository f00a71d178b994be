package recharge

import (
	"context"
	"time"
)

// DuplicateGuard detects accidental double-submission: an equivalent
// transaction created within the trailing window suppresses the new one.
type DuplicateGuard interface {
	// IsDuplicate reports whether an equivalent transaction already exists
	// inside the guard's window. The criteria's Since field is set by the
	// guard; callers fill only the identity tuple.
	// It never returns domain errors; a store failure propagates as an
	// infrastructure error.
	IsDuplicate(ctx context.Context, c *DuplicateCriteria) (bool, error)
}

// StoreGuard implements DuplicateGuard by querying the transaction store
// over a fixed trailing window.
type StoreGuard struct {
	store  TxStore
	window time.Duration
}

var _ DuplicateGuard = (*StoreGuard)(nil)

// NewStoreGuard creates a StoreGuard. A non-positive window falls back to
// the default duplicate window.
func NewStoreGuard(store TxStore, window time.Duration) *StoreGuard {
	if window <= 0 {
		window = DefaultDuplicateWindow
	}
	return &StoreGuard{
		store:  store,
		window: window,
	}
}

// Window returns the guard's trailing window.
func (g *StoreGuard) Window() time.Duration {
	return g.window
}

// IsDuplicate checks the store for a matching transaction inside the window.
// Matching deliberately ignores status: a failed transaction still suppresses
// resubmission through the primary creation path (explicit retries bypass the
// guard entirely).
func (g *StoreGuard) IsDuplicate(ctx context.Context, c *DuplicateCriteria) (bool, error) {
	scoped := *c
	scoped.Since = time.Now().Add(-g.window)

	match, err := g.store.FindDuplicate(ctx, &scoped)
	if err != nil {
		return false, err
	}
	return match != nil, nil
}
