package recharge

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorTaxonomies(t *testing.T) {
	validation := []error{
		ErrUnsupportedService,
		ErrInvalidIdentifier,
		ErrMissingOwner,
		ErrInvalidOperator,
		ErrOperatorServiceMismatch,
		ErrInvalidPlan,
		ErrAmountMismatch,
		ErrInvalidAmount,
		ErrInvalidPaymentMethod,
	}
	for _, err := range validation {
		if !IsValidationError(err) {
			t.Errorf("%v should be a validation error", err)
		}
		if IsConflictError(err) || IsNotFoundError(err) {
			t.Errorf("%v should belong only to the validation taxonomy", err)
		}
	}

	for _, err := range []error{ErrDuplicateTransaction, ErrRetryNotAllowed} {
		if !IsConflictError(err) {
			t.Errorf("%v should be a conflict error", err)
		}
		if IsValidationError(err) || IsNotFoundError(err) {
			t.Errorf("%v should belong only to the conflict taxonomy", err)
		}
	}

	for _, err := range []error{ErrTransactionNotFound, ErrOperatorNotFound} {
		if !IsNotFoundError(err) {
			t.Errorf("%v should be a not-found error", err)
		}
		if IsValidationError(err) || IsConflictError(err) {
			t.Errorf("%v should belong only to the not-found taxonomy", err)
		}
	}

	for _, err := range []error{ErrStoreOperationFailed, ErrCatalogUnavailable, ErrTransactionAlreadyExists} {
		if IsValidationError(err) || IsConflictError(err) || IsNotFoundError(err) {
			t.Errorf("infrastructure error %v should not match caller taxonomies", err)
		}
	}
}

func TestErrorTaxonomies_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("%w: %q", ErrInvalidPlan, "plan_unknown")
	if !IsValidationError(wrapped) {
		t.Error("wrapped validation error should still classify")
	}

	deep := fmt.Errorf("handling request: %w", fmt.Errorf("%w: tx is SUCCESS", ErrRetryNotAllowed))
	if !IsConflictError(deep) {
		t.Error("deeply wrapped conflict error should still classify")
	}

	if IsValidationError(errors.New("unrelated")) {
		t.Error("unrelated error should not classify as validation")
	}
	if IsValidationError(nil) || IsConflictError(nil) || IsNotFoundError(nil) {
		t.Error("nil should not classify")
	}
}
