package recharge

import "errors"

// Validation errors. Reported to the caller before any store mutation and
// never retried automatically.
var (
	// ErrUnsupportedService indicates the requested service type is unknown.
	ErrUnsupportedService = errors.New("unsupported service type")

	// ErrInvalidIdentifier indicates the subscriber identifier is empty or
	// does not match the service's identifier pattern.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrMissingOwner indicates the request carried no owner account.
	ErrMissingOwner = errors.New("owner id required")

	// ErrInvalidOperator indicates the operator code does not resolve to a
	// known operator.
	ErrInvalidOperator = errors.New("invalid operator")

	// ErrOperatorServiceMismatch indicates the operator does not serve the
	// requested service type.
	ErrOperatorServiceMismatch = errors.New("operator does not support service type")

	// ErrInvalidPlan indicates the plan id does not resolve to one of the
	// operator's plans.
	ErrInvalidPlan = errors.New("invalid plan for operator")

	// ErrAmountMismatch indicates the amount does not equal the selected
	// plan's amount.
	ErrAmountMismatch = errors.New("amount does not match selected plan")

	// ErrInvalidAmount indicates a non-positive amount on a plan-free service.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidPaymentMethod indicates an unsupported payment method.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
)

// Conflict errors. Reported to the caller, no mutation occurs.
var (
	// ErrDuplicateTransaction indicates an equivalent transaction was created
	// within the duplicate suppression window.
	ErrDuplicateTransaction = errors.New("duplicate transaction within window")

	// ErrRetryNotAllowed indicates a retry was attempted on a transaction
	// that is not FAILED.
	ErrRetryNotAllowed = errors.New("only failed transactions can be retried")
)

// Not-found errors.
var (
	// ErrTransactionNotFound indicates the transaction does not exist or is
	// not owned by the caller.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrOperatorNotFound indicates the operator does not exist in the catalog.
	ErrOperatorNotFound = errors.New("operator not found")
)

// Infrastructure errors.
var (
	// ErrTransactionAlreadyExists indicates a transaction id collision on insert.
	ErrTransactionAlreadyExists = errors.New("transaction already exists")

	// ErrStoreOperationFailed indicates a store operation failed.
	ErrStoreOperationFailed = errors.New("store operation failed")

	// ErrCatalogUnavailable indicates the operator catalog could not be queried.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

// Config errors.
var (
	// ErrInvalidConfig indicates the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// validationErrors lists every error in the validation taxonomy.
var validationErrors = []error{
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

// IsValidationError reports whether err belongs to the validation taxonomy.
func IsValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflictError reports whether err belongs to the conflict taxonomy.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrDuplicateTransaction) || errors.Is(err, ErrRetryNotAllowed)
}

// IsNotFoundError reports whether err belongs to the not-found taxonomy.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrTransactionNotFound) || errors.Is(err, ErrOperatorNotFound)
}
