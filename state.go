// Package recharge implements the transaction lifecycle engine for the
// prepaid-recharge and bill-payment platform: request validation against the
// operator catalog, duplicate suppression, synthetic outcome assignment, and
// asynchronous resolution of pending transactions.
package recharge

// Status represents the settlement status of a recharge transaction.
type Status string

const (
	// StatusPending indicates the transaction is awaiting asynchronous resolution.
	StatusPending Status = "PENDING"
	// StatusSuccess indicates the recharge was settled successfully.
	StatusSuccess Status = "SUCCESS"
	// StatusFailed indicates the recharge failed; a failure reason is recorded.
	StatusFailed Status = "FAILED"
)

// validTransitions defines valid status transitions. A transaction's status
// changes at most once: PENDING may move to a terminal status, terminal
// statuses never move.
var validTransitions = map[Status][]Status{
	StatusPending: {StatusSuccess, StatusFailed},
	StatusSuccess: {},
	StatusFailed:  {},
}

// ValidateTransition checks if a status transition is valid.
func ValidateTransition(from, to Status) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, target := range targets {
		if target == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the status admits no further transitions.
func IsTerminal(status Status) bool {
	switch status {
	case StatusSuccess, StatusFailed:
		return true
	default:
		return false
	}
}

// ParseStatus parses a status string (uppercase, as stored).
// The second return value reports whether the input named a known status.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusSuccess, StatusFailed:
		return Status(s), true
	default:
		return "", false
	}
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}
