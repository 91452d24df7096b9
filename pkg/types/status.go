package types

// Status is the high-level state of a route execution
type Status string

const (
	StatusIdle          Status = "IDLE"
	StatusFetchingQuote Status = "FETCHING_QUOTE"
	StatusQuoteReady    Status = "QUOTE_READY"
	StatusReviewing     Status = "REVIEWING"
	StatusApproving     Status = "APPROVING"
	StatusSigning       Status = "SIGNING"
	StatusExecuting     Status = "EXECUTING"
	StatusConfirming    Status = "CONFIRMING"
	StatusCompleted     Status = "COMPLETED"
	StatusFailed        Status = "FAILED"
	StatusCancelled     Status = "CANCELLED"
)

// IsTerminal returns true for COMPLETED, FAILED and CANCELLED
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsExecuting returns true once the route has left review and is being driven on-chain
func (s Status) IsExecuting() bool {
	switch s {
	case StatusApproving, StatusSigning, StatusExecuting, StatusConfirming:
		return true
	}
	return false
}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusFetchingQuote, StatusQuoteReady, StatusReviewing,
		StatusApproving, StatusSigning, StatusExecuting, StatusConfirming,
		StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}
