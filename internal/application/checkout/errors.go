package checkout

import "fmt"

// PaymentError is returned when the gateway refused or failed a charge.
// It unwraps to the classified gateway error.
type PaymentError struct {
	TransactionID string
	Attempt       int
	Err           error
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("charge for transaction %s failed on attempt %d: %v", e.TransactionID, e.Attempt, e.Err)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}
