package checkout

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for checkout operations.
var (
	ErrInvalidTransition     = errors.New("invalid checkout transition")
	ErrSubmitInProgress      = errors.New("payment already in progress")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrPaymentFailed         = errors.New("payment failed")
	ErrInvalidPaymentDetails = errors.New("invalid payment details")
	ErrDismissed             = errors.New("checkout dismissed before payment completed")
)

// InvalidTransitionError names the rejected move.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move checkout from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// PaymentFailedError wraps the processor's reason for declining.
type PaymentFailedError struct {
	Err error
}

func (e *PaymentFailedError) Error() string {
	return fmt.Sprintf("payment failed: %v", e.Err)
}

func (e *PaymentFailedError) Unwrap() error { return e.Err }

func (e *PaymentFailedError) Is(target error) bool {
	return target == ErrPaymentFailed
}

// InvalidDetailsError names the payment field that failed validation.
type InvalidDetailsError struct {
	Field  string
	Reason string
}

func (e *InvalidDetailsError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidDetailsError) Is(target error) bool {
	return target == ErrInvalidPaymentDetails
}
