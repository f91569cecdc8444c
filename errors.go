package payment

import "errors"

var (
	// ErrDetailsInvalid gates the details → payment transition.
	ErrDetailsInvalid = errors.New("contact details are invalid")

	// ErrSessionExpired means the countdown reached zero before verification.
	// The flow must be restarted from the details step.
	ErrSessionExpired = errors.New("payment session has expired")

	// ErrVerificationPending rejects a verification attempt while an earlier
	// one is still outstanding.
	ErrVerificationPending = errors.New("a verification attempt is already in progress")

	// ErrNotInPayment rejects operations that only make sense on the payment
	// step.
	ErrNotInPayment = errors.New("session is not on the payment step")

	// ErrNotInDetails rejects a details submission from any other step.
	ErrNotInDetails = errors.New("session is not on the details step")

	// ErrSessionClosed rejects operations on a torn-down session.
	ErrSessionClosed = errors.New("session is closed")
)

// UnknownFieldError reports a contact mutation against a field name the form
// does not have.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return "unknown contact field: " + e.Field
}
