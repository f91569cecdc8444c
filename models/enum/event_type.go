package enum

type EventType string

const (
	EventTypeStepChanged         EventType = "checkout.step_changed"
	EventTypeDetailsRejected     EventType = "checkout.details_rejected"
	EventTypeSessionExpired      EventType = "checkout.session_expired"
	EventTypeSessionReset        EventType = "checkout.session_reset"
	EventTypeVerificationFailed  EventType = "checkout.verification_failed"
	EventTypeVerificationSuccess EventType = "checkout.verification_succeeded"
	EventTypeQuoteResolved       EventType = "checkout.quote_resolved"
	EventTypeQuoteFailed         EventType = "checkout.quote_failed"
	EventTypeRedirect            EventType = "checkout.redirect"
)
