package metrics

import "time"

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// Event and operation names recorded by the checkout core.
const (
	EventSessionStarted      = "session_started"
	EventStepAdvanced        = "step_advanced"
	EventSessionExpired      = "session_expired"
	EventSessionReset        = "session_reset"
	EventVerificationOK      = "verification_succeeded"
	EventVerificationFailed  = "verification_failed"
	EventVerificationRefused = "verification_refused"
	EventProvisioningFailed  = "provisioning_failed"
	EventQuoteResolved       = "quote_resolved"
	EventQuoteFailed         = "quote_failed"

	OpVerification = "verification"
	OpQuoteFetch   = "quote_fetch"
)
