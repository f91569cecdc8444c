package enum

type CheckoutStep string

const (
	CheckoutStepDetails CheckoutStep = "details"
	CheckoutStepPayment CheckoutStep = "payment"
	CheckoutStepSuccess CheckoutStep = "success"
)
