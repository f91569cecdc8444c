package models

// Contact holds the customer details collected on the first checkout screen.
// Validation rules live in the form package; the validate tags here only name
// the constraints so the struct stays the single source of truth for them.
type Contact struct {
	FirstName     string `json:"firstName" validate:"required"`
	LastName      string `json:"lastName" validate:"required"`
	Email         string `json:"email" validate:"required,email_shape"`
	PhoneNumber   string `json:"phoneNumber" validate:"required"`
	Address       string `json:"address" validate:"required"`
	SignUpConsent bool   `json:"signUpConsent" validate:"-"`
}
