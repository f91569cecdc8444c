package form

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bellodavid/external-payment/models"
)

// validate is a singleton instance of the validator.
var validate *validator.Validate

// emailShape is deliberately permissive: local-part@domain.tld, nothing more.
// Full RFC 5322 validation is the provisioning endpoint's problem.
var emailShape = regexp.MustCompile(`^\S+@\S+\.\S+$`)

func init() {
	validate = validator.New()
	if err := validate.RegisterValidation("email_shape", validateEmailShape); err != nil {
		panic(err)
	}
}

// validateEmailShape implements validator.Func for the permissive email check.
func validateEmailShape(fl validator.FieldLevel) bool {
	return emailShape.MatchString(fl.Field().String())
}

var requiredMessages = map[string]string{
	"FirstName":   "First name is required",
	"LastName":    "Last name is required",
	"Email":       "Email is required",
	"PhoneNumber": "Phone number is required",
	"Address":     "Address is required",
}

var fieldNames = map[string]string{
	"FirstName":   "firstName",
	"LastName":    "lastName",
	"Email":       "email",
	"PhoneNumber": "phoneNumber",
	"Address":     "address",
}

// Validate checks a contact record and returns one human-readable message per
// invalid field, keyed by the field's JSON name. An empty map means the
// contact is valid. Fields are trimmed before checking, so whitespace-only
// input counts as missing. Pure function of its input.
func Validate(contact models.Contact) map[string]string {
	trimmed := models.Contact{
		FirstName:     strings.TrimSpace(contact.FirstName),
		LastName:      strings.TrimSpace(contact.LastName),
		Email:         strings.TrimSpace(contact.Email),
		PhoneNumber:   strings.TrimSpace(contact.PhoneNumber),
		Address:       strings.TrimSpace(contact.Address),
		SignUpConsent: contact.SignUpConsent,
	}

	errs := make(map[string]string)

	err := validate.Struct(trimmed)
	if err == nil {
		return errs
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["form"] = err.Error()
		return errs
	}

	for _, fe := range validationErrors {
		name := fieldNames[fe.StructField()]
		if name == "" {
			continue
		}
		if _, seen := errs[name]; seen {
			continue
		}
		switch fe.Tag() {
		case "required":
			errs[name] = requiredMessages[fe.StructField()]
		case "email_shape":
			errs[name] = "Please enter a valid email address"
		}
	}

	return errs
}

// IsValid reports whether Validate would return no errors for contact.
func IsValid(contact models.Contact) bool {
	return len(Validate(contact)) == 0
}
