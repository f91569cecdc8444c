package models

// User is the payload the account-provisioning endpoint expects, nested under
// a "user" key in the request body.
type User struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	TermsOfService bool   `json:"terms_of_service"`
}
