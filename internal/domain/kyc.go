package domain

// KYCSubmission carries the identity fields collected by the
// verification step and forwarded to the payment processor.
type KYCSubmission struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	DateOfBirth  string `json:"date_of_birth"` // YYYY-MM-DD
	AddressLine1 string `json:"address_line1"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	IDNumber     string `json:"id_number,omitempty"`
}
