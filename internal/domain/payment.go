package domain

// PaymentIntent statuses we care about. The processor has more; only
// succeeded unlocks step 4.
const (
	PaymentIntentSucceeded = "succeeded"
)

// PaymentIntent is the onboarding-fee payment, created on the platform
// account with the paying user's id stamped into metadata.
type PaymentIntent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret,omitempty"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	Metadata     map[string]string `json:"metadata"`
}

// AccountLink is a one-time hosted-onboarding URL for a connected
// account (used to collect KYC details or link a bank account).
type AccountLink struct {
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
}

// ExternalAccount is a bank account attached to a connected account.
type ExternalAccount struct {
	ID       string `json:"id"`
	BankName string `json:"bank_name"`
	Last4    string `json:"last4"`
	Currency string `json:"currency"`
	Default  bool   `json:"default_for_currency"`
}
