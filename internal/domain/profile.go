// Package domain holds the core entities of the washer onboarding flow
// and the pure logic that derives onboarding state from them.
package domain

// Role of a marketplace user.
const (
	RoleWasher   = "washer"
	RoleCustomer = "customer"
)

// Cached payment-account statuses, mirrored from the payment processor.
const (
	AccountStatusIncomplete     = "incomplete"
	AccountStatusPending        = "pending"
	AccountStatusComplete       = "complete"
	AccountStatusRequiresAction = "requires_action"
	AccountStatusRejected       = "rejected"
)

// Profile is the per-user record in the profiles table.
// StripeAccountStatus is a cached mirror of the processor's truth and may lag.
type Profile struct {
	ID                  string `json:"id"`
	Role                string `json:"role"`
	FullName            string `json:"full_name,omitempty"`
	PhoneNumber         string `json:"phone_number,omitempty"`
	StripeAccountID     string `json:"stripe_account_id,omitempty"`
	StripeAccountStatus string `json:"stripe_account_status,omitempty"`
	OnboardingFeePaid   bool   `json:"onboarding_fee_paid"`
}

// WasherApplication is the 1:1 companion record for washer profiles,
// created by the profile-setup step.
type WasherApplication struct {
	UserID           string   `json:"user_id"`
	ServiceAddress   string   `json:"service_address"`
	ServiceOfferings []string `json:"service_offerings"`
	WasherBio        string   `json:"washer_bio"`
	EquipmentDetails string   `json:"equipment_details,omitempty"`
	PhoneNumber      string   `json:"phone_number"`
}

// IsFilledOut reports whether the application satisfies step 1 of
// onboarding: phone, address, at least one offering, and a bio.
func (a *WasherApplication) IsFilledOut() bool {
	if a == nil {
		return false
	}
	return a.PhoneNumber != "" &&
		a.ServiceAddress != "" &&
		len(a.ServiceOfferings) > 0 &&
		a.WasherBio != ""
}
