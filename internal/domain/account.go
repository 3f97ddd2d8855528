package domain

// AccountRequirements lists outstanding verification requirements on a
// connected account, as reported live by the payment processor.
type AccountRequirements struct {
	CurrentlyDue        []string `json:"currently_due"`
	EventuallyDue       []string `json:"eventually_due"`
	PastDue             []string `json:"past_due"`
	PendingVerification []string `json:"pending_verification"`
	DisabledReason      string   `json:"disabled_reason,omitempty"`
}

// AccountDetails is the live verification state of a connected account.
// Fetched per call and never stored verbatim; only the coarse status
// derived from it is cached on the profile.
type AccountDetails struct {
	ID               string              `json:"id"`
	DetailsSubmitted bool                `json:"details_submitted"`
	ChargesEnabled   bool                `json:"charges_enabled"`
	PayoutsEnabled   bool                `json:"payouts_enabled"`
	Requirements     AccountRequirements `json:"requirements"`
}

// DeriveAccountStatus collapses live account details into the coarse
// status enum cached on the profile.
func DeriveAccountStatus(d *AccountDetails) string {
	if !d.DetailsSubmitted {
		return AccountStatusIncomplete
	}

	hasDue := len(d.Requirements.CurrentlyDue) > 0 || len(d.Requirements.PastDue) > 0

	if d.ChargesEnabled && d.PayoutsEnabled {
		if hasDue {
			return AccountStatusRequiresAction
		}
		return AccountStatusComplete
	}
	if d.Requirements.DisabledReason != "" {
		return AccountStatusRejected
	}
	if hasDue {
		return AccountStatusRequiresAction
	}
	// Submitted with nothing due: still processing on the processor side.
	return AccountStatusPending
}
