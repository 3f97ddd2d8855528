package domain

// The four onboarding steps, in wizard order.
const (
	StepProfileSetup = 1
	StepVerification = 2
	StepBankAccount  = 3
	StepPayment      = 4

	TotalSteps = 4
)

// StepData carries per-step payloads recorded alongside progress.
// Only profile setup stores anything today; the rest stay nil.
type StepData struct {
	ProfileSetup *WasherApplication `json:"profile_setup,omitempty"`
}

// ProgressRecord is the per-user row in the onboarding_progress table.
// It is the preferred source of truth for onboarding status; the
// recompute path in the service layer seeds it when absent.
// Invariant: IsComplete iff all four steps are in CompletedSteps.
type ProgressRecord struct {
	UserID         string   `json:"user_id"`
	CurrentStep    int      `json:"current_step"`
	CompletedSteps []int    `json:"completed_steps"`
	IsComplete     bool     `json:"is_complete"`
	StepData       StepData `json:"step_data"`
}

// HasStep reports whether step n is recorded as completed.
func (p *ProgressRecord) HasStep(n int) bool {
	if p == nil {
		return false
	}
	for _, s := range p.CompletedSteps {
		if s == n {
			return true
		}
	}
	return false
}

// MarkStep records step n as completed, idempotently, and refreshes
// CurrentStep and IsComplete. Re-marking a completed step is a no-op.
func (p *ProgressRecord) MarkStep(n int) {
	if !p.HasStep(n) {
		p.CompletedSteps = append(p.CompletedSteps, n)
	}
	p.IsComplete = len(p.CompletedSteps) >= TotalSteps
	p.CurrentStep = p.NextStep()
}

// NextStep returns the first step not yet completed, or TotalSteps
// when everything is done.
func (p *ProgressRecord) NextStep() int {
	for n := StepProfileSetup; n <= TotalSteps; n++ {
		if !p.HasStep(n) {
			return n
		}
	}
	return TotalSteps
}

// OnboardingStatus is the unified view returned to clients. It is
// derived fresh on every call and never persisted as such.
type OnboardingStatus struct {
	CurrentStep      int                `json:"current_step"`
	CompletedSteps   []int              `json:"completed_steps"`
	IsComplete       bool               `json:"is_complete"`
	ProfileData      *WasherApplication `json:"profile_data,omitempty"`
	StripeAccountID  string             `json:"stripe_account_id,omitempty"`
	BankConnected    bool               `json:"bank_connected"`
	PaymentCompleted bool               `json:"payment_completed"`
}

// CompletedStatus is the trivially-done status used for non-washer
// roles, which have nothing to onboard.
func CompletedStatus() *OnboardingStatus {
	return &OnboardingStatus{
		CurrentStep:      StepProfileSetup,
		CompletedSteps:   []int{1, 2, 3, 4},
		IsComplete:       true,
		BankConnected:    true,
		PaymentCompleted: true,
	}
}

// StatusFromProgress maps a progress record straight onto the client
// view. Step 3/4 flags come from membership in CompletedSteps.
func StatusFromProgress(p *ProgressRecord) *OnboardingStatus {
	steps := make([]int, len(p.CompletedSteps))
	copy(steps, p.CompletedSteps)
	return &OnboardingStatus{
		CurrentStep:      p.CurrentStep,
		CompletedSteps:   steps,
		IsComplete:       p.IsComplete,
		ProfileData:      p.StepData.ProfileSetup,
		BankConnected:    p.HasStep(StepBankAccount),
		PaymentCompleted: p.HasStep(StepPayment),
	}
}

// AccessDecision is the access-gate result for washer-only features.
type AccessDecision struct {
	CanAccess        bool              `json:"can_access"`
	Status           string            `json:"status"`
	AccountID        string            `json:"account_id,omitempty"`
	OnboardingStatus *OnboardingStatus `json:"onboarding_status,omitempty"`
}
