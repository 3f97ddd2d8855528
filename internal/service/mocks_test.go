package service_test

import (
	"context"
	"sync"

	"github.com/sudsyapp/washer-onboarding-go/internal/domain"
)

// Hand-rolled mocks for the onboarding ports. Each store keeps its rows
// in a map and lets a test inject an error per method.

type mockProfileStore struct {
	mu          sync.Mutex
	profiles    map[string]*domain.Profile
	getErr      error
	updateErr   error
	findErr     error
	updateCalls []map[string]any
}

func newMockProfileStore() *mockProfileStore {
	return &mockProfileStore{profiles: make(map[string]*domain.Profile)}
}

func (m *mockProfileStore) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: userID}
	}
	cp := *p
	return &cp, nil
}

func (m *mockProfileStore) UpdateProfile(ctx context.Context, userID string, updates map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updateCalls = append(m.updateCalls, updates)
	p, ok := m.profiles[userID]
	if !ok {
		return &domain.ErrNotFound{Resource: "profile", ID: userID}
	}
	if v, ok := updates["stripe_account_id"].(string); ok {
		p.StripeAccountID = v
	}
	if v, ok := updates["stripe_account_status"].(string); ok {
		p.StripeAccountStatus = v
	}
	if v, ok := updates["onboarding_fee_paid"].(bool); ok {
		p.OnboardingFeePaid = v
	}
	if v, ok := updates["phone_number"].(string); ok {
		p.PhoneNumber = v
	}
	return nil
}

func (m *mockProfileStore) FindProfileByAccountID(ctx context.Context, accountID string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, p := range m.profiles {
		if p.StripeAccountID == accountID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "profile", ID: accountID}
}

type mockApplicationStore struct {
	mu        sync.Mutex
	apps      map[string]*domain.WasherApplication
	getErr    error
	upsertErr error
}

func newMockApplicationStore() *mockApplicationStore {
	return &mockApplicationStore{apps: make(map[string]*domain.WasherApplication)}
}

func (m *mockApplicationStore) GetApplication(ctx context.Context, userID string) (*domain.WasherApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	a, ok := m.apps[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "washer_application", ID: userID}
	}
	return a, nil
}

func (m *mockApplicationStore) UpsertApplication(ctx context.Context, app *domain.WasherApplication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.apps[app.UserID] = app
	return nil
}

type mockProgressStore struct {
	mu        sync.Mutex
	records   map[string]*domain.ProgressRecord
	getErr    error
	upsertErr error
	upserts   int
}

func newMockProgressStore() *mockProgressStore {
	return &mockProgressStore{records: make(map[string]*domain.ProgressRecord)}
}

func (m *mockProgressStore) GetProgress(ctx context.Context, userID string) (*domain.ProgressRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	r, ok := m.records[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "onboarding_progress", ID: userID}
	}
	cp := *r
	return &cp, nil
}

func (m *mockProgressStore) UpsertProgress(ctx context.Context, rec *domain.ProgressRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts++
	cp := *rec
	m.records[rec.UserID] = &cp
	return nil
}

type mockPayments struct {
	mu       sync.Mutex
	accounts map[string]*domain.AccountDetails
	external map[string][]domain.ExternalAccount
	intents  map[string]*domain.PaymentIntent

	createAccountErr error
	getAccountErr    error
	updateErr        error
	linkErr          error
	listErr          error
	intentErr        error
	getIntentErr     error

	lastUpdateFields map[string]string
}

func newMockPayments() *mockPayments {
	return &mockPayments{
		accounts: make(map[string]*domain.AccountDetails),
		external: make(map[string][]domain.ExternalAccount),
		intents:  make(map[string]*domain.PaymentIntent),
	}
}

func (m *mockPayments) CreateAccount(ctx context.Context, userID, email string) (*domain.AccountDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createAccountErr != nil {
		return nil, m.createAccountErr
	}
	d := &domain.AccountDetails{ID: "acct_" + userID}
	m.accounts[d.ID] = d
	return d, nil
}

func (m *mockPayments) GetAccount(ctx context.Context, accountID string) (*domain.AccountDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getAccountErr != nil {
		return nil, m.getAccountErr
	}
	d, ok := m.accounts[accountID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	return d, nil
}

func (m *mockPayments) UpdateAccount(ctx context.Context, accountID string, fields map[string]string) (*domain.AccountDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	m.lastUpdateFields = fields
	d, ok := m.accounts[accountID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	return d, nil
}

func (m *mockPayments) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL, linkType string) (*domain.AccountLink, error) {
	if m.linkErr != nil {
		return nil, m.linkErr
	}
	return &domain.AccountLink{URL: "https://connect.example.com/setup/" + accountID}, nil
}

func (m *mockPayments) ListExternalAccounts(ctx context.Context, accountID string) ([]domain.ExternalAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.external[accountID], nil
}

func (m *mockPayments) CreatePaymentIntent(ctx context.Context, userID string, amount int64, currency string) (*domain.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.intentErr != nil {
		return nil, m.intentErr
	}
	pi := &domain.PaymentIntent{
		ID:           "pi_" + userID,
		ClientSecret: "pi_secret",
		Amount:       amount,
		Currency:     currency,
		Status:       "requires_payment_method",
		Metadata:     map[string]string{"user_id": userID},
	}
	m.intents[pi.ID] = pi
	return pi, nil
}

func (m *mockPayments) GetPaymentIntent(ctx context.Context, intentID string) (*domain.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getIntentErr != nil {
		return nil, m.getIntentErr
	}
	pi, ok := m.intents[intentID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "payment_intent", ID: intentID}
	}
	return pi, nil
}

// mockSink records events synchronously so tests can assert on them.
type mockSink struct {
	mu     sync.Mutex
	events []*domain.AnalyticsEvent
}

func (m *mockSink) Track(ctx context.Context, ev *domain.AnalyticsEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockSink) eventsOfType(eventType string) []*domain.AnalyticsEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.AnalyticsEvent
	for _, ev := range m.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// mockEventStore backs the analytics sink tests.
type mockEventStore struct {
	mu      sync.Mutex
	events  []*domain.AnalyticsEvent
	err     error
	written chan struct{}
}

func newMockEventStore() *mockEventStore {
	return &mockEventStore{written: make(chan struct{}, 64)}
}

func (m *mockEventStore) InsertEvent(ctx context.Context, ev *domain.AnalyticsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.written <- struct{}{} }()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}
