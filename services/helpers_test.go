package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"tournament-registration/lifecycle"
	"tournament-registration/models"
	"tournament-registration/payments"
	"tournament-registration/repositories"
	"tournament-registration/testutil"

	"github.com/jonboulle/clockwork"
	"golang.org/x/text/currency"
	"gorm.io/gorm"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

const (
	organizer  = "organizer-1"
	registrant = "user-1"
)

type fakeProvider struct {
	mu       sync.Mutex
	creates  int
	sessions map[string]*payments.Session
	requests []payments.SessionRequest
	err      error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{sessions: map[string]*payments.Session{}}
}

func (p *fakeProvider) CreateSession(_ context.Context, req payments.SessionRequest) (*payments.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.creates++
	id := fmt.Sprintf("cs_test_%d", p.creates)
	s := &payments.Session{ID: id, URL: "https://checkout.stripe.test/" + id, Status: "open", ExpiresAt: req.ExpiresAt}
	p.sessions[id] = s
	p.requests = append(p.requests, req)
	return s, nil
}

func (p *fakeProvider) GetSession(_ context.Context, id string) (*payments.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: no such session %s", payments.ErrProviderUnavailable, id)
	}
	return s, nil
}

func (p *fakeProvider) createCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.creates
}

type sentNotification struct {
	RegistrationID string
	Kind           Notification
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(_ context.Context, reg *models.Registration, kind Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{RegistrationID: reg.ID, Kind: kind})
}

func (n *recordingNotifier) kinds() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []Notification
	for _, s := range n.sent {
		out = append(out, s.Kind)
	}
	return out
}

// flakyStore fails conditional updates while down is set, or always for the
// ids in failIDs.
type flakyStore struct {
	repositories.RegistrationStore
	mu      sync.Mutex
	down    bool
	failIDs map[string]bool
}

func (s *flakyStore) setDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

func (s *flakyStore) ConditionalUpdate(ctx context.Context, id string, expected lifecycle.Status, patch lifecycle.Patch) error {
	s.mu.Lock()
	fail := s.down || s.failIDs[id]
	s.mu.Unlock()
	if fail {
		return fmt.Errorf("conditional update: %w: connection reset", lifecycle.ErrStoreUnavailable)
	}
	return s.RegistrationStore.ConditionalUpdate(ctx, id, expected, patch)
}

type fixture struct {
	db       *gorm.DB
	clock    *clockwork.FakeClock
	repo     *repositories.RegistrationRepository
	events   *repositories.PaymentEventRepository
	provider *fakeProvider
	notifier *recordingNotifier
	checkout *CheckoutService
	webhooks *WebhookService
	sweeper  *SweeperService
	regs     *RegistrationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	f := &fixture{
		db:       db,
		clock:    clockwork.NewFakeClockAt(t0),
		repo:     repositories.NewRegistrationRepository(db),
		events:   repositories.NewPaymentEventRepository(db),
		provider: newFakeProvider(),
		notifier: &recordingNotifier{},
	}
	tournaments := repositories.NewTournamentRepository(db)
	f.checkout = NewCheckoutService(f.repo, tournaments, f.provider, f.notifier, f.clock, currency.EUR, "https://tournois.test")
	f.webhooks = NewWebhookService(payments.NewStripeVerifier(testutil.WebhookSecret), f.repo, f.events, nil, f.notifier, f.clock)
	f.sweeper = NewSweeperService(f.repo, f.notifier, f.clock)
	f.regs = NewRegistrationService(f.repo, tournaments, f.events, f.notifier, f.clock, lifecycle.DefaultPaymentWindow)
	return f
}

// awaiting seeds a registration for registrant accepted at t0 into a 15 EUR tournament.
func (f *fixture) awaiting(t *testing.T) *models.Registration {
	t.Helper()
	tournament := testutil.SeedTournament(t, f.db, organizer, 15)
	return testutil.SeedAwaitingPayment(t, f.db, tournament.ID, registrant, t0)
}

func (f *fixture) reload(t *testing.T, id string) *models.Registration {
	t.Helper()
	return testutil.Reload(t, f.db, id)
}

// deliver signs and reconciles one event.
func (f *fixture) deliver(t *testing.T, id string, kind payments.EventKind, object map[string]interface{}) (*ReconcileResult, error) {
	t.Helper()
	body := testutil.StripeEvent(t, id, string(kind), object)
	return f.webhooks.Reconcile(context.Background(), body, testutil.Sign(body, testutil.WebhookSecret))
}

func decodeJSON(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}
