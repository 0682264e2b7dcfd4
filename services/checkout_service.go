package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"tournament-registration/lifecycle"
	"tournament-registration/models"
	"tournament-registration/payments"
	"tournament-registration/repositories"
	"tournament-registration/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

// TournamentReader looks up the tournament a registration belongs to.
type TournamentReader interface {
	Get(ctx context.Context, id string) (*models.Tournament, error)
}

// CheckoutService hands a registrant a payable checkout session, creating at
// most one per registration.
type CheckoutService struct {
	Registrations repositories.RegistrationStore
	Tournaments   TournamentReader
	Provider      payments.Provider
	Notifier      Notifier
	Clock         clockwork.Clock
	Currency      currency.Unit
	SiteURL       string
}

func NewCheckoutService(
	registrations repositories.RegistrationStore,
	tournaments TournamentReader,
	provider payments.Provider,
	notifier Notifier,
	clock clockwork.Clock,
	unit currency.Unit,
	siteURL string,
) *CheckoutService {
	return &CheckoutService{
		Registrations: registrations,
		Tournaments:   tournaments,
		Provider:      provider,
		Notifier:      notifier,
		Clock:         clock,
		Currency:      unit,
		SiteURL:       siteURL,
	}
}

// Initiate returns the checkout session for registrationID on behalf of
// userID. Concurrent calls for the same registration all return the single
// session that won the conditional write.
func (s *CheckoutService) Initiate(ctx context.Context, registrationID, userID string) (*payments.Session, error) {
	reg, err := s.Registrations.Get(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.UserID != userID {
		return nil, fmt.Errorf("registration %s: %w", reg.ID, lifecycle.ErrForbidden)
	}
	if err := payableStatus(reg); err != nil {
		return nil, err
	}
	if reg.PaymentDeadline == nil {
		return nil, fmt.Errorf("registration %s has no payment deadline: %w", reg.ID, lifecycle.ErrNotPayable)
	}

	now := s.Clock.Now()
	if reg.DeadlinePassed(now) {
		return nil, s.expire(ctx, reg)
	}
	if sid := reg.SessionID(); sid != "" {
		return s.resume(ctx, reg, sid)
	}

	tournament, err := s.Tournaments.Get(ctx, reg.TournamentID)
	if err != nil {
		return nil, err
	}
	if !tournament.Priced() {
		return nil, fmt.Errorf("tournament %s is free: %w", tournament.ID, lifecycle.ErrNotPayable)
	}

	created, err := s.Provider.CreateSession(ctx, s.sessionRequest(reg, tournament))
	if err != nil {
		return nil, err
	}

	err = s.Registrations.ConditionalSetSessionID(ctx, reg.ID, created.ID)
	if err == nil {
		log.Printf("✅ [CHECKOUT] Session %s recorded for registration %s", created.ID, reg.ID)
		s.retryFailedPayment(ctx, reg)
		return created, nil
	}
	if !errors.Is(err, lifecycle.ErrPreconditionFailed) {
		return nil, err
	}

	// Another initiator recorded its session first, or the registration left
	// awaiting_payment meanwhile. Our session is abandoned.
	log.Printf("⚠️  [CHECKOUT] Discarding session %s: registration %s changed concurrently", created.ID, reg.ID)
	winner, err := s.Registrations.Get(ctx, reg.ID)
	if err != nil {
		return nil, err
	}
	if err := payableStatus(winner); err != nil {
		return nil, err
	}
	if sid := winner.SessionID(); sid != "" {
		return s.resume(ctx, winner, sid)
	}
	return nil, fmt.Errorf("registration %s: session not recorded: %w", reg.ID, lifecycle.ErrStoreUnavailable)
}

// payableStatus rejects registrations that are not awaiting payment.
func payableStatus(reg *models.Registration) error {
	switch reg.Status {
	case lifecycle.StatusAwaitingPayment:
		return nil
	case lifecycle.StatusPaid:
		return fmt.Errorf("registration %s: %w", reg.ID, lifecycle.ErrAlreadyPaid)
	case lifecycle.StatusExpired:
		return fmt.Errorf("registration %s: %w", reg.ID, lifecycle.ErrDeadlineExpired)
	}
	return fmt.Errorf("registration %s is %s: %w", reg.ID, reg.Status, lifecycle.ErrNotPayable)
}

// expire moves an overdue registration to expired and reports
// ErrDeadlineExpired. Losing the race to another expiring writer ends the same
// way; losing it to a completed payment reports ErrAlreadyPaid instead.
func (s *CheckoutService) expire(ctx context.Context, reg *models.Registration) error {
	applied, err := lifecycle.Apply(ctx, s.Registrations, reg.ID, reg.Status, lifecycle.TriggerDeadlineElapsed,
		lifecycle.Input{Now: s.Clock.Now()})
	if err != nil {
		return err
	}
	if applied {
		log.Printf("⏰ [CHECKOUT] Registration %s expired at checkout (deadline %s)", reg.ID, reg.PaymentDeadline)
		s.Notifier.Notify(ctx, reg, NotifyExpired)
		return fmt.Errorf("registration %s: %w", reg.ID, lifecycle.ErrDeadlineExpired)
	}

	current, err := s.Registrations.Get(ctx, reg.ID)
	if err == nil && current.Status == lifecycle.StatusPaid {
		return fmt.Errorf("registration %s: %w", reg.ID, lifecycle.ErrAlreadyPaid)
	}
	return fmt.Errorf("registration %s: %w", reg.ID, lifecycle.ErrDeadlineExpired)
}

// resume returns the already recorded session, e.g. when the registrant
// reloads the payment page.
func (s *CheckoutService) resume(ctx context.Context, reg *models.Registration, sessionID string) (*payments.Session, error) {
	session, err := s.Provider.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.retryFailedPayment(ctx, reg)
	return session, nil
}

// retryFailedPayment puts a failed payment back to pending when the registrant
// comes back to pay again.
func (s *CheckoutService) retryFailedPayment(ctx context.Context, reg *models.Registration) {
	if reg.PaymentStatus != lifecycle.PaymentFailed {
		return
	}
	applied, err := lifecycle.Apply(ctx, s.Registrations, reg.ID, reg.Status, lifecycle.TriggerPaymentRetry,
		lifecycle.Input{Now: s.Clock.Now()})
	if err != nil {
		log.Printf("❌ [CHECKOUT] Failed to reset payment status for %s: %v", reg.ID, err)
		return
	}
	if applied {
		log.Printf("🔁 [CHECKOUT] Registration %s retrying after failed payment", reg.ID)
	}
}

func (s *CheckoutService) sessionRequest(reg *models.Registration, t *models.Tournament) payments.SessionRequest {
	amount := t.EntryFeeCents()
	return payments.SessionRequest{
		AmountCents:    amount,
		Currency:       s.Currency.String(),
		ProductName:    fmt.Sprintf("Inscription - %s", t.Name),
		Description:    fmt.Sprintf("Inscription au tournoi: %s (%s)", t.Name, utils.FormatAmount(amount, s.Currency, language.French)),
		CustomerEmail:  reg.Email,
		SuccessURL:     fmt.Sprintf("%s/tournois/%s?payment=success", s.SiteURL, t.ID),
		CancelURL:      fmt.Sprintf("%s/tournois/%s?payment=cancelled", s.SiteURL, t.ID),
		RegistrationID: reg.ID,
		TournamentID:   t.ID,
		UserID:         reg.UserID,
		ExpiresAt:      *reg.PaymentDeadline,
	}
}

// CreateCheckoutSession handles POST /s/payments/checkout.
func (s *CheckoutService) CreateCheckoutSession(c *fiber.Ctx) error {
	var req struct {
		RegistrationID string `json:"registrationId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.RegistrationID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "registrationId is required"})
	}

	session, err := s.Initiate(c.UserContext(), req.RegistrationID, callerID(c))
	if err != nil {
		log.Printf("❌ [CHECKOUT] registration=%s user=%s: %v", req.RegistrationID, callerID(c), err)
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"sessionId": session.ID, "url": session.URL})
}
