package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"tournament-registration/lifecycle"
	"tournament-registration/models"
	"tournament-registration/repositories"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	ErrAlreadyDecided = errors.New("registration already decided")
	ErrInvalidInput   = errors.New("invalid input")
)

// Decision is an organizer's answer to a pending registration.
type Decision string

const (
	DecisionApprove  Decision = "approve"
	DecisionReject   Decision = "reject"
	DecisionWaitlist Decision = "waitlist"
)

// RegistrationWriter is what RegistrationService needs beyond the lifecycle store.
type RegistrationWriter interface {
	repositories.RegistrationStore
	Create(ctx context.Context, reg *models.Registration) error
	ListByTournament(ctx context.Context, tournamentID string) ([]models.Registration, error)
}

// EventLister reads back the provider events recorded for a registration.
type EventLister interface {
	ListByRegistration(ctx context.Context, registrationID string) ([]models.PaymentEvent, error)
}

// RegistrationService covers the organizer side of the lifecycle and the
// registrant's read of their payment state.
type RegistrationService struct {
	Registrations RegistrationWriter
	Tournaments   TournamentReader
	Events        EventLister // optional
	Notifier      Notifier
	Clock         clockwork.Clock
	PaymentWindow time.Duration
}

func NewRegistrationService(
	registrations RegistrationWriter,
	tournaments TournamentReader,
	events EventLister,
	notifier Notifier,
	clock clockwork.Clock,
	window time.Duration,
) *RegistrationService {
	return &RegistrationService{
		Registrations: registrations,
		Tournaments:   tournaments,
		Events:        events,
		Notifier:      notifier,
		Clock:         clock,
		PaymentWindow: window,
	}
}

// RegistrationInput is the registrant identity submitted with a registration.
type RegistrationInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	TeamName  string `json:"teamName"`
}

func (in *RegistrationInput) normalize() error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.TeamName = strings.TrimSpace(in.TeamName)

	if in.FirstName == "" || in.LastName == "" || in.Email == "" {
		return fmt.Errorf("%w: firstName, lastName and email are required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return fmt.Errorf("%w: email: %v", ErrInvalidInput, err)
	}
	return nil
}

// Create registers userID for tournamentID in status pending.
func (s *RegistrationService) Create(ctx context.Context, tournamentID, userID string, in RegistrationInput) (*models.Registration, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	tournament, err := s.Tournaments.Get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	reg := &models.Registration{
		ID:           uuid.NewString(),
		TournamentID: tournament.ID,
		UserID:       userID,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		Phone:        in.Phone,
		TeamName:     in.TeamName,
		Status:       lifecycle.StatusPending,
	}
	if err := s.Registrations.Create(ctx, reg); err != nil {
		return nil, err
	}
	log.Printf("📝 [REGISTRATION] %s registered user %s for tournament %s", reg.ID, userID, tournament.ID)
	return reg, nil
}

// Decide applies an organizer decision. Approving a priced tournament opens
// the payment window; approving a free one accepts outright.
func (s *RegistrationService) Decide(ctx context.Context, registrationID, organizerID string, d Decision) (*models.Registration, error) {
	reg, err := s.Registrations.Get(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	tournament, err := s.Tournaments.Get(ctx, reg.TournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.OrganizerID != organizerID {
		return nil, fmt.Errorf("tournament %s: %w", tournament.ID, lifecycle.ErrForbidden)
	}

	var trigger lifecycle.Trigger
	switch d {
	case DecisionApprove:
		trigger = lifecycle.TriggerApproveFree
		if tournament.Priced() {
			trigger = lifecycle.TriggerApprovePriced
		}
	case DecisionReject:
		trigger = lifecycle.TriggerReject
	case DecisionWaitlist:
		trigger = lifecycle.TriggerWaitlist
	default:
		return nil, fmt.Errorf("%w: unknown decision %q", ErrInvalidInput, d)
	}

	if !lifecycle.Allowed(trigger, reg.Status) {
		return nil, fmt.Errorf("registration %s is %s: %w", reg.ID, reg.Status, ErrAlreadyDecided)
	}
	applied, err := lifecycle.Apply(ctx, s.Registrations, reg.ID, reg.Status, trigger, lifecycle.Input{
		Now:           s.Clock.Now(),
		PaymentWindow: s.PaymentWindow,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("registration %s changed concurrently: %w", reg.ID, ErrAlreadyDecided)
	}

	updated, err := s.Registrations.Get(ctx, reg.ID)
	if err != nil {
		return nil, err
	}
	log.Printf("✅ [REGISTRATION] %s: %s → %s", reg.ID, reg.Status, updated.Status)
	switch d {
	case DecisionApprove:
		s.Notifier.Notify(ctx, updated, NotifyAccepted)
	case DecisionReject:
		s.Notifier.Notify(ctx, updated, NotifyRejected)
	}
	return updated, nil
}

// List returns a tournament's registrations to its organizer.
func (s *RegistrationService) List(ctx context.Context, tournamentID, organizerID string) ([]models.Registration, error) {
	tournament, err := s.Tournaments.Get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.OrganizerID != organizerID {
		return nil, fmt.Errorf("tournament %s: %w", tournament.ID, lifecycle.ErrForbidden)
	}
	return s.Registrations.ListByTournament(ctx, tournament.ID)
}

// PaymentSummary is the registrant's view of where their payment stands.
type PaymentSummary struct {
	RegistrationID   string                  `json:"registrationId"`
	Status           lifecycle.Status        `json:"status"`
	PaymentStatus    lifecycle.PaymentStatus `json:"paymentStatus,omitempty"`
	PaymentDeadline  *time.Time              `json:"paymentDeadline,omitempty"`
	RemainingSeconds int64                   `json:"remainingSeconds"`
	PaidAt           *time.Time              `json:"paidAt,omitempty"`
	Events           []models.PaymentEvent   `json:"events,omitempty"`
}

// PaymentSummary reads the payment state without transitioning anything; an
// overdue registration shows zero remaining time until the sweeper runs.
func (s *RegistrationService) PaymentSummary(ctx context.Context, registrationID, userID string) (*PaymentSummary, error) {
	reg, err := s.Registrations.Get(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.UserID != userID {
		return nil, fmt.Errorf("registration %s: %w", reg.ID, lifecycle.ErrForbidden)
	}

	summary := &PaymentSummary{
		RegistrationID:  reg.ID,
		Status:          reg.Status,
		PaymentStatus:   reg.PaymentStatus,
		PaymentDeadline: reg.PaymentDeadline,
		PaidAt:          reg.PaidAt,
	}
	if reg.Status == lifecycle.StatusAwaitingPayment && reg.PaymentDeadline != nil {
		if remaining := reg.PaymentDeadline.Sub(s.Clock.Now()); remaining > 0 {
			summary.RemainingSeconds = int64(remaining / time.Second)
		}
	}
	if s.Events != nil {
		events, err := s.Events.ListByRegistration(ctx, reg.ID)
		if err != nil {
			log.Printf("⚠️  [REGISTRATION] Could not load payment events for %s: %v", reg.ID, err)
		} else {
			summary.Events = events
		}
	}
	return summary, nil
}

// --- HTTP handlers ---

// CreateRegistration handles POST /s/tournaments/:id/registrations.
func (s *RegistrationService) CreateRegistration(c *fiber.Ctx) error {
	var in RegistrationInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	reg, err := s.Create(c.UserContext(), c.Params("id"), callerID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reg)
}

// DecideRegistration handles PATCH /s/registrations/:id/decision.
func (s *RegistrationService) DecideRegistration(c *fiber.Ctx) error {
	var req struct {
		Decision Decision `json:"decision"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	reg, err := s.Decide(c.UserContext(), c.Params("id"), callerID(c), req.Decision)
	if err != nil {
		log.Printf("❌ [REGISTRATION] decision %s on %s: %v", req.Decision, c.Params("id"), err)
		return respondError(c, err)
	}
	return c.JSON(reg)
}

// ListRegistrations handles GET /s/tournaments/:id/registrations.
func (s *RegistrationService) ListRegistrations(c *fiber.Ctx) error {
	regs, err := s.List(c.UserContext(), c.Params("id"), callerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"registrations": regs, "count": len(regs)})
}

// GetPaymentSummary handles GET /s/registrations/:id/payment.
func (s *RegistrationService) GetPaymentSummary(c *fiber.Ctx) error {
	summary, err := s.PaymentSummary(c.UserContext(), c.Params("id"), callerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}
