package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tournament-registration/lifecycle"
	"tournament-registration/models"
	"tournament-registration/payments"
	"tournament-registration/repositories"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
)

const providerStripe = "stripe"

// EventLog records provider events for audit and early duplicate detection.
type EventLog interface {
	Record(ctx context.Context, evt *models.PaymentEvent) (processed bool, err error)
	MarkProcessed(ctx context.Context, provider, providerEventID string, at time.Time, processingErr error) error
}

// Archiver keeps a copy of every verified webhook body.
type Archiver interface {
	Archive(ctx context.Context, provider, kind, eventID string, at time.Time, payload []byte) (string, error)
}

// Outcome is what reconciling one event did.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeNoop      Outcome = "noop"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeDropped   Outcome = "dropped"
)

type ReconcileResult struct {
	EventID        string             `json:"event_id"`
	Kind           payments.EventKind `json:"kind"`
	RegistrationID string             `json:"registration_id,omitempty"`
	Outcome        Outcome            `json:"outcome"`
}

var eventTriggers = map[payments.EventKind]lifecycle.Trigger{
	payments.EventCheckoutCompleted: lifecycle.TriggerCheckoutCompleted,
	payments.EventCheckoutExpired:   lifecycle.TriggerCheckoutExpired,
	payments.EventPaymentSucceeded:  lifecycle.TriggerPaymentSucceeded,
	payments.EventPaymentFailed:     lifecycle.TriggerPaymentFailed,
}

var eventNotifications = map[payments.EventKind]Notification{
	payments.EventCheckoutCompleted: NotifyPaid,
	payments.EventCheckoutExpired:   NotifyExpired,
	payments.EventPaymentFailed:     NotifyPaymentFailed,
}

// WebhookService applies provider events to registrations. Redelivering an
// event any number of times leaves the registration as the first delivery did.
type WebhookService struct {
	Verifier      payments.Verifier
	Registrations repositories.RegistrationStore
	Events        EventLog // optional
	Archive       Archiver // optional
	Notifier      Notifier
	Clock         clockwork.Clock
}

func NewWebhookService(
	verifier payments.Verifier,
	registrations repositories.RegistrationStore,
	events EventLog,
	archive Archiver,
	notifier Notifier,
	clock clockwork.Clock,
) *WebhookService {
	return &WebhookService{
		Verifier:      verifier,
		Registrations: registrations,
		Events:        events,
		Archive:       archive,
		Notifier:      notifier,
		Clock:         clock,
	}
}

// Reconcile verifies payload against signature and applies the event. It
// returns payments.ErrInvalidSignature or payments.ErrMalformedEvent before
// touching the store, and payments.ErrMissingCorrelation for handled events
// without a registration id.
func (s *WebhookService) Reconcile(ctx context.Context, payload []byte, signature string) (*ReconcileResult, error) {
	evt, err := s.Verifier.Verify(payload, signature)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now()
	res := &ReconcileResult{EventID: evt.ID, Kind: evt.Kind, RegistrationID: evt.RegistrationID}

	s.archive(ctx, evt, now)

	if !evt.Kind.Handled() {
		log.Printf("ℹ️  [WEBHOOK] Unhandled event %s (%s)", evt.Kind, evt.ID)
		res.Outcome = OutcomeIgnored
		return res, nil
	}
	if evt.RegistrationID == "" {
		res.Outcome = OutcomeDropped
		return res, fmt.Errorf("event %s (%s): %w", evt.ID, evt.Kind, payments.ErrMissingCorrelation)
	}

	if s.Events != nil {
		processed, err := s.Events.Record(ctx, &models.PaymentEvent{
			Provider:        providerStripe,
			ProviderEventID: evt.ID,
			Kind:            string(evt.Kind),
			RegistrationID:  evt.RegistrationID,
			SignatureValid:  true,
			PayloadJSON:     string(evt.Payload),
		})
		if err != nil {
			return nil, err
		}
		if processed {
			log.Printf("🔁 [WEBHOOK] Event %s already processed, acknowledging", evt.ID)
			res.Outcome = OutcomeDuplicate
			return res, nil
		}
	}

	outcome, applyErr := s.apply(ctx, evt, now)
	if s.Events != nil {
		if err := s.Events.MarkProcessed(ctx, providerStripe, evt.ID, now, applyErr); err != nil {
			log.Printf("⚠️  [WEBHOOK] Failed to mark event %s: %v", evt.ID, err)
		}
	}
	if applyErr != nil {
		return nil, applyErr
	}
	res.Outcome = outcome
	return res, nil
}

func (s *WebhookService) apply(ctx context.Context, evt *payments.Event, now time.Time) (Outcome, error) {
	reg, err := s.Registrations.Get(ctx, evt.RegistrationID)
	if errors.Is(err, lifecycle.ErrNotFound) {
		log.Printf("⚠️  [WEBHOOK] Event %s references unknown registration %s", evt.ID, evt.RegistrationID)
		return OutcomeIgnored, nil
	}
	if err != nil {
		return "", err
	}

	trigger := eventTriggers[evt.Kind]
	if !lifecycle.Allowed(trigger, reg.Status) {
		s.warnLatePayment(evt, reg.Status)
		log.Printf("ℹ️  [WEBHOOK] %s for registration %s ignored: status is %s", evt.Kind, reg.ID, reg.Status)
		return OutcomeNoop, nil
	}

	applied, err := lifecycle.Apply(ctx, s.Registrations, reg.ID, reg.Status, trigger, lifecycle.Input{
		Now:             now,
		SessionID:       evt.SessionID,
		PaymentIntentID: evt.PaymentIntentID,
	})
	if err != nil {
		return "", err
	}
	if !applied {
		log.Printf("ℹ️  [WEBHOOK] %s for registration %s lost the race, leaving it to the winner", evt.Kind, reg.ID)
		return OutcomeNoop, nil
	}

	log.Printf("✅ [WEBHOOK] %s applied to registration %s", evt.Kind, reg.ID)
	if n, ok := eventNotifications[evt.Kind]; ok {
		s.Notifier.Notify(ctx, reg, n)
	}
	return OutcomeApplied, nil
}

// warnLatePayment flags money captured for a registration that already
// expired; it needs a manual refund.
func (s *WebhookService) warnLatePayment(evt *payments.Event, status lifecycle.Status) {
	if evt.Kind == payments.EventCheckoutCompleted && status == lifecycle.StatusExpired {
		log.Printf("🚨 [WEBHOOK] Payment completed for EXPIRED registration %s (session %s, intent %s), refund required",
			evt.RegistrationID, evt.SessionID, evt.PaymentIntentID)
	}
}

func (s *WebhookService) archive(ctx context.Context, evt *payments.Event, at time.Time) {
	if s.Archive == nil {
		return
	}
	key, err := s.Archive.Archive(ctx, providerStripe, string(evt.Kind), evt.ID, at, evt.Payload)
	if err != nil {
		log.Printf("⚠️  [WEBHOOK] Failed to archive event %s: %v", evt.ID, err)
		return
	}
	log.Printf("🗄️  [WEBHOOK] Archived event %s to %s", evt.ID, key)
}

// HandleStripeWebhook handles POST /webhooks/stripe.
func (s *WebhookService) HandleStripeWebhook(c *fiber.Ctx) error {
	// fasthttp reuses the request buffer after the handler returns.
	payload := append([]byte(nil), c.Body()...)

	res, err := s.Reconcile(c.UserContext(), payload, c.Get("Stripe-Signature"))
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"received": true, "outcome": res.Outcome})
	case errors.Is(err, payments.ErrMissingCorrelation):
		log.Printf("❌ [WEBHOOK] Dropping event: %v", err)
		return c.JSON(fiber.Map{"received": true, "outcome": OutcomeDropped})
	case payments.IsRejection(err):
		log.Printf("❌ [WEBHOOK] Rejected: %v", err)
		_, kind := errorKind(err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "kind": kind})
	default:
		log.Printf("❌ [WEBHOOK] Processing failed, provider will redeliver: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook processing failed"})
	}
}
