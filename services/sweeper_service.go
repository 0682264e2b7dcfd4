package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tournament-registration/lifecycle"
	"tournament-registration/repositories"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
)

// ExpiredRegistration identifies a registration a sweep expired.
type ExpiredRegistration struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	PaymentDeadline time.Time `json:"paymentDeadline"`
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	ExpiredCount int                   `json:"expiredCount"`
	Expired      []ExpiredRegistration `json:"expired"`
	Scanned      int                   `json:"scanned"`
	Skipped      int                   `json:"skipped"`
	Failed       int                   `json:"failed"`
}

// SweeperService expires registrations whose payment deadline passed without
// a completed payment.
type SweeperService struct {
	Registrations repositories.RegistrationStore
	Notifier      Notifier
	Clock         clockwork.Clock
}

func NewSweeperService(registrations repositories.RegistrationStore, notifier Notifier, clock clockwork.Clock) *SweeperService {
	return &SweeperService{Registrations: registrations, Notifier: notifier, Clock: clock}
}

// Sweep expires every overdue registration. Rows another writer moved first
// are skipped. A failure on one row does not stop the others; all failures are
// returned joined.
func (s *SweeperService) Sweep(ctx context.Context) (SweepResult, error) {
	res := SweepResult{Expired: []ExpiredRegistration{}}
	now := s.Clock.Now()

	overdue, err := s.Registrations.QueryExpiredAwaitingPayment(ctx, now)
	if err != nil {
		return res, err
	}
	res.Scanned = len(overdue)

	var errs []error
	for i := range overdue {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		reg := &overdue[i]
		applied, err := lifecycle.Apply(ctx, s.Registrations, reg.ID, reg.Status, lifecycle.TriggerDeadlineElapsed,
			lifecycle.Input{Now: now})
		if err != nil {
			res.Failed++
			errs = append(errs, fmt.Errorf("expire %s: %w", reg.ID, err))
			continue
		}
		if !applied {
			res.Skipped++
			continue
		}
		res.ExpiredCount++
		expired := ExpiredRegistration{ID: reg.ID, Email: reg.Email, FirstName: reg.FirstName, LastName: reg.LastName}
		if reg.PaymentDeadline != nil {
			expired.PaymentDeadline = *reg.PaymentDeadline
		}
		res.Expired = append(res.Expired, expired)
		s.Notifier.Notify(ctx, reg, NotifyExpired)
	}

	if res.Scanned > 0 {
		log.Printf("⏰ [SWEEPER] Expired %d/%d overdue registrations (skipped=%d, failed=%d)",
			res.ExpiredCount, res.Scanned, res.Skipped, res.Failed)
	}
	return res, errors.Join(errs...)
}

// ExpirePayments handles GET|POST /cron/expire-payments.
func (s *SweeperService) ExpirePayments(c *fiber.Ctx) error {
	res, err := s.Sweep(c.UserContext())
	if err != nil {
		log.Printf("❌ [SWEEPER] Sweep failed: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":        err.Error(),
			"expiredCount": res.ExpiredCount,
		})
	}
	return c.JSON(res)
}
