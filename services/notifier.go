package services

import (
	"context"
	"log"

	"tournament-registration/models"
)

// Notification is a registrant-facing message about a payment outcome.
type Notification string

const (
	NotifyAccepted      Notification = "accepted"
	NotifyPaid          Notification = "paid"
	NotifyExpired       Notification = "expired"
	NotifyPaymentFailed Notification = "payment_failed"
	NotifyRejected      Notification = "rejected"
)

// Notifier delivers notifications. Delivery is best effort and never fails
// the transition that triggered it.
type Notifier interface {
	Notify(ctx context.Context, reg *models.Registration, n Notification)
}

// LogNotifier only logs; email delivery is not wired yet.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, reg *models.Registration, n Notification) {
	log.Printf("📧 [NOTIFY] %s → registration %s (%s)", n, reg.ID, reg.Email)
}
