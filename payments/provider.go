// Package payments wraps the payment provider: hosted checkout sessions and
// signed webhook events.
package payments

import (
	"context"
	"errors"
	"time"
)

var (
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrMalformedEvent      = errors.New("malformed webhook event")
	ErrMissingCorrelation  = errors.New("webhook event has no registration id")
)

// Metadata keys attached to every session and its payment intent.
const (
	MetadataRegistrationID = "registration_id"
	MetadataTournamentID   = "tournament_id"
	MetadataUserID         = "user_id"
)

// Session is a hosted checkout session.
type Session struct {
	ID        string    `json:"sessionId"`
	URL       string    `json:"url"`
	Status    string    `json:"status,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionRequest describes the single line item checkout for a registration.
type SessionRequest struct {
	AmountCents    int64
	Currency       string // ISO 4217
	ProductName    string
	Description    string
	CustomerEmail  string
	SuccessURL     string
	CancelURL      string
	RegistrationID string
	TournamentID   string
	UserID         string
	ExpiresAt      time.Time
}

func (r SessionRequest) metadata() map[string]string {
	return map[string]string{
		MetadataRegistrationID: r.RegistrationID,
		MetadataTournamentID:   r.TournamentID,
		MetadataUserID:         r.UserID,
	}
}

// Provider creates and retrieves checkout sessions.
type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
}
