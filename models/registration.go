package models

import (
	"time"

	"tournament-registration/lifecycle"
)

// Registration is a registrant's entry in a tournament and the record the
// payment lifecycle drives. Status and payment columns are only ever written
// through conditional updates (see repositories.RegistrationRepository).
type Registration struct {
	ID           string `json:"id" gorm:"primaryKey"`
	TournamentID string `json:"tournament_id" gorm:"not null;index"`
	UserID       string `json:"user_id" gorm:"not null;index"` // external user id from the gateway

	// Registrant identity
	FirstName string `json:"first_name" gorm:"not null"`
	LastName  string `json:"last_name" gorm:"not null"`
	Email     string `json:"email" gorm:"not null"`
	Phone     string `json:"phone"`
	TeamName  string `json:"team_name,omitempty"`

	Status           lifecycle.Status        `json:"status" gorm:"type:varchar(24);not null;default:'pending';index"`
	PaymentStatus    lifecycle.PaymentStatus `json:"payment_status,omitempty" gorm:"type:varchar(16)"`
	PaymentSessionID *string                 `json:"payment_session_id,omitempty" gorm:"uniqueIndex"`
	PaymentIntentID  *string                 `json:"payment_intent_id,omitempty" gorm:"index"`

	AcceptedAt      *time.Time `json:"accepted_at,omitempty"`
	PaymentDeadline *time.Time `json:"payment_deadline,omitempty" gorm:"index"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// SessionID returns the persisted payment session id, or "" if none.
func (r *Registration) SessionID() string {
	if r.PaymentSessionID == nil {
		return ""
	}
	return *r.PaymentSessionID
}

// DeadlinePassed reports whether the payment window closed before now.
func (r *Registration) DeadlinePassed(now time.Time) bool {
	return r.PaymentDeadline != nil && r.PaymentDeadline.Before(now)
}
