package models

import (
	"math"
	"time"
)

// Tournament is the subset of the tournament record the registration flow
// reads. Tournament CRUD lives elsewhere.
type Tournament struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	OrganizerID string    `json:"organizer_id" gorm:"not null;index"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	City        string    `json:"city"`
	MaxTeams    int       `json:"max_teams" gorm:"default:0"`
	EntryFee    float64   `json:"entry_fee" gorm:"default:0"` // major currency units, 0 = free
	Status      string    `json:"status" gorm:"default:'draft'"`
	StartTime   time.Time `json:"start_time" gorm:"not null"`
	EndTime     time.Time `json:"end_time"`

	Registrations []Registration `json:"registrations,omitempty" gorm:"foreignKey:TournamentID"`

	Timestamps
}

// Priced reports whether accepted registrations must go through payment.
func (t *Tournament) Priced() bool {
	return t.EntryFee > 0
}

// EntryFeeCents is the entry fee in minor units, rounded to the nearest cent.
func (t *Tournament) EntryFeeCents() int64 {
	return int64(math.Round(t.EntryFee * 100))
}
