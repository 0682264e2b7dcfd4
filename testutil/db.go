// Package testutil provides database fixtures for tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tournament-registration/lifecycle"
	"tournament-registration/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB opens a migrated SQLite database in t's temp dir. The pool is
// limited to one connection so concurrent test writers serialize instead of
// failing with SQLITE_BUSY.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registrations.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// SeedTournament inserts a published tournament owned by organizerID.
func SeedTournament(t *testing.T, db *gorm.DB, organizerID string, entryFee float64) *models.Tournament {
	t.Helper()
	tournament := &models.Tournament{
		ID:          uuid.NewString(),
		OrganizerID: organizerID,
		Name:        "Open de Printemps",
		City:        "Lyon",
		EntryFee:    entryFee,
		Status:      "published",
		StartTime:   time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	if err := db.Create(tournament).Error; err != nil {
		t.Fatalf("seed tournament: %v", err)
	}
	return tournament
}

// SeedRegistration inserts a pending registration for userID.
func SeedRegistration(t *testing.T, db *gorm.DB, tournamentID, userID string) *models.Registration {
	t.Helper()
	reg := &models.Registration{
		ID:           uuid.NewString(),
		TournamentID: tournamentID,
		UserID:       userID,
		FirstName:    "Camille",
		LastName:     "Martin",
		Email:        "camille@example.com",
		Phone:        "0600000000",
		Status:       lifecycle.StatusPending,
	}
	if err := db.Create(reg).Error; err != nil {
		t.Fatalf("seed registration: %v", err)
	}
	return reg
}

// SeedAwaitingPayment inserts a registration already accepted at acceptedAt
// for a priced tournament, with the default payment window.
func SeedAwaitingPayment(t *testing.T, db *gorm.DB, tournamentID, userID string, acceptedAt time.Time) *models.Registration {
	t.Helper()
	reg := SeedRegistration(t, db, tournamentID, userID)
	patch, err := lifecycle.Plan(lifecycle.TriggerApprovePriced, reg.Status, lifecycle.Input{Now: acceptedAt})
	if err != nil {
		t.Fatalf("plan approval: %v", err)
	}
	err = db.Model(&models.Registration{}).Where("id = ?", reg.ID).Updates(map[string]interface{}{
		"status":           string(patch.Status),
		"payment_status":   string(patch.PaymentStatus),
		"accepted_at":      patch.AcceptedAt,
		"payment_deadline": patch.PaymentDeadline,
	}).Error
	if err != nil {
		t.Fatalf("accept registration: %v", err)
	}
	return Reload(t, db, reg.ID)
}

// Reload reads the current row for id.
func Reload(t *testing.T, db *gorm.DB, id string) *models.Registration {
	t.Helper()
	var reg models.Registration
	if err := db.WithContext(context.Background()).First(&reg, "id = ?", id).Error; err != nil {
		t.Fatalf("reload registration %s: %v", id, err)
	}
	return &reg
}
