// Package repositories implements the registration store on top of gorm.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tournament-registration/lifecycle"
	"tournament-registration/models"

	"gorm.io/gorm"
)

// RegistrationStore is the store contract the payment lifecycle runs on.
type RegistrationStore interface {
	lifecycle.Updater
	Get(ctx context.Context, id string) (*models.Registration, error)
	ConditionalSetSessionID(ctx context.Context, id, sessionID string) error
	QueryExpiredAwaitingPayment(ctx context.Context, now time.Time) ([]models.Registration, error)
}

type RegistrationRepository struct {
	db *gorm.DB
}

func NewRegistrationRepository(db *gorm.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

var _ RegistrationStore = (*RegistrationRepository)(nil)

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, lifecycle.ErrStoreUnavailable, err)
}

func (r *RegistrationRepository) Get(ctx context.Context, id string) (*models.Registration, error) {
	var reg models.Registration
	if err := r.db.WithContext(ctx).First(&reg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("registration %s: %w", id, lifecycle.ErrNotFound)
		}
		return nil, storeErr("get registration", err)
	}
	return &reg, nil
}

// Create inserts a new registration. Status defaults to pending.
func (r *RegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	if reg.Status == "" {
		reg.Status = lifecycle.StatusPending
	}
	if err := r.db.WithContext(ctx).Create(reg).Error; err != nil {
		return storeErr("create registration", err)
	}
	return nil
}

func (r *RegistrationRepository) ListByTournament(ctx context.Context, tournamentID string) ([]models.Registration, error) {
	var regs []models.Registration
	err := r.db.WithContext(ctx).
		Where("tournament_id = ?", tournamentID).
		Order("created_at ASC").
		Find(&regs).Error
	if err != nil {
		return nil, storeErr("list registrations", err)
	}
	return regs, nil
}

// ConditionalUpdate writes patch only if the row still has status expected:
//
//	UPDATE registrations SET ... WHERE id = ? AND status = ?
//
// Zero RowsAffected means another writer moved the row first and is reported
// as lifecycle.ErrPreconditionFailed.
func (r *RegistrationRepository) ConditionalUpdate(ctx context.Context, id string, expected lifecycle.Status, patch lifecycle.Patch) error {
	updates := patchColumns(patch)
	q := r.db.WithContext(ctx).Model(&models.Registration{}).
		Where("id = ? AND status = ?", id, string(expected))

	if len(updates) == 0 {
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return storeErr("conditional update", err)
		}
		if n == 0 {
			return lifecycle.ErrPreconditionFailed
		}
		return nil
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return storeErr("conditional update", res.Error)
	}
	if res.RowsAffected == 0 {
		return lifecycle.ErrPreconditionFailed
	}
	return nil
}

func patchColumns(p lifecycle.Patch) map[string]interface{} {
	updates := map[string]interface{}{}
	if p.Status != "" {
		updates["status"] = string(p.Status)
	}
	if p.PaymentStatus != lifecycle.PaymentNone {
		updates["payment_status"] = string(p.PaymentStatus)
	}
	if !p.AcceptedAt.IsZero() {
		updates["accepted_at"] = p.AcceptedAt.UTC()
	}
	if !p.PaymentDeadline.IsZero() {
		updates["payment_deadline"] = p.PaymentDeadline.UTC()
	}
	if !p.PaidAt.IsZero() {
		updates["paid_at"] = p.PaidAt.UTC()
	}
	if p.SessionIDIfAbsent != "" {
		updates["payment_session_id"] = gorm.Expr("COALESCE(payment_session_id, ?)", p.SessionIDIfAbsent)
	}
	if p.PaymentIntentIDIfAbsent != "" {
		updates["payment_intent_id"] = gorm.Expr("COALESCE(payment_intent_id, ?)", p.PaymentIntentIDIfAbsent)
	}
	return updates
}

// ConditionalSetSessionID persists sessionID only if no session was recorded
// yet and the registration is still awaiting payment.
func (r *RegistrationRepository) ConditionalSetSessionID(ctx context.Context, id, sessionID string) error {
	res := r.db.WithContext(ctx).Model(&models.Registration{}).
		Where("id = ? AND status = ? AND payment_session_id IS NULL", id, string(lifecycle.StatusAwaitingPayment)).
		Update("payment_session_id", sessionID)
	if res.Error != nil {
		return storeErr("set session id", res.Error)
	}
	if res.RowsAffected == 0 {
		return lifecycle.ErrPreconditionFailed
	}
	return nil
}

// QueryExpiredAwaitingPayment lists registrations still awaiting payment whose
// deadline is strictly before now, oldest deadline first.
func (r *RegistrationRepository) QueryExpiredAwaitingPayment(ctx context.Context, now time.Time) ([]models.Registration, error) {
	var regs []models.Registration
	err := r.db.WithContext(ctx).
		Where("status = ? AND payment_deadline < ?", string(lifecycle.StatusAwaitingPayment), now.UTC()).
		Order("payment_deadline ASC").
		Find(&regs).Error
	if err != nil {
		return nil, storeErr("query expired registrations", err)
	}
	return regs, nil
}
