package repositories

import (
	"context"
	"time"

	"tournament-registration/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentEventRepository is the webhook event log.
type PaymentEventRepository struct {
	db *gorm.DB
}

func NewPaymentEventRepository(db *gorm.DB) *PaymentEventRepository {
	return &PaymentEventRepository{db: db}
}

// Record inserts evt unless (provider, provider_event_id) already exists and
// reports whether the stored event was already processed.
func (r *PaymentEventRepository) Record(ctx context.Context, evt *models.PaymentEvent) (bool, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
		DoNothing: true,
	}).Create(evt).Error
	if err != nil {
		return false, storeErr("record payment event", err)
	}

	var stored models.PaymentEvent
	err = db.Where("provider = ? AND provider_event_id = ?", evt.Provider, evt.ProviderEventID).
		First(&stored).Error
	if err != nil {
		return false, storeErr("load payment event", err)
	}
	return stored.ProcessedAt != nil, nil
}

// MarkProcessed stamps processed_at, or stores processingErr when the event
// could not be applied so a redelivery is attempted again.
func (r *PaymentEventRepository) MarkProcessed(ctx context.Context, provider, providerEventID string, at time.Time, processingErr error) error {
	updates := map[string]interface{}{}
	if processingErr != nil {
		updates["processing_error"] = processingErr.Error()
	} else {
		updates["processed_at"] = at.UTC()
		updates["processing_error"] = ""
	}
	err := r.db.WithContext(ctx).Model(&models.PaymentEvent{}).
		Where("provider = ? AND provider_event_id = ?", provider, providerEventID).
		Updates(updates).Error
	if err != nil {
		return storeErr("mark payment event", err)
	}
	return nil
}

func (r *PaymentEventRepository) ListByRegistration(ctx context.Context, registrationID string) ([]models.PaymentEvent, error) {
	var events []models.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("registration_id = ?", registrationID).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, storeErr("list payment events", err)
	}
	return events, nil
}
