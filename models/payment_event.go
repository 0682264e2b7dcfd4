package models

import "time"

// PaymentEvent logs every verified provider webhook for audit and so that a
// redelivery of an already processed event can be acknowledged early.
type PaymentEvent struct {
	ID              string     `json:"id" gorm:"primaryKey"`
	Provider        string     `json:"provider" gorm:"type:varchar(20);not null;uniqueIndex:ux_payment_events_provider_event,priority:1"`
	ProviderEventID string     `json:"provider_event_id" gorm:"type:varchar(191);not null;uniqueIndex:ux_payment_events_provider_event,priority:2"`
	Kind            string     `json:"kind" gorm:"type:varchar(100);not null;index"`
	RegistrationID  string     `json:"registration_id,omitempty" gorm:"index"`
	SignatureValid  bool       `json:"signature_valid" gorm:"default:false"`
	PayloadJSON     string     `json:"payload_json" gorm:"type:text"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	ProcessingError string     `json:"processing_error,omitempty" gorm:"type:text"`
	CreatedAt       time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}
