package models

import "time"

// LeadEvent is an immutable timeline entry. Rows are only ever inserted.
type LeadEvent struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	ClinicID string `gorm:"size:36;index;not null" json:"clinic_id"`
	LeadID   string `gorm:"size:36;index;not null" json:"lead_id"`

	Type        string         `gorm:"size:50;index;not null" json:"type"`
	ActorID     *string        `gorm:"size:36" json:"actor_id"`
	Description string         `gorm:"type:text" json:"description"`
	Payload     map[string]any `gorm:"type:jsonb;serializer:json" json:"payload"`

	CreatedAt time.Time `gorm:"autoCreateTime:false;index" json:"created_at"`
}
