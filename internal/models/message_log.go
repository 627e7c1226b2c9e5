package models

import "time"

type MessageLog struct {
	ID       string  `gorm:"primaryKey;size:36" json:"id"`
	ClinicID string  `gorm:"size:36;index;not null" json:"clinic_id"`
	LeadID   string  `gorm:"size:36;index;not null" json:"lead_id"`
	Channel  string  `gorm:"size:20;not null" json:"channel"`
	Body     string  `gorm:"type:text;not null" json:"body"`
	SentBy   *string `gorm:"size:36" json:"sent_by"`

	CreatedAt time.Time `gorm:"autoCreateTime:false" json:"created_at"`
}
