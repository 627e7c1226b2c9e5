package models

import "time"

type Tag struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	ClinicID string `gorm:"size:36;uniqueIndex:idx_tag_identity;not null" json:"clinic_id"`
	Name     string `gorm:"size:60;uniqueIndex:idx_tag_identity;not null" json:"name"`
	Category string `gorm:"size:60;uniqueIndex:idx_tag_identity" json:"category"`
	Color    string `gorm:"size:20" json:"color"`

	CreatedAt time.Time `gorm:"autoCreateTime:false" json:"created_at"`
}

// LeadTag is the lead <-> tag join row.
type LeadTag struct {
	LeadID    string    `gorm:"primaryKey;size:36" json:"lead_id"`
	TagID     string    `gorm:"primaryKey;size:36;index" json:"tag_id"`
	CreatedAt time.Time `gorm:"autoCreateTime:false" json:"created_at"`
}
