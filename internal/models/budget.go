package models

import "time"

type BudgetItem struct {
	Description string  `json:"description"`
	Value       float64 `json:"value"`
}

type Budget struct {
	ID        string  `gorm:"primaryKey;size:36" json:"id"`
	ClinicID  string  `gorm:"size:36;index;not null" json:"clinic_id"`
	LeadID    string  `gorm:"size:36;index;not null" json:"lead_id"`
	PatientID *string `gorm:"size:36" json:"patient_id"`

	Title        string       `gorm:"size:150;not null" json:"title"`
	Items        []BudgetItem `gorm:"type:jsonb;serializer:json" json:"items"`
	Total        float64      `json:"total"`
	Status       string       `gorm:"size:20;index;not null" json:"status"`
	DeniedReason string       `gorm:"size:255" json:"denied_reason"`

	CreatedBy   *string    `gorm:"size:36" json:"created_by"`
	ApprovedBy  *string    `gorm:"size:36" json:"approved_by"`
	DeniedBy    *string    `gorm:"size:36" json:"denied_by"`
	PresentedAt *time.Time `json:"presented_at"`
	ApprovedAt  *time.Time `json:"approved_at"`
	DeniedAt    *time.Time `json:"denied_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime:false" json:"updated_at"`
}
