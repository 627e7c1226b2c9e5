package models

import "time"

type Lead struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	ClinicID string `gorm:"size:36;index;not null" json:"clinic_id"`

	Name     string `gorm:"size:150" json:"name"`
	Phone    string `gorm:"size:20" json:"phone"`
	PhoneKey string `gorm:"size:20;index" json:"-"`
	Email    string `gorm:"size:150" json:"email"`
	Source   string `gorm:"size:20;not null" json:"source"`
	Interest string `gorm:"size:100" json:"interest"`
	Notes    string `gorm:"type:text" json:"notes"`

	OwnerID        *string  `gorm:"size:36;index" json:"owner_id"`
	StageKey       string   `gorm:"size:50;index;not null" json:"stage_key"`
	PatientID      *string  `gorm:"size:36" json:"patient_id"`
	LossReason     string   `gorm:"size:255" json:"loss_reason"`
	EstimatedValue *float64 `json:"estimated_value"`

	Tags []string `gorm:"type:jsonb;serializer:json" json:"tags"`

	LastContactAt *time.Time `json:"last_contact_at"`
	CreatedBy     *string    `gorm:"size:36" json:"created_by"`
	UpdatedBy     *string    `gorm:"size:36" json:"updated_by"`
	CreatedAt     time.Time  `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// Converted reports whether the lead already has a patient record.
func (l Lead) Converted() bool {
	return l.PatientID != nil && *l.PatientID != ""
}
