package models

import "time"

// Patient is the clinical record created when a lead converts.
type Patient struct {
	ID           string  `gorm:"primaryKey;size:36" json:"id"`
	ClinicID     string  `gorm:"size:36;index;not null" json:"clinic_id"`
	Name         string  `gorm:"size:150;not null" json:"name"`
	Phone        string  `gorm:"size:20" json:"phone"`
	Email        string  `gorm:"size:150" json:"email"`
	OriginLeadID *string `gorm:"size:36" json:"origin_lead_id"`
	CreatedBy    *string `gorm:"size:36" json:"created_by"`

	CreatedAt time.Time `gorm:"autoCreateTime:false" json:"created_at"`
}
