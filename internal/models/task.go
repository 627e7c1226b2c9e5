package models

import "time"

type Task struct {
	ID            string  `gorm:"primaryKey;size:36" json:"id"`
	ClinicID      string  `gorm:"size:36;index;not null" json:"clinic_id"`
	LeadID        *string `gorm:"size:36;index" json:"lead_id"`
	PatientID     *string `gorm:"size:36;index" json:"patient_id"`
	BudgetID      *string `gorm:"size:36" json:"budget_id"`
	AppointmentID *string `gorm:"size:36" json:"appointment_id"`

	Title       string `gorm:"size:150;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Type        string `gorm:"size:30;not null" json:"type"`
	Channel     string `gorm:"size:20" json:"channel"`
	Priority    string `gorm:"size:10;default:'medium'" json:"priority"`
	Status      string `gorm:"size:20;index;default:'pending'" json:"status"`

	DueAt       time.Time  `gorm:"index" json:"due_at"`
	AssigneeID  *string    `gorm:"size:36" json:"assignee_id"`
	CreatedBy   *string    `gorm:"size:36" json:"created_by"`
	CompletedBy *string    `gorm:"size:36" json:"completed_by"`
	CompletedAt *time.Time `json:"completed_at"`
	CanceledAt  *time.Time `json:"canceled_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime:false" json:"updated_at"`
}
