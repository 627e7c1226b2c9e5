package task

import (
	"time"

	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
)

// ===============================
// Task Status
// ===============================

type Status string

const (
	StatusPending  Status = "pending"
	StatusDone     Status = "done"
	StatusCanceled Status = "canceled"
)

type Type string

const (
	TypeBudgetFollowUp  Type = "budget_followup"
	TypeLeadFollowUp    Type = "lead_followup"
	TypePostConsult     Type = "post_consult"
	TypeInactivePatient Type = "inactive_patient"
	TypeCustom          Type = "custom"
)

func (t Type) Valid() bool {
	switch t {
	case TypeBudgetFollowUp, TypeLeadFollowUp, TypePostConsult, TypeInactivePatient, TypeCustom:
		return true
	}
	return false
}

func ValidChannel(c string) bool {
	switch c {
	case "", "whatsapp", "call", "email", "in_person":
		return true
	}
	return false
}

func ValidPriority(p string) bool {
	switch p {
	case "low", "medium", "high":
		return true
	}
	return false
}

// ===============================
// Validations
// ===============================

// CanEdit define se uma tarefa ainda aceita alterações
func CanEdit(current Status) error {
	if current != StatusPending {
		return httperr.ErrBusiness("invalid_state")
	}
	return nil
}

// ===============================
// Domain Actions
// ===============================

// Complete marks a pending task done. Completing a done task is a no-op
// and reports changed=false.
func Complete(t *models.Task, actorID *string, now time.Time) (bool, error) {
	switch Status(t.Status) {
	case StatusDone:
		return false, nil
	case StatusPending:
	default:
		return false, httperr.ErrBusiness("invalid_state")
	}

	t.Status = string(StatusDone)
	t.CompletedAt = &now
	t.CompletedBy = actorID
	t.UpdatedAt = now
	return true, nil
}

func Cancel(t *models.Task, now time.Time) (bool, error) {
	switch Status(t.Status) {
	case StatusCanceled:
		return false, nil
	case StatusPending:
	default:
		return false, httperr.ErrBusiness("invalid_state")
	}

	t.Status = string(StatusCanceled)
	t.CanceledAt = &now
	t.UpdatedAt = now
	return true, nil
}
