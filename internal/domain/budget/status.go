package budget

import "github.com/BruksfildServices01/clinic-crm/internal/httperr"

// ===============================
// Budget Status
// ===============================

type Status string

const (
	StatusInAnalysis Status = "em_analise"
	StatusApproved   Status = "aprovado"
	StatusDenied     Status = "reprovado"
)

func InitialStatus() Status {
	return StatusInAnalysis
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusInAnalysis, StatusApproved, StatusDenied:
		return Status(s), nil
	}
	return "", httperr.ErrValidation("invalid_budget_status", "status de orçamento inválido: "+s)
}
