package budget

import (
	"context"
	"strings"

	domain "github.com/BruksfildServices01/clinic-crm/internal/domain/budget"
	leaddomain "github.com/BruksfildServices01/clinic-crm/internal/domain/lead"
	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lead"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lookup"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/timeline"
)

type StatusInput struct {
	BudgetID     string `json:"budget_id"`
	Status       string `json:"status"`
	DeniedReason string `json:"denied_reason"`
}

// SetStatus drives the budget state machine. Lead stage moves that follow
// a decision are best-effort: a stage missing from the pipeline is
// skipped, any other failure comes back as a warning.
func (w *Workflow) SetStatus(ctx context.Context, actor models.Actor, in StatusInput) (*Result, error) {
	status, err := domain.ParseStatus(strings.TrimSpace(in.Status))
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(in.DeniedReason)
	if status == domain.StatusDenied && reason == "" {
		return nil, httperr.ErrValidation("denied_reason_required", "motivo da reprovação obrigatório")
	}

	var out Result
	res, err := w.store.RunInTransaction(ctx, func(tx store.Tx) error {
		out = Result{}

		b, err := lookup.Budget(tx, actor.ClinicID, in.BudgetID)
		if err != nil {
			return err
		}
		l, err := lookup.Lead(tx, actor.ClinicID, b.LeadID)
		if err != nil {
			return err
		}

		switch status {
		case domain.StatusDenied:
			return w.deny(tx, actor, &out, b, reason)
		case domain.StatusApproved:
			return w.approve(tx, actor, &out, b, l)
		default:
			return w.reopen(tx, actor, &out, b, l)
		}
	})
	if err != nil {
		return nil, err
	}

	timeline.Publish(w.pub, res)
	return &out, nil
}

func (w *Workflow) deny(
	tx store.Tx,
	actor models.Actor,
	out *Result,
	b models.Budget,
	reason string,
) error {

	now := tx.Now()
	b.Status = string(domain.StatusDenied)
	b.DeniedReason = reason
	b.DeniedAt = &now
	b.DeniedBy = actor.UserID
	b.UpdatedAt = now
	if err := tx.SaveBudget(b); err != nil {
		return err
	}

	if _, err := timeline.Append(tx, actor, b.LeadID, leaddomain.BudgetRejected{
		BudgetID: b.ID,
		Reason:   reason,
	}); err != nil {
		return err
	}

	out.Budget = b
	mv, err := lead.TryMoveToStage(tx, actor, b.LeadID, leaddomain.StageLost, reason)
	if err != nil {
		return err
	}
	out.record(mv)
	return nil
}

func (w *Workflow) approve(
	tx store.Tx,
	actor models.Actor,
	out *Result,
	b models.Budget,
	l models.Lead,
) error {

	if domain.Status(b.Status) == domain.StatusApproved &&
		b.PatientID != nil && l.PatientID != nil && *b.PatientID == *l.PatientID {
		out.Budget = b
		return nil
	}

	var patientID string
	if l.Converted() {
		patientID = *l.PatientID
	} else {
		id, err := w.patients.CreateFromLead(tx, actor, l)
		if err != nil {
			return err
		}
		patientID = id
	}

	if _, _, err := lead.LinkPatientTx(tx, actor, l, patientID); err != nil {
		return err
	}

	now := tx.Now()
	b.Status = string(domain.StatusApproved)
	b.PatientID = &patientID
	b.ApprovedAt = &now
	b.ApprovedBy = actor.UserID
	b.DeniedReason = ""
	b.DeniedAt = nil
	b.DeniedBy = nil
	b.UpdatedAt = now
	if err := tx.SaveBudget(b); err != nil {
		return err
	}

	if _, err := timeline.Append(tx, actor, l.ID, leaddomain.BudgetApproved{
		BudgetID:  b.ID,
		PatientID: patientID,
		Total:     b.Total,
	}); err != nil {
		return err
	}

	out.Budget = b
	mv, err := lead.TryMoveToStage(tx, actor, l.ID, leaddomain.StageApproved, "")
	if err != nil {
		return err
	}
	out.record(mv)
	return nil
}

// reopen puts the budget back in analysis. Each call schedules another
// follow-up round.
func (w *Workflow) reopen(
	tx store.Tx,
	actor models.Actor,
	out *Result,
	b models.Budget,
	l models.Lead,
) error {

	b.Status = string(domain.StatusInAnalysis)
	b.DeniedReason = ""
	b.DeniedAt = nil
	b.DeniedBy = nil
	b.UpdatedAt = tx.Now()
	if err := tx.SaveBudget(b); err != nil {
		return err
	}

	if err := w.scheduleFollowUp(tx, actor, l, b); err != nil {
		return err
	}
	out.Budget = b
	return nil
}
