package budget

import (
	"context"
	"strings"

	domain "github.com/BruksfildServices01/clinic-crm/internal/domain/budget"
	leaddomain "github.com/BruksfildServices01/clinic-crm/internal/domain/lead"
	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lookup"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/timeline"
)

type CreateInput struct {
	LeadID        string              `json:"lead_id"`
	Title         string              `json:"title"`
	Items         []models.BudgetItem `json:"items"`
	TotalOverride *float64            `json:"total_override"`
}

// Create inserts the budget in analysis and schedules its first follow-up
// in the same transaction.
func (w *Workflow) Create(ctx context.Context, actor models.Actor, in CreateInput) (*models.Budget, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, httperr.ErrValidation("title_required", "título obrigatório")
	}
	items, err := domain.NormalizeItems(in.Items)
	if err != nil {
		return nil, err
	}
	if in.TotalOverride != nil && *in.TotalOverride < 0 {
		return nil, httperr.ErrValidation("invalid_total", "total inválido")
	}

	var out models.Budget
	res, err := w.store.RunInTransaction(ctx, func(tx store.Tx) error {
		l, err := lookup.Lead(tx, actor.ClinicID, in.LeadID)
		if err != nil {
			return err
		}

		now := tx.Now()
		b := models.Budget{
			ID:        tx.NewID(),
			ClinicID:  actor.ClinicID,
			LeadID:    l.ID,
			PatientID: l.PatientID,
			Title:     title,
			Items:     items,
			Total:     domain.Total(items, in.TotalOverride),
			Status:    string(domain.InitialStatus()),
			CreatedBy: actor.UserID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.CreateBudget(b); err != nil {
			return err
		}

		if _, err := timeline.Append(tx, actor, l.ID, leaddomain.BudgetCreated{
			BudgetID: b.ID,
			Title:    b.Title,
			Total:    b.Total,
		}); err != nil {
			return err
		}

		if err := w.scheduleFollowUp(tx, actor, l, b); err != nil {
			return err
		}

		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	timeline.Publish(w.pub, res)
	return &out, nil
}
