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

type UpdateInput struct {
	Title *string             `json:"title"`
	Items []models.BudgetItem `json:"items"`
}

// Update edits title and items. New items always recompute the total;
// status is untouched.
func (w *Workflow) Update(ctx context.Context, actor models.Actor, id string, in UpdateInput) (*models.Budget, error) {
	var items []models.BudgetItem
	if in.Items != nil {
		normalized, err := domain.NormalizeItems(in.Items)
		if err != nil {
			return nil, err
		}
		items = normalized
	}

	var out models.Budget
	_, err := w.store.RunInTransaction(ctx, func(tx store.Tx) error {
		b, err := lookup.Budget(tx, actor.ClinicID, id)
		if err != nil {
			return err
		}

		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			if title == "" {
				return httperr.ErrValidation("title_required", "título obrigatório")
			}
			b.Title = title
		}
		if items != nil {
			b.Items = items
			b.Total = domain.Total(items, nil)
		}

		b.UpdatedAt = tx.Now()
		if err := tx.SaveBudget(b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Present records that the budget was shown to the lead and moves the lead
// to the presented stage on a best-effort basis.
func (w *Workflow) Present(ctx context.Context, actor models.Actor, id string) (*Result, error) {
	var out Result
	res, err := w.store.RunInTransaction(ctx, func(tx store.Tx) error {
		out = Result{}

		b, err := lookup.Budget(tx, actor.ClinicID, id)
		if err != nil {
			return err
		}
		if domain.Status(b.Status) != domain.StatusInAnalysis {
			return httperr.ErrBusiness("invalid_state")
		}

		now := tx.Now()
		b.PresentedAt = &now
		b.UpdatedAt = now
		if err := tx.SaveBudget(b); err != nil {
			return err
		}

		if _, err := timeline.Append(tx, actor, b.LeadID, leaddomain.BudgetPresented{
			BudgetID: b.ID,
			Title:    b.Title,
		}); err != nil {
			return err
		}

		out.Budget = b
		mv, err := lead.TryMoveToStage(tx, actor, b.LeadID, leaddomain.StagePresented, "")
		if err != nil {
			return err
		}
		out.record(mv)
		return nil
	})
	if err != nil {
		return nil, err
	}

	timeline.Publish(w.pub, res)
	return &out, nil
}
