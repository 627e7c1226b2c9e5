package lead

import (
	"context"

	domain "github.com/BruksfildServices01/clinic-crm/internal/domain/lead"
	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
)

func (d *Directory) ListStages(ctx context.Context, clinicID string) ([]models.PipelineStage, error) {
	var out []models.PipelineStage
	err := d.store.View(ctx, func(r store.Reader) error {
		reg, err := Registry(r, clinicID)
		if err != nil {
			return err
		}
		out = reg.Stages()
		return nil
	})
	return out, err
}

// ReplaceStages swaps the clinic pipeline. A stage still occupied by a
// lead cannot be removed.
func (d *Directory) ReplaceStages(
	ctx context.Context,
	actor models.Actor,
	stages []models.PipelineStage,
) ([]models.PipelineStage, error) {

	valid, err := domain.ValidateStages(actor.ClinicID, stages)
	if err != nil {
		return nil, err
	}

	_, err = d.store.RunInTransaction(ctx, func(tx store.Tx) error {
		next := domain.NewRegistry(actor.ClinicID, valid)
		leads, err := tx.ListLeads(actor.ClinicID)
		if err != nil {
			return err
		}
		for _, l := range leads {
			if !next.Has(l.StageKey) {
				return httperr.ErrValidation("stage_in_use", "etapa em uso por leads: "+l.StageKey)
			}
		}
		return tx.ReplaceStages(actor.ClinicID, valid)
	})
	if err != nil {
		return nil, err
	}
	return valid, nil
}
