package lead

import (
	"context"
	"errors"
	"fmt"

	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/timeline"
	"github.com/BruksfildServices01/clinic-crm/internal/validators"
)

type ImportUpdate struct {
	ID            string   `json:"id"`
	Patch         Patch    `json:"patch"`
	PriceOverride *float64 `json:"price_override"`
}

// ImportBatch is what the spreadsheet importer submits. Overrides are
// upserts keyed by phone.
type ImportBatch struct {
	Creates   []CreateInput  `json:"creates"`
	Updates   []ImportUpdate `json:"updates"`
	Overrides []CreateInput  `json:"overrides"`
}

type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// Import applies the whole batch in one transaction. Any invalid row
// aborts the batch.
func (d *Directory) Import(ctx context.Context, actor models.Actor, batch ImportBatch) (*ImportResult, error) {
	var out ImportResult
	res, err := d.store.RunInTransaction(ctx, func(tx store.Tx) error {
		out = ImportResult{}

		for i, in := range batch.Creates {
			if _, err := CreateTx(tx, actor, in); err != nil {
				return rowError("creates", i, err)
			}
			out.Created++
		}

		for i, up := range batch.Updates {
			patch := up.Patch
			if up.PriceOverride != nil {
				patch.EstimatedValue = up.PriceOverride
			}
			if _, err := UpdateTx(tx, actor, up.ID, patch); err != nil {
				return rowError("updates", i, err)
			}
			out.Updated++
		}

		for i, in := range batch.Overrides {
			key := validators.CanonicalPhone(in.Phone)
			existing, err := tx.FindLeadByPhone(actor.ClinicID, key)
			switch {
			case err == nil:
				if _, err := UpdateTx(tx, actor, existing.ID, overridePatch(in)); err != nil {
					return rowError("overrides", i, err)
				}
				out.Updated++
			case errors.Is(err, store.ErrNotFound):
				if _, err := CreateTx(tx, actor, in); err != nil {
					return rowError("overrides", i, err)
				}
				out.Created++
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	timeline.Publish(d.pub, res)
	return &out, nil
}

func overridePatch(in CreateInput) Patch {
	var p Patch
	set := func(v string) *string {
		if v == "" {
			return nil
		}
		return &v
	}
	p.Name = set(in.Name)
	p.Email = set(in.Email)
	p.Source = set(in.Source)
	p.Interest = set(in.Interest)
	p.Notes = set(in.Notes)
	p.StageKey = set(in.StageKey)
	p.OwnerID = in.OwnerID
	p.EstimatedValue = in.EstimatedValue
	return p
}

// rowError keeps the engine error kind and prefixes the row position.
func rowError(section string, i int, err error) error {
	var be httperr.BusinessError
	if errors.As(err, &be) {
		be.Message = fmt.Sprintf("%s[%d]: %s", section, i, be.Message)
		return be
	}
	return fmt.Errorf("%s[%d]: %w", section, i, err)
}
