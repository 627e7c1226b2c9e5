package lead

import (
	"context"
	"strings"

	domain "github.com/BruksfildServices01/clinic-crm/internal/domain/lead"
	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lookup"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/timeline"
	"github.com/BruksfildServices01/clinic-crm/internal/validators"
)

// Patch fields are applied only when non-nil. An empty OwnerID clears the owner.
type Patch struct {
	Name           *string  `json:"name"`
	Phone          *string  `json:"phone"`
	Email          *string  `json:"email"`
	Source         *string  `json:"source"`
	Interest       *string  `json:"interest"`
	Notes          *string  `json:"notes"`
	OwnerID        *string  `json:"owner_id"`
	StageKey       *string  `json:"stage_key"`
	LossReason     *string  `json:"loss_reason"`
	EstimatedValue *float64 `json:"estimated_value"`
}

func (d *Directory) Update(ctx context.Context, actor models.Actor, id string, patch Patch) (*models.Lead, error) {
	var out models.Lead
	res, err := d.store.RunInTransaction(ctx, func(tx store.Tx) error {
		l, err := UpdateTx(tx, actor, id, patch)
		if err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	timeline.Publish(d.pub, res)
	return &out, nil
}

// UpdateTx records the stage change before applying the patch so the
// event carries the stored prior stage.
func UpdateTx(tx store.Tx, actor models.Actor, id string, patch Patch) (models.Lead, error) {
	l, err := lookup.Lead(tx, actor.ClinicID, id)
	if err != nil {
		return models.Lead{}, err
	}

	stageChanged := false
	if patch.StageKey != nil {
		next := strings.TrimSpace(*patch.StageKey)
		if next != l.StageKey {
			reg, err := Registry(tx, actor.ClinicID)
			if err != nil {
				return models.Lead{}, err
			}
			if !reg.Has(next) {
				return models.Lead{}, httperr.ErrInvalidStage(next)
			}

			from := l.StageKey
			change := domain.StatusChange{FromStage: &from, ToStage: next}
			if next == domain.StageLost && patch.LossReason != nil {
				change.LossReason = strings.TrimSpace(*patch.LossReason)
			}
			if _, err := timeline.Append(tx, actor, l.ID, change); err != nil {
				return models.Lead{}, err
			}
			l.StageKey = next
			if next != domain.StageLost {
				l.LossReason = ""
			}
			stageChanged = true
		}
	}

	if err := applyPatch(&l, patch); err != nil {
		return models.Lead{}, err
	}

	l.UpdatedAt = tx.Now()
	l.UpdatedBy = actor.UserID
	if err := tx.SaveLead(l); err != nil {
		return models.Lead{}, err
	}

	if stageChanged {
		t, err := scheduleStageReminder(tx, actor, l)
		if err != nil {
			return models.Lead{}, err
		}
		if t != nil {
			if err := appendReminderEvent(tx, actor, l.ID, *t); err != nil {
				return models.Lead{}, err
			}
		}
	}
	return l, nil
}

func applyPatch(l *models.Lead, p Patch) error {
	if p.Source != nil {
		src := strings.TrimSpace(*p.Source)
		if err := validateSource(src); err != nil {
			return err
		}
		l.Source = src
	}
	if p.Email != nil {
		email, err := normalizeEmail(*p.Email)
		if err != nil {
			return err
		}
		l.Email = email
	}
	if p.Name != nil {
		l.Name = strings.TrimSpace(*p.Name)
	}
	if p.Phone != nil {
		l.Phone = validators.Digits(*p.Phone)
		l.PhoneKey = validators.CanonicalPhone(*p.Phone)
	}
	if p.Interest != nil {
		l.Interest = strings.TrimSpace(*p.Interest)
	}
	if p.Notes != nil {
		l.Notes = *p.Notes
	}
	if p.OwnerID != nil {
		if *p.OwnerID == "" {
			l.OwnerID = nil
		} else {
			owner := *p.OwnerID
			l.OwnerID = &owner
		}
	}
	if p.LossReason != nil {
		l.LossReason = strings.TrimSpace(*p.LossReason)
	}
	if p.EstimatedValue != nil {
		v := *p.EstimatedValue
		l.EstimatedValue = &v
	}
	return nil
}
