package lead

import (
	"context"
	"strings"

	domain "github.com/BruksfildServices01/clinic-crm/internal/domain/lead"
	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/timeline"
	"github.com/BruksfildServices01/clinic-crm/internal/validators"
)

type CreateInput struct {
	Name           string   `json:"name"`
	Phone          string   `json:"phone"`
	Email          string   `json:"email"`
	Source         string   `json:"source"`
	Interest       string   `json:"interest"`
	Notes          string   `json:"notes"`
	OwnerID        *string  `json:"owner_id"`
	StageKey       string   `json:"stage_key"`
	EstimatedValue *float64 `json:"estimated_value"`
}

func normalizeEmail(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	email := validators.NormalizeEmail(raw)
	if email == "" {
		return "", httperr.ErrValidation("invalid_email", "e-mail inválido")
	}
	return email, nil
}

func validateSource(src string) error {
	if src == "" {
		return httperr.ErrValidation("source_required", "origem obrigatória")
	}
	if !domain.Source(src).Valid() {
		return httperr.ErrValidation("invalid_source", "origem inválida: "+src)
	}
	return nil
}

func (d *Directory) Create(ctx context.Context, actor models.Actor, in CreateInput) (*models.Lead, error) {
	var created models.Lead
	res, err := d.store.RunInTransaction(ctx, func(tx store.Tx) error {
		l, err := CreateTx(tx, actor, in)
		if err != nil {
			return err
		}
		created = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	timeline.Publish(d.pub, res)
	return &created, nil
}

// CreateTx inserts a lead and its opening status_change inside tx.
func CreateTx(tx store.Tx, actor models.Actor, in CreateInput) (models.Lead, error) {
	in.Source = strings.TrimSpace(in.Source)
	if err := validateSource(in.Source); err != nil {
		return models.Lead{}, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return models.Lead{}, err
	}

	reg, err := Registry(tx, actor.ClinicID)
	if err != nil {
		return models.Lead{}, err
	}
	stage := strings.TrimSpace(in.StageKey)
	if stage == "" {
		stage = reg.Initial()
	}
	if !reg.Has(stage) {
		return models.Lead{}, httperr.ErrInvalidStage(stage)
	}

	now := tx.Now()
	l := models.Lead{
		ID:             tx.NewID(),
		ClinicID:       actor.ClinicID,
		Name:           strings.TrimSpace(in.Name),
		Phone:          validators.Digits(in.Phone),
		PhoneKey:       validators.CanonicalPhone(in.Phone),
		Email:          email,
		Source:         in.Source,
		Interest:       strings.TrimSpace(in.Interest),
		Notes:          in.Notes,
		OwnerID:        in.OwnerID,
		StageKey:       stage,
		EstimatedValue: in.EstimatedValue,
		Tags:           []string{},
		CreatedBy:      actor.UserID,
		UpdatedBy:      actor.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := tx.CreateLead(l); err != nil {
		return models.Lead{}, err
	}

	if _, err := timeline.Append(tx, actor, l.ID, domain.StatusChange{ToStage: stage}); err != nil {
		return models.Lead{}, err
	}
	return l, nil
}
