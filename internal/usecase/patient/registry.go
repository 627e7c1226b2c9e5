package patient

import (
	"context"
	"strings"

	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
)

// Registry is the default patient collaborator: it stores a minimal
// patient record built from the lead's captured fields.
type Registry struct {
	store store.Store
}

func NewRegistry(s store.Store) *Registry {
	return &Registry{store: s}
}

// CreateFromLead inserts the patient inside the caller's transaction and
// returns its id.
func (r *Registry) CreateFromLead(tx store.Tx, actor models.Actor, l models.Lead) (string, error) {
	name := strings.TrimSpace(l.Name)
	if name == "" {
		name = "Paciente " + l.Phone
	}

	leadID := l.ID
	p := models.Patient{
		ID:           tx.NewID(),
		ClinicID:     l.ClinicID,
		Name:         strings.TrimSpace(name),
		Phone:        l.Phone,
		Email:        l.Email,
		OriginLeadID: &leadID,
		CreatedBy:    actor.UserID,
		CreatedAt:    tx.Now(),
	}
	if err := tx.CreatePatient(p); err != nil {
		return "", err
	}
	return p.ID, nil
}

func (r *Registry) List(ctx context.Context, clinicID string) ([]models.Patient, error) {
	var out []models.Patient
	err := r.store.View(ctx, func(rd store.Reader) error {
		patients, err := rd.ListPatients(clinicID)
		if err != nil {
			return err
		}
		out = patients
		return nil
	})
	return out, err
}
