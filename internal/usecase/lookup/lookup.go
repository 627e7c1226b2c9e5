// Package lookup loads entities inside a transaction and turns store
// absence into the entity-specific not-found error callers render.
package lookup

import (
	"errors"
	"time"

	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/timezone"
)

func notFound(err error, code, message string) error {
	if errors.Is(err, store.ErrNotFound) {
		return httperr.ErrNotFound(code, message)
	}
	return err
}

func Clinic(r store.Reader, id string) (models.Clinic, error) {
	c, err := r.GetClinic(id)
	return c, notFound(err, "clinic_not_found", "clínica não encontrada")
}

func Lead(r store.Reader, clinicID, id string) (models.Lead, error) {
	l, err := r.GetLead(clinicID, id)
	return l, notFound(err, "lead_not_found", "lead não encontrado")
}

func Budget(r store.Reader, clinicID, id string) (models.Budget, error) {
	b, err := r.GetBudget(clinicID, id)
	return b, notFound(err, "budget_not_found", "orçamento não encontrado")
}

func Task(r store.Reader, clinicID, id string) (models.Task, error) {
	t, err := r.GetTask(clinicID, id)
	return t, notFound(err, "task_not_found", "tarefa não encontrada")
}

func Tag(r store.Reader, clinicID, id string) (models.Tag, error) {
	t, err := r.GetTag(clinicID, id)
	return t, notFound(err, "tag_not_found", "tag não encontrada")
}

func Patient(r store.Reader, clinicID, id string) (models.Patient, error) {
	p, err := r.GetPatient(clinicID, id)
	return p, notFound(err, "patient_not_found", "paciente não encontrado")
}

// Location is the clinic's configured timezone, or the default one when
// the clinic has none.
func Location(r store.Reader, clinicID string) *time.Location {
	c, err := r.GetClinic(clinicID)
	if err != nil {
		return timezone.Location(timezone.DefaultTimezone)
	}
	return timezone.Location(c.Timezone)
}
