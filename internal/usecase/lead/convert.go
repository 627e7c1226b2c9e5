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
)

// ConvertToPatient links the patient and forces the lead into the approved
// stage. Repeating the call with the same patient changes nothing; a lead
// already linked to another patient is rejected.
func (d *Directory) ConvertToPatient(
	ctx context.Context,
	actor models.Actor,
	id string,
	patientID string,
) (*models.Lead, error) {

	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, httperr.ErrValidation("patient_required", "informe o paciente")
	}

	var out models.Lead
	res, err := d.store.RunInTransaction(ctx, func(tx store.Tx) error {
		l, err := lookup.Lead(tx, actor.ClinicID, id)
		if err != nil {
			return err
		}
		if _, err := lookup.Patient(tx, actor.ClinicID, patientID); err != nil {
			return err
		}

		if l.Converted() && *l.PatientID != patientID {
			return httperr.ErrValidation("patient_conflict", "lead já vinculado a outro paciente")
		}

		reg, err := Registry(tx, actor.ClinicID)
		if err != nil {
			return err
		}
		if reg.Has(domain.StageApproved) && l.StageKey != domain.StageApproved {
			if l, err = applyMove(tx, actor, l, domain.StageApproved, ""); err != nil {
				return err
			}
		}

		l, _, err = LinkPatientTx(tx, actor, l, patientID)
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

// LinkPatientTx sets the lead's patient and appends converted_to_patient
// only when the reference actually changes. Stage is left alone.
func LinkPatientTx(
	tx store.Tx,
	actor models.Actor,
	l models.Lead,
	patientID string,
) (models.Lead, bool, error) {

	if l.PatientID != nil && *l.PatientID == patientID {
		return l, false, nil
	}

	pid := patientID
	l.PatientID = &pid
	l.UpdatedAt = tx.Now()
	l.UpdatedBy = actor.UserID
	if err := tx.SaveLead(l); err != nil {
		return models.Lead{}, false, err
	}

	if _, err := timeline.Append(tx, actor, l.ID, domain.ConvertedToPatient{PatientID: patientID}); err != nil {
		return models.Lead{}, false, err
	}
	return l, true, nil
}
