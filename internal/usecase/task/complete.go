package task

import (
	"context"
	"strings"

	"github.com/BruksfildServices01/clinic-crm/internal/domain/lead"
	domain "github.com/BruksfildServices01/clinic-crm/internal/domain/task"
	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lookup"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/timeline"
)

// Complete marks the task done. Completing an already done task returns
// it unchanged.
func (s *Scheduler) Complete(ctx context.Context, actor models.Actor, id string) (*models.Task, error) {
	var out models.Task
	res, err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		t, err := lookup.Task(tx, actor.ClinicID, id)
		if err != nil {
			return err
		}

		changed, err := domain.Complete(&t, actor.UserID, tx.Now())
		if err != nil {
			return err
		}
		out = t
		if !changed {
			return nil
		}
		if err := tx.SaveTask(t); err != nil {
			return err
		}
		if t.LeadID != nil {
			if _, err := timeline.Append(tx, actor, *t.LeadID, lead.TaskDone{TaskID: t.ID, Title: t.Title}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	timeline.Publish(s.pub, res)
	return &out, nil
}

func (s *Scheduler) Cancel(ctx context.Context, actor models.Actor, id string) (*models.Task, error) {
	var out models.Task
	_, err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		t, err := lookup.Task(tx, actor.ClinicID, id)
		if err != nil {
			return err
		}

		changed, err := domain.Cancel(&t, tx.Now())
		if err != nil {
			return err
		}
		out = t
		if !changed {
			return nil
		}
		return tx.SaveTask(t)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LinkAppointmentAndComplete attaches the booked appointment and closes
// the task in one transaction. Repeating the call with the same
// appointment is a no-op.
func (s *Scheduler) LinkAppointmentAndComplete(
	ctx context.Context,
	actor models.Actor,
	id string,
	appointmentID string,
) (*models.Task, error) {

	appointmentID = strings.TrimSpace(appointmentID)
	if appointmentID == "" {
		return nil, httperr.ErrValidation("appointment_required", "informe o agendamento")
	}

	var out models.Task
	res, err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		t, err := lookup.Task(tx, actor.ClinicID, id)
		if err != nil {
			return err
		}

		if domain.Status(t.Status) == domain.StatusDone &&
			t.AppointmentID != nil && *t.AppointmentID == appointmentID {
			out = t
			return nil
		}
		if domain.Status(t.Status) != domain.StatusPending {
			return httperr.ErrBusiness("invalid_state")
		}

		t.AppointmentID = &appointmentID
		if _, err := domain.Complete(&t, actor.UserID, tx.Now()); err != nil {
			return err
		}
		if err := tx.SaveTask(t); err != nil {
			return err
		}

		if t.LeadID != nil {
			if _, err := timeline.Append(tx, actor, *t.LeadID, lead.AppointmentScheduled{
				AppointmentID: appointmentID,
				TaskID:        t.ID,
			}); err != nil {
				return err
			}
			if _, err := timeline.Append(tx, actor, *t.LeadID, lead.TaskDone{TaskID: t.ID, Title: t.Title}); err != nil {
				return err
			}
		}

		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	timeline.Publish(s.pub, res)
	return &out, nil
}

// Delete removes the task row. Use Cancel to keep it for history.
func (s *Scheduler) Delete(ctx context.Context, actor models.Actor, id string) error {
	_, err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		if _, err := lookup.Task(tx, actor.ClinicID, id); err != nil {
			return err
		}
		return tx.DeleteTask(actor.ClinicID, id)
	})
	return err
}
