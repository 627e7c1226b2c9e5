package task

import (
	"context"
	"strings"
	"time"

	"github.com/BruksfildServices01/clinic-crm/internal/domain/lead"
	domain "github.com/BruksfildServices01/clinic-crm/internal/domain/task"
	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lookup"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/timeline"
)

type CreateInput struct {
	LeadID      *string `json:"lead_id"`
	PatientID   *string `json:"patient_id"`
	BudgetID    *string `json:"budget_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	Channel     string  `json:"channel"`
	Priority    string  `json:"priority"`
	DueAt       string  `json:"due_at"`
	AssigneeID  *string `json:"assignee_id"`
}

var dueLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDue accepts RFC3339 or a local date/time in the clinic timezone.
func ParseDue(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, httperr.ErrValidation("due_at_required", "data de vencimento obrigatória")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, httperr.ErrValidation("invalid_due_at", "data de vencimento inválida")
}

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func validateAttributes(typ, channel, priority string) error {
	if typ != "" && !domain.Type(typ).Valid() {
		return httperr.ErrValidation("invalid_task_type", "tipo de tarefa inválido")
	}
	if !domain.ValidChannel(channel) {
		return httperr.ErrValidation("invalid_channel", "canal inválido")
	}
	if priority != "" && !domain.ValidPriority(priority) {
		return httperr.ErrValidation("invalid_priority", "prioridade inválida")
	}
	return nil
}

func (s *Scheduler) Create(
	ctx context.Context,
	actor models.Actor,
	in CreateInput,
) (*models.Task, error) {

	if !present(in.LeadID) && !present(in.PatientID) {
		return nil, httperr.ErrValidation("lead_or_patient_required", "informe um lead ou paciente")
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, httperr.ErrValidation("title_required", "título obrigatório")
	}
	if err := validateAttributes(in.Type, in.Channel, in.Priority); err != nil {
		return nil, err
	}

	var created models.Task
	res, err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		if present(in.LeadID) {
			if _, err := lookup.Lead(tx, actor.ClinicID, *in.LeadID); err != nil {
				return err
			}
		} else {
			in.LeadID = nil
		}
		if present(in.PatientID) {
			if _, err := lookup.Patient(tx, actor.ClinicID, *in.PatientID); err != nil {
				return err
			}
		} else {
			in.PatientID = nil
		}
		if present(in.BudgetID) {
			if _, err := lookup.Budget(tx, actor.ClinicID, *in.BudgetID); err != nil {
				return err
			}
		} else {
			in.BudgetID = nil
		}

		due, err := ParseDue(in.DueAt, lookup.Location(tx, actor.ClinicID))
		if err != nil {
			return err
		}

		t, err := ScheduleTx(tx, actor, ScheduleInput{
			LeadID:      in.LeadID,
			PatientID:   in.PatientID,
			BudgetID:    in.BudgetID,
			Title:       in.Title,
			Description: in.Description,
			Type:        domain.Type(in.Type),
			Channel:     in.Channel,
			Priority:    in.Priority,
			DueAt:       due,
			AssigneeID:  in.AssigneeID,
		})
		if err != nil {
			return err
		}

		if t.LeadID != nil {
			if _, err := timeline.Append(tx, actor, *t.LeadID, lead.TaskCreated{
				TaskID: t.ID,
				Title:  t.Title,
				DueAt:  t.DueAt,
			}); err != nil {
				return err
			}
		}

		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	timeline.Publish(s.pub, res)
	return &created, nil
}
