package task

import (
	"context"
	"strings"

	domain "github.com/BruksfildServices01/clinic-crm/internal/domain/task"
	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lookup"
)

type Patch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Type        *string `json:"type"`
	Channel     *string `json:"channel"`
	Priority    *string `json:"priority"`
	DueAt       *string `json:"due_at"`
	AssigneeID  *string `json:"assignee_id"`
}

// Update edits a pending task. Status is never changed here.
func (s *Scheduler) Update(
	ctx context.Context,
	actor models.Actor,
	id string,
	patch Patch,
) (*models.Task, error) {

	var out models.Task
	_, err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		t, err := lookup.Task(tx, actor.ClinicID, id)
		if err != nil {
			return err
		}
		if err := domain.CanEdit(domain.Status(t.Status)); err != nil {
			return err
		}

		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if title == "" {
				return httperr.ErrValidation("title_required", "título obrigatório")
			}
			t.Title = title
		}
		if patch.Description != nil {
			t.Description = *patch.Description
		}
		if patch.Type != nil {
			typ := strings.TrimSpace(*patch.Type)
			if !domain.Type(typ).Valid() {
				return httperr.ErrValidation("invalid_task_type", "tipo de tarefa inválido")
			}
			t.Type = typ
		}
		if patch.Channel != nil {
			t.Channel = *patch.Channel
		}
		if patch.Priority != nil {
			priority := strings.TrimSpace(*patch.Priority)
			if !domain.ValidPriority(priority) {
				return httperr.ErrValidation("invalid_priority", "prioridade inválida")
			}
			t.Priority = priority
		}
		if err := validateAttributes(t.Type, t.Channel, t.Priority); err != nil {
			return err
		}
		if patch.DueAt != nil {
			due, err := ParseDue(*patch.DueAt, lookup.Location(tx, actor.ClinicID))
			if err != nil {
				return err
			}
			t.DueAt = due.UTC()
		}
		if patch.AssigneeID != nil {
			if *patch.AssigneeID == "" {
				t.AssigneeID = nil
			} else {
				a := *patch.AssigneeID
				t.AssigneeID = &a
			}
		}

		t.UpdatedAt = tx.Now()
		if err := tx.SaveTask(t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
