package lead

import (
	"context"
	"strings"

	domain "github.com/BruksfildServices01/clinic-crm/internal/domain/lead"
	taskdomain "github.com/BruksfildServices01/clinic-crm/internal/domain/task"
	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lookup"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/task"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/timeline"
)

// MoveToStage is the pipeline board entry point. Moving a lead into the
// stage it already occupies still records a status_change so retries after
// an ambiguous failure are safe.
func (d *Directory) MoveToStage(
	ctx context.Context,
	actor models.Actor,
	id string,
	stageKey string,
	lossReason string,
) (*models.Lead, error) {

	var out models.Lead
	res, err := d.store.RunInTransaction(ctx, func(tx store.Tx) error {
		l, err := MoveToStageTx(tx, actor, id, stageKey, lossReason)
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

func MoveToStageTx(
	tx store.Tx,
	actor models.Actor,
	id string,
	stageKey string,
	lossReason string,
) (models.Lead, error) {

	l, stageKey, err := prepareMove(tx, actor, id, stageKey)
	if err != nil {
		return models.Lead{}, err
	}
	return applyMove(tx, actor, l, stageKey, lossReason)
}

// prepareMove does every read and check a move needs. Nothing is written.
func prepareMove(tx store.Tx, actor models.Actor, id, stageKey string) (models.Lead, string, error) {
	stageKey = strings.TrimSpace(stageKey)

	l, err := lookup.Lead(tx, actor.ClinicID, id)
	if err != nil {
		return models.Lead{}, "", err
	}
	reg, err := Registry(tx, actor.ClinicID)
	if err != nil {
		return models.Lead{}, "", err
	}
	if !reg.Has(stageKey) {
		return models.Lead{}, "", httperr.ErrInvalidStage(stageKey)
	}
	return l, stageKey, nil
}

// applyMove saves the lead and its reminder task before the timeline
// entries, so a status_change is only recorded for a stored move.
func applyMove(
	tx store.Tx,
	actor models.Actor,
	l models.Lead,
	stageKey string,
	lossReason string,
) (models.Lead, error) {

	lossReason = strings.TrimSpace(lossReason)
	from := l.StageKey
	change := domain.StatusChange{FromStage: &from, ToStage: stageKey}
	switch {
	case stageKey == domain.StageLost && lossReason != "":
		change.LossReason = lossReason
		l.LossReason = lossReason
	case stageKey != domain.StageLost:
		l.LossReason = ""
	}

	now := tx.Now()
	l.StageKey = stageKey
	l.LastContactAt = &now
	l.UpdatedAt = now
	l.UpdatedBy = actor.UserID
	if err := tx.SaveLead(l); err != nil {
		return models.Lead{}, err
	}

	var reminder *models.Task
	if from != stageKey {
		t, err := scheduleStageReminder(tx, actor, l)
		if err != nil {
			return models.Lead{}, err
		}
		reminder = t
	}

	if _, err := timeline.Append(tx, actor, l.ID, change); err != nil {
		return models.Lead{}, err
	}
	if reminder != nil {
		if err := appendReminderEvent(tx, actor, l.ID, *reminder); err != nil {
			return models.Lead{}, err
		}
	}
	return l, nil
}

// TryMoveToStage is the best-effort variant used as a side effect of
// other operations. A stage missing from the clinic pipeline yields
// MoveNotApplicable and any failed check yields MoveFailed; neither
// writes anything. A store failure once writing has started is returned
// as an error so the caller's transaction aborts.
func TryMoveToStage(
	tx store.Tx,
	actor models.Actor,
	leadID string,
	stageKey string,
	lossReason string,
) (domain.MoveResult, error) {

	l, key, err := prepareMove(tx, actor, leadID, stageKey)
	switch {
	case httperr.IsInvalidStage(err):
		return domain.MoveResult{Outcome: domain.MoveNotApplicable, Stage: stageKey}, nil
	case err != nil:
		return domain.MoveResult{Outcome: domain.MoveFailed, Stage: stageKey, Err: err}, nil
	}

	if _, err := applyMove(tx, actor, l, key, lossReason); err != nil {
		return domain.MoveResult{}, err
	}
	return domain.MoveResult{Outcome: domain.MoveApplied, Stage: key}, nil
}

func scheduleStageReminder(tx store.Tx, actor models.Actor, l models.Lead) (*models.Task, error) {
	rem, ok := domain.ReminderFor(l.StageKey)
	if !ok {
		return nil, nil
	}

	now := tx.Now()
	leadID := l.ID
	t, err := task.ScheduleTx(tx, actor, task.ScheduleInput{
		LeadID:     &leadID,
		PatientID:  l.PatientID,
		Title:      rem.Title,
		Type:       taskdomain.TypeLeadFollowUp,
		Channel:    "whatsapp",
		Priority:   rem.Priority,
		DueAt:      task.DueInDays(tx, actor.ClinicID, now, rem.Days),
		AssigneeID: l.OwnerID,
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func appendReminderEvent(tx store.Tx, actor models.Actor, leadID string, t models.Task) error {
	due := t.DueAt
	_, err := timeline.Append(tx, actor, leadID, domain.FollowUpCreated{
		TaskID: t.ID,
		Title:  t.Title,
		DueAt:  &due,
	})
	return err
}
