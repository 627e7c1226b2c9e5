package budget

import (
	"fmt"
	"log"

	leaddomain "github.com/BruksfildServices01/clinic-crm/internal/domain/lead"
	taskdomain "github.com/BruksfildServices01/clinic-crm/internal/domain/task"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/task"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/timeline"
)

const DefaultFollowUpDays = 2

// PatientCreator builds a patient from a lead inside the caller's
// transaction and returns a stable id.
type PatientCreator interface {
	CreateFromLead(tx store.Tx, actor models.Actor, l models.Lead) (string, error)
}

// Workflow owns budgets and their approval state machine.
type Workflow struct {
	store        store.Store
	patients     PatientCreator
	pub          timeline.Publisher
	followUpDays int
}

func NewWorkflow(
	s store.Store,
	patients PatientCreator,
	pub timeline.Publisher,
	followUpDays int,
) *Workflow {
	if followUpDays <= 0 {
		followUpDays = DefaultFollowUpDays
	}
	return &Workflow{
		store:        s,
		patients:     patients,
		pub:          pub,
		followUpDays: followUpDays,
	}
}

// Result is returned by operations with best-effort side effects.
type Result struct {
	Budget    models.Budget          `json:"budget"`
	StageMove *leaddomain.MoveResult `json:"stage_move,omitempty"`
	Warnings  []string               `json:"warnings,omitempty"`
}

func (r *Result) record(mv leaddomain.MoveResult) {
	r.StageMove = &mv
	if w := mv.Warning(); w != "" {
		log.Printf("[WARN] budget %s: %s", r.Budget.ID, w)
		r.Warnings = append(r.Warnings, w)
	}
}

// scheduleFollowUp creates the budget_followup task and its timeline
// entry. Every call adds one more task.
func (w *Workflow) scheduleFollowUp(
	tx store.Tx,
	actor models.Actor,
	l models.Lead,
	b models.Budget,
) error {

	now := tx.Now()
	leadID, budgetID := l.ID, b.ID
	t, err := task.ScheduleTx(tx, actor, task.ScheduleInput{
		LeadID:     &leadID,
		PatientID:  b.PatientID,
		BudgetID:   &budgetID,
		Title:      fmt.Sprintf("Follow-up do orçamento \"%s\"", b.Title),
		Type:       taskdomain.TypeBudgetFollowUp,
		Channel:    "whatsapp",
		Priority:   "medium",
		DueAt:      task.DueInDays(tx, actor.ClinicID, now, w.followUpDays),
		AssigneeID: l.OwnerID,
	})
	if err != nil {
		return err
	}

	_, err = timeline.Append(tx, actor, l.ID, leaddomain.BudgetFollowUp{
		BudgetID: b.ID,
		TaskID:   t.ID,
		DueAt:    t.DueAt,
	})
	return err
}
