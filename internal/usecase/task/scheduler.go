package task

import (
	"time"

	domain "github.com/BruksfildServices01/clinic-crm/internal/domain/task"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lookup"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/timeline"
)

// Scheduler owns follow-up tasks.
type Scheduler struct {
	store store.Store
	pub   timeline.Publisher
	now   func() time.Time
}

func NewScheduler(s store.Store, pub timeline.Publisher) *Scheduler {
	return &Scheduler{store: s, pub: pub, now: time.Now}
}

// WithNow replaces the clock used for bucketing.
func (s *Scheduler) WithNow(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

type ScheduleInput struct {
	LeadID        *string
	PatientID     *string
	BudgetID      *string
	AppointmentID *string
	Title         string
	Description   string
	Type          domain.Type
	Channel       string
	Priority      string
	DueAt         time.Time
	AssigneeID    *string
}

// ScheduleTx inserts a pending task inside an existing transaction. It
// does not touch the timeline; callers record whichever event fits.
func ScheduleTx(tx store.Tx, actor models.Actor, in ScheduleInput) (models.Task, error) {
	now := tx.Now()

	priority := in.Priority
	if priority == "" {
		priority = "medium"
	}
	typ := in.Type
	if typ == "" {
		typ = domain.TypeCustom
	}

	t := models.Task{
		ID:            tx.NewID(),
		ClinicID:      actor.ClinicID,
		LeadID:        in.LeadID,
		PatientID:     in.PatientID,
		BudgetID:      in.BudgetID,
		AppointmentID: in.AppointmentID,
		Title:         in.Title,
		Description:   in.Description,
		Type:          string(typ),
		Channel:       in.Channel,
		Priority:      priority,
		Status:        string(domain.StatusPending),
		DueAt:         in.DueAt.UTC(),
		AssigneeID:    in.AssigneeID,
		CreatedBy:     actor.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tx.CreateTask(t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// DueInDays keeps the wall-clock time of from and moves the calendar day
// in the clinic's timezone.
func DueInDays(tx store.Tx, clinicID string, from time.Time, days int) time.Time {
	loc := lookup.Location(tx, clinicID)
	return from.In(loc).AddDate(0, 0, days).UTC()
}

type Filter struct {
	Status     string
	Type       string
	LeadID     string
	PatientID  string
	AssigneeID string
}

func (f Filter) match(t models.Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.LeadID != "" && (t.LeadID == nil || *t.LeadID != f.LeadID) {
		return false
	}
	if f.PatientID != "" && (t.PatientID == nil || *t.PatientID != f.PatientID) {
		return false
	}
	if f.AssigneeID != "" && (t.AssigneeID == nil || *t.AssigneeID != f.AssigneeID) {
		return false
	}
	return true
}
