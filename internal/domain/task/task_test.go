package task

import (
	"testing"
	"time"

	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/timezone"
)

func TestCompleteAndCancelTransitions(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tk := &models.Task{Status: string(StatusPending)}

	changed, err := Complete(tk, nil, now)
	if err != nil || !changed || tk.Status != string(StatusDone) || tk.CompletedAt == nil {
		t.Fatalf("complete pending: changed=%v err=%v task=%+v", changed, err, tk)
	}

	changed, err = Complete(tk, nil, now.Add(time.Hour))
	if err != nil || changed {
		t.Fatalf("re-complete should be a no-op: changed=%v err=%v", changed, err)
	}
	if !tk.CompletedAt.Equal(now) {
		t.Fatalf("re-complete must not move completedAt")
	}

	if _, err := Cancel(tk, now); !httperr.IsBusiness(err, "invalid_state") {
		t.Fatalf("cancel done task: expected invalid_state, got %v", err)
	}

	canceled := &models.Task{Status: string(StatusCanceled)}
	if _, err := Complete(canceled, nil, now); !httperr.IsBusiness(err, "invalid_state") {
		t.Fatalf("complete canceled task: expected invalid_state, got %v", err)
	}
}

func TestSummaryUsesCalendarDays(t *testing.T) {
	loc := timezone.Location(timezone.DefaultTimezone)
	now := time.Date(2026, 5, 10, 23, 0, 0, 0, loc)

	tasks := []models.Task{
		{Status: "pending", Type: "custom", DueAt: now.Add(-24 * time.Hour)},
		{Status: "pending", Type: "custom", DueAt: time.Date(2026, 5, 10, 8, 0, 0, 0, loc)},
		// two hours ahead but already tomorrow
		{Status: "pending", Type: "budget_followup", DueAt: now.Add(2 * time.Hour)},
		{Status: "pending", Type: "budget_followup", DueAt: now.AddDate(0, 0, 7)},
		{Status: "pending", Type: "custom", DueAt: now.AddDate(0, 0, 9)},
		{Status: "done", Type: "budget_followup", DueAt: now},
	}

	s := Summarize(tasks, now, loc)
	want := Summary{Overdue: 1, Today: 1, Next7Days: 2, PendingBudgetFollowUps: 2}
	if s != want {
		t.Fatalf("Summary = %+v, want %+v", s, want)
	}
}

func TestGroupByBucketOrdering(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, loc)
	c1 := now.Add(-3 * time.Hour)
	c2 := now.Add(-1 * time.Hour)

	tasks := []models.Task{
		{ID: "u2", Status: "pending", DueAt: now.AddDate(0, 0, 3)},
		{ID: "u1", Status: "pending", DueAt: now.AddDate(0, 0, 1)},
		{ID: "d1", Status: "done", CompletedAt: &c1},
		{ID: "x1", Status: "canceled", CanceledAt: &c2},
		{ID: "o1", Status: "pending", DueAt: now.AddDate(0, 0, -2)},
		{ID: "t1", Status: "pending", DueAt: now.Add(2 * time.Hour)},
	}

	g := GroupByBucket(tasks, now, loc)
	if len(g.Overdue) != 1 || len(g.Today) != 1 || len(g.Upcoming) != 2 || len(g.Closed) != 2 {
		t.Fatalf("unexpected grouping %+v", g)
	}
	if g.Upcoming[0].ID != "u1" {
		t.Fatalf("upcoming should sort by due ascending, got %s first", g.Upcoming[0].ID)
	}
	if g.Closed[0].ID != "x1" {
		t.Fatalf("closed should sort by completion descending, got %s first", g.Closed[0].ID)
	}
}

func TestTaskDueYesterdayIsOverdue(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	tk := models.Task{Status: "pending", Type: "custom", DueAt: time.Date(2026, 5, 9, 9, 0, 0, 0, time.UTC)}

	if b := BucketOf(tk, now, time.UTC); b != BucketOverdue {
		t.Fatalf("bucket = %s, want overdue", b)
	}
	s := Summarize([]models.Task{tk}, now, time.UTC)
	if s.Overdue != 1 || s.Today != 0 {
		t.Fatalf("Summary = %+v", s)
	}
}
