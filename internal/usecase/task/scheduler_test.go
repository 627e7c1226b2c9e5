package task_test

import (
	"context"
	"testing"
	"time"

	leaddomain "github.com/BruksfildServices01/clinic-crm/internal/domain/lead"
	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/enginetest"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lead"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/task"
)

func setup(t *testing.T) (*enginetest.Env, *task.Scheduler, *models.Lead) {
	env := enginetest.New(t)
	l, err := lead.NewDirectory(env.Store, env.Pub).Create(context.Background(), env.Actor, lead.CreateInput{
		Name:   "Lúcia",
		Source: "whatsapp",
	})
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	s := task.NewScheduler(env.Store, env.Pub).WithNow(env.Clock.Now)
	return env, s, l
}

func TestParseDue(t *testing.T) {
	loc, _ := time.LoadLocation("America/Sao_Paulo")

	got, err := task.ParseDue("2026-03-10", loc)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	if want := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("date-only due = %v, want local midnight %v", got.UTC(), want)
	}

	got, err = task.ParseDue("2026-03-10T14:30", loc)
	if err != nil || !got.Equal(time.Date(2026, 3, 10, 17, 30, 0, 0, time.UTC)) {
		t.Fatalf("local datetime = %v, %v", got, err)
	}

	got, err = task.ParseDue("2026-03-10T14:30:00Z", loc)
	if err != nil || !got.Equal(time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)) {
		t.Fatalf("rfc3339 = %v, %v", got, err)
	}

	if _, err := task.ParseDue("", loc); !httperr.IsBusiness(err, "due_at_required") {
		t.Fatalf("expected due_at_required, got %v", err)
	}
	if _, err := task.ParseDue("amanhã", loc); !httperr.IsBusiness(err, "invalid_due_at") {
		t.Fatalf("expected invalid_due_at, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	env, s, l := setup(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   task.CreateInput
		code string
	}{
		{"no subject", task.CreateInput{Title: "x", DueAt: "2026-03-03"}, "lead_or_patient_required"},
		{"no title", task.CreateInput{LeadID: &l.ID, DueAt: "2026-03-03"}, "title_required"},
		{"bad type", task.CreateInput{LeadID: &l.ID, Title: "x", Type: "visita", DueAt: "2026-03-03"}, "invalid_task_type"},
		{"bad channel", task.CreateInput{LeadID: &l.ID, Title: "x", Channel: "fax", DueAt: "2026-03-03"}, "invalid_channel"},
		{"bad priority", task.CreateInput{LeadID: &l.ID, Title: "x", Priority: "urgent", DueAt: "2026-03-03"}, "invalid_priority"},
		{"no due", task.CreateInput{LeadID: &l.ID, Title: "x"}, "due_at_required"},
	}
	for _, tc := range cases {
		if _, err := s.Create(ctx, env.Actor, tc.in); !httperr.IsBusiness(err, tc.code) {
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.code, err)
		}
	}

	missing := "ghost"
	if _, err := s.Create(ctx, env.Actor, task.CreateInput{LeadID: &missing, Title: "x", DueAt: "2026-03-03"}); !httperr.IsNotFound(err) {
		t.Fatalf("expected lead not found, got %v", err)
	}
	if len(env.Tasks(t)) != 0 {
		t.Fatalf("invalid input created tasks")
	}
}

func TestCreateAndComplete(t *testing.T) {
	env, s, l := setup(t)
	ctx := context.Background()

	created, err := s.Create(ctx, env.Actor, task.CreateInput{
		LeadID: &l.ID,
		Title:  "Ligar para confirmar avaliação",
		DueAt:  "2026-03-03T09:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != "pending" || created.Priority != "medium" || created.Type != "custom" {
		t.Fatalf("defaults not applied: %+v", created)
	}

	done, err := s.Complete(ctx, env.Actor, created.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != "done" || done.CompletedAt == nil || done.CompletedBy == nil {
		t.Fatalf("not completed: %+v", done)
	}

	// idempotent
	if _, err := s.Complete(ctx, env.Actor, created.ID); err != nil {
		t.Fatalf("complete again: %v", err)
	}
	events := env.Events(t, l.ID)
	if n := enginetest.CountType(events, string(leaddomain.EventTaskCreated)); n != 1 {
		t.Fatalf("task_created = %d", n)
	}
	if n := enginetest.CountType(events, string(leaddomain.EventTaskDone)); n != 1 {
		t.Fatalf("task_done = %d", n)
	}

	title := "outro"
	if _, err := s.Update(ctx, env.Actor, created.ID, task.Patch{Title: &title}); !httperr.IsBusiness(err, "invalid_state") {
		t.Fatalf("editing a done task should fail, got %v", err)
	}
	if _, err := s.Cancel(ctx, env.Actor, created.ID); !httperr.IsBusiness(err, "invalid_state") {
		t.Fatalf("canceling a done task should fail, got %v", err)
	}
}

func TestCancelBlocksCompletion(t *testing.T) {
	env, s, l := setup(t)
	ctx := context.Background()

	created, _ := s.Create(ctx, env.Actor, task.CreateInput{LeadID: &l.ID, Title: "x", DueAt: "2026-03-03"})
	canceled, err := s.Cancel(ctx, env.Actor, created.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if canceled.Status != "canceled" || canceled.CanceledAt == nil {
		t.Fatalf("not canceled: %+v", canceled)
	}
	if _, err := s.Complete(ctx, env.Actor, created.ID); !httperr.IsBusiness(err, "invalid_state") {
		t.Fatalf("expected invalid_state, got %v", err)
	}
}

func TestLinkAppointmentAndComplete(t *testing.T) {
	env, s, l := setup(t)
	ctx := context.Background()

	created, _ := s.Create(ctx, env.Actor, task.CreateInput{LeadID: &l.ID, Title: "Agendar avaliação", DueAt: "2026-03-03"})

	if _, err := s.LinkAppointmentAndComplete(ctx, env.Actor, created.ID, " "); !httperr.IsBusiness(err, "appointment_required") {
		t.Fatalf("expected appointment_required, got %v", err)
	}

	for i := 0; i < 2; i++ {
		got, err := s.LinkAppointmentAndComplete(ctx, env.Actor, created.ID, "appt-9")
		if err != nil {
			t.Fatalf("link %d: %v", i, err)
		}
		if got.Status != "done" || got.AppointmentID == nil || *got.AppointmentID != "appt-9" {
			t.Fatalf("link %d: %+v", i, got)
		}
	}
	if n := enginetest.CountType(env.Events(t, l.ID), string(leaddomain.EventAppointmentScheduled)); n != 1 {
		t.Fatalf("appointment_scheduled = %d", n)
	}

	if _, err := s.LinkAppointmentAndComplete(ctx, env.Actor, created.ID, "appt-10"); !httperr.IsBusiness(err, "invalid_state") {
		t.Fatalf("relinking a done task should fail, got %v", err)
	}
}

func TestUpdatePendingTask(t *testing.T) {
	env, s, l := setup(t)
	ctx := context.Background()

	created, _ := s.Create(ctx, env.Actor, task.CreateInput{LeadID: &l.ID, Title: "x", DueAt: "2026-03-03"})
	priority, due := "high", "2026-03-04T08:00"
	updated, err := s.Update(ctx, env.Actor, created.ID, task.Patch{Priority: &priority, DueAt: &due})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Priority != "high" || !updated.DueAt.Equal(time.Date(2026, 3, 4, 11, 0, 0, 0, time.UTC)) {
		t.Fatalf("patch not applied: %+v", updated)
	}

	bad := "low-ish"
	if _, err := s.Update(ctx, env.Actor, created.ID, task.Patch{Priority: &bad}); !httperr.IsBusiness(err, "invalid_priority") {
		t.Fatalf("expected invalid_priority, got %v", err)
	}

	empty := ""
	if _, err := s.Update(ctx, env.Actor, created.ID, task.Patch{Type: &empty}); !httperr.IsBusiness(err, "invalid_task_type") {
		t.Fatalf("expected invalid_task_type for empty type, got %v", err)
	}
	if _, err := s.Update(ctx, env.Actor, created.ID, task.Patch{Priority: &empty}); !httperr.IsBusiness(err, "invalid_priority") {
		t.Fatalf("expected invalid_priority for empty priority, got %v", err)
	}
	if got := env.Tasks(t)[0]; got.Type == "" || got.Priority == "" {
		t.Fatalf("task stored blank attributes: %+v", got)
	}
}

func TestSummaryAndBuckets(t *testing.T) {
	env, s, l := setup(t)
	ctx := context.Background()

	// clock is 2026-03-02 10:00 in São Paulo
	for _, due := range []string{"2026-03-01T09:00", "2026-03-02T18:00", "2026-03-05", "2026-03-20"} {
		if _, err := s.Create(ctx, env.Actor, task.CreateInput{LeadID: &l.ID, Title: "t " + due, DueAt: due}); err != nil {
			t.Fatalf("create %s: %v", due, err)
		}
	}
	done, _ := s.Create(ctx, env.Actor, task.CreateInput{LeadID: &l.ID, Title: "feito", DueAt: "2026-03-02"})
	if _, err := s.Complete(ctx, env.Actor, done.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	sum, err := s.Summary(ctx, env.Clinic.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Overdue != 1 || sum.Today != 1 || sum.Next7Days != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}

	groups, err := s.GroupByBucket(ctx, env.Clinic.ID, task.Filter{})
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if len(groups.Overdue) != 1 || len(groups.Today) != 1 || len(groups.Upcoming) != 2 || len(groups.Closed) != 1 {
		t.Fatalf("unexpected groups %+v", groups)
	}
	if groups.Upcoming[0].Title != "t 2026-03-05" {
		t.Fatalf("upcoming should be due ascending")
	}

	pending, _ := s.List(ctx, env.Clinic.ID, task.Filter{Status: "pending"})
	if len(pending) != 4 {
		t.Fatalf("pending = %d", len(pending))
	}
}

func TestDelete(t *testing.T) {
	env, s, l := setup(t)
	ctx := context.Background()

	created, _ := s.Create(ctx, env.Actor, task.CreateInput{LeadID: &l.ID, Title: "x", DueAt: "2026-03-03"})
	if err := s.Delete(ctx, env.Actor, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, env.Actor, created.ID); !httperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
