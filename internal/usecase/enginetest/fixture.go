// Package enginetest builds an isolated engine over a fresh in-memory
// store for usecase tests.
package enginetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BruksfildServices01/clinic-crm/internal/infra/memory"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
)

// Clock is a manually advanced test clock.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{t: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// Recorder is a timeline publisher that keeps everything it receives.
type Recorder struct {
	mu     sync.Mutex
	Events []models.LeadEvent
}

func (r *Recorder) Publish(events []models.LeadEvent) {
	r.mu.Lock()
	r.Events = append(r.Events, events...)
	r.mu.Unlock()
}

type Env struct {
	Store  *memory.Store
	Clock  *Clock
	Pub    *Recorder
	Actor  models.Actor
	Clinic models.Clinic
}

// Start is the fixed instant every test environment begins at.
var Start = time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)

// New seeds one clinic and one user and returns an actor for them.
func New(t *testing.T) *Env {
	t.Helper()

	clock := NewClock(Start)
	st := memory.New(memory.WithClock(clock.Now))
	env := &Env{
		Store: st,
		Clock: clock,
		Pub:   &Recorder{},
		Clinic: models.Clinic{
			ID:       "clinic-1",
			Name:     "Sorriso",
			Slug:     "sorriso",
			Timezone: "America/Sao_Paulo",
		},
	}
	env.Actor = models.UserActor(env.Clinic.ID, "user-1")

	_, err := st.RunInTransaction(context.Background(), func(tx store.Tx) error {
		if err := tx.CreateClinic(env.Clinic); err != nil {
			return err
		}
		return tx.CreateUser(models.User{
			ID:       "user-1",
			ClinicID: env.Clinic.ID,
			Name:     "Ana",
			Email:    "ana@sorriso.com.br",
		})
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return env
}

// Events returns the lead timeline in append order.
func (e *Env) Events(t *testing.T, leadID string) []models.LeadEvent {
	t.Helper()
	var out []models.LeadEvent
	err := e.Store.View(context.Background(), func(r store.Reader) error {
		evs, err := r.ListLeadEvents(e.Clinic.ID, leadID)
		out = evs
		return err
	})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	return out
}

// CountType counts events of the given type.
func CountType(events []models.LeadEvent, typ string) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func (e *Env) Lead(t *testing.T, id string) models.Lead {
	t.Helper()
	var out models.Lead
	err := e.Store.View(context.Background(), func(r store.Reader) error {
		l, err := r.GetLead(e.Clinic.ID, id)
		out = l
		return err
	})
	if err != nil {
		t.Fatalf("get lead: %v", err)
	}
	return out
}

func (e *Env) Tasks(t *testing.T) []models.Task {
	t.Helper()
	var out []models.Task
	err := e.Store.View(context.Background(), func(r store.Reader) error {
		ts, err := r.ListTasks(e.Clinic.ID)
		out = ts
		return err
	})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	return out
}

func (e *Env) Patients(t *testing.T) []models.Patient {
	t.Helper()
	var out []models.Patient
	err := e.Store.View(context.Background(), func(r store.Reader) error {
		ps, err := r.ListPatients(e.Clinic.ID)
		out = ps
		return err
	})
	if err != nil {
		t.Fatalf("list patients: %v", err)
	}
	return out
}

// SetStages replaces the clinic pipeline directly in the store.
func (e *Env) SetStages(t *testing.T, stages []models.PipelineStage) {
	t.Helper()
	for i := range stages {
		stages[i].ClinicID = e.Clinic.ID
	}
	_, err := e.Store.RunInTransaction(context.Background(), func(tx store.Tx) error {
		return tx.ReplaceStages(e.Clinic.ID, stages)
	})
	if err != nil {
		t.Fatalf("set stages: %v", err)
	}
}
