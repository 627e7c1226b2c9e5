// Package memory is the in-process implementation of store.Store. It is
// used by tests and by STORE_DRIVER=memory, and is the base of the sqlite
// snapshot store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
)

type Store struct {
	mu    sync.RWMutex
	state state
	clock *store.Clock
}

var _ store.Store = (*Store)(nil)

type Option func(*Store)

// WithClock replaces the wall clock used for Tx.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.clock = store.NewClock(now) }
}

func New(opts ...Option) *Store {
	s := &Store{state: newState(), clock: store.NewClock(nil)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunInTransaction runs fn against a private copy of the state and swaps
// it in only when fn succeeds. Transactions are fully serialized.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx store.Tx) error) (store.Result, error) {
	if err := ctx.Err(); err != nil {
		return store.Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{view: view{st: s.state.clone()}, clock: s.clock}
	if err := fn(tx); err != nil {
		return store.Result{}, err
	}
	s.state = tx.st
	return store.Result{Events: tx.appended}, nil
}

func (s *Store) View(ctx context.Context, fn func(r store.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(view{st: snapshot})
}

func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.export()
}

func (s *Store) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fromSnapshot(snap)
}

// ===============================
// Reads
// ===============================

type view struct {
	st state
}

func (v view) GetClinic(id string) (models.Clinic, error) {
	return get(v.st.clinics, id)
}

func (v view) FindClinicBySlug(slug string) (models.Clinic, error) {
	for _, c := range v.st.clinics {
		if c.Slug == slug {
			return c, nil
		}
	}
	return models.Clinic{}, store.ErrNotFound
}

func (v view) GetUser(id string) (models.User, error) {
	return get(v.st.users, id)
}

func (v view) FindUserByEmail(email string) (models.User, error) {
	for _, u := range v.st.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (v view) ListUsers(clinicID string) ([]models.User, error) {
	out := filter(v.st.users, func(u models.User) bool { return u.ClinicID == clinicID })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (v view) GetLead(clinicID, id string) (models.Lead, error) {
	l, err := get(v.st.leads, id)
	if err != nil || l.ClinicID != clinicID {
		return models.Lead{}, store.ErrNotFound
	}
	return cloneLead(l), nil
}

func (v view) FindLeadByPhone(clinicID, phoneKey string) (models.Lead, error) {
	if phoneKey == "" {
		return models.Lead{}, store.ErrNotFound
	}
	var (
		found models.Lead
		ok    bool
	)
	for _, l := range v.st.leads {
		if l.ClinicID != clinicID || l.PhoneKey != phoneKey {
			continue
		}
		// oldest lead wins when legacy duplicates exist
		if !ok || l.CreatedAt.Before(found.CreatedAt) {
			found, ok = l, true
		}
	}
	if !ok {
		return models.Lead{}, store.ErrNotFound
	}
	return cloneLead(found), nil
}

func (v view) ListLeads(clinicID string) ([]models.Lead, error) {
	out := filter(v.st.leads, func(l models.Lead) bool { return l.ClinicID == clinicID })
	for i := range out {
		out[i] = cloneLead(out[i])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (v view) ListStages(clinicID string) ([]models.PipelineStage, error) {
	return append([]models.PipelineStage(nil), v.st.stages[clinicID]...), nil
}

func (v view) ListLeadEvents(clinicID, leadID string) ([]models.LeadEvent, error) {
	var out []models.LeadEvent
	for _, ev := range v.st.events {
		if ev.ClinicID == clinicID && ev.LeadID == leadID {
			out = append(out, cloneEvent(ev))
		}
	}
	return out, nil
}

func (v view) ListClinicEvents(clinicID string) ([]models.LeadEvent, error) {
	var out []models.LeadEvent
	for _, ev := range v.st.events {
		if ev.ClinicID == clinicID {
			out = append(out, cloneEvent(ev))
		}
	}
	return out, nil
}

func (v view) ListMessageLogs(clinicID, leadID string) ([]models.MessageLog, error) {
	var out []models.MessageLog
	for _, m := range v.st.messageLogs {
		if m.ClinicID == clinicID && m.LeadID == leadID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (v view) GetBudget(clinicID, id string) (models.Budget, error) {
	b, err := get(v.st.budgets, id)
	if err != nil || b.ClinicID != clinicID {
		return models.Budget{}, store.ErrNotFound
	}
	return cloneBudget(b), nil
}

func (v view) ListBudgets(clinicID string) ([]models.Budget, error) {
	out := filter(v.st.budgets, func(b models.Budget) bool { return b.ClinicID == clinicID })
	for i := range out {
		out[i] = cloneBudget(out[i])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (v view) GetTask(clinicID, id string) (models.Task, error) {
	t, err := get(v.st.tasks, id)
	if err != nil || t.ClinicID != clinicID {
		return models.Task{}, store.ErrNotFound
	}
	return t, nil
}

func (v view) ListTasks(clinicID string) ([]models.Task, error) {
	out := filter(v.st.tasks, func(t models.Task) bool { return t.ClinicID == clinicID })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (v view) GetTag(clinicID, id string) (models.Tag, error) {
	t, err := get(v.st.tags, id)
	if err != nil || t.ClinicID != clinicID {
		return models.Tag{}, store.ErrNotFound
	}
	return t, nil
}

func (v view) ListTags(clinicID string) ([]models.Tag, error) {
	out := filter(v.st.tags, func(t models.Tag) bool { return t.ClinicID == clinicID })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (v view) ListLeadTags(leadID string) ([]models.LeadTag, error) {
	links := v.st.leadTags[leadID]
	out := make([]models.LeadTag, 0, len(links))
	for _, lt := range links {
		out = append(out, lt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (v view) ListTagLinks(tagID string) ([]models.LeadTag, error) {
	var out []models.LeadTag
	for _, links := range v.st.leadTags {
		if lt, ok := links[tagID]; ok {
			out = append(out, lt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LeadID < out[j].LeadID })
	return out, nil
}

func (v view) GetPatient(clinicID, id string) (models.Patient, error) {
	p, err := get(v.st.patients, id)
	if err != nil || p.ClinicID != clinicID {
		return models.Patient{}, store.ErrNotFound
	}
	return p, nil
}

func (v view) ListPatients(clinicID string) ([]models.Patient, error) {
	out := filter(v.st.patients, func(p models.Patient) bool { return p.ClinicID == clinicID })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ===============================
// Writes
// ===============================

type transaction struct {
	view
	clock    *store.Clock
	appended []models.LeadEvent
}

func (tx *transaction) Now() time.Time { return tx.clock.Next() }
func (tx *transaction) NewID() string  { return uuid.NewString() }

func (tx *transaction) CreateClinic(c models.Clinic) error {
	if _, ok := tx.st.clinics[c.ID]; ok {
		return store.ErrConflict
	}
	if _, err := tx.FindClinicBySlug(c.Slug); err == nil {
		return store.ErrConflict
	}
	tx.st.clinics[c.ID] = c
	return nil
}

func (tx *transaction) SaveClinic(c models.Clinic) error {
	return put(tx.st.clinics, c.ID, c)
}

func (tx *transaction) CreateUser(u models.User) error {
	if _, ok := tx.st.users[u.ID]; ok {
		return store.ErrConflict
	}
	if _, err := tx.FindUserByEmail(u.Email); err == nil {
		return store.ErrConflict
	}
	tx.st.users[u.ID] = u
	return nil
}

func (tx *transaction) CreateLead(l models.Lead) error {
	if _, ok := tx.st.leads[l.ID]; ok {
		return store.ErrConflict
	}
	tx.st.leads[l.ID] = cloneLead(l)
	return nil
}

func (tx *transaction) SaveLead(l models.Lead) error {
	return put(tx.st.leads, l.ID, cloneLead(l))
}

func (tx *transaction) ReplaceStages(clinicID string, stages []models.PipelineStage) error {
	tx.st.stages[clinicID] = append([]models.PipelineStage(nil), stages...)
	return nil
}

func (tx *transaction) AppendLeadEvent(ev models.LeadEvent) error {
	ev = cloneEvent(ev)
	tx.st.events = append(tx.st.events, ev)
	tx.appended = append(tx.appended, ev)
	return nil
}

func (tx *transaction) CreateMessageLog(m models.MessageLog) error {
	tx.st.messageLogs = append(tx.st.messageLogs, m)
	return nil
}

func (tx *transaction) CreateBudget(b models.Budget) error {
	if _, ok := tx.st.budgets[b.ID]; ok {
		return store.ErrConflict
	}
	tx.st.budgets[b.ID] = cloneBudget(b)
	return nil
}

func (tx *transaction) SaveBudget(b models.Budget) error {
	return put(tx.st.budgets, b.ID, cloneBudget(b))
}

func (tx *transaction) CreateTask(t models.Task) error {
	if _, ok := tx.st.tasks[t.ID]; ok {
		return store.ErrConflict
	}
	tx.st.tasks[t.ID] = t
	return nil
}

func (tx *transaction) SaveTask(t models.Task) error {
	return put(tx.st.tasks, t.ID, t)
}

func (tx *transaction) DeleteTask(clinicID, id string) error {
	if _, err := tx.GetTask(clinicID, id); err != nil {
		return err
	}
	delete(tx.st.tasks, id)
	return nil
}

func (tx *transaction) CreateTag(t models.Tag) error {
	if _, ok := tx.st.tags[t.ID]; ok {
		return store.ErrConflict
	}
	tx.st.tags[t.ID] = t
	return nil
}

func (tx *transaction) LinkTag(link models.LeadTag) (bool, error) {
	links := tx.st.leadTags[link.LeadID]
	if _, ok := links[link.TagID]; ok {
		return false, nil
	}
	if links == nil {
		links = map[string]models.LeadTag{}
		tx.st.leadTags[link.LeadID] = links
	}
	links[link.TagID] = link
	return true, nil
}

func (tx *transaction) UnlinkTag(leadID, tagID string) (bool, error) {
	links := tx.st.leadTags[leadID]
	if _, ok := links[tagID]; !ok {
		return false, nil
	}
	delete(links, tagID)
	return true, nil
}

func (tx *transaction) CreatePatient(p models.Patient) error {
	if _, ok := tx.st.patients[p.ID]; ok {
		return store.ErrConflict
	}
	tx.st.patients[p.ID] = p
	return nil
}

// ===============================
// Helpers
// ===============================

func get[V any](m map[string]V, id string) (V, error) {
	v, ok := m[id]
	if !ok {
		var zero V
		return zero, store.ErrNotFound
	}
	return v, nil
}

func put[V any](m map[string]V, id string, v V) error {
	if _, ok := m[id]; !ok {
		return store.ErrNotFound
	}
	m[id] = v
	return nil
}

func filter[V any](m map[string]V, keep func(V) bool) []V {
	var out []V
	for _, v := range m {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func cloneLead(l models.Lead) models.Lead {
	if l.Tags != nil {
		l.Tags = append([]string(nil), l.Tags...)
	}
	return l
}

func cloneBudget(b models.Budget) models.Budget {
	if b.Items != nil {
		b.Items = append([]models.BudgetItem(nil), b.Items...)
	}
	return b
}

func cloneEvent(ev models.LeadEvent) models.LeadEvent {
	if ev.Payload != nil {
		ev.Payload = copyMap(ev.Payload)
	}
	return ev
}
