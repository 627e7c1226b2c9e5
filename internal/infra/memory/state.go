package memory

import (
	"sort"

	"github.com/BruksfildServices01/clinic-crm/internal/models"
)

type state struct {
	clinics     map[string]models.Clinic
	users       map[string]models.User
	leads       map[string]models.Lead
	events      []models.LeadEvent
	stages      map[string][]models.PipelineStage
	budgets     map[string]models.Budget
	tasks       map[string]models.Task
	tags        map[string]models.Tag
	leadTags    map[string]map[string]models.LeadTag
	messageLogs []models.MessageLog
	patients    map[string]models.Patient
}

// Snapshot is the serialisable form of the whole store.
type Snapshot struct {
	Clinics     []models.Clinic        `json:"clinics"`
	Users       []models.User          `json:"users"`
	Leads       []models.Lead          `json:"leads"`
	Events      []models.LeadEvent     `json:"events"`
	Stages      []models.PipelineStage `json:"stages"`
	Budgets     []models.Budget        `json:"budgets"`
	Tasks       []models.Task          `json:"tasks"`
	Tags        []models.Tag           `json:"tags"`
	LeadTags    []models.LeadTag       `json:"lead_tags"`
	MessageLogs []models.MessageLog    `json:"message_logs"`
	Patients    []models.Patient       `json:"patients"`
}

func newState() state {
	return state{
		clinics:  map[string]models.Clinic{},
		users:    map[string]models.User{},
		leads:    map[string]models.Lead{},
		stages:   map[string][]models.PipelineStage{},
		budgets:  map[string]models.Budget{},
		tasks:    map[string]models.Task{},
		tags:     map[string]models.Tag{},
		leadTags: map[string]map[string]models.LeadTag{},
		patients: map[string]models.Patient{},
	}
}

// clone copies the containers. Stored values are never mutated in place,
// so the values themselves can be shared; append-only slices are capped
// so a transaction's appends never reach the committed backing array.
func (s state) clone() state {
	cp := state{
		clinics:     copyMap(s.clinics),
		users:       copyMap(s.users),
		leads:       copyMap(s.leads),
		events:      s.events[:len(s.events):len(s.events)],
		stages:      copyMap(s.stages),
		budgets:     copyMap(s.budgets),
		tasks:       copyMap(s.tasks),
		tags:        copyMap(s.tags),
		leadTags:    make(map[string]map[string]models.LeadTag, len(s.leadTags)),
		messageLogs: s.messageLogs[:len(s.messageLogs):len(s.messageLogs)],
		patients:    copyMap(s.patients),
	}
	for k, v := range s.leadTags {
		cp.leadTags[k] = copyMap(v)
	}
	return cp
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s state) export() Snapshot {
	snap := Snapshot{
		Clinics:     values(s.clinics, func(c models.Clinic) string { return c.ID }),
		Users:       values(s.users, func(u models.User) string { return u.ID }),
		Leads:       values(s.leads, func(l models.Lead) string { return l.ID }),
		Events:      append([]models.LeadEvent(nil), s.events...),
		Budgets:     values(s.budgets, func(b models.Budget) string { return b.ID }),
		Tasks:       values(s.tasks, func(t models.Task) string { return t.ID }),
		Tags:        values(s.tags, func(t models.Tag) string { return t.ID }),
		MessageLogs: append([]models.MessageLog(nil), s.messageLogs...),
		Patients:    values(s.patients, func(p models.Patient) string { return p.ID }),
	}
	for _, clinicID := range sortedKeys(s.stages) {
		snap.Stages = append(snap.Stages, s.stages[clinicID]...)
	}
	for _, leadID := range sortedKeys(s.leadTags) {
		links := s.leadTags[leadID]
		for _, tagID := range sortedKeys(links) {
			snap.LeadTags = append(snap.LeadTags, links[tagID])
		}
	}
	return snap
}

func fromSnapshot(snap Snapshot) state {
	st := newState()
	for _, c := range snap.Clinics {
		st.clinics[c.ID] = c
	}
	for _, u := range snap.Users {
		st.users[u.ID] = u
	}
	for _, l := range snap.Leads {
		st.leads[l.ID] = l
	}
	st.events = append(st.events, snap.Events...)
	for _, s := range snap.Stages {
		st.stages[s.ClinicID] = append(st.stages[s.ClinicID], s)
	}
	for _, b := range snap.Budgets {
		st.budgets[b.ID] = b
	}
	for _, t := range snap.Tasks {
		st.tasks[t.ID] = t
	}
	for _, t := range snap.Tags {
		st.tags[t.ID] = t
	}
	for _, lt := range snap.LeadTags {
		if st.leadTags[lt.LeadID] == nil {
			st.leadTags[lt.LeadID] = map[string]models.LeadTag{}
		}
		st.leadTags[lt.LeadID][lt.TagID] = lt
	}
	st.messageLogs = append(st.messageLogs, snap.MessageLogs...)
	for _, p := range snap.Patients {
		st.patients[p.ID] = p
	}
	return st
}

func values[V any](m map[string]V, id func(V) string) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return id(out[i]) < id(out[j]) })
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
