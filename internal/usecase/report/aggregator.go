// Package report holds read-only projections over leads, timeline events
// and tasks. Nothing here writes to the store.
package report

import (
	"context"
	"sort"
	"time"

	domain "github.com/BruksfildServices01/clinic-crm/internal/domain/lead"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lead"
)

type Aggregator struct {
	store store.Store
	now   func() time.Time
}

func NewAggregator(s store.Store) *Aggregator {
	return &Aggregator{store: s, now: time.Now}
}

func (a *Aggregator) WithNow(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// Range bounds lead creation time; nil ends are open.
type Range struct {
	From *time.Time
	To   *time.Time
}

func (r Range) contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && !t.Before(*r.To) {
		return false
	}
	return true
}

// ===== Funnel =====

type StageCount struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

type Funnel struct {
	Stages         []StageCount `json:"stages"`
	Total          int          `json:"total"`
	Converted      int          `json:"converted"`
	Lost           int          `json:"lost"`
	ConversionRate float64      `json:"conversion_rate"`
}

func (a *Aggregator) Funnel(ctx context.Context, clinicID string, rng Range) (Funnel, error) {
	var f Funnel
	err := a.store.View(ctx, func(r store.Reader) error {
		reg, err := lead.Registry(r, clinicID)
		if err != nil {
			return err
		}
		leads, err := leadsIn(r, clinicID, rng)
		if err != nil {
			return err
		}
		f = funnelOf(reg, leads)
		return nil
	})
	return f, err
}

func funnelOf(reg domain.Registry, leads []models.Lead) Funnel {
	counts := map[string]int{}
	f := Funnel{Stages: []StageCount{}}
	for _, l := range leads {
		counts[l.StageKey]++
		f.Total++
		if l.Converted() {
			f.Converted++
		}
		if l.StageKey == domain.StageLost {
			f.Lost++
		}
	}
	for _, s := range reg.Stages() {
		f.Stages = append(f.Stages, StageCount{Key: s.Key, Label: s.Label, Count: counts[s.Key]})
	}
	if f.Total > 0 {
		f.ConversionRate = float64(f.Converted) / float64(f.Total)
	}
	return f
}

// ===== First contact latency =====

type Latency struct {
	Contacted      int     `json:"contacted"`
	Pending        int     `json:"pending"`
	AverageMinutes float64 `json:"average_minutes"`
	MedianMinutes  float64 `json:"median_minutes"`
}

// IsFirstContact reports whether ev counts as the first touch on a lead:
// a contact, an outbound message, or a stage move after creation.
func IsFirstContact(ev models.LeadEvent) bool {
	switch domain.EventType(ev.Type) {
	case domain.EventContact, domain.EventMessageSent:
		return true
	case domain.EventStatusChange:
		p, err := domain.Decode(ev)
		if err != nil {
			return false
		}
		sc, ok := p.(domain.StatusChange)
		return ok && sc.FromStage != nil
	}
	return false
}

func (a *Aggregator) Latency(ctx context.Context, clinicID string, rng Range) (Latency, error) {
	var out Latency
	err := a.store.View(ctx, func(r store.Reader) error {
		leads, err := leadsIn(r, clinicID, rng)
		if err != nil {
			return err
		}
		byLead, err := eventsByLead(r, clinicID)
		if err != nil {
			return err
		}
		out = latencyOf(leads, byLead)
		return nil
	})
	return out, err
}

func latencyOf(leads []models.Lead, byLead map[string][]models.LeadEvent) Latency {
	var out Latency
	var samples []float64
	for _, l := range leads {
		found := false
		for _, ev := range byLead[l.ID] {
			if IsFirstContact(ev) {
				samples = append(samples, ev.CreatedAt.Sub(l.CreatedAt).Minutes())
				found = true
				break
			}
		}
		if !found {
			out.Pending++
		}
	}

	out.Contacted = len(samples)
	if len(samples) == 0 {
		return out
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	out.AverageMinutes = sum / float64(len(samples))

	sort.Float64s(samples)
	mid := len(samples) / 2
	if len(samples)%2 == 0 {
		out.MedianMinutes = (samples[mid-1] + samples[mid]) / 2
	} else {
		out.MedianMinutes = samples[mid]
	}
	return out
}

// ===== Owner performance =====

type OwnerStats struct {
	OwnerID string  `json:"owner_id"`
	Name    string  `json:"name"`
	Leads   int     `json:"leads"`
	Won     int     `json:"won"`
	Lost    int     `json:"lost"`
	WinRate float64 `json:"win_rate"`
}

var wonStages = map[string]bool{
	domain.StageApproved:  true,
	domain.StageTreatment: true,
	domain.StageCompleted: true,
}

func (a *Aggregator) Owners(ctx context.Context, clinicID string, rng Range) ([]OwnerStats, error) {
	var out []OwnerStats
	err := a.store.View(ctx, func(r store.Reader) error {
		leads, err := leadsIn(r, clinicID, rng)
		if err != nil {
			return err
		}
		users, err := r.ListUsers(clinicID)
		if err != nil {
			return err
		}
		names := map[string]string{}
		for _, u := range users {
			names[u.ID] = u.Name
		}
		out = ownersOf(leads, names)
		return nil
	})
	return out, err
}

func ownersOf(leads []models.Lead, names map[string]string) []OwnerStats {
	idx := map[string]*OwnerStats{}
	for _, l := range leads {
		if l.OwnerID == nil {
			continue
		}
		s, ok := idx[*l.OwnerID]
		if !ok {
			s = &OwnerStats{OwnerID: *l.OwnerID, Name: names[*l.OwnerID]}
			idx[*l.OwnerID] = s
		}
		s.Leads++
		switch {
		case l.Converted() || wonStages[l.StageKey]:
			s.Won++
		case l.StageKey == domain.StageLost:
			s.Lost++
		}
	}

	out := make([]OwnerStats, 0, len(idx))
	for _, s := range idx {
		if closed := s.Won + s.Lost; closed > 0 {
			s.WinRate = float64(s.Won) / float64(closed)
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WinRate != out[j].WinRate {
			return out[i].WinRate > out[j].WinRate
		}
		return out[i].OwnerID < out[j].OwnerID
	})
	return out
}

// ===== Time in stage =====

type StageDuration struct {
	Key          string  `json:"key"`
	Label        string  `json:"label"`
	Samples      int     `json:"samples"`
	AverageHours float64 `json:"average_hours"`
}

// TimeInStage averages completed stays per stage from each lead's
// ascending status_change sequence. The current open stay is not counted.
func (a *Aggregator) TimeInStage(ctx context.Context, clinicID string) ([]StageDuration, error) {
	var out []StageDuration
	err := a.store.View(ctx, func(r store.Reader) error {
		reg, err := lead.Registry(r, clinicID)
		if err != nil {
			return err
		}
		byLead, err := eventsByLead(r, clinicID)
		if err != nil {
			return err
		}
		out = timeInStageOf(reg, byLead)
		return nil
	})
	return out, err
}

func timeInStageOf(reg domain.Registry, byLead map[string][]models.LeadEvent) []StageDuration {
	total := map[string]time.Duration{}
	samples := map[string]int{}

	for _, events := range byLead {
		var (
			current string
			since   time.Time
		)
		for _, ev := range events {
			if domain.EventType(ev.Type) != domain.EventStatusChange {
				continue
			}
			p, err := domain.Decode(ev)
			if err != nil {
				continue
			}
			sc, ok := p.(domain.StatusChange)
			if !ok {
				continue
			}
			if current != "" && sc.ToStage != current {
				total[current] += ev.CreatedAt.Sub(since)
				samples[current]++
			}
			if sc.ToStage != current {
				current = sc.ToStage
				since = ev.CreatedAt
			}
		}
	}

	out := []StageDuration{}
	for _, s := range reg.Stages() {
		d := StageDuration{Key: s.Key, Label: s.Label, Samples: samples[s.Key]}
		if d.Samples > 0 {
			d.AverageHours = total[s.Key].Hours() / float64(d.Samples)
		}
		out = append(out, d)
	}
	return out
}

// ===== helpers =====

func leadsIn(r store.Reader, clinicID string, rng Range) ([]models.Lead, error) {
	all, err := r.ListLeads(clinicID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Lead, 0, len(all))
	for _, l := range all {
		if rng.contains(l.CreatedAt) {
			out = append(out, l)
		}
	}
	return out, nil
}

// eventsByLead groups the clinic timeline per lead in ascending order.
func eventsByLead(r store.Reader, clinicID string) (map[string][]models.LeadEvent, error) {
	events, err := r.ListClinicEvents(clinicID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].CreatedAt.Before(events[j].CreatedAt) })

	out := map[string][]models.LeadEvent{}
	for _, ev := range events {
		out[ev.LeadID] = append(out[ev.LeadID], ev)
	}
	return out, nil
}
