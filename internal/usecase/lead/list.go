package lead

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lookup"
	"github.com/BruksfildServices01/clinic-crm/internal/validators"
)

type Filter struct {
	StageKey string
	OwnerID  string
	Source   string
	TagID    string
	Search   string
}

func (f Filter) matchSearch(l models.Lead) bool {
	if f.Search == "" {
		return true
	}
	if validators.ContainsFold(f.Search, l.Name, l.Interest) {
		return true
	}
	if strings.IndexFunc(f.Search, unicode.IsLetter) >= 0 {
		return false
	}
	digits := validators.Digits(f.Search)
	return digits != "" && strings.Contains(l.Phone, digits)
}

// List returns the clinic's leads, most recently updated first.
func (d *Directory) List(ctx context.Context, clinicID string, f Filter) ([]models.Lead, error) {
	var out []models.Lead
	err := d.store.View(ctx, func(r store.Reader) error {
		leads, err := r.ListLeads(clinicID)
		if err != nil {
			return err
		}

		var tagged map[string]struct{}
		if f.TagID != "" {
			links, err := r.ListTagLinks(f.TagID)
			if err != nil {
				return err
			}
			tagged = make(map[string]struct{}, len(links))
			for _, lt := range links {
				tagged[lt.LeadID] = struct{}{}
			}
		}

		for _, l := range leads {
			if f.StageKey != "" && l.StageKey != f.StageKey {
				continue
			}
			if f.OwnerID != "" && (l.OwnerID == nil || *l.OwnerID != f.OwnerID) {
				continue
			}
			if f.Source != "" && l.Source != f.Source {
				continue
			}
			if tagged != nil {
				if _, ok := tagged[l.ID]; !ok {
					continue
				}
			}
			if !f.matchSearch(l) {
				continue
			}
			if l.Tags == nil {
				l.Tags = []string{}
			}
			out = append(out, l)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

type Detail struct {
	models.Lead
	TimelineCount int `json:"timeline_count"`
	OpenTasks     int `json:"open_tasks"`
}

func (d *Directory) Get(ctx context.Context, clinicID, id string) (*Detail, error) {
	var out Detail
	err := d.store.View(ctx, func(r store.Reader) error {
		l, err := lookup.Lead(r, clinicID, id)
		if err != nil {
			return err
		}
		events, err := r.ListLeadEvents(clinicID, id)
		if err != nil {
			return err
		}
		tasks, err := r.ListTasks(clinicID)
		if err != nil {
			return err
		}
		open := 0
		for _, t := range tasks {
			if t.LeadID != nil && *t.LeadID == id && t.Status == "pending" {
				open++
			}
		}
		if l.Tags == nil {
			l.Tags = []string{}
		}
		out = Detail{Lead: l, TimelineCount: len(events), OpenTasks: open}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
