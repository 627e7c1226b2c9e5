package budget

import (
	"context"
	"sort"
	"strings"
	"time"

	domain "github.com/BruksfildServices01/clinic-crm/internal/domain/budget"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lookup"
	"github.com/BruksfildServices01/clinic-crm/internal/validators"
)

type Filter struct {
	Status     string
	From       *time.Time
	To         *time.Time
	AssigneeID string
	Search     string
}

// Item is a budget enriched with its lead's contact data.
type Item struct {
	models.Budget
	LeadName  string `json:"lead_name"`
	LeadPhone string `json:"lead_phone"`
}

func (f Filter) match(b models.Budget, l models.Lead) bool {
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.From != nil && b.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !b.CreatedAt.Before(*f.To) {
		return false
	}
	if f.AssigneeID != "" && (l.OwnerID == nil || *l.OwnerID != f.AssigneeID) {
		return false
	}
	if f.Search != "" {
		digits := validators.Digits(f.Search)
		phoneHit := digits != "" && digits == f.Search && strings.Contains(l.Phone, digits)
		if !phoneHit && !validators.ContainsFold(f.Search, l.Name, b.Title) {
			return false
		}
	}
	return true
}

func (w *Workflow) filtered(r store.Reader, clinicID string, f Filter) ([]Item, error) {
	budgets, err := r.ListBudgets(clinicID)
	if err != nil {
		return nil, err
	}

	leads := map[string]models.Lead{}
	var out []Item
	for _, b := range budgets {
		l, ok := leads[b.LeadID]
		if !ok {
			l, err = r.GetLead(clinicID, b.LeadID)
			if err != nil {
				// orphaned budgets are kept, lead columns stay blank
				l = models.Lead{}
			}
			leads[b.LeadID] = l
		}
		if !f.match(b, l) {
			continue
		}
		out = append(out, Item{Budget: b, LeadName: l.Name, LeadPhone: l.Phone})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (w *Workflow) List(ctx context.Context, clinicID string, f Filter) ([]Item, error) {
	var out []Item
	err := w.store.View(ctx, func(r store.Reader) error {
		items, err := w.filtered(r, clinicID, f)
		out = items
		return err
	})
	return out, err
}

func (w *Workflow) Get(ctx context.Context, clinicID, id string) (*Item, error) {
	var out Item
	err := w.store.View(ctx, func(r store.Reader) error {
		b, err := lookup.Budget(r, clinicID, id)
		if err != nil {
			return err
		}
		l, err := lookup.Lead(r, clinicID, b.LeadID)
		if err != nil {
			return err
		}
		out = Item{Budget: b, LeadName: l.Name, LeadPhone: l.Phone}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type KPIs struct {
	Total         int     `json:"total"`
	InAnalysis    int     `json:"in_analysis"`
	Approved      int     `json:"approved"`
	Denied        int     `json:"denied"`
	ApprovalRate  float64 `json:"approval_rate"`
	TotalValue    float64 `json:"total_value"`
	ApprovedValue float64 `json:"approved_value"`
}

// KPIs derives counts over the filtered set. Approval rate is approved
// over all budgets in the set, zero when the set is empty.
func (w *Workflow) KPIs(ctx context.Context, clinicID string, f Filter) (KPIs, error) {
	var k KPIs
	err := w.store.View(ctx, func(r store.Reader) error {
		items, err := w.filtered(r, clinicID, f)
		if err != nil {
			return err
		}
		for _, it := range items {
			k.Total++
			k.TotalValue += it.Total
			switch domain.Status(it.Status) {
			case domain.StatusApproved:
				k.Approved++
				k.ApprovedValue += it.Total
			case domain.StatusDenied:
				k.Denied++
			default:
				k.InAnalysis++
			}
		}
		if k.Total > 0 {
			k.ApprovalRate = float64(k.Approved) / float64(k.Total)
		}
		return nil
	})
	return k, err
}
