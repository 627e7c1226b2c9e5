package tag

import (
	"context"
	"sort"

	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lookup"
	"github.com/BruksfildServices01/clinic-crm/internal/validators"
)

func (x *Index) ListForLead(ctx context.Context, clinicID, leadID string) ([]models.Tag, error) {
	var out []models.Tag
	err := x.store.View(ctx, func(r store.Reader) error {
		if _, err := lookup.Lead(r, clinicID, leadID); err != nil {
			return err
		}
		tags, err := tagsOf(r, clinicID, leadID)
		out = tags
		return err
	})
	return out, err
}

func (x *Index) ListAll(ctx context.Context, clinicID string) ([]models.Tag, error) {
	var out []models.Tag
	err := x.store.View(ctx, func(r store.Reader) error {
		tags, err := r.ListTags(clinicID)
		out = tags
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return validators.Fold(out[i].Name) < validators.Fold(out[j].Name)
	})
	return out, nil
}

// ListCategories returns the distinct non-empty categories, sorted.
func (x *Index) ListCategories(ctx context.Context, clinicID string) ([]string, error) {
	tags, err := x.ListAll(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	out := []string{}
	for _, t := range tags {
		if t.Category == "" {
			continue
		}
		if _, ok := seen[t.Category]; ok {
			continue
		}
		seen[t.Category] = struct{}{}
		out = append(out, t.Category)
	}
	sort.Strings(out)
	return out, nil
}
