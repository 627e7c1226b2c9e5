package tag

import (
	"context"
	"sort"
	"strings"

	"github.com/BruksfildServices01/clinic-crm/internal/domain/lead"
	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lookup"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/timeline"
	"github.com/BruksfildServices01/clinic-crm/internal/validators"
)

// Index maintains lead tags and the denormalized tag names on each lead.
type Index struct {
	store store.Store
	pub   timeline.Publisher
}

func NewIndex(s store.Store, pub timeline.Publisher) *Index {
	return &Index{store: s, pub: pub}
}

type CreateInput struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Color    string `json:"color"`
}

// Create returns the existing tag when (name, category) already exists in
// the clinic, comparing case and accent insensitively.
func (x *Index) Create(ctx context.Context, actor models.Actor, in CreateInput) (*models.Tag, bool, error) {
	name := strings.TrimSpace(in.Name)
	category := strings.TrimSpace(in.Category)
	if name == "" {
		return nil, false, httperr.ErrValidation("name_required", "nome obrigatório")
	}

	var (
		out     models.Tag
		created bool
	)
	_, err := x.store.RunInTransaction(ctx, func(tx store.Tx) error {
		tags, err := tx.ListTags(actor.ClinicID)
		if err != nil {
			return err
		}
		for _, t := range tags {
			if validators.Fold(t.Name) == validators.Fold(name) &&
				validators.Fold(t.Category) == validators.Fold(category) {
				out = t
				return nil
			}
		}

		t := models.Tag{
			ID:        tx.NewID(),
			ClinicID:  actor.ClinicID,
			Name:      name,
			Category:  category,
			Color:     strings.TrimSpace(in.Color),
			CreatedAt: tx.Now(),
		}
		if err := tx.CreateTag(t); err != nil {
			return err
		}
		out, created = t, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &out, created, nil
}

// Attach links the tag to the lead. Re-attaching is a no-op apart from
// the tag list resync.
func (x *Index) Attach(ctx context.Context, actor models.Actor, leadID, tagID string) (*models.Lead, error) {
	var out models.Lead
	res, err := x.store.RunInTransaction(ctx, func(tx store.Tx) error {
		l, err := lookup.Lead(tx, actor.ClinicID, leadID)
		if err != nil {
			return err
		}
		t, err := lookup.Tag(tx, actor.ClinicID, tagID)
		if err != nil {
			return err
		}

		linked, err := tx.LinkTag(models.LeadTag{LeadID: l.ID, TagID: t.ID, CreatedAt: tx.Now()})
		if err != nil {
			return err
		}
		if linked {
			if _, err := timeline.Append(tx, actor, l.ID, lead.TagAdded{
				TagID:    t.ID,
				Name:     t.Name,
				Category: t.Category,
			}); err != nil {
				return err
			}
		}

		out, err = resync(tx, actor, l)
		return err
	})
	if err != nil {
		return nil, err
	}

	timeline.Publish(x.pub, res)
	return &out, nil
}

func (x *Index) Detach(ctx context.Context, actor models.Actor, leadID, tagID string) (*models.Lead, error) {
	var out models.Lead
	_, err := x.store.RunInTransaction(ctx, func(tx store.Tx) error {
		l, err := lookup.Lead(tx, actor.ClinicID, leadID)
		if err != nil {
			return err
		}
		if _, err := lookup.Tag(tx, actor.ClinicID, tagID); err != nil {
			return err
		}
		if _, err := tx.UnlinkTag(l.ID, tagID); err != nil {
			return err
		}

		out, err = resync(tx, actor, l)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// resync rebuilds the lead's tag names from the join rows.
func resync(tx store.Tx, actor models.Actor, l models.Lead) (models.Lead, error) {
	tags, err := tagsOf(tx, actor.ClinicID, l.ID)
	if err != nil {
		return models.Lead{}, err
	}
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	sort.Strings(names)

	if equal(names, l.Tags) {
		return l, nil
	}

	l.Tags = names
	l.UpdatedAt = tx.Now()
	l.UpdatedBy = actor.UserID
	if err := tx.SaveLead(l); err != nil {
		return models.Lead{}, err
	}
	return l, nil
}

func tagsOf(r store.Reader, clinicID, leadID string) ([]models.Tag, error) {
	links, err := r.ListLeadTags(leadID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Tag, 0, len(links))
	for _, lt := range links {
		t, err := r.GetTag(clinicID, lt.TagID)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
