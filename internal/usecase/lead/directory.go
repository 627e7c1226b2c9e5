package lead

import (
	domain "github.com/BruksfildServices01/clinic-crm/internal/domain/lead"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/timeline"
)

// Directory owns leads, the clinic pipeline and the lead timeline.
type Directory struct {
	store store.Store
	pub   timeline.Publisher
}

func NewDirectory(s store.Store, pub timeline.Publisher) *Directory {
	return &Directory{store: s, pub: pub}
}

// Registry loads the clinic pipeline, falling back to the default stages.
func Registry(r store.Reader, clinicID string) (domain.Registry, error) {
	stages, err := r.ListStages(clinicID)
	if err != nil {
		return domain.Registry{}, err
	}
	return domain.NewRegistry(clinicID, stages), nil
}
