package task

import (
	"context"
	"sort"

	domain "github.com/BruksfildServices01/clinic-crm/internal/domain/task"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lookup"
)

func (s *Scheduler) List(ctx context.Context, clinicID string, f Filter) ([]models.Task, error) {
	var out []models.Task
	err := s.store.View(ctx, func(r store.Reader) error {
		tasks, err := r.ListTasks(clinicID)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			if f.match(t) {
				out = append(out, t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out, nil
}

func (s *Scheduler) Summary(ctx context.Context, clinicID string) (domain.Summary, error) {
	var sum domain.Summary
	err := s.store.View(ctx, func(r store.Reader) error {
		tasks, err := r.ListTasks(clinicID)
		if err != nil {
			return err
		}
		sum = domain.Summarize(tasks, s.now(), lookup.Location(r, clinicID))
		return nil
	})
	return sum, err
}

func (s *Scheduler) GroupByBucket(ctx context.Context, clinicID string, f Filter) (domain.Groups, error) {
	var groups domain.Groups
	err := s.store.View(ctx, func(r store.Reader) error {
		tasks, err := r.ListTasks(clinicID)
		if err != nil {
			return err
		}
		var matched []models.Task
		for _, t := range tasks {
			if f.match(t) {
				matched = append(matched, t)
			}
		}
		groups = domain.GroupByBucket(matched, s.now(), lookup.Location(r, clinicID))
		return nil
	})
	return groups, err
}
