package task

import (
	"sort"
	"time"

	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/timezone"
)

type Bucket string

const (
	BucketOverdue  Bucket = "overdue"
	BucketToday    Bucket = "today"
	BucketUpcoming Bucket = "upcoming"
	BucketClosed   Bucket = "closed"
)

// BucketOf compares the due date's calendar day against today's in loc.
func BucketOf(t models.Task, now time.Time, loc *time.Location) Bucket {
	if Status(t.Status) != StatusPending {
		return BucketClosed
	}
	switch d := timezone.DaysBetween(now, t.DueAt, loc); {
	case d < 0:
		return BucketOverdue
	case d == 0:
		return BucketToday
	default:
		return BucketUpcoming
	}
}

type Summary struct {
	Overdue                int `json:"overdue"`
	Today                  int `json:"today"`
	Next7Days              int `json:"next_7_days"`
	PendingBudgetFollowUps int `json:"pending_budget_followups"`
}

func Summarize(tasks []models.Task, now time.Time, loc *time.Location) Summary {
	var s Summary
	for _, t := range tasks {
		if Status(t.Status) != StatusPending {
			continue
		}
		if Type(t.Type) == TypeBudgetFollowUp {
			s.PendingBudgetFollowUps++
		}
		switch d := timezone.DaysBetween(now, t.DueAt, loc); {
		case d < 0:
			s.Overdue++
		case d == 0:
			s.Today++
		case d <= 7:
			s.Next7Days++
		}
	}
	return s
}

type Groups struct {
	Overdue  []models.Task `json:"overdue"`
	Today    []models.Task `json:"today"`
	Upcoming []models.Task `json:"upcoming"`
	Closed   []models.Task `json:"closed"`
}

// GroupByBucket partitions tasks for list rendering. Closed tasks sort by
// completion time descending, the rest by due time ascending.
func GroupByBucket(tasks []models.Task, now time.Time, loc *time.Location) Groups {
	g := Groups{
		Overdue:  []models.Task{},
		Today:    []models.Task{},
		Upcoming: []models.Task{},
		Closed:   []models.Task{},
	}
	for _, t := range tasks {
		switch BucketOf(t, now, loc) {
		case BucketOverdue:
			g.Overdue = append(g.Overdue, t)
		case BucketToday:
			g.Today = append(g.Today, t)
		case BucketUpcoming:
			g.Upcoming = append(g.Upcoming, t)
		default:
			g.Closed = append(g.Closed, t)
		}
	}

	byDue := func(ts []models.Task) {
		sort.SliceStable(ts, func(i, j int) bool { return ts[i].DueAt.Before(ts[j].DueAt) })
	}
	byDue(g.Overdue)
	byDue(g.Today)
	byDue(g.Upcoming)
	sort.SliceStable(g.Closed, func(i, j int) bool {
		return closedAt(g.Closed[i]).After(closedAt(g.Closed[j]))
	})
	return g
}

func closedAt(t models.Task) time.Time {
	if t.CompletedAt != nil {
		return *t.CompletedAt
	}
	if t.CanceledAt != nil {
		return *t.CanceledAt
	}
	return t.UpdatedAt
}
