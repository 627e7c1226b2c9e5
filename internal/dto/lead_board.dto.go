package dto

import (
	"time"

	"github.com/BruksfildServices01/clinic-crm/internal/models"
)

type LeadCardDTO struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Phone          string     `json:"phone"`
	Source         string     `json:"source"`
	Interest       string     `json:"interest"`
	OwnerID        *string    `json:"owner_id"`
	Tags           []string   `json:"tags"`
	EstimatedValue *float64   `json:"estimated_value"`
	LastContactAt  *time.Time `json:"last_contact_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

type BoardColumnDTO struct {
	Key   string        `json:"key"`
	Label string        `json:"label"`
	Color string        `json:"color"`
	Leads []LeadCardDTO `json:"leads"`
}

func LeadCard(l models.Lead) LeadCardDTO {
	tags := l.Tags
	if tags == nil {
		tags = []string{}
	}
	return LeadCardDTO{
		ID:             l.ID,
		Name:           l.Name,
		Phone:          l.Phone,
		Source:         l.Source,
		Interest:       l.Interest,
		OwnerID:        l.OwnerID,
		Tags:           tags,
		EstimatedValue: l.EstimatedValue,
		LastContactAt:  l.LastContactAt,
		CreatedAt:      l.CreatedAt,
	}
}

// Board lays the leads out in stage order. Leads whose stage is not in
// the pipeline are left out.
func Board(stages []models.PipelineStage, leads []models.Lead) []BoardColumnDTO {
	cols := make([]BoardColumnDTO, len(stages))
	index := make(map[string]int, len(stages))
	for i, s := range stages {
		cols[i] = BoardColumnDTO{Key: s.Key, Label: s.Label, Color: s.Color, Leads: []LeadCardDTO{}}
		index[s.Key] = i
	}
	for _, l := range leads {
		if i, ok := index[l.StageKey]; ok {
			cols[i].Leads = append(cols[i].Leads, LeadCard(l))
		}
	}
	return cols
}
