// Package timeline appends typed lead events and hands committed ones to
// the realtime publisher.
package timeline

import (
	"fmt"

	"github.com/BruksfildServices01/clinic-crm/internal/domain/lead"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
)

type Publisher interface {
	Publish(events []models.LeadEvent)
}

// Append writes one timeline entry for p. description overrides the
// payload's own rendering when non-empty.
func Append(
	tx store.Tx,
	actor models.Actor,
	leadID string,
	p lead.Payload,
	description ...string,
) (models.LeadEvent, error) {

	payload, err := lead.Encode(p)
	if err != nil {
		return models.LeadEvent{}, fmt.Errorf("encode %s payload: %w", p.Type(), err)
	}

	desc := p.Describe()
	if len(description) > 0 && description[0] != "" {
		desc = description[0]
	}

	ev := models.LeadEvent{
		ID:          tx.NewID(),
		ClinicID:    actor.ClinicID,
		LeadID:      leadID,
		Type:        string(p.Type()),
		ActorID:     actor.UserID,
		Description: desc,
		Payload:     payload,
		CreatedAt:   tx.Now(),
	}
	if err := tx.AppendLeadEvent(ev); err != nil {
		return models.LeadEvent{}, err
	}
	return ev, nil
}

// Publish forwards the events of a committed transaction. A nil publisher
// is allowed.
func Publish(pub Publisher, res store.Result) {
	if pub == nil || len(res.Events) == 0 {
		return
	}
	pub.Publish(res.Events)
}
