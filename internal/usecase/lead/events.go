package lead

import (
	"context"
	"sort"
	"strings"

	domain "github.com/BruksfildServices01/clinic-crm/internal/domain/lead"
	"github.com/BruksfildServices01/clinic-crm/internal/httperr"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lookup"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/timeline"
)

// manualEventTypes are the timeline entries users may write directly.
// Everything else is produced by the operation that owns it.
var manualEventTypes = map[domain.EventType]bool{
	domain.EventContact:              true,
	domain.EventAppointmentScheduled: true,
	domain.EventAppointmentDone:      true,
	domain.EventFollowUpCreated:      true,
}

type TimelineInput struct {
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Payload     map[string]any `json:"payload"`
}

func (d *Directory) AddTimelineEvent(
	ctx context.Context,
	actor models.Actor,
	leadID string,
	in TimelineInput,
) (*models.LeadEvent, error) {

	typ := domain.EventType(strings.TrimSpace(in.Type))
	switch {
	case typ == domain.EventStatusChange:
		return nil, httperr.ErrValidation("status_change_not_allowed", "use a movimentação de etapa para alterar a etapa")
	case !domain.KnownType(string(typ)):
		return nil, httperr.ErrValidation("invalid_event_type", "tipo de evento inválido")
	case !manualEventTypes[typ]:
		return nil, httperr.ErrValidation("event_type_not_allowed", "tipo de evento gerado automaticamente")
	}

	payload, err := domain.DecodeMap(typ, in.Payload)
	if err != nil {
		return nil, httperr.ErrValidation("invalid_payload", err.Error())
	}

	var out models.LeadEvent
	res, err := d.store.RunInTransaction(ctx, func(tx store.Tx) error {
		l, err := lookup.Lead(tx, actor.ClinicID, leadID)
		if err != nil {
			return err
		}

		ev, err := timeline.Append(tx, actor, l.ID, payload, strings.TrimSpace(in.Description))
		if err != nil {
			return err
		}

		now := tx.Now()
		if typ == domain.EventContact {
			l.LastContactAt = &now
		}
		l.UpdatedAt = now
		l.UpdatedBy = actor.UserID
		if err := tx.SaveLead(l); err != nil {
			return err
		}

		out = ev
		return nil
	})
	if err != nil {
		return nil, err
	}

	timeline.Publish(d.pub, res)
	return &out, nil
}

// ListTimelineEvents returns the lead timeline newest first.
func (d *Directory) ListTimelineEvents(ctx context.Context, clinicID, leadID string) ([]models.LeadEvent, error) {
	var out []models.LeadEvent
	err := d.store.View(ctx, func(r store.Reader) error {
		if _, err := lookup.Lead(r, clinicID, leadID); err != nil {
			return err
		}
		events, err := r.ListLeadEvents(clinicID, leadID)
		if err != nil {
			return err
		}
		out = events
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type MessageInput struct {
	Channel string `json:"channel"`
	Body    string `json:"body"`
}

// LogMessage records an outbound message and its timeline entry.
func (d *Directory) LogMessage(
	ctx context.Context,
	actor models.Actor,
	leadID string,
	in MessageInput,
) (*models.MessageLog, error) {

	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, httperr.ErrValidation("body_required", "mensagem vazia")
	}
	channel := strings.TrimSpace(in.Channel)
	if channel == "" {
		channel = "whatsapp"
	}

	var out models.MessageLog
	res, err := d.store.RunInTransaction(ctx, func(tx store.Tx) error {
		l, err := lookup.Lead(tx, actor.ClinicID, leadID)
		if err != nil {
			return err
		}

		msg := models.MessageLog{
			ID:        tx.NewID(),
			ClinicID:  actor.ClinicID,
			LeadID:    l.ID,
			Channel:   channel,
			Body:      body,
			SentBy:    actor.UserID,
			CreatedAt: tx.Now(),
		}
		if err := tx.CreateMessageLog(msg); err != nil {
			return err
		}
		if _, err := timeline.Append(tx, actor, l.ID, domain.MessageSent{
			MessageID: msg.ID,
			Channel:   channel,
			Body:      body,
		}); err != nil {
			return err
		}

		now := tx.Now()
		l.LastContactAt = &now
		l.UpdatedAt = now
		l.UpdatedBy = actor.UserID
		if err := tx.SaveLead(l); err != nil {
			return err
		}

		out = msg
		return nil
	})
	if err != nil {
		return nil, err
	}

	timeline.Publish(d.pub, res)
	return &out, nil
}

// ListMessageLogs returns the lead's outbound messages newest first.
func (d *Directory) ListMessageLogs(ctx context.Context, clinicID, leadID string) ([]models.MessageLog, error) {
	var out []models.MessageLog
	err := d.store.View(ctx, func(r store.Reader) error {
		if _, err := lookup.Lead(r, clinicID, leadID); err != nil {
			return err
		}
		logs, err := r.ListMessageLogs(clinicID, leadID)
		if err != nil {
			return err
		}
		out = logs
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
