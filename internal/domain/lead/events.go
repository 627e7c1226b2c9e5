package lead

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/BruksfildServices01/clinic-crm/internal/models"
)

type EventType string

const (
	EventStatusChange         EventType = "status_change"
	EventContact              EventType = "contact"
	EventMessageSent          EventType = "message_sent"
	EventBudgetCreated        EventType = "budget_created"
	EventBudgetPresented      EventType = "budget_presented"
	EventBudgetApproved       EventType = "budget_approved"
	EventBudgetRejected       EventType = "budget_rejected"
	EventBudgetFollowUp       EventType = "budget_em_analise_followup"
	EventAppointmentScheduled EventType = "appointment_scheduled"
	EventAppointmentDone      EventType = "appointment_done"
	EventConvertedToPatient   EventType = "converted_to_patient"
	EventTagAdded             EventType = "tag_added"
	EventFollowUpCreated      EventType = "follow_up_created"
	EventMetaLeadReceived     EventType = "meta_lead_received"
	EventMetaLeadUpdated      EventType = "meta_lead_updated"
	EventTaskCreated          EventType = "task_created"
	EventTaskDone             EventType = "task_done"
)

// Payload is one variant of the timeline union. Each event type has
// exactly one payload struct.
type Payload interface {
	Type() EventType
	Describe() string
}

// ===============================
// Variants
// ===============================

type StatusChange struct {
	FromStage  *string `json:"fromStage"`
	ToStage    string  `json:"toStage"`
	LossReason string  `json:"lossReason,omitempty"`
}

func (StatusChange) Type() EventType { return EventStatusChange }
func (p StatusChange) Describe() string {
	if p.FromStage == nil {
		return "Lead criado na etapa " + p.ToStage
	}
	d := fmt.Sprintf("Etapa alterada de %s para %s", *p.FromStage, p.ToStage)
	if p.LossReason != "" {
		d += " (motivo: " + p.LossReason + ")"
	}
	return d
}

type Contact struct {
	Channel string `json:"channel,omitempty"`
	Note    string `json:"note,omitempty"`
}

func (Contact) Type() EventType { return EventContact }
func (p Contact) Describe() string {
	if p.Channel != "" {
		return "Contato realizado via " + p.Channel
	}
	return "Contato realizado"
}

type MessageSent struct {
	MessageID string `json:"messageId"`
	Channel   string `json:"channel"`
	Body      string `json:"body"`
}

func (MessageSent) Type() EventType { return EventMessageSent }
func (p MessageSent) Describe() string {
	return "Mensagem enviada via " + p.Channel
}

type BudgetCreated struct {
	BudgetID string  `json:"budgetId"`
	Title    string  `json:"title"`
	Total    float64 `json:"total"`
}

func (BudgetCreated) Type() EventType { return EventBudgetCreated }
func (p BudgetCreated) Describe() string {
	return fmt.Sprintf("Orçamento \"%s\" criado (R$ %.2f)", p.Title, p.Total)
}

type BudgetPresented struct {
	BudgetID string `json:"budgetId"`
	Title    string `json:"title"`
}

func (BudgetPresented) Type() EventType { return EventBudgetPresented }
func (p BudgetPresented) Describe() string {
	return fmt.Sprintf("Orçamento \"%s\" apresentado", p.Title)
}

type BudgetApproved struct {
	BudgetID  string  `json:"budgetId"`
	PatientID string  `json:"patientId"`
	Total     float64 `json:"total"`
}

func (BudgetApproved) Type() EventType { return EventBudgetApproved }
func (p BudgetApproved) Describe() string {
	return fmt.Sprintf("Orçamento aprovado (R$ %.2f)", p.Total)
}

type BudgetRejected struct {
	BudgetID string `json:"budgetId"`
	Reason   string `json:"reason"`
}

func (BudgetRejected) Type() EventType { return EventBudgetRejected }
func (p BudgetRejected) Describe() string {
	return "Orçamento reprovado: " + p.Reason
}

type BudgetFollowUp struct {
	BudgetID string    `json:"budgetId"`
	TaskID   string    `json:"taskId"`
	DueAt    time.Time `json:"dueAt"`
}

func (BudgetFollowUp) Type() EventType { return EventBudgetFollowUp }
func (p BudgetFollowUp) Describe() string {
	return "Follow-up de orçamento em análise agendado para " + p.DueAt.Format("02/01/2006")
}

type AppointmentScheduled struct {
	AppointmentID string `json:"appointmentId,omitempty"`
	TaskID        string `json:"taskId,omitempty"`
	Note          string `json:"note,omitempty"`
}

func (AppointmentScheduled) Type() EventType  { return EventAppointmentScheduled }
func (AppointmentScheduled) Describe() string { return "Consulta agendada" }

type AppointmentDone struct {
	AppointmentID string `json:"appointmentId,omitempty"`
	Note          string `json:"note,omitempty"`
}

func (AppointmentDone) Type() EventType  { return EventAppointmentDone }
func (AppointmentDone) Describe() string { return "Consulta realizada" }

type ConvertedToPatient struct {
	PatientID string `json:"patientId"`
}

func (ConvertedToPatient) Type() EventType  { return EventConvertedToPatient }
func (ConvertedToPatient) Describe() string { return "Lead convertido em paciente" }

type TagAdded struct {
	TagID    string `json:"tagId"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

func (TagAdded) Type() EventType    { return EventTagAdded }
func (p TagAdded) Describe() string { return "Tag adicionada: " + p.Name }

type FollowUpCreated struct {
	TaskID string     `json:"taskId,omitempty"`
	Title  string     `json:"title,omitempty"`
	DueAt  *time.Time `json:"dueAt,omitempty"`
	Note   string     `json:"note,omitempty"`
}

func (FollowUpCreated) Type() EventType { return EventFollowUpCreated }
func (p FollowUpCreated) Describe() string {
	if p.Title != "" {
		return "Follow-up criado: " + p.Title
	}
	return "Follow-up criado"
}

// AdsLead is the normalized form of an inbound lead-ads submission.
type AdsLead struct {
	LeadgenID    string            `json:"leadgenId,omitempty"`
	FormID       string            `json:"formId,omitempty"`
	AdID         string            `json:"adId,omitempty"`
	CampaignName string            `json:"campaignName,omitempty"`
	Name         string            `json:"name,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	Email        string            `json:"email,omitempty"`
	Interest     string            `json:"interest,omitempty"`
	Fields       map[string]string `json:"fields,omitempty"`
}

type MetaLeadReceived struct {
	AdsLead
}

func (MetaLeadReceived) Type() EventType { return EventMetaLeadReceived }
func (p MetaLeadReceived) Describe() string {
	if p.CampaignName != "" {
		return "Lead recebido do Meta Ads (" + p.CampaignName + ")"
	}
	return "Lead recebido do Meta Ads"
}

type MetaLeadUpdated struct {
	AdsLead
}

func (MetaLeadUpdated) Type() EventType { return EventMetaLeadUpdated }
func (MetaLeadUpdated) Describe() string {
	return "Lead atualizado por novo envio do Meta Ads"
}

type TaskCreated struct {
	TaskID string    `json:"taskId"`
	Title  string    `json:"title"`
	DueAt  time.Time `json:"dueAt"`
}

func (TaskCreated) Type() EventType { return EventTaskCreated }
func (p TaskCreated) Describe() string {
	return fmt.Sprintf("Tarefa \"%s\" criada para %s", p.Title, p.DueAt.Format("02/01/2006 15:04"))
}

type TaskDone struct {
	TaskID string `json:"taskId"`
	Title  string `json:"title"`
}

func (TaskDone) Type() EventType    { return EventTaskDone }
func (p TaskDone) Describe() string { return "Tarefa concluída: " + p.Title }

// ===============================
// Encoding
// ===============================

var factories = map[EventType]func() Payload{
	EventStatusChange:         func() Payload { return &StatusChange{} },
	EventContact:              func() Payload { return &Contact{} },
	EventMessageSent:          func() Payload { return &MessageSent{} },
	EventBudgetCreated:        func() Payload { return &BudgetCreated{} },
	EventBudgetPresented:      func() Payload { return &BudgetPresented{} },
	EventBudgetApproved:       func() Payload { return &BudgetApproved{} },
	EventBudgetRejected:       func() Payload { return &BudgetRejected{} },
	EventBudgetFollowUp:       func() Payload { return &BudgetFollowUp{} },
	EventAppointmentScheduled: func() Payload { return &AppointmentScheduled{} },
	EventAppointmentDone:      func() Payload { return &AppointmentDone{} },
	EventConvertedToPatient:   func() Payload { return &ConvertedToPatient{} },
	EventTagAdded:             func() Payload { return &TagAdded{} },
	EventFollowUpCreated:      func() Payload { return &FollowUpCreated{} },
	EventMetaLeadReceived:     func() Payload { return &MetaLeadReceived{} },
	EventMetaLeadUpdated:      func() Payload { return &MetaLeadUpdated{} },
	EventTaskCreated:          func() Payload { return &TaskCreated{} },
	EventTaskDone:             func() Payload { return &TaskDone{} },
}

// EventTypes lists every known timeline event type.
func EventTypes() []EventType {
	out := make([]EventType, 0, len(factories))
	for t := range factories {
		out = append(out, t)
	}
	return out
}

func KnownType(t string) bool {
	_, ok := factories[EventType(t)]
	return ok
}

// Encode flattens a payload into the stored map form.
func Encode(p Payload) (map[string]any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeMap builds the typed payload for t from a loosely-typed map.
func DecodeMap(t EventType, data map[string]any) (Payload, error) {
	mk, ok := factories[t]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", t)
	}
	p := mk()
	if len(data) > 0 {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, err
		}
	}
	return deref(p), nil
}

// Decode returns the typed payload of a stored event.
func Decode(ev models.LeadEvent) (Payload, error) {
	return DecodeMap(EventType(ev.Type), ev.Payload)
}

func deref(p Payload) Payload {
	switch v := p.(type) {
	case *StatusChange:
		return *v
	case *Contact:
		return *v
	case *MessageSent:
		return *v
	case *BudgetCreated:
		return *v
	case *BudgetPresented:
		return *v
	case *BudgetApproved:
		return *v
	case *BudgetRejected:
		return *v
	case *BudgetFollowUp:
		return *v
	case *AppointmentScheduled:
		return *v
	case *AppointmentDone:
		return *v
	case *ConvertedToPatient:
		return *v
	case *TagAdded:
		return *v
	case *FollowUpCreated:
		return *v
	case *MetaLeadReceived:
		return *v
	case *MetaLeadUpdated:
		return *v
	case *TaskCreated:
		return *v
	case *TaskDone:
		return *v
	}
	return p
}
