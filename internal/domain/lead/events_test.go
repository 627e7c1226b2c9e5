package lead

import (
	"testing"
	"time"

	"github.com/BruksfildServices01/clinic-crm/internal/models"
)

func TestEveryEventTypeDecodes(t *testing.T) {
	for _, et := range EventTypes() {
		p, err := DecodeMap(et, nil)
		if err != nil {
			t.Fatalf("decode %s: %v", et, err)
		}
		if p.Type() != et {
			t.Fatalf("factory for %s built %s", et, p.Type())
		}
		if p.Describe() == "" {
			t.Fatalf("%s has empty description", et)
		}
	}
}

func TestStatusChangeRoundTrip(t *testing.T) {
	from := StageNew
	payload, err := Encode(StatusChange{FromStage: &from, ToStage: StageLost, LossReason: "Valor alto"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if payload["toStage"] != StageLost || payload["fromStage"] != StageNew {
		t.Fatalf("unexpected payload %v", payload)
	}

	p, err := Decode(models.LeadEvent{Type: string(EventStatusChange), Payload: payload})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	sc, ok := p.(StatusChange)
	if !ok {
		t.Fatalf("expected StatusChange, got %T", p)
	}
	if sc.FromStage == nil || *sc.FromStage != StageNew || sc.LossReason != "Valor alto" {
		t.Fatalf("unexpected decoded %+v", sc)
	}
}

func TestCreationStatusChangeHasNullFrom(t *testing.T) {
	payload, err := Encode(StatusChange{ToStage: StageNew})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	v, ok := payload["fromStage"]
	if !ok || v != nil {
		t.Fatalf("fromStage should be present and null, got %v", payload)
	}
}

func TestFollowUpDueAtOptional(t *testing.T) {
	payload, _ := Encode(FollowUpCreated{Note: "ligar"})
	if _, ok := payload["dueAt"]; ok {
		t.Fatalf("dueAt should be omitted when unset")
	}
	due := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	payload, _ = Encode(FollowUpCreated{DueAt: &due})
	if payload["dueAt"] == nil {
		t.Fatalf("dueAt should be encoded")
	}
}

func TestDecodeUnknownType(t *testing.T) {
	if _, err := DecodeMap("nope", nil); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}
