package broadcast

import (
	"testing"

	"github.com/BruksfildServices01/clinic-crm/internal/models"
)

func TestRelaySkipsOwnOrigin(t *testing.T) {
	r := &recorder{}
	relay := NewRedisRelay(nil, "instance-a", r)

	ev := models.LeadEvent{ID: "e1", ClinicID: "c1", Type: "contact"}

	own, _ := encode("instance-a", ev)
	relay.handle(Channel("c1"), string(own))
	if r.count() != 0 {
		t.Fatalf("own events must not be relayed")
	}

	foreign, _ := encode("instance-b", ev)
	relay.handle(Channel("c1"), string(foreign))
	if r.count() != 1 || r.batches[0][0].ID != "e1" {
		t.Fatalf("foreign event not relayed: %+v", r.batches)
	}

	relay.handle(Channel("c2"), string(foreign))
	relay.handle(Channel("c1"), "{not json")
	if r.count() != 1 {
		t.Fatalf("mismatched or malformed payloads must be skipped")
	}
}

func TestChannelName(t *testing.T) {
	if got := Channel("abc"); got != "crm:clinic:abc" {
		t.Fatalf("channel = %s", got)
	}
}
