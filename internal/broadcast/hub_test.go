package broadcast

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BruksfildServices01/clinic-crm/internal/models"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubDeliversOnlyToClinicClients(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, r.URL.Query().Get("clinic"))
	}))
	defer srv.Close()

	base := "ws" + strings.TrimPrefix(srv.URL, "http")
	mine, _, err := websocket.DefaultDialer.Dial(base+"?clinic=c1", nil)
	if err != nil {
		t.Fatalf("dial c1: %v", err)
	}
	defer mine.Close()
	other, _, err := websocket.DefaultDialer.Dial(base+"?clinic=c2", nil)
	if err != nil {
		t.Fatalf("dial c2: %v", err)
	}
	defer other.Close()

	waitFor(t, func() bool { return hub.Count("c1") == 1 && hub.Count("c2") == 1 })

	if err := hub.Deliver([]models.LeadEvent{{ID: "e1", ClinicID: "c1", LeadID: "l1", Type: "contact"}}); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	var msg Message
	_ = mine.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := mine.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "lead_event" || msg.Event.ID != "e1" {
		t.Fatalf("unexpected message %+v", msg)
	}

	_ = other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if err := other.ReadJSON(&msg); err == nil {
		t.Fatalf("other clinic received %+v", msg)
	}

	mine.Close()
	waitFor(t, func() bool { return hub.Count("c1") == 0 })
}

func TestHubRejectsUnknownOrigin(t *testing.T) {
	hub := NewHub([]string{"https://app.clinica.com"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, "c1")
	}))
	defer srv.Close()

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %+v", resp)
	}
}
