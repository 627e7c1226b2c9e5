package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BruksfildServices01/clinic-crm/internal/store"
	"github.com/BruksfildServices01/clinic-crm/internal/usecase/lead"
)

// Uploader stores an exported object and returns its location.
type Uploader interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

type Bundle struct {
	ClinicID    string          `json:"clinic_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	From        *time.Time      `json:"from,omitempty"`
	To          *time.Time      `json:"to,omitempty"`
	Funnel      Funnel          `json:"funnel"`
	Latency     Latency         `json:"latency"`
	Owners      []OwnerStats    `json:"owners"`
	Stages      []StageDuration `json:"stages"`
}

type Exporter struct {
	agg      *Aggregator
	uploader Uploader
}

func NewExporter(agg *Aggregator, uploader Uploader) *Exporter {
	return &Exporter{agg: agg, uploader: uploader}
}

// Enabled reports whether an object store is configured.
func (e *Exporter) Enabled() bool {
	return e != nil && e.uploader != nil
}

// Build computes every report from one consistent snapshot.
func (a *Aggregator) Build(ctx context.Context, clinicID string, rng Range) (Bundle, error) {
	b := Bundle{ClinicID: clinicID, GeneratedAt: a.now().UTC(), From: rng.From, To: rng.To}
	err := a.store.View(ctx, func(r store.Reader) error {
		reg, err := lead.Registry(r, clinicID)
		if err != nil {
			return err
		}
		leads, err := leadsIn(r, clinicID, rng)
		if err != nil {
			return err
		}
		byLead, err := eventsByLead(r, clinicID)
		if err != nil {
			return err
		}
		users, err := r.ListUsers(clinicID)
		if err != nil {
			return err
		}
		names := map[string]string{}
		for _, u := range users {
			names[u.ID] = u.Name
		}

		b.Funnel = funnelOf(reg, leads)
		b.Latency = latencyOf(leads, byLead)
		b.Owners = ownersOf(leads, names)
		b.Stages = timeInStageOf(reg, byLead)
		return nil
	})
	return b, err
}

// Export uploads the bundle as reports/<clinic>/<timestamp>.json.
func (e *Exporter) Export(ctx context.Context, clinicID string, rng Range) (string, error) {
	if !e.Enabled() {
		return "", fmt.Errorf("report export: no object store configured")
	}

	bundle, err := e.agg.Build(ctx, clinicID, rng)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(bundle); err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	key := fmt.Sprintf("reports/%s/%s.json", clinicID, bundle.GeneratedAt.Format("20060102T150405Z"))
	return e.uploader.Put(ctx, key, buf.Bytes(), "application/json")
}
