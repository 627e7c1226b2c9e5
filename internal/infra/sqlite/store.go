// Package sqlite keeps the in-memory store durable by snapshotting it into
// a single-file SQLite database after every committed transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/BruksfildServices01/clinic-crm/internal/infra/memory"
	"github.com/BruksfildServices01/clinic-crm/internal/models"
	"github.com/BruksfildServices01/clinic-crm/internal/store"
)

type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

var _ store.Store = (*Store)(nil)

// Open loads the snapshot at path, creating the database when missing.
func Open(path string, opts ...memory.Option) (*Store, error) {
	if path == "" {
		path = "clinic-crm.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		updated_at TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}

	s := &Store{Store: memory.New(opts...), db: db, path: path}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// RunInTransaction commits in memory and then writes the snapshot. The
// write ignores caller cancellation. A failed write is logged and the
// commit still stands; the next commit rewrites every bucket.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx store.Tx) error) (store.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if err := s.persist(context.WithoutCancel(ctx)); err != nil {
		log.Printf("[WARN] sqlite %s: persist snapshot: %v", s.path, err)
	}
	return res, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Path() string { return s.path }

// ===============================
// Buckets
// ===============================

// The engine models hide a few columns from the API (json:"-"); the row
// types below carry them into the snapshot.

type userRow struct {
	models.User
	PasswordHash string `json:"password_hash"`
}

type leadRow struct {
	models.Lead
	PhoneKey string `json:"phone_key"`
}

type stageRow struct {
	models.PipelineStage
	ClinicID string `json:"clinic_id"`
}

type bucket struct {
	name   string
	encode func(memory.Snapshot) any
	decode func([]byte, *memory.Snapshot) error
}

var buckets = []bucket{
	{"clinics",
		func(s memory.Snapshot) any { return s.Clinics },
		func(b []byte, s *memory.Snapshot) error { return json.Unmarshal(b, &s.Clinics) }},
	{"users",
		func(s memory.Snapshot) any {
			rows := make([]userRow, len(s.Users))
			for i, u := range s.Users {
				rows[i] = userRow{User: u, PasswordHash: u.PasswordHash}
			}
			return rows
		},
		func(b []byte, s *memory.Snapshot) error {
			var rows []userRow
			if err := json.Unmarshal(b, &rows); err != nil {
				return err
			}
			for _, r := range rows {
				r.User.PasswordHash = r.PasswordHash
				s.Users = append(s.Users, r.User)
			}
			return nil
		}},
	{"leads",
		func(s memory.Snapshot) any {
			rows := make([]leadRow, len(s.Leads))
			for i, l := range s.Leads {
				rows[i] = leadRow{Lead: l, PhoneKey: l.PhoneKey}
			}
			return rows
		},
		func(b []byte, s *memory.Snapshot) error {
			var rows []leadRow
			if err := json.Unmarshal(b, &rows); err != nil {
				return err
			}
			for _, r := range rows {
				r.Lead.PhoneKey = r.PhoneKey
				s.Leads = append(s.Leads, r.Lead)
			}
			return nil
		}},
	{"stages",
		func(s memory.Snapshot) any {
			rows := make([]stageRow, len(s.Stages))
			for i, st := range s.Stages {
				rows[i] = stageRow{PipelineStage: st, ClinicID: st.ClinicID}
			}
			return rows
		},
		func(b []byte, s *memory.Snapshot) error {
			var rows []stageRow
			if err := json.Unmarshal(b, &rows); err != nil {
				return err
			}
			for _, r := range rows {
				r.PipelineStage.ClinicID = r.ClinicID
				s.Stages = append(s.Stages, r.PipelineStage)
			}
			return nil
		}},
	{"events",
		func(s memory.Snapshot) any { return s.Events },
		func(b []byte, s *memory.Snapshot) error { return json.Unmarshal(b, &s.Events) }},
	{"budgets",
		func(s memory.Snapshot) any { return s.Budgets },
		func(b []byte, s *memory.Snapshot) error { return json.Unmarshal(b, &s.Budgets) }},
	{"tasks",
		func(s memory.Snapshot) any { return s.Tasks },
		func(b []byte, s *memory.Snapshot) error { return json.Unmarshal(b, &s.Tasks) }},
	{"tags",
		func(s memory.Snapshot) any { return s.Tags },
		func(b []byte, s *memory.Snapshot) error { return json.Unmarshal(b, &s.Tags) }},
	{"lead_tags",
		func(s memory.Snapshot) any { return s.LeadTags },
		func(b []byte, s *memory.Snapshot) error { return json.Unmarshal(b, &s.LeadTags) }},
	{"message_logs",
		func(s memory.Snapshot) any { return s.MessageLogs },
		func(b []byte, s *memory.Snapshot) error { return json.Unmarshal(b, &s.MessageLogs) }},
	{"patients",
		func(s memory.Snapshot) any { return s.Patients },
		func(b []byte, s *memory.Snapshot) error { return json.Unmarshal(b, &s.Patients) }},
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	raw := map[string][]byte{}
	for rows.Next() {
		var (
			name    string
			payload []byte
		)
		if err := rows.Scan(&name, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		raw[name] = payload
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	var snap memory.Snapshot
	for _, b := range buckets {
		payload, ok := raw[b.name]
		if !ok {
			continue
		}
		if err := b.decode(payload, &snap); err != nil {
			return fmt.Errorf("decode %s: %w", b.name, err)
		}
	}
	s.ImportState(snap)
	return nil
}

func (s *Store) persist(ctx context.Context) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.ExportState()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	stamp := time.Now().UTC().Format(time.RFC3339Nano)
	for _, b := range buckets {
		data, err := json.Marshal(b.encode(snap))
		if err != nil {
			return fmt.Errorf("encode %s: %w", b.name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO state(bucket, payload, updated_at) VALUES(?, ?, ?)
			 ON CONFLICT(bucket) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
			b.name, data, stamp,
		); err != nil {
			return fmt.Errorf("upsert %s: %w", b.name, err)
		}
	}
	return tx.Commit()
}
