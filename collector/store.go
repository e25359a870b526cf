// Package collector implements the receiving side of the beacon protocol: an
// HTTP intake that accepts checkpoint records on /.rum/<weight> and persists
// them to SQLite for later analysis.
package collector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazyhaar/rumwatch/dbopen"
	"github.com/hazyhaar/rumwatch/idgen"
)

// Schema contains the DDL for the collector tables.
const Schema = `
CREATE TABLE IF NOT EXISTS received_records (
    intake_id TEXT PRIMARY KEY,
    weight INTEGER NOT NULL,
    session_id TEXT NOT NULL,
    checkpoint TEXT NOT NULL,
    referer TEXT,
    timestamp INTEGER NOT NULL,
    remote_addr TEXT,
    payload TEXT NOT NULL,
    received_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_received_session
    ON received_records(session_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_received_checkpoint
    ON received_records(checkpoint, received_at DESC);
`

// StoredRecord is one persisted intake row.
type StoredRecord struct {
	IntakeID   string          `json:"intake_id"`
	Weight     int             `json:"weight"`
	SessionID  string          `json:"session_id"`
	Checkpoint string          `json:"checkpoint"`
	Referer    string          `json:"referer"`
	Timestamp  int64           `json:"timestamp"`
	RemoteAddr string          `json:"remote_addr,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt int64           `json:"received_at"`
}

// Store persists intake records.
type Store struct {
	db    *sql.DB
	newID idgen.Generator
}

// NewStore creates a Store over db and applies the schema.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("collector: init schema: %w", err)
	}
	return &Store{
		db:    db,
		newID: idgen.Prefixed("rcv_", idgen.Default),
	}, nil
}

// wireRecord is the subset of the beacon payload the store indexes.
type wireRecord struct {
	ID         string `json:"id"`
	Checkpoint string `json:"checkpoint"`
	Referer    string `json:"referer"`
	Timestamp  int64  `json:"timestamp"`
}

// Insert parses and persists one beacon payload. The raw payload is kept
// verbatim; only the indexed fields are extracted.
func (s *Store) Insert(ctx context.Context, weight int, remoteAddr string, payload []byte) (string, error) {
	var wire wireRecord
	if err := json.Unmarshal(payload, &wire); err != nil {
		return "", fmt.Errorf("collector: parse payload: %w", err)
	}
	if wire.ID == "" || wire.Checkpoint == "" {
		return "", fmt.Errorf("collector: payload missing id or checkpoint")
	}

	intakeID := s.newID()
	_, err := dbopen.Exec(ctx, s.db, `
		INSERT INTO received_records (
			intake_id, weight, session_id, checkpoint, referer,
			timestamp, remote_addr, payload, received_at
		) VALUES (?,?,?,?,?,?,?,?,?)`,
		intakeID, weight, wire.ID, wire.Checkpoint, wire.Referer,
		wire.Timestamp, remoteAddr, string(payload), time.Now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("collector: insert: %w", err)
	}
	return intakeID, nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]StoredRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT intake_id, weight, session_id, checkpoint, referer,
		       timestamp, remote_addr, payload, received_at
		FROM received_records
		ORDER BY received_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("collector: recent: %w", err)
	}
	defer rows.Close()

	var out []StoredRecord
	for rows.Next() {
		var r StoredRecord
		var payload string
		if err := rows.Scan(&r.IntakeID, &r.Weight, &r.SessionID, &r.Checkpoint,
			&r.Referer, &r.Timestamp, &r.RemoteAddr, &payload, &r.ReceivedAt); err != nil {
			return nil, fmt.Errorf("collector: scan: %w", err)
		}
		r.Payload = json.RawMessage(payload)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountByKind returns the number of stored records per checkpoint kind.
func (s *Store) CountByKind(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT checkpoint, COUNT(*) FROM received_records GROUP BY checkpoint`)
	if err != nil {
		return nil, fmt.Errorf("collector: count: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("collector: scan count: %w", err)
		}
		out[kind] = n
	}
	return out, rows.Err()
}
