package dispatch

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/rumwatch/dbopen"
)

// archiveSchema is the DDL for the local record archive.
const archiveSchema = `
CREATE TABLE IF NOT EXISTS checkpoint_records (
    session_id TEXT NOT NULL,
    weight INTEGER NOT NULL,
    checkpoint TEXT NOT NULL,
    referer TEXT,
    timestamp INTEGER NOT NULL,
    payload TEXT NOT NULL,
    created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_records_session_time
    ON checkpoint_records(session_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_records_checkpoint
    ON checkpoint_records(checkpoint, timestamp DESC);
`

// Archive persists every mirrored record to a local SQLite database. Useful
// when the agent runs unattended and the collector may be unreachable.
type Archive struct {
	db *sql.DB
}

// NewArchive creates an Archive over db and applies the schema. The caller
// owns db and its driver registration.
func NewArchive(db *sql.DB) (*Archive, error) {
	if _, err := db.Exec(archiveSchema); err != nil {
		return nil, fmt.Errorf("archive: init schema: %w", err)
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Send(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("archive: marshal: %w", err)
	}
	// The collector intake may share this database; ride out BUSY.
	err = dbopen.RunTx(ctx, a.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO checkpoint_records (
				session_id, weight, checkpoint, referer, timestamp, payload
			) VALUES (?,?,?,?,?,?)`,
			rec.ID, rec.Weight, rec.Checkpoint, rec.Referer, rec.Timestamp, string(payload))
		return err
	})
	if err != nil {
		return fmt.Errorf("archive: insert: %w", err)
	}
	return nil
}

// Close is a no-op; the database handle belongs to the caller.
func (a *Archive) Close() error { return nil }
