package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Writers contend on the archive and collector databases (the dispatcher's
// archive sink and the intake handler both insert continuously), so every
// write path retries BUSY a few times with a short backoff before giving up.
const busyRetries = 3

// IsBusy reports whether err indicates an SQLite BUSY condition: SQLITE_BUSY
// itself or the locked-database message variants.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// RunTx executes fn inside a transaction, retrying the whole transaction on
// BUSY with 100/200/300 ms backoff. fn must be safe to re-run.
func RunTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	var err error
	for attempt := 1; attempt <= busyRetries; attempt++ {
		if err = runTxOnce(ctx, db, fn); err == nil || !IsBusy(err) {
			return err
		}
		if attempt < busyRetries {
			if werr := backoff(ctx, attempt); werr != nil {
				return fmt.Errorf("dbopen: retry wait: %w", werr)
			}
		}
	}
	return fmt.Errorf("dbopen: tx still busy after %d attempts: %w", busyRetries, err)
}

func runTxOnce(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dbopen: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("dbopen: commit: %w", err)
	}
	return nil
}

// Exec executes a single statement with the same BUSY retry policy as RunTx.
// The collector's intake insert uses this; multi-statement writes go through
// RunTx.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	var err error
	for attempt := 1; attempt <= busyRetries; attempt++ {
		var result sql.Result
		if result, err = db.ExecContext(ctx, query, args...); err == nil || !IsBusy(err) {
			return result, err
		}
		if attempt < busyRetries {
			if werr := backoff(ctx, attempt); werr != nil {
				return nil, fmt.Errorf("dbopen: retry wait: %w", werr)
			}
		}
	}
	return nil, fmt.Errorf("dbopen: exec still busy after %d attempts: %w", busyRetries, err)
}

func backoff(ctx context.Context, attempt int) error {
	t := time.NewTimer(time.Duration(100*attempt) * time.Millisecond)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
