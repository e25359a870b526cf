package dispatch

import "context"

// RecordFunc is called for each record (in-process, zero serialisation).
type RecordFunc func(ctx context.Context, rec Record) error

// Callback delivers records via Go function calls. When the agent and a
// consumer live in the same binary, records arrive as in-memory function
// calls with zero serialisation overhead.
type Callback struct {
	onRecord RecordFunc
}

// NewCallback creates a Callback sink. A nil handler is allowed.
func NewCallback(onRecord RecordFunc) *Callback {
	return &Callback{onRecord: onRecord}
}

func (c *Callback) Send(ctx context.Context, rec Record) error {
	if c.onRecord != nil {
		return c.onRecord(ctx, rec)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
