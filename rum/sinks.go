package rum

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/rumwatch/dbopen"
	"github.com/hazyhaar/rumwatch/rum/internal/dispatch"
)

// Sink mirrors dispatched records to a local backend.
type Sink = dispatch.Sink

// Record is the outbound wire record.
type Record = dispatch.Record

// RecordFunc is an in-process record handler.
type RecordFunc = dispatch.RecordFunc

// Transport carries serialised records to the collector.
type Transport = dispatch.Transport

// Stats are the dispatcher counters.
type Stats = dispatch.Stats

// NewStdoutSink creates a JSON-lines sink. A nil writer means os.Stdout.
func NewStdoutSink(w io.Writer) Sink {
	return dispatch.NewStdout(w)
}

// NewWebsocketSink streams records to a websocket endpoint.
func NewWebsocketSink(url string, logger *slog.Logger) Sink {
	return dispatch.NewWebsocket(url, logger)
}

// NewCallbackSink delivers records via in-process function calls.
func NewCallbackSink(fn RecordFunc) Sink {
	return dispatch.NewCallback(fn)
}

// NewArchiveSink persists records to a local SQLite database at path.
// The returned sink owns the database handle.
func NewArchiveSink(path string) (Sink, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll())
	if err != nil {
		return nil, fmt.Errorf("rum: open archive: %w", err)
	}
	a, err := dispatch.NewArchive(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("rum: %w", err)
	}
	return &ownedArchive{Archive: a, close: db.Close}, nil
}

type ownedArchive struct {
	*dispatch.Archive
	close func() error
}

func (o *ownedArchive) Close() error { return o.close() }

// BuildSinks constructs the mirror sinks from configuration.
func BuildSinks(cfgs []SinkConfig, logger *slog.Logger) ([]Sink, error) {
	var sinks []Sink
	for _, c := range cfgs {
		switch c.Type {
		case "stdout":
			sinks = append(sinks, NewStdoutSink(nil))
		case "websocket":
			sinks = append(sinks, NewWebsocketSink(c.URL, logger))
		case "archive":
			s, err := NewArchiveSink(c.Path)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, s)
		default:
			return nil, fmt.Errorf("rum: unknown sink type %q", c.Type)
		}
	}
	return sinks, nil
}
