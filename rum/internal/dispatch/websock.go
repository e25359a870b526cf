package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Websocket streams records to a websocket endpoint, one JSON message per
// record. Useful for live dev tooling watching a session. The connection is
// dialled lazily and re-dialled after a write failure.
type Websocket struct {
	url    string
	logger *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebsocket creates a Websocket sink targeting url (ws:// or wss://).
func NewWebsocket(url string, logger *slog.Logger) *Websocket {
	if logger == nil {
		logger = slog.Default()
	}
	return &Websocket{url: url, logger: logger}
}

func (w *Websocket) Send(ctx context.Context, rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		if err := w.dial(ctx); err != nil {
			return fmt.Errorf("websock: dial %s: %w", w.url, err)
		}
	}

	w.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := w.conn.WriteJSON(rec); err != nil {
		// Drop the connection; the next Send re-dials.
		w.conn.Close()
		w.conn = nil
		return fmt.Errorf("websock: write: %w", err)
	}
	return nil
}

func (w *Websocket) dial(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return err
	}
	w.conn = conn
	w.logger.Debug("websock: connected", "url", w.url)
	return nil
}

func (w *Websocket) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return nil
	}
	w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := w.conn.Close()
	w.conn = nil
	return err
}
