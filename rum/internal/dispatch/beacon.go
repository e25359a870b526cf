package dispatch

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Transport carries one serialised record to the collector endpoint. typed
// selects the JSON content type; cross-origin endpoints get the raw payload
// with a looser type instead.
type Transport interface {
	Send(ctx context.Context, endpoint string, payload []byte, typed bool)
}

// Beacon is the production transport: a non-blocking, fire-and-forget POST.
// Delivery failures are logged at debug and never retried — every checkpoint
// is sent at most once, best effort.
type Beacon struct {
	client *http.Client
	logger *slog.Logger
}

// NewBeacon creates a Beacon transport.
func NewBeacon(logger *slog.Logger) *Beacon {
	if logger == nil {
		logger = slog.Default()
	}
	return &Beacon{
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

func (b *Beacon) Send(ctx context.Context, endpoint string, payload []byte, typed bool) {
	// Detach from the caller: dispatch must return immediately and an agent
	// shutdown should still let an in-flight leave beacon complete.
	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(sendCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			b.logger.Debug("beacon: new request", "error", err)
			return
		}
		if typed {
			req.Header.Set("Content-Type", "application/json")
		} else {
			req.Header.Set("Content-Type", "text/plain;charset=UTF-8")
		}

		resp, err := b.client.Do(req)
		if err != nil {
			b.logger.Debug("beacon: send failed", "endpoint", endpoint, "error", err)
			return
		}
		resp.Body.Close()
	}()
}
