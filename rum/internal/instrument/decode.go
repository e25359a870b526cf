package instrument

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// relayMessage is the envelope the page script sends through the binding.
// Exactly one of the payload fields is set, selected by Source.
type relayMessage struct {
	Source string `json:"source"`

	Intersections []IntersectionEntry `json:"intersections,omitempty"`
	LoadStatus    []LoadStatusEntry   `json:"load_status,omitempty"`
	Resources     []ResourceEntry     `json:"resources,omitempty"`
	Signal        *LifecycleSignal    `json:"signal,omitempty"`
	Vital         *VitalEntry         `json:"vital,omitempty"`
	Interaction   *InteractionEntry   `json:"interaction,omitempty"`
	Page          *PageInfo           `json:"page,omitempty"`
}

// dispatchPayload decodes one binding payload and routes it to the matching
// source channel. Unknown sources are ignored; a malformed payload is an
// error for the caller to log, never to propagate to the page. Sends respect
// ctx so a listener blocked on a full channel unblocks at shutdown instead
// of racing the channel close.
func dispatchPayload(ctx context.Context, payload []byte, src *Sources, logger *slog.Logger) error {
	var msg relayMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("instrument: decode relay payload: %w", err)
	}

	now := time.Now().UnixMilli()

	switch msg.Source {
	case "intersection":
		if len(msg.Intersections) == 0 {
			return nil
		}
		for i := range msg.Intersections {
			if msg.Intersections[i].At == 0 {
				msg.Intersections[i].At = now
			}
		}
		select {
		case src.Intersections <- msg.Intersections:
		case <-ctx.Done():
		}

	case "loadstatus":
		if len(msg.LoadStatus) == 0 {
			return nil
		}
		for i := range msg.LoadStatus {
			if msg.LoadStatus[i].At == 0 {
				msg.LoadStatus[i].At = now
			}
		}
		select {
		case src.LoadStatus <- msg.LoadStatus:
		case <-ctx.Done():
		}

	case "resource":
		if len(msg.Resources) == 0 {
			return nil
		}
		for i := range msg.Resources {
			if msg.Resources[i].At == 0 {
				msg.Resources[i].At = now
			}
		}
		select {
		case src.Resources <- msg.Resources:
		case <-ctx.Done():
		}

	case "lifecycle":
		if msg.Signal == nil {
			return nil
		}
		if msg.Signal.At == 0 {
			msg.Signal.At = now
		}
		select {
		case src.Lifecycle <- *msg.Signal:
		case <-ctx.Done():
		}

	case "vital":
		if msg.Vital == nil {
			return nil
		}
		if msg.Vital.At == 0 {
			msg.Vital.At = now
		}
		select {
		case src.Vitals <- *msg.Vital:
		case <-ctx.Done():
		}

	case "interaction":
		if msg.Interaction == nil {
			return nil
		}
		if msg.Interaction.At == 0 {
			msg.Interaction.At = now
		}
		select {
		case src.Interactions <- *msg.Interaction:
		case <-ctx.Done():
		}

	case "page":
		if msg.Page == nil {
			return nil
		}
		select {
		case src.Page <- *msg.Page:
		default:
			// Page info is relayed once; a duplicate (SPA re-init) is dropped.
			logger.Debug("instrument: duplicate page info dropped")
		}

	default:
		logger.Debug("instrument: unknown relay source", "source", msg.Source)
	}
	return nil
}
