// Package dispatch implements the checkpoint dispatcher: the sink all
// trackers funnel into. It applies the sampling gate, assembles the outbound
// wire record from an allow-listed key set, rate-limits and transmits it as a
// best-effort beacon, and mirrors it to any configured secondary sinks.
package dispatch

import "encoding/json"

// Record is the outbound wire record. Assembly is the allow-list: checkpoint
// data keys outside {target, source, cwv} never reach a field, so arbitrary
// tracker payloads cannot leak onto the wire.
type Record struct {
	Weight     int                `json:"weight"`
	ID         string             `json:"id"`
	Referer    string             `json:"referer"`
	Checkpoint string             `json:"checkpoint"`
	Timestamp  int64              `json:"timestamp"`
	Target     any                `json:"target,omitempty"`
	Source     any                `json:"source,omitempty"`
	CWV        map[string]float64 `json:"cwv,omitempty"`
}

// buildRecord extracts the allow-listed fields from checkpoint data.
func buildRecord(weight int, id, referer, kind string, data map[string]any, ts int64) Record {
	r := Record{
		Weight:     weight,
		ID:         id,
		Referer:    referer,
		Checkpoint: kind,
		Timestamp:  ts,
	}
	if v, ok := data["target"]; ok {
		r.Target = v
	}
	if v, ok := data["source"]; ok {
		r.Source = v
	}
	if v, ok := data["cwv"].(map[string]float64); ok {
		r.CWV = v
	}
	return r
}

// Marshal serialises the record for transmission.
func (r Record) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
