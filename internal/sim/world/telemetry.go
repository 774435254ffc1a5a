package world

import (
	"encoding/json"

	"geocubes.app/internal/protocol"
	"geocubes.app/internal/telemetry"
)

// handleTelemetry buffers a diagnostic sample. Oversized payloads are
// rejected outright to bound memory; telemetry never reaches gameplay state
// and does not trigger a broadcast.
func (w *World) handleTelemetry(id string, raw []byte) {
	if len(raw) > w.cfg.TelemetryMaxBytes {
		if w.counters != nil {
			w.counters.RecordOversized()
		}
		return
	}
	if _, ok := w.clients[id]; !ok {
		w.dropIntent()
		return
	}
	var m protocol.TelemetryMsg
	if json.Unmarshal(raw, &m) != nil || m.Kind == "" {
		w.dropIntent()
		return
	}
	if w.tel != nil {
		w.tel.Add(telemetry.Event{At: w.clock(), ClientID: id, Kind: m.Kind, Data: m.Data})
		if w.counters != nil {
			w.counters.RecordEvent()
		}
	}
}
