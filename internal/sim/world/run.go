package world

import (
	"context"
	"encoding/json"

	"geocubes.app/internal/protocol"
)

// Run owns all world state until the context is cancelled or Stop is called.
func (w *World) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			w.handleJoin(req)
		case id := <-w.leave:
			w.handleLeave(id)
		case env := <-w.inbox:
			w.handleIntent(env)
		case req := <-w.stateReq:
			req.Resp <- w.marshalSnapshot()
		case <-w.timer.C:
			w.timerArmed = false
			w.emit()
		}
	}
}

// handleIntent routes one raw client message. Malformed input is dropped
// silently: GPS and sensor noise routinely produce transient garbage that
// must not terminate the connection.
func (w *World) handleIntent(env Envelope) {
	base, err := protocol.DecodeBase(env.Raw)
	if err != nil {
		w.dropIntent()
		return
	}
	switch base.Type {
	case protocol.TypeGpsUpdate:
		var m protocol.GpsUpdateMsg
		if json.Unmarshal(env.Raw, &m) != nil {
			w.dropIntent()
			return
		}
		w.handleGpsUpdate(env.ClientID, m)
	case protocol.TypeOrientationUpdate:
		var m protocol.OrientationUpdateMsg
		if json.Unmarshal(env.Raw, &m) != nil {
			w.dropIntent()
			return
		}
		w.handleOrientationUpdate(env.ClientID, m)
	case protocol.TypeDropCube:
		var m protocol.DropCubeMsg
		if json.Unmarshal(env.Raw, &m) != nil {
			w.dropIntent()
			return
		}
		w.handleDropCube(env.ClientID, m)
	case protocol.TypeDeleteCube:
		var m protocol.DeleteCubeMsg
		if json.Unmarshal(env.Raw, &m) != nil {
			w.dropIntent()
			return
		}
		w.handleDeleteCube(env.ClientID, m)
	case protocol.TypeToggleColor:
		w.handleToggleColor(env.ClientID)
	case protocol.TypeTelemetry:
		w.handleTelemetry(env.ClientID, env.Raw)
	default:
		w.dropIntent()
	}
}

func (w *World) dropIntent() {
	if w.counters != nil {
		w.counters.RecordDroppedIntent()
	}
}

// markDirty notes a mutation and decides when the next broadcast happens:
// immediately if the throttle window has passed, otherwise via a single
// pending timer covering the remainder of the window. Bursts of mutations
// inside one window coalesce into one emission.
func (w *World) markDirty() {
	w.dirty = true
	elapsed := w.clock().Sub(w.lastEmit)
	if elapsed >= w.cfg.BroadcastMinInterval {
		w.emit()
		return
	}
	if !w.timerArmed {
		w.timer.Reset(w.cfg.BroadcastMinInterval - elapsed)
		w.timerArmed = true
	}
}

// emit broadcasts the current snapshot to every connection.
func (w *World) emit() {
	if !w.dirty {
		return
	}
	b := w.marshalSnapshot()
	if b == nil {
		return
	}
	for _, cs := range w.clients {
		sendLatest(cs.Out, b)
	}
	w.dirty = false
	w.lastEmit = w.clock()
	if w.counters != nil {
		w.counters.RecordBroadcast(len(b))
	}
}
