package world

import (
	"geocubes.app/internal/geo"
	"geocubes.app/internal/protocol"
)

func (w *World) handleJoin(req JoinRequest) {
	idx := w.nextColor % len(w.cfg.Palette)
	w.nextColor++
	cs := &clientState{
		ID:       req.ID,
		ColorIdx: idx,
		Color:    w.cfg.Palette[idx],
		LastSeen: w.clock(),
		Out:      req.Out,
	}
	w.clients[req.ID] = cs
	w.record(AuditEvent{At: cs.LastSeen, Kind: EventJoin, ClientID: req.ID})

	// The fresh connection gets the snapshot straight away; everyone else
	// learns about it on the next broadcast.
	if req.Resp != nil {
		req.Resp <- w.marshalSnapshot()
	}
	w.markDirty()
}

func (w *World) handleLeave(id string) {
	if _, ok := w.clients[id]; !ok {
		return
	}
	delete(w.clients, id)
	w.record(AuditEvent{At: w.clock(), Kind: EventLeave, ClientID: id})
	w.markDirty()
}

func (w *World) handleGpsUpdate(id string, m protocol.GpsUpdateMsg) {
	cs, ok := w.clients[id]
	if !ok || !geo.Finite(m.Lat, m.Lon) {
		w.dropIntent()
		return
	}
	cs.Lat, cs.Lon = m.Lat, m.Lon
	cs.HasFix = true
	cs.LastSeen = w.clock()
	w.origin.SetIfUnset(m.Lat, m.Lon)
	w.markDirty()
}

func (w *World) handleOrientationUpdate(id string, m protocol.OrientationUpdateMsg) {
	cs, ok := w.clients[id]
	if !ok || !geo.Finite(m.Yaw) {
		w.dropIntent()
		return
	}
	// Stored raw; consumers display-normalize.
	cs.Yaw = m.Yaw
	cs.LastSeen = w.clock()
	w.markDirty()
}

func (w *World) handleToggleColor(id string) {
	cs, ok := w.clients[id]
	if !ok {
		w.dropIntent()
		return
	}
	cs.ColorIdx = (cs.ColorIdx + 1) % len(w.cfg.Palette)
	cs.Color = w.cfg.Palette[cs.ColorIdx]
	cs.LastSeen = w.clock()
	w.markDirty()
}
