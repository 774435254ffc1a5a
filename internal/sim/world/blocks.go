package world

import (
	"encoding/json"

	"geocubes.app/internal/geo"
	"geocubes.app/internal/protocol"
)

func (w *World) handleDropCube(id string, m protocol.DropCubeMsg) {
	cs, ok := w.clients[id]
	if !ok || !geo.Finite(m.Lat, m.Lon) {
		w.dropIntent()
		return
	}
	// A drop can establish the origin when no GPS fix preceded it.
	w.origin.SetIfUnset(m.Lat, m.Lon)

	w.nextBlockID++
	blk := protocol.DroppedBlock{
		ID:    w.nextBlockID,
		Lat:   m.Lat,
		Lon:   m.Lon,
		Color: cs.Color,
	}
	w.blocks = append(w.blocks, blk)
	cs.LastSeen = w.clock()
	w.record(AuditEvent{At: cs.LastSeen, Kind: EventDrop, ClientID: id, BlockID: blk.ID, Lat: blk.Lat, Lon: blk.Lon})
	w.markDirty()
}

func (w *World) handleDeleteCube(id string, m protocol.DeleteCubeMsg) {
	cs, ok := w.clients[id]
	if !ok {
		w.dropIntent()
		return
	}
	cs.LastSeen = w.clock()

	idx, res := w.evaluateDelete(cs, m.BlockID)
	if res.OK {
		blk := w.blocks[idx]
		w.blocks = append(w.blocks[:idx], w.blocks[idx+1:]...)
		cs.DeletedCubes++
		w.record(AuditEvent{At: cs.LastSeen, Kind: EventDelete, ClientID: id, BlockID: blk.ID, Lat: blk.Lat, Lon: blk.Lon})
		w.sendTo(cs, protocol.MyCountersMsg{Type: protocol.TypeMyCounters, DeletedCubes: cs.DeletedCubes})
		w.markDirty()
	} else {
		w.record(AuditEvent{At: cs.LastSeen, Kind: EventDeleteDenied, ClientID: id, BlockID: m.BlockID, Reason: res.Reason})
	}
	w.sendTo(cs, res)
}

// evaluateDelete applies the delete policy without mutating anything. The
// proximity check runs here, against the requester's last known server-side
// position; whatever the client decided locally is advisory only.
func (w *World) evaluateDelete(cs *clientState, blockID int64) (idx int, res protocol.DeleteResultMsg) {
	res = protocol.DeleteResultMsg{Type: protocol.TypeDeleteResult, BlockID: blockID}

	if blockID <= 0 {
		res.Reason = protocol.ReasonBadRequest
		return -1, res
	}
	idx = -1
	for i := range w.blocks {
		if w.blocks[i].ID == blockID {
			idx = i
			break
		}
	}
	if idx < 0 {
		res.Reason = protocol.ReasonNotFound
		return -1, res
	}
	if !cs.HasFix {
		res.Reason = protocol.ReasonNoPosition
		return -1, res
	}
	origin, ok := w.origin.Get()
	if !ok {
		// Unreachable while blocks exist; kept so the projector is never
		// consulted without a reference point.
		res.Reason = protocol.ReasonNoPosition
		return -1, res
	}
	blk := w.blocks[idx]
	dist := geo.Distance(cs.Lat, cs.Lon, blk.Lat, blk.Lon, origin)
	if dist > w.cfg.DeleteRangeMeters {
		res.Reason = protocol.ReasonTooFar
		res.DistM = dist
		return -1, res
	}
	res.OK = true
	return idx, res
}

func (w *World) sendTo(cs *clientState, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		w.log.Printf("marshal %T: %v", v, err)
		return
	}
	sendLatest(cs.Out, b)
}
