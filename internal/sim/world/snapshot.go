package world

import (
	"encoding/json"

	"geocubes.app/internal/protocol"
)

// snapshot builds a point-in-time copy of the world. Nothing in the returned
// value aliases loop-owned state.
func (w *World) snapshot() protocol.WorldStateMsg {
	msg := protocol.WorldStateMsg{
		Type:          protocol.TypeWorldState,
		Clients:       make(map[string]protocol.ClientInfo, len(w.clients)),
		DroppedBlocks: make([]protocol.DroppedBlock, len(w.blocks)),
	}
	if o, ok := w.origin.Get(); ok {
		msg.Origin = &protocol.OriginInfo{Lat: o.Lat, Lon: o.Lon}
	}
	for id, cs := range w.clients {
		ci := protocol.ClientInfo{Yaw: cs.Yaw, Color: cs.Color}
		if cs.HasFix {
			lat, lon := cs.Lat, cs.Lon
			ci.Lat, ci.Lon = &lat, &lon
		}
		msg.Clients[id] = ci
	}
	copy(msg.DroppedBlocks, w.blocks)
	return msg
}

func (w *World) marshalSnapshot() []byte {
	b, err := json.Marshal(w.snapshot())
	if err != nil {
		w.log.Printf("marshal snapshot: %v", err)
		return nil
	}
	return b
}
