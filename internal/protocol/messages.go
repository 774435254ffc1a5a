package protocol

import "encoding/json"

// gpsUpdate (client -> server): a raw GPS fix.
type GpsUpdateMsg struct {
	Type string  `json:"type"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// orientationUpdate (client -> server): device yaw in radians, unnormalized.
type OrientationUpdateMsg struct {
	Type string  `json:"type"`
	Yaw  float64 `json:"yaw"`
}

// dropCube (client -> server): place a block at a fix.
type DropCubeMsg struct {
	Type string  `json:"type"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// deleteCube (client -> server): remove a block by id. Proximity is enforced
// server-side; whatever check the client ran first carries no weight.
type DeleteCubeMsg struct {
	Type    string `json:"type"`
	BlockID int64  `json:"blockId"`
}

// toggleColor (client -> server): cycle the sender's palette color.
type ToggleColorMsg struct {
	Type string `json:"type"`
}

// telemetry (client -> server): best-effort diagnostics. Data is opaque and
// size-capped on intake; it never influences gameplay state.
type TelemetryMsg struct {
	Type string          `json:"type"`
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ClientInfo is one registry entry as seen on the wire. Lat/Lon stay null
// until the client's first valid fix.
type ClientInfo struct {
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	Yaw   float64  `json:"yaw"`
	Color string   `json:"color"`
}

// DroppedBlock is a player-placed marker. IDs are monotonic and never reused.
type DroppedBlock struct {
	ID    int64   `json:"id"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Color string  `json:"color"`
}

// OriginInfo mirrors the world origin; omitted while unset.
type OriginInfo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// worldState (server -> client): the full authoritative snapshot. This is the
// only channel through which clients learn the truth; a client that missed a
// broadcast recovers fully from the next one.
type WorldStateMsg struct {
	Type          string                `json:"type"`
	Origin        *OriginInfo           `json:"origin,omitempty"`
	Clients       map[string]ClientInfo `json:"clients"`
	DroppedBlocks []DroppedBlock        `json:"droppedBlocks"`
}

// deleteResult (server -> client): outcome of a deleteCube request, sent only
// to the requester. DistM is populated for too_far so the UI can show how
// close the player needs to get.
type DeleteResultMsg struct {
	Type    string  `json:"type"`
	OK      bool    `json:"ok"`
	BlockID int64   `json:"blockId"`
	Reason  string  `json:"reason,omitempty"`
	DistM   float64 `json:"distM,omitempty"`
}

// myCounters (server -> client): per-connection feedback counters. Telemetry
// only, no authorization weight.
type MyCountersMsg struct {
	Type         string `json:"type"`
	DeletedCubes int    `json:"deletedCubes"`
}
