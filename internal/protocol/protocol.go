package protocol

import "encoding/json"

// Message types.
const (
	// Client -> server intents.
	TypeGpsUpdate         = "gpsUpdate"
	TypeOrientationUpdate = "orientationUpdate"
	TypeDropCube          = "dropCube"
	TypeDeleteCube        = "deleteCube"
	TypeToggleColor       = "toggleColor"
	TypeTelemetry         = "telemetry"

	// Server -> client.
	TypeWorldState   = "worldState"
	TypeDeleteResult = "deleteResult"
	TypeMyCounters   = "myCounters"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type string `json:"type"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
