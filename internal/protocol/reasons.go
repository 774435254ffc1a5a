package protocol

// Machine-readable deleteResult reasons.
const (
	ReasonTooFar     = "too_far"
	ReasonNotFound   = "not_found"
	ReasonNoPosition = "no_position"
	ReasonBadRequest = "bad_request"
)

var knownReasons = map[string]struct{}{
	ReasonTooFar:     {},
	ReasonNotFound:   {},
	ReasonNoPosition: {},
	ReasonBadRequest: {},
}

// IsKnownReason reports whether a reason code is part of the protocol.
// The empty reason is valid (successful results carry none).
func IsKnownReason(reason string) bool {
	if reason == "" {
		return true
	}
	_, ok := knownReasons[reason]
	return ok
}
