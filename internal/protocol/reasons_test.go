package protocol

import "testing"

func TestIsKnownReason(t *testing.T) {
	cases := []string{
		"",
		ReasonTooFar,
		ReasonNotFound,
		ReasonNoPosition,
		ReasonBadRequest,
	}
	for _, c := range cases {
		if !IsKnownReason(c) {
			t.Fatalf("expected known reason: %q", c)
		}
	}
	if IsKnownReason("out_of_cheese") {
		t.Fatalf("expected unknown reason rejected")
	}
}

func TestDecodeBase(t *testing.T) {
	m, err := DecodeBase([]byte(`{"type":"gpsUpdate","lat":40,"lon":-75}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Type != TypeGpsUpdate {
		t.Fatalf("type=%q", m.Type)
	}
	if _, err := DecodeBase([]byte(`{`)); err == nil {
		t.Fatalf("expected error for truncated JSON")
	}
}
