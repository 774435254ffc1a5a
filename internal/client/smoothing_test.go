package client

import (
	"math"
	"testing"
)

func TestSmootherConverges(t *testing.T) {
	s := Smoother{Rate: 8}
	cur := 0.0
	for i := 0; i < 120; i++ {
		cur = s.Step(cur, 10, 1.0/60)
	}
	if math.Abs(cur-10) > 0.01 {
		t.Fatalf("cur = %v, want ~10", cur)
	}
}

func TestSmootherNeverOvershoots(t *testing.T) {
	s := Smoother{Rate: 8}
	// A one-second hitch gives a blend factor well past 1 before clamping.
	if got := s.Step(0, 10, 1.0); got != 10 {
		t.Fatalf("big dt: got %v, want exactly 10", got)
	}
	if got := s.Step(0, 10, -0.5); got != 0 {
		t.Fatalf("negative dt: got %v, want 0", got)
	}
}

func TestSmootherHoldsAtTarget(t *testing.T) {
	s := Smoother{Rate: 8}
	if got := s.Step(5, 5, 1.0/60); got != 5 {
		t.Fatalf("got %v, want 5", got)
	}
}
