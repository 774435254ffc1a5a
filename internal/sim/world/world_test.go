package world

import (
	"encoding/json"
	"io"
	"log"
	"math"
	"testing"
	"time"

	"geocubes.app/internal/geo"
	"geocubes.app/internal/protocol"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestWorld() (*World, *fakeClock) {
	fc := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	w := New(Config{}, log.New(io.Discard, "", 0))
	w.clock = fc.Now
	return w, fc
}

func joinClient(w *World, id string) chan []byte {
	out := make(chan []byte, 64)
	resp := make(chan []byte, 1)
	w.handleJoin(JoinRequest{ID: id, Out: out, Resp: resp})
	<-resp
	return out
}

func drain(ch chan []byte) [][]byte {
	var out [][]byte
	for {
		select {
		case b := <-ch:
			out = append(out, b)
		default:
			return out
		}
	}
}

// typed pulls all messages of one wire type out of a drained queue.
func typed[T any](t *testing.T, msgs [][]byte, wireType string) []T {
	t.Helper()
	var out []T
	for _, b := range msgs {
		base, err := protocol.DecodeBase(b)
		if err != nil {
			t.Fatalf("decode base: %v", err)
		}
		if base.Type != wireType {
			continue
		}
		var v T
		if err := json.Unmarshal(b, &v); err != nil {
			t.Fatalf("decode %s: %v", wireType, err)
		}
		out = append(out, v)
	}
	return out
}

func lastState(t *testing.T, msgs [][]byte) protocol.WorldStateMsg {
	t.Helper()
	states := typed[protocol.WorldStateMsg](t, msgs, protocol.TypeWorldState)
	if len(states) == 0 {
		t.Fatalf("no worldState message seen")
	}
	return states[len(states)-1]
}

func TestFirstFixEstablishesOriginAndDropScenario(t *testing.T) {
	w, fc := newTestWorld()
	outA := joinClient(w, "A")
	outB := joinClient(w, "B")
	drain(outA)
	drain(outB)

	if _, ok := w.Origin(); ok {
		t.Fatalf("origin must be unset before any fix")
	}

	fc.Advance(time.Second)
	w.handleGpsUpdate("A", protocol.GpsUpdateMsg{Type: protocol.TypeGpsUpdate, Lat: 40.0, Lon: -75.0})

	origin, ok := w.Origin()
	if !ok || origin.Lat != 40.0 || origin.Lon != -75.0 {
		t.Fatalf("origin after first fix: %+v ok=%v", origin, ok)
	}

	snap := lastState(t, drain(outB))
	a := snap.Clients["A"]
	if a.Lat == nil || a.Lon == nil {
		t.Fatalf("client A fix missing from snapshot")
	}
	if x, z := geo.Project(*a.Lat, *a.Lon, origin); x != 0 || z != 0 {
		t.Fatalf("client A local coords: (%v,%v) want (0,0)", x, z)
	}

	// A drops a cube at the same coordinates: id 1, local (0,0).
	fc.Advance(time.Second)
	w.handleDropCube("A", protocol.DropCubeMsg{Type: protocol.TypeDropCube, Lat: 40.0, Lon: -75.0})

	snap = lastState(t, drain(outB))
	if len(snap.DroppedBlocks) != 1 || snap.DroppedBlocks[0].ID != 1 {
		t.Fatalf("expected one block with id=1, got %+v", snap.DroppedBlocks)
	}
	blk := snap.DroppedBlocks[0]
	if x, z := geo.Project(blk.Lat, blk.Lon, origin); x != 0 || z != 0 {
		t.Fatalf("block local coords: (%v,%v) want (0,0)", x, z)
	}

	// B never sent GPS: delete must be refused with no_position.
	fc.Advance(time.Second)
	w.handleDeleteCube("B", protocol.DeleteCubeMsg{Type: protocol.TypeDeleteCube, BlockID: 1})
	results := typed[protocol.DeleteResultMsg](t, drain(outB), protocol.TypeDeleteResult)
	if len(results) != 1 {
		t.Fatalf("expected one deleteResult, got %d", len(results))
	}
	if results[0].OK || results[0].Reason != protocol.ReasonNoPosition {
		t.Fatalf("deleteResult=%+v want no_position refusal", results[0])
	}
	if len(w.blocks) != 1 {
		t.Fatalf("block must survive refused delete")
	}
}

func TestOriginImmutableAcrossLaterFixes(t *testing.T) {
	w, fc := newTestWorld()
	joinClient(w, "A")
	joinClient(w, "B")

	w.handleGpsUpdate("A", protocol.GpsUpdateMsg{Lat: 40.0, Lon: -75.0})
	first, _ := w.Origin()

	for i := 0; i < 10; i++ {
		fc.Advance(time.Second)
		w.handleGpsUpdate("B", protocol.GpsUpdateMsg{Lat: 41.0 + float64(i), Lon: -76.0})
		w.handleGpsUpdate("A", protocol.GpsUpdateMsg{Lat: 39.0, Lon: -74.0})
	}

	got, ok := w.Origin()
	if !ok || got != first {
		t.Fatalf("origin drifted: %+v -> %+v", first, got)
	}
}

func TestDropFromDropRequestEstablishesOrigin(t *testing.T) {
	w, _ := newTestWorld()
	joinClient(w, "A")

	// No GPS fix ever sent; the first valid drop seeds the origin.
	w.handleDropCube("A", protocol.DropCubeMsg{Lat: 40.0, Lon: -75.0})
	origin, ok := w.Origin()
	if !ok || origin.Lat != 40.0 || origin.Lon != -75.0 {
		t.Fatalf("origin after drop: %+v ok=%v", origin, ok)
	}
}

func TestDeleteProximityGate(t *testing.T) {
	w, fc := newTestWorld()
	outA := joinClient(w, "A")
	drain(outA)

	w.handleGpsUpdate("A", protocol.GpsUpdateMsg{Lat: 40.0, Lon: -75.0})
	w.handleDropCube("A", protocol.DropCubeMsg{Lat: 40.0, Lon: -75.0})
	drain(outA)

	// ~12m north of the block with a 10m range: too_far, distM reported.
	fc.Advance(time.Second)
	w.handleGpsUpdate("A", protocol.GpsUpdateMsg{Lat: 40.0 + 12.0/111320.0, Lon: -75.0})
	w.handleDeleteCube("A", protocol.DeleteCubeMsg{BlockID: 1})

	msgs := drain(outA)
	results := typed[protocol.DeleteResultMsg](t, msgs, protocol.TypeDeleteResult)
	if len(results) != 1 || results[0].OK || results[0].Reason != protocol.ReasonTooFar {
		t.Fatalf("deleteResult=%+v want too_far", results)
	}
	if math.Abs(results[0].DistM-12.0) > 0.01 {
		t.Fatalf("distM=%v want ~12", results[0].DistM)
	}
	if len(w.blocks) != 1 {
		t.Fatalf("too_far delete must not remove the block")
	}

	// ~5m away: allowed; block removed, counter incremented.
	fc.Advance(time.Second)
	w.handleGpsUpdate("A", protocol.GpsUpdateMsg{Lat: 40.0 + 5.0/111320.0, Lon: -75.0})
	w.handleDeleteCube("A", protocol.DeleteCubeMsg{BlockID: 1})

	msgs = drain(outA)
	results = typed[protocol.DeleteResultMsg](t, msgs, protocol.TypeDeleteResult)
	if len(results) != 1 || !results[0].OK || results[0].Reason != "" {
		t.Fatalf("deleteResult=%+v want ok", results)
	}
	counters := typed[protocol.MyCountersMsg](t, msgs, protocol.TypeMyCounters)
	if len(counters) != 1 || counters[0].DeletedCubes != 1 {
		t.Fatalf("myCounters=%+v want deletedCubes=1", counters)
	}
	if len(w.blocks) != 0 {
		t.Fatalf("block must be gone after allowed delete")
	}
}

func TestDeleteNotFoundAndBadRequest(t *testing.T) {
	w, _ := newTestWorld()
	outA := joinClient(w, "A")
	w.handleGpsUpdate("A", protocol.GpsUpdateMsg{Lat: 40.0, Lon: -75.0})
	drain(outA)

	w.handleDeleteCube("A", protocol.DeleteCubeMsg{BlockID: 99})
	results := typed[protocol.DeleteResultMsg](t, drain(outA), protocol.TypeDeleteResult)
	if len(results) != 1 || results[0].Reason != protocol.ReasonNotFound {
		t.Fatalf("deleteResult=%+v want not_found", results)
	}

	w.handleDeleteCube("A", protocol.DeleteCubeMsg{BlockID: 0})
	results = typed[protocol.DeleteResultMsg](t, drain(outA), protocol.TypeDeleteResult)
	if len(results) != 1 || results[0].Reason != protocol.ReasonBadRequest {
		t.Fatalf("deleteResult=%+v want bad_request", results)
	}
}

func TestMalformedInputIsSilentlyDropped(t *testing.T) {
	w, _ := newTestWorld()
	outA := joinClient(w, "A")
	drain(outA)

	w.handleIntent(Envelope{ClientID: "A", Raw: []byte(`{"type":"gpsUpdate","lat":"nope","lon":-75}`)})
	w.handleIntent(Envelope{ClientID: "A", Raw: []byte(`{garbage`)})
	w.handleIntent(Envelope{ClientID: "A", Raw: []byte(`{"type":"warpDrive"}`)})
	w.handleGpsUpdate("ghost", protocol.GpsUpdateMsg{Lat: 40, Lon: -75})
	w.handleGpsUpdate("A", protocol.GpsUpdateMsg{Lat: math.NaN(), Lon: -75})
	w.handleOrientationUpdate("A", protocol.OrientationUpdateMsg{Yaw: math.Inf(1)})

	if _, ok := w.Origin(); ok {
		t.Fatalf("origin set by invalid input")
	}
	if msgs := drain(outA); len(msgs) != 0 {
		t.Fatalf("invalid input triggered %d broadcasts", len(msgs))
	}
	if a := w.clients["A"]; a.HasFix || a.Yaw != 0 {
		t.Fatalf("invalid input mutated client state: %+v", a)
	}
}

func TestToggleColorCyclesPalette(t *testing.T) {
	w, _ := newTestWorld()
	joinClient(w, "A")
	cs := w.clients["A"]
	first := cs.Color

	seen := map[string]bool{first: true}
	for i := 0; i < len(w.cfg.Palette)-1; i++ {
		w.handleToggleColor("A")
		if seen[cs.Color] {
			t.Fatalf("palette color repeated before full cycle: %s", cs.Color)
		}
		seen[cs.Color] = true
	}
	w.handleToggleColor("A")
	if cs.Color != first {
		t.Fatalf("full cycle should return to %s, got %s", first, cs.Color)
	}
}

func TestJoinAssignsRoundRobinColors(t *testing.T) {
	w, _ := newTestWorld()
	n := len(w.cfg.Palette)
	for i := 0; i < n; i++ {
		joinClient(w, string(rune('a'+i)))
	}
	seen := map[string]bool{}
	for _, cs := range w.clients {
		seen[cs.Color] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct colors, got %d", n, len(seen))
	}
}

func TestDisconnectRemovesClientFromNextSnapshot(t *testing.T) {
	w, fc := newTestWorld()
	outA := joinClient(w, "A")
	joinClient(w, "B")
	fc.Advance(time.Second)
	drain(outA)

	w.handleLeave("B")
	snap := lastState(t, drain(outA))
	if _, ok := snap.Clients["B"]; ok {
		t.Fatalf("departed client still present in snapshot")
	}
	// Duplicate leave is a no-op.
	w.handleLeave("B")
}

func TestBlockIDsAreMonotonicAndNeverReused(t *testing.T) {
	w, _ := newTestWorld()
	joinClient(w, "A")
	w.handleGpsUpdate("A", protocol.GpsUpdateMsg{Lat: 40.0, Lon: -75.0})

	w.handleDropCube("A", protocol.DropCubeMsg{Lat: 40.0, Lon: -75.0})
	w.handleDropCube("A", protocol.DropCubeMsg{Lat: 40.0, Lon: -75.0})
	w.handleDeleteCube("A", protocol.DeleteCubeMsg{BlockID: 2})
	w.handleDropCube("A", protocol.DropCubeMsg{Lat: 40.0, Lon: -75.0})

	ids := []int64{}
	for _, b := range w.blocks {
		ids = append(ids, b.ID)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Fatalf("block ids=%v want [1 3]", ids)
	}
}

func TestSnapshotDoesNotAliasWorldState(t *testing.T) {
	w, _ := newTestWorld()
	joinClient(w, "A")
	w.handleGpsUpdate("A", protocol.GpsUpdateMsg{Lat: 40.0, Lon: -75.0})
	w.handleDropCube("A", protocol.DropCubeMsg{Lat: 40.0, Lon: -75.0})

	snap := w.snapshot()
	snap.DroppedBlocks[0].Lat = 0
	ci := snap.Clients["A"]
	*ci.Lat = 0

	if w.blocks[0].Lat != 40.0 {
		t.Fatalf("snapshot mutation reached block store")
	}
	if w.clients["A"].Lat != 40.0 {
		t.Fatalf("snapshot mutation reached registry")
	}
}
