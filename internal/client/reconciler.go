package client

import (
	"geocubes.app/internal/geo"
	"geocubes.app/internal/protocol"
)

// Entity is the local cache for one rendered thing: the latest authoritative
// lat/lon, the projected target, and the smoothed visible position.
type Entity struct {
	Lat, Lon         float64
	TargetX, TargetZ float64
	X, Z             float64
	Yaw              float64
	Color            string

	hasFix      bool
	justSpawned bool
}

// Reconciler turns noisy, irregularly timed snapshots into stable visual
// motion. Apply replaces target state only; Step moves visible positions on
// the next frame tick. It is driven by one loop and is not safe for
// concurrent use.
type Reconciler struct {
	selfID   string
	smoother Smoother

	origin *geo.Origin
	self   Entity
	peers  map[string]*Entity
	blocks map[int64]*Entity

	onPeerGone  func(id string)
	onBlockGone func(id int64)
}

func NewReconciler(selfID string, rate float64) *Reconciler {
	return &Reconciler{
		selfID:   selfID,
		smoother: Smoother{Rate: rate},
		self:     Entity{justSpawned: true},
		peers:    make(map[string]*Entity),
		blocks:   make(map[int64]*Entity),
	}
}

// OnPeerGone registers a disposal callback so the visualization layer can
// drop the matching scene node.
func (r *Reconciler) OnPeerGone(fn func(id string))   { r.onPeerGone = fn }
func (r *Reconciler) OnBlockGone(fn func(id int64))   { r.onBlockGone = fn }
func (r *Reconciler) Origin() (geo.Origin, bool) {
	if r.origin == nil {
		return geo.Origin{}, false
	}
	return *r.origin, true
}

// Apply diffs a snapshot against the local caches. Visible positions are
// untouched; only targets move. Applying the same snapshot twice is a no-op.
func (r *Reconciler) Apply(snap protocol.WorldStateMsg) {
	if snap.Origin != nil {
		o := geo.Origin{Lat: snap.Origin.Lat, Lon: snap.Origin.Lon}
		if r.origin == nil || *r.origin != o {
			r.origin = &o
			r.retargetAll()
		}
	}

	for id, ci := range snap.Clients {
		if id == r.selfID {
			continue
		}
		e, ok := r.peers[id]
		if !ok {
			e = &Entity{justSpawned: true}
			r.peers[id] = e
		}
		e.Yaw = ci.Yaw
		e.Color = ci.Color
		if ci.Lat != nil && ci.Lon != nil {
			e.Lat, e.Lon = *ci.Lat, *ci.Lon
			e.hasFix = true
			r.retarget(e)
		}
	}
	for id := range r.peers {
		if _, ok := snap.Clients[id]; !ok {
			delete(r.peers, id)
			if r.onPeerGone != nil {
				r.onPeerGone(id)
			}
		}
	}

	seen := make(map[int64]struct{}, len(snap.DroppedBlocks))
	for _, blk := range snap.DroppedBlocks {
		seen[blk.ID] = struct{}{}
		e, ok := r.blocks[blk.ID]
		if !ok {
			e = &Entity{justSpawned: true, hasFix: true}
			r.blocks[blk.ID] = e
		}
		e.Lat, e.Lon = blk.Lat, blk.Lon
		e.Color = blk.Color
		r.retarget(e)
	}
	for id := range r.blocks {
		if _, ok := seen[id]; !ok {
			delete(r.blocks, id)
			if r.onBlockGone != nil {
				r.onBlockGone(id)
			}
		}
	}
}

// SetSelfFix feeds the locally measured position. The local player smooths
// against this, not the echoed network state: its own fix has zero latency.
func (r *Reconciler) SetSelfFix(lat, lon float64) {
	if !geo.Finite(lat, lon) {
		return
	}
	r.self.Lat, r.self.Lon = lat, lon
	r.self.hasFix = true
	r.retarget(&r.self)
}

// Step advances every visible position by dt seconds. Fresh entities snap
// straight to their first target so nothing lerps in from the origin.
func (r *Reconciler) Step(dt float64) {
	r.step(&r.self, dt)
	for _, e := range r.peers {
		r.step(e, dt)
	}
	for _, e := range r.blocks {
		r.step(e, dt)
	}
}

func (r *Reconciler) step(e *Entity, dt float64) {
	if !e.hasFix || r.origin == nil {
		return
	}
	if e.justSpawned {
		e.X, e.Z = e.TargetX, e.TargetZ
		e.justSpawned = false
		return
	}
	e.X = r.smoother.Step(e.X, e.TargetX, dt)
	e.Z = r.smoother.Step(e.Z, e.TargetZ, dt)
}

func (r *Reconciler) retarget(e *Entity) {
	if r.origin == nil || !e.hasFix {
		return
	}
	e.TargetX, e.TargetZ = geo.Project(e.Lat, e.Lon, *r.origin)
}

func (r *Reconciler) retargetAll() {
	r.retarget(&r.self)
	for _, e := range r.peers {
		r.retarget(e)
	}
	for _, e := range r.blocks {
		r.retarget(e)
	}
}

// Self returns a copy of the local player's cache.
func (r *Reconciler) Self() Entity { return r.self }

// Peers returns copies of the remote peer caches.
func (r *Reconciler) Peers() map[string]Entity {
	out := make(map[string]Entity, len(r.peers))
	for id, e := range r.peers {
		out[id] = *e
	}
	return out
}

// Blocks returns copies of the block caches.
func (r *Reconciler) Blocks() map[int64]Entity {
	out := make(map[int64]Entity, len(r.blocks))
	for id, e := range r.blocks {
		out[id] = *e
	}
	return out
}
