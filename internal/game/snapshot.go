package game

import (
	"sync/atomic"

	"ravaged-planets/internal/vector"
)

// EntitySnapshot is an immutable copy of one entity's render-visible
// state. Value types only, so a published snapshot can never alias live
// simulation state.
type EntitySnapshot struct {
	ID       EntityID
	Template string

	Pos     vector.Vec3
	Forward vector.Vec3
	Up      vector.Vec3

	Health    float32
	MaxHealth float32

	PlayerNo uint8
	Color    vector.Color

	Selected        bool
	SelectionRadius float32
	Highlight       vector.Color
	HasHighlight    bool

	AudioCue       string
	ParticleEffect string

	DebugFlags uint32
}

// PlayerSnapshot is an immutable copy of one player's roster entry.
type PlayerSnapshot struct {
	No    uint8
	Name  string
	Color vector.Color
	Ready bool
	Local bool
}

// SimSnapshot is a complete immutable view of one tick, published for the
// render thread. Entities appear in ascending id order.
type SimSnapshot struct {
	Sequence uint64
	Turn     uint32

	Entities []EntitySnapshot
	Players  []PlayerSnapshot
}

// SnapshotPool triple-buffers snapshots so the simulation can publish
// every tick while the renderer reads lock-free: the producer rotates
// through three slots and flips the read index only after a slot is fully
// populated.
type SnapshotPool struct {
	snapshots [3]SimSnapshot
	writeIdx  uint32 // atomic
	readIdx   uint32 // atomic
	sequence  uint64 // atomic
}

// NewSnapshotPool creates a pool with preallocated slices.
func NewSnapshotPool() *SnapshotPool {
	pool := &SnapshotPool{}
	for i := range pool.snapshots {
		pool.snapshots[i].Entities = make([]EntitySnapshot, 0, 256)
		pool.snapshots[i].Players = make([]PlayerSnapshot, 0, 8)
	}
	return pool
}

// AcquireWrite returns the next write slot with reset slices. Producer
// (simulation goroutine) only.
func (p *SnapshotPool) AcquireWrite() *SimSnapshot {
	idx := atomic.AddUint32(&p.writeIdx, 1) % 3
	snap := &p.snapshots[idx]
	snap.Entities = snap.Entities[:0]
	snap.Players = snap.Players[:0]
	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	return snap
}

// PublishWrite makes the just-written slot visible to readers.
func (p *SnapshotPool) PublishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
}

// AcquireRead returns the latest published snapshot. Consumer threads
// only; never blocks the producer.
func (p *SnapshotPool) AcquireRead() *SimSnapshot {
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.snapshots[idx]
}

// Snapshot returns the latest published snapshot for reader threads.
func (s *Simulation) Snapshot() *SimSnapshot {
	return s.snapshots.AcquireRead()
}

// publishSnapshot copies render-visible state into the next pool slot.
// Runs at the end of every tick.
func (s *Simulation) publishSnapshot() {
	snap := s.snapshots.AcquireWrite()
	snap.Turn = s.turn

	s.mgr.Each(func(e *Entity) {
		es := EntitySnapshot{
			ID:         e.ID(),
			Template:   e.Template(),
			PlayerNo:   e.ID().PlayerNo(),
			DebugFlags: e.DebugFlags(),
		}
		if pos := PositionOf(e); pos != nil {
			es.Pos = pos.Get()
			es.Forward = pos.Forward()
			es.Up = pos.Up()
		}
		if a, ok := e.Attribute("health"); ok {
			es.Health = a.AsFloat()
		}
		if a, ok := e.Attribute("max_health"); ok {
			es.MaxHealth = a.AsFloat()
		}
		if own := OwnableOf(e); own != nil {
			es.Color = own.Color()
		}
		if sel := SelectableOf(e); sel != nil {
			es.Selected = sel.IsSelected()
			es.SelectionRadius = sel.SelectionRadius()
			es.Highlight, es.HasHighlight = sel.Highlight()
		}
		if audio, ok := e.Component(KindAudio).(*AudioComponent); ok {
			es.AudioCue = audio.TakeCue()
		}
		if fx, ok := e.Component(KindParticleEffect).(*ParticleEffectComponent); ok {
			es.ParticleEffect = fx.EffectName()
		}
		snap.Entities = append(snap.Entities, es)
	})

	for _, p := range s.players {
		snap.Players = append(snap.Players, PlayerSnapshot{
			No:    p.No(),
			Name:  p.Name(),
			Color: p.Color(),
			Ready: p.IsReady(),
			Local: p.IsLocal(),
		})
	}

	s.snapshots.PublishWrite()
}
