package game

import (
	"sort"

	"ravaged-planets/internal/errs"
	"ravaged-planets/internal/vector"
	"ravaged-planets/internal/wire"
	"ravaged-planets/internal/world"
)

// maxEntityCounter is the largest per-player creation counter; the next
// allocation fails hard rather than wrapping into a reused id.
const maxEntityCounter = 0xffffff

// EntityManager owns every live entity. It is single-writer: only the
// simulation thread creates, mutates, and destroys entities. Reader
// threads see the published snapshot instead.
type EntityManager struct {
	world     *world.World
	templates *TemplateRegistry
	sim       *Simulation

	entities map[EntityID]*Entity
	order    []EntityID // ascending; the canonical iteration order

	pendingDestroy []EntityID
	counters       map[uint8]uint32

	selection []EntityID

	// scratch buffers reused across queries to avoid per-tick allocation
	patchScratch []*world.Patch
	nearScratch  []*Entity
}

// NewEntityManager creates an empty store over a loaded world.
func NewEntityManager(w *world.World, templates *TemplateRegistry) *EntityManager {
	return &EntityManager{
		world:     w,
		templates: templates,
		entities:  make(map[EntityID]*Entity),
		counters:  make(map[uint8]uint32),
	}
}

// World returns the spatial model entities live on.
func (m *EntityManager) World() *world.World { return m.world }

// Templates returns the template registry.
func (m *EntityManager) Templates() *TemplateRegistry { return m.templates }

// Sim returns the simulation driving this store (nil in bare store tests).
func (m *EntityManager) Sim() *Simulation { return m.sim }

// Count returns the number of live entities.
func (m *EntityManager) Count() int { return len(m.order) }

// AllocateID hands out the next id for the given player. Network-
// originated creates skip this and carry an explicit id instead.
func (m *EntityManager) AllocateID(playerNo uint8) (EntityID, error) {
	next := m.counters[playerNo] + 1
	if next > maxEntityCounter {
		return 0, errs.New(errs.KindInvariant, "player %d exhausted the entity id space", playerNo)
	}
	m.counters[playerNo] = next
	return MakeEntityID(playerNo, next), nil
}

// CreateEntity instantiates the named template under the given id. Every
// listed component is attached and configured in declaration order, then
// initialized in the same order once all are attached; finally the entity
// joins the store and its patch.
func (m *EntityManager) CreateEntity(templateName string, id EntityID) (*Entity, error) {
	tmpl := m.templates.Get(templateName)
	if tmpl == nil {
		return nil, errs.New(errs.KindNotFound, "entity template %q", templateName)
	}
	if _, exists := m.entities[id]; exists {
		return nil, errs.New(errs.KindInvariant, "entity id %v already live", id)
	}

	var tick uint32
	if m.sim != nil {
		tick = m.sim.Turn()
	}
	e := newEntity(m, id, templateName, tick)

	for _, ct := range tmpl.Components {
		kind, ok := componentKindByName[ct.Name]
		if !ok {
			return nil, errs.New(errs.KindParse, "template %q: unknown component %q", templateName, ct.Name)
		}
		c := newComponent(kind)
		if !e.attach(c) {
			return nil, errs.New(errs.KindInvariant, "template %q: duplicate component %q", templateName, ct.Name)
		}
		if err := c.ApplyTemplate(ct.Params); err != nil {
			return nil, errs.Wrap(errs.KindParse, err, "template %q component %q", templateName, ct.Name)
		}
	}
	for _, name := range tmpl.AttributeNames {
		e.SetAttribute(name, tmpl.Attributes[name])
	}

	// Components resolve siblings now that the set is complete, in the
	// order the template declared them.
	for _, ct := range tmpl.Components {
		e.Component(componentKindByName[ct.Name]).Initialize()
	}

	m.entities[id] = e
	m.insertOrdered(id)

	// Keep the per-player counter ahead of explicit ids so local and
	// network-originated creations never collide.
	if c := id.Counter(); c > m.counters[id.PlayerNo()] {
		m.counters[id.PlayerNo()] = c
	}

	if pos := PositionOf(e); pos != nil {
		pos.Resolve()
	}
	if m.sim != nil {
		m.sim.entityCreated(e)
	}
	return e, nil
}

func (m *EntityManager) insertOrdered(id EntityID) {
	i := sort.Search(len(m.order), func(i int) bool { return m.order[i] >= id })
	m.order = append(m.order, 0)
	copy(m.order[i+1:], m.order[i:])
	m.order[i] = id
}

// Get returns the live entity with the given id, or nil. Ids are never
// reused, so a stale id simply misses.
func (m *EntityManager) Get(id EntityID) *Entity {
	return m.entities[id]
}

// Destroy schedules an entity for removal. Actual removal is deferred to
// the start of the next tick, after the current tick's updates finish, so
// an entity can destroy itself or a sibling mid-update without
// invalidating iteration.
func (m *EntityManager) Destroy(id EntityID) {
	if _, ok := m.entities[id]; !ok {
		return
	}
	for _, pending := range m.pendingDestroy {
		if pending == id {
			return
		}
	}
	m.pendingDestroy = append(m.pendingDestroy, id)
}

// FlushDestroyed removes every entity scheduled by Destroy. Runs at the
// start of each tick on the simulation thread.
func (m *EntityManager) FlushDestroyed() {
	for _, id := range m.pendingDestroy {
		e := m.entities[id]
		if e == nil {
			continue
		}
		if pos := PositionOf(e); pos != nil && pos.patch != nil {
			pos.patch.Remove(uint32(id))
		}
		m.Deselect(id)
		delete(m.entities, id)
		i := sort.Search(len(m.order), func(i int) bool { return m.order[i] >= id })
		if i < len(m.order) && m.order[i] == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
		}
		if m.sim != nil {
			m.sim.entityDestroyed(id)
		}
	}
	m.pendingDestroy = m.pendingDestroy[:0]
}

// Each calls fn for every live entity in ascending id order.
func (m *EntityManager) Each(fn func(*Entity)) {
	for _, id := range m.order {
		if e := m.entities[id]; e != nil {
			fn(e)
		}
	}
}

// ByComponent returns the live entities carrying the given component
// kind, in ascending id order.
func (m *EntityManager) ByComponent(kind ComponentKind) []*Entity {
	var out []*Entity
	for _, id := range m.order {
		e := m.entities[id]
		if e != nil && e.Component(kind) != nil {
			out = append(out, e)
		}
	}
	return out
}

// EntitiesNear returns live entities (other than exclude) whose position
// lies within radius of pos, in ascending id order. The query walks the
// patch neighborhood rather than the whole store.
func (m *EntityManager) EntitiesNear(pos vector.Vec3, radius float32, exclude EntityID) []*Entity {
	m.patchScratch = m.patchScratch[:0]
	m.nearScratch = m.nearScratch[:0]
	m.patchScratch = m.world.Patches.Neighborhood(pos.X, pos.Z, m.patchScratch)

	for _, patch := range m.patchScratch {
		for _, raw := range patch.Entities() {
			id := EntityID(raw)
			if id == exclude {
				continue
			}
			e := m.entities[id]
			if e == nil {
				continue
			}
			p := PositionOf(e)
			if p == nil {
				continue
			}
			d := world.DirectionTo(pos, p.Get(), m.world.WrapX(), m.world.WrapZ())
			// Compare on the terrain plane; height differences don't
			// separate units for proximity purposes.
			d.Y = 0
			if d.Length() <= radius {
				m.nearScratch = append(m.nearScratch, e)
			}
		}
	}
	sort.Slice(m.nearScratch, func(i, j int) bool {
		return m.nearScratch[i].id < m.nearScratch[j].id
	})
	return m.nearScratch
}

// UpdateAll runs one tick of component updates over every entity in id
// order, then resolves dirty positions (terrain snap, basis fixup, patch
// migration).
func (m *EntityManager) UpdateAll(dt float32) {
	for _, id := range m.order {
		if e := m.entities[id]; e != nil {
			e.update(dt)
		}
	}
	m.ResolvePositions()
}

// ResolvePositions runs the deferred position resolver over every entity.
func (m *EntityManager) ResolvePositions() {
	for _, id := range m.order {
		e := m.entities[id]
		if e == nil {
			continue
		}
		if pos := PositionOf(e); pos != nil {
			pos.Resolve()
		}
	}
}

// Select adds an entity to the selection set.
func (m *EntityManager) Select(id EntityID) {
	e := m.entities[id]
	if e == nil {
		return
	}
	sel := SelectableOf(e)
	if sel == nil {
		return
	}
	for _, got := range m.selection {
		if got == id {
			return
		}
	}
	sel.SetSelected(true)
	m.selection = append(m.selection, id)
	sort.Slice(m.selection, func(i, j int) bool { return m.selection[i] < m.selection[j] })
}

// Deselect removes an entity from the selection set.
func (m *EntityManager) Deselect(id EntityID) {
	for i, got := range m.selection {
		if got == id {
			if e := m.entities[id]; e != nil {
				if sel := SelectableOf(e); sel != nil {
					sel.SetSelected(false)
				}
			}
			m.selection = append(m.selection[:i], m.selection[i+1:]...)
			return
		}
	}
}

// ClearSelection empties the selection set.
func (m *EntityManager) ClearSelection() {
	for _, id := range append([]EntityID(nil), m.selection...) {
		m.Deselect(id)
	}
}

// Selection returns the selected entity ids in ascending order.
func (m *EntityManager) Selection() []EntityID {
	return append([]EntityID(nil), m.selection...)
}

// SerializeState dumps every entity's observable state in id order. Two
// peers in agreement produce byte-identical dumps; the determinism tests
// lean on that.
func (m *EntityManager) SerializeState(w *wire.Writer) {
	w.PutU32(uint32(len(m.order)))
	for _, id := range m.order {
		e := m.entities[id]
		if e == nil {
			continue
		}
		w.PutU32(uint32(id))
		w.PutString(e.template)
		if pos := PositionOf(e); pos != nil {
			w.PutBool(true)
			w.PutVector(pos.Get())
			w.PutVector(pos.Forward())
			w.PutVector(pos.Up())
		} else {
			w.PutBool(false)
		}
		w.PutU16(uint16(len(e.attrNames)))
		for _, name := range e.attrNames {
			a := e.attrs[name]
			w.PutString(name)
			w.PutU8(uint8(a.Kind))
			switch a.Kind {
			case AttrInt:
				w.PutI64(a.I)
			case AttrFloat:
				w.PutF32(a.F)
			case AttrString:
				w.PutString(a.S)
			case AttrVector:
				w.PutVector(a.V)
			}
		}
	}
}

// CheckPatchMembership validates that every positioned entity sits in the
// patch its coordinates map to. A mismatch is an invariant bug.
func (m *EntityManager) CheckPatchMembership() error {
	for _, id := range m.order {
		e := m.entities[id]
		if e == nil {
			continue
		}
		pos := PositionOf(e)
		if pos == nil || pos.patch == nil {
			continue
		}
		p := pos.Get()
		if got := m.world.Patches.GetPatch(p.X, p.Z); got != pos.patch {
			return errs.New(errs.KindInvariant, "entity %v at (%g, %g) indexed in patch (%d,%d), expected (%d,%d)",
				id, p.X, p.Z, pos.patch.PX, pos.patch.PZ, got.PX, got.PZ)
		}
	}
	return nil
}
