package world

// PatchSize is the side length of a spatial patch in world units — half a
// terrain patch.
const PatchSize = 32

// Patch is one fixed-size square of the world grid. It holds the ids of
// the entities whose resolved position lies inside it. Ids are weak: the
// entity store re-checks liveness on every lookup, so a stale id is
// harmless.
//
// Patches are mutated only by the position resolver on the simulation
// thread; no locking.
type Patch struct {
	PX, PZ int // patch coordinates (world units / PatchSize)

	entities []uint32
}

// Entities returns the ids currently in the patch. The slice is owned by
// the patch; callers must not retain it across ticks.
func (p *Patch) Entities() []uint32 { return p.entities }

// Add inserts an entity id. Duplicate adds are the caller's bug and are
// not checked here.
func (p *Patch) Add(id uint32) {
	p.entities = append(p.entities, id)
}

// Remove deletes an entity id, keeping order so per-patch iteration stays
// deterministic across peers.
func (p *Patch) Remove(id uint32) {
	for i, e := range p.entities {
		if e == id {
			p.entities = append(p.entities[:i], p.entities[i+1:]...)
			return
		}
	}
}

// PatchManager partitions the toroidal world into PatchSize squares and
// resolves world coordinates to patches. Cells are preallocated up front;
// lookups never allocate.
type PatchManager struct {
	cols, rows int
	width      float32 // world width in units
	length     float32 // world length in units
	patches    []*Patch
}

// NewPatchManager builds the patch grid for a world of width×length units.
func NewPatchManager(width, length int) *PatchManager {
	cols := width / PatchSize
	rows := length / PatchSize
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	m := &PatchManager{
		cols:   cols,
		rows:   rows,
		width:  float32(width),
		length: float32(length),
	}
	m.patches = make([]*Patch, cols*rows)
	for pz := 0; pz < rows; pz++ {
		for px := 0; px < cols; px++ {
			m.patches[pz*cols+px] = &Patch{PX: px, PZ: pz}
		}
	}
	return m
}

// GetPatch returns the patch containing world position (x, z), wrapping
// both coordinates onto the torus.
func (m *PatchManager) GetPatch(x, z float32) *Patch {
	x = Wrap(x, m.width)
	z = Wrap(z, m.length)
	px := int(x) / PatchSize
	pz := int(z) / PatchSize
	if px >= m.cols {
		px = m.cols - 1
	}
	if pz >= m.rows {
		pz = m.rows - 1
	}
	return m.patches[pz*m.cols+px]
}

// Neighborhood appends the patches within one patch of (x, z), including
// the center patch, to dst and returns it. Nine patches on a big enough
// world; fewer when the grid is small and wrapping folds them together.
func (m *PatchManager) Neighborhood(x, z float32, dst []*Patch) []*Patch {
	center := m.GetPatch(x, z)
	for dz := -1; dz <= 1; dz++ {
		for dx := -1; dx <= 1; dx++ {
			px := wrapIndex(center.PX+dx, m.cols)
			pz := wrapIndex(center.PZ+dz, m.rows)
			p := m.patches[pz*m.cols+px]
			dup := false
			for _, got := range dst {
				if got == p {
					dup = true
					break
				}
			}
			if !dup {
				dst = append(dst, p)
			}
		}
	}
	return dst
}
