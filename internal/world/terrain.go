package world

import (
	"ravaged-planets/internal/errs"
	"ravaged-planets/internal/vector"
)

const (
	// TerrainPatchSize is the side length of one terrain patch in vertices.
	// Terrain dimensions are always multiples of this.
	TerrainPatchSize = 64

	// PassableSlope is the minimum dot(up, normal) for a vertex to count
	// as passable in the collision bitmap.
	PassableSlope = 0.85
)

// Terrain is a W×L vertex height grid with one height sample per vertex
// and 4-channel texture-splat weights per terrain patch. World units equal
// vertex spacing, so (x, z) world coordinates index the grid directly.
type Terrain struct {
	Width  int // vertices along x, multiple of 64
	Length int // vertices along z, multiple of 64

	// Heights is row-major: z then x.
	Heights []float32

	// Splats maps "px-pz" patch coordinates to raw RGBA splat bitmaps
	// (SplatSize×SplatSize), one per 64×64 terrain patch. Purely data for
	// the renderer; the simulation never reads them.
	Splats map[string][]byte
}

// SplatSize is the side length of a splat bitmap in texels.
const SplatSize = 128

// NewTerrain allocates a flat terrain of the given dimensions.
// Both dimensions must be positive multiples of 64.
func NewTerrain(width, length int) (*Terrain, error) {
	if width <= 0 || length <= 0 || width%TerrainPatchSize != 0 || length%TerrainPatchSize != 0 {
		return nil, errs.New(errs.KindInvariant, "terrain dimensions %dx%d must be positive multiples of %d", width, length, TerrainPatchSize)
	}
	return &Terrain{
		Width:   width,
		Length:  length,
		Heights: make([]float32, width*length),
		Splats:  make(map[string][]byte),
	}, nil
}

// VertexHeight returns the height at integer vertex (x, z), wrapping both
// indices onto the torus.
func (t *Terrain) VertexHeight(x, z int) float32 {
	x = wrapIndex(x, t.Width)
	z = wrapIndex(z, t.Length)
	return t.Heights[z*t.Width+x]
}

// SetVertexHeight writes the height at integer vertex (x, z) with wrap.
func (t *Terrain) SetVertexHeight(x, z int, h float32) {
	x = wrapIndex(x, t.Width)
	z = wrapIndex(z, t.Length)
	t.Heights[z*t.Width+x] = h
}

// HeightAt returns the bilinearly interpolated height at world (x, z).
func (t *Terrain) HeightAt(x, z float32) float32 {
	x = Wrap(x, float32(t.Width))
	z = Wrap(z, float32(t.Length))

	x0 := int(x)
	z0 := int(z)
	fx := x - float32(x0)
	fz := z - float32(z0)

	h00 := t.VertexHeight(x0, z0)
	h10 := t.VertexHeight(x0+1, z0)
	h01 := t.VertexHeight(x0, z0+1)
	h11 := t.VertexHeight(x0+1, z0+1)

	top := h00 + (h10-h00)*fx
	bottom := h01 + (h11-h01)*fx
	return top + (bottom-top)*fz
}

// NormalAt returns the surface normal at vertex (x, z) from central
// differences of the neighboring heights.
func (t *Terrain) NormalAt(x, z int) vector.Vec3 {
	hl := t.VertexHeight(x-1, z)
	hr := t.VertexHeight(x+1, z)
	hd := t.VertexHeight(x, z-1)
	hu := t.VertexHeight(x, z+1)
	// Tangents along x and z, cross product gives the up-facing normal.
	return vector.Vec3{X: hl - hr, Y: 2, Z: hd - hu}.Normalized()
}

// CollisionBitmap is one bit per terrain vertex; true means passable.
// It is derived once from terrain normals at world load and is read-only
// afterwards, so it may be shared across threads without synchronization.
type CollisionBitmap struct {
	Width  int
	Length int
	bits   []bool
}

// NewCollisionBitmap allocates a bitmap with every vertex passable.
func NewCollisionBitmap(width, length int) *CollisionBitmap {
	bits := make([]bool, width*length)
	for i := range bits {
		bits[i] = true
	}
	return &CollisionBitmap{Width: width, Length: length, bits: bits}
}

// BuildCollision derives the collision bitmap from the terrain: a vertex
// is passable iff dot(up, normal) > 0.85, i.e. the slope is gentle enough
// to drive on.
func (t *Terrain) BuildCollision() *CollisionBitmap {
	c := NewCollisionBitmap(t.Width, t.Length)
	up := vector.Vec3{Y: 1}
	for z := 0; z < t.Length; z++ {
		for x := 0; x < t.Width; x++ {
			c.bits[z*t.Width+x] = up.Dot(t.NormalAt(x, z)) > PassableSlope
		}
	}
	return c
}

// Passable reports whether vertex (x, z) is passable, wrapping indices.
func (c *CollisionBitmap) Passable(x, z int) bool {
	x = wrapIndex(x, c.Width)
	z = wrapIndex(z, c.Length)
	return c.bits[z*c.Width+x]
}

// SetPassable writes one vertex of the bitmap. Only world loading and
// tests mutate the bitmap; afterwards it is frozen.
func (c *CollisionBitmap) SetPassable(x, z int, passable bool) {
	x = wrapIndex(x, c.Width)
	z = wrapIndex(z, c.Length)
	c.bits[z*c.Width+x] = passable
}
