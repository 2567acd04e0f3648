package game

import (
	"ravaged-planets/internal/vector"
	"ravaged-planets/internal/world"
)

// PositionComponent carries an entity's place in the world: coordinates,
// a forward/up basis, and the spatial patch the entity is indexed in.
//
// Mutations only mark the component dirty; the deferred resolver — run by
// the manager at the end of each tick and at creation — snaps the entity
// onto the terrain, re-orthonormalizes the basis, wraps the coordinates
// into world bounds, and migrates the entity between patches.
type PositionComponent struct {
	baseComponent

	pos     vector.Vec3
	forward vector.Vec3
	up      vector.Vec3

	sitOnTerrain    bool
	orientToTerrain bool

	patch *world.Patch
	dirty bool
}

func (c *PositionComponent) Kind() ComponentKind { return KindPosition }

func (c *PositionComponent) ApplyTemplate(t Table) error {
	c.sitOnTerrain = t.Bool("sit_on_terrain", false)
	c.orientToTerrain = t.Bool("orient_to_terrain", false)
	c.forward = vector.Vec3{Z: 1}
	c.up = vector.Vec3{Y: 1}
	c.dirty = true
	return nil
}

func (c *PositionComponent) Initialize() {}

func (c *PositionComponent) Update(dt float32) {}

// Get returns the current (resolved or pending) position.
func (c *PositionComponent) Get() vector.Vec3 { return c.pos }

// Set moves the entity and marks the position dirty for the resolver.
func (c *PositionComponent) Set(p vector.Vec3) {
	c.pos = p
	c.dirty = true
}

// Forward returns the heading vector.
func (c *PositionComponent) Forward() vector.Vec3 { return c.forward }

// SetForward replaces the heading; the resolver re-orthonormalizes.
func (c *PositionComponent) SetForward(f vector.Vec3) {
	c.forward = f
	c.dirty = true
}

// Up returns the up vector.
func (c *PositionComponent) Up() vector.Vec3 { return c.up }

// Patch returns the spatial patch the entity is currently indexed in.
func (c *PositionComponent) Patch() *world.Patch { return c.patch }

// DirectionTo returns the shortest toroidal vector from this entity to a
// target position.
func (c *PositionComponent) DirectionTo(target vector.Vec3) vector.Vec3 {
	w := c.entity.mgr.World()
	return world.DirectionTo(c.pos, target, w.WrapX(), w.WrapZ())
}

// DistanceTo returns the toroidal distance to a target position measured
// on the terrain plane.
func (c *PositionComponent) DistanceTo(target vector.Vec3) float32 {
	d := c.DirectionTo(target)
	d.Y = 0
	return d.Length()
}

// Resolve applies pending mutations: wrap into bounds, terrain snap,
// basis fixup, patch migration. Runs on the simulation thread only.
func (c *PositionComponent) Resolve() {
	if !c.dirty {
		return
	}
	w := c.entity.mgr.World()

	c.pos = world.WrapPoint(c.pos, w.WrapX(), w.WrapZ())

	if c.sitOnTerrain {
		c.pos.Y = w.Terrain.HeightAt(c.pos.X, c.pos.Z)
	}

	if c.orientToTerrain {
		c.up = w.Terrain.NormalAt(int(c.pos.X), int(c.pos.Z))
	} else {
		c.up = vector.Vec3{Y: 1}
	}

	// Re-orthonormalize: project forward off up, fall back to +Z when the
	// heading degenerates.
	f := c.forward.Sub(c.up.Scale(c.forward.Dot(c.up)))
	if f.LengthSq() < 1e-8 {
		f = vector.Vec3{Z: 1}
	}
	c.forward = f.Normalized()

	target := w.Patches.GetPatch(c.pos.X, c.pos.Z)
	if target != c.patch {
		if c.patch != nil {
			c.patch.Remove(uint32(c.entity.id))
		}
		target.Add(uint32(c.entity.id))
		c.patch = target
	}
	c.dirty = false
}
