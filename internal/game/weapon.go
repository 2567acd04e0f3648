package game

import (
	"log"

	"ravaged-planets/internal/vector"
)

// WeaponComponent tracks a target entity and, while the target is within
// range, fires at a fixed cadence by spawning a projectile entity aimed at
// it. Firing is a deterministic consequence of shared state, so every
// peer spawns the same projectile on the same tick — no command needed.
type WeaponComponent struct {
	baseComponent

	projectileTemplate string
	fireOffset         vector.Vec3 // spawn offset in the entity's frame
	rangeUnits         float32
	fireInterval       float32 // seconds between shots

	target   EntityID
	hasTgt   bool
	cooldown float32
}

func (c *WeaponComponent) Kind() ComponentKind { return KindWeapon }

func (c *WeaponComponent) ApplyTemplate(t Table) error {
	c.projectileTemplate = t.String("projectile", "")
	c.fireOffset = t.Vector("fire_offset", vector.V3(0, 0.5, 1))
	c.rangeUnits = t.Float("range", 10)
	c.fireInterval = t.Float("fire_interval", 5)
	return nil
}

func (c *WeaponComponent) Initialize() {}

// SetTarget aims the weapon at an entity.
func (c *WeaponComponent) SetTarget(id EntityID) {
	c.target = id
	c.hasTgt = true
	c.cooldown = 0
}

// ClearTarget stands the weapon down.
func (c *WeaponComponent) ClearTarget() { c.hasTgt = false }

// Target returns the current target; ok is false when idle.
func (c *WeaponComponent) Target() (EntityID, bool) { return c.target, c.hasTgt }

func (c *WeaponComponent) Update(dt float32) {
	if !c.hasTgt {
		return
	}
	target := c.entity.mgr.Get(c.target)
	if target == nil {
		c.hasTgt = false
		return
	}
	pos := PositionOf(c.entity)
	tpos := PositionOf(target)
	if pos == nil || tpos == nil {
		return
	}
	if pos.DistanceTo(tpos.Get()) > c.rangeUnits {
		return // out of range; hold fire but keep the target
	}

	c.cooldown -= dt
	if c.cooldown > 0 {
		return
	}
	c.cooldown = c.fireInterval
	c.fire(pos, target)
}

func (c *WeaponComponent) fire(pos *PositionComponent, target *Entity) {
	if c.projectileTemplate == "" {
		return
	}
	mgr := c.entity.mgr
	id, err := mgr.AllocateID(c.entity.id.PlayerNo())
	if err != nil {
		if sim := mgr.Sim(); sim != nil {
			sim.Fatalf("weapon %v: %v", c.entity.id, err)
		}
		return
	}
	proj, err := mgr.CreateEntity(c.projectileTemplate, id)
	if err != nil {
		log.Printf("game: weapon %v failed to spawn %q: %v", c.entity.id, c.projectileTemplate, err)
		return
	}

	// Spawn at the configured offset in the shooter's frame, flying in
	// the offset direction until the projectile steers itself.
	forward := pos.Forward()
	up := pos.Up()
	right := forward.Cross(up).Normalized()
	offset := right.Scale(c.fireOffset.X).
		Add(up.Scale(c.fireOffset.Y)).
		Add(forward.Scale(c.fireOffset.Z))

	if ppos := PositionOf(proj); ppos != nil {
		ppos.Set(pos.Get().Add(offset))
		ppos.SetForward(offset.Normalized())
	}
	if pc := ProjectileOf(proj); pc != nil {
		pc.Launch(c.entity.id, target.ID())
	}
}
