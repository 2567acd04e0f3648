package game

import (
	"ravaged-planets/internal/vector"
)

// ProjectileBehavior selects how a projectile flies. All three share the
// same proximity/terrain detonation logic.
type ProjectileBehavior uint8

const (
	// ProjectileDirect flies in a straight line along its launch heading.
	ProjectileDirect ProjectileBehavior = iota
	// ProjectileSeeking re-aims at the target entity every tick.
	ProjectileSeeking
	// ProjectileBallistic follows a gravity arc to the target's position
	// at launch time.
	ProjectileBallistic
)

const projectileGravity = 9.8

// maxHitQueryRadius bounds the proximity query; selection radii beyond
// this are not sensible for units.
const maxHitQueryRadius = 8.0

// ProjectileComponent flies the entity toward its target and detonates on
// proximity to a damageable entity — using the victim's selection radius
// as the hit sphere — or on contact with the terrain surface. Detonation
// applies the configured damage and zeroes the projectile's own health
// so its Damageable removes it (and spawns the explosion, if one is
// configured there).
type ProjectileComponent struct {
	baseComponent

	behavior ProjectileBehavior
	speed    float32
	damage   float32

	shooter EntityID
	target  EntityID
	hasTgt  bool

	velocity vector.Vec3 // ballistic state
	launched bool
	exploded bool

	position *PositionComponent
}

func (c *ProjectileComponent) Kind() ComponentKind { return KindProjectile }

func (c *ProjectileComponent) ApplyTemplate(t Table) error {
	switch t.String("behavior", "direct") {
	case "seeking":
		c.behavior = ProjectileSeeking
	case "ballistic":
		c.behavior = ProjectileBallistic
	default:
		c.behavior = ProjectileDirect
	}
	c.speed = t.Float("speed", 10)
	c.damage = t.Float("damage", 10)
	return nil
}

func (c *ProjectileComponent) Initialize() {
	c.position = PositionOf(c.entity)
}

// Launch arms the projectile with its shooter (for kill credit) and
// target. Ballistic projectiles compute their arc here, against the
// target's position at launch.
func (c *ProjectileComponent) Launch(shooter, target EntityID) {
	c.shooter = shooter
	c.target = target
	c.hasTgt = true
	c.launched = true

	if c.behavior != ProjectileBallistic || c.position == nil {
		return
	}
	goal := c.targetPosition()
	dir := c.position.DirectionTo(goal)
	dir.Y = 0
	dist := dir.Length()
	flat := dir.Normalized()
	// Level-ground arc: climb for half the flight, fall for the rest.
	flightTime := dist / c.speed
	c.velocity = flat.Scale(c.speed)
	c.velocity.Y = 0.5 * projectileGravity * flightTime
}

// Shooter returns the entity that fired this projectile.
func (c *ProjectileComponent) Shooter() EntityID { return c.shooter }

func (c *ProjectileComponent) targetPosition() vector.Vec3 {
	if target := c.entity.mgr.Get(c.target); target != nil {
		if tp := PositionOf(target); tp != nil {
			return tp.Get()
		}
	}
	// Target died mid-flight: keep flying at the last heading.
	return c.position.Get().Add(c.position.Forward().Scale(c.speed))
}

func (c *ProjectileComponent) Update(dt float32) {
	if !c.launched || c.exploded || c.position == nil {
		return
	}

	switch c.behavior {
	case ProjectileSeeking:
		dir := c.position.DirectionTo(c.targetPosition()).Normalized()
		c.position.SetForward(dir)
		c.position.Set(c.position.Get().Add(dir.Scale(c.speed * dt)))
	case ProjectileBallistic:
		c.velocity.Y -= projectileGravity * dt
		c.position.Set(c.position.Get().Add(c.velocity.Scale(dt)))
		if c.velocity.LengthSq() > 1e-6 {
			c.position.SetForward(c.velocity.Normalized())
		}
	default:
		forward := c.position.Forward()
		c.position.Set(c.position.Get().Add(forward.Scale(c.speed * dt)))
	}

	c.checkImpact()
}

// checkImpact detonates on the first damageable entity whose selection
// radius sphere we entered, or on the terrain surface.
func (c *ProjectileComponent) checkImpact() {
	pos := c.position.Get()
	mgr := c.entity.mgr

	for _, other := range mgr.EntitiesNear(pos, maxHitQueryRadius, c.entity.id) {
		if other.ID() == c.shooter {
			continue
		}
		if DamageableOf(other) == nil {
			continue
		}
		sel := SelectableOf(other)
		if sel == nil {
			continue
		}
		op := PositionOf(other)
		d := c.position.DirectionTo(op.Get())
		if d.Length() <= sel.SelectionRadius() {
			c.explode(other)
			return
		}
	}

	terrainY := mgr.World().Terrain.HeightAt(pos.X, pos.Z)
	if pos.Y <= terrainY {
		c.explode(nil)
	}
}

func (c *ProjectileComponent) explode(victim *Entity) {
	if c.exploded {
		return
	}
	c.exploded = true

	if victim != nil {
		applyDamage(victim, c.damage)
	}
	// Zero our own health; Damageable takes it from here.
	c.entity.SetAttribute("health", FloatAttr(0))
}

// applyDamage subtracts from an entity's health attribute. The entity's
// Damageable watches the attribute and reacts when it reaches zero.
func applyDamage(e *Entity, damage float32) {
	health := float32(0)
	if a, ok := e.Attribute("health"); ok {
		health = a.AsFloat()
	}
	e.SetAttribute("health", FloatAttr(health-damage))
}
