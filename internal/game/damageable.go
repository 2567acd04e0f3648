package game

import "log"

const (
	explosionRadius = 5.0
)

// DamageableComponent makes the entity mortal: it watches the health
// attribute and, when it drops to zero or below, destroys the entity —
// optionally spawning a named explosion entity in its place. If the
// component is flagged as exploding, its death also deals radius damage
// proportional to (5 − distance) to every damageable entity within five
// units.
type DamageableComponent struct {
	baseComponent

	explosionTemplate string
	explodes          bool
	dead              bool
}

func (c *DamageableComponent) Kind() ComponentKind { return KindDamageable }

func (c *DamageableComponent) ApplyTemplate(t Table) error {
	c.explosionTemplate = t.String("explosion", "")
	c.explodes = t.Bool("explodes", false)
	return nil
}

func (c *DamageableComponent) Initialize() {
	c.entity.WatchAttribute("health", func(a Attribute) {
		if a.AsFloat() <= 0 {
			c.die()
		}
	})
}

func (c *DamageableComponent) Update(dt float32) {}

// IsDead reports whether the death path already ran.
func (c *DamageableComponent) IsDead() bool { return c.dead }

func (c *DamageableComponent) die() {
	if c.dead {
		return
	}
	c.dead = true

	mgr := c.entity.mgr
	pos := PositionOf(c.entity)

	if c.explodes && pos != nil {
		c.applyRadiusDamage(pos)
	}

	if c.explosionTemplate != "" && pos != nil {
		id, err := mgr.AllocateID(c.entity.id.PlayerNo())
		if err == nil {
			if boom, err := mgr.CreateEntity(c.explosionTemplate, id); err != nil {
				log.Printf("game: explosion %q for %v: %v", c.explosionTemplate, c.entity.id, err)
			} else if bpos := PositionOf(boom); bpos != nil {
				bpos.Set(pos.Get())
			}
		}
	}

	mgr.Destroy(c.entity.id)
}

// applyRadiusDamage hurts every damageable neighbor, scaled by how close
// it stands: (explosionRadius − distance) damage at the blast center's
// scale.
func (c *DamageableComponent) applyRadiusDamage(pos *PositionComponent) {
	for _, other := range c.entity.mgr.EntitiesNear(pos.Get(), explosionRadius, c.entity.id) {
		if DamageableOf(other) == nil {
			continue
		}
		op := PositionOf(other)
		if op == nil {
			continue
		}
		dist := pos.DistanceTo(op.Get())
		if dist >= explosionRadius {
			continue
		}
		applyDamage(other, explosionRadius-dist)
	}
}
