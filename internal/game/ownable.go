package game

import (
	"ravaged-planets/internal/errs"
	"ravaged-planets/internal/vector"
)

// OwnableComponent binds the entity to a Player and carries that player's
// color for rendering. Changing the owner raises an owner_changed signal
// on every sibling component that cares.
type OwnableComponent struct {
	baseComponent

	owner Player
	color vector.Color
}

func (c *OwnableComponent) Kind() ComponentKind { return KindOwnable }

func (c *OwnableComponent) ApplyTemplate(t Table) error { return nil }

// Initialize resolves the owner from the player number baked into the
// entity id. In a bare store (no simulation) the owner stays nil and the
// id byte alone carries ownership.
func (c *OwnableComponent) Initialize() {
	sim := c.entity.mgr.Sim()
	if sim == nil {
		return
	}
	if p := sim.PlayerByNo(c.entity.id.PlayerNo()); p != nil {
		c.owner = p
		c.color = p.Color()
	}
}

func (c *OwnableComponent) Update(dt float32) {}

// Owner returns the owning player (nil when the player has left).
func (c *OwnableComponent) Owner() Player { return c.owner }

// OwnerNo returns the owning player number, which always matches the
// entity id's high byte.
func (c *OwnableComponent) OwnerNo() uint8 { return c.entity.id.PlayerNo() }

// Color returns the owner's color.
func (c *OwnableComponent) Color() vector.Color { return c.color }

// SetOwner reassigns the entity to a player and signals the siblings.
// The entity id keeps its original creator byte; ownership transfer is a
// gameplay-level notion.
func (c *OwnableComponent) SetOwner(p Player) error {
	if p == nil {
		return errs.New(errs.KindInvariant, "entity %v: nil owner", c.entity.id)
	}
	c.owner = p
	c.color = p.Color()
	for _, sibling := range c.entity.components {
		if obs, ok := sibling.(ownerObserver); ok && sibling != Component(c) {
			obs.OwnerChanged(p)
		}
	}
	return nil
}
