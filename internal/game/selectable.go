package game

import "ravaged-planets/internal/vector"

// SelectableComponent marks an entity the player can pick. The selection
// radius does double duty: mouse hit-testing in the UI and the hit sphere
// projectiles detonate against.
type SelectableComponent struct {
	baseComponent

	radius    float32
	selected  bool
	highlight vector.Color
	hasHl     bool
}

func (c *SelectableComponent) Kind() ComponentKind { return KindSelectable }

func (c *SelectableComponent) ApplyTemplate(t Table) error {
	c.radius = t.Float("selection_radius", 1)
	return nil
}

func (c *SelectableComponent) Initialize() {}

func (c *SelectableComponent) Update(dt float32) {}

// SelectionRadius returns the pick/hit radius.
func (c *SelectableComponent) SelectionRadius() float32 { return c.radius }

// IsSelected reports whether the entity is in the selection set.
func (c *SelectableComponent) IsSelected() bool { return c.selected }

// SetSelected flips the selected flag. The manager's selection set is the
// authority; it calls this on add/remove.
func (c *SelectableComponent) SetSelected(selected bool) { c.selected = selected }

// SetHighlight gives the entity a highlight color until cleared.
func (c *SelectableComponent) SetHighlight(col vector.Color) {
	c.highlight = col
	c.hasHl = true
}

// ClearHighlight removes the highlight.
func (c *SelectableComponent) ClearHighlight() { c.hasHl = false }

// Highlight returns the highlight color; ok is false when unset.
func (c *SelectableComponent) Highlight() (vector.Color, bool) {
	return c.highlight, c.hasHl
}

// OwnerChanged retints the highlight when the entity changes hands.
func (c *SelectableComponent) OwnerChanged(p Player) {
	if c.hasHl {
		c.highlight = p.Color()
	}
}
