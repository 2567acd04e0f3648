package game

import (
	"fmt"
	"sort"
)

// EntityID identifies an entity for its whole life. The high byte is the
// owning player number (1..255); the low 24 bits are a per-player
// monotonically increasing counter, so ids are never reused and a bare id
// works as a weak reference — lookups just return nil once the entity is
// gone.
type EntityID uint32

// MakeEntityID packs an owning player and counter into an id.
func MakeEntityID(playerNo uint8, counter uint32) EntityID {
	return EntityID(uint32(playerNo)<<24 | counter&0xffffff)
}

// PlayerNo returns the owning player number encoded in the id.
func (id EntityID) PlayerNo() uint8 { return uint8(id >> 24) }

// Counter returns the per-player creation counter.
func (id EntityID) Counter() uint32 { return uint32(id) & 0xffffff }

func (id EntityID) String() string {
	return fmt.Sprintf("%d:%d", id.PlayerNo(), id.Counter())
}

// Debug-visualization flag bits.
const (
	DebugShowSteering uint32 = 1 << iota
	DebugShowPath
	DebugShowSelectionRadius
)

// Entity is one simulated object: at most one component per kind, a
// dynamically-typed attribute map, and the tick it was created on. The
// EntityManager owns every entity exclusively; components hold a
// back-reference that the manager guarantees outlives them.
type Entity struct {
	id       EntityID
	mgr      *EntityManager
	template string

	components []Component // sorted by kind; doubles as update order
	byKind     map[ComponentKind]Component

	attrNames []string // insertion order, for deterministic iteration
	attrs     map[string]Attribute
	watchers  map[string][]func(Attribute)

	creationTick uint32
	debugFlags   uint32
}

func newEntity(mgr *EntityManager, id EntityID, template string, tick uint32) *Entity {
	return &Entity{
		id:           id,
		mgr:          mgr,
		template:     template,
		byKind:       make(map[ComponentKind]Component),
		attrs:        make(map[string]Attribute),
		creationTick: tick,
	}
}

// ID returns the entity's id.
func (e *Entity) ID() EntityID { return e.id }

// Template returns the name of the template the entity was built from.
func (e *Entity) Template() string { return e.template }

// Manager returns the owning entity manager.
func (e *Entity) Manager() *EntityManager { return e.mgr }

// CreationTick returns the simulation turn the entity was created on.
func (e *Entity) CreationTick() uint32 { return e.creationTick }

// Age returns the entity's age in turns at the given turn.
func (e *Entity) Age(turn uint32) uint32 { return turn - e.creationTick }

// DebugFlags returns the debug-visualization flag bits.
func (e *Entity) DebugFlags() uint32 { return e.debugFlags }

// SetDebugFlags replaces the debug-visualization flag bits.
func (e *Entity) SetDebugFlags(flags uint32) { e.debugFlags = flags }

// attach adds a component. At most one component per kind; a duplicate is
// a template bug and is rejected.
func (e *Entity) attach(c Component) bool {
	kind := c.Kind()
	if _, exists := e.byKind[kind]; exists {
		return false
	}
	e.byKind[kind] = c
	e.components = append(e.components, c)
	sort.Slice(e.components, func(i, j int) bool {
		return e.components[i].Kind() < e.components[j].Kind()
	})
	c.setEntity(e)
	return true
}

// Component returns the component of the given kind, or nil.
func (e *Entity) Component(kind ComponentKind) Component {
	return e.byKind[kind]
}

// update runs every component once, in kind order.
func (e *Entity) update(dt float32) {
	for _, c := range e.components {
		c.Update(dt)
	}
}

// Attribute returns the named attribute.
func (e *Entity) Attribute(name string) (Attribute, bool) {
	a, ok := e.attrs[name]
	return a, ok
}

// SetAttribute writes an attribute and notifies its watchers.
func (e *Entity) SetAttribute(name string, a Attribute) {
	if _, exists := e.attrs[name]; !exists {
		e.attrNames = append(e.attrNames, name)
	}
	e.attrs[name] = a
	for _, fn := range e.watchers[name] {
		fn(a)
	}
}

// WatchAttribute subscribes to writes of the named attribute. Watchers
// run on the simulation thread, synchronously inside SetAttribute.
func (e *Entity) WatchAttribute(name string, fn func(Attribute)) {
	if e.watchers == nil {
		e.watchers = make(map[string][]func(Attribute))
	}
	e.watchers[name] = append(e.watchers[name], fn)
}

// AttributeNames returns attribute names in insertion order.
func (e *Entity) AttributeNames() []string { return e.attrNames }

// Typed sibling accessors. Components resolve each other through these in
// Initialize, after all components are attached.

// PositionOf returns the entity's Position component, or nil.
func PositionOf(e *Entity) *PositionComponent {
	c, _ := e.Component(KindPosition).(*PositionComponent)
	return c
}

// MoveableOf returns the entity's Moveable component, or nil.
func MoveableOf(e *Entity) *MoveableComponent {
	c, _ := e.Component(KindMoveable).(*MoveableComponent)
	return c
}

// PathingOf returns the entity's Pathing component, or nil.
func PathingOf(e *Entity) *PathingComponent {
	c, _ := e.Component(KindPathing).(*PathingComponent)
	return c
}

// OrderableOf returns the entity's Orderable component, or nil.
func OrderableOf(e *Entity) *OrderableComponent {
	c, _ := e.Component(KindOrderable).(*OrderableComponent)
	return c
}

// BuilderOf returns the entity's Builder component, or nil.
func BuilderOf(e *Entity) *BuilderComponent {
	c, _ := e.Component(KindBuilder).(*BuilderComponent)
	return c
}

// WeaponOf returns the entity's Weapon component, or nil.
func WeaponOf(e *Entity) *WeaponComponent {
	c, _ := e.Component(KindWeapon).(*WeaponComponent)
	return c
}

// OwnableOf returns the entity's Ownable component, or nil.
func OwnableOf(e *Entity) *OwnableComponent {
	c, _ := e.Component(KindOwnable).(*OwnableComponent)
	return c
}

// DamageableOf returns the entity's Damageable component, or nil.
func DamageableOf(e *Entity) *DamageableComponent {
	c, _ := e.Component(KindDamageable).(*DamageableComponent)
	return c
}

// SelectableOf returns the entity's Selectable component, or nil.
func SelectableOf(e *Entity) *SelectableComponent {
	c, _ := e.Component(KindSelectable).(*SelectableComponent)
	return c
}

// ProjectileOf returns the entity's Projectile component, or nil.
func ProjectileOf(e *Entity) *ProjectileComponent {
	c, _ := e.Component(KindProjectile).(*ProjectileComponent)
	return c
}
