package game

// Component is one capability attached to an entity. Lifecycle:
// ApplyTemplate configures it from its template parameter table while the
// entity is still being assembled; Initialize runs once all components
// are attached and may resolve siblings; Update runs once per tick in
// fixed kind order.
type Component interface {
	Kind() ComponentKind
	ApplyTemplate(t Table) error
	Initialize()
	Update(dt float32)

	setEntity(e *Entity)
}

// ownerObserver is implemented by components that care when the entity
// changes hands. Ownable raises the signal to every sibling.
type ownerObserver interface {
	OwnerChanged(p Player)
}

// baseComponent carries the entity back-reference every component needs.
// The manager guarantees the entity outlives its components, so the
// pointer never dangles.
type baseComponent struct {
	entity *Entity
}

func (b *baseComponent) setEntity(e *Entity) { b.entity = e }

// Entity returns the owning entity.
func (b *baseComponent) Entity() *Entity { return b.entity }

// newComponent instantiates an empty component by kind.
func newComponent(kind ComponentKind) Component {
	switch kind {
	case KindPosition:
		return &PositionComponent{}
	case KindOwnable:
		return &OwnableComponent{}
	case KindSelectable:
		return &SelectableComponent{}
	case KindDamageable:
		return &DamageableComponent{}
	case KindOrderable:
		return &OrderableComponent{}
	case KindBuilder:
		return &BuilderComponent{}
	case KindWeapon:
		return &WeaponComponent{}
	case KindPathing:
		return &PathingComponent{}
	case KindMoveable:
		return &MoveableComponent{}
	case KindProjectile:
		return &ProjectileComponent{}
	case KindAudio:
		return &AudioComponent{}
	case KindParticleEffect:
		return &ParticleEffectComponent{}
	default:
		return nil
	}
}
