package game

import (
	"fmt"

	"ravaged-planets/internal/errs"
	"ravaged-planets/internal/vector"
	"ravaged-planets/internal/wire"
)

// Order identifiers — the byte that prefixes a serialized order body.
const (
	OrderMove   uint8 = 1
	OrderAttack uint8 = 2
	OrderBuild  uint8 = 3
)

// moveOrderArrived is the completion distance of a move order: √1.1, a
// little over one world unit.
var moveOrderArrived = vector.Sqrt(1.1)

// Order is a per-entity intent. Orders never execute where they are
// issued; the Orderable wraps them in an OrderCommand, and every peer —
// the issuer included — begins them when the command comes back through
// the lockstep schedule.
type Order interface {
	OrderID() uint8
	Marshal(w *wire.Writer)
	Unmarshal(r *wire.Reader) error

	Begin(e *Entity)
	Update(e *Entity, dt float32)
	IsComplete(e *Entity) bool
	String() string
}

// NewOrderByID rehydrates an empty order from its identifier byte.
func NewOrderByID(id uint8) (Order, error) {
	switch id {
	case OrderMove:
		return &MoveOrder{}, nil
	case OrderAttack:
		return &AttackOrder{}, nil
	case OrderBuild:
		return &BuildOrder{}, nil
	default:
		return nil, errs.New(errs.KindProtocol, "unknown order id %d", id)
	}
}

// EncodeOrder serializes an order with its id prefix.
func EncodeOrder(w *wire.Writer, o Order) {
	w.PutU8(o.OrderID())
	o.Marshal(w)
}

// DecodeOrder reads an id-prefixed order.
func DecodeOrder(r *wire.Reader) (Order, error) {
	o, err := NewOrderByID(r.U8())
	if err != nil {
		return nil, err
	}
	if err := o.Unmarshal(r); err != nil {
		return nil, err
	}
	return o, nil
}

// MoveOrder sends the entity to a goal position, routing through the
// pathfinder when the entity has a Pathing component.
type MoveOrder struct {
	Goal vector.Vec3
}

func (o *MoveOrder) OrderID() uint8 { return OrderMove }

func (o *MoveOrder) Marshal(w *wire.Writer) { w.PutVector(o.Goal) }

func (o *MoveOrder) Unmarshal(r *wire.Reader) error {
	o.Goal = r.Vector()
	return r.Err()
}

func (o *MoveOrder) Begin(e *Entity) {
	if pathing := PathingOf(e); pathing != nil {
		pathing.RequestPath(o.Goal)
		return
	}
	if moveable := MoveableOf(e); moveable != nil {
		moveable.SetGoal(o.Goal)
	}
}

func (o *MoveOrder) Update(e *Entity, dt float32) {}

func (o *MoveOrder) IsComplete(e *Entity) bool {
	pos := PositionOf(e)
	if pos == nil {
		return true
	}
	if pos.DistanceTo(o.Goal) <= moveOrderArrived {
		return true
	}
	if pathing := PathingOf(e); pathing != nil {
		return !pathing.IsActive()
	}
	if moveable := MoveableOf(e); moveable != nil {
		return !moveable.IsMoving()
	}
	return true
}

func (o *MoveOrder) String() string {
	return fmt.Sprintf("move to (%g, %g, %g)", o.Goal.X, o.Goal.Y, o.Goal.Z)
}

// AttackOrder points the entity's weapon at a target until either side is
// gone.
type AttackOrder struct {
	Target EntityID
}

func (o *AttackOrder) OrderID() uint8 { return OrderAttack }

func (o *AttackOrder) Marshal(w *wire.Writer) { w.PutU32(uint32(o.Target)) }

func (o *AttackOrder) Unmarshal(r *wire.Reader) error {
	o.Target = EntityID(r.U32())
	return r.Err()
}

func (o *AttackOrder) Begin(e *Entity) {
	if weapon := WeaponOf(e); weapon != nil {
		weapon.SetTarget(o.Target)
	}
}

func (o *AttackOrder) Update(e *Entity, dt float32) {}

func (o *AttackOrder) IsComplete(e *Entity) bool {
	if WeaponOf(e) == nil {
		return true
	}
	return e.mgr.Get(o.Target) == nil
}

func (o *AttackOrder) String() string {
	return fmt.Sprintf("attack %v", o.Target)
}

// BuildOrder starts the entity's Builder on a template.
type BuildOrder struct {
	Template string
}

func (o *BuildOrder) OrderID() uint8 { return OrderBuild }

func (o *BuildOrder) Marshal(w *wire.Writer) { w.PutString(o.Template) }

func (o *BuildOrder) Unmarshal(r *wire.Reader) error {
	o.Template = r.String()
	return r.Err()
}

func (o *BuildOrder) Begin(e *Entity) {
	if builder := BuilderOf(e); builder != nil {
		builder.StartBuild(o.Template)
	}
}

func (o *BuildOrder) Update(e *Entity, dt float32) {}

func (o *BuildOrder) IsComplete(e *Entity) bool {
	builder := BuilderOf(e)
	return builder == nil || !builder.IsBuilding()
}

func (o *BuildOrder) String() string {
	return fmt.Sprintf("build %q", o.Template)
}
