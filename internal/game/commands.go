package game

import (
	"fmt"
	"log"

	"ravaged-planets/internal/errs"
	"ravaged-planets/internal/vector"
	"ravaged-planets/internal/wire"
)

// Command identifiers — the byte that prefixes a serialized command body.
const (
	CommandCreateEntity  uint8 = 1
	CommandOrder         uint8 = 2
	CommandConnectPlayer uint8 = 3
)

// Command is a global simulation intent. Commands are the only inputs the
// lockstep schedule accepts: posted on one peer, transmitted to all,
// executed by everyone on the same turn. Each carries the number of the
// player that issued it.
type Command interface {
	CommandID() uint8
	Player() uint8
	SetPlayer(no uint8)
	Marshal(w *wire.Writer)
	Unmarshal(r *wire.Reader) error
	Execute(sim *Simulation)
	String() string
}

// baseCommand carries the issuing player number.
type baseCommand struct {
	playerNo uint8
}

func (b *baseCommand) Player() uint8      { return b.playerNo }
func (b *baseCommand) SetPlayer(no uint8) { b.playerNo = no }

// NewCommandByID rehydrates an empty command from its identifier byte.
func NewCommandByID(id uint8) (Command, error) {
	switch id {
	case CommandCreateEntity:
		return &CreateEntityCommand{}, nil
	case CommandOrder:
		return &OrderCommand{}, nil
	case CommandConnectPlayer:
		return &ConnectPlayerCommand{}, nil
	default:
		return nil, errs.New(errs.KindProtocol, "unknown command id %d", id)
	}
}

// EncodeCommand serializes a command (id byte, player byte, body) for a
// CommandBatch packet.
func EncodeCommand(c Command) []byte {
	w := wire.NewWriter()
	w.PutU8(c.CommandID())
	w.PutU8(c.Player())
	c.Marshal(w)
	return w.Bytes()
}

// DecodeCommand parses a serialized command.
func DecodeCommand(data []byte) (Command, error) {
	r := wire.NewReader(data)
	c, err := NewCommandByID(r.U8())
	if err != nil {
		return nil, err
	}
	c.SetPlayer(r.U8())
	if err := c.Unmarshal(r); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateEntityCommand spawns a new entity on every peer. The id was
// allocated by the issuing peer and is used verbatim everywhere.
type CreateEntityCommand struct {
	baseCommand

	ID       EntityID
	Template string
	Pos      vector.Vec3
	Goal     vector.Vec3
}

func (c *CreateEntityCommand) CommandID() uint8 { return CommandCreateEntity }

func (c *CreateEntityCommand) Marshal(w *wire.Writer) {
	w.PutU32(uint32(c.ID))
	w.PutString(c.Template)
	w.PutVector(c.Pos)
	w.PutVector(c.Goal)
}

func (c *CreateEntityCommand) Unmarshal(r *wire.Reader) error {
	c.ID = EntityID(r.U32())
	c.Template = r.String()
	c.Pos = r.Vector()
	c.Goal = r.Vector()
	return r.Err()
}

func (c *CreateEntityCommand) Execute(sim *Simulation) {
	e, err := sim.Entities().CreateEntity(c.Template, c.ID)
	if err != nil {
		log.Printf("game: create %q as %v failed: %v", c.Template, c.ID, err)
		return
	}
	if pos := PositionOf(e); pos != nil {
		pos.Set(c.Pos)
		pos.Resolve()
	}
	if c.Goal != c.Pos {
		if moveable := MoveableOf(e); moveable != nil {
			moveable.SetGoal(c.Goal)
		}
	}
}

func (c *CreateEntityCommand) String() string {
	return fmt.Sprintf("create %q as %v at (%g, %g, %g)", c.Template, c.ID, c.Pos.X, c.Pos.Y, c.Pos.Z)
}

// OrderCommand delivers an order to an entity's Orderable on every peer.
type OrderCommand struct {
	baseCommand

	Entity EntityID
	Order  Order
}

func (c *OrderCommand) CommandID() uint8 { return CommandOrder }

func (c *OrderCommand) Marshal(w *wire.Writer) {
	w.PutU32(uint32(c.Entity))
	EncodeOrder(w, c.Order)
}

func (c *OrderCommand) Unmarshal(r *wire.Reader) error {
	c.Entity = EntityID(r.U32())
	o, err := DecodeOrder(r)
	if err != nil {
		return err
	}
	c.Order = o
	return r.Err()
}

func (c *OrderCommand) Execute(sim *Simulation) {
	e := sim.Entities().Get(c.Entity)
	if e == nil {
		// The entity died during the K-turn flight; nothing to do.
		return
	}
	if orderable := OrderableOf(e); orderable != nil {
		orderable.ExecuteOrder(c.Order)
	}
}

func (c *OrderCommand) String() string {
	return fmt.Sprintf("order %v: %v", c.Entity, c.Order)
}

// ConnectPlayerCommand announces the issuing player to the simulation on
// every peer; it marks the player ready for the turn schedule.
type ConnectPlayerCommand struct {
	baseCommand
}

func (c *ConnectPlayerCommand) CommandID() uint8 { return CommandConnectPlayer }

func (c *ConnectPlayerCommand) Marshal(w *wire.Writer) {}

func (c *ConnectPlayerCommand) Unmarshal(r *wire.Reader) error { return r.Err() }

func (c *ConnectPlayerCommand) Execute(sim *Simulation) {
	sim.markPlayerConnected(c.Player())
}

func (c *ConnectPlayerCommand) String() string {
	return fmt.Sprintf("connect player %d", c.Player())
}
