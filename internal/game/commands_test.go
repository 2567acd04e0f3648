package game

import (
	"testing"

	"ravaged-planets/internal/vector"
)

func TestCommandRoundTrip(t *testing.T) {
	cmds := []Command{
		&CreateEntityCommand{
			ID:       MakeEntityID(2, 9),
			Template: "scout",
			Pos:      vector.V3(1, 2, 3),
			Goal:     vector.V3(4, 5, 6),
		},
		&OrderCommand{
			Entity: MakeEntityID(1, 4),
			Order:  &MoveOrder{Goal: vector.V3(7, 0, 9)},
		},
		&OrderCommand{
			Entity: MakeEntityID(1, 5),
			Order:  &AttackOrder{Target: MakeEntityID(2, 1)},
		},
		&ConnectPlayerCommand{},
	}
	for _, c := range cmds {
		t.Run(c.String(), func(t *testing.T) {
			c.SetPlayer(3)
			got, err := DecodeCommand(EncodeCommand(c))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.CommandID() != c.CommandID() {
				t.Fatalf("id = %d, want %d", got.CommandID(), c.CommandID())
			}
			if got.Player() != 3 {
				t.Fatalf("player = %d, want 3", got.Player())
			}
			switch want := c.(type) {
			case *CreateEntityCommand:
				g := got.(*CreateEntityCommand)
				if g.ID != want.ID || g.Template != want.Template || g.Pos != want.Pos || g.Goal != want.Goal {
					t.Errorf("round trip mismatch: %+v vs %+v", g, want)
				}
			case *OrderCommand:
				g := got.(*OrderCommand)
				if g.Entity != want.Entity || g.Order.OrderID() != want.Order.OrderID() {
					t.Errorf("round trip mismatch: %+v vs %+v", g, want)
				}
			}
		})
	}
}

func TestDecodeCommandUnknownID(t *testing.T) {
	if _, err := DecodeCommand([]byte{200, 1}); err == nil {
		t.Fatal("unknown command id must fail")
	}
}

func TestCreateEntityCommandExecute(t *testing.T) {
	sim := newTestSim(t, 1)
	cmd := &CreateEntityCommand{
		ID:       MakeEntityID(1, 42),
		Template: "scout",
		Pos:      vector.V3(20, 0, 20),
		Goal:     vector.V3(30, 0, 20),
	}
	cmd.SetPlayer(1)
	cmd.Execute(sim)

	e := sim.Entities().Get(MakeEntityID(1, 42))
	if e == nil {
		t.Fatal("entity not created")
	}
	pos := PositionOf(e).Get()
	if pos.X != 20 || pos.Z != 20 {
		t.Errorf("position = %v", pos)
	}
	if goal, ok := MoveableOf(e).Goal(); !ok || goal.X != 30 {
		t.Errorf("goal = %v, %v", goal, ok)
	}
	// The id's owner byte must match the Ownable's owner.
	if own := OwnableOf(e); own.OwnerNo() != e.ID().PlayerNo() {
		t.Errorf("owner %d != id byte %d", own.OwnerNo(), e.ID().PlayerNo())
	}
}

func TestOrderCommandForDeadEntityIsNoop(t *testing.T) {
	sim := newTestSim(t, 1)
	cmd := &OrderCommand{Entity: MakeEntityID(1, 999), Order: &MoveOrder{Goal: vector.V3(1, 0, 1)}}
	cmd.SetPlayer(1)
	cmd.Execute(sim) // must not panic
}

func TestConnectPlayerCommandMarksReady(t *testing.T) {
	sim := newTestSim(t, 1)
	p := sim.PlayerByNo(1)
	p.SetReady(false)
	cmd := &ConnectPlayerCommand{}
	cmd.SetPlayer(1)
	cmd.Execute(sim)
	if !p.IsReady() {
		t.Error("connect command must mark the player ready")
	}
}
