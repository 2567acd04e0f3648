package game

import (
	"testing"
	"time"

	"ravaged-planets/internal/vector"
)

// With a worker running, a move order on a pathing entity walks the
// simplified route and deactivates at the goal.
func TestPathingFollowsWorkerRoute(t *testing.T) {
	sim := newTestSim(t, 1)
	sim.StartPathfinder()
	defer sim.Stop()

	rover := mustCreate(t, sim, "rover", 1)
	pos := PositionOf(rover)
	pos.Set(vector.V3(5, 0, 5))
	pos.Resolve()

	pathing := PathingOf(rover)
	pathing.RequestPath(vector.V3(20, 0, 5))
	if !pathing.IsActive() {
		t.Fatal("component must be active while the request is in flight")
	}

	// The worker answers on its own goroutine; tick until the path is
	// adopted and walked.
	deadline := time.Now().Add(5 * time.Second)
	for pathing.IsActive() && time.Now().Before(deadline) {
		sim.Tick()
		time.Sleep(time.Millisecond)
	}
	if pathing.IsActive() {
		t.Fatal("route never completed")
	}
	if d := pos.DistanceTo(vector.V3(20, 0, 5)); d > 2 {
		t.Errorf("rover stopped %g units from the goal", d)
	}
}

// An unreachable goal resolves to an empty path: the component goes
// inactive and the move order completes instead of erroring.
func TestPathingUnreachableGoal(t *testing.T) {
	sim := newTestSim(t, 1)
	// Wall off the goal cell on the collision grid.
	c := sim.World().Collision
	for dz := -1; dz <= 1; dz++ {
		for dx := -1; dx <= 1; dx++ {
			if dx != 0 || dz != 0 {
				c.SetPassable(40+dx, 40+dz, false)
			}
		}
	}
	sim.StartPathfinder()
	defer sim.Stop()

	rover := mustCreate(t, sim, "rover", 1)
	pos := PositionOf(rover)
	pos.Set(vector.V3(5, 0, 5))
	pos.Resolve()

	pathing := PathingOf(rover)
	pathing.RequestPath(vector.V3(40, 0, 40))

	deadline := time.Now().Add(5 * time.Second)
	for pathing.IsActive() && time.Now().Before(deadline) {
		sim.Tick()
		time.Sleep(time.Millisecond)
	}
	if pathing.IsActive() {
		t.Fatal("unreachable goal must deactivate the component")
	}

	order := &MoveOrder{Goal: vector.V3(40, 0, 40)}
	if !order.IsComplete(rover) {
		t.Error("move order to an unreachable goal must read complete")
	}
}

// Without a simulation-attached worker the goal falls through to the
// Moveable directly.
func TestPathingFallsBackWithoutWorker(t *testing.T) {
	reg := testRegistry(t)
	mgr := NewEntityManager(flatWorld(t), reg)
	e, err := mgr.CreateEntity("rover", MakeEntityID(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	PathingOf(e).RequestPath(vector.V3(9, 0, 9))
	if goal, ok := MoveableOf(e).Goal(); !ok || goal != vector.V3(9, 0, 9) {
		t.Errorf("goal = %v, %v", goal, ok)
	}
}
