package game

import (
	"sync"

	"ravaged-planets/internal/game/pathfind"
	"ravaged-planets/internal/vector"
)

// waypointReached is how close the entity must get before the pathing
// component advances to the next waypoint.
const waypointReached = 1.0

// PathingComponent asks the pathfinder worker for routes and feeds the
// resulting polyline to the Moveable one waypoint at a time.
//
// The worker invokes the result callback on its own goroutine; the path
// lands in a mutex-guarded slot and is adopted at the component's next
// Update on the simulation thread. A superseded request just overwrites
// the slot before anything adopted it.
type PathingComponent struct {
	baseComponent

	mu      sync.Mutex
	newPath []vector.Vec3
	hasNew  bool

	path    []vector.Vec3
	index   int
	waiting bool

	position *PositionComponent
	moveable *MoveableComponent
}

func (c *PathingComponent) Kind() ComponentKind { return KindPathing }

func (c *PathingComponent) ApplyTemplate(t Table) error { return nil }

func (c *PathingComponent) Initialize() {
	c.position = PositionOf(c.entity)
	c.moveable = MoveableOf(c.entity)
}

// RequestPath asks the worker for a route from the entity's position to
// the goal. Without a worker (bare store tests) the goal goes straight to
// the Moveable.
func (c *PathingComponent) RequestPath(goal vector.Vec3) {
	sim := c.entity.mgr.Sim()
	if sim == nil || sim.Pathfinder() == nil || c.position == nil {
		if c.moveable != nil {
			c.moveable.SetGoal(goal)
		}
		return
	}
	c.waiting = true
	c.path = nil
	c.index = 0
	sim.Pathfinder().Enqueue(pathfind.Request{
		Start: c.position.Get(),
		Goal:  goal,
		Callback: func(path []vector.Vec3) {
			c.mu.Lock()
			c.newPath = path
			c.hasNew = true
			c.mu.Unlock()
		},
	})
}

// IsFollowing reports whether waypoints remain on the current path.
func (c *PathingComponent) IsFollowing() bool {
	return c.index < len(c.path)
}

// IsActive reports whether the component is busy: either waiting on the
// worker or still walking a path. An unreachable goal comes back as an
// empty path, which deactivates immediately.
func (c *PathingComponent) IsActive() bool {
	return c.waiting || c.IsFollowing()
}

// Path returns the current polyline for the debug view.
func (c *PathingComponent) Path() []vector.Vec3 { return c.path }

// Stop drops the current path.
func (c *PathingComponent) Stop() {
	c.path = nil
	c.index = 0
	c.waiting = false
	if c.moveable != nil {
		c.moveable.ClearGoal()
	}
}

func (c *PathingComponent) Update(dt float32) {
	c.mu.Lock()
	if c.hasNew {
		c.path = c.newPath
		c.index = 0
		c.newPath = nil
		c.hasNew = false
		c.waiting = false
	}
	c.mu.Unlock()

	if !c.IsFollowing() || c.position == nil || c.moveable == nil {
		return
	}

	wp := c.path[c.index]
	if c.position.DistanceTo(wp) <= waypointReached {
		c.index++
		if !c.IsFollowing() {
			c.moveable.ClearGoal()
			return
		}
		wp = c.path[c.index]
	}
	c.moveable.SetGoal(wp)
}
