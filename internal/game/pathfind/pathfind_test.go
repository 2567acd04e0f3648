package pathfind

import (
	"sync"
	"testing"

	"ravaged-planets/internal/vector"
	"ravaged-planets/internal/world"
)

func openGrid(t *testing.T) *world.CollisionBitmap {
	t.Helper()
	return world.NewCollisionBitmap(64, 64)
}

// wallGrid blocks a vertical wall at x=5 from z=-2..2 (wrapped), leaving
// the rest open — the classic route-around fixture.
func wallGrid(t *testing.T) *world.CollisionBitmap {
	t.Helper()
	c := world.NewCollisionBitmap(64, 64)
	for z := -2; z <= 2; z++ {
		c.SetPassable(5, z, false)
	}
	return c
}

func TestFindStraightLine(t *testing.T) {
	pf := New(openGrid(t))
	path := pf.Find(vector.V3(1, 0, 1), vector.V3(10, 0, 1))
	if len(path) == 0 {
		t.Fatal("open grid must yield a path")
	}
	last := path[len(path)-1]
	if int(last.X) != 10 || int(last.Z) != 1 {
		t.Errorf("path ends at %v, want cell (10,1)", last)
	}
}

func TestFindUnreachableGoal(t *testing.T) {
	c := openGrid(t)
	// Wall the goal in completely.
	for dz := -1; dz <= 1; dz++ {
		for dx := -1; dx <= 1; dx++ {
			if dx != 0 || dz != 0 {
				c.SetPassable(30+dx, 30+dz, false)
			}
		}
	}
	pf := New(c)
	if path := pf.Find(vector.V3(1, 0, 1), vector.V3(30, 0, 30)); len(path) != 0 {
		t.Errorf("unreachable goal returned %d waypoints, want empty", len(path))
	}
}

func TestFindRoutesAroundWall(t *testing.T) {
	pf := New(wallGrid(t))
	path := pf.Find(vector.V3(0, 0, 0), vector.V3(10, 0, 0))
	if len(path) == 0 {
		t.Fatal("wall is not sealed; a path must exist")
	}
	// No waypoint may stand on a blocked cell.
	for _, wp := range path {
		if !pf.bitmap.Passable(int(wp.X), int(wp.Z)) {
			t.Fatalf("waypoint %v is on a blocked cell", wp)
		}
	}

	simplified := pf.Simplify(path)
	if len(simplified) < 3 {
		t.Errorf("route around a wall simplifies to %d points, want >= 3", len(simplified))
	}
	for i := 1; i < len(simplified); i++ {
		if !pf.LineTraversable(simplified[i-1], simplified[i]) {
			t.Fatalf("segment %v -> %v crosses blocked cells", simplified[i-1], simplified[i])
		}
	}
}

func TestSimplifyCollapsesStraightRuns(t *testing.T) {
	pf := New(openGrid(t))
	path := pf.Find(vector.V3(1, 0, 1), vector.V3(20, 0, 1))
	simplified := pf.Simplify(path)
	if len(simplified) != 2 {
		t.Errorf("straight run simplifies to %d points, want 2", len(simplified))
	}
}

func TestSimplifiedPathStaysTraversable(t *testing.T) {
	pf := New(wallGrid(t))
	starts := []vector.Vec3{
		vector.V3(0, 0, 0),
		vector.V3(2, 0, 10),
		vector.V3(60, 0, 60), // exercises the wrap
	}
	goal := vector.V3(10, 0, 0)
	for _, start := range starts {
		path := pf.Simplify(pf.Find(start, goal))
		if len(path) == 0 {
			t.Fatalf("no path from %v", start)
		}
		for i := 1; i < len(path); i++ {
			if !pf.LineTraversable(path[i-1], path[i]) {
				t.Fatalf("from %v: segment %v -> %v not traversable", start, path[i-1], path[i])
			}
		}
	}
}

func TestFindIsDeterministic(t *testing.T) {
	pf := New(wallGrid(t))
	first := pf.Find(vector.V3(0, 0, 0), vector.V3(10, 0, 0))
	for i := 0; i < 5; i++ {
		again := pf.Find(vector.V3(0, 0, 0), vector.V3(10, 0, 0))
		if len(again) != len(first) {
			t.Fatalf("run %d: %d waypoints, first run had %d", i, len(again), len(first))
		}
		for j := range again {
			if again[j] != first[j] {
				t.Fatalf("run %d differs at waypoint %d: %v vs %v", i, j, again[j], first[j])
			}
		}
	}
}

func TestWorkerServesRequests(t *testing.T) {
	pf := New(openGrid(t))
	w := NewWorker(pf)
	w.Start()
	defer w.Stop()

	var wg sync.WaitGroup
	results := make([][]vector.Vec3, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		idx := i
		ok := w.Enqueue(Request{
			Start: vector.V3(1, 0, 1),
			Goal:  vector.V3(20, 0, float32(idx*3)),
			Callback: func(path []vector.Vec3) {
				results[idx] = path
				wg.Done()
			},
		})
		if !ok {
			t.Fatalf("request %d dropped", idx)
		}
	}
	wg.Wait()
	for i, path := range results {
		if len(path) == 0 {
			t.Errorf("request %d returned no path", i)
		}
	}
}

func TestWorkerStopDrains(t *testing.T) {
	pf := New(openGrid(t))
	w := NewWorker(pf)
	w.Start()
	w.Stop() // must return, not hang
}
