// Package pathfind runs A* over the world collision bitmap.
//
// One PathFind instance owns a reusable node array sized to the grid; open
// and closed membership is stamped with a per-run sequence number so no
// per-request allocation or clearing is needed. A single worker goroutine
// consumes requests and invokes callbacks; see worker.go.
package pathfind

import (
	"math"

	"ravaged-planets/internal/vector"
	"ravaged-planets/internal/world"
)

const sqrt2 = float32(math.Sqrt2)

// node is one grid cell's A* state. The run stamps replace explicit
// open/closed sets: a node counts as visited only when its stamp matches
// the current run.
type node struct {
	g         float32
	f         float32
	parent    int32
	openRun   uint32
	closedRun uint32
	heapIdx   int32
}

// PathFind finds paths on a 4-connected collision grid, expanding all 8
// neighbors (straight moves cost 1, diagonals √2) with a Manhattan
// heuristic. The grid wraps on both axes like the world it mirrors.
type PathFind struct {
	width  int
	length int
	bitmap *world.CollisionBitmap

	nodes []node
	open  indexHeap
	run   uint32
}

// New builds a PathFind over a frozen collision bitmap. The bitmap must
// not be mutated afterwards.
func New(bitmap *world.CollisionBitmap) *PathFind {
	p := &PathFind{
		width:  bitmap.Width,
		length: bitmap.Length,
		bitmap: bitmap,
		nodes:  make([]node, bitmap.Width*bitmap.Length),
	}
	p.open.pf = p
	return p
}

func (p *PathFind) wrapX(x int) int {
	x %= p.width
	if x < 0 {
		x += p.width
	}
	return x
}

func (p *PathFind) wrapZ(z int) int {
	z %= p.length
	if z < 0 {
		z += p.length
	}
	return z
}

func (p *PathFind) index(x, z int) int32 {
	return int32(p.wrapZ(z)*p.width + p.wrapX(x))
}

// heuristic is the Manhattan distance in x/z with toroidal wrap.
func (p *PathFind) heuristic(x, z, gx, gz int) float32 {
	dx := x - gx
	if dx < 0 {
		dx = -dx
	}
	if p.width-dx < dx {
		dx = p.width - dx
	}
	dz := z - gz
	if dz < 0 {
		dz = -dz
	}
	if p.length-dz < dz {
		dz = p.length - dz
	}
	return float32(dx + dz)
}

// neighborOffsets expands all 8 neighbors; the cost distinguishes straight
// from diagonal moves.
var neighborOffsets = [8]struct {
	dx, dz int
	cost   float32
}{
	{1, 0, 1}, {-1, 0, 1}, {0, 1, 1}, {0, -1, 1},
	{1, 1, sqrt2}, {1, -1, sqrt2}, {-1, 1, sqrt2}, {-1, -1, sqrt2},
}

// Find returns a cell path from start to goal, both in world coordinates,
// or an empty path when the goal is unreachable. The returned waypoints
// are cell centers with Y left at zero; the position resolver snaps moving
// entities onto the terrain.
func (p *PathFind) Find(start, goal vector.Vec3) []vector.Vec3 {
	sx, sz := p.wrapX(int(start.X)), p.wrapZ(int(start.Z))
	gx, gz := p.wrapX(int(goal.X)), p.wrapZ(int(goal.Z))

	if !p.bitmap.Passable(gx, gz) || !p.bitmap.Passable(sx, sz) {
		return nil
	}
	if sx == gx && sz == gz {
		return []vector.Vec3{cellCenter(gx, gz)}
	}

	p.run++
	p.open.reset()

	startIdx := p.index(sx, sz)
	goalIdx := p.index(gx, gz)

	n := &p.nodes[startIdx]
	n.g = 0
	n.f = p.heuristic(sx, sz, gx, gz)
	n.parent = -1
	n.openRun = p.run
	p.open.push(startIdx)

	for p.open.len() > 0 {
		curIdx := p.open.pop()
		cur := &p.nodes[curIdx]
		cur.closedRun = p.run

		if curIdx == goalIdx {
			return p.reconstruct(curIdx)
		}

		cx := int(curIdx) % p.width
		cz := int(curIdx) / p.width

		for _, off := range neighborOffsets {
			nx, nz := p.wrapX(cx+off.dx), p.wrapZ(cz+off.dz)
			if !p.bitmap.Passable(nx, nz) {
				continue
			}
			nbIdx := p.index(nx, nz)
			nb := &p.nodes[nbIdx]
			if nb.closedRun == p.run {
				continue
			}
			g := cur.g + off.cost
			if nb.openRun == p.run && g >= nb.g {
				continue
			}
			nb.g = g
			nb.f = g + p.heuristic(nx, nz, gx, gz)
			nb.parent = curIdx
			if nb.openRun == p.run {
				p.open.fix(nbIdx)
			} else {
				nb.openRun = p.run
				p.open.push(nbIdx)
			}
		}
	}
	return nil
}

// reconstruct walks parents back from the goal and reverses in place.
func (p *PathFind) reconstruct(idx int32) []vector.Vec3 {
	var path []vector.Vec3
	for idx >= 0 {
		x := int(idx) % p.width
		z := int(idx) / p.width
		path = append(path, cellCenter(x, z))
		idx = p.nodes[idx].parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func cellCenter(x, z int) vector.Vec3 {
	return vector.Vec3{X: float32(x) + 0.5, Z: float32(z) + 0.5}
}

// Simplify collapses a cell path into the fewest straight segments that
// stay on passable cells: for each node, if a straight line from the last
// committed node to the following node only crosses passable cells, the
// node is skipped. L-shapes and collinear runs collapse to two points.
func (p *PathFind) Simplify(path []vector.Vec3) []vector.Vec3 {
	if len(path) <= 2 {
		return path
	}
	out := []vector.Vec3{path[0]}
	committed := path[0]
	for i := 1; i < len(path)-1; i++ {
		if p.LineTraversable(committed, path[i+1]) {
			continue
		}
		committed = path[i]
		out = append(out, committed)
	}
	return append(out, path[len(path)-1])
}

// LineTraversable reports whether the straight segment between two world
// points crosses only passable cells. The segment follows the shortest
// toroidal direction and is sampled at sub-cell steps.
func (p *PathFind) LineTraversable(a, b vector.Vec3) bool {
	d := world.DirectionTo(a, b, float32(p.width), float32(p.length))
	steps := int(vector.Abs(d.X)+vector.Abs(d.Z))*2 + 1
	inv := 1 / float32(steps)
	for i := 0; i <= steps; i++ {
		t := float32(i) * inv
		x := int(world.Wrap(a.X+d.X*t, float32(p.width)))
		z := int(world.Wrap(a.Z+d.Z*t, float32(p.length)))
		if !p.bitmap.Passable(x, z) {
			return false
		}
	}
	return true
}

// indexHeap is a binary min-heap of node indices keyed by f, with ties
// broken by index so expansion order is identical on every peer.
type indexHeap struct {
	pf    *PathFind
	items []int32
}

func (h *indexHeap) reset()   { h.items = h.items[:0] }
func (h *indexHeap) len() int { return len(h.items) }

func (h *indexHeap) less(a, b int32) bool {
	na, nb := &h.pf.nodes[a], &h.pf.nodes[b]
	if na.f != nb.f {
		return na.f < nb.f
	}
	return a < b
}

func (h *indexHeap) push(idx int32) {
	h.items = append(h.items, idx)
	h.pf.nodes[idx].heapIdx = int32(len(h.items) - 1)
	h.up(len(h.items) - 1)
}

func (h *indexHeap) pop() int32 {
	top := h.items[0]
	last := len(h.items) - 1
	h.items[0] = h.items[last]
	h.pf.nodes[h.items[0]].heapIdx = 0
	h.items = h.items[:last]
	if last > 0 {
		h.down(0)
	}
	return top
}

// fix restores heap order after a node's f decreased.
func (h *indexHeap) fix(idx int32) {
	h.up(int(h.pf.nodes[idx].heapIdx))
}

func (h *indexHeap) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(h.items[i], h.items[parent]) {
			break
		}
		h.swap(i, parent)
		i = parent
	}
}

func (h *indexHeap) down(i int) {
	n := len(h.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		smallest := left
		if right := left + 1; right < n && h.less(h.items[right], h.items[left]) {
			smallest = right
		}
		if !h.less(h.items[smallest], h.items[i]) {
			break
		}
		h.swap(i, smallest)
		i = smallest
	}
}

func (h *indexHeap) swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.pf.nodes[h.items[i]].heapIdx = int32(i)
	h.pf.nodes[h.items[j]].heapIdx = int32(j)
}
