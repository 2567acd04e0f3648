// Package world holds the spatial model the simulation runs on: the
// terrain height grid, the patch partitioning entities are indexed by, the
// collision bitmap the pathfinder consumes, and the toroidal coordinate
// arithmetic everything else depends on.
package world

import "ravaged-planets/internal/vector"

// Wrap maps x into [0, size) on a wrapping axis.
func Wrap(x, size float32) float32 {
	for x < 0 {
		x += size
	}
	for x >= size {
		x -= size
	}
	return x
}

// WrapDelta returns the signed shortest offset from a to b on an axis of
// the given size. The result is always in [-size/2, size/2).
func WrapDelta(a, b, size float32) float32 {
	d := b - a
	half := size / 2
	for d < -half {
		d += size
	}
	for d >= half {
		d -= size
	}
	return d
}

// DirectionTo returns the shortest vector from a to b on a torus of
// dimensions (wrapX, wrapZ). Of the nine candidate offsets only the
// per-axis shortest can win, so each axis is minimized independently.
// The Y component passes through unwrapped.
func DirectionTo(a, b vector.Vec3, wrapX, wrapZ float32) vector.Vec3 {
	return vector.Vec3{
		X: WrapDelta(a.X, b.X, wrapX),
		Y: b.Y - a.Y,
		Z: WrapDelta(a.Z, b.Z, wrapZ),
	}
}

// Distance returns the toroidal distance between a and b.
func Distance(a, b vector.Vec3, wrapX, wrapZ float32) float32 {
	return DirectionTo(a, b, wrapX, wrapZ).Length()
}

// WrapPoint maps a position into the world rectangle on both axes.
func WrapPoint(p vector.Vec3, wrapX, wrapZ float32) vector.Vec3 {
	return vector.Vec3{X: Wrap(p.X, wrapX), Y: p.Y, Z: Wrap(p.Z, wrapZ)}
}

// wrapIndex maps an integer grid index into [0, n).
func wrapIndex(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
