package world

import (
	"math/rand"
	"testing"

	"ravaged-planets/internal/vector"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		x, size, want float32
	}{
		{5, 64, 5},
		{-1, 64, 63},
		{64, 64, 0},
		{130, 64, 2},
		{-65, 64, 63},
	}
	for _, tt := range tests {
		if got := Wrap(tt.x, tt.size); got != tt.want {
			t.Errorf("Wrap(%g, %g) = %g, want %g", tt.x, tt.size, got, tt.want)
		}
	}
}

func TestDirectionToTakesShortestWay(t *testing.T) {
	// Crossing the seam beats the long way around.
	a := vector.V3(2, 0, 2)
	b := vector.V3(62, 0, 2)
	d := DirectionTo(a, b, 64, 64)
	if d.X != -4 || d.Z != 0 {
		t.Errorf("DirectionTo across seam = %v, want (-4, 0, 0)", d)
	}
}

// The shortest-of-nine-candidates property: the wrapped direction never
// beats any explicit (±wrap) shifted candidate, and its length is capped
// at half the smaller wrap dimension.
func TestDirectionToIsShortestCandidate(t *testing.T) {
	const wrapX, wrapZ = 128, 64
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		a := vector.V3(rng.Float32()*wrapX, 0, rng.Float32()*wrapZ)
		b := vector.V3(rng.Float32()*wrapX, 0, rng.Float32()*wrapZ)
		d := DirectionTo(a, b, wrapX, wrapZ)

		for _, sx := range []float32{-wrapX, 0, wrapX} {
			for _, sz := range []float32{-wrapZ, 0, wrapZ} {
				cand := vector.V3(b.X+sx-a.X, 0, b.Z+sz-a.Z)
				if cand.Length() < d.Length()-1e-3 {
					t.Fatalf("candidate (%g,%g) shorter: %g < %g for a=%v b=%v",
						sx, sz, cand.Length(), d.Length(), a, b)
				}
			}
		}

		if ax := vector.Abs(d.X); ax > wrapX/2 {
			t.Fatalf("|dx| = %g exceeds half wrap", ax)
		}
		if az := vector.Abs(d.Z); az > wrapZ/2 {
			t.Fatalf("|dz| = %g exceeds half wrap", az)
		}
	}
}

func TestDistanceSymmetricUnderWrap(t *testing.T) {
	a := vector.V3(1, 0, 1)
	b := vector.V3(63, 0, 63)
	ab := Distance(a, b, 64, 64)
	ba := Distance(b, a, 64, 64)
	if vector.Abs(ab-ba) > 1e-5 {
		t.Errorf("distance not symmetric: %g vs %g", ab, ba)
	}
	want := vector.V3(2, 0, 2).Length()
	if vector.Abs(ab-want) > 1e-5 {
		t.Errorf("Distance = %g, want %g", ab, want)
	}
}
