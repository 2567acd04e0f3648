package world

import (
	"testing"

	"ravaged-planets/internal/vector"
)

func TestNewTerrainValidatesDimensions(t *testing.T) {
	tests := []struct {
		name          string
		width, length int
		wantErr       bool
	}{
		{"minimum", 64, 64, false},
		{"rectangular", 128, 64, false},
		{"not multiple of 64", 100, 64, true},
		{"zero", 0, 64, true},
		{"negative", -64, 64, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTerrain(tt.width, tt.length)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewTerrain(%d, %d) err = %v, wantErr %v", tt.width, tt.length, err, tt.wantErr)
			}
		})
	}
}

func TestHeightAtInterpolates(t *testing.T) {
	terrain, _ := NewTerrain(64, 64)
	terrain.SetVertexHeight(10, 10, 0)
	terrain.SetVertexHeight(11, 10, 4)

	if got := terrain.HeightAt(10.5, 10); got != 2 {
		t.Errorf("midpoint height = %g, want 2", got)
	}
	if got := terrain.HeightAt(10.25, 10); got != 1 {
		t.Errorf("quarter height = %g, want 1", got)
	}
}

func TestHeightAtWraps(t *testing.T) {
	terrain, _ := NewTerrain(64, 64)
	terrain.SetVertexHeight(0, 0, 8)
	// Sampling just past the far edge interpolates back to vertex 0.
	got := terrain.HeightAt(63.5, 0)
	if got != 4 {
		t.Errorf("seam interpolation = %g, want 4", got)
	}
}

func TestCollisionFromSlopes(t *testing.T) {
	terrain, _ := NewTerrain(64, 64)
	// A sharp spike makes its flanks too steep to pass.
	terrain.SetVertexHeight(32, 32, 40)

	c := terrain.BuildCollision()
	if c.Passable(31, 32) {
		t.Error("spike flank should be impassable")
	}
	if !c.Passable(5, 5) {
		t.Error("flat ground should be passable")
	}

	up := vector.Vec3{Y: 1}
	for z := 30; z <= 34; z++ {
		for x := 30; x <= 34; x++ {
			want := up.Dot(terrain.NormalAt(x, z)) > PassableSlope
			if got := c.Passable(x, z); got != want {
				t.Errorf("(%d,%d) passable = %v, want %v", x, z, got, want)
			}
		}
	}
}

func TestNormalOnFlatGroundPointsUp(t *testing.T) {
	terrain, _ := NewTerrain(64, 64)
	n := terrain.NormalAt(10, 10)
	if n != (vector.Vec3{Y: 1}) {
		t.Errorf("flat normal = %v, want +Y", n)
	}
}
