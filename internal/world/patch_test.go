package world

import "testing"

func TestGetPatchBoundaries(t *testing.T) {
	m := NewPatchManager(128, 128) // 4x4 patches of 32 units

	tests := []struct {
		x, z   float32
		px, pz int
	}{
		{0, 0, 0, 0},
		{31.9, 31.9, 0, 0},
		{32, 0, 1, 0},
		{0, 32, 0, 1},
		{127.5, 127.5, 3, 3},
		{128, 128, 0, 0}, // wraps
		{-1, -1, 3, 3},   // wraps negative
		{160, 33, 1, 1},  // wraps past one full width
	}
	for _, tt := range tests {
		p := m.GetPatch(tt.x, tt.z)
		if p.PX != tt.px || p.PZ != tt.pz {
			t.Errorf("GetPatch(%g, %g) = (%d,%d), want (%d,%d)", tt.x, tt.z, p.PX, p.PZ, tt.px, tt.pz)
		}
	}
}

func TestGetPatchIsStable(t *testing.T) {
	m := NewPatchManager(128, 128)
	if m.GetPatch(10, 10) != m.GetPatch(10, 10) {
		t.Error("same coordinates must map to the same patch instance")
	}
}

func TestPatchAddRemoveKeepsOrder(t *testing.T) {
	p := &Patch{}
	p.Add(3)
	p.Add(1)
	p.Add(7)
	p.Remove(1)
	got := p.Entities()
	if len(got) != 2 || got[0] != 3 || got[1] != 7 {
		t.Errorf("entities = %v, want [3 7]", got)
	}
	p.Remove(99) // absent id is a no-op
	if len(p.Entities()) != 2 {
		t.Error("removing an absent id changed the patch")
	}
}

func TestNeighborhoodCoversNine(t *testing.T) {
	m := NewPatchManager(256, 256) // 8x8
	got := m.Neighborhood(100, 100, nil)
	if len(got) != 9 {
		t.Fatalf("interior neighborhood = %d patches, want 9", len(got))
	}
}

func TestNeighborhoodWrapsAtCorner(t *testing.T) {
	m := NewPatchManager(256, 256)
	got := m.Neighborhood(0, 0, nil)
	if len(got) != 9 {
		t.Fatalf("corner neighborhood = %d patches, want 9 (wrapped)", len(got))
	}
	// The far corner patch must appear thanks to the wrap.
	found := false
	for _, p := range got {
		if p.PX == 7 && p.PZ == 7 {
			found = true
		}
	}
	if !found {
		t.Error("corner neighborhood misses the wrapped far corner")
	}
}
