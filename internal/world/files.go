package world

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"ravaged-planets/internal/errs"
)

const (
	heightfieldVersion = 1
	collisionVersion   = 1
)

// World bundles everything the simulation needs from a loaded map: the
// terrain, the patch partitioning, the frozen collision bitmap, and the
// map description.
type World struct {
	Name      string
	Terrain   *Terrain
	Patches   *PatchManager
	Collision *CollisionBitmap
	Desc      *MapDesc
}

// WrapX returns the world width in units.
func (w *World) WrapX() float32 { return float32(w.Terrain.Width) }

// WrapZ returns the world length in units.
func (w *World) WrapZ() float32 { return float32(w.Terrain.Length) }

// NewWorld assembles a world around an in-memory terrain. Used by tests
// and generated maps; LoadMap is the on-disk path.
func NewWorld(name string, t *Terrain) *World {
	return &World{
		Name:      name,
		Terrain:   t,
		Patches:   NewPatchManager(t.Width, t.Length),
		Collision: t.BuildCollision(),
		Desc:      &MapDesc{Version: 1, Size: MapSize{Width: t.Width, Height: t.Length}},
	}
}

// ReadHeightfield parses the binary heightfield entry:
// i32 version=1, i32 width, i32 length, then width·length f32 heights in
// row-major (z, then x) order.
func ReadHeightfield(r io.Reader) (*Terrain, error) {
	var version, width, length int32
	for _, p := range []*int32{&version, &width, &length} {
		if err := binary.Read(r, binary.LittleEndian, p); err != nil {
			return nil, errs.Wrap(errs.KindIo, err, "heightfield header")
		}
	}
	if version != heightfieldVersion {
		return nil, errs.New(errs.KindParse, "heightfield version %d not supported", version)
	}
	t, err := NewTerrain(int(width), int(length))
	if err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, t.Heights); err != nil {
		return nil, errs.Wrap(errs.KindIo, err, "heightfield data")
	}
	return t, nil
}

// WriteHeightfield writes the binary heightfield entry.
func WriteHeightfield(w io.Writer, t *Terrain) error {
	for _, v := range []int32{heightfieldVersion, int32(t.Width), int32(t.Length)} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return errs.Wrap(errs.KindIo, err, "heightfield header")
		}
	}
	if err := binary.Write(w, binary.LittleEndian, t.Heights); err != nil {
		return errs.Wrap(errs.KindIo, err, "heightfield data")
	}
	return nil
}

// ReadCollision parses the collision_data entry: i32 version=1, i32 width,
// i32 length, then width·length bytes each 0 (blocked) or 1 (passable).
func ReadCollision(r io.Reader) (*CollisionBitmap, error) {
	var version, width, length int32
	for _, p := range []*int32{&version, &width, &length} {
		if err := binary.Read(r, binary.LittleEndian, p); err != nil {
			return nil, errs.Wrap(errs.KindIo, err, "collision header")
		}
	}
	if version != collisionVersion {
		return nil, errs.New(errs.KindParse, "collision_data version %d not supported", version)
	}
	c := NewCollisionBitmap(int(width), int(length))
	raw := make([]byte, int(width)*int(length))
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, errs.Wrap(errs.KindIo, err, "collision data")
	}
	for i, b := range raw {
		c.bits[i] = b != 0
	}
	return c, nil
}

// WriteCollision writes the collision_data entry.
func WriteCollision(w io.Writer, c *CollisionBitmap) error {
	for _, v := range []int32{collisionVersion, int32(c.Width), int32(c.Length)} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return errs.Wrap(errs.KindIo, err, "collision header")
		}
	}
	raw := make([]byte, len(c.bits))
	for i, b := range c.bits {
		if b {
			raw[i] = 1
		}
	}
	if _, err := w.Write(raw); err != nil {
		return errs.Wrap(errs.KindIo, err, "collision data")
	}
	return nil
}

// LoadMap reads a directory-per-map layout: heightfield, optional
// collision_data (derived from terrain normals when absent), the
// <name>.mapdesc document, and any splatt-<px>-<pz>.png bitmaps.
func LoadMap(dir string) (*World, error) {
	name := filepath.Base(dir)

	hf, err := os.Open(filepath.Join(dir, "heightfield"))
	if err != nil {
		return nil, errs.Wrap(errs.KindNotFound, err, "map %q heightfield", name)
	}
	defer hf.Close()
	terrain, err := ReadHeightfield(hf)
	if err != nil {
		return nil, err
	}

	w := &World{
		Name:    name,
		Terrain: terrain,
		Patches: NewPatchManager(terrain.Width, terrain.Length),
	}

	if cf, err := os.Open(filepath.Join(dir, "collision_data")); err == nil {
		w.Collision, err = ReadCollision(cf)
		cf.Close()
		if err != nil {
			return nil, err
		}
		if w.Collision.Width != terrain.Width || w.Collision.Length != terrain.Length {
			return nil, errs.New(errs.KindParse, "map %q: collision %dx%d does not match terrain %dx%d",
				name, w.Collision.Width, w.Collision.Length, terrain.Width, terrain.Length)
		}
	} else {
		w.Collision = terrain.BuildCollision()
	}

	df, err := os.Open(filepath.Join(dir, name+".mapdesc"))
	if err != nil {
		return nil, errs.Wrap(errs.KindNotFound, err, "map %q mapdesc", name)
	}
	w.Desc, err = ParseMapDesc(df)
	df.Close()
	if err != nil {
		return nil, err
	}

	if err := loadSplats(dir, terrain); err != nil {
		return nil, err
	}
	return w, nil
}

// loadSplats reads every splatt-<px>-<pz>.png in the map directory into
// the terrain's raw splat table.
func loadSplats(dir string, t *Terrain) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errs.Wrap(errs.KindIo, err, "map dir")
	}
	for _, e := range entries {
		fname := e.Name()
		if !strings.HasPrefix(fname, "splatt-") || !strings.HasSuffix(fname, ".png") {
			continue
		}
		var px, pz int
		if _, err := fmt.Sscanf(fname, "splatt-%d-%d.png", &px, &pz); err != nil {
			continue
		}
		f, err := os.Open(filepath.Join(dir, fname))
		if err != nil {
			return errs.Wrap(errs.KindIo, err, "splat %s", fname)
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			return errs.Wrap(errs.KindParse, err, "splat %s", fname)
		}
		rgba := image.NewRGBA(img.Bounds())
		draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
		t.Splats[fmt.Sprintf("%d-%d", px, pz)] = rgba.Pix
	}
	return nil
}

// GenerateRolling fills the terrain with a deterministic rolling
// heightscape from a seed. Handy for tests and generated skirmish maps:
// no noise library, just a couple of sine octaves.
func GenerateRolling(t *Terrain, seed int64, amplitude float32) {
	phase := float64(seed%1024) * 0.1
	for z := 0; z < t.Length; z++ {
		for x := 0; x < t.Width; x++ {
			fx, fz := float64(x), float64(z)
			h := math.Sin(fx*0.11+phase)*0.6 + math.Cos(fz*0.07+phase*1.7)*0.4
			h += math.Sin((fx+fz)*0.05+phase*0.3) * 0.5
			t.Heights[z*t.Width+x] = float32(h) * amplitude
		}
	}
}
