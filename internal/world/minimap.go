package world

import (
	"image/color"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"

	"ravaged-planets/internal/errs"
	"ravaged-planets/internal/vector"
)

// RenderMinimap draws the map overview the lobby shows: one pixel per
// terrain vertex, shaded by height, with impassable vertices darkened.
// Player start positions from the mapdesc are marked with palette-colored
// dots.
func RenderMinimap(w *World) *gg.Context {
	t := w.Terrain
	dc := gg.NewContext(t.Width, t.Length)

	lo, hi := t.Heights[0], t.Heights[0]
	for _, h := range t.Heights {
		if h < lo {
			lo = h
		}
		if h > hi {
			hi = h
		}
	}
	span := hi - lo
	if span < 1e-6 {
		span = 1
	}

	for z := 0; z < t.Length; z++ {
		for x := 0; x < t.Width; x++ {
			shade := (t.VertexHeight(x, z) - lo) / span
			r := 0.18 + 0.25*float64(shade)
			g := 0.32 + 0.40*float64(shade)
			b := 0.16 + 0.20*float64(shade)
			if !w.Collision.Passable(x, z) {
				r, g, b = r*0.45, g*0.45, b*0.45
			}
			dc.SetColor(color.NRGBA{
				R: uint8(r * 255),
				G: uint8(g * 255),
				B: uint8(b * 255),
				A: 255,
			})
			dc.SetPixel(x, z)
		}
	}

	if w.Desc != nil {
		for _, p := range w.Desc.Players.Players {
			x, z, err := p.StartPosition()
			if err != nil {
				continue
			}
			c := vector.PlayerPalette[(p.No-1)%len(vector.PlayerPalette)]
			dc.SetColor(color.NRGBA{R: c.R(), G: c.G(), B: c.B(), A: 255})
			dc.DrawCircle(float64(x), float64(z), 3)
			dc.Fill()
		}
	}
	return dc
}

// WriteMinimap renders the minimap and writes minimap.png into the map
// directory.
func WriteMinimap(w *World, dir string) error {
	dc := RenderMinimap(w)
	path := filepath.Join(dir, "minimap.png")
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(errs.KindIo, err, "minimap")
	}
	defer f.Close()
	if err := dc.EncodePNG(f); err != nil {
		return errs.Wrap(errs.KindIo, err, "minimap encode")
	}
	return nil
}
