// Package render draws a city tile grid as a PNG overview map, one square per cell.
package render

import (
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"
	"golang.org/x/image/colornames"

	"micropolis.dev/internal/sim/tiles"
)

// Scheme colours cells by their query label.
type Scheme struct {
	Background color.Color
	Labels     map[string]color.Color

	// Unpowered zone centers get a dot in this colour; nil disables the overlay.
	Unpowered color.Color
	// Powered conductors are tinted toward this colour; nil disables the overlay.
	Powered color.Color
}

// DefaultScheme returns a reasonable default Scheme.
func DefaultScheme() *Scheme {
	return &Scheme{
		Background: colornames.Burlywood,
		Labels: map[string]color.Color{
			"Clear Land":          colornames.Burlywood,
			"Water":               colornames.Steelblue,
			"Trees":               colornames.Forestgreen,
			"Rubble":              colornames.Rosybrown,
			"Flood":               colornames.Lightskyblue,
			"Radiation":           colornames.Greenyellow,
			"Fire":                colornames.Orangered,
			"Road":                colornames.Dimgray,
			"Rail":                colornames.Saddlebrown,
			"Power Line":          colornames.Gold,
			"Residential Zone":    colornames.Limegreen,
			"Commercial Zone":     colornames.Royalblue,
			"Industrial Zone":     colornames.Khaki,
			"Seaport":             colornames.Lightblue,
			"Airport":             colornames.Lightgray,
			"Coal Power Plant":    colornames.Darkslategray,
			"Nuclear Power Plant": colornames.Mediumturquoise,
			"Fire Station":        colornames.Firebrick,
			"Police Station":      colornames.Navy,
			"Stadium":             colornames.Hotpink,
		},
		Unpowered: colornames.Red,
		Powered:   colornames.Yellow,
	}
}

// Options control the rendered size and overlays.
type Options struct {
	Scale  int // pixels per cell, default 4
	Scheme *Scheme
}

func (o Options) withDefaults() Options {
	if o.Scale <= 0 {
		o.Scale = 4
	}
	if o.Scheme == nil {
		o.Scheme = DefaultScheme()
	}
	return o
}

// Image renders a row-major w*h tile grid.
func Image(w, h int, cells []uint16, opts Options) (image.Image, error) {
	if w <= 0 || h <= 0 {
		return nil, errors.Errorf("bad map size %dx%d", w, h)
	}
	if len(cells) != w*h {
		return nil, errors.Errorf("map has %d cells, want %d", len(cells), w*h)
	}
	opts = opts.withDefaults()
	s := float64(opts.Scale)
	sc := opts.Scheme

	dc := gg.NewContext(w*opts.Scale, h*opts.Scale)
	if sc.Background != nil {
		dc.SetColor(sc.Background)
		dc.Clear()
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t := tiles.Tile(cells[y*w+x])
			col, ok := sc.Labels[tiles.Label(t)]
			if !ok {
				continue
			}
			if sc.Powered != nil && t.Powered() && !t.ZoneCenter() {
				col = blend(col, sc.Powered)
			}
			dc.SetColor(col)
			dc.DrawRectangle(float64(x)*s, float64(y)*s, s, s)
			dc.Fill()
		}
	}

	// Overlay pass so footprints drawn later never cover a marker.
	if sc.Unpowered != nil && opts.Scale >= 2 {
		dc.SetColor(sc.Unpowered)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				t := tiles.Tile(cells[y*w+x])
				if t.ZoneCenter() && !t.Powered() {
					dc.DrawCircle((float64(x)+0.5)*s, (float64(y)+0.5)*s, s/3)
					dc.Fill()
				}
			}
		}
	}
	return dc.Image(), nil
}

// WritePNG renders and encodes to out.
func WritePNG(out io.Writer, w, h int, cells []uint16, opts Options) error {
	im, err := Image(w, h, cells, opts)
	if err != nil {
		return err
	}
	dc := gg.NewContextForImage(im)
	return errors.Wrap(dc.EncodePNG(out), "encode png")
}

// SavePNG renders to a file, creating parent directories.
func SavePNG(path string, w, h int, cells []uint16, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create map dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := WritePNG(f, w, h, cells, opts); err != nil {
		_ = f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close map")
}

// blend mixes two colours evenly.
func blend(a, b color.Color) color.Color {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	return color.RGBA64{
		R: uint16((ar + br) / 2),
		G: uint16((ag + bg) / 2),
		B: uint16((ab + bb) / 2),
		A: 0xffff,
	}
}
