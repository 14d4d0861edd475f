/*
Copyright © 2024 the cuestas authors.
This file is part of cuestas.

cuestas is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

cuestas is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with cuestas.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package qcplot draws quality control maps of gridded products.
package qcplot

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"

	"github.com/coldex/cuestas"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Options control the appearance of a map.
type Options struct {
	Title string

	// Palette is one of "thermal", "globe", "ocean", "magma" or
	// "turbo". The default is "thermal".
	Palette string

	// Series holds the minimum, maximum and step of the colour scale.
	// If the step is zero, the scale spans the valid range of the grid
	// and is continuous.
	Series [3]float64

	// ContourInterval is the spacing of the contour lines. Zero
	// disables them. Grids with empty nodes are drawn without contours.
	ContourInterval float64

	Width, Height vg.Length
	DPI           int
}

// DefaultContourInterval is the contour spacing used for the products.
const DefaultContourInterval = 200

// Products holds the map options for the named grid products.
var Products = map[string]Options{
	"icethk":                  {Title: "Ice Thickness", Palette: "thermal", Series: [3]float64{2000, 4000, 100}, ContourInterval: DefaultContourInterval},
	"bedelv":                  {Title: "Bed Elevation", Palette: "globe", Series: [3]float64{-2500, 2500, 100}, ContourInterval: DefaultContourInterval},
	"specularity_content":     {Title: "Specularity Content", Palette: "ocean", Series: [3]float64{0, 0.5, 0.1}},
	"roughness":               {Title: "RMS Roughness @ 400 m", Palette: "magma", Series: [3]float64{0, 50, 1}},
	"fract_basal_ice_percent": {Title: "Basal Ice Fractional Thickness", Palette: "ocean", Series: [3]float64{0, 40, 1}},
	"srfelv":                  {Title: "Surface Elevation", Palette: "thermal", ContourInterval: 100},
}

// OptionsFor returns the options for the named product, or generic
// options titled with the name.
func OptionsFor(name string) Options {
	if o, ok := Products[name]; ok {
		return o
	}
	return Options{Title: name, Palette: "turbo"}
}

func (o Options) withDefaults() Options {
	if o.Width == 0 {
		o.Width = 15 * vg.Centimeter
	}
	if o.Height == 0 {
		o.Height = 12 * vg.Centimeter
	}
	if o.DPI == 0 {
		o.DPI = 150
	}
	if o.Palette == "" {
		o.Palette = "thermal"
	}
	return o
}

// colorMap returns the named colour map.
func colorMap(name string) (palette.ColorMap, error) {
	switch name {
	case "thermal":
		return moreland.ExtendedBlackBody(), nil
	case "globe":
		return moreland.SmoothBlueRed(), nil
	case "ocean":
		return moreland.Kindlmann(), nil
	case "magma":
		return moreland.BlackBody(), nil
	case "turbo":
		return moreland.ExtendedKindlmann(), nil
	default:
		return nil, fmt.Errorf("qcplot: unknown palette %q", name)
	}
}

// gridXYZ presents a grid as a plotter.GridXYZ with axes in km.
type gridXYZ struct {
	g        *cuestas.Grid
	min, max float64
}

func (g gridXYZ) Dims() (c, r int)   { return g.g.Nx, g.g.Ny }
func (g gridXYZ) Z(c, r int) float64 { return g.g.Get(r, c) }
func (g gridXYZ) X(c int) float64    { return g.g.X(c) / 1000 }
func (g gridXYZ) Y(r int) float64    { return g.g.Y(r) / 1000 }
func (g gridXYZ) Min() float64       { return g.min }
func (g gridXYZ) Max() float64       { return g.max }

func (g gridXYZ) bounds() (x0, x1, y0, y1 float64) {
	return g.X(0), g.X(g.g.Nx - 1), g.Y(0), g.Y(g.g.Ny - 1)
}

// scale returns the colour scale limits and the number of colours.
func scale(g *cuestas.Grid, series [3]float64) (min, max float64, n int) {
	min, max, step := series[0], series[1], series[2]
	if !(step > 0) || !(max > min) {
		var ok bool
		if min, max, ok = g.ValidRange(); !ok {
			min, max = 0, 1
		}
		if max == min {
			max = min + 1
		}
		return min, max, 255
	}
	n = int(math.Round((max - min) / step))
	if n < 2 {
		n = 2
	}
	return min, max, n
}

// contourLevels returns the multiples of interval within [min, max].
func contourLevels(min, max, interval float64) []float64 {
	if !(interval > 0) {
		return nil
	}
	var o []float64
	for z := math.Ceil(min/interval) * interval; z <= max; z += interval {
		o = append(o, z)
	}
	return o
}

// twoTone is a palette of a single colour, repeated so that the colour
// scaling of a contour plot stays finite.
type twoTone struct{ c color.Color }

func (p twoTone) Colors() []color.Color { return []color.Color{p.c, p.c} }

// Plot draws g as a PNG heat map with a colour bar beneath it. Empty
// nodes are transparent.
func Plot(w io.Writer, g *cuestas.Grid, opt Options) error {
	opt = opt.withDefaults()
	if g.Nx < 2 || g.Ny < 2 {
		return fmt.Errorf("%w: qcplot: grid of %d×%d nodes is too small to plot", cuestas.ErrInvalidParams, g.Ny, g.Nx)
	}
	cm, err := colorMap(opt.Palette)
	if err != nil {
		return err
	}
	min, max, n := scale(g, opt.Series)
	cm.SetMin(min)
	cm.SetMax(max)
	colors := cm.Palette(n).Colors()

	data := gridXYZ{g: g, min: min, max: max}
	hm := plotter.NewHeatMap(data, cm.Palette(n))
	hm.Min, hm.Max = min, max
	// Values outside the scale take the end colours.
	hm.Underflow = colors[0]
	hm.Overflow = colors[len(colors)-1]
	hm.NaN = color.Transparent

	p := plot.New()
	p.Title.Text = opt.Title
	p.X.Label.Text = "x (km)"
	p.Y.Label.Text = "y (km)"
	p.Add(hm)

	// Contours are only traced on grids without empty nodes.
	if vmin, vmax, ok := g.ValidRange(); ok && g.CountValid() == g.Nx*g.Ny {
		levels := contourLevels(vmin, vmax, opt.ContourInterval)
		if len(levels) > 1 {
			c := plotter.NewContour(data, levels, twoTone{color.Gray{Y: 40}})
			c.LineStyles[0].Width = vg.Points(0.5)
			p.Add(c)
		}
	}
	x0, x1, y0, y1 := data.bounds()
	p.X.Min, p.X.Max = x0-g.Dx/2000, x1+g.Dx/2000
	p.Y.Min, p.Y.Max = y0-g.Dy/2000, y1+g.Dy/2000

	bar := plot.New()
	bar.Add(&plotter.ColorBar{ColorMap: cm, Colors: n})
	bar.HideY()
	bar.X.Padding = 0

	img := vgimg.NewWith(vgimg.UseWH(opt.Width, opt.Height), vgimg.UseDPI(opt.DPI))
	dc := draw.New(img)
	barHeight := opt.Height / 8
	p.Draw(draw.Crop(dc, 0, 0, barHeight, 0))
	bar.Draw(draw.Crop(dc, 0, 0, 0, barHeight-opt.Height))

	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return fmt.Errorf("qcplot: writing png: %v", err)
	}
	return nil
}

// PlotFile draws a map of g to a PNG file.
func PlotFile(path string, g *cuestas.Grid, opt Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("qcplot: %v", err)
	}
	if err := Plot(f, g, opt); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
