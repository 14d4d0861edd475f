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

package cuestas

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
)

// nodeEpsilon absorbs floating point error when counting lattice nodes,
// so that (800e3 - -200e3)/1e3 gives 1000 nodes rather than 1001.
const nodeEpsilon = 1e-9

// Grid is a regular raster over a Region. Node (j, i) sits at
// (XMin + i*Dx, YMin + j*Dy); row 0 is the southernmost row. The same
// node convention is used by interpolation, regularization, masking and
// filtering so grids built with the same Region and spacing are
// co-registered.
type Grid struct {
	Region Region
	Dx, Dy float64
	Nx, Ny int

	// Data has shape (Ny, Nx).
	Data *sparse.DenseArray
}

// nodeCount returns ceil((max-min)/d).
func nodeCount(min, max, d float64) int {
	n := int(math.Ceil((max-min)/d - nodeEpsilon))
	if n < 1 {
		n = 1
	}
	return n
}

// NewGrid returns a grid over r with spacing dx and dy, filled with NaN.
func NewGrid(r Region, dx, dy float64) (*Grid, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if !(dx > 0) || !(dy > 0) {
		return nil, fmt.Errorf("%w: grid spacing (%g, %g) should be >0", ErrInvalidParams, dx, dy)
	}
	g := &Grid{
		Region: r,
		Dx:     dx,
		Dy:     dy,
		Nx:     nodeCount(r.XMin, r.XMax, dx),
		Ny:     nodeCount(r.YMin, r.YMax, dy),
	}
	g.Data = sparse.ZerosDense(g.Ny, g.Nx)
	for i := range g.Data.Elements {
		g.Data.Elements[i] = math.NaN()
	}
	return g, nil
}

// like returns an all-NaN grid co-registered with g.
func (g *Grid) like() *Grid {
	o := &Grid{Region: g.Region, Dx: g.Dx, Dy: g.Dy, Nx: g.Nx, Ny: g.Ny}
	o.Data = sparse.ZerosDense(g.Ny, g.Nx)
	for i := range o.Data.Elements {
		o.Data.Elements[i] = math.NaN()
	}
	return o
}

// Clone returns a deep copy of g.
func (g *Grid) Clone() *Grid {
	o := g.like()
	copy(o.Data.Elements, g.Data.Elements)
	return o
}

// X returns the x coordinate of column i.
func (g *Grid) X(i int) float64 { return g.Region.XMin + float64(i)*g.Dx }

// Y returns the y coordinate of row j.
func (g *Grid) Y(j int) float64 { return g.Region.YMin + float64(j)*g.Dy }

// XAxis returns the x coordinates of all columns.
func (g *Grid) XAxis() []float64 {
	o := make([]float64, g.Nx)
	for i := range o {
		o[i] = g.X(i)
	}
	return o
}

// YAxis returns the y coordinates of all rows, south to north.
func (g *Grid) YAxis() []float64 {
	o := make([]float64, g.Ny)
	for j := range o {
		o[j] = g.Y(j)
	}
	return o
}

// Lattice returns every node location in row-major order starting at
// the south-west corner.
func (g *Grid) Lattice() []geom.Point {
	o := make([]geom.Point, 0, g.Nx*g.Ny)
	for j := 0; j < g.Ny; j++ {
		y := g.Y(j)
		for i := 0; i < g.Nx; i++ {
			o = append(o, geom.Point{X: g.X(i), Y: y})
		}
	}
	return o
}

// Get returns the value at row j, column i.
func (g *Grid) Get(j, i int) float64 { return g.Data.Get(j, i) }

// Set sets the value at row j, column i. The backing array starts out
// as NaN, so zeros are stored explicitly.
func (g *Grid) Set(v float64, j, i int) { g.Data.Elements[g.Data.Index1d(j, i)] = v }

// Node returns the indices of the node nearest to (x, y) and whether
// that node is within the grid.
func (g *Grid) Node(x, y float64) (j, i int, ok bool) {
	i = int(math.Floor((x-g.Region.XMin)/g.Dx + 0.5))
	j = int(math.Floor((y-g.Region.YMin)/g.Dy + 0.5))
	ok = i >= 0 && i < g.Nx && j >= 0 && j < g.Ny
	return
}

// CoRegistered reports whether g and o share origin, spacing and shape.
func (g *Grid) CoRegistered(o *Grid) bool {
	return g.Region == o.Region && g.Dx == o.Dx && g.Dy == o.Dy &&
		g.Nx == o.Nx && g.Ny == o.Ny
}

// Bilinear samples the grid at (x, y) by bilinear interpolation between
// the four surrounding nodes. It returns NaN outside the lattice or when
// any contributing node is NaN.
func (g *Grid) Bilinear(x, y float64) float64 {
	fx := (x - g.Region.XMin) / g.Dx
	fy := (y - g.Region.YMin) / g.Dy
	if fx < 0 || fy < 0 || fx > float64(g.Nx-1) || fy > float64(g.Ny-1) {
		return math.NaN()
	}
	i0, j0 := int(math.Floor(fx)), int(math.Floor(fy))
	if i0 == g.Nx-1 && i0 > 0 {
		i0--
	}
	if j0 == g.Ny-1 && j0 > 0 {
		j0--
	}
	tx, ty := fx-float64(i0), fy-float64(j0)
	i1, j1 := i0+1, j0+1
	if g.Nx == 1 {
		i1 = i0
	}
	if g.Ny == 1 {
		j1 = j0
	}
	var v, wsum float64
	for _, c := range []struct {
		j, i int
		w    float64
	}{
		{j0, i0, (1 - tx) * (1 - ty)},
		{j0, i1, tx * (1 - ty)},
		{j1, i0, (1 - tx) * ty},
		{j1, i1, tx * ty},
	} {
		if c.w == 0 {
			continue
		}
		z := g.Get(c.j, c.i)
		if math.IsNaN(z) {
			return math.NaN()
		}
		v += c.w * z
		wsum += c.w
	}
	if wsum == 0 {
		return math.NaN()
	}
	return v / wsum
}

// ValidRange returns the minimum and maximum finite values in the grid.
// ok is false when every node is NaN.
func (g *Grid) ValidRange() (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range g.Data.Elements {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		min = math.Min(min, v)
		max = math.Max(max, v)
		ok = true
	}
	return
}

// CountValid returns the number of finite nodes.
func (g *Grid) CountValid() int {
	var n int
	for _, v := range g.Data.Elements {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			n++
		}
	}
	return n
}
