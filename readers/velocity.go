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

package readers

import (
	"fmt"
	"math"
	"sort"
	"unicode"

	"github.com/coldex/cuestas"
)

// VelocityMagnitude is the name of the speed grid computed from the
// VX and VY components.
const VelocityMagnitude = "VELM"

// ReadVelocity reads an HDF5 ice velocity mosaic such as Mouginot et al.
// (2019). Every dataset with an upper-case name whose size matches the
// x and y coordinate axes becomes a grid. If both VX and VY are present,
// their magnitude is added as VelocityMagnitude.
func ReadVelocity(path string) (map[string]*cuestas.Grid, error) {
	f, err := openHDF5(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	x, err := readDataset(f, path, "x")
	if err != nil {
		return nil, err
	}
	y, err := readDataset(f, path, "y")
	if err != nil {
		return nil, err
	}
	template, flipY, err := axesGrid(path, x, y)
	if err != nil {
		return nil, err
	}
	members, err := f.Root().Members()
	if err != nil {
		return nil, fmt.Errorf("readers: %s: %v", path, err)
	}
	sort.Strings(members)

	o := make(map[string]*cuestas.Grid)
	for _, name := range members {
		if !isUpper(name) {
			continue
		}
		v, err := readDataset(f, path, name)
		if err != nil {
			return nil, err
		}
		if len(v) != len(x)*len(y) {
			return nil, fmt.Errorf("readers: %s: %s has %d values, want %d×%d", path, name, len(v), len(y), len(x))
		}
		g := template.Clone()
		for j := 0; j < g.Ny; j++ {
			row := j
			if flipY {
				row = g.Ny - 1 - j
			}
			copy(g.Data.Elements[j*g.Nx:(j+1)*g.Nx], v[row*g.Nx:(row+1)*g.Nx])
		}
		o[name] = g
	}
	if vx, ok := o["VX"]; ok {
		if vy, ok := o["VY"]; ok {
			m := vx.Clone()
			for i, u := range vx.Data.Elements {
				m.Data.Elements[i] = math.Hypot(u, vy.Data.Elements[i])
			}
			o[VelocityMagnitude] = m
		}
	}
	return o, nil
}

// axesGrid returns an empty grid whose nodes are the given coordinate
// axes, and whether y runs from north to south.
func axesGrid(path string, x, y []float64) (*cuestas.Grid, bool, error) {
	if len(x) < 2 || len(y) < 2 {
		return nil, false, fmt.Errorf("%w: %s: coordinate axes need at least two values", cuestas.ErrInvalidParams, path)
	}
	dx := x[1] - x[0]
	dy := y[1] - y[0]
	flip := dy < 0
	if flip {
		dy = -dy
	}
	if !(dx > 0) || !(dy > 0) {
		return nil, false, fmt.Errorf("%w: %s: coordinate axes are not regularly spaced", cuestas.ErrInvalidParams, path)
	}
	ymin := y[0]
	if flip {
		ymin = y[len(y)-1]
	}
	r := cuestas.Region{
		XMin: x[0],
		XMax: x[0] + float64(len(x))*dx,
		YMin: ymin,
		YMax: ymin + float64(len(y))*dy,
	}
	g, err := cuestas.NewGrid(r, dx, dy)
	if err != nil {
		return nil, false, err
	}
	if g.Nx != len(x) || g.Ny != len(y) {
		return nil, false, fmt.Errorf("readers: %s: grid of %d×%d nodes does not match %d×%d axes", path, g.Ny, g.Nx, len(y), len(x))
	}
	return g, flip, nil
}

// isUpper reports whether name has at least one letter and no
// lower-case letters.
func isUpper(name string) bool {
	var letter bool
	for _, r := range name {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			letter = true
		}
	}
	return letter
}
