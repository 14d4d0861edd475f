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

	"github.com/ctessum/geom"
)

// Region is an axis-aligned rectangle in projected coordinates. All
// products of a run share one Region so that their grids are
// co-registered.
type Region struct {
	XMin, XMax, YMin, YMax float64
}

// NewRegion creates a Region from a slice in the order
// x_min, x_max, y_min, y_max.
func NewRegion(v []float64) (Region, error) {
	if len(v) != 4 {
		return Region{}, fmt.Errorf("%w: need 4 values (xmin, xmax, ymin, ymax) but got %d", ErrInvalidRegion, len(v))
	}
	r := Region{XMin: v[0], XMax: v[1], YMin: v[2], YMax: v[3]}
	return r, r.Validate()
}

// Validate checks that the region has positive extent in both directions.
func (r Region) Validate() error {
	if !(r.XMin < r.XMax) {
		return fmt.Errorf("%w: x_min=%g should be less than x_max=%g", ErrInvalidRegion, r.XMin, r.XMax)
	}
	if !(r.YMin < r.YMax) {
		return fmt.Errorf("%w: y_min=%g should be less than y_max=%g", ErrInvalidRegion, r.YMin, r.YMax)
	}
	return nil
}

// Bounds returns the region as geometry bounds.
func (r Region) Bounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: r.XMin, Y: r.YMin},
		Max: geom.Point{X: r.XMax, Y: r.YMax},
	}
}

// Contains reports whether p is inside the region, edges included.
func (r Region) Contains(p geom.Point) bool {
	return p.X >= r.XMin && p.X <= r.XMax && p.Y >= r.YMin && p.Y <= r.YMax
}

// Corners returns the four corners of the region, starting with
// (x_min, y_min) and moving around x_min first.
func (r Region) Corners() []geom.Point {
	return []geom.Point{
		{X: r.XMin, Y: r.YMin},
		{X: r.XMin, Y: r.YMax},
		{X: r.XMax, Y: r.YMin},
		{X: r.XMax, Y: r.YMax},
	}
}

func (r Region) String() string {
	return fmt.Sprintf("[%g, %g, %g, %g]", r.XMin, r.XMax, r.YMin, r.YMax)
}
