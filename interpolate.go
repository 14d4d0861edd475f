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
	"context"
	"fmt"
	"math"

	"github.com/ctessum/geom"
)

// DenseInterpolator fills a regular lattice from scattered control
// points. Implementations return one sample per lattice point, in the
// same order as lattice. Values may be NaN where the method is
// undefined (e.g. outside the convex hull of the control points).
type DenseInterpolator interface {
	Interpolate(ctx context.Context, control []Sample, lattice []geom.Point) ([]Sample, error)
}

// Regularize rasterizes samples onto a grid co-registered with
// template, assigning each sample to its nearest node. Nodes hit by
// more than one sample get the mean; nodes hit by none are NaN.
func Regularize(template *Grid, samples []Sample) *Grid {
	o := template.like()
	counts := make([]int, len(o.Data.Elements))
	for _, s := range samples {
		if math.IsNaN(s.Z) {
			continue
		}
		j, i, ok := o.Node(s.X, s.Y)
		if !ok {
			continue
		}
		k := j*o.Nx + i
		if counts[k] == 0 {
			o.Data.Elements[k] = 0
		}
		o.Data.Elements[k] += s.Z
		counts[k]++
	}
	for k, n := range counts {
		if n > 1 {
			o.Data.Elements[k] /= float64(n)
		}
	}
	return o
}

// checkLatticeResult makes sure an interpolator returned exactly one
// value per lattice point.
func checkLatticeResult(name string, got, want int) error {
	if got != want {
		return fmt.Errorf("%w: %s returned %d points for a lattice of %d", ErrInterpolationFailed, name, got, want)
	}
	return nil
}
