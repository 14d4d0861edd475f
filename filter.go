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

import "math"

// GaussianFilter smooths g with an isotropic Gaussian low-pass filter of
// full width width, in the same units as the grid spacing. The Gaussian
// has sigma = width/6 and is truncated at a distance of width/2. NaN
// nodes do not contribute, and the remaining weights are renormalized;
// a node with no contributing neighbours stays NaN. A width <= 0
// returns a copy of g.
func GaussianFilter(g *Grid, width float64) *Grid {
	if !(width > 0) {
		return g.Clone()
	}
	radius := width / 2
	sigma := width / 6
	ri := int(math.Floor(radius / g.Dx))
	rj := int(math.Floor(radius / g.Dy))

	type tap struct {
		dj, di int
		w      float64
	}
	var kernel []tap
	for dj := -rj; dj <= rj; dj++ {
		for di := -ri; di <= ri; di++ {
			x, y := float64(di)*g.Dx, float64(dj)*g.Dy
			r := math.Hypot(x, y)
			if r > radius {
				continue
			}
			kernel = append(kernel, tap{dj: dj, di: di, w: math.Exp(-0.5 * (r / sigma) * (r / sigma))})
		}
	}

	o := g.like()
	src := g.Data.Elements
	for j := 0; j < g.Ny; j++ {
		for i := 0; i < g.Nx; i++ {
			var sum, wsum float64
			for _, t := range kernel {
				jj, ii := j+t.dj, i+t.di
				if jj < 0 || jj >= g.Ny || ii < 0 || ii >= g.Nx {
					continue
				}
				v := src[jj*g.Nx+ii]
				if math.IsNaN(v) {
					continue
				}
				sum += t.w * v
				wsum += t.w
			}
			if wsum > 0 {
				o.Data.Elements[j*g.Nx+i] = sum / wsum
			}
		}
	}
	return o
}
