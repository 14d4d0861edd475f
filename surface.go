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
	"math"

	"gonum.org/v1/gonum/floats"
)

// SurfaceOptions control the minimum-curvature surface fit.
type SurfaceOptions struct {
	// Tension is between 0 (pure minimum curvature) and 1 (harmonic
	// surface, no overshoot).
	Tension float64

	// MaxIterations bounds the number of relaxation sweeps.
	MaxIterations int

	// Tolerance stops iteration once the largest change in a sweep is
	// below Tolerance times the range of the data.
	Tolerance float64

	// Relaxation is the over-relaxation factor, between 1 and 2.
	Relaxation float64
}

// DefaultSurfaceOptions are used for any zero fields of SurfaceOptions.
var DefaultSurfaceOptions = SurfaceOptions{
	Tension:       0.25,
	MaxIterations: 250,
	Tolerance:     1e-4,
	Relaxation:    1.4,
}

func (o SurfaceOptions) withDefaults() SurfaceOptions {
	if o.Tension < 0 || o.Tension > 1 {
		o.Tension = DefaultSurfaceOptions.Tension
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultSurfaceOptions.MaxIterations
	}
	if !(o.Tolerance > 0) {
		o.Tolerance = DefaultSurfaceOptions.Tolerance
	}
	if !(o.Relaxation >= 1 && o.Relaxation < 2) {
		o.Relaxation = DefaultSurfaceOptions.Relaxation
	}
	return o
}

// MinimumCurvature fits a continuous surface with optional tension to
// samples on a grid co-registered with template, by successive
// over-relaxation of the finite-difference form of
// (1-T)∇⁴z + T∇²z = 0 with mirrored boundaries. Each sample fixes the
// node nearest to it. Nodes farther than maxRadius from every sample
// are set to NaN; maxRadius <= 0 keeps all nodes.
func MinimumCurvature(ctx context.Context, template *Grid, samples []Sample, maxRadius float64, opt SurfaceOptions) (*Grid, error) {
	opt = opt.withDefaults()
	g := template.like()
	nx, ny := g.Nx, g.Ny
	z := g.Data.Elements

	fixed := make([]bool, len(z))
	counts := make([]int, len(z))
	for _, s := range samples {
		if math.IsNaN(s.Z) {
			continue
		}
		j, i, ok := g.Node(s.X, s.Y)
		if !ok {
			continue
		}
		k := j*nx + i
		if counts[k] == 0 {
			z[k] = 0
		}
		z[k] += s.Z
		counts[k]++
		fixed[k] = true
	}
	var vals []float64
	for k, n := range counts {
		if n > 0 {
			z[k] /= float64(n)
			vals = append(vals, z[k])
		}
	}
	if len(vals) == 0 {
		return g, nil
	}
	mean := floats.Sum(vals) / float64(len(vals))
	dataRange := floats.Max(vals) - floats.Min(vals)
	if dataRange == 0 {
		dataRange = 1
	}
	for k := range z {
		if !fixed[k] {
			z[k] = mean
		}
	}

	t := opt.Tension
	denom := (1-t)*20 + 4*t
	at := func(j, i int) float64 {
		return z[mirror(j, ny)*nx+mirror(i, nx)]
	}
	for iter := 0; iter < opt.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var maxChange float64
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				k := j*nx + i
				if fixed[k] {
					continue
				}
				n4 := at(j, i-1) + at(j, i+1) + at(j-1, i) + at(j+1, i)
				d4 := at(j-1, i-1) + at(j-1, i+1) + at(j+1, i-1) + at(j+1, i+1)
				s4 := at(j, i-2) + at(j, i+2) + at(j-2, i) + at(j+2, i)
				target := ((1-t)*(8*n4-2*d4-s4) + t*n4) / denom
				change := opt.Relaxation * (target - z[k])
				z[k] += change
				if c := math.Abs(change); c > maxChange {
					maxChange = c
				}
			}
		}
		if maxChange < opt.Tolerance*dataRange {
			break
		}
	}

	if maxRadius > 0 {
		clipToRadius(g, samples, maxRadius)
	}
	return g, nil
}

// mirror reflects index i into [0, n).
func mirror(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}

// clipToRadius sets to NaN every node of g that is farther than radius
// from all samples.
func clipToRadius(g *Grid, samples []Sample, radius float64) {
	tree := newSampleTree(samples)
	if tree == nil {
		for k := range g.Data.Elements {
			g.Data.Elements[k] = math.NaN()
		}
		return
	}
	r2 := radius * radius
	for j := 0; j < g.Ny; j++ {
		y := g.Y(j)
		for i := 0; i < g.Nx; i++ {
			_, d2 := tree.Nearest(treePoint{X: g.X(i), Y: y})
			if d2 > r2 {
				g.Set(math.NaN(), j, i)
			}
		}
	}
}

// ValidityMask returns a grid co-registered with g holding 1 wherever g
// is finite and NaN elsewhere.
func ValidityMask(g *Grid) *Grid {
	o := g.like()
	for k, v := range g.Data.Elements {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			o.Data.Elements[k] = 1
		}
	}
	return o
}

// Mask multiplies g element-wise by mask, so that nodes where the mask
// is NaN become NaN. Applying the same mask twice gives the same result
// as applying it once.
func Mask(g, mask *Grid) (*Grid, error) {
	if !g.CoRegistered(mask) {
		return nil, ErrNotCoRegistered
	}
	o := g.like()
	for k, v := range g.Data.Elements {
		o.Data.Elements[k] = v * mask.Data.Elements[k]
	}
	return o, nil
}
