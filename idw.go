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

	"github.com/ctessum/geom"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// InverseDistance is a DenseInterpolator that uses Shepard's
// inverse-distance weighting of the nearest control points. It needs no
// external program, and is exact at the control points.
type InverseDistance struct {
	// Neighbors is the number of nearest control points used for each
	// lattice point. Values < 1 mean 8.
	Neighbors int

	// Power is the distance exponent. Values <= 0 mean 2.
	Power float64
}

// Interpolate implements DenseInterpolator.
func (d InverseDistance) Interpolate(ctx context.Context, control []Sample, lattice []geom.Point) ([]Sample, error) {
	out := make([]Sample, len(lattice))
	for i, p := range lattice {
		out[i] = Sample{Point: p, Z: math.NaN()}
	}
	tree := newSampleTree(control)
	if tree == nil {
		return out, nil
	}
	k := d.Neighbors
	if k < 1 {
		k = 8
	}
	power := d.Power
	if !(power > 0) {
		power = 2
	}
	for i, p := range lattice {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		keeper := kdtree.NewNKeeper(k)
		tree.NearestSet(keeper, treePoint{X: p.X, Y: p.Y})
		var num, den float64
		exact := false
		for _, c := range keeper.Heap {
			if c.Comparable == nil {
				continue
			}
			q := c.Comparable.(treePoint)
			if c.Dist == 0 {
				out[i].Z = q.Z
				exact = true
				break
			}
			w := 1 / math.Pow(c.Dist, power/2) // Dist is squared.
			num += w * q.Z
			den += w
		}
		if !exact && den > 0 {
			out[i].Z = num / den
		}
	}
	return out, nil
}

// treePoint is a sample stored in a 2-D k-d tree. Z is carried along
// but is not a tree dimension.
type treePoint struct {
	X, Y, Z float64
}

func (p treePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(treePoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	default:
		panic("illegal dimension")
	}
}

func (p treePoint) Dims() int { return 2 }

// Distance returns the squared planar distance.
func (p treePoint) Distance(c kdtree.Comparable) float64 {
	q := c.(treePoint)
	dx, dy := p.X-q.X, p.Y-q.Y
	return dx*dx + dy*dy
}

type treePoints []treePoint

func (p treePoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p treePoints) Len() int                              { return len(p) }
func (p treePoints) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p treePoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(treePlane{treePoints: p, Dim: d}, kdtree.MedianOfRandoms(treePlane{treePoints: p, Dim: d}, 100))
}

type treePlane struct {
	treePoints
	kdtree.Dim
}

func (p treePlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.treePoints[i].X < p.treePoints[j].X
	case 1:
		return p.treePoints[i].Y < p.treePoints[j].Y
	default:
		panic("illegal dimension")
	}
}

func (p treePlane) Slice(start, end int) kdtree.SortSlicer {
	return treePlane{treePoints: p.treePoints[start:end], Dim: p.Dim}
}

func (p treePlane) Swap(i, j int) {
	p.treePoints[i], p.treePoints[j] = p.treePoints[j], p.treePoints[i]
}

// newSampleTree builds a k-d tree of the samples with finite values.
// It returns nil if there are none.
func newSampleTree(samples []Sample) *kdtree.Tree {
	pts := make(treePoints, 0, len(samples))
	for _, s := range samples {
		if math.IsNaN(s.Z) || math.IsNaN(s.X) || math.IsNaN(s.Y) {
			continue
		}
		pts = append(pts, treePoint{X: s.X, Y: s.Y, Z: s.Z})
	}
	if len(pts) == 0 {
		return nil
	}
	return kdtree.New(pts, false)
}
