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
)

// Column names shared by the readers and the products.
const (
	ColBed          = "BED"
	ColThickness    = "THICK"
	ColSpecularity  = "SPECULARITY_CONTENT_FILTERED"
	ColBasalLayer   = "basal layer thickness"
	ColSurface      = "z"
	ColHighPassBed  = "HIGH_PASS_BED"
	ColGriddedBed   = "GRD_BED"
	roughnessPrefix = "RMSD_"
)

// Sample is one observation of a single attribute at a projected location.
type Sample struct {
	geom.Point
	Z float64
}

// PointTable holds point observations in columnar form: projected
// coordinates plus any number of named float attributes. Missing
// attribute values are NaN.
type PointTable struct {
	// Source names where the data came from, for error messages.
	Source string

	X, Y []float64

	cols  map[string][]float64
	order []string
}

// NewPointTable creates a table from projected coordinates.
func NewPointTable(source string, x, y []float64) (*PointTable, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %s: x has %d values but y has %d", ErrInvalidParams, source, len(x), len(y))
	}
	return &PointTable{
		Source: source,
		X:      x,
		Y:      y,
		cols:   make(map[string][]float64),
	}, nil
}

// Len returns the number of rows.
func (t *PointTable) Len() int { return len(t.X) }

// Columns returns the attribute names in the order they were added.
func (t *PointTable) Columns() []string {
	return append([]string(nil), t.order...)
}

// Has reports whether the table has the named attribute.
func (t *PointTable) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// AddColumn adds or replaces an attribute.
func (t *PointTable) AddColumn(name string, v []float64) error {
	if len(v) != t.Len() {
		return fmt.Errorf("%w: %s: column %q has %d values but the table has %d rows",
			ErrInvalidParams, t.Source, name, len(v), t.Len())
	}
	if _, ok := t.cols[name]; !ok {
		t.order = append(t.order, name)
	}
	t.cols[name] = v
	return nil
}

// Column returns the named attribute, or a *SchemaError if the table
// does not have it.
func (t *PointTable) Column(name string) ([]float64, error) {
	v, ok := t.cols[name]
	if !ok {
		return nil, &SchemaError{Source: t.Source, Column: name}
	}
	return v, nil
}

// Filter returns a new table holding the rows for which keep returns true.
func (t *PointTable) Filter(keep func(i int) bool) *PointTable {
	var idx []int
	for i := 0; i < t.Len(); i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	o := &PointTable{
		Source: t.Source,
		X:      make([]float64, len(idx)),
		Y:      make([]float64, len(idx)),
		cols:   make(map[string][]float64),
	}
	for k, i := range idx {
		o.X[k], o.Y[k] = t.X[i], t.Y[i]
	}
	for _, name := range t.order {
		src := t.cols[name]
		dst := make([]float64, len(idx))
		for k, i := range idx {
			dst[k] = src[i]
		}
		o.order = append(o.order, name)
		o.cols[name] = dst
	}
	return o
}

// Samples returns the named attribute as samples. Rows where the
// attribute or either coordinate is NaN are dropped.
func (t *PointTable) Samples(name string) ([]Sample, error) {
	v, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	o := make([]Sample, 0, len(v))
	for i, z := range v {
		if math.IsNaN(z) || math.IsNaN(t.X[i]) || math.IsNaN(t.Y[i]) {
			continue
		}
		o = append(o, Sample{Point: geom.Point{X: t.X[i], Y: t.Y[i]}, Z: z})
	}
	return o, nil
}

// AddRoughness computes along-track roughness of attribute attr at the
// given sampling interval and stores it in a new column, whose name is
// returned. The rows of t must be in acquisition order.
func (t *PointTable) AddRoughness(attr string, interval float64) (string, error) {
	z, err := t.Column(attr)
	if err != nil {
		return "", err
	}
	name := RoughnessColumn(interval)
	return name, t.AddColumn(name, Roughness(t.X, t.Y, z, interval))
}

// ConcatTables stacks the rows of tables. The result has the union of
// their columns; a column missing from one table is NaN for that
// table's rows.
func ConcatTables(source string, tables ...*PointTable) *PointTable {
	o := &PointTable{Source: source, cols: make(map[string][]float64)}
	var n int
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, name := range t.order {
			if _, ok := o.cols[name]; !ok {
				o.order = append(o.order, name)
				o.cols[name] = nil
			}
		}
		n += t.Len()
	}
	o.X = make([]float64, 0, n)
	o.Y = make([]float64, 0, n)
	for _, name := range o.order {
		o.cols[name] = make([]float64, 0, n)
	}
	for _, t := range tables {
		if t == nil {
			continue
		}
		o.X = append(o.X, t.X...)
		o.Y = append(o.Y, t.Y...)
		for _, name := range o.order {
			if v, ok := t.cols[name]; ok {
				o.cols[name] = append(o.cols[name], v...)
				continue
			}
			for i := 0; i < t.Len(); i++ {
				o.cols[name] = append(o.cols[name], math.NaN())
			}
		}
	}
	return o
}

// CornerAnchors returns a table with one row at each corner of r and a
// value of zero in each of the named columns. Appending it to the input
// of a grid build pins the interpolation at the region boundary.
func CornerAnchors(r Region, columns ...string) (*PointTable, error) {
	corners := r.Corners()
	x := make([]float64, len(corners))
	y := make([]float64, len(corners))
	for i, c := range corners {
		x[i], y[i] = c.X, c.Y
	}
	t, err := NewPointTable("corner anchors", x, y)
	if err != nil {
		return nil, err
	}
	for _, c := range columns {
		if err := t.AddColumn(c, make([]float64, len(corners))); err != nil {
			return nil, err
		}
	}
	return t, nil
}
