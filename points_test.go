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
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestPointTableColumns(t *testing.T) {
	if _, err := NewPointTable("bad", []float64{1, 2}, []float64{1}); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("mismatched coordinates: have %v", err)
	}
	tbl, err := NewPointTable("survey.csv", []float64{1, 2, 3}, []float64{4, 5, 6})
	if err != nil {
		t.Fatal(err)
	}
	if err := tbl.AddColumn(ColThickness, []float64{1, 2}); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("short column: have %v", err)
	}
	if err := tbl.AddColumn(ColThickness, []float64{1000, math.NaN(), 3000}); err != nil {
		t.Fatal(err)
	}
	if err := tbl.AddColumn(ColBed, []float64{-1, -2, -3}); err != nil {
		t.Fatal(err)
	}
	if want := []string{ColThickness, ColBed}; !reflect.DeepEqual(tbl.Columns(), want) {
		t.Errorf("columns: have %v, want %v", tbl.Columns(), want)
	}

	_, err = tbl.Column(ColSpecularity)
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("have %v, want a *SchemaError", err)
	}
	if se.Column != ColSpecularity || se.Source != "survey.csv" {
		t.Errorf("schema error: %+v", se)
	}

	s, err := tbl.Samples(ColThickness)
	if err != nil {
		t.Fatal(err)
	}
	if len(s) != 2 || s[1].X != 3 || s[1].Y != 6 || s[1].Z != 3000 {
		t.Errorf("samples: %+v", s)
	}
}

func TestFilter(t *testing.T) {
	tbl, _ := NewPointTable("s", []float64{1, 2, 3, 4}, []float64{5, 6, 7, 8})
	tbl.AddColumn(ColSurface, []float64{-1, 10, 0, 20})
	z, _ := tbl.Column(ColSurface)
	o := tbl.Filter(func(i int) bool { return z[i] > 0 })
	if o.Len() != 2 {
		t.Fatalf("have %d rows", o.Len())
	}
	oz, _ := o.Column(ColSurface)
	if !reflect.DeepEqual(oz, []float64{10, 20}) || !reflect.DeepEqual(o.X, []float64{2, 4}) {
		t.Errorf("filtered: x=%v z=%v", o.X, oz)
	}
	if tbl.Len() != 4 {
		t.Error("input was modified")
	}
}

func TestConcatTables(t *testing.T) {
	a, _ := NewPointTable("a", []float64{1, 2}, []float64{1, 2})
	a.AddColumn(ColBed, []float64{10, 20})
	b, _ := NewPointTable("b", []float64{3}, []float64{3})
	b.AddColumn(ColThickness, []float64{300})
	b.AddColumn(ColBed, []float64{30})

	c := ConcatTables("all", a, nil, b)
	if c.Len() != 3 {
		t.Fatalf("have %d rows", c.Len())
	}
	bed, _ := c.Column(ColBed)
	if !reflect.DeepEqual(bed, []float64{10, 20, 30}) {
		t.Errorf("bed: %v", bed)
	}
	thk, _ := c.Column(ColThickness)
	if !math.IsNaN(thk[0]) || !math.IsNaN(thk[1]) || thk[2] != 300 {
		t.Errorf("thickness: %v", thk)
	}
	s, _ := c.Samples(ColThickness)
	if len(s) != 1 {
		t.Errorf("missing values should be dropped: %v", s)
	}
}

func TestCornerAnchors(t *testing.T) {
	r := Region{XMin: 0, XMax: 10, YMin: 20, YMax: 40}
	a, err := CornerAnchors(r, ColBed, ColThickness)
	if err != nil {
		t.Fatal(err)
	}
	if a.Len() != 4 {
		t.Fatalf("have %d rows", a.Len())
	}
	if !reflect.DeepEqual(a.X, []float64{0, 0, 10, 10}) || !reflect.DeepEqual(a.Y, []float64{20, 40, 20, 40}) {
		t.Errorf("locations: x=%v y=%v", a.X, a.Y)
	}
	for _, c := range []string{ColBed, ColThickness} {
		v, err := a.Column(c)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(v, []float64{0, 0, 0, 0}) {
			t.Errorf("%s: %v", c, v)
		}
	}
}
