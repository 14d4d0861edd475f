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

func TestDerive(t *testing.T) {
	r := Region{XMin: 0, XMax: 4, YMin: 0, YMax: 1}
	basal, _ := NewGrid(r, 1, 1)
	thk, _ := NewGrid(r, 1, 1)
	copy(basal.Data.Elements, []float64{5, 5, math.NaN(), 0})
	copy(thk.Data.Elements, []float64{50, 0, 100, 0})
	grids := map[string]*Grid{
		"basal_layer_thickness": basal,
		"icethk":                thk,
	}

	fract, err := Derive("100 * basal_layer_thickness / icethk", grids)
	if err != nil {
		t.Fatal(err)
	}
	if different(fract.Get(0, 0), 10, 1e-12) {
		t.Errorf("node 0: have %g, want 10", fract.Get(0, 0))
	}
	for i := 1; i < 4; i++ {
		if v := fract.Get(0, i); !math.IsNaN(v) {
			t.Errorf("node %d: have %g, want NaN", i, v)
		}
	}
	if basal.Get(0, 0) != 5 || thk.Get(0, 0) != 50 {
		t.Error("inputs were modified")
	}

	s, err := Derive("sqrt(abs(icethk)) + 1", grids)
	if err != nil {
		t.Fatal(err)
	}
	if different(s.Get(0, 2), 11, 1e-12) {
		t.Errorf("sqrt: have %g, want 11", s.Get(0, 2))
	}
}

func TestDeriveErrors(t *testing.T) {
	a, _ := NewGrid(Region{XMin: 0, XMax: 4, YMin: 0, YMax: 1}, 1, 1)
	b, _ := NewGrid(Region{XMin: 0, XMax: 4, YMin: 0, YMax: 1}, 2, 1)
	grids := map[string]*Grid{"a": a, "b": b}
	if _, err := Derive("a / b", grids); !errors.Is(err, ErrNotCoRegistered) {
		t.Errorf("have %v, want ErrNotCoRegistered", err)
	}
	if _, err := Derive("a / c", grids); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("have %v, want ErrInvalidParams", err)
	}
	if _, err := Derive("2 + 2", grids); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("have %v, want ErrInvalidParams", err)
	}
	if _, err := Derive("a +", grids); err == nil {
		t.Error("expected a parse error")
	}
}

func TestExpressionVars(t *testing.T) {
	v, err := ExpressionVars("100 * basal_layer_thickness / icethk + icethk * 0")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"basal_layer_thickness", "icethk"}; !reflect.DeepEqual(v, want) {
		t.Errorf("have %v, want %v", v, want)
	}
}
