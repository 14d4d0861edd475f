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
	"errors"
	"math"
	"testing"

	"github.com/ctessum/geom"
)

func TestInverseDistance(t *testing.T) {
	control := []Sample{
		{Point: geom.Point{X: 0, Y: 0}, Z: 10},
		{Point: geom.Point{X: 10, Y: 0}, Z: 20},
		{Point: geom.Point{X: 5, Y: 50}, Z: math.NaN()},
	}
	lattice := []geom.Point{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 10, Y: 0}, {X: 2, Y: 0}}
	out, err := InverseDistance{Neighbors: 2}.Interpolate(context.Background(), control, lattice)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(lattice) {
		t.Fatalf("have %d values", len(out))
	}
	want := []float64{10, 15, 20, (10/4. + 20/64.) / (1/4. + 1/64.)}
	for i, w := range want {
		if out[i].Point != lattice[i] {
			t.Errorf("point %d moved to %v", i, out[i].Point)
		}
		if different(out[i].Z, w, 1e-12) {
			t.Errorf("point %d: have %g, want %g", i, out[i].Z, w)
		}
	}
}

func TestInverseDistanceNoControl(t *testing.T) {
	out, err := InverseDistance{}.Interpolate(context.Background(), nil, []geom.Point{{X: 1, Y: 1}})
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(out[0].Z) {
		t.Errorf("have %g, want NaN", out[0].Z)
	}
}

func TestInverseDistanceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	control := []Sample{{Point: geom.Point{X: 0, Y: 0}, Z: 1}}
	_, err := InverseDistance{}.Interpolate(ctx, control, []geom.Point{{X: 1, Y: 1}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("have %v", err)
	}
}

func TestRegularize(t *testing.T) {
	template, _ := NewGrid(Region{XMin: 0, XMax: 3, YMin: 0, YMax: 2}, 1, 1)
	samples := []Sample{
		{Point: geom.Point{X: 0, Y: 0}, Z: 1},
		{Point: geom.Point{X: 1.0000001, Y: 0.9999999}, Z: 2},
		{Point: geom.Point{X: 0.9, Y: 1.1}, Z: 4},
		{Point: geom.Point{X: 2, Y: 1}, Z: math.NaN()},
		{Point: geom.Point{X: 7, Y: 1}, Z: 9},
	}
	g := Regularize(template, samples)
	if g.Get(0, 0) != 1 {
		t.Errorf("(0, 0): have %g", g.Get(0, 0))
	}
	if g.Get(1, 1) != 3 {
		t.Errorf("duplicates should be averaged: have %g", g.Get(1, 1))
	}
	if g.CountValid() != 2 {
		t.Errorf("have %d valid nodes, want 2", g.CountValid())
	}
	if !g.CoRegistered(template) {
		t.Error("result is not co-registered with the template")
	}
}
