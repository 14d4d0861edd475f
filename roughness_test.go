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
	"math"
	"math/rand"
	"testing"
)

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

func absDifferent(a, b, tolerance float64) bool {
	return math.Abs(a-b) > tolerance || math.IsNaN(a) || math.IsNaN(b)
}

func TestRoughnessFivePointTrack(t *testing.T) {
	x := []float64{0, 100, 200, 300, 400}
	y := []float64{0, 0, 0, 0, 0}
	z := []float64{0, 1, 0, 1, 0}
	r := Roughness(x, y, z, 100)
	if len(r) != 5 {
		t.Fatalf("length: have %d, want 5", len(r))
	}
	for i := 0; i < 4; i++ {
		if !math.IsNaN(r[i]) {
			t.Errorf("record %d: have %g, want NaN", i, r[i])
		}
	}
	if different(r[4], 1, 1e-12) {
		t.Errorf("record 4: have %g, want 1", r[4])
	}
}

func TestRoughnessLengthAndFinite(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for _, n := range []int{0, 1, 2, 3, 7, 50, 333} {
		x := make([]float64, n)
		y := make([]float64, n)
		z := make([]float64, n)
		var px, py float64
		for i := range x {
			px += rnd.Float64() * 150
			py += rnd.Float64() * 20
			x[i], y[i] = px, py
			z[i] = rnd.NormFloat64() * 30
			if i%17 == 5 {
				z[i] = math.NaN()
			}
		}
		r := Roughness(x, y, z, 400)
		if len(r) != n {
			t.Errorf("n=%d: output length %d", n, len(r))
		}
		for i, v := range r {
			if math.IsInf(v, 0) {
				t.Errorf("n=%d: record %d is infinite", n, i)
			}
		}
	}
}

func TestRoughnessDegenerate(t *testing.T) {
	cases := []struct {
		name    string
		x, y, z []float64
	}{
		{name: "single", x: []float64{1}, y: []float64{2}, z: []float64{3}},
		{name: "no length", x: []float64{5, 5, 5}, y: []float64{1, 1, 1}, z: []float64{1, 2, 3}},
		{name: "shorter than interval", x: []float64{0, 10, 20}, y: []float64{0, 0, 0}, z: []float64{1, 2, 3}},
		{name: "one elevation", x: []float64{0, 100, 200, 300, 400, 500}, y: make([]float64, 6),
			z: []float64{math.NaN(), math.NaN(), 4, math.NaN(), math.NaN(), math.NaN()}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := Roughness(c.x, c.y, c.z, 100)
			if len(r) != len(c.z) {
				t.Fatalf("length: have %d, want %d", len(r), len(c.z))
			}
			for i, v := range r {
				if !math.IsNaN(v) {
					t.Errorf("record %d: have %g, want NaN", i, v)
				}
			}
		})
	}
}

func TestRoughnessExtrapolation(t *testing.T) {
	// A uniform slope of 0.01 gives a constant roughness of 1 at a 100 m
	// interval. Records past the last whole interval are extrapolated.
	var x, y, z []float64
	for d := 0.; d <= 950; d += 50 {
		x = append(x, d)
		y = append(y, 0)
		z = append(z, 0.01*d)
	}
	r := Roughness(x, y, z, 100)
	for i, d := range x {
		if d < 400 {
			if !math.IsNaN(r[i]) {
				t.Errorf("distance %g: have %g, want NaN", d, r[i])
			}
			continue
		}
		if different(r[i], 1, 1e-9) {
			t.Errorf("distance %g: have %g, want 1", d, r[i])
		}
	}
}

func TestRoughnessStepNearEnd(t *testing.T) {
	// A 100 m bed step between 400 and 500 m. The roughness on the
	// uniform axis is 50 from 500 to 800 m and 0 at 900 m, so the
	// extension past 900 m would go negative.
	var x, y, z []float64
	for d := 0.; d <= 950; d += 50 {
		x = append(x, d)
		y = append(y, 0)
		switch {
		case d <= 400:
			z = append(z, 0)
		case d >= 500:
			z = append(z, 100)
		default:
			z = append(z, d-400)
		}
	}
	r := Roughness(x, y, z, 100)
	for i, d := range x {
		if d < 400 {
			continue
		}
		if r[i] < 0 {
			t.Errorf("distance %g: negative roughness %g", d, r[i])
		}
	}
	for _, c := range []struct{ d, want float64 }{
		{400, 0},
		{600, 50},
		{850, 25},
		{900, 0},
		{950, 0},
	} {
		i := int(c.d / 50)
		if absDifferent(r[i], c.want, 1e-9) {
			t.Errorf("distance %g: have %g, want %g", c.d, r[i], c.want)
		}
	}
}

func TestRoughnessNaNCoordinates(t *testing.T) {
	// A NaN step is treated as zero distance.
	x := []float64{math.NaN(), 0, 100, 200, 300, 400, 500}
	y := []float64{0, 0, 0, 0, 0, 0, 0}
	z := []float64{0, 0, 1, 0, 1, 0, 1}
	r := Roughness(x, y, z, 100)
	if len(r) != len(x) {
		t.Fatalf("length: have %d", len(r))
	}
	if different(r[6], 1, 1e-12) {
		t.Errorf("last record: have %g, want 1", r[6])
	}
}

func TestRoughnessColumn(t *testing.T) {
	for _, c := range []struct {
		interval float64
		want     string
	}{
		{400, "RMSD_400"},
		{12.5, "RMSD_12.5"},
	} {
		if have := RoughnessColumn(c.interval); have != c.want {
			t.Errorf("have %q, want %q", have, c.want)
		}
	}
}

func TestAddRoughness(t *testing.T) {
	tbl, err := NewPointTable("track", []float64{0, 100, 200, 300, 400}, []float64{0, 0, 0, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if err := tbl.AddColumn(ColBed, []float64{0, 1, 0, 1, 0}); err != nil {
		t.Fatal(err)
	}
	name, err := tbl.AddRoughness(ColBed, 100)
	if err != nil {
		t.Fatal(err)
	}
	if name != "RMSD_100" {
		t.Errorf("column name %q", name)
	}
	r, err := tbl.Column(name)
	if err != nil {
		t.Fatal(err)
	}
	if different(r[4], 1, 1e-12) {
		t.Errorf("have %g, want 1", r[4])
	}
	if _, err := tbl.AddRoughness(ColThickness, 100); err == nil {
		t.Error("expected an error for a missing column")
	}
}

func TestInterp(t *testing.T) {
	xp := []float64{0, 1, 2}
	fp := []float64{0, 10, 30}
	for _, c := range []struct {
		x           float64
		extrapolate bool
		want        float64
	}{
		{0.5, false, 5},
		{1, false, 10},
		{-1, false, 0},
		{3, false, 30},
		{-1, true, -10},
		{3, true, 50},
	} {
		if have := interp(c.x, xp, fp, c.extrapolate); absDifferent(have, c.want, 1e-12) {
			t.Errorf("interp(%g, %v): have %g, want %g", c.x, c.extrapolate, have, c.want)
		}
	}
}
