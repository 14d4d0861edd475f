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
	"testing"
)

func TestGaussianFilter(t *testing.T) {
	r := Region{XMin: 0, XMax: 20e3, YMin: 0, YMax: 20e3}

	t.Run("constant", func(t *testing.T) {
		g, _ := NewGrid(r, 1e3, 1e3)
		for k := range g.Data.Elements {
			g.Data.Elements[k] = 42
		}
		g.Set(math.NaN(), 10, 10)
		f := GaussianFilter(g, 10e3)
		for k, v := range f.Data.Elements {
			if different(v, 42, 1e-12) {
				t.Fatalf("node %d: have %g, want 42", k, v)
			}
		}
		if !math.IsNaN(g.Get(10, 10)) {
			t.Error("input was modified")
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		g, _ := NewGrid(r, 1e3, 1e3)
		for k := range g.Data.Elements {
			g.Data.Elements[k] = 0
		}
		g.Set(1, 10, 10)
		f := GaussianFilter(g, 6e3)
		c := f.Get(10, 10)
		for _, n := range [][2]int{{9, 10}, {11, 10}, {10, 9}, {10, 11}} {
			if different(f.Get(n[0], n[1]), f.Get(9, 10), 1e-12) {
				t.Errorf("neighbour %v: %g", n, f.Get(n[0], n[1]))
			}
		}
		if !(c > f.Get(9, 10)) || !(f.Get(9, 10) > f.Get(8, 10)) {
			t.Error("filtered spike should decrease away from its centre")
		}
		// Beyond half the filter width the spike has no influence.
		if f.Get(10, 14) != 0 {
			t.Errorf("outside the kernel: have %g", f.Get(10, 14))
		}
	})

	t.Run("isolated NaN", func(t *testing.T) {
		g, _ := NewGrid(r, 1e3, 1e3)
		g.Set(5, 0, 0)
		f := GaussianFilter(g, 2e3)
		if different(f.Get(0, 0), 5, 1e-12) || different(f.Get(0, 1), 5, 1e-12) {
			t.Errorf("have %g and %g, want 5", f.Get(0, 0), f.Get(0, 1))
		}
		if !math.IsNaN(f.Get(5, 5)) {
			t.Errorf("node without neighbours: have %g", f.Get(5, 5))
		}
	})

	t.Run("disabled", func(t *testing.T) {
		g, _ := NewGrid(r, 1e3, 1e3)
		g.Set(3, 2, 2)
		f := GaussianFilter(g, 0)
		if f == g || f.Get(2, 2) != 3 {
			t.Error("zero width should return a copy")
		}
	})
}
