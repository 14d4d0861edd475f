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

package polarstereo

import (
	"math"
	"testing"

	"github.com/ctessum/geom"
)

func TestForward(t *testing.T) {
	for _, c := range []struct {
		lon, lat, x, y float64
	}{
		{0, -90, 0, 0},
		{0, -71, 0, 2082760.1085},
		{90, -71, 2082760.1085, 0},
		{180, -80, 0, -1089179.4556},
		{-90, -60, -3333134.0276, 0},
	} {
		x, y, err := Antarctic.Forward(c.lon, c.lat)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(x-c.x) > 1e-3 || math.Abs(y-c.y) > 1e-3 {
			t.Errorf("(%g, %g): have (%.4f, %.4f), want (%.4f, %.4f)", c.lon, c.lat, x, y, c.x, c.y)
		}
	}
	if _, _, err := Antarctic.Forward(0, 90); err == nil {
		t.Error("expected an error at the north pole")
	}
	if x, y, err := Antarctic.Forward(math.NaN(), -80); err != nil || !math.IsNaN(x) || !math.IsNaN(y) {
		t.Errorf("NaN input: (%g, %g, %v)", x, y, err)
	}
}

func TestRoundTrip(t *testing.T) {
	forward, inverse := Antarctic.Transformers()
	for _, lon := range []float64{-179, -120, -45, 0, 10, 90, 135} {
		for _, lat := range []float64{-89.99, -88, -75, -71, -60, -30} {
			x, y, err := forward(lon, lat)
			if err != nil {
				t.Fatal(err)
			}
			lon2, lat2, err := inverse(x, y)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(lon2-lon) > 1e-8 || math.Abs(lat2-lat) > 1e-8 {
				t.Errorf("(%g, %g) -> (%g, %g) -> (%g, %g)", lon, lat, x, y, lon2, lat2)
			}
		}
	}
	lon, lat, _ := inverse(0, 0)
	if lon != 0 || lat != -90 {
		t.Errorf("pole: (%g, %g)", lon, lat)
	}
}

func TestScale(t *testing.T) {
	if k := Antarctic.Scale(-71); math.Abs(k-1) > 1e-12 {
		t.Errorf("scale at true-scale latitude: %g", k)
	}
	if k := Antarctic.Scale(-85); !(k < 1) {
		t.Errorf("scale poleward of 71S should be less than 1: %g", k)
	}
}

func TestProject(t *testing.T) {
	x, y, err := Project([]float64{0, 90}, []float64{-90, -71})
	if err != nil {
		t.Fatal(err)
	}
	if x[0] != 0 || y[0] != 0 || math.Abs(x[1]-2082760.1085) > 1e-3 || math.Abs(y[1]) > 1e-6 {
		t.Errorf("x=%v y=%v", x, y)
	}
	if _, _, err := Project([]float64{0}, nil); err == nil {
		t.Error("expected a length error")
	}
	p, err := ProjectPoint(geom.Point{X: 0, Y: -90})
	if err != nil || p.X != 0 || p.Y != 0 {
		t.Errorf("ProjectPoint: %v, %v", p, err)
	}
}
