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

package hash

import (
	"math"
	"testing"
)

type params struct {
	Name    string
	Spacing float64
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint(params{Name: "icethk", Spacing: 1000}, "nnbathy")
	if len(a) != 32 {
		t.Errorf("length %d != 32", len(a))
	}
	if b := Fingerprint(params{Name: "icethk", Spacing: 1000}, "nnbathy"); a != b {
		t.Errorf("equal values: %s != %s", a, b)
	}
	if b := Fingerprint(params{Name: "icethk", Spacing: 500}, "nnbathy"); a == b {
		t.Error("different spacing gave the same fingerprint")
	}
	if b := Fingerprint("nnbathy", params{Name: "icethk", Spacing: 1000}); a == b {
		t.Error("order of values should matter")
	}
}

func TestFingerprintUnencodable(t *testing.T) {
	// gob cannot encode a struct without exported fields.
	type hidden struct{ v float64 }
	a := Fingerprint(hidden{v: math.NaN()})
	if b := Fingerprint(hidden{v: math.NaN()}); a != b {
		t.Errorf("%s != %s", a, b)
	}
	if b := Fingerprint(hidden{v: 1}); a == b {
		t.Error("different values gave the same fingerprint")
	}
}
