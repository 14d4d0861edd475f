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

// Package hash fingerprints the parameters of a product so that runs
// can be compared.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

// printer is used for values that gob cannot encode, such as structs
// with interface fields or without exported fields.
var printer = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisableMethods:          true,
	SpewKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Fingerprint returns a hexadecimal FNV-128a digest of the given
// values, in order. Equal values give equal fingerprints.
func Fingerprint(values ...interface{}) string {
	h := fnv.New128a()
	for i, v := range values {
		fmt.Fprintf(h, "%d:", i)
		if err := gob.NewEncoder(h).Encode(v); err != nil {
			printer.Fprintf(h, "%#v", v)
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
