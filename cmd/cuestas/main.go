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

// Command cuestas is a command-line interface for gridding radar
// sounding data near the South Pole.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/coldex/cuestas"
	"github.com/coldex/cuestas/cuestasutil"
)

func main() {
	if err := cuestasutil.Root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var batch *cuestas.BatchError
		if errors.As(err, &batch) {
			// Some products were written.
			os.Exit(2)
		}
		os.Exit(1)
	}
}
