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
	"sort"

	"github.com/ctessum/geom"
)

// BlockMean reduces samples to one representative per occupied block.
// Blocks are spacing wide and centred on the nodes
// (XMin + i*spacing, YMin + j*spacing), with the outermost blocks
// reaching the region edges. Each occupied block yields the mean x, the
// mean y and the mean value of the samples inside it. When rms is true
// the value is the quadratic mean sqrt(mean(z^2)) instead. Samples
// outside the region or with NaN values are ignored. The output is
// ordered by block, row by row from the south-west.
func BlockMean(samples []Sample, r Region, spacing float64, rms bool) []Sample {
	if !(spacing > 0) || r.Validate() != nil {
		return nil
	}
	nx := int(math.Round((r.XMax-r.XMin)/spacing)) + 1
	ny := int(math.Round((r.YMax-r.YMin)/spacing)) + 1

	type block struct {
		x, y, z float64
		n       int
	}
	blocks := make(map[int]*block)
	for _, s := range samples {
		if math.IsNaN(s.Z) || !r.Contains(s.Point) {
			continue
		}
		i := int(math.Floor((s.X-r.XMin)/spacing + 0.5))
		j := int(math.Floor((s.Y-r.YMin)/spacing + 0.5))
		if i >= nx {
			i = nx - 1
		}
		if j >= ny {
			j = ny - 1
		}
		k := j*nx + i
		b, ok := blocks[k]
		if !ok {
			b = new(block)
			blocks[k] = b
		}
		b.x += s.X
		b.y += s.Y
		if rms {
			b.z += s.Z * s.Z
		} else {
			b.z += s.Z
		}
		b.n++
	}

	keys := make([]int, 0, len(blocks))
	for k := range blocks {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	o := make([]Sample, len(keys))
	for m, k := range keys {
		b := blocks[k]
		n := float64(b.n)
		z := b.z / n
		if rms {
			z = math.Sqrt(z)
		}
		o[m] = Sample{Point: geom.Point{X: b.x / n, Y: b.y / n}, Z: z}
	}
	return o
}
