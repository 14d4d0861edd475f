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

import "math"

// Residuals samples grid at every row of table by bilinear
// interpolation and returns a copy of table with two added columns:
// ColGriddedBed, the sampled grid value, and ColHighPassBed, the
// difference between attribute attr and the sampled value. Rows where
// either is undefined get NaN.
func Residuals(grid *Grid, table *PointTable, attr string) (*PointTable, error) {
	z, err := table.Column(attr)
	if err != nil {
		return nil, err
	}
	o := table.Filter(func(int) bool { return true })
	gridded := make([]float64, table.Len())
	hipass := make([]float64, table.Len())
	for i := range gridded {
		gridded[i] = grid.Bilinear(table.X[i], table.Y[i])
		hipass[i] = z[i] - gridded[i]
		if math.IsInf(hipass[i], 0) {
			hipass[i] = math.NaN()
		}
	}
	if err := o.AddColumn(ColGriddedBed, gridded); err != nil {
		return nil, err
	}
	if err := o.AddColumn(ColHighPassBed, hipass); err != nil {
		return nil, err
	}
	return o, nil
}
