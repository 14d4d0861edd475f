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

// Package cuestas grids scattered radar-sounding observations of the
// Antarctic ice sheet into co-registered raster products.
//
// Point observations from several surveys are combined into a
// PointTable, optionally given an along-track roughness attribute with
// Roughness, and gridded one attribute at a time by a Builder. A build
// reduces the points by block-mean binning, fills a regular lattice with
// a DenseInterpolator (by default the external nnbathy natural-neighbour
// program), smooths the result with a Gaussian filter, and masks out
// nodes that are too far from any observation according to an
// independent minimum-curvature surface fit. Products built over the
// same Region with the same spacing can be combined with Derive.
package cuestas

// Version gives the version number.
const Version = "0.3.0"
