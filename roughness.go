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
	"strconv"
)

// RoughnessWindow is the number of uniformly resampled elevations that
// contribute to one roughness value.
const RoughnessWindow = 5

// RoughnessColumn returns the column name used for roughness computed
// at the given sampling interval, e.g. "RMSD_400".
func RoughnessColumn(interval float64) string {
	return roughnessPrefix + strconv.FormatFloat(interval, 'f', -1, 64)
}

// Roughness returns the root-mean-square along-track roughness of z at
// each record of a single survey line.
//
// The records are placed on a cumulative along-track distance axis,
// z is linearly resampled every sampleInterval, and the roughness on
// the uniform axis is the square root of the mean squared first
// difference over a window of RoughnessWindow samples. The result is
// interpolated back to the original records. The first
// RoughnessWindow-1 resampled values have no complete window and are
// NaN, as is anything derived from them. Records past the last whole
// interval receive a linearly extrapolated value, floored at zero.
//
// The output has the same length as the input. Fewer than two records,
// a track with no length, or fewer than two finite z values give all NaN.
func Roughness(x, y, z []float64, sampleInterval float64) []float64 {
	n := len(z)
	out := nanSlice(n)
	if n < 2 || len(x) != n || len(y) != n || !(sampleInterval > 0) {
		return out
	}

	dist := make([]float64, n)
	for i := 1; i < n; i++ {
		step := math.Hypot(x[i]-x[i-1], y[i]-y[i-1])
		if math.IsNaN(step) {
			step = 0
		}
		dist[i] = dist[i-1] + step
	}

	maxDistance := sampleInterval * math.Floor(dist[n-1]/sampleInterval)
	if !(maxDistance > 0) {
		return out
	}
	nAxis := int(maxDistance/sampleInterval+0.5) + 1
	axis := make([]float64, nAxis)
	for k := range axis {
		axis[k] = float64(k) * sampleInterval
	}

	var kd, kz []float64
	for i := range z {
		if !math.IsNaN(z[i]) {
			kd = append(kd, dist[i])
			kz = append(kz, z[i])
		}
	}
	if len(kd) < 2 {
		return out
	}
	resampled := make([]float64, nAxis)
	for k, d := range axis {
		resampled[k] = interp(d, kd, kz, false)
	}

	rough := rollingRMSDiff(resampled, RoughnessWindow)
	for i, d := range dist {
		out[i] = math.Max(interp(d, axis, rough, true), 0)
	}
	return out
}

// rollingRMSDiff returns sqrt(mean(diff(v)^2)) over trailing windows of
// window values. Entries without a full window, or whose window holds
// a NaN, are NaN.
func rollingRMSDiff(v []float64, window int) []float64 {
	o := nanSlice(len(v))
	for k := window - 1; k < len(v); k++ {
		var sum float64
		for m := k - window + 2; m <= k; m++ {
			d := v[m] - v[m-1]
			sum += d * d
		}
		o[k] = math.Sqrt(sum / float64(window-1))
	}
	return o
}

// interp linearly interpolates (xp, fp) at x. xp must be non-decreasing.
// Outside xp the end values are held, unless extrapolate is true, in
// which case the end segments are extended.
func interp(x float64, xp, fp []float64, extrapolate bool) float64 {
	n := len(xp)
	if n == 0 || math.IsNaN(x) {
		return math.NaN()
	}
	if n == 1 {
		return fp[0]
	}
	hi := sort.Search(n, func(i int) bool { return xp[i] > x })
	var lo int
	switch {
	case hi == 0:
		if !extrapolate {
			return fp[0]
		}
		lo, hi = 0, 1
	case hi == n:
		if xp[n-1] == x || !extrapolate {
			return fp[n-1]
		}
		lo, hi = n-2, n-1
	default:
		lo = hi - 1
		if xp[lo] == x {
			return fp[lo]
		}
	}
	if xp[hi] == xp[lo] {
		return fp[lo]
	}
	t := (x - xp[lo]) / (xp[hi] - xp[lo])
	return fp[lo] + t*(fp[hi]-fp[lo])
}

func nanSlice(n int) []float64 {
	o := make([]float64, n)
	for i := range o {
		o[i] = math.NaN()
	}
	return o
}
