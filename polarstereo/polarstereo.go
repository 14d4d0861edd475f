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

// Package polarstereo implements the polar stereographic projection used
// for Antarctic data (EPSG:3031) as geom/proj transformers.
package polarstereo

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// EPSG is the code of the Antarctic polar stereographic projection.
const EPSG = 3031

// WKT is the well-known text of EPSG:3031, as written to .prj files.
const WKT = `PROJCS["WGS 84 / Antarctic Polar Stereographic",GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],AUTHORITY["EPSG","4326"]],PROJECTION["Polar_Stereographic"],PARAMETER["latitude_of_origin",-71],PARAMETER["central_meridian",0],PARAMETER["false_easting",0],PARAMETER["false_northing",0],UNIT["metre",1,AUTHORITY["EPSG","9001"]],AXIS["Easting",NORTH],AXIS["Northing",NORTH],AUTHORITY["EPSG","3031"]]`

// Projection is a south polar stereographic projection on an ellipsoid.
type Projection struct {
	// A is the semi-major axis in metres and F is the flattening.
	A, F float64

	// LatTS is the latitude of true scale in degrees. It must be
	// negative.
	LatTS float64

	// Lon0 is the central meridian in degrees.
	Lon0 float64
}

// Antarctic is EPSG:3031: WGS 84 with true scale at 71°S.
var Antarctic = Projection{A: 6378137, F: 1 / 298.257223563, LatTS: -71, Lon0: 0}

func (p Projection) e() float64 { return math.Sqrt(p.F * (2 - p.F)) }

// t is Snyder's (1987) eq. 15-9 for a latitude in radians measured
// towards the projection pole.
func t(phi, e float64) float64 {
	s := e * math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-s)/(1+s), e/2)
}

func m(phi, e float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-e*e*s*s)
}

// rhoScale returns a*mc/tc, which multiplies t to give the distance
// from the pole.
func (p Projection) rhoScale() float64 {
	e := p.e()
	phic := -p.LatTS * math.Pi / 180
	return p.A * m(phic, e) / t(phic, e)
}

// Forward projects a longitude and latitude in degrees to x and y in
// metres. NaN inputs give NaN outputs.
func (p Projection) Forward(lon, lat float64) (x, y float64, err error) {
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return math.NaN(), math.NaN(), nil
	}
	if lat < -90 || lat >= 90 {
		return math.NaN(), math.NaN(), fmt.Errorf("polarstereo: latitude %g is out of range", lat)
	}
	rho := p.rhoScale() * t(-lat*math.Pi/180, p.e())
	dlon := (lon - p.Lon0) * math.Pi / 180
	return rho * math.Sin(dlon), rho * math.Cos(dlon), nil
}

// Inverse converts x and y in metres to longitude and latitude in
// degrees. Longitudes are in [-180, 180].
func (p Projection) Inverse(x, y float64) (lon, lat float64, err error) {
	if math.IsNaN(x) || math.IsNaN(y) {
		return math.NaN(), math.NaN(), nil
	}
	rho := math.Hypot(x, y)
	if rho == 0 {
		return p.Lon0, -90, nil
	}
	e := p.e()
	ts := rho / p.rhoScale()
	phi := math.Pi/2 - 2*math.Atan(ts)
	for i := 0; i < 15; i++ {
		s := e * math.Sin(phi)
		next := math.Pi/2 - 2*math.Atan(ts*math.Pow((1-s)/(1+s), e/2))
		if math.Abs(next-phi) < 1e-12 {
			phi = next
			break
		}
		phi = next
	}
	lon = p.Lon0 + math.Atan2(x, y)*180/math.Pi
	if lon > 180 {
		lon -= 360
	} else if lon < -180 {
		lon += 360
	}
	return lon, -phi * 180 / math.Pi, nil
}

// Scale returns the point scale factor at latitude lat in degrees. It
// is 1 at LatTS.
func (p Projection) Scale(lat float64) float64 {
	e := p.e()
	phi := -lat * math.Pi / 180
	return p.rhoScale() * t(phi, e) / (p.A * m(phi, e))
}

// Transformers returns the forward (longitude, latitude to x, y) and
// inverse transformations.
func (p Projection) Transformers() (forward, inverse proj.Transformer) {
	return p.Forward, p.Inverse
}

// Project projects parallel longitude and latitude slices.
func Project(lon, lat []float64) (x, y []float64, err error) {
	if len(lon) != len(lat) {
		return nil, nil, fmt.Errorf("polarstereo: %d longitudes but %d latitudes", len(lon), len(lat))
	}
	x = make([]float64, len(lon))
	y = make([]float64, len(lon))
	for i := range lon {
		x[i], y[i], err = Antarctic.Forward(lon[i], lat[i])
		if err != nil {
			return nil, nil, err
		}
	}
	return x, y, nil
}

// ProjectPoint projects a geographic point with X as longitude and Y
// as latitude.
func ProjectPoint(p geom.Point) (geom.Point, error) {
	x, y, err := Antarctic.Forward(p.X, p.Y)
	return geom.Point{X: x, Y: y}, err
}
