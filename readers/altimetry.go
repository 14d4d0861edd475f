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

package readers

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/coldex/cuestas"
	"github.com/robert-malhotra/go-hdf5/hdf5"
)

var (
	lutp2Header = []string{"year", "day", "sec", "lon", "lat", "z"}
	soarHeader  = []string{"lon", "lat", "z"}
)

// ReadLUTP2 reads the UTIG laser altimetry (LUTP2) .txt files in dir.
// Each line holds year, day, seconds, longitude, latitude and surface
// elevation.
func ReadLUTP2(dir string) (*cuestas.PointTable, error) {
	files, err := listDir(dir, func(name string) bool {
		return strings.Contains(name, "LUTP2") && filepath.Ext(name) == ".txt"
	})
	if err != nil {
		return nil, err
	}
	tables := make([]*cuestas.PointTable, 0, len(files))
	for _, name := range files {
		t, err := readLonLatZ(filepath.Join(dir, name), lutp2Header)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return cuestas.ConcatTables(dir, tables...), nil
}

// ReadSOAR reads a SOAR laser altimetry grid file of longitude,
// latitude and surface elevation.
func ReadSOAR(path string) (*cuestas.PointTable, error) {
	return readLonLatZ(path, soarHeader)
}

func readLonLatZ(path string, header []string) (*cuestas.PointTable, error) {
	var t *cuestas.PointTable
	err := withFile(path, func(r io.Reader) error {
		c, err := readColumns(r, path, header, []string{"lon", "lat", "z"}, nil)
		if err != nil {
			return err
		}
		if t, err = geographicTable(path, c["lon"], c["lat"]); err != nil {
			return err
		}
		return t.AddColumn(cuestas.ColSurface, c["z"])
	})
	return t, err
}

// ReadBASSurface reads the surface elevation from a BAS Bedmap-style
// CSV file.
func ReadBASSurface(path string) (*cuestas.PointTable, error) {
	var t *cuestas.PointTable
	err := withFile(path, func(r io.Reader) error {
		c, err := readCSV(r, path, []float64{BedmapNoData},
			"longitude (degree_east)", "latitude (degree_north)", "surface_altitude (m)")
		if err != nil {
			return err
		}
		if t, err = geographicTable(path, c[0], c[1]); err != nil {
			return err
		}
		return t.AddColumn(cuestas.ColSurface, c[2])
	})
	return t, err
}

// openHDF5 opens an HDF5 or netCDF-4 file.
func openHDF5(path string) (*hdf5.File, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &cuestas.MissingInputError{Path: path, Err: err}
		}
		return nil, fmt.Errorf("readers: %v", err)
	}
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, fmt.Errorf("readers: %s: %v", path, err)
	}
	return f, nil
}

// readDataset reads a whole dataset as float64.
func readDataset(f *hdf5.File, path, name string) ([]float64, error) {
	members, err := f.Root().Members()
	if err != nil {
		return nil, fmt.Errorf("readers: %s: %v", path, err)
	}
	if !contains(members, name) {
		return nil, &cuestas.SchemaError{Source: path, Column: name}
	}
	ds, err := f.OpenDataset(name)
	if err != nil {
		return nil, fmt.Errorf("readers: %s: dataset %s: %v", path, name, err)
	}
	v, err := ds.ReadFloat64()
	if err != nil {
		return nil, fmt.Errorf("readers: %s: dataset %s: %v", path, name, err)
	}
	if a := ds.Attr("_FillValue"); a != nil {
		if fill, err := a.ReadFloat64(); err == nil && len(fill) > 0 {
			for i, x := range v {
				if x == fill[0] {
					v[i] = math.NaN()
				}
			}
		}
	}
	return v, nil
}

func contains(s []string, v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

// ReadATL14 reads the surface height h of an ICESat-2 ATL14 digital
// elevation model tile, keeping the nodes inside r that have a value.
// The tile is netCDF-4 with one-dimensional x and y coordinates and h
// stored as (y, x).
func ReadATL14(path string, r cuestas.Region) (*cuestas.PointTable, error) {
	f, err := openHDF5(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	x, err := readDataset(f, path, "x")
	if err != nil {
		return nil, err
	}
	y, err := readDataset(f, path, "y")
	if err != nil {
		return nil, err
	}
	h, err := readDataset(f, path, "h")
	if err != nil {
		return nil, err
	}
	if len(h) != len(x)*len(y) {
		return nil, fmt.Errorf("readers: %s: h has %d values, want %d×%d", path, len(h), len(y), len(x))
	}
	var px, py, pz []float64
	for j, yj := range y {
		if yj < r.YMin || yj > r.YMax {
			continue
		}
		for i, xi := range x {
			if xi < r.XMin || xi > r.XMax {
				continue
			}
			z := h[j*len(x)+i]
			if math.IsNaN(z) || math.IsInf(z, 0) {
				continue
			}
			px = append(px, xi)
			py = append(py, yj)
			pz = append(pz, z)
		}
	}
	t, err := cuestas.NewPointTable(path, px, py)
	if err != nil {
		return nil, err
	}
	return t, t.AddColumn(cuestas.ColSurface, pz)
}
