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
	"io"
	"path/filepath"
	"strings"

	"github.com/coldex/cuestas"
)

// UTIG column names.
const (
	utigLat       = "LAT"
	utigLon       = "LON"
	utigThickness = "THK"
	utigBed       = "BED_ELEVATION"
)

// ReadOPR reads an Open Polar Radar CSV file. Bed elevation is
// (ELEVATION - SURFACE) - THICK, and along-track bed roughness is
// computed at the given interval. The rows of the file must be in
// acquisition order.
func ReadOPR(path string, interval float64) (*cuestas.PointTable, error) {
	var t *cuestas.PointTable
	err := withFile(path, func(r io.Reader) error {
		c, err := readCSV(r, path, nil, "LAT", "LON", "ELEVATION", "SURFACE", "THICK")
		if err != nil {
			return err
		}
		lat, lon, elev, srf, thk := c[0], c[1], c[2], c[3], c[4]
		if t, err = geographicTable(path, lon, lat); err != nil {
			return err
		}
		bed := make([]float64, len(elev))
		for i := range bed {
			bed[i] = (elev[i] - srf[i]) - thk[i]
		}
		if err := t.AddColumn(cuestas.ColBed, bed); err != nil {
			return err
		}
		if err := t.AddColumn(cuestas.ColThickness, thk); err != nil {
			return err
		}
		_, err = t.AddRoughness(cuestas.ColBed, interval)
		return err
	})
	return t, err
}

// ReadBedmap reads a Bedmap CSV file from the UK Polar Data Centre
// (Frémand et al., 2023). Values of BedmapNoData are missing.
func ReadBedmap(path string, interval float64) (*cuestas.PointTable, error) {
	var t *cuestas.PointTable
	err := withFile(path, func(r io.Reader) error {
		c, err := readCSV(r, path, []float64{BedmapNoData},
			"longitude (degree_east)", "latitude (degree_north)",
			"bedrock_altitude (m)", "land_ice_thickness (m)")
		if err != nil {
			return err
		}
		if t, err = geographicTable(path, c[0], c[1]); err != nil {
			return err
		}
		if err := t.AddColumn(cuestas.ColBed, c[2]); err != nil {
			return err
		}
		if err := t.AddColumn(cuestas.ColThickness, c[3]); err != nil {
			return err
		}
		_, err = t.AddRoughness(cuestas.ColBed, interval)
		return err
	})
	return t, err
}

// ReadBasalLayer reads a CSV file of basal ice layer thickness. The
// coordinates are already projected.
func ReadBasalLayer(path string) (*cuestas.PointTable, error) {
	var t *cuestas.PointTable
	err := withFile(path, func(r io.Reader) error {
		c, err := readCSV(r, path, nil, "x", "y", cuestas.ColBasalLayer)
		if err != nil {
			return err
		}
		if t, err = cuestas.NewPointTable(path, c[0], c[1]); err != nil {
			return err
		}
		return t.AddColumn(cuestas.ColBasalLayer, c[2])
	})
	return t, err
}

// ReadUTIG reads every .txt file in dir in the UTIG radar format:
// whitespace separated columns named by the last comment line before
// the data. Ice thickness (THK) and bed elevation (BED_ELEVATION) are
// stored as THICK and BED when the files have them, with bed roughness
// computed for each file separately. Specularity content is kept when
// present.
func ReadUTIG(dir string, interval float64) (*cuestas.PointTable, error) {
	files, err := listDir(dir, func(name string) bool {
		return strings.HasSuffix(name, ".txt")
	})
	if err != nil {
		return nil, err
	}
	tables := make([]*cuestas.PointTable, 0, len(files))
	for _, name := range files {
		t, err := readUTIGFile(filepath.Join(dir, name), interval)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return cuestas.ConcatTables(dir, tables...), nil
}

func readUTIGFile(path string, interval float64) (*cuestas.PointTable, error) {
	var t *cuestas.PointTable
	err := withFile(path, func(r io.Reader) error {
		c, err := readColumns(r, path, nil,
			[]string{utigLat, utigLon},
			[]string{utigThickness, utigBed, cuestas.ColSpecularity})
		if err != nil {
			return err
		}
		if t, err = geographicTable(path, c[utigLon], c[utigLat]); err != nil {
			return err
		}
		if spc, ok := c[cuestas.ColSpecularity]; ok {
			if err := t.AddColumn(cuestas.ColSpecularity, spc); err != nil {
				return err
			}
		}
		thk, ok := c[utigThickness]
		if !ok {
			return nil
		}
		bed, ok := c[utigBed]
		if !ok {
			return &cuestas.SchemaError{Source: path, Column: utigBed}
		}
		if err := t.AddColumn(cuestas.ColThickness, thk); err != nil {
			return err
		}
		if err := t.AddColumn(cuestas.ColBed, bed); err != nil {
			return err
		}
		_, err = t.AddRoughness(cuestas.ColBed, interval)
		return err
	})
	return t, err
}
