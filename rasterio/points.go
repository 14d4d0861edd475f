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

package rasterio

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/coldex/cuestas"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
)

// WriteXYZ writes the rows of t where column is defined as
// tab-separated "x y value" lines.
func WriteXYZ(w io.Writer, t *cuestas.PointTable, column string) error {
	v, err := t.Column(column)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	for i, z := range v {
		if math.IsNaN(z) {
			continue
		}
		fmt.Fprintf(bw, "%s\t%s\t%s\n", formatFloat(t.X[i]), formatFloat(t.Y[i]), formatFloat(z))
	}
	return bw.Flush()
}

// WriteXYZFile writes an XYZ file at path.
func WriteXYZFile(path string, t *cuestas.PointTable, column string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rasterio: %v", err)
	}
	if err := WriteXYZ(f, t, column); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadXYZ reads whitespace-separated "x y value" lines into a table
// with the value in the named column. Lines starting with '#' or '>'
// are skipped.
func ReadXYZ(r io.Reader, source, column string) (*cuestas.PointTable, error) {
	var x, y, z []float64
	s := bufio.NewScanner(r)
	var line int
	for s.Scan() {
		line++
		text := strings.TrimSpace(s.Text())
		if text == "" || text[0] == '#' || text[0] == '>' {
			continue
		}
		f := strings.Fields(text)
		if len(f) < 3 {
			return nil, fmt.Errorf("rasterio: %s line %d: want 3 fields but got %d", source, line, len(f))
		}
		var v [3]float64
		for k := range v {
			var err error
			if v[k], err = strconv.ParseFloat(f[k], 64); err != nil {
				return nil, fmt.Errorf("rasterio: %s line %d: %v", source, line, err)
			}
		}
		x, y, z = append(x, v[0]), append(y, v[1]), append(z, v[2])
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("rasterio: reading %s: %v", source, err)
	}
	t, err := cuestas.NewPointTable(source, x, y)
	if err != nil {
		return nil, err
	}
	return t, t.AddColumn(column, z)
}

// shpFieldName shortens a column name to the ten characters allowed in
// a dBase field name.
func shpFieldName(column string) string {
	n := strings.Map(func(r rune) rune {
		if r == ' ' || r == '(' || r == ')' {
			return '_'
		}
		return r
	}, column)
	if len(n) > 10 {
		n = n[:10]
	}
	return n
}

// WritePointShapefile writes the rows of t as a point shapefile with
// one numeric attribute per named column, plus a .prj file holding
// prj if it is not empty. Rows with NaN coordinates are skipped.
func WritePointShapefile(path string, t *cuestas.PointTable, prj string, columns ...string) error {
	cols := make([][]float64, len(columns))
	fields := make([]goshp.Field, len(columns))
	for i, c := range columns {
		v, err := t.Column(c)
		if err != nil {
			return err
		}
		cols[i] = v
		fields[i] = goshp.FloatField(shpFieldName(c), 24, 6)
	}
	path = strings.TrimSuffix(path, ".shp") + ".shp"
	e, err := shp.NewEncoderFromFields(path, goshp.POINT, fields...)
	if err != nil {
		return fmt.Errorf("rasterio: creating shapefile: %v", err)
	}
	vals := make([]interface{}, len(columns))
	for i := 0; i < t.Len(); i++ {
		if math.IsNaN(t.X[i]) || math.IsNaN(t.Y[i]) {
			continue
		}
		for k := range cols {
			vals[k] = cols[k][i]
		}
		if err := e.EncodeFields(geom.Point{X: t.X[i], Y: t.Y[i]}, vals...); err != nil {
			e.Close()
			return fmt.Errorf("rasterio: writing shapefile: %v", err)
		}
	}
	e.Close()
	if prj == "" {
		return nil
	}
	return os.WriteFile(strings.TrimSuffix(path, ".shp")+".prj", []byte(prj), 0644)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
