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

// Package readers loads the radar sounding, laser altimetry and ice
// velocity data sets that feed the grid builds. Geographic coordinates
// are projected to Antarctic polar stereographic (EPSG:3031).
//
// A file that does not exist gives an error matching
// cuestas.ErrMissingInputFile, and a file without a required column gives
// a *cuestas.SchemaError.
package readers

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/coldex/cuestas"
	"github.com/coldex/cuestas/polarstereo"
	"golang.org/x/text/encoding/charmap"
)

// BedmapNoData marks missing values in Bedmap files.
const BedmapNoData = -9999

// openInput opens path for reading.
func openInput(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &cuestas.MissingInputError{Path: path, Err: err}
		}
		return nil, fmt.Errorf("readers: %v", err)
	}
	return f, nil
}

// listDir returns the regular files in dir whose names satisfy keep,
// in lexical order.
func listDir(dir string, keep func(name string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &cuestas.MissingInputError{Path: dir, Err: err}
		}
		return nil, fmt.Errorf("readers: %v", err)
	}
	var o []string
	for _, e := range entries {
		if e.IsDir() || !keep(e.Name()) {
			continue
		}
		o = append(o, e.Name())
	}
	if len(o) == 0 {
		return nil, &cuestas.MissingInputError{Path: dir, Err: errors.New("no matching data files")}
	}
	return o, nil
}

// parseFloat parses a numeric field. Empty fields and values equal to
// any of nodata are NaN.
func parseFloat(s string, nodata []float64) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN(), err
	}
	for _, nd := range nodata {
		if v == nd {
			return math.NaN(), nil
		}
	}
	return v, nil
}

// columnIndex finds each of want in header.
func columnIndex(source string, header, want []string) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, ok := pos[h]; !ok {
			pos[h] = i
		}
	}
	idx := make([]int, len(want))
	for k, w := range want {
		i, ok := pos[w]
		if !ok {
			return nil, &cuestas.SchemaError{Source: source, Column: w}
		}
		idx[k] = i
	}
	return idx, nil
}

// readCSV reads the wanted columns of a comma separated file whose
// first non-comment line is a header.
func readCSV(r io.Reader, source string, nodata []float64, want ...string) ([][]float64, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &cuestas.SchemaError{Source: source, Column: want[0]}
	} else if err != nil {
		return nil, fmt.Errorf("readers: %s: %v", source, err)
	}
	idx, err := columnIndex(source, header, want)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(want))
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("readers: %s: %v", source, err)
		}
		line, _ := cr.FieldPos(0)
		for k, i := range idx {
			if i >= len(rec) {
				return nil, fmt.Errorf("readers: %s line %d: %d fields, want at least %d", source, line, len(rec), i+1)
			}
			v, err := parseFloat(rec[i], nodata)
			if err != nil {
				return nil, fmt.Errorf("readers: %s line %d: column %q: %v", source, line, want[k], err)
			}
			out[k] = append(out[k], v)
		}
	}
	return out, nil
}

// readColumns reads a whitespace separated, ISO-8859-1 encoded file.
// Lines starting with '#' are comments. If header is nil, the column
// names are taken from the last comment line before the first data
// line. The columns in want must exist; those in optional are returned
// when present.
func readColumns(r io.Reader, source string, header, want, optional []string) (map[string][]float64, error) {
	s := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(r))
	s.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		names   []string
		idx     []int
		comment string
		lineNo  int
	)
	resolve := func(h []string) error {
		var err error
		if idx, err = columnIndex(source, h, want); err != nil {
			return err
		}
		names = append([]string(nil), want...)
		for _, o := range optional {
			if oi, err := columnIndex(source, h, []string{o}); err == nil {
				names = append(names, o)
				idx = append(idx, oi[0])
			}
		}
		return nil
	}
	if header != nil {
		if err := resolve(header); err != nil {
			return nil, err
		}
	}
	vals := make([][]float64, len(want)+len(optional))
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		if line[0] == '#' {
			comment = line
			continue
		}
		if idx == nil {
			if err := resolve(strings.Fields(strings.TrimLeft(comment, "#"))); err != nil {
				return nil, err
			}
		}
		fields := strings.Fields(line)
		for k, i := range idx {
			if i >= len(fields) {
				return nil, fmt.Errorf("readers: %s line %d: %d fields, want at least %d", source, lineNo, len(fields), i+1)
			}
			v, err := parseFloat(fields[i], nil)
			if err != nil {
				return nil, fmt.Errorf("readers: %s line %d: column %q: %v", source, lineNo, names[k], err)
			}
			vals[k] = append(vals[k], v)
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("readers: %s: %v", source, err)
	}
	if idx == nil {
		// No data lines.
		if err := resolve(strings.Fields(strings.TrimLeft(comment, "#"))); err != nil {
			return nil, err
		}
	}
	out := make(map[string][]float64, len(names))
	for k, n := range names {
		out[n] = vals[k]
	}
	return out, nil
}

// geographicTable projects longitude and latitude and returns a table
// of the projected locations.
func geographicTable(source string, lon, lat []float64) (*cuestas.PointTable, error) {
	x, y, err := polarstereo.Project(lon, lat)
	if err != nil {
		return nil, fmt.Errorf("readers: %s: %v", source, err)
	}
	return cuestas.NewPointTable(source, x, y)
}

func withFile(path string, f func(r io.Reader) error) error {
	fh, err := openInput(path)
	if err != nil {
		return err
	}
	defer fh.Close()
	return f(fh)
}
