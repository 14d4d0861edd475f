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
	"fmt"
	"math"
	"os"

	"github.com/coldex/cuestas"
	"github.com/ctessum/cdf"
)

// WriteNetCDF writes g to w as a COARDS-style netCDF grid with
// coordinate variables x and y and the data in variable z. name and
// units describe z.
func WriteNetCDF(w *os.File, g *cuestas.Grid, name, units string) error {
	h := cdf.NewHeader([]string{"x", "y"}, []int{g.Nx, g.Ny})
	h.AddAttribute("", "Conventions", "COARDS")
	h.AddAttribute("", "title", name)
	h.AddAttribute("", "region", []float64{g.Region.XMin, g.Region.XMax, g.Region.YMin, g.Region.YMax})
	h.AddAttribute("", "spacing", []float64{g.Dx, g.Dy})
	h.AddAttribute("", "node_offset", []int32{0})

	h.AddVariable("x", []string{"x"}, []float64{0})
	h.AddAttribute("x", "long_name", "x")
	h.AddAttribute("x", "units", "m")
	h.AddVariable("y", []string{"y"}, []float64{0})
	h.AddAttribute("y", "long_name", "y")
	h.AddAttribute("y", "units", "m")
	h.AddVariable("z", []string{"y", "x"}, []float32{0})
	h.AddAttribute("z", "long_name", name)
	if units != "" {
		h.AddAttribute("z", "units", units)
	}
	h.AddAttribute("z", "_FillValue", []float32{float32(math.NaN())})
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("rasterio: creating netCDF file: %v", err)
	}
	if err := writeVar(f, "x", g.XAxis()); err != nil {
		return err
	}
	if err := writeVar(f, "y", g.YAxis()); err != nil {
		return err
	}
	data32 := make([]float32, len(g.Data.Elements))
	for i, e := range g.Data.Elements {
		data32[i] = float32(e)
	}
	if err := writeVar(f, "z", data32); err != nil {
		return err
	}
	return cdf.UpdateNumRecs(w)
}

// writeVar writes the whole of variable v. The end index is one past
// the last element so that the writer does not report io.EOF when it
// fills the variable.
func writeVar(f *cdf.File, v string, data interface{}) error {
	end := f.Header.Lengths(v)
	start := make([]int, len(end))
	if _, err := f.Writer(v, start, end).Write(data); err != nil {
		return fmt.Errorf("rasterio: writing %s: %v", v, err)
	}
	return nil
}

// WriteNetCDFFile writes g to a netCDF file at path.
func WriteNetCDFFile(path string, g *cuestas.Grid, name, units string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rasterio: %v", err)
	}
	if err := WriteNetCDF(f, g, name, units); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadNetCDF reads a grid written by WriteNetCDF and returns it along
// with the name stored in its title.
func ReadNetCDF(rw cdf.ReaderWriterAt) (*cuestas.Grid, string, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, "", fmt.Errorf("rasterio: opening netCDF file: %v", err)
	}
	region, ok := f.Header.GetAttribute("", "region").([]float64)
	if !ok || len(region) != 4 {
		return nil, "", fmt.Errorf("rasterio: netCDF file has no region attribute")
	}
	spacing, ok := f.Header.GetAttribute("", "spacing").([]float64)
	if !ok || len(spacing) != 2 {
		return nil, "", fmt.Errorf("rasterio: netCDF file has no spacing attribute")
	}
	name, _ := f.Header.GetAttribute("", "title").(string)

	r, err := cuestas.NewRegion(region)
	if err != nil {
		return nil, "", err
	}
	g, err := cuestas.NewGrid(r, spacing[0], spacing[1])
	if err != nil {
		return nil, "", err
	}
	dims := f.Header.Lengths("z")
	if len(dims) != 2 || dims[0] != g.Ny || dims[1] != g.Nx {
		return nil, "", fmt.Errorf("rasterio: netCDF variable z has shape %v but the grid is %dx%d", dims, g.Ny, g.Nx)
	}
	tmp := make([]float32, g.Nx*g.Ny)
	if _, err := f.Reader("z", nil, nil).Read(tmp); err != nil {
		return nil, "", fmt.Errorf("rasterio: reading z: %v", err)
	}
	for i, v := range tmp {
		g.Data.Elements[i] = float64(v)
	}
	return g, name, nil
}

// ReadNetCDFFile reads a netCDF grid file.
func ReadNetCDFFile(path string) (*cuestas.Grid, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("rasterio: %v", err)
	}
	defer f.Close()
	return ReadNetCDF(f)
}
