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

// Package rasterio reads and writes gridded products and point tables in
// the file formats used downstream: GeoTIFF, COARDS netCDF, tab-separated
// XYZ text and point shapefiles.
package rasterio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/coldex/cuestas"
)

// TIFF tags.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagImageDesc       = 270
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagSampleFormat    = 339
	tagTileWidth       = 322
	tagPixelScale      = 33550
	tagTiepoint        = 33922
	tagGeoKeyDirectory = 34735
	tagGDALNoData      = 42113
)

// TIFF field types.
const (
	typeASCII  = 2
	typeShort  = 3
	typeLong   = 4
	typeDouble = 12
)

// GeoTIFF keys.
const (
	keyModelType     = 1024
	keyRasterType    = 1025
	keyProjectedType = 3072

	modelTypeProjected = 1
	rasterPixelIsArea  = 1
	rasterPixelIsPoint = 2
)

var typeSize = map[uint16]int{typeASCII: 1, typeShort: 2, typeLong: 4, typeDouble: 8}

type ifdEntry struct {
	tag, typ uint16
	count    uint32
	data     []byte
}

func shortEntry(tag uint16, v ...uint16) ifdEntry {
	b := make([]byte, 2*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint16(b[2*i:], x)
	}
	return ifdEntry{tag: tag, typ: typeShort, count: uint32(len(v)), data: b}
}

func longEntry(tag uint16, v ...uint32) ifdEntry {
	b := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(b[4*i:], x)
	}
	return ifdEntry{tag: tag, typ: typeLong, count: uint32(len(v)), data: b}
}

func doubleEntry(tag uint16, v ...float64) ifdEntry {
	b := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(b[8*i:], math.Float64bits(x))
	}
	return ifdEntry{tag: tag, typ: typeDouble, count: uint32(len(v)), data: b}
}

func asciiEntry(tag uint16, s string) ifdEntry {
	b := append([]byte(s), 0)
	return ifdEntry{tag: tag, typ: typeASCII, count: uint32(len(b)), data: b}
}

// WriteGeoTIFF writes g as a single-band, uncompressed, north-up float32
// GeoTIFF in the projected coordinate system with the given EPSG code.
// Grid nodes are written as pixel centres (PixelIsPoint), and NaN marks
// missing data. description, if not empty, is stored in the
// ImageDescription tag.
func WriteGeoTIFF(w io.Writer, g *cuestas.Grid, epsg int, description string) error {
	if g.Nx < 1 || g.Ny < 1 {
		return fmt.Errorf("rasterio: cannot write an empty grid")
	}
	if epsg <= 0 || epsg > math.MaxUint16 {
		return fmt.Errorf("rasterio: EPSG code %d is out of range", epsg)
	}
	imageSize := uint32(4 * g.Nx * g.Ny)
	entries := []ifdEntry{
		longEntry(tagImageWidth, uint32(g.Nx)),
		longEntry(tagImageLength, uint32(g.Ny)),
		shortEntry(tagBitsPerSample, 32),
		shortEntry(tagCompression, 1),
		shortEntry(tagPhotometric, 1),
		longEntry(tagStripOffsets, 0),
		shortEntry(tagSamplesPerPixel, 1),
		longEntry(tagRowsPerStrip, uint32(g.Ny)),
		longEntry(tagStripByteCounts, imageSize),
		shortEntry(tagPlanarConfig, 1),
		shortEntry(tagSampleFormat, 3),
		doubleEntry(tagPixelScale, g.Dx, g.Dy, 0),
		doubleEntry(tagTiepoint, 0, 0, 0, g.X(0), g.Y(g.Ny-1), 0),
		shortEntry(tagGeoKeyDirectory,
			1, 1, 0, 3,
			keyModelType, 0, 1, modelTypeProjected,
			keyRasterType, 0, 1, rasterPixelIsPoint,
			keyProjectedType, 0, 1, uint16(epsg)),
		asciiEntry(tagGDALNoData, "nan"),
	}
	if description != "" {
		entries = append(entries, asciiEntry(tagImageDesc, description))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	// Layout: header, IFD, out-of-line values, image.
	const headerSize = 8
	ifdSize := 2 + 12*len(entries) + 4
	offset := uint32(headerSize + ifdSize)
	offsets := make([]uint32, len(entries))
	for i, e := range entries {
		if len(e.data) > 4 {
			offsets[i] = offset
			offset += uint32(len(e.data))
			offset += offset % 2
		}
	}
	for i, e := range entries {
		if e.tag == tagStripOffsets {
			entries[i] = longEntry(tagStripOffsets, offset)
		}
	}

	bw := bufio.NewWriter(w)
	le := binary.LittleEndian
	var buf [12]byte
	bw.WriteString("II")
	le.PutUint16(buf[:], 42)
	le.PutUint32(buf[2:], headerSize)
	bw.Write(buf[:6])

	le.PutUint16(buf[:], uint16(len(entries)))
	bw.Write(buf[:2])
	for i, e := range entries {
		le.PutUint16(buf[0:], e.tag)
		le.PutUint16(buf[2:], e.typ)
		le.PutUint32(buf[4:], e.count)
		for k := 8; k < 12; k++ {
			buf[k] = 0
		}
		if len(e.data) > 4 {
			le.PutUint32(buf[8:], offsets[i])
		} else {
			copy(buf[8:], e.data)
		}
		bw.Write(buf[:12])
	}
	bw.Write([]byte{0, 0, 0, 0})

	for _, e := range entries {
		if len(e.data) > 4 {
			bw.Write(e.data)
			if len(e.data)%2 == 1 {
				bw.WriteByte(0)
			}
		}
	}

	row := make([]byte, 4*g.Nx)
	for r := 0; r < g.Ny; r++ {
		j := g.Ny - 1 - r
		for i := 0; i < g.Nx; i++ {
			le.PutUint32(row[4*i:], math.Float32bits(float32(g.Get(j, i))))
		}
		if _, err := bw.Write(row); err != nil {
			return fmt.Errorf("rasterio: writing GeoTIFF: %v", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("rasterio: writing GeoTIFF: %v", err)
	}
	return nil
}

// WriteGeoTIFFFile writes g to a GeoTIFF file at path.
func WriteGeoTIFFFile(path string, g *cuestas.Grid, epsg int, description string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rasterio: %v", err)
	}
	if err := WriteGeoTIFF(f, g, epsg, description); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type tiffField struct {
	typ   uint16
	count uint32
	data  []byte
}

type tiffReader struct {
	r      io.ReaderAt
	order  binary.ByteOrder
	fields map[uint16]tiffField
}

func (t *tiffReader) uints(tag uint16) ([]uint64, bool) {
	f, ok := t.fields[tag]
	if !ok {
		return nil, false
	}
	o := make([]uint64, f.count)
	for i := range o {
		switch f.typ {
		case typeShort:
			o[i] = uint64(t.order.Uint16(f.data[2*i:]))
		case typeLong:
			o[i] = uint64(t.order.Uint32(f.data[4*i:]))
		default:
			return nil, false
		}
	}
	return o, true
}

func (t *tiffReader) uint(tag uint16, def uint64) uint64 {
	v, ok := t.uints(tag)
	if !ok || len(v) == 0 {
		return def
	}
	return v[0]
}

func (t *tiffReader) doubles(tag uint16) ([]float64, bool) {
	f, ok := t.fields[tag]
	if !ok || f.typ != typeDouble {
		return nil, false
	}
	o := make([]float64, f.count)
	for i := range o {
		o[i] = math.Float64frombits(t.order.Uint64(f.data[8*i:]))
	}
	return o, true
}

// ReadGeoTIFF reads a single-band float32 GeoTIFF with uncompressed
// strips, as written by WriteGeoTIFF, and returns the grid and the EPSG
// code of its projected coordinate system (0 if none is given). Both
// byte orders and both raster types are accepted.
func ReadGeoTIFF(r io.ReaderAt) (*cuestas.Grid, int, error) {
	var head [8]byte
	if _, err := r.ReadAt(head[:], 0); err != nil {
		return nil, 0, fmt.Errorf("rasterio: reading GeoTIFF header: %v", err)
	}
	t := &tiffReader{r: r, fields: make(map[uint16]tiffField)}
	switch string(head[:2]) {
	case "II":
		t.order = binary.LittleEndian
	case "MM":
		t.order = binary.BigEndian
	default:
		return nil, 0, fmt.Errorf("rasterio: not a TIFF file")
	}
	if m := t.order.Uint16(head[2:]); m != 42 {
		return nil, 0, fmt.Errorf("rasterio: unsupported TIFF version %d", m)
	}
	ifd := int64(t.order.Uint32(head[4:]))
	var nb [2]byte
	if _, err := r.ReadAt(nb[:], ifd); err != nil {
		return nil, 0, fmt.Errorf("rasterio: reading TIFF directory: %v", err)
	}
	n := int(t.order.Uint16(nb[:]))
	entries := make([]byte, 12*n)
	if _, err := r.ReadAt(entries, ifd+2); err != nil {
		return nil, 0, fmt.Errorf("rasterio: reading TIFF directory: %v", err)
	}
	for k := 0; k < n; k++ {
		e := entries[12*k : 12*k+12]
		tag, typ, count := t.order.Uint16(e), t.order.Uint16(e[2:]), t.order.Uint32(e[4:])
		size, ok := typeSize[typ]
		if !ok {
			continue
		}
		data := make([]byte, size*int(count))
		if len(data) <= 4 {
			copy(data, e[8:])
		} else if _, err := r.ReadAt(data, int64(t.order.Uint32(e[8:]))); err != nil {
			return nil, 0, fmt.Errorf("rasterio: reading TIFF tag %d: %v", tag, err)
		}
		t.fields[tag] = tiffField{typ: typ, count: count, data: data}
	}

	if _, tiled := t.fields[tagTileWidth]; tiled {
		return nil, 0, fmt.Errorf("rasterio: tiled TIFF files are not supported")
	}
	checks := []struct {
		name      string
		tag       uint16
		def, want uint64
	}{
		{"BitsPerSample", tagBitsPerSample, 1, 32},
		{"SampleFormat", tagSampleFormat, 1, 3},
		{"Compression", tagCompression, 1, 1},
		{"SamplesPerPixel", tagSamplesPerPixel, 1, 1},
	}
	for _, c := range checks {
		if v := t.uint(c.tag, c.def); v != c.want {
			return nil, 0, fmt.Errorf("rasterio: unsupported %s %d", c.name, v)
		}
	}
	nx, ny := int(t.uint(tagImageWidth, 0)), int(t.uint(tagImageLength, 0))
	if nx < 1 || ny < 1 {
		return nil, 0, fmt.Errorf("rasterio: invalid image size %dx%d", nx, ny)
	}
	stripOffsets, ok1 := t.uints(tagStripOffsets)
	stripCounts, ok2 := t.uints(tagStripByteCounts)
	if !ok1 || !ok2 || len(stripOffsets) != len(stripCounts) {
		return nil, 0, fmt.Errorf("rasterio: missing or inconsistent strip tags")
	}
	pix := make([]byte, 0, 4*nx*ny)
	for i, off := range stripOffsets {
		b := make([]byte, stripCounts[i])
		if _, err := r.ReadAt(b, int64(off)); err != nil {
			return nil, 0, fmt.Errorf("rasterio: reading strip %d: %v", i, err)
		}
		pix = append(pix, b...)
	}
	if len(pix) != 4*nx*ny {
		return nil, 0, fmt.Errorf("rasterio: image has %d bytes but %dx%d float32 pixels need %d", len(pix), nx, ny, 4*nx*ny)
	}

	scale, ok := t.doubles(tagPixelScale)
	if !ok || len(scale) < 2 {
		return nil, 0, fmt.Errorf("rasterio: missing ModelPixelScale tag")
	}
	tie, ok := t.doubles(tagTiepoint)
	if !ok || len(tie) < 6 {
		return nil, 0, fmt.Errorf("rasterio: missing ModelTiepoint tag")
	}
	rasterType, epsg := uint64(rasterPixelIsArea), 0
	if keys, ok := t.uints(tagGeoKeyDirectory); ok && len(keys) >= 4 {
		for k := 4; k+3 < len(keys) && k < 4+4*int(keys[3]); k += 4 {
			if keys[k+1] != 0 || keys[k+2] != 1 {
				continue
			}
			switch keys[k] {
			case keyRasterType:
				rasterType = keys[k+3]
			case keyProjectedType:
				epsg = int(keys[k+3])
			}
		}
	}

	dx, dy := scale[0], scale[1]
	x0 := tie[3] - tie[0]*dx
	ytop := tie[4] + tie[1]*dy
	if rasterType == rasterPixelIsArea {
		x0 += dx / 2
		ytop -= dy / 2
	}
	ymin := ytop - float64(ny-1)*dy
	region := cuestas.Region{XMin: x0, XMax: x0 + float64(nx)*dx, YMin: ymin, YMax: ymin + float64(ny)*dy}
	g, err := cuestas.NewGrid(region, dx, dy)
	if err != nil {
		return nil, 0, err
	}
	if g.Nx != nx || g.Ny != ny {
		return nil, 0, fmt.Errorf("rasterio: georeferencing gives a %dx%d grid for a %dx%d image", g.Nx, g.Ny, nx, ny)
	}
	for row := 0; row < ny; row++ {
		j := ny - 1 - row
		for i := 0; i < nx; i++ {
			v := math.Float32frombits(t.order.Uint32(pix[4*(row*nx+i):]))
			g.Set(float64(v), j, i)
		}
	}
	return g, epsg, nil
}

// ReadGeoTIFFFile reads a GeoTIFF file.
func ReadGeoTIFFFile(path string) (*cuestas.Grid, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("rasterio: %v", err)
	}
	defer f.Close()
	return ReadGeoTIFF(f)
}
