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

package cuestasutil

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/coldex/cuestas"
	"github.com/coldex/cuestas/polarstereo"
	"github.com/coldex/cuestas/qcplot"
	"github.com/coldex/cuestas/rasterio"
	"github.com/coldex/cuestas/readers"
	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
)

// Names of the products.
const (
	Roughness        = "roughness"
	IceThickness     = "icethk"
	BedElevation     = "bedelv"
	BasalLayer       = "basal_layer_thickness"
	Specularity      = "specularity_content"
	SurfaceElevation = "srfelv"
	HighPassBed      = "hipass_bed"
)

// units gives the units of the products in the netCDF files.
var units = map[string]string{
	Roughness:                 "m",
	IceThickness:              "m",
	BedElevation:              "m",
	BasalLayer:                "m",
	Specularity:               "1",
	SurfaceElevation:          "m",
	"fract_basal_ice_percent": "%",
}

// job is a product to be built from a point table.
type job struct {
	params cuestas.BuildParams
	table  *cuestas.PointTable
}

// run holds the state shared by the products of one command.
type run struct {
	cfg   *Config
	log   logrus.FieldLogger
	in    *inputs
	out   *uploader
	rec   *record
	build *cuestas.Builder

	mu     sync.Mutex
	batch  cuestas.BatchError
	grids  map[string]*cuestas.Grid
	failed map[string]bool
}

func newRun(cfg *Config, command string) (*run, error) {
	out, err := newUploader(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	log := cfg.Log.WithField("command", command)
	r := &run{
		cfg: cfg,
		log: log,
		in:  newInputs(cfg.DataDir, log),
		out: out,
		rec: newRecord(command, cfg),
		build: &cuestas.Builder{
			Interpolator: cfg.Interpolator,
			Surface:      cfg.Surface,
			Log:          log,
		},
		grids:  make(map[string]*cuestas.Grid),
		failed: make(map[string]bool),
	}
	log.WithField("run", r.rec.m.RunID).Infof("cuestas v%s", cuestas.Version)
	return r, nil
}

// fail records that the named product failed.
func (r *run) fail(name string, err error) {
	r.log.WithField("product", name).Error(err)
	r.rec.fail(name, err)
	r.mu.Lock()
	r.batch.Add(name, err)
	r.failed[name] = true
	r.mu.Unlock()
}

// finish writes the manifest, uploads the outputs and returns the
// errors of the run.
func (r *run) finish(ctx context.Context) error {
	if err := r.rec.write(r.out.path(ManifestFile)); err != nil {
		return err
	}
	if err := r.out.upload(ctx, r.log); err != nil {
		return err
	}
	if err := r.batch.Err(); err != nil {
		return err
	}
	r.log.Info("done")
	return nil
}

// read calls f to read the named source. A missing source is skipped
// with a warning, and a nil table is returned.
func (r *run) read(name string, f func() (*cuestas.PointTable, error)) (*cuestas.PointTable, error) {
	t, err := f()
	if errors.Is(err, cuestas.ErrMissingInputFile) {
		r.log.WithField("source", name).Warnf("skipping missing source: %v", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{"source": name, "points": t.Len()}).Info("read source")
	r.rec.source(name)
	return t, nil
}

// surveys holds the point tables read by the grids command. A table
// is nil if none of its sources were found.
type surveys struct {
	thickness   *cuestas.PointTable
	specularity *cuestas.PointTable
	basal       *cuestas.PointTable
	mkb         *cuestas.PointTable
}

func (r *run) readSurveys(ctx context.Context) (*surveys, error) {
	src := r.cfg.Sources
	interval := r.cfg.RoughnessInterval
	readUTIG := func(dirs []string) ([]*cuestas.PointTable, error) {
		var o []*cuestas.PointTable
		for _, d := range dirs {
			t, err := r.read(d, func() (*cuestas.PointTable, error) {
				dir, err := r.in.dir(ctx, d)
				if err != nil {
					return nil, err
				}
				return readers.ReadUTIG(dir, interval)
			})
			if err != nil {
				return nil, err
			}
			if t != nil {
				o = append(o, t)
			}
		}
		return o, nil
	}

	thk, err := readUTIG(src.UTIGThickness)
	if err != nil {
		return nil, err
	}
	spc, err := readUTIG(src.UTIGSpecularity)
	if err != nil {
		return nil, err
	}

	csvFiles := src.CSV
	if len(csvFiles) == 0 {
		csvFiles, err = r.in.list(ctx, func(name string) bool {
			return strings.EqualFold(filepath.Ext(name), ".csv")
		})
		if errors.Is(err, cuestas.ErrMissingInputFile) {
			r.log.Warnf("skipping CSV sources: %v", err)
		} else if err != nil {
			return nil, err
		}
	}
	var mkb []*cuestas.PointTable
	for _, name := range csvFiles {
		isMKB := src.MKBPattern != "" && strings.Contains(name, src.MKBPattern)
		isOPR := isMKB || (src.TOPattern != "" && strings.Contains(name, src.TOPattern))
		t, err := r.read(name, func() (*cuestas.PointTable, error) {
			path, err := r.in.file(ctx, name)
			if err != nil {
				return nil, err
			}
			if isOPR {
				return readers.ReadOPR(path, interval)
			}
			return readers.ReadBedmap(path, interval)
		})
		if err != nil {
			return nil, err
		}
		if t == nil {
			continue
		}
		thk = append(thk, t)
		if isMKB {
			mkb = append(mkb, t)
		}
	}

	var basal *cuestas.PointTable
	if src.BasalLayer != "" {
		basal, err = r.read(src.BasalLayer, func() (*cuestas.PointTable, error) {
			path, err := r.in.file(ctx, src.BasalLayer)
			if err != nil {
				return nil, err
			}
			return readers.ReadBasalLayer(path)
		})
		if err != nil {
			return nil, err
		}
	}

	// Zero-valued corners stabilize the interpolation at the edges
	// of the region.
	corners, err := cuestas.CornerAnchors(r.cfg.Region,
		cuestas.ColBed, cuestas.ColThickness, cuestas.ColSpecularity, cuestas.ColBasalLayer)
	if err != nil {
		return nil, err
	}
	s := new(surveys)
	if len(thk) > 0 {
		s.thickness = cuestas.ConcatTables("thickness", append(thk, corners)...)
	}
	if len(spc) > 0 {
		s.specularity = cuestas.ConcatTables("specularity", append(spc, corners)...)
	}
	if basal != nil {
		s.basal = cuestas.ConcatTables("basal layer", basal, corners)
	}
	if len(mkb) > 0 {
		s.mkb = cuestas.ConcatTables("mkb", mkb...)
	}
	return s, nil
}

// jobs returns the products that can be built from s.
func (r *run) jobs(s *surveys) []job {
	g, reg := r.cfg.Grid, r.cfg.Region
	var o []job
	if s.thickness != nil {
		o = append(o,
			job{g.params(Roughness, cuestas.RoughnessColumn(r.cfg.RoughnessInterval), reg, r.cfg.RoughnessRMS), s.thickness},
			job{g.params(IceThickness, cuestas.ColThickness, reg, false), s.thickness},
			job{g.params(BedElevation, cuestas.ColBed, reg, false), s.thickness},
		)
	} else {
		r.log.Warnf("no ice thickness sources; skipping %s, %s and %s", Roughness, IceThickness, BedElevation)
	}
	if s.basal != nil {
		o = append(o, job{g.params(BasalLayer, cuestas.ColBasalLayer, reg, false), s.basal})
	} else {
		r.log.Warnf("no basal layer source; skipping %s", BasalLayer)
	}
	if s.specularity != nil {
		o = append(o, job{g.params(Specularity, cuestas.ColSpecularity, reg, false), s.specularity})
	} else {
		r.log.Warnf("no specularity sources; skipping %s", Specularity)
	}
	return o
}

// buildAll builds the products of jobs, concurrently if so configured.
func (r *run) buildAll(ctx context.Context, jobs []job) {
	var wg sync.WaitGroup
	for _, j := range jobs {
		if !r.cfg.Parallel {
			r.buildOne(ctx, j)
			continue
		}
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			r.buildOne(ctx, j)
		}(j)
	}
	wg.Wait()
}

func (r *run) buildOne(ctx context.Context, j job) {
	name := j.params.Name
	p, err := r.build.Build(ctx, j.table, j.params)
	if err != nil {
		r.fail(name, err)
		return
	}
	masked := clip(p.Masked, r.cfg.Clip)
	filtered := clip(p.Filtered, r.cfg.Clip)
	files, err := r.writeGrid(name, masked, filtered)
	if err != nil {
		r.fail(name, err)
		return
	}
	r.rec.product(r.cfg, p, masked, files)
	r.mu.Lock()
	r.grids[name] = masked
	r.mu.Unlock()
}

// writeGrid writes the files of a product and returns their names.
// If filtered is not nil, the unmasked grid and a second copy of the
// masked grid are written under the names used for the xyz products.
func (r *run) writeGrid(name string, masked, filtered *cuestas.Grid) ([]string, error) {
	epsg := r.cfg.EPSG
	files := []string{name + ".tif", name + ".nc"}
	if err := rasterio.WriteGeoTIFFFile(r.out.path(name+".tif"), masked, epsg, name); err != nil {
		return nil, err
	}
	if err := rasterio.WriteNetCDFFile(r.out.path(name+".nc"), masked, name, units[name]); err != nil {
		return nil, err
	}
	if filtered != nil {
		if err := rasterio.WriteGeoTIFFFile(r.out.path(name+".xyz_val.tif"), masked, epsg, name); err != nil {
			return nil, err
		}
		if err := rasterio.WriteGeoTIFFFile(r.out.path(name+".xyz.tif"), filtered, epsg, name+" (unmasked)"); err != nil {
			return nil, err
		}
		files = append(files, name+".xyz_val.tif", name+".xyz.tif")
	}
	if r.cfg.Plots {
		if err := qcplot.PlotFile(r.out.path(name+".png"), masked, qcplot.OptionsFor(name)); err != nil {
			return nil, err
		}
		files = append(files, name+".png")
	}
	r.log.WithFields(logrus.Fields{"product": name, "valid": masked.CountValid()}).Info("wrote product")
	return files, nil
}

// clip returns a copy of g that is NaN outside of poly, or g itself if
// poly is empty.
func clip(g *cuestas.Grid, poly geom.Polygon) *cuestas.Grid {
	if len(poly) == 0 || g == nil {
		return g
	}
	o := g.Clone()
	for j := 0; j < o.Ny; j++ {
		for i := 0; i < o.Nx; i++ {
			if (geom.Point{X: o.X(i), Y: o.Y(j)}).Within(poly) == geom.Outside {
				o.Set(math.NaN(), j, i)
			}
		}
	}
	return o
}

// deriveAll calculates the derived products once the products they
// refer to exist. Products that refer to a failed product fail, and
// products that refer to a product that was not built are skipped.
func (r *run) deriveAll() {
	pending := make(map[string]string, len(r.cfg.DerivedProducts))
	for name, expr := range r.cfg.DerivedProducts {
		pending[name] = expr
	}
	skipped := make(map[string]bool)
	for len(pending) > 0 {
		names := make([]string, 0, len(pending))
		for name := range pending {
			names = append(names, name)
		}
		sort.Strings(names)
		progress := false
		for _, name := range names {
			expr := pending[name]
			vars, err := cuestas.ExpressionVars(expr)
			if err != nil {
				r.fail(name, err)
				delete(pending, name)
				progress = true
				continue
			}
			var waiting bool
			var failedVar, missingVar string
			for _, v := range vars {
				switch {
				case r.grids[v] != nil:
				case r.failed[v]:
					failedVar = v
				case skipped[v]:
					missingVar = v
				case hasKey(pending, v):
					waiting = true
				default:
					missingVar = v
				}
			}
			switch {
			case failedVar != "":
				r.fail(name, fmt.Errorf("cuestasutil: %s failed", failedVar))
			case missingVar != "":
				r.log.WithField("product", name).Warnf("skipping: %s was not built", missingVar)
				skipped[name] = true
			case waiting:
				continue
			default:
				r.derive(name, expr)
			}
			delete(pending, name)
			progress = true
		}
		if !progress {
			for _, name := range names {
				r.fail(name, fmt.Errorf("%w: circular reference in derived product", cuestas.ErrInvalidParams))
			}
			return
		}
	}
}

func hasKey(m map[string]string, k string) bool {
	_, ok := m[k]
	return ok
}

func (r *run) derive(name, expr string) {
	g, err := cuestas.Derive(expr, r.grids)
	if err != nil {
		r.fail(name, err)
		return
	}
	files, err := r.writeGrid(name, g, nil)
	if err != nil {
		r.fail(name, err)
		return
	}
	r.rec.derived(name, expr, g, files)
	r.grids[name] = g
}

// highPass writes the difference between the MKB bed elevations and
// the gridded bed as tab separated text and as a shapefile.
func (r *run) highPass(s *surveys) {
	bed := r.grids[BedElevation]
	if s.mkb == nil || bed == nil {
		r.log.Warnf("skipping %s: needs %s and MKB sources", HighPassBed, BedElevation)
		return
	}
	hp, err := cuestas.Residuals(bed, s.mkb, cuestas.ColBed)
	if err != nil {
		r.fail(HighPassBed, err)
		return
	}
	if err := rasterio.WriteXYZFile(r.out.path(HighPassBed+".xyz"), hp, cuestas.ColHighPassBed); err != nil {
		r.fail(HighPassBed, err)
		return
	}
	if err := rasterio.WritePointShapefile(r.out.path(HighPassBed+".shp"), hp, polarstereo.WKT, cuestas.ColHighPassBed); err != nil {
		r.fail(HighPassBed, err)
		return
	}
	r.rec.add(ManifestEntry{
		Name:      HighPassBed,
		Attribute: cuestas.ColHighPassBed,
		Points:    hp.Len(),
		Files:     []string{HighPassBed + ".xyz", HighPassBed + ".shp"},
	}, nil)
	r.log.WithFields(logrus.Fields{"product": HighPassBed, "points": hp.Len()}).Info("wrote residuals")
}

// RunGrids reads the radar survey data and writes the gridded products,
// the derived products and the high-pass bed residuals. Products that
// fail do not stop the others; their errors are returned together as a
// *cuestas.BatchError.
func RunGrids(ctx context.Context, cfg *Config) error {
	r, err := newRun(cfg, "grids")
	if err != nil {
		return err
	}
	s, err := r.readSurveys(ctx)
	if err != nil {
		return err
	}
	r.buildAll(ctx, r.jobs(s))
	r.deriveAll()
	r.highPass(s)
	return r.finish(ctx)
}

// RunSurface combines the laser altimetry, BAS and ICESat-2 ATL14
// surface heights above sea level and grids them as srfelv.
func RunSurface(ctx context.Context, cfg *Config) error {
	r, err := newRun(cfg, "surface")
	if err != nil {
		return err
	}
	sc := cfg.SurfaceElevation
	var tables []*cuestas.PointTable
	add := func(name string, f func(path string) (*cuestas.PointTable, error), dir bool) error {
		t, err := r.read(name, func() (*cuestas.PointTable, error) {
			var path string
			var err error
			if dir {
				path, err = r.in.dir(ctx, name)
			} else {
				path, err = r.in.file(ctx, name)
			}
			if err != nil {
				return nil, err
			}
			return f(path)
		})
		if t != nil {
			tables = append(tables, t)
		}
		return err
	}
	for _, d := range sc.LaserDirs {
		if err := add(d, readers.ReadLUTP2, true); err != nil {
			return err
		}
	}
	for _, f := range sc.ATL14Files {
		if err := add(f, func(path string) (*cuestas.PointTable, error) {
			return readers.ReadATL14(path, cfg.Region)
		}, false); err != nil {
			return err
		}
	}
	if sc.SOARFile != "" {
		if err := add(sc.SOARFile, readers.ReadSOAR, false); err != nil {
			return err
		}
	}
	if sc.BASFile != "" {
		if err := add(sc.BASFile, readers.ReadBASSurface, false); err != nil {
			return err
		}
	}
	if len(tables) == 0 {
		return fmt.Errorf("%w: no surface elevation sources found in %s", cuestas.ErrMissingInputFile, cfg.DataDir)
	}
	all := cuestas.ConcatTables("surface", tables...)
	z, err := all.Column(cuestas.ColSurface)
	if err != nil {
		return err
	}
	srf := all.Filter(func(i int) bool { return z[i] > 0 })
	r.log.WithFields(logrus.Fields{"product": SurfaceElevation, "points": srf.Len()}).Info("compiled surface elevations")
	r.buildOne(ctx, job{sc.Grid.params(SurfaceElevation, cuestas.ColSurface, cfg.Region, false), srf})
	return r.finish(ctx)
}

// RunVelocity converts an HDF5 ice velocity mosaic into one GeoTIFF
// per variable, plus the speed.
func RunVelocity(ctx context.Context, cfg *Config) error {
	r, err := newRun(cfg, "velocity")
	if err != nil {
		return err
	}
	path, err := r.in.file(ctx, cfg.Velocity.File)
	if err != nil {
		return err
	}
	grids, err := readers.ReadVelocity(path)
	if err != nil {
		return err
	}
	r.rec.source(cfg.Velocity.File)
	dir := r.out.path(cfg.Velocity.OutputSubdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cuestasutil: %v", err)
	}
	names := make([]string, 0, len(grids))
	for name := range grids {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		file := filepath.ToSlash(filepath.Join(cfg.Velocity.OutputSubdir, name+".tif"))
		if err := rasterio.WriteGeoTIFFFile(r.out.path(file), grids[name], cfg.EPSG, name); err != nil {
			r.fail(name, err)
			continue
		}
		r.rec.add(ManifestEntry{Name: name, Attribute: name, Files: []string{file}}, grids[name])
		r.log.WithField("product", name).Info("wrote velocity grid")
	}
	return r.finish(ctx)
}

// RunPlot draws a map of each of the given GeoTIFF or netCDF grid
// files into the output directory.
func RunPlot(ctx context.Context, cfg *Config, files []string) error {
	r, err := newRun(cfg, "plot")
	if err != nil {
		return err
	}
	in := newInputs(".", r.log)
	for _, f := range files {
		base, name := productName(f)
		path, err := in.file(ctx, f)
		if err != nil {
			r.fail(base, err)
			continue
		}
		g, err := readGrid(path)
		if err != nil {
			r.fail(base, err)
			continue
		}
		if err := qcplot.PlotFile(r.out.path(base+".png"), g, qcplot.OptionsFor(name)); err != nil {
			r.fail(base, err)
			continue
		}
		r.rec.source(f)
		r.rec.add(ManifestEntry{Name: base, Files: []string{base + ".png"}}, g)
	}
	return r.finish(ctx)
}

// productName returns the file name without its extension, and the
// name of the product it holds.
func productName(file string) (base, name string) {
	base = filepath.Base(file)
	if i := strings.Index(base, "?"); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.TrimSuffix(strings.TrimSuffix(base, ".xyz_val"), ".xyz")
	return base, name
}

// readGrid reads a GeoTIFF or netCDF grid file.
func readGrid(path string) (*cuestas.Grid, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		g, _, err := rasterio.ReadGeoTIFFFile(path)
		return g, err
	case ".nc":
		g, _, err := rasterio.ReadNetCDFFile(path)
		return g, err
	default:
		return nil, fmt.Errorf("%w: %s is not a .tif or .nc grid", cuestas.ErrInvalidParams, path)
	}
}
