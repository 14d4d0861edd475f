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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/coldex/cuestas"
	"github.com/coldex/cuestas/polarstereo"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

// GridOptions are the spacing and distance parameters shared by the
// products of a run, in projected metres.
type GridOptions struct {
	BlockSpacing float64
	GridSpacing  float64
	MaxRadius    float64
	FilterWidth  float64
}

// params returns the build parameters for one product.
func (o GridOptions) params(name, attribute string, r cuestas.Region, rms bool) cuestas.BuildParams {
	return cuestas.BuildParams{
		Name:         name,
		Attribute:    attribute,
		Region:       r,
		BlockSpacing: o.BlockSpacing,
		GridSpacing:  o.GridSpacing,
		MaxRadius:    o.MaxRadius,
		FilterWidth:  o.FilterWidth,
		RMS:          rms,
	}
}

// Sources names the survey data read by the grids command, relative to
// the data directory.
type Sources struct {
	// UTIGThickness and UTIGSpecularity are directories of UTIG
	// radar text files.
	UTIGThickness   []string
	UTIGSpecularity []string

	// BasalLayer is a CSV file of basal ice layer thickness.
	BasalLayer string

	// CSV lists the radar CSV files. If empty, every .csv file in the
	// data directory is read.
	CSV []string

	// CSV files whose names contain MKBPattern or TOPattern are Open
	// Polar Radar files; the rest are Bedmap files. The MKBPattern
	// files are also used for the high-pass bed residuals.
	MKBPattern string
	TOPattern  string
}

// SurfaceConfig holds the inputs and parameters of the surface
// elevation grid.
type SurfaceConfig struct {
	LaserDirs  []string
	SOARFile   string
	BASFile    string
	ATL14Files []string
	Grid       GridOptions
}

// VelocityConfig holds the inputs of the velocity conversion.
type VelocityConfig struct {
	File         string
	OutputSubdir string
}

// Config holds the resolved configuration of a run.
type Config struct {
	DataDir   string
	OutputDir string

	Region cuestas.Region
	EPSG   int
	Grid   GridOptions

	RoughnessInterval float64
	RoughnessRMS      bool

	InterpolatorName string
	Interpolator     cuestas.DenseInterpolator
	Surface          cuestas.SurfaceOptions

	Sources         Sources
	DerivedProducts map[string]string

	Parallel bool
	Plots    bool

	// Clip, if not empty, sets the nodes of the products outside of
	// it to NaN.
	Clip geom.Polygon

	SurfaceElevation SurfaceConfig
	Velocity         VelocityConfig

	Log *logrus.Logger
}

// LoadConfig reads and checks the configuration held in cfg.
func LoadConfig(cfg *viper.Viper) (*Config, error) {
	log, err := newLogger(cfg.GetString("LogLevel"))
	if err != nil {
		return nil, err
	}
	c := &Config{
		DataDir:           os.ExpandEnv(cfg.GetString("DataDir")),
		EPSG:              cfg.GetInt("EPSG"),
		RoughnessInterval: cfg.GetFloat64("RoughnessInterval"),
		RoughnessRMS:      cfg.GetBool("RoughnessRMS"),
		InterpolatorName:  cfg.GetString("Interpolator"),
		Parallel:          cfg.GetBool("Parallel"),
		Plots:             cfg.GetBool("Plots"),
		Log:               log,
		Grid: GridOptions{
			BlockSpacing: cfg.GetFloat64("BlockSpacing"),
			GridSpacing:  cfg.GetFloat64("GridSpacing"),
			MaxRadius:    cfg.GetFloat64("MaxRadius"),
			FilterWidth:  cfg.GetFloat64("FilterWidth"),
		},
		Surface: cuestas.SurfaceOptions{
			Tension:       cfg.GetFloat64("Surface.Tension"),
			MaxIterations: cfg.GetInt("Surface.Iterations"),
			Tolerance:     cfg.GetFloat64("Surface.Tolerance"),
		},
		Sources: Sources{
			UTIGThickness:   expandStringSlice(cfg.GetStringSlice("Sources.UTIGThickness")),
			UTIGSpecularity: expandStringSlice(cfg.GetStringSlice("Sources.UTIGSpecularity")),
			BasalLayer:      os.ExpandEnv(cfg.GetString("Sources.BasalLayer")),
			CSV:             expandStringSlice(cfg.GetStringSlice("Sources.CSV")),
			MKBPattern:      cfg.GetString("Sources.MKBPattern"),
			TOPattern:       cfg.GetString("Sources.TOPattern"),
		},
		SurfaceElevation: SurfaceConfig{
			LaserDirs:  expandStringSlice(cfg.GetStringSlice("Surface.LaserDirs")),
			SOARFile:   os.ExpandEnv(cfg.GetString("Surface.SOARFile")),
			BASFile:    os.ExpandEnv(cfg.GetString("Surface.BASFile")),
			ATL14Files: expandStringSlice(cfg.GetStringSlice("Surface.ATL14Files")),
			Grid: GridOptions{
				BlockSpacing: cfg.GetFloat64("Surface.BlockSpacing"),
				GridSpacing:  cfg.GetFloat64("Surface.GridSpacing"),
				MaxRadius:    cfg.GetFloat64("Surface.MaxRadius"),
				FilterWidth:  cfg.GetFloat64("Surface.FilterWidth"),
			},
		},
		Velocity: VelocityConfig{
			File:         os.ExpandEnv(cfg.GetString("Velocity.File")),
			OutputSubdir: cfg.GetString("Velocity.OutputSubdir"),
		},
	}
	if c.OutputDir, err = checkOutputDir(cfg.GetString("OutputDir")); err != nil {
		return nil, err
	}
	if c.Region, err = parseRegion(cfg.GetStringSlice("Region")); err != nil {
		return nil, err
	}
	if c.EPSG != polarstereo.EPSG {
		return nil, fmt.Errorf("%w: EPSG=%d but only %d (Antarctic polar stereographic) is supported", cuestas.ErrInvalidParams, c.EPSG, polarstereo.EPSG)
	}
	if c.Interpolator, err = interpolator(cfg, log); err != nil {
		return nil, err
	}
	if c.DerivedProducts, err = checkDerivedProducts(GetStringMapString("DerivedProducts", cfg)); err != nil {
		return nil, err
	}
	if c.Clip, err = parseMask(cfg.GetString("ClipGeoJSON")); err != nil {
		return nil, err
	}
	for name, o := range map[string]GridOptions{"grids": c.Grid, "surface": c.SurfaceElevation.Grid} {
		if err := o.params(name, "z", c.Region, false).Validate(); err != nil {
			return nil, err
		}
	}
	if !(c.RoughnessInterval > 0) {
		return nil, fmt.Errorf("%w: RoughnessInterval=%g but should be >0", cuestas.ErrInvalidParams, c.RoughnessInterval)
	}
	return c, nil
}

// newLogger returns a logger writing text with full timestamps to
// standard error.
func newLogger(level string) (*logrus.Logger, error) {
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: LogLevel: %v", cuestas.ErrInvalidParams, err)
	}
	log := logrus.New()
	log.Out = os.Stderr
	log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	log.Level = lvl
	return log, nil
}

// interpolator returns the configured dense interpolator.
func interpolator(cfg *viper.Viper, log logrus.FieldLogger) (cuestas.DenseInterpolator, error) {
	switch name := cfg.GetString("Interpolator"); name {
	case "nnbathy":
		var timeout time.Duration
		if s := cfg.GetString("NNBathy.Timeout"); s != "" {
			var err error
			timeout, err = time.ParseDuration(s)
			if err != nil {
				return nil, fmt.Errorf("%w: NNBathy.Timeout: %v", cuestas.ErrInvalidParams, err)
			}
		}
		return &cuestas.Nnbathy{
			Path:    os.ExpandEnv(cfg.GetString("NNBathy.Path")),
			Args:    cfg.GetStringSlice("NNBathy.Args"),
			Timeout: timeout,
			Log:     log,
		}, nil
	case "idw":
		return cuestas.InverseDistance{
			Neighbors: cfg.GetInt("IDW.Neighbors"),
			Power:     cfg.GetFloat64("IDW.Power"),
		}, nil
	default:
		return nil, fmt.Errorf("%w: Interpolator must be nnbathy or idw but is %q", cuestas.ErrInvalidParams, name)
	}
}

// parseRegion converts the four region bounds.
func parseRegion(s []string) (cuestas.Region, error) {
	v := make([]float64, len(s))
	for i, e := range s {
		f, err := cast.ToFloat64E(strings.TrimSpace(e))
		if err != nil {
			return cuestas.Region{}, fmt.Errorf("%w: Region: %v", cuestas.ErrInvalidRegion, err)
		}
		v[i] = f
	}
	return cuestas.NewRegion(v)
}

// checkDerivedProducts makes sure the expressions can be parsed.
func checkDerivedProducts(vars map[string]string) (map[string]string, error) {
	for name, expr := range vars {
		if _, err := cuestas.ExpressionVars(expr); err != nil {
			return nil, fmt.Errorf("%w: DerivedProducts[%s]: %v", cuestas.ErrInvalidParams, name, err)
		}
	}
	return vars, nil
}

// checkOutputDir expands any environment variables in the output
// directory and makes sure it can be written to.
func checkOutputDir(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("%w: you need to specify an output directory (for example: OutputDir=\"targ\")", cuestas.ErrInvalidParams)
	}
	dir = os.ExpandEnv(dir)
	if IsBlob(dir) {
		bucketURL, _, err := splitBlob(dir)
		if err != nil {
			return dir, err
		}
		if !strings.HasPrefix(dir, "file://") {
			// Opening a cloud bucket checks the credentials.
			b, err := OpenBucket(context.Background(), bucketURL)
			if err != nil {
				return dir, fmt.Errorf("cuestasutil: checking OutputDir location: %v", err)
			}
			b.Close()
		}
	}
	return dir, nil
}

func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) map[string]string {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return map[string]string{}
	case map[string]string:
		return v
	case map[string]interface{}:
		return cast.ToStringMapString(v)
	case string:
		o := make(map[string]string)
		if strings.TrimSpace(v) == "" {
			return o
		}
		if err := json.NewDecoder(bytes.NewBufferString(v)).Decode(&o); err != nil {
			panic(fmt.Errorf("invalid JSON for %s: %v", varName, err))
		}
		return o
	default:
		panic(fmt.Errorf("invalid type for getStringMapString variable %s: %#v", varName, i))
	}
}

// parseMask returns the polygon in the given GeoJSON file, which must
// be in projected coordinates.
func parseMask(file string) (geom.Polygon, error) {
	if file == "" {
		return nil, nil
	}
	b, err := os.ReadFile(os.ExpandEnv(file))
	if err != nil {
		return nil, fmt.Errorf("cuestasutil: reading clip polygon file: %w", err)
	}
	j, err := geojson.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("cuestasutil: decoding ClipGeoJSON: %w", err)
	}
	var mask geom.Polygon
	switch m := j.(type) {
	case geom.Polygon:
		mask = m
	case geom.MultiPolygon:
		for _, p := range m {
			mask = append(mask, p...)
		}
	default:
		return nil, fmt.Errorf("%w: invalid clip geometry type %T", cuestas.ErrInvalidParams, j)
	}
	return mask, nil
}
