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
	"strings"

	"github.com/coldex/cuestas"
	"github.com/lnashier/viper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	gridFlags := []*pflag.FlagSet{gridsCmd.Flags(), surfaceCmd.Flags()}

	// Options are the configuration options available to cuestas.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum level of the log messages that are
              printed: debug, info, warning or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "DataDir",
			usage: `
              DataDir is the directory that input file names are relative to.
              It can be a local directory, a blob storage URL (gs://, s3:// or
              file://) or, for files that do not need to be listed, a web address.`,
			shorthand:  "d",
			defaultVal: "orig",
			flagsets:   []*pflag.FlagSet{gridsCmd.Flags(), surfaceCmd.Flags(), velocityCmd.Flags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir is the directory the products are written to. If it
              is a blob storage URL, the products are written locally and
              uploaded at the end of the run.`,
			shorthand:  "o",
			defaultVal: "targ",
			flagsets:   []*pflag.FlagSet{gridsCmd.Flags(), surfaceCmd.Flags(), velocityCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "Region",
			usage: `
              Region is the extent of the grids in projected metres, given as
              x_min, x_max, y_min, y_max.`,
			defaultVal: []string{"-200e3", "800e3", "-200e3", "400e3"},
			flagsets:   gridFlags,
		},
		{
			name: "EPSG",
			usage: `
              EPSG is the projection of the products. Only 3031 (Antarctic polar
              stereographic) is supported.`,
			defaultVal: 3031,
			flagsets:   []*pflag.FlagSet{gridsCmd.Flags(), surfaceCmd.Flags(), velocityCmd.Flags()},
		},
		{
			name: "BlockSpacing",
			usage: `
              BlockSpacing is the size of the blocks the survey data are
              averaged into before interpolation, in metres.`,
			defaultVal: 5e3,
			flagsets:   []*pflag.FlagSet{gridsCmd.Flags()},
		},
		{
			name: "GridSpacing",
			usage: `
              GridSpacing is the node spacing of the products, in metres.`,
			defaultVal: 1e3,
			flagsets:   []*pflag.FlagSet{gridsCmd.Flags()},
		},
		{
			name: "MaxRadius",
			usage: `
              MaxRadius is the distance from the nearest observation beyond
              which nodes are masked out, in metres.`,
			defaultVal: 8e3,
			flagsets:   []*pflag.FlagSet{gridsCmd.Flags()},
		},
		{
			name: "FilterWidth",
			usage: `
              FilterWidth is the full width of the Gaussian smoothing filter,
              in metres.`,
			defaultVal: 10e3,
			flagsets:   []*pflag.FlagSet{gridsCmd.Flags()},
		},
		{
			name: "RoughnessInterval",
			usage: `
              RoughnessInterval is the along-track resampling interval of the
              bed roughness calculation, in metres.`,
			defaultVal: 400.0,
			flagsets:   []*pflag.FlagSet{gridsCmd.Flags()},
		},
		{
			name: "RoughnessRMS",
			usage: `
              RoughnessRMS specifies whether roughness is binned as the root
              mean square rather than the mean within each block.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{gridsCmd.Flags()},
		},
		{
			name: "Interpolator",
			usage: `
              Interpolator is the method used to fill the grid from the binned
              data: nnbathy (natural neighbour, external program) or idw
              (inverse distance weighting).`,
			defaultVal: "nnbathy",
			flagsets:   gridFlags,
		},
		{
			name: "NNBathy.Path",
			usage: `
              NNBathy.Path is the location of the nnbathy program.`,
			defaultVal: cuestas.DefaultNnbathyPath,
			flagsets:   gridFlags,
		},
		{
			name: "NNBathy.Args",
			usage: `
              NNBathy.Args are additional arguments for the nnbathy program.`,
			defaultVal: []string{"-%"},
			flagsets:   gridFlags,
		},
		{
			name: "NNBathy.Timeout",
			usage: `
              NNBathy.Timeout is the longest a single nnbathy run may take,
              for example "10m". Empty means no limit.`,
			defaultVal: "30m",
			flagsets:   gridFlags,
		},
		{
			name: "IDW.Neighbors",
			usage: `
              IDW.Neighbors is the number of nearest binned values used by the
              idw interpolator.`,
			defaultVal: 8,
			flagsets:   gridFlags,
		},
		{
			name: "IDW.Power",
			usage: `
              IDW.Power is the distance exponent of the idw interpolator.`,
			defaultVal: 2.0,
			flagsets:   gridFlags,
		},
		{
			name: "Surface.Tension",
			usage: `
              Surface.Tension is the tension, between 0 and 1, of the
              minimum-curvature surface that determines the mask.`,
			defaultVal: 0.0,
			flagsets:   gridFlags,
		},
		{
			name: "Surface.Iterations",
			usage: `
              Surface.Iterations is the maximum number of iterations of the
              minimum-curvature surface.`,
			defaultVal: 250,
			flagsets:   gridFlags,
		},
		{
			name: "Surface.Tolerance",
			usage: `
              Surface.Tolerance is the convergence limit of the
              minimum-curvature surface, relative to the range of the data.`,
			defaultVal: 1e-4,
			flagsets:   gridFlags,
		},
		{
			name: "Sources.UTIGThickness",
			usage: `
              Sources.UTIGThickness are directories of UTIG radar files with
              ice thickness and bed elevation.`,
			defaultVal: []string{"ICECAP2_SPC.CRIPR2"},
			flagsets:   []*pflag.FlagSet{gridsCmd.Flags()},
		},
		{
			name: "Sources.UTIGSpecularity",
			usage: `
              Sources.UTIGSpecularity are directories of UTIG radar files with
              specularity content.`,
			defaultVal: []string{"2022_COLDEX_UTIG.IRSPC2", "2023_COLDEX_UTIG.IRSPC2"},
			flagsets:   []*pflag.FlagSet{gridsCmd.Flags()},
		},
		{
			name: "Sources.BasalLayer",
			usage: `
              Sources.BasalLayer is a CSV file of basal ice layer thickness.`,
			defaultVal: "yan_basal_layer/cxa_bil_thickness.csv",
			flagsets:   []*pflag.FlagSet{gridsCmd.Flags()},
		},
		{
			name: "Sources.CSV",
			usage: `
              Sources.CSV are the Open Polar Radar and Bedmap CSV files. If
              empty, every .csv file in DataDir is read.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{gridsCmd.Flags()},
		},
		{
			name: "Sources.MKBPattern",
			usage: `
              Sources.MKBPattern marks the CSV files in Open Polar Radar format
              whose bed elevations are also compared with the gridded bed.`,
			defaultVal: "Antarctica_BaslerMKB",
			flagsets:   []*pflag.FlagSet{gridsCmd.Flags()},
		},
		{
			name: "Sources.TOPattern",
			usage: `
              Sources.TOPattern marks other CSV files in Open Polar Radar
              format. CSV files matching neither pattern are read as Bedmap.`,
			defaultVal: "Antarctica_TO",
			flagsets:   []*pflag.FlagSet{gridsCmd.Flags()},
		},
		{
			name: "DerivedProducts",
			usage: `
              DerivedProducts maps the names of products calculated from other
              products to the expressions that calculate them.`,
			defaultVal: map[string]string{"fract_basal_ice_percent": "100 * basal_layer_thickness / icethk"},
			flagsets:   []*pflag.FlagSet{gridsCmd.Flags()},
		},
		{
			name: "Parallel",
			usage: `
              Parallel specifies whether independent products are built at
              the same time.`,
			shorthand:  "p",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{gridsCmd.Flags()},
		},
		{
			name: "Plots",
			usage: `
              Plots specifies whether quality control maps are drawn.`,
			defaultVal: true,
			flagsets:   gridFlags,
		},
		{
			name: "ClipGeoJSON",
			usage: `
              ClipGeoJSON is an optional GeoJSON file with a polygon, in
              projected coordinates, outside of which the products are empty.`,
			defaultVal: "",
			flagsets:   gridFlags,
		},
		{
			name: "Surface.LaserDirs",
			usage: `
              Surface.LaserDirs are directories of UTIG LUTP2 laser altimetry files.`,
			defaultVal: []string{"COLDEX_SRF", "ICECAP2_SPC.CLUTP2"},
			flagsets:   []*pflag.FlagSet{surfaceCmd.Flags()},
		},
		{
			name: "Surface.SOARFile",
			usage: `
              Surface.SOARFile is the SOAR laser altimetry file.`,
			defaultVal: "SOAR-PPT-las_srfelv.grid",
			flagsets:   []*pflag.FlagSet{surfaceCmd.Flags()},
		},
		{
			name: "Surface.BASFile",
			usage: `
              Surface.BASFile is the BAS survey CSV file with surface altitudes.`,
			defaultVal: "BAS_2015_POLARGAP_AIR_BM3.csv",
			flagsets:   []*pflag.FlagSet{surfaceCmd.Flags()},
		},
		{
			name: "Surface.ATL14Files",
			usage: `
              Surface.ATL14Files are ICESat-2 ATL14 elevation model tiles.`,
			defaultVal: []string{
				"ATL14_A1_0325_100m_004_05.nc", "ATL14_A2_0325_100m_004_05.nc",
				"ATL14_A3_0325_100m_004_05.nc", "ATL14_A4_0325_100m_004_05.nc",
			},
			flagsets: []*pflag.FlagSet{surfaceCmd.Flags()},
		},
		{
			name: "Surface.BlockSpacing",
			usage: `
              Surface.BlockSpacing is the block size of the surface elevation grid.`,
			defaultVal: 5e3,
			flagsets:   []*pflag.FlagSet{surfaceCmd.Flags()},
		},
		{
			name: "Surface.GridSpacing",
			usage: `
              Surface.GridSpacing is the node spacing of the surface elevation grid.`,
			defaultVal: 1e3,
			flagsets:   []*pflag.FlagSet{surfaceCmd.Flags()},
		},
		{
			name: "Surface.MaxRadius",
			usage: `
              Surface.MaxRadius is the masking distance of the surface elevation grid.`,
			defaultVal: 15e3,
			flagsets:   []*pflag.FlagSet{surfaceCmd.Flags()},
		},
		{
			name: "Surface.FilterWidth",
			usage: `
              Surface.FilterWidth is the filter width of the surface elevation grid.`,
			defaultVal: 3e3,
			flagsets:   []*pflag.FlagSet{surfaceCmd.Flags()},
		},
		{
			name: "Velocity.File",
			usage: `
              Velocity.File is the HDF5 ice velocity mosaic to convert.`,
			defaultVal: "Mouginot2019/antarctic_ice_vel_phase_map_v01.h5",
			flagsets:   []*pflag.FlagSet{velocityCmd.Flags()},
		},
		{
			name: "Velocity.OutputSubdir",
			usage: `
              Velocity.OutputSubdir is the directory within OutputDir that the
              velocity GeoTIFFs are written to.`,
			defaultVal: "Mouginot2019",
			flagsets:   []*pflag.FlagSet{velocityCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("CUESTAS")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			case map[string]string:
				b := bytes.NewBuffer(nil)
				json.NewEncoder(b).Encode(v)
				set.StringP(option.name, option.shorthand, strings.TrimSpace(b.String()), option.usage)
			default:
				panic("invalid argument type")
			}
		}
		Cfg.BindPFlag(option.name, option.flagsets[0].Lookup(option.name))
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(gridsCmd)
	Root.AddCommand(surfaceCmd)
	Root.AddCommand(velocityCmd)
	Root.AddCommand(plotCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("cuestas: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "cuestas",
	Short: "Grid radar sounding data near the South Pole.",
	Long: `cuestas bins, interpolates, smooths and masks scattered airborne radar
sounding observations into co-registered grids of ice thickness, bed
elevation, bed roughness, specularity content and basal ice thickness.
Use the subcommands specified below to access the functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'CUESTAS_var' where 'var' is the
name of the variable to be set, with dots replaced by underscores
(for example CUESTAS_NNBATHY_PATH). File names may contain environment variables.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of cuestas.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("cuestas v%s\n", cuestas.Version)
	},
	DisableAutoGenTag: true,
}

// gridsCmd builds the radar products.
var gridsCmd = &cobra.Command{
	Use:   "grids",
	Short: "Grid the radar survey data",
	Long: `grids reads the radar survey data in DataDir and writes the roughness,
icethk, bedelv, basal_layer_thickness and specularity_content grids, the
DerivedProducts, the high-pass bed residuals and quality control maps to
OutputDir. Products that fail are reported at the end; the others are still
written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(Cfg)
		if err != nil {
			return err
		}
		return RunGrids(context.Background(), cfg)
	},
	DisableAutoGenTag: true,
}

// surfaceCmd builds the surface elevation grid.
var surfaceCmd = &cobra.Command{
	Use:   "surface",
	Short: "Grid the surface elevation",
	Long: `surface combines laser altimetry and ICESat-2 ATL14 surface heights
above sea level and grids them as srfelv.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(Cfg)
		if err != nil {
			return err
		}
		return RunSurface(context.Background(), cfg)
	},
	DisableAutoGenTag: true,
}

// velocityCmd converts an ice velocity mosaic.
var velocityCmd = &cobra.Command{
	Use:   "velocity",
	Short: "Convert an HDF5 velocity mosaic to GeoTIFF",
	Long: `velocity writes every gridded variable of an HDF5 ice velocity mosaic,
plus the speed VELM, as GeoTIFF files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(Cfg)
		if err != nil {
			return err
		}
		return RunVelocity(context.Background(), cfg)
	},
	DisableAutoGenTag: true,
}

// plotCmd draws maps of existing grids.
var plotCmd = &cobra.Command{
	Use:   "plot file...",
	Short: "Draw quality control maps of existing grids",
	Long: `plot draws a quality control map of each given GeoTIFF or netCDF grid
into OutputDir. Product names recognized from the file names get their
usual colour scales.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(Cfg)
		if err != nil {
			return err
		}
		return RunPlot(context.Background(), cfg, args)
	},
	DisableAutoGenTag: true,
}
