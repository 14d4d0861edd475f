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
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/coldex/cuestas"
	"github.com/ctessum/geom"
)

// setConfig sets configuration values for the duration of a test.
func setConfig(t *testing.T, kv map[string]interface{}) {
	t.Helper()
	for k, v := range kv {
		old := Cfg.Get(k)
		Cfg.Set(k, v)
		t.Cleanup(func() { Cfg.Set(k, old) })
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	setConfig(t, map[string]interface{}{"OutputDir": t.TempDir()})
	cfg, err := LoadConfig(Cfg)
	if err != nil {
		t.Fatal(err)
	}
	wantRegion := cuestas.Region{XMin: -200e3, XMax: 800e3, YMin: -200e3, YMax: 400e3}
	if cfg.Region != wantRegion {
		t.Errorf("region: %+v", cfg.Region)
	}
	wantGrid := GridOptions{BlockSpacing: 5e3, GridSpacing: 1e3, MaxRadius: 8e3, FilterWidth: 10e3}
	if cfg.Grid != wantGrid {
		t.Errorf("grid: %+v", cfg.Grid)
	}
	if cfg.SurfaceElevation.Grid.MaxRadius != 15e3 || cfg.SurfaceElevation.Grid.FilterWidth != 3e3 {
		t.Errorf("surface grid: %+v", cfg.SurfaceElevation.Grid)
	}
	nn, ok := cfg.Interpolator.(*cuestas.Nnbathy)
	if !ok {
		t.Fatalf("interpolator is %T", cfg.Interpolator)
	}
	if nn.Timeout != 30*time.Minute || !reflect.DeepEqual(nn.Args, []string{"-%"}) || nn.Path != cuestas.DefaultNnbathyPath {
		t.Errorf("nnbathy: %+v", nn)
	}
	if cfg.Surface.MaxIterations != 250 || cfg.Surface.Tolerance != 1e-4 {
		t.Errorf("surface options: %+v", cfg.Surface)
	}
	wantDerived := map[string]string{"fract_basal_ice_percent": "100 * basal_layer_thickness / icethk"}
	if !reflect.DeepEqual(cfg.DerivedProducts, wantDerived) {
		t.Errorf("derived products: %v", cfg.DerivedProducts)
	}
	if cfg.Sources.MKBPattern != "Antarctica_BaslerMKB" || len(cfg.Sources.UTIGSpecularity) != 2 {
		t.Errorf("sources: %+v", cfg.Sources)
	}
	if cfg.RoughnessInterval != 400 || !cfg.Plots || cfg.Parallel {
		t.Errorf("options: %+v", cfg)
	}
	if cfg.Clip != nil {
		t.Errorf("clip: %v", cfg.Clip)
	}
}

func TestLoadConfigIDW(t *testing.T) {
	setConfig(t, map[string]interface{}{
		"OutputDir":     t.TempDir(),
		"Interpolator":  "idw",
		"IDW.Neighbors": 4,
		"Region":        []string{"0", "10e3", "0", "5e3"},
	})
	cfg, err := LoadConfig(Cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := cuestas.InverseDistance{Neighbors: 4, Power: 2}
	if cfg.Interpolator != want {
		t.Errorf("interpolator: %#v", cfg.Interpolator)
	}
	if cfg.Region.XMax != 10e3 || cfg.Region.YMax != 5e3 {
		t.Errorf("region: %+v", cfg.Region)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	for _, test := range []struct {
		name string
		kv   map[string]interface{}
		want error
	}{
		{"no output", map[string]interface{}{"OutputDir": ""}, cuestas.ErrInvalidParams},
		{"region order", map[string]interface{}{"Region": []string{"1", "0", "0", "1"}}, cuestas.ErrInvalidRegion},
		{"region length", map[string]interface{}{"Region": []string{"0", "1", "0"}}, cuestas.ErrInvalidRegion},
		{"region number", map[string]interface{}{"Region": []string{"0", "x", "0", "1"}}, cuestas.ErrInvalidRegion},
		{"epsg", map[string]interface{}{"EPSG": 4326}, cuestas.ErrInvalidParams},
		{"interpolator", map[string]interface{}{"Interpolator": "kriging"}, cuestas.ErrInvalidParams},
		{"timeout", map[string]interface{}{"NNBathy.Timeout": "soon"}, cuestas.ErrInvalidParams},
		{"spacing", map[string]interface{}{"GridSpacing": 0.0}, cuestas.ErrInvalidParams},
		{"surface spacing", map[string]interface{}{"Surface.BlockSpacing": -1.0}, cuestas.ErrInvalidParams},
		{"roughness", map[string]interface{}{"RoughnessInterval": 0.0}, cuestas.ErrInvalidParams},
		{"log level", map[string]interface{}{"LogLevel": "loud"}, cuestas.ErrInvalidParams},
		{"expression", map[string]interface{}{"DerivedProducts": `{"x": "1 +"}`}, cuestas.ErrInvalidParams},
	} {
		t.Run(test.name, func(t *testing.T) {
			kv := map[string]interface{}{"OutputDir": t.TempDir()}
			for k, v := range test.kv {
				kv[k] = v
			}
			setConfig(t, kv)
			_, err := LoadConfig(Cfg)
			if !errors.Is(err, test.want) {
				t.Errorf("got %v, want %v", err, test.want)
			}
		})
	}
}

func TestGetStringMapString(t *testing.T) {
	want := map[string]string{"a": "icethk * 2"}
	for _, test := range []struct {
		name string
		v    interface{}
		want map[string]string
	}{
		{"json", `{"a": "icethk * 2"}`, want},
		{"map", map[string]interface{}{"a": "icethk * 2"}, want},
		{"string map", map[string]string{"a": "icethk * 2"}, want},
		{"empty", "", map[string]string{}},
	} {
		t.Run(test.name, func(t *testing.T) {
			setConfig(t, map[string]interface{}{"testmap": test.v})
			if got := GetStringMapString("testmap", Cfg); !reflect.DeepEqual(got, test.want) {
				t.Errorf("%v != %v", got, test.want)
			}
		})
	}
}

func TestParseMask(t *testing.T) {
	file := filepath.Join(t.TempDir(), "mask.geojson")
	const poly = `{"type": "Polygon", "coordinates": [[[0, 0], [2000, 0], [2000, 3000], [0, 3000], [0, 0]]]}`
	if err := os.WriteFile(file, []byte(poly), 0644); err != nil {
		t.Fatal(err)
	}
	mask, err := parseMask(file)
	if err != nil {
		t.Fatal(err)
	}
	want := geom.Polygon{{{X: 0, Y: 0}, {X: 2000, Y: 0}, {X: 2000, Y: 3000}, {X: 0, Y: 3000}, {X: 0, Y: 0}}}
	if !reflect.DeepEqual(mask, want) {
		t.Errorf("%v != %v", mask, want)
	}

	if m, err := parseMask(""); err != nil || m != nil {
		t.Errorf("empty file name: %v, %v", m, err)
	}
	if _, err := parseMask(filepath.Join(t.TempDir(), "missing.geojson")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: %v", err)
	}

	point := filepath.Join(t.TempDir(), "point.geojson")
	if err := os.WriteFile(point, []byte(`{"type": "Point", "coordinates": [1, 2]}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := parseMask(point); !errors.Is(err, cuestas.ErrInvalidParams) {
		t.Errorf("point geometry: %v", err)
	}
}

func TestClip(t *testing.T) {
	g, err := cuestas.NewGrid(cuestas.Region{XMin: 0, XMax: 4000, YMin: 0, YMax: 2000}, 1000, 1000)
	if err != nil {
		t.Fatal(err)
	}
	for k := range g.Data.Elements {
		g.Data.Elements[k] = 1
	}
	poly := geom.Polygon{{{X: -500, Y: -500}, {X: 1500, Y: -500}, {X: 1500, Y: 2500}, {X: -500, Y: 2500}, {X: -500, Y: -500}}}
	c := clip(g, poly)
	for j := 0; j < c.Ny; j++ {
		for i := 0; i < c.Nx; i++ {
			inside := i <= 1
			if v := c.Get(j, i); inside != !math.IsNaN(v) {
				t.Errorf("node (%d, %d) = %g", j, i, v)
			}
		}
	}
	if g.CountValid() != g.Nx*g.Ny {
		t.Error("input grid was modified")
	}
	if clip(g, nil) != g {
		t.Error("an empty polygon should return the grid itself")
	}
}
