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
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/coldex/cuestas"
	"github.com/coldex/cuestas/internal/hash"
	"github.com/google/uuid"
)

// ManifestFile is the name of the run record written to the output
// directory.
const ManifestFile = "manifest.toml"

// Manifest records what a run produced.
type Manifest struct {
	RunID        string            `toml:"run_id"`
	Command      string            `toml:"command"`
	Version      string            `toml:"version"`
	Started      time.Time         `toml:"started"`
	Finished     time.Time         `toml:"finished"`
	Region       []float64         `toml:"region"`
	EPSG         int               `toml:"epsg"`
	Interpolator string            `toml:"interpolator"`
	Sources      []string          `toml:"sources"`
	Failed       map[string]string `toml:"failed,omitempty"`
	Products     []ManifestEntry   `toml:"product"`
}

// ManifestEntry describes one product.
type ManifestEntry struct {
	Name       string `toml:"name"`
	Attribute  string `toml:"attribute,omitempty"`
	Expression string `toml:"expression,omitempty"`

	// Fingerprint identifies the parameters the product was built
	// with.
	Fingerprint string `toml:"fingerprint"`

	// Points is the number of binned values the product was
	// interpolated from.
	Points     int       `toml:"points"`
	ValidNodes int       `toml:"valid_nodes"`
	Range      []float64 `toml:"range,omitempty"`
	Files      []string  `toml:"files"`
}

// record collects the manifest of a run from concurrent builds.
type record struct {
	mu sync.Mutex
	m  Manifest
}

func newRecord(command string, cfg *Config) *record {
	r := cfg.Region
	return &record{m: Manifest{
		RunID:        uuid.NewString(),
		Command:      command,
		Version:      cuestas.Version,
		Started:      time.Now().UTC().Truncate(time.Second),
		Region:       []float64{r.XMin, r.XMax, r.YMin, r.YMax},
		EPSG:         cfg.EPSG,
		Interpolator: cfg.InterpolatorName,
	}}
}

func (r *record) source(name string) {
	r.mu.Lock()
	r.m.Sources = append(r.m.Sources, name)
	r.mu.Unlock()
}

// product adds the entry of a built product.
func (r *record) product(cfg *Config, p *cuestas.Product, masked *cuestas.Grid, files []string) {
	e := ManifestEntry{
		Name:        p.Name,
		Attribute:   p.Params.Attribute,
		Fingerprint: hash.Fingerprint(p.Params, cfg.InterpolatorName, cfg.Surface, cuestas.Version),
		Points:      len(p.Binned),
		Files:       files,
	}
	r.add(e, masked)
}

// derived adds the entry of a derived product.
func (r *record) derived(name, expr string, g *cuestas.Grid, files []string) {
	r.add(ManifestEntry{
		Name:        name,
		Expression:  expr,
		Fingerprint: hash.Fingerprint(name, expr, cuestas.Version),
		Files:       files,
	}, g)
}

func (r *record) add(e ManifestEntry, g *cuestas.Grid) {
	if g != nil {
		e.ValidNodes = g.CountValid()
		if min, max, ok := g.ValidRange(); ok {
			e.Range = []float64{min, max}
		}
	}
	r.mu.Lock()
	r.m.Products = append(r.m.Products, e)
	r.mu.Unlock()
}

// fail records that the named product failed.
func (r *record) fail(name string, err error) {
	r.mu.Lock()
	if r.m.Failed == nil {
		r.m.Failed = make(map[string]string)
	}
	r.m.Failed[name] = err.Error()
	r.mu.Unlock()
}

// write saves the manifest as TOML.
func (r *record) write(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.Finished = time.Now().UTC().Truncate(time.Second)
	sort.Slice(r.m.Products, func(i, j int) bool { return r.m.Products[i].Name < r.m.Products[j].Name })
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cuestasutil: writing manifest: %v", err)
	}
	if err := toml.NewEncoder(f).Encode(r.m); err != nil {
		f.Close()
		return fmt.Errorf("cuestasutil: writing manifest: %v", err)
	}
	return f.Close()
}

// ReadManifest reads a run manifest.
func ReadManifest(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("cuestasutil: reading manifest: %v", err)
	}
	return &m, nil
}
