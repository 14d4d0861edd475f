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

package cuestas

import (
	"context"
	"fmt"
	"io/ioutil"
	"time"

	"github.com/sirupsen/logrus"
)

// BuildParams specify how one product is gridded.
type BuildParams struct {
	// Name identifies the product and its output files.
	Name string

	// Attribute is the point table column to grid.
	Attribute string

	Region Region

	// BlockSpacing is the size of the blocks used to reduce the input
	// before interpolation.
	BlockSpacing float64

	// GridSpacing is the node spacing of the output grid.
	GridSpacing float64

	// MaxRadius is how far from the nearest sample a node may be and
	// still be considered valid. Values <= 0 disable masking.
	MaxRadius float64

	// FilterWidth is the full width of the Gaussian smoothing filter.
	// Values <= 0 disable smoothing.
	FilterWidth float64

	// RMS indicates that the attribute is a root-mean-square quantity
	// and should be binned with a quadratic mean.
	RMS bool
}

// Validate checks that the parameters are usable.
func (p BuildParams) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: product name is empty", ErrInvalidParams)
	}
	if p.Attribute == "" {
		return fmt.Errorf("%w: %s: attribute is empty", ErrInvalidParams, p.Name)
	}
	if err := p.Region.Validate(); err != nil {
		return fmt.Errorf("%s: %w", p.Name, err)
	}
	vars := []float64{p.BlockSpacing, p.GridSpacing}
	names := []string{"BlockSpacing", "GridSpacing"}
	for i, v := range vars {
		if !(v > 0) {
			return fmt.Errorf("%w: %s: %s=%g but should be >0", ErrInvalidParams, p.Name, names[i], v)
		}
	}
	return nil
}

// Product holds the grids produced for one physical quantity. All of
// the grids are co-registered.
type Product struct {
	Name   string
	Params BuildParams

	// Binned holds the block-mean control points.
	Binned []Sample

	// Interpolated is the densified grid before smoothing.
	Interpolated *Grid

	// Surface is the minimum-curvature fit used for the mask.
	Surface *Grid

	// Mask is 1 where the product is supported by nearby samples and
	// NaN elsewhere.
	Mask *Grid

	// Filtered is the smoothed, unmasked grid.
	Filtered *Grid

	// Masked is Filtered multiplied by Mask.
	Masked *Grid
}

// Builder turns scattered samples into gridded products by block-mean
// binning, dense interpolation, smoothing and masking.
type Builder struct {
	Interpolator DenseInterpolator
	Surface      SurfaceOptions
	Log          logrus.FieldLogger
}

// BuildStage is one step in building a product.
type BuildStage func(ctx context.Context, s *BuildState) error

// BuildState is passed from stage to stage during a build.
type BuildState struct {
	Params   BuildParams
	Samples  []Sample
	Template *Grid
	Product  *Product

	// Dense holds the raw interpolator output.
	Dense []Sample

	Log logrus.FieldLogger
}

// Stages returns the build stages in the order they run.
func (b *Builder) Stages() []BuildStage {
	return []BuildStage{
		b.blockMean,
		b.interpolate,
		regularize,
		b.validity,
		smooth,
		applyMask,
	}
}

func (b *Builder) logger() logrus.FieldLogger {
	if b.Log != nil {
		return b.Log
	}
	l := logrus.New()
	l.Out = ioutil.Discard
	return l
}

// Build grids attribute p.Attribute of table. Rows where the attribute
// is NaN are dropped first; if none remain, the result is an all-NaN
// product and the interpolator is not called.
func (b *Builder) Build(ctx context.Context, table *PointTable, p BuildParams) (*Product, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	samples, err := table.Samples(p.Attribute)
	if err != nil {
		return nil, err
	}
	return b.BuildSamples(ctx, samples, p)
}

// BuildSamples is like Build but takes samples directly.
func (b *Builder) BuildSamples(ctx context.Context, samples []Sample, p BuildParams) (*Product, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	log := b.logger().WithField("product", p.Name)
	if p.BlockSpacing < p.GridSpacing {
		log.Warnf("block spacing %g is smaller than grid spacing %g", p.BlockSpacing, p.GridSpacing)
	}
	template, err := NewGrid(p.Region, p.GridSpacing, p.GridSpacing)
	if err != nil {
		return nil, err
	}
	s := &BuildState{
		Params:   p,
		Samples:  samples,
		Template: template,
		Product:  &Product{Name: p.Name, Params: p},
		Log:      log,
	}
	if len(samples) == 0 {
		log.Warn("no samples; product will be empty")
		for _, g := range []**Grid{&s.Product.Interpolated, &s.Product.Surface, &s.Product.Mask, &s.Product.Filtered, &s.Product.Masked} {
			*g = template.like()
		}
		return s.Product, nil
	}
	start := time.Now()
	log.WithField("points", len(samples)).Info("building grid")
	for _, stage := range b.Stages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stage(ctx, s); err != nil {
			return nil, fmt.Errorf("cuestas: building %s: %w", p.Name, err)
		}
	}
	log.WithFields(logrus.Fields{
		"valid":   s.Product.Masked.CountValid(),
		"nodes":   template.Nx * template.Ny,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Info("finished grid")
	return s.Product, nil
}

func (b *Builder) blockMean(_ context.Context, s *BuildState) error {
	s.Product.Binned = BlockMean(s.Samples, s.Params.Region, s.Params.BlockSpacing, s.Params.RMS)
	s.Log.WithFields(logrus.Fields{
		"stage":  "blockmean",
		"blocks": len(s.Product.Binned),
	}).Debug("binned samples")
	return nil
}

func (b *Builder) interpolate(ctx context.Context, s *BuildState) error {
	if b.Interpolator == nil {
		return fmt.Errorf("%w: no interpolator configured", ErrInvalidParams)
	}
	lattice := s.Template.Lattice()
	dense, err := b.Interpolator.Interpolate(ctx, s.Product.Binned, lattice)
	if err != nil {
		return err
	}
	if err := checkLatticeResult("interpolator", len(dense), len(lattice)); err != nil {
		return err
	}
	s.Dense = dense
	return nil
}

func regularize(_ context.Context, s *BuildState) error {
	s.Product.Interpolated = Regularize(s.Template, s.Dense)
	return nil
}

func (b *Builder) validity(ctx context.Context, s *BuildState) error {
	surface, err := MinimumCurvature(ctx, s.Template, s.Samples, s.Params.MaxRadius, b.Surface)
	if err != nil {
		return err
	}
	s.Product.Surface = surface
	s.Product.Mask = ValidityMask(surface)
	return nil
}

func smooth(_ context.Context, s *BuildState) error {
	s.Product.Filtered = GaussianFilter(s.Product.Interpolated, s.Params.FilterWidth)
	return nil
}

func applyMask(_ context.Context, s *BuildState) error {
	m, err := Mask(s.Product.Filtered, s.Product.Mask)
	if err != nil {
		return err
	}
	s.Product.Masked = m
	return nil
}
