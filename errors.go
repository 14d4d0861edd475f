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
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrMissingExternalTool is returned when the dense interpolation
	// program cannot be located or executed.
	ErrMissingExternalTool = errors.New("cuestas: external interpolation tool not found")

	// ErrInterpolationFailed is returned when the dense interpolation
	// program exits with a non-zero status, times out, or writes output
	// that cannot be parsed.
	ErrInterpolationFailed = errors.New("cuestas: interpolation failed")

	// ErrMissingInputFile is returned when an expected source data
	// file does not exist. Callers skip the affected source.
	ErrMissingInputFile = errors.New("cuestas: missing input file")

	// ErrNotCoRegistered is returned when grids that are combined
	// element-wise do not share origin, spacing, and shape.
	ErrNotCoRegistered = errors.New("cuestas: grids are not co-registered")

	ErrInvalidRegion = errors.New("cuestas: invalid region")
	ErrInvalidParams = errors.New("cuestas: invalid parameters")
)

// ToolError describes a failure of an external program.
type ToolError struct {
	// Tool is the path of the program that was run.
	Tool string

	// Kind is either ErrMissingExternalTool or ErrInterpolationFailed.
	Kind error

	// Stderr holds whatever the program wrote to its error stream.
	Stderr string

	Err error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%v: %s", e.Kind, e.Tool)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// Is reports whether target is the kind of this error.
func (e *ToolError) Is(target error) bool { return target == e.Kind }

func (e *ToolError) Unwrap() error { return e.Err }

// SchemaError is returned when an input table lacks a required column.
type SchemaError struct {
	Source string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("cuestas: column %q is missing from %s", e.Column, e.Source)
}

// MissingInputError records which input file could not be found.
type MissingInputError struct {
	Path string
	Err  error
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrMissingInputFile, e.Path, e.Err)
}

func (e *MissingInputError) Is(target error) bool { return target == ErrMissingInputFile }

func (e *MissingInputError) Unwrap() error { return e.Err }

// BatchError holds the errors of the products that failed during a run
// in which other products may have succeeded.
type BatchError struct {
	Failed map[string]error
}

// Add records that product name failed with err.
func (e *BatchError) Add(name string, err error) {
	if e.Failed == nil {
		e.Failed = make(map[string]error)
	}
	e.Failed[name] = err
}

// Err returns e if any product failed and nil otherwise.
func (e *BatchError) Err() error {
	if e == nil || len(e.Failed) == 0 {
		return nil
	}
	return e
}

func (e *BatchError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for n := range e.Failed {
		names = append(names, n)
	}
	sort.Strings(names)
	msgs := make([]string, len(names))
	for i, n := range names {
		msgs[i] = fmt.Sprintf("%s: %v", n, e.Failed[n])
	}
	return fmt.Sprintf("cuestas: %d product(s) failed: %s", len(names), strings.Join(msgs, "; "))
}

// Unwrap allows errors.Is to match the error of any failed product.
func (e *BatchError) Unwrap() []error {
	names := make([]string, 0, len(e.Failed))
	for n := range e.Failed {
		names = append(names, n)
	}
	sort.Strings(names)
	o := make([]error, len(names))
	for i, n := range names {
		o[i] = e.Failed[n]
	}
	return o
}
