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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
)

// DefaultNnbathyPath is where the nn-c build leaves the nnbathy program
// when compiled inside the working directory.
const DefaultNnbathyPath = "nn-c/nn/nnbathy"

// Nnbathy performs natural-neighbour interpolation by running Pavel
// Sakov's nnbathy program (https://github.com/sakov/nn-c).
//
// Control points are written to the program's standard input as
// "x y z" lines, the lattice is written to a temporary file of
// tab-separated "x y" lines passed with -o, and the result is read
// from standard output as "x y z" lines in lattice order.
type Nnbathy struct {
	// Path is the location of the nnbathy executable. It is looked up
	// in $PATH if it does not contain a path separator.
	Path string

	// Args are appended to the command line after the input and
	// output options.
	Args []string

	// Timeout bounds a single run. Zero means no limit.
	Timeout time.Duration

	// TempDir holds the lattice file. The system temporary
	// directory is used if it is empty.
	TempDir string

	Log logrus.FieldLogger
}

// Interpolate implements DenseInterpolator.
func (n *Nnbathy) Interpolate(ctx context.Context, control []Sample, lattice []geom.Point) ([]Sample, error) {
	tool := n.Path
	if tool == "" {
		tool = DefaultNnbathyPath
	}
	path, err := exec.LookPath(tool)
	if err != nil {
		return nil, &ToolError{Tool: tool, Kind: ErrMissingExternalTool, Err: err}
	}

	latticeFile, err := os.CreateTemp(n.TempDir, "template*.xy")
	if err != nil {
		return nil, fmt.Errorf("cuestas: creating nnbathy lattice file: %w", err)
	}
	defer os.Remove(latticeFile.Name())
	if err := writeLattice(latticeFile, lattice); err != nil {
		latticeFile.Close()
		return nil, fmt.Errorf("cuestas: writing nnbathy lattice file: %w", err)
	}
	if err := latticeFile.Close(); err != nil {
		return nil, fmt.Errorf("cuestas: writing nnbathy lattice file: %w", err)
	}

	stdin := new(bytes.Buffer)
	for _, s := range control {
		fmt.Fprintf(stdin, "%s %s %s\n", formatFloat(s.X), formatFloat(s.Y), formatFloat(s.Z))
	}

	if n.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.Timeout)
		defer cancel()
	}
	args := append([]string{"-i", "-", "-o", latticeFile.Name()}, n.Args...)
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		n.logStderr(path, stderr.String())
		return nil, &ToolError{Tool: path, Kind: ErrInterpolationFailed, Stderr: stderr.String(),
			Err: fmt.Errorf("stopped after %v: %w", time.Since(start).Round(time.Millisecond), ctxErr)}
	}
	if runErr != nil {
		n.logStderr(path, stderr.String())
		return nil, &ToolError{Tool: path, Kind: ErrInterpolationFailed, Stderr: stderr.String(), Err: runErr}
	}

	out, err := parseXYZ(&stdout)
	if err != nil {
		return nil, &ToolError{Tool: path, Kind: ErrInterpolationFailed, Err: err}
	}
	if err := checkLatticeResult("nnbathy", len(out), len(lattice)); err != nil {
		return nil, err
	}
	if n.Log != nil {
		n.Log.WithFields(logrus.Fields{
			"control": len(control),
			"lattice": len(lattice),
			"elapsed": time.Since(start),
		}).Debug("nnbathy finished")
	}
	return out, nil
}

func (n *Nnbathy) logStderr(path, stderr string) {
	if n.Log == nil {
		return
	}
	n.Log.WithField("tool", path).Errorf("nnbathy failed: %s", strings.TrimSpace(stderr))
}

func writeLattice(w io.Writer, lattice []geom.Point) error {
	bw := bufio.NewWriter(w)
	for _, p := range lattice {
		if _, err := fmt.Fprintf(bw, "%s\t%s\n", formatFloat(p.X), formatFloat(p.Y)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// parseXYZ reads whitespace separated "x y z" lines. Blank lines are
// skipped; any additional columns are ignored.
func parseXYZ(r io.Reader) ([]Sample, error) {
	var o []Sample
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 1024*1024)
	var line int
	for s.Scan() {
		line++
		f := strings.Fields(s.Text())
		if len(f) == 0 {
			continue
		}
		if len(f) < 3 {
			return nil, fmt.Errorf("line %d: want 3 fields but got %d: %q", line, len(f), s.Text())
		}
		var v [3]float64
		for k := 0; k < 3; k++ {
			var err error
			v[k], err = strconv.ParseFloat(f[k], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %v", line, err)
			}
		}
		o = append(o, Sample{Point: geom.Point{X: v[0], Y: v[1]}, Z: v[2]})
	}
	return o, s.Err()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
