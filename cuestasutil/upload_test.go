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
	"os"
	"path/filepath"
	"testing"
)

func TestUploadLocal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "targ", "run1")
	u, err := newUploader(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("output directory was not created: %v", err)
	}
	if u.path("a.tif") != filepath.Join(dir, "a.tif") {
		t.Errorf("path: %s", u.path("a.tif"))
	}
	if err := u.upload(context.Background(), discardLogger()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("local output directory was removed: %v", err)
	}
}

func TestUploadBlob(t *testing.T) {
	root := t.TempDir()
	u, err := newUploader("file://" + filepath.ToSlash(root) + "/targ/")
	if err != nil {
		t.Fatal(err)
	}
	writeTestFile(t, u.path("icethk.tif"), "tif")
	writeTestFile(t, u.path(filepath.Join("Mouginot2019", "VX.tif")), "vx")
	if err := u.upload(context.Background(), discardLogger()); err != nil {
		t.Fatal(err)
	}
	if s := readTestFile(t, filepath.Join(root, "targ", "icethk.tif")); s != "tif" {
		t.Errorf("icethk.tif: %q", s)
	}
	if s := readTestFile(t, filepath.Join(root, "targ", "Mouginot2019", "VX.tif")); s != "vx" {
		t.Errorf("VX.tif: %q", s)
	}
	if _, err := os.Stat(u.dir); !os.IsNotExist(err) {
		t.Errorf("staging directory should be removed: %v", err)
	}
}
