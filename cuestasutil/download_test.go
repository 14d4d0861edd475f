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
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/coldex/cuestas"
	"github.com/sirupsen/logrus"
)

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}

func writeTestFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
}

func readTestFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestDownloadHTTP(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/flaky.csv":
			// The first request fails.
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			io.WriteString(w, "x,y\n1,2\n")
		case "/forbidden.csv":
			w.WriteHeader(http.StatusForbidden)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	ctx := context.Background()
	log := discardLogger()
	dir := t.TempDir()

	t.Run("retry", func(t *testing.T) {
		dst := filepath.Join(dir, "a", "flaky.csv")
		path, err := maybeDownload(ctx, srv.URL+"/flaky.csv", dst, srv.Client(), log)
		if err != nil {
			t.Fatal(err)
		}
		if path != dst {
			t.Errorf("path %s != %s", path, dst)
		}
		if s := readTestFile(t, dst); s != "x,y\n1,2\n" {
			t.Errorf("contents: %q", s)
		}
		if n := atomic.LoadInt32(&calls); n != 2 {
			t.Errorf("%d requests, want 2", n)
		}
	})
	t.Run("not found", func(t *testing.T) {
		_, err := maybeDownload(ctx, srv.URL+"/missing.csv", filepath.Join(dir, "missing.csv"), srv.Client(), log)
		if !errors.Is(err, cuestas.ErrMissingInputFile) {
			t.Errorf("got %v", err)
		}
	})
	t.Run("forbidden", func(t *testing.T) {
		_, err := maybeDownload(ctx, srv.URL+"/forbidden.csv", filepath.Join(dir, "forbidden.csv"), srv.Client(), log)
		if err == nil || errors.Is(err, cuestas.ErrMissingInputFile) {
			t.Errorf("got %v", err)
		}
	})
	t.Run("local", func(t *testing.T) {
		local := filepath.Join(dir, "local.csv")
		writeTestFile(t, local, "x")
		path, err := maybeDownload(ctx, local, filepath.Join(dir, "other.csv"), srv.Client(), log)
		if err != nil {
			t.Fatal(err)
		}
		if path != local {
			t.Errorf("path %s != %s", path, local)
		}
	})
	t.Run("inputs", func(t *testing.T) {
		in := newInputs(srv.URL, log)
		in.client = srv.Client()
		path, err := in.file(ctx, "flaky.csv")
		if err != nil {
			t.Fatal(err)
		}
		defer os.RemoveAll(in.stage)
		if s := readTestFile(t, path); s != "x,y\n1,2\n" {
			t.Errorf("contents: %q", s)
		}
		if _, err := in.dir(ctx, "radar"); !errors.Is(err, cuestas.ErrInvalidParams) {
			t.Errorf("directory over http: %v", err)
		}
		if _, err := in.list(ctx, func(string) bool { return true }); !errors.Is(err, cuestas.ErrInvalidParams) {
			t.Errorf("listing over http: %v", err)
		}
	})
}

func TestInputsLocation(t *testing.T) {
	t.Setenv("CUESTAS_TEST_DIR", "/data")
	for _, test := range []struct {
		dataDir, name, want string
	}{
		{"orig", "a.csv", filepath.Join("orig", "a.csv")},
		{"orig", "$CUESTAS_TEST_DIR/a.csv", "/data/a.csv"},
		{"orig", "https://example.com/a.csv", "https://example.com/a.csv"},
		{"gs://bucket/orig", "radar/a.csv", "gs://bucket/orig/radar/a.csv"},
		{"https://example.com/orig/", "a.csv", "https://example.com/orig/a.csv"},
	} {
		in := newInputs(test.dataDir, discardLogger())
		if got := in.location(test.name); got != test.want {
			t.Errorf("%s + %s: %s != %s", test.dataDir, test.name, got, test.want)
		}
	}
}

func TestSplitBlob(t *testing.T) {
	for _, test := range []struct {
		path, bucket, key string
	}{
		{"gs://bucket/a/b.csv", "gs://bucket", "a/b.csv"},
		{"s3://bucket/b.csv", "s3://bucket", "b.csv"},
		{"file:///data/orig/a.csv", "file:///data/orig", "a.csv"},
		{"file://orig/a.csv", "file://orig", "a.csv"},
		{"file://a.csv", "file://.", "a.csv"},
	} {
		bucket, key, err := splitBlob(test.path)
		if err != nil {
			t.Fatal(err)
		}
		if bucket != test.bucket || key != test.key {
			t.Errorf("%s: (%s, %s) != (%s, %s)", test.path, bucket, key, test.bucket, test.key)
		}
	}
}

func TestBlobInputs(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "orig", "a.csv"), "a")
	writeTestFile(t, filepath.Join(root, "orig", "b.txt"), "b")
	writeTestFile(t, filepath.Join(root, "orig", "radar", "line1.txt"), "line1")
	writeTestFile(t, filepath.Join(root, "orig", "radar", "sub", "line2.txt"), "line2")
	ctx := context.Background()

	in := newInputs("file://"+filepath.ToSlash(filepath.Join(root, "orig")), discardLogger())
	defer func() { os.RemoveAll(in.stage) }()

	path, err := in.file(ctx, "a.csv")
	if err != nil {
		t.Fatal(err)
	}
	if s := readTestFile(t, path); s != "a" {
		t.Errorf("file contents: %q", s)
	}

	dir, err := in.dir(ctx, "radar")
	if err != nil {
		t.Fatal(err)
	}
	if s := readTestFile(t, filepath.Join(dir, "line1.txt")); s != "line1" {
		t.Errorf("line1: %q", s)
	}
	if s := readTestFile(t, filepath.Join(dir, "sub", "line2.txt")); s != "line2" {
		t.Errorf("line2: %q", s)
	}

	names, err := in.list(ctx, func(name string) bool { return filepath.Ext(name) == ".csv" })
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(names, []string{"a.csv"}) {
		t.Errorf("listed %v", names)
	}

	if _, err := in.file(ctx, "missing.csv"); !errors.Is(err, cuestas.ErrMissingInputFile) {
		t.Errorf("missing file: %v", err)
	}
	if _, err := in.dir(ctx, "missing"); !errors.Is(err, cuestas.ErrMissingInputFile) {
		t.Errorf("missing directory: %v", err)
	}
}

func TestListLocal(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "b.csv"), "b")
	writeTestFile(t, filepath.Join(root, "a.CSV"), "a")
	writeTestFile(t, filepath.Join(root, "c.txt"), "c")
	writeTestFile(t, filepath.Join(root, "d", "e.csv"), "e")
	in := newInputs(root, discardLogger())
	names, err := in.list(context.Background(), func(name string) bool {
		return filepath.Ext(name) != ".txt"
	})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(names, []string{"a.CSV", "b.csv"}) {
		t.Errorf("listed %v", names)
	}
	in = newInputs(filepath.Join(root, "missing"), discardLogger())
	if _, err := in.list(context.Background(), func(string) bool { return true }); !errors.Is(err, cuestas.ErrMissingInputFile) {
		t.Errorf("missing directory: %v", err)
	}
}
