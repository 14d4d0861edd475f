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
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/coldex/cuestas"
	"github.com/sirupsen/logrus"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// downloadRetries bounds the number of retries of a failed HTTP request.
const downloadRetries = 5

// inputs resolves the names of input files and directories relative to
// the data directory. A remote data directory is mirrored into a local
// staging directory as the inputs are requested.
type inputs struct {
	dataDir string
	stage   string
	log     logrus.FieldLogger
	client  *http.Client
}

func newInputs(dataDir string, log logrus.FieldLogger) *inputs {
	return &inputs{dataDir: dataDir, log: log, client: http.DefaultClient}
}

// location returns the full path or URL of name.
func (in *inputs) location(name string) string {
	name = os.ExpandEnv(name)
	if isHTTP(name) || IsBlob(name) || filepath.IsAbs(name) {
		return name
	}
	if isHTTP(in.dataDir) || IsBlob(in.dataDir) {
		return strings.TrimSuffix(in.dataDir, "/") + "/" + filepath.ToSlash(name)
	}
	return filepath.Join(in.dataDir, name)
}

// stagingDir returns the local directory that downloads go into.
func (in *inputs) stagingDir() (string, error) {
	if in.stage == "" {
		dir, err := os.MkdirTemp("", "cuestas")
		if err != nil {
			return "", fmt.Errorf("cuestasutil: creating download directory: %v", err)
		}
		in.stage = dir
	}
	return in.stage, nil
}

// file returns a local path to the named input file.
func (in *inputs) file(ctx context.Context, name string) (string, error) {
	loc := in.location(name)
	if !isHTTP(loc) && !IsBlob(loc) {
		return loc, nil
	}
	dir, err := in.stagingDir()
	if err != nil {
		return "", err
	}
	return maybeDownload(ctx, loc, filepath.Join(dir, filepath.FromSlash(name)), in.client, in.log)
}

// dir returns a local path to the named input directory. Remote
// directories can only be read from blob storage.
func (in *inputs) dir(ctx context.Context, name string) (string, error) {
	loc := in.location(name)
	if !isHTTP(loc) && !IsBlob(loc) {
		return loc, nil
	}
	if isHTTP(loc) {
		return "", fmt.Errorf("%w: cuestasutil: directory %s cannot be listed over http", cuestas.ErrInvalidParams, loc)
	}
	stage, err := in.stagingDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(stage, filepath.FromSlash(name))
	if err := downloadBlobDir(ctx, loc, dir, in.log); err != nil {
		return "", err
	}
	return dir, nil
}

// list returns the names of the files directly in the data directory
// for which keep returns true.
func (in *inputs) list(ctx context.Context, keep func(name string) bool) ([]string, error) {
	if isHTTP(in.dataDir) {
		return nil, fmt.Errorf("%w: cuestasutil: data directory %s cannot be listed over http; set Sources.CSV", cuestas.ErrInvalidParams, in.dataDir)
	}
	var names []string
	if IsBlob(in.dataDir) {
		err := listBlob(ctx, in.dataDir, func(b *blob.Bucket, key, rel string) error {
			if !strings.Contains(rel, "/") && keep(rel) {
				names = append(names, rel)
			}
			return nil
		})
		return names, err
	}
	entries, err := os.ReadDir(in.dataDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &cuestas.MissingInputError{Path: in.dataDir, Err: err}
		}
		return nil, fmt.Errorf("cuestasutil: %v", err)
	}
	for _, e := range entries {
		if !e.IsDir() && keep(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// maybeDownload returns loc if it is a local file. Files at web or
// blob storage addresses are downloaded to dst and dst is returned.
func maybeDownload(ctx context.Context, loc, dst string, client *http.Client, log logrus.FieldLogger) (string, error) {
	if _, err := os.Stat(loc); err == nil {
		return loc, nil
	}
	switch {
	case isHTTP(loc):
		return dst, downloadHTTP(ctx, loc, dst, client, log)
	case IsBlob(loc):
		return dst, downloadBlob(ctx, loc, dst, log)
	}
	return loc, nil
}

// downloadHTTP retrieves addr into the file dst, retrying transient
// failures with exponential backoff.
func downloadHTTP(ctx context.Context, addr, dst string, client *http.Client, log logrus.FieldLogger) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("cuestasutil: creating download directory: %v", err)
	}
	log.WithField("source", addr).Info("downloading")
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("cuestasutil: downloading %s: %v", addr, err))
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("cuestasutil: downloading %s: %v", addr, err)
		}
		defer resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(&cuestas.MissingInputError{Path: addr, Err: errors.New(resp.Status)})
		case resp.StatusCode >= 500:
			return fmt.Errorf("cuestasutil: downloading %s: %s", addr, resp.Status)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("cuestasutil: downloading %s: %s", addr, resp.Status))
		}
		return writeFile(dst, resp.Body)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	notify := func(err error, d time.Duration) {
		log.WithField("source", addr).Warnf("%v; retrying in %v", err, d)
	}
	return backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, downloadRetries), ctx), notify)
}

// downloadBlob copies the blob at loc into the file dst.
func downloadBlob(ctx context.Context, loc, dst string, log logrus.FieldLogger) error {
	bucketURL, key, err := splitBlob(loc)
	if err != nil {
		return err
	}
	bucket, err := OpenBucket(ctx, bucketURL)
	if err != nil {
		return err
	}
	defer bucket.Close()
	log.WithField("source", loc).Info("downloading")
	return copyBlob(ctx, bucket, key, loc, dst)
}

func copyBlob(ctx context.Context, bucket *blob.Bucket, key, loc, dst string) error {
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return &cuestas.MissingInputError{Path: loc, Err: err}
		}
		return fmt.Errorf("cuestasutil: reading %s: %v", loc, err)
	}
	defer r.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("cuestasutil: creating download directory: %v", err)
	}
	return writeFile(dst, r)
}

// downloadBlobDir copies every object under the blob prefix loc into
// the directory dst.
func downloadBlobDir(ctx context.Context, loc, dst string, log logrus.FieldLogger) error {
	log.WithField("source", loc).Info("downloading directory")
	var n int
	err := listBlob(ctx, loc, func(b *blob.Bucket, key, rel string) error {
		n++
		return copyBlob(ctx, b, key, loc+"/"+rel, filepath.Join(dst, filepath.FromSlash(rel)))
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return &cuestas.MissingInputError{Path: loc, Err: os.ErrNotExist}
	}
	return nil
}

// listBlob calls f for each object under the blob prefix loc, with
// the object key and its name relative to the prefix.
func listBlob(ctx context.Context, loc string, f func(b *blob.Bucket, key, rel string) error) error {
	bucketURL, prefix, err := splitBlob(loc)
	if err != nil {
		return err
	}
	if u, err := url.Parse(loc); err == nil && u.Scheme == "file" {
		// A local directory is opened as its own bucket.
		if _, err := os.Stat(fileDir(u)); err != nil {
			return &cuestas.MissingInputError{Path: loc, Err: err}
		}
		bucketURL, prefix = strings.TrimSuffix(loc, "/"), ""
	}
	bucket, err := OpenBucket(ctx, bucketURL)
	if err != nil {
		return err
	}
	defer bucket.Close()
	if prefix != "" {
		prefix = strings.TrimSuffix(prefix, "/") + "/"
	}
	it := bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := it.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("cuestasutil: listing %s: %v", loc, err)
		}
		if obj.IsDir {
			continue
		}
		if err := f(bucket, obj.Key, path.Clean(strings.TrimPrefix(obj.Key, prefix))); err != nil {
			return err
		}
	}
}

func writeFile(dst string, r io.Reader) error {
	w, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("cuestasutil: creating file for download: %v", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("cuestasutil: downloading to %s: %v", dst, err)
	}
	return w.Close()
}
