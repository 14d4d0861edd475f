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
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gocloud.dev/blob"
)

// uploader stages output files in a local directory when the output
// directory is in blob storage, and copies them there at the end of a
// run.
type uploader struct {
	// dest is the blob storage URL of the output directory, or
	// empty if the output directory is local.
	dest string
	dir  string
}

// newUploader prepares the output directory.
func newUploader(outputDir string) (*uploader, error) {
	if !IsBlob(outputDir) {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return nil, fmt.Errorf("cuestasutil: creating output directory: %v", err)
		}
		return &uploader{dir: outputDir}, nil
	}
	dir, err := os.MkdirTemp("", "cuestas-out")
	if err != nil {
		return nil, fmt.Errorf("cuestasutil: creating output staging directory: %v", err)
	}
	return &uploader{dest: strings.TrimSuffix(outputDir, "/"), dir: dir}, nil
}

// path returns the local path for the output file name.
func (u *uploader) path(name string) string {
	return filepath.Join(u.dir, name)
}

// upload copies the staged files to blob storage. It does nothing if
// the output directory is local.
func (u *uploader) upload(ctx context.Context, log logrus.FieldLogger) error {
	if u.dest == "" {
		return nil
	}
	bucketURL, prefix, err := splitBlob(u.dest)
	if err != nil {
		return err
	}
	bucket, err := OpenBucket(ctx, bucketURL)
	if err != nil {
		return fmt.Errorf("cuestasutil: opening bucket to upload to '%s': %v", u.dest, err)
	}
	defer bucket.Close()
	err = filepath.WalkDir(u.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(u.dir, path)
		if err != nil {
			return err
		}
		key := strings.TrimPrefix(prefix+"/"+filepath.ToSlash(rel), "/")
		log.WithField("file", rel).Debugf("uploading to %s", u.dest)
		return uploadFile(ctx, bucket, path, key)
	})
	if err != nil {
		return err
	}
	return os.RemoveAll(u.dir)
}

func uploadFile(ctx context.Context, bucket *blob.Bucket, path, key string) error {
	r, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cuestasutil: opening file '%s' for upload: %v", path, err)
	}
	defer r.Close()
	w, err := bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("cuestasutil: opening writer to upload file '%s': %v", key, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("cuestasutil: uploading file '%s' to '%s': %v", path, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("cuestasutil: uploading file '%s' to '%s': %v", path, key, err)
	}
	return nil
}
