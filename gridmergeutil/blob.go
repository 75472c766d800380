/*
Copyright © 2026 the gridmerge authors.
This file is part of gridmerge.

gridmerge is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

gridmerge is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with gridmerge.  If not, see <http://www.gnu.org/licenses/>.
*/

package gridmergeutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// buckets
	_ "gocloud.dev/blob/gcsblob"  // gs:// buckets
	_ "gocloud.dev/blob/s3blob"   // s3:// buckets
)

// IsBlob returns whether path refers to a blob storage location.
func IsBlob(path string) bool {
	return strings.HasPrefix(path, "gs://") || strings.HasPrefix(path, "s3://") || strings.HasPrefix(path, "file://")
}

func isHTTP(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// OpenBucket returns the blob storage bucket specified by bucketURL,
// which must be in the format 'provider://name'.
// The accepted storage providers are "file" for the local filesystem
// (e.g., for testing), "gs" for Google Cloud Storage, and "s3" for AWS S3.
// Credentials for the cloud providers are taken from the environment.
func OpenBucket(ctx context.Context, bucketURL string) (*blob.Bucket, error) {
	if !IsBlob(bucketURL) {
		return nil, fmt.Errorf("gridmergeutil: invalid blob storage location %s", bucketURL)
	}
	b, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("gridmergeutil: opening bucket %s: %v", bucketURL, err)
	}
	return b, nil
}

// splitBlob splits a blob path into the location of its bucket and the
// key of the object within the bucket. Local file URLs must be absolute,
// and their bucket is the directory holding the file.
func splitBlob(p string) (bucketURL, key string, err error) {
	u, err := url.Parse(p)
	if err != nil {
		return "", "", fmt.Errorf("gridmergeutil: parsing blob location '%s': %v", p, err)
	}
	if u.Scheme == "file" {
		dir, file := path.Split(u.Path)
		if file == "" || dir == "" {
			return "", "", fmt.Errorf("gridmergeutil: invalid file location '%s'", p)
		}
		return "file://" + path.Clean(dir), file, nil
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("gridmergeutil: blob location '%s' must include a bucket and an object name", p)
	}
	return u.Scheme + "://" + u.Host, key, nil
}

// stager moves grid files between remote locations and a local
// temporary directory.
type stager struct {
	dir string

	// uploads is a set of file path pairs. The first of each pair
	// is a local file path and the second is a blob storage
	// path where it should be uploaded to.
	uploads [][2]string
}

// localDir returns a new directory within the staging area.
func (s *stager) localDir() (string, error) {
	if s.dir == "" {
		dir, err := os.MkdirTemp("", "gridmerge")
		if err != nil {
			return "", fmt.Errorf("gridmergeutil: creating temporary directory: %v", err)
		}
		s.dir = dir
	}
	return os.MkdirTemp(s.dir, "stage")
}

// maybeDownload checks if the input is an existing local file.
// If not, and the path is a URL or a blob storage location, it downloads
// the file and returns the path to the downloaded copy.
func (s *stager) maybeDownload(ctx context.Context, p string) (string, error) {
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}
	switch {
	case isHTTP(p):
		return s.downloadHTTP(ctx, p)
	case IsBlob(p):
		return s.downloadBlob(ctx, p)
	}
	return p, nil
}

func (s *stager) downloadHTTP(ctx context.Context, p string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p, nil)
	if err != nil {
		return "", fmt.Errorf("gridmergeutil: downloading %s: %v", p, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gridmergeutil: downloading %s: %v", p, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gridmergeutil: downloading %s: %s", p, resp.Status)
	}
	return s.save(resp.Body, path.Base(resp.Request.URL.Path))
}

func (s *stager) downloadBlob(ctx context.Context, p string) (string, error) {
	bucketURL, key, err := splitBlob(p)
	if err != nil {
		return "", err
	}
	bucket, err := OpenBucket(ctx, bucketURL)
	if err != nil {
		return "", err
	}
	defer bucket.Close()
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return "", fmt.Errorf("gridmergeutil: downloading %s: %v", p, err)
	}
	defer r.Close()
	return s.save(r, path.Base(key))
}

// save copies r to a new file called name in the staging area.
func (s *stager) save(r io.Reader, name string) (string, error) {
	dir, err := s.localDir()
	if err != nil {
		return "", err
	}
	local := filepath.Join(dir, name)
	w, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("gridmergeutil: creating file for download: %v", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("gridmergeutil: downloading to %s: %v", local, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gridmergeutil: downloading to %s: %v", local, err)
	}
	return local, nil
}

// maybeUpload checks whether the given output path refers to a blob
// storage location. If it does, a temporary local path is returned and
// the file written there is uploaded when upload is called.
func (s *stager) maybeUpload(p string) (string, error) {
	if !IsBlob(p) {
		return p, nil
	}
	_, key, err := splitBlob(p)
	if err != nil {
		return "", err
	}
	dir, err := s.localDir()
	if err != nil {
		return "", err
	}
	local := filepath.Join(dir, path.Base(key))
	s.uploads = append(s.uploads, [2]string{local, p})
	return local, nil
}

// upload copies the staged output files to blob storage.
func (s *stager) upload(ctx context.Context) error {
	for _, files := range s.uploads {
		if err := uploadFile(ctx, files[0], files[1]); err != nil {
			return err
		}
	}
	return nil
}

func uploadFile(ctx context.Context, local, dst string) error {
	r, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("gridmergeutil: opening file '%s' for upload: %v", local, err)
	}
	defer r.Close()
	bucketURL, key, err := splitBlob(dst)
	if err != nil {
		return err
	}
	bucket, err := OpenBucket(ctx, bucketURL)
	if err != nil {
		return err
	}
	defer bucket.Close()
	w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{})
	if err != nil {
		return fmt.Errorf("gridmergeutil: opening writer to upload file '%s': %v", dst, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("gridmergeutil: uploading file '%s' to '%s': %v", local, dst, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gridmergeutil: uploading file '%s' to '%s': %v", local, dst, err)
	}
	return nil
}

// cleanup removes the staging area.
func (s *stager) cleanup() error {
	if s.dir == "" {
		return nil
	}
	return os.RemoveAll(s.dir)
}
