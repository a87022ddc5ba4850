// Package source loads lab datasets and forecast tables from local disk,
// S3 or GCS, addressed by URI.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedScheme is returned for URIs that no store can serve.
var ErrUnsupportedScheme = errors.New("unsupported source scheme")

// Store abstracts blob storage for dataset and forecast files.
type Store interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, data []byte) error
}

// Location is a parsed source URI.
type Location struct {
	Scheme string // "file", "s3" or "gs"
	Bucket string // empty for local files
	Key    string // object key or filesystem path
}

// IsRemote reports whether the location lives in object storage.
func (l Location) IsRemote() bool {
	return l.Scheme != "file"
}

func (l Location) String() string {
	if !l.IsRemote() {
		return l.Key
	}
	return l.Scheme + "://" + l.Bucket + "/" + l.Key
}

// ParseURI parses a plain path, file://, s3://bucket/key or gs://bucket/key.
func ParseURI(uri string) (Location, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return Location{}, fmt.Errorf("empty source URI")
	}
	if !strings.Contains(uri, "://") {
		return Location{Scheme: "file", Key: uri}, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, fmt.Errorf("parse source URI %q: %w", uri, err)
	}
	switch u.Scheme {
	case "file":
		return Location{Scheme: "file", Key: u.Host + u.Path}, nil
	case "s3", "gs":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, fmt.Errorf("source URI %q needs a bucket and a key", uri)
		}
		return Location{Scheme: u.Scheme, Bucket: u.Host, Key: key}, nil
	}
	return Location{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
}

// LocalStore implements Store using the local filesystem. The bucket is
// ignored; keys are paths relative to BaseDir (or absolute).
type LocalStore struct {
	BaseDir string
}

// NewLocalStore creates a LocalStore rooted at the given directory.
func NewLocalStore(baseDir string) *LocalStore {
	return &LocalStore{BaseDir: baseDir}
}

func (s *LocalStore) path(key string) string {
	if filepath.IsAbs(key) || s.BaseDir == "" {
		return key
	}
	return filepath.Join(s.BaseDir, key)
}

// Get reads a file.
func (s *LocalStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	return os.ReadFile(s.path(key))
}

// Put writes a file, creating parent directories.
func (s *LocalStore) Put(ctx context.Context, bucket, key string, data []byte) error {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
