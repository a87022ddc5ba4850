package source

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/soilicd/soilicd/internal/log"
	"github.com/soilicd/soilicd/pkg/config"
	"github.com/soilicd/soilicd/pkg/dataset"
)

// Fetcher resolves source URIs to bytes. Remote objects are copied to a
// local cache; when the remote read fails a cached copy is used instead.
type Fetcher struct {
	// S3 configures the lazily created S3 store.
	S3 S3Config
	// CachePath maps a remote URI to its cache file. Nil disables caching.
	CachePath func(uri string) string

	mu     sync.Mutex
	stores map[string]Store
}

// NewFetcher returns a Fetcher caching under the user cache directory.
func NewFetcher(s3cfg S3Config) *Fetcher {
	return &Fetcher{S3: s3cfg, CachePath: config.CachePath}
}

// Register installs the store used for a scheme, replacing the default.
func (f *Fetcher) Register(scheme string, s Store) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stores == nil {
		f.stores = make(map[string]Store)
	}
	f.stores[scheme] = s
}

func (f *Fetcher) store(ctx context.Context, scheme string) (Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.stores[scheme]; ok {
		return s, nil
	}

	var (
		s   Store
		err error
	)
	switch scheme {
	case "file":
		s = NewLocalStore("")
	case "s3":
		s, err = NewS3Store(ctx, f.S3)
	case "gs":
		s, err = NewGCSStore(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
	if err != nil {
		return nil, err
	}
	if f.stores == nil {
		f.stores = make(map[string]Store)
	}
	f.stores[scheme] = s
	return s, nil
}

// Fetch reads the object addressed by uri.
func (f *Fetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	s, err := f.store(ctx, loc.Scheme)
	if err != nil {
		return nil, err
	}

	data, err := s.Get(ctx, loc.Bucket, loc.Key)
	if !loc.IsRemote() || f.CachePath == nil {
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", loc, err)
		}
		return data, nil
	}

	cache := f.CachePath(uri)
	if err != nil {
		cached, cerr := os.ReadFile(cache)
		if cerr != nil {
			return nil, fmt.Errorf("read %s: %w", loc, err)
		}
		log.Warnw("remote source unavailable, using cached copy", "uri", uri, "cache", cache, "error", err)
		return cached, nil
	}
	if err := writeCache(cache, data); err != nil {
		log.Warnw("caching remote source failed", "uri", uri, "error", err)
	}
	return data, nil
}

// Put writes data to the object addressed by uri.
func (f *Fetcher) Put(ctx context.Context, uri string, data []byte) error {
	loc, err := ParseURI(uri)
	if err != nil {
		return err
	}
	s, err := f.store(ctx, loc.Scheme)
	if err != nil {
		return err
	}
	if err := s.Put(ctx, loc.Bucket, loc.Key, data); err != nil {
		return fmt.Errorf("write %s: %w", loc, err)
	}
	return nil
}

// LoadDataset fetches and decodes a lab dataset (CSV or JSON snapshot).
func (f *Fetcher) LoadDataset(ctx context.Context, uri string) (*dataset.Dataset, []string, error) {
	data, err := f.Fetch(ctx, uri)
	if err != nil {
		return nil, nil, err
	}
	loc, _ := ParseURI(uri)
	d, warnings, err := dataset.Decode(loc.Key, bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decode dataset %s: %w", uri, err)
	}
	log.Infow("dataset loaded", "uri", uri, "records", d.Len(), "warnings", len(warnings))
	return d, warnings, nil
}

// LoadForecast fetches and decodes a forecast table.
func (f *Fetcher) LoadForecast(ctx context.Context, uri string) (*dataset.Forecast, error) {
	data, err := f.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	fc, warnings, err := dataset.DecodeForecastCSV(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode forecast %s: %w", uri, err)
	}
	for _, w := range warnings {
		log.Warnw("forecast row skipped", "uri", uri, "reason", w)
	}
	log.Infow("forecast loaded", "uri", uri, "variables", len(fc.Variables()), "skipped", len(warnings))
	return fc, nil
}

func writeCache(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
