package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrTooLarge is returned when resource exceeds configured size limit.
var ErrTooLarge = errors.New("resource is too large")

// Loader retrieves content of a referenced resource.
type Loader interface {
	Load(ctx context.Context, u *url.URL) ([]byte, error)
}

// LoaderFunc adapts ordinary function to Loader.
type LoaderFunc func(ctx context.Context, u *url.URL) ([]byte, error)

func (f LoaderFunc) Load(ctx context.Context, u *url.URL) ([]byte, error) {
	return f(ctx, u)
}

// Fetcher loads local files and http(s) resources. Results are memoized for
// the lifetime of the fetcher and optionally kept in persistent cache.
type Fetcher struct {
	log      *zap.Logger
	client   *http.Client
	user     string
	password string
	maxSize  int64
	cache    *Cache

	mu   sync.Mutex
	memo map[string][]byte
}

// FetcherOption configures Fetcher.
type FetcherOption func(*Fetcher)

// WithTimeout limits duration of a single http request.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.client.Timeout = d
	}
}

// WithBasicAuth sends credentials with every http request.
func WithBasicAuth(user, password string) FetcherOption {
	return func(f *Fetcher) {
		f.user, f.password = user, password
	}
}

// WithMaxSize limits size of loaded resources, 0 means no limit.
func WithMaxSize(n int64) FetcherOption {
	return func(f *Fetcher) {
		f.maxSize = n
	}
}

// WithCache keeps remote resources in persistent cache.
func WithCache(c *Cache) FetcherOption {
	return func(f *Fetcher) {
		f.cache = c
	}
}

// WithHTTPClient replaces http client, mostly for tests.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = c
	}
}

// NewFetcher creates Fetcher with given options.
func NewFetcher(log *zap.Logger, opts ...FetcherOption) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	f := &Fetcher{
		log:    log.Named("fetcher"),
		client: &http.Client{Timeout: 30 * time.Second},
		memo:   make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Load implements Loader. Relative references without scheme are treated as
// local file paths.
func (f *Fetcher) Load(ctx context.Context, u *url.URL) ([]byte, error) {
	key := u.String()

	f.mu.Lock()
	data, ok := f.memo[key]
	f.mu.Unlock()
	if ok {
		return data, nil
	}

	var err error
	switch u.Scheme {
	case "", "file":
		data, err = f.loadFile(u)
	case "http", "https":
		data, err = f.loadRemote(ctx, u)
	default:
		err = fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to load %s: %w", key, err)
	}

	f.mu.Lock()
	f.memo[key] = data
	f.mu.Unlock()
	return data, nil
}

func (f *Fetcher) loadFile(u *url.URL) ([]byte, error) {
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	p = filepath.FromSlash(p)

	fi, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", p)
	}
	if f.maxSize > 0 && fi.Size() > f.maxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, fi.Size())
	}
	f.log.Debug("Loading file", zap.String("path", p))
	return os.ReadFile(p)
}

func (f *Fetcher) loadRemote(ctx context.Context, u *url.URL) ([]byte, error) {
	key := u.String()
	if f.cache != nil {
		data, found, err := f.cache.Get(key)
		if err != nil {
			f.log.Warn("Resource cache lookup failed", zap.String("url", key), zap.Error(err))
		} else if found {
			f.log.Debug("Resource cache hit", zap.String("url", key))
			if f.maxSize > 0 && int64(len(data)) > f.maxSize {
				return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
			}
			return data, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key, nil)
	if err != nil {
		return nil, err
	}
	if f.user != "" {
		req.SetBasicAuth(f.user, f.password)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	if f.maxSize > 0 && resp.ContentLength > f.maxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}

	var body io.Reader = resp.Body
	if f.maxSize > 0 {
		body = io.LimitReader(resp.Body, f.maxSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if f.maxSize > 0 && int64(len(data)) > f.maxSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxSize)
	}
	f.log.Debug("Fetched resource", zap.String("url", key), zap.Int("bytes", len(data)), zap.Duration("elapsed", time.Since(start)))

	if f.cache != nil {
		if err := f.cache.Put(key, data); err != nil {
			f.log.Warn("Unable to cache resource", zap.String("url", key), zap.Error(err))
		}
	}
	return data, nil
}
