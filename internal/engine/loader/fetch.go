package loader

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound is returned when no root or remote holds the requested asset.
var ErrNotFound = errors.New("asset not found")

// Fetcher retrieves the bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetchFunc adapts a function to Fetcher.
type FetchFunc func(ctx context.Context, url string) ([]byte, error)

// Fetch calls f.
func (f FetchFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// AssetFetcher resolves http(s), file and data URLs plus bare paths
// searched in local asset roots. Only local files are cached: remote URLs
// may be short-lived signed locations and are fetched every time.
type AssetFetcher struct {
	client *http.Client
	roots  []string
	cache  *Cache
	mu     sync.RWMutex
}

// NewAssetFetcher creates a fetcher using client for remote URLs
// (http.DefaultClient when nil).
func NewAssetFetcher(client *http.Client) *AssetFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &AssetFetcher{
		client: client,
		cache:  NewCache(),
	}
}

// AddRoot adds a local directory for bare paths.
// Roots are searched in reverse order (last added = highest priority).
func (f *AssetFetcher) AddRoot(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("adding asset root %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("adding asset root %s: not a directory", dir)
	}

	f.mu.Lock()
	f.roots = append(f.roots, dir)
	f.mu.Unlock()
	return nil
}

// Fetch implements Fetcher.
func (f *AssetFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch {
	case strings.HasPrefix(ref, "data:"):
		_, data, err := ParseDataURL(ref)
		return data, err
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return f.fetchHTTP(ctx, ref)
	case strings.HasPrefix(ref, "file://"):
		u, err := url.Parse(ref)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", ref, err)
		}
		return f.readFile(u.Path)
	}
	return f.loadLocal(ref)
}

func (f *AssetFetcher) fetchHTTP(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", ref, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("fetching %s: %w", ref, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", ref, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ref, err)
	}
	return data, nil
}

// loadLocal reads a bare path. Relative and rooted paths ("/models/x.glb")
// are searched in the roots first; a path no root holds is then read from
// the working directory or, when absolute, from the filesystem.
func (f *AssetFetcher) loadLocal(ref string) ([]byte, error) {
	if data, ok := f.cache.Get(ref); ok {
		return data, nil
	}

	f.mu.RLock()
	roots := f.roots
	f.mu.RUnlock()

	rel := filepath.FromSlash(strings.TrimLeft(strings.TrimPrefix(filepath.ToSlash(ref), "./"), "/"))
	if rel != "" {
		for i := len(roots) - 1; i >= 0; i-- {
			data, err := os.ReadFile(filepath.Join(roots[i], rel))
			if err == nil {
				f.cache.Set(ref, data)
				return data, nil
			}
		}
	}

	if filepath.IsAbs(ref) {
		return f.readFile(ref)
	}
	data, err := os.ReadFile(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", ref, ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", ref, err)
	}
	f.cache.Set(ref, data)
	return data, nil
}

func (f *AssetFetcher) readFile(path string) ([]byte, error) {
	if data, ok := f.cache.Get(path); ok {
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f.cache.Set(path, data)
	return data, nil
}

// Close drops cached local files.
func (f *AssetFetcher) Close() {
	f.cache.Clear()
}

// ParseDataURL decodes an RFC 2397 data URL, returning its media type.
func ParseDataURL(ref string) (mediaType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(ref, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URL: missing comma")
	}

	isBase64 := false
	if m, found := strings.CutSuffix(meta, ";base64"); found {
		meta, isBase64 = m, true
	}
	mediaType = meta
	if mediaType == "" {
		mediaType = "text/plain"
	}

	if isBase64 {
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// Some encoders drop padding.
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return "", nil, fmt.Errorf("decoding data URL: %w", err)
		}
		return mediaType, data, nil
	}

	s, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decoding data URL: %w", err)
	}
	return mediaType, []byte(s), nil
}

// Cache is a simple in-memory cache for local assets.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
