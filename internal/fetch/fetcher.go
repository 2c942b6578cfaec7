// Package fetch implements the resolver's Fetcher port: tarball
// download with SRI hashing, local directory reads, and git ref
// pinning. Downloaded content is cached on disk keyed by source
// identity.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/tether-pm/tether/internal/integrity"
	"github.com/tether-pm/tether/internal/manifest"
	"github.com/tether-pm/tether/internal/resolve"
)

// Fetcher downloads and hashes package content. Safe for concurrent
// use; each call works on its own cache entry.
type Fetcher struct {
	// CacheDir is the directory downloaded tarballs and git checkouts
	// are kept in across runs. Content is re-verified by hash, so a
	// stale cache can only cause a re-download, never a wrong result.
	CacheDir string

	// RootDir is the directory tarball-embedded manifests record as
	// their specifier context.
	RootDir string

	http *http.Client
}

// NewFetcher creates a Fetcher caching under the user cache dir,
// falling back to the system temp dir.
func NewFetcher(rootDir string) (*Fetcher, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	cacheDir = filepath.Join(cacheDir, "tether")

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	return &Fetcher{CacheDir: cacheDir, RootDir: rootDir, http: &http.Client{}}, nil
}

// Tarball implements resolve.Fetcher. The tarball is downloaded once,
// hashed, and its embedded manifest extracted; later calls for the
// same URL reuse the cached copy.
func (f *Fetcher) Tarball(ctx context.Context, url string) (resolve.TarballContent, error) {
	path := filepath.Join(f.CacheDir, cacheKey(url)+".tgz")

	if _, err := os.Stat(path); err != nil {
		if err := f.download(ctx, url, path); err != nil {
			return resolve.TarballContent{}, err
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return resolve.TarballContent{}, fmt.Errorf("opening cached tarball: %w", err)
	}
	defer file.Close()

	sri, err := integrity.FromReader(file)
	if err != nil {
		return resolve.TarballContent{}, err
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return resolve.TarballContent{}, err
	}
	data, err := manifestFromTarball(file)
	if err != nil {
		return resolve.TarballContent{}, fmt.Errorf("reading manifest from %s: %w", url, err)
	}
	man, err := manifest.Parse(data, f.RootDir)
	if err != nil {
		return resolve.TarballContent{}, fmt.Errorf("parsing manifest from %s: %w", url, err)
	}

	return resolve.TarballContent{Manifest: man, Integrity: sri}, nil
}

// Local implements resolve.Fetcher. Missing paths surface the
// underlying fs.ErrNotExist so the engine can report a missing local
// path with the root-anchored directory it actually checked.
func (f *Fetcher) Local(_ context.Context, dir string) (resolve.LocalContent, error) {
	if _, err := os.Stat(dir); err != nil {
		return resolve.LocalContent{}, err
	}

	man, err := manifest.Load(dir)
	if err != nil {
		return resolve.LocalContent{}, err
	}

	sri, err := integrity.FromDir(dir)
	if err != nil {
		return resolve.LocalContent{}, err
	}

	return resolve.LocalContent{Manifest: man, Integrity: sri}, nil
}

func (f *Fetcher) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status fetching %s: %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(f.CacheDir, "tether-*.tgz")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	tmp.Close()

	return os.Rename(tmp.Name(), path)
}

// cacheKey turns a source URL into a filesystem-safe cache file name.
func cacheKey(url string) string {
	base := filepath.Base(strings.TrimSuffix(url, "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			return r
		}
		return '-'
	}, base)
	return fmt.Sprintf("%s-%016x", base, xxhash.Sum64String(url))
}
