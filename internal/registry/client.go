// Package registry implements the resolver's Registry port against an
// npm-style registry: packument lookup with an in-memory cache, a
// force-refresh bypass, and netrc credentials for private registries.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/git-lfs/go-netrc/netrc"
	"go.trai.ch/zerr"

	"github.com/tether-pm/tether/internal/resolve"
)

// DefaultURL is the public npm registry.
const DefaultURL = "https://registry.npmjs.org"

// Client fetches packuments over HTTP. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	netrc   *netrc.Netrc
	force   bool

	mu    sync.Mutex
	cache map[string]*resolve.Packument
}

// Option configures a Client.
type Option func(*Client)

// WithForce bypasses the metadata cache on every lookup. Identical
// logical inputs still produce identical packuments, so a forced run
// yields the same resolution as a cached one.
func WithForce(force bool) Option {
	return func(c *Client) { c.force = force }
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a Client for baseURL (DefaultURL when empty).
// Credentials for the registry host are read from ~/.netrc; a missing
// netrc is not an error.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultURL
	}

	var creds *netrc.Netrc
	if home, err := os.UserHomeDir(); err == nil {
		creds, err = netrc.ParseFile(filepath.Join(home, ".netrc"))
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("parsing netrc: %w", err)
		}
	}
	if creds == nil {
		creds = &netrc.Netrc{}
	}

	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{},
		netrc:   creds,
		cache:   make(map[string]*resolve.Packument),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Packument implements resolve.Registry.
func (c *Client) Packument(ctx context.Context, name string) (*resolve.Packument, error) {
	if !c.force {
		c.mu.Lock()
		cached, ok := c.cache[name]
		c.mu.Unlock()
		if ok {
			return cached, nil
		}
	}

	pack, err := c.fetch(ctx, name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[name] = pack
	c.mu.Unlock()
	return pack, nil
}

func (c *Client) fetch(ctx context.Context, name string) (*resolve.Packument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+escapeName(name), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching packument for %s: %w", name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, zerr.With(zerr.Wrap(resolve.ErrUnresolvable, "package not found in registry"), "package", name)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("registry returned %s for %s", resp.Status, name)
	}

	var doc packumentJSON
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding packument for %s: %w", name, err)
	}

	return doc.toPackument(), nil
}

// authorize adds HTTP basic credentials from netrc when the registry
// host has an entry.
func (c *Client) authorize(req *http.Request) {
	if machine := c.netrc.FindMachine(req.URL.Hostname(), ""); machine != nil {
		req.SetBasicAuth(machine.Login, machine.Password)
	}
}

// escapeName encodes a package name for use as a URL path segment.
// Scoped names keep their leading @ but escape the inner slash.
func escapeName(name string) string {
	if strings.HasPrefix(name, "@") {
		return strings.Replace(url.PathEscape(name), "%40", "@", 1)
	}
	return url.PathEscape(name)
}

type packumentJSON struct {
	Name     string                 `json:"name"`
	Versions map[string]versionJSON `json:"versions"`
}

type versionJSON struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Dependencies         map[string]string `json:"dependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	Dist                 struct {
		Tarball   string `json:"tarball"`
		Integrity string `json:"integrity"`
	} `json:"dist"`
}

func (doc *packumentJSON) toPackument() *resolve.Packument {
	pack := &resolve.Packument{
		Name:     doc.Name,
		Versions: make(map[string]resolve.PackumentVersion, len(doc.Versions)),
	}
	for vs, v := range doc.Versions {
		pack.Versions[vs] = resolve.PackumentVersion{
			Name:                 v.Name,
			Version:              v.Version,
			Dependencies:         v.Dependencies,
			OptionalDependencies: v.OptionalDependencies,
			Tarball:              v.Dist.Tarball,
			Integrity:            v.Dist.Integrity,
		}
	}
	return pack
}
