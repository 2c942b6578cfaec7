package resolve

import (
	"context"

	"github.com/tether-pm/tether/internal/manifest"
)

// Registry looks up package metadata by name. Implementations are
// expected to cache; the force flag on the engine is plumbed through
// the adapter, not this interface.
type Registry interface {
	// Packument returns the full version document for name.
	Packument(ctx context.Context, name string) (*Packument, error)
}

// Packument is a registry version document. Dist-tags are not carried:
// the specifier grammar normalizes "latest" to the any-version range,
// so resolution never consults them.
type Packument struct {
	Name     string
	Versions map[string]PackumentVersion
}

// PackumentVersion is the metadata for a single published version.
type PackumentVersion struct {
	Name                 string
	Version              string
	Dependencies         map[string]string
	OptionalDependencies map[string]string
	Tarball              string
	Integrity            string
}

// TarballContent is the result of fetching a package tarball.
type TarballContent struct {
	Manifest  *manifest.Manifest
	Integrity string
}

// LocalContent is the result of reading a local package directory.
type LocalContent struct {
	Manifest  *manifest.Manifest
	Integrity string
}

// GitContent is the result of pinning a git ref.
type GitContent struct {
	Commit   string
	Manifest *manifest.Manifest
}

// Fetcher retrieves package content and identity outside the registry
// protocol. These calls are the engine's only suspension points
// besides Registry.Packument.
type Fetcher interface {
	// Tarball downloads a tarball and returns its manifest and
	// content hash.
	Tarball(ctx context.Context, url string) (TarballContent, error)

	// Local reads the package at an absolute directory path. A missing
	// path must surface an fs.ErrNotExist-compatible error so the
	// engine can report ErrMissingLocalPath.
	Local(ctx context.Context, dir string) (LocalContent, error)

	// GitRef pins ref (tag, branch, or commit; empty means the remote
	// default) to a commit and reads the package manifest at it.
	GitRef(ctx context.Context, url, ref string) (GitContent, error)
}
