// Package lockfile provides the canonical lockfile document: encoding
// of a resolved graph plus the override table, decoding of an existing
// lockfile, and the frozen-mode validator.
package lockfile

import "go.trai.ch/zerr"

// SchemaVersion is the current lockfile schema.
const SchemaVersion = 1

// DefaultLockfile is the lockfile name, kept beside the root manifest.
const DefaultLockfile = "tether.lock.yaml"

var (
	// ErrCorrupt is returned when an on-disk lockfile fails to decode.
	// Normal mode recovers by resolving from scratch; frozen mode
	// treats it as fatal.
	ErrCorrupt = zerr.New("corrupt lockfile")

	// ErrDivergence is returned when a frozen-mode pass recomputes a
	// resolution that differs from the stored lockfile.
	ErrDivergence = zerr.New("frozen lockfile divergence")
)

// Lockfile is the serialized form of a resolution. The override
// table's content is embedded so a later pass can detect changed
// override values even when the resolved versions happen to coincide.
type Lockfile struct {
	Schema    int               `yaml:"schema"`
	Overrides map[string]string `yaml:"overrides,omitempty"`
	Packages  []Entry           `yaml:"packages"`
}

// Entry is one resolved package.
type Entry struct {
	Name         string            `yaml:"name"`
	Version      string            `yaml:"version,omitempty"`
	Alias        string            `yaml:"alias,omitempty"`
	Source       string            `yaml:"source"`
	Resolved     string            `yaml:"resolved,omitempty"`
	Integrity    string            `yaml:"integrity,omitempty"`
	Commit       string            `yaml:"commit,omitempty"`
	Path         string            `yaml:"path,omitempty"`
	Dependencies map[string]string `yaml:"dependencies,omitempty"`
}
