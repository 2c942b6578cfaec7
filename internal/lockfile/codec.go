package lockfile

import (
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"

	"github.com/tether-pm/tether/internal/override"
	"github.com/tether-pm/tether/internal/resolve"
)

// FromGraph builds the lockfile document for a resolved graph and the
// override table that produced it. Packages come out of the graph in
// canonical order (name, source kind, version), so two set-equal
// graphs always yield the same document regardless of walk order.
func FromGraph(graph *resolve.Graph, overrides override.Table) *Lockfile {
	pkgs := graph.Packages()
	lf := &Lockfile{
		Schema:    SchemaVersion,
		Overrides: overrides.Raw(),
		Packages:  make([]Entry, 0, len(pkgs)),
	}

	for _, p := range pkgs {
		entry := Entry{
			Name:      p.Name,
			Version:   p.Version,
			Alias:     p.Alias,
			Source:    string(p.Source.Kind),
			Resolved:  p.Source.Resolved,
			Integrity: p.Source.Integrity,
			Commit:    p.Source.Commit,
			Path:      p.Source.Path,
		}
		if len(p.Dependencies) > 0 {
			entry.Dependencies = make(map[string]string, len(p.Dependencies))
			for _, e := range p.Dependencies {
				entry.Dependencies[e.Name] = e.Spec
			}
		}
		lf.Packages = append(lf.Packages, entry)
	}

	return lf
}

// Encode renders lf to its canonical byte form. Map keys are emitted
// in sorted order by the YAML encoder, so the bytes depend only on
// document content.
func Encode(lf *Lockfile) ([]byte, error) {
	data, err := yaml.Marshal(lf)
	if err != nil {
		return nil, zerr.Wrap(err, "encoding lockfile")
	}
	return data, nil
}

// Decode parses lockfile bytes. Any parse failure or unknown schema
// reports ErrCorrupt.
func Decode(data []byte) (*Lockfile, error) {
	var lf Lockfile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, zerr.Wrap(ErrCorrupt, err.Error())
	}
	if lf.Schema != SchemaVersion {
		return nil, zerr.With(zerr.Wrap(ErrCorrupt, "unsupported schema"), "schema", lf.Schema)
	}
	return &lf, nil
}

// Load reads and decodes the lockfile in dir. A missing file returns
// (nil, nil): the caller resolves from scratch.
func Load(dir string) (*Lockfile, []byte, error) {
	data, err := os.ReadFile(filepath.Join(dir, DefaultLockfile))
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, zerr.Wrap(err, "reading lockfile")
	}
	lf, err := Decode(data)
	if err != nil {
		return nil, data, err
	}
	return lf, data, nil
}

// Write stores encoded lockfile bytes beside the root manifest.
func Write(dir string, data []byte) error {
	path := filepath.Join(dir, DefaultLockfile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return zerr.Wrap(err, "writing lockfile")
	}
	return nil
}

// Fingerprint is a cheap content digest of encoded lockfile bytes,
// used to short-circuit byte comparison and for log output.
func Fingerprint(data []byte) uint64 {
	return xxhash.Sum64(data)
}
