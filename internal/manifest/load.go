package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ManifestFile is the manifest file name expected in every package dir.
const ManifestFile = "package.json"

type rawManifest struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	Overrides            map[string]any    `json:"overrides"`
	Workspaces           []string          `json:"workspaces"`
}

// Load reads and parses the manifest in dir.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}

	m, err := Parse(data, abs)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes manifest bytes. dir is recorded as the directory
// relative file: specifiers resolve against; pass the package's
// directory for on-disk manifests and the root directory for
// manifests read out of tarballs.
func Parse(data []byte, dir string) (*Manifest, error) {
	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	m := &Manifest{
		Name:                 raw.Name,
		Version:              raw.Version,
		Dependencies:         raw.Dependencies,
		OptionalDependencies: raw.OptionalDependencies,
		Workspaces:           raw.Workspaces,
		Dir:                  dir,
	}

	// Null or empty override values mean "override removed"; they are
	// dropped here so downstream code never sees a no-op rule.
	// Non-string values (npm's nested override objects) are out of
	// scope and skipped the same way.
	if len(raw.Overrides) > 0 {
		m.Overrides = make(map[string]string, len(raw.Overrides))
		for name, v := range raw.Overrides {
			if s, ok := v.(string); ok && s != "" {
				m.Overrides[name] = s
			}
		}
	}

	return m, nil
}

// Members expands the root manifest's workspace globs and loads each
// member's manifest. The root itself is included as a member when it is
// named, so workspace-to-workspace edges can bind to it. Member order
// is deterministic regardless of glob expansion order.
func Members(root *Manifest) ([]Member, error) {
	var members []Member
	if root.Name != "" {
		members = append(members, Member{Name: root.Name, Dir: root.Dir, Manifest: root})
	}

	seen := map[string]bool{root.Dir: true}
	var dirs []string
	for _, pattern := range root.Workspaces {
		matches, err := filepath.Glob(filepath.Join(root.Dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("expanding workspace pattern %q: %w", pattern, err)
		}
		for _, dir := range matches {
			info, err := os.Stat(dir)
			if err != nil || !info.IsDir() {
				continue
			}
			if seen[dir] {
				continue
			}
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)

	for _, dir := range dirs {
		if _, err := os.Stat(filepath.Join(dir, ManifestFile)); os.IsNotExist(err) {
			continue
		}
		m, err := Load(dir)
		if err != nil {
			return nil, err
		}
		if m.Name == "" {
			return nil, fmt.Errorf("workspace member %s has no name", dir)
		}
		members = append(members, Member{Name: m.Name, Dir: m.Dir, Manifest: m})
	}

	return members, nil
}
