package lockfile

import (
	"bytes"
	"fmt"
	"sort"

	"go.trai.ch/zerr"
)

// ValidateFrozen compares the recomputed lockfile against the stored
// bytes. It performs no I/O and must be called before anything is
// written: on divergence the caller aborts without mutating the
// lockfile or any installed packages.
func ValidateFrozen(stored []byte, recomputed *Lockfile) error {
	fresh, err := Encode(recomputed)
	if err != nil {
		return err
	}

	if Fingerprint(stored) == Fingerprint(fresh) && bytes.Equal(stored, fresh) {
		return nil
	}

	existing, err := Decode(stored)
	if err != nil {
		// Corrupt under frozen mode is fatal, not recoverable.
		return err
	}

	reasons := Diff(existing, recomputed)
	if len(reasons) == 0 {
		// Structurally equal but byte-different can only mean the
		// stored file was written by something other than the
		// canonical encoder.
		reasons = []string{"stored lockfile is not in canonical form"}
	}
	return zerr.With(zerr.Wrap(ErrDivergence, "resolution differs from stored lockfile"), "reasons", reasons)
}

// Diff lists human-readable differences between two lockfiles, in the
// order: override changes, then package changes by name.
func Diff(stored, fresh *Lockfile) []string {
	var reasons []string
	reasons = append(reasons, diffOverrides(stored.Overrides, fresh.Overrides)...)
	reasons = append(reasons, diffPackages(stored.Packages, fresh.Packages)...)
	return reasons
}

func diffOverrides(stored, fresh map[string]string) []string {
	var reasons []string
	for _, name := range sortedKeys(stored) {
		if _, ok := fresh[name]; !ok {
			reasons = append(reasons, fmt.Sprintf("override removed: %s", name))
		}
	}
	for _, name := range sortedKeys(fresh) {
		old, ok := stored[name]
		switch {
		case !ok:
			reasons = append(reasons, fmt.Sprintf("override added: %s", name))
		case old != fresh[name]:
			reasons = append(reasons, fmt.Sprintf("override changed: %s: %s -> %s", name, old, fresh[name]))
		}
	}
	return reasons
}

func diffPackages(stored, fresh []Entry) []string {
	storedBy := entriesByName(stored)
	freshBy := entriesByName(fresh)

	names := make(map[string]bool, len(storedBy)+len(freshBy))
	for name := range storedBy {
		names[name] = true
	}
	for name := range freshBy {
		names[name] = true
	}

	var reasons []string
	for _, name := range sortedKeys(names) {
		s, f := storedBy[name], freshBy[name]
		switch {
		case len(f) == 0:
			reasons = append(reasons, fmt.Sprintf("package removed: %s", name))
		case len(s) == 0:
			reasons = append(reasons, fmt.Sprintf("package added: %s@%s", name, f[0].Version))
		case !entriesEqual(s, f):
			reasons = append(reasons, fmt.Sprintf("package changed: %s: %s -> %s",
				name, describe(s), describe(f)))
		}
	}
	return reasons
}

func entriesByName(entries []Entry) map[string][]Entry {
	by := make(map[string][]Entry)
	for _, e := range entries {
		by[e.Name] = append(by[e.Name], e)
	}
	return by
}

func entriesEqual(a, b []Entry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !entryEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func entryEqual(a, b Entry) bool {
	if a.Name != b.Name || a.Version != b.Version || a.Alias != b.Alias ||
		a.Source != b.Source || a.Resolved != b.Resolved ||
		a.Integrity != b.Integrity || a.Commit != b.Commit || a.Path != b.Path {
		return false
	}
	if len(a.Dependencies) != len(b.Dependencies) {
		return false
	}
	for name, spec := range a.Dependencies {
		if b.Dependencies[name] != spec {
			return false
		}
	}
	return true
}

func describe(entries []Entry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		v := e.Version
		if v == "" {
			v = e.Source
		}
		parts[i] = v
	}
	return joinParts(parts)
}

func joinParts(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "," + p
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
