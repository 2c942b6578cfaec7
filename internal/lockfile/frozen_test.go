package lockfile

import (
	"errors"
	"strings"
	"testing"
)

func encoded(t *testing.T, lf *Lockfile) []byte {
	t.Helper()
	data, err := Encode(lf)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestValidateFrozenMatch(t *testing.T) {
	stored := encoded(t, sampleLockfile())
	if err := ValidateFrozen(stored, sampleLockfile()); err != nil {
		t.Fatalf("identical resolution should validate, got %v", err)
	}
}

func TestValidateFrozenOverrideChanged(t *testing.T) {
	stored := encoded(t, sampleLockfile())

	fresh := sampleLockfile()
	fresh.Overrides["bytes"] = "2.0.0"

	err := ValidateFrozen(stored, fresh)
	if !errors.Is(err, ErrDivergence) {
		t.Fatalf("error = %v, want ErrDivergence", err)
	}
	// The two failure modes must stay distinguishable for callers.
	if errors.Is(err, ErrCorrupt) {
		t.Error("divergence must not also match ErrCorrupt")
	}
}

func TestValidateFrozenCorruptStored(t *testing.T) {
	err := ValidateFrozen([]byte("schema: 99\npackages: []\n"), sampleLockfile())
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("error = %v, want ErrCorrupt", err)
	}
	if errors.Is(err, ErrDivergence) {
		t.Error("corruption must not also match ErrDivergence")
	}
}

func TestValidateFrozenNonCanonicalStored(t *testing.T) {
	// Structurally identical document with extra YAML noise: decodes to
	// the same content but the bytes differ.
	fresh := &Lockfile{Schema: SchemaVersion, Packages: []Entry{{Name: "a", Version: "1.0.0", Source: "registry"}}}
	stored := "schema: 1\npackages:\n    - name: a\n      version: 1.0.0\n      source: registry\n# trailing comment\n"

	err := ValidateFrozen([]byte(stored), fresh)
	if !errors.Is(err, ErrDivergence) {
		t.Fatalf("error = %v, want ErrDivergence", err)
	}
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Lockfile)
		want   string
	}{
		{
			"override removed",
			func(lf *Lockfile) { delete(lf.Overrides, "bytes") },
			"override removed: bytes",
		},
		{
			"override added",
			func(lf *Lockfile) { lf.Overrides["express"] = "4.0.0" },
			"override added: express",
		},
		{
			"override changed",
			func(lf *Lockfile) { lf.Overrides["bytes"] = "2.0.0" },
			"override changed: bytes: 1.0.0 -> 2.0.0",
		},
		{
			"package removed",
			func(lf *Lockfile) { lf.Packages = lf.Packages[:1] },
			"package removed: bytes",
		},
		{
			"package added",
			func(lf *Lockfile) {
				lf.Packages = append(lf.Packages, Entry{Name: "zlib", Version: "1.2.0", Source: "registry"})
			},
			"package added: zlib@1.2.0",
		},
		{
			"package version changed",
			func(lf *Lockfile) {
				lf.Packages[1].Version = "3.1.2"
			},
			"package changed: bytes: 1.0.0 -> 3.1.2",
		},
		{
			"package integrity changed",
			func(lf *Lockfile) {
				lf.Packages[1].Integrity = "sha256-BBBB"
			},
			"package changed: bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := sampleLockfile()
			fresh := sampleLockfile()
			tt.mutate(fresh)

			reasons := Diff(stored, fresh)
			if len(reasons) == 0 {
				t.Fatal("Diff found no reasons")
			}
			found := false
			for _, r := range reasons {
				if strings.HasPrefix(r, tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("Diff = %v, want a reason starting %q", reasons, tt.want)
			}
		})
	}
}

func TestDiffEqual(t *testing.T) {
	if reasons := Diff(sampleLockfile(), sampleLockfile()); len(reasons) != 0 {
		t.Errorf("Diff of equal documents = %v", reasons)
	}
}

// Diff is directional: the same pair reversed flips added and removed.
func TestDiffDirection(t *testing.T) {
	stored := sampleLockfile()
	fresh := sampleLockfile()
	fresh.Packages = fresh.Packages[:1]

	forward := Diff(stored, fresh)
	if len(forward) != 1 || !strings.HasPrefix(forward[0], "package removed: bytes") {
		t.Errorf("forward = %v", forward)
	}
	backward := Diff(fresh, stored)
	if len(backward) != 1 || !strings.HasPrefix(backward[0], "package added: bytes@1.0.0") {
		t.Errorf("backward = %v", backward)
	}
}
