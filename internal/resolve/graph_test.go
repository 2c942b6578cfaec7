package resolve

import "testing"

func TestGraphAddDeduplicates(t *testing.T) {
	g := newGraph()

	first := &Package{Name: "bytes", Version: "3.1.2", Source: Source{Kind: SourceRegistry, Resolved: "https://r/bytes-3.1.2.tgz"}}
	duplicate := &Package{Name: "bytes", Version: "3.1.2", Source: Source{Kind: SourceRegistry, Resolved: "https://r/bytes-3.1.2.tgz"}}
	other := &Package{Name: "bytes", Version: "1.0.0", Source: Source{Kind: SourceRegistry, Resolved: "https://r/bytes-1.0.0.tgz"}}

	node, added := g.add(first)
	if !added || node != first {
		t.Fatal("first add should insert")
	}
	node, added = g.add(duplicate)
	if added {
		t.Error("same (name, identity) should not insert twice")
	}
	if node != first {
		t.Error("duplicate add should return the existing node")
	}
	if _, added := g.add(other); !added {
		t.Error("same name with a different identity is a distinct node")
	}
	if g.Len() != 2 {
		t.Errorf("Len = %d, want 2", g.Len())
	}
	if got := len(g.Lookup("bytes")); got != 2 {
		t.Errorf("Lookup(bytes) = %d nodes, want 2", got)
	}
}

func TestGraphPackagesCanonicalOrder(t *testing.T) {
	nodes := []*Package{
		{Name: "zlib", Version: "1.0.0", Source: Source{Kind: SourceRegistry, Resolved: "https://r/zlib.tgz"}},
		{Name: "app", Version: "1.0.0", Source: Source{Kind: SourceWorkspace, Path: "."}},
		{Name: "bytes", Version: "3.1.2", Source: Source{Kind: SourceRegistry, Resolved: "https://r/b312.tgz"}},
		{Name: "bytes", Version: "1.0.0", Source: Source{Kind: SourceRegistry, Resolved: "https://r/b100.tgz"}},
		{Name: "bytes", Version: "2.0.0", Source: Source{Kind: SourceGit, Resolved: "https://g/bytes.git", Commit: "abc"}},
	}

	// Insert in two different orders; the canonical listing must agree.
	forward, backward := newGraph(), newGraph()
	for i := range nodes {
		forward.add(nodes[i])
		backward.add(nodes[len(nodes)-1-i])
	}

	check := func(g *Graph) []string {
		var out []string
		for _, p := range g.Packages() {
			out = append(out, p.Name+"@"+p.Version)
		}
		return out
	}

	a, b := check(forward), check(backward)
	// Name first, then source kind (registry before git), then version.
	expected := []string{"app@1.0.0", "bytes@1.0.0", "bytes@3.1.2", "bytes@2.0.0", "zlib@1.0.0"}
	for i := range expected {
		if a[i] != expected[i] {
			t.Fatalf("Packages() = %v, want %v", a, expected)
		}
		if b[i] != expected[i] {
			t.Fatalf("reverse insertion Packages() = %v, want %v", b, expected)
		}
	}
}

func TestSourceIdentity(t *testing.T) {
	tests := []struct {
		name string
		a, b Source
		same bool
	}{
		{
			"registry keyed by resolved URL",
			Source{Kind: SourceRegistry, Resolved: "https://r/a.tgz"},
			Source{Kind: SourceRegistry, Resolved: "https://r/b.tgz"},
			false,
		},
		{
			"tarball keyed by integrity",
			Source{Kind: SourceTarball, Resolved: "https://x/a.tgz", Integrity: "sha256-A"},
			Source{Kind: SourceTarball, Resolved: "https://y/mirror.tgz", Integrity: "sha256-A"},
			true,
		},
		{
			"git keyed by url and commit",
			Source{Kind: SourceGit, Resolved: "https://g/r.git", Commit: "abc"},
			Source{Kind: SourceGit, Resolved: "https://g/r.git", Commit: "def"},
			false,
		},
		{
			"workspace keyed by path",
			Source{Kind: SourceWorkspace, Path: "packages/web"},
			Source{Kind: SourceWorkspace, Path: "packages/web"},
			true,
		},
		{
			"kinds never collide",
			Source{Kind: SourceRegistry, Resolved: "x"},
			Source{Kind: SourceGit, Resolved: "x"},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Identity() == tt.b.Identity(); got != tt.same {
				t.Errorf("Identity equality = %v, want %v (%q vs %q)",
					got, tt.same, tt.a.Identity(), tt.b.Identity())
			}
		})
	}
}

func TestBuildEdges(t *testing.T) {
	edges := buildEdges(
		map[string]string{"b": "^1.0.0", "a": "^2.0.0"},
		map[string]string{"c": "^3.0.0", "a": "ignored"},
	)

	if len(edges) != 3 {
		t.Fatalf("len = %d, want 3", len(edges))
	}
	// Sorted by name; a regular dependency wins over an optional
	// duplicate of the same name.
	if edges[0].Name != "a" || edges[0].Spec != "^2.0.0" || edges[0].Optional {
		t.Errorf("edges[0] = %+v", edges[0])
	}
	if edges[1].Name != "b" || edges[1].Optional {
		t.Errorf("edges[1] = %+v", edges[1])
	}
	if edges[2].Name != "c" || !edges[2].Optional {
		t.Errorf("edges[2] = %+v", edges[2])
	}
}
