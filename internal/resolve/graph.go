package resolve

import "sort"

// SourceKind identifies where a resolved package's content comes from.
type SourceKind string

const (
	SourceRegistry  SourceKind = "registry"
	SourceTarball   SourceKind = "tarball"
	SourceGit       SourceKind = "git"
	SourceWorkspace SourceKind = "workspace"
)

// kindOrder fixes the source-kind sort used by the canonical encoding.
var kindOrder = map[SourceKind]int{
	SourceRegistry:  0,
	SourceTarball:   1,
	SourceGit:       2,
	SourceWorkspace: 3,
}

// Source is the identity and provenance of a resolved package.
type Source struct {
	Kind SourceKind

	// Resolved is the registry tarball URL, remote tarball URL, git
	// URL, or a file: marker for local directories.
	Resolved string

	// Integrity is the SRI content hash for registry, tarball, and
	// local sources.
	Integrity string

	// Commit is the pinned git commit for SourceGit.
	Commit string

	// Path is the root-relative member path for SourceWorkspace.
	Path string
}

// Identity returns the string two packages must share, together with
// their name, to be deduplicated into one node.
func (s Source) Identity() string {
	switch s.Kind {
	case SourceRegistry:
		return string(s.Kind) + "\x00" + s.Resolved
	case SourceTarball:
		return string(s.Kind) + "\x00" + s.Integrity
	case SourceGit:
		return string(s.Kind) + "\x00" + s.Resolved + "#" + s.Commit
	case SourceWorkspace:
		return string(s.Kind) + "\x00" + s.Path
	}
	return string(s.Kind)
}

// Edge is one declared dependency of a resolved package: the target
// name and the specifier text as declared. Optional edges are dropped
// from the graph when they fail to resolve instead of aborting.
type Edge struct {
	Name     string
	Spec     string
	Optional bool
}

// Package is one node in the resolved graph.
type Package struct {
	// Name is the graph-visible name dependents import. Under an
	// npm-alias override it stays the overridden name while Alias,
	// Version, and content identify the substituted package.
	Name    string
	Alias   string
	Version string
	Source  Source

	// Dependencies is the node's declared dependency edges, sorted by
	// target name.
	Dependencies []Edge
}

func (p *Package) key() string {
	return p.Name + "\x00" + p.Source.Identity()
}

// Graph is the arena of resolved packages, keyed by (name, source
// identity). Cycles in declared dependencies are broken here: an edge
// whose target already resolved reuses the existing node instead of
// re-walking its subtree.
type Graph struct {
	nodes map[string]*Package
}

func newGraph() *Graph {
	return &Graph{nodes: make(map[string]*Package)}
}

// add inserts p unless a node with the same (name, source identity)
// already exists. It returns the node that is in the graph afterwards
// and whether p was newly inserted.
func (g *Graph) add(p *Package) (*Package, bool) {
	if existing, ok := g.nodes[p.key()]; ok {
		return existing, false
	}
	g.nodes[p.key()] = p
	return p, true
}

// Len returns the number of resolved packages.
func (g *Graph) Len() int { return len(g.nodes) }

// Lookup returns the resolved nodes carrying name, sorted like
// Packages.
func (g *Graph) Lookup(name string) []*Package {
	var out []*Package
	for _, p := range g.nodes {
		if p.Name == name {
			out = append(out, p)
		}
	}
	sortPackages(out)
	return out
}

// Packages returns all nodes sorted by name, then source kind, then
// version/identity. This order depends only on graph content, never on
// the order resolution visited nodes.
func (g *Graph) Packages() []*Package {
	out := make([]*Package, 0, len(g.nodes))
	for _, p := range g.nodes {
		out = append(out, p)
	}
	sortPackages(out)
	return out
}

func sortPackages(pkgs []*Package) {
	sort.Slice(pkgs, func(i, j int) bool {
		a, b := pkgs[i], pkgs[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Source.Kind != b.Source.Kind {
			return kindOrder[a.Source.Kind] < kindOrder[b.Source.Kind]
		}
		if a.Version != b.Version {
			return a.Version < b.Version
		}
		return a.Source.Identity() < b.Source.Identity()
	})
}
