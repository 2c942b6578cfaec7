// Package resolve builds the dependency graph edge by edge, consulting
// the workspace index and the override table before falling back to
// ordinary registry resolution.
package resolve

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"

	"github.com/tether-pm/tether/internal/integrity"
	"github.com/tether-pm/tether/internal/manifest"
	"github.com/tether-pm/tether/internal/override"
	"github.com/tether-pm/tether/internal/specifier"
	"github.com/tether-pm/tether/internal/workspace"
)

// DefaultConcurrency bounds concurrent registry and content fetches.
const DefaultConcurrency = 8

// Config wires an Engine. Overrides and Index are built before any
// worker starts and are never mutated during a pass.
type Config struct {
	Root        *manifest.Manifest
	Members     []manifest.Member
	Overrides   override.Table
	Index       workspace.Index
	Registry    Registry
	Fetcher     Fetcher
	Logger      *log.Logger
	Concurrency int
}

// Engine resolves one dependency graph per call. All resolution-time
// failures abort the whole pass; no partial graphs are returned.
type Engine struct {
	cfg Config
}

// New creates an Engine from cfg.
func New(cfg Config) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	return &Engine{cfg: cfg}
}

type job struct {
	name     string
	consumer string
	spec     specifier.Specifier
	optional bool
}

type result struct {
	job
	pkg *Package

	// depsDir is the directory the resolved node's own dependency
	// specifiers parse against: the package directory for local
	// sources, the root manifest directory otherwise.
	depsDir string

	err error
}

// run holds the mutable state of one resolution pass. Everything here
// except the channels is owned by the coordinating goroutine; workers
// only move jobs to results.
type run struct {
	graph   *Graph
	visited map[string]bool
	pending int
	err     error
	cancel  context.CancelFunc
	jobs    chan job
	results chan result
}

// Resolve walks the dependency graph from the root manifest and all
// workspace members. Workers perform registry and content I/O
// concurrently; a single coordinator merges results into the graph, so
// graph content is independent of fetch completion order.
func (e *Engine) Resolve(ctx context.Context) (*Graph, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &run{
		graph:   newGraph(),
		visited: make(map[string]bool),
		cancel:  cancel,
		jobs:    make(chan job),
		results: make(chan result),
	}

	var g errgroup.Group
	for i := 0; i < e.cfg.Concurrency; i++ {
		g.Go(func() error {
			e.worker(ctx, r)
			return nil
		})
	}

	e.seed(r)

	for r.pending > 0 {
		res := <-r.results
		r.pending--
		e.handle(r, res)
	}

	close(r.jobs)
	_ = g.Wait()

	if r.err != nil {
		return nil, r.err
	}
	return r.graph, nil
}

// seed inserts every workspace member as a resolved node and walks its
// declared dependencies, plus the root's own dependencies when the
// root is unnamed and therefore not a member.
func (e *Engine) seed(r *run) {
	for _, m := range e.cfg.Members {
		rel, err := filepath.Rel(e.cfg.Root.Dir, m.Dir)
		if err != nil {
			rel = m.Dir
		}
		node := &Package{
			Name:         m.Name,
			Version:      m.Manifest.Version,
			Source:       Source{Kind: SourceWorkspace, Path: filepath.ToSlash(rel)},
			Dependencies: buildEdges(m.Manifest.Dependencies, m.Manifest.OptionalDependencies),
		}
		if _, added := r.graph.add(node); added {
			e.walk(r, node, m.Dir)
		}
	}

	if e.cfg.Root.Name == "" {
		root := &Package{
			Dependencies: buildEdges(e.cfg.Root.Dependencies, e.cfg.Root.OptionalDependencies),
		}
		e.walk(r, root, e.cfg.Root.Dir)
	}
}

func (e *Engine) walk(r *run, consumer *Package, dir string) {
	for _, edge := range consumer.Dependencies {
		e.edge(r, consumer.Name, dir, edge)
	}
}

// edge applies the per-edge algorithm: workspace guard first, then
// override rewrite, then ordinary resolution of the declared
// specifier. The same table and index stay in scope for the whole
// pass; overrides are global, not re-scoped per subtree.
func (e *Engine) edge(r *run, consumer, dir string, edge Edge) {
	if r.err != nil {
		return
	}

	// Workspace members always win: the edge binds to the seeded
	// member node unconditionally, without range compatibility
	// checking and without consulting the override table.
	if member, ok := e.cfg.Index.Member(edge.Name); ok {
		e.cfg.Logger.Debug("edge bound to workspace member",
			"package", edge.Name, "dir", member.Dir)
		return
	}

	var spec specifier.Specifier
	if rule, ok := e.cfg.Overrides.Lookup(edge.Name); ok {
		// The requested specifier is discarded wholesale; the rule's
		// specifier was parsed against the root directory at build
		// time.
		spec = rule.Spec
	} else {
		parsed, err := specifier.Parse(edge.Spec, dir)
		if err != nil {
			e.fail(r, annotate(err, edge.Name, consumer))
			return
		}
		spec = parsed
	}

	// A workspace: specifier surviving to this point names a package
	// that is not a physical member. Flagged rather than guessed.
	if spec.Kind == specifier.KindWorkspace {
		err := zerr.Wrap(ErrUnresolvable, "workspace specifier names no member")
		e.fail(r, annotate(err, edge.Name, consumer))
		return
	}

	e.enqueue(r, job{name: edge.Name, consumer: consumer, spec: spec, optional: edge.Optional})
}

func (e *Engine) enqueue(r *run, j job) {
	key := j.name + "\x00" + taskKey(j.spec)
	if r.visited[key] {
		return
	}
	r.visited[key] = true
	r.pending++

	// Decoupled send: the coordinator must never block on the jobs
	// channel while workers block sending results.
	go func() { r.jobs <- j }()
}

func (e *Engine) handle(r *run, res result) {
	if r.err != nil {
		return
	}

	if res.err != nil {
		if res.optional && !errors.Is(res.err, context.Canceled) {
			e.cfg.Logger.Debug("dropping optional dependency",
				"package", res.name, "err", res.err)
			return
		}
		e.fail(r, annotate(res.err, res.name, res.consumer))
		return
	}

	node, added := r.graph.add(res.pkg)
	if !added {
		// Same (name, source identity) already resolved; reuse the
		// node and do not re-walk its subtree.
		return
	}

	e.cfg.Logger.Debug("resolved",
		"package", node.Name, "version", node.Version, "source", node.Source.Kind)
	e.walk(r, node, res.depsDir)
}

// annotate attaches the failing package and its consumer to err. The
// error is wrapped first so sentinels deeper in the chain stay
// reachable through errors.Is.
func annotate(err error, pkg, consumer string) error {
	wrapped := zerr.Wrap(err, "resolving dependency")
	return zerr.With(zerr.With(wrapped, "package", pkg), "consumer", consumer)
}

func (e *Engine) fail(r *run, err error) {
	if r.err == nil {
		r.err = err
		r.cancel()
	}
}

func (e *Engine) worker(ctx context.Context, r *run) {
	for j := range r.jobs {
		if err := ctx.Err(); err != nil {
			r.results <- result{job: j, err: err}
			continue
		}
		pkg, depsDir, err := e.resolveJob(ctx, j)
		r.results <- result{job: j, pkg: pkg, depsDir: depsDir, err: err}
	}
}

// resolveJob performs the I/O for one edge and builds the resolved
// node. It never touches the graph.
func (e *Engine) resolveJob(ctx context.Context, j job) (*Package, string, error) {
	switch j.spec.Kind {
	case specifier.KindRange:
		return e.resolveRegistry(ctx, j.name, "", j.spec.Range)

	case specifier.KindNpmAlias:
		return e.resolveRegistry(ctx, j.name, j.spec.Alias, j.spec.Range)

	case specifier.KindFile:
		return e.resolveLocal(ctx, j)

	case specifier.KindGit:
		gc, err := e.cfg.Fetcher.GitRef(ctx, j.spec.URL, j.spec.Ref)
		if err != nil {
			return nil, "", err
		}
		return &Package{
			Name:         j.name,
			Version:      gc.Manifest.Version,
			Source:       Source{Kind: SourceGit, Resolved: j.spec.URL, Commit: gc.Commit},
			Dependencies: buildEdges(gc.Manifest.Dependencies, gc.Manifest.OptionalDependencies),
		}, e.cfg.Root.Dir, nil

	case specifier.KindTarball:
		tc, err := e.cfg.Fetcher.Tarball(ctx, j.spec.URL)
		if err != nil {
			return nil, "", err
		}
		return &Package{
			Name:         j.name,
			Version:      tc.Manifest.Version,
			Source:       Source{Kind: SourceTarball, Resolved: j.spec.URL, Integrity: tc.Integrity},
			Dependencies: buildEdges(tc.Manifest.Dependencies, tc.Manifest.OptionalDependencies),
		}, e.cfg.Root.Dir, nil
	}

	return nil, "", zerr.With(zerr.Wrap(ErrUnresolvable, "unsupported specifier kind"), "kind", string(j.spec.Kind))
}

// resolveRegistry resolves name against the registry, using alias's
// document when the edge was rewritten by an npm-alias override. The
// node keeps name as its graph identity; version and content come from
// the aliased package.
func (e *Engine) resolveRegistry(ctx context.Context, name, alias, rng string) (*Package, string, error) {
	lookup := name
	if alias != "" {
		lookup = alias
	}

	pack, err := e.cfg.Registry.Packument(ctx, lookup)
	if err != nil {
		return nil, "", err
	}

	v, err := pickVersion(pack, rng)
	if err != nil {
		return nil, "", err
	}

	sri := v.Integrity
	if sri != "" {
		// A malformed integrity string in the packument is treated as
		// absent; the hash is recomputed from the tarball content.
		if err := integrity.Validate(sri); err != nil {
			e.cfg.Logger.Debug("discarding malformed registry integrity",
				"package", lookup, "version", v.Version, "err", err)
			sri = ""
		}
	}
	if sri == "" && v.Tarball != "" {
		tc, err := e.cfg.Fetcher.Tarball(ctx, v.Tarball)
		if err != nil {
			return nil, "", err
		}
		sri = tc.Integrity
	}

	return &Package{
		Name:         name,
		Alias:        alias,
		Version:      v.Version,
		Source:       Source{Kind: SourceRegistry, Resolved: v.Tarball, Integrity: sri},
		Dependencies: buildEdges(v.Dependencies, v.OptionalDependencies),
	}, e.cfg.Root.Dir, nil
}

func (e *Engine) resolveLocal(ctx context.Context, j job) (*Package, string, error) {
	dir := j.spec.Dir()
	lc, err := e.cfg.Fetcher.Local(ctx, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", zerr.With(zerr.Wrap(ErrMissingLocalPath, "reading local package"), "path", dir)
		}
		return nil, "", err
	}

	resolved := "file:" + filepath.ToSlash(dir)
	if rel, err := filepath.Rel(e.cfg.Root.Dir, dir); err == nil && !filepath.IsAbs(rel) {
		resolved = "file:" + filepath.ToSlash(rel)
	}

	return &Package{
		Name:         j.name,
		Version:      lc.Manifest.Version,
		Source:       Source{Kind: SourceTarball, Resolved: resolved, Integrity: lc.Integrity},
		Dependencies: buildEdges(lc.Manifest.Dependencies, lc.Manifest.OptionalDependencies),
	}, dir, nil
}

// pickVersion selects the highest version satisfying rng. Pre-release
// versions only match when the constraint itself names a pre-release,
// which is the standard precedence the spec defers to.
func pickVersion(pack *Packument, rng string) (PackumentVersion, error) {
	c, err := semver.NewConstraint(rng)
	if err != nil {
		return PackumentVersion{}, zerr.Wrap(err, "invalid range")
	}

	var best *semver.Version
	for vs := range pack.Versions {
		v, err := semver.NewVersion(vs)
		if err != nil {
			continue
		}
		if !c.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
		}
	}
	if best == nil {
		return PackumentVersion{}, zerr.With(zerr.Wrap(ErrUnresolvable, "no version satisfies range"), "range", rng)
	}
	return pack.Versions[best.Original()], nil
}

// taskKey dedupes in-flight resolution work. Distinct from node
// identity: two tasks with the same key must produce the same node,
// but two different keys may still converge on one node.
func taskKey(s specifier.Specifier) string {
	switch s.Kind {
	case specifier.KindRange:
		return "range\x00" + s.Range
	case specifier.KindNpmAlias:
		return "alias\x00" + s.Alias + "\x00" + s.Range
	case specifier.KindFile:
		return "file\x00" + s.Dir()
	case specifier.KindGit:
		return "git\x00" + s.URL + "#" + s.Ref
	case specifier.KindTarball:
		return "tarball\x00" + s.URL
	}
	return string(s.Kind) + "\x00" + s.Raw
}

func buildEdges(deps, optional map[string]string) []Edge {
	edges := make([]Edge, 0, len(deps)+len(optional))
	for name, spec := range deps {
		edges = append(edges, Edge{Name: name, Spec: spec})
	}
	for name, spec := range optional {
		if _, ok := deps[name]; ok {
			continue
		}
		edges = append(edges, Edge{Name: name, Spec: spec, Optional: true})
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].Name < edges[j].Name })
	return edges
}
