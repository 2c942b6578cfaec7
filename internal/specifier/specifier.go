// Package specifier classifies textual dependency specifiers into a
// closed set of variants. Classification happens exactly once, at parse
// time; resolution switches on the kind instead of re-inspecting the
// raw text at every use site.
package specifier

import (
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.trai.ch/zerr"
)

// ErrInvalid is returned when a specifier matches no recognized grammar.
var ErrInvalid = zerr.New("invalid specifier")

// errInvalid keeps ErrInvalid in the error chain while attaching the
// offending text, so callers can match the sentinel with errors.Is.
func errInvalid(raw string) error {
	return zerr.With(zerr.Wrap(ErrInvalid, "unrecognized specifier"), "specifier", raw)
}

// Kind identifies the variant of a parsed specifier.
type Kind string

const (
	// KindRange is a plain semver range resolved against the registry.
	KindRange Kind = "range"
	// KindNpmAlias substitutes another registry package's content while
	// keeping the dependency's graph-visible name (npm:<name>@<range>).
	KindNpmAlias Kind = "npm-alias"
	// KindFile is a local path (file:..., ./..., ../..., /...).
	KindFile Kind = "file"
	// KindGit is a git URL with an optional #ref fragment.
	KindGit Kind = "git"
	// KindWorkspace is the workspace: protocol.
	KindWorkspace Kind = "workspace"
	// KindTarball is a remote tarball URL.
	KindTarball Kind = "tarball"
)

// Specifier is an immutable parsed dependency specifier.
type Specifier struct {
	Kind Kind

	// Range holds the constraint text for KindRange, the aliased range
	// for KindNpmAlias, and the protocol remainder for KindWorkspace.
	Range string

	// Alias is the substituted registry package name for KindNpmAlias.
	Alias string

	// Path is the (possibly relative) target for KindFile. BaseDir is
	// the directory Path resolves against and is fixed at parse time:
	// the consuming package's directory for a normal dependency, the
	// root manifest's directory for an override entry. Resolution never
	// re-derives it.
	Path    string
	BaseDir string

	// URL and Ref describe KindGit and KindTarball targets.
	URL string
	Ref string

	// Raw is the original manifest text, kept for lockfile embedding
	// and diagnostics.
	Raw string
}

// Parse classifies text into a Specifier. contextDir is the directory
// relative file paths resolve against. Callers parsing override-table
// entries MUST pass the root manifest's directory, regardless of which
// package declares the dependency being overridden.
func Parse(text, contextDir string) (Specifier, error) {
	raw := text
	text = strings.TrimSpace(text)

	switch {
	case text == "" || text == "latest":
		return Specifier{Kind: KindRange, Range: "*", Raw: raw}, nil

	case strings.HasPrefix(text, "workspace:"):
		return Specifier{
			Kind:  KindWorkspace,
			Range: strings.TrimPrefix(text, "workspace:"),
			Raw:   raw,
		}, nil

	case strings.HasPrefix(text, "npm:"):
		return parseAlias(text, raw)

	case strings.HasPrefix(text, "file:"):
		return parsePath(strings.TrimPrefix(text, "file:"), contextDir, raw)

	case strings.HasPrefix(text, "./"), strings.HasPrefix(text, "../"), filepath.IsAbs(text):
		return parsePath(text, contextDir, raw)

	case strings.HasPrefix(text, "git+"), strings.HasPrefix(text, "git://"):
		return parseGit(strings.TrimPrefix(text, "git+"), raw)

	case strings.HasPrefix(text, "github:"):
		return parseGitHub(strings.TrimPrefix(text, "github:"), raw)

	case strings.HasPrefix(text, "http://"), strings.HasPrefix(text, "https://"):
		return Specifier{Kind: KindTarball, URL: text, Raw: raw}, nil
	}

	if _, err := semver.NewConstraint(text); err != nil {
		return Specifier{}, errInvalid(raw)
	}
	return Specifier{Kind: KindRange, Range: text, Raw: raw}, nil
}

// parseAlias handles npm:<name>@<range>. The name may be scoped
// (npm:@scope/name@^1.0.0), so the version separator is the last @
// past the first character.
func parseAlias(text, raw string) (Specifier, error) {
	body := strings.TrimPrefix(text, "npm:")
	if body == "" {
		return Specifier{}, errInvalid(raw)
	}

	name, rng := body, "*"
	if idx := strings.LastIndex(body[1:], "@"); idx >= 0 {
		name, rng = body[:idx+1], body[idx+2:]
	}
	if name == "" || rng == "" {
		return Specifier{}, errInvalid(raw)
	}
	if strings.HasPrefix(name, "@") && !strings.Contains(name, "/") {
		return Specifier{}, errInvalid(raw)
	}
	if _, err := semver.NewConstraint(rng); err != nil {
		return Specifier{}, errInvalid(raw)
	}

	return Specifier{Kind: KindNpmAlias, Alias: name, Range: rng, Raw: raw}, nil
}

func parsePath(p, contextDir, raw string) (Specifier, error) {
	if p == "" {
		return Specifier{}, errInvalid(raw)
	}
	return Specifier{Kind: KindFile, Path: p, BaseDir: contextDir, Raw: raw}, nil
}

// parseGitHub expands the github:<owner>/<repo>[#ref] shorthand. The
// ref is split off before the .git suffix is appended.
func parseGitHub(body, raw string) (Specifier, error) {
	ref := ""
	if idx := strings.Index(body, "#"); idx >= 0 {
		body, ref = body[:idx], body[idx+1:]
	}
	if body == "" {
		return Specifier{}, errInvalid(raw)
	}
	return Specifier{
		Kind: KindGit,
		URL:  "https://github.com/" + body + ".git",
		Ref:  ref,
		Raw:  raw,
	}, nil
}

func parseGit(u, raw string) (Specifier, error) {
	ref := ""
	if idx := strings.Index(u, "#"); idx >= 0 {
		u, ref = u[:idx], u[idx+1:]
	}
	if u == "" {
		return Specifier{}, errInvalid(raw)
	}
	return Specifier{Kind: KindGit, URL: u, Ref: ref, Raw: raw}, nil
}

// Dir returns the absolute directory a KindFile specifier points at.
func (s Specifier) Dir() string {
	if filepath.IsAbs(s.Path) {
		return filepath.Clean(s.Path)
	}
	return filepath.Join(s.BaseDir, s.Path)
}

// Constraint parses the semver range carried by a KindRange or
// KindNpmAlias specifier. Parse already validated the text, so an
// error here indicates a specifier constructed by hand.
func (s Specifier) Constraint() (*semver.Constraints, error) {
	return semver.NewConstraint(s.Range)
}
