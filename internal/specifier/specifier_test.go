package specifier

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Kind
	}{
		{"caret range", "^1.2.3", KindRange},
		{"tilde range", "~0.4.0", KindRange},
		{"exact version", "4.18.2", KindRange},
		{"wildcard", "*", KindRange},
		{"or range", ">=1.0.0 <2.0.0 || >=3.0.0", KindRange},
		{"prerelease range", "^1.0.0-beta.1", KindRange},
		{"empty is any", "", KindRange},
		{"latest is any", "latest", KindRange},
		{"npm alias", "npm:lodash@4.0.0", KindNpmAlias},
		{"scoped npm alias", "npm:@scope/pkg@^2.0.0", KindNpmAlias},
		{"file protocol", "file:./vendor/lib", KindFile},
		{"relative path", "./vendor/lib", KindFile},
		{"parent path", "../lib", KindFile},
		{"absolute path", "/opt/lib", KindFile},
		{"git https", "git+https://github.com/user/repo.git#v1.0.0", KindGit},
		{"git protocol", "git://github.com/user/repo.git", KindGit},
		{"github shorthand", "github:user/repo#main", KindGit},
		{"workspace star", "workspace:*", KindWorkspace},
		{"workspace range", "workspace:^1.0.0", KindWorkspace},
		{"tarball url", "https://example.com/pkg-1.0.0.tgz", KindTarball},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Parse(tt.text, "/tmp/project")
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.text, err)
			}
			if spec.Kind != tt.want {
				t.Errorf("Parse(%q).Kind = %q, want %q", tt.text, spec.Kind, tt.want)
			}
			if spec.Raw != tt.text {
				t.Errorf("Parse(%q).Raw = %q, want original text", tt.text, spec.Raw)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []string{
		"not a version",
		"1.2.3.4.5.6",
		"npm:",
		"npm:@4.0.0",
		"file:",
		"git+",
	}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			_, err := Parse(text, "/tmp/project")
			if err == nil {
				t.Fatalf("Parse(%q) should fail", text)
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalid", text, err)
			}
		})
	}
}

func TestParseAliasFields(t *testing.T) {
	spec, err := Parse("npm:lodash@4.0.0", "/tmp")
	if err != nil {
		t.Fatal(err)
	}
	if spec.Alias != "lodash" {
		t.Errorf("Alias = %q, want lodash", spec.Alias)
	}
	if spec.Range != "4.0.0" {
		t.Errorf("Range = %q, want 4.0.0", spec.Range)
	}

	scoped, err := Parse("npm:@scope/pkg@^2.0.0", "/tmp")
	if err != nil {
		t.Fatal(err)
	}
	if scoped.Alias != "@scope/pkg" {
		t.Errorf("Alias = %q, want @scope/pkg", scoped.Alias)
	}
	if scoped.Range != "^2.0.0" {
		t.Errorf("Range = %q, want ^2.0.0", scoped.Range)
	}

	bare, err := Parse("npm:lodash", "/tmp")
	if err != nil {
		t.Fatal(err)
	}
	if bare.Alias != "lodash" || bare.Range != "*" {
		t.Errorf("npm:lodash = (%q, %q), want (lodash, *)", bare.Alias, bare.Range)
	}
}

func TestParseGitRef(t *testing.T) {
	spec, err := Parse("git+https://github.com/user/repo.git#v2.1.0", "/tmp")
	if err != nil {
		t.Fatal(err)
	}
	if spec.URL != "https://github.com/user/repo.git" {
		t.Errorf("URL = %q", spec.URL)
	}
	if spec.Ref != "v2.1.0" {
		t.Errorf("Ref = %q, want v2.1.0", spec.Ref)
	}

	noRef, err := Parse("git+ssh://git@github.com/user/repo.git", "/tmp")
	if err != nil {
		t.Fatal(err)
	}
	if noRef.Ref != "" {
		t.Errorf("Ref = %q, want empty", noRef.Ref)
	}
}

// The context directory is captured at parse time and never re-derived:
// a normal dependency anchors at the consuming package's directory, an
// override at the root's. Dir must reflect exactly what was passed in.
func TestParseFileBaseDir(t *testing.T) {
	consumer, err := Parse("file:./lib", "/repo/packages/web")
	if err != nil {
		t.Fatal(err)
	}
	if got := consumer.Dir(); got != filepath.Clean("/repo/packages/web/lib") {
		t.Errorf("Dir() = %q", got)
	}

	rootAnchored, err := Parse("file:./lib", "/repo")
	if err != nil {
		t.Fatal(err)
	}
	if got := rootAnchored.Dir(); got != filepath.Clean("/repo/lib") {
		t.Errorf("Dir() = %q", got)
	}

	abs, err := Parse("/opt/lib", "/repo")
	if err != nil {
		t.Fatal(err)
	}
	if got := abs.Dir(); got != filepath.Clean("/opt/lib") {
		t.Errorf("Dir() = %q, base dir must not apply to absolute paths", got)
	}
}
