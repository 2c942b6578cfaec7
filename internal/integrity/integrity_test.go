package integrity

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFromBytes(t *testing.T) {
	// sha256 of the empty input is a fixed vector.
	const empty = "sha256-47DEQpj8HBSa+/TImW+5JCeuQeRkm5NMpJWZG3hSuFU="
	if got := FromBytes(nil); got != empty {
		t.Errorf("FromBytes(nil) = %s", got)
	}

	got := FromBytes([]byte("hello"))
	if !strings.HasPrefix(got, "sha256-") {
		t.Errorf("FromBytes = %s, want sha256- prefix", got)
	}
	if got == empty {
		t.Error("non-empty input hashed to the empty digest")
	}
	if again := FromBytes([]byte("hello")); again != got {
		t.Error("FromBytes not deterministic")
	}
}

func TestFromReader(t *testing.T) {
	fromReader, err := FromReader(strings.NewReader("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if fromReader != FromBytes([]byte("hello")) {
		t.Error("FromReader and FromBytes disagree")
	}
}

func TestFromDirDeterministic(t *testing.T) {
	build := func(t *testing.T) string {
		dir := t.TempDir()
		if err := os.MkdirAll(filepath.Join(dir, "lib"), 0o755); err != nil {
			t.Fatal(err)
		}
		for path, content := range map[string]string{
			"package.json": `{"name":"lib","version":"1.0.0"}`,
			"lib/index.js": "module.exports = 1;\n",
		} {
			if err := os.WriteFile(filepath.Join(dir, path), []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
		}
		return dir
	}

	a, err := FromDir(build(t))
	if err != nil {
		t.Fatal(err)
	}
	b, err := FromDir(build(t))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("same tree content hashed differently: %s vs %s", a, b)
	}

	changed := build(t)
	if err := os.WriteFile(filepath.Join(changed, "lib", "index.js"), []byte("module.exports = 2;\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := FromDir(changed)
	if err != nil {
		t.Fatal(err)
	}
	if c == a {
		t.Error("changed tree content hashed identically")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		sri     string
		wantErr bool
	}{
		{"valid sha256", FromBytes([]byte("x")), false},
		{"valid sha512", "sha512-" + strings.Repeat("A", 86) + "==", false},
		{"wrong sha256 length", "sha256-AAAA", true},
		{"unsupported algorithm", "md5-AAAA", true},
		{"no separator", "sha256", true},
		{"undecodable hash", "sha256-!!!not-base64-or-hex!!!", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.sri)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.sri, err, tt.wantErr)
			}
		})
	}
}

func TestParseHexFallback(t *testing.T) {
	// 62 hex chars is not a valid base64 length, so Parse must fall
	// back to hex decoding.
	algo, hash, err := Parse("sha256-" + strings.Repeat("ab", 31))
	if err != nil {
		t.Fatal(err)
	}
	if algo != "sha256" || len(hash) != 31 {
		t.Errorf("Parse hex = (%s, %d bytes)", algo, len(hash))
	}
}
