// Package integrity computes and validates SRI-format content hashes.
package integrity

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FromBytes returns the sha256 SRI hash of data.
func FromBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256-" + base64.StdEncoding.EncodeToString(sum[:])
}

// FromReader returns the sha256 SRI hash of everything read from r.
func FromReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hashing content: %w", err)
	}
	return "sha256-" + base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// FromDir returns a deterministic sha256 SRI hash of a directory tree.
// Entries are visited in sorted relative-path order and framed with
// their path and size, so the hash depends only on tree content.
func FromDir(dir string) (string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(files)

	h := sha256.New()
	for _, path := range files {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return "", err
		}
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("opening %s: %w", path, err)
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return "", err
		}
		fmt.Fprintf(h, "%s\x00%d\x00", filepath.ToSlash(rel), info.Size())
		if _, err := io.Copy(h, f); err != nil {
			f.Close()
			return "", fmt.Errorf("hashing %s: %w", path, err)
		}
		f.Close()
	}

	return "sha256-" + base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// Parse splits an SRI string into its algorithm and hash bytes.
// Accepts base64 (standard SRI) and hex encodings.
func Parse(sri string) (algorithm string, hash []byte, err error) {
	parts := strings.SplitN(sri, "-", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("invalid SRI format: %s", sri)
	}

	algorithm = parts[0]
	hash, err = base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		hash, err = hex.DecodeString(parts[1])
		if err != nil {
			return "", nil, fmt.Errorf("decoding hash: %w", err)
		}
	}

	return algorithm, hash, nil
}

// Validate checks that an SRI string is well-formed and uses a
// supported algorithm with the right digest length.
func Validate(sri string) error {
	algo, hash, err := Parse(sri)
	if err != nil {
		return err
	}

	switch algo {
	case "sha256":
		if len(hash) != 32 {
			return fmt.Errorf("sha256 hash must be 32 bytes, got %d", len(hash))
		}
	case "sha512":
		if len(hash) != 64 {
			return fmt.Errorf("sha512 hash must be 64 bytes, got %d", len(hash))
		}
	default:
		return fmt.Errorf("unsupported algorithm: %s", algo)
	}

	return nil
}
