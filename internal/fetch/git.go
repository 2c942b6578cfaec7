package fetch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tether-pm/tether/internal/manifest"
	"github.com/tether-pm/tether/internal/resolve"
)

// GitRef implements resolve.Fetcher. The ref is pinned to a commit via
// git ls-remote, then the repository is cloned into the cache keyed by
// (url, commit) to read its manifest. A ref that is already a full
// commit hash skips the ls-remote round trip.
func (f *Fetcher) GitRef(ctx context.Context, url, ref string) (resolve.GitContent, error) {
	commit, err := f.pinRef(ctx, url, ref)
	if err != nil {
		return resolve.GitContent{}, err
	}

	dir := filepath.Join(f.CacheDir, "git", cacheKey(url+"#"+commit))
	if _, err := os.Stat(filepath.Join(dir, manifest.ManifestFile)); err != nil {
		if err := f.checkout(ctx, url, commit, dir); err != nil {
			return resolve.GitContent{}, err
		}
	}

	man, err := manifest.Load(dir)
	if err != nil {
		return resolve.GitContent{}, err
	}

	return resolve.GitContent{Commit: commit, Manifest: man}, nil
}

func (f *Fetcher) pinRef(ctx context.Context, url, ref string) (string, error) {
	if isCommitHash(ref) {
		return ref, nil
	}
	if ref == "" {
		ref = "HEAD"
	}

	cmd := exec.CommandContext(ctx, "git", "ls-remote", url, ref)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("resolving git ref %s#%s: %w", url, ref, err)
	}

	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) == 0 {
		return "", fmt.Errorf("git ref not found: %s#%s", url, ref)
	}
	return fields[0], nil
}

func (f *Fetcher) checkout(ctx context.Context, url, commit, dir string) error {
	os.RemoveAll(dir)
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return fmt.Errorf("creating git cache dir: %w", err)
	}

	clone := exec.CommandContext(ctx, "git", "clone", "--quiet", url, dir)
	if out, err := clone.CombinedOutput(); err != nil {
		return fmt.Errorf("cloning %s: %w: %s", url, err, strings.TrimSpace(string(out)))
	}

	co := exec.CommandContext(ctx, "git", "-C", dir, "checkout", "--quiet", commit)
	if out, err := co.CombinedOutput(); err != nil {
		return fmt.Errorf("checking out %s at %s: %w: %s", url, commit, err, strings.TrimSpace(string(out)))
	}

	return nil
}

func isCommitHash(ref string) bool {
	if len(ref) != 40 {
		return false
	}
	for _, r := range ref {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
