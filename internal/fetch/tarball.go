package fetch

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"strings"
)

// manifestFromTarball extracts the package manifest from a gzipped
// package tarball. npm tarballs keep their files under a single top
// directory (conventionally "package/"), so the manifest is the
// package.json one level below the root, whatever that directory is
// called.
func manifestFromTarball(r io.Reader) ([]byte, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("decompressing tarball: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tarball: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		name := strings.TrimPrefix(hdr.Name, "./")
		parts := strings.Split(name, "/")
		if len(parts) == 2 && parts[1] == "package.json" {
			data, err := io.ReadAll(tr)
			if err != nil {
				return nil, fmt.Errorf("reading package.json: %w", err)
			}
			return data, nil
		}
	}

	return nil, fmt.Errorf("no package.json in tarball")
}
