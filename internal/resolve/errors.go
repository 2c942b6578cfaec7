package resolve

import "go.trai.ch/zerr"

var (
	// ErrUnresolvable is returned when no registry version or local
	// source satisfies a specifier, after any override rewrite.
	ErrUnresolvable = zerr.New("unresolvable specifier")

	// ErrMissingLocalPath is returned when a file: specifier points at
	// a path that does not exist.
	ErrMissingLocalPath = zerr.New("missing local path")
)
