// Package manifest provides the parsed package.json model the resolver
// consumes, plus loading of workspace member manifests.
package manifest

// Manifest is a parsed package.json, reduced to the fields the
// resolver needs.
type Manifest struct {
	Name    string
	Version string

	// Dependencies and OptionalDependencies map package name to the
	// raw specifier text. Optional dependencies that fail to resolve
	// are dropped rather than aborting the install.
	Dependencies         map[string]string
	OptionalDependencies map[string]string

	// Overrides is the root-level override section. Entries whose
	// value was null or empty are already omitted here, so a removed
	// override simply has no key. Only the root manifest's section is
	// ever consumed.
	Overrides map[string]string

	// Workspaces is the ordered list of member glob patterns.
	Workspaces []string

	// Dir is the directory the manifest was loaded from. Relative
	// file: specifiers in Dependencies resolve against it.
	Dir string
}

// Member is a locally-owned package participating in the install,
// linked by path rather than registry fetch.
type Member struct {
	Name     string
	Dir      string
	Manifest *Manifest
}
