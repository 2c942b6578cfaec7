// Package workspace indexes the package names owned by local workspace
// members. The resolver consults the index before the override table:
// workspace linkage always outranks an override rule of the same name.
package workspace

import "github.com/tether-pm/tether/internal/manifest"

// Index is the set of workspace member names, with path lookup.
// Built once per install, read-only afterwards.
type Index struct {
	members map[string]manifest.Member
}

// BuildIndex constructs the index from the expanded member list, which
// includes the root when it is named.
func BuildIndex(members []manifest.Member) Index {
	byName := make(map[string]manifest.Member, len(members))
	for _, m := range members {
		byName[m.Name] = m
	}
	return Index{members: byName}
}

// Member returns the workspace member owning name, if any.
func (i Index) Member(name string) (manifest.Member, bool) {
	m, ok := i.members[name]
	return m, ok
}

// Len returns the number of members.
func (i Index) Len() int { return len(i.members) }
