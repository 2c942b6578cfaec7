// Package override builds the root-scoped override table.
//
// Overrides are a root-only concept: the table is constructed once per
// install from the root manifest's override section, is never mutated
// during resolution, and is safe for unsynchronized concurrent reads.
package override

import (
	"sort"

	"github.com/tether-pm/tether/internal/manifest"
	"github.com/tether-pm/tether/internal/specifier"
)

// Rule replaces the specifier for every dependency edge targeting Name,
// at any depth in the graph.
type Rule struct {
	Name string
	Spec specifier.Specifier
}

// Table maps a target package name to its override rule. Absence of a
// name means no override.
type Table struct {
	rules map[string]Rule
}

// Build constructs the table from the root manifest. Workspace-member
// override sections are ignored by construction: callers pass the root
// manifest only. Every specifier is parsed with the root manifest's
// directory as context, so relative file: overrides are anchored at
// the root no matter which package consumes the overridden name.
func Build(root *manifest.Manifest) (Table, error) {
	rules := make(map[string]Rule, len(root.Overrides))
	for name, text := range root.Overrides {
		spec, err := specifier.Parse(text, root.Dir)
		if err != nil {
			return Table{}, err
		}
		rules[name] = Rule{Name: name, Spec: spec}
	}
	return Table{rules: rules}, nil
}

// Lookup returns the rule for name, if any.
func (t Table) Lookup(name string) (Rule, bool) {
	r, ok := t.rules[name]
	return r, ok
}

// Len returns the number of rules.
func (t Table) Len() int { return len(t.rules) }

// Raw returns the override section as name → raw specifier text,
// for embedding in the lockfile.
func (t Table) Raw() map[string]string {
	if len(t.rules) == 0 {
		return nil
	}
	raw := make(map[string]string, len(t.rules))
	for name, r := range t.rules {
		raw[name] = r.Spec.Raw
	}
	return raw
}

// Names returns the overridden names in sorted order.
func (t Table) Names() []string {
	names := make([]string, 0, len(t.rules))
	for name := range t.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
