package schema

import (
	"fmt"

	"github.com/gobwas/glob"
)

// Filter selects tables by glob patterns. Patterns are matched against both
// the bare table name and the qualified "schema.table" name, so "audit_*"
// and "public.audit_*" both work. Exclusions win over inclusions.
//
// A nil *Filter matches every table.
type Filter struct {
	include []glob.Glob
	exclude []glob.Glob
}

// NewFilter compiles include and exclude patterns. An empty include list
// means "everything".
func NewFilter(include, exclude []string) (*Filter, error) {
	f := &Filter{}
	for _, p := range include {
		g, err := glob.Compile(p, '.')
		if err != nil {
			return nil, fmt.Errorf("compile include pattern %q: %w", p, err)
		}
		f.include = append(f.include, g)
	}
	for _, p := range exclude {
		g, err := glob.Compile(p, '.')
		if err != nil {
			return nil, fmt.Errorf("compile exclude pattern %q: %w", p, err)
		}
		f.exclude = append(f.exclude, g)
	}
	return f, nil
}

// Match reports whether the table passes the filter.
func (f *Filter) Match(schema, table string) bool {
	if f == nil {
		return true
	}
	qualified := QualifiedName(schema, table)
	for _, g := range f.exclude {
		if g.Match(table) || g.Match(qualified) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, g := range f.include {
		if g.Match(table) || g.Match(qualified) {
			return true
		}
	}
	return false
}
