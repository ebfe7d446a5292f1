package core

import (
	"encoding/json"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// FilterSpec maps a column name to the values a row may hold in that column.
// A column that is absent places no constraint on rows.
type FilterSpec map[string][]string

// ColumnSelection is the ordered list of columns to keep in the export.
// An empty selection keeps every column.
type ColumnSelection []string

// EmptyListPolicy decides what an empty accepted-value list means.
type EmptyListPolicy int

const (
	// EmptyListMatchesAll treats {"col": []} as no constraint on col.
	// This is the long-standing behavior clients depend on.
	EmptyListMatchesAll EmptyListPolicy = iota

	// EmptyListMatchesNone treats {"col": []} as "accept nothing".
	EmptyListMatchesNone
)

// ParseFilterSpec decodes the filters form field. An empty string or JSON
// null is an empty spec. Anything that is not an object of string arrays is
// rejected as a whole.
func ParseFilterSpec(raw string) (FilterSpec, error) {
	if strings.TrimSpace(raw) == "" {
		return FilterSpec{}, nil
	}
	var spec FilterSpec
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return nil, &InvalidSpecError{Field: "filters", Err: err}
	}
	if spec == nil {
		spec = FilterSpec{}
	}
	return spec, nil
}

// ParseColumnSelection decodes the selectedColumns form field. Repeated
// names keep their first position.
func ParseColumnSelection(raw string) (ColumnSelection, error) {
	if strings.TrimSpace(raw) == "" {
		return ColumnSelection{}, nil
	}
	var cols []string
	if err := json.Unmarshal([]byte(raw), &cols); err != nil {
		return nil, &InvalidSpecError{Field: "selectedColumns", Err: err}
	}

	sel := make(ColumnSelection, 0, len(cols))
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		sel = append(sel, c)
	}
	return sel, nil
}

// constraint is one compiled column test.
type constraint struct {
	column   string
	accepted mapset.Set[string]
}

// Predicate is a compiled FilterSpec. All constraints must hold for a
// record to match.
type Predicate struct {
	constraints []constraint
	rejectAll   bool
}

// Compile turns the FilterSpec into a Predicate. Constraints are checked in
// column-name order so evaluation is deterministic.
func (f FilterSpec) Compile(policy EmptyListPolicy) Predicate {
	cols := make([]string, 0, len(f))
	for col := range f {
		cols = append(cols, col)
	}
	slices.Sort(cols)

	var p Predicate
	for _, col := range cols {
		accepted := f[col]
		if len(accepted) == 0 {
			if policy == EmptyListMatchesNone {
				p.rejectAll = true
			}
			continue
		}
		p.constraints = append(p.constraints, constraint{
			column:   col,
			accepted: mapset.NewThreadUnsafeSet(accepted...),
		})
	}
	return p
}

// Match reports whether rec satisfies every constraint, stopping at the
// first one that fails. Row values are trimmed; accepted values are
// compared exactly.
func (p Predicate) Match(rec Record) bool {
	if p.rejectAll {
		return false
	}
	for _, c := range p.constraints {
		if !c.accepted.Contains(strings.TrimSpace(rec.Get(c.column))) {
			return false
		}
	}
	return true
}

// Project returns rec restricted to sel. Requested columns the record lacks
// are set to "". An empty selection returns rec unchanged.
func (sel ColumnSelection) Project(rec Record) Record {
	if len(sel) == 0 {
		return rec
	}
	out := Record{
		Columns: slices.Clone([]string(sel)),
		Values:  make(map[string]string, len(sel)),
	}
	for _, col := range sel {
		out.Values[col] = rec.Get(col)
	}
	return out
}
