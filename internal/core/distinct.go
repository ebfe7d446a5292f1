package core

import (
	"context"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// collectDistinctValues returns the sorted, de-duplicated, trimmed non-empty
// values of column across every record. A column the document does not
// have simply yields an empty slice.
func collectDistinctValues(ctx context.Context, doc []byte, column string, opts ReaderOptions) ([]string, ReaderStats, error) {
	if column == "" {
		return nil, ReaderStats{}, missingParameter("columnName")
	}
	if doc == nil {
		return nil, ReaderStats{}, ErrMissingFile
	}

	// Request scoped, so the lock-free variant is enough.
	values := mapset.NewThreadUnsafeSet[string]()

	rr := NewRecordReader(ctx, doc, opts)
	for rr.Next() {
		v := strings.TrimSpace(rr.Record().Get(column))
		if v == "" {
			continue
		}
		values.Add(v)
	}
	if err := rr.Err(); err != nil {
		return nil, rr.Stats(), err
	}

	out := values.ToSlice()
	slices.Sort(out)
	if out == nil {
		out = []string{}
	}
	return out, rr.Stats(), nil
}
