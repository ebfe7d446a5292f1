package core

import (
	"context"

	"github.com/google/uuid"
)

// DefaultExportFileName is the attachment name suggested for exports.
const DefaultExportFileName = "Custom_Export.csv"

// Export is an encoded, filtered and projected copy of an uploaded document.
type Export struct {
	ID          string
	FileName    string
	ContentType string
	Data        []byte
	Columns     []string
	RowsScanned int
	RowsMatched int
}

// FilterOptions carries the knobs of the filter-project engine.
type FilterOptions struct {
	Reader          ReaderOptions
	Writer          WriterOptions
	EmptyListPolicy EmptyListPolicy
	FileName        string
}

// filterAndProject decodes the request fields, streams the document through
// the predicate, projects the survivors and encodes them. The spec fields
// are validated before a single row is read.
func filterAndProject(ctx context.Context, doc []byte, filtersJSON, columnsJSON string, opts FilterOptions) (*Export, ReaderStats, error) {
	if doc == nil {
		return nil, ReaderStats{}, ErrMissingFile
	}

	spec, err := ParseFilterSpec(filtersJSON)
	if err != nil {
		return nil, ReaderStats{}, err
	}
	sel, err := ParseColumnSelection(columnsJSON)
	if err != nil {
		return nil, ReaderStats{}, err
	}

	pred := spec.Compile(opts.EmptyListPolicy)

	var results []Record
	rr := NewRecordReader(ctx, doc, opts.Reader)
	for rr.Next() {
		rec := rr.Record()
		if !pred.Match(rec) {
			continue
		}
		results = append(results, sel.Project(rec))
	}
	stats := rr.Stats()
	if err := rr.Err(); err != nil {
		return nil, stats, err
	}

	if len(results) == 0 {
		return nil, stats, ErrNoMatch
	}

	columns := []string(sel)
	if len(columns) == 0 {
		columns = results[0].Columns
	}

	data, err := EncodeRecords(columns, results, opts.Writer)
	if err != nil {
		return nil, stats, err
	}

	name := opts.FileName
	if name == "" {
		name = DefaultExportFileName
	}

	return &Export{
		ID:          uuid.New().String(),
		FileName:    name,
		ContentType: "text/csv",
		Data:        data,
		Columns:     columns,
		RowsScanned: stats.Rows,
		RowsMatched: len(results),
	}, stats, nil
}
