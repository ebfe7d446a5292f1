package core

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
)

// ContextCheckInterval is how often (in rows) the reader checks for
// context cancellation.
var ContextCheckInterval = 100

// Record is one decoded data row.
//
// Columns lists the keys present in this row in header order. Values holds
// the raw cell text. A column that the row does not carry is read as "".
type Record struct {
	Columns []string
	Values  map[string]string
}

// Get returns the cell for col, or "" if the row has no such column.
func (r Record) Get(col string) string {
	return r.Values[col]
}

// Has reports whether the row carries col.
func (r Record) Has(col string) bool {
	_, ok := r.Values[col]
	return ok
}

// NewRecord builds a Record from parallel column and value slices.
// Missing values are stored as "".
func NewRecord(columns []string, values []string) Record {
	rec := Record{
		Columns: make([]string, 0, len(columns)),
		Values:  make(map[string]string, len(columns)),
	}
	for i, col := range columns {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		if _, dup := rec.Values[col]; !dup {
			rec.Columns = append(rec.Columns, col)
		}
		rec.Values[col] = v
	}
	return rec
}

// ReaderOptions controls how the document is decoded.
type ReaderOptions struct {
	// LazyQuotes accepts bare and unterminated quotes instead of failing.
	// Quoted "\r\n" is then read as "\n" because quote boundaries are no
	// longer reliable.
	LazyQuotes bool
}

// ReaderStats summarises what the reader consumed.
type ReaderStats struct {
	Rows       int   // data rows yielded
	RaggedRows int   // rows whose width differed from the header
	BytesRead  int64 // bytes handed to the decoder
}

// RecordReader decodes a document into a header row followed by a lazy,
// single-pass sequence of records.
//
// Usage:
//
//	rr := NewRecordReader(ctx, doc, ReaderOptions{})
//	for rr.Next() {
//	    rec := rr.Record()
//	}
//	if err := rr.Err(); err != nil { ... }
type RecordReader struct {
	ctx  context.Context
	src  *countingReader
	csv  *csv.Reader
	opts ReaderOptions

	headers    []string // deduplicated, source order
	rawHeaders []string // as read, used for positional lookup
	headerRead bool

	current Record
	stats   ReaderStats
	err     error
	done    bool
}

// NewRecordReader creates a reader over doc. Nothing is decoded until
// Headers or Next is called.
func NewRecordReader(ctx context.Context, doc []byte, opts ReaderOptions) *RecordReader {
	src := newDocumentReader(doc, !opts.LazyQuotes)

	r := csv.NewReader(src)
	r.FieldsPerRecord = -1 // ragged rows are tolerated
	r.LazyQuotes = opts.LazyQuotes
	r.ReuseRecord = true

	return &RecordReader{
		ctx:  ctx,
		src:  src,
		csv:  r,
		opts: opts,
	}
}

// Headers reads the header row if it has not been read yet and returns it.
// An empty document yields nil headers and no error.
func (rr *RecordReader) Headers() ([]string, error) {
	if rr.headerRead {
		return rr.headers, rr.err
	}
	rr.headerRead = true

	row, err := rr.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			rr.done = true
			return nil, nil
		}
		rr.fail(err)
		return nil, rr.err
	}

	rr.rawHeaders = append([]string(nil), row...)
	restoreQuotedCR(rr.rawHeaders)
	seen := make(map[string]struct{}, len(row))
	for _, h := range rr.rawHeaders {
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		rr.headers = append(rr.headers, h)
	}
	return rr.headers, nil
}

// Next advances to the next record. It returns false at the end of the
// document or on the first error; check Err afterwards.
func (rr *RecordReader) Next() bool {
	if !rr.headerRead {
		if _, err := rr.Headers(); err != nil {
			return false
		}
	}
	if rr.done || rr.err != nil {
		return false
	}

	if rr.stats.Rows%ContextCheckInterval == 0 && rr.ctx != nil {
		if err := rr.ctx.Err(); err != nil {
			rr.err = err
			return false
		}
	}

	row, err := rr.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			rr.done = true
			return false
		}
		rr.fail(err)
		return false
	}

	restoreQuotedCR(row)

	rr.stats.Rows++
	if len(row) != len(rr.rawHeaders) {
		rr.stats.RaggedRows++
	}

	// Cells past the header width have no name and are dropped.
	width := len(row)
	if width > len(rr.rawHeaders) {
		width = len(rr.rawHeaders)
	}
	rr.current = NewRecord(rr.rawHeaders[:width], row[:width])
	return true
}

// Record returns the record produced by the last successful Next.
func (rr *RecordReader) Record() Record {
	return rr.current
}

// Err returns the terminal error, if any. It is a *ParseError for malformed
// input or the context error when the caller cancelled.
func (rr *RecordReader) Err() error {
	return rr.err
}

// Stats returns counters for the rows consumed so far.
func (rr *RecordReader) Stats() ReaderStats {
	s := rr.stats
	s.BytesRead = rr.src.n
	return s
}

func (rr *RecordReader) fail(err error) {
	pe := &ParseError{Err: err}
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		pe.Line = csvErr.Line
		pe.Column = csvErr.Column
		pe.Err = csvErr.Err
	}
	rr.err = pe
	rr.done = true
}
