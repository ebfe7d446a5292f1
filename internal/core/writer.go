package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
)

// WriterOptions controls export encoding.
type WriterOptions struct {
	// UseCRLF terminates rows with \r\n instead of \n.
	UseCRLF bool
}

// EncodeRecords writes a header row followed by one row per record, using
// the same quoting rules the reader accepts. On failure no bytes are
// returned.
func EncodeRecords(columns []string, records []Record, opts WriterOptions) ([]byte, error) {
	if len(columns) == 0 {
		return nil, &EncodeError{Err: errors.New("no columns to write")}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = opts.UseCRLF

	eol := "\n"
	if opts.UseCRLF {
		eol = "\r\n"
	}

	if err := writeRow(w, &buf, columns, eol); err != nil {
		return nil, &EncodeError{Err: fmt.Errorf("header: %w", err)}
	}

	row := make([]string, len(columns))
	for i, rec := range records {
		for j, col := range columns {
			row[j] = rec.Get(col)
		}
		if err := writeRow(w, &buf, row, eol); err != nil {
			return nil, &EncodeError{Err: fmt.Errorf("row %d: %w", i+1, err)}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, &EncodeError{Err: err}
	}
	return buf.Bytes(), nil
}

// writeRow writes one row. csv.Writer emits a lone empty field as a blank
// line, which readers skip, so that case is written as "" by hand.
func writeRow(w *csv.Writer, buf *bytes.Buffer, row []string, eol string) error {
	if len(row) == 1 && row[0] == "" {
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
		buf.WriteString(`""` + eol)
		return nil
	}
	return w.Write(row)
}
