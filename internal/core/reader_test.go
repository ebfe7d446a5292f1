package core

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
)

func readAll(t *testing.T, doc string, opts ReaderOptions) ([]string, []Record, error) {
	t.Helper()
	rr := NewRecordReader(context.Background(), []byte(doc), opts)
	headers, err := rr.Headers()
	if err != nil {
		return nil, nil, err
	}
	var records []Record
	for rr.Next() {
		records = append(records, rr.Record())
	}
	return headers, records, rr.Err()
}

func TestRecordReader_HeadersAndRecords(t *testing.T) {
	headers, records, err := readAll(t, "Name,Age\nAnn,30\nBob,25\n", ReaderOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !slices.Equal(headers, []string{"Name", "Age"}) {
		t.Errorf("headers = %v", headers)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if !slices.Equal(records[0].Columns, []string{"Name", "Age"}) {
		t.Errorf("Columns = %v", records[0].Columns)
	}
	if got := records[0].Get("Name"); got != "Ann" {
		t.Errorf("Name = %q, want Ann", got)
	}
	if got := records[1].Get("Age"); got != "25" {
		t.Errorf("Age = %q, want 25", got)
	}
}

func TestRecordReader_QuotedFields(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		opts ReaderOptions
		want string
	}{
		{name: "embedded delimiter", doc: "id,note\n1,\"a, b\"\n", want: "a, b"},
		{name: "doubled quotes", doc: "id,note\n1,\"say \"\"hi\"\"\"\n", want: `say "hi"`},
		{name: "embedded LF", doc: "id,note\n1,\"line1\nline2\"\n", want: "line1\nline2"},
		{name: "embedded CRLF", doc: "id,note\r\n1,\"line1\r\nline2\"\r\n", want: "line1\r\nline2"},
		{name: "embedded lone CR", doc: "id,note\n1,\"line1\rline2\"\n", want: "line1\rline2"},
		{name: "CRLF folded under lazy quotes", doc: "id,note\r\n1,\"line1\r\nline2\"\r\n", opts: ReaderOptions{LazyQuotes: true}, want: "line1\nline2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, records, err := readAll(t, tt.doc, tt.opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(records) != 1 {
				t.Fatalf("got %d records, want 1", len(records))
			}
			if got := records[0].Get("note"); got != tt.want {
				t.Errorf("note = %q, want %q", got, tt.want)
			}
			if got := records[0].Get("id"); got != "1" {
				t.Errorf("id = %q, want 1", got)
			}
		})
	}
}

func TestRecordReader_QuotedCRInHeader(t *testing.T) {
	headers, _, err := readAll(t, "\"two\r\nlines\",b\n1,2\n", ReaderOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(headers, []string{"two\r\nlines", "b"}) {
		t.Errorf("headers = %q", headers)
	}
}

func TestRecordReader_RaggedRows(t *testing.T) {
	rr := NewRecordReader(context.Background(), []byte("a,b,c\n1,2\n1,2,3,4\n"), ReaderOptions{})

	if !rr.Next() {
		t.Fatalf("Next() = false, err = %v", rr.Err())
	}
	short := rr.Record()
	if !slices.Equal(short.Columns, []string{"a", "b"}) {
		t.Errorf("short Columns = %v", short.Columns)
	}
	if short.Has("c") || short.Get("c") != "" {
		t.Error("short row should not carry c")
	}

	if !rr.Next() {
		t.Fatalf("Next() = false, err = %v", rr.Err())
	}
	if long := rr.Record(); !slices.Equal(long.Columns, []string{"a", "b", "c"}) {
		t.Errorf("cells past the header should be dropped, Columns = %v", long.Columns)
	}

	if rr.Next() {
		t.Fatal("expected end of document")
	}
	if err := rr.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := rr.Stats()
	if stats.Rows != 2 || stats.RaggedRows != 2 {
		t.Errorf("stats = %+v, want Rows=2 RaggedRows=2", stats)
	}
	if stats.BytesRead <= 0 {
		t.Errorf("BytesRead = %d, want > 0", stats.BytesRead)
	}
}

func TestRecordReader_DuplicateHeaders(t *testing.T) {
	headers, records, err := readAll(t, "k,v,k\n1,2,3\n", ReaderOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !slices.Equal(headers, []string{"k", "v"}) {
		t.Errorf("headers = %v", headers)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if !slices.Equal(records[0].Columns, []string{"k", "v"}) {
		t.Errorf("Columns = %v", records[0].Columns)
	}
	if got := records[0].Get("k"); got != "3" {
		t.Errorf("k = %q, want last value 3", got)
	}
}

func TestRecordReader_EmptyAndHeaderOnly(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		wantHeaders []string
	}{
		{name: "empty", doc: "", wantHeaders: nil},
		{name: "header only", doc: "a,b\n", wantHeaders: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers, records, err := readAll(t, tt.doc, ReaderOptions{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(headers, tt.wantHeaders) {
				t.Errorf("headers = %v, want %v", headers, tt.wantHeaders)
			}
			if len(records) != 0 {
				t.Errorf("got %d records, want 0", len(records))
			}
		})
	}
}

func TestRecordReader_UnterminatedQuote(t *testing.T) {
	rr := NewRecordReader(context.Background(), []byte("a,b\n1,2\n3,\"open\n"), ReaderOptions{})

	if !rr.Next() {
		t.Fatalf("first Next() = false, err = %v", rr.Err())
	}
	first := rr.Record()
	if rr.Next() {
		t.Fatal("second Next() should fail")
	}

	err := rr.Err()
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Line <= 0 {
		t.Errorf("Line = %d, want > 0", pe.Line)
	}

	if got := first.Get("a"); got != "1" {
		t.Errorf("records yielded before the error should stay valid, a = %q", got)
	}
}

func TestRecordReader_LazyQuotes(t *testing.T) {
	doc := "a,b\n1,x\"y\n"

	if _, _, err := readAll(t, doc, ReaderOptions{}); !errors.Is(err, ErrParse) {
		t.Errorf("strict mode: expected ErrParse, got %v", err)
	}

	_, records, err := readAll(t, doc, ReaderOptions{LazyQuotes: true})
	if err != nil {
		t.Fatalf("lazy mode: unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Get("b") != `x"y` {
		t.Errorf("lazy mode records = %+v", records)
	}
}

func TestRecordReader_BOMAndCRLF(t *testing.T) {
	headers, records, err := readAll(t, "\uFEFFName,City\r\nAnn,Oslo\r\n", ReaderOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !slices.Equal(headers, []string{"Name", "City"}) {
		t.Errorf("headers = %q", headers)
	}
	if len(records) != 1 || records[0].Get("City") != "Oslo" {
		t.Errorf("records = %+v", records)
	}
}

func TestRecordReader_ContextCancelled(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("n\n")
	for i := 0; i < ContextCheckInterval*3; i++ {
		sb.WriteString("x\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	rr := NewRecordReader(ctx, []byte(sb.String()), ReaderOptions{})
	if !rr.Next() {
		t.Fatalf("first Next() = false, err = %v", rr.Err())
	}
	cancel()

	for rr.Next() {
	}
	if !errors.Is(rr.Err(), context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", rr.Err())
	}
	if rows := rr.Stats().Rows; rows >= ContextCheckInterval*3 {
		t.Errorf("read %d rows after cancel", rows)
	}
}

func TestNewRecord(t *testing.T) {
	rec := NewRecord([]string{"a", "b", "a"}, []string{"1", "2"})

	if !slices.Equal(rec.Columns, []string{"a", "b"}) {
		t.Errorf("Columns = %v", rec.Columns)
	}
	if got := rec.Get("a"); got != "" {
		t.Errorf("missing value should be stored as empty, got %q", got)
	}
	if !rec.Has("a") || rec.Has("z") {
		t.Error("Has reports the wrong key set")
	}
}
