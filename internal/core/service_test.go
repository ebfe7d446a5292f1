package core

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"
)

type recordingAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (r *recordingAudit) LogOperation(_ context.Context, e AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return r.err
}

func (r *recordingAudit) last(t *testing.T) AuditEntry {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		t.Fatal("no audit entry recorded")
	}
	return r.entries[len(r.entries)-1]
}

func TestService_ExtractHeaders(t *testing.T) {
	audit := &recordingAudit{}
	svc := NewService(Options{}, audit)

	ctx := ContextWithFileName(ContextWithRequestID(context.Background(), "req-1"), "people.csv")
	headers, err := svc.ExtractHeaders(ctx, []byte("Name,Age\nAnn,30\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(headers, []string{"Name", "Age"}) {
		t.Errorf("headers = %v", headers)
	}

	entry := audit.last(t)
	if entry.Operation != OpExtractHeaders || entry.Outcome != OutcomeOK {
		t.Errorf("entry = %+v, want %s/%s", entry, OpExtractHeaders, OutcomeOK)
	}
	if entry.RequestID != "req-1" || entry.FileName != "people.csv" {
		t.Errorf("request metadata not recorded: %+v", entry)
	}
	if want := int64(len("Name,Age\nAnn,30\n")); entry.FileSize != want {
		t.Errorf("FileSize = %d, want %d", entry.FileSize, want)
	}
}

func TestService_CollectDistinctValues_Idempotent(t *testing.T) {
	svc := NewService(Options{}, nil)
	doc := []byte("c\na\n  \n\na \nb\n")

	first, err := svc.CollectDistinctValues(context.Background(), doc, "c")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := svc.CollectDistinctValues(context.Background(), doc, "c")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if !slices.Equal(first, []string{"a", "b"}) {
		t.Errorf("first = %v, want [a b]", first)
	}
	if !slices.Equal(first, second) {
		t.Errorf("calls disagree: %v vs %v", first, second)
	}
}

func TestService_CollectDistinctValues_AuditsColumn(t *testing.T) {
	audit := &recordingAudit{}
	svc := NewService(Options{}, audit)

	if _, err := svc.CollectDistinctValues(context.Background(), []byte("c\nx\ny\n"), "c"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry := audit.last(t)
	if entry.Operation != OpCollectValues || entry.ColumnName != "c" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.RowsScanned != 2 || entry.RowsMatched != 2 {
		t.Errorf("RowsScanned = %d, RowsMatched = %d; want 2, 2", entry.RowsScanned, entry.RowsMatched)
	}
}

func TestService_FilterAndProject(t *testing.T) {
	audit := &recordingAudit{}
	svc := NewService(Options{ExportFileName: "report.csv"}, audit)

	export, err := svc.FilterAndProject(context.Background(), []byte(invoices), `{"status":["Paid"]}`, `["customer"]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := string(export.Data); got != "customer\nAcme\n" {
		t.Errorf("Data = %q", got)
	}
	if export.FileName != "report.csv" {
		t.Errorf("FileName = %q, want report.csv", export.FileName)
	}

	entry := audit.last(t)
	if entry.Operation != OpFilterExport || entry.RowsScanned != 4 || entry.RowsMatched != 1 {
		t.Errorf("entry = %+v, want filter_export with 4 scanned and 1 matched", entry)
	}
}

func TestService_DefaultExportFileName(t *testing.T) {
	svc := NewService(Options{}, nil)
	export, err := svc.FilterAndProject(context.Background(), []byte(invoices), "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if export.FileName != "Custom_Export.csv" {
		t.Errorf("FileName = %q, want Custom_Export.csv", export.FileName)
	}
}

func TestService_ErrorsAreAuditedWithCode(t *testing.T) {
	tests := []struct {
		name     string
		call     func(*Service) error
		wantErr  error
		wantCode string
	}{
		{
			name: "missing file",
			call: func(s *Service) error {
				_, err := s.ExtractHeaders(context.Background(), nil)
				return err
			},
			wantErr:  ErrMissingFile,
			wantCode: "REQ001",
		},
		{
			name: "missing column",
			call: func(s *Service) error {
				_, err := s.CollectDistinctValues(context.Background(), []byte("a\n1\n"), "")
				return err
			},
			wantErr:  ErrMissingParameter,
			wantCode: "REQ002",
		},
		{
			name: "invalid filters",
			call: func(s *Service) error {
				_, err := s.FilterAndProject(context.Background(), []byte(invoices), "{", "")
				return err
			},
			wantErr:  ErrInvalidSpec,
			wantCode: "REQ003",
		},
		{
			name: "malformed document",
			call: func(s *Service) error {
				_, err := s.CollectDistinctValues(context.Background(), []byte("a\n\"x\n"), "a")
				return err
			},
			wantErr:  ErrParse,
			wantCode: "CSV001",
		},
		{
			name: "no match",
			call: func(s *Service) error {
				_, err := s.FilterAndProject(context.Background(), []byte(invoices), `{"id":["99"]}`, "")
				return err
			},
			wantErr:  ErrNoMatch,
			wantCode: "EXP001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audit := &recordingAudit{}
			svc := NewService(Options{}, audit)

			if err := tt.call(svc); !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if got := audit.last(t).Outcome; got != tt.wantCode {
				t.Errorf("Outcome = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestService_AuditFailureDoesNotFailOperation(t *testing.T) {
	audit := &recordingAudit{err: errors.New("connection refused")}
	svc := NewService(Options{}, audit)

	headers, err := svc.ExtractHeaders(context.Background(), []byte("a,b\n"))
	if err != nil {
		t.Fatalf("audit failure leaked to caller: %v", err)
	}
	if !slices.Equal(headers, []string{"a", "b"}) {
		t.Errorf("headers = %v", headers)
	}
}

func TestService_BusyWhenSlotsExhausted(t *testing.T) {
	svc := NewService(Options{MaxConcurrent: 1, MaxWait: 20 * time.Millisecond}, nil)
	if err := svc.limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer svc.limiter.Release()

	if _, err := svc.ExtractHeaders(context.Background(), []byte("a\n")); !errors.Is(err, ErrTooManyRequests) {
		t.Errorf("expected ErrTooManyRequests, got %v", err)
	}
	if got := svc.LimiterStatus().Active; got != 1 {
		t.Errorf("Active = %d, want 1", got)
	}
}

func TestService_ConcurrentCallsAreIndependent(t *testing.T) {
	svc := NewService(Options{MaxConcurrent: 4}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			values, err := svc.CollectDistinctValues(context.Background(), []byte(invoices), "status")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if want := []string{"Failed", "Paid", "Pending", "paid"}; !slices.Equal(values, want) {
				t.Errorf("values = %v, want %v", values, want)
			}
		}()
	}
	wg.Wait()

	if err := svc.WaitForDrain(context.Background()); err != nil {
		t.Fatalf("WaitForDrain: %v", err)
	}
	if got := svc.LimiterStatus().Active; got != 0 {
		t.Errorf("Active = %d, want 0", got)
	}
}
