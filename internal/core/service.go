package core

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Options configures the pipeline. The zero value is usable.
type Options struct {
	Reader          ReaderOptions
	Writer          WriterOptions
	EmptyListPolicy EmptyListPolicy
	ExportFileName  string

	MaxConcurrent int
	MaxWait       time.Duration
}

// Service is the entry point for the three document operations. Each call
// takes a processing slot, runs to completion and records an audit entry.
// Calls share no mutable state apart from the limiter.
type Service struct {
	opts    Options
	limiter *Limiter
	audit   AuditRecorder
}

// NewService creates a Service. A nil recorder disables auditing.
func NewService(opts Options, audit AuditRecorder) *Service {
	if audit == nil {
		audit = NopAuditRecorder{}
	}
	if opts.ExportFileName == "" {
		opts.ExportFileName = DefaultExportFileName
	}
	return &Service{
		opts:    opts,
		limiter: NewLimiter(opts.MaxConcurrent, opts.MaxWait),
		audit:   audit,
	}
}

// ExtractHeaders returns the column names of doc's first row in order.
func (s *Service) ExtractHeaders(ctx context.Context, doc []byte) ([]string, error) {
	var headers []string
	err := s.run(ctx, OpExtractHeaders, doc, "", func() (ReaderStats, int, error) {
		h, err := extractHeaders(ctx, doc, s.opts.Reader)
		headers = h
		return ReaderStats{}, 0, err
	})
	if err != nil {
		return nil, err
	}
	return headers, nil
}

// CollectDistinctValues returns the sorted set of trimmed, non-empty values
// of column across every data row. A column absent from the header yields an
// empty list.
func (s *Service) CollectDistinctValues(ctx context.Context, doc []byte, column string) ([]string, error) {
	var values []string
	err := s.run(ctx, OpCollectValues, doc, column, func() (ReaderStats, int, error) {
		v, stats, err := collectDistinctValues(ctx, doc, column, s.opts.Reader)
		values = v
		return stats, len(v), err
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// FilterAndProject keeps the rows accepted by filtersJSON, projects them onto
// selectedColumnsJSON and encodes the result as CSV. Returns ErrNoMatch when
// no row survives.
func (s *Service) FilterAndProject(ctx context.Context, doc []byte, filtersJSON, selectedColumnsJSON string) (*Export, error) {
	var export *Export
	err := s.run(ctx, OpFilterExport, doc, "", func() (ReaderStats, int, error) {
		e, stats, err := filterAndProject(ctx, doc, filtersJSON, selectedColumnsJSON, FilterOptions{
			Reader:          s.opts.Reader,
			Writer:          s.opts.Writer,
			EmptyListPolicy: s.opts.EmptyListPolicy,
			FileName:        s.opts.ExportFileName,
		})
		export = e
		matched := 0
		if e != nil {
			matched = e.RowsMatched
		}
		return stats, matched, err
	})
	if err != nil {
		return nil, err
	}
	return export, nil
}

// LimiterStatus reports processing slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForDrain blocks until in-flight operations finish or ctx ends.
func (s *Service) WaitForDrain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// run holds a limiter slot around fn, then logs and audits the outcome.
func (s *Service) run(ctx context.Context, op Operation, doc []byte, column string, fn func() (ReaderStats, int, error)) error {
	if err := s.limiter.Acquire(ctx); err != nil {
		s.record(ctx, op, doc, column, ReaderStats{}, 0, err, 0)
		return err
	}
	defer s.limiter.Release()

	start := time.Now()
	stats, matched, err := fn()
	s.record(ctx, op, doc, column, stats, matched, err, time.Since(start))
	return err
}

func (s *Service) record(ctx context.Context, op Operation, doc []byte, column string, stats ReaderStats, matched int, opErr error, elapsed time.Duration) {
	outcome := OutcomeOK
	if opErr != nil {
		outcome = MapError(opErr).Code
	}

	logger := slog.With(
		"operation", string(op),
		"request_id", GetRequestIDFromContext(ctx),
		"file_size", len(doc),
		"rows", stats.Rows,
		"matched", matched,
		"outcome", outcome,
		"duration_ms", elapsed.Milliseconds(),
	)
	switch {
	case opErr == nil, errors.Is(opErr, ErrNoMatch):
		logger.Info("csv operation completed")
	case errors.Is(opErr, ErrParse), errors.Is(opErr, ErrInvalidSpec),
		errors.Is(opErr, ErrMissingFile), errors.Is(opErr, ErrMissingParameter):
		logger.Warn("csv operation rejected", "error", opErr)
	default:
		logger.Error("csv operation failed", "error", opErr)
	}
	if stats.RaggedRows > 0 {
		logger.Debug("rows with mismatched width", "ragged_rows", stats.RaggedRows)
	}

	entry := AuditEntry{
		Operation:   op,
		FileName:    GetFileNameFromContext(ctx),
		FileSize:    int64(len(doc)),
		ColumnName:  column,
		RowsScanned: stats.Rows,
		RowsMatched: matched,
		Outcome:     outcome,
		DurationMs:  elapsed.Milliseconds(),
		RequestID:   GetRequestIDFromContext(ctx),
		IPAddress:   GetIPAddressFromContext(ctx),
		UserAgent:   GetUserAgentFromContext(ctx),
	}
	// The request context may already be cancelled; the entry is still written.
	if err := s.audit.LogOperation(context.WithoutCancel(ctx), entry); err != nil {
		logger.Warn("audit entry not recorded", "error", err)
	}
}
