package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/csvgenius/internal/core"
	"github.com/JonMunkholm/csvgenius/internal/logging"
	"github.com/JonMunkholm/csvgenius/internal/web/templates"
)

type headersResponse struct {
	Headers []string `json:"headers"`
}

type valuesResponse struct {
	Values []string `json:"values"`
}

type healthResponse struct {
	Status  string             `json:"status"`
	Limiter core.LimiterStatus `json:"limiter"`
	Audit   bool               `json:"audit"`
}

type operationsResponse struct {
	Operations []core.AuditEntry `json:"operations"`
}

// readUpload parses the multipart form and returns the "file" part in memory
// along with a context carrying audit metadata. A request without a file
// yields a nil document so the pipeline can report which input is missing.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, context.Context, error) {
	ctx := WithRequestMetadata(r.Context(), r)

	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, ctx, fmt.Errorf("%w: limit is %d bytes", errFileTooLarge, tooLarge.Limit)
		case strings.Contains(err.Error(), "request body too large"):
			return nil, ctx, fmt.Errorf("%w: %v", errFileTooLarge, err)
		case errors.Is(err, http.ErrNotMultipart):
			return nil, ctx, nil
		default:
			return nil, ctx, fmt.Errorf("%w: %v", core.ErrMissingFile, err)
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, ctx, nil
		}
		return nil, ctx, fmt.Errorf("%w: %v", core.ErrMissingFile, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, ctx, fmt.Errorf("read upload: %w", err)
	}
	if data == nil {
		data = []byte{}
	}

	return data, core.ContextWithFileName(ctx, header.Filename), nil
}

// handleGetHeaders returns the header row of the uploaded file.
func (s *Server) handleGetHeaders(w http.ResponseWriter, r *http.Request) {
	doc, ctx, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	headers, err := s.service.ExtractHeaders(ctx, doc)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, headersResponse{Headers: headers})
}

// handleGetColumnValues returns the distinct values of columnName.
func (s *Server) handleGetColumnValues(w http.ResponseWriter, r *http.Request) {
	doc, ctx, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	values, err := s.service.CollectDistinctValues(ctx, doc, r.FormValue("columnName"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, valuesResponse{Values: values})
}

// handleFilterCSV filters and projects the uploaded file and returns the
// result as a CSV attachment.
func (s *Server) handleFilterCSV(w http.ResponseWriter, r *http.Request) {
	doc, ctx, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	export, err := s.service.FilterAndProject(ctx, doc, r.FormValue("filters"), r.FormValue("selectedColumns"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.WithFields(ctx,
		"export_id", export.ID,
		"rows", export.RowsMatched,
		"bytes", len(export.Data),
	).Debug("export ready")

	w.Header().Set("Content-Type", export.ContentType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName))
	w.Header().Set("X-Export-ID", export.ID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(export.Data); err != nil {
		logging.FromContext(ctx).Warn("export write failed", "error", err)
	}
}

// maxOperationsLimit caps the limit query parameter of /operations.
const maxOperationsLimit = 500

// handleListOperations returns the most recent audit entries.
func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	if s.oplog == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, ErrorResponse{
			Error:   "operation log is not enabled",
			Message: "operation log is not enabled",
			Action:  "Set DATABASE_URL to record operations",
			Code:    "ERR000",
		})
		return
	}

	limit := core.DefaultAuditLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = min(n, maxOperationsLimit)
		}
	}

	entries, err := s.oplog.ListRecent(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, operationsResponse{Operations: entries})
}

// handleHealth reports liveness and processing slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthResponse{
		Status:  "ok",
		Limiter: s.service.LimiterStatus(),
		Audit:   s.oplog != nil,
	})
}

// handleLanding renders the "API is live" page.
func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Landing(templates.LandingParams{
		Title:   "CSV Genius API",
		Message: "CSV Genius API is live",
		Routes:  []string{"POST /get-headers", "POST /get-column-values", "POST /filter-csv"},
	}).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render landing page", "error", err)
	}
}
