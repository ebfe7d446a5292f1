package core

// audit.go records one metadata row per pipeline call.
//
// Entries describe the call (operation, sizes, row counts, outcome code and
// request metadata). Cell values and headers never leave the request, so a
// column name is the only document-derived text stored. When no database is
// configured the service uses NopAuditRecorder.

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Operation names a pipeline entry point.
type Operation string

const (
	OpExtractHeaders Operation = "extract_headers"
	OpCollectValues  Operation = "collect_values"
	OpFilterExport   Operation = "filter_export"
)

// OutcomeOK is stored for calls that returned without error.
const OutcomeOK = "OK"

// DefaultAuditLimit caps ListRecent when no limit is given.
const DefaultAuditLimit = 50

// AuditEntry is one row of csv_operation_log.
type AuditEntry struct {
	ID          string    `json:"id"`
	Operation   Operation `json:"operation"`
	FileName    string    `json:"fileName,omitempty"`
	FileSize    int64     `json:"fileSize"`
	ColumnName  string    `json:"columnName,omitempty"`
	RowsScanned int       `json:"rowsScanned"`
	RowsMatched int       `json:"rowsMatched"`
	Outcome     string    `json:"outcome"`
	DurationMs  int64     `json:"durationMs"`
	RequestID   string    `json:"requestId,omitempty"`
	IPAddress   string    `json:"ipAddress,omitempty"`
	UserAgent   string    `json:"userAgent,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AuditRecorder persists operation metadata.
type AuditRecorder interface {
	LogOperation(ctx context.Context, entry AuditEntry) error
}

// NopAuditRecorder discards every entry.
type NopAuditRecorder struct{}

func (NopAuditRecorder) LogOperation(context.Context, AuditEntry) error { return nil }

// AuditStore is the Postgres-backed AuditRecorder.
type AuditStore struct {
	db DBTX
}

// NewAuditStore wraps a pool or transaction.
func NewAuditStore(db DBTX) *AuditStore {
	return &AuditStore{db: db}
}

const createAuditTable = `
CREATE TABLE IF NOT EXISTS csv_operation_log (
    id           UUID PRIMARY KEY,
    operation    TEXT NOT NULL,
    file_name    TEXT,
    file_size    BIGINT NOT NULL DEFAULT 0,
    column_name  TEXT,
    rows_scanned INTEGER NOT NULL DEFAULT 0,
    rows_matched INTEGER NOT NULL DEFAULT 0,
    outcome      TEXT NOT NULL,
    duration_ms  BIGINT NOT NULL DEFAULT 0,
    request_id   TEXT,
    ip_address   TEXT,
    user_agent   TEXT,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_csv_operation_log_created_at ON csv_operation_log (created_at)`

// EnsureSchema creates the audit table if it does not exist.
func (s *AuditStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createAuditTable); err != nil {
		return fmt.Errorf("create audit table: %w", err)
	}
	return nil
}

const insertAuditEntry = `
INSERT INTO csv_operation_log (
    id, operation, file_name, file_size, column_name, rows_scanned,
    rows_matched, outcome, duration_ms, request_id, ip_address, user_agent, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// LogOperation inserts entry. A missing ID or timestamp is filled in.
func (s *AuditStore) LogOperation(ctx context.Context, entry AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	id, err := uuid.Parse(entry.ID)
	if err != nil {
		return fmt.Errorf("audit id: %w", err)
	}

	_, err = s.db.Exec(ctx, insertAuditEntry,
		pgtype.UUID{Bytes: id, Valid: true},
		string(entry.Operation),
		toPgText(entry.FileName),
		entry.FileSize,
		toPgText(entry.ColumnName),
		int32(entry.RowsScanned),
		int32(entry.RowsMatched),
		entry.Outcome,
		entry.DurationMs,
		toPgText(entry.RequestID),
		toPgText(entry.IPAddress),
		toPgText(entry.UserAgent),
		pgtype.Timestamptz{Time: entry.CreatedAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

const selectRecentAudit = `
SELECT id, operation, file_name, file_size, column_name, rows_scanned,
       rows_matched, outcome, duration_ms, request_id, ip_address, user_agent, created_at
FROM csv_operation_log
ORDER BY created_at DESC
LIMIT $1`

// ListRecent returns the newest entries first.
func (s *AuditStore) ListRecent(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}

	rows, err := s.db.Query(ctx, selectRecentAudit, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	entries := make([]AuditEntry, 0, limit)
	for rows.Next() {
		var (
			id                                     pgtype.UUID
			op                                     string
			fileName, column, reqID, ip, userAgent pgtype.Text
			size, duration                         int64
			scanned, matched                       int32
			outcome                                string
			createdAt                              pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &op, &fileName, &size, &column, &scanned,
			&matched, &outcome, &duration, &reqID, &ip, &userAgent, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, AuditEntry{
			ID:          uuid.UUID(id.Bytes).String(),
			Operation:   Operation(op),
			FileName:    fileName.String,
			FileSize:    size,
			ColumnName:  column.String,
			RowsScanned: int(scanned),
			RowsMatched: int(matched),
			Outcome:     outcome,
			DurationMs:  duration,
			RequestID:   reqID.String,
			IPAddress:   ip.String,
			UserAgent:   userAgent.String,
			CreatedAt:   createdAt.Time,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	return entries, nil
}

const purgeAudit = `DELETE FROM csv_operation_log WHERE created_at < now() - make_interval(days => $1)`

// PurgeOlderThan deletes entries older than days and returns the count.
func (s *AuditStore) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	tag, err := s.db.Exec(ctx, purgeAudit, int32(days))
	if err != nil {
		return 0, fmt.Errorf("purge audit log: %w", err)
	}
	return tag.RowsAffected(), nil
}

func toPgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
