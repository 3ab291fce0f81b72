package core

// history.go records one row of metadata per detection run. Uploaded content
// is never stored: only counts, column-independent settings and the outcome.

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DefaultHistoryLimit is the default number of runs returned by Recent.
const DefaultHistoryLimit = 50

// MaxHistoryLimit caps the number of runs returned by Recent.
const MaxHistoryLimit = 500

// RunRecord is the stored summary of one detection run.
type RunRecord struct {
	ID             string        `json:"id"`
	Method         string        `json:"method"`
	Filename       string        `json:"filename"`
	Status         string        `json:"status"` // "ok" or the failure Kind
	OriginalRows   int           `json:"original_rows"`
	CleanedRows    int           `json:"cleaned_rows"`
	RowsRemoved    int           `json:"rows_removed"`
	AnomaliesFound int           `json:"anomalies_found"`
	Explainability string        `json:"explainability,omitempty"`
	DecodeConfig   string        `json:"decode_config,omitempty"`
	ClientIP       string        `json:"client_ip,omitempty"`
	UserAgent      string        `json:"user_agent,omitempty"`
	Duration       time.Duration `json:"duration_ns"`
	CreatedAt      time.Time     `json:"created_at"`
}

// RunStore persists run summaries.
type RunStore interface {
	Record(ctx context.Context, rec RunRecord) error
	Recent(ctx context.Context, limit int) ([]RunRecord, error)
}

// clampHistoryLimit applies the default and maximum to a requested limit.
func clampHistoryLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

// ----------------------------------------------------------------------------
// In-memory store
// ----------------------------------------------------------------------------

// MemoryRunStore keeps the most recent runs in a fixed-size ring.
// It is used when no database is configured.
type MemoryRunStore struct {
	mu   sync.Mutex
	runs []RunRecord
	next int
	full bool
}

// NewMemoryRunStore creates a store that keeps the last capacity runs.
func NewMemoryRunStore(capacity int) *MemoryRunStore {
	if capacity <= 0 {
		capacity = DefaultHistoryLimit
	}
	return &MemoryRunStore{runs: make([]RunRecord, capacity)}
}

// Record implements RunStore.
func (s *MemoryRunStore) Record(_ context.Context, rec RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[s.next] = rec
	s.next = (s.next + 1) % len(s.runs)
	if s.next == 0 {
		s.full = true
	}
	return nil
}

// Recent implements RunStore, newest first.
func (s *MemoryRunStore) Recent(_ context.Context, limit int) ([]RunRecord, error) {
	limit = clampHistoryLimit(limit)

	s.mu.Lock()
	defer s.mu.Unlock()

	count := s.next
	if s.full {
		count = len(s.runs)
	}
	if limit > count {
		limit = count
	}

	out := make([]RunRecord, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (s.next - 1 - i + len(s.runs)) % len(s.runs)
		out = append(out, s.runs[idx])
	}
	return out, nil
}

// ----------------------------------------------------------------------------
// PostgreSQL store
// ----------------------------------------------------------------------------

// DBTX is the subset of *pgxpool.Pool used by PgRunStore.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PgRunStore stores run summaries in the detection_runs table.
type PgRunStore struct {
	db DBTX
}

// NewPgRunStore creates a PostgreSQL-backed store.
func NewPgRunStore(db DBTX) *PgRunStore {
	return &PgRunStore{db: db}
}

const createRunsTable = `CREATE TABLE IF NOT EXISTS detection_runs (
	id              UUID PRIMARY KEY,
	method          TEXT NOT NULL,
	filename        TEXT NOT NULL,
	status          TEXT NOT NULL,
	original_rows   INTEGER NOT NULL DEFAULT 0,
	cleaned_rows    INTEGER NOT NULL DEFAULT 0,
	rows_removed    INTEGER NOT NULL DEFAULT 0,
	anomalies_found INTEGER NOT NULL DEFAULT 0,
	explainability  TEXT,
	decode_config   TEXT,
	client_ip       INET,
	user_agent      TEXT,
	duration_ms     BIGINT NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema creates the detection_runs table if it does not exist.
func (s *PgRunStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createRunsTable); err != nil {
		return fmt.Errorf("create detection_runs: %w", err)
	}
	return nil
}

// Record implements RunStore.
func (s *PgRunStore) Record(ctx context.Context, rec RunRecord) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		id = uuid.New()
	}

	var ip *netip.Addr
	if rec.ClientIP != "" {
		host := rec.ClientIP
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		if addr, err := netip.ParseAddr(host); err == nil {
			ip = &addr
		}
	}

	_, err = s.db.Exec(ctx, `INSERT INTO detection_runs
		(id, method, filename, status, original_rows, cleaned_rows, rows_removed,
		 anomalies_found, explainability, decode_config, client_ip, user_agent, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		id, rec.Method, rec.Filename, rec.Status, rec.OriginalRows, rec.CleanedRows, rec.RowsRemoved,
		rec.AnomaliesFound, pgText(rec.Explainability), pgText(rec.DecodeConfig), ip, pgText(rec.UserAgent),
		rec.Duration.Milliseconds(), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert detection run: %w", err)
	}
	return nil
}

// Recent implements RunStore, newest first.
func (s *PgRunStore) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(ctx, `SELECT id, method, filename, status, original_rows, cleaned_rows,
		rows_removed, anomalies_found, explainability, decode_config, client_ip, user_agent,
		duration_ms, created_at
		FROM detection_runs ORDER BY created_at DESC LIMIT $1`, clampHistoryLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query detection runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunRecord, 0)
	for rows.Next() {
		var (
			rec            RunRecord
			id             uuid.UUID
			explainability pgtype.Text
			decodeConfig   pgtype.Text
			clientIP       *netip.Addr
			userAgent      pgtype.Text
			durationMS     int64
		)
		if err := rows.Scan(&id, &rec.Method, &rec.Filename, &rec.Status, &rec.OriginalRows,
			&rec.CleanedRows, &rec.RowsRemoved, &rec.AnomaliesFound, &explainability, &decodeConfig,
			&clientIP, &userAgent, &durationMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan detection run: %w", err)
		}
		rec.ID = id.String()
		rec.Explainability = explainability.String
		rec.DecodeConfig = decodeConfig.String
		rec.UserAgent = userAgent.String
		if clientIP != nil {
			rec.ClientIP = clientIP.String()
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// pgText converts a string to pgtype.Text, NULL when empty.
func pgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}
