package core

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampHistoryLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultHistoryLimit},
		{-5, DefaultHistoryLimit},
		{10, 10},
		{MaxHistoryLimit, MaxHistoryLimit},
		{MaxHistoryLimit + 1, MaxHistoryLimit},
	}
	for _, tt := range tests {
		if got := clampHistoryLimit(tt.in); got != tt.want {
			t.Errorf("clampHistoryLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMemoryRunStore_RingKeepsNewest(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRunStore(3)

	empty, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for i := 1; i <= 5; i++ {
		require.NoError(t, s.Record(ctx, RunRecord{ID: fmt.Sprint(i)}))
	}

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"5", "4", "3"}, ids)

	got, err = s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "5", got[0].ID)
}

func TestMemoryRunStore_PartialFill(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRunStore(4)
	require.NoError(t, s.Record(ctx, RunRecord{ID: "a"}))
	require.NoError(t, s.Record(ctx, RunRecord{ID: "b"}))

	got, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

// recordingDB captures Exec calls.
type recordingDB struct {
	sql  string
	args []any
	err  error
}

func (d *recordingDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.sql = sql
	d.args = args
	return pgconn.CommandTag{}, d.err
}

func (d *recordingDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func TestPgRunStore_Record(t *testing.T) {
	db := &recordingDB{}
	s := NewPgRunStore(db)

	rec := RunRecord{
		ID:             "6f1c1f5e-3b8e-4c59-9a3a-0d7a3c2b1e10",
		Method:         MethodNumeric,
		Filename:       "data.csv",
		Status:         "ok",
		Explainability: string(ExplanationDisabled),
		ClientIP:       "10.0.0.7:51234",
		Duration:       1500 * time.Millisecond,
		CreatedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, s.Record(context.Background(), rec))

	assert.Contains(t, db.sql, "INSERT INTO detection_runs")
	require.Len(t, db.args, 14)
	assert.Equal(t, "6f1c1f5e-3b8e-4c59-9a3a-0d7a3c2b1e10", fmt.Sprint(db.args[0]))
	assert.Equal(t, pgtype.Text{String: "disabled", Valid: true}, db.args[8])
	assert.Equal(t, pgtype.Text{}, db.args[9], "empty decode config is NULL")

	ip, ok := db.args[10].(*netip.Addr)
	require.True(t, ok)
	require.NotNil(t, ip)
	assert.Equal(t, "10.0.0.7", ip.String())
	assert.Equal(t, int64(1500), db.args[12])
}

func TestPgRunStore_RecordBadIP(t *testing.T) {
	db := &recordingDB{}
	s := NewPgRunStore(db)

	require.NoError(t, s.Record(context.Background(), RunRecord{ID: "not-a-uuid", ClientIP: "unknown"}))
	ip, ok := db.args[10].(*netip.Addr)
	require.True(t, ok)
	assert.Nil(t, ip)
}

func TestPgRunStore_ErrorsAreWrapped(t *testing.T) {
	cause := errors.New("connection refused")
	s := NewPgRunStore(&recordingDB{err: cause})

	err := s.EnsureSchema(context.Background())
	assert.ErrorIs(t, err, cause)

	err = s.Record(context.Background(), RunRecord{})
	assert.ErrorIs(t, err, cause)

	_, err = s.Recent(context.Background(), 10)
	assert.Error(t, err)
}
