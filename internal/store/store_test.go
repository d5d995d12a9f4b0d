package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/auditlens/auditlens/api/schemas"
	"github.com/auditlens/auditlens/internal/results"
)

var findingColumns = []string{"id", "report_id", "tool", "category", "language", "severity",
	"message", "file", "line", "rule_id", "url", "metric", "value",
	"status", "raw"}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func sampleReport() *results.Report {
	return &results.Report{
		ID:          "11111111-2222-3333-4444-555555555555",
		Category:    "static",
		GeneratedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Findings: []schemas.Finding{
			{
				ID:       "bandit-0",
				Tool:     "bandit",
				Severity: schemas.SeverityHigh,
				Message:  "hardcoded password",
				File:     "app.py",
				Line:     12,
				RuleID:   "B105",
				Raw:      map[string]interface{}{"issue_text": "hardcoded password"},
			},
		},
		Summary: map[string]int{"total": 1, "high": 1},
	}
}

func TestNewPingsDatabase(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectPing()

		s, err := New(context.Background(), mock, zap.NewNop())
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unreachable", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		s, err := New(context.Background(), mock, zap.NewNop())
		assert.Nil(t, s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to ping database")
	})
}

func TestSaveReport(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectPing()
	report := sampleReport()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reports").
		WithArgs(report.ID, report.Category, report.GeneratedAt, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"findings"}, findingColumns).
		WillReturnResult(1)
	mock.ExpectCommit()
	mock.ExpectRollback()

	s, err := New(context.Background(), mock, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.SaveReport(context.Background(), report))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveReportEmptyFindings(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectPing()
	report := sampleReport()
	report.Findings = nil

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reports").
		WithArgs(report.ID, report.Category, report.GeneratedAt, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	s, err := New(context.Background(), mock, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.SaveReport(context.Background(), report))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveReportInsertFailure(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectPing()
	report := sampleReport()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reports").
		WithArgs(report.ID, report.Category, report.GeneratedAt, pgxmock.AnyArg()).
		WillReturnError(errors.New("relation does not exist"))
	mock.ExpectRollback()

	s, err := New(context.Background(), mock, zap.NewNop())
	require.NoError(t, err)

	err = s.SaveReport(context.Background(), report)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert report")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveReportCopyFailure(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectPing()
	report := sampleReport()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reports").
		WithArgs(report.ID, report.Category, report.GeneratedAt, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"findings"}, findingColumns).
		WillReturnError(errors.New("copy aborted"))
	mock.ExpectRollback()

	s, err := New(context.Background(), mock, zap.NewNop())
	require.NoError(t, err)

	err = s.SaveReport(context.Background(), report)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to copy findings")
	assert.NoError(t, mock.ExpectationsWereMet())
}
