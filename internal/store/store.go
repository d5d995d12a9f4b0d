// Package store persists normalized reports to PostgreSQL. Persistence is a
// CLI-level opt-in; the engine itself stays stateless and never touches it.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/auditlens/auditlens/internal/results"
)

// DBPool abstracts pgxpool.Pool so tests can substitute pgxmock. All SQL runs
// inside a transaction, so the pool itself only pings and begins.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store provides a PostgreSQL implementation of report persistence.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// SaveReport writes the report header and bulk inserts its findings in one
// transaction.
func (s *Store) SaveReport(ctx context.Context, report *results.Report) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback after a successful commit reports ErrTxClosed; that is
		// not worth a log line.
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	summaryJSON, err := json.Marshal(report.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal report summary: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO reports (id, category, generated_at, summary) VALUES ($1, $2, $3, $4)`,
		report.ID, report.Category, report.GeneratedAt, summaryJSON,
	); err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	if len(report.Findings) > 0 {
		if err := s.persistFindings(ctx, tx, report); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.Info("Persisted report",
		zap.String("report_id", report.ID),
		zap.Int("findings", len(report.Findings)),
	)
	return nil
}

// persistFindings bulk inserts findings using the pgx CopyFrom protocol.
func (s *Store) persistFindings(ctx context.Context, tx pgx.Tx, report *results.Report) error {
	rows := make([][]interface{}, len(report.Findings))
	for i, f := range report.Findings {
		rawJSON, err := json.Marshal(f.Raw)
		if err != nil {
			return fmt.Errorf("failed to marshal raw payload for finding %s: %w", f.ID, err)
		}
		rows[i] = []interface{}{
			f.ID, report.ID, f.Tool, f.Category, f.Language, string(f.Severity),
			f.Message, f.File, f.Line, f.RuleID, f.URL, f.Metric, f.Value,
			f.Status, rawJSON,
		}
	}

	_, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"findings"},
		[]string{"id", "report_id", "tool", "category", "language", "severity",
			"message", "file", "line", "rule_id", "url", "metric", "value",
			"status", "raw"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy findings: %w", err)
	}
	return nil
}
