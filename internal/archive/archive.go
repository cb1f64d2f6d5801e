// Package archive persists completion exchanges to SQLite so cost and
// usage survive the process. Writes are best-effort from the client's
// point of view; the CLI usage command reads them back.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/agentlab/agentlab/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS exchanges (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id    TEXT NOT NULL,
	provider      TEXT NOT NULL,
	model         TEXT NOT NULL,
	input_tokens  INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	cost_usd      REAL NOT NULL,
	cached        INTEGER NOT NULL,
	latency_ms    INTEGER NOT NULL,
	created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exchanges_created_at ON exchanges(created_at);
`

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the archive at path and applies the schema.
// WAL mode keeps concurrent agent writes from blocking each other.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Record(ctx context.Context, rec domain.ExchangeRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exchanges (request_id, provider, model, input_tokens, output_tokens, cost_usd, cached, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID,
		rec.Provider,
		rec.Model,
		rec.InputTokens,
		rec.OutputTokens,
		rec.CostUSD,
		rec.Cached,
		rec.LatencyMs,
		rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}
	return nil
}

// Recent returns up to limit exchanges, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.ExchangeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT request_id, provider, model, input_tokens, output_tokens, cost_usd, cached, latency_ms, created_at
		FROM exchanges
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}
	defer rows.Close()

	var records []domain.ExchangeRecord
	for rows.Next() {
		var rec domain.ExchangeRecord
		if err := rows.Scan(
			&rec.RequestID,
			&rec.Provider,
			&rec.Model,
			&rec.InputTokens,
			&rec.OutputTokens,
			&rec.CostUSD,
			&rec.Cached,
			&rec.LatencyMs,
			&rec.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// TotalCost sums the archived cost since a point in time.
func (s *Store) TotalCost(ctx context.Context, since time.Time) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(cost_usd), 0)
		FROM exchanges
		WHERE created_at >= ?`, since).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("query total cost: %w", err)
	}
	return total, nil
}

// ModelTotals aggregates token counts per model since a point in time.
func (s *Store) ModelTotals(ctx context.Context, since time.Time) (map[string][2]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model, SUM(input_tokens), SUM(output_tokens)
		FROM exchanges
		WHERE created_at >= ?
		GROUP BY model`, since)
	if err != nil {
		return nil, fmt.Errorf("query model totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string][2]int)
	for rows.Next() {
		var model string
		var in, out int
		if err := rows.Scan(&model, &in, &out); err != nil {
			return nil, fmt.Errorf("scan model totals: %w", err)
		}
		totals[model] = [2]int{in, out}
	}
	return totals, rows.Err()
}
