package query

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"ChainHarvest/internal/archive"
	"ChainHarvest/internal/config"
)

// AggregateRow is one group's event count from the archive.
type AggregateRow struct {
	Key   string `json:"key"`
	Count uint64 `json:"count"`
}

// Querier aggregates archived events for the query API.
type Querier interface {
	// EventsByPackage returns per-package event counts for one run,
	// descending by count.
	EventsByPackage(ctx context.Context, runID string) ([]AggregateRow, error)

	// EventsByAddress returns per-emitting-address event counts for one
	// run, descending by count.
	EventsByAddress(ctx context.Context, runID string) ([]AggregateRow, error)
}

type clickhouseQuerier struct {
	conn driver.Conn
}

// NewClickHouseQuerier creates a querier over the chain_events archive.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := archive.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

func (q *clickhouseQuerier) EventsByPackage(ctx context.Context, runID string) ([]AggregateRow, error) {
	return q.aggregate(ctx, "PackageID", runID)
}

func (q *clickhouseQuerier) EventsByAddress(ctx context.Context, runID string) ([]AggregateRow, error) {
	return q.aggregate(ctx, "EmittingAddress", runID)
}

func (q *clickhouseQuerier) aggregate(ctx context.Context, column, runID string) ([]AggregateRow, error) {
	query := fmt.Sprintf(`
		SELECT %s AS Key, count() AS Count
		FROM chain_events
		WHERE RunID = ?
		GROUP BY Key
		ORDER BY Count DESC, Key ASC`, column)

	rows, err := q.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("aggregate query failed: %w", err)
	}
	defer rows.Close()

	var out []AggregateRow
	for rows.Next() {
		var row AggregateRow
		if err := rows.Scan(&row.Key, &row.Count); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
