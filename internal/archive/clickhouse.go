package archive

import (
	"context"
	"fmt"
	"log"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"

	"ChainHarvest/internal/config"
	"ChainHarvest/internal/model"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS chain_events (
    RunID             UUID,
    CheckpointSeq     UInt64,
    Epoch             UInt64,
    TimestampMs       UInt64,
    TxDigest          String,
    EventSeq          UInt64,
    Sender            String,
    PackageID         String,
    TransactionModule String,
    EmittingAddress   String,
    EventType         String
) ENGINE = MergeTree()
PARTITION BY intDiv(CheckpointSeq, 1000000)
ORDER BY (RunID, CheckpointSeq, EventSeq);
`

// ClickHouseSink archives every extracted event as a row, one batch insert
// per checkpoint. Rows are tagged with a per-run UUID so the query API can
// aggregate a single run. It implements model.Sink.
type ClickHouseSink struct {
	conn  driver.Conn
	runID uuid.UUID
}

// NewClickHouseSink connects, ensures the table exists and returns the sink.
func NewClickHouseSink(cfg config.ClickHouseConfig) (*ClickHouseSink, error) {
	conn, err := Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	runID := uuid.New()
	log.Printf("Successfully connected to ClickHouse. Archiving run %s.", runID)
	return &ClickHouseSink{conn: conn, runID: runID}, nil
}

// RunID returns the identifier tagging this run's rows.
func (s *ClickHouseSink) RunID() uuid.UUID {
	return s.runID
}

// Connect opens a ClickHouse connection and verifies it with a ping.
func Connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

// Write inserts one checkpoint's events into the chain_events table.
func (s *ClickHouseSink) Write(batch *model.EventBatch) error {
	if len(batch.Events) == 0 {
		return nil
	}

	ctx := context.Background()
	insert, err := s.conn.PrepareBatch(ctx, "INSERT INTO chain_events")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for i := range batch.Events {
		ev := &batch.Events[i]
		err := insert.Append(
			s.runID,
			batch.Summary.SequenceNumber,
			batch.Summary.Epoch,
			batch.Summary.TimestampMs,
			ev.TxDigest,
			ev.EventSeq,
			ev.Sender.String(),
			ev.PackageID.String(),
			ev.TransactionModule,
			ev.EmittingAddress().String(),
			ev.Type.Canonical(),
		)
		if err != nil {
			return fmt.Errorf("failed to append event row: %w", err)
		}
	}

	if err := insert.Send(); err != nil {
		return fmt.Errorf("failed to insert %d events for checkpoint %d: %w",
			len(batch.Events), batch.Summary.SequenceNumber, err)
	}
	return nil
}

// Close closes the ClickHouse connection.
func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}
