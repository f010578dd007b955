package sim

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"vanet-sim/internal/telemetry"
)

const createSampleTable = `
CREATE TABLE IF NOT EXISTS vanet_samples (
    Timestamp          DateTime64(3),
    RunID              String,
    RoutingProtocol    LowCardinality(String),
    SimulationSecond   Float64,
    ReceiveRateKbps    Float64,
    PacketsReceived    UInt64,
    NumberOfSinks      Int32,
    TransmissionPower  Float64,
    WavePktsSent       UInt64,
    WavePktsReceived   UInt64,
    WavePktsPDR        Float64,
    ExpectedInCoverage UInt64,
    ReceivedInCoverage UInt64,
    CoveragePDR        Float64
) ENGINE = MergeTree()
ORDER BY (RunID, SimulationSecond);
`

const createSummaryTable = `
CREATE TABLE IF NOT EXISTS vanet_summary (
    Timestamp        DateTime64(3),
    RunID            String,
    CoveragePDR      Float64,
    MeanDelay        Float64,
    MeanJitter       Float64,
    MeanTxPktSize    Float64,
    MeanRxPktSize    Float64,
    MeanPktLossRatio Float64,
    MeanRxKbps       Float64,
    MeanRoutingKbps  Float64
) ENGINE = MergeTree()
ORDER BY (RunID, Timestamp);
`

// ClickHouseConfig addresses a ClickHouse server.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
}

type chBatch interface {
	Append(v ...any) error
	Send() error
}

type chConn interface {
	PrepareBatch(ctx context.Context, query string) (chBatch, error)
	Close() error
}

type driverConn struct{ driver.Conn }

func (c driverConn) PrepareBatch(ctx context.Context, query string) (chBatch, error) {
	return c.Conn.PrepareBatch(ctx, query)
}

// ClickHouseWriter stores samples and summaries in two MergeTree tables.
type ClickHouseWriter struct {
	conn chConn
}

// NewClickHouseWriter connects, pings and ensures both tables exist.
func NewClickHouseWriter(cfg ClickHouseConfig) (*ClickHouseWriter, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
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
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	ctx := context.Background()
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	for _, ddl := range []string{createSampleTable, createSummaryTable} {
		if err := conn.Exec(ctx, ddl); err != nil {
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}
	slog.Info("connected to clickhouse", "addr", cfg.Addr)
	return &ClickHouseWriter{conn: driverConn{conn}}, nil
}

// WriteSample inserts one sample.
func (w *ClickHouseWriter) WriteSample(row telemetry.SampleRow) error {
	return w.WriteSamples([]telemetry.SampleRow{row})
}

// WriteSamples inserts rows as one batch.
func (w *ClickHouseWriter) WriteSamples(rows []telemetry.SampleRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO vanet_samples")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, r := range rows {
		if err := batch.Append(
			r.Timestamp,
			r.RunID,
			r.RoutingProtocol,
			r.SimulationSecond,
			r.ReceiveRateKbps,
			r.PacketsReceived,
			int32(r.NumberOfSinks),
			r.TransmissionPower,
			r.WavePktsSent,
			r.WavePktsReceived,
			r.WavePktsPDR,
			r.ExpectedInCoverage,
			r.ReceivedInCoverage,
			r.CoveragePDR,
		); err != nil {
			return fmt.Errorf("failed to append sample to batch: %w", err)
		}
	}
	return batch.Send()
}

// WriteSummary inserts the run summary.
func (w *ClickHouseWriter) WriteSummary(r telemetry.SummaryRow) error {
	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO vanet_summary")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	if err := batch.Append(
		r.Timestamp,
		r.RunID,
		r.CoveragePDR,
		r.MeanDelay,
		r.MeanJitter,
		r.MeanTxPktSize,
		r.MeanRxPktSize,
		r.MeanPktLossRatio,
		r.MeanRxKbps,
		r.MeanRoutingKbps,
	); err != nil {
		return fmt.Errorf("failed to append summary to batch: %w", err)
	}
	return batch.Send()
}

// Close closes the connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}
