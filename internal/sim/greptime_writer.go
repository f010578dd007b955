package sim

import (
	"context"
	"fmt"
	"net"
	"strconv"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"vanet-sim/internal/telemetry"
)

const defaultGreptimePort = 4001

type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes samples and summaries to GreptimeDB via the ingester client.
// Tables are created on first write.
type GreptimeDBWriter struct {
	client       greptimeClient
	sampleTable  string
	summaryTable string
}

// NewGreptimeDBWriter connects to endpoint (host or host:port) and database.
func NewGreptimeDBWriter(endpoint, database string) (*GreptimeDBWriter, error) {
	host, port := endpoint, defaultGreptimePort
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("greptime endpoint %q: %w", endpoint, err)
		}
		host, port = h, n
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GreptimeDBWriter{
		client:       client,
		sampleTable:  telemetry.SampleTableName,
		summaryTable: telemetry.SummaryTableName,
	}, nil
}

func (w *GreptimeDBWriter) sampleSchema() (*table.Table, error) {
	tbl, err := table.New(w.sampleTable)
	if err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("run_id", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("routing_protocol", types.STRING); err != nil {
		return nil, err
	}
	fields := []struct {
		name string
		typ  types.ColumnType
	}{
		{"simulation_second", types.FLOAT64},
		{"receive_rate_kbps", types.FLOAT64},
		{"packets_received", types.UINT64},
		{"number_of_sinks", types.INT64},
		{"transmission_power", types.FLOAT64},
		{"wave_pkts_sent", types.UINT64},
		{"wave_pkts_received", types.UINT64},
		{"wave_pkts_pdr", types.FLOAT64},
		{"expected_in_coverage", types.UINT64},
		{"received_in_coverage", types.UINT64},
		{"coverage_pdr", types.FLOAT64},
	}
	for _, f := range fields {
		if err := tbl.AddFieldColumn(f.name, f.typ); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	return tbl, nil
}

// WriteSample inserts a single sample row.
func (w *GreptimeDBWriter) WriteSample(row telemetry.SampleRow) error {
	return w.WriteSamples([]telemetry.SampleRow{row})
}

// WriteSamples inserts multiple sample rows in one request.
func (w *GreptimeDBWriter) WriteSamples(rows []telemetry.SampleRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := w.sampleSchema()
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(
			r.RunID,
			r.RoutingProtocol,
			r.SimulationSecond,
			r.ReceiveRateKbps,
			r.PacketsReceived,
			int64(r.NumberOfSinks),
			r.TransmissionPower,
			r.WavePktsSent,
			r.WavePktsReceived,
			r.WavePktsPDR,
			r.ExpectedInCoverage,
			r.ReceivedInCoverage,
			r.CoveragePDR,
			r.Timestamp,
		); err != nil {
			return err
		}
	}
	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		return fmt.Errorf("greptime write %s: %w", w.sampleTable, err)
	}
	return nil
}

// WriteSummary inserts the run summary.
func (w *GreptimeDBWriter) WriteSummary(r telemetry.SummaryRow) error {
	tbl, err := table.New(w.summaryTable)
	if err != nil {
		return err
	}
	if err := tbl.AddTagColumn("run_id", types.STRING); err != nil {
		return err
	}
	for _, name := range []string{
		"coverage_pdr", "mean_delay_s", "mean_jitter_s", "mean_tx_pkt_size",
		"mean_rx_pkt_size", "mean_pkt_loss_ratio", "mean_rx_kbps", "mean_routing_kbps",
	} {
		if err := tbl.AddFieldColumn(name, types.FLOAT64); err != nil {
			return err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}
	if err := tbl.AddRow(
		r.RunID,
		r.CoveragePDR,
		r.MeanDelay,
		r.MeanJitter,
		r.MeanTxPktSize,
		r.MeanRxPktSize,
		r.MeanPktLossRatio,
		r.MeanRxKbps,
		r.MeanRoutingKbps,
		r.Timestamp,
	); err != nil {
		return err
	}
	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		return fmt.Errorf("greptime write %s: %w", w.summaryTable, err)
	}
	return nil
}
