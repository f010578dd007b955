// Row types emitted by a run, with greptime tags
package telemetry

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// SampleHeader is the exact header of the per-second CSV log.
const SampleHeader = "SimulationSecond,ReceiveRate,PacketsReceived,NumberOfSinks,RoutingProtocol,TransmissionPower,WavePktsSent,WavePktsReceived,WavePktsPdr,ExpectedWavePktsReceived,ExpectedWavePktsInCoverageReceived,BSM_PDR"

// SummaryHeader is the exact header of the one-row summary CSV.
const SummaryHeader = "BSM_PDR,MeanDelay,MeanJitter,MeanTxPktSize,MeanRxPktSize,MeanPktLossRatio,MeanRxThroughputKbps,MeanRoutingThroughputKbps"

// SampleColumns splits SampleHeader for CSV writers.
func SampleColumns() []string { return strings.Split(SampleHeader, ",") }

// SummaryColumns splits SummaryHeader for CSV writers.
func SummaryColumns() []string { return strings.Split(SummaryHeader, ",") }

// SampleRow is one sampling interval. Beacon sent/received counts cover the
// interval only; the coverage counts are cumulative.
type SampleRow struct {
	RunID              string    `json:"run_id"`           // TAG
	RoutingProtocol    string    `json:"routing_protocol"` // TAG
	SimulationSecond   float64   `json:"sim_second"`       // FIELD
	ReceiveRateKbps    float64   `json:"receive_rate_kbps"`
	PacketsReceived    uint64    `json:"packets_received"`
	NumberOfSinks      int       `json:"sinks"`
	TransmissionPower  float64   `json:"txp_dbm"`
	WavePktsSent       uint64    `json:"wave_sent"`
	WavePktsReceived   uint64    `json:"wave_received"`
	WavePktsPDR        float64   `json:"wave_pdr"`
	ExpectedInCoverage uint64    `json:"expected_in_coverage"`
	ReceivedInCoverage uint64    `json:"received_in_coverage"`
	CoveragePDR        float64   `json:"bsm_pdr"`
	Timestamp          time.Time `json:"ts"` // TIME INDEX
}

// Record returns the CSV fields in SampleHeader order.
func (r SampleRow) Record() []string {
	return []string{
		ff(r.SimulationSecond),
		ff(r.ReceiveRateKbps),
		fu(r.PacketsReceived),
		strconv.Itoa(r.NumberOfSinks),
		r.RoutingProtocol,
		ff(r.TransmissionPower),
		fu(r.WavePktsSent),
		fu(r.WavePktsReceived),
		ff(r.WavePktsPDR),
		fu(r.ExpectedInCoverage),
		fu(r.ReceivedInCoverage),
		ff(r.CoveragePDR),
	}
}

// SummaryRow is the end-of-run aggregate. Delay and jitter are seconds.
type SummaryRow struct {
	RunID            string    `json:"run_id"` // TAG
	CoveragePDR      float64   `json:"bsm_pdr"`
	MeanDelay        float64   `json:"mean_delay_s"`
	MeanJitter       float64   `json:"mean_jitter_s"`
	MeanTxPktSize    float64   `json:"mean_tx_pkt_size"`
	MeanRxPktSize    float64   `json:"mean_rx_pkt_size"`
	MeanPktLossRatio float64   `json:"mean_loss_ratio"`
	MeanRxKbps       float64   `json:"mean_rx_kbps"`
	MeanRoutingKbps  float64   `json:"mean_routing_kbps"`
	Timestamp        time.Time `json:"ts"`
}

// Record returns the CSV fields in SummaryHeader order.
func (r SummaryRow) Record() []string {
	return []string{
		ff(r.CoveragePDR),
		ff(r.MeanDelay),
		ff(r.MeanJitter),
		ff(r.MeanTxPktSize),
		ff(r.MeanRxPktSize),
		ff(r.MeanPktLossRatio),
		ff(r.MeanRxKbps),
		ff(r.MeanRoutingKbps),
	}
}

func ff(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
func fu(v uint64) string  { return strconv.FormatUint(v, 10) }

// SampleTableName holds the GreptimeDB table for samples. It defaults to
// "vanet_samples" and can be overridden with GREPTIMEDB_SAMPLE_TABLE.
var SampleTableName = envOr("GREPTIMEDB_SAMPLE_TABLE", "vanet_samples")

// SummaryTableName holds the GreptimeDB table for run summaries.
var SummaryTableName = envOr("GREPTIMEDB_SUMMARY_TABLE", "vanet_summary")

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (SampleRow) TableName() string  { return SampleTableName }
func (SummaryRow) TableName() string { return SummaryTableName }
