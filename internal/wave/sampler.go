package wave

import (
	"log/slog"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"vanet-sim/internal/engine"
	"vanet-sim/internal/telemetry"
)

// SampleSink receives one row per sampling interval.
type SampleSink interface {
	WriteSample(row telemetry.SampleRow) error
}

// ThroughputSampler snapshots RunStats every Period seconds, starting at
// the instant it is first fired. It reschedules itself unconditionally;
// the engine horizon ends the chain.
type ThroughputSampler struct {
	Stats  *RunStats
	Sink   SampleSink
	Period float64

	RunID    string
	Protocol string
	Sinks    int
	TxPower  float64
	// Epoch anchors simulated time for row timestamps.
	Epoch time.Time

	Log    *slog.Logger
	Series SeriesStats
}

// Fire implements engine.Task.
func (ts *ThroughputSampler) Fire(s engine.Scheduler) {
	row := ts.Sample(s.Now())
	if err := ts.Sink.WriteSample(row); err != nil {
		ts.logger().Error("write failed", "err", err)
	}
	ts.Series.Add(row)
	ts.logger().Info("sample",
		"t", row.SimulationSecond,
		"rx", ts.Stats.ReceivedInCoverage,
		"of", ts.Stats.ExpectedInCoverage,
		"pdr", row.CoveragePDR,
	)
	ts.Stats.resetInterval()
	s.ScheduleAfter(ts.Period, ts)
}

// Sample builds the row for time now without resetting anything.
func (ts *ThroughputSampler) Sample(now float64) telemetry.SampleRow {
	st := ts.Stats
	return telemetry.SampleRow{
		RunID:              ts.RunID,
		RoutingProtocol:    ts.Protocol,
		SimulationSecond:   now,
		ReceiveRateKbps:    float64(st.BytesThisInterval*8) / 1000,
		PacketsReceived:    st.PacketsThisInterval,
		NumberOfSinks:      ts.Sinks,
		TransmissionPower:  ts.TxPower,
		WavePktsSent:       st.Sent,
		WavePktsReceived:   st.Received,
		WavePktsPDR:        st.BeaconPDR(),
		ExpectedInCoverage: st.ExpectedInCoverage,
		ReceivedInCoverage: st.ReceivedInCoverage,
		CoveragePDR:        st.CoveragePDR(),
		Timestamp:          ts.Epoch.Add(time.Duration(now * float64(time.Second))),
	}
}

func (ts *ThroughputSampler) logger() *slog.Logger {
	if ts.Log == nil {
		return slog.Default()
	}
	return ts.Log
}

// SeriesStats keeps the per-interval routed throughput and beacon PDR for
// an end of run summary log line.
type SeriesStats struct {
	kbps []float64
	pdr  []float64
}

// Add appends one sample.
func (ss *SeriesStats) Add(row telemetry.SampleRow) {
	ss.kbps = append(ss.kbps, row.ReceiveRateKbps)
	ss.pdr = append(ss.pdr, row.WavePktsPDR)
}

// Len returns the number of samples.
func (ss *SeriesStats) Len() int { return len(ss.kbps) }

// SeriesSummary describes one sampled series.
type SeriesSummary struct {
	Mean, StdDev, Max float64
}

// Throughput summarises routed kbps across samples.
func (ss *SeriesStats) Throughput() SeriesSummary { return summarise(ss.kbps) }

// BeaconPDR summarises per-interval beacon PDR across samples.
func (ss *SeriesStats) BeaconPDR() SeriesSummary { return summarise(ss.pdr) }

func summarise(xs []float64) SeriesSummary {
	switch len(xs) {
	case 0:
		return SeriesSummary{}
	case 1:
		return SeriesSummary{Mean: xs[0], Max: xs[0]}
	}
	mean, std := stat.MeanStdDev(xs, nil)
	return SeriesSummary{Mean: mean, StdDev: std, Max: floats.Max(xs)}
}
