// Package observability exports run progress as Prometheus metrics.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vanet-sim/internal/telemetry"
)

// RunCollector mirrors every sample and the summary into Prometheus
// metrics. It satisfies the sample and summary writer interfaces so it can
// sit in a writer fan-out next to the CSV log.
type RunCollector struct {
	gatherer prometheus.Gatherer

	SimSecond       prometheus.Gauge
	CoveragePDR     prometheus.Gauge
	IntervalPDR     prometheus.Gauge
	ReceiveRateKbps prometheus.Gauge
	BeaconsSent     *prometheus.CounterVec
	BeaconsReceived *prometheus.CounterVec
	RoutedPackets   *prometheus.CounterVec
	ReceiveRate     prometheus.Histogram

	MeanDelay     prometheus.Gauge
	MeanJitter    prometheus.Gauge
	MeanLossRatio prometheus.Gauge
	RunsCompleted prometheus.Counter
}

// NewRunCollector registers the run metrics against reg, defaulting to
// the global Prometheus registry when nil.
func NewRunCollector(reg prometheus.Registerer) (*RunCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	c := &RunCollector{gatherer: gatherer}

	var err error
	gauges := []struct {
		dst  *prometheus.Gauge
		name string
		help string
	}{
		{&c.SimSecond, "vanet_simulation_second", "Simulated time of the latest sample."},
		{&c.CoveragePDR, "vanet_bsm_pdr", "Cumulative beacon delivery ratio within the safety range."},
		{&c.IntervalPDR, "vanet_wave_pdr", "Beacons received per beacon sent in the latest interval."},
		{&c.ReceiveRateKbps, "vanet_receive_rate_kbps", "Routed application throughput in the latest interval."},
		{&c.MeanDelay, "vanet_mean_delay_seconds", "Mean routed packet delay of the last finished run."},
		{&c.MeanJitter, "vanet_mean_jitter_seconds", "Mean routed packet jitter of the last finished run."},
		{&c.MeanLossRatio, "vanet_mean_loss_ratio", "Routed packet loss ratio of the last finished run."},
	}
	for _, g := range gauges {
		if *g.dst, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: g.name, Help: g.help}), g.name); err != nil {
			return nil, err
		}
	}

	counters := []struct {
		dst  **prometheus.CounterVec
		name string
		help string
	}{
		{&c.BeaconsSent, "vanet_beacons_sent_total", "Safety beacons sent, by routing protocol."},
		{&c.BeaconsReceived, "vanet_beacons_received_total", "Safety beacons received, by routing protocol."},
		{&c.RoutedPackets, "vanet_routed_packets_total", "Routed application packets received at sinks, by routing protocol."},
	}
	for _, cv := range counters {
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: cv.name, Help: cv.help}, []string{"protocol"})
		if *cv.dst, err = registerCounterVec(reg, vec, cv.name); err != nil {
			return nil, err
		}
	}

	hist := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vanet_interval_receive_kbps",
		Help:    "Distribution of per-interval routed throughput.",
		Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32, 64},
	})
	if c.ReceiveRate, err = registerHistogram(reg, hist, "vanet_interval_receive_kbps"); err != nil {
		return nil, err
	}
	runs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vanet_runs_completed_total",
		Help: "Experiments that produced a summary.",
	})
	if c.RunsCompleted, err = registerCounter(reg, runs, "vanet_runs_completed_total"); err != nil {
		return nil, err
	}
	return c, nil
}

// WriteSample updates the progress metrics.
func (c *RunCollector) WriteSample(row telemetry.SampleRow) error {
	if c == nil {
		return nil
	}
	c.SimSecond.Set(row.SimulationSecond)
	c.CoveragePDR.Set(row.CoveragePDR)
	c.IntervalPDR.Set(row.WavePktsPDR)
	c.ReceiveRateKbps.Set(row.ReceiveRateKbps)
	c.ReceiveRate.Observe(row.ReceiveRateKbps)
	c.BeaconsSent.WithLabelValues(row.RoutingProtocol).Add(float64(row.WavePktsSent))
	c.BeaconsReceived.WithLabelValues(row.RoutingProtocol).Add(float64(row.WavePktsReceived))
	c.RoutedPackets.WithLabelValues(row.RoutingProtocol).Add(float64(row.PacketsReceived))
	return nil
}

// WriteSummary records the end of run figures.
func (c *RunCollector) WriteSummary(row telemetry.SummaryRow) error {
	if c == nil {
		return nil
	}
	c.CoveragePDR.Set(row.CoveragePDR)
	c.MeanDelay.Set(row.MeanDelay)
	c.MeanJitter.Set(row.MeanJitter)
	c.MeanLossRatio.Set(row.MeanPktLossRatio)
	c.RunsCompleted.Inc()
	return nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *RunCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerGauge(reg prometheus.Registerer, g prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return g, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
