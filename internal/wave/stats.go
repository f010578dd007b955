// Package wave implements safety-beacon coverage accounting: the beacon
// generator, the reception tally, the once-per-second sampler and the end
// of run aggregate. Everything here runs on the engine goroutine.
package wave

// RunStats is the shared counter context for one run. It replaces
// process-wide counters; every task of a run holds the same pointer.
type RunStats struct {
	// RangeSq is the squared planar safety range in m².
	RangeSq float64

	// Beacon counters. Sent and Received cover the current sampling
	// interval; the coverage pair is cumulative for the whole run.
	Sent               uint64
	Received           uint64
	ExpectedInCoverage uint64
	ReceivedInCoverage uint64
	SentTotal          uint64

	// Routed traffic counters.
	BytesThisInterval   uint64
	BytesTotal          uint64
	PacketsThisInterval uint64
	PacketsTotal        uint64
}

// NewRunStats returns zeroed counters for a safety range in metres.
func NewRunStats(rangeMetres float64) *RunStats {
	return &RunStats{RangeSq: rangeMetres * rangeMetres}
}

// RecordRouted counts one routed packet of size bytes.
func (s *RunStats) RecordRouted(size int) {
	s.BytesThisInterval += uint64(size)
	s.BytesTotal += uint64(size)
	s.PacketsThisInterval++
	s.PacketsTotal++
}

// BeaconPDR is Received/Sent for the interval, or 0 when nothing was sent.
// Broadcasts are counted once per receiver, so the ratio can exceed 1.
func (s *RunStats) BeaconPDR() float64 {
	return ratio(s.Received, s.Sent)
}

// CoveragePDR is ReceivedInCoverage/ExpectedInCoverage, or 0.
func (s *RunStats) CoveragePDR() float64 {
	return ratio(s.ReceivedInCoverage, s.ExpectedInCoverage)
}

func (s *RunStats) resetInterval() {
	s.BytesThisInterval = 0
	s.PacketsThisInterval = 0
	s.Received = 0
	s.Sent = 0
}

func ratio(num, den uint64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
