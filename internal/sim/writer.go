package sim

import "vanet-sim/internal/telemetry"

// SampleWriter receives one row per sampling interval.
type SampleWriter interface {
	WriteSample(telemetry.SampleRow) error
}

// SummaryWriter receives the single end of run row.
type SummaryWriter interface {
	WriteSummary(telemetry.SummaryRow) error
}

// Optional: writers may accept samples in bulk
type batchSampleWriter interface {
	WriteSamples([]telemetry.SampleRow) error
}

// Writer is the full output surface of a run.
type Writer interface {
	SampleWriter
	SummaryWriter
}
