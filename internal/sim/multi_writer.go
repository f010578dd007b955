package sim

import (
	"errors"

	"vanet-sim/internal/telemetry"
)

// MultiWriter fans out samples and summaries to multiple writers.
type MultiWriter struct {
	samples   []SampleWriter
	summaries []SummaryWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(sws []SampleWriter, mws []SummaryWriter) *MultiWriter {
	return &MultiWriter{samples: sws, summaries: mws}
}

// Add registers w for samples, and for summaries when it writes them too.
func (mw *MultiWriter) Add(w SampleWriter) {
	mw.samples = append(mw.samples, w)
	if s, ok := w.(SummaryWriter); ok {
		mw.summaries = append(mw.summaries, s)
	}
}

// WriteSample sends a row to every writer. A failing writer does not stop
// the others; all errors are returned joined.
func (mw *MultiWriter) WriteSample(row telemetry.SampleRow) error {
	var errs []error
	for _, w := range mw.samples {
		if err := w.WriteSample(row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteSamples sends multiple rows to every writer, using batch if supported.
func (mw *MultiWriter) WriteSamples(rows []telemetry.SampleRow) error {
	var errs []error
	for _, w := range mw.samples {
		if bw, ok := w.(batchSampleWriter); ok {
			if err := bw.WriteSamples(rows); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteSample(r); err != nil {
				errs = append(errs, err)
				break
			}
		}
	}
	return errors.Join(errs...)
}

// WriteSummary sends the summary to every summary writer.
func (mw *MultiWriter) WriteSummary(row telemetry.SummaryRow) error {
	var errs []error
	for _, w := range mw.summaries {
		if err := w.WriteSummary(row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type adminStatusSetter interface {
	SetAdminStatus(bool)
}

// SetAdminStatus forwards the admin indicator to writers that display it.
func (mw *MultiWriter) SetAdminStatus(active bool) {
	for _, w := range mw.samples {
		if s, ok := w.(adminStatusSetter); ok {
			s.SetAdminStatus(active)
		}
	}
}
