package sim

import (
	"errors"
	"testing"

	"vanet-sim/internal/telemetry"
)

type stubWriter struct {
	samples int
	batches int
	summary int
	admin   bool
	err     error
}

func (s *stubWriter) WriteSample(telemetry.SampleRow) error   { s.samples++; return s.err }
func (s *stubWriter) WriteSummary(telemetry.SummaryRow) error { s.summary++; return s.err }
func (s *stubWriter) SetAdminStatus(active bool)              { s.admin = active }

type stubBatchWriter struct{ stubWriter }

func (s *stubBatchWriter) WriteSamples(rows []telemetry.SampleRow) error {
	s.batches++
	return s.err
}

type sampleOnly struct{ n int }

func (s *sampleOnly) WriteSample(telemetry.SampleRow) error { s.n++; return nil }

func TestMultiWriterFanOut(t *testing.T) {
	a := &stubWriter{}
	b := &sampleOnly{}
	mw := NewMultiWriter(nil, nil)
	mw.Add(a)
	mw.Add(b)
	if err := mw.WriteSample(telemetry.SampleRow{}); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := mw.WriteSummary(telemetry.SummaryRow{}); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	if a.samples != 1 || b.n != 1 || a.summary != 1 {
		t.Fatalf("a=%+v b=%+v", a, b)
	}
}

func TestMultiWriterBatchPreferred(t *testing.T) {
	bw := &stubBatchWriter{}
	plain := &stubWriter{}
	mw := NewMultiWriter([]SampleWriter{bw, plain}, nil)
	rows := make([]telemetry.SampleRow, 3)
	if err := mw.WriteSamples(rows); err != nil {
		t.Fatalf("WriteSamples: %v", err)
	}
	if bw.batches != 1 || bw.samples != 0 {
		t.Fatalf("batch writer = %+v", bw)
	}
	if plain.samples != 3 {
		t.Fatalf("plain writer samples = %d", plain.samples)
	}
}

func TestMultiWriterContinuesAfterError(t *testing.T) {
	boom := errors.New("boom")
	bad := &stubWriter{err: boom}
	good := &stubWriter{}
	mw := NewMultiWriter([]SampleWriter{bad, good}, []SummaryWriter{bad, good})
	if err := mw.WriteSample(telemetry.SampleRow{}); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if good.samples != 1 {
		t.Fatalf("second writer skipped")
	}
	if err := mw.WriteSummary(telemetry.SummaryRow{}); !errors.Is(err, boom) || good.summary != 1 {
		t.Fatalf("summary err = %v good=%d", err, good.summary)
	}
}

func TestMultiWriterSetAdminStatus(t *testing.T) {
	s := &stubWriter{}
	mw := NewMultiWriter([]SampleWriter{s, &sampleOnly{}}, nil)
	mw.SetAdminStatus(true)
	if !s.admin {
		t.Fatalf("admin status not forwarded")
	}
}
