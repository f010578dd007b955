package sim

import (
	"encoding/csv"
	"fmt"
	"os"

	"vanet-sim/internal/telemetry"
)

// CSVWriter appends samples and the summary to the two experiment CSV
// logs. Both files are truncated and headed on creation and flushed after
// every row so a killed run still leaves complete lines.
type CSVWriter struct {
	sampleFile  *os.File
	summaryFile *os.File
	samples     *csv.Writer
	summary     *csv.Writer
}

// NewCSVWriter creates samplePath and summaryPath with their headers.
func NewCSVWriter(samplePath, summaryPath string) (*CSVWriter, error) {
	sf, err := createWithHeader(samplePath, telemetry.SampleColumns())
	if err != nil {
		return nil, err
	}
	mf, err := createWithHeader(summaryPath, telemetry.SummaryColumns())
	if err != nil {
		sf.Close()
		return nil, err
	}
	return &CSVWriter{
		sampleFile:  sf,
		summaryFile: mf,
		samples:     csv.NewWriter(sf),
		summary:     csv.NewWriter(mf),
	}, nil
}

func createWithHeader(path string, header []string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header %s: %w", path, err)
	}
	return f, nil
}

// WriteSample appends one row to the time-series log.
func (c *CSVWriter) WriteSample(row telemetry.SampleRow) error {
	return writeFlush(c.samples, row.Record())
}

// WriteSamples appends several rows with a single flush.
func (c *CSVWriter) WriteSamples(rows []telemetry.SampleRow) error {
	for _, r := range rows {
		if err := c.samples.Write(r.Record()); err != nil {
			return err
		}
	}
	c.samples.Flush()
	return c.samples.Error()
}

// WriteSummary appends the run summary.
func (c *CSVWriter) WriteSummary(row telemetry.SummaryRow) error {
	return writeFlush(c.summary, row.Record())
}

func writeFlush(w *csv.Writer, rec []string) error {
	if err := w.Write(rec); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// Close closes both files.
func (c *CSVWriter) Close() error {
	var err error
	if e := c.sampleFile.Close(); e != nil {
		err = e
	}
	if e := c.summaryFile.Close(); e != nil && err == nil {
		err = e
	}
	return err
}
