package sim

import (
	"encoding/json"
	"os"

	"vanet-sim/internal/telemetry"
)

// FileWriter writes samples and summaries to JSONL files.
type FileWriter struct {
	sampleFile  *os.File
	summaryFile *os.File
	sampleEnc   *json.Encoder
	summaryEnc  *json.Encoder
}

// NewFileWriter creates a FileWriter. summaryPath may be empty to skip the summary log.
func NewFileWriter(samplePath, summaryPath string) (*FileWriter, error) {
	sf, err := os.Create(samplePath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{sampleFile: sf, sampleEnc: json.NewEncoder(sf)}
	if summaryPath != "" {
		mf, err := os.Create(summaryPath)
		if err != nil {
			sf.Close()
			return nil, err
		}
		fw.summaryFile = mf
		fw.summaryEnc = json.NewEncoder(mf)
	}
	return fw, nil
}

// WriteSample logs a single sample row.
func (f *FileWriter) WriteSample(row telemetry.SampleRow) error {
	return f.sampleEnc.Encode(row)
}

// WriteSamples logs multiple sample rows.
func (f *FileWriter) WriteSamples(rows []telemetry.SampleRow) error {
	for _, r := range rows {
		if err := f.WriteSample(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary logs the summary row, if enabled.
func (f *FileWriter) WriteSummary(row telemetry.SummaryRow) error {
	if f.summaryEnc == nil {
		return nil
	}
	return f.summaryEnc.Encode(row)
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	if f.sampleFile != nil {
		if e := f.sampleFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.summaryFile != nil {
		if e := f.summaryFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
