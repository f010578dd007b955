package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"vanet-sim/internal/telemetry"
)

// JSONStdoutWriter prints samples and the summary as JSON to STDOUT.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

// WriteSample outputs a sample row in JSON format.
func (w *JSONStdoutWriter) WriteSample(row telemetry.SampleRow) error {
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// WriteSummary outputs the summary row in JSON format.
func (w *JSONStdoutWriter) WriteSummary(row telemetry.SummaryRow) error {
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}
