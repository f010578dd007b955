package sim

import (
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"vanet-sim/internal/telemetry"
)

// DefaultSubject prefixes the NATS subjects. Samples go to
// <prefix>.samples and the summary to <prefix>.summary.
const DefaultSubject = "vanet"

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSWriter publishes rows as JSON messages.
type NATSWriter struct {
	pub    publisher
	nc     *nats.Conn
	prefix string
}

// NewNATSWriter connects to url.
func NewNATSWriter(url, prefix string) (*NATSWriter, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = DefaultSubject
	}
	slog.Info("connected to nats", "url", url, "subject", prefix)
	return &NATSWriter{pub: nc, nc: nc, prefix: prefix}, nil
}

// WriteSample publishes row on <prefix>.samples.
func (w *NATSWriter) WriteSample(row telemetry.SampleRow) error {
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return w.pub.Publish(w.prefix+".samples", data)
}

// WriteSummary publishes row on <prefix>.summary.
func (w *NATSWriter) WriteSummary(row telemetry.SummaryRow) error {
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return w.pub.Publish(w.prefix+".summary", data)
}

// Close drains and closes the connection.
func (w *NATSWriter) Close() error {
	if w.nc == nil {
		return nil
	}
	return w.nc.Drain()
}
