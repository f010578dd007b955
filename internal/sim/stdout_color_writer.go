// ColorStdoutWriter prints human-friendly, colorized samples to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"vanet-sim/internal/scenario"
	"vanet-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// ColorStdoutWriter prints sample rows using ANSI colors.
type ColorStdoutWriter struct {
	params *scenario.Parameters
	out    io.Writer
	once   sync.Once
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(params *scenario.Parameters) *ColorStdoutWriter {
	return &ColorStdoutWriter{params: params, out: os.Stdout}
}

// pdrColor grades a delivery ratio.
func pdrColor(pdr float64) string {
	switch {
	case pdr >= 0.9:
		return colorGreen
	case pdr >= 0.5:
		return colorYellow
	}
	return colorRed
}

func (w *ColorStdoutWriter) printOverview() {
	if w.params == nil {
		return
	}
	p := w.params
	fmt.Fprintln(w.out, "Experiment Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Scenario:\t%d\n", p.Scenario)
	fmt.Fprintf(tw, "Nodes:\t%d\n", p.Nodes)
	fmt.Fprintf(tw, "Sinks:\t%d\n", p.Sinks)
	fmt.Fprintf(tw, "Total Time (s):\t%.2f\n", p.TotalTime)
	fmt.Fprintf(tw, "Mobility:\t%s\n", p.Mobility)
	if p.Mobility == scenario.MobilityTrace {
		fmt.Fprintf(tw, "Trace File:\t%s\n", p.TraceFile)
	}
	fmt.Fprintf(tw, "Routing:\t%s\n", p.Protocol)
	fmt.Fprintf(tw, "Loss Model:\t%s\n", p.LossModel)
	fmt.Fprintf(tw, "PHY Mode:\t%s\n", p.DataMode())
	fmt.Fprintf(tw, "Tx Power (dBm):\t%.1f\n", p.TxPower)
	fmt.Fprintf(tw, "Safety Range (m):\t%.0f\n", p.SafetyRange)
	fmt.Fprintf(tw, "BSM:\t%d B every %.2f s\n", p.BeaconSize, p.BeaconInterval)
	tw.Flush()
	fmt.Fprintln(w.out)
}

// WriteSample outputs a single sample row in colorized format.
func (w *ColorStdoutWriter) WriteSample(row telemetry.SampleRow) error {
	w.once.Do(w.printOverview)

	fmt.Fprintf(w.out, "%s[t=%6.1fs]%s ", colorGray, row.SimulationSecond, colorReset)
	fmt.Fprintf(w.out, "%s%s%s ", colorBlue, row.RoutingProtocol, colorReset)
	fmt.Fprintf(w.out, "%srx=%.3fkbps%s ", colorCyan, row.ReceiveRateKbps, colorReset)
	fmt.Fprintf(w.out, "%spkts=%d%s ", colorMagenta, row.PacketsReceived, colorReset)
	fmt.Fprintf(w.out, "bsm=%d/%d ", row.WavePktsReceived, row.WavePktsSent)
	fmt.Fprintf(w.out, "%scov=%d/%d%s ", colorGray, row.ReceivedInCoverage, row.ExpectedInCoverage, colorReset)
	fmt.Fprintf(w.out, "%spdr=%.4f%s", pdrColor(row.CoveragePDR), row.CoveragePDR, colorReset)
	fmt.Fprintln(w.out)
	return nil
}

// WriteSamples prints multiple sample rows.
func (w *ColorStdoutWriter) WriteSamples(rows []telemetry.SampleRow) error {
	for _, r := range rows {
		_ = w.WriteSample(r)
	}
	return nil
}

// WriteSummary prints the end-of-run table.
func (w *ColorStdoutWriter) WriteSummary(r telemetry.SummaryRow) error {
	w.once.Do(w.printOverview)
	fmt.Fprintf(w.out, "\n%sSUMMARY%s run=%s at %s\n", colorBlue, colorReset, r.RunID, r.Timestamp.Format(time.RFC3339))
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "BSM PDR:\t%s%.4f%s\n", pdrColor(r.CoveragePDR), r.CoveragePDR, colorReset)
	fmt.Fprintf(tw, "Mean Delay (s):\t%.6f\n", r.MeanDelay)
	fmt.Fprintf(tw, "Mean Jitter (s):\t%.6f\n", r.MeanJitter)
	fmt.Fprintf(tw, "Mean Tx Pkt Size:\t%.1f\n", r.MeanTxPktSize)
	fmt.Fprintf(tw, "Mean Rx Pkt Size:\t%.1f\n", r.MeanRxPktSize)
	fmt.Fprintf(tw, "Mean Loss Ratio:\t%.4f\n", r.MeanPktLossRatio)
	fmt.Fprintf(tw, "Mean Rx (kbps):\t%.3f\n", r.MeanRxKbps)
	fmt.Fprintf(tw, "Routing (kbps):\t%.3f\n", r.MeanRoutingKbps)
	return tw.Flush()
}
