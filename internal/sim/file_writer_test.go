package sim

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vanet-sim/internal/telemetry"
)

func TestFileWriter(t *testing.T) {
	dir := t.TempDir()
	ts := time.Unix(0, 0).UTC()
	sample := telemetry.SampleRow{RunID: "r1", RoutingProtocol: "OLSR", SimulationSecond: 4, WavePktsSent: 12, CoveragePDR: 0.75, Timestamp: ts}
	summary := telemetry.SummaryRow{RunID: "r1", CoveragePDR: 0.75, MeanDelay: 0.01, Timestamp: ts}

	cases := []struct {
		name    string
		summary bool
	}{
		{"samples only", false},
		{"with summary", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			samplePath := filepath.Join(dir, strings.ReplaceAll(tc.name, " ", "_")+".jsonl")
			summaryPath := ""
			if tc.summary {
				summaryPath = samplePath + ".summary"
			}
			fw, err := NewFileWriter(samplePath, summaryPath)
			if err != nil {
				t.Fatalf("NewFileWriter: %v", err)
			}
			if err := fw.WriteSamples([]telemetry.SampleRow{sample, sample}); err != nil {
				t.Fatalf("WriteSamples: %v", err)
			}
			if err := fw.WriteSummary(summary); err != nil {
				t.Fatalf("WriteSummary: %v", err)
			}
			if err := fw.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			f, err := os.Open(samplePath)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer f.Close()
			sc := bufio.NewScanner(f)
			n := 0
			for sc.Scan() {
				var got telemetry.SampleRow
				if err := json.Unmarshal(sc.Bytes(), &got); err != nil {
					t.Fatalf("decode sample: %v", err)
				}
				if got.WavePktsSent != 12 || got.RoutingProtocol != "OLSR" || !got.Timestamp.Equal(ts) {
					t.Fatalf("unexpected sample: %#v", got)
				}
				n++
			}
			if n != 2 {
				t.Fatalf("lines = %d, want 2", n)
			}
			if !tc.summary {
				return
			}
			data, err := os.ReadFile(summaryPath)
			if err != nil {
				t.Fatalf("read summary: %v", err)
			}
			var got telemetry.SummaryRow
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("decode summary: %v", err)
			}
			if got.MeanDelay != 0.01 {
				t.Fatalf("unexpected summary: %#v", got)
			}
		})
	}
}

func TestCSVWriterHeadersAndRows(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "out.csv")
	p2 := filepath.Join(dir, "out2.csv")
	w, err := NewCSVWriter(p1, p2)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	row := telemetry.SampleRow{SimulationSecond: 1, ReceiveRateKbps: 1.024, PacketsReceived: 2, NumberOfSinks: 10, RoutingProtocol: "AODV", TransmissionPower: 20, WavePktsSent: 30, WavePktsReceived: 90, WavePktsPDR: 3, ExpectedInCoverage: 100, ReceivedInCoverage: 95, CoveragePDR: 0.95}
	if err := w.WriteSample(row); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := w.WriteSummary(telemetry.SummaryRow{CoveragePDR: 0.95}); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(p1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if lines[0] != telemetry.SampleHeader {
		t.Fatalf("header = %q", lines[0])
	}
	if want := "1,1.024,2,10,AODV,20,30,90,3,100,95,0.95"; lines[1] != want {
		t.Fatalf("row = %q, want %q", lines[1], want)
	}

	data, err = os.ReadFile(p2)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines = strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if lines[0] != telemetry.SummaryHeader || lines[1] != "0.95,0,0,0,0,0,0,0" {
		t.Fatalf("summary file = %q", lines)
	}
}

func TestCSVWriterTruncates(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.csv")
	p2 := filepath.Join(dir, "b.csv")
	if err := os.WriteFile(p1, []byte("stale\nstale\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	w, err := NewCSVWriter(p1, p2)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	w.Close()
	data, _ := os.ReadFile(p1)
	if strings.Contains(string(data), "stale") {
		t.Fatalf("file not truncated: %q", data)
	}
}
