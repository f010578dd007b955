package main

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vanet-sim/internal/scenario"
	"vanet-sim/internal/telemetry"
)

func clearSinkEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GREPTIMEDB_ENDPOINT", "CLICKHOUSE_ADDR", "NATS_URL"} {
		t.Setenv(k, "")
	}
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++
	}
	return n
}

func TestNewWritersCSVAndLogFile(t *testing.T) {
	clearSinkEnv(t)
	dir := t.TempDir()
	params, err := scenario.Resolve(1, scenario.Overrides{
		CSVFile:  scenario.Some("a.csv"),
		CSVFile2: scenario.Some("b.csv"),
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	jsonl := filepath.Join(dir, "samples.jsonl")
	out, err := newWriters(&params, writerOptions{dir: dir, jsonl: jsonl, stdout: stdoutNone})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	if out.metrics == nil {
		t.Fatalf("expected metrics collector")
	}
	if err := out.writer.WriteSample(telemetry.SampleRow{SimulationSecond: 1, RoutingProtocol: "AODV"}); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := out.writer.WriteSummary(telemetry.SummaryRow{CoveragePDR: 1}); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if n := countLines(t, filepath.Join(dir, "a.csv")); n != 2 {
		t.Fatalf("sample csv has %d lines, want 2", n)
	}
	if n := countLines(t, filepath.Join(dir, "b.csv")); n != 2 {
		t.Fatalf("summary csv has %d lines, want 2", n)
	}
	if n := countLines(t, jsonl); n != 1 {
		t.Fatalf("jsonl has %d lines, want 1", n)
	}
	if n := countLines(t, jsonl+".summary"); n != 1 {
		t.Fatalf("jsonl summary has %d lines, want 1", n)
	}
}

func TestNewWritersWithoutParams(t *testing.T) {
	clearSinkEnv(t)
	out, err := newWriters(nil, writerOptions{stdout: stdoutNone})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer out.Close()
	if len(out.closers) != 0 {
		t.Fatalf("expected no files without params, got %d closers", len(out.closers))
	}
}

func TestNewWritersErrors(t *testing.T) {
	clearSinkEnv(t)
	if _, err := newWriters(nil, writerOptions{stdout: "html"}); err == nil {
		t.Fatalf("expected error for unknown stdout mode")
	}

	t.Setenv("GREPTIMEDB_ENDPOINT", "localhost:abc")
	_, err := newWriters(nil, writerOptions{stdout: stdoutNone})
	if err == nil || !strings.Contains(err.Error(), "greptimedb") {
		t.Fatalf("expected greptimedb error, got %v", err)
	}
}

func TestResolveStdout(t *testing.T) {
	if got := resolveStdout(stdoutColor); got != stdoutColor {
		t.Fatalf("explicit mode = %q", got)
	}
	// go test pipes stdout, so auto selection falls back to json
	if got := resolveStdout(""); got != stdoutJSON {
		t.Fatalf("auto mode = %q, want json", got)
	}
}
