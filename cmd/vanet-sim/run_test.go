package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func parseRunFlags(t *testing.T, args ...string) (*pflag.FlagSet, *runFlags) {
	t.Helper()
	var f runFlags
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	bindRunFlags(fs, &f)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return fs, &f
}

func TestFlagOverridesOnlyChanged(t *testing.T) {
	fs, f := parseRunFlags(t, "--nodes=20", "--txp=20", "--flowmon=false", "--80211Mode=2")
	o := flagOverrides(fs, f)
	if v, ok := o.Nodes.Get(); !ok || v != 20 {
		t.Fatalf("nodes = %v,%v", v, ok)
	}
	if v, ok := o.TxPower.Get(); !ok || v != 20 {
		t.Fatalf("txp equal to default must still be explicit: %v,%v", v, ok)
	}
	if v, ok := o.FlowMon.Get(); !ok || v {
		t.Fatalf("flowmon = %v,%v", v, ok)
	}
	if v, ok := o.Band.Get(); !ok || v != 2 {
		t.Fatalf("band = %v,%v", v, ok)
	}
	if o.Sinks.IsSet() || o.Protocol.IsSet() || o.TotalTime.IsSet() {
		t.Fatalf("unchanged flags leaked into overrides: %+v", o)
	}
}

func TestResolveParamsLayers(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "exp.yaml")
	body := "scenario: 1\nnodes: 30\ntotal_time: 4\noutputs:\n  stdout: color\n  jsonl: x.jsonl\n"
	if err := os.WriteFile(cfg, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	tests := []struct {
		name       string
		args       []string
		wantNodes  int
		wantTime   float64
		wantStdout string
	}{
		{"config only", []string{"--config=" + cfg}, 30, 4, "color"},
		{"flag over config", []string{"--config=" + cfg, "--nodes=12", "--sinks=5", "--stdout=none"}, 12, 4, "none"},
		{"no config", []string{"--scenario=1"}, 40, 10, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, f := parseRunFlags(t, tt.args...)
			p, outputs, err := resolveParams(fs, f)
			if err != nil {
				t.Fatalf("resolveParams: %v", err)
			}
			if p.Nodes != tt.wantNodes || p.TotalTime != tt.wantTime {
				t.Fatalf("nodes %d time %v, want %d %v", p.Nodes, p.TotalTime, tt.wantNodes, tt.wantTime)
			}
			if outputs.Stdout != tt.wantStdout {
				t.Fatalf("stdout = %q, want %q", outputs.Stdout, tt.wantStdout)
			}
		})
	}
}

func TestResolveParamsBadConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "exp.yaml")
	if err := os.WriteFile(cfg, []byte("protocol: 9\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	fs, f := parseRunFlags(t, "--config="+cfg)
	if _, _, err := resolveParams(fs, f); err == nil {
		t.Fatalf("expected schema error")
	}
}

func TestRunExperimentWritesCSV(t *testing.T) {
	clearSinkEnv(t)
	dir := t.TempDir()
	cmd := &cobra.Command{}
	var f runFlags
	bindRunFlags(cmd.Flags(), &f)
	args := []string{
		"--scenario=1", "--nodes=6", "--sinks=1", "--totaltime=3",
		"--out=" + dir, "--stdout=none", "--flowmon=false", "--run-id=cli-test",
	}
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := runExperiment(cmd, &f); err != nil {
		t.Fatalf("runExperiment: %v", err)
	}
	if n := countLines(t, filepath.Join(dir, "vanet-routing.output.csv")); n < 3 {
		t.Fatalf("sample csv has %d lines, want header and samples", n)
	}
	if n := countLines(t, filepath.Join(dir, "vanet-routing.output2.csv")); n != 2 {
		t.Fatalf("summary csv has %d lines, want 2", n)
	}
	if _, err := os.Stat(filepath.Join(dir, "vanet-routing-compare.flowmon")); !os.IsNotExist(err) {
		t.Fatalf("flowmon written although disabled: %v", err)
	}
}
