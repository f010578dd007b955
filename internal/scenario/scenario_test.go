package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"vanet-sim/internal/radio"
	"vanet-sim/internal/routing"
)

func TestResolveDefaults(t *testing.T) {
	p, err := Resolve(0, Overrides{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Nodes != 156 || p.TotalTime != 300.01 || p.TxPower != 20 {
		t.Fatalf("unexpected defaults %+v", p)
	}
	if p.Protocol != routing.AODV || p.LossModel != radio.ItuR1411Los || p.Mobility != MobilityTrace {
		t.Fatalf("unexpected selectors %+v", p)
	}
	if p.CSVFile != "vanet-routing.output.csv" || p.CSVFile2 != "vanet-routing.output2.csv" {
		t.Fatalf("unexpected csv names %s %s", p.CSVFile, p.CSVFile2)
	}
}

func TestResolvePrecedence(t *testing.T) {
	tests := []struct {
		name      string
		id        int
		o         Overrides
		wantNodes int
		wantTime  float64
	}{
		{"scenario value over default", 1, Overrides{}, 40, 10},
		{"explicit over scenario", 1, Overrides{Nodes: Some(80)}, 80, 10},
		{"explicit equal to default still wins", 1, Overrides{Nodes: Some(156), TotalTime: Some(300.01)}, 156, 300.01},
		{"unknown scenario passes through", 42, Overrides{}, 156, 300.01},
		{"trace scenario", 3, Overrides{}, 210, 300.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Resolve(tt.id, tt.o)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if p.Nodes != tt.wantNodes || p.TotalTime != tt.wantTime {
				t.Fatalf("nodes %d time %v, want %d %v", p.Nodes, p.TotalTime, tt.wantNodes, tt.wantTime)
			}
		})
	}
}

func TestScenarioOneUsesRandomWaypoint(t *testing.T) {
	p, err := Resolve(1, Overrides{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Mobility != MobilityRandomWaypoint || p.TraceFile != "" || p.LogFile != "" {
		t.Fatalf("scenario 1 = %+v", p)
	}
}

func TestTxPowerExplicitlyConfiguredIsKept(t *testing.T) {
	p, err := Resolve(2, Overrides{TxPower: Some(7.5)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.TxPower != 7.5 {
		t.Fatalf("txp = %v, want 7.5", p.TxPower)
	}
}

func TestForcedProtocol(t *testing.T) {
	p, err := Resolve(5, Overrides{Protocol: Some(int(routing.OLSR)), SafetyRange: Some(300.0)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Protocol != routing.None || p.SafetyRange != 145 || p.Flows() != 0 {
		t.Fatalf("scenario 5 = protocol %v range %v flows %d", p.Protocol, p.SafetyRange, p.Flows())
	}
	if p.Nodes != 180 || p.TotalTime != 781 {
		t.Fatalf("scenario 5 sizing = %d %v", p.Nodes, p.TotalTime)
	}
}

func TestCSVNamesDistinct(t *testing.T) {
	for _, id := range IDs() {
		p, err := Resolve(id, Overrides{})
		if err != nil {
			t.Fatalf("Resolve(%d): %v", id, err)
		}
		if p.CSVFile == p.CSVFile2 {
			t.Fatalf("scenario %d writes both logs to %s", id, p.CSVFile)
		}
	}
}

func TestResolveRejects(t *testing.T) {
	if _, err := Resolve(1, Overrides{Protocol: Some(9)}); !errors.Is(err, routing.ErrUnknownProtocol) {
		t.Fatalf("protocol 9 error = %v", err)
	}
	if _, err := Resolve(1, Overrides{LossModel: Some(7)}); !errors.Is(err, radio.ErrUnknownLossModel) {
		t.Fatalf("loss model 7 error = %v", err)
	}
	if _, err := Resolve(1, Overrides{Nodes: Some(10), Sinks: Some(6)}); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("too many sinks error = %v", err)
	}
	if _, err := Resolve(1, Overrides{Mobility: Some(3)}); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("mobility 3 error = %v", err)
	}
}

func TestBuiltInDescriptions(t *testing.T) {
	if got := IDs(); len(got) != 5 || got[0] != 1 || got[4] != 5 {
		t.Fatalf("ids = %v", got)
	}
	for id, sc := range BuiltIn() {
		if sc.ID != id || sc.Description == "" || sc.Name == "" {
			t.Fatalf("scenario %d incomplete: %+v", id, sc)
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	data := "nodes: 60\ntxp: 7.5\nflowmon: false\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	o, err := LoadOverrides(path)
	if err != nil {
		t.Fatalf("LoadOverrides: %v", err)
	}
	if v, ok := o.Nodes.Get(); !ok || v != 60 {
		t.Fatalf("nodes = %v,%v", v, ok)
	}
	if v, ok := o.FlowMon.Get(); !ok || v {
		t.Fatalf("flowmon = %v,%v want explicit false", v, ok)
	}
	if o.Sinks.IsSet() {
		t.Fatalf("sinks unexpectedly set")
	}
}
