package mobility

import (
	"context"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"vanet-sim/internal/engine"
)

const sampleTrace = `
$node_(0) set X_ 100.0
$node_(0) set Y_ 50.0
$node_(0) set Z_ 0.0
$node_(1) set X_ 300.0
$node_(1) set Y_ 50.0
$ns_ at 2.0 "$node_(0) setdest 110.0 50.0 5.0"
$ns_ at 1.0 "$node_(1) set X_ 310.0"
$node_(9) set X_ 1.0
# comment line
`

func TestParseNs2(t *testing.T) {
	tr, err := ParseNs2(strings.NewReader(sampleTrace))
	if err != nil {
		t.Fatalf("ParseNs2: %v", err)
	}
	if got := tr.Initial[0]; got != (r3.Vec{X: 100, Y: 50}) {
		t.Fatalf("node 0 initial = %v", got)
	}
	if len(tr.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(tr.Events))
	}
	if tr.Events[0].At != 1.0 || tr.Events[0].Axis != 'X' {
		t.Fatalf("events not sorted by time: %+v", tr.Events)
	}
	if ev := tr.Events[1]; ev.Speed != 5 || ev.Dest.X != 110 {
		t.Fatalf("setdest parsed as %+v", ev)
	}
}

func TestParseNs2BadNumber(t *testing.T) {
	_, err := ParseNs2(strings.NewReader(`$node_(0) set X_ abc`))
	if err == nil {
		t.Fatalf("expected parse error")
	}
}

type velocityProbe struct {
	n    *Node
	seen []r3.Vec
}

func (p *velocityProbe) Fire(engine.Scheduler) { p.seen = append(p.seen, p.n.Velocity()) }

func TestTracePlayback(t *testing.T) {
	tr, err := ParseNs2(strings.NewReader(sampleTrace))
	if err != nil {
		t.Fatalf("ParseNs2: %v", err)
	}
	eng := engine.New()
	pop := NewPopulation(2, DefaultAddrBase, eng.Now)
	pb := &TracePlayback{Pop: pop, Trace: tr}
	if err := pb.Start(eng); err != nil {
		t.Fatalf("Start: %v", err)
	}
	probe := &velocityProbe{n: pop.Node(0)}
	eng.ScheduleAfter(1.5, probe)
	eng.ScheduleAfter(2.5, probe)
	eng.ScheduleAfter(4.5, probe)
	if err := eng.Run(context.Background(), 6); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []r3.Vec{{}, {X: 5}, {}}
	for i, w := range want {
		if probe.seen[i] != w {
			t.Fatalf("velocity sample %d = %v, want %v", i, probe.seen[i], w)
		}
	}
	if got := pop.Node(0).Position(); got.X != 110 || got.Y != 50 {
		t.Fatalf("node 0 final position = %v", got)
	}
	if got := pop.Node(1).Position(); got.X != 310 {
		t.Fatalf("node 1 X = %v, want 310", got.X)
	}
}
