package mobility

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"

	"vanet-sim/internal/engine"
)

var (
	ns2SetRe     = regexp.MustCompile(`^\s*\$node_\((\d+)\)\s+set\s+([XYZ])_\s+(\S+)`)
	ns2AtSetRe   = regexp.MustCompile(`^\s*\$ns_\s+at\s+(\S+)\s+"\$node_\((\d+)\)\s+set\s+([XYZ])_\s+(\S+)\s*"`)
	ns2SetDestRe = regexp.MustCompile(`^\s*\$ns_\s+at\s+(\S+)\s+"\$node_\((\d+)\)\s+setdest\s+(\S+)\s+(\S+)\s+(\S+)\s*"`)
)

// TraceEvent is one timed movement command from an ns-2 trace.
type TraceEvent struct {
	At    float64
	Node  int
	Dest  r3.Vec
	Speed float64
	// Axis is 'X', 'Y' or 'Z' for a timed position assignment and 0 for setdest.
	Axis  byte
	Value float64
}

// Trace is a parsed ns-2 movement file.
type Trace struct {
	Initial map[int]r3.Vec
	Events  []TraceEvent
}

// ParseNs2 reads $node_(i) set X_/Y_/Z_ and $ns_ at t "..." lines. Unknown
// lines are skipped.
func ParseNs2(r io.Reader) (*Trace, error) {
	tr := &Trace{Initial: make(map[int]r3.Vec)}
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if m := ns2SetDestRe.FindStringSubmatch(line); m != nil {
			vals, err := parseFloats(m[1], m[3], m[4], m[5])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			id, _ := strconv.Atoi(m[2])
			tr.Events = append(tr.Events, TraceEvent{
				At:    vals[0],
				Node:  id,
				Dest:  r3.Vec{X: vals[1], Y: vals[2]},
				Speed: vals[3],
			})
			continue
		}
		if m := ns2AtSetRe.FindStringSubmatch(line); m != nil {
			vals, err := parseFloats(m[1], m[4])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			id, _ := strconv.Atoi(m[2])
			tr.Events = append(tr.Events, TraceEvent{At: vals[0], Node: id, Axis: m[3][0], Value: vals[1]})
			continue
		}
		if m := ns2SetRe.FindStringSubmatch(line); m != nil {
			vals, err := parseFloats(m[3])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			id, _ := strconv.Atoi(m[1])
			p := tr.Initial[id]
			setAxis(&p, m[2][0], vals[0])
			tr.Initial[id] = p
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read ns-2 trace: %w", err)
	}
	sort.SliceStable(tr.Events, func(i, j int) bool { return tr.Events[i].At < tr.Events[j].At })
	return tr, nil
}

// LoadNs2 opens and parses a trace file.
func LoadNs2(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ns-2 trace: %w", err)
	}
	defer f.Close()
	return ParseNs2(f)
}

func parseFloats(ss ...string) ([]float64, error) {
	out := make([]float64, len(ss))
	for i, s := range ss {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func setAxis(p *r3.Vec, axis byte, v float64) {
	switch axis {
	case 'X':
		p.X = v
	case 'Y':
		p.Y = v
	case 'Z':
		p.Z = v
	}
}

// TracePlayback replays a Trace onto a Population. Nodes missing from the
// trace stay parked at the origin. Trace nodes beyond the population are
// ignored.
type TracePlayback struct {
	Pop   *Population
	Trace *Trace
}

// Start places every node and schedules all trace events.
func (tp *TracePlayback) Start(s engine.Scheduler) error {
	now := s.Now()
	for _, n := range tp.Pop.Nodes() {
		tp.Pop.SetCourse(now, n, tp.Trace.Initial[n.ID], r3.Vec{})
	}
	for i := range tp.Trace.Events {
		ev := tp.Trace.Events[i]
		n := tp.Pop.Node(ev.Node)
		if n == nil {
			continue
		}
		s.ScheduleAfter(ev.At-now, &traceStep{pop: tp.Pop, n: n, ev: ev})
	}
	return nil
}

type traceStep struct {
	pop *Population
	n   *Node
	ev  TraceEvent
	// arrival marks the stop scheduled when a setdest leg completes.
	arrival bool
	leg     uint64
}

func (st *traceStep) Fire(s engine.Scheduler) {
	now := s.Now()
	pos := st.n.Position()
	switch {
	case st.arrival:
		if st.leg != st.n.leg {
			return
		}
		st.pop.SetCourse(now, st.n, st.ev.Dest, r3.Vec{})
	case st.ev.Axis != 0:
		setAxis(&pos, st.ev.Axis, st.ev.Value)
		st.pop.SetCourse(now, st.n, pos, st.n.Velocity())
	default:
		dest := r3.Vec{X: st.ev.Dest.X, Y: st.ev.Dest.Y, Z: pos.Z}
		delta := r3.Sub(dest, pos)
		dist := r3.Norm(delta)
		st.n.leg++
		leg := st.n.leg
		if dist == 0 || st.ev.Speed <= 0 {
			st.pop.SetCourse(now, st.n, pos, r3.Vec{})
			return
		}
		st.pop.SetCourse(now, st.n, pos, r3.Scale(st.ev.Speed/dist, delta))
		s.ScheduleAfter(dist/st.ev.Speed, &traceStep{
			pop:     st.pop,
			n:       st.n,
			ev:      TraceEvent{Node: st.n.ID, Dest: dest},
			arrival: true,
			leg:     leg,
		})
	}
}
