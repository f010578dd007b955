package wave

import (
	"fmt"
	"log/slog"

	"vanet-sim/internal/engine"
	"vanet-sim/internal/mobility"
)

// Sender is the socket surface a generator needs.
type Sender interface {
	Send(payload []byte) error
	Close() error
}

// BeaconGenerator sends one beacon per Interval from Node until Remaining
// reaches zero, then closes Socket.
type BeaconGenerator struct {
	Stats     *RunStats
	Pop       *mobility.Population
	Node      *mobility.Node
	Socket    Sender
	Size      int
	Interval  float64
	Remaining int
	Log       *slog.Logger
}

// BeaconBudget returns how many beacon slots fit between the one second
// warm-up and totalTime.
func BeaconBudget(totalTime, interval float64) int {
	if interval <= 0 || totalTime <= 1 {
		return 0
	}
	return int((totalTime - 1) / interval)
}

// Fire implements engine.Task.
func (g *BeaconGenerator) Fire(s engine.Scheduler) {
	if g.Remaining <= 0 {
		if err := g.Socket.Close(); err != nil {
			g.logger().Warn("close beacon socket", "node", g.Node.ID, "err", err)
		}
		return
	}
	// A parked sender skips this slot but still uses it up.
	if mobility.IsMoving(g.Node) {
		if err := g.send(); err != nil {
			s.Fail(err)
			return
		}
	}
	g.Remaining--
	s.ScheduleAfter(g.Interval, g)
}

func (g *BeaconGenerator) send() error {
	if err := g.Socket.Send(make([]byte, g.Size)); err != nil {
		return fmt.Errorf("node %d beacon: %w", g.Node.ID, err)
	}
	g.Stats.Sent++
	g.Stats.SentTotal++
	if g.Stats.SentTotal%1000 == 0 {
		g.logger().Info("sending beacon", "count", g.Stats.SentTotal)
	}
	for _, rx := range g.Pop.Nodes() {
		if rx.ID == g.Node.ID || !mobility.IsMoving(rx) {
			continue
		}
		d2, err := mobility.SquaredDistance(g.Node, rx)
		if err != nil {
			return err
		}
		if d2 <= g.Stats.RangeSq {
			g.Stats.ExpectedInCoverage++
		}
	}
	return nil
}

func (g *BeaconGenerator) logger() *slog.Logger {
	if g.Log == nil {
		return slog.Default()
	}
	return g.Log
}
