package wave

import (
	"log/slog"
	"net/netip"

	"vanet-sim/internal/engine"
	"vanet-sim/internal/mobility"
	"vanet-sim/internal/radio"
)

// Resolver maps an interface address back to its node id.
type Resolver interface {
	Resolve(addr netip.Addr) (int, bool)
}

// ReceptionTally counts beacon receptions and the subset that arrived
// within the safety range of a moving receiver.
type ReceptionTally struct {
	Stats  *RunStats
	Pop    *mobility.Population
	Ifaces Resolver
	Sched  engine.Scheduler
	Log    *slog.Logger
}

// OnBeacon accounts one beacon from src received at rx.
func (t *ReceptionTally) OnBeacon(rx *mobility.Node, src netip.Addr) error {
	t.Stats.Received++
	if !mobility.IsMoving(rx) {
		return nil
	}
	id, ok := t.Ifaces.Resolve(src)
	if !ok {
		if t.Log != nil {
			t.Log.Debug("beacon from unknown source", "node", rx.ID, "src", src)
		}
		return nil
	}
	d2, err := mobility.SquaredDistance(rx, t.Pop.Node(id))
	if err != nil {
		return err
	}
	if d2 <= t.Stats.RangeSq {
		t.Stats.ReceivedInCoverage++
	}
	return nil
}

// HandlePacket is the receive callback for beacon sockets. A precondition
// failure aborts the run.
func (t *ReceptionTally) HandlePacket(s *radio.Socket, p radio.Packet) {
	if err := t.OnBeacon(s.Node(), p.Src.Addr()); err != nil {
		t.Sched.Fail(err)
	}
}

// RoutedSink counts application packets arriving at a sink.
type RoutedSink struct {
	Stats *RunStats
	Sched engine.Scheduler
	Log   *slog.Logger
}

// HandlePacket is the receive callback for sink sockets.
func (r *RoutedSink) HandlePacket(s *radio.Socket, p radio.Packet) {
	r.Stats.RecordRouted(len(p.Payload))
	if r.Log != nil {
		r.Log.Debug("ROUT received one packet", "t", r.Sched.Now(), "node", s.Node().ID, "from", p.Src.Addr())
	}
}
