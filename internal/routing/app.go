package routing

import (
	"net/netip"

	"vanet-sim/internal/engine"
	"vanet-sim/internal/mobility"
)

// EphemeralPortBase is the first source port handed to traffic sources.
const EphemeralPortBase = 49153

// OnOffApp is a constant bit rate source that is always on: one packet of
// PacketSize bytes every PacketSize*8/DataRate seconds until StopTime.
type OnOffApp struct {
	Router     *GeoRouter
	Node       *mobility.Node
	LocalPort  uint16
	Remote     netip.AddrPort
	PacketSize int
	DataRate   float64
	StopTime   float64
}

// Interval returns the gap between consecutive packets.
func (a *OnOffApp) Interval() float64 {
	return float64(a.PacketSize*8) / a.DataRate
}

// Fire implements engine.Task.
func (a *OnOffApp) Fire(s engine.Scheduler) {
	if s.Now() >= a.StopTime {
		return
	}
	if err := a.Router.Send(a.Node, a.LocalPort, a.Remote, make([]byte, a.PacketSize)); err != nil {
		s.Fail(err)
		return
	}
	if a.DataRate > 0 {
		s.ScheduleAfter(a.Interval(), a)
	}
}
