package routing

import (
	"fmt"
	"io"
	"net/netip"
	"text/tabwriter"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/spatial/r3"

	"vanet-sim/internal/engine"
	"vanet-sim/internal/mobility"
	"vanet-sim/internal/radio"
)

// DefaultRefresh is how long a connectivity snapshot stays valid.
const DefaultRefresh = 1.0

// GeoRouter forwards unicast packets along the fewest-hop path through
// nodes currently in radio range of each other. Connectivity is sampled
// once per Refresh interval and shortest-path trees are cached per source
// for that interval.
type GeoRouter struct {
	Refresh float64

	m     *radio.Medium
	sched engine.Scheduler
	flows *FlowMonitor

	builtAt float64
	valid   bool
	g       *simple.UndirectedGraph
	trees   map[int64]path.Shortest
}

// NewGeoRouter routes over m and records every flow in flows.
func NewGeoRouter(s engine.Scheduler, m *radio.Medium, flows *FlowMonitor) *GeoRouter {
	return &GeoRouter{Refresh: DefaultRefresh, m: m, sched: s, flows: flows}
}

// Flows returns the monitor the router records into.
func (r *GeoRouter) Flows() *FlowMonitor { return r.flows }

func (r *GeoRouter) topology() *simple.UndirectedGraph {
	now := r.sched.Now()
	if r.valid && now < r.builtAt+r.Refresh {
		return r.g
	}
	g := simple.NewUndirectedGraph()
	nodes := r.m.Population().Nodes()
	for _, n := range nodes {
		if n.Placed() {
			g.AddNode(simple.Node(n.ID))
		}
	}
	for i, a := range nodes {
		if !a.Placed() {
			continue
		}
		for _, b := range nodes[i+1:] {
			if !b.Placed() {
				continue
			}
			if _, ok := r.m.Reachable(a, b); ok {
				g.SetEdge(g.NewEdge(simple.Node(a.ID), simple.Node(b.ID)))
			}
		}
	}
	r.g, r.builtAt, r.valid = g, now, true
	r.trees = make(map[int64]path.Shortest)
	return g
}

// Route returns the node ids from src to dst inclusive, or false when dst
// is unreachable in the current snapshot.
func (r *GeoRouter) Route(src, dst int) ([]int, bool) {
	g := r.topology()
	if g.Node(int64(src)) == nil || g.Node(int64(dst)) == nil {
		return nil, false
	}
	tree, ok := r.trees[int64(src)]
	if !ok {
		tree = path.DijkstraFrom(simple.Node(src), g)
		r.trees[int64(src)] = tree
	}
	hops, _ := tree.To(int64(dst))
	if len(hops) == 0 {
		return nil, false
	}
	ids := make([]int, len(hops))
	for i, h := range hops {
		ids[i] = int(h.ID())
	}
	return ids, true
}

// Listen binds a sink on node n. Deliveries are counted by the flow
// monitor before recv sees them.
func (r *GeoRouter) Listen(n *mobility.Node, port uint16, recv radio.RecvFunc) (*radio.Socket, error) {
	return r.m.Bind(n, port, func(s *radio.Socket, p radio.Packet) {
		r.flows.RecordRx(tupleOf(p), len(p.Payload), r.sched.Now()-p.SentAt)
		if recv != nil {
			recv(s, p)
		}
	})
}

func tupleOf(p radio.Packet) FiveTuple {
	return FiveTuple{
		Src:      p.Src.Addr(),
		Dst:      p.Dst.Addr(),
		SrcPort:  p.Src.Port(),
		DstPort:  p.Dst.Port(),
		Protocol: IPProtoUDP,
	}
}

// Send forwards payload from node src to dst. Packets without a route or
// without a listener are recorded as lost rather than returned as errors.
func (r *GeoRouter) Send(src *mobility.Node, srcPort uint16, dst netip.AddrPort, payload []byte) error {
	if src == nil {
		return &mobility.PreconditionError{NodeID: -1, Reason: "nil sender"}
	}
	p := radio.Packet{
		Src:     netip.AddrPortFrom(src.Addr, srcPort),
		Dst:     dst,
		Payload: payload,
		SentAt:  r.sched.Now(),
	}
	key := tupleOf(p)
	r.flows.RecordTx(key, len(payload))

	dstID, ok := r.m.Interfaces().Resolve(dst.Addr())
	if !ok {
		r.flows.RecordLost(key)
		return nil
	}
	hops, ok := r.Route(src.ID, dstID)
	if !ok {
		r.flows.RecordLost(key)
		return nil
	}
	pop := r.m.Population()
	phy := r.m.Phy()
	var delay float64
	for i := 1; i < len(hops); i++ {
		a, b := pop.Node(hops[i-1]), pop.Node(hops[i])
		delay += phy.TxTime(len(payload), r3.Norm(r3.Sub(b.Position(), a.Position())))
	}
	if !r.m.Deliver(p, delay) {
		r.flows.RecordLost(key)
	}
	return nil
}

// WriteRoutes prints the next hop and hop count from every placed node to
// every destination it can reach in the current snapshot.
func (r *GeoRouter) WriteRoutes(w io.Writer) error {
	r.topology()
	pop := r.m.Population()
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	for _, src := range pop.Nodes() {
		if !src.Placed() {
			continue
		}
		fmt.Fprintf(tw, "Node: %d, Time: %.2fs\n", src.ID, r.sched.Now())
		fmt.Fprintln(tw, "Destination\tNextHop\tHops")
		for _, dst := range pop.Nodes() {
			if dst.ID == src.ID {
				continue
			}
			hops, ok := r.Route(src.ID, dst.ID)
			if !ok {
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\n", dst.Addr, pop.Node(hops[1]).Addr, len(hops)-1)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
