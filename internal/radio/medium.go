package radio

import (
	"errors"
	"fmt"
	"net/netip"
	"regexp"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"vanet-sim/internal/engine"
	"vanet-sim/internal/mobility"
)

// BroadcastAddr is the limited broadcast destination for beacons.
var BroadcastAddr = netip.MustParseAddr("255.255.255.255")

var (
	ErrPortInUse    = errors.New("port already bound")
	ErrClosed       = errors.New("socket closed")
	ErrNotConnected = errors.New("socket not connected")
)

var dataRateRe = regexp.MustCompile(`Rate(\d+(?:_\d+)?)Mbps`)

// ParseDataRate extracts the bit rate from a WiFi mode name such as
// OfdmRate6MbpsBW10MHz or DsssRate5_5Mbps.
func ParseDataRate(mode string) (float64, error) {
	m := dataRateRe.FindStringSubmatch(mode)
	if m == nil {
		return 0, fmt.Errorf("phy mode %q: no data rate", mode)
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], "_", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("phy mode %q: %w", mode, err)
	}
	return v * 1e6, nil
}

// Packet is a UDP datagram on the medium.
type Packet struct {
	Src     netip.AddrPort
	Dst     netip.AddrPort
	Payload []byte
	SentAt  float64
}

// Interface binds an address to a node.
type Interface struct {
	Node int
	Addr netip.Addr
}

// InterfaceTable lists every node interface in node order.
type InterfaceTable []Interface

// Resolve returns the node owning addr. Populations are a few hundred
// nodes, so a linear scan is enough.
func (t InterfaceTable) Resolve(addr netip.Addr) (int, bool) {
	for _, itf := range t {
		if itf.Addr == addr {
			return itf.Node, true
		}
	}
	return 0, false
}

// Tap observes every frame put on the air.
type Tap interface {
	Capture(t float64, p Packet) error
}

// RecvFunc is called on the event goroutine for each delivered packet.
type RecvFunc func(s *Socket, p Packet)

// Medium connects all node sockets over one shared channel.
type Medium struct {
	sched  engine.Scheduler
	pop    *mobility.Population
	phy    Phy
	ifaces InterfaceTable
	bound  map[int]map[uint16]*Socket
	taps   []Tap
	tapErr error
}

// NewMedium builds the interface table from the population addresses.
func NewMedium(s engine.Scheduler, pop *mobility.Population, phy Phy) *Medium {
	m := &Medium{sched: s, pop: pop, phy: phy, bound: make(map[int]map[uint16]*Socket)}
	for _, n := range pop.Nodes() {
		m.ifaces = append(m.ifaces, Interface{Node: n.ID, Addr: n.Addr})
	}
	return m
}

// Interfaces returns the address table.
func (m *Medium) Interfaces() InterfaceTable { return m.ifaces }

// Phy returns the shared radio parameters.
func (m *Medium) Phy() Phy { return m.phy }

// Population returns the nodes attached to the medium.
func (m *Medium) Population() *mobility.Population { return m.pop }

// AddTap registers t for every transmitted frame.
func (m *Medium) AddTap(t Tap) { m.taps = append(m.taps, t) }

// TapErr returns the first capture error, if any.
func (m *Medium) TapErr() error { return m.tapErr }

// Bind opens a socket on node n listening on port.
func (m *Medium) Bind(n *mobility.Node, port uint16, recv RecvFunc) (*Socket, error) {
	ports := m.bound[n.ID]
	if ports == nil {
		ports = make(map[uint16]*Socket)
		m.bound[n.ID] = ports
	}
	if _, ok := ports[port]; ok {
		return nil, fmt.Errorf("node %d port %d: %w", n.ID, port, ErrPortInUse)
	}
	s := &Socket{m: m, node: n, port: port, recv: recv}
	ports[port] = s
	return s, nil
}

// Reachable reports whether a frame from a arrives at b right now.
func (m *Medium) Reachable(a, b *mobility.Node) (float64, bool) {
	pa, pb := a.Position(), b.Position()
	d := r3.Norm(r3.Sub(pb, pa))
	return d, m.phy.Receivable(d, pa.Z, pb.Z)
}

// Deliver hands p to the socket bound on the destination node after delay
// seconds. It reports false when nothing listens there.
func (m *Medium) Deliver(p Packet, delay float64) bool {
	id, ok := m.ifaces.Resolve(p.Dst.Addr())
	if !ok {
		return false
	}
	s := m.bound[id][p.Dst.Port()]
	if s == nil {
		return false
	}
	m.sched.ScheduleAfter(delay, &delivery{s: s, p: p})
	return true
}

func (m *Medium) capture(p Packet) {
	for _, t := range m.taps {
		if err := t.Capture(m.sched.Now(), p); err != nil && m.tapErr == nil {
			m.tapErr = err
		}
	}
}

func (m *Medium) broadcast(from *Socket, p Packet) {
	m.capture(p)
	for _, n := range m.pop.Nodes() {
		if n.ID == from.node.ID {
			continue
		}
		s := m.bound[n.ID][p.Dst.Port()]
		if s == nil {
			continue
		}
		d, ok := m.Reachable(from.node, n)
		if !ok {
			continue
		}
		m.sched.ScheduleAfter(m.phy.TxTime(len(p.Payload), d), &delivery{s: s, p: p})
	}
}

type delivery struct {
	s *Socket
	p Packet
}

func (d *delivery) Fire(engine.Scheduler) {
	if d.s.closed || d.s.recv == nil {
		return
	}
	d.s.recv(d.s, d.p)
}

// Socket is a UDP endpoint bound to one node port.
type Socket struct {
	m      *Medium
	node   *mobility.Node
	port   uint16
	recv   RecvFunc
	remote netip.AddrPort
	closed bool
}

// Node returns the owning node.
func (s *Socket) Node() *mobility.Node { return s.node }

// LocalAddr returns the bound address and port.
func (s *Socket) LocalAddr() netip.AddrPort { return netip.AddrPortFrom(s.node.Addr, s.port) }

// Connect sets the default destination for Send.
func (s *Socket) Connect(remote netip.AddrPort) { s.remote = remote }

// Send transmits payload to the connected destination. Unicast sends are
// single hop; multi-hop traffic goes through a router.
func (s *Socket) Send(payload []byte) error {
	if s.closed {
		return ErrClosed
	}
	if !s.remote.IsValid() {
		return ErrNotConnected
	}
	p := Packet{Src: s.LocalAddr(), Dst: s.remote, Payload: payload, SentAt: s.m.sched.Now()}
	if s.remote.Addr() == BroadcastAddr {
		s.m.broadcast(s, p)
		return nil
	}
	s.m.capture(p)
	id, ok := s.m.ifaces.Resolve(s.remote.Addr())
	if !ok {
		return nil
	}
	if d, ok := s.m.Reachable(s.node, s.m.pop.Node(id)); ok {
		s.m.Deliver(p, s.m.phy.TxTime(len(payload), d))
	}
	return nil
}

// Close unbinds the socket. Pending deliveries to it are dropped.
func (s *Socket) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	delete(s.m.bound[s.node.ID], s.port)
	return nil
}
