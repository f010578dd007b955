package radio

import (
	"bytes"
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"gonum.org/v1/gonum/spatial/r3"

	"vanet-sim/internal/engine"
	"vanet-sim/internal/mobility"
)

func testPhy() Phy {
	return Phy{
		TxPowerDbm:       20,
		Frequency:        Band80211p.Frequency(),
		RxSensitivityDbm: DefaultRxSensitivity,
		Loss:             LogDistance,
		DataRate:         6e6,
	}
}

func placedPopulation(eng *engine.EventEngine, xs ...float64) *mobility.Population {
	pop := mobility.NewPopulation(len(xs), mobility.DefaultAddrBase, eng.Now)
	for i, x := range xs {
		pop.SetCourse(0, pop.Node(i), r3.Vec{X: x, Z: 1.5}, r3.Vec{X: 1})
	}
	return pop
}

func TestInterfaceTableResolve(t *testing.T) {
	tbl := InterfaceTable{
		{Node: 0, Addr: netip.MustParseAddr("10.1.0.1")},
		{Node: 1, Addr: netip.MustParseAddr("10.1.0.2")},
	}
	if id, ok := tbl.Resolve(netip.MustParseAddr("10.1.0.2")); !ok || id != 1 {
		t.Fatalf("Resolve = %d,%v want 1,true", id, ok)
	}
	if _, ok := tbl.Resolve(netip.MustParseAddr("192.168.0.1")); ok {
		t.Fatalf("unknown address resolved")
	}
}

func TestBroadcastDeliversInRangeOnly(t *testing.T) {
	eng := engine.New()
	pop := placedPopulation(eng, 0, 50, 10000)
	m := NewMedium(eng, pop, testPhy())

	got := map[int][]netip.AddrPort{}
	var socks []*Socket
	for _, n := range pop.Nodes() {
		s, err := m.Bind(n, 9080, func(s *Socket, p Packet) {
			got[s.Node().ID] = append(got[s.Node().ID], p.Src)
		})
		if err != nil {
			t.Fatalf("Bind: %v", err)
		}
		s.Connect(netip.AddrPortFrom(BroadcastAddr, 9080))
		socks = append(socks, s)
	}
	eng.ScheduleAfter(0.1, engine.TaskFunc(func(engine.Scheduler) {
		if err := socks[0].Send(make([]byte, 200)); err != nil {
			t.Errorf("Send: %v", err)
		}
	}))
	if err := eng.Run(context.Background(), 1); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got[0]) != 0 {
		t.Fatalf("sender received its own broadcast")
	}
	if len(got[1]) != 1 || got[1][0] != socks[0].LocalAddr() {
		t.Fatalf("node 1 deliveries = %v", got[1])
	}
	if len(got[2]) != 0 {
		t.Fatalf("out of range node received %v", got[2])
	}
}

func TestSocketLifecycle(t *testing.T) {
	eng := engine.New()
	pop := placedPopulation(eng, 0)
	m := NewMedium(eng, pop, testPhy())
	s, err := m.Bind(pop.Node(0), 9, nil)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if _, err := m.Bind(pop.Node(0), 9, nil); !errors.Is(err, ErrPortInUse) {
		t.Fatalf("second Bind error = %v, want ErrPortInUse", err)
	}
	if err := s.Send([]byte{1}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Send unconnected = %v, want ErrNotConnected", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Send([]byte{1}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Send after close = %v, want ErrClosed", err)
	}
	if _, err := m.Bind(pop.Node(0), 9, nil); err != nil {
		t.Fatalf("rebinding closed port: %v", err)
	}
}

func TestPcapTapWritesUDPFrames(t *testing.T) {
	var buf bytes.Buffer
	epoch := time.Unix(1000, 0).UTC()
	tap, err := NewPcapTap(&buf, epoch)
	if err != nil {
		t.Fatalf("NewPcapTap: %v", err)
	}
	p := Packet{
		Src:     netip.MustParseAddrPort("10.1.0.1:9080"),
		Dst:     netip.AddrPortFrom(BroadcastAddr, 9080),
		Payload: make([]byte, 200),
	}
	if err := tap.Capture(2.5, p); err != nil {
		t.Fatalf("Capture: %v", err)
	}

	r, err := pcapgo.NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	data, ci, err := r.ReadPacketData()
	if err != nil {
		t.Fatalf("ReadPacketData: %v", err)
	}
	if want := epoch.Add(2500 * time.Millisecond); !ci.Timestamp.Equal(want) {
		t.Fatalf("timestamp = %v, want %v", ci.Timestamp, want)
	}
	pkt := gopacket.NewPacket(data, layers.LayerTypeIPv4, gopacket.Default)
	udp, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
	if !ok {
		t.Fatalf("no UDP layer in captured frame")
	}
	if udp.DstPort != 9080 || len(udp.Payload) != 200 {
		t.Fatalf("udp = dst %d payload %d", udp.DstPort, len(udp.Payload))
	}
}
