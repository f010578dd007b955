package routing

import (
	"cmp"
	"encoding/json"
	"io"
	"math"
	"net/netip"
	"slices"
)

// IPProtoUDP is the only transport carried by the simulator.
const IPProtoUDP uint8 = 17

// FiveTuple identifies one flow.
type FiveTuple struct {
	Src      netip.Addr
	Dst      netip.Addr
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8
}

// FlowStats holds cumulative counters for one flow. Delays are seconds.
type FlowStats struct {
	TxBytes     uint64
	RxBytes     uint64
	TxPackets   uint64
	RxPackets   uint64
	LostPackets uint64
	DelaySum    float64
	JitterSum   float64

	lastDelay float64
}

// FlowMonitor accumulates per five-tuple statistics. Like the rest of the
// event path it is used from a single goroutine.
type FlowMonitor struct {
	flows map[FiveTuple]*FlowStats
}

// NewFlowMonitor returns an empty monitor.
func NewFlowMonitor() *FlowMonitor {
	return &FlowMonitor{flows: make(map[FiveTuple]*FlowStats)}
}

func (m *FlowMonitor) flow(k FiveTuple) *FlowStats {
	f := m.flows[k]
	if f == nil {
		f = &FlowStats{}
		m.flows[k] = f
	}
	return f
}

// RecordTx counts one transmitted packet of size bytes.
func (m *FlowMonitor) RecordTx(k FiveTuple, size int) {
	f := m.flow(k)
	f.TxPackets++
	f.TxBytes += uint64(size)
}

// RecordRx counts one received packet with its end-to-end delay.
func (m *FlowMonitor) RecordRx(k FiveTuple, size int, delay float64) {
	f := m.flow(k)
	if f.RxPackets > 0 {
		f.JitterSum += math.Abs(delay - f.lastDelay)
	}
	f.lastDelay = delay
	f.RxPackets++
	f.RxBytes += uint64(size)
	f.DelaySum += delay
}

// RecordLost counts a packet that will never arrive.
func (m *FlowMonitor) RecordLost(k FiveTuple) {
	m.flow(k).LostPackets++
}

// Stats returns a copy of every flow's counters.
func (m *FlowMonitor) Stats() map[FiveTuple]FlowStats {
	out := make(map[FiveTuple]FlowStats, len(m.flows))
	for k, f := range m.flows {
		out[k] = *f
	}
	return out
}

type flowRecord struct {
	Src         string  `json:"src"`
	Dst         string  `json:"dst"`
	SrcPort     uint16  `json:"src_port"`
	DstPort     uint16  `json:"dst_port"`
	Protocol    uint8   `json:"protocol"`
	TxBytes     uint64  `json:"tx_bytes"`
	RxBytes     uint64  `json:"rx_bytes"`
	TxPackets   uint64  `json:"tx_packets"`
	RxPackets   uint64  `json:"rx_packets"`
	LostPackets uint64  `json:"lost_packets"`
	DelaySum    float64 `json:"delay_sum_s"`
	JitterSum   float64 `json:"jitter_sum_s"`
}

// WriteJSON dumps every flow as an indented JSON array ordered by
// source, destination and ports.
func (m *FlowMonitor) WriteJSON(w io.Writer) error {
	keys := make([]FiveTuple, 0, len(m.flows))
	for k := range m.flows {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b FiveTuple) int {
		if c := a.Src.Compare(b.Src); c != 0 {
			return c
		}
		if c := a.Dst.Compare(b.Dst); c != 0 {
			return c
		}
		if c := cmp.Compare(a.SrcPort, b.SrcPort); c != 0 {
			return c
		}
		return cmp.Compare(a.DstPort, b.DstPort)
	})
	recs := make([]flowRecord, 0, len(keys))
	for _, k := range keys {
		f := m.flows[k]
		recs = append(recs, flowRecord{
			Src: k.Src.String(), Dst: k.Dst.String(),
			SrcPort: k.SrcPort, DstPort: k.DstPort, Protocol: k.Protocol,
			TxBytes: f.TxBytes, RxBytes: f.RxBytes,
			TxPackets: f.TxPackets, RxPackets: f.RxPackets, LostPackets: f.LostPackets,
			DelaySum: f.DelaySum, JitterSum: f.JitterSum,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}
