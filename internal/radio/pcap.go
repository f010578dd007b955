package radio

import (
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

const pcapSnapLen = 65536

// PcapTap writes every frame as a raw IPv4/UDP packet to a pcap stream.
// Simulated seconds are offset from Epoch.
type PcapTap struct {
	w     *pcapgo.Writer
	c     io.Closer
	Epoch time.Time
	buf   gopacket.SerializeBuffer
}

// NewPcapTap writes the pcap file header to w.
func NewPcapTap(w io.Writer, epoch time.Time) (*PcapTap, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(pcapSnapLen, layers.LinkTypeIPv4); err != nil {
		return nil, fmt.Errorf("pcap header: %w", err)
	}
	return &PcapTap{w: pw, Epoch: epoch, buf: gopacket.NewSerializeBuffer()}, nil
}

// CreatePcapTap creates path and returns a tap writing to it.
func CreatePcapTap(path string, epoch time.Time) (*PcapTap, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	t, err := NewPcapTap(f, epoch)
	if err != nil {
		f.Close()
		return nil, err
	}
	t.c = f
	return t, nil
}

// Capture implements Tap.
func (t *PcapTap) Capture(at float64, p Packet) error {
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP(p.Src.Addr().AsSlice()),
		DstIP:    net.IP(p.Dst.Addr().AsSlice()),
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(p.Src.Port()),
		DstPort: layers.UDPPort(p.Dst.Port()),
	}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return err
	}
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(t.buf, opts, ip, udp, gopacket.Payload(p.Payload)); err != nil {
		return fmt.Errorf("serialize frame: %w", err)
	}
	data := t.buf.Bytes()
	ci := gopacket.CaptureInfo{
		Timestamp:     t.Epoch.Add(time.Duration(at * float64(time.Second))),
		CaptureLength: len(data),
		Length:        len(data),
	}
	return t.w.WritePacket(ci, data)
}

// Close closes the underlying file when the tap owns one.
func (t *PcapTap) Close() error {
	if t.c == nil {
		return nil
	}
	return t.c.Close()
}
