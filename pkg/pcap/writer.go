package pcap

import (
	"io"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Writer writes synthetic UDP datagrams to a pcap stream.
type Writer struct {
	w *pcapgo.Writer
}

// NewWriter writes the pcap file header and returns a writer for Ethernet frames.
func NewWriter(out io.Writer) (*Writer, error) {
	w := pcapgo.NewWriter(out)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		return nil, err
	}
	return &Writer{w: w}, nil
}

// Datagram describes one UDP packet to be written.
type Datagram struct {
	Timestamp time.Time
	SrcMAC    net.HardwareAddr
	DstMAC    net.HardwareAddr
	SrcIP     net.IP
	DstIP     net.IP
	SrcPort   uint16
	DstPort   uint16
	TOS       uint8
	Payload   int
}

// WriteDatagram serializes d as Ethernet/IPv4/UDP and appends it to the capture.
func (w *Writer) WriteDatagram(d Datagram) error {
	eth := &layers.Ethernet{
		SrcMAC:       d.SrcMAC,
		DstMAC:       d.DstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		TOS:      d.TOS,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    d.SrcIP,
		DstIP:    d.DstIP,
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(d.SrcPort),
		DstPort: layers.UDPPort(d.DstPort),
	}
	udp.SetNetworkLayerForChecksum(ip)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{
		ComputeChecksums: true,
		FixLengths:       true,
	}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(make([]byte, d.Payload))); err != nil {
		return err
	}

	ci := gopacket.CaptureInfo{
		Timestamp:     d.Timestamp,
		CaptureLength: len(buf.Bytes()),
		Length:        len(buf.Bytes()),
	}
	return w.w.WritePacket(ci, buf.Bytes())
}
