package capture

import (
	"Go2WlanSpectra/internal/model"
	"Go2WlanSpectra/pkg/pcap"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestReadFile(t *testing.T) {
	// 1. Write a capture of one flow: 10 packets over 0.9s
	path := filepath.Join(t.TempDir(), "sink.pcap")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create capture: %v", err)
	}
	w, err := pcap.NewWriter(f)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	start := time.Unix(1700000000, 0)
	for i := 0; i < 10; i++ {
		err := w.WriteDatagram(pcap.Datagram{
			Timestamp: start.Add(time.Duration(i) * 100 * time.Millisecond),
			SrcMAC:    net.HardwareAddr{2, 0, 1, 0, 0, 2},
			DstMAC:    net.HardwareAddr{2, 0, 1, 0xff, 0, 1},
			SrcIP:     net.IPv4(192, 168, 1, 2),
			DstIP:     net.IPv4(192, 168, 1, 1),
			SrcPort:   49153,
			DstPort:   1000,
			TOS:       0x70,
			Payload:   1472,
		})
		if err != nil {
			t.Fatalf("WriteDatagram failed: %v", err)
		}
	}
	f.Close()

	// 2. Read it against a schedule starting at 5s, one packet every 100ms
	flows := []model.FlowDescriptor{{
		Sink:        model.Endpoint{Addr: netip.MustParseAddr("192.168.1.1"), Port: 1000},
		RateMbps:    1472 * 8 * 10 / 1e6,
		PacketSize:  1472,
		SourceStart: 5 * time.Second,
		SourceStop:  10 * time.Second,
	}}
	records, err := ReadFile(path, flows)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("Expected 1 flow, got %d", len(records))
	}
	rec := records[1]
	if rec.RxPackets != 10 || rec.RxBytes != 10*1500 {
		t.Errorf("Unexpected rx counters: %+v", rec)
	}
	if rec.TimeFirstTxPacket != 5*time.Second || rec.TimeLastRxPacket != 5900*time.Millisecond {
		t.Errorf("Unexpected times: first %s last %s", rec.TimeFirstTxPacket, rec.TimeLastRxPacket)
	}
	if rec.TxPackets != 10 || rec.LostPackets != 0 {
		t.Errorf("Unexpected tx counters: %+v", rec)
	}
}
