package pcap

import (
	"Go2WlanSpectra/internal/model"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestReader_ReadPackets(t *testing.T) {
	// 1. Write a capture holding three datagrams towards two sinks.
	path := filepath.Join(t.TempDir(), "sink.pcap")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create pcap file: %v", err)
	}
	w, err := NewWriter(f)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	base := time.Unix(1700000000, 0)
	for i, port := range []uint16{1000, 1000, 2000} {
		err := w.WriteDatagram(Datagram{
			Timestamp: base.Add(time.Duration(i) * time.Millisecond),
			SrcMAC:    net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
			DstMAC:    net.HardwareAddr{0x02, 0, 0, 0xff, 0, 0},
			SrcIP:     net.IP{192, 168, 0, 2},
			DstIP:     net.IP{192, 168, 0, 1},
			SrcPort:   49153,
			DstPort:   port,
			TOS:       0x70,
			Payload:   1472,
		})
		if err != nil {
			t.Fatalf("Failed to write datagram: %v", err)
		}
	}
	f.Close()

	// 2. Read it back.
	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}
	defer reader.Close()

	out := make(chan *model.PacketInfo)
	go reader.ReadPackets(out)

	var infos []*model.PacketInfo
	for info := range out {
		infos = append(infos, info)
	}

	if len(infos) != 3 {
		t.Fatalf("Expected to read 3 packets, but got %d", len(infos))
	}
	if infos[2].FiveTuple.DstPort != 2000 {
		t.Errorf("Expected the last packet towards port 2000, got %d", infos[2].FiveTuple.DstPort)
	}
	if !infos[1].Timestamp.Equal(base.Add(time.Millisecond)) {
		t.Errorf("Unexpected timestamp %s", infos[1].Timestamp)
	}
}
