package probe

import (
	"Go2WlanSpectra/internal/model"
	"net"
	"testing"
	"time"
)

func TestCodec_Record(t *testing.T) {
	in := &Message{
		Kind:   KindRecord,
		RunID:  "run-7",
		FlowID: 3,
		Record: model.FlowRecord{
			FiveTuple:         model.FiveTuple{SrcIP: net.IPv4(192, 168, 2, 2), DstIP: net.IPv4(192, 168, 2, 1), SrcPort: 49155, DstPort: 2000, Protocol: 17},
			TxBytes:           1472 * 100,
			RxBytes:           1472 * 98,
			TxPackets:         100,
			RxPackets:         98,
			LostPackets:       2,
			DelaySum:          1234567 * time.Microsecond,
			TimeFirstTxPacket: 5*time.Second + 250*time.Millisecond,
			TimeLastRxPacket:  65 * time.Second,
		},
	}

	data, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if out.Kind != KindRecord || out.RunID != "run-7" || out.FlowID != 3 {
		t.Fatalf("Header mismatch: %+v", out)
	}
	r := out.Record
	if !r.FiveTuple.SrcIP.Equal(in.Record.FiveTuple.SrcIP) || r.FiveTuple.DstPort != 2000 || r.FiveTuple.Protocol != 17 {
		t.Errorf("Five-tuple mismatch: %+v", r.FiveTuple)
	}
	if r.RxPackets != 98 || r.LostPackets != 2 || r.DelaySum != in.Record.DelaySum {
		t.Errorf("Counters mismatch: %+v", r)
	}
	if r.TimeFirstTxPacket != in.Record.TimeFirstTxPacket || r.TimeLastRxPacket != in.Record.TimeLastRxPacket {
		t.Errorf("Timestamps mismatch: %+v", r)
	}
}

func TestCodec_PacketKeepsNanoseconds(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	in := &Message{Kind: KindPacket, Packet: model.PacketInfo{Timestamp: ts, TOS: 0x70, Length: 1500}}

	data, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !out.Packet.Timestamp.Equal(ts) {
		t.Errorf("Expected %v, got %v", ts, out.Packet.Timestamp)
	}
	if out.Packet.TOS != 0x70 || out.Packet.Length != 1500 {
		t.Errorf("Unexpected packet: %+v", out.Packet)
	}
}

func TestCodec_UnknownKind(t *testing.T) {
	if _, err := Encode(&Message{Kind: "bogus"}); err == nil {
		t.Errorf("Expected an error for an unknown kind")
	}
}
