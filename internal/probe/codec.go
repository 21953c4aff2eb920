package probe

import (
	"Go2WlanSpectra/internal/model"
	"fmt"
	"net"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Kind tells the subscriber how to interpret a message.
type Kind string

const (
	// KindPacket carries one packet captured at a sink.
	KindPacket Kind = "packet"
	// KindRecord carries the final record of one flow of a run.
	KindRecord Kind = "record"
	// KindRunDone marks the end of the records of a run.
	KindRunDone Kind = "run_done"
)

// Message is the unit exchanged over NATS.
// Only the fields relevant to Kind are set.
type Message struct {
	Kind   Kind
	RunID  string
	Cells  int
	FlowID model.FlowID
	Record model.FlowRecord
	Packet model.PacketInfo
}

// Encode serializes a message to a protobuf Struct.
func Encode(m *Message) ([]byte, error) {
	fields := map[string]any{
		"kind":   string(m.Kind),
		"run_id": m.RunID,
	}
	switch m.Kind {
	case KindPacket:
		ts := timestamppb.New(m.Packet.Timestamp)
		fields["ts_seconds"] = ts.Seconds
		fields["ts_nanos"] = ts.Nanos
		fields["tos"] = int(m.Packet.TOS)
		fields["length"] = m.Packet.Length
		fields["tuple"] = tupleFields(m.Packet.FiveTuple)
	case KindRecord:
		r := m.Record
		fields["flow_id"] = uint32(m.FlowID)
		fields["tuple"] = tupleFields(r.FiveTuple)
		fields["tx_bytes"] = r.TxBytes
		fields["rx_bytes"] = r.RxBytes
		fields["tx_packets"] = r.TxPackets
		fields["rx_packets"] = r.RxPackets
		fields["lost_packets"] = r.LostPackets
		fields["delay_sum"] = int64(r.DelaySum)
		fields["jitter_sum"] = int64(r.JitterSum)
		fields["first_tx"] = int64(r.TimeFirstTxPacket)
		fields["last_rx"] = int64(r.TimeLastRxPacket)
	case KindRunDone:
		fields["cells"] = m.Cells
	default:
		return nil, fmt.Errorf("unknown message kind '%s'", m.Kind)
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build message: %w", err)
	}
	return proto.Marshal(s)
}

// Decode parses a message produced by Encode.
func Decode(data []byte) (*Message, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	f := s.GetFields()
	num := func(key string) float64 { return f[key].GetNumberValue() }

	m := &Message{
		Kind:  Kind(f["kind"].GetStringValue()),
		RunID: f["run_id"].GetStringValue(),
	}
	switch m.Kind {
	case KindPacket:
		ts := &timestamppb.Timestamp{Seconds: int64(num("ts_seconds")), Nanos: int32(num("ts_nanos"))}
		m.Packet = model.PacketInfo{
			Timestamp: ts.AsTime(),
			FiveTuple: parseTuple(f["tuple"].GetStructValue()),
			TOS:       uint8(num("tos")),
			Length:    int(num("length")),
		}
	case KindRecord:
		m.FlowID = model.FlowID(num("flow_id"))
		m.Record = model.FlowRecord{
			FiveTuple:         parseTuple(f["tuple"].GetStructValue()),
			TxBytes:           uint64(num("tx_bytes")),
			RxBytes:           uint64(num("rx_bytes")),
			TxPackets:         uint64(num("tx_packets")),
			RxPackets:         uint64(num("rx_packets")),
			LostPackets:       uint64(num("lost_packets")),
			DelaySum:          time.Duration(num("delay_sum")),
			JitterSum:         time.Duration(num("jitter_sum")),
			TimeFirstTxPacket: time.Duration(num("first_tx")),
			TimeLastRxPacket:  time.Duration(num("last_rx")),
		}
	case KindRunDone:
		m.Cells = int(num("cells"))
	default:
		return nil, fmt.Errorf("unknown message kind '%s'", m.Kind)
	}
	return m, nil
}

func tupleFields(t model.FiveTuple) map[string]any {
	return map[string]any{
		"src_ip":   t.SrcIP.String(),
		"dst_ip":   t.DstIP.String(),
		"src_port": int(t.SrcPort),
		"dst_port": int(t.DstPort),
		"protocol": int(t.Protocol),
	}
}

func parseTuple(s *structpb.Struct) model.FiveTuple {
	f := s.GetFields()
	return model.FiveTuple{
		SrcIP:    net.ParseIP(f["src_ip"].GetStringValue()),
		DstIP:    net.ParseIP(f["dst_ip"].GetStringValue()),
		SrcPort:  uint16(f["src_port"].GetNumberValue()),
		DstPort:  uint16(f["dst_port"].GetNumberValue()),
		Protocol: uint8(f["protocol"].GetNumberValue()),
	}
}
