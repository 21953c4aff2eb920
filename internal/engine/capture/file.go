package capture

import (
	"Go2WlanSpectra/internal/model"
	"Go2WlanSpectra/pkg/pcap"
	"fmt"
)

// ReadFile builds flow records from a sink-side pcap file. When flows is not
// empty, the first captured packet is taken to arrive at the earliest source
// start of the schedule, and transmit counters come from the schedule.
func ReadFile(path string, flows []model.FlowDescriptor) (map[model.FlowID]model.FlowRecord, error) {
	reader, err := pcap.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pcap file: %w", err)
	}
	defer reader.Close()

	packets := make(chan *model.PacketInfo, 1024)
	go reader.ReadPackets(packets)

	var infos []*model.PacketInfo
	for info := range packets {
		infos = append(infos, info)
	}
	if len(infos) == 0 {
		return map[model.FlowID]model.FlowRecord{}, nil
	}

	origin := infos[0].Timestamp
	if len(flows) > 0 {
		first := flows[0].SourceStart
		for _, f := range flows[1:] {
			first = min(first, f.SourceStart)
		}
		origin = origin.Add(-first)
	}

	b := NewBuilder(origin)
	b.Expect(flows)
	for _, info := range infos {
		b.Add(info)
	}
	return b.Records(), nil
}
