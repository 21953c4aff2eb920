package main

import (
	"Go2WlanSpectra/internal/config"
	"Go2WlanSpectra/internal/experiment"
	"Go2WlanSpectra/pkg/pcap"
	"cmp"
	"flag"
	"log"
	"net"
	"net/netip"
	"os"
	"slices"
	"time"

	"golang.org/x/exp/rand"
)

// Generates the capture a sink-side probe would record for the configured
// experiment: every flow of the schedule at its offered rate, with optional
// random loss. The output feeds `wsctl pcap`.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	outputFile := flag.String("o", "sink.pcap", "Output pcap file path")
	loss := flag.Float64("loss", 0, "Probability that a packet is dropped before the sink")
	latency := flag.Duration("latency", time.Millisecond, "Fixed delay added between source and sink")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	layout, err := experiment.NewLayout(cfg)
	if err != nil {
		log.Fatalf("Failed to build layout: %v", err)
	}

	macs := make(map[netip.Addr]net.HardwareAddr)
	for _, ap := range layout.Topology.APs {
		macs[ap.Addr] = ap.MAC
	}
	for _, sta := range layout.Topology.Stations {
		macs[sta.Addr] = sta.MAC
	}

	rng := rand.New(rand.NewSource(cfg.Experiment.Seed + 1))
	base := time.Unix(0, 0).UTC()
	var packets []pcap.Datagram
	dropped := 0
	for _, f := range layout.Flows {
		if f.RateMbps <= 0 {
			continue
		}
		interval := time.Duration(float64(f.PacketSize*8) / (f.RateMbps * 1e6) * float64(time.Second))
		if interval <= 0 {
			continue
		}
		for at := f.SourceStart; at < f.SourceStop; at += interval {
			if rng.Float64() < *loss {
				dropped++
				continue
			}
			packets = append(packets, pcap.Datagram{
				Timestamp: base.Add(at + *latency),
				SrcMAC:    macs[f.Source.Addr],
				DstMAC:    macs[f.Sink.Addr],
				SrcIP:     f.Source.Addr.AsSlice(),
				DstIP:     f.Sink.Addr.AsSlice(),
				SrcPort:   f.Source.Port,
				DstPort:   f.Sink.Port,
				TOS:       f.TOS,
				Payload:   f.PacketSize,
			})
		}
	}
	slices.SortStableFunc(packets, func(a, b pcap.Datagram) int {
		return cmp.Compare(a.Timestamp.UnixNano(), b.Timestamp.UnixNano())
	})

	out, err := os.Create(*outputFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer out.Close()

	w, err := pcap.NewWriter(out)
	if err != nil {
		log.Fatalf("Failed to write pcap header: %v", err)
	}

	log.Printf("Generating %d packets for %d flows into %s...", len(packets), len(layout.Flows), *outputFile)
	for i, d := range packets {
		if (i+1)%100000 == 0 {
			log.Printf("Generated %d packets...", i+1)
		}
		if err := w.WriteDatagram(d); err != nil {
			log.Fatalf("Failed to write packet: %v", err)
		}
	}
	log.Printf("Successfully generated %d packets into %s (%d dropped).", len(packets), *outputFile, dropped)
}
