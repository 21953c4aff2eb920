package main

import (
	"Go2WlanSpectra/internal/config"
	"Go2WlanSpectra/internal/engine/protocol"
	"Go2WlanSpectra/internal/probe"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

const (
	snapshotLen int32 = 1600
	promiscuous       = true
	timeout           = pcap.BlockForever
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	iface := flag.String("iface", "", "Sink-side interface to capture packets from.")
	filter := flag.String("filter", "udp", "BPF filter applied to the capture.")
	flag.Parse()

	if *iface == "" {
		fmt.Fprintln(os.Stderr, "Error: -iface flag is required.")
		flag.Usage()
		os.Exit(1)
	}
	log.Printf("Starting ws-probe on interface: %s", *iface)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize NATS Publisher
	pub, err := probe.NewPublisher(cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	// Open device for live capture
	handle, err := pcap.OpenLive(*iface, snapshotLen, promiscuous, timeout)
	if err != nil {
		log.Fatalf("Error opening device %s: %v", *iface, err)
	}
	defer handle.Close()
	if err := handle.SetBPFFilter(*filter); err != nil {
		log.Fatalf("Invalid filter %q: %v", *filter, err)
	}

	log.Println("Capture started successfully. Publishing packets to NATS...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
		packetsPublished := 0
		for packet := range packetSource.Packets() {
			info, err := protocol.ParsePacket(packet)
			if err != nil {
				continue
			}
			if err := pub.PublishPacket(info); err != nil {
				log.Printf("Failed to publish packet: %v", err)
			}
			packetsPublished++
			if packetsPublished%1000 == 0 {
				log.Printf("%d packets published...", packetsPublished)
			}
		}
	}()

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
}
