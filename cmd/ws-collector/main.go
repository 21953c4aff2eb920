package main

import (
	"Go2WlanSpectra/internal/collector"
	"Go2WlanSpectra/internal/config"
	"Go2WlanSpectra/internal/factory"
	"Go2WlanSpectra/internal/probe"
	_ "Go2WlanSpectra/internal/writer" // Registers the result writers
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	flag.Parse()
	log.Println("Starting ws-collector...")

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	interval, err := time.ParseDuration(cfg.Collector.ReportInterval)
	if err != nil || interval <= 0 {
		log.Fatalf("Invalid collector report_interval %q", cfg.Collector.ReportInterval)
	}

	// 2. Build the collector and its writers
	writers, err := factory.CreateWriters(cfg)
	if err != nil {
		log.Fatalf("Failed to create writers: %v", err)
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	coll := collector.New(cfg.Collector.Cells, collector.NewMetrics(reg), writers...)

	// 3. Subscribe to the probes
	sub, err := probe.NewSubscriber(cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer sub.Close()
	if err := sub.Start(coll.Handle); err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}
	coll.Start(interval)

	// 4. Health and metrics endpoints
	lis, err := net.Listen("tcp", cfg.Collector.HealthAddr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", cfg.Collector.HealthAddr, err)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	go func() {
		log.Printf("gRPC health server listening on %s", cfg.Collector.HealthAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("gRPC server failed: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: cfg.Collector.MetricsAddr, Handler: mux}
	go func() {
		log.Printf("Metrics server listening on %s", cfg.Collector.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", cfg.Collector.MetricsAddr, err)
		}
	}()

	// 5. Wait for a shutdown signal for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutdown signal received, stopping collector...")
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	coll.Stop()
	if n := coll.Pending(); n > 0 {
		log.Printf("%d run(s) were still incomplete.", n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	metricsServer.Shutdown(ctx)
	grpcServer.GracefulStop()
	log.Println("Shutdown complete.")
}
