package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/banshee-data/tfgraph/internal/api"
	"github.com/banshee-data/tfgraph/internal/config"
	"github.com/banshee-data/tfgraph/internal/ingest"
	"github.com/banshee-data/tfgraph/internal/monitoring"
	"github.com/banshee-data/tfgraph/internal/rpc"
	"github.com/banshee-data/tfgraph/internal/security"
	"github.com/banshee-data/tfgraph/internal/store"
	"github.com/banshee-data/tfgraph/internal/version"
	"github.com/banshee-data/tfgraph/tf"
)

var (
	listen       = flag.String("listen", ":8080", "HTTP listen address for JSON/debug routes")
	grpcListen   = flag.String("grpc-listen", ":9090", "gRPC listen address")
	serialPort   = flag.String("serial-port", "", "serial device to ingest pose telemetry from (empty disables)")
	pcapIface    = flag.String("pcap-iface", "", "network interface to sniff UDP pose broadcasts on (empty disables; requires -tags=pcap)")
	pcapPort     = flag.Int("pcap-port", 0, "UDP port to filter for when -pcap-iface is set")
	dbPath       = flag.String("db", "", "path to the audit-log SQLite database (empty disables audit logging)")
	configPath   = flag.String("config", "", "path to a buffer tuning JSON file (empty uses graph-wide defaults)")
	printVersion = flag.Bool("version", false, "print the version stamp and exit")
)

func main() {
	flag.Parse()

	if *printVersion {
		fmt.Printf("tfserver %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		os.Exit(0)
	}

	if *configPath != "" {
		if err := security.ValidateExportPath(*configPath); err != nil {
			log.Fatalf("-config path rejected: %v", err)
		}
	}
	if *dbPath != "" {
		if err := security.ValidateExportPath(*dbPath); err != nil {
			log.Fatalf("-db path rejected: %v", err)
		}
	}

	tuning := config.EmptyBufferTuning()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadBufferTuning(*configPath)
		if err != nil {
			log.Fatalf("failed to load buffer tuning config: %v", err)
		}
	}

	buf := tf.New(tuning.GetCacheTime(), tuning.GetMaxExtrapolation())
	buf.SetLogger(monitoring.Warnf)
	for frame := range tuning.FrameOverrides {
		buf.ConfigureFrame(frame, tuning.FrameCacheTime(frame), tuning.FrameMaxExtrapolation(frame))
	}

	var st *store.Store
	if *dbPath != "" {
		var err error
		st, err = store.Open(*dbPath)
		if err != nil {
			log.Fatalf("failed to open audit log: %v", err)
		}
		defer st.Close()
		migrationsDir := "migrations"
		if err := st.MigrateUp(migrationsDir); err != nil {
			log.Fatalf("failed to migrate audit log: %v", err)
		}
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *serialPort != "" {
		src, err := ingest.NewSerialSource(*serialPort, buf, "serial:"+*serialPort)
		if err != nil {
			log.Fatalf("failed to open serial ingest source: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := src.Monitor(ctx); err != nil {
				log.Printf("serial ingest source terminated: %v", err)
			}
		}()
	}

	if *pcapIface != "" {
		src, err := ingest.NewPcapSource(*pcapIface, *pcapPort, buf, "pcap:"+*pcapIface)
		if err != nil {
			log.Fatalf("failed to open pcap ingest source: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := src.Monitor(ctx); err != nil {
				log.Printf("pcap ingest source terminated: %v", err)
			}
		}()
	}

	// gRPC server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		lis, err := net.Listen("tcp", *grpcListen)
		if err != nil {
			log.Fatalf("failed to listen for grpc: %v", err)
		}
		codec := encoding.GetCodec(rpc.Name)
		grpcServer := grpc.NewServer(grpc.ForceServerCodec(codec))
		rpc.RegisterTransformServiceServer(grpcServer, &rpc.Server{Buffer: buf})

		go func() {
			<-ctx.Done()
			log.Println("shutting down gRPC server...")
			grpcServer.GracefulStop()
		}()

		if err := grpcServer.Serve(lis); err != nil {
			log.Printf("grpc server stopped: %v", err)
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		mux := api.NewServer(buf, st).ServeMux()
		h := api.LoggingMiddleware(mux)

		server := &http.Server{Addr: *listen, Handler: h}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start http server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("http server shutdown error: %v", err)
			server.Close()
		}
	}()

	wg.Wait()
	log.Println("tfserver shutdown complete")
}
