// cmd/primary is the entrypoint for the coordinator process (spec §2: the
// primary holds the ring and the catalog, and fans client requests out to
// workers).
//
// Configuration is entirely via flags, matching the teacher's
// cmd/server/main.go convention of a single binary configured at the
// command line rather than environment variables.
//
// Example:
//
//	./primary --addr localhost:4001 --status-addr localhost:4080
//	./primary --config cluster.yaml
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ringkv/internal/clusterstate"
	"ringkv/internal/config"
	"ringkv/internal/handler"
	"ringkv/internal/logging"
	"ringkv/internal/metrics"
	"ringkv/internal/monitor"
	"ringkv/internal/server"
	"ringkv/internal/status"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (optional; defaults are used for any field left unset)")
	addr := flag.String("addr", "", "Primary listen address, overrides config")
	statusAddr := flag.String("status-addr", "", "Status/metrics HTTP listen address, overrides config")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.PrimaryAddr = *addr
	}
	if *statusAddr != "" {
		cfg.StatusAddr = *statusAddr
	}

	primaryLog := logging.New("PrimaryServer")
	monitorLog := logging.New("Monitor")

	state := clusterstate.New(cfg.VirtualNodes, cfg.Seed)
	reg := metrics.NewRegistry()

	mon := monitor.New(state, cfg, reg, monitorLog)

	// Mirror the Python prototype's create_hash_ring_with_active_nodes:
	// probe once synchronously so the ring already reflects whichever
	// workers are up before the primary accepts its first request.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), cfg.ProbeTimeout*2)
	mon.ProbeOnce(startupCtx)
	startupCancel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go mon.Run(ctx)

	h := handler.New(state, cfg, reg, primaryLog)
	srv := server.New(cfg.PrimaryAddr, h, primaryLog, server.WithAcceptRate(cfg.AcceptRatePerSec, cfg.AcceptBurst))

	statusSrv := status.New(cfg.StatusAddr, state, reg)
	go func() {
		if err := statusSrv.ListenAndServe(); err != nil {
			primaryLog.Printf("status server error: %v", err)
		}
	}()

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil {
			log.Fatalf("FATAL: primary server error: %v", err)
		}
	}()

	primaryLog.Printf("ready on %s (status on %s, R=%d, V=%d)",
		cfg.PrimaryAddr, cfg.StatusAddr, cfg.ReplicationFactor, cfg.VirtualNodes)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	primaryLog.Println("shutting down")
	cancel()
	srv.Close()
}
