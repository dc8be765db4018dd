// cmd/worker is the entrypoint for a single worker process: a bounded LRU
// cache served over the same wire protocol as the primary (spec §2, the
// worker side of components A/H, with the cache itself out of the core's
// scope per spec §1 — only its wire contract matters here).
//
// Example:
//
//	./worker --id node1 --addr localhost:5001 --capacity 3
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"ringkv/internal/cache"
	"ringkv/internal/logging"
	"ringkv/internal/server"
	"ringkv/internal/workerserver"
)

func main() {
	nodeID := flag.String("id", "node1", "Unique worker identifier")
	addr := flag.String("addr", "localhost:5001", "Listen address (host:port)")
	capacity := flag.Int("capacity", 3, "LRU cache capacity")
	flag.Parse()

	log := logging.New("Worker:" + *nodeID)

	c := cache.New(*capacity, log)
	h := workerserver.New(*nodeID, c, log)
	srv := server.New(*addr, server.DispatcherFunc(h.Handle), log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil {
			log.Printf("FATAL: server error: %v", err)
			os.Exit(1)
		}
	}()

	log.Printf("ready on %s (capacity=%d)", *addr, *capacity)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")
	cancel()
	srv.Close()
}
