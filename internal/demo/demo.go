// Package demo is a test-only in-process cluster harness: it boots a
// primary's handler+monitor plus one real worker server per roster entry,
// all inside a single test binary, so integration tests can exercise the
// end-to-end scenarios of spec §8 (SET/GET round trips, node failure and
// redistribution, node rejoin) without shelling out to separate binaries.
//
// Mirrors the Python prototype's simulate_failure.py (start workers, start
// primary, insert data, kill a node, observe recovery) but in-process:
// killing a node here means stopping its listener rather than sending
// SIGTERM to a subprocess, and "one monitor cycle" is a direct ProbeOnce
// call instead of waiting out a timer.
package demo

import (
	"context"
	"fmt"

	"ringkv/internal/cache"
	"ringkv/internal/client"
	"ringkv/internal/clusterstate"
	"ringkv/internal/config"
	"ringkv/internal/handler"
	"ringkv/internal/logging"
	"ringkv/internal/metrics"
	"ringkv/internal/monitor"
	"ringkv/internal/server"
	"ringkv/internal/workerserver"
)

// WorkerNode is one running worker's listener and cache.
type WorkerNode struct {
	ID     string
	Cache  *cache.Cache
	srv    *server.Server
	cancel context.CancelFunc
}

// Cluster is a fully wired, in-process primary + worker set.
type Cluster struct {
	Config  *config.Config
	State   *clusterstate.State
	Handler *handler.Handler
	Monitor *monitor.Monitor
	Client  *client.Client

	primarySrv *server.Server
	primaryCtx context.CancelFunc
	workers    map[string]*WorkerNode
}

// New starts a worker per id on loopback ephemeral ports, then the primary,
// and runs one synchronous probe cycle so the ring already reflects every
// worker before returning.
func New(ctx context.Context, nodeIDs []string, replicationFactor, virtualNodes, capacity int) (*Cluster, error) {
	cfg := config.Default()
	cfg.ReplicationFactor = replicationFactor
	cfg.VirtualNodes = virtualNodes
	cfg.WorkerCapacity = capacity
	cfg.Workers = make(map[string]config.NodeConfig, len(nodeIDs))
	cfg.Seed = map[string]string{}

	workers := make(map[string]*WorkerNode, len(nodeIDs))
	for _, id := range nodeIDs {
		w, err := startWorker(ctx, id, capacity)
		if err != nil {
			return nil, fmt.Errorf("demo: start worker %s: %w", id, err)
		}
		workers[id] = w
		cfg.Workers[id] = config.NodeConfig{Address: w.srv.Addr()}
	}

	state := clusterstate.New(cfg.VirtualNodes, cfg.Seed)
	reg := metrics.NewRegistry()
	primaryLog := logging.New("PrimaryServer")
	monitorLog := logging.New("Monitor")

	h := handler.New(state, cfg, reg, primaryLog)
	mon := monitor.New(state, cfg, reg, monitorLog)
	mon.ProbeOnce(ctx)

	primarySrv := server.New("127.0.0.1:0", h, primaryLog)
	if err := primarySrv.Listen(); err != nil {
		return nil, fmt.Errorf("demo: listen primary: %w", err)
	}
	primaryCtx, cancel := context.WithCancel(ctx)
	go primarySrv.Serve(primaryCtx)

	return &Cluster{
		Config:     cfg,
		State:      state,
		Handler:    h,
		Monitor:    mon,
		Client:     client.New(primarySrv.Addr()),
		primarySrv: primarySrv,
		primaryCtx: cancel,
		workers:    workers,
	}, nil
}

func startWorker(ctx context.Context, id string, capacity int) (*WorkerNode, error) {
	log := logging.New("Worker:" + id)
	c := cache.New(capacity, log)
	h := workerserver.New(id, c, log)
	srv := server.New("127.0.0.1:0", server.DispatcherFunc(h.Handle), log)
	if err := srv.Listen(); err != nil {
		return nil, err
	}
	wctx, cancel := context.WithCancel(ctx)
	go srv.Serve(wctx)
	return &WorkerNode{ID: id, Cache: c, srv: srv, cancel: cancel}, nil
}

// Kill stops a worker's listener, simulating a node failure the monitor
// will observe on its next probe.
func (c *Cluster) Kill(id string) {
	w, ok := c.workers[id]
	if !ok {
		return
	}
	w.cancel()
	w.srv.Close()
}

// Restart brings a previously killed worker back up at a fresh ephemeral
// port and updates the roster, simulating spec §8 scenario S6's rejoin.
func (c *Cluster) Restart(ctx context.Context, id string) error {
	w, err := startWorker(ctx, id, c.Config.WorkerCapacity)
	if err != nil {
		return err
	}
	c.workers[id] = w
	c.Config.Workers[id] = config.NodeConfig{Address: w.srv.Addr()}
	return nil
}

// ProbeOnce runs one membership monitor cycle.
func (c *Cluster) ProbeOnce(ctx context.Context) {
	c.Monitor.ProbeOnce(ctx)
}

// Close tears down the primary and every worker.
func (c *Cluster) Close() {
	c.primaryCtx()
	c.primarySrv.Close()
	for _, w := range c.workers {
		w.cancel()
		w.srv.Close()
	}
}
