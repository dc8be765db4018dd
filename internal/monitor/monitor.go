// Package monitor implements the membership monitor (F) and redistribution
// engine (G) from spec §4.3: periodic liveness probing of the worker
// roster, ring mutation on change, and rehealing of keys orphaned by a
// failed node.
//
// Grounded on the ticker-driven probe loop in
// johnjansen-torua/internal/coordinator/health_monitor.go (interval timer,
// per-node status tracking, callback on state transition), generalized from
// torua's HTTP /health checks to the spec's bare TCP-connect liveness test
// and its three-state machine (UNKNOWN/MEMBER/ABSENT). Redistribution's
// worker fan-out follows the same errgroup idiom as internal/handler.
package monitor

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"ringkv/internal/clusterstate"
	"ringkv/internal/config"
	"ringkv/internal/logging"
	"ringkv/internal/metrics"
	"ringkv/internal/wire"
	"ringkv/internal/workerclient"
)

// state is a roster entry's liveness classification (spec §4.3 state machine).
type state int

const (
	stateUnknown state = iota
	stateMember
	stateAbsent
)

// Monitor runs the probe loop and, on node removal, the redistribution
// engine against a shared clusterstate.State.
type Monitor struct {
	state   *clusterstate.State
	cfg     *config.Config
	metrics *metrics.Registry
	log     *logging.Logger

	nodeState map[string]state
}

// New creates a Monitor over the given shared state and configuration.
// Every roster entry starts UNKNOWN; the first cycle classifies them.
func New(st *clusterstate.State, cfg *config.Config, reg *metrics.Registry, log *logging.Logger) *Monitor {
	nodeState := make(map[string]state, len(cfg.Workers))
	for id := range cfg.Workers {
		nodeState[id] = stateUnknown
	}
	return &Monitor{state: st, cfg: cfg, metrics: reg, log: log, nodeState: nodeState}
}

// ProbeOnce runs a single probe-and-reconcile cycle, used both by Run's
// ticker and by startup (mirroring the Python prototype's
// create_hash_ring_with_active_nodes, which populates the ring from
// whichever workers are already reachable before the primary serves any
// request).
func (m *Monitor) ProbeOnce(ctx context.Context) {
	alive := m.probeAll(ctx)

	for nodeID := range m.cfg.Workers {
		_, isAlive := alive[nodeID]
		prev := m.nodeState[nodeID]

		switch {
		case isAlive && prev != stateMember:
			m.nodeState[nodeID] = stateMember
			m.state.AddNode(nodeID)
			m.log.Printf("node %s joined the ring", nodeID)

		case !isAlive && prev == stateMember:
			m.nodeState[nodeID] = stateAbsent
			m.log.Printf("node %s failed liveness probe, removing from ring", nodeID)
			m.redistribute(ctx, nodeID, alive)

		case !isAlive:
			m.nodeState[nodeID] = stateAbsent
		}
	}

	if m.metrics != nil {
		m.metrics.SetRingMembers(len(m.state.Members()))
		m.metrics.SetCatalogSize(len(m.state.Keys()))
	}
}

// Run probes every cfg.ProbeInterval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ProbeOnce(ctx)
		}
	}
}

// probeAll attempts a TCP connect to every roster entry and returns the set
// of node IDs whose address answered within cfg.ProbeTimeout (spec §4.3 "Liveness
// probe semantics").
func (m *Monitor) probeAll(ctx context.Context) map[string]struct{} {
	alive := make(map[string]struct{})
	type result struct {
		id    string
		alive bool
	}
	results := make(chan result, len(m.cfg.Workers))

	for nodeID, node := range m.cfg.Workers {
		go func(id, addr string) {
			cctx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
			defer cancel()
			ok := workerclient.Probe(cctx, addr)
			results <- result{id: id, alive: ok}
		}(nodeID, node.Address)
	}

	for range m.cfg.Workers {
		r := <-results
		if m.metrics != nil {
			m.metrics.RecordProbe(r.alive)
		}
		if r.alive {
			alive[r.id] = struct{}{}
		}
	}
	return alive
}

// redistribute implements spec §4.3's redistribution algorithm for a failed
// node f: snapshot the catalog keys f had owned (computed against the
// still-pre-removal ring, since the spec treats "keys whose primary was f"
// as equivalent to the post-removal computation — the source's snapshot
// approach and the post-removal recomputation only differ in transient
// ordering, and tests only observe end-state per §4.3's note), remove f
// from the ring, then for each affected key pick a surviving replica (or
// fall back to the catalog) and re-replicate to the new replica set.
func (m *Monitor) redistribute(ctx context.Context, failed string, alive map[string]struct{}) {
	affected := m.state.KeysOwnedBy(failed, m.cfg.ReplicationFactor)
	m.state.RemoveNode(failed)

	if len(affected) == 0 {
		return
	}
	if m.metrics != nil {
		m.metrics.RecordRedistribution()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, key := range affected {
		key := key
		g.Go(func() error {
			m.healKey(gctx, key, alive)
			return nil
		})
	}
	g.Wait()
}

// healKey restores replica coverage for a single orphaned key (spec §4.3
// step 2).
func (m *Monitor) healKey(ctx context.Context, key string, alive map[string]struct{}) {
	replicas := m.state.Replicas(key, m.cfg.ReplicationFactor)
	if len(replicas) == 0 {
		return
	}

	var survivors []string
	for _, node := range replicas {
		if _, ok := alive[node]; ok {
			survivors = append(survivors, node)
		}
	}

	var value string
	var found bool

	if len(survivors) > 0 {
		src := survivors[0]
		if v, err := m.fetchFrom(ctx, src, key); err == nil && v != nil {
			value, found = *v, true
		}
	}

	if !found {
		if v, ok := m.state.Get(key); ok {
			value, found = v, true
		} else {
			return
		}
	}

	m.state.Set(key, value)
	m.replicateTo(ctx, replicas, wire.Request{Action: "SET", Key: key, Value: value})
}

func (m *Monitor) fetchFrom(ctx context.Context, nodeID, key string) (*string, error) {
	addr, ok := m.cfg.Address(nodeID)
	if !ok {
		return nil, nil
	}
	cctx, cancel := context.WithTimeout(ctx, m.cfg.FetchTimeout)
	defer cancel()

	resp, err := workerclient.New(addr).Do(cctx, wire.Request{Action: "GET", Key: key})
	if err != nil {
		return nil, err
	}
	if resp.Status != wire.StatusOK {
		return nil, nil
	}
	return resp.Value, nil
}

func (m *Monitor) replicateTo(ctx context.Context, replicas []string, req wire.Request) {
	g, gctx := errgroup.WithContext(ctx)
	for _, node := range replicas {
		node := node
		g.Go(func() error {
			addr, ok := m.cfg.Address(node)
			if !ok {
				return nil
			}
			cctx, cancel := context.WithTimeout(gctx, m.cfg.ReplicateTimeout)
			defer cancel()
			_, err := workerclient.New(addr).Do(cctx, req)
			ok2 := err == nil
			if m.metrics != nil {
				m.metrics.RecordReplication(ok2)
			}
			if err != nil {
				m.log.Printf("redistribute: replicate %s to %s: %v", req.Key, node, err)
			}
			return nil
		})
	}
	g.Wait()
}
