// Package handler implements the request handler (spec §4.2, component E):
// SET, GET, DELETE, LIST_KEYS, KEY_METADATA against the shared ring+catalog
// state, fanning out to workers over workerclient.
//
// Grounded on the teacher's internal/api/handlers.go for the
// switch-dispatch shape and on internal/cluster/replicator.go for the
// fan-out-over-network idiom, but replicated without quorum bookkeeping or
// vector clocks (spec Non-goals) — fan-out uses golang.org/x/sync/errgroup
// the way hemzaz-freightliner/pkg/helper/util.LimitedErrGroup does, bounded
// implicitly by the small replication factor rather than a semaphore.
package handler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ringkv/internal/clusterstate"
	"ringkv/internal/config"
	"ringkv/internal/logging"
	"ringkv/internal/metrics"
	"ringkv/internal/wire"
	"ringkv/internal/workerclient"
)

// Handler implements the primary's client-facing operations.
type Handler struct {
	state   *clusterstate.State
	cfg     *config.Config
	metrics *metrics.Registry
	log     *logging.Logger
}

// New creates a Handler over the given shared state and configuration.
func New(state *clusterstate.State, cfg *config.Config, reg *metrics.Registry, log *logging.Logger) *Handler {
	return &Handler{state: state, cfg: cfg, metrics: reg, log: log}
}

// Handle dispatches req and returns its reply, and satisfies server.Dispatcher.
func (h *Handler) Handle(ctx context.Context, req wire.Request) wire.Response {
	start := time.Now()
	resp := h.dispatch(ctx, req)
	if h.metrics != nil {
		h.metrics.RecordRequest(req.Action, resp.Status, time.Since(start))
	}
	return resp
}

func (h *Handler) dispatch(ctx context.Context, req wire.Request) wire.Response {
	switch req.Action {
	case "SET":
		return h.handleSet(ctx, req.Key, req.Value)
	case "GET":
		return h.handleGet(ctx, req.Key)
	case "DELETE":
		return h.handleDelete(ctx, req.Key)
	case "LIST_KEYS":
		return h.handleListKeys(ctx)
	case "KEY_METADATA":
		return h.handleKeyMetadata(req.Key)
	default:
		return wire.Response{Status: wire.StatusError, Message: "Unknown action"}
	}
}

// handleSet implements spec §4.2 SET: catalog write, then best-effort
// replicate fan-out; an empty ring is a transient startup state and yields
// ERROR rather than a silent no-op write (spec §7 "Empty ring").
func (h *Handler) handleSet(ctx context.Context, key, value string) wire.Response {
	replicas := h.state.Replicas(key, h.cfg.ReplicationFactor)
	if len(replicas) == 0 {
		return wire.Response{Status: wire.StatusError, Message: "empty ring"}
	}

	h.state.Set(key, value)
	h.replicateTo(ctx, replicas, wire.Request{Action: "SET", Key: key, Value: value})
	return wire.Response{Status: wire.StatusStored}
}

// handleGet implements spec §4.2 GET: try replicas in order, fall back to
// the catalog with opportunistic re-replication, otherwise MISS.
func (h *Handler) handleGet(ctx context.Context, key string) wire.Response {
	replicas := h.state.Replicas(key, h.cfg.ReplicationFactor)
	if len(replicas) == 0 {
		return wire.Response{Status: wire.StatusMiss}
	}

	for _, node := range replicas {
		resp, err := h.askWorker(ctx, node, wire.Request{Action: "GET", Key: key})
		if err != nil {
			h.log.Printf("GET %s: worker %s unreachable: %v", key, node, err)
			continue
		}
		if resp.Status == wire.StatusOK && resp.Value != nil {
			value := *resp.Value
			return wire.Response{Status: wire.StatusOK, Value: &value}
		}
	}

	if value, ok := h.state.Get(key); ok {
		h.replicateTo(ctx, replicas, wire.Request{Action: "SET", Key: key, Value: value})
		v := value
		return wire.Response{Status: wire.StatusOK, Value: &v}
	}

	return wire.Response{Status: wire.StatusMiss}
}

// handleDelete implements spec §4.2 DELETE: remove from the catalog, then
// best-effort fan-out delete, never retried.
func (h *Handler) handleDelete(ctx context.Context, key string) wire.Response {
	existed := h.state.Delete(key)
	replicas := h.state.Replicas(key, h.cfg.ReplicationFactor)
	h.replicateTo(ctx, replicas, wire.Request{Action: "DELETE", Key: key})

	if existed {
		return wire.Response{Status: wire.StatusDeleted}
	}
	return wire.Response{Status: wire.StatusMiss, Message: "Key not found"}
}

// handleListKeys implements spec §4.2 LIST_KEYS: the union of catalog keys
// and every live member's reported key set, plus the current member list.
func (h *Handler) handleListKeys(ctx context.Context) wire.Response {
	members := h.state.Members()
	union := make(map[string]struct{})
	for _, k := range h.state.Keys() {
		union[k] = struct{}{}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, node := range members {
		node := node
		g.Go(func() error {
			resp, err := h.askWorker(gctx, node, wire.Request{Action: "LIST_KEYS"})
			if err != nil {
				h.log.Printf("LIST_KEYS: worker %s unreachable: %v", node, err)
				return nil
			}
			mu.Lock()
			for _, k := range resp.Keys {
				union[k] = struct{}{}
			}
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	keys := make([]string, 0, len(union))
	for k := range union {
		keys = append(keys, k)
	}
	return wire.Response{Status: wire.StatusOK, Keys: keys, ActiveNodes: members}
}

// handleKeyMetadata implements spec §4.2 KEY_METADATA: replica list plus
// the catalog value if present, with no attempt to fetch from workers. The
// sentinel-value ambiguity flagged in spec §9 is resolved with the explicit
// InWorkerCache flag instead of the literal string "In worker cache".
func (h *Handler) handleKeyMetadata(key string) wire.Response {
	replicas := h.state.Replicas(key, h.cfg.ReplicationFactor)
	resp := wire.Response{Status: wire.StatusOK, Replicas: replicas}
	if len(replicas) > 0 {
		resp.Primary = replicas[0]
	}

	if value, ok := h.state.Get(key); ok {
		v := value
		resp.Value = &v
	} else {
		resp.InWorkerCache = true
	}
	return resp
}

// replicateTo fans req out to every node in replicas, logging and
// swallowing individual failures (spec §4.2 step 3, §7 "Transport" errors).
func (h *Handler) replicateTo(ctx context.Context, replicas []string, req wire.Request) {
	g, gctx := errgroup.WithContext(ctx)
	for _, node := range replicas {
		node := node
		g.Go(func() error {
			_, err := h.askWorker(gctx, node, req)
			ok := err == nil
			if h.metrics != nil {
				h.metrics.RecordReplication(ok)
			}
			if err != nil {
				h.log.Printf("replicate %s to %s: %v", req.Action, node, err)
			}
			return nil
		})
	}
	g.Wait()
}

func (h *Handler) askWorker(ctx context.Context, nodeID string, req wire.Request) (*wire.Response, error) {
	addr, ok := h.cfg.Address(nodeID)
	if !ok {
		return nil, fmt.Errorf("handler: unknown node %q", nodeID)
	}
	timeout := h.cfg.FetchTimeout
	if req.Action == "SET" || req.Action == "DELETE" {
		timeout = h.cfg.ReplicateTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return workerclient.New(addr).Do(cctx, req)
}
