// Package workerserver implements a worker's side of the wire protocol: the
// dispatch that turns a decoded wire.Request into a cache operation and a
// wire.Response (spec §6, "Worker wire protocol is the same schema; worker
// accepts SET/GET/DELETE/KEY_METADATA/LIST_KEYS").
//
// Grounded on the teacher's internal/api/handlers.go for the
// switch-on-action dispatch shape, re-pointed from the teacher's HTTP
// store at store.Store to a single cache.Cache.
package workerserver

import (
	"context"

	"ringkv/internal/cache"
	"ringkv/internal/logging"
	"ringkv/internal/wire"
)

// Handler dispatches worker-side wire requests against a bounded cache.
type Handler struct {
	nodeID string
	cache  *cache.Cache
	log    *logging.Logger
}

// New creates a Handler for nodeID backed by c.
func New(nodeID string, c *cache.Cache, log *logging.Logger) *Handler {
	return &Handler{nodeID: nodeID, cache: c, log: log}
}

// Handle executes req and returns the reply to write back to the caller. ctx
// is accepted to satisfy server.Dispatcher; cache operations never block.
func (h *Handler) Handle(_ context.Context, req wire.Request) wire.Response {
	switch req.Action {
	case "SET":
		h.cache.Put(req.Key, req.Value)
		return wire.Response{Status: wire.StatusStored}

	case "GET":
		if v, ok := h.cache.Get(req.Key); ok {
			value := v
			return wire.Response{Status: wire.StatusOK, Value: &value}
		}
		return wire.Response{Status: wire.StatusMiss}

	case "DELETE":
		if h.cache.Remove(req.Key) {
			return wire.Response{Status: wire.StatusDeleted}
		}
		return wire.Response{Status: wire.StatusMiss, Message: "Key not found"}

	case "KEY_METADATA":
		if v, ok := h.cache.Get(req.Key); ok {
			value := v
			return wire.Response{Status: wire.StatusOK, Value: &value}
		}
		return wire.Response{Status: wire.StatusOK}

	case "LIST_KEYS":
		return wire.Response{Status: wire.StatusOK, Keys: h.cache.Keys()}

	default:
		h.log.Printf("unknown action %q from client", req.Action)
		return wire.Response{Status: wire.StatusError, Message: "Unknown action"}
	}
}
