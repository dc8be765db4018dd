// Package wire implements the framed request/response protocol spoken
// between clients and the primary, and between the primary and workers
// (spec §6, component A).
//
// The original prototype serialized Python dicts with pickle and relied on
// a single recv(4096) call returning the whole message — unsafe (arbitrary
// object deserialization) and fragile (silently truncates anything larger
// than one read). This implementation replaces that with a concrete,
// length-framed, language-neutral encoding: a 4-byte big-endian length
// prefix followed by a JSON object, read with io.ReadFull so fragmented or
// oversized messages never get silently truncated.
package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// maxMessageSize bounds a single frame. The defined actions never need more
// than a few KiB; this guards a connection from being asked to allocate an
// unbounded buffer for a malformed length prefix.
const maxMessageSize = 1 << 20 // 1 MiB

// Request is the logical schema shared by client→primary and primary→worker
// traffic (spec §6).
type Request struct {
	Action string `json:"action"`
	Key    string `json:"key,omitempty"`
	Value  string `json:"value,omitempty"`
}

// Response covers every action's reply shape in one struct; unused fields
// are omitted on the wire. KEY_METADATA's sentinel ambiguity (spec §9) is
// resolved by the explicit InWorkerCache flag instead of overloading Value
// with the literal string "In worker cache".
type Response struct {
	Status      string   `json:"status"`
	Message     string   `json:"message,omitempty"`
	Value       *string  `json:"value,omitempty"`
	Keys        []string `json:"keys,omitempty"`
	ActiveNodes []string `json:"active_nodes,omitempty"`
	Primary     string   `json:"primary,omitempty"`
	Replicas    []string `json:"replicas,omitempty"`

	// InWorkerCache is set on KEY_METADATA replies when the catalog has no
	// entry for the key but the key may still live in a worker's LRU cache.
	InWorkerCache bool `json:"in_worker_cache,omitempty"`
}

const (
	StatusStored  = "STORED"
	StatusOK      = "OK"
	StatusMiss    = "MISS"
	StatusDeleted = "DELETED"
	StatusError   = "ERROR"
)

// WriteMessage frames v as a length-prefixed JSON document and writes it to w.
func WriteMessage(w io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wire: marshal: %w", err)
	}
	if len(body) > maxMessageSize {
		return fmt.Errorf("wire: message too large (%d bytes)", len(body))
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("wire: write length: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("wire: write body: %w", err)
	}
	return nil
}

// ReadMessage reads one length-prefixed JSON document from r into v.
func ReadMessage(r io.Reader, v any) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return fmt.Errorf("wire: read length: %w", err)
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > maxMessageSize {
		return fmt.Errorf("wire: message too large (%d bytes)", size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return fmt.Errorf("wire: read body: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("wire: unmarshal: %w", err)
	}
	return nil
}
