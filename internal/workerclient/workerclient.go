// Package workerclient is the primary's worker-facing client (spec §2
// component C): send one typed request to a named worker and read back its
// reply, over the same length-framed wire protocol used between clients and
// the primary.
//
// Grounded on the teacher's internal/client.Client for the dial-write-read-
// close idiom, but thinned to a single round trip per call (workers accept
// exactly one request per connection, spec §4.4) instead of the teacher's
// persistent-connection HTTP client.
package workerclient

import (
	"context"
	"fmt"
	"net"

	"ringkv/internal/wire"
)

// Client sends requests to a single worker's transport endpoint.
type Client struct {
	addr string
}

// New returns a Client targeting the worker listening at addr.
func New(addr string) *Client {
	return &Client{addr: addr}
}

// Do opens a connection, sends req, reads the reply, and closes — a single
// round trip, honoring ctx's deadline for both dial and the whole exchange.
func (c *Client) Do(ctx context.Context, req wire.Request) (*wire.Response, error) {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("workerclient: dial %s: %w", c.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, fmt.Errorf("workerclient: set deadline: %w", err)
		}
	}

	if err := wire.WriteMessage(conn, req); err != nil {
		return nil, fmt.Errorf("workerclient: write to %s: %w", c.addr, err)
	}

	var resp wire.Response
	if err := wire.ReadMessage(conn, &resp); err != nil {
		return nil, fmt.Errorf("workerclient: read from %s: %w", c.addr, err)
	}
	return &resp, nil
}

// Probe attempts a bare TCP connect to addr, honoring ctx's deadline. It is
// the monitor's liveness check (spec §4.3): "liveness = TCP accept succeeds
// within timeout" — no request is sent.
func Probe(ctx context.Context, addr string) bool {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
