// Package client is a Go SDK for talking to a ringkv primary.
//
// Big idea, carried from the teacher's internal/client.Client doc comment:
// instead of writing raw socket code everywhere, wrap it inside a clean Go
// API. Users call client.Get/Set/Delete instead of framing wire.Requests
// by hand. Unlike the teacher's HTTP-based SDK, this one speaks the
// length-framed TCP wire protocol mandated by spec §6, opening one
// connection per call (no pipelining, spec §4.4).
package client

import (
	"context"
	"errors"
	"fmt"
	"net"

	"ringkv/internal/wire"
)

// ErrNotFound is returned by Get when the key is a miss.
var ErrNotFound = errors.New("client: key not found")

// Client talks to a single ringkv primary over the wire protocol.
type Client struct {
	addr string
}

// New creates a Client targeting the primary listening at addr.
func New(addr string) *Client {
	return &Client{addr: addr}
}

func (c *Client) roundTrip(ctx context.Context, req wire.Request) (*wire.Response, error) {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", c.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if err := wire.WriteMessage(conn, req); err != nil {
		return nil, fmt.Errorf("client: write: %w", err)
	}
	var resp wire.Response
	if err := wire.ReadMessage(conn, &resp); err != nil {
		return nil, fmt.Errorf("client: read: %w", err)
	}
	return &resp, nil
}

// Set stores key=value (spec §4.2 SET).
func (c *Client) Set(ctx context.Context, key, value string) error {
	resp, err := c.roundTrip(ctx, wire.Request{Action: "SET", Key: key, Value: value})
	if err != nil {
		return err
	}
	if resp.Status != wire.StatusStored {
		return fmt.Errorf("client: set %q: %s", key, resp.Message)
	}
	return nil
}

// Get retrieves key's value, returning ErrNotFound on a miss.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	resp, err := c.roundTrip(ctx, wire.Request{Action: "GET", Key: key})
	if err != nil {
		return "", err
	}
	if resp.Status != wire.StatusOK || resp.Value == nil {
		return "", ErrNotFound
	}
	return *resp.Value, nil
}

// Delete removes key, reporting ErrNotFound if it was already absent.
func (c *Client) Delete(ctx context.Context, key string) error {
	resp, err := c.roundTrip(ctx, wire.Request{Action: "DELETE", Key: key})
	if err != nil {
		return err
	}
	if resp.Status == wire.StatusMiss {
		return ErrNotFound
	}
	if resp.Status != wire.StatusDeleted {
		return fmt.Errorf("client: delete %q: %s", key, resp.Message)
	}
	return nil
}

// ListKeys returns every known key and the currently active node set.
func (c *Client) ListKeys(ctx context.Context) ([]string, []string, error) {
	resp, err := c.roundTrip(ctx, wire.Request{Action: "LIST_KEYS"})
	if err != nil {
		return nil, nil, err
	}
	return resp.Keys, resp.ActiveNodes, nil
}

// KeyMetadata returns key's replica list and catalog value, if any.
func (c *Client) KeyMetadata(ctx context.Context, key string) (*wire.Response, error) {
	return c.roundTrip(ctx, wire.Request{Action: "KEY_METADATA", Key: key})
}
