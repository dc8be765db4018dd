// Package server is the generic connection server used by both the primary
// and every worker (spec §4.4, component H): one listening socket, one
// goroutine per accepted connection, each connection reads exactly one
// request, writes exactly one reply, and closes. No reuse, no pipelining.
//
// Grounded on the teacher's cmd/server/main.go for the listen/serve/
// graceful-shutdown shape, adapted from an HTTP listener to a raw TCP
// accept loop since spec §4.4 is explicit about the one-shot framing.
// Accept-rate limiting via golang.org/x/time/rate answers spec §5's note
// that "implementations targeting production should add" resource bounds,
// even though it is out of the core's required scope. Each connection is
// tagged with a google/uuid correlation id for its log lines, matching the
// teacher's per-request logging idiom in internal/api/middleware.go.
package server

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"ringkv/internal/logging"
	"ringkv/internal/wire"
)

// Dispatcher turns one decoded request into a reply. Implementations never
// block indefinitely — any downstream network calls must respect their own
// timeouts (spec §5).
type Dispatcher interface {
	Handle(ctx context.Context, req wire.Request) wire.Response
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, req wire.Request) wire.Response

// Handle calls f.
func (f DispatcherFunc) Handle(ctx context.Context, req wire.Request) wire.Response {
	return f(ctx, req)
}

// Server accepts TCP connections and dispatches each to a Dispatcher.
type Server struct {
	addr       string
	dispatcher Dispatcher
	log        *logging.Logger
	limiter    *rate.Limiter

	listener net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithAcceptRate bounds how fast new connections are accepted, smoothing
// bursts instead of spawning unbounded goroutines (spec §5 production note).
func WithAcceptRate(ratePerSec float64, burst int) Option {
	return func(s *Server) {
		if ratePerSec > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(ratePerSec), burst)
		}
	}
}

// New creates a Server listening on addr that dispatches to d.
func New(addr string, d Dispatcher, log *logging.Logger, opts ...Option) *Server {
	s := &Server{addr: addr, dispatcher: d, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen binds the configured address without serving yet. Callers that
// need to know the actual bound address — an ephemeral port requested via
// ":0", for example — should call Listen before Serve and read Addr().
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

// Addr returns the listener's bound address. Valid only after Listen.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// ListenAndServe binds addr (if not already bound via Listen) and serves
// connections until ctx is cancelled or Close is called. It blocks until
// the listener stops.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	return s.Serve(ctx)
}

// Serve accepts and dispatches connections on an already-bound listener
// until ctx is cancelled or Close is called. It blocks until the listener
// stops.
func (s *Server) Serve(ctx context.Context) error {
	ln := s.listener

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.log.Printf("listening on %s", ln.Addr())
	for {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil
			}
		}

		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				s.log.Printf("accept error: %v", err)
				continue
			}
		}
		go s.handleConn(ctx, conn)
	}
}

// Close stops the listener, unblocking ListenAndServe.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) handleConn(parent context.Context, conn net.Conn) {
	defer conn.Close()

	reqID := uuid.NewString()
	deadline := time.Now().Add(10 * time.Second)
	conn.SetDeadline(deadline)

	var req wire.Request
	if err := wire.ReadMessage(conn, &req); err != nil {
		s.log.Printf("[%s] read error from %s: %v", reqID, conn.RemoteAddr(), err)
		wire.WriteMessage(conn, wire.Response{Status: wire.StatusError, Message: "malformed request"})
		return
	}

	ctx, cancel := context.WithDeadline(parent, deadline)
	defer cancel()

	resp := s.dispatcher.Handle(ctx, req)

	if err := wire.WriteMessage(conn, resp); err != nil {
		s.log.Printf("[%s] write error to %s: %v", reqID, conn.RemoteAddr(), err)
	}
}
