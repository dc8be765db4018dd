package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ringkv/internal/cache"
	"ringkv/internal/clusterstate"
	"ringkv/internal/config"
	"ringkv/internal/logging"
	"ringkv/internal/metrics"
	"ringkv/internal/server"
	"ringkv/internal/workerserver"
)

type testWorker struct {
	addr   string
	srv    *server.Server
	cancel context.CancelFunc
}

func startTestWorker(t *testing.T, id string) *testWorker {
	t.Helper()
	log := logging.New("test")
	c := cache.New(3, log)
	h := workerserver.New(id, c, log)
	srv := server.New("127.0.0.1:0", server.DispatcherFunc(h.Handle), log)
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	go srv.Serve(ctx)
	return &testWorker{addr: srv.Addr(), srv: srv, cancel: cancel}
}

func (w *testWorker) kill() {
	w.cancel()
	w.srv.Close()
}

func newTestMonitor(t *testing.T, ids ...string) (*Monitor, *clusterstate.State, *config.Config, map[string]*testWorker) {
	t.Helper()
	cfg := config.Default()
	cfg.Workers = make(map[string]config.NodeConfig, len(ids))
	cfg.Seed = nil
	cfg.ProbeTimeout = time.Second
	cfg.FetchTimeout = time.Second
	cfg.ReplicateTimeout = time.Second

	workers := make(map[string]*testWorker, len(ids))
	for _, id := range ids {
		w := startTestWorker(t, id)
		workers[id] = w
		cfg.Workers[id] = config.NodeConfig{Address: w.addr}
	}
	t.Cleanup(func() {
		for _, w := range workers {
			w.kill()
		}
	})

	state := clusterstate.New(cfg.VirtualNodes, cfg.Seed)
	mon := New(state, cfg, metrics.NewRegistry(), logging.New("test"))
	return mon, state, cfg, workers
}

func TestProbeOnceAddsLiveNodes(t *testing.T) {
	mon, state, _, _ := newTestMonitor(t, "n1", "n2", "n3")
	mon.ProbeOnce(context.Background())
	assert.ElementsMatch(t, []string{"n1", "n2", "n3"}, state.Members())
}

func TestProbeOnceRemovesDeadNodeAndHealsKey(t *testing.T) {
	mon, state, cfg, workers := newTestMonitor(t, "n1", "n2", "n3", "n4")
	ctx := context.Background()
	mon.ProbeOnce(ctx)

	// No worker ever received the value via replication, so the fetch from
	// the surviving replica misses and healing falls back to the catalog
	// (spec §4.3 step 2c).
	state.Set("user:103", "Kaival")
	replicas := state.Replicas("user:103", cfg.ReplicationFactor)
	require.NotEmpty(t, replicas)
	failed := replicas[0]

	workers[failed].kill()
	mon.ProbeOnce(ctx)

	assert.NotContains(t, state.Members(), failed)
	v, ok := state.Get("user:103")
	require.True(t, ok)
	assert.Equal(t, "Kaival", v)

	// Every replica in the post-removal set now holds the healed value.
	for _, node := range state.Replicas("user:103", cfg.ReplicationFactor) {
		got, err := mon.fetchFrom(ctx, node, "user:103")
		require.NoError(t, err)
		require.NotNil(t, got, "replica %s was not healed", node)
		assert.Equal(t, "Kaival", *got)
	}
}

func TestProbeOnceRejoinRestoresMembership(t *testing.T) {
	mon, state, cfg, workers := newTestMonitor(t, "n1", "n2", "n3")
	ctx := context.Background()
	mon.ProbeOnce(ctx)
	require.Len(t, state.Members(), 3)

	workers["n2"].kill()
	mon.ProbeOnce(ctx)
	assert.Len(t, state.Members(), 2)

	w := startTestWorker(t, "n2")
	t.Cleanup(w.kill)
	cfg.Workers["n2"] = config.NodeConfig{Address: w.addr}

	mon.ProbeOnce(ctx)
	assert.Contains(t, state.Members(), "n2")
	assert.Len(t, state.Members(), 3)
}
