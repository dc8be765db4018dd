package ring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRing(nodes ...string) *Ring {
	r := New(100)
	for _, n := range nodes {
		r.AddNode(n)
	}
	return r
}

func TestGetNodeEmptyRing(t *testing.T) {
	r := New(100)
	_, ok := r.GetNode("anything")
	assert.False(t, ok)
	assert.Nil(t, r.GetReplicas("anything", 2))
}

func TestReplicaCountInvariant(t *testing.T) {
	// Invariant 1: |get_replicas(k, R)| = min(R, |M|)
	r := newTestRing("n1", "n2", "n3", "n4")
	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("key-%d", i)
		replicas := r.GetReplicas(key, 2)
		require.Len(t, replicas, 2)
	}

	// With only 1 member, min(R, |M|) caps at 1.
	single := newTestRing("only")
	assert.Len(t, single.GetReplicas("x", 5), 1)
}

func TestReplicasDistinct(t *testing.T) {
	// Invariant 2: replicas are pairwise distinct.
	r := newTestRing("n1", "n2", "n3", "n4")
	seenPerKey := map[string]map[string]bool{}
	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("key-%d", i)
		replicas := r.GetReplicas(key, 3)
		seen := map[string]bool{}
		for _, node := range replicas {
			assert.False(t, seen[node], "duplicate replica %s for key %s", node, key)
			seen[node] = true
		}
		seenPerKey[key] = seen
	}
}

func TestFirstReplicaIsOwner(t *testing.T) {
	// Invariant 3: get_replicas(k, R)[0] == get_node(k).
	r := newTestRing("n1", "n2", "n3", "n4")
	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("key-%d", i)
		owner, ok := r.GetNode(key)
		require.True(t, ok)
		replicas := r.GetReplicas(key, 2)
		require.NotEmpty(t, replicas)
		assert.Equal(t, owner, replicas[0])
	}
}

func TestAddRemoveIsReversible(t *testing.T) {
	// Invariant 4: add_node(n); remove_node(n) returns the ring to its
	// prior state.
	r := newTestRing("n1", "n2", "n3")
	before := r.GetReplicas("user:101", 2)

	r.AddNode("n4")
	r.RemoveNode("n4")

	after := r.GetReplicas("user:101", 2)
	assert.Equal(t, before, after)
	assert.Equal(t, []string{"n1", "n2", "n3"}, r.Members())
}

func TestLoadDispersion(t *testing.T) {
	// Invariant 5: for 10,000 uniform keys over 4 members with V=100, the
	// max/min share ratio is <= 2.0.
	r := newTestRing("n1", "n2", "n3", "n4")
	counts := map[string]int{}
	for i := 0; i < 10000; i++ {
		key := fmt.Sprintf("dispersion-key-%d", i)
		owner, ok := r.GetNode(key)
		require.True(t, ok)
		counts[owner]++
	}

	min, max := -1, -1
	for _, c := range counts {
		if min == -1 || c < min {
			min = c
		}
		if max == -1 || c > max {
			max = c
		}
	}
	require.Greater(t, min, 0)
	ratio := float64(max) / float64(min)
	assert.LessOrEqual(t, ratio, 2.0, "dispersion ratio too high: max=%d min=%d", max, min)
}

func TestScenarioS1BasicPlacement(t *testing.T) {
	r := newTestRing("n1", "n2", "n3", "n4")
	replicas := r.GetReplicas("user:101", 2)
	require.Len(t, replicas, 2)
	assert.NotEqual(t, replicas[0], replicas[1])

	owner, ok := r.GetNode("user:101")
	require.True(t, ok)
	assert.Equal(t, owner, replicas[0])
}

func TestRemoveNodeIsIdempotentForNonMembers(t *testing.T) {
	r := newTestRing("n1", "n2")
	before := r.Members()
	r.RemoveNode("ghost")
	assert.Equal(t, before, r.Members())
}

func TestAddNodeIdempotent(t *testing.T) {
	r := newTestRing("n1")
	replicasBefore := r.GetReplicas("k", 1)
	r.AddNode("n1")
	assert.Equal(t, replicasBefore, r.GetReplicas("k", 1))
	assert.Equal(t, 1, r.MemberCount())
}
