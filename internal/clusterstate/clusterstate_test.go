package clusterstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedIsVisibleAfterNew(t *testing.T) {
	s := New(100, map[string]string{"hello": "world"})
	v, ok := s.Get("hello")
	require.True(t, ok)
	assert.Equal(t, "world", v)
}

func TestSetDeleteGet(t *testing.T) {
	s := New(100, nil)
	s.Set("k", "v")
	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	assert.True(t, s.Delete("k"))
	_, ok = s.Get("k")
	assert.False(t, ok)
}

func TestAddRemoveNodeAffectsReplicas(t *testing.T) {
	s := New(100, nil)
	s.AddNode("n1")
	s.AddNode("n2")
	s.AddNode("n3")

	assert.Len(t, s.Members(), 3)
	assert.True(t, s.HasMember("n1"))
	assert.Contains(t, s.Replicas("user:101", 3), "n2")

	s.RemoveNode("n2")
	assert.Len(t, s.Members(), 2)
	assert.False(t, s.HasMember("n2"))
	assert.NotContains(t, s.Replicas("user:101", 3), "n2")
}

func TestKeysOwnedByTracksCurrentOwner(t *testing.T) {
	s := New(100, nil)
	s.AddNode("n1")
	s.AddNode("n2")
	s.AddNode("n3")

	s.Set("user:101", "Nishil")
	replicas := s.Replicas("user:101", 1)
	require.NotEmpty(t, replicas)
	owner := replicas[0]

	owned := s.KeysOwnedBy(owner, 2)
	assert.Contains(t, owned, "user:101")

	otherNode := "n1"
	if owner == "n1" {
		otherNode = "n2"
	}
	assert.NotContains(t, s.KeysOwnedBy(otherNode, 2), "user:101")
}
