// Package clusterstate is the primary's single hot object: the ring and the
// catalog, behind one lock.
//
// Spec §5 allows two disciplines — one exclusive lock around both ring and
// catalog, or a shared/exclusive split — and §9's design notes recommend
// exactly this shape ("the primary has a single hot object (ring +
// catalog)... do not rely on language-level dict atomicity to paper over
// the invariant"). The teacher's cluster.Membership wraps only the ring
// under its own mutex while store.Store guards the catalog under a
// *different* mutex; operations like redistribution touch both together,
// so two separate locks can't guarantee a reader never observes a ring
// mutation and a catalog mutation from different points in time. State
// fuses them, grounded on Membership's method shape (Join/Leave/All became
// AddNode/RemoveNode/Members) but with a single sync.RWMutex.
package clusterstate

import (
	"sync"

	"ringkv/internal/catalog"
	"ringkv/internal/ring"
)

// State is the ring and the catalog, serialized by one RWMutex. Readers
// (GET, KEY_METADATA, LIST_KEYS) take the read lock; writers (SET, DELETE,
// AddNode, RemoveNode, and redistribution) take the write lock.
type State struct {
	mu      sync.RWMutex
	ring    *ring.Ring
	catalog *catalog.Catalog
}

// New creates a State with an empty ring of the given virtual-node count and
// a catalog pre-populated with seed.
func New(vnodes int, seed map[string]string) *State {
	return &State{
		ring:    ring.New(vnodes),
		catalog: catalog.New(seed),
	}
}

// AddNode adds a physical node to the ring (spec §4.1 add_node).
func (s *State) AddNode(nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ring.AddNode(nodeID)
}

// RemoveNode removes a physical node from the ring (spec §4.1 remove_node).
func (s *State) RemoveNode(nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ring.RemoveNode(nodeID)
}

// Members returns the current ring membership, sorted.
func (s *State) Members() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ring.Members()
}

// HasMember reports ring membership for a single node.
func (s *State) HasMember(nodeID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ring.HasMember(nodeID)
}

// Replicas returns the ordered, distinct replica list for key (spec §4.1
// get_replicas), first element is the owning node.
func (s *State) Replicas(key string, n int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ring.GetReplicas(key, n)
}

// Get reads a catalog value.
func (s *State) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Get(key)
}

// Set writes a catalog value.
func (s *State) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog.Set(key, value)
}

// Delete removes a catalog entry, returning whether it had existed.
func (s *State) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Delete(key)
}

// Keys returns the catalog's keys (not the ring's membership).
func (s *State) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Keys()
}

// KeysOwnedBy returns every catalog key whose first replica (under the
// *current* ring) is nodeID — used by the redistribution engine to snapshot
// a failed node's affected keys before the ring is mutated to remove it
// (spec §4.3 step 1).
func (s *State) KeysOwnedBy(nodeID string, replicationFactor int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var affected []string
	for _, key := range s.catalog.Keys() {
		replicas := s.ring.GetReplicas(key, replicationFactor)
		if len(replicas) > 0 && replicas[0] == nodeID {
			affected = append(affected, key)
		}
	}
	return affected
}
