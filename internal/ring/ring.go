// Package ring implements the consistent hash ring with virtual nodes
// (spec §4.1, component B).
//
// Big idea, carried over from the teacher's internal/cluster/ring.go:
//
//	Imagine a circle of numbers. Each node is placed on the circle many
//	times (virtual nodes) using a deterministic hash. A key is placed on
//	the same circle and belongs to the first node clockwise from it. When
//	a node is added or removed, only the keys near its virtual nodes move.
//
// Unlike the teacher's ring (SHA-256 truncated to 32 bits), and like the
// Python original's hashing_ring.py (full MD5 interpreted as a 128-bit
// integer), this ring follows the spec exactly: H(s) = MD5(s), interpreted as a
// 128-bit big-endian unsigned integer. Rather than import a big-integer
// type to do arithmetic on that value, ring positions are kept as their
// raw 16-byte MD5 digest and ordered with bytes.Compare — lexicographic
// byte comparison of a big-endian encoding is identical to comparing the
// integers it encodes, so this is equivalent to uint128 comparison without
// a vendored wide-integer package.
package ring

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"sort"
)

// DefaultVirtualNodes is V from spec §3 when no explicit count is configured.
const DefaultVirtualNodes = 100

// position is a ring coordinate: the raw big-endian MD5 digest of a vnode
// label. Two positions are ordered by bytes.Compare.
type position [md5.Size]byte

func hash(s string) position {
	return position(md5.Sum([]byte(s)))
}

func less(a, b position) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

// Ring is the ordered set of (position, NodeId) pairs plus the current
// member set (spec §3 "Ring state"). It is NOT safe for concurrent use on
// its own — callers needing the discipline of spec §5 should guard it with
// the lock in package clusterstate, which owns one Ring and one catalog
// under a single mutex.
type Ring struct {
	vnodes  int
	owner   map[position]string
	sorted  []position
	members map[string]struct{}
}

// New creates an empty ring. vnodes <= 0 falls back to DefaultVirtualNodes.
func New(vnodes int) *Ring {
	if vnodes <= 0 {
		vnodes = DefaultVirtualNodes
	}
	return &Ring{
		vnodes:  vnodes,
		owner:   make(map[position]string),
		members: make(map[string]struct{}),
	}
}

func vnodeLabel(nodeID string, i int) string {
	return fmt.Sprintf("%s-vn%d", nodeID, i)
}

// AddNode places V virtual nodes for nodeID on the ring. A node already a
// member is left untouched (idempotent). Position collisions — astronomically
// unlikely with MD5 — are resolved by rejecting the later insert, per spec §3.
func (r *Ring) AddNode(nodeID string) {
	if _, ok := r.members[nodeID]; ok {
		return
	}
	for i := 0; i < r.vnodes; i++ {
		pos := hash(vnodeLabel(nodeID, i))
		if _, collision := r.owner[pos]; collision {
			continue
		}
		r.owner[pos] = nodeID
	}
	r.members[nodeID] = struct{}{}
	r.rebuild()
}

// RemoveNode deletes every virtual node tagged with nodeID. Removing a node
// that is not a member is a no-op.
func (r *Ring) RemoveNode(nodeID string) {
	if _, ok := r.members[nodeID]; !ok {
		return
	}
	for i := 0; i < r.vnodes; i++ {
		pos := hash(vnodeLabel(nodeID, i))
		if r.owner[pos] == nodeID {
			delete(r.owner, pos)
		}
	}
	delete(r.members, nodeID)
	r.rebuild()
}

func (r *Ring) rebuild() {
	r.sorted = make([]position, 0, len(r.owner))
	for pos := range r.owner {
		r.sorted = append(r.sorted, pos)
	}
	sort.Slice(r.sorted, func(i, j int) bool { return less(r.sorted[i], r.sorted[j]) })
}

// search returns the index of the first position >= pos, wrapping to 0.
func (r *Ring) search(pos position) int {
	idx := sort.Search(len(r.sorted), func(i int) bool {
		return !less(r.sorted[i], pos)
	})
	if idx == len(r.sorted) {
		idx = 0
	}
	return idx
}

// GetNode returns the owner of key's first clockwise vnode, or ("", false)
// if the ring has no members (spec §7 "Empty ring").
func (r *Ring) GetNode(key string) (string, bool) {
	if len(r.sorted) == 0 {
		return "", false
	}
	idx := r.search(hash(key))
	return r.owner[r.sorted[idx]], true
}

// GetReplicas walks the ring clockwise from key's position, collecting
// distinct physical nodes in walk order until it has n of them or has
// visited every position (spec §4.1). The result's order is preserved —
// GetReplicas(key, n)[0] always equals GetNode(key) when both are defined.
func (r *Ring) GetReplicas(key string, n int) []string {
	if len(r.sorted) == 0 || n <= 0 {
		return nil
	}

	idx := r.search(hash(key))
	seen := make(map[string]struct{}, n)
	replicas := make([]string, 0, n)

	for i := 0; i < len(r.sorted) && len(replicas) < n; i++ {
		nodeID := r.owner[r.sorted[(idx+i)%len(r.sorted)]]
		if _, dup := seen[nodeID]; dup {
			continue
		}
		seen[nodeID] = struct{}{}
		replicas = append(replicas, nodeID)
	}
	return replicas
}

// Members returns the current member NodeIds, sorted for deterministic
// output (used by LIST_KEYS' active_nodes and tests).
func (r *Ring) Members() []string {
	members := make([]string, 0, len(r.members))
	for id := range r.members {
		members = append(members, id)
	}
	sort.Strings(members)
	return members
}

// HasMember reports whether nodeID currently contributes vnodes to the ring.
func (r *Ring) HasMember(nodeID string) bool {
	_, ok := r.members[nodeID]
	return ok
}

// MemberCount returns the number of distinct physical nodes on the ring.
func (r *Ring) MemberCount() int {
	return len(r.members)
}
