// Package catalog is the primary's authoritative key→value map (spec §3
// "Catalog entry", component D). It is adapted from the teacher's
// internal/store.Store, stripped of the teacher's write-ahead log and
// snapshot machinery and its vector-clock reconciliation: spec §1 lists
// "durability across restarts" and conflict resolution beyond the
// opportunistic read-repair path as explicit Non-goals, and the catalog has
// exactly one writer (the primary process), so there is nothing to
// reconcile versions of. What survives is the teacher's shape: a map seeded
// at construction. Unlike the teacher's store it has no mutex of its own;
// clusterstate.State guards it.
package catalog

import "maps"

// Catalog is a plain key→value map. It carries no lock of its own — like
// ring.Ring, it is meant to be embedded in clusterstate.State under that
// package's single mutex (spec §5 discipline), not used standalone under
// concurrent access.
type Catalog struct {
	data map[string]string
}

// New creates a Catalog pre-populated with seed (spec §9: the startup
// contract seeds "hello"->"world", "code"->"it559", "dis"->"sys").
func New(seed map[string]string) *Catalog {
	c := &Catalog{data: make(map[string]string, len(seed))}
	maps.Copy(c.data, seed)
	return c
}

// Get returns the value for key and whether it was present.
func (c *Catalog) Get(key string) (string, bool) {
	v, ok := c.data[key]
	return v, ok
}

// Set stores key=value, overwriting any existing entry.
func (c *Catalog) Set(key, value string) {
	c.data[key] = value
}

// Delete removes key and reports whether it had previously existed.
func (c *Catalog) Delete(key string) bool {
	_, existed := c.data[key]
	delete(c.data, key)
	return existed
}

// Keys returns every key currently in the catalog, in no particular order.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	return keys
}
