// Package placement is the Placement Registry & Supervisor (PRS):
// cluster-wide session_id/join_code → node mappings, deterministic
// placement by consistent hashing, and the restart policy for Session
// Runtime actors (spec.md §4.5).
package placement

import (
	"hash/fnv"
	"sort"
	"strconv"
	"sync"
)

// Ring is a consistent-hash ring over a set of node ids. Virtual nodes
// spread load evenly the way the shard-distribution sketch in the
// reference coordinator designs describes: each real node is hashed to
// several ring positions so no single node absorbs a disproportionate
// share of sessions when membership changes.
type Ring struct {
	mu          sync.RWMutex
	virtualCopy int
	sorted      []uint32
	hashToNode  map[uint32]string
	members     map[string]bool
}

func NewRing(virtualCopy int) *Ring {
	if virtualCopy <= 0 {
		virtualCopy = 128
	}
	return &Ring{
		virtualCopy: virtualCopy,
		hashToNode:  make(map[uint32]string),
		members:     make(map[string]bool),
	}
}

func hashKey(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

// AddNode adds nodeID's virtual positions to the ring. No-op if already
// present.
func (r *Ring) AddNode(nodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members[nodeID] {
		return
	}
	r.members[nodeID] = true
	for i := 0; i < r.virtualCopy; i++ {
		h := hashKey(nodeID + "#" + strconv.Itoa(i))
		r.hashToNode[h] = nodeID
	}
	r.rebuildLocked()
}

// RemoveNode removes nodeID's virtual positions from the ring.
func (r *Ring) RemoveNode(nodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.members[nodeID] {
		return
	}
	delete(r.members, nodeID)
	for i := 0; i < r.virtualCopy; i++ {
		h := hashKey(nodeID + "#" + strconv.Itoa(i))
		delete(r.hashToNode, h)
	}
	r.rebuildLocked()
}

func (r *Ring) rebuildLocked() {
	sorted := make([]uint32, 0, len(r.hashToNode))
	for h := range r.hashToNode {
		sorted = append(sorted, h)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	r.sorted = sorted
}

// Owner returns the node id that key hashes to: the first ring position
// at or after hash(key), wrapping around to the first position.
func (r *Ring) Owner(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.sorted) == 0 {
		return "", false
	}
	h := hashKey(key)
	idx := sort.Search(len(r.sorted), func(i int) bool { return r.sorted[i] >= h })
	if idx == len(r.sorted) {
		idx = 0
	}
	return r.hashToNode[r.sorted[idx]], true
}

// Members returns the current node set, for diagnostics and tests.
func (r *Ring) Members() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.members))
	for m := range r.members {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
