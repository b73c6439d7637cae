package tf

import (
	"fmt"
	"sync"
)

// FrameID is a dense, small, never-recycled frame identifier. Id 0 is the
// sentinel NoParent: it has no associated TimeCache and terminates upward
// traversal.
type FrameID uint32

// NoParent is the sentinel id reserved for "has no parent" / "root of its
// tree", pre-bound to the name "NO_PARENT".
const NoParent FrameID = 0

// Registry is a bidirectional name<->id mapping, extended to also own the
// parallel per-id TimeCache and authority slices. Keeping all three under
// one mutex is what lets LookupOrInsert allocate an id and its cache
// atomically, rather than guarding the cache vector separately and risking
// the two falling out of sync.
type Registry struct {
	mu        sync.RWMutex
	nameToID  map[string]FrameID
	idToName  []string
	caches    []*TimeCache
	authority []string
}

// NewRegistry returns a Registry with id 0 pre-bound to "NO_PARENT".
func NewRegistry() *Registry {
	return &Registry{
		nameToID:  map[string]FrameID{"NO_PARENT": NoParent},
		idToName:  []string{"NO_PARENT"},
		caches:    []*TimeCache{nil},
		authority: []string{""},
	}
}

// Lookup resolves name to its id, failing with a *LookupError if it has
// never been seen.
func (r *Registry) Lookup(name string) (FrameID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	if !ok {
		return 0, &LookupError{Msg: fmt.Sprintf("Frame id %s does not exist!", name)}
	}
	return id, nil
}

// LookupOrInsert resolves name to its id, allocating a new dense id and an
// empty TimeCache (via newCache) if name has not been seen before.
func (r *Registry) LookupOrInsert(name string, newCache func() *TimeCache) FrameID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.nameToID[name]; ok {
		return id
	}
	id := FrameID(len(r.idToName))
	r.idToName = append(r.idToName, name)
	r.nameToID[name] = id
	r.caches = append(r.caches, newCache())
	r.authority = append(r.authority, "")
	return id
}

// Name resolves id to its registered name, failing with a *LookupError if
// id is out of range.
func (r *Registry) Name(id FrameID) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.idToName) {
		return "", &LookupError{Msg: fmt.Sprintf("Reverse lookup of frame id %d failed!", id)}
	}
	return r.idToName[id], nil
}

// Count returns the number of registered frames, including NO_PARENT.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.idToName)
}

// cacheFor returns the TimeCache owned by id, or nil for NoParent or an
// out-of-range id. The returned pointer is safe to use after the registry
// lock is released: caches are never replaced or removed from the slice,
// only cleared in place by Clear.
func (r *Registry) cacheFor(id FrameID) *TimeCache {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id == NoParent || int(id) >= len(r.caches) {
		return nil
	}
	return r.caches[id]
}

func (r *Registry) setAuthority(id FrameID, authority string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(id) < len(r.authority) {
		r.authority[id] = authority
	}
}

func (r *Registry) authorityFor(id FrameID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) < len(r.authority) {
		return r.authority[id]
	}
	return ""
}

// clearCaches empties every owned TimeCache's sample list without
// forgetting any name/id binding — frame ids stay stable across a Clear.
func (r *Registry) clearCaches() {
	r.mu.RLock()
	caches := append([]*TimeCache(nil), r.caches...)
	r.mu.RUnlock()
	for _, c := range caches {
		if c != nil {
			c.clearList()
		}
	}
}
