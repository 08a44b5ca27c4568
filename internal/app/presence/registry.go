/*
Package presence tracks which identities are currently connected.

The registry keeps one entry per identity id in first-connect order. The relay mutates it;
anything else may read snapshots concurrently.
*/
package presence

import (
	"sync"

	"github.com/samber/lo"

	"chatrelay/internal/app/user"
)

// Entry is one connected identity as shown to other clients.
type Entry struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url"`
}

// Registry is an insertion-ordered set of entries keyed by identity id.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]Entry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Upsert records identity as connected with the display fields of p. An existing entry is
// overwritten and keeps its position.
func (r *Registry) Upsert(identity user.Identity, p user.Profile) Entry {
	entry := Entry{
		ID:        identity.ID,
		Username:  p.Username,
		AvatarURL: p.AvatarURL,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[entry.ID]; !ok {
		r.order = append(r.order, entry.ID)
	}
	r.entries[entry.ID] = entry

	return entry
}

// Remove deletes the entry for id. Removing an absent id does nothing.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return
	}
	delete(r.entries, id)
	r.order = lo.Without(r.order, id)
}

// Snapshot returns every entry in insertion order. The slice is never nil.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Map(r.order, func(id string, _ int) Entry {
		return r.entries[id]
	})
}

// Get returns the entry for id, if present.
func (r *Registry) Get(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	return e, ok
}

// Len reports the number of connected identities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
