package connection

import (
	"sync"

	"github.com/google/uuid"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
)

// ProfileRegistry caches the live instance of every loaded profile. Instances
// are replaced, never mutated field by field: an edit builds a new instance
// and installs it, so readers always see one consistent version.
//
// The cache is per process. ProfileService checks the stored version before
// handing an instance out, so changes made by other replicas are picked up
// on the next access.
type ProfileRegistry struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]*connection.ConnectionProfile
	locks    sync.Map // map[uuid.UUID]*sync.Mutex
}

// NewProfileRegistry creates an empty registry
func NewProfileRegistry() *ProfileRegistry {
	return &ProfileRegistry{profiles: make(map[uuid.UUID]*connection.ConnectionProfile)}
}

// Get returns the live instance of a profile
func (r *ProfileRegistry) Get(id uuid.UUID) (*connection.ConnectionProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	return p, ok
}

// Put installs p as the live instance
func (r *ProfileRegistry) Put(p *connection.ConnectionProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.ID] = p
}

// Refresh installs p unless the live instance is at least as new, and
// returns whichever instance is live afterwards.
func (r *ProfileRegistry) Refresh(p *connection.ConnectionProfile) *connection.ConnectionProfile {
	r.mu.Lock()
	defer r.mu.Unlock()
	if live, ok := r.profiles[p.ID]; ok && live.Version >= p.Version {
		return live
	}
	r.profiles[p.ID] = p
	return p
}

// Evict drops the live instance
func (r *ProfileRegistry) Evict(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.profiles, id)
}

// Len returns the number of live profiles
func (r *ProfileRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}

// Lock takes the exclusive edit lock of one profile and returns its release
// function. Locks of different profiles are independent.
func (r *ProfileRegistry) Lock(id uuid.UUID) func() {
	v, _ := r.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
