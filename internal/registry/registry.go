// Package registry holds the two keyed indexes the control plane is built
// around: a unique device_id -> agent index, and a duplicate-permitting
// topic -> subscriber pub/sub index.
package registry

import (
	"sync"

	"github.com/jmartin-dev/musiccast-hub-go/internal/apperrors"
)

// Entry is what the registry knows about one registered device.
type Entry struct {
	AgentID string
	Host    string
}

// Registry is the unique device_id -> (agent-id, host) index. At most one
// entry may exist per device_id at a time.
type Registry struct {
	mu      sync.RWMutex
	byID    map[string]Entry
	byHost  map[string]string // host -> device_id, for liveness checks
	byAgent map[string][]string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byID:    make(map[string]Entry),
		byHost:  make(map[string]string),
		byAgent: make(map[string][]string),
	}
}

// Register claims deviceID for agentID at host. It fails with
// apperrors.KindAlreadyRegistered if the id is already claimed by a live
// agent.
func (r *Registry) Register(deviceID, agentID, host string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[deviceID]; exists {
		return apperrors.NewAlreadyRegistered(deviceID)
	}

	r.byID[deviceID] = Entry{AgentID: agentID, Host: host}
	r.byHost[host] = deviceID
	r.byAgent[agentID] = append(r.byAgent[agentID], deviceID)
	return nil
}

// Unregister releases deviceID. It is a no-op if the id isn't registered.
func (r *Registry) Unregister(deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unregisterLocked(deviceID)
}

func (r *Registry) unregisterLocked(deviceID string) {
	entry, ok := r.byID[deviceID]
	if !ok {
		return
	}
	delete(r.byID, deviceID)
	delete(r.byHost, entry.Host)

	ids := r.byAgent[entry.AgentID]
	for i, id := range ids {
		if id == deviceID {
			r.byAgent[entry.AgentID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(r.byAgent[entry.AgentID]) == 0 {
		delete(r.byAgent, entry.AgentID)
	}
}

// UnregisterAgent releases every device_id claimed by agentID, reclaiming
// its registry entries when the agent terminates.
func (r *Registry) UnregisterAgent(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, deviceID := range append([]string(nil), r.byAgent[agentID]...) {
		r.unregisterLocked(deviceID)
	}
}

// Lookup returns the entry registered under deviceID, if any.
func (r *Registry) Lookup(deviceID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byID[deviceID]
	return entry, ok
}

// DeviceIDForHost returns the device_id registered for a given host, if
// any.
func (r *Registry) DeviceIDForHost(host string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byHost[host]
	return id, ok
}

// IsLive reports whether host currently has a registered agent. The SSDP
// listener uses this as its liveness check instead of keeping its own
// membership set.
func (r *Registry) IsLive(host string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byHost[host]
	return ok
}

// AgentIDs returns every device_id claimed by agentID.
func (r *Registry) AgentIDs(agentID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.byAgent[agentID]...)
}

// DeviceIDs returns every currently registered device_id.
func (r *Registry) DeviceIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	return ids
}
