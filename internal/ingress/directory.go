// Package ingress routes inbound device traffic — YXC unicast events on a
// UDP port and UPnP GENA NOTIFY callbacks on HTTP — to the Agent that owns
// the originating device.
package ingress

import (
	"sync"

	"github.com/jmartin-dev/musiccast-hub-go/internal/agent"
)

// Directory is a live map from device_id to the Agent that owns it,
// maintained by the network supervisor as agents come and go. It exists
// because the Registry tracks identity (ids, hosts) but not object
// references — ingress needs the latter to actually push a message.
type Directory struct {
	mu         sync.RWMutex
	byDeviceID map[string]*agent.Agent
}

// NewDirectory returns an empty Directory.
func NewDirectory() *Directory {
	return &Directory{byDeviceID: make(map[string]*agent.Agent)}
}

// Put registers a as the owner of deviceID, replacing any prior owner.
func (d *Directory) Put(deviceID string, a *agent.Agent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byDeviceID[deviceID] = a
}

// Remove drops deviceID's entry if it still points at a.
func (d *Directory) Remove(deviceID string, a *agent.Agent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.byDeviceID[deviceID]; ok && cur == a {
		delete(d.byDeviceID, deviceID)
	}
}

// ByDeviceID looks up the current owner of deviceID.
func (d *Directory) ByDeviceID(deviceID string) (*agent.Agent, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.byDeviceID[deviceID]
	return a, ok
}

// FindBySessionID scans for the agent whose current GENA subscription id
// matches sid. The directory is small (one entry per live device), so a
// linear scan is simpler than maintaining a second index that would need
// updating on every renewal.
func (d *Directory) FindBySessionID(sid string) (*agent.Agent, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, a := range d.byDeviceID {
		if a.UpnpSessionID() == sid {
			return a, true
		}
	}
	return nil, false
}
