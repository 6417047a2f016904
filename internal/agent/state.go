package agent

import (
	"encoding/json"
	"fmt"

	"github.com/jmartin-dev/musiccast-hub-go/internal/upnp/description"
	"github.com/jmartin-dev/musiccast-hub-go/internal/upnp/didl"
)

// UpnpEventState is the last-known UPnP event payload, with track metadata
// already decoded from DIDL-Lite. Volume/Muted are populated only for
// devices whose LastChange fragments also carry RenderingControl fields
// alongside AVTransport's.
type UpnpEventState struct {
	TransportState         string      `json:"transport_state,omitempty"`
	TransportStatus        string      `json:"transport_status,omitempty"`
	CurrentTrackURI        string      `json:"current_track_uri,omitempty"`
	CurrentTrackMetadata   *didl.Track `json:"current_track_metadata,omitempty"`
	AVTransportURI         string      `json:"av_transport_uri,omitempty"`
	AVTransportURIMetadata *didl.Track `json:"av_transport_uri_metadata,omitempty"`
	Volume                 int         `json:"volume,omitempty"`
	Muted                  bool        `json:"muted,omitempty"`
}

// QueueItem pairs a resource URL with its track metadata, mirroring a
// playback_queue entry.
type QueueItem struct {
	URL   string     `json:"url"`
	Track didl.Track `json:"track"`
}

// PlaybackQueue is the agent's client-managed play queue, distinct from
// whatever queue the device itself may track.
type PlaybackQueue struct {
	MediaURL string      `json:"media_url"`
	Items    []QueueItem `json:"items"`
}

// State is the complete state one Agent owns for its device. It is
// mutated only by the owning Agent; external readers get Snapshot copies.
type State struct {
	Host             string                    `json:"host"`
	DeviceID         string                    `json:"device_id"`
	NetworkName      string                    `json:"network_name"`
	AvailableInputs  []string                  `json:"available_inputs"`
	Status           map[string]any            `json:"status"`
	Playback         map[string]any            `json:"playback"`
	UpnpService      *description.RootDevice   `json:"upnp_service,omitempty"`
	Upnp             *UpnpEventState           `json:"upnp,omitempty"`
	UpnpSessionID    string                    `json:"upnp_session_id"`
	PlaybackQueue    PlaybackQueue             `json:"playback_queue"`
}

// newState creates an empty state rooted at host.
func newState(host string) *State {
	return &State{
		Host:     host,
		Status:   make(map[string]any),
		Playback: make(map[string]any),
	}
}

// Snapshot returns a deep copy of the state, safe for a reader to hold
// after the Agent moves on.
func (s *State) Snapshot() *State {
	data, err := json.Marshal(s)
	if err != nil {
		return &State{Host: s.Host, DeviceID: s.DeviceID}
	}
	var out State
	if err := json.Unmarshal(data, &out); err != nil {
		return &State{Host: s.Host, DeviceID: s.DeviceID}
	}
	if out.Status == nil {
		out.Status = make(map[string]any)
	}
	if out.Playback == nil {
		out.Playback = make(map[string]any)
	}
	return &out
}

// asMap renders the state as a generic map for structural diffing and for
// lookup() responses that select top-level keys.
func (s *State) asMap() map[string]any {
	data, err := json.Marshal(s)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// applyAlbumArtURL rewrites a playback map's albumart_url field in place
// from a bare path to an absolute URL, per the fixed rule: empty path
// stays empty, otherwise it becomes http://<host><path>.
func applyAlbumArtURL(playback map[string]any, host string) {
	raw, ok := playback["albumart_url"]
	if !ok {
		return
	}
	path, ok := raw.(string)
	if !ok || path == "" {
		playback["albumart_url"] = ""
		return
	}
	playback["albumart_url"] = fmt.Sprintf("http://%s%s", host, path)
}

// mergeInto merges src into dst field-by-field: only keys dst already
// contains are overwritten, and nested maps recurse rather than replace
// wholesale.
func mergeInto(dst map[string]any, src map[string]any) {
	for key, newVal := range src {
		oldVal, exists := dst[key]
		if !exists {
			continue
		}
		oldMap, oldIsMap := oldVal.(map[string]any)
		newMap, newIsMap := newVal.(map[string]any)
		if oldIsMap && newIsMap {
			mergeInto(oldMap, newMap)
			continue
		}
		dst[key] = newVal
	}
}
