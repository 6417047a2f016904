package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmartin-dev/musiccast-hub-go/internal/agent"
	"github.com/jmartin-dev/musiccast-hub-go/internal/api"
	"github.com/jmartin-dev/musiccast-hub-go/internal/apperrors"
	"github.com/jmartin-dev/musiccast-hub-go/internal/upnp/didl"
)

type routes struct {
	deps Deps
}

// discover triggers an immediate SSDP M-SEARCH, in addition to the
// periodic rescan the supervisor already runs.
func (h *routes) discover(w http.ResponseWriter, r *http.Request) error {
	if h.deps.SSDP == nil {
		return apperrors.New(apperrors.KindNotFound, "ssdp discovery is not enabled")
	}
	if err := h.deps.SSDP.Search(); err != nil {
		return apperrors.NewTransport(err)
	}
	return api.WriteJSON(w, http.StatusAccepted, map[string]any{"discovering": true})
}

type addDeviceRequest struct {
	IP       string `json:"ip"`
	Location string `json:"location"`
}

// addDevice implements add_device(ip, upnp_root): it admits a device by
// address directly, bypassing SSDP, for networks where multicast is
// unreliable or a device's exact location is already known.
func (h *routes) addDevice(w http.ResponseWriter, r *http.Request) error {
	var req addDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.NewArgumentError("invalid request body")
	}
	if req.IP == "" || req.Location == "" {
		return apperrors.NewArgumentError("ip and location are required")
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	h.deps.Supervisor.AddDevice(ctx, req.IP, req.Location, "")

	return api.WriteJSON(w, http.StatusAccepted, map[string]any{"accepted": true})
}

// listDevices implements which_devices with no filter — the full set of
// currently registered device ids.
func (h *routes) listDevices(w http.ResponseWriter, r *http.Request) error {
	return api.WriteList(w, r, "devices", h.deps.Registry.DeviceIDs())
}

// whereis returns the registry entry (owning agent id, host) for a
// device_id.
func (h *routes) whereis(w http.ResponseWriter, r *http.Request) error {
	deviceID := chi.URLParam(r, "deviceID")
	entry, ok := h.deps.Registry.Lookup(deviceID)
	if !ok {
		return apperrors.NewNotFound("device " + deviceID)
	}
	return api.WriteResource(w, r, http.StatusOK, "device", map[string]any{
		"device_id": deviceID,
		"agent_id":  entry.AgentID,
		"host":      entry.Host,
	})
}

func (h *routes) lookupState(w http.ResponseWriter, r *http.Request) error {
	return h.lookup(w, r, nil)
}

func (h *routes) lookupStateKey(w http.ResponseWriter, r *http.Request) error {
	key := chi.URLParam(r, "key")
	return h.lookup(w, r, map[string]any{"key": key})
}

func (h *routes) lookup(w http.ResponseWriter, r *http.Request, args map[string]any) error {
	ag, err := h.agentFor(r)
	if err != nil {
		return err
	}
	value, err := ag.Do(r.Context(), &agent.Command{Kind: agent.CmdLookup, Args: args})
	if err != nil {
		return err
	}
	return api.WriteResource(w, r, http.StatusOK, "state", value)
}

type queueItemRequest struct {
	URL   string     `json:"url"`
	Track didl.Track `json:"track"`
}

// doAction dispatches the named per-agent command. Simple transport verbs
// (play/pause/stop, mute/unmute, toggles, set_*) forward as YXC
// passthroughs; the queue-aware verbs get their own Command Kind so the
// agent's UPnP load sequence runs instead.
func (h *routes) doAction(w http.ResponseWriter, r *http.Request) error {
	ag, err := h.agentFor(r)
	if err != nil {
		return err
	}

	action := chi.URLParam(r, "action")
	var body map[string]any
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return apperrors.NewArgumentError("invalid request body")
		}
	}
	if body == nil {
		body = map[string]any{}
	}

	cmd, err := actionCommand(action, body)
	if err != nil {
		return err
	}

	value, err := ag.Do(r.Context(), cmd)
	if err != nil {
		return err
	}
	return api.WriteResource(w, r, http.StatusOK, "result", value)
}

func actionCommand(action string, body map[string]any) (*agent.Command, error) {
	switch action {
	case "next":
		return &agent.Command{Kind: agent.CmdPlaybackNext}, nil
	case "previous":
		return &agent.Command{Kind: agent.CmdPlaybackPrevious}, nil
	case "load":
		return &agent.Command{Kind: agent.CmdPlaybackLoad, Args: body}, nil
	case "load_next":
		return &agent.Command{Kind: agent.CmdPlaybackLoadNext, Args: body}, nil
	case "load_queue":
		items, err := decodeQueueItems(body)
		if err != nil {
			return nil, err
		}
		return &agent.Command{Kind: agent.CmdPlaybackLoadQueue, Args: map[string]any{"items": items}}, nil
	case "play":
		return &agent.Command{Kind: agent.CmdYXCPassthrough, Passthrough: "playback_play", Args: body}, nil
	case "pause":
		return &agent.Command{Kind: agent.CmdYXCPassthrough, Passthrough: "playback_pause", Args: body}, nil
	case "stop":
		return &agent.Command{Kind: agent.CmdYXCPassthrough, Passthrough: "playback_stop", Args: body}, nil
	case "mute":
		body["mute"] = true
		return &agent.Command{Kind: agent.CmdYXCPassthrough, Passthrough: "set_mute", Args: body}, nil
	case "unmute":
		body["mute"] = false
		return &agent.Command{Kind: agent.CmdYXCPassthrough, Passthrough: "set_mute", Args: body}, nil
	default:
		return &agent.Command{Kind: agent.CmdYXCPassthrough, Passthrough: action, Args: body}, nil
	}
}

func decodeQueueItems(body map[string]any) ([]agent.QueueItem, error) {
	raw, ok := body["items"]
	if !ok {
		return nil, apperrors.NewArgumentError("load_queue requires items")
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, apperrors.NewArgumentError("invalid items")
	}
	var reqs []queueItemRequest
	if err := json.Unmarshal(encoded, &reqs); err != nil {
		return nil, apperrors.NewArgumentError("invalid items")
	}
	items := make([]agent.QueueItem, 0, len(reqs))
	for _, item := range reqs {
		if item.URL == "" {
			return nil, apperrors.NewArgumentError("queue item missing url")
		}
		items = append(items, agent.QueueItem{URL: item.URL, Track: item.Track})
	}
	if len(items) == 0 {
		return nil, apperrors.NewArgumentError("load_queue requires a non-empty items list")
	}
	return items, nil
}

func (h *routes) agentFor(r *http.Request) (*agent.Agent, error) {
	deviceID := chi.URLParam(r, "deviceID")
	ag, ok := h.deps.Directory.ByDeviceID(deviceID)
	if !ok {
		return nil, apperrors.NewNotFound("device " + deviceID)
	}
	return ag, nil
}
