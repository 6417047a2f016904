package agent

import (
	"context"
	"math/rand"
	"strconv"

	"github.com/jmartin-dev/musiccast-hub-go/internal/apperrors"
	"github.com/jmartin-dev/musiccast-hub-go/internal/upnp/didl"
	"github.com/jmartin-dev/musiccast-hub-go/internal/yxc"
)

func (a *Agent) handleCommand(ctx context.Context, cmd *Command) {
	var value any
	var err error

	switch cmd.Kind {
	case CmdYXCPassthrough:
		value, err = a.dispatchPassthrough(ctx, cmd.Passthrough, cmd.Args)
	case CmdPlaybackLoad:
		err = a.cmdPlaybackLoad(ctx, cmd.Args)
	case CmdPlaybackLoadNext:
		err = a.cmdPlaybackLoadNext(ctx, cmd.Args)
	case CmdPlaybackLoadQueue:
		err = a.cmdPlaybackLoadQueue(ctx, cmd.Args)
	case CmdPlaybackNext:
		err = a.cmdPlaybackAdvance(ctx, 1, yxc.NetUSBNext)
	case CmdPlaybackPrevious:
		err = a.cmdPlaybackAdvance(ctx, -1, yxc.NetUSBPrevious)
	case CmdLookup:
		value, err = a.cmdLookup(cmd.Args)
	default:
		err = apperrors.NewArgumentError("unknown command kind: " + string(cmd.Kind))
	}

	cmd.reply <- Result{Value: value, Err: err}
}

// dispatchPassthrough maps a named YXC action onto the client, per the
// spec's "no state write, refetched via the event loop" contract.
func (a *Agent) dispatchPassthrough(ctx context.Context, name string, args map[string]any) (any, error) {
	host := a.state.Host
	zone := stringArg(args, "zone", yxc.DefaultZone)

	switch name {
	case "set_power":
		return nil, a.deps.YXC.SetPower(ctx, host, zone, stringArg(args, "power", ""))
	case "set_sleep":
		return nil, a.deps.YXC.SetSleep(ctx, host, zone, intArg(args, "minutes", 0))
	case "set_mute":
		return nil, a.deps.YXC.SetMute(ctx, host, zone, boolArg(args, "mute", false))
	case "set_input":
		return nil, a.deps.YXC.SetInput(ctx, host, zone, stringArg(args, "input", ""))
	case "set_sound_program":
		return nil, a.deps.YXC.SetSoundProgram(ctx, host, zone, stringArg(args, "program", ""))
	case "prepare_input_change":
		return nil, a.deps.YXC.PrepareInputChange(ctx, host, zone, stringArg(args, "input", ""))
	case "set_volume":
		return nil, a.deps.YXC.SetVolume(ctx, host, zone, stringArg(args, "volume", ""), intArg(args, "step", 0))
	case "increase_volume":
		return nil, a.deps.YXC.SetVolume(ctx, host, zone, "up", intArg(args, "step", 5))
	case "decrease_volume":
		return nil, a.deps.YXC.SetVolume(ctx, host, zone, "down", intArg(args, "step", 5))
	case "toggle_repeat":
		return nil, a.deps.YXC.ToggleNetUSBRepeat(ctx, host)
	case "toggle_shuffle":
		return nil, a.deps.YXC.ToggleNetUSBShuffle(ctx, host)
	case "toggle_play_pause":
		return nil, a.deps.YXC.SetNetUSBPlayback(ctx, host, yxc.NetUSBPlayPause)
	case "playback_play":
		return nil, a.deps.YXC.SetNetUSBPlayback(ctx, host, yxc.NetUSBPlay)
	case "playback_pause":
		return nil, a.deps.YXC.SetNetUSBPlayback(ctx, host, yxc.NetUSBPause)
	case "playback_stop":
		return nil, a.deps.YXC.SetNetUSBPlayback(ctx, host, yxc.NetUSBStop)
	case "get_list_info":
		return a.deps.YXC.GetNetUSBListInfo(ctx, host, stringArg(args, "list_id", ""), intArg(args, "index", 0), intArg(args, "size", 8))
	case "set_list_control":
		return nil, a.deps.YXC.SetNetUSBListControl(ctx, host, stringArg(args, "list_id", ""), stringArg(args, "type", ""), intArg(args, "index", 0))
	case "set_search_string":
		return nil, a.deps.YXC.SetNetUSBSearchString(ctx, host, stringArg(args, "list_id", ""), stringArg(args, "str", ""))
	case "recall_preset":
		return nil, a.deps.YXC.RecallNetUSBPreset(ctx, host, zone, intArg(args, "num", 0))
	case "store_preset":
		return nil, a.deps.YXC.StoreNetUSBPreset(ctx, host, intArg(args, "num", 0))
	default:
		return nil, apperrors.NewArgumentError("unknown passthrough action: " + name)
	}
}

func (a *Agent) cmdPlaybackLoad(ctx context.Context, args map[string]any) error {
	url := stringArg(args, "url", "")
	if url == "" {
		return apperrors.NewArgumentError("playback_load requires url")
	}
	track := trackArg(args)
	return a.doLoad(ctx, url, track)
}

func (a *Agent) cmdPlaybackLoadNext(ctx context.Context, args map[string]any) error {
	url := stringArg(args, "url", "")
	if url == "" {
		return apperrors.NewArgumentError("playback_load_next requires url")
	}
	_, err := a.doSOAP(ctx, "SetNextAVTransportURI", map[string]string{
		"InstanceID":      "0",
		"NextURI":         url,
		"NextURIMetaData": metadataFor(url, trackArg(args)),
	})
	return err
}

func (a *Agent) cmdPlaybackLoadQueue(ctx context.Context, args map[string]any) error {
	rawItems, ok := args["items"].([]QueueItem)
	if !ok || len(rawItems) == 0 {
		return apperrors.NewArgumentError("playback_load_queue requires a non-empty items list")
	}
	a.state.PlaybackQueue.Items = rawItems

	first := rawItems[0]
	if err := a.doLoad(ctx, first.URL, first.Track); err != nil {
		return err
	}
	a.state.PlaybackQueue.MediaURL = first.URL
	return nil
}

func (a *Agent) cmdPlaybackAdvance(ctx context.Context, delta int, fallback yxc.NetUSBPlayback) error {
	target, ok := a.pickQueueTarget(delta)
	if !ok {
		return a.deps.YXC.SetNetUSBPlayback(ctx, a.state.Host, fallback)
	}
	if err := a.doLoad(ctx, target.URL, target.Track); err != nil {
		return err
	}
	a.state.PlaybackQueue.MediaURL = target.URL
	return nil
}

func (a *Agent) cmdLookup(args map[string]any) (any, error) {
	snapshot := a.state.asMap()

	if keysRaw, ok := args["keys"]; ok {
		keys, ok := keysRaw.([]string)
		if !ok {
			return nil, apperrors.NewArgumentError("keys must be a list of strings")
		}
		out := make(map[string]any, len(keys))
		for _, key := range keys {
			value, ok := snapshot[key]
			if !ok {
				return nil, apperrors.NewArgumentError("unknown key: " + key)
			}
			out[key] = value
		}
		return out, nil
	}

	if keyRaw, ok := args["key"]; ok {
		key, ok := keyRaw.(string)
		if !ok {
			return nil, apperrors.NewArgumentError("key must be a string")
		}
		value, ok := snapshot[key]
		if !ok {
			return nil, apperrors.NewArgumentError("unknown key: " + key)
		}
		return value, nil
	}

	return a.state.Snapshot(), nil
}

// doLoad issues the fixed Stop -> SetAVTransportURI -> Play sequence and
// clears any queue association; callers that are advancing within a
// managed queue re-set PlaybackQueue.MediaURL themselves afterward.
func (a *Agent) doLoad(ctx context.Context, url string, track didl.Track) error {
	if a.avService.ControlURL == "" {
		return apperrors.New(apperrors.KindNotFound, "device has no AVTransport control url")
	}

	if _, err := a.doSOAP(ctx, "Stop", map[string]string{"InstanceID": "0"}); err != nil {
		return err
	}

	if _, err := a.doSOAP(ctx, "SetAVTransportURI", map[string]string{
		"InstanceID":         "0",
		"CurrentURI":         url,
		"CurrentURIMetaData": metadataFor(url, track),
	}); err != nil {
		return err
	}

	if _, err := a.doSOAP(ctx, "Play", map[string]string{"InstanceID": "0", "Speed": "1"}); err != nil {
		return err
	}

	a.state.PlaybackQueue.MediaURL = ""
	return nil
}

func (a *Agent) doSOAP(ctx context.Context, action string, args map[string]string) (map[string]string, error) {
	return a.deps.SOAP.CallAction(ctx, a.avService.ControlURL, a.avService.ServiceType, action, args)
}

// pickQueueTarget selects the queue neighbor delta steps from the current
// media_url: random when shuffle is "on", otherwise index±1 clamped to the
// last item (no wraparound).
func (a *Agent) pickQueueTarget(delta int) (QueueItem, bool) {
	items := a.state.PlaybackQueue.Items
	if len(items) == 0 {
		return QueueItem{}, false
	}

	if shuffle, _ := a.state.Playback["shuffle"].(string); shuffle == "on" {
		return items[rand.Intn(len(items))], true
	}

	idx := 0
	for i, item := range items {
		if item.URL == a.state.PlaybackQueue.MediaURL {
			idx = i
			break
		}
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(items) {
		idx = len(items) - 1
	}
	return items[idx], true
}

func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return fallback
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func boolArg(args map[string]any, key string, fallback bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return fallback
}

func trackArg(args map[string]any) didl.Track {
	if track, ok := args["track"].(didl.Track); ok {
		return track
	}
	return didl.Track{}
}

// metadataFor renders the DIDL-Lite wrapper for url/track, or an empty
// string when no track metadata was supplied.
func metadataFor(url string, track didl.Track) string {
	if track == (didl.Track{}) {
		return ""
	}
	return didl.Encode([]didl.Item{{URL: url, Track: track}})
}
