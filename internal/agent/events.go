package agent

import (
	"context"

	"github.com/jmartin-dev/musiccast-hub-go/internal/apperrors"
	"github.com/jmartin-dev/musiccast-hub-go/internal/upnp/didl"
	"github.com/jmartin-dev/musiccast-hub-go/internal/upnp/event"
	"github.com/jmartin-dev/musiccast-hub-go/internal/upnp/gena"
	"github.com/jmartin-dev/musiccast-hub-go/internal/yxc"
)

// handleYXCEvent applies a decoded unicast event to state, refetching
// status/playback where the device signaled they've changed rather than
// trusting the event payload's own copy of them, then publishes a diff.
func (a *Agent) handleYXCEvent(ctx context.Context, m yxcEventMsg) {
	flags, ok := m.zones[yxc.DefaultZone]
	if !ok {
		return
	}

	remaining := make(map[string]any, len(flags))
	refetchStatus := false
	refetchPlayback := false

	for key, val := range flags {
		switch key {
		case "status_updated":
			refetchStatus = refetchStatus || truthy(val)
		case "play_info_updated":
			refetchPlayback = refetchPlayback || truthy(val)
		case "signal_info_updated", "recent_info_updated", "play_queue":
			// no local state tracks these; the event only signals that a
			// list_info fetch on that surface would return fresh data.
		default:
			remaining[key] = val
		}
	}

	if refetchStatus {
		if status, err := a.deps.YXC.GetStatus(ctx, a.state.Host, yxc.DefaultZone); err == nil {
			a.state.Status = status
		} else {
			logf("refetch status for %s: %v", a.state.Host, err)
		}
	}

	if refetchPlayback {
		if playback, err := a.deps.YXC.GetPlaybackInfo(ctx, a.state.Host, yxc.DefaultZone); err == nil {
			applyAlbumArtURL(playback, a.state.Host)
			a.state.Playback = playback
		} else {
			logf("refetch playback for %s: %v", a.state.Host, err)
		}
	}

	mergeInto(a.state.Status, remaining)
	mergeInto(a.state.Playback, remaining)

	a.publishDiff()
}

// handleUpnpEvent decodes a GENA NOTIFY into the agent's upnp state,
// advances the client-managed queue when AVTransportURI moves to the next
// item, and publishes a diff.
func (a *Agent) handleUpnpEvent(ctx context.Context, m upnpEventMsg) {
	decoded := event.DecodeAVTransport(m.props)
	rendering := event.DecodeRenderingControl(m.props)

	prevURI := ""
	if a.state.Upnp != nil {
		prevURI = a.state.Upnp.AVTransportURI
	}

	a.state.Upnp = &UpnpEventState{
		TransportState:         decoded.TransportState,
		TransportStatus:        decoded.TransportStatus,
		CurrentTrackURI:        decoded.CurrentTrackURI,
		CurrentTrackMetadata:   decodeTrackMeta(decoded.CurrentTrackMetaData),
		AVTransportURI:         decoded.AVTransportURI,
		AVTransportURIMetadata: decodeTrackMeta(decoded.AVTransportURIMetaData),
		Volume:                 rendering.Volume,
		Muted:                  rendering.Muted,
	}

	if decoded.AVTransportURI != "" && decoded.AVTransportURI != prevURI {
		a.advanceQueueOn(ctx, decoded.AVTransportURI)
	}

	a.publishDiff()
}

// advanceQueueOn is called when the device itself reports it has moved on
// to a new AVTransportURI. media_url always tracks the device's own report;
// if that URI also matches the agent's managed queue, the following item is
// primed via SetNextAVTransportURI so gapless playback continues without
// another round trip through Do.
func (a *Agent) advanceQueueOn(ctx context.Context, uri string) {
	a.state.PlaybackQueue.MediaURL = uri

	items := a.state.PlaybackQueue.Items
	idx := -1
	for i, item := range items {
		if item.URL == uri {
			idx = i
			break
		}
	}
	if idx < 0 || idx+1 >= len(items) {
		return
	}
	next := items[idx+1]
	if _, err := a.doSOAP(ctx, "SetNextAVTransportURI", map[string]string{
		"InstanceID":      "0",
		"NextURI":         next.URL,
		"NextURIMetaData": metadataFor(next.URL, next.Track),
	}); err != nil {
		logf("set next avtransport uri for %s: %v", a.state.Host, err)
	}
}

// handleYXCRenewalTick refreshes the device's unicast enrollment. A
// failure is treated as fatal: the agent terminates and the network
// supervisor will rediscover the device via SSDP if it is still alive.
func (a *Agent) handleYXCRenewalTick(ctx context.Context) bool {
	status, err := a.deps.YXC.GetStatusEnrolled(ctx, a.state.Host, yxc.DefaultZone)
	if err != nil {
		logf("yxc renewal failed for %s: %v", a.state.Host, err)
		return true
	}
	a.state.Status = status
	a.publishDiff()
	a.scheduleYXCRenewal(renewalDelay(a.deps.YXCPollIntervalSec, a.deps.YXCRenewalBufferSec))
	return false
}

// handleUpnpRenewalTick renews the agent's GENA subscription. A changed
// sid (the device may issue a new one on renewal) is applied to state and
// published. A 412 Precondition Failed falls back to a fresh subscription;
// any other renewal failure, or a failed resubscribe, is fatal.
func (a *Agent) handleUpnpRenewalTick(ctx context.Context) bool {
	newSID, granted, err := a.deps.GENA.Renew(ctx, a.avService.EventSubURL, a.state.UpnpSessionID, a.deps.UpnpSubscriptionTimeoutSec)
	if err != nil {
		if kind, ok := apperrors.KindOf(err); ok && kind == apperrors.KindPreconditionFailed {
			logf("gena renewal precondition failed for %s, resubscribing", a.state.Host)
			return a.resubscribe(ctx)
		}
		logf("gena renewal failed for %s: %v", a.state.Host, err)
		return true
	}

	if newSID != a.state.UpnpSessionID {
		logf("gena renewal for %s issued new sid", a.state.Host)
		a.state.UpnpSessionID = newSID
	}
	a.publishDiff()
	a.scheduleUpnpRenewal(gena.RenewalDelay(granted, a.deps.GenaRenewalBufferSec))
	return false
}

func (a *Agent) resubscribe(ctx context.Context) bool {
	sid, granted, err := a.deps.GENA.Subscribe(ctx, a.avService.EventSubURL, a.deps.CallbackURLBase, a.deps.UpnpSubscriptionTimeoutSec)
	if err != nil {
		logf("gena resubscribe failed for %s: %v", a.state.Host, err)
		return true
	}
	a.state.UpnpSessionID = sid
	a.publishDiff()
	a.scheduleUpnpRenewal(gena.RenewalDelay(granted, a.deps.GenaRenewalBufferSec))
	return false
}

func decodeTrackMeta(metaXML string) *didl.Track {
	if metaXML == "" {
		return nil
	}
	items := didl.Decode(metaXML)
	if len(items) == 0 {
		return nil
	}
	track := items[0].Track
	return &track
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	default:
		return false
	}
}
