// Package agent implements the per-device state machine: it owns one
// MusicCast device's state, fuses YXC and UPnP event streams into it,
// serializes commands against it, and publishes diffs.
package agent

import (
	"context"
	"log"
	"net/url"
	"time"

	"github.com/jmartin-dev/musiccast-hub-go/internal/apperrors"
	"github.com/jmartin-dev/musiccast-hub-go/internal/registry"
	"github.com/jmartin-dev/musiccast-hub-go/internal/upnp/description"
	"github.com/jmartin-dev/musiccast-hub-go/internal/upnp/gena"
	"github.com/jmartin-dev/musiccast-hub-go/internal/upnp/soap"
	"github.com/jmartin-dev/musiccast-hub-go/internal/yxc"
)

// avTransportServiceID is the fixed UPnP service id an AVTransport service
// is published under.
const avTransportServiceID = "urn:upnp-org:serviceId:AVTransport"

// NetworkEvent is published to registry.NetworkTopic on device
// online/offline transitions.
type NetworkEvent struct {
	Type     string `json:"type"`
	DeviceID string `json:"device_id"`
	State    *State `json:"state,omitempty"`
}

// UpdateEvent is published to a device's own topic with a structural diff.
type UpdateEvent struct {
	Type     string         `json:"type"`
	DeviceID string         `json:"device_id"`
	Diff     map[string]any `json:"diff"`
}

// Deps are the collaborators an Agent needs, supplied by the supervisor.
type Deps struct {
	YXC      *yxc.Client
	SOAP     *soap.Client
	GENA     *gena.Client
	Registry *registry.Registry
	Bus      *registry.Bus

	CallbackURLBase        string
	UpnpSubscriptionTimeoutSec int
	YXCPollIntervalSec     int
	YXCRenewalBufferSec    int
	GenaRenewalBufferSec   int
}

// Agent is one device's long-lived actor.
type Agent struct {
	id       string
	ip       string
	location *url.URL
	root     *description.RootDevice
	deps     Deps

	state *State

	avService   description.Service
	hasAVEvents bool

	inbox   chan any
	stopped chan struct{}
	last    map[string]any
}

// New constructs an Agent for a device at ip whose root description has
// already been fetched and parsed (but not yet absolutized — Init does
// that using location).
func New(id, ip string, location *url.URL, root *description.RootDevice, deps Deps) *Agent {
	return &Agent{
		id:       id,
		ip:       ip,
		location: location,
		root:     root,
		deps:     deps,
		state:    newState(ip),
		inbox:    make(chan any, 32),
		stopped:  make(chan struct{}),
	}
}

// ID returns the agent's registry identity (its randomly assigned agent
// id, distinct from the device_id it will claim once initialized).
func (a *Agent) ID() string { return a.id }

// Init performs the ten-step initialization sequence described for device
// agent startup. Any step's failure aborts initialization with that error;
// the caller must not call Run on a failed Agent.
func (a *Agent) Init(ctx context.Context) error {
	// 1. host is already set from ip.

	// 2. device_id + unicast event enrollment.
	deviceInfo, err := a.deps.YXC.GetDeviceInfo(ctx, a.state.Host)
	if err != nil {
		return err
	}
	a.state.DeviceID = deviceInfo.DeviceID

	// 3. network_name.
	netStatus, err := a.deps.YXC.GetNetworkStatus(ctx, a.state.Host)
	if err != nil {
		return err
	}
	a.state.NetworkName = netStatus.NetworkName

	// 4. available_inputs.
	features, err := a.deps.YXC.GetFeatures(ctx, a.state.Host)
	if err != nil {
		return err
	}
	a.state.AvailableInputs = features.InputIDs()

	// 5. absolutize UPnP relative URLs.
	if a.location != nil {
		description.Absolutize(a.root, a.location)
	}
	a.state.UpnpService = a.root
	if svc, ok := a.root.ServiceByID(avTransportServiceID); ok {
		a.avService = svc
		a.hasAVEvents = svc.EventSubURL != ""
	}

	// 6. status + playback.
	status, err := a.deps.YXC.GetStatus(ctx, a.state.Host, yxc.DefaultZone)
	if err != nil {
		return err
	}
	a.state.Status = status

	playback, err := a.deps.YXC.GetPlaybackInfo(ctx, a.state.Host, yxc.DefaultZone)
	if err != nil {
		return err
	}
	applyAlbumArtURL(playback, a.state.Host)
	a.state.Playback = playback

	// 7. UPnP subscription, if a callback URL is configured and the
	// device publishes AVTransport eventing.
	if a.deps.CallbackURLBase != "" && a.hasAVEvents {
		sid, granted, err := a.deps.GENA.Subscribe(ctx, a.avService.EventSubURL, a.deps.CallbackURLBase, a.deps.UpnpSubscriptionTimeoutSec)
		if err != nil {
			return err
		}
		a.state.UpnpSessionID = sid
		a.scheduleUpnpRenewal(gena.RenewalDelay(granted, a.deps.GenaRenewalBufferSec))
	}

	// 8. registry claim.
	if err := a.deps.Registry.Register(a.state.DeviceID, a.id, a.state.Host); err != nil {
		return err
	}

	// 9. schedule YXC renewal, backed off by the renewal buffer so the
	// request lands before the device's own enrollment timer expires.
	a.scheduleYXCRenewal(renewalDelay(a.deps.YXCPollIntervalSec, a.deps.YXCRenewalBufferSec))

	// 10. announce online.
	a.last = a.state.asMap()
	a.deps.Bus.Publish(registry.NetworkTopic, NetworkEvent{
		Type:     "online",
		DeviceID: a.state.DeviceID,
		State:    a.state.Snapshot(),
	})

	return nil
}

// Run processes the agent's inbox until ctx is canceled or a fatal error
// (persistent renewal failure) terminates the agent.
func (a *Agent) Run(ctx context.Context) {
	defer a.terminate()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-a.inbox:
			if fatal := a.handle(ctx, msg); fatal {
				return
			}
		}
	}
}

func (a *Agent) handle(ctx context.Context, msg any) (fatal bool) {
	switch m := msg.(type) {
	case *Command:
		a.handleCommand(ctx, m)
	case yxcEventMsg:
		a.handleYXCEvent(ctx, m)
	case upnpEventMsg:
		a.handleUpnpEvent(ctx, m)
	case yxcRenewalTick:
		return a.handleYXCRenewalTick(ctx)
	case upnpRenewalTick:
		return a.handleUpnpRenewalTick(ctx)
	case stopMsg:
		close(m.done)
		return true
	}
	return false
}

// Do submits a command and blocks for its result. Commands execute
// strictly one at a time, in the order they arrive at the inbox.
func (a *Agent) Do(ctx context.Context, cmd *Command) (any, error) {
	cmd.reply = make(chan Result, 1)
	select {
	case a.inbox <- cmd:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-a.stopped:
		return nil, apperrors.New(apperrors.KindNotFound, "agent stopped")
	}

	select {
	case res := <-cmd.reply:
		return res.Value, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PushYXCEvent delivers a decoded YXC unicast event to the agent.
func (a *Agent) PushYXCEvent(zones map[string]map[string]any) {
	select {
	case a.inbox <- yxcEventMsg{zones: zones}:
	case <-a.stopped:
	}
}

// PushUpnpEvent delivers a decoded UPnP GENA NOTIFY to the agent.
func (a *Agent) PushUpnpEvent(sid string, props map[string]string) {
	select {
	case a.inbox <- upnpEventMsg{sid: sid, props: props}:
	case <-a.stopped:
	}
}

// UpnpSessionID returns the agent's current GENA subscription id, used by
// the event ingress to route NOTIFYs by SID.
func (a *Agent) UpnpSessionID() string {
	return a.state.UpnpSessionID
}

// DeviceID returns the device_id claimed during Init. Safe to call any
// time after Init returns successfully, since nothing mutates it again.
func (a *Agent) DeviceID() string {
	return a.state.DeviceID
}

// Stop requests a graceful shutdown and waits for the inbox to drain.
func (a *Agent) Stop(ctx context.Context) {
	done := make(chan struct{})
	select {
	case a.inbox <- stopMsg{done: done}:
	case <-ctx.Done():
		return
	case <-a.stopped:
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (a *Agent) terminate() {
	select {
	case <-a.stopped:
		return
	default:
		close(a.stopped)
	}

	a.deps.Registry.UnregisterAgent(a.id)
	a.deps.Bus.UnsubscribeAll(a.id)
	a.deps.Bus.Publish(registry.NetworkTopic, NetworkEvent{
		Type:     "offline",
		DeviceID: a.state.DeviceID,
	})
}

func (a *Agent) scheduleYXCRenewal(delay time.Duration) {
	go a.afterDelay(delay, yxcRenewalTick{})
}

func (a *Agent) scheduleUpnpRenewal(delay time.Duration) {
	go a.afterDelay(delay, upnpRenewalTick{})
}

// renewalDelay computes how long to wait before the next renewal of a
// resource granted for grantedSec seconds, backing off by bufferSec so the
// renewal lands before the device's own timer expires.
func renewalDelay(grantedSec, bufferSec int) time.Duration {
	delay := grantedSec - bufferSec
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay) * time.Second
}

func (a *Agent) afterDelay(delay time.Duration, msg any) {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-a.stopped:
		return
	}
	select {
	case a.inbox <- msg:
	case <-a.stopped:
	}
}

// publishDiff computes the structural diff against the last-published
// snapshot and, if non-empty, publishes it to the device's own topic.
func (a *Agent) publishDiff() {
	next := a.state.asMap()
	diff := diffStates(a.last, next)
	a.last = next

	if len(diff) == 0 {
		return
	}
	a.deps.Bus.Publish(a.state.DeviceID, UpdateEvent{
		Type:     "update",
		DeviceID: a.state.DeviceID,
		Diff:     diff,
	})
}

func logf(format string, args ...any) {
	log.Printf("agent: "+format, args...)
}
