package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmartin-dev/musiccast-hub-go/internal/registry"
)

func newBareAgent(deviceID, host string) *Agent {
	ag := &Agent{
		state: newState(host),
		deps:  Deps{Bus: registry.NewBus(4)},
	}
	ag.state.DeviceID = deviceID
	ag.last = ag.state.asMap()
	return ag
}

func TestHandleUpnpEventPopulatesRenderingControlState(t *testing.T) {
	ag := newBareAgent("dev-1", "10.0.0.5")

	ag.handleUpnpEvent(context.Background(), upnpEventMsg{
		sid: "uuid:x",
		props: map[string]string{
			"TransportState": "PLAYING",
			"Volume":         "42",
			"Mute":           "1",
		},
	})

	require.Equal(t, "PLAYING", ag.state.Upnp.TransportState)
	require.Equal(t, 42, ag.state.Upnp.Volume)
	require.True(t, ag.state.Upnp.Muted)
}

func TestHandleUpnpEventDefaultsRenderingControlWhenAbsent(t *testing.T) {
	ag := newBareAgent("dev-1", "10.0.0.5")

	ag.handleUpnpEvent(context.Background(), upnpEventMsg{
		sid:   "uuid:x",
		props: map[string]string{"TransportState": "STOPPED"},
	})

	require.Equal(t, 0, ag.state.Upnp.Volume)
	require.False(t, ag.state.Upnp.Muted)
}
