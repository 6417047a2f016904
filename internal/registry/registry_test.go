package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmartin-dev/musiccast-hub-go/internal/apperrors"
)

func TestRegisterUniqueness(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("dev-1", "agent-a", "10.0.0.1"))

	err := r.Register("dev-1", "agent-b", "10.0.0.2")
	require.Error(t, err)
	kind, ok := apperrors.KindOf(err)
	require.True(t, ok)
	require.Equal(t, apperrors.KindAlreadyRegistered, kind)

	entry, ok := r.Lookup("dev-1")
	require.True(t, ok)
	require.Equal(t, "agent-a", entry.AgentID)
	require.Equal(t, "10.0.0.1", entry.Host)
}

func TestUnregisterReclaimsAllIndexes(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("dev-1", "agent-a", "10.0.0.1"))
	require.True(t, r.IsLive("10.0.0.1"))

	r.Unregister("dev-1")

	_, ok := r.Lookup("dev-1")
	require.False(t, ok)
	require.False(t, r.IsLive("10.0.0.1"))
	_, ok = r.DeviceIDForHost("10.0.0.1")
	require.False(t, ok)
}

func TestUnregisterAgentReclaimsEveryDevice(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("dev-1", "agent-a", "10.0.0.1"))
	require.NoError(t, r.Register("dev-2", "agent-a", "10.0.0.2"))
	require.NoError(t, r.Register("dev-3", "agent-b", "10.0.0.3"))

	r.UnregisterAgent("agent-a")

	_, ok := r.Lookup("dev-1")
	require.False(t, ok)
	_, ok = r.Lookup("dev-2")
	require.False(t, ok)
	_, ok = r.Lookup("dev-3")
	require.True(t, ok)
	require.Empty(t, r.AgentIDs("agent-a"))
}

func TestUnregisterReopensHostForReadmission(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("dev-1", "agent-a", "10.0.0.1"))
	require.True(t, r.IsLive("10.0.0.1"))

	r.UnregisterAgent("agent-a")
	require.False(t, r.IsLive("10.0.0.1"))

	require.NoError(t, r.Register("dev-1", "agent-c", "10.0.0.1"))
	require.True(t, r.IsLive("10.0.0.1"))
}

func TestDeviceIDs(t *testing.T) {
	r := New()
	require.Empty(t, r.DeviceIDs())
	require.NoError(t, r.Register("dev-1", "agent-a", "10.0.0.1"))
	require.NoError(t, r.Register("dev-2", "agent-b", "10.0.0.2"))
	require.ElementsMatch(t, []string{"dev-1", "dev-2"}, r.DeviceIDs())
}
