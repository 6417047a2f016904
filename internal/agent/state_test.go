package agent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyAlbumArtURLBuildsAbsoluteURL(t *testing.T) {
	playback := map[string]any{"albumart_url": "/YamahaRemoteControl/AlbumArt/12345.jpg"}
	applyAlbumArtURL(playback, "192.168.1.50")
	require.Equal(t, "http://192.168.1.50/YamahaRemoteControl/AlbumArt/12345.jpg", playback["albumart_url"])
}

func TestApplyAlbumArtURLEmptyStaysEmpty(t *testing.T) {
	playback := map[string]any{"albumart_url": ""}
	applyAlbumArtURL(playback, "192.168.1.50")
	require.Equal(t, "", playback["albumart_url"])
}

func TestApplyAlbumArtURLMissingKeyNoop(t *testing.T) {
	playback := map[string]any{"track": "foo"}
	applyAlbumArtURL(playback, "192.168.1.50")
	_, ok := playback["albumart_url"]
	require.False(t, ok)
}

func TestMergeIntoOnlyOverwritesExistingKeys(t *testing.T) {
	dst := map[string]any{"power": "on"}
	mergeInto(dst, map[string]any{"power": "standby", "unknown": "ignored"})
	require.Equal(t, "standby", dst["power"])
	_, ok := dst["unknown"]
	require.False(t, ok)
}

func TestMergeIntoRecursesNestedMaps(t *testing.T) {
	dst := map[string]any{
		"status": map[string]any{"power": "on", "sleep": "off"},
	}
	mergeInto(dst, map[string]any{
		"status": map[string]any{"power": "standby"},
	})
	require.Equal(t, "standby", dst["status"].(map[string]any)["power"])
	require.Equal(t, "off", dst["status"].(map[string]any)["sleep"])
}

func TestNewStateInitializesEmptyMaps(t *testing.T) {
	s := newState("192.168.1.50")
	require.Equal(t, "192.168.1.50", s.Host)
	require.NotNil(t, s.Status)
	require.NotNil(t, s.Playback)
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	s := newState("192.168.1.50")
	s.Status["power"] = "on"

	snap := s.Snapshot()
	snap.Status["power"] = "standby"

	require.Equal(t, "on", s.Status["power"])
	require.Equal(t, "standby", snap.Status["power"])
}
