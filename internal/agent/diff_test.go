package agent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiffStatesTopLevelChange(t *testing.T) {
	old := map[string]any{"power": "on", "volume": 10.0}
	new := map[string]any{"power": "standby", "volume": 10.0}

	diff := diffStates(old, new)
	require.Equal(t, map[string]any{"power": "standby"}, diff)
}

func TestDiffStatesAddsNewKey(t *testing.T) {
	old := map[string]any{"power": "on"}
	new := map[string]any{"power": "on", "input": "hdmi1"}

	diff := diffStates(old, new)
	require.Equal(t, map[string]any{"input": "hdmi1"}, diff)
}

func TestDiffStatesNestedMapRecurses(t *testing.T) {
	old := map[string]any{
		"status": map[string]any{"power": "on", "sleep": "off"},
	}
	new := map[string]any{
		"status": map[string]any{"power": "standby", "sleep": "off"},
	}

	diff := diffStates(old, new)
	require.Equal(t, map[string]any{
		"status": map[string]any{"power": "standby"},
	}, diff)
}

func TestDiffStatesNestedMapNoChangeOmitted(t *testing.T) {
	old := map[string]any{"status": map[string]any{"power": "on"}}
	new := map[string]any{"status": map[string]any{"power": "on"}}

	diff := diffStates(old, new)
	require.Empty(t, diff)
}

func TestDiffStatesItemsReorderedSameContentsNoDiff(t *testing.T) {
	old := map[string]any{
		"items": []any{
			map[string]any{"url": "a"},
			map[string]any{"url": "b"},
		},
	}
	new := map[string]any{
		"items": []any{
			map[string]any{"url": "b"},
			map[string]any{"url": "a"},
		},
	}

	diff := diffStates(old, new)
	require.Empty(t, diff)
}

func TestDiffStatesItemsDifferentContentsDiffs(t *testing.T) {
	old := map[string]any{
		"items": []any{map[string]any{"url": "a"}},
	}
	new := map[string]any{
		"items": []any{map[string]any{"url": "a"}, map[string]any{"url": "b"}},
	}

	diff := diffStates(old, new)
	require.Equal(t, map[string]any{"items": new["items"]}, diff)
}

func TestEqualAsSets(t *testing.T) {
	a := []any{1, 2, 2}
	b := []any{2, 1, 2}
	require.True(t, equalAsSets(a, b))

	c := []any{1, 2, 3}
	require.False(t, equalAsSets(a, c))

	require.False(t, equalAsSets([]any{1}, []any{1, 1}))
}
