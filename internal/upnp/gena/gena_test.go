package gena

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRenewalDelay(t *testing.T) {
	require.Equal(t, 297*time.Second, RenewalDelay(300, 3))
	require.Equal(t, time.Duration(0), RenewalDelay(2, 3))
	require.Equal(t, time.Duration(0), RenewalDelay(0, 3))
	require.Equal(t, 177*time.Second, RenewalDelay(180, 3))
}

func TestNormalizeSID(t *testing.T) {
	require.Equal(t, "uuid:abc-123", normalizeSID("abc-123"))
	require.Equal(t, "uuid:abc-123", normalizeSID("uuid:abc-123"))
}

func TestParseTimeoutHeader(t *testing.T) {
	require.Equal(t, 300, parseTimeout("Second-300"))
	require.Equal(t, 0, parseTimeout("infinite"))
	require.Equal(t, 0, parseTimeout(""))
}
