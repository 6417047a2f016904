package yxc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	host := strings.TrimPrefix(srv.URL, "http://")
	return srv, host
}

func TestSetVolumeAbsoluteLevelOmitsStep(t *testing.T) {
	var gotQuery string
	_, host := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"response_code":0}`))
	})

	c := NewClient(2*time.Second, "hub", 0)
	err := c.SetVolume(context.Background(), host, "main", "50", 0)
	require.NoError(t, err)
	require.Contains(t, gotQuery, "volume=50")
	require.NotContains(t, gotQuery, "step")
}

func TestSetVolumeUpDownIncludesStepWithDefault(t *testing.T) {
	var gotQuery string
	_, host := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"response_code":0}`))
	})

	c := NewClient(2*time.Second, "hub", 0)
	err := c.SetVolume(context.Background(), host, "main", "up", 0)
	require.NoError(t, err)
	require.Contains(t, gotQuery, "volume=up")
	require.Contains(t, gotQuery, "step=1")
}

func TestSetVolumeUpDownRespectsExplicitStep(t *testing.T) {
	var gotQuery string
	_, host := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"response_code":0}`))
	})

	c := NewClient(2*time.Second, "hub", 0)
	err := c.SetVolume(context.Background(), host, "main", "down", 5)
	require.NoError(t, err)
	require.Contains(t, gotQuery, "step=5")
}

func TestNonzeroResponseCodeBecomesYXCError(t *testing.T) {
	_, host := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response_code":3}`))
	})

	c := NewClient(2*time.Second, "hub", 0)
	err := c.SetPower(context.Background(), host, "main", "on")
	require.Error(t, err)
}

func TestGetDeviceInfoSetsEnrollmentHeaders(t *testing.T) {
	var gotAppName, gotAppPort string
	_, host := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAppName = r.Header.Get("X-AppName")
		gotAppPort = r.Header.Get("X-AppPort")
		w.Write([]byte(`{"response_code":0,"device_id":"abc123"}`))
	})

	c := NewClient(2*time.Second, "hub", 41100)
	info, err := c.GetDeviceInfo(context.Background(), host)
	require.NoError(t, err)
	require.Equal(t, "abc123", info.DeviceID)
	require.Equal(t, "hub", gotAppName)
	require.Equal(t, "41100", gotAppPort)
}

func TestGetNetworkStatusOmitsEnrollmentHeaders(t *testing.T) {
	var gotAppName string
	_, host := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAppName = r.Header.Get("X-AppName")
		w.Write([]byte(`{"response_code":0,"network_name":"Living Room"}`))
	})

	c := NewClient(2*time.Second, "hub", 41100)
	status, err := c.GetNetworkStatus(context.Background(), host)
	require.NoError(t, err)
	require.Equal(t, "Living Room", status.NetworkName)
	require.Equal(t, "", gotAppName)
}

func TestFeaturesInputIDs(t *testing.T) {
	f := Features{}
	f.System.InputList = []struct {
		ID string `json:"id"`
	}{{ID: "hdmi1"}, {ID: "netusb"}}
	require.Equal(t, []string{"hdmi1", "netusb"}, f.InputIDs())
}

func TestGetNetUSBListInfoDefaultsSize(t *testing.T) {
	var gotQuery string
	_, host := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"response_code":0}`))
	})

	c := NewClient(2*time.Second, "hub", 0)
	_, err := c.GetNetUSBListInfo(context.Background(), host, "root", 0, 0)
	require.NoError(t, err)
	require.Contains(t, gotQuery, "size=8")
}
