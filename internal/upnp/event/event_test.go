package event

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const avTransportNotifyBody = `<?xml version="1.0"?>
<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0">
  <e:property>
    <LastChange>&lt;Event xmlns=&quot;urn:schemas-upnp-org:metadata-1-0/AVT/&quot;&gt;&lt;InstanceID val=&quot;0&quot;&gt;&lt;TransportState val=&quot;PLAYING&quot;/&gt;&lt;CurrentTrackURI val=&quot;http://example.com/a.mp3&quot;/&gt;&lt;/InstanceID&gt;&lt;/Event&gt;</LastChange>
  </e:property>
</e:propertyset>`

const renderingControlNotifyBody = `<?xml version="1.0"?>
<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0">
  <e:property>
    <LastChange>&lt;Event xmlns=&quot;urn:schemas-upnp-org:metadata-1-0/RCS/&quot;&gt;&lt;InstanceID val=&quot;0&quot;&gt;&lt;Volume channel=&quot;Master&quot; val=&quot;42&quot;/&gt;&lt;Mute channel=&quot;Master&quot; val=&quot;1&quot;/&gt;&lt;/InstanceID&gt;&lt;/Event&gt;</LastChange>
  </e:property>
</e:propertyset>`

func newNotifyRequest(t *testing.T, sid, seq, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest("NOTIFY", "/callback", strings.NewReader(body))
	req.Header.Set("NT", "upnp:event")
	req.Header.Set("NTS", "upnp:propchange")
	if sid != "" {
		req.Header.Set("SID", sid)
	}
	if seq != "" {
		req.Header.Set("SEQ", seq)
	}
	return req
}

func TestParseNotifyExtractsSIDAndProperties(t *testing.T) {
	req := newNotifyRequest(t, "uuid:abc-123", "5", avTransportNotifyBody)
	notify, ok := ParseNotify(req, []byte(avTransportNotifyBody))
	require.True(t, ok)
	require.Equal(t, "uuid:abc-123", notify.SID)
	require.Equal(t, 5, notify.Seq)
	require.Equal(t, "PLAYING", notify.Properties["TransportState"])
	require.Equal(t, "http://example.com/a.mp3", notify.Properties["CurrentTrackURI"])
}

func TestParseNotifyRejectsMissingSID(t *testing.T) {
	req := newNotifyRequest(t, "", "5", avTransportNotifyBody)
	_, ok := ParseNotify(req, []byte(avTransportNotifyBody))
	require.False(t, ok)
}

func TestParseNotifyRejectsWrongNTHeader(t *testing.T) {
	req := newNotifyRequest(t, "uuid:abc-123", "5", avTransportNotifyBody)
	req.Header.Set("NT", "something-else")
	_, ok := ParseNotify(req, []byte(avTransportNotifyBody))
	require.False(t, ok)
}

func TestDecodeAVTransport(t *testing.T) {
	props := DecodeLastChange([]byte(avTransportNotifyBody))
	state := DecodeAVTransport(props)
	require.Equal(t, "PLAYING", state.TransportState)
	require.Equal(t, "http://example.com/a.mp3", state.CurrentTrackURI)
}

func TestDecodeRenderingControlReadsMasterChannel(t *testing.T) {
	props := DecodeLastChange([]byte(renderingControlNotifyBody))
	state := DecodeRenderingControl(props)
	require.Equal(t, 42, state.Volume)
	require.True(t, state.Muted)
}

func TestDecodeRenderingControlSkipsNonMasterChannel(t *testing.T) {
	body := `<?xml version="1.0"?>
<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0">
  <e:property>
    <LastChange>&lt;Event&gt;&lt;InstanceID val=&quot;0&quot;&gt;&lt;Volume channel=&quot;LF&quot; val=&quot;10&quot;/&gt;&lt;/InstanceID&gt;&lt;/Event&gt;</LastChange>
  </e:property>
</e:propertyset>`
	props := DecodeLastChange([]byte(body))
	_, ok := props["Volume"]
	require.False(t, ok)
}

func TestDecodeLastChangeMalformedXMLReturnsEmpty(t *testing.T) {
	props := DecodeLastChange([]byte("not xml"))
	require.Empty(t, props)
}
