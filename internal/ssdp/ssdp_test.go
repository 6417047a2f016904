package ssdp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const searchResponse = "HTTP/1.1 200 OK\r\n" +
	"CACHE-CONTROL: max-age=1800\r\n" +
	"LOCATION: http://192.168.1.50:49154/MediaRenderer/desc.xml\r\n" +
	"ST: urn:schemas-upnp-org:device:MediaRenderer:1\r\n" +
	"USN: uuid:abcd-1234::urn:schemas-upnp-org:device:MediaRenderer:1\r\n" +
	"\r\n"

const notifyByebyeMsg = "NOTIFY * HTTP/1.1\r\n" +
	"HOST: 239.255.255.250:1900\r\n" +
	"NT: urn:schemas-upnp-org:device:MediaRenderer:1\r\n" +
	"NTS: ssdp:byebye\r\n" +
	"USN: uuid:abcd-1234::urn:schemas-upnp-org:device:MediaRenderer:1\r\n" +
	"\r\n"

func TestParseAnnouncementSearchResponse(t *testing.T) {
	ann := parseAnnouncement([]byte(searchResponse), "192.168.1.50")

	require.Equal(t, "http://192.168.1.50:49154/MediaRenderer/desc.xml", ann.Location())
	require.Equal(t, MediaRendererST, ann.SearchTarget())
	require.False(t, ann.IsByebye())
	require.Equal(t, "192.168.1.50", ann.FromIP)
}

func TestParseAnnouncementByebye(t *testing.T) {
	ann := parseAnnouncement([]byte(notifyByebyeMsg), "192.168.1.50")

	require.True(t, ann.IsByebye())
	require.Equal(t, MediaRendererST, ann.SearchTarget())
	require.Equal(t, "uuid:abcd-1234::urn:schemas-upnp-org:device:MediaRenderer:1", ann.Header("usn"))
}

func TestNormalizeKeyHandlesCaseAndDashes(t *testing.T) {
	require.Equal(t, "cache_control", normalizeKey("CACHE-CONTROL"))
	require.Equal(t, "location", normalizeKey("Location"))
}

func TestHeaderMissingReturnsEmpty(t *testing.T) {
	ann := parseAnnouncement([]byte(searchResponse), "192.168.1.50")
	require.Equal(t, "", ann.Header("nts"))
}

func TestListenerHandleFiltersNonMediaRenderer(t *testing.T) {
	var discovered bool
	l := &Listener{
		OnDiscovered: func(location, usn, fromIP string) { discovered = true },
	}
	l.handle(Announcement{Headers: map[string]string{"st": "urn:schemas-upnp-org:device:Other:1"}})
	require.False(t, discovered)
}

func TestListenerHandleSkipsLiveDevices(t *testing.T) {
	var discovered bool
	l := &Listener{
		isLive:       func(ip string) bool { return true },
		OnDiscovered: func(location, usn, fromIP string) { discovered = true },
	}
	l.handle(Announcement{
		Headers: map[string]string{
			"st":       MediaRendererST,
			"location": "http://192.168.1.50:49154/desc.xml",
		},
		FromIP: "192.168.1.50",
	})
	require.False(t, discovered)
}

func TestListenerHandleDiscoversNewDevice(t *testing.T) {
	var gotLocation, gotUSN, gotIP string
	l := &Listener{
		isLive: func(ip string) bool { return false },
		OnDiscovered: func(location, usn, fromIP string) {
			gotLocation, gotUSN, gotIP = location, usn, fromIP
		},
	}
	l.handle(Announcement{
		Headers: map[string]string{
			"st":       MediaRendererST,
			"location": "http://192.168.1.50:49154/desc.xml",
			"usn":      "uuid:abcd-1234",
		},
		FromIP: "192.168.1.50",
	})
	require.Equal(t, "http://192.168.1.50:49154/desc.xml", gotLocation)
	require.Equal(t, "uuid:abcd-1234", gotUSN)
	require.Equal(t, "192.168.1.50", gotIP)
}

func TestListenerHandleByebyeCallback(t *testing.T) {
	var gotUSN string
	l := &Listener{
		OnByebye: func(usn string) { gotUSN = usn },
	}
	l.handle(Announcement{
		Headers: map[string]string{
			"st":  MediaRendererST,
			"nts": notifyByebye,
			"usn": "uuid:abcd-1234",
		},
	})
	require.Equal(t, "uuid:abcd-1234", gotUSN)
}
