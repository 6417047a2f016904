package description

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

const rootXML = `<?xml version="1.0"?>
<root>
  <device>
    <deviceType>urn:schemas-upnp-org:device:MediaRenderer:1</deviceType>
    <friendlyName>Living Room</friendlyName>
    <manufacturer>Yamaha</manufacturer>
    <modelName>WX-030</modelName>
    <UDN>uuid:abcd-1234</UDN>
    <iconList>
      <icon>
        <mimetype>image/png</mimetype>
        <width>120</width>
        <height>120</height>
        <depth>24</depth>
        <url>/icon.png</url>
      </icon>
    </iconList>
    <serviceList>
      <service>
        <serviceType>urn:schemas-upnp-org:service:AVTransport:1</serviceType>
        <serviceId>urn:upnp-org:serviceId:AVTransport</serviceId>
        <SCPDURL>/AVTransport/scpd.xml</SCPDURL>
        <controlURL>/AVTransport/control</controlURL>
        <eventSubURL>/AVTransport/event</eventSubURL>
      </service>
    </serviceList>
  </device>
</root>`

const scpdXML = `<?xml version="1.0"?>
<scpd>
  <actionList>
    <action>
      <name>SetAVTransportURI</name>
      <argumentList>
        <argument>
          <name>InstanceID</name>
          <direction>in</direction>
          <relatedStateVariable>A_ARG_TYPE_InstanceID</relatedStateVariable>
        </argument>
        <argument>
          <name>CurrentURI</name>
          <direction>in</direction>
          <relatedStateVariable>AVTransportURI</relatedStateVariable>
        </argument>
      </argumentList>
    </action>
  </actionList>
  <serviceStateTable>
    <stateVariable>
      <name>AVTransportURI</name>
      <dataType>string</dataType>
    </stateVariable>
  </serviceStateTable>
</scpd>`

func TestParseRootFields(t *testing.T) {
	root, err := ParseRoot([]byte(rootXML))
	require.NoError(t, err)

	require.Equal(t, "urn:schemas-upnp-org:device:MediaRenderer:1", root.DeviceType)
	require.Equal(t, "Living Room", root.FriendlyName)
	require.Equal(t, "Yamaha", root.Manufacturer)
	require.Equal(t, "WX-030", root.ModelName)
	require.Equal(t, "abcd-1234", root.UDN)

	require.Len(t, root.IconList, 1)
	require.Equal(t, "image/png", root.IconList[0].MimeType)
	require.Equal(t, 120, root.IconList[0].Width)
	require.Equal(t, 24, root.IconList[0].Depth)
	require.Equal(t, "/icon.png", root.IconList[0].URL)

	require.Len(t, root.ServiceList, 1)
	svc, ok := root.ServiceByID("urn:upnp-org:serviceId:AVTransport")
	require.True(t, ok)
	require.Equal(t, "urn:schemas-upnp-org:service:AVTransport:1", svc.ServiceType)
	require.Equal(t, "/AVTransport/control", svc.ControlURL)
}

func TestAbsolutizeRewritesRelativeURLs(t *testing.T) {
	root, err := ParseRoot([]byte(rootXML))
	require.NoError(t, err)

	base, err := url.Parse("http://192.168.1.50:49154/MediaRenderer/desc.xml")
	require.NoError(t, err)

	Absolutize(root, base)

	require.Equal(t, "http://192.168.1.50:49154/icon.png", root.IconList[0].URL)
	require.Equal(t, "http://192.168.1.50:49154/AVTransport/scpd.xml", root.ServiceList[0].SCPDURL)
	require.Equal(t, "http://192.168.1.50:49154/AVTransport/control", root.ServiceList[0].ControlURL)
	require.Equal(t, "http://192.168.1.50:49154/AVTransport/event", root.ServiceList[0].EventSubURL)
}

func TestAbsolutizeLeavesEmptyURLsEmpty(t *testing.T) {
	root := &RootDevice{ServiceList: []Service{{}}}
	base, _ := url.Parse("http://192.168.1.50:49154/desc.xml")
	Absolutize(root, base)
	require.Equal(t, "", root.ServiceList[0].ControlURL)
}

func TestParseSCPDActionsAndVariables(t *testing.T) {
	scpd, err := ParseSCPD([]byte(scpdXML))
	require.NoError(t, err)

	action, ok := scpd.ActionByName("SetAVTransportURI")
	require.True(t, ok)
	require.Len(t, action.Arguments, 2)
	require.Equal(t, "InstanceID", action.Arguments[0].Name)
	require.Equal(t, "in", action.Arguments[0].Direction)
	require.Equal(t, "CurrentURI", action.Arguments[1].Name)

	require.Equal(t, "string", scpd.DataTypeOf("AVTransportURI"))
	require.Equal(t, "", scpd.DataTypeOf("Unknown"))

	_, ok = scpd.ActionByName("NoSuchAction")
	require.False(t, ok)
}
