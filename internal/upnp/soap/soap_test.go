package soap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const faultPayload = `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">
  <s:Body>
    <s:Fault>
      <faultcode>s:Client</faultcode>
      <faultstring>UPnPError</faultstring>
      <detail>
        <UPnPError xmlns="urn:schemas-upnp-org:control-1-0">
          <errorCode>701</errorCode>
          <errorDescription>Transition not available</errorDescription>
        </UPnPError>
      </detail>
    </s:Fault>
  </s:Body>
</s:Envelope>`

const actionResponsePayload = `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">
  <s:Body>
    <u:SetAVTransportURIResponse xmlns:u="urn:schemas-upnp-org:service:AVTransport:1">
    </u:SetAVTransportURIResponse>
  </s:Body>
</s:Envelope>`

const actionResponseWithArgsPayload = `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">
  <s:Body>
    <u:GetPositionInfoResponse xmlns:u="urn:schemas-upnp-org:service:AVTransport:1">
      <Track>1</Track>
      <TrackDuration>0:03:45</TrackDuration>
    </u:GetPositionInfoResponse>
  </s:Body>
</s:Envelope>`

func TestParseFaultExtractsCodeAndDescription(t *testing.T) {
	code, desc, ok := parseFault([]byte(faultPayload))
	require.True(t, ok)
	require.Equal(t, "701", code)
	require.Equal(t, "Transition not available", desc)
}

func TestParseFaultNonFaultPayload(t *testing.T) {
	_, _, ok := parseFault([]byte(actionResponsePayload))
	require.False(t, ok)
}

func TestParseResponseEmptyBody(t *testing.T) {
	out, err := parseResponse([]byte(actionResponsePayload), "SetAVTransportURI")
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestParseResponseExtractsOutArguments(t *testing.T) {
	out, err := parseResponse([]byte(actionResponseWithArgsPayload), "GetPositionInfo")
	require.NoError(t, err)
	require.Equal(t, "1", out["Track"])
	require.Equal(t, "0:03:45", out["TrackDuration"])
}

func TestBuildEnvelopeIncludesActionAndArgs(t *testing.T) {
	body := buildEnvelope("urn:schemas-upnp-org:service:AVTransport:1", "Play", map[string]string{"Speed": "1"})
	require.Contains(t, string(body), "<u:Play")
	require.Contains(t, string(body), "<Speed>1</Speed>")
	require.Contains(t, string(body), "</u:Play>")
}

func TestEscapeXMLEscapesEntities(t *testing.T) {
	require.Equal(t, "Rock &amp; Roll", escapeXML("Rock & Roll"))
}
