// Package event decodes UPnP GENA NOTIFY bodies: the propertyset envelope
// and the double-encoded LastChange XML fragment AVTransport and
// RenderingControl carry inside it.
package event

import (
	"bytes"
	"encoding/xml"
	"html"
	"net/http"
	"strconv"
)

// Notify is a decoded GENA NOTIFY request: its subscription headers plus
// the flattened LastChange properties.
type Notify struct {
	SID        string
	Seq        int
	Properties map[string]string
}

// ParseNotify decodes the headers and body of a GENA NOTIFY request. It
// does not consume r.Body itself; call with the already-read body bytes.
func ParseNotify(r *http.Request, body []byte) (*Notify, bool) {
	if r.Header.Get("NT") != "upnp:event" || r.Header.Get("NTS") != "upnp:propchange" {
		return nil, false
	}
	sid := r.Header.Get("SID")
	if sid == "" {
		return nil, false
	}

	notify := &Notify{
		SID:        sid,
		Seq:        parseSeq(r.Header.Get("SEQ")),
		Properties: DecodeLastChange(body),
	}
	return notify, true
}

func parseSeq(header string) int {
	seq, err := strconv.Atoi(header)
	if err != nil {
		return 0
	}
	return seq
}

type propertyset struct {
	Properties []property `xml:"property"`
}

type property struct {
	LastChange string `xml:"LastChange"`
}

// DecodeLastChange extracts the LastChange fragment from a NOTIFY body,
// unescapes it, and flattens its InstanceID children into a name/val map.
// This is service-agnostic: AVTransport's TransportState and
// RenderingControl's Volume/Mute both decode through the same InstanceID
// shape.
func DecodeLastChange(body []byte) map[string]string {
	props := make(map[string]string)

	var ps propertyset
	if err := xml.Unmarshal(body, &ps); err != nil {
		return props
	}

	for _, p := range ps.Properties {
		if p.LastChange == "" {
			continue
		}
		unescaped := html.UnescapeString(p.LastChange)
		decodeInstanceFields(unescaped, props)
	}

	return props
}

// decodeInstanceFields walks an <Event><InstanceID>...</InstanceID></Event>
// document and records each child element's val attribute (or channel-
// qualified val, for Volume/Mute style elements) under its element name.
func decodeInstanceFields(xmlContent string, out map[string]string) {
	decoder := xml.NewDecoder(bytes.NewReader([]byte(xmlContent)))

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local == "InstanceID" || start.Name.Local == "Event" {
			continue
		}

		var val, channel string
		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "val":
				val = attr.Value
			case "channel":
				channel = attr.Value
			}
		}
		if val == "" {
			continue
		}
		if channel != "" && channel != "Master" {
			continue
		}
		out[start.Name.Local] = val
	}
}

// AVTransportState is the subset of AVTransport LastChange properties the
// device agent tracks.
type AVTransportState struct {
	TransportState         string
	TransportStatus        string
	CurrentTrackURI        string
	CurrentTrackMetaData   string
	CurrentTrackDuration   string
	RelativeTimePosition   string
	AVTransportURI         string
	AVTransportURIMetaData string
}

// DecodeAVTransport specializes a flattened LastChange property map into an
// AVTransportState.
func DecodeAVTransport(props map[string]string) AVTransportState {
	return AVTransportState{
		TransportState:         props["TransportState"],
		TransportStatus:        props["TransportStatus"],
		CurrentTrackURI:        props["CurrentTrackURI"],
		CurrentTrackMetaData:   props["CurrentTrackMetaData"],
		CurrentTrackDuration:   props["CurrentTrackDuration"],
		RelativeTimePosition:   props["RelativeTimePosition"],
		AVTransportURI:         props["AVTransportURI"],
		AVTransportURIMetaData: props["AVTransportURIMetaData"],
	}
}

// RenderingControlState is the subset of RenderingControl LastChange
// properties the device agent tracks.
type RenderingControlState struct {
	Volume int
	Muted  bool
}

// DecodeRenderingControl specializes a flattened LastChange property map
// into a RenderingControlState.
func DecodeRenderingControl(props map[string]string) RenderingControlState {
	state := RenderingControlState{}
	if v, ok := props["Volume"]; ok {
		if vol, err := strconv.Atoi(v); err == nil {
			state.Volume = vol
		}
	}
	state.Muted = props["Mute"] == "1"
	return state
}
