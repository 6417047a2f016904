// Package didl encodes and decodes DIDL-Lite metadata, the XML fragment
// UPnP AVTransport actions carry to describe a media item.
package didl

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"strconv"
	"strings"
)

const (
	nsDIDL = "urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/"
	nsUPNP = "urn:schemas-upnp-org:metadata-1-0/upnp/"
	nsDC   = "http://purl.org/dc/elements/1.1/"
)

// Track is the track-metadata shape carried by DIDL items.
type Track struct {
	ID              string
	Title           string
	Artist          string
	Album           string
	AlbumCoverURL   string
	DurationSeconds int
	Mimetype        string
}

// Item pairs a resource URL with its track metadata, mirroring a
// playback_queue entry.
type Item struct {
	URL   string
	Track Track
}

// Encode renders items as a DIDL-Lite document. Title, Album,
// AlbumCoverURL and Artist elements are omitted when zero-valued; the res
// element always carries protocolInfo and duration (empty and "0:00:00"
// when Mimetype and DurationSeconds are unset).
func Encode(items []Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<DIDL-Lite xmlns="%s" xmlns:upnp="%s" xmlns:dc="%s">`, nsDIDL, nsUPNP, nsDC)
	for _, item := range items {
		b.WriteString(`<item id="`)
		b.WriteString(xmlEscape(item.Track.ID))
		b.WriteString(`" parentID="0" restricted="0">`)
		b.WriteString("<upnp:class>object.item.audioItem.musicTrack</upnp:class>")
		if item.Track.Title != "" {
			b.WriteString("<dc:title>")
			b.WriteString(xmlEscape(item.Track.Title))
			b.WriteString("</dc:title>")
		}
		if item.Track.Album != "" {
			b.WriteString("<upnp:album>")
			b.WriteString(xmlEscape(item.Track.Album))
			b.WriteString("</upnp:album>")
		}
		if item.Track.AlbumCoverURL != "" {
			b.WriteString("<upnp:albumArtURI>")
			b.WriteString(xmlEscape(item.Track.AlbumCoverURL))
			b.WriteString("</upnp:albumArtURI>")
		}
		if item.Track.Artist != "" {
			b.WriteString("<upnp:artist>")
			b.WriteString(html.EscapeString(item.Track.Artist))
			b.WriteString("</upnp:artist>")
		}
		b.WriteString(`<res protocolInfo="`)
		b.WriteString(protocolInfoFor(item.Track.Mimetype))
		b.WriteString(`" duration="`)
		b.WriteString(EncodeDuration(item.Track.DurationSeconds))
		b.WriteString(`">`)
		b.WriteString(xmlEscape(item.URL))
		b.WriteString("</res>")
		b.WriteString("</item>")
	}
	b.WriteString("</DIDL-Lite>")
	return b.String()
}

// protocolInfoFor maps a mimetype to its DLNA protocolInfo string.
func protocolInfoFor(mimetype string) string {
	switch mimetype {
	case "":
		return ""
	case "audio/mp4":
		return "http-get:*:audio/mp4:DLNA.ORG_PN=AAC_ISO_320"
	default:
		return "http-get:*:" + mimetype
	}
}

func mimetypeFromProtocolInfo(protocolInfo string) string {
	parts := strings.Split(protocolInfo, ":")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

// Decode parses a DIDL-Lite document into its item list.
func Decode(didlXML string) []Item {
	if strings.TrimSpace(didlXML) == "" {
		return nil
	}

	decoder := xml.NewDecoder(bytes.NewReader([]byte(didlXML)))
	var items []Item
	var current *Item
	var field string

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "item", "container":
				items = append(items, Item{})
				current = &items[len(items)-1]
				for _, attr := range el.Attr {
					if attr.Name.Local == "id" {
						current.Track.ID = attr.Value
					}
				}
			case "res":
				field = "res"
				if current != nil {
					for _, attr := range el.Attr {
						switch attr.Name.Local {
						case "protocolInfo":
							current.Track.Mimetype = mimetypeFromProtocolInfo(attr.Value)
						case "duration":
							current.Track.DurationSeconds = DecodeDuration(attr.Value)
						}
					}
				}
			default:
				field = el.Name.Local
			}
		case xml.CharData:
			if current == nil {
				continue
			}
			value := strings.TrimSpace(string(el))
			if value == "" {
				continue
			}
			switch field {
			case "title":
				current.Track.Title = value
			case "artist":
				current.Track.Artist = html.UnescapeString(value)
			case "album":
				current.Track.Album = value
			case "albumArtURI":
				current.Track.AlbumCoverURL = value
			case "res":
				current.URL = value
			}
		case xml.EndElement:
			if el.Name.Local == "item" || el.Name.Local == "container" {
				current = nil
			}
			field = ""
		}
	}

	return items
}

// DecodeMetadata resolves the arity ambiguity in the source formats this
// system was distilled from: a DIDL document with exactly one item decodes
// to that Item, otherwise to the full []Item slice.
func DecodeMetadata(didlXML string) any {
	items := Decode(didlXML)
	if len(items) == 1 {
		return items[0]
	}
	return items
}

// EncodeDuration formats seconds as H:MM:SS with unpadded hours.
func EncodeDuration(totalSeconds int) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
}

// DecodeDuration parses an H:MM:SS string into total seconds.
func DecodeDuration(duration string) int {
	parts := strings.Split(duration, ":")
	if len(parts) != 3 {
		return 0
	}
	hours, _ := strconv.Atoi(parts[0])
	minutes, _ := strconv.Atoi(parts[1])
	seconds, _ := strconv.Atoi(parts[2])
	return hours*3600 + minutes*60 + seconds
}

func xmlEscape(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return s
	}
	return b.String()
}
