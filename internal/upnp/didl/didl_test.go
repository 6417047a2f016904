package didl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDurationRoundTrip(t *testing.T) {
	cases := []int{0, 1, 59, 60, 61, 3599, 3600, 3661, 359999}
	for _, seconds := range cases {
		encoded := EncodeDuration(seconds)
		require.Equal(t, seconds, DecodeDuration(encoded), "round trip for %d seconds (%s)", seconds, encoded)
	}
}

func TestEncodeDurationFormat(t *testing.T) {
	require.Equal(t, "0:00:00", EncodeDuration(0))
	require.Equal(t, "0:01:05", EncodeDuration(65))
	require.Equal(t, "1:00:00", EncodeDuration(3600))
	require.Equal(t, "99:59:59", EncodeDuration(99*3600+59*60+59))
}

func TestDecodeDurationMalformed(t *testing.T) {
	require.Equal(t, 0, DecodeDuration(""))
	require.Equal(t, 0, DecodeDuration("not-a-duration"))
}

func TestEncodeDecodeItemRoundTrip(t *testing.T) {
	items := []Item{
		{
			URL: "http://example.com/track.mp3",
			Track: Track{
				ID:              "1",
				Title:           "A Song",
				Artist:          "An Artist",
				Album:           "An Album",
				AlbumCoverURL:   "http://example.com/art.jpg",
				DurationSeconds: 245,
				Mimetype:        "audio/mp4",
			},
		},
	}

	xmlDoc := Encode(items)
	decoded := Decode(xmlDoc)

	require.Len(t, decoded, 1)
	require.Equal(t, items[0].URL, decoded[0].URL)
	require.Equal(t, items[0].Track.ID, decoded[0].Track.ID)
	require.Equal(t, items[0].Track.Title, decoded[0].Track.Title)
	require.Equal(t, items[0].Track.Artist, decoded[0].Track.Artist)
	require.Equal(t, items[0].Track.Album, decoded[0].Track.Album)
	require.Equal(t, items[0].Track.AlbumCoverURL, decoded[0].Track.AlbumCoverURL)
	require.Equal(t, items[0].Track.DurationSeconds, decoded[0].Track.DurationSeconds)
	require.Equal(t, items[0].Track.Mimetype, decoded[0].Track.Mimetype)
}

func TestEncodeOmitsZeroFields(t *testing.T) {
	xmlDoc := Encode([]Item{{URL: "http://example.com/x.mp3", Track: Track{ID: "1"}}})
	require.NotContains(t, xmlDoc, "<dc:title>")
	require.NotContains(t, xmlDoc, "<upnp:album>")
	require.NotContains(t, xmlDoc, "<upnp:artist>")
	require.NotContains(t, xmlDoc, "<upnp:albumArtURI>")
}

func TestArtistIsHTMLEntityEncoded(t *testing.T) {
	xmlDoc := Encode([]Item{{URL: "u", Track: Track{ID: "1", Artist: "Rock & Roll"}}})
	require.Contains(t, xmlDoc, "Rock &amp; Roll")
}

func TestProtocolInfoMapping(t *testing.T) {
	require.Equal(t, "http-get:*:audio/mp4:DLNA.ORG_PN=AAC_ISO_320", protocolInfoFor("audio/mp4"))
	require.Equal(t, "http-get:*:audio/mpeg", protocolInfoFor("audio/mpeg"))
	require.Equal(t, "", protocolInfoFor(""))
}

func TestDecodeMetadataArity(t *testing.T) {
	one := Encode([]Item{{URL: "u1", Track: Track{ID: "1"}}})
	result := DecodeMetadata(one)
	item, ok := result.(Item)
	require.True(t, ok)
	require.Equal(t, "u1", item.URL)

	two := Encode([]Item{{URL: "u1", Track: Track{ID: "1"}}, {URL: "u2", Track: Track{ID: "2"}}})
	multi := DecodeMetadata(two)
	items, ok := multi.([]Item)
	require.True(t, ok)
	require.Len(t, items, 2)
}

func TestDecodeEmptyDocument(t *testing.T) {
	require.Nil(t, Decode(""))
	require.Nil(t, Decode("   "))
}
