// Package ssdp implements multicast SSDP discovery of MusicCast devices:
// sending M-SEARCH requests and listening for both search responses and
// unsolicited NOTIFY announcements.
package ssdp

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"golang.org/x/net/ipv4"
)

const (
	multicastAddr    = "239.255.255.250:1900"
	MediaRendererST  = "urn:schemas-upnp-org:device:MediaRenderer:1"
	notifyAlive      = "ssdp:alive"
	notifyByebye     = "ssdp:byebye"
)

// Announcement is a normalized SSDP message: either an M-SEARCH response or
// a NOTIFY. Header keys are lowercased with '-' replaced by '_' so callers
// can address them uniformly regardless of message type or device
// capitalization quirks.
type Announcement struct {
	Headers map[string]string
	FromIP  string
}

// Header returns a normalized header value, or "" if absent.
func (a Announcement) Header(name string) string {
	return a.Headers[normalizeKey(name)]
}

// Location returns the LOCATION header, the device-description URL.
func (a Announcement) Location() string { return a.Header("location") }

// SearchTarget returns the ST header (search response) or NT header
// (NOTIFY), whichever is present.
func (a Announcement) SearchTarget() string {
	if st := a.Header("st"); st != "" {
		return st
	}
	return a.Header("nt")
}

// IsByebye reports whether this is a NOTIFY announcing device departure.
func (a Announcement) IsByebye() bool {
	return a.Header("nts") == notifyByebye
}

func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "-", "_")
}

// LivenessCheck reports whether an agent already exists for a device IP.
// The listener uses it to hold announcements at arm's length: it decides
// what counts as "new" by asking whether anything downstream is already
// alive for that address, rather than keeping its own membership set.
type LivenessCheck func(ip string) bool

// Listener listens for SSDP traffic on the multicast group and reports new
// MediaRenderer sightings and departures.
type Listener struct {
	conn         net.PacketConn
	mx           int
	isLive       LivenessCheck
	OnDiscovered func(location, usn, fromIP string)
	OnByebye     func(usn string)
}

// NewListener opens the multicast socket used for both sending M-SEARCH and
// receiving responses/NOTIFYs. It binds port 1900 and joins the SSDP
// multicast group on the default interface, so unsolicited ssdp:alive and
// ssdp:byebye announcements arrive on the same socket as search responses.
func NewListener(mx int, isLive LivenessCheck) (*Listener, error) {
	addr, err := net.ResolveUDPAddr("udp4", multicastAddr)
	if err != nil {
		return nil, err
	}

	// net.ListenMulticastUDP sets SO_REUSEADDR and joins the group itself;
	// a nil interface joins on the default one.
	conn, err := net.ListenMulticastUDP("udp4", nil, addr)
	if err != nil {
		return nil, err
	}
	conn.SetReadBuffer(65535)

	pconn := ipv4.NewPacketConn(conn)
	if err := pconn.SetMulticastTTL(2); err != nil {
		log.Printf("ssdp: set multicast ttl: %v", err)
	}
	if err := pconn.SetMulticastLoopback(false); err != nil {
		log.Printf("ssdp: disable multicast loopback: %v", err)
	}

	return &Listener{conn: conn, mx: mx, isLive: isLive}, nil
}

// Close releases the listener's socket.
func (l *Listener) Close() error {
	return l.conn.Close()
}

// Search broadcasts an M-SEARCH for MediaRenderer devices.
func (l *Listener) Search() error {
	addr, err := net.ResolveUDPAddr("udp4", multicastAddr)
	if err != nil {
		return err
	}

	msg := strings.Join([]string{
		"M-SEARCH * HTTP/1.1",
		"HOST: " + multicastAddr,
		`MAN: "ssdp:discover"`,
		fmt.Sprintf("MX: %d", l.mx),
		"ST: " + MediaRendererST,
		"", "",
	}, "\r\n")

	_, err = l.conn.WriteTo([]byte(msg), addr)
	return err
}

// Run listens for SSDP traffic until ctx is canceled. It fires an initial
// Search after autoDiscoverDelay to catch devices that were already on the
// network before the listener started.
func (l *Listener) Run(ctx context.Context, autoDiscoverDelay time.Duration) error {
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(autoDiscoverDelay):
		}
		if err := l.Search(); err != nil {
			log.Printf("ssdp: auto-discover search failed: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		l.conn.Close()
	}()

	buf := make([]byte, 4096)
	for {
		n, raddr, err := l.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		udpAddr, ok := raddr.(*net.UDPAddr)
		fromIP := ""
		if ok {
			fromIP = udpAddr.IP.String()
		}

		ann := parseAnnouncement(buf[:n], fromIP)
		l.handle(ann)
	}
}

func (l *Listener) handle(ann Announcement) {
	if ann.SearchTarget() != MediaRendererST {
		return
	}

	if ann.IsByebye() {
		if l.OnByebye != nil {
			l.OnByebye(ann.Header("usn"))
		}
		return
	}

	if ann.Location() == "" || ann.FromIP == "" {
		return
	}
	if l.isLive != nil && l.isLive(ann.FromIP) {
		return
	}
	if l.OnDiscovered != nil {
		l.OnDiscovered(ann.Location(), ann.Header("usn"), ann.FromIP)
	}
}

// parseAnnouncement normalizes the headers of an M-SEARCH response or
// NOTIFY datagram. The request/status line is discarded; only headers
// matter to a MediaRenderer filter.
func parseAnnouncement(raw []byte, fromIP string) Announcement {
	scanner := bufio.NewScanner(strings.NewReader(string(raw)))
	headers := make(map[string]string)

	scanner.Scan() // discard request or status line

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			break
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		headers[normalizeKey(strings.TrimSpace(parts[0]))] = strings.TrimSpace(parts[1])
	}

	return Announcement{Headers: headers, FromIP: fromIP}
}
