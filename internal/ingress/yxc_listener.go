package ingress

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"strconv"
)

// YXCListener receives Yamaha Extended Control unicast event datagrams on
// a UDP port and routes them to the owning Agent by device_id.
type YXCListener struct {
	conn net.PacketConn
	dir  *Directory
}

// NewYXCListener binds a UDP socket on port for YXC unicast events.
func NewYXCListener(port int, dir *Directory) (*YXCListener, error) {
	conn, err := net.ListenPacket("udp4", udpAddr(port))
	if err != nil {
		return nil, err
	}
	return &YXCListener{conn: conn, dir: dir}, nil
}

// Close stops the listener.
func (l *YXCListener) Close() error {
	return l.conn.Close()
}

// Run reads datagrams until ctx is canceled.
func (l *YXCListener) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		l.conn.Close()
	}()

	buf := make([]byte, 8192)
	for {
		n, _, err := l.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		go l.dispatch(payload)
	}
}

// dispatch decodes one event payload and pushes it to the owning agent.
// The wire shape is {"device_id": "...", "<zone>": {flags...}, ...}: every
// top-level key besides device_id names a zone.
func (l *YXCListener) dispatch(payload []byte) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		log.Printf("ingress: malformed yxc event: %v", err)
		return
	}

	deviceIDRaw, ok := raw["device_id"]
	if !ok {
		return
	}
	var deviceID string
	if err := json.Unmarshal(deviceIDRaw, &deviceID); err != nil {
		return
	}
	delete(raw, "device_id")

	zones := make(map[string]map[string]any, len(raw))
	for zone, rawFlags := range raw {
		var flags map[string]any
		if err := json.Unmarshal(rawFlags, &flags); err != nil {
			continue
		}
		zones[zone] = flags
	}
	if len(zones) == 0 {
		return
	}

	ag, ok := l.dir.ByDeviceID(deviceID)
	if !ok {
		return
	}
	ag.PushYXCEvent(zones)
}

func udpAddr(port int) string {
	return ":" + strconv.Itoa(port)
}
