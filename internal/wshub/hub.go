// Package wshub bridges the registry PubSub bus to websocket clients,
// giving external consumers the subscribe/unsubscribe surface the spec
// describes at the process boundary.
package wshub

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jmartin-dev/musiccast-hub-go/internal/registry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub upgrades HTTP connections to websockets and lets each connection
// subscribe to and unsubscribe from PubSub topics by name (device_ids or
// registry.NetworkTopic).
type Hub struct {
	bus *registry.Bus
}

// New builds a Hub over bus.
func New(bus *registry.Bus) *Hub {
	return &Hub{bus: bus}
}

// controlMessage is what a client sends to (un)subscribe.
type controlMessage struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

// event is what a client receives: the topic it arrived on plus the
// published payload.
type event struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		bus:  h.bus,
		done: make(chan struct{}),
	}
	c.run()
}

type client struct {
	id   string
	conn *websocket.Conn
	bus  *registry.Bus

	writeMu sync.Mutex
	done    chan struct{}
}

func (c *client) run() {
	defer func() {
		close(c.done)
		c.bus.UnsubscribeAll(c.id)
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg controlMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		switch msg.Action {
		case "subscribe":
			c.subscribe(msg.Topic)
		case "unsubscribe":
			c.bus.Unsubscribe(msg.Topic, c.id)
		}
	}
}

func (c *client) subscribe(topic string) {
	if topic == "" {
		return
	}
	ch := c.bus.Subscribe(topic, c.id)
	go func() {
		for payload := range ch {
			if err := c.write(event{Topic: topic, Payload: payload}); err != nil {
				return
			}
		}
	}()
}

func (c *client) write(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	select {
	case <-c.done:
		return nil
	default:
	}
	if err := c.conn.WriteJSON(v); err != nil {
		log.Printf("wshub: write to %s: %v", c.id, err)
		return err
	}
	return nil
}
