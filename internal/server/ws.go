package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/pinchpoint/internal/control"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// TelemetryMessage is the JSON pushed to telemetry clients per frame.
type TelemetryMessage struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Detected  bool    `json:"detected"`
	Moved     bool    `json:"moved"`
	Button    string  `json:"button"`
	Released  bool    `json:"released,omitempty"`
	Distance  float64 `json:"distance"`
	Timestamp int64   `json:"timestamp"`
}

func newTelemetryMessage(step control.Step) TelemetryMessage {
	return TelemetryMessage{
		X:         step.Position.X,
		Y:         step.Position.Y,
		Detected:  step.Detected,
		Moved:     step.Moved,
		Button:    step.Button.String(),
		Released:  step.Released,
		Distance:  step.Distance,
		Timestamp: step.Timestamp.UnixMilli(),
	}
}

type telemetryClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Telemetry broadcasts controller steps to WebSocket clients. Publish never
// blocks the detection loop: a client that falls behind loses messages.
type Telemetry struct {
	mu      sync.RWMutex
	clients map[*telemetryClient]bool
	dropped int
}

// NewTelemetry creates an empty Telemetry hub.
func NewTelemetry() *Telemetry {
	return &Telemetry{clients: make(map[*telemetryClient]bool)}
}

// Publish sends step to every connected client.
func (t *Telemetry) Publish(step control.Step) {
	t.mu.RLock()
	if len(t.clients) == 0 {
		t.mu.RUnlock()
		return
	}

	msg, err := json.Marshal(newTelemetryMessage(step))
	if err != nil {
		t.mu.RUnlock()
		log.Printf("telemetry encode error: %v", err)
		return
	}

	var dropped int
	for c := range t.clients {
		select {
		case c.send <- msg:
		default:
			dropped++
		}
	}
	t.mu.RUnlock()

	if dropped > 0 {
		t.mu.Lock()
		t.dropped += dropped
		t.mu.Unlock()
	}
}

// Clients returns the number of connected clients.
func (t *Telemetry) Clients() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.clients)
}

// Dropped returns how many messages were discarded for slow clients.
func (t *Telemetry) Dropped() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dropped
}

// ServeHTTP handles WebSocket upgrade requests.
func (t *Telemetry) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	c := &telemetryClient{conn: conn, send: make(chan []byte, clientSendSize)}

	t.mu.Lock()
	t.clients[c] = true
	t.mu.Unlock()

	go t.writePump(c)
	t.readPump(c)
}

// readPump discards client messages and unregisters the client once the
// connection fails.
func (t *Telemetry) readPump(c *telemetryClient) {
	defer func() {
		t.mu.Lock()
		if t.clients[c] {
			delete(t.clients, c)
			close(c.send)
		}
		t.mu.Unlock()
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only writer to the connection.
func (t *Telemetry) writePump(c *telemetryClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
