package notification

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"restaurant-admin-backend/internal/metrics"
)

// Frame types pushed to dashboards.
const (
	FramePlayAlert    = "play_alert"
	FrameRosterUpdate = "roster_update"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 4 * 1024
)

// ErrPlaybackBlocked means no dashboard was connected to play the alert sound.
var ErrPlaybackBlocked = errors.New("alert playback blocked: no dashboard connected")

// Frame is one message sent to every dashboard.
type Frame struct {
	Type    string `json:"type"`
	TableID string `json:"tableId,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub tracks the operator dashboards connected over websocket.
type Hub struct {
	mu         sync.Mutex
	clients    map[*dashboard]struct{}
	onInteract func()
	rec        metrics.Recorder
}

type dashboard struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty hub.
func NewHub(rec metrics.Recorder) *Hub {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Hub{
		clients: make(map[*dashboard]struct{}),
		rec:     rec,
	}
}

// OnInteract sets the callback run when a dashboard connects or sends anything.
func (h *Hub) OnInteract(fn func()) {
	h.mu.Lock()
	h.onInteract = fn
	h.mu.Unlock()
}

// ServeWS upgrades the request and starts pumping frames to the new dashboard.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	d := &dashboard{hub: h, conn: conn, send: make(chan []byte, 64)}
	h.mu.Lock()
	h.clients[d] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.rec.SetGauge(metrics.DashboardClients, float64(n))
	log.Printf("Dashboard connected from %s (%d connected)", r.RemoteAddr, n)

	go d.writePump()
	go d.readPump()
	h.interact()
	return nil
}

// Broadcast queues the frame on every dashboard and reports how many accepted it.
func (h *Hub) Broadcast(f Frame) int {
	data, err := json.Marshal(f)
	if err != nil {
		log.Printf("Error encoding %s frame: %v", f.Type, err)
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	delivered := 0
	for d := range h.clients {
		select {
		case d.send <- data:
			delivered++
		default:
			log.Printf("Dashboard %s buffer full, dropping %s frame", d.conn.RemoteAddr(), f.Type)
		}
	}
	return delivered
}

// PlayAlert asks every dashboard to play the order alert sound.
func (h *Hub) PlayAlert(tableID string) error {
	if h.Broadcast(Frame{Type: FramePlayAlert, TableID: tableID}) == 0 {
		return ErrPlaybackBlocked
	}
	return nil
}

// Clients returns the number of connected dashboards.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every dashboard.
func (h *Hub) Close() {
	h.mu.Lock()
	for d := range h.clients {
		delete(h.clients, d)
		close(d.send)
	}
	h.mu.Unlock()
	h.rec.SetGauge(metrics.DashboardClients, 0)
}

func (h *Hub) remove(d *dashboard) {
	h.mu.Lock()
	if _, ok := h.clients[d]; ok {
		delete(h.clients, d)
		close(d.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.rec.SetGauge(metrics.DashboardClients, float64(n))
}

func (h *Hub) interact() {
	h.mu.Lock()
	fn := h.onInteract
	h.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// readPump treats any inbound frame as operator activity.
func (d *dashboard) readPump() {
	defer func() {
		d.hub.remove(d)
		d.conn.Close()
	}()

	d.conn.SetReadLimit(maxInboundSize)
	d.conn.SetReadDeadline(time.Now().Add(pongWait))
	d.conn.SetPongHandler(func(string) error {
		d.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := d.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Dashboard websocket error: %v", err)
			}
			return
		}
		d.hub.interact()
	}
}

func (d *dashboard) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		d.conn.Close()
	}()

	for {
		select {
		case message, ok := <-d.send:
			d.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				d.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := d.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			d.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := d.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
