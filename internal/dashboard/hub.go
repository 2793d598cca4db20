package dashboard

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub pushes dashboard views to websocket subscribers on a fixed
// interval. Slow consumers are never waited on: each subscriber
// channel has capacity 1 and stale updates are dropped, so a reader
// always gets the most recent view next.
type Hub struct {
	summarizer *Summarizer
	interval   time.Duration

	mu   sync.Mutex
	subs map[chan []byte]struct{}

	stop    chan struct{}
	stopped chan struct{}
}

// NewHub starts the broadcast ticker. Close must be called on shutdown.
func NewHub(s *Summarizer, interval time.Duration) *Hub {
	h := &Hub{
		summarizer: s,
		interval:   interval,
		subs:       map[chan []byte]struct{}{},
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.stopped)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			h.broadcast(h.current())
		}
	}
}

func (h *Hub) current() []byte {
	data, err := json.Marshal(h.summarizer.Summarize())
	if err != nil {
		return nil
	}
	return data
}

func (h *Hub) subscribe() chan []byte {
	ch := make(chan []byte, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

func (h *Hub) broadcast(data []byte) {
	if data == nil {
		return
	}
	h.mu.Lock()
	for ch := range h.subs {
		select {
		case ch <- data:
		default:
		}
	}
	h.mu.Unlock()
}

// Close stops the ticker and disconnects pending streams.
func (h *Hub) Close() {
	close(h.stop)
	<-h.stopped
}

// ServeHTTP upgrades the connection and streams views until the client
// disconnects or the hub shuts down.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("dashboard stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	if data := h.current(); data != nil {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}

	ch := h.subscribe()
	defer h.unsubscribe(ch)
	slog.Info("dashboard stream client connected", "remote", r.RemoteAddr)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			slog.Info("dashboard stream client disconnected", "remote", r.RemoteAddr)
			return
		case <-h.stop:
			return
		case msg := <-ch:
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}
