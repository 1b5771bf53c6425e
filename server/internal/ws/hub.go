package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/api"
	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/store"
)

// eventScores is the Message.Event value for score pushes.
const eventScores = "scores"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 4096,
	// The map page is served by this process; cross-origin viewers are allowed.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Message is the JSON envelope pushed to subscribers.
type Message struct {
	Event string             `json:"event"`
	Data  api.ScoresResponse `json:"data"`
}

// Hub pushes route scores to WebSocket subscribers on a fixed interval and
// whenever Notify is called.
type Hub struct {
	ratings  *store.Ratings
	interval time.Duration
	kick     chan struct{}

	mu   sync.RWMutex
	subs map[*session]struct{}
}

// New creates a Hub reading from rs.
func New(rs *store.Ratings, interval time.Duration) *Hub {
	return &Hub{
		ratings:  rs,
		interval: interval,
		kick:     make(chan struct{}, 1),
		subs:     make(map[*session]struct{}),
	}
}

// Run pushes scores until ctx is cancelled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	tick := time.NewTicker(h.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			h.disconnectAll()
			return
		case <-tick.C:
		case <-h.kick:
		}
		h.push()
	}
}

// Notify requests a push ahead of the next tick. Pending requests coalesce.
func (h *Hub) Notify() {
	select {
	case h.kick <- struct{}{}:
	default:
	}
}

// ServeHTTP upgrades the request and streams scores until the client goes
// away. The optional "route" query parameter is a comma-separated list of
// route IDs to receive; without it every route is sent.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	filter := parseFilter(r.URL.Query().Get("route"))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s := newSession(conn, filter)
	s.offer(h.render(h.snapshot(), s.filter))
	h.add(s)
	defer h.remove(s)

	go s.writeLoop()
	s.readLoop()
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) add(s *session) {
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.out)
	}
}

func (h *Hub) disconnectAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		delete(h.subs, s)
		close(s.out)
	}
}

func (h *Hub) snapshot() api.ScoresResponse { return api.BuildScores(h.ratings) }

func (h *Hub) push() {
	scores := h.snapshot()
	all := h.render(scores, nil)

	// Sends happen under the read lock so no session channel is closed
	// mid-offer.
	var slow []*session
	h.mu.RLock()
	for s := range h.subs {
		data := all
		if s.filter != nil {
			data = h.render(scores, s.filter)
		}
		if !s.offer(data) {
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		slog.Debug("ws: subscriber too slow, disconnecting")
		h.remove(s)
	}
}

// render encodes scores, keeping only routes in filter when it is non-nil.
// It returns nil if encoding fails.
func (h *Hub) render(scores api.ScoresResponse, filter map[string]bool) []byte {
	if filter != nil {
		kept := make([]api.RouteScore, 0, len(filter))
		for _, rs := range scores.Routes {
			if filter[rs.RouteID] {
				kept = append(kept, rs)
			}
		}
		scores.Routes = kept
	}
	data, err := json.Marshal(Message{Event: eventScores, Data: scores})
	if err != nil {
		slog.Error("ws: encode scores", "err", err)
		return nil
	}
	return data
}

func parseFilter(q string) map[string]bool {
	if strings.TrimSpace(q) == "" {
		return nil
	}
	f := make(map[string]bool)
	for _, id := range strings.Split(q, ",") {
		if id = strings.TrimSpace(id); id != "" {
			f[id] = true
		}
	}
	return f
}
