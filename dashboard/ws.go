package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hazyhaar/farmdash/currency"
	"github.com/hazyhaar/farmdash/idgen"
	"github.com/hazyhaar/farmdash/kit"
)

// Message types exchanged over /ws. Every frame is an Envelope.
const (
	MsgToggle        = "toggle"         // client: {filter_id}
	MsgClear         = "clear"          // client: {}
	MsgResource      = "resource"       // client: {index}
	MsgSetCurrency   = "set_currency"   // client: {currency}
	MsgToggled       = "toggled"        // server: ToggleResult, to the sender
	MsgFilterChanged = "filter_changed" // server: filter.Event, to everyone else
	MsgResourceCard  = "resource_card"  // server: CardView
	MsgPreferences   = "preferences"    // server: {currency}
	MsgError         = "error"          // server: {error}
)

// Envelope is one websocket frame.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type wsRequest struct {
	FilterID string `json:"filter_id"`
	Index    int    `json:"index"`
	Currency string `json:"currency"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

var newClientID = idgen.Prefixed("ws_", idgen.NanoID(8))

type client struct {
	conn *websocket.Conn
	send chan []byte
	id   string
}

// Hub tracks the connected dashboards. The filter state is shared, so a
// toggle from one client is announced to the others.
type Hub struct {
	d      *Dashboard
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

func newHub(d *Dashboard, logger *slog.Logger) *Hub {
	return &Hub{d: d, logger: logger, clients: map[*client]struct{}{}}
}

// ServeWS upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("dashboard: websocket upgrade", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 32), id: newClientID()}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("dashboard: websocket connected", "client", c.id)

	go c.writer()
	h.reader(r.Context(), c)
}

func (h *Hub) reader(ctx context.Context, c *client) {
	defer func() {
		c.conn.Close()
		h.remove(c)
		h.logger.Debug("dashboard: websocket disconnected", "client", c.id)
	}()

	ctx = kit.WithRequestID(kit.WithTransport(ctx, "ws"), c.id)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			h.sendJSON(c, MsgError, errorBody("malformed frame"))
			continue
		}
		var req wsRequest
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &req); err != nil {
				h.sendJSON(c, MsgError, errorBody("malformed data"))
				continue
			}
		}
		h.dispatch(ctx, c, env.Type, req)
	}
}

func (h *Hub) dispatch(ctx context.Context, c *client, typ string, req wsRequest) {
	switch typ {
	case MsgToggle:
		if req.FilterID == "" {
			h.sendJSON(c, MsgError, errorBody("filter_id is required"))
			return
		}
		res, err := h.d.Toggle(ctx, req.FilterID)
		if err != nil {
			h.sendJSON(c, MsgError, errorBody(err.Error()))
			return
		}
		h.sendJSON(c, MsgToggled, res)
		h.broadcast(c, MsgFilterChanged, res.Event)

	case MsgClear:
		ev := h.d.ClearFilter(ctx)
		h.broadcast(nil, MsgFilterChanged, ev)

	case MsgResource:
		view, err := h.d.ResourceCard(ctx, req.Index, time.Now())
		if err != nil {
			h.sendJSON(c, MsgError, errorBody(err.Error()))
			return
		}
		h.sendJSON(c, MsgResourceCard, view)

	case MsgSetCurrency:
		cur, err := currency.Parse(req.Currency)
		if err != nil {
			h.sendJSON(c, MsgError, errorBody(err.Error()))
			return
		}
		if err := h.d.SetPreferredCurrency(ctx, cur); err != nil {
			h.sendJSON(c, MsgError, errorBody(err.Error()))
			return
		}
		h.broadcast(nil, MsgPreferences, map[string]currency.Currency{"currency": cur})

	default:
		h.sendJSON(c, MsgError, errorBody("unknown message type "+typ))
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func (c *client) writer() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func encode(typ string, v any) []byte {
	data, _ := json.Marshal(v)
	out, _ := json.Marshal(Envelope{Type: typ, Data: data})
	return out
}

// sendJSON queues a frame for c. A client too slow to drain its queue
// loses the frame.
func (h *Hub) sendJSON(c *client, typ string, v any) {
	out := encode(typ, v)
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- out:
	default:
		h.logger.Warn("dashboard: websocket queue full, dropping frame", "client", c.id, "type", typ)
	}
}

// broadcast sends a frame to every client except skip.
func (h *Hub) broadcast(skip *client, typ string, v any) {
	out := encode(typ, v)
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c == skip {
			continue
		}
		select {
		case c.send <- out:
		default:
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// close disconnects every client; their readers clean up.
func (h *Hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
