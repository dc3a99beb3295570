package websocket

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/clickrace/server/game/presence"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		// TODO: Configure this for production
		return true
	},
}

// HandlerFunc processes one request event. The returned value becomes the
// ack data; a non-nil error becomes the ack error code.
type HandlerFunc func(c *Client, data json.RawMessage) (any, error)

// Hub maintains the set of active connections, their multicast group
// membership, and the event handler table. It implements the broadcast
// interfaces of the game packages.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client         // connID -> client
	groups  map[string]map[string]bool // group -> connID set

	handlers map[string]HandlerFunc

	// Lifecycle hooks, set by the router before Run.
	onConnect    func(user presence.Identity, connID string)
	onDisconnect func(user presence.Identity, connID string)

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	auth Authenticator
	log  *zap.Logger
}

// NewHub creates a connection hub. Connections are rejected until an
// authenticator is set.
func NewHub(auth Authenticator, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		groups:     make(map[string]map[string]bool),
		handlers:   make(map[string]HandlerFunc),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		auth:       auth,
		log:        log,
	}
}

// Handle registers the handler for one request event. Must be called before
// Run.
func (h *Hub) Handle(event string, fn HandlerFunc) {
	h.handlers[event] = fn
}

// OnConnect sets the hook invoked after a connection registers.
func (h *Hub) OnConnect(fn func(user presence.Identity, connID string)) {
	h.onConnect = fn
}

// OnDisconnect sets the hook invoked after a connection unregisters.
func (h *Hub) OnDisconnect(fn func(user presence.Identity, connID string)) {
	h.onDisconnect = fn
}

// Run starts the hub's event loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

// ServeWS authenticates and upgrades a WebSocket request.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Authenticate(r)
	if err != nil {
		h.log.Warn("websocket auth failed", zap.Error(err))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
		id:   uuid.NewString(),
		user: user,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// JoinGroup subscribes a connection to a multicast group.
func (h *Hub) JoinGroup(connID, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; !ok {
		return
	}
	if h.groups[group] == nil {
		h.groups[group] = make(map[string]bool)
	}
	h.groups[group][connID] = true
}

// LeaveGroup removes a connection from a multicast group.
func (h *Hub) LeaveGroup(connID, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromGroupLocked(connID, group)
}

func (h *Hub) removeFromGroupLocked(connID, group string) {
	conns, ok := h.groups[group]
	if !ok {
		return
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(h.groups, group)
	}
}

// ToGroup pushes an event to every connection in a group.
func (h *Hub) ToGroup(group, event string, data any) {
	raw, err := json.Marshal(Push{Event: event, Data: data})
	if err != nil {
		h.log.Error("marshal push failed", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID := range h.groups[group] {
		h.sendLocked(connID, raw)
	}
}

// ToConn pushes an event to a single connection.
func (h *Hub) ToConn(connID, event string, data any) {
	raw, err := json.Marshal(Push{Event: event, Data: data})
	if err != nil {
		h.log.Error("marshal push failed", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	h.sendLocked(connID, raw)
}

// CloseConn force-closes a connection's socket. The read pump notices and
// drives the usual unregister path.
func (h *Hub) CloseConn(connID string) {
	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()
	if ok {
		client.conn.Close()
	}
}

// ConnCount returns the number of registered connections.
func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// sendLocked enqueues raw bytes for one connection. A full send buffer means
// the peer has stopped draining; the message is dropped and the socket closed
// so the read pump can tear the connection down.
func (h *Hub) sendLocked(connID string, raw []byte) {
	client, ok := h.clients[connID]
	if !ok {
		return
	}
	select {
	case client.send <- raw:
	default:
		h.log.Warn("send buffer full, closing connection",
			zap.String("conn_id", connID),
			zap.String("user_id", client.user.ID))
		client.conn.Close()
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Info("client registered",
		zap.String("conn_id", client.id),
		zap.String("user_id", client.user.ID),
		zap.Int("total", total))

	if h.onConnect != nil {
		h.onConnect(client.user, client.id)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.id)
	for group := range h.groups {
		h.removeFromGroupLocked(client.id, group)
	}
	close(client.send)
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Info("client unregistered",
		zap.String("conn_id", client.id),
		zap.String("user_id", client.user.ID),
		zap.Int("total", total))

	if h.onDisconnect != nil {
		h.onDisconnect(client.user, client.id)
	}
}

// dispatch runs the handler for one request and returns the ack.
func (h *Hub) dispatch(c *Client, req *Request) *Response {
	fn, ok := h.handlers[req.Event]
	if !ok {
		return &Response{ID: req.ID, Event: req.Event, Error: "unknownEvent"}
	}

	data, err := fn(c, req.Data)
	if err != nil {
		return &Response{ID: req.ID, Event: req.Event, Error: err.Error()}
	}
	return &Response{ID: req.ID, Event: req.Event, Success: true, Data: data}
}
