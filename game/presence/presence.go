package presence

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultGraceWindow is how long a disconnected user is kept around before
// their presence record is forgotten.
const DefaultGraceWindow = 10 * time.Second

// EventPlayerState is the server-pushed event carrying a presence snapshot.
const EventPlayerState = "player:state"

// Status describes whether a tracked user is currently reachable.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
)

// Identity is the authenticated user identity supplied by the auth boundary.
// The tracker never mutates it.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Record is the authoritative presence state for one user.
type Record struct {
	Identity
	ConnID       string
	Status       Status
	LastActivity time.Time

	expiry *time.Timer
}

// Snapshot is the outward projection of a Record sent to clients.
type Snapshot struct {
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	UserImage string `json:"userImage,omitempty"`
	Status    Status `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// Stats summarizes the tracker for the observability surface.
type Stats struct {
	Total        int `json:"total"`
	Connected    int `json:"connected"`
	Reconnecting int `json:"reconnecting"`
}

// ConnCloser closes a transport connection by its connection id. It is how
// the tracker evicts stale duplicate sessions and enforces forced disconnects.
type ConnCloser interface {
	CloseConn(connID string)
}

// Notifier delivers a server-pushed event to a single connection.
type Notifier interface {
	ToConn(connID, event string, data any)
}

// Tracker is the process-wide presence coordinator.
type Tracker struct {
	mu      sync.Mutex
	players map[string]*Record // userID -> record
	conns   map[string]string  // connID -> userID

	grace  time.Duration
	closer ConnCloser
	notify Notifier
	log    *zap.Logger
}

// NewTracker creates a presence tracker. A non-positive grace falls back to
// DefaultGraceWindow.
func NewTracker(grace time.Duration, closer ConnCloser, notify Notifier, log *zap.Logger) *Tracker {
	if grace <= 0 {
		grace = DefaultGraceWindow
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{
		players: make(map[string]*Record),
		conns:   make(map[string]string),
		grace:   grace,
		closer:  closer,
		notify:  notify,
		log:     log,
	}
}

// HandleConnect registers a new connection for the given user. A user already
// in the grace window is treated as a reconnect; a user already connected
// under a different connection id has the old connection force-closed first.
func (t *Tracker) HandleConnect(user Identity, connID string) {
	t.mu.Lock()

	if rec, ok := t.players[user.ID]; ok && rec.Status == StatusReconnecting {
		t.reconnectLocked(rec, user, connID)
		snap := rec.snapshot()
		t.mu.Unlock()

		t.log.Debug("player reconnected", zap.String("user_id", user.ID), zap.String("user_name", user.Name))
		t.notify.ToConn(connID, EventPlayerState, snap)
		return
	}

	var evict string
	if rec, ok := t.players[user.ID]; ok && rec.ConnID != connID {
		// Same user opened a second session; the old one loses.
		evict = rec.ConnID
		delete(t.conns, rec.ConnID)
	}

	rec := &Record{
		Identity:     user,
		ConnID:       connID,
		Status:       StatusConnected,
		LastActivity: time.Now(),
	}
	t.players[user.ID] = rec
	t.conns[connID] = user.ID
	snap := rec.snapshot()
	t.mu.Unlock()

	if evict != "" {
		t.log.Debug("user already connected, closing old connection",
			zap.String("user_id", user.ID), zap.String("old_conn_id", evict))
		t.closer.CloseConn(evict)
	}

	t.log.Debug("player connected", zap.String("user_id", user.ID), zap.String("conn_id", connID))
	t.notify.ToConn(connID, EventPlayerState, snap)
}

// reconnectLocked moves a reconnecting record back to connected under the new
// connection id. Caller holds t.mu.
func (t *Tracker) reconnectLocked(rec *Record, user Identity, connID string) {
	if rec.expiry != nil {
		rec.expiry.Stop()
		rec.expiry = nil
	}
	delete(t.conns, rec.ConnID)
	t.conns[connID] = user.ID

	rec.Identity = user
	rec.ConnID = connID
	rec.Status = StatusConnected
	rec.LastActivity = time.Now()
}

// HandleDisconnect marks the user behind connID as reconnecting and arms the
// grace-window expiry. Unknown connection ids are ignored; a late disconnect
// from an already-superseded connection only scrubs the reverse index.
func (t *Tracker) HandleDisconnect(connID string) {
	t.mu.Lock()

	userID, ok := t.conns[connID]
	if !ok {
		t.mu.Unlock()
		return
	}

	rec, ok := t.players[userID]
	if !ok || rec.ConnID != connID {
		delete(t.conns, connID)
		t.mu.Unlock()
		return
	}

	rec.Status = StatusReconnecting
	rec.LastActivity = time.Now()
	if rec.expiry != nil {
		rec.expiry.Stop()
	}
	rec.expiry = time.AfterFunc(t.grace, func() { t.expire(userID) })
	snap := rec.snapshot()
	t.mu.Unlock()

	t.log.Debug("player disconnected, waiting for reconnection",
		zap.String("user_id", userID), zap.Duration("grace", t.grace))

	// The socket is already gone; this is a bookkeeping no-op in practice but
	// keeps the update symmetric with the other transitions.
	t.notify.ToConn(connID, EventPlayerState, snap)
}

// expire is the grace timer callback. It is the only path that permanently
// forgets a user, short of ForceDisconnect.
func (t *Tracker) expire(userID string) {
	t.mu.Lock()
	rec, ok := t.players[userID]
	if !ok || rec.Status != StatusReconnecting {
		// Reconnect won the race against a timer that had already fired.
		t.mu.Unlock()
		return
	}
	delete(t.conns, rec.ConnID)
	delete(t.players, userID)
	t.mu.Unlock()

	t.log.Debug("player fully disconnected", zap.String("user_id", userID), zap.String("conn_id", rec.ConnID))
}

// ForceDisconnect closes the user's live connection, if any, and deletes their
// record immediately, bypassing the grace window.
func (t *Tracker) ForceDisconnect(userID string) {
	t.mu.Lock()
	rec, ok := t.players[userID]
	if !ok {
		t.mu.Unlock()
		return
	}
	if rec.expiry != nil {
		rec.expiry.Stop()
		rec.expiry = nil
	}
	delete(t.conns, rec.ConnID)
	delete(t.players, userID)
	connID := rec.ConnID
	status := rec.Status
	t.mu.Unlock()

	t.log.Debug("force disconnecting player", zap.String("user_id", userID))
	if status == StatusConnected {
		t.closer.CloseConn(connID)
	}
}

// Get returns the presence snapshot of a user, if tracked.
func (t *Tracker) Get(userID string) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.players[userID]
	if !ok {
		return Snapshot{}, false
	}
	return rec.snapshot(), true
}

// UserIDByConn resolves a connection id to the user currently behind it.
func (t *Tracker) UserIDByConn(connID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	userID, ok := t.conns[connID]
	return userID, ok
}

// Stats reports the current tracker counters.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Stats{Total: len(t.players)}
	for _, rec := range t.players {
		switch rec.Status {
		case StatusConnected:
			s.Connected++
		case StatusReconnecting:
			s.Reconnecting++
		}
	}
	return s
}

func (r *Record) snapshot() Snapshot {
	return Snapshot{
		UserID:    r.ID,
		UserName:  r.Name,
		UserImage: r.Image,
		Status:    r.Status,
		Timestamp: time.Now().UnixMilli(),
	}
}
