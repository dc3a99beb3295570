package websocket

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/clickrace/server/game/clickrace"
	"github.com/clickrace/server/game/presence"
)

var (
	errInvalidPayload = errors.New("invalidPayload")
	errNotAuthorized  = errors.New("notAuthorized")
	errUserNotFound   = errors.New("userNotFound")
)

// Router binds the game coordinators to the hub's event table.
type Router struct {
	rooms    *clickrace.Coordinator
	tracker  *presence.Tracker
	validate *validator.Validate
	log      *zap.Logger
}

// NewRouter creates a router over the given coordinators.
func NewRouter(rooms *clickrace.Coordinator, tracker *presence.Tracker, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		rooms:    rooms,
		tracker:  tracker,
		validate: validator.New(),
		log:      log,
	}
}

// Bind registers every handled event and the lifecycle hooks on the hub.
func (rt *Router) Bind(h *Hub) {
	h.OnConnect(func(user presence.Identity, connID string) {
		rt.tracker.HandleConnect(user, connID)
	})
	h.OnDisconnect(func(user presence.Identity, connID string) {
		// Socket loss drives room departure immediately; only the presence
		// record gets the reconnect grace.
		rt.rooms.LeaveAll(user.ID, connID)
		rt.tracker.HandleDisconnect(connID)
	})

	h.Handle("lobby:join", func(c *Client, _ json.RawMessage) (any, error) {
		h.JoinGroup(c.ID(), clickrace.LobbyGroup)
		rt.rooms.SendLobby(c.ID())
		return nil, nil
	})

	h.Handle("lobby:leave", func(c *Client, _ json.RawMessage) (any, error) {
		h.LeaveGroup(c.ID(), clickrace.LobbyGroup)
		return nil, nil
	})

	h.Handle("room:create", func(c *Client, data json.RawMessage) (any, error) {
		var p CreateRoomPayload
		if err := rt.decode(data, &p); err != nil {
			return nil, err
		}
		roomID, err := rt.rooms.CreateRoom(c.User(), p.Name, p.MaxPlayers, p.Password)
		if err != nil {
			return nil, err
		}
		return CreatedRoom{RoomID: roomID}, nil
	})

	h.Handle("room:get", func(c *Client, data json.RawMessage) (any, error) {
		var p RoomRefPayload
		if err := rt.decode(data, &p); err != nil {
			return nil, err
		}
		return rt.rooms.GetRoom(p.RoomID)
	})

	h.Handle("room:join", func(c *Client, data json.RawMessage) (any, error) {
		var p JoinRoomPayload
		if err := rt.decode(data, &p); err != nil {
			return nil, err
		}
		if err := rt.rooms.JoinRoom(c.User(), c.ID(), p.RoomID, p.Password); err != nil {
			return nil, err
		}
		return rt.rooms.GetRoom(p.RoomID)
	})

	h.Handle("room:leave", func(c *Client, data json.RawMessage) (any, error) {
		var p RoomRefPayload
		if err := rt.decode(data, &p); err != nil {
			return nil, err
		}
		return nil, rt.rooms.LeaveRoom(c.User().ID, c.ID(), p.RoomID)
	})

	h.Handle("player:ready", func(c *Client, data json.RawMessage) (any, error) {
		var p ReadyPayload
		if err := rt.decode(data, &p); err != nil {
			return nil, err
		}
		return nil, rt.rooms.SetReady(c.User().ID, p.RoomID, p.IsReady)
	})

	h.Handle("game:start", func(c *Client, data json.RawMessage) (any, error) {
		var p RoomRefPayload
		if err := rt.decode(data, &p); err != nil {
			return nil, err
		}
		return nil, rt.rooms.StartGame(c.User().ID, p.RoomID)
	})

	h.Handle("player:click", func(c *Client, data json.RawMessage) (any, error) {
		var p RoomRefPayload
		if err := rt.decode(data, &p); err != nil {
			return nil, err
		}
		return rt.rooms.RecordClick(c.User().ID, c.ID(), p.RoomID)
	})

	h.Handle("player:state", func(c *Client, data json.RawMessage) (any, error) {
		userID := c.User().ID
		if len(data) > 0 {
			var p PlayerRefPayload
			if err := json.Unmarshal(data, &p); err != nil {
				return nil, errInvalidPayload
			}
			if p.UserID != "" {
				userID = p.UserID
			}
		}
		snap, ok := rt.tracker.Get(userID)
		if !ok {
			return nil, errUserNotFound
		}
		return snap, nil
	})

	h.Handle("player:forceDisconnect", func(c *Client, data json.RawMessage) (any, error) {
		var p PlayerRefPayload
		if err := rt.decode(data, &p); err != nil {
			return nil, err
		}
		// A user may only evict their own lingering session.
		if p.UserID != c.User().ID {
			return nil, errNotAuthorized
		}
		rt.tracker.ForceDisconnect(p.UserID)
		return nil, nil
	})
}

// decode unmarshals and validates a request payload. Both failure modes map
// to the same client-facing code; the detail goes to the log.
func (rt *Router) decode(data json.RawMessage, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		rt.log.Debug("payload decode failed", zap.Error(err))
		return errInvalidPayload
	}
	if err := rt.validate.Struct(v); err != nil {
		rt.log.Debug("payload validation failed", zap.Error(err))
		return errInvalidPayload
	}
	return nil
}
