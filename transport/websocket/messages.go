package websocket

import "encoding/json"

// Request is the client-to-server envelope. The id is chosen by the client
// and echoed back on the matching ack.
type Request struct {
	ID    int64           `json:"id"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Response is the per-request ack. Error carries the stable error code when
// Success is false.
type Response struct {
	ID      int64  `json:"id"`
	Event   string `json:"event"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Push is a server-initiated event with no request id.
type Push struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Request payloads. Validation tags are enforced by the router before the
// coordinator sees the values.

type CreateRoomPayload struct {
	Name       string `json:"name" validate:"required"`
	MaxPlayers int    `json:"maxPlayers" validate:"required,min=2,max=32"`
	Password   string `json:"password" validate:"omitempty,max=64"`
}

type RoomRefPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

type JoinRoomPayload struct {
	RoomID   string `json:"roomId" validate:"required"`
	Password string `json:"password"`
}

type ReadyPayload struct {
	RoomID  string `json:"roomId" validate:"required"`
	IsReady bool   `json:"isReady"`
}

type PlayerRefPayload struct {
	UserID string `json:"userId" validate:"required"`
}

// CreatedRoom is the room:create ack payload.
type CreatedRoom struct {
	RoomID string `json:"roomId"`
}
