package clickrace

import (
	"sync"
	"time"
)

// RoomStatus is the room lifecycle state.
type RoomStatus string

const (
	RoomWaiting RoomStatus = "waiting"
	RoomPlaying RoomStatus = "playing"
)

// Role distinguishes active players from mid-round spectators.
type Role string

const (
	RolePlayer    Role = "player"
	RoleSpectator Role = "spectator"
)

// Multicast group names used with the Broadcaster.
const LobbyGroup = "clickrace:lobby"

// RoomGroup returns the multicast group name for one room.
func RoomGroup(roomID string) string {
	return "clickrace:room:" + roomID
}

// Server-pushed event names.
const (
	EventLobbyUpdate  = "lobby:update"
	EventRoomUpdate   = "room:update"
	EventPlayerReady  = "player:ready"
	EventPlayerClick  = "player:click"
	EventGameStart    = "game:start"
	EventGameEnd      = "game:end"
	EventButtonUpdate = "button:update"
)

// Player is one member of a room's roster.
type Player struct {
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
	UserImage     string `json:"userImage,omitempty"`
	Role          Role   `json:"role"`
	IsReady       bool   `json:"isReady"`
	Wins          int    `json:"wins"`
	CurrentClicks int    `json:"currentClicks"`
	JoinedAt      int64  `json:"joinedAt"`
}

// ButtonPosition is one target rectangle of the button-target variant.
type ButtonPosition struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Round holds the state of one timed play instance.
type Round struct {
	StartedAt int64  `json:"startedAt"`
	EndedAt   int64  `json:"endedAt,omitempty"`
	WinnerID  string `json:"winnerId,omitempty"`
}

// Room is the internal room representation. It is never sent to clients;
// snapshots are derived on demand.
type Room struct {
	ID          string
	Name        string
	HostID      string
	HostName    string
	PlayerCount int
	MaxPlayers  int
	Status      RoomStatus
	CreatedAt   int64

	password string

	mu      sync.Mutex
	players map[string]*Player
	order   []string // userIDs in join order; drives iteration and tie-breaks
	round   *Round

	buttons     []ButtonPosition
	buttonIndex map[string]int // userID -> cursor into buttons

	roundTimer *time.Timer
}

// RoomSnapshot is the public projection of a Room: password reduced to a
// boolean, players as an ordered sequence, with a server timestamp attached.
type RoomSnapshot struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	HostID      string     `json:"hostId"`
	HostName    string     `json:"hostName"`
	PlayerCount int        `json:"playerCount"`
	MaxPlayers  int        `json:"maxPlayers"`
	Status      RoomStatus `json:"status"`
	HasPassword bool       `json:"hasPassword"`
	CreatedAt   int64      `json:"createdAt"`
	Timestamp   int64      `json:"timestamp"`
	Players     []Player   `json:"players"`
}

// ReadyChange is the lightweight ready-toggle event payload.
type ReadyChange struct {
	PlayerID string `json:"playerId"`
	IsReady  bool   `json:"isReady"`
}

// ClickCount is the lightweight click-tally event payload.
type ClickCount struct {
	PlayerID string `json:"playerId"`
	Clicks   int    `json:"clicks"`
}

// GameEnd carries the final room snapshot and the winner with the click count
// captured before the post-round reset zeroed it.
type GameEnd struct {
	Room   *RoomSnapshot `json:"room"`
	Winner Player        `json:"winner"`
}

// Broadcaster is the room coordinator's outbound side: multicast group
// membership and event fan-out. The websocket hub implements it.
type Broadcaster interface {
	JoinGroup(connID, group string)
	LeaveGroup(connID, group string)
	ToGroup(group, event string, data any)
	ToConn(connID, event string, data any)
}

// snapshotLocked derives the public snapshot. Caller holds r.mu.
func (r *Room) snapshotLocked() *RoomSnapshot {
	players := make([]Player, 0, len(r.order))
	for _, userID := range r.order {
		if p, ok := r.players[userID]; ok {
			players = append(players, *p)
		}
	}
	return &RoomSnapshot{
		ID:          r.ID,
		Name:        r.Name,
		HostID:      r.HostID,
		HostName:    r.HostName,
		PlayerCount: r.PlayerCount,
		MaxPlayers:  r.MaxPlayers,
		Status:      r.Status,
		HasPassword: r.password != "",
		CreatedAt:   r.CreatedAt,
		Timestamp:   time.Now().UnixMilli(),
		Players:     players,
	}
}
