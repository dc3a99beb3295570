package clickrace

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clickrace/server/game/config"
	"github.com/clickrace/server/game/presence"
)

// Coordinator owns the room table and runs the room/round state machine. It
// is a process-wide singleton constructed by the entry point and shared with
// the transport layer by reference.
type Coordinator struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	cfg *config.Config
	bus Broadcaster
	log *zap.Logger
}

// NewCoordinator creates a room coordinator.
func NewCoordinator(cfg *config.Config, bus Broadcaster, log *zap.Logger) *Coordinator {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		rooms: make(map[string]*Room),
		cfg:   cfg,
		bus:   bus,
		log:   log,
	}
}

// CreateRoom allocates a new room hosted by user. The creator is not enrolled
// as a player; joining is a separate operation, for the host too.
func (c *Coordinator) CreateRoom(user presence.Identity, name string, maxPlayers int, password string) (string, error) {
	name = strings.TrimSpace(name)

	c.mu.Lock()
	defer c.mu.Unlock()

	if name == "" {
		return "", ErrNameRequired
	}
	if utf8.RuneCountInString(name) > c.cfg.MaxRoomNameLength {
		return "", ErrNameTooLong
	}
	// HostID and Name only ever change under the table write lock, so these
	// scans need no per-room locks.
	for _, r := range c.rooms {
		if r.HostID == user.ID {
			return "", ErrAlreadyHosting
		}
	}
	for _, r := range c.rooms {
		if r.Name == name {
			return "", ErrAlreadyExists
		}
	}

	room := &Room{
		ID:         uuid.NewString(),
		Name:       name,
		HostID:     user.ID,
		HostName:   user.Name,
		MaxPlayers: maxPlayers,
		Status:     RoomWaiting,
		CreatedAt:  time.Now().UnixMilli(),
		password:   password,
		players:    make(map[string]*Player),
	}
	c.rooms[room.ID] = room

	c.log.Info("room created",
		zap.String("room_id", room.ID),
		zap.String("room_name", name),
		zap.String("host_id", user.ID))

	c.broadcastLobbyLocked()
	return room.ID, nil
}

// GetRoom returns the public snapshot of a room.
func (c *Coordinator) GetRoom(roomID string) (*RoomSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	room, ok := c.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	return room.snapshotLocked(), nil
}

// JoinRoom adds the caller to a room and subscribes their connection to the
// room's multicast group. Joining a room mid-round makes them a spectator.
// The host bypasses the password check.
func (c *Coordinator) JoinRoom(user presence.Identity, connID, roomID, password string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	room, ok := c.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}

	room.mu.Lock()
	if room.password != "" && room.password != password && room.HostID != user.ID {
		room.mu.Unlock()
		return ErrInvalidPassword
	}
	if _, ok := room.players[user.ID]; ok {
		room.mu.Unlock()
		return ErrAlreadyInRoom
	}
	if room.PlayerCount >= room.MaxPlayers {
		room.mu.Unlock()
		return ErrRoomFull
	}

	role := RolePlayer
	if room.Status == RoomPlaying {
		role = RoleSpectator
	}
	room.players[user.ID] = &Player{
		UserID:    user.ID,
		UserName:  user.Name,
		UserImage: user.Image,
		Role:      role,
		JoinedAt:  time.Now().UnixMilli(),
	}
	room.order = append(room.order, user.ID)
	room.PlayerCount++

	c.bus.JoinGroup(connID, RoomGroup(roomID))
	snap := room.snapshotLocked()
	c.bus.ToGroup(RoomGroup(roomID), EventRoomUpdate, snap)
	room.mu.Unlock()

	c.broadcastLobbyLocked()
	return nil
}

// LeaveRoom removes the caller from a room. Departures may end a running
// round early, reassign the host, or delete the room entirely.
func (c *Coordinator) LeaveRoom(userID, connID, roomID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}

	removed, deleteRoom := c.leaveLocked(room, userID, connID)
	if !removed {
		return ErrNotInRoom
	}
	if deleteRoom {
		delete(c.rooms, roomID)
		c.log.Info("room deleted", zap.String("room_id", roomID))
	}

	c.broadcastLobbyLocked()
	return nil
}

// LeaveAll removes the user from every room containing them. The transport's
// disconnect handler calls this: socket disconnection, not presence expiry,
// drives room departure.
func (c *Coordinator) LeaveAll(userID, connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := false
	for roomID, room := range c.rooms {
		removed, deleteRoom := c.leaveLocked(room, userID, connID)
		if !removed {
			continue
		}
		changed = true
		if deleteRoom {
			delete(c.rooms, roomID)
			c.log.Info("room deleted", zap.String("room_id", roomID))
		}
	}

	if changed {
		c.broadcastLobbyLocked()
	}
}

// leaveLocked removes userID from room, applying the departure special cases
// in order: early round end, host reassignment or room deletion, then the
// room snapshot broadcast. Caller holds c.mu (write); room deletion from the
// table is left to the caller.
func (c *Coordinator) leaveLocked(room *Room, userID, connID string) (removed, deleteRoom bool) {
	room.mu.Lock()
	defer room.mu.Unlock()

	if _, ok := room.players[userID]; !ok {
		return false, false
	}

	wasHost := room.HostID == userID
	delete(room.players, userID)
	for i, id := range room.order {
		if id == userID {
			room.order = append(room.order[:i], room.order[i+1:]...)
			break
		}
	}
	room.PlayerCount--
	delete(room.buttonIndex, userID)
	c.bus.LeaveGroup(connID, RoomGroup(room.ID))

	// A race with a single remaining member cannot continue.
	if room.Status == RoomPlaying && room.PlayerCount == 1 {
		c.endRoundLocked(room)
	}

	if wasHost {
		if room.PlayerCount == 0 {
			return true, true
		}
		next := room.players[room.order[0]]
		room.HostID = next.UserID
		room.HostName = next.UserName
		c.log.Debug("host reassigned",
			zap.String("room_id", room.ID),
			zap.String("host_id", next.UserID))
	}

	c.bus.ToGroup(RoomGroup(room.ID), EventRoomUpdate, room.snapshotLocked())
	return true, false
}

// SetReady flips the caller's ready flag while the room is waiting.
func (c *Coordinator) SetReady(userID, roomID string, isReady bool) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	room, ok := c.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	player, ok := room.players[userID]
	if !ok {
		return ErrNotInRoom
	}
	if room.Status != RoomWaiting {
		return ErrGameInProgress
	}
	if player.Role == RoleSpectator {
		return ErrSpectatorCannotReady
	}

	player.IsReady = isReady
	c.bus.ToGroup(RoomGroup(roomID), EventRoomUpdate, room.snapshotLocked())
	c.bus.ToGroup(RoomGroup(roomID), EventPlayerReady, ReadyChange{PlayerID: userID, IsReady: isReady})
	return nil
}

// StartGame begins a round: host-only, two or more members, every player-role
// member ready. It arms the round timer and deals the button sequence.
func (c *Coordinator) StartGame(userID, roomID string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	room, ok := c.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}

	room.mu.Lock()

	if room.HostID != userID {
		room.mu.Unlock()
		return ErrNotHost
	}
	if room.Status != RoomWaiting {
		room.mu.Unlock()
		return ErrGameAlreadyStarted
	}
	if room.PlayerCount < 2 {
		room.mu.Unlock()
		return ErrNotEnoughPlayers
	}
	for _, p := range room.players {
		if p.Role == RolePlayer && !p.IsReady {
			room.mu.Unlock()
			return ErrPlayersNotReady
		}
	}

	room.Status = RoomPlaying
	room.round = &Round{StartedAt: time.Now().UnixMilli()}
	room.buttons = generateButtonSequence(c.cfg)
	room.buttonIndex = make(map[string]int, len(room.players))
	for id, p := range room.players {
		p.CurrentClicks = 0
		room.buttonIndex[id] = 0
	}

	snap := room.snapshotLocked()
	c.bus.ToGroup(RoomGroup(roomID), EventRoomUpdate, snap)
	c.bus.ToGroup(RoomGroup(roomID), EventGameStart, snap)
	c.bus.ToGroup(RoomGroup(roomID), EventButtonUpdate, room.buttons[0])

	room.roundTimer = time.AfterFunc(c.cfg.RoundDuration(), func() {
		c.EndRound(roomID)
	})
	players := room.PlayerCount
	room.mu.Unlock()

	c.broadcastLobbyLocked()
	c.log.Info("round started",
		zap.String("room_id", roomID),
		zap.Int("players", players),
		zap.Duration("duration", c.cfg.RoundDuration()))
	return nil
}

// RecordClick tallies one click for the caller, advances their button cursor,
// and returns the next target. The click count goes to the whole room; the
// next button goes to the caller alone.
func (c *Coordinator) RecordClick(userID, connID, roomID string) (*ButtonPosition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	room, ok := c.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	player, ok := room.players[userID]
	if !ok {
		return nil, ErrNotInRoom
	}
	if room.Status != RoomPlaying {
		return nil, ErrGameNotStarted
	}
	if player.Role == RoleSpectator {
		return nil, ErrSpectatorCannotClick
	}
	if len(room.buttons) == 0 || room.buttonIndex == nil {
		return nil, ErrGameDataMissing
	}

	player.CurrentClicks++

	idx := room.buttonIndex[userID] + 1
	if idx >= len(room.buttons) {
		idx = 0
	}
	room.buttonIndex[userID] = idx
	next := room.buttons[idx]

	// Clicks arrive at high frequency; the room gets the lightweight tally,
	// not a full snapshot.
	c.bus.ToGroup(RoomGroup(roomID), EventPlayerClick, ClickCount{PlayerID: userID, Clicks: player.CurrentClicks})
	c.bus.ToConn(connID, EventButtonUpdate, next)
	return &next, nil
}

// EndRound finishes a running round. It is invoked by the round timer and by
// the early-exit path in LeaveRoom, and is idempotent: a late timer firing
// after an early end finds the room waiting and does nothing.
func (c *Coordinator) EndRound(roomID string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	room, ok := c.rooms[roomID]
	if !ok {
		return
	}

	room.mu.Lock()
	ended := room.Status == RoomPlaying
	c.endRoundLocked(room)
	room.mu.Unlock()

	if ended {
		c.broadcastLobbyLocked()
	}
}

// endRoundLocked applies the round-end transition. Caller holds room.mu.
func (c *Coordinator) endRoundLocked(room *Room) {
	if room.Status != RoomPlaying {
		return
	}
	if room.roundTimer != nil {
		room.roundTimer.Stop()
		room.roundTimer = nil
	}

	// Winner: player-role member with strictly the most clicks; ties go to
	// whoever joined first (order is insertion-ordered).
	var winner *Player
	maxClicks := -1
	for _, id := range room.order {
		p := room.players[id]
		if p.Role == RolePlayer && p.CurrentClicks > maxClicks {
			maxClicks = p.CurrentClicks
			winner = p
		}
	}

	winnerClicks := 0
	if winner != nil {
		winnerClicks = winner.CurrentClicks
		winner.Wins++
		if room.round != nil {
			room.round.WinnerID = winner.UserID
		}
	}
	if room.round != nil {
		room.round.EndedAt = time.Now().UnixMilli()
	}

	room.Status = RoomWaiting
	for _, p := range room.players {
		p.Role = RolePlayer // spectators become eligible next round
		p.IsReady = false
		p.CurrentClicks = 0
	}

	snap := room.snapshotLocked()
	c.bus.ToGroup(RoomGroup(room.ID), EventRoomUpdate, snap)

	if winner != nil {
		payload := *winner
		payload.CurrentClicks = winnerClicks
		c.bus.ToGroup(RoomGroup(room.ID), EventGameEnd, GameEnd{Room: snap, Winner: payload})
		c.log.Info("round ended",
			zap.String("room_id", room.ID),
			zap.String("winner_id", winner.UserID),
			zap.Int("clicks", winnerClicks))
	} else {
		c.log.Info("round ended with no winner", zap.String("room_id", room.ID))
	}
}

// SendLobby pushes the current lobby snapshot to a single connection, used
// when a client first joins the lobby group.
func (c *Coordinator) SendLobby(connID string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.bus.ToConn(connID, EventLobbyUpdate, c.lobbySnapshotLocked())
}

// ListRooms returns the lobby snapshot for the observability surface.
func (c *Coordinator) ListRooms() []*RoomSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lobbySnapshotLocked()
}

// RoomCount returns the number of live rooms.
func (c *Coordinator) RoomCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rooms)
}

// broadcastLobbyLocked recomputes the full lobby listing and fans it out to
// all lobby watchers. Caller holds c.mu. Recomputing from scratch on every
// count-affecting change trades a scan for correctness.
func (c *Coordinator) broadcastLobbyLocked() {
	c.bus.ToGroup(LobbyGroup, EventLobbyUpdate, c.lobbySnapshotLocked())
}

// lobbySnapshotLocked builds snapshots of all rooms, oldest first. Caller
// holds c.mu; no room lock may be held.
func (c *Coordinator) lobbySnapshotLocked() []*RoomSnapshot {
	snaps := make([]*RoomSnapshot, 0, len(c.rooms))
	for _, room := range c.rooms {
		room.mu.Lock()
		snaps = append(snaps, room.snapshotLocked())
		room.mu.Unlock()
	}
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].CreatedAt != snaps[j].CreatedAt {
			return snaps[i].CreatedAt < snaps[j].CreatedAt
		}
		return snaps[i].ID < snaps[j].ID
	})
	return snaps
}
