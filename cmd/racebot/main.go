// Command racebot is a scriptable game client for load testing and demos. It
// connects to the server's WebSocket endpoint, hosts or joins a room, readies
// up, and clicks at a fixed rate for the duration of every round.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var (
	serverURL = flag.String("server", "ws://localhost:8080/ws", "WebSocket endpoint")
	userID    = flag.String("user", "racebot", "User id to connect as")
	userName  = flag.String("name", "", "Display name (defaults to user id)")
	token     = flag.String("token", "", "JWT to authenticate with (header auth is used when empty)")
	roomName  = flag.String("room", "", "Create and host a room with this name")
	roomID    = flag.String("join", "", "Join an existing room by id")
	password  = flag.String("password", "", "Room password")
	clickRate = flag.Int("rate", 8, "Clicks per second during a round")
)

type request struct {
	ID    int64       `json:"id"`
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type message struct {
	ID      int64           `json:"id"`
	Event   string          `json:"event"`
	Success *bool           `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type bot struct {
	conn   *websocket.Conn
	nextID int64

	acks chan message

	roomID  string
	playing atomic.Bool
}

func main() {
	flag.Parse()

	if *roomName == "" && *roomID == "" {
		log.Fatal("either -room (host) or -join (guest) is required")
	}

	b, err := connect()
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer b.conn.Close()

	go b.readLoop()

	if err := b.run(); err != nil {
		log.Fatalf("run: %v", err)
	}

	// Click whenever a round is running, until interrupted.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	ticker := time.NewTicker(time.Second / time.Duration(*clickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if b.playing.Load() {
				b.send("player:click", map[string]string{"roomId": b.roomID})
			}
		case <-stop:
			log.Println("interrupted, leaving room")
			b.call("room:leave", map[string]string{"roomId": b.roomID})
			return
		}
	}
}

func connect() (*bot, error) {
	url := *serverURL
	header := http.Header{}
	if *token != "" {
		url += "?token=" + *token
	} else {
		name := *userName
		if name == "" {
			name = *userID
		}
		header.Set("X-User-ID", *userID)
		header.Set("X-User-Name", name)
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		return nil, err
	}

	return &bot{conn: conn, acks: make(chan message, 16)}, nil
}

// run joins the lobby and gets the bot seated and ready in a room.
func (b *bot) run() error {
	if _, err := b.call("lobby:join", nil); err != nil {
		return err
	}

	b.roomID = *roomID
	if *roomName != "" {
		ack, err := b.call("room:create", map[string]interface{}{
			"name":       *roomName,
			"maxPlayers": 8,
			"password":   *password,
		})
		if err != nil {
			return err
		}
		var created struct {
			RoomID string `json:"roomId"`
		}
		if err := json.Unmarshal(ack.Data, &created); err != nil {
			return err
		}
		b.roomID = created.RoomID
		log.Printf("hosting room %s (%q)", b.roomID, *roomName)
	}

	if _, err := b.call("room:join", map[string]string{
		"roomId":   b.roomID,
		"password": *password,
	}); err != nil {
		return err
	}

	if _, err := b.call("player:ready", map[string]interface{}{
		"roomId":  b.roomID,
		"isReady": true,
	}); err != nil {
		return err
	}

	log.Printf("ready in room %s, waiting for rounds", b.roomID)
	return nil
}

// readLoop splits the inbound stream: acks go to the call channel, pushes
// drive the round state.
func (b *bot) readLoop() {
	for {
		var msg message
		if err := b.conn.ReadJSON(&msg); err != nil {
			log.Fatalf("read: %v", err)
		}

		if msg.Success != nil {
			select {
			case b.acks <- msg:
			default:
			}
			continue
		}

		switch msg.Event {
		case "game:start":
			log.Println("round started, clicking")
			b.playing.Store(true)
		case "game:end":
			b.playing.Store(false)
			var end struct {
				Winner struct {
					UserName      string `json:"userName"`
					CurrentClicks int    `json:"currentClicks"`
				} `json:"winner"`
			}
			if err := json.Unmarshal(msg.Data, &end); err == nil {
				log.Printf("round over, winner %s with %d clicks", end.Winner.UserName, end.Winner.CurrentClicks)
			}
			// Re-ready for the next round. Fire and forget: the read loop
			// cannot wait on its own ack channel.
			b.send("player:ready", map[string]interface{}{
				"roomId":  b.roomID,
				"isReady": true,
			})
		}
	}
}

// send fires a request without waiting for its ack.
func (b *bot) send(event string, data interface{}) {
	id := atomic.AddInt64(&b.nextID, 1)
	if err := b.conn.WriteJSON(request{ID: id, Event: event, Data: data}); err != nil {
		log.Fatalf("write %s: %v", event, err)
	}
}

// call fires a request and waits for the matching ack.
func (b *bot) call(event string, data interface{}) (*message, error) {
	id := atomic.AddInt64(&b.nextID, 1)
	if err := b.conn.WriteJSON(request{ID: id, Event: event, Data: data}); err != nil {
		return nil, err
	}

	timeout := time.After(5 * time.Second)
	for {
		select {
		case msg := <-b.acks:
			if msg.ID != id {
				continue
			}
			if !*msg.Success {
				return nil, fmt.Errorf("%s: %s", event, msg.Error)
			}
			return &msg, nil
		case <-timeout:
			return nil, fmt.Errorf("%s: ack timeout", event)
		}
	}
}
