package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/clickrace/server/game/presence"
)

func TestNewHub(t *testing.T) {
	hub := NewHub(HeaderAuthenticator{}, zap.NewNop())

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.clients == nil {
		t.Error("Hub clients map is nil")
	}
	if hub.groups == nil {
		t.Error("Hub groups map is nil")
	}
	if hub.register == nil {
		t.Error("Hub register channel is nil")
	}
	if hub.unregister == nil {
		t.Error("Hub unregister channel is nil")
	}
}

func testClient(hub *Hub, connID, userID string) *Client {
	return &Client{
		hub:  hub,
		send: make(chan []byte, 256),
		id:   connID,
		user: presence.Identity{ID: userID, Name: userID},
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(HeaderAuthenticator{}, zap.NewNop())

	client := testClient(hub, "conn-1", "u1")
	hub.registerClient(client)

	if hub.ConnCount() != 1 {
		t.Errorf("ConnCount() = %d, want 1", hub.ConnCount())
	}
	if hub.clients["conn-1"] != client {
		t.Error("client not registered under its conn id")
	}
}

func TestHubUnregisterClientCleansGroups(t *testing.T) {
	hub := NewHub(HeaderAuthenticator{}, zap.NewNop())

	client := testClient(hub, "conn-1", "u1")
	hub.registerClient(client)
	hub.JoinGroup("conn-1", "some-group")

	hub.unregisterClient(client)

	if hub.ConnCount() != 0 {
		t.Errorf("ConnCount() = %d, want 0", hub.ConnCount())
	}
	if _, ok := hub.groups["some-group"]; ok {
		t.Error("empty group should have been removed")
	}
	// Unregistering twice must not double-close the send channel.
	hub.unregisterClient(client)
}

func TestHubGroupMembership(t *testing.T) {
	hub := NewHub(HeaderAuthenticator{}, zap.NewNop())

	c1 := testClient(hub, "conn-1", "u1")
	c2 := testClient(hub, "conn-2", "u2")
	hub.registerClient(c1)
	hub.registerClient(c2)

	// Joining a group requires a registered connection.
	hub.JoinGroup("ghost", "g")
	if len(hub.groups["g"]) != 0 {
		t.Error("unregistered conn joined a group")
	}

	hub.JoinGroup("conn-1", "g")
	hub.JoinGroup("conn-2", "g")
	if len(hub.groups["g"]) != 2 {
		t.Errorf("group has %d members, want 2", len(hub.groups["g"]))
	}

	hub.LeaveGroup("conn-1", "g")
	if len(hub.groups["g"]) != 1 {
		t.Errorf("group has %d members after leave, want 1", len(hub.groups["g"]))
	}
}

func TestHubToGroup(t *testing.T) {
	hub := NewHub(HeaderAuthenticator{}, zap.NewNop())

	member := testClient(hub, "conn-1", "u1")
	outsider := testClient(hub, "conn-2", "u2")
	hub.registerClient(member)
	hub.registerClient(outsider)
	hub.JoinGroup("conn-1", "g")

	hub.ToGroup("g", "test:event", map[string]string{"k": "v"})

	select {
	case raw := <-member.send:
		var push Push
		if err := json.Unmarshal(raw, &push); err != nil {
			t.Fatalf("unmarshal push: %v", err)
		}
		if push.Event != "test:event" {
			t.Errorf("event = %q, want test:event", push.Event)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("group member received nothing")
	}

	select {
	case <-outsider.send:
		t.Error("non-member received a group push")
	default:
	}
}

func TestHubToConn(t *testing.T) {
	hub := NewHub(HeaderAuthenticator{}, zap.NewNop())

	client := testClient(hub, "conn-1", "u1")
	hub.registerClient(client)

	hub.ToConn("conn-1", "test:direct", 42)
	hub.ToConn("ghost", "test:direct", 42)

	select {
	case raw := <-client.send:
		var push Push
		if err := json.Unmarshal(raw, &push); err != nil {
			t.Fatalf("unmarshal push: %v", err)
		}
		if push.Event != "test:direct" {
			t.Errorf("event = %q, want test:direct", push.Event)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("no direct push received")
	}
}

func TestHubDispatchUnknownEvent(t *testing.T) {
	hub := NewHub(HeaderAuthenticator{}, zap.NewNop())
	client := testClient(hub, "conn-1", "u1")

	resp := hub.dispatch(client, &Request{ID: 7, Event: "nope"})
	if resp.Success {
		t.Error("unknown event dispatched successfully")
	}
	if resp.Error != "unknownEvent" {
		t.Errorf("error = %q, want unknownEvent", resp.Error)
	}
	if resp.ID != 7 {
		t.Errorf("id = %d, want 7", resp.ID)
	}
}

func TestWebSocketUpgradeRequiresAuth(t *testing.T) {
	hub := NewHub(HeaderAuthenticator{}, zap.NewNop())
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	// Without credentials the upgrade is refused.
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("unauthenticated dial succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 response, got %+v", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?userId=u1", nil)
	if err != nil {
		t.Fatalf("authenticated dial failed: %v", err)
	}
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)
	if hub.ConnCount() != 1 {
		t.Errorf("ConnCount() = %d, want 1", hub.ConnCount())
	}

	conn.Close()
	time.Sleep(50 * time.Millisecond)
	if hub.ConnCount() != 0 {
		t.Errorf("ConnCount() = %d after close, want 0", hub.ConnCount())
	}
}

func TestJWTAuthenticator(t *testing.T) {
	auth := NewJWTAuthenticator([]byte("test-secret"))

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if _, err := auth.Authenticate(r); err == nil {
		t.Error("missing token accepted")
	}

	r = httptest.NewRequest(http.MethodGet, "/ws?token=garbage", nil)
	if _, err := auth.Authenticate(r); err == nil {
		t.Error("garbage token accepted")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &identityClaims{
		Name: "Alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	r = httptest.NewRequest(http.MethodGet, "/ws?token="+signed, nil)
	user, err := auth.Authenticate(r)
	if err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	if user.ID != "user-1" || user.Name != "Alice" {
		t.Errorf("identity = %+v", user)
	}

	// A token signed with a different secret must not verify.
	wrong, err := token.SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	r = httptest.NewRequest(http.MethodGet, "/ws?token="+wrong, nil)
	if _, err := auth.Authenticate(r); err == nil {
		t.Error("token with wrong secret accepted")
	}
}
