package server_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pageturn/chat/internal/chat"
	"github.com/pageturn/chat/internal/config"
	"github.com/pageturn/chat/internal/directory"
	"github.com/pageturn/chat/internal/pubsub"
	"github.com/pageturn/chat/internal/server"
	"github.com/pageturn/chat/internal/testutils"
	"github.com/stretchr/testify/require"
)

// setupIntegrationTest wires a full in-process chat server on the memory
// store, seeded with one club:
//
//	bookworms: created by carol, members carol, alice, bob and modmax
//	(modmax is a platform admin).
func setupIntegrationTest(t *testing.T) (*server.Server, *httptest.Server, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cfg := &config.Config{
		Addr:         ":0",
		JWTSecret:    testutils.JWTSecret,
		StoreBackend: config.StoreMemory,
		StoreTimeout: 2 * time.Second,
	}

	bridge := pubsub.NewWatermillBridge()
	users, clubs := testutils.Directories(
		&directory.Club{
			ID:        "bookworms",
			CreatorID: "carol",
			MemberIDs: []string{"carol", "alice", "bob", "modmax"},
		},
		map[string]directory.Profile{
			"alice": {DisplayName: "Alice", AvatarRef: "avatars/alice.png"},
			"bob":   {DisplayName: "Bob"},
			"carol": {DisplayName: "Carol"},
		},
	)

	s := server.NewWithDeps(cfg, server.Dependencies{
		Store:      chat.NewMemoryStore(),
		Users:      users,
		Clubs:      clubs,
		Publisher:  bridge,
		Subscriber: bridge,
	})
	s.RegisterRoutes()

	ts := httptest.NewServer(s.E)
	cleanup := func() {
		ts.Close()
		s.Manager().Shutdown()
		bridge.Close()
	}
	return s, ts, cleanup
}

// dialChat opens a websocket session for the user against the test server.
func dialChat(t *testing.T, ts *httptest.Server, clubID, userID string, isAdmin bool) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") +
		"/ws/chat?club=" + clubID + "&token=" + testutils.Token(t, userID, isAdmin)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err, "failed to connect for user %s", userID)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readEvent reads and decodes the next frame from the connection.
func readEvent(t *testing.T, conn *websocket.Conn) chat.ServerEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err, "failed to read frame")

	var ev chat.ServerEvent
	require.NoError(t, json.Unmarshal(payload, &ev), "malformed frame: %s", payload)
	return ev
}

// waitForEvent reads frames until one of the wanted type arrives. Presence
// frames interleave freely with message frames, so tests skip what they are
// not asserting on.
func waitForEvent(t *testing.T, conn *websocket.Conn, eventType string) chat.ServerEvent {
	t.Helper()

	for i := 0; i < 20; i++ {
		ev := readEvent(t, conn)
		if ev.Type == eventType {
			return ev
		}
	}
	t.Fatalf("never received a %q event", eventType)
	return chat.ServerEvent{}
}

// sendEvent writes a client frame on the connection.
func sendEvent(t *testing.T, conn *websocket.Conn, ev chat.ClientEvent) {
	t.Helper()

	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
}
