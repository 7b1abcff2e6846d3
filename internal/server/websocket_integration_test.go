package server_test

import (
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pageturn/chat/internal/chat"
	"github.com/pageturn/chat/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitForPresence reads frames until a presence snapshot matching want
// arrives. Joins and leaves of other members produce intermediate
// snapshots, so an exact-match wait is the only race-free assertion.
func waitForPresence(t *testing.T, conn *websocket.Conn, want []string) {
	t.Helper()

	var last []string
	for i := 0; i < 20; i++ {
		ev := readEvent(t, conn)
		if ev.Type != chat.EventPresenceUpdated {
			continue
		}
		last = ev.OnlineUsers
		if assert.ObjectsAreEqual(want, ev.OnlineUsers) {
			return
		}
	}
	t.Fatalf("never saw presence %v, last snapshot was %v", want, last)
}

// TestChatSession_Integration drives the full session lifecycle over real
// websocket connections: join with history push, presence updates, send,
// edit, moderator delete and the redacted history a late joiner sees.
func TestChatSession_Integration(t *testing.T) {
	_, ts, cleanup := setupIntegrationTest(t)
	defer cleanup()

	// Alice joins an empty club: a history frame and her own presence.
	alice := dialChat(t, ts, "bookworms", "alice", false)
	history := waitForEvent(t, alice, chat.EventHistory)
	assert.Empty(t, history.Messages)
	waitForPresence(t, alice, []string{"alice"})

	// Bob joins: he gets his own history push, Alice sees the new snapshot.
	bob := dialChat(t, ts, "bookworms", "bob", false)
	waitForEvent(t, bob, chat.EventHistory)
	waitForPresence(t, alice, []string{"alice", "bob"})

	// Alice sends a message; every member receives it with her profile
	// snapshot denormalized on it.
	sendEvent(t, alice, chat.ClientEvent{Type: chat.ActionSend, Body: "hello bookworms"})

	created := waitForEvent(t, alice, chat.EventMessageCreated)
	require.NotNil(t, created.Message)
	messageID := created.Message.ID
	assert.Equal(t, "bookworms", created.Message.ClubID)
	assert.Equal(t, "alice", created.Message.AuthorID)
	assert.Equal(t, "Alice", created.Message.AuthorName)
	assert.Equal(t, "avatars/alice.png", created.Message.AuthorAvatar)
	assert.Equal(t, "hello bookworms", created.Message.Body)

	bobCreated := waitForEvent(t, bob, chat.EventMessageCreated)
	require.NotNil(t, bobCreated.Message)
	assert.Equal(t, messageID, bobCreated.Message.ID)

	// Alice edits her message; both connections see the update.
	sendEvent(t, alice, chat.ClientEvent{Type: chat.ActionEdit, MessageID: messageID, Body: "hello, fellow bookworms"})

	for _, conn := range []*websocket.Conn{alice, bob} {
		updated := waitForEvent(t, conn, chat.EventMessageUpdated)
		require.NotNil(t, updated.Message)
		assert.Equal(t, messageID, updated.Message.ID)
		assert.Equal(t, "hello, fellow bookworms", updated.Message.Body)
		assert.True(t, updated.Message.Edited)
	}

	// Bob cannot edit Alice's message. The failure goes to Bob alone.
	sendEvent(t, bob, chat.ClientEvent{Type: chat.ActionEdit, MessageID: messageID, Body: "hijacked"})
	errEv := waitForEvent(t, bob, chat.EventError)
	assert.Equal(t, "forbidden", errEv.Code)

	// Modmax, a platform admin, joins and deletes Alice's message. The
	// deletion is attributed to the admin role.
	modmax := dialChat(t, ts, "bookworms", "modmax", true)
	waitForEvent(t, modmax, chat.EventHistory)

	sendEvent(t, modmax, chat.ClientEvent{Type: chat.ActionDelete, MessageID: messageID})
	for _, conn := range []*websocket.Conn{alice, bob, modmax} {
		deleted := waitForEvent(t, conn, chat.EventMessageDeleted)
		assert.Equal(t, messageID, deleted.MessageID)
		assert.Equal(t, chat.RoleAdmin, deleted.Attribution)
	}

	// Carol joins after the fact: her history keeps the message's slot but
	// not its words.
	carol := dialChat(t, ts, "bookworms", "carol", false)
	carolHistory := waitForEvent(t, carol, chat.EventHistory)
	require.Len(t, carolHistory.Messages, 1)
	assert.Equal(t, messageID, carolHistory.Messages[0].ID)
	assert.True(t, carolHistory.Messages[0].Deleted)
	assert.Empty(t, carolHistory.Messages[0].Body)
	assert.Equal(t, chat.RoleAdmin, carolHistory.Messages[0].DeletedBy)

	// Bob disconnects; the survivors see him leave the online set.
	bob.Close()
	waitForPresence(t, alice, []string{"alice", "carol", "modmax"})
}

func TestChatSession_CreatorAttribution(t *testing.T) {
	_, ts, cleanup := setupIntegrationTest(t)
	defer cleanup()

	// Carol created the club; deleting her own message is attributed to
	// creator, the highest of her applicable roles.
	carol := dialChat(t, ts, "bookworms", "carol", false)
	waitForEvent(t, carol, chat.EventHistory)

	sendEvent(t, carol, chat.ClientEvent{Type: chat.ActionSend, Body: "a creator speaks"})
	created := waitForEvent(t, carol, chat.EventMessageCreated)

	sendEvent(t, carol, chat.ClientEvent{Type: chat.ActionDelete, MessageID: created.Message.ID})
	deleted := waitForEvent(t, carol, chat.EventMessageDeleted)
	assert.Equal(t, chat.RoleCreator, deleted.Attribution)
}

func TestChatSession_RejectsOutsiders(t *testing.T) {
	_, ts, cleanup := setupIntegrationTest(t)
	defer cleanup()

	t.Run("non-member is refused after the upgrade", func(t *testing.T) {
		conn := dialChat(t, ts, "bookworms", "stranger", false)
		errEv := readEvent(t, conn)
		assert.Equal(t, chat.EventError, errEv.Type)
		assert.Equal(t, "forbidden", errEv.Code)

		// The server closes right after refusing.
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err := conn.ReadMessage()
		assert.Error(t, err)
	})

	t.Run("unknown club is indistinguishable from a forbidden one", func(t *testing.T) {
		conn := dialChat(t, ts, "ghost-club", "alice", false)
		errEv := readEvent(t, conn)
		assert.Equal(t, chat.EventError, errEv.Type)
		assert.Equal(t, "forbidden", errEv.Code)
	})

	t.Run("missing token fails the handshake", func(t *testing.T) {
		wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat?club=bookworms"
		_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, 401, resp.StatusCode)
	})

	t.Run("garbage token fails the handshake", func(t *testing.T) {
		wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat?club=bookworms&token=not-a-token"
		_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, 401, resp.StatusCode)
	})

	t.Run("missing club parameter fails the handshake", func(t *testing.T) {
		wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") +
			"/ws/chat?token=" + testutils.Token(t, "alice", false)
		_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, 400, resp.StatusCode)
	})
}

func TestChatSession_InvalidFramesAreReportedInline(t *testing.T) {
	_, ts, cleanup := setupIntegrationTest(t)
	defer cleanup()

	alice := dialChat(t, ts, "bookworms", "alice", false)
	waitForEvent(t, alice, chat.EventHistory)

	tests := []struct {
		name     string
		payload  string
		wantCode string
	}{
		{"malformed JSON", `{"type":`, "validation"},
		{"unknown action", `{"type":"shout","body":"HELLO"}`, "validation"},
		{"empty body on send", `{"type":"send","body":"   "}`, "validation"},
		{"edit without a message id", `{"type":"edit","body":"new"}`, "validation"},
		{"delete of an unknown message", `{"type":"delete","messageId":"no-such-id"}`, "not_found"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte(tc.payload)))
			errEv := waitForEvent(t, alice, chat.EventError)
			assert.Equal(t, tc.wantCode, errEv.Code)
		})
	}

	// The session survives every rejected frame.
	sendEvent(t, alice, chat.ClientEvent{Type: chat.ActionSend, Body: "still here"})
	created := waitForEvent(t, alice, chat.EventMessageCreated)
	assert.Equal(t, "still here", created.Message.Body)
}
