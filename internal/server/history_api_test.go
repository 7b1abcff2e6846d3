package server_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/pageturn/chat/internal/chat"
	"github.com/pageturn/chat/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type historyResponse struct {
	Messages []chat.Message `json:"messages"`
}

func getHistory(t *testing.T, ts string, path, token string) (*http.Response, historyResponse) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, ts+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body historyResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp, body
}

func TestHistoryAPI(t *testing.T) {
	_, ts, cleanup := setupIntegrationTest(t)
	defer cleanup()

	// Seed the log through a live session, the only write path.
	alice := dialChat(t, ts, "bookworms", "alice", false)
	waitForEvent(t, alice, chat.EventHistory)

	var sent []chat.Message
	for _, body := range []string{"first", "second", "third"} {
		sendEvent(t, alice, chat.ClientEvent{Type: chat.ActionSend, Body: body})
		created := waitForEvent(t, alice, chat.EventMessageCreated)
		sent = append(sent, *created.Message)
	}

	t.Run("members read the full log in ascending order", func(t *testing.T) {
		resp, body := getHistory(t, ts.URL, "/api/clubs/bookworms/messages", testutils.Token(t, "bob", false))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, body.Messages, 3)
		assert.Equal(t, "first", body.Messages[0].Body)
		assert.Equal(t, "third", body.Messages[2].Body)
	})

	t.Run("limit keeps the newest messages", func(t *testing.T) {
		resp, body := getHistory(t, ts.URL, "/api/clubs/bookworms/messages?limit=1", testutils.Token(t, "bob", false))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "third", body.Messages[0].Body)
	})

	t.Run("before cursor excludes the cursor message", func(t *testing.T) {
		cursor := sent[2].SentAt.Format(time.RFC3339Nano)
		resp, body := getHistory(t, ts.URL, "/api/clubs/bookworms/messages?before="+cursor, testutils.Token(t, "bob", false))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "second", body.Messages[1].Body)
	})

	t.Run("platform admins may read clubs they are not members of", func(t *testing.T) {
		resp, body := getHistory(t, ts.URL, "/api/clubs/bookworms/messages", testutils.Token(t, "root", true))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, body.Messages, 3)
	})

	t.Run("non-members are refused", func(t *testing.T) {
		resp, _ := getHistory(t, ts.URL, "/api/clubs/bookworms/messages", testutils.Token(t, "stranger", false))
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("missing credential is refused", func(t *testing.T) {
		resp, _ := getHistory(t, ts.URL, "/api/clubs/bookworms/messages", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown club reports not found", func(t *testing.T) {
		resp, _ := getHistory(t, ts.URL, "/api/clubs/ghost-club/messages", testutils.Token(t, "alice", false))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("malformed query parameters are rejected", func(t *testing.T) {
		resp, _ := getHistory(t, ts.URL, "/api/clubs/bookworms/messages?limit=lots", testutils.Token(t, "bob", false))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp, _ = getHistory(t, ts.URL, "/api/clubs/bookworms/messages?before=yesterday", testutils.Token(t, "bob", false))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("deleted messages come back redacted", func(t *testing.T) {
		sendEvent(t, alice, chat.ClientEvent{Type: chat.ActionDelete, MessageID: sent[0].ID})
		waitForEvent(t, alice, chat.EventMessageDeleted)

		resp, body := getHistory(t, ts.URL, "/api/clubs/bookworms/messages", testutils.Token(t, "bob", false))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, body.Messages, 3)
		assert.True(t, body.Messages[0].Deleted)
		assert.Empty(t, body.Messages[0].Body)
		assert.Equal(t, chat.RoleOwner, body.Messages[0].DeletedBy)
	})
}
