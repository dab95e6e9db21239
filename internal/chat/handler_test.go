package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"pairchat/internal/auth"
	"pairchat/internal/middleware"
)

func newTestServer(t *testing.T) (*httptest.Server, *auth.Service, *fakeRepo) {
	t.Helper()

	credentials := auth.NewService("test-secret", time.Hour)
	repo := &fakeRepo{}
	history := NewHistoryService(repo, nil)
	hub := NewHub(history)
	handler := NewHandler(hub, history)
	authMiddleware := middleware.NewAuthMiddleware(credentials)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)
		r.Get("/ws", handler.ServeWs)
		r.Get("/messages/{userId}", handler.GetConversation)
		r.Put("/messages/{id}", handler.EditMessage)
		r.Delete("/messages/{id}", handler.DeleteMessage)
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, credentials, repo
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func issueToken(t *testing.T, credentials *auth.Service, userID, username string) string {
	t.Helper()
	token, err := credentials.Issue(auth.Identity{UserID: userID, Username: username})
	require.NoError(t, err)
	return token
}

func dialWS(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	header.Set("Cookie", "token="+token)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(server), header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) outFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var f outFrame
	require.NoError(t, json.Unmarshal(raw, &f))
	return f
}

func Test_Upgrade_Rejected_Without_Credential(t *testing.T) {
	req := require.New(t)
	server, _, _ := newTestServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	req.Error(err)
	req.Nil(conn)
	req.NotNil(resp)
	defer resp.Body.Close()
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func Test_Upgrade_Rejected_With_Invalid_Credential(t *testing.T) {
	req := require.New(t)
	server, _, _ := newTestServer(t)

	header := http.Header{}
	header.Set("Cookie", "token=not-a-real-token")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(server), header)
	req.Error(err)
	req.Nil(conn)
	req.NotNil(resp)
	defer resp.Body.Close()
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func Test_Websocket_Presence_And_Message_Flow(t *testing.T) {
	req := require.New(t)
	server, credentials, _ := newTestServer(t)

	aliceConn := dialWS(t, server, issueToken(t, credentials, "u-alice", "alice"))

	// Initial roster push for the first arrival.
	frame := readFrame(t, aliceConn)
	req.Equal([]PresenceEntry{{UserID: "u-alice", Username: "alice"}}, frame.Online)

	bobConn := dialWS(t, server, issueToken(t, credentials, "u-bob", "bob"))

	both := []PresenceEntry{
		{UserID: "u-alice", Username: "alice"},
		{UserID: "u-bob", Username: "bob"},
	}
	req.Equal(both, readFrame(t, aliceConn).Online)
	req.Equal(both, readFrame(t, bobConn).Online)

	// Bob messages alice; alice gets the message, bob gets the echo, both
	// with the persisted id.
	req.NoError(bobConn.WriteJSON(map[string]string{"recipient": "u-alice", "text": "hey"}))

	toAlice := readFrame(t, aliceConn)
	echo := readFrame(t, bobConn)
	req.Equal("hey", toAlice.Text)
	req.Equal("u-bob", toAlice.Sender)
	req.NotEmpty(toAlice.ID)
	req.Equal(toAlice.ID, echo.ID)

	// Bob leaves; alice sees the shrunken roster.
	bobConn.Close()
	req.Equal([]PresenceEntry{{UserID: "u-alice", Username: "alice"}}, readFrame(t, aliceConn).Online)
}

func Test_Conversation_History_Endpoint(t *testing.T) {
	req := require.New(t)
	server, credentials, repo := newTestServer(t)

	ctx := context.Background()
	_, err := repo.CreateMessage(ctx, "u-alice", "u-bob", "one")
	req.NoError(err)
	_, err = repo.CreateMessage(ctx, "u-bob", "u-alice", "two")
	req.NoError(err)
	_, err = repo.CreateMessage(ctx, "u-alice", "u-carol", "unrelated")
	req.NoError(err)

	token := issueToken(t, credentials, "u-alice", "alice")
	httpReq, err := http.NewRequest(http.MethodGet, server.URL+"/messages/u-bob", nil)
	req.NoError(err)
	httpReq.Header.Set("Cookie", "token="+token)

	resp, err := http.DefaultClient.Do(httpReq)
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	var messages []Message
	req.NoError(json.NewDecoder(resp.Body).Decode(&messages))
	req.Len(messages, 2)
	req.Equal("one", messages[0].Text)
	req.Equal("two", messages[1].Text)
}

func Test_Edit_And_Delete_Endpoints_Enforce_Sender(t *testing.T) {
	req := require.New(t)
	server, credentials, repo := newTestServer(t)

	msg, err := repo.CreateMessage(context.Background(), "u-alice", "u-bob", "original")
	req.NoError(err)

	aliceToken := issueToken(t, credentials, "u-alice", "alice")
	bobToken := issueToken(t, credentials, "u-bob", "bob")

	do := func(method, path, token string, body []byte) *http.Response {
		httpReq, err := http.NewRequest(method, server.URL+path, bytes.NewReader(body))
		require.NoError(t, err)
		httpReq.Header.Set("Cookie", "token="+token)
		resp, err := http.DefaultClient.Do(httpReq)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	// Bob can't touch alice's message.
	resp := do(http.MethodPut, "/messages/"+msg.ID, bobToken, []byte(`{"text":"hacked"}`))
	req.Equal(http.StatusForbidden, resp.StatusCode)

	// Alice edits her own.
	resp = do(http.MethodPut, "/messages/"+msg.ID, aliceToken, []byte(`{"text":"fixed"}`))
	req.Equal(http.StatusOK, resp.StatusCode)
	var updated Message
	req.NoError(json.NewDecoder(resp.Body).Decode(&updated))
	req.Equal("fixed", updated.Text)

	// Unknown id is a 404.
	resp = do(http.MethodDelete, "/messages/nope", aliceToken, nil)
	req.Equal(http.StatusNotFound, resp.StatusCode)

	// Delete by the sender works.
	resp = do(http.MethodDelete, "/messages/"+msg.ID, aliceToken, nil)
	req.Equal(http.StatusOK, resp.StatusCode)

	msgs, err := repo.Conversation(context.Background(), "u-alice", "u-bob")
	req.NoError(err)
	req.Empty(msgs)
}
