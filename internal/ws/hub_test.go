package ws

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseUint(strings.TrimPrefix(r.URL.Path, "/"), 10, 64)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.AddConnection(uint(id), conn)
		defer hub.RemoveConnection(uint(id), conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, quizID int) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/" + strconv.Itoa(quizID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}

func TestBroadcastReachesOnlyQuizSubscribers(t *testing.T) {
	hub := NewHub()
	srv := newServer(t, hub)

	a := dial(t, srv, 1)
	b := dial(t, srv, 2)
	waitFor(t, func() bool { return hub.Subscribers(1) == 1 && hub.Subscribers(2) == 1 })

	hub.Broadcast(1, WSMessage{Type: TypeLeaderboard, Data: map[string]int{"score": 75}})

	a.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, a.ReadJSON(&msg))
	assert.Equal(t, TypeLeaderboard, msg.Type)

	b.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := b.ReadMessage()
	assert.Error(t, err)
}

func TestReindexDisconnectsEveryone(t *testing.T) {
	hub := NewHub()
	srv := newServer(t, hub)

	a := dial(t, srv, 3)
	waitFor(t, func() bool { return hub.Subscribers(3) == 1 })

	hub.Reindex()
	assert.Equal(t, 0, hub.Subscribers(3))

	a.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, a.ReadJSON(&msg))
	assert.Equal(t, TypeReindexed, msg.Type)
}
