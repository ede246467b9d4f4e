package telegram

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTransitions(t *testing.T) {
	m := NewStateManager()
	assert.Equal(t, ChatState{}, m.Get(1))

	m.Set(1, ChatState{State: StateAwaitingReply, TicketID: 4})
	assert.Equal(t, ChatState{State: StateAwaitingReply, TicketID: 4}, m.Get(1))
	assert.Equal(t, StateIdle, m.Get(2).State)

	assert.Equal(t, uint(4), m.Take(1).TicketID)
	assert.Equal(t, ChatState{}, m.Take(1))

	m.Set(1, ChatState{State: StateAwaitingIssue})
	m.Clear(1)
	assert.Equal(t, StateIdle, m.Get(1).State)
}

func webhookRouter(b *Bot) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhook/bot/:secret", b.HandleWebhook)
	return r
}

func TestWebhook(t *testing.T) {
	h, api, store := newHandler(t)
	b := NewBot(h.client, h, BotOptions{WebhookBaseURL: "https://quiz.example.com/", WebhookSecret: "s3cret"})
	r := webhookRouter(b)

	require.NoError(t, b.Start())
	assert.Equal(t, []string{"setWebhook"}, api.methods())
	assert.True(t, strings.HasPrefix(b.WebhookURL(), "https://quiz.example.com/webhook/bot/"))

	post := func(path, secret, body string) int {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		if secret != "" {
			req.Header.Set("X-Telegram-Bot-Api-Secret-Token", secret)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	update := `{"update_id":1,"message":{"message_id":1,"from":{"id":42,"first_name":"Ann"},"chat":{"id":42},"text":"/start","entities":[{"type":"bot_command","offset":0,"length":6}]}}`
	path := "/webhook/bot/" + b.path

	assert.Equal(t, http.StatusNotFound, post("/webhook/bot/wrong", "s3cret", update))
	assert.Equal(t, http.StatusUnauthorized, post(path, "", update))
	assert.Equal(t, http.StatusBadRequest, post(path, "s3cret", "{"))
	assert.Equal(t, http.StatusOK, post(path, "s3cret", update))

	require.Eventually(t, func() bool { return len(api.sent(42)) == 1 }, 2*time.Second, 10*time.Millisecond)
	store.mu.Lock()
	assert.Len(t, store.users, 1)
	store.mu.Unlock()

	b.Stop()
	assert.Equal(t, "deleteWebhook", api.methods()[len(api.methods())-1])
}

func TestLongPolling(t *testing.T) {
	h, api, _ := newHandler(t)
	api.mu.Lock()
	api.updates = []Update{textMsg(42, "/start"), callback(42, cbReportIssue)}
	api.updates[0].UpdateID = 10
	api.updates[1].UpdateID = 11
	api.mu.Unlock()

	b := NewBot(h.client, h, BotOptions{PollTimeout: 1})
	require.NoError(t, b.Start())

	require.Eventually(t, func() bool {
		return h.state.Get(42).State == StateAwaitingIssue
	}, 2*time.Second, 10*time.Millisecond)

	// the next poll acknowledges both updates
	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		for _, c := range api.calls {
			if c.Method == "getUpdates" && c.Payload["offset"] == float64(12) {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	b.Stop()
	b.Stop()
	assert.Equal(t, "deleteWebhook", api.methods()[0])
}
