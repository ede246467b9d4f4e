package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"quizzarium-backend/internal/apperrors"
	"quizzarium-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminChat int64 = 1000

type apiCall struct {
	Method  string
	Payload map[string]interface{}
}

// fakeAPI is a Bot API stand-in recording every call.
type fakeAPI struct {
	mu      sync.Mutex
	calls   []apiCall
	updates []Update
	srv     *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	var payload map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&payload)

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{Method: method, Payload: payload})
	var result interface{} = true
	idle := false
	switch method {
	case "sendMessage":
		result = map[string]int64{"message_id": int64(len(f.calls))}
	case "getUpdates":
		result = append([]Update{}, f.updates...)
		idle = len(f.updates) == 0
		f.updates = nil
	}
	f.mu.Unlock()

	// stands in for the long-poll wait
	if idle {
		select {
		case <-r.Context().Done():
		case <-time.After(20 * time.Millisecond):
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": result})
}

func (f *fakeAPI) client() *Client {
	return NewClientWithBaseURL(f.srv.URL, "test-token")
}

func (f *fakeAPI) sent(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c.Method == "sendMessage" && int64(c.Payload["chat_id"].(float64)) == chatID {
			out = append(out, c.Payload["text"].(string))
		}
	}
	return out
}

func (f *fakeAPI) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c.Method)
	}
	return out
}

func (f *fakeAPI) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

type memSupport struct {
	mu      sync.Mutex
	users   map[int64]*models.User
	tickets []*models.SupportTicket
}

func newMemSupport() *memSupport {
	return &memSupport{users: make(map[int64]*models.User)}
}

func (m *memSupport) GetOrCreateGuest(_ context.Context, telegramID int64) (*models.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[telegramID]; ok {
		return u, false, nil
	}
	id := telegramID
	u := &models.User{ID: uint(len(m.users) + 1), Email: fmt.Sprintf("%d@guest.local", id), Role: models.RoleGuest, TelegramID: &id}
	m.users[telegramID] = u
	return u, true, nil
}

func (m *memSupport) CreateTicket(_ context.Context, userID uint, username, message string) (*models.SupportTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.ErrValidation
	}
	t := &models.SupportTicket{ID: uint(len(m.tickets) + 1), UserID: userID, Username: username, Message: message, Status: models.TicketStatusNew}
	m.tickets = append(m.tickets, t)
	return t, nil
}

func (m *memSupport) ListNew(context.Context) ([]models.SupportTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SupportTicket
	for _, t := range m.tickets {
		if t.Status == models.TicketStatusNew {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memSupport) ListByUser(_ context.Context, userID uint) ([]models.SupportTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SupportTicket
	for _, t := range m.tickets {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memSupport) Reply(_ context.Context, ticketID uint, response string) (*models.SupportTicket, *models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if strings.TrimSpace(response) == "" {
		return nil, nil, apperrors.ErrValidation
	}
	for _, t := range m.tickets {
		if t.ID != ticketID {
			continue
		}
		t.Status = models.TicketStatusAnswered
		t.Response = response
		for _, u := range m.users {
			if u.ID == t.UserID {
				return t, u, nil
			}
		}
	}
	return nil, nil, fmt.Errorf("%w: ticket %d", apperrors.ErrNotFound, ticketID)
}

func textMsg(chatID int64, text string) Update {
	msg := &Message{From: &User{ID: chatID, FirstName: "Ann", Username: "ann"}, Chat: Chat{ID: chatID}, Text: text}
	if strings.HasPrefix(text, "/") {
		cmd := strings.SplitN(text, " ", 2)[0]
		msg.Entities = []MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return Update{Message: msg}
}

func callback(chatID int64, data string) Update {
	return Update{CallbackQuery: &CallbackQuery{
		ID:      "cb",
		From:    User{ID: chatID},
		Message: &Message{Chat: Chat{ID: chatID}},
		Data:    data,
	}}
}

func newHandler(t *testing.T) (*UpdateHandler, *fakeAPI, *memSupport) {
	api := newFakeAPI(t)
	store := newMemSupport()
	return NewUpdateHandler(api.client(), NewStateManager(), store, adminChat), api, store
}

func TestStartCreatesGuestOnce(t *testing.T) {
	h, api, store := newHandler(t)

	h.Handle(textMsg(42, "/start"))
	require.Len(t, store.users, 1)
	assert.Equal(t, models.RoleGuest, store.users[42].Role)
	assert.Contains(t, api.sent(42)[0], "Добро пожаловать, Ann")

	h.Handle(textMsg(42, "/start"))
	assert.Len(t, store.users, 1)
	assert.Equal(t, "Выберите действие:", api.sent(42)[1])
}

func TestReportIssueFlow(t *testing.T) {
	h, api, store := newHandler(t)

	h.Handle(callback(42, cbReportIssue))
	assert.Equal(t, StateAwaitingIssue, h.state.Get(42).State)

	h.Handle(textMsg(42, "  the quiz page is blank  "))
	require.Len(t, store.tickets, 1)
	assert.Equal(t, "ann", store.tickets[0].Username)
	assert.Equal(t, StateIdle, h.state.Get(42).State)

	userMsgs := api.sent(42)
	assert.Contains(t, userMsgs[len(userMsgs)-1], "Спасибо за обращение")
	adminMsgs := api.sent(adminChat)
	require.Len(t, adminMsgs, 1)
	assert.Contains(t, adminMsgs[0], "@ann")

	// a later message is not treated as an issue
	h.Handle(textMsg(42, "hello"))
	assert.Len(t, store.tickets, 1)
}

func TestEmptyIssueKeepsWaiting(t *testing.T) {
	h, _, store := newHandler(t)

	h.Handle(callback(42, cbReportIssue))
	h.Handle(textMsg(42, "   "))
	assert.Empty(t, store.tickets)
	assert.Equal(t, StateAwaitingIssue, h.state.Get(42).State)
}

func TestAdminReplyFlow(t *testing.T) {
	h, api, store := newHandler(t)

	h.Handle(callback(42, cbReportIssue))
	h.Handle(textMsg(42, "cannot log in"))
	api.reset()

	h.Handle(textMsg(adminChat, "/tickets"))
	adminMsgs := api.sent(adminChat)
	require.Len(t, adminMsgs, 2)
	assert.Contains(t, adminMsgs[0], "cannot log in")

	h.Handle(callback(adminChat, "reply_1"))
	assert.Equal(t, ChatState{State: StateAwaitingReply, TicketID: 1}, h.state.Get(adminChat))

	h.Handle(textMsg(adminChat, "reset your password"))
	assert.Equal(t, models.TicketStatusAnswered, store.tickets[0].Status)
	assert.Equal(t, StateIdle, h.state.Get(adminChat).State)

	userMsgs := api.sent(42)
	require.Len(t, userMsgs, 1)
	assert.Equal(t, "📩 Ответ от поддержки:\n\nreset your password", userMsgs[0])

	api.reset()
	h.Handle(callback(42, cbCheckStatus))
	userMsgs = api.sent(42)
	require.Len(t, userMsgs, 1)
	assert.Contains(t, userMsgs[0], "✅ Отвечено")
	assert.Contains(t, userMsgs[0], "reset your password")

	api.reset()
	h.Handle(textMsg(adminChat, "/tickets"))
	assert.Equal(t, []string{"Нет нерассмотренных обращений."}, api.sent(adminChat))
}

func TestReplyToUnknownTicket(t *testing.T) {
	h, api, _ := newHandler(t)

	h.Handle(callback(adminChat, "reply_9"))
	h.Handle(textMsg(adminChat, "anyone?"))
	msgs := api.sent(adminChat)
	assert.Equal(t, "Обращение не найдено.", msgs[len(msgs)-1])
	assert.Equal(t, StateIdle, h.state.Get(adminChat).State)
}

func TestUserCannotUseReplyButtons(t *testing.T) {
	h, _, _ := newHandler(t)

	h.Handle(callback(42, "reply_1"))
	assert.Equal(t, StateIdle, h.state.Get(42).State)
}

func TestCallbacksAreAnswered(t *testing.T) {
	h, api, _ := newHandler(t)

	h.Handle(callback(42, cbCheckStatus))
	assert.Equal(t, []string{"answerCallbackQuery", "sendMessage"}, api.methods())
	assert.Equal(t, []string{"Вы ещё не отправляли обращений."}, api.sent(42))
}
