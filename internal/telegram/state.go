package telegram

import "sync"

// Chat states. Every chat starts idle and returns to idle once the awaited
// message has been handled.
const (
	StateIdle          = ""
	StateAwaitingIssue = "awaiting_issue"
	StateAwaitingReply = "awaiting_reply"
)

type ChatState struct {
	State    string
	TicketID uint
}

type StateManager struct {
	mu    sync.RWMutex
	chats map[int64]*ChatState
}

func NewStateManager() *StateManager {
	return &StateManager{
		chats: make(map[int64]*ChatState),
	}
}

func (m *StateManager) Get(chatID int64) ChatState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.chats[chatID]
	if !ok {
		return ChatState{}
	}
	return *s
}

func (m *StateManager) Set(chatID int64, state ChatState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state.State == StateIdle {
		delete(m.chats, chatID)
		return
	}
	m.chats[chatID] = &state
}

func (m *StateManager) Clear(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chats, chatID)
}

// Take returns the chat's state and resets it to idle in one step, so an
// awaited message is consumed at most once.
func (m *StateManager) Take(chatID int64) ChatState {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.chats[chatID]
	if !ok {
		return ChatState{}
	}
	delete(m.chats, chatID)
	return *s
}
