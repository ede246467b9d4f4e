package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

const (
	TypeLeaderboard = "leaderboard"
	// TypeReindexed tells subscribers that quiz ids moved and they must
	// subscribe again.
	TypeReindexed = "reindexed"
)

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub fans leaderboard updates out to the websocket subscribers of a quiz.
type Hub struct {
	mu      sync.Mutex
	quizzes map[uint]map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{
		quizzes: make(map[uint]map[*websocket.Conn]bool),
	}
}

func (h *Hub) AddConnection(quizID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.quizzes[quizID] == nil {
		h.quizzes[quizID] = make(map[*websocket.Conn]bool)
	}
	h.quizzes[quizID][conn] = true
	log.Printf("[WS] client subscribed to quiz %d (total: %d)", quizID, len(h.quizzes[quizID]))
}

func (h *Hub) RemoveConnection(quizID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.quizzes[quizID]; ok {
		if !conns[conn] {
			return
		}
		delete(conns, conn)
		conn.Close()
		if len(conns) == 0 {
			delete(h.quizzes, quizID)
		}
		log.Printf("[WS] client unsubscribed from quiz %d", quizID)
	}
}

func (h *Hub) Subscribers(quizID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.quizzes[quizID])
}

// Broadcast writes message to every subscriber of quizID. Writes happen under
// the hub lock because a websocket connection allows one writer at a time.
func (h *Hub) Broadcast(quizID uint, message WSMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] marshal error: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.quizzes[quizID]
	if !ok {
		return
	}
	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("[WS] write error: %v", err)
			conn.Close()
			delete(conns, conn)
		}
	}
	if len(conns) == 0 {
		delete(h.quizzes, quizID)
	}
}

// Reindex notifies and disconnects every subscriber after quiz ids were
// re-packed.
func (h *Hub) Reindex() {
	data, _ := json.Marshal(WSMessage{Type: TypeReindexed})

	h.mu.Lock()
	defer h.mu.Unlock()

	for quizID, conns := range h.quizzes {
		for conn := range conns {
			conn.WriteMessage(websocket.TextMessage, data)
			conn.Close()
		}
		delete(h.quizzes, quizID)
	}
}
