package handlers

import (
	"log"
	"net/http"

	"quizzarium-backend/internal/services"
	"quizzarium-backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	hub           *ws.Hub
	resultService *services.ResultService
}

func NewWSHandler(hub *ws.Hub, resultService *services.ResultService) *WSHandler {
	return &WSHandler{hub: hub, resultService: resultService}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleLeaderboard godoc
// @Summary      Live leaderboard
// @Description  WebSocket that sends the current leaderboard, then a new one after every submit
// @Tags         websocket
// @Param        id path int true "Quiz ID"
// @Router       /ws/quiz/{id}/leaderboard [get]
func (h *WSHandler) HandleLeaderboard(c *gin.Context) {
	quizID, ok := parseID(c, "id")
	if !ok {
		return
	}
	lb, err := h.resultService.Leaderboard(serviceContext(c), quizID)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] upgrade error: %v", err)
		return
	}
	if err := conn.WriteJSON(ws.WSMessage{Type: ws.TypeLeaderboard, Data: lb}); err != nil {
		conn.Close()
		return
	}

	h.hub.AddConnection(quizID, conn)
	defer h.hub.RemoveConnection(quizID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
