package handlers

import (
	"log"
	"net/http"

	"quizzarium-backend/internal/middleware"
	"quizzarium-backend/internal/services"
	"quizzarium-backend/internal/ws"

	"github.com/gin-gonic/gin"
)

type ResultHandler struct {
	resultService *services.ResultService
	hub           *ws.Hub
}

func NewResultHandler(resultService *services.ResultService, hub *ws.Hub) *ResultHandler {
	return &ResultHandler{resultService: resultService, hub: hub}
}

type SubmitRequest struct {
	CorrectAnswers *int `json:"correct_answers" binding:"required" example:"3"`
	TotalQuestions *int `json:"total_questions" binding:"required" example:"4"`
}

// Submit godoc
// @Summary      Submit a quiz attempt
// @Description  Stores an immutable result and pushes the fresh leaderboard to websocket subscribers
// @Tags         results
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Quiz ID"
// @Param        request body SubmitRequest true "Attempt"
// @Success      201 {object} Result
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/quiz/{id}/submit [post]
func (h *ResultHandler) Submit(c *gin.Context) {
	quizID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	ctx := serviceContext(c)
	result, err := h.resultService.Submit(ctx, middleware.Actor(c), quizID, *req.CorrectAnswers, *req.TotalQuestions)
	if err != nil {
		respondError(c, err)
		return
	}

	if lb, err := h.resultService.Leaderboard(ctx, quizID); err != nil {
		log.Printf("[ResultHandler] leaderboard for quiz %d: %v", quizID, err)
	} else {
		h.hub.Broadcast(quizID, ws.WSMessage{Type: ws.TypeLeaderboard, Data: lb})
	}

	c.JSON(http.StatusCreated, result)
}

// Leaderboard godoc
// @Summary      Quiz leaderboard
// @Description  Most recent result per user, best score first
// @Tags         results
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Quiz ID"
// @Success      200 {object} services.Leaderboard
// @Failure      404 {object} ErrorResponse
// @Router       /api/quiz/result/{id} [get]
func (h *ResultHandler) Leaderboard(c *gin.Context) {
	quizID, ok := parseID(c, "id")
	if !ok {
		return
	}
	lb, err := h.resultService.Leaderboard(serviceContext(c), quizID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lb)
}

// MyResult godoc
// @Summary      Caller's latest result
// @Tags         results
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Quiz ID"
// @Success      200 {object} Result
// @Failure      404 {object} ErrorResponse
// @Router       /api/quiz/{id}/my-result [get]
func (h *ResultHandler) MyResult(c *gin.Context) {
	quizID, ok := parseID(c, "id")
	if !ok {
		return
	}
	result, err := h.resultService.MyResult(serviceContext(c), middleware.Actor(c), quizID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
