package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"quizzarium-backend/internal/apperrors"
	"quizzarium-backend/internal/middleware"
	"quizzarium-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type QuestionHandler struct {
	questionService *services.QuestionService
	maxUpload       int64
}

func NewQuestionHandler(questionService *services.QuestionService, maxUpload int64) *QuestionHandler {
	return &QuestionHandler{questionService: questionService, maxUpload: maxUpload}
}

// ListQuestions godoc
// @Summary      List questions of a quiz
// @Tags         questions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Quiz ID"
// @Success      200 {array} Question
// @Failure      404 {object} ErrorResponse
// @Router       /api/quiz/{id}/questions [get]
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	quizID, ok := parseID(c, "id")
	if !ok {
		return
	}
	questions, err := h.questionService.ListQuestions(serviceContext(c), quizID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

// GetQuestion godoc
// @Summary      Get a question
// @Tags         questions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Quiz ID"
// @Param        question_id path int true "Question ID"
// @Success      200 {object} Question
// @Failure      404 {object} ErrorResponse
// @Router       /api/quiz/{id}/question/{question_id} [get]
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	quizID, questionID, ok := questionParams(c)
	if !ok {
		return
	}
	q, err := h.questionService.GetQuestion(serviceContext(c), quizID, questionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// CreateQuestion godoc
// @Summary      Append a question to a quiz
// @Tags         questions
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Quiz ID"
// @Param        text formData string true "Question text"
// @Param        answers formData string false "JSON array of {text, is_correct}"
// @Param        media formData file false "Question media"
// @Success      201 {object} Question
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /api/quiz/{id}/question [post]
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	quizID, ok := parseID(c, "id")
	if !ok {
		return
	}
	in, err := h.bindQuestion(c)
	if err != nil {
		respondError(c, err)
		return
	}
	q, err := h.questionService.CreateQuestion(serviceContext(c), middleware.Actor(c), quizID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

// UpdateQuestion godoc
// @Summary      Update a question's text and media
// @Tags         questions
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Quiz ID"
// @Param        question_id path int true "Question ID"
// @Param        text formData string true "Question text"
// @Param        delete_media formData bool false "Remove the media"
// @Param        media formData file false "New media"
// @Success      200 {object} Question
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/quiz/{id}/question/{question_id} [put]
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	quizID, questionID, ok := questionParams(c)
	if !ok {
		return
	}
	in, err := h.bindQuestion(c)
	if err != nil {
		respondError(c, err)
		return
	}
	q, err := h.questionService.UpdateQuestion(serviceContext(c), middleware.Actor(c), quizID, questionID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// DeleteQuestion godoc
// @Summary      Delete a question
// @Tags         questions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Quiz ID"
// @Param        question_id path int true "Question ID"
// @Success      200 {object} MessageResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/quiz/{id}/question/{question_id} [delete]
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	quizID, questionID, ok := questionParams(c)
	if !ok {
		return
	}
	if err := h.questionService.DeleteQuestion(serviceContext(c), middleware.Actor(c), quizID, questionID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "question deleted"})
}

// ListAnswers godoc
// @Summary      List answers of a question
// @Tags         answers
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Quiz ID"
// @Param        question_id path int true "Question ID"
// @Success      200 {array} Answer
// @Failure      404 {object} ErrorResponse
// @Router       /api/quiz/{id}/question/{question_id}/answers [get]
func (h *QuestionHandler) ListAnswers(c *gin.Context) {
	quizID, questionID, ok := questionParams(c)
	if !ok {
		return
	}
	answers, err := h.questionService.ListAnswers(serviceContext(c), quizID, questionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, answers)
}

// CreateAnswer godoc
// @Summary      Add an answer to a question
// @Tags         answers
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Quiz ID"
// @Param        question_id path int true "Question ID"
// @Param        text formData string true "Answer text"
// @Param        is_correct formData bool false "Correct answer"
// @Param        media formData file false "Answer media"
// @Success      201 {object} Answer
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /api/quiz/{id}/question/{question_id}/answer [post]
func (h *QuestionHandler) CreateAnswer(c *gin.Context) {
	quizID, questionID, ok := questionParams(c)
	if !ok {
		return
	}
	in, err := h.bindAnswer(c)
	if err != nil {
		respondError(c, err)
		return
	}
	a, err := h.questionService.CreateAnswer(serviceContext(c), middleware.Actor(c), quizID, questionID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// UpdateAnswer godoc
// @Summary      Update an answer
// @Tags         answers
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Quiz ID"
// @Param        question_id path int true "Question ID"
// @Param        answer_id path int true "Answer ID"
// @Param        text formData string true "Answer text"
// @Param        is_correct formData bool false "Correct answer"
// @Param        delete_media formData bool false "Remove the media"
// @Param        media formData file false "New media"
// @Success      200 {object} Answer
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/quiz/{id}/question/{question_id}/answer/{answer_id} [put]
func (h *QuestionHandler) UpdateAnswer(c *gin.Context) {
	quizID, questionID, ok := questionParams(c)
	if !ok {
		return
	}
	answerID, ok := parseID(c, "answer_id")
	if !ok {
		return
	}
	in, err := h.bindAnswer(c)
	if err != nil {
		respondError(c, err)
		return
	}
	a, err := h.questionService.UpdateAnswer(serviceContext(c), middleware.Actor(c), quizID, questionID, answerID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// DeleteAnswer godoc
// @Summary      Delete an answer
// @Tags         answers
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Quiz ID"
// @Param        question_id path int true "Question ID"
// @Param        answer_id path int true "Answer ID"
// @Success      200 {object} MessageResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/quiz/{id}/question/{question_id}/answer/{answer_id} [delete]
func (h *QuestionHandler) DeleteAnswer(c *gin.Context) {
	quizID, questionID, ok := questionParams(c)
	if !ok {
		return
	}
	answerID, ok := parseID(c, "answer_id")
	if !ok {
		return
	}
	if err := h.questionService.DeleteAnswer(serviceContext(c), middleware.Actor(c), quizID, questionID, answerID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "answer deleted"})
}

func questionParams(c *gin.Context) (uint, uint, bool) {
	quizID, ok := parseID(c, "id")
	if !ok {
		return 0, 0, false
	}
	questionID, ok := parseID(c, "question_id")
	if !ok {
		return 0, 0, false
	}
	return quizID, questionID, true
}

func (h *QuestionHandler) bindQuestion(c *gin.Context) (services.QuestionInput, error) {
	in := services.QuestionInput{Text: c.PostForm("text")}
	in.DeleteMedia, _ = strconv.ParseBool(c.PostForm("delete_media"))
	if raw := c.PostForm("answers"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Answers); err != nil {
			return in, fmt.Errorf("%w: answers: %s", apperrors.ErrValidation, err.Error())
		}
	}
	var err error
	in.Media, err = readUploads(c, h.maxUpload).get("media")
	return in, err
}

func (h *QuestionHandler) bindAnswer(c *gin.Context) (services.AnswerInput, error) {
	in := services.AnswerInput{Text: c.PostForm("text")}
	in.IsCorrect, _ = strconv.ParseBool(c.PostForm("is_correct"))
	in.DeleteMedia, _ = strconv.ParseBool(c.PostForm("delete_media"))
	var err error
	in.Media, err = readUploads(c, h.maxUpload).get("media")
	return in, err
}
