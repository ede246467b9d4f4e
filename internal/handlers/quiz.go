package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"quizzarium-backend/internal/apperrors"
	"quizzarium-backend/internal/middleware"
	"quizzarium-backend/internal/services"
	"quizzarium-backend/internal/ws"

	"github.com/gin-gonic/gin"
)

type QuizHandler struct {
	quizService *services.QuizService
	hub         *ws.Hub
	maxUpload   int64
}

func NewQuizHandler(quizService *services.QuizService, hub *ws.Hub, maxUpload int64) *QuizHandler {
	return &QuizHandler{quizService: quizService, hub: hub, maxUpload: maxUpload}
}

// ListQuizzes godoc
// @Summary      List all quizzes
// @Description  Every quiz with its questions and answers, ordered by id
// @Tags         quizzes
// @Produce      json
// @Success      200 {array} Quiz
// @Router       /api/quiz [get]
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	quizzes, err := h.quizService.List(serviceContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

// GetQuiz godoc
// @Summary      Get a quiz
// @Tags         quizzes
// @Produce      json
// @Param        id path int true "Quiz ID"
// @Success      200 {object} Quiz
// @Failure      404 {object} ErrorResponse
// @Router       /api/quiz/{id} [get]
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	quiz, err := h.quizService.Get(serviceContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

// ListUserQuizzes godoc
// @Summary      List quizzes of a user
// @Description  Only the user and admins may list them
// @Tags         quizzes
// @Produce      json
// @Security     BearerAuth
// @Param        user_id path int true "User ID"
// @Success      200 {array} Quiz
// @Failure      403 {object} ErrorResponse
// @Router       /api/quiz/user/{user_id} [get]
func (h *QuizHandler) ListUserQuizzes(c *gin.Context) {
	userID, ok := parseID(c, "user_id")
	if !ok {
		return
	}
	quizzes, err := h.quizService.ListByUser(serviceContext(c), middleware.Actor(c), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

// CreateQuiz godoc
// @Summary      Create a quiz
// @Description  Builds the quiz, its questions, answers and media in one transaction.
// @Description  Media fields: image, question_media_<i>, answer_media_<i>_<j>.
// @Tags         quizzes
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        title formData string true "Title"
// @Param        description formData string false "Description"
// @Param        category_id formData int false "Category ID"
// @Param        user_id formData int false "Owner (admin only)"
// @Param        questions formData string false "JSON array of {text, answers: [{text, is_correct}]}"
// @Param        image formData file false "Cover image"
// @Success      201 {object} Quiz
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /api/quiz [post]
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	in, err := h.bindCreate(c)
	if err != nil {
		respondError(c, err)
		return
	}
	quiz, err := h.quizService.Create(serviceContext(c), middleware.Actor(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

func (h *QuizHandler) bindCreate(c *gin.Context) (services.CreateQuizInput, error) {
	in := services.CreateQuizInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
	}
	var err error
	if in.CategoryID, err = parseOptionalID(c.PostForm("category_id")); err != nil {
		return in, err
	}
	owner, err := parseOptionalID(c.PostForm("user_id"))
	if err != nil {
		return in, err
	}
	if owner != nil {
		in.OwnerID = *owner
	}
	if in.Questions, err = decodeQuestions(c.PostForm("questions")); err != nil {
		return in, err
	}

	files := readUploads(c, h.maxUpload)
	if in.Image, err = files.get("image"); err != nil {
		return in, err
	}
	for i := range in.Questions {
		if in.Questions[i].Media, err = files.get(fmt.Sprintf("question_media_%d", i)); err != nil {
			return in, err
		}
		for j := range in.Questions[i].Answers {
			if in.Questions[i].Answers[j].Media, err = files.get(fmt.Sprintf("answer_media_%d_%d", i, j)); err != nil {
				return in, err
			}
		}
	}
	return in, nil
}

// UpdateQuiz godoc
// @Summary      Update a quiz
// @Description  Reconciles the stored quiz with the submitted one in one transaction.
// @Description  Questions with question_id <= 0 are created; media fields: image, questionMedia[i], answerMedia[i][j].
// @Description  A question drops its media with delete_media: true or media_url: null.
// @Tags         quizzes
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Quiz ID"
// @Param        title formData string false "Title"
// @Param        description formData string false "Description"
// @Param        category_id formData int false "Category ID"
// @Param        questions formData string false "JSON array of desired questions"
// @Param        deleted_questions formData string false "JSON array of question ids"
// @Param        delete_image formData bool false "Remove the cover image"
// @Param        image formData file false "New cover image"
// @Success      200 {object} Quiz
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/quiz/{id} [put]
func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	in, err := h.bindUpdate(c)
	if err != nil {
		respondError(c, err)
		return
	}
	quiz, err := h.quizService.Update(serviceContext(c), middleware.Actor(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) bindUpdate(c *gin.Context) (services.UpdateQuizInput, error) {
	in := services.UpdateQuizInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
	}
	var err error
	if in.CategoryID, err = parseOptionalID(c.PostForm("category_id")); err != nil {
		return in, err
	}
	if raw := c.PostForm("delete_image"); raw != "" {
		if in.DeleteImage, err = strconv.ParseBool(raw); err != nil {
			return in, fmt.Errorf("%w: delete_image: %q is not a boolean", apperrors.ErrValidation, raw)
		}
	}
	if in.Questions, err = decodeQuestions(c.PostForm("questions")); err != nil {
		return in, err
	}
	if raw := c.PostForm("deleted_questions"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.DeletedQuestions); err != nil {
			return in, fmt.Errorf("%w: deleted_questions: %s", apperrors.ErrValidation, err.Error())
		}
	}

	files := readUploads(c, h.maxUpload)
	if in.Image, err = files.get("image"); err != nil {
		return in, err
	}
	for i := range in.Questions {
		if in.Questions[i].Media, err = files.get(fmt.Sprintf("questionMedia[%d]", i)); err != nil {
			return in, err
		}
		for j := range in.Questions[i].Answers {
			if in.Questions[i].Answers[j].Media, err = files.get(fmt.Sprintf("answerMedia[%d][%d]", i, j)); err != nil {
				return in, err
			}
		}
	}
	return in, nil
}

func decodeQuestions(raw string) ([]services.QuestionInput, error) {
	if raw == "" {
		return nil, nil
	}
	var questions []services.QuestionInput
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, fmt.Errorf("%w: questions: %s", apperrors.ErrValidation, err.Error())
	}
	return questions, nil
}

// DeleteQuiz godoc
// @Summary      Delete a quiz
// @Description  Removes the quiz with its questions, answers and results, then re-packs quiz ids
// @Tags         quizzes
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Quiz ID"
// @Success      200 {object} MessageResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/quiz/{id} [delete]
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.quizService.Delete(serviceContext(c), middleware.Actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	h.hub.Reindex()
	c.JSON(http.StatusOK, MessageResponse{Message: "quiz deleted"})
}
