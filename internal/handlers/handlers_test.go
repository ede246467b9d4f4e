package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"quizzarium-backend/internal/cache"
	"quizzarium-backend/internal/database"
	"quizzarium-backend/internal/middleware"
	"quizzarium-backend/internal/models"
	"quizzarium-backend/internal/services"
	"quizzarium-backend/internal/storage"
	"quizzarium-backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testAPI struct {
	router *gin.Engine
	db     *gorm.DB
	auth   *services.AuthService
	dir    string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := filepath.Join(t.TempDir(), "api.db") + "?_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	dir := t.TempDir()
	store, err := storage.NewDiskStore(dir)
	require.NoError(t, err)

	hub := ws.NewHub()
	auth := services.NewAuthService(db, store, "secret", "")
	quizzes := services.NewQuizService(db, store, cache.Nop{})
	results := services.NewResultService(db, cache.Nop{})

	quizHandler := NewQuizHandler(quizzes, hub, 10<<20)
	resultHandler := NewResultHandler(results, hub)

	r := gin.New()
	api := r.Group("/api")
	api.GET("/quiz/:id", quizHandler.GetQuiz)
	authed := api.Group("", middleware.JWTAuth(auth), middleware.RequireRoles(models.RoleClient, models.RoleAdmin))
	authed.POST("/quiz", quizHandler.CreateQuiz)
	authed.PUT("/quiz/:id", quizHandler.UpdateQuiz)
	authed.DELETE("/quiz/:id", quizHandler.DeleteQuiz)
	authed.POST("/quiz/:id/submit", resultHandler.Submit)
	authed.GET("/quiz/result/:id", resultHandler.Leaderboard)

	return &testAPI{router: r, db: db, auth: auth, dir: dir}
}

func (a *testAPI) token(t *testing.T, email, role string) string {
	t.Helper()
	u := models.User{Email: email, PasswordHash: "x", Role: role}
	require.NoError(t, a.db.Create(&u).Error)
	tok, err := a.auth.GenerateToken(&u)
	require.NoError(t, err)
	return tok
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for field, name := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte("bytes of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func (a *testAPI) do(method, path, token, contentType string, body *bytes.Buffer) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestCreateQuizMultipart(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "author@example.com", models.RoleClient)

	body, ct := multipartBody(t, map[string]string{
		"title":       "Capitals",
		"description": "Europe",
		"questions":   `[{"text":"France?","answers":[{"text":"Paris","is_correct":true},{"text":"Lyon"}]},{"text":"Italy?","answers":[{"text":"Rome","is_correct":true}]}]`,
	}, map[string]string{
		"image":            "cover.png",
		"question_media_1": "italy.jpg",
		"answer_media_0_1": "lyon.webp",
	})

	w := api.do(http.MethodPost, "/api/quiz", tok, ct, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var quiz models.Quiz
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &quiz))
	assert.Equal(t, uint(1), quiz.ID)
	assert.NotEmpty(t, quiz.ImageURL)
	require.Len(t, quiz.Questions, 2)
	assert.Empty(t, quiz.Questions[0].MediaURL)
	assert.NotEmpty(t, quiz.Questions[1].MediaURL)
	assert.NotEmpty(t, quiz.Questions[0].Answers[1].MediaURL)
	assert.FileExists(t, filepath.Join(api.dir, filepath.Base(quiz.Questions[1].MediaURL)))

	w = api.do(http.MethodGet, "/api/quiz/1", "", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateQuizErrors(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "author@example.com", models.RoleClient)

	w := api.do(http.MethodPost, "/api/quiz", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	body, ct := multipartBody(t, map[string]string{"title": ""}, nil)
	w = api.do(http.MethodPost, "/api/quiz", tok, ct, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, ct = multipartBody(t, map[string]string{"title": "x", "questions": "{not json"}, nil)
	w = api.do(http.MethodPost, "/api/quiz", tok, ct, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, ct = multipartBody(t, map[string]string{"title": "x"}, map[string]string{"image": "virus.exe"})
	w = api.do(http.MethodPost, "/api/quiz", tok, ct, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, ct = multipartBody(t, map[string]string{"title": "x", "category_id": "7"}, nil)
	w = api.do(http.MethodPost, "/api/quiz", tok, ct, body)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodGet, "/api/quiz/abc", "", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	guest := api.token(t, "guest@guest.local", models.RoleGuest)
	body, ct = multipartBody(t, map[string]string{"title": "x"}, nil)
	w = api.do(http.MethodPost, "/api/quiz", guest, ct, body)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateAndDeleteQuizOwnership(t *testing.T) {
	api := newTestAPI(t)
	owner := api.token(t, "owner@example.com", models.RoleClient)
	other := api.token(t, "other@example.com", models.RoleClient)

	body, ct := multipartBody(t, map[string]string{
		"title":     "Mine",
		"questions": `[{"text":"q","answers":[{"text":"a","is_correct":true}]}]`,
	}, nil)
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/quiz", owner, ct, body).Code)

	body, ct = multipartBody(t, map[string]string{"title": "Stolen"}, nil)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPut, "/api/quiz/1", other, ct, body).Code)

	body, ct = multipartBody(t, map[string]string{
		"title":     "Renamed",
		"questions": `[{"question_id":0,"text":"new","answers":[{"text":"b"}]}]`,
	}, map[string]string{"questionMedia[0]": "new.png"})
	w := api.do(http.MethodPut, "/api/quiz/1", owner, ct, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var quiz models.Quiz
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &quiz))
	assert.Equal(t, "Renamed", quiz.Title)
	require.Len(t, quiz.Questions, 2)
	assert.Equal(t, "q", quiz.Questions[0].Text, "untouched questions stay")
	assert.Equal(t, "new", quiz.Questions[1].Text)
	assert.NotEmpty(t, quiz.Questions[1].MediaURL)

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, "/api/quiz/1", other, "", nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodDelete, "/api/quiz/1", owner, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/quiz/1", "", "", nil).Code)
}

func TestSubmitAndLeaderboard(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "player@example.com", models.RoleClient)

	body, ct := multipartBody(t, map[string]string{"title": "Scored"}, nil)
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/quiz", tok, ct, body).Code)

	w := api.do(http.MethodPost, "/api/quiz/1/submit", tok, "application/json", bytes.NewBufferString(`{"correct_answers":3,"total_questions":4}`))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var result models.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 75, result.Score)

	w = api.do(http.MethodPost, "/api/quiz/1/submit", tok, "application/json", bytes.NewBufferString(`{"correct_answers":0,"total_questions":0}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/api/quiz/result/1", tok, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var lb services.Leaderboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lb))
	assert.Equal(t, "Scored", lb.Title)
	require.Len(t, lb.Leaderboard, 1)
	assert.Equal(t, "player@example.com", lb.Leaderboard[0].Email)
}

func TestUpdateQuizRejectsBadDeleteImage(t *testing.T) {
	api := newTestAPI(t)
	owner := api.token(t, "owner@example.com", models.RoleClient)

	body, ct := multipartBody(t, map[string]string{"title": "Covered"}, map[string]string{"image": "cover.png"})
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/quiz", owner, ct, body).Code)

	body, ct = multipartBody(t, map[string]string{"delete_image": "yes"}, nil)
	w := api.do(http.MethodPut, "/api/quiz/1", owner, ct, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/api/quiz/1", "", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var quiz models.Quiz
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &quiz))
	assert.NotEmpty(t, quiz.ImageURL, "a malformed flag keeps the cover")

	body, ct = multipartBody(t, map[string]string{"delete_image": "true"}, nil)
	w = api.do(http.MethodPut, "/api/quiz/1", owner, ct, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &quiz))
	assert.Empty(t, quiz.ImageURL)
}
