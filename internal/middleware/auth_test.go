package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"quizzarium-backend/internal/models"
	"quizzarium-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(auth *services.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", JWTAuth(auth), func(c *gin.Context) {
		a := Actor(c)
		c.JSON(http.StatusOK, gin.H{"user_id": a.UserID, "role": a.Role})
	})
	r.GET("/admin", JWTAuth(auth), RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	auth := services.NewAuthService(nil, nil, "secret", "")
	r := newRouter(auth)

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "garbage").Code)

	token, err := auth.GenerateToken(&models.User{ID: 7, Email: "c@example.com", Role: models.RoleClient})
	require.NoError(t, err)
	w := do(r, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"role":"CLIENT"}`, w.Body.String())

	blocked, err := auth.GenerateToken(&models.User{ID: 8, Role: models.RoleClient, Blocked: true})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do(r, "/me", blocked).Code)
}

func TestRequireRoles(t *testing.T) {
	auth := services.NewAuthService(nil, nil, "secret", "")
	r := newRouter(auth)

	client, err := auth.GenerateToken(&models.User{ID: 1, Role: models.RoleClient})
	require.NoError(t, err)
	admin, err := auth.GenerateToken(&models.User{ID: 2, Role: models.RoleAdmin})
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, do(r, "/admin", client).Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/admin", admin).Code)
}
