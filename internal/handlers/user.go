package handlers

import (
	"net/http"
	"strconv"

	"quizzarium-backend/internal/middleware"
	"quizzarium-backend/internal/services"
	"quizzarium-backend/internal/ws"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	authService *services.AuthService
	userService *services.UserService
	hub         *ws.Hub
	maxUpload   int64
}

func NewUserHandler(authService *services.AuthService, userService *services.UserService, hub *ws.Hub, maxUpload int64) *UserHandler {
	return &UserHandler{authService: authService, userService: userService, hub: hub, maxUpload: maxUpload}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"player@example.com"`
	Password string `json:"password" binding:"required" example:"password123"`
}

type AuthResponse struct {
	Token string `json:"token" example:"eyJhbGciOiJIUzI1NiIs..."`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" example:"password123"`
	NewPassword string `json:"new_password" binding:"required,min=6" example:"password456"`
}

type RoleRequest struct {
	Role string `json:"role" binding:"required,oneof=CLIENT ADMIN GUEST" example:"ADMIN"`
}

type BlockRequest struct {
	Blocked *bool `json:"blocked" binding:"required" example:"true"`
}

// Register godoc
// @Summary      Register a new user
// @Description  Create a CLIENT account and return a JWT token
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Param        email formData string true "Email"
// @Param        password formData string true "Password"
// @Param        avatar formData file false "Avatar image"
// @Success      201 {object} AuthResponse
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /api/user/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	avatar, err := readUploads(c, h.maxUpload).get("avatar")
	if err != nil {
		respondError(c, err)
		return
	}
	token, err := h.authService.Register(serviceContext(c), services.RegisterInput{
		Email:    c.PostForm("email"),
		Password: c.PostForm("password"),
		Avatar:   avatar,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, AuthResponse{Token: token})
}

// Login godoc
// @Summary      Login
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Credentials"
// @Success      200 {object} AuthResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /api/user/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	token, err := h.authService.Login(serviceContext(c), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, AuthResponse{Token: token})
}

// Check godoc
// @Summary      Refresh the token
// @Description  Issues a new token from the stored user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} AuthResponse
// @Failure      403 {object} ErrorResponse
// @Router       /api/user/auth [get]
func (h *UserHandler) Check(c *gin.Context) {
	token, err := h.authService.Refresh(serviceContext(c), middleware.Actor(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, AuthResponse{Token: token})
}

// ChangePassword godoc
// @Summary      Change a password
// @Description  Users change their own password with the old one; admins may pass ?id= to change anyone's
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id query int false "Target user (admin only)"
// @Param        request body ChangePasswordRequest true "Passwords"
// @Success      200 {object} MessageResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /api/user/change-password [post]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	actor := middleware.Actor(c)
	target := actor.UserID
	if raw := c.Query("id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
			return
		}
		target = uint(id)
	}
	if err := h.userService.ChangePassword(serviceContext(c), actor, target, req.OldPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "password changed"})
}

// UpdateAvatar godoc
// @Summary      Replace a user's avatar
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        user_id path int true "User ID"
// @Param        avatar formData file true "Avatar image"
// @Success      200 {object} User
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /api/user/{user_id}/avatar [put]
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	userID, ok := parseID(c, "user_id")
	if !ok {
		return
	}
	avatar, err := readUploads(c, h.maxUpload).get("avatar")
	if err != nil {
		respondError(c, err)
		return
	}
	user, err := h.userService.UpdateAvatar(serviceContext(c), middleware.Actor(c), userID, avatar)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// SetRole godoc
// @Summary      Change a user's role
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        user_id path int true "User ID"
// @Param        request body RoleRequest true "Role"
// @Success      200 {object} User
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/user/{user_id}/role [put]
func (h *UserHandler) SetRole(c *gin.Context) {
	userID, ok := parseID(c, "user_id")
	if !ok {
		return
	}
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	user, err := h.userService.SetRole(serviceContext(c), userID, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// SetBlocked godoc
// @Summary      Block or unblock a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        user_id path int true "User ID"
// @Param        request body BlockRequest true "Block flag"
// @Success      200 {object} User
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/user/{user_id}/block [put]
func (h *UserHandler) SetBlocked(c *gin.Context) {
	userID, ok := parseID(c, "user_id")
	if !ok {
		return
	}
	var req BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	user, err := h.userService.SetBlocked(serviceContext(c), middleware.Actor(c), userID, *req.Blocked)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ListUsers godoc
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} User
// @Router       /api/user/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.List(serviceContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetUser godoc
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        user_id path int true "User ID"
// @Success      200 {object} User
// @Failure      404 {object} ErrorResponse
// @Router       /api/user/{user_id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	userID, ok := parseID(c, "user_id")
	if !ok {
		return
	}
	user, err := h.userService.Get(serviceContext(c), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser godoc
// @Summary      Delete a user
// @Description  Removes the user's tickets, results and quizzes, then re-packs quiz ids
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        user_id path int true "User ID"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/user/delete/{user_id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	userID, ok := parseID(c, "user_id")
	if !ok {
		return
	}
	if err := h.userService.Delete(serviceContext(c), middleware.Actor(c), userID); err != nil {
		respondError(c, err)
		return
	}
	h.hub.Reindex()
	c.JSON(http.StatusOK, MessageResponse{Message: "user deleted"})
}
