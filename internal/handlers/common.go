package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"

	"quizzarium-backend/internal/apperrors"
	"quizzarium-backend/internal/models"
	"quizzarium-backend/internal/storage"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

type MessageResponse struct {
	Message string `json:"message" example:"operation successful"`
}

// Type aliases so swag can resolve models in annotations.
type Quiz = models.Quiz
type Question = models.Question
type Answer = models.Answer
type Category = models.Category
type User = models.User
type Result = models.Result

// respondError maps the service error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict):
		status = http.StatusConflict
	default:
		log.Printf("[API] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

// serviceContext detaches the request context from client cancellation so a
// dropped connection does not abort a transaction half way.
func serviceContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// parseOptionalID reads a form id where "", "null" and "0" mean none.
func parseOptionalID(raw string) (*uint, error) {
	switch raw {
	case "", "null", "undefined", "0":
		return nil, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid id %q", apperrors.ErrValidation, raw)
	}
	id := uint(n)
	return &id, nil
}

// uploads gives access to the files of a multipart request.
type uploads struct {
	files    map[string]*multipart.FileHeader
	maxBytes int64
}

func readUploads(c *gin.Context, maxBytes int64) *uploads {
	u := &uploads{files: map[string]*multipart.FileHeader{}, maxBytes: maxBytes}
	form, err := c.MultipartForm()
	if err != nil {
		return u
	}
	for key, headers := range form.File {
		if len(headers) > 0 {
			u.files[key] = headers[0]
		}
	}
	return u
}

// get returns nil when no file was sent under key.
func (u *uploads) get(key string) (*storage.File, error) {
	fh, ok := u.files[key]
	if !ok {
		return nil, nil
	}
	f := storage.FromHeader(fh)
	if err := storage.Validate(f, u.maxBytes); err != nil {
		return nil, err
	}
	return f, nil
}
