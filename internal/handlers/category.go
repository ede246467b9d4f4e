package handlers

import (
	"net/http"

	"quizzarium-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	categoryService *services.CategoryService
	quizService     *services.QuizService
	maxUpload       int64
}

func NewCategoryHandler(categoryService *services.CategoryService, quizService *services.QuizService, maxUpload int64) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService, quizService: quizService, maxUpload: maxUpload}
}

type CategoryDetail struct {
	Category
	Quizzes []Quiz `json:"quizzes"`
}

// ListCategories godoc
// @Summary      List categories
// @Tags         categories
// @Produce      json
// @Success      200 {array} Category
// @Router       /api/category [get]
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	categories, err := h.categoryService.List(serviceContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// GetCategory godoc
// @Summary      Get a category with its quizzes
// @Tags         categories
// @Produce      json
// @Param        id path int true "Category ID"
// @Success      200 {object} CategoryDetail
// @Failure      404 {object} ErrorResponse
// @Router       /api/category/{id} [get]
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := serviceContext(c)
	category, err := h.categoryService.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	quizzes, err := h.quizService.ListByCategory(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, CategoryDetail{Category: *category, Quizzes: quizzes})
}

// CreateCategory godoc
// @Summary      Create a category
// @Tags         categories
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        name formData string true "Name"
// @Param        description formData string true "Description"
// @Param        image formData file false "Image"
// @Success      201 {object} Category
// @Failure      400 {object} ErrorResponse
// @Router       /api/category [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	in, err := h.bind(c)
	if err != nil {
		respondError(c, err)
		return
	}
	category, err := h.categoryService.Create(serviceContext(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// UpdateCategory godoc
// @Summary      Update a category
// @Description  Empty fields keep their value; an uploaded image replaces the old one
// @Tags         categories
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Category ID"
// @Param        name formData string false "Name"
// @Param        description formData string false "Description"
// @Param        image formData file false "Image"
// @Success      200 {object} Category
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/category/{id} [put]
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	in, err := h.bind(c)
	if err != nil {
		respondError(c, err)
		return
	}
	category, err := h.categoryService.Update(serviceContext(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// DeleteCategory godoc
// @Summary      Delete a category
// @Description  Quizzes of the category become uncategorized; category ids are re-packed
// @Tags         categories
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Category ID"
// @Success      200 {object} MessageResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/category/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.categoryService.Delete(serviceContext(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "category deleted"})
}

func (h *CategoryHandler) bind(c *gin.Context) (services.CategoryInput, error) {
	in := services.CategoryInput{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
	}
	var err error
	in.Image, err = readUploads(c, h.maxUpload).get("image")
	return in, err
}
