package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pocketledger/internal/models"
	"pocketledger/internal/services"
)

// CategoryHandler handles category-related requests
type CategoryHandler struct {
	categoryService services.CategoryServicer
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService services.CategoryServicer) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// CategoriesResponse lists categories together with their count.
type CategoriesResponse struct {
	Categories []models.Category `json:"categories"`
	Count      int64             `json:"count"`
}

// GetCategories handles listing categories
// @Summary     List categories
// @Description Get the categories created by the authenticated user
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} CategoriesResponse "Categories"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /categories [get]
func (h *CategoryHandler) GetCategories(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	categories, count, err := h.categoryService.GetCategories(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, CategoriesResponse{Categories: categories, Count: count})
}
