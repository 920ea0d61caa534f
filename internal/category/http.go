package category

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"library-service/internal/httputil"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  Service
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes mounts reads on the public router and writes behind the
// admin gate.
func (h *Handler) RegisterRoutes(public, admin gin.IRouter) {
	public.GET("/categories", h.ListCategories)
	public.GET("/categories/:id", h.GetCategory)
	admin.POST("/categories", h.CreateCategory)
	admin.PUT("/categories/:id", h.UpdateCategory)
	admin.DELETE("/categories/:id", h.DeleteCategory)
}

func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.service.GetAll(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	httputil.Success(c, http.StatusOK, "Categories retrieved successfully", gin.H{
		"categories": categories,
	})
}

func (h *Handler) GetCategory(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid category ID")
		return
	}

	found, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	httputil.Success(c, http.StatusOK, "Category retrieved successfully", gin.H{
		"category": found,
	})
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.ValidationFailed(c, err)
		return
	}

	h.logger.InfoContext(c.Request.Context(), "creating category", "name", req.Name)
	created, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	httputil.Success(c, http.StatusCreated, "Category created successfully", gin.H{
		"category": created,
	})
}

func (h *Handler) UpdateCategory(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid category ID")
		return
	}

	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.ValidationFailed(c, err)
		return
	}

	updated, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	httputil.Success(c, http.StatusOK, "Category updated successfully", gin.H{
		"category": updated,
	})
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid category ID")
		return
	}

	h.logger.InfoContext(c.Request.Context(), "deleting category", "id", id)
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	httputil.Success(c, http.StatusOK, "Category deleted successfully", nil)
}

func (h *Handler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrCategoryNotFound):
		httputil.Error(c, http.StatusNotFound, "Category not found")
	case errors.Is(err, ErrNameTaken):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status":  "error",
			"message": "Validation failed.",
			"errors":  gin.H{"name": "The name has already been taken."},
		})
	default:
		h.logger.Error("category operation failed", "error", err)
		httputil.Error(c, http.StatusInternalServerError, "internal server error")
	}
}
