package book

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"library-service/internal/httputil"
	"library-service/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const perPage = 5

type Handler struct {
	service  Service
	validate *validator.Validate
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewHandler(service Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
		metrics:  m,
	}
}

// RegisterRoutes mounts reads on the public router and writes behind the
// admin gate.
func (h *Handler) RegisterRoutes(public, admin gin.IRouter) {
	public.GET("/books", h.ListBooks)
	public.GET("/books/:id", h.GetBook)
	admin.POST("/books", h.CreateBook)
	admin.PUT("/books/:id", h.UpdateBook)
	admin.DELETE("/books/:id", h.DeleteBook)
}

func (h *Handler) ListBooks(c *gin.Context) {
	filters := ListFilters{
		Author:       c.Query("author"),
		CategoryName: c.Query("category_name"),
		Available:    c.Query("available") == "true",
		SortBy:       c.Query("sort_by"),
		SortOrder:    c.Query("sort_order"),
		Page:         httputil.ParsePage(c.Query("page")),
	}

	books, total, err := h.service.List(c.Request.Context(), filters, perPage)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.metrics.RecordBooksListViewed(c.Request.Context())
	httputil.Success(c, http.StatusOK, "Books retrieved successfully", gin.H{
		"books": Views(books),
		"meta":  httputil.NewPageMeta(filters.Page, perPage, total),
	})
}

func (h *Handler) GetBook(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid book ID")
		return
	}

	found, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.metrics.RecordBookViewed(c.Request.Context())
	httputil.Success(c, http.StatusOK, "Book retrieved successfully", gin.H{
		"book": found.View(),
	})
}

func (h *Handler) CreateBook(c *gin.Context) {
	var req CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.ValidationFailed(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	httputil.Success(c, http.StatusCreated, "Book created successfully", gin.H{
		"book": created.View(),
	})
}

func (h *Handler) UpdateBook(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid book ID")
		return
	}

	var req UpdateBookRequest
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

	httputil.Success(c, http.StatusOK, "Book updated successfully", gin.H{
		"book": updated.View(),
	})
}

func (h *Handler) DeleteBook(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid book ID")
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	httputil.Success(c, http.StatusOK, "Book deleted successfully", nil)
}

func (h *Handler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrBookNotFound):
		httputil.Error(c, http.StatusNotFound, "Book not found")
	case errors.Is(err, ErrTitleTaken):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status":  "error",
			"message": "Validation failed.",
			"errors":  gin.H{"title": "The title has already been taken."},
		})
	case errors.Is(err, ErrUnknownCategory):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status":  "error",
			"message": "Validation failed.",
			"errors":  gin.H{"category_name": "The selected category name is invalid."},
		})
	case errors.Is(err, ErrBadDate):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status":  "error",
			"message": "Validation failed.",
			"errors":  gin.H{"published_at": "The published at is not a valid date."},
		})
	default:
		h.logger.Error("book operation failed", "error", err)
		httputil.Error(c, http.StatusInternalServerError, "internal server error")
	}
}
