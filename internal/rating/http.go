package rating

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"library-service/internal/auth"
	"library-service/internal/events"
	"library-service/internal/httputil"
	"library-service/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  Service
	validate *validator.Validate
	logger   *slog.Logger
	metrics  *metrics.Metrics
	producer *events.Producer
}

func NewHandler(service Service, logger *slog.Logger, m *metrics.Metrics, producer *events.Producer) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
		metrics:  m,
		producer: producer,
	}
}

// RegisterRoutes mounts the rating endpoints on the authenticated router.
// The acting user always comes from the token, never from the body.
func (h *Handler) RegisterRoutes(protected gin.IRouter) {
	protected.POST("/books/:id/rating", h.CreateRating)
	protected.PUT("/books/:id/rating", h.UpdateRating)
	protected.DELETE("/books/:id/rating", h.DeleteRating)
}

func (h *Handler) CreateRating(c *gin.Context) {
	bookID, ident, ok := h.requestContext(c)
	if !ok {
		return
	}

	var req CreateRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.ValidationFailed(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), bookID, ident.UserID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.metrics.RecordRatingCreated(c.Request.Context())
	h.producer.Publish(events.RatingEvent{
		Event:      events.EventRatingCreated,
		BookID:     bookID,
		UserID:     ident.UserID,
		Rating:     req.Rating,
		OccurredAt: time.Now(),
	})

	httputil.Success(c, http.StatusCreated, "Rating created successfully", gin.H{
		"rating": created,
	})
}

func (h *Handler) UpdateRating(c *gin.Context) {
	bookID, ident, ok := h.requestContext(c)
	if !ok {
		return
	}

	var req UpdateRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.ValidationFailed(c, err)
		return
	}

	updated, err := h.service.Update(c.Request.Context(), bookID, ident.UserID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	httputil.Success(c, http.StatusOK, "Rating updated successfully", gin.H{
		"rating": updated,
	})
}

func (h *Handler) DeleteRating(c *gin.Context) {
	bookID, ident, ok := h.requestContext(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), bookID, ident.UserID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	httputil.Success(c, http.StatusOK, "Rating deleted successfully", nil)
}

func (h *Handler) requestContext(c *gin.Context) (int, auth.Identity, bool) {
	bookID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid book ID")
		return 0, auth.Identity{}, false
	}
	ident, ok := auth.IdentityFrom(c)
	if !ok {
		httputil.Error(c, http.StatusUnauthorized, "Unauthorized")
		return 0, auth.Identity{}, false
	}
	return bookID, ident, true
}

func (h *Handler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrBookNotFound):
		httputil.Error(c, http.StatusNotFound, "Book not found")
	case errors.Is(err, ErrRatingNotFound):
		httputil.Error(c, http.StatusNotFound, "Rating not found")
	case errors.Is(err, ErrDuplicateRating):
		httputil.Error(c, http.StatusConflict, "You have already rated this book.")
	default:
		h.logger.Error("rating operation failed", "error", err)
		httputil.Error(c, http.StatusInternalServerError, "internal server error")
	}
}
