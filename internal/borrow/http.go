package borrow

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

// RegisterRoutes mounts the loan endpoints on the authenticated router.
func (h *Handler) RegisterRoutes(protected gin.IRouter) {
	protected.POST("/books/:id/borrow", h.BorrowBook)
	protected.PUT("/loans/:id", h.UpdateLoan)
	protected.POST("/loans/:id/return", h.ReturnLoan)
}

func (h *Handler) BorrowBook(c *gin.Context) {
	bookID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid book ID")
		return
	}
	ident, ok := auth.IdentityFrom(c)
	if !ok {
		httputil.Error(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req BorrowRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.Error(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := h.validate.Struct(req); err != nil {
			httputil.ValidationFailed(c, err)
			return
		}
	}

	loan, err := h.service.Borrow(c.Request.Context(), bookID, ident.UserID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.metrics.RecordBookBorrowed(c.Request.Context())
	h.producer.Publish(events.LoanEvent{
		Event:      events.EventBookBorrowed,
		LoanID:     loan.ID,
		BookID:     bookID,
		UserID:     ident.UserID,
		OccurredAt: time.Now(),
	})

	httputil.Success(c, http.StatusCreated, "Book borrowed successfully", gin.H{
		"loan": loan,
	})
}

func (h *Handler) UpdateLoan(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid loan ID")
		return
	}

	var req UpdateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.ValidationFailed(c, err)
		return
	}

	loan, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	httputil.Success(c, http.StatusOK, "Loan updated successfully", gin.H{
		"loan": loan,
	})
}

func (h *Handler) ReturnLoan(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid loan ID")
		return
	}
	ident, _ := auth.IdentityFrom(c)

	loan, err := h.service.Return(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.metrics.RecordBookReturned(c.Request.Context())
	h.producer.Publish(events.LoanEvent{
		Event:      events.EventBookReturned,
		LoanID:     loan.ID,
		UserID:     ident.UserID,
		OccurredAt: time.Now(),
	})

	httputil.Success(c, http.StatusOK, "Book returned successfully", gin.H{
		"loan": loan,
	})
}

func (h *Handler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrBookNotFound):
		httputil.Error(c, http.StatusNotFound, "Book not found")
	case errors.Is(err, ErrLoanNotFound):
		httputil.Error(c, http.StatusNotFound, "Loan not found")
	case errors.Is(err, ErrBookNotAvailable):
		httputil.Error(c, http.StatusConflict, "Book is not available for borrowing.")
	case errors.Is(err, ErrBadDate):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status":  "error",
			"message": "Validation failed.",
			"errors":  gin.H{"date": "The value is not a valid date."},
		})
	default:
		h.logger.Error("loan operation failed", "error", err)
		httputil.Error(c, http.StatusInternalServerError, "internal server error")
	}
}
