package user

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"library-service/internal/httputil"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const perPage = 5

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

// RegisterRoutes mounts the user CRUD. The caller is expected to wrap the
// router group with the admin role gate.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/users", h.ListUsers)
	router.POST("/users", h.CreateUser)
	router.GET("/users/:id", h.GetUser)
	router.PUT("/users/:id", h.UpdateUser)
	router.DELETE("/users/:id", h.DeleteUser)
}

func (h *Handler) ListUsers(c *gin.Context) {
	page := httputil.ParsePage(c.Query("page"))

	users, total, err := h.service.List(c.Request.Context(), page, perPage)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	httputil.Success(c, http.StatusOK, "Users retrieved successfully", gin.H{
		"users": Views(users),
		"meta":  httputil.NewPageMeta(page, perPage, total),
	})
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.ValidationFailed(c, err)
		return
	}

	h.logger.InfoContext(c.Request.Context(), "creating user", "email", req.Email)
	created, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	httputil.Success(c, http.StatusCreated, "User created successfully", gin.H{
		"user": created.View(),
	})
}

func (h *Handler) GetUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid user ID")
		return
	}

	found, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	httputil.Success(c, http.StatusOK, "User retrieved successfully", gin.H{
		"user": found.View(),
	})
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid user ID")
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.ValidationFailed(c, err)
		return
	}

	h.logger.InfoContext(c.Request.Context(), "updating user", "id", id)
	updated, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	httputil.Success(c, http.StatusOK, "User updated successfully", gin.H{
		"user": updated.View(),
	})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid user ID")
		return
	}

	h.logger.InfoContext(c.Request.Context(), "deleting user", "id", id)
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	httputil.Success(c, http.StatusOK, "User deleted successfully", nil)
}

func (h *Handler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		httputil.Error(c, http.StatusNotFound, "User not found")
	case errors.Is(err, ErrRoleNotFound):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status":  "error",
			"message": "Validation failed.",
			"errors":  gin.H{"role": "The selected role is invalid."},
		})
	case errors.Is(err, ErrEmailExists):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status":  "error",
			"message": "Validation failed.",
			"errors":  gin.H{"email": "The email has already been taken."},
		})
	default:
		h.logger.Error("user operation failed", "error", err)
		httputil.Error(c, http.StatusInternalServerError, "internal server error")
	}
}
