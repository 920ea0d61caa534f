package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"library-service/internal/httputil"
	"library-service/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service   *Service
	logger    *slog.Logger
	validator *validator.Validate
	metrics   *metrics.Metrics
}

func NewHandler(service *Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		service:   service,
		logger:    logger,
		validator: validator.New(),
		metrics:   m,
	}
}

// RegisterRoutes mounts login/register on the public router and
// logout/refresh behind the bearer middleware.
func (h *Handler) RegisterRoutes(public, protected gin.IRouter) {
	public.POST("/register", h.Register)
	public.POST("/login", h.Login)
	protected.POST("/logout", h.Logout)
	protected.POST("/logout-all", h.LogoutAll)
	protected.POST("/refresh", h.Refresh)
}

// Register creates a new account with the "user" role and auto-logs it in.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationFailed(c, err)
		return
	}

	result, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			httputil.Error(c, http.StatusConflict, "The email has already been taken.")
			return
		}
		h.logger.Error("registration failed", "error", err)
		httputil.Error(c, http.StatusInternalServerError, "internal server error")
		return
	}

	h.metrics.RecordUserRegistered(c.Request.Context())
	h.logger.InfoContext(c.Request.Context(), "user registered", "email", req.Email)

	httputil.Success(c, http.StatusCreated, "User created successfully", gin.H{
		"user":          result.User.View(),
		"authorisation": authorisation(result),
	})
}

// Login authenticates a user and issues a token pair.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationFailed(c, err)
		return
	}

	result, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httputil.Error(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		h.logger.Error("login failed", "error", err)
		httputil.Error(c, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.InfoContext(c.Request.Context(), "user logged in", "email", req.Email)

	httputil.Success(c, http.StatusOK, "Login successful", gin.H{
		"user":          result.User.View(),
		"authorisation": authorisation(result),
	})
}

// Refresh rotates the token pair for a valid refresh token.
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationFailed(c, err)
		return
	}

	result, err := h.service.RefreshAccessToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			httputil.Error(c, http.StatusUnauthorized, "invalid or expired refresh token")
			return
		}
		h.logger.Error("token refresh failed", "error", err)
		httputil.Error(c, http.StatusInternalServerError, "internal server error")
		return
	}

	httputil.Success(c, http.StatusOK, "Token refreshed successfully", gin.H{
		"user":          result.User.View(),
		"authorisation": authorisation(result),
	})
}

// Logout invalidates the presented refresh token.
func (h *Handler) Logout(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		h.logger.Error("logout failed", "error", err)
		httputil.Error(c, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.InfoContext(c.Request.Context(), "user logged out")

	httputil.Success(c, http.StatusOK, "Successfully logged out", nil)
}

// LogoutAll invalidates every refresh token of the authenticated user.
func (h *Handler) LogoutAll(c *gin.Context) {
	ident, ok := IdentityFrom(c)
	if !ok {
		httputil.Error(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.LogoutAll(c.Request.Context(), ident.UserID); err != nil {
		h.logger.Error("logout all failed", "error", err)
		httputil.Error(c, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.InfoContext(c.Request.Context(), "user logged out everywhere", "user_id", ident.UserID)

	httputil.Success(c, http.StatusOK, "Successfully logged out", nil)
}

func authorisation(result *AuthResult) gin.H {
	return gin.H{
		"token":         result.AccessToken,
		"refresh_token": result.RefreshToken,
		"type":          "bearer",
	}
}
