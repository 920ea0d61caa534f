package auth_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"library-service/internal/auth"
	"library-service/internal/metrics"
	"library-service/internal/testdb"
	"library-service/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthHandler_Shared(t *testing.T) {
	gin.SetMode(gin.TestMode)

	os.Setenv("JWT_SECRET", "test-secret-key-for-testing")
	defer os.Unsetenv("JWT_SECRET")

	pgContainer := testdb.SetupSharedPostgres(t)
	defer pgContainer.Cleanup(t)

	pgContainer.MigrateAll(t)
	pgContainer.SeedRoles(t)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	userRepo := user.NewRepository(pgContainer.DB, metrics.NewMock())
	authRepo := auth.NewRepository(pgContainer.DB, metrics.NewMock())
	authService := auth.NewService(authRepo, userRepo, 15*time.Minute, 7*24*time.Hour)
	authHandler := auth.NewHandler(authService, logger, metrics.NewMock())

	router := gin.New()
	public := router.Group("/api")
	protected := router.Group("/api")
	protected.Use(auth.AuthMiddleware(logger))
	authHandler.RegisterRoutes(public, protected)

	register := func(t *testing.T, name, email, password string) map[string]interface{} {
		t.Helper()
		body, _ := json.Marshal(map[string]string{
			"name":     name,
			"email":    email,
			"password": password,
		})
		req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		return response
	}

	t.Run("Register_Success", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "users")

		response := register(t, "John Reader", "john@example.com", "password123")

		assert.Equal(t, "success", response["status"])
		assert.Equal(t, "User created successfully", response["message"])

		authorisation := response["authorisation"].(map[string]interface{})
		assert.NotEmpty(t, authorisation["token"])
		assert.NotEmpty(t, authorisation["refresh_token"])
		assert.Equal(t, "bearer", authorisation["type"])

		registered := response["user"].(map[string]interface{})
		assert.Equal(t, "john@example.com", registered["email"])
		assert.ElementsMatch(t, []interface{}{"user"}, registered["roles"])
	})

	t.Run("Register_DuplicateEmail", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "users")

		register(t, "First", "duplicate@example.com", "password123")

		body, _ := json.Marshal(map[string]string{
			"name":     "Second",
			"email":    "duplicate@example.com",
			"password": "password456",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "The email has already been taken.")
	})

	t.Run("Register_ShortPassword", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "users")

		body, _ := json.Marshal(map[string]string{
			"name":     "Short",
			"email":    "short@example.com",
			"password": "short",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		errs := response["errors"].(map[string]interface{})
		assert.Contains(t, errs, "Password")
	})

	t.Run("Login_Success", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "users")

		register(t, "Login User", "login@example.com", "password123")

		body, _ := json.Marshal(map[string]string{
			"email":    "login@example.com",
			"password": "password123",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "Login successful", response["message"])
		authorisation := response["authorisation"].(map[string]interface{})
		assert.NotEmpty(t, authorisation["token"])
	})

	t.Run("Login_WrongPassword", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "users")

		register(t, "Login User", "login@example.com", "password123")

		body, _ := json.Marshal(map[string]string{
			"email":    "login@example.com",
			"password": "wrong-password",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Refresh_RotatesTokenPair", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "users")

		response := register(t, "Refresh User", "refresh@example.com", "password123")
		authorisation := response["authorisation"].(map[string]interface{})
		accessToken := authorisation["token"].(string)
		refreshToken := authorisation["refresh_token"].(string)

		body, _ := json.Marshal(map[string]string{"refresh_token": refreshToken})
		req := httptest.NewRequest(http.MethodPost, "/api/refresh", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+accessToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var refreshed map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&refreshed))
		rotated := refreshed["authorisation"].(map[string]interface{})
		assert.NotEqual(t, refreshToken, rotated["refresh_token"])

		// The old refresh token is consumed by the rotation.
		body, _ = json.Marshal(map[string]string{"refresh_token": refreshToken})
		req = httptest.NewRequest(http.MethodPost, "/api/refresh", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+accessToken)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Logout_InvalidatesRefreshToken", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "users")

		response := register(t, "Logout User", "logout@example.com", "password123")
		authorisation := response["authorisation"].(map[string]interface{})
		accessToken := authorisation["token"].(string)
		refreshToken := authorisation["refresh_token"].(string)

		body, _ := json.Marshal(map[string]string{"refresh_token": refreshToken})
		req := httptest.NewRequest(http.MethodPost, "/api/logout", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+accessToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		body, _ = json.Marshal(map[string]string{"refresh_token": refreshToken})
		req = httptest.NewRequest(http.MethodPost, "/api/refresh", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+accessToken)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("LogoutAll_InvalidatesEveryRefreshToken", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "users")

		// One token pair from registration, a second one from logging in
		// again, as from another device.
		response := register(t, "Everywhere User", "everywhere@example.com", "password123")
		firstAuth := response["authorisation"].(map[string]interface{})
		accessToken := firstAuth["token"].(string)
		firstRefresh := firstAuth["refresh_token"].(string)

		body, _ := json.Marshal(map[string]string{
			"email":    "everywhere@example.com",
			"password": "password123",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var loggedIn map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&loggedIn))
		secondRefresh := loggedIn["authorisation"].(map[string]interface{})["refresh_token"].(string)

		req = httptest.NewRequest(http.MethodPost, "/api/logout-all", nil)
		req.Header.Set("Authorization", "Bearer "+accessToken)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		for _, refreshToken := range []string{firstRefresh, secondRefresh} {
			body, _ = json.Marshal(map[string]string{"refresh_token": refreshToken})
			req = httptest.NewRequest(http.MethodPost, "/api/refresh", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+accessToken)
			w = httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		}
	})

	t.Run("Protected_WithoutToken", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"refresh_token": "whatever"})
		req := httptest.NewRequest(http.MethodPost, "/api/refresh", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
