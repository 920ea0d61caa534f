package category_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"library-service/internal/category"
	"library-service/internal/metrics"
	"library-service/internal/testdb"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryHandler_Shared(t *testing.T) {
	gin.SetMode(gin.TestMode)

	pgContainer := testdb.SetupSharedPostgres(t)
	defer pgContainer.Cleanup(t)

	pgContainer.MigrateAll(t)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	repo := category.NewRepository(pgContainer.DB, metrics.NewMock())
	service := category.NewService(repo)
	handler := category.NewHandler(service, logger)

	router := gin.New()
	api := router.Group("/api")
	handler.RegisterRoutes(api, api)

	createCategory := func(t *testing.T, name string) map[string]interface{} {
		t.Helper()
		body, _ := json.Marshal(map[string]string{"name": name})
		req := httptest.NewRequest(http.MethodPost, "/api/categories", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		return response["category"].(map[string]interface{})
	}

	t.Run("CreateCategory_TitleCasesName", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "categories")

		created := createCategory(t, "science fiction")
		assert.Equal(t, "Science Fiction", created["name"])
	})

	t.Run("CreateCategory_DuplicateName", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "categories")

		createCategory(t, "History")

		body, _ := json.Marshal(map[string]string{"name": "history"})
		req := httptest.NewRequest(http.MethodPost, "/api/categories", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "The name has already been taken.")
	})

	t.Run("CreateCategory_NameTooShort", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "categories")

		body, _ := json.Marshal(map[string]string{"name": "ab"})
		req := httptest.NewRequest(http.MethodPost, "/api/categories", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("UpdateCategory_RenameToOwnName", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "categories")

		created := createCategory(t, "Poetry")
		id := int(created["id"].(float64))

		body, _ := json.Marshal(map[string]string{"name": "poetry"})
		req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/categories/%d", id), bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("UpdateCategory_NameTakenByOther", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "categories")

		createCategory(t, "Drama")
		created := createCategory(t, "Thriller")
		id := int(created["id"].(float64))

		body, _ := json.Marshal(map[string]string{"name": "Drama"})
		req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/categories/%d", id), bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("GetCategory_NotFound", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "categories")

		req := httptest.NewRequest(http.MethodGet, "/api/categories/9999", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("ListCategories", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "categories")

		createCategory(t, "Fantasy")
		createCategory(t, "Biography")

		req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Len(t, response["categories"], 2)
	})

	t.Run("DeleteCategory_ThenGet404", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "categories")

		created := createCategory(t, "Ephemeral")
		id := int(created["id"].(float64))

		req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/categories/%d", id), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/categories/%d", id), nil)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
