package health_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"library-service/internal/health"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	health.NewHandler("library-service").RegisterRoutes(router)

	get := func(t *testing.T, path string) health.Status {
		t.Helper()
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code)

		var status health.Status
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		return status
	}

	t.Run("health reports ok with service name", func(t *testing.T) {
		status := get(t, "/health")
		assert.Equal(t, "ok", status.Status)
		assert.Equal(t, "library-service", status.Service)
	})

	t.Run("ready reports ready", func(t *testing.T) {
		status := get(t, "/ready")
		assert.Equal(t, "ready", status.Status)
		assert.Equal(t, "library-service", status.Service)
	})
}
