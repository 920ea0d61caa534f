package borrow_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"library-service/internal/auth"
	"library-service/internal/book"
	"library-service/internal/borrow"
	"library-service/internal/category"
	"library-service/internal/metrics"
	"library-service/internal/testdb"
	"library-service/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBorrowHandler_Shared(t *testing.T) {
	gin.SetMode(gin.TestMode)

	os.Setenv("JWT_SECRET", "test-secret-key-for-testing")
	defer os.Unsetenv("JWT_SECRET")

	pgContainer := testdb.SetupSharedPostgres(t)
	defer pgContainer.Cleanup(t)

	pgContainer.MigrateAll(t)
	pgContainer.SeedRoles(t)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	borrowRepo := borrow.NewRepository(pgContainer.DB, metrics.NewMock())
	borrowService := borrow.NewService(borrowRepo)
	borrowHandler := borrow.NewHandler(borrowService, logger, metrics.NewMock(), nil)

	router := gin.New()
	protected := router.Group("/api")
	protected.Use(auth.AuthMiddleware(logger))
	borrowHandler.RegisterRoutes(protected)

	ctx := context.Background()

	seedReader := func(t *testing.T) (*user.User, string) {
		t.Helper()
		u := &user.User{Name: "reader", Email: "reader@example.com", Password: "x"}
		_, err := pgContainer.DB.NewInsert().Model(u).Returning("*").Exec(ctx)
		require.NoError(t, err)

		token, err := auth.GenerateAccessToken(u, 15*time.Minute)
		require.NoError(t, err)
		return u, token
	}

	seedBook := func(t *testing.T, title string) *book.Book {
		t.Helper()
		c := &category.Category{Name: title + " Category"}
		_, err := pgContainer.DB.NewInsert().Model(c).Returning("*").Exec(ctx)
		require.NoError(t, err)

		b := &book.Book{
			Title: title, Author: "Some Author", Description: "d",
			PublishedAt: time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC),
			CategoryID:  c.ID,
		}
		_, err = pgContainer.DB.NewInsert().Model(b).Returning("*").Exec(ctx)
		require.NoError(t, err)
		return b
	}

	do := func(t *testing.T, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
		t.Helper()
		var reader *bytes.Reader
		if payload != nil {
			body, _ := json.Marshal(payload)
			reader = bytes.NewReader(body)
		} else {
			reader = bytes.NewReader(nil)
		}
		req := httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	loanFrom := func(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
		t.Helper()
		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		return response["loan"].(map[string]interface{})
	}

	cleanup := func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "borrow_records", "books", "categories", "users")
	}

	t.Run("BorrowBook_DueDateTwoWeeksOut", func(t *testing.T) {
		cleanup(t)
		_, token := seedReader(t)
		b := seedBook(t, "Borrowable")

		w := do(t, http.MethodPost, fmt.Sprintf("/api/books/%d/borrow", b.ID), token, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		loan := loanFrom(t, w)
		assert.Equal(t, "Borrowable", loan["book_title"])
		assert.Equal(t, "reader", loan["user_name"])
		assert.Nil(t, loan["returned_at"])

		borrowedAt, err := time.Parse("2006-01-02", loan["borrowed_at"].(string))
		require.NoError(t, err)
		dueDate, err := time.Parse("2006-01-02", loan["due_date"].(string))
		require.NoError(t, err)
		assert.Equal(t, borrowedAt.AddDate(0, 0, 14), dueDate)
	})

	t.Run("BorrowBook_SuppliedBorrowDate", func(t *testing.T) {
		cleanup(t)
		_, token := seedReader(t)
		b := seedBook(t, "Backdated")

		w := do(t, http.MethodPost, fmt.Sprintf("/api/books/%d/borrow", b.ID), token,
			map[string]string{"borrowed_at": "01-03-2026"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		loan := loanFrom(t, w)
		assert.Equal(t, "2026-03-01", loan["borrowed_at"])
		assert.Equal(t, "2026-03-15", loan["due_date"])
	})

	t.Run("BorrowBook_ClosedRecordMakesBookUnavailable", func(t *testing.T) {
		cleanup(t)
		reader, token := seedReader(t)
		b := seedBook(t, "Once Returned")

		returnedAt := time.Now().AddDate(0, 0, -7)
		closed := &borrow.Loan{
			BookID: b.ID, UserID: reader.ID,
			BorrowedAt: time.Now().AddDate(0, 0, -21),
			DueDate:    time.Now().AddDate(0, 0, -7),
			ReturnedAt: &returnedAt,
		}
		_, err := pgContainer.DB.NewInsert().Model(closed).Exec(ctx)
		require.NoError(t, err)

		w := do(t, http.MethodPost, fmt.Sprintf("/api/books/%d/borrow", b.ID), token, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "Book is not available for borrowing.")
	})

	t.Run("BorrowBook_OpenLoanHitsUniqueIndex", func(t *testing.T) {
		cleanup(t)
		_, token := seedReader(t)
		b := seedBook(t, "Contended")

		w := do(t, http.MethodPost, fmt.Sprintf("/api/books/%d/borrow", b.ID), token, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		// The second open loan violates the one-open-loan-per-book index.
		w = do(t, http.MethodPost, fmt.Sprintf("/api/books/%d/borrow", b.ID), token, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("BorrowBook_MissingBook", func(t *testing.T) {
		cleanup(t)
		_, token := seedReader(t)

		w := do(t, http.MethodPost, "/api/books/9999/borrow", token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("BorrowBook_WithoutToken", func(t *testing.T) {
		cleanup(t)
		b := seedBook(t, "Guarded")

		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/books/%d/borrow", b.ID), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("UpdateLoan_PartialReturnedAt", func(t *testing.T) {
		cleanup(t)
		_, token := seedReader(t)
		b := seedBook(t, "Updatable")

		w := do(t, http.MethodPost, fmt.Sprintf("/api/books/%d/borrow", b.ID), token, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		loan := loanFrom(t, w)
		id := int(loan["id"].(float64))
		borrowedAt := loan["borrowed_at"]

		w = do(t, http.MethodPut, fmt.Sprintf("/api/loans/%d", id), token,
			map[string]string{"returned_at": "20-03-2026"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		updated := loanFrom(t, w)
		assert.Equal(t, "2026-03-20", updated["returned_at"])
		assert.Equal(t, borrowedAt, updated["borrowed_at"])
	})

	t.Run("ReturnLoan_StampsDueDateAndClearsReturnedAt", func(t *testing.T) {
		cleanup(t)
		_, token := seedReader(t)
		b := seedBook(t, "Comes Back")

		w := do(t, http.MethodPost, fmt.Sprintf("/api/books/%d/borrow", b.ID), token,
			map[string]string{"borrowed_at": "01-01-2026"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		loan := loanFrom(t, w)
		id := int(loan["id"].(float64))

		w = do(t, http.MethodPost, fmt.Sprintf("/api/loans/%d/return", id), token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		// Returning sets due_date to the return moment and leaves
		// returned_at NULL, so the loan stays open. Clients rely on this
		// shape; see the service for details.
		returned := loanFrom(t, w)
		assert.Nil(t, returned["returned_at"])
		assert.Equal(t, time.Now().Format("2006-01-02"), returned["due_date"])
	})

	t.Run("ReturnLoan_Missing", func(t *testing.T) {
		cleanup(t)
		_, token := seedReader(t)

		w := do(t, http.MethodPost, "/api/loans/9999/return", token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
