package rating

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"library-service/internal/db"
	"library-service/internal/metrics"

	"github.com/uptrace/bun"
)

type Repository interface {
	Create(ctx context.Context, rating *Rating) (*Rating, error)
	GetByBookAndUser(ctx context.Context, bookID, userID int) (*Rating, error)
	GetView(ctx context.Context, bookID, userID int) (*View, error)
	Update(ctx context.Context, rating *Rating) error
	Delete(ctx context.Context, bookID, userID int) error
	BookExists(ctx context.Context, bookID int) (bool, error)
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(bdb *bun.DB, m *metrics.Metrics) Repository {
	return &repository{db: bdb, metrics: m}
}

func (r *repository) Create(ctx context.Context, rating *Rating) (*Rating, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(rating).Returning("*").Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", "ratings", time.Since(start), err)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrDuplicateRating
		}
		return nil, err
	}
	return rating, nil
}

func (r *repository) GetByBookAndUser(ctx context.Context, bookID, userID int) (*Rating, error) {
	rating := new(Rating)

	start := time.Now()
	err := r.db.NewSelect().
		Model(rating).
		Where("ra.book_id = ?", bookID).
		Where("ra.user_id = ?", userID).
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "ratings", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRatingNotFound
		}
		return nil, err
	}
	return rating, nil
}

// GetView joins the book title and author name in so handlers never need the
// book or user packages.
func (r *repository) GetView(ctx context.Context, bookID, userID int) (*View, error) {
	view := new(View)

	start := time.Now()
	err := r.db.NewSelect().
		Model((*Rating)(nil)).
		ColumnExpr("ra.rating, ra.review, b.title, u.name").
		Join("JOIN books AS b ON b.id = ra.book_id").
		Join("JOIN users AS u ON u.id = ra.user_id").
		Where("ra.book_id = ?", bookID).
		Where("ra.user_id = ?", userID).
		Scan(ctx, &view.Rating, &view.Review, &view.BookTitle, &view.UserName)
	r.metrics.Database.RecordQuery(ctx, "select", "ratings", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRatingNotFound
		}
		return nil, err
	}
	return view, nil
}

func (r *repository) Update(ctx context.Context, rating *Rating) error {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model(rating).
		WherePK().
		Column("rating", "review").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", "ratings", time.Since(start), err)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrRatingNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, bookID, userID int) error {
	start := time.Now()
	result, err := r.db.NewDelete().
		Model((*Rating)(nil)).
		Where("book_id = ?", bookID).
		Where("user_id = ?", userID).
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "delete", "ratings", time.Since(start), err)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrRatingNotFound
	}
	return nil
}

func (r *repository) BookExists(ctx context.Context, bookID int) (bool, error) {
	start := time.Now()
	exists, err := r.db.NewSelect().
		TableExpr("books").
		Where("id = ?", bookID).
		Exists(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "books", time.Since(start), err)
	return exists, err
}
