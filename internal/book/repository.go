package book

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"library-service/internal/db"
	"library-service/internal/metrics"

	"github.com/uptrace/bun"
)

// sortColumns whitelists the sortable fields so a raw query value never
// reaches the ORDER BY clause.
var sortColumns = map[string]string{
	"title":        "b.title",
	"author":       "b.author",
	"published_at": "b.published_at",
	"created_at":   "b.created_at",
}

type Repository interface {
	Create(ctx context.Context, book *Book) (*Book, error)
	List(ctx context.Context, filters ListFilters, perPage int) ([]Book, int, error)
	GetByID(ctx context.Context, id int) (*Book, error)
	Update(ctx context.Context, book *Book) error
	Delete(ctx context.Context, id int) error
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(bdb *bun.DB, m *metrics.Metrics) Repository {
	return &repository{db: bdb, metrics: m}
}

func (r *repository) Create(ctx context.Context, book *Book) (*Book, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(book).Returning("*").Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", "books", time.Since(start), err)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrTitleTaken
		}
		return nil, err
	}
	return book, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters, perPage int) ([]Book, int, error) {
	var books []Book

	query := r.db.NewSelect().
		Model(&books).
		Relation("Category").
		Relation("Ratings")

	if filters.Author != "" {
		query = query.Where("b.author = ?", filters.Author)
	}
	if filters.CategoryName != "" {
		query = query.Where(
			"EXISTS (SELECT 1 FROM categories AS c WHERE c.id = b.category_id AND c.name = ?)",
			filters.CategoryName,
		)
	}
	if filters.Available {
		// A book counts as available only when it has no loan that was ever
		// closed: an open loan does not exclude it, a returned one does,
		// permanently. This reproduces the shipped behavior; see the list
		// tests before changing it.
		query = query.Where(
			"NOT EXISTS (SELECT 1 FROM borrow_records AS br WHERE br.book_id = b.id AND br.returned_at IS NOT NULL)",
		)
	}

	if column, ok := sortColumns[filters.SortBy]; ok {
		direction := "ASC"
		if filters.SortOrder == "desc" {
			direction = "DESC"
		}
		query = query.Order(column + " " + direction)
	} else {
		query = query.Order("b.id ASC")
	}

	page := filters.Page
	if page < 1 {
		page = 1
	}

	start := time.Now()
	total, err := query.
		Limit(perPage).
		Offset((page - 1) * perPage).
		ScanAndCount(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "books", time.Since(start), err)
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Book, error) {
	book := new(Book)

	start := time.Now()
	err := r.db.NewSelect().
		Model(book).
		Relation("Category").
		Relation("Ratings").
		Where("b.id = ?", id).
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "books", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

func (r *repository) Update(ctx context.Context, book *Book) error {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model(book).
		WherePK().
		Column("title", "author", "description", "published_at", "category_id").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", "books", time.Since(start), err)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrTitleTaken
		}
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int) error {
	start := time.Now()
	result, err := r.db.NewDelete().
		Model(&Book{ID: id}).
		WherePK().
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "delete", "books", time.Since(start), err)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}
