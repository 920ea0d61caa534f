package category

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
	Create(ctx context.Context, category *Category) (*Category, error)
	GetAll(ctx context.Context) ([]Category, error)
	GetByID(ctx context.Context, id int) (*Category, error)
	GetByName(ctx context.Context, name string) (*Category, error)
	Update(ctx context.Context, category *Category) error
	Delete(ctx context.Context, id int) error
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(bdb *bun.DB, m *metrics.Metrics) Repository {
	return &repository{db: bdb, metrics: m}
}

func (r *repository) Create(ctx context.Context, category *Category) (*Category, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(category).Returning("*").Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", "categories", time.Since(start), err)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrNameTaken
		}
		return nil, err
	}
	return category, nil
}

func (r *repository) GetAll(ctx context.Context) ([]Category, error) {
	var categories []Category

	start := time.Now()
	err := r.db.NewSelect().
		Model(&categories).
		Order("c.id ASC").
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "categories", time.Since(start), err)

	return categories, err
}

func (r *repository) GetByID(ctx context.Context, id int) (*Category, error) {
	category := new(Category)

	start := time.Now()
	err := r.db.NewSelect().Model(category).Where("c.id = ?", id).Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "categories", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

func (r *repository) GetByName(ctx context.Context, name string) (*Category, error) {
	category := new(Category)

	start := time.Now()
	err := r.db.NewSelect().Model(category).Where("c.name = ?", name).Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "categories", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

func (r *repository) Update(ctx context.Context, category *Category) error {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model(category).
		WherePK().
		Column("name").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", "categories", time.Since(start), err)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrNameTaken
		}
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int) error {
	start := time.Now()
	result, err := r.db.NewDelete().
		Model(&Category{ID: id}).
		WherePK().
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "delete", "categories", time.Since(start), err)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
