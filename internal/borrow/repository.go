package borrow

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
	Create(ctx context.Context, loan *Loan) (*Loan, error)
	GetByID(ctx context.Context, id int) (*Loan, error)
	FindByBook(ctx context.Context, bookID int) (*Loan, error)
	GetView(ctx context.Context, id int) (*View, error)
	Update(ctx context.Context, loan *Loan) error
	BookExists(ctx context.Context, bookID int) (bool, error)
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(bdb *bun.DB, m *metrics.Metrics) Repository {
	return &repository{db: bdb, metrics: m}
}

func (r *repository) Create(ctx context.Context, loan *Loan) (*Loan, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(loan).Returning("*").Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", "borrow_records", time.Since(start), err)
	if err != nil {
		// The partial unique index on open loans turns a concurrent double
		// borrow into a unique violation.
		if db.IsUniqueViolation(err) {
			return nil, ErrBookNotAvailable
		}
		return nil, err
	}
	return loan, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Loan, error) {
	loan := new(Loan)

	start := time.Now()
	err := r.db.NewSelect().
		Model(loan).
		Where("br.id = ?", id).
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "borrow_records", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	return loan, nil
}

// FindByBook returns the oldest borrow record for the book, open or closed.
func (r *repository) FindByBook(ctx context.Context, bookID int) (*Loan, error) {
	loan := new(Loan)

	start := time.Now()
	err := r.db.NewSelect().
		Model(loan).
		Where("br.book_id = ?", bookID).
		Order("br.id ASC").
		Limit(1).
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "borrow_records", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	return loan, nil
}

// GetView joins the book title and user name in so handlers never need the
// book or user packages.
func (r *repository) GetView(ctx context.Context, id int) (*View, error) {
	loan := new(Loan)

	start := time.Now()
	err := r.db.NewSelect().
		Model(loan).
		ColumnExpr("br.*").
		ColumnExpr("b.title AS book_title").
		ColumnExpr("u.name AS user_name").
		Join("JOIN books AS b ON b.id = br.book_id").
		Join("JOIN users AS u ON u.id = br.user_id").
		Where("br.id = ?", id).
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "borrow_records", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}

	view := loan.view()
	return &view, nil
}

func (r *repository) Update(ctx context.Context, loan *Loan) error {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model(loan).
		WherePK().
		Column("borrowed_at", "due_date", "returned_at").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", "borrow_records", time.Since(start), err)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrBookNotAvailable
		}
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrLoanNotFound
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
