package book

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"library-service/internal/category"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	ErrBookNotFound    = errors.New("book not found")
	ErrTitleTaken      = errors.New("book title already exists")
	ErrUnknownCategory = errors.New("unknown category")
	ErrBadDate         = errors.New("invalid published_at date")
)

// publishedAtLayouts are accepted in order; the day-first form is what the
// public clients send, the ISO form is kept for internal tooling.
var publishedAtLayouts = []string{"02-01-2006", "2006-01-02"}

type Service interface {
	Create(ctx context.Context, req CreateBookRequest) (*Book, error)
	List(ctx context.Context, filters ListFilters, perPage int) ([]Book, int, error)
	GetByID(ctx context.Context, id int) (*Book, error)
	Update(ctx context.Context, id int, req UpdateBookRequest) (*Book, error)
	Delete(ctx context.Context, id int) error
}

type service struct {
	repo       Repository
	categories category.Repository
	titler     cases.Caser
}

func NewService(repo Repository, categories category.Repository) Service {
	return &service{
		repo:       repo,
		categories: categories,
		titler:     cases.Title(language.English),
	}
}

func (s *service) Create(ctx context.Context, req CreateBookRequest) (*Book, error) {
	publishedAt, err := parsePublishedAt(req.PublishedAt)
	if err != nil {
		return nil, err
	}

	cat, err := s.categories.GetByName(ctx, s.titler.String(strings.ToLower(req.CategoryName)))
	if err != nil {
		if errors.Is(err, category.ErrCategoryNotFound) {
			return nil, ErrUnknownCategory
		}
		return nil, fmt.Errorf("resolving category: %w", err)
	}

	book := &Book{
		Title:       s.titler.String(strings.ToLower(req.Title)),
		Author:      s.titler.String(strings.ToLower(req.Author)),
		Description: req.Description,
		PublishedAt: publishedAt,
		CategoryID:  cat.ID,
	}
	created, err := s.repo.Create(ctx, book)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, created.ID)
}

func (s *service) List(ctx context.Context, filters ListFilters, perPage int) ([]Book, int, error) {
	return s.repo.List(ctx, filters, perPage)
}

func (s *service) GetByID(ctx context.Context, id int) (*Book, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Update(ctx context.Context, id int, req UpdateBookRequest) (*Book, error) {
	book, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		book.Title = s.titler.String(strings.ToLower(*req.Title))
	}
	if req.Author != nil {
		book.Author = s.titler.String(strings.ToLower(*req.Author))
	}
	if req.Description != nil {
		book.Description = *req.Description
	}
	if req.PublishedAt != nil {
		publishedAt, err := parsePublishedAt(*req.PublishedAt)
		if err != nil {
			return nil, err
		}
		book.PublishedAt = publishedAt
	}
	if req.CategoryName != nil {
		cat, err := s.categories.GetByName(ctx, s.titler.String(strings.ToLower(*req.CategoryName)))
		if err != nil {
			if errors.Is(err, category.ErrCategoryNotFound) {
				return nil, ErrUnknownCategory
			}
			return nil, fmt.Errorf("resolving category: %w", err)
		}
		book.CategoryID = cat.ID
	}

	if err := s.repo.Update(ctx, book); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

func parsePublishedAt(raw string) (time.Time, error) {
	for _, layout := range publishedAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrBadDate
}
