package category

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrNameTaken        = errors.New("category name already exists")
)

type Service interface {
	GetAll(ctx context.Context) ([]Category, error)
	GetByID(ctx context.Context, id int) (*Category, error)
	Create(ctx context.Context, req CreateCategoryRequest) (*Category, error)
	Update(ctx context.Context, id int, req UpdateCategoryRequest) (*Category, error)
	Delete(ctx context.Context, id int) error
}

type service struct {
	repo  Repository
	title cases.Caser
}

func NewService(repo Repository) Service {
	return &service{
		repo:  repo,
		title: cases.Title(language.English),
	}
}

func (s *service) GetAll(ctx context.Context) ([]Category, error) {
	return s.repo.GetAll(ctx)
}

func (s *service) GetByID(ctx context.Context, id int) (*Category, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Create(ctx context.Context, req CreateCategoryRequest) (*Category, error) {
	return s.repo.Create(ctx, &Category{
		Name: s.title.String(strings.ToLower(req.Name)),
	})
}

// Update loads the row, applies the supplied fields, and persists the new
// snapshot. Renaming a category to its own current name is a no-op, not a
// uniqueness conflict.
func (s *service) Update(ctx context.Context, id int, req UpdateCategoryRequest) (*Category, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		current.Name = s.title.String(strings.ToLower(*req.Name))
	}

	if err := s.repo.Update(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

func (s *service) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}
