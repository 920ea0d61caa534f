package rating

import (
	"context"
	"errors"
)

var (
	ErrRatingNotFound  = errors.New("rating not found")
	ErrDuplicateRating = errors.New("rating already exists for this book and user")
	ErrBookNotFound    = errors.New("book not found")
)

type Service interface {
	Create(ctx context.Context, bookID, userID int, req CreateRatingRequest) (*View, error)
	Update(ctx context.Context, bookID, userID int, req UpdateRatingRequest) (*View, error)
	Delete(ctx context.Context, bookID, userID int) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Create stores one rating per (book, user) pair; a second attempt by the
// same user surfaces ErrDuplicateRating.
func (s *service) Create(ctx context.Context, bookID, userID int, req CreateRatingRequest) (*View, error) {
	exists, err := s.repo.BookExists(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrBookNotFound
	}

	rating := &Rating{
		BookID: bookID,
		UserID: userID,
		Rating: req.Rating,
		Review: req.Review,
	}
	if _, err := s.repo.Create(ctx, rating); err != nil {
		return nil, err
	}
	return s.repo.GetView(ctx, bookID, userID)
}

func (s *service) Update(ctx context.Context, bookID, userID int, req UpdateRatingRequest) (*View, error) {
	rating, err := s.repo.GetByBookAndUser(ctx, bookID, userID)
	if err != nil {
		return nil, err
	}

	if req.Rating != nil {
		rating.Rating = *req.Rating
	}
	if req.Review != nil {
		rating.Review = req.Review
	}

	if err := s.repo.Update(ctx, rating); err != nil {
		return nil, err
	}
	return s.repo.GetView(ctx, bookID, userID)
}

func (s *service) Delete(ctx context.Context, bookID, userID int) error {
	return s.repo.Delete(ctx, bookID, userID)
}
