package user

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
	ErrRoleNotFound = errors.New("the selected role is invalid")
)

// RoleAdmin and RoleUser are the role names seeded at migration time.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type Service interface {
	List(ctx context.Context, page, perPage int) ([]User, int, error)
	GetByID(ctx context.Context, id int) (*User, error)
	Create(ctx context.Context, req CreateUserRequest) (*User, error)
	Update(ctx context.Context, id int, req UpdateUserRequest) (*User, error)
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

func (s *service) List(ctx context.Context, page, perPage int) ([]User, int, error) {
	return s.repo.List(ctx, page, perPage)
}

func (s *service) GetByID(ctx context.Context, id int) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// Create inserts a user and assigns the requested role. The role is resolved
// first so an unknown role name leaves no user row behind.
func (s *service) Create(ctx context.Context, req CreateUserRequest) (*User, error) {
	role, err := s.repo.GetRoleByName(ctx, req.Role)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &User{
		Name:     strings.ToLower(req.Name),
		Email:    req.Email,
		Password: string(hash),
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.AssignRole(ctx, created.ID, role.ID); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, created.ID)
}

func (s *service) Update(ctx context.Context, id int, req UpdateUserRequest) (*User, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		current.Name = s.title.String(strings.ToLower(*req.Name))
	}
	if req.Email != nil && *req.Email != current.Email {
		taken, err := s.repo.EmailTakenByOther(ctx, *req.Email, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrEmailExists
		}
		current.Email = *req.Email
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		current.Password = string(hash)
	}

	if err := s.repo.Update(ctx, current); err != nil {
		return nil, err
	}

	if req.Role != nil {
		role, err := s.repo.GetRoleByName(ctx, *req.Role)
		if err != nil {
			return nil, err
		}
		if err := s.repo.ReplaceRoles(ctx, id, role.ID); err != nil {
			return nil, err
		}
	}

	return s.repo.GetByID(ctx, id)
}

func (s *service) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}
