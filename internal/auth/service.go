package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"library-service/internal/user"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrEmailExists         = user.ErrEmailExists
)

// AuthResult carries the issued token pair plus the authenticated user.
type AuthResult struct {
	User         *user.User
	AccessToken  string
	RefreshToken string
}

type Service struct {
	repo       *Repository
	users      user.Repository
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(repo *Repository, users user.Repository, accessTTL, refreshTTL time.Duration) *Service {
	if accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL == 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Service{
		repo:       repo,
		users:      users,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Register creates an account with the fixed "user" role and logs it in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	role, err := s.users.GetRoleByName(ctx, user.RoleUser)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	created, err := s.users.Create(ctx, &user.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hash),
	})
	if err != nil {
		return nil, err
	}

	if err := s.users.AssignRole(ctx, created.ID, role.ID); err != nil {
		return nil, err
	}

	loaded, err := s.users.GetByID(ctx, created.ID)
	if err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, loaded)
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	found, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(found.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(ctx, found)
}

// RefreshAccessToken rotates the token pair: the presented refresh token is
// consumed and a new one issued.
func (s *Service) RefreshAccessToken(ctx context.Context, token string) (*AuthResult, error) {
	stored, err := s.repo.GetRefreshToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	found, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeleteRefreshToken(ctx, token); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, found)
}

// Logout invalidates the presented refresh token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.repo.DeleteRefreshToken(ctx, token)
}

// LogoutAll invalidates every refresh token the user holds, across devices.
func (s *Service) LogoutAll(ctx context.Context, userID int) error {
	return s.repo.DeleteAllUserTokens(ctx, userID)
}

func (s *Service) issueTokens(ctx context.Context, u *user.User) (*AuthResult, error) {
	access, err := GenerateAccessToken(u, s.accessTTL)
	if err != nil {
		return nil, err
	}

	refresh := uuid.NewString()
	if err := s.repo.CreateRefreshToken(ctx, u.ID, refresh, time.Now().Add(s.refreshTTL)); err != nil {
		return nil, err
	}

	return &AuthResult{
		User:         u,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}
