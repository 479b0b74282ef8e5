package service

import (
	"context"
	"fmt"
	"time"

	"betonflow/internal/config"
	"betonflow/internal/model"
	"betonflow/internal/policy"
	"betonflow/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// --- DTOs ---

type RegisterUserRequest struct {
	Username string `json:"username" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

// --- Interface ---

type UserService interface {
	Register(ctx context.Context, actor Actor, req RegisterUserRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenPair, *UserResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	GetByID(ctx context.Context, id string) (*UserResponse, error)
	List(ctx context.Context, actor Actor, page, limit int) ([]UserResponse, int64, error)
}

type userService struct {
	repo repository.UserRepository
	auth config.AuthConfig
}

func NewUserService(repo repository.UserRepository, auth config.AuthConfig) UserService {
	return &userService{repo: repo, auth: auth}
}

// --- Implementation ---

func (s *userService) Register(ctx context.Context, actor Actor, req RegisterUserRequest) (*UserResponse, error) {
	if !policy.Allow(actor.Role, policy.UserManage, "") {
		return nil, ErrPermissionDenied
	}
	if !model.ValidRole(req.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, req.Role)
	}

	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("%w: username already exists", ErrInvalidInput)
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("%w: email already exists", ErrInvalidInput)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: string(hashed),
		Role:     req.Role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return mapUser(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*TokenPair, *UserResponse, error) {
	user, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid username or password", ErrPermissionDenied)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, nil, fmt.Errorf("%w: invalid username or password", ErrPermissionDenied)
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return pair, mapUser(user), nil
}

func (s *userService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	stored, err := s.repo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown refresh token", ErrPermissionDenied)
	}
	if time.Now().After(stored.ExpiresAt) {
		_ = s.repo.DeleteRefreshToken(ctx, refreshToken)
		return nil, fmt.Errorf("%w: refresh token expired", ErrPermissionDenied)
	}

	user, err := s.repo.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}

	// Rotate: old token is single-use.
	if err := s.repo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user)
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.repo.DeleteRefreshToken(ctx, refreshToken)
}

func (s *userService) GetByID(ctx context.Context, id string) (*UserResponse, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: user id", ErrInvalidInput)
	}
	user, err := s.repo.GetByID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	return mapUser(user), nil
}

func (s *userService) List(ctx context.Context, actor Actor, page, limit int) ([]UserResponse, int64, error) {
	if !policy.Allow(actor.Role, policy.UserManage, "") {
		return nil, 0, ErrPermissionDenied
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	users, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	result := make([]UserResponse, 0, len(users))
	for i := range users {
		result = append(result, *mapUser(&users[i]))
	}
	return result, total, nil
}

// --- Helpers ---

func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenPair, error) {
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"name": user.FullName,
		"exp":  time.Now().Add(s.auth.AccessTokenTTL).Unix(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.auth.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh := uuid.NewString()
	if err := s.repo.SaveRefreshToken(ctx, &model.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: time.Now().Add(s.auth.RefreshTokenTTL),
	}); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func mapUser(user *model.User) *UserResponse {
	return &UserResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		FullName: user.FullName,
		Email:    user.Email,
		Phone:    user.Phone,
		Role:     user.Role,
	}
}
