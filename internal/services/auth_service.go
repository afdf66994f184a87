package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"task-manager.com/task-manager/internal/auth"
	dto "task-manager.com/task-manager/internal/data_models"
	apperrors "task-manager.com/task-manager/internal/errors"
	model "task-manager.com/task-manager/internal/models"
	repository "task-manager.com/task-manager/internal/repositories"
)

const minPasswordLength = 6

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type AuthService struct {
	users    UserStore
	hasher   auth.PasswordHasher
	tokens   auth.TokenIssuer
	validate *validator.Validate
	logger   *slog.Logger
}

func NewAuthService(users UserStore, hasher auth.PasswordHasher, tokens auth.TokenIssuer, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		validate: validator.New(),
		logger:   logger.With("component", "auth_service"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, email, password string) (*dto.AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.ErrCredentialsRequired
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return nil, apperrors.Validation("Invalid email format")
	}
	if err := s.validate.Var(password, "min="+strconv.Itoa(minPasswordLength)); err != nil {
		return nil, apperrors.Validation("Password must be at least 6 characters")
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Internal("Registration failed", err)
	}
	if exists {
		return nil, apperrors.ErrUserExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperrors.Internal("Registration failed", err)
	}

	user := &model.User{Email: email, Password: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, apperrors.ErrUserExists
		}
		return nil, apperrors.Internal("Registration failed", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, apperrors.Internal("Registration failed", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return &dto.AuthResult{Token: token, User: dto.NewUserResponse(*user)}, nil
}

// Login answers an unknown email and a wrong password with the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*dto.AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.ErrCredentialsRequired
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.Internal("Login failed", err)
	}

	if !s.hasher.Verify(user.Password, password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, apperrors.Internal("Login failed", err)
	}

	return &dto.AuthResult{Token: token, User: dto.NewUserResponse(*user)}, nil
}
