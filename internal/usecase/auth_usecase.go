package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/logger"
	repo "app/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// アクセストークンの発行。実装はmain.goで注入する。
type TokenIssuer interface {
	Issue(userID int64, role model.Role, now time.Time) (token string, expiresAt time.Time, err error)
}

type AuthUsecase struct {
	users  repo.UserRepository
	issuer TokenIssuer
	logger *zap.Logger
}

func NewAuthUsecase(users repo.UserRepository, issuer TokenIssuer) *AuthUsecase {
	return &AuthUsecase{users: users, issuer: issuer, logger: logger.Get()}
}

type RegisterInput struct {
	Email    string
	Name     string
	Password string
	Role     model.Role
}

func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (int64, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return 0, NewValidationError("invalid email")
	}
	if len(in.Password) < 8 {
		return 0, NewValidationError("password too short")
	}
	//ADMINは自己登録させない
	if !in.Role.Valid() || in.Role == model.RoleAdmin {
		return 0, NewValidationError("invalid role")
	}

	existing, err := u.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return 0, NewPersistenceError("find user", err)
	}
	if existing != nil {
		return 0, NewValidationError("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), 12)
	if err != nil {
		return 0, NewPersistenceError("hash password", err)
	}

	now := time.Now()
	user := model.User{
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: string(hash),
		Role:         in.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.users.Create(ctx, &user); err != nil {
		return 0, NewPersistenceError("create user", err)
	}

	u.logger.Info("user registered",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)))
	return user.ID, nil
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginOutput struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
}

func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (LoginOutput, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || in.Password == "" {
		return LoginOutput{}, NewValidationError("email and password required")
	}

	user, err := u.users.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return LoginOutput{}, NewUnauthenticatedError("invalid email or password")
	}
	if err != nil {
		return LoginOutput{}, NewPersistenceError("find user", err)
	}
	if !user.IsActive {
		return LoginOutput{}, NewUnauthenticatedError("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return LoginOutput{}, NewUnauthenticatedError("invalid email or password")
	}

	now := time.Now()
	token, expiresAt, err := u.issuer.Issue(user.ID, user.Role, now)
	if err != nil {
		return LoginOutput{}, NewPersistenceError("issue token", err)
	}

	user.LastLoginAt = &now
	if err := u.users.Update(ctx, user); err != nil {
		//ログイン自体は成立させる
		u.logger.Warn("update last_login_at failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	return LoginOutput{
		Token:     token,
		ExpiresAt: expiresAt,
		UserID:    user.ID,
		Role:      string(user.Role),
	}, nil
}
