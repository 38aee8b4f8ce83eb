package service

import (
	"context"
	"fmt"
	"time"

	"peerpay/internal/core/domain"
	"peerpay/internal/core/ports"
	"peerpay/pkg/apperror"

	"github.com/google/uuid"
)

// AuthServiceImpl implements ports.AuthService. Registration is the only
// place an account is created; the transfer engine never creates accounts.
type AuthServiceImpl struct {
	userRepo       ports.UserRepository
	accountRepo    ports.AccountRepository
	hashSvc        ports.HashService
	tokenSvc       ports.TokenService
	openingBalance int64 // cents seeded into every new account
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	userRepo ports.UserRepository,
	accountRepo ports.AccountRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	openingBalance int64,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo:       userRepo,
		accountRepo:    accountRepo,
		hashSvc:        hashSvc,
		tokenSvc:       tokenSvc,
		openingBalance: openingBalance,
	}
}

// Register creates a new user together with their account, seeded with the
// configured opening balance.
func (s *AuthServiceImpl) Register(ctx context.Context, username, password string) (*ports.RegisterResponse, error) {
	existing, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check username: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrUsernameExists()
	}

	passwordHash, err := s.hashSvc.Hash(password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create user: %w", err))
	}

	account := &domain.Account{
		ID:        uuid.New(),
		UserID:    user.ID,
		Balance:   s.openingBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create account: %w", err))
	}

	return &ports.RegisterResponse{
		UserID:    user.ID,
		AccountID: account.ID,
		Balance:   account.Balance,
	}, nil
}

// Login validates credentials and returns a JWT token.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, user.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiry, err := s.tokenSvc.Generate(user.ID, user.Username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return token, expiry, nil
}
