package ports

import (
	"context"
	"time"

	"peerpay/internal/core/domain"

	"github.com/google/uuid"
)

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID uuid.UUID, username string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID   uuid.UUID
	Username string
}

// --- Service Ports (Business Logic) ---

// TransferService is the transfer engine: it validates a proposed movement,
// atomically mutates the two balances, and records the ledger entry.
type TransferService interface {
	InitiateSend(ctx context.Context, req SendRequest) (*domain.Transfer, error)
	InitiateRequest(ctx context.Context, req RequestRequest) (*domain.Transfer, error)
	RespondToPending(ctx context.Context, transferID uuid.UUID, responderID uuid.UUID, approve bool) (*domain.Transfer, error)
}

// SendRequest holds validated input for an immediate send.
type SendRequest struct {
	CallerID      uuid.UUID
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	Amount        int64 // cents
}

// RequestRequest holds validated input for a request-to-receive.
// The caller owns ToAccountID and asks the owner of FromAccountID to pay.
type RequestRequest struct {
	CallerID      uuid.UUID
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	Amount        int64 // cents
}

// QueryService provides the read-side projections over the two stores.
type QueryService interface {
	GetAccount(ctx context.Context, callerID uuid.UUID) (*domain.Account, error)
	// ListAccounts returns the recipient directory visible to any
	// authenticated user. Balances are not included.
	ListAccounts(ctx context.Context) ([]domain.AccountListing, error)
	GetBalance(ctx context.Context, callerID uuid.UUID, accountID uuid.UUID) (int64, error)
	GetTransfer(ctx context.Context, callerID uuid.UUID, transferID uuid.UUID) (*domain.Transfer, error)
	ListTransfers(ctx context.Context, callerID uuid.UUID, accountID uuid.UUID) ([]domain.Transfer, error)
	ListPending(ctx context.Context, callerID uuid.UUID, accountID uuid.UUID) ([]domain.Transfer, error)
}

// AuthService defines registration and login.
type AuthService interface {
	// Register creates the user and their account exactly once, seeding the
	// configured opening balance.
	Register(ctx context.Context, username, password string) (*RegisterResponse, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}

// RegisterResponse holds the registration result.
type RegisterResponse struct {
	UserID    uuid.UUID
	AccountID uuid.UUID
	Balance   int64
}

// HealthChecker checks external dependency health.
type HealthChecker interface {
	// Ping verifies connectivity. Returns nil if healthy.
	Ping(ctx context.Context) error
	// Name returns the dependency name (e.g., "postgresql", "redis").
	Name() string
}
