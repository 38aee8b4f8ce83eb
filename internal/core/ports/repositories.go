package ports

import (
	"context"

	"peerpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// AccountRepository defines persistence operations for accounts.
// Adjust is the only balance mutation and must be called inside a database
// transaction so a transfer's debit and credit commit or roll back together.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
	// Adjust applies delta (positive or negative) to the stored balance as a
	// single atomic conditional update and returns the new balance. It
	// returns domain.ErrInsufficientBalance if the result would be negative,
	// leaving the balance unchanged, and domain.ErrAccountNotFound if the
	// account does not exist.
	Adjust(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, delta int64) (int64, error)
	// ListAll returns a directory of every account with its owner's
	// username, ordered by username.
	ListAll(ctx context.Context) ([]domain.AccountListing, error)
}

// TransferRepository defines persistence operations for the transfer ledger.
// A transfer's amount, type, and account references are immutable after
// Create; only the status may change, via UpdateStatus.
type TransferRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transfer *domain.Transfer) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error)
	// GetByIDForUpdate locks the transfer row for the duration of the
	// transaction, serializing concurrent responses to the same transfer.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transfer, error)
	// UpdateStatus transitions the transfer's status. It returns
	// domain.ErrTransferNotFound if no row matched and
	// domain.ErrInvalidTransition if the stored status forbids the change,
	// leaving the row unchanged.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransferStatus) error
	// ListForAccount returns every transfer where the account is either
	// party, in insertion order.
	ListForAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Transfer, error)
	// ListPending returns the pending subset of ListForAccount.
	ListPending(ctx context.Context, accountID uuid.UUID) ([]domain.Transfer, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
