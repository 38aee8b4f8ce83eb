package postgres

import (
	"context"
	"errors"
	"fmt"

	"peerpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Create inserts a new account into the database.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (id, user_id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query, a.ID, a.UserID, a.Balance, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByID fetches an account by its UUID. Returns nil when no row matches.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT id, user_id, balance, created_at, updated_at FROM accounts WHERE id = $1`

	a := &domain.Account{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&a.ID, &a.UserID, &a.Balance, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by id: %w", err)
	}
	return a, nil
}

// GetByUserID fetches the account owned by a user. Returns nil when no row matches.
func (r *AccountRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	query := `SELECT id, user_id, balance, created_at, updated_at FROM accounts WHERE user_id = $1`

	a := &domain.Account{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(&a.ID, &a.UserID, &a.Balance, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by user id: %w", err)
	}
	return a, nil
}

// ListAll returns the account directory: every account id joined with its
// owner's username, ordered by username. Balances stay private.
func (r *AccountRepo) ListAll(ctx context.Context) ([]domain.AccountListing, error) {
	query := `SELECT a.id, u.username FROM accounts a
		JOIN users u ON u.id = a.user_id
		ORDER BY u.username`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var listings []domain.AccountListing
	for rows.Next() {
		var l domain.AccountListing
		if err := rows.Scan(&l.AccountID, &l.Username); err != nil {
			return nil, fmt.Errorf("scan account listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account listings: %w", err)
	}
	return listings, nil
}

// Adjust applies a signed delta to an account's balance within a database
// transaction and returns the new balance. The condition in the UPDATE makes
// overdraft rejection atomic: the row only changes when the resulting balance
// stays non-negative, so two racing debits cannot both drain the same funds.
// Returns domain.ErrInsufficientBalance or domain.ErrAccountNotFound when the
// row did not change.
func (r *AccountRepo) Adjust(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, delta int64) (int64, error) {
	query := `UPDATE accounts SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1 AND balance + $2 >= 0
		RETURNING balance`

	var balance int64
	err := tx.QueryRow(ctx, query, accountID, delta).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}

	// The update matched nothing: either the account does not exist or the
	// delta would overdraw it. Probe existence to tell the two apart.
	var exists bool
	probe := `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`
	if err := tx.QueryRow(ctx, probe, accountID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("probe account existence: %w", err)
	}
	if !exists {
		return 0, domain.ErrAccountNotFound
	}
	return 0, domain.ErrInsufficientBalance
}
