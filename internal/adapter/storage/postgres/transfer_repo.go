package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"peerpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransferRepo implements ports.TransferRepository.
type TransferRepo struct {
	pool Pool
}

// NewTransferRepo creates a new TransferRepo.
func NewTransferRepo(pool Pool) *TransferRepo {
	return &TransferRepo{pool: pool}
}

const transferColumns = `id, transfer_type, status, from_account_id, to_account_id, amount, created_at, processed_at`

// Create inserts a new transfer record within a database transaction.
func (r *TransferRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transfer) error {
	query := `INSERT INTO transfers (id, transfer_type, status, from_account_id, to_account_id, amount, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.Type, t.Status, t.FromAccountID, t.ToAccountID,
		t.Amount, t.CreatedAt, t.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// GetByID fetches a transfer by UUID. Returns nil when no row matches.
func (r *TransferRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`

	return scanTransfer(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a transfer by UUID with pessimistic locking.
// This MUST be called within a transaction; the row stays locked until the
// transaction ends, so concurrent responders serialize here.
func (r *TransferRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1 FOR UPDATE`

	return scanTransfer(tx.QueryRow(ctx, query, id))
}

// UpdateStatus transitions a transfer's status within a database transaction,
// stamping processed_at. The state machine is enforced here as well as in the
// service: only a PENDING row may change, and only to a terminal status.
func (r *TransferRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransferStatus) error {
	if !domain.TransferStatusPending.CanTransitionTo(status) {
		return domain.ErrInvalidTransition
	}

	query := `UPDATE transfers SET status = $1, processed_at = $2
		WHERE id = $3 AND status = $4`

	tag, err := tx.Exec(ctx, query, status, time.Now().UTC(), id, domain.TransferStatusPending)
	if err != nil {
		return fmt.Errorf("update transfer status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// No row changed: the transfer is missing or already settled. Probe
	// existence to tell the two apart.
	var exists bool
	probe := `SELECT EXISTS(SELECT 1 FROM transfers WHERE id = $1)`
	if err := tx.QueryRow(ctx, probe, id).Scan(&exists); err != nil {
		return fmt.Errorf("probe transfer existence: %w", err)
	}
	if !exists {
		return domain.ErrTransferNotFound
	}
	return domain.ErrInvalidTransition
}

// ListForAccount returns every transfer in which the account appears as
// either side, oldest first.
func (r *TransferRepo) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers
		WHERE from_account_id = $1 OR to_account_id = $1
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list transfers for account: %w", err)
	}
	defer rows.Close()

	return collectTransfers(rows)
}

// ListPending returns the pending transfers in which the account appears as
// either side, oldest first.
func (r *TransferRepo) ListPending(ctx context.Context, accountID uuid.UUID) ([]domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers
		WHERE status = $1 AND (from_account_id = $2 OR to_account_id = $2)
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, domain.TransferStatusPending, accountID)
	if err != nil {
		return nil, fmt.Errorf("list pending transfers: %w", err)
	}
	defer rows.Close()

	return collectTransfers(rows)
}

func scanTransfer(row pgx.Row) (*domain.Transfer, error) {
	t := &domain.Transfer{}
	err := row.Scan(
		&t.ID, &t.Type, &t.Status, &t.FromAccountID, &t.ToAccountID,
		&t.Amount, &t.CreatedAt, &t.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transfer: %w", err)
	}
	return t, nil
}

func collectTransfers(rows pgx.Rows) ([]domain.Transfer, error) {
	var transfers []domain.Transfer
	for rows.Next() {
		var t domain.Transfer
		if err := rows.Scan(
			&t.ID, &t.Type, &t.Status, &t.FromAccountID, &t.ToAccountID,
			&t.Amount, &t.CreatedAt, &t.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transfer row: %w", err)
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer rows: %w", err)
	}
	return transfers, nil
}
