package service

import (
	"context"
	"fmt"

	"peerpay/internal/core/domain"
	"peerpay/internal/core/ports"
	"peerpay/pkg/apperror"

	"github.com/google/uuid"
)

// QueryServiceImpl implements ports.QueryService: read-only projections over
// the account and transfer stores. Callers may only see their own account
// and transfers they are a party to.
type QueryServiceImpl struct {
	accountRepo  ports.AccountRepository
	transferRepo ports.TransferRepository
}

// NewQueryService creates a new QueryServiceImpl.
func NewQueryService(accountRepo ports.AccountRepository, transferRepo ports.TransferRepository) *QueryServiceImpl {
	return &QueryServiceImpl{
		accountRepo:  accountRepo,
		transferRepo: transferRepo,
	}
}

// GetAccount returns the caller's own account.
func (s *QueryServiceImpl) GetAccount(ctx context.Context, callerID uuid.UUID) (*domain.Account, error) {
	account, err := s.accountRepo.GetByUserID(ctx, callerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load account by user: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}
	return account, nil
}

// ListAccounts returns the recipient directory. Any authenticated user may
// browse it; it carries account ids and usernames only.
func (s *QueryServiceImpl) ListAccounts(ctx context.Context) ([]domain.AccountListing, error) {
	listings, err := s.accountRepo.ListAll(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list accounts: %w", err))
	}
	return listings, nil
}

// GetBalance returns the current balance of an account owned by the caller.
func (s *QueryServiceImpl) GetBalance(ctx context.Context, callerID uuid.UUID, accountID uuid.UUID) (int64, error) {
	account, err := s.ownedAccount(ctx, callerID, accountID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// GetTransfer returns a single transfer, visible only to its two parties.
func (s *QueryServiceImpl) GetTransfer(ctx context.Context, callerID uuid.UUID, transferID uuid.UUID) (*domain.Transfer, error) {
	transfer, err := s.transferRepo.GetByID(ctx, transferID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load transfer: %w", err))
	}
	if transfer == nil {
		return nil, apperror.ErrNotFound("transfer")
	}

	caller, err := s.accountRepo.GetByUserID(ctx, callerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load caller account: %w", err))
	}
	if caller == nil || !transfer.Involves(caller.ID) {
		return nil, apperror.ErrForbidden()
	}
	return transfer, nil
}

// ListTransfers returns the full history for an account owned by the caller,
// in insertion order.
func (s *QueryServiceImpl) ListTransfers(ctx context.Context, callerID uuid.UUID, accountID uuid.UUID) ([]domain.Transfer, error) {
	if _, err := s.ownedAccount(ctx, callerID, accountID); err != nil {
		return nil, err
	}
	transfers, err := s.transferRepo.ListForAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list transfers: %w", err))
	}
	return transfers, nil
}

// ListPending returns the pending transfers for an account owned by the caller.
func (s *QueryServiceImpl) ListPending(ctx context.Context, callerID uuid.UUID, accountID uuid.UUID) ([]domain.Transfer, error) {
	if _, err := s.ownedAccount(ctx, callerID, accountID); err != nil {
		return nil, err
	}
	transfers, err := s.transferRepo.ListPending(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list pending transfers: %w", err))
	}
	return transfers, nil
}

// ownedAccount loads an account and verifies the caller owns it.
func (s *QueryServiceImpl) ownedAccount(ctx context.Context, callerID uuid.UUID, accountID uuid.UUID) (*domain.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}
	if !account.OwnedBy(callerID) {
		return nil, apperror.ErrForbidden()
	}
	return account, nil
}
