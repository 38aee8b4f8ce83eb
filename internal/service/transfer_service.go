package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"peerpay/internal/core/domain"
	"peerpay/internal/core/ports"
	"peerpay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TransferServiceImpl implements ports.TransferService. It is the only
// component that mutates balances or writes transfer records; both sides of
// a movement plus the ledger insert commit in one database transaction, so
// a failure at any step leaves no partial effect.
type TransferServiceImpl struct {
	accountRepo  ports.AccountRepository
	transferRepo ports.TransferRepository
	transactor   ports.DBTransactor
	log          zerolog.Logger
}

// NewTransferService creates a new TransferServiceImpl.
func NewTransferService(
	accountRepo ports.AccountRepository,
	transferRepo ports.TransferRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *TransferServiceImpl {
	return &TransferServiceImpl{
		accountRepo:  accountRepo,
		transferRepo: transferRepo,
		transactor:   transactor,
		log:          log,
	}
}

// InitiateSend validates and applies an immediate transfer: the caller's
// account is debited, the destination credited, and an APPROVED ledger
// record written, all atomically.
func (s *TransferServiceImpl) InitiateSend(ctx context.Context, req ports.SendRequest) (*domain.Transfer, error) {
	if err := validateTransferShape(req.FromAccountID, req.ToAccountID, req.Amount); err != nil {
		return nil, err
	}

	// The caller must own the account being debited.
	from, err := s.accountRepo.GetByID(ctx, req.FromAccountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load source account: %w", err))
	}
	if from == nil {
		return nil, apperror.ErrNotFound("account")
	}
	if !from.OwnedBy(req.CallerID) {
		return nil, apperror.ErrForbidden()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Debit first: the conditional update rejects overdrafts, so of two
	// racing sends only the first committer succeeds.
	if _, err := s.accountRepo.Adjust(ctx, dbTx, req.FromAccountID, -req.Amount); err != nil {
		return nil, mapAdjustError(err, "source account")
	}

	// Credit the destination. On failure (e.g. the account vanished) the
	// deferred rollback reverses the debit before the error surfaces.
	if _, err := s.accountRepo.Adjust(ctx, dbTx, req.ToAccountID, req.Amount); err != nil {
		return nil, mapAdjustError(err, "destination account")
	}

	now := time.Now().UTC()
	transfer := &domain.Transfer{
		ID:            uuid.New(),
		Type:          domain.TransferTypeSend,
		Status:        domain.TransferStatusApproved,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		CreatedAt:     now,
		ProcessedAt:   &now,
	}
	if err := s.transferRepo.Create(ctx, dbTx, transfer); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transfer record: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("transfer_id", transfer.ID.String()).
		Str("from_account", req.FromAccountID.String()).
		Str("to_account", req.ToAccountID.String()).
		Int64("amount", req.Amount).
		Msg("send transfer approved")

	return transfer, nil
}

// InitiateRequest records a request-to-receive: the caller (owner of the
// destination account) asks the owner of the source account to pay. No
// balance changes until the payer approves.
func (s *TransferServiceImpl) InitiateRequest(ctx context.Context, req ports.RequestRequest) (*domain.Transfer, error) {
	if err := validateTransferShape(req.FromAccountID, req.ToAccountID, req.Amount); err != nil {
		return nil, err
	}

	// Roles reversed relative to a send: the caller must own the account
	// that will be credited.
	to, err := s.accountRepo.GetByID(ctx, req.ToAccountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load destination account: %w", err))
	}
	if to == nil {
		return nil, apperror.ErrNotFound("account")
	}
	if !to.OwnedBy(req.CallerID) {
		return nil, apperror.ErrForbidden()
	}

	// The payer's account must exist before a request is parked on it.
	payer, err := s.accountRepo.GetByID(ctx, req.FromAccountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load source account: %w", err))
	}
	if payer == nil {
		return nil, apperror.ErrNotFound("account")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	transfer := &domain.Transfer{
		ID:            uuid.New(),
		Type:          domain.TransferTypeRequest,
		Status:        domain.TransferStatusPending,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.transferRepo.Create(ctx, dbTx, transfer); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transfer record: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("transfer_id", transfer.ID.String()).
		Str("payer_account", req.FromAccountID.String()).
		Str("requester_account", req.ToAccountID.String()).
		Int64("amount", req.Amount).
		Msg("transfer request created")

	return transfer, nil
}

// RespondToPending lets the designated payer approve or reject a pending
// request. The transfer row is locked for the duration of the transaction,
// so of two concurrent responses exactly one observes PENDING.
func (s *TransferServiceImpl) RespondToPending(ctx context.Context, transferID uuid.UUID, responderID uuid.UUID, approve bool) (*domain.Transfer, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	transfer, err := s.transferRepo.GetByIDForUpdate(ctx, dbTx, transferID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock transfer: %w", err))
	}
	if transfer == nil {
		return nil, apperror.ErrNotFound("transfer")
	}
	if transfer.Status != domain.TransferStatusPending {
		return nil, apperror.ErrInvalidTransition()
	}

	// Only the owner of the debited account may respond.
	payer, err := s.accountRepo.GetByID(ctx, transfer.FromAccountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load payer account: %w", err))
	}
	if payer == nil {
		return nil, apperror.ErrNotFound("account")
	}
	if !payer.OwnedBy(responderID) {
		return nil, apperror.ErrForbidden()
	}

	newStatus := domain.TransferStatusRejected
	if approve {
		newStatus = domain.TransferStatusApproved

		if _, err := s.accountRepo.Adjust(ctx, dbTx, transfer.FromAccountID, -transfer.Amount); err != nil {
			return nil, mapAdjustError(err, "source account")
		}
		if _, err := s.accountRepo.Adjust(ctx, dbTx, transfer.ToAccountID, transfer.Amount); err != nil {
			return nil, mapAdjustError(err, "destination account")
		}
	}

	if err := s.transferRepo.UpdateStatus(ctx, dbTx, transferID, newStatus); err != nil {
		switch {
		case errors.Is(err, domain.ErrTransferNotFound):
			return nil, apperror.ErrNotFound("transfer")
		case errors.Is(err, domain.ErrInvalidTransition):
			return nil, apperror.ErrInvalidTransition()
		default:
			return nil, apperror.InternalError(fmt.Errorf("update transfer status: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	now := time.Now().UTC()
	transfer.Status = newStatus
	transfer.ProcessedAt = &now

	s.log.Info().
		Str("transfer_id", transferID.String()).
		Str("responder", responderID.String()).
		Bool("approved", approve).
		Msg("pending transfer resolved")

	return transfer, nil
}

// validateTransferShape enforces the structural transfer invariants: the two
// accounts are distinct and the amount is strictly positive.
func validateTransferShape(from, to uuid.UUID, amount int64) error {
	if from == to {
		return apperror.ErrInvalidTransfer("self-transfer")
	}
	if amount <= 0 {
		return apperror.ErrInvalidTransfer("non-positive amount")
	}
	return nil
}

// mapAdjustError translates the account store's sentinel errors into the
// typed failures surfaced to callers.
func mapAdjustError(err error, entity string) error {
	switch {
	case errors.Is(err, domain.ErrInsufficientBalance):
		return apperror.ErrInsufficientFunds()
	case errors.Is(err, domain.ErrAccountNotFound):
		return apperror.ErrNotFound(entity)
	default:
		return apperror.InternalError(fmt.Errorf("adjust %s: %w", entity, err))
	}
}
