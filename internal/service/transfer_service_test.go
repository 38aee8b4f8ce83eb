package service

import (
	"context"
	"testing"

	"peerpay/internal/core/domain"
	"peerpay/internal/core/ports"
	"peerpay/internal/core/ports/mocks"
	"peerpay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type transferTestDeps struct {
	svc          *TransferServiceImpl
	accountRepo  *mocks.MockAccountRepository
	transferRepo *mocks.MockTransferRepository
	transactor   *mocks.MockDBTransactor
	ctrl         *gomock.Controller
}

func setupTransferService(t *testing.T) *transferTestDeps {
	ctrl := gomock.NewController(t)
	d := &transferTestDeps{
		accountRepo:  mocks.NewMockAccountRepository(ctrl),
		transferRepo: mocks.NewMockTransferRepository(ctrl),
		transactor:   mocks.NewMockDBTransactor(ctrl),
		ctrl:         ctrl,
	}
	d.svc = NewTransferService(d.accountRepo, d.transferRepo, d.transactor, zerolog.Nop())
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func ownedAccount(id, userID uuid.UUID, balance int64) *domain.Account {
	return &domain.Account{ID: id, UserID: userID, Balance: balance}
}

// ==================== InitiateSend Tests ====================

func TestTransferService_InitiateSend_Success(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	callerID := uuid.New()
	fromID := uuid.New()
	toID := uuid.New()
	tx := &mockTx{}

	req := ports.SendRequest{
		CallerID:      callerID,
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        3000,
	}

	d.accountRepo.EXPECT().GetByID(ctx, fromID).Return(ownedAccount(fromID, callerID, 10000), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().Adjust(ctx, tx, fromID, int64(-3000)).Return(int64(7000), nil)
	d.accountRepo.EXPECT().Adjust(ctx, tx, toID, int64(3000)).Return(int64(8000), nil)
	d.transferRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	result, err := d.svc.InitiateSend(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, domain.TransferTypeSend, result.Type)
	assert.Equal(t, domain.TransferStatusApproved, result.Status)
	assert.Equal(t, int64(3000), result.Amount)
	assert.Equal(t, fromID, result.FromAccountID)
	assert.Equal(t, toID, result.ToAccountID)
	assert.NotNil(t, result.ProcessedAt)
}

func TestTransferService_InitiateSend_SelfTransfer(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	accountID := uuid.New()
	req := ports.SendRequest{
		CallerID:      uuid.New(),
		FromAccountID: accountID,
		ToAccountID:   accountID,
		Amount:        1000,
	}

	result, err := d.svc.InitiateSend(context.Background(), req)
	assert.Nil(t, result)
	assertAppError(t, err, "TRF_001")
}

func TestTransferService_InitiateSend_NonPositiveAmount(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	for _, amount := range []int64{0, -500} {
		req := ports.SendRequest{
			CallerID:      uuid.New(),
			FromAccountID: uuid.New(),
			ToAccountID:   uuid.New(),
			Amount:        amount,
		}

		result, err := d.svc.InitiateSend(context.Background(), req)
		assert.Nil(t, result)
		assertAppError(t, err, "TRF_001")
	}
}

func TestTransferService_InitiateSend_SourceNotFound(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	fromID := uuid.New()

	d.accountRepo.EXPECT().GetByID(ctx, fromID).Return(nil, nil)

	result, err := d.svc.InitiateSend(ctx, ports.SendRequest{
		CallerID:      uuid.New(),
		FromAccountID: fromID,
		ToAccountID:   uuid.New(),
		Amount:        1000,
	})
	assert.Nil(t, result)
	assertAppError(t, err, "TRF_003")
}

func TestTransferService_InitiateSend_CallerNotOwner(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	fromID := uuid.New()

	// Account is owned by somebody else.
	d.accountRepo.EXPECT().GetByID(ctx, fromID).Return(ownedAccount(fromID, uuid.New(), 5000), nil)

	result, err := d.svc.InitiateSend(ctx, ports.SendRequest{
		CallerID:      uuid.New(),
		FromAccountID: fromID,
		ToAccountID:   uuid.New(),
		Amount:        1000,
	})
	assert.Nil(t, result)
	assertAppError(t, err, "TRF_004")
}

func TestTransferService_InitiateSend_InsufficientFunds(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	callerID := uuid.New()
	fromID := uuid.New()
	toID := uuid.New()
	tx := &mockTx{}

	d.accountRepo.EXPECT().GetByID(ctx, fromID).Return(ownedAccount(fromID, callerID, 500), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().Adjust(ctx, tx, fromID, int64(-80000)).Return(int64(0), domain.ErrInsufficientBalance)
	// No credit and no ledger record after a failed debit.

	result, err := d.svc.InitiateSend(ctx, ports.SendRequest{
		CallerID:      callerID,
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        80000,
	})
	assert.Nil(t, result)
	assertAppError(t, err, "TRF_002")
}

func TestTransferService_InitiateSend_CreditFailsRollsBackDebit(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	callerID := uuid.New()
	fromID := uuid.New()
	toID := uuid.New()
	tx := &mockTx{}

	d.accountRepo.EXPECT().GetByID(ctx, fromID).Return(ownedAccount(fromID, callerID, 10000), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().Adjust(ctx, tx, fromID, int64(-1000)).Return(int64(9000), nil)
	// Destination vanished: the transaction rolls back, so no ledger record
	// is written and the debit never commits.
	d.accountRepo.EXPECT().Adjust(ctx, tx, toID, int64(1000)).Return(int64(0), domain.ErrAccountNotFound)

	result, err := d.svc.InitiateSend(ctx, ports.SendRequest{
		CallerID:      callerID,
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        1000,
	})
	assert.Nil(t, result)
	assertAppError(t, err, "TRF_003")
}

// ==================== InitiateRequest Tests ====================

func TestTransferService_InitiateRequest_Success(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	callerID := uuid.New()
	payerAccountID := uuid.New()
	requesterAccountID := uuid.New()
	tx := &mockTx{}

	d.accountRepo.EXPECT().GetByID(ctx, requesterAccountID).Return(ownedAccount(requesterAccountID, callerID, 0), nil)
	d.accountRepo.EXPECT().GetByID(ctx, payerAccountID).Return(ownedAccount(payerAccountID, uuid.New(), 5000), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.transferRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, tr *domain.Transfer) error {
			assert.Equal(t, domain.TransferStatusPending, tr.Status)
			assert.Equal(t, domain.TransferTypeRequest, tr.Type)
			return nil
		})

	result, err := d.svc.InitiateRequest(ctx, ports.RequestRequest{
		CallerID:      callerID,
		FromAccountID: payerAccountID,
		ToAccountID:   requesterAccountID,
		Amount:        2000,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusPending, result.Status)
	assert.Nil(t, result.ProcessedAt)
}

func TestTransferService_InitiateRequest_CallerNotRequesteeOwner(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	requesterAccountID := uuid.New()

	d.accountRepo.EXPECT().GetByID(ctx, requesterAccountID).Return(ownedAccount(requesterAccountID, uuid.New(), 0), nil)

	result, err := d.svc.InitiateRequest(ctx, ports.RequestRequest{
		CallerID:      uuid.New(),
		FromAccountID: uuid.New(),
		ToAccountID:   requesterAccountID,
		Amount:        2000,
	})
	assert.Nil(t, result)
	assertAppError(t, err, "TRF_004")
}

func TestTransferService_InitiateRequest_PayerNotFound(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	callerID := uuid.New()
	payerAccountID := uuid.New()
	requesterAccountID := uuid.New()

	d.accountRepo.EXPECT().GetByID(ctx, requesterAccountID).Return(ownedAccount(requesterAccountID, callerID, 0), nil)
	d.accountRepo.EXPECT().GetByID(ctx, payerAccountID).Return(nil, nil)

	result, err := d.svc.InitiateRequest(ctx, ports.RequestRequest{
		CallerID:      callerID,
		FromAccountID: payerAccountID,
		ToAccountID:   requesterAccountID,
		Amount:        2000,
	})
	assert.Nil(t, result)
	assertAppError(t, err, "TRF_003")
}

// ==================== RespondToPending Tests ====================

func pendingTransfer(id, from, to uuid.UUID, amount int64) *domain.Transfer {
	return &domain.Transfer{
		ID:            id,
		Type:          domain.TransferTypeRequest,
		Status:        domain.TransferStatusPending,
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        amount,
	}
}

func TestTransferService_RespondToPending_Approve(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payerID := uuid.New()
	transferID := uuid.New()
	fromID := uuid.New()
	toID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.transferRepo.EXPECT().GetByIDForUpdate(ctx, tx, transferID).Return(pendingTransfer(transferID, fromID, toID, 2000), nil)
	d.accountRepo.EXPECT().GetByID(ctx, fromID).Return(ownedAccount(fromID, payerID, 7000), nil)
	d.accountRepo.EXPECT().Adjust(ctx, tx, fromID, int64(-2000)).Return(int64(5000), nil)
	d.accountRepo.EXPECT().Adjust(ctx, tx, toID, int64(2000)).Return(int64(12000), nil)
	d.transferRepo.EXPECT().UpdateStatus(ctx, tx, transferID, domain.TransferStatusApproved).Return(nil)

	result, err := d.svc.RespondToPending(ctx, transferID, payerID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusApproved, result.Status)
	assert.NotNil(t, result.ProcessedAt)
}

func TestTransferService_RespondToPending_Reject(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payerID := uuid.New()
	transferID := uuid.New()
	fromID := uuid.New()
	toID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.transferRepo.EXPECT().GetByIDForUpdate(ctx, tx, transferID).Return(pendingTransfer(transferID, fromID, toID, 2000), nil)
	d.accountRepo.EXPECT().GetByID(ctx, fromID).Return(ownedAccount(fromID, payerID, 7000), nil)
	// Rejection must not touch any balance.
	d.transferRepo.EXPECT().UpdateStatus(ctx, tx, transferID, domain.TransferStatusRejected).Return(nil)

	result, err := d.svc.RespondToPending(ctx, transferID, payerID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusRejected, result.Status)
}

func TestTransferService_RespondToPending_NotFound(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	transferID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.transferRepo.EXPECT().GetByIDForUpdate(ctx, tx, transferID).Return(nil, nil)

	result, err := d.svc.RespondToPending(ctx, transferID, uuid.New(), true)
	assert.Nil(t, result)
	assertAppError(t, err, "TRF_003")
}

func TestTransferService_RespondToPending_AlreadyTerminal(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	transferID := uuid.New()
	tx := &mockTx{}

	for _, status := range []domain.TransferStatus{domain.TransferStatusApproved, domain.TransferStatusRejected} {
		terminal := pendingTransfer(transferID, uuid.New(), uuid.New(), 2000)
		terminal.Status = status

		d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
		d.transferRepo.EXPECT().GetByIDForUpdate(ctx, tx, transferID).Return(terminal, nil)

		result, err := d.svc.RespondToPending(ctx, transferID, uuid.New(), true)
		assert.Nil(t, result)
		assertAppError(t, err, "TRF_005")
	}
}

func TestTransferService_RespondToPending_LedgerRejectsTransition(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payerID := uuid.New()
	transferID := uuid.New()
	fromID := uuid.New()
	toID := uuid.New()
	tx := &mockTx{}

	// The ledger's own guard fires; its sentinel surfaces as TRF_005.
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.transferRepo.EXPECT().GetByIDForUpdate(ctx, tx, transferID).Return(pendingTransfer(transferID, fromID, toID, 2000), nil)
	d.accountRepo.EXPECT().GetByID(ctx, fromID).Return(ownedAccount(fromID, payerID, 7000), nil)
	d.transferRepo.EXPECT().UpdateStatus(ctx, tx, transferID, domain.TransferStatusRejected).
		Return(domain.ErrInvalidTransition)

	result, err := d.svc.RespondToPending(ctx, transferID, payerID, false)
	assert.Nil(t, result)
	assertAppError(t, err, "TRF_005")
}

func TestTransferService_RespondToPending_ResponderNotPayer(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	transferID := uuid.New()
	fromID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.transferRepo.EXPECT().GetByIDForUpdate(ctx, tx, transferID).Return(pendingTransfer(transferID, fromID, uuid.New(), 2000), nil)
	d.accountRepo.EXPECT().GetByID(ctx, fromID).Return(ownedAccount(fromID, uuid.New(), 7000), nil)

	result, err := d.svc.RespondToPending(ctx, transferID, uuid.New(), true)
	assert.Nil(t, result)
	assertAppError(t, err, "TRF_004")
}

func TestTransferService_RespondToPending_ApproveInsufficientFunds(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payerID := uuid.New()
	transferID := uuid.New()
	fromID := uuid.New()
	toID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.transferRepo.EXPECT().GetByIDForUpdate(ctx, tx, transferID).Return(pendingTransfer(transferID, fromID, toID, 99999), nil)
	d.accountRepo.EXPECT().GetByID(ctx, fromID).Return(ownedAccount(fromID, payerID, 100), nil)
	d.accountRepo.EXPECT().Adjust(ctx, tx, fromID, int64(-99999)).Return(int64(0), domain.ErrInsufficientBalance)

	result, err := d.svc.RespondToPending(ctx, transferID, payerID, true)
	assert.Nil(t, result)
	assertAppError(t, err, "TRF_002")
}

// ==================== Helper ====================

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, expectedCode, appErr.Code)
}
