package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"peerpay/internal/adapter/http/dto"
	"peerpay/internal/adapter/http/middleware"
	"peerpay/internal/core/domain"
	"peerpay/internal/core/ports"
	"peerpay/internal/core/ports/mocks"
	"peerpay/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// --- Auth Handler Tests ---

func TestRegister_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	userID := uuid.New()
	accountID := uuid.New()
	mockAuth.EXPECT().Register(gomock.Any(), "testuser", "password123").Return(&ports.RegisterResponse{
		UserID:    userID,
		AccountID: accountID,
		Balance:   100000,
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/auth/register", dto.RegisterRequest{
		Username: "testuser",
		Password: "password123",
	})

	h.Register(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, userID.String(), data["user_id"])
	assert.Equal(t, accountID.String(), data["account_id"])
	assert.Equal(t, float64(100000), data["balance"])
}

func TestRegister_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	// Empty body => binding error
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/auth/register", map[string]string{})

	h.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_UsernameTaken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	mockAuth.EXPECT().Register(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, apperror.ErrUsernameExists())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/", dto.RegisterRequest{
		Username: "taken",
		Password: "password123",
	})

	h.Register(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	expiry := time.Now().Add(24 * time.Hour)
	mockAuth.EXPECT().Login(gomock.Any(), "testuser", "password123").Return("jwt-token", expiry, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{
		Username: "testuser",
		Password: "password123",
	})

	h.Login(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "jwt-token", data["token"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	mockAuth.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", time.Time{}, apperror.ErrInvalidCredentials())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/", dto.LoginRequest{
		Username: "testuser",
		Password: "wrong",
	})

	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- Transfer Handler Tests ---

func authedContext(t *testing.T, w *httptest.ResponseRecorder, userID uuid.UUID) *gin.Context {
	t.Helper()
	c, _ := gin.CreateTestContext(w)
	c.Set(middleware.CtxUserID, userID)
	return c
}

func approvedTransfer(from, to uuid.UUID, amount int64) *domain.Transfer {
	now := time.Now().UTC()
	return &domain.Transfer{
		ID:            uuid.New(),
		Type:          domain.TransferTypeSend,
		Status:        domain.TransferStatusApproved,
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        amount,
		CreatedAt:     now,
		ProcessedAt:   &now,
	}
}

func TestSend_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTransfer := mocks.NewMockTransferService(ctrl)
	mockQuery := mocks.NewMockQueryService(ctrl)
	h := NewTransferHandler(mockTransfer, mockQuery)

	callerID := uuid.New()
	fromID := uuid.New()
	toID := uuid.New()

	mockTransfer.EXPECT().InitiateSend(gomock.Any(), ports.SendRequest{
		CallerID:      callerID,
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        3000,
	}).Return(approvedTransfer(fromID, toID, 3000), nil)

	w := httptest.NewRecorder()
	c := authedContext(t, w, callerID)
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/transfers", dto.SendRequest{
		FromAccountID: fromID.String(),
		ToAccountID:   toID.String(),
		Amount:        3000,
	})

	h.Send(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "APPROVED", data["status"])
	assert.Equal(t, "SEND", data["type"])
}

func TestSend_InsufficientFunds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTransfer := mocks.NewMockTransferService(ctrl)
	mockQuery := mocks.NewMockQueryService(ctrl)
	h := NewTransferHandler(mockTransfer, mockQuery)

	mockTransfer.EXPECT().InitiateSend(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrInsufficientFunds())

	w := httptest.NewRecorder()
	c := authedContext(t, w, uuid.New())
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/transfers", dto.SendRequest{
		FromAccountID: uuid.New().String(),
		ToAccountID:   uuid.New().String(),
		Amount:        999999,
	})

	h.Send(c)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "TRF_002", resp["error_code"])
}

func TestSend_InvalidBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTransfer := mocks.NewMockTransferService(ctrl)
	mockQuery := mocks.NewMockQueryService(ctrl)
	h := NewTransferHandler(mockTransfer, mockQuery)

	w := httptest.NewRecorder()
	c := authedContext(t, w, uuid.New())
	// amount missing
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/transfers", map[string]string{
		"from_account_id": uuid.New().String(),
		"to_account_id":   uuid.New().String(),
	})

	h.Send(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRespond_Approve(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTransfer := mocks.NewMockTransferService(ctrl)
	mockQuery := mocks.NewMockQueryService(ctrl)
	h := NewTransferHandler(mockTransfer, mockQuery)

	callerID := uuid.New()
	transferID := uuid.New()

	result := approvedTransfer(uuid.New(), uuid.New(), 2000)
	result.ID = transferID
	mockTransfer.EXPECT().RespondToPending(gomock.Any(), transferID, callerID, true).Return(result, nil)

	approve := true
	w := httptest.NewRecorder()
	c := authedContext(t, w, callerID)
	c.Params = gin.Params{{Key: "id", Value: transferID.String()}}
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/transfers/"+transferID.String()+"/respond", dto.RespondRequest{Approve: &approve})

	h.Respond(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRespond_AlreadyResolved(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTransfer := mocks.NewMockTransferService(ctrl)
	mockQuery := mocks.NewMockQueryService(ctrl)
	h := NewTransferHandler(mockTransfer, mockQuery)

	callerID := uuid.New()
	transferID := uuid.New()

	mockTransfer.EXPECT().RespondToPending(gomock.Any(), transferID, callerID, false).
		Return(nil, apperror.ErrInvalidTransition())

	reject := false
	w := httptest.NewRecorder()
	c := authedContext(t, w, callerID)
	c.Params = gin.Params{{Key: "id", Value: transferID.String()}}
	c.Request = jsonRequest(t, http.MethodPost, "/", dto.RespondRequest{Approve: &reject})

	h.Respond(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetTransfer_Forbidden(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTransfer := mocks.NewMockTransferService(ctrl)
	mockQuery := mocks.NewMockQueryService(ctrl)
	h := NewTransferHandler(mockTransfer, mockQuery)

	callerID := uuid.New()
	transferID := uuid.New()

	mockQuery.EXPECT().GetTransfer(gomock.Any(), callerID, transferID).Return(nil, apperror.ErrForbidden())

	w := httptest.NewRecorder()
	c := authedContext(t, w, callerID)
	c.Params = gin.Params{{Key: "id", Value: transferID.String()}}
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/transfers/"+transferID.String(), nil)

	h.GetByID(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

// --- Account Handler Tests ---

func TestGetMe_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockQuery := mocks.NewMockQueryService(ctrl)
	h := NewAccountHandler(mockQuery)

	callerID := uuid.New()
	accountID := uuid.New()

	mockQuery.EXPECT().GetAccount(gomock.Any(), callerID).Return(&domain.Account{
		ID:      accountID,
		UserID:  callerID,
		Balance: 100000,
	}, nil)

	w := httptest.NewRecorder()
	c := authedContext(t, w, callerID)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/accounts/me", nil)

	h.GetMe(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, accountID.String(), data["id"])
	assert.Equal(t, float64(100000), data["balance"])
}

func TestListAccounts_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockQuery := mocks.NewMockQueryService(ctrl)
	h := NewAccountHandler(mockQuery)

	directory := []domain.AccountListing{
		{AccountID: uuid.New(), Username: "alice"},
		{AccountID: uuid.New(), Username: "bob"},
	}
	mockQuery.EXPECT().ListAccounts(gomock.Any()).Return(directory, nil)

	w := httptest.NewRecorder()
	c := authedContext(t, w, uuid.New())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)

	h.ListAccounts(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["total"])
	first := data["accounts"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "alice", first["username"])
	// The directory never carries balances.
	_, hasBalance := first["balance"]
	assert.False(t, hasBalance)
}

func TestGetBalance_InvalidID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockQuery := mocks.NewMockQueryService(ctrl)
	h := NewAccountHandler(mockQuery)

	w := httptest.NewRecorder()
	c := authedContext(t, w, uuid.New())
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/accounts/not-a-uuid/balance", nil)

	h.GetBalance(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPending_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockQuery := mocks.NewMockQueryService(ctrl)
	h := NewAccountHandler(mockQuery)

	callerID := uuid.New()
	accountID := uuid.New()

	pending := []domain.Transfer{
		{
			ID:            uuid.New(),
			Type:          domain.TransferTypeRequest,
			Status:        domain.TransferStatusPending,
			FromAccountID: accountID,
			ToAccountID:   uuid.New(),
			Amount:        500,
			CreatedAt:     time.Now().UTC(),
		},
	}
	mockQuery.EXPECT().ListPending(gomock.Any(), callerID, accountID).Return(pending, nil)

	w := httptest.NewRecorder()
	c := authedContext(t, w, callerID)
	c.Params = gin.Params{{Key: "id", Value: accountID.String()}}
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/accounts/"+accountID.String()+"/transfers/pending", nil)

	h.ListPending(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["total"])
}

// --- Health Check ---

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(_ context.Context) error { return s.err }
func (s stubChecker) Name() string                 { return s.name }

func TestHealthCheck(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(stubChecker{name: "postgresql"}, stubChecker{name: "redis"})(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestHealthCheck_Degraded(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(stubChecker{name: "postgresql"}, stubChecker{name: "redis", err: errors.New("dial refused")})(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
}
