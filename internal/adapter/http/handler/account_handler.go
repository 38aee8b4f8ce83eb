package handler

import (
	"time"

	"peerpay/internal/adapter/http/dto"
	"peerpay/internal/adapter/http/middleware"
	"peerpay/internal/core/domain"
	"peerpay/internal/core/ports"
	"peerpay/pkg/apperror"
	"peerpay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountHandler handles account query endpoints.
type AccountHandler struct {
	querySvc ports.QueryService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(querySvc ports.QueryService) *AccountHandler {
	return &AccountHandler{querySvc: querySvc}
}

// GetMe handles GET /api/v1/accounts/me.
func (h *AccountHandler) GetMe(c *gin.Context) {
	callerID, ok := callerID(c)
	if !ok {
		return
	}

	account, err := h.querySvc.GetAccount(c.Request.Context(), callerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.AccountResponse{
		ID:      account.ID.String(),
		UserID:  account.UserID.String(),
		Balance: account.Balance,
	})
}

// ListAccounts handles GET /api/v1/accounts: the recipient directory. Any
// authenticated user may browse it; balances are not exposed.
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}

	listings, err := h.querySvc.ListAccounts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	entries := make([]dto.AccountDirectoryEntry, 0, len(listings))
	for _, l := range listings {
		entries = append(entries, dto.AccountDirectoryEntry{
			AccountID: l.AccountID.String(),
			Username:  l.Username,
		})
	}
	response.OK(c, dto.AccountDirectoryResponse{Accounts: entries, Total: len(entries)})
}

// GetBalance handles GET /api/v1/accounts/:id/balance.
func (h *AccountHandler) GetBalance(c *gin.Context) {
	callerID, ok := callerID(c)
	if !ok {
		return
	}
	accountID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	balance, err := h.querySvc.GetBalance(c.Request.Context(), callerID, accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		AccountID: accountID.String(),
		Balance:   balance,
	})
}

// ListTransfers handles GET /api/v1/accounts/:id/transfers.
func (h *AccountHandler) ListTransfers(c *gin.Context) {
	callerID, ok := callerID(c)
	if !ok {
		return
	}
	accountID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	transfers, err := h.querySvc.ListTransfers(c.Request.Context(), callerID, accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toTransferList(transfers))
}

// ListPending handles GET /api/v1/accounts/:id/transfers/pending.
func (h *AccountHandler) ListPending(c *gin.Context) {
	callerID, ok := callerID(c)
	if !ok {
		return
	}
	accountID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	transfers, err := h.querySvc.ListPending(c.Request.Context(), callerID, accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toTransferList(transfers))
}

// callerID extracts the authenticated user's ID set by the JWT middleware.
func callerID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.CtxUserID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	return id, true
}

// pathUUID parses a UUID path parameter.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Error(c, apperror.Validation("invalid "+name+" parameter"))
		return uuid.Nil, false
	}
	return id, true
}

func toTransferResponse(t *domain.Transfer) dto.TransferResponse {
	resp := dto.TransferResponse{
		ID:            t.ID.String(),
		Type:          string(t.Type),
		Status:        string(t.Status),
		FromAccountID: t.FromAccountID.String(),
		ToAccountID:   t.ToAccountID.String(),
		Amount:        t.Amount,
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),
	}
	if t.ProcessedAt != nil {
		s := t.ProcessedAt.Format(time.RFC3339)
		resp.ProcessedAt = &s
	}
	return resp
}

func toTransferList(transfers []domain.Transfer) dto.TransferListResponse {
	items := make([]dto.TransferResponse, 0, len(transfers))
	for i := range transfers {
		items = append(items, toTransferResponse(&transfers[i]))
	}
	return dto.TransferListResponse{Transfers: items, Total: len(items)}
}
