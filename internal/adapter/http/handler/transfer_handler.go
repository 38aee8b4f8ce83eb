package handler

import (
	"peerpay/internal/adapter/http/dto"
	"peerpay/internal/core/ports"
	"peerpay/pkg/apperror"
	"peerpay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransferHandler handles transfer endpoints.
type TransferHandler struct {
	transferSvc ports.TransferService
	querySvc    ports.QueryService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferSvc ports.TransferService, querySvc ports.QueryService) *TransferHandler {
	return &TransferHandler{transferSvc: transferSvc, querySvc: querySvc}
}

// Send handles POST /api/v1/transfers.
func (h *TransferHandler) Send(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}

	var req dto.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	fromID, toID, ok := parseAccountPair(c, req.FromAccountID, req.ToAccountID)
	if !ok {
		return
	}

	transfer, err := h.transferSvc.InitiateSend(c.Request.Context(), ports.SendRequest{
		CallerID:      caller,
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransferResponse(transfer))
}

// Request handles POST /api/v1/transfers/request.
func (h *TransferHandler) Request(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}

	var req dto.RequestTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	fromID, toID, ok := parseAccountPair(c, req.FromAccountID, req.ToAccountID)
	if !ok {
		return
	}

	transfer, err := h.transferSvc.InitiateRequest(c.Request.Context(), ports.RequestRequest{
		CallerID:      caller,
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransferResponse(transfer))
}

// Respond handles POST /api/v1/transfers/:id/respond.
func (h *TransferHandler) Respond(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	transferID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req dto.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	transfer, err := h.transferSvc.RespondToPending(c.Request.Context(), transferID, caller, *req.Approve)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toTransferResponse(transfer))
}

// GetByID handles GET /api/v1/transfers/:id.
func (h *TransferHandler) GetByID(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	transferID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	transfer, err := h.querySvc.GetTransfer(c.Request.Context(), caller, transferID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toTransferResponse(transfer))
}

func parseAccountPair(c *gin.Context, from, to string) (uuid.UUID, uuid.UUID, bool) {
	fromID, err := uuid.Parse(from)
	if err != nil {
		response.Error(c, apperror.Validation("invalid from_account_id"))
		return uuid.Nil, uuid.Nil, false
	}
	toID, err := uuid.Parse(to)
	if err != nil {
		response.Error(c, apperror.Validation("invalid to_account_id"))
		return uuid.Nil, uuid.Nil, false
	}
	return fromID, toID, true
}
