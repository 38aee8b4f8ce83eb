package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTransferNotFound indicates the referenced transfer does not exist.
	ErrTransferNotFound = errors.New("transfer not found")

	// ErrInvalidTransition indicates a status change the state machine does
	// not allow. The stored status is left unchanged.
	ErrInvalidTransition = errors.New("invalid transfer status transition")
)

// TransferType represents the kind of money movement.
type TransferType string

const (
	// TransferTypeSend moves funds immediately from the caller's account.
	TransferTypeSend TransferType = "SEND"
	// TransferTypeRequest asks a payer to approve the movement first.
	TransferTypeRequest TransferType = "REQUEST"
)

// TransferStatus represents the lifecycle state of a transfer.
type TransferStatus string

const (
	TransferStatusPending  TransferStatus = "PENDING"
	TransferStatusApproved TransferStatus = "APPROVED"
	TransferStatusRejected TransferStatus = "REJECTED"
)

// IsTerminal returns true if the status permits no further transition.
func (s TransferStatus) IsTerminal() bool {
	return s == TransferStatusApproved || s == TransferStatusRejected
}

// CanTransitionTo reports whether the state machine allows moving from s to
// next. The only legal transitions are Pending -> Approved and
// Pending -> Rejected.
func (s TransferStatus) CanTransitionTo(next TransferStatus) bool {
	return s == TransferStatusPending && next.IsTerminal()
}

// Transfer is a ledger entry for a requested or completed money movement
// between two accounts. Amount, type, and the two account references are
// immutable after creation; status is the only mutable field.
type Transfer struct {
	ID            uuid.UUID      `json:"id"`
	Type          TransferType   `json:"transfer_type"`
	Status        TransferStatus `json:"status"`
	FromAccountID uuid.UUID      `json:"from_account_id"`
	ToAccountID   uuid.UUID      `json:"to_account_id"`
	Amount        int64          `json:"amount"` // cents, strictly positive
	CreatedAt     time.Time      `json:"created_at"`
	ProcessedAt   *time.Time     `json:"processed_at,omitempty"`
}

// Involves reports whether the account is either party of the transfer.
func (t *Transfer) Involves(accountID uuid.UUID) bool {
	return t.FromAccountID == accountID || t.ToAccountID == accountID
}
