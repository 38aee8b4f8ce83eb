package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Storage-level sentinel errors. Repositories return these; services map
// them onto the apperror taxonomy.
var (
	// ErrAccountNotFound indicates the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientBalance indicates an adjustment would drive the
	// balance below zero. The stored balance is left unchanged.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Account holds a single user's balance. Balance is in cents (fixed-point,
// scale 2) and is never negative. Accounts are created once at registration
// and mutated only through AccountRepository.Adjust.
type Account struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Balance   int64     `json:"balance"` // cents
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnedBy reports whether the given user owns this account.
func (a *Account) OwnedBy(userID uuid.UUID) bool {
	return a.UserID == userID
}

// AccountListing is a directory entry: enough for a peer to pick a transfer
// recipient, without exposing the balance.
type AccountListing struct {
	AccountID uuid.UUID `json:"account_id"`
	Username  string    `json:"username"`
}
