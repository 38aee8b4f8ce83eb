package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered identity that owns exactly one account.
// Registration and authentication live outside the transfer engine;
// the engine only consumes the user's ID as the caller identity.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
