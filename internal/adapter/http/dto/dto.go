package dto

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	UserID    string `json:"user_id"`
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// SendRequest is the request body for an immediate transfer.
type SendRequest struct {
	FromAccountID string `json:"from_account_id" binding:"required,uuid"`
	ToAccountID   string `json:"to_account_id" binding:"required,uuid"`
	Amount        int64  `json:"amount" binding:"required,gt=0"`
}

// RequestTransferRequest is the request body for a request-to-receive.
type RequestTransferRequest struct {
	FromAccountID string `json:"from_account_id" binding:"required,uuid"`
	ToAccountID   string `json:"to_account_id" binding:"required,uuid"`
	Amount        int64  `json:"amount" binding:"required,gt=0"`
}

// RespondRequest is the request body for approving or rejecting a pending
// transfer.
type RespondRequest struct {
	Approve *bool `json:"approve" binding:"required"`
}

// TransferResponse is the response body for transfer results.
type TransferResponse struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	Status        string  `json:"status"`
	FromAccountID string  `json:"from_account_id"`
	ToAccountID   string  `json:"to_account_id"`
	Amount        int64   `json:"amount"`
	CreatedAt     string  `json:"created_at"`
	ProcessedAt   *string `json:"processed_at,omitempty"`
}

// AccountResponse is the response body for account queries.
type AccountResponse struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"`
}

// AccountDirectoryEntry is one row of the recipient directory.
type AccountDirectoryEntry struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
}

// AccountDirectoryResponse wraps the recipient directory.
type AccountDirectoryResponse struct {
	Accounts []AccountDirectoryEntry `json:"accounts"`
	Total    int                     `json:"total"`
}

// TransferListResponse wraps a transfer list.
type TransferListResponse struct {
	Transfers []TransferResponse `json:"transfers"`
	Total     int                `json:"total"`
}
