package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"peerpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory User Repo ---

type inMemoryUserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *inMemoryUserRepo) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return fmt.Errorf("username already exists")
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *inMemoryUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// --- In-Memory Account Repo ---

type inMemoryAccountRepo struct {
	mu       sync.RWMutex
	users    *inMemoryUserRepo
	accounts map[uuid.UUID]*domain.Account
}

func newInMemoryAccountRepo(users *inMemoryUserRepo) *inMemoryAccountRepo {
	return &inMemoryAccountRepo{
		users:    users,
		accounts: make(map[uuid.UUID]*domain.Account),
	}
}

func (r *inMemoryAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *inMemoryAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *inMemoryAccountRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

// Adjust mirrors the conditional update of the SQL implementation: the
// balance only changes when the result stays non-negative. Rollback safety
// comes from the transactor's snapshots.
func (r *inMemoryAccountRepo) Adjust(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, delta int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[accountID]
	if !ok {
		return 0, domain.ErrAccountNotFound
	}
	if a.Balance+delta < 0 {
		return 0, domain.ErrInsufficientBalance
	}
	a.Balance += delta
	return a.Balance, nil
}

func (r *inMemoryAccountRepo) ListAll(ctx context.Context) ([]domain.AccountListing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var listings []domain.AccountListing
	for _, a := range r.accounts {
		entry := domain.AccountListing{AccountID: a.ID}
		if u, _ := r.users.GetByID(ctx, a.UserID); u != nil {
			entry.Username = u.Username
		}
		listings = append(listings, entry)
	}
	sort.Slice(listings, func(i, j int) bool {
		return listings[i].Username < listings[j].Username
	})
	return listings, nil
}

func (r *inMemoryAccountRepo) snapshot() map[uuid.UUID]domain.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := make(map[uuid.UUID]domain.Account, len(r.accounts))
	for id, a := range r.accounts {
		snap[id] = *a
	}
	return snap
}

func (r *inMemoryAccountRepo) restore(snap map[uuid.UUID]domain.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts = make(map[uuid.UUID]*domain.Account, len(snap))
	for id, a := range snap {
		cp := a
		r.accounts[id] = &cp
	}
}

// --- In-Memory Transfer Repo ---

type inMemoryTransferRepo struct {
	mu        sync.RWMutex
	transfers map[uuid.UUID]*domain.Transfer
}

func newInMemoryTransferRepo() *inMemoryTransferRepo {
	return &inMemoryTransferRepo{transfers: make(map[uuid.UUID]*domain.Transfer)}
}

func (r *inMemoryTransferRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.transfers[t.ID] = &cp
	return nil
}

func (r *inMemoryTransferRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transfers[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// GetByIDForUpdate relies on the locking transactor for serialization:
// only one transaction runs at a time, so a plain read suffices.
func (r *inMemoryTransferRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transfer, error) {
	return r.GetByID(ctx, id)
}

// UpdateStatus enforces the same state machine as the SQL implementation:
// only a pending transfer may change, and only to a terminal status.
func (r *inMemoryTransferRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransferStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transfers[id]
	if !ok {
		return domain.ErrTransferNotFound
	}
	if !t.Status.CanTransitionTo(status) {
		return domain.ErrInvalidTransition
	}
	now := time.Now().UTC()
	t.Status = status
	t.ProcessedAt = &now
	return nil
}

func (r *inMemoryTransferRepo) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Transfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Transfer
	for _, t := range r.transfers {
		if t.Involves(accountID) {
			result = append(result, *t)
		}
	}
	sortByCreatedAt(result)
	return result, nil
}

func (r *inMemoryTransferRepo) ListPending(ctx context.Context, accountID uuid.UUID) ([]domain.Transfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Transfer
	for _, t := range r.transfers {
		if t.Status == domain.TransferStatusPending && t.Involves(accountID) {
			result = append(result, *t)
		}
	}
	sortByCreatedAt(result)
	return result, nil
}

func (r *inMemoryTransferRepo) snapshot() map[uuid.UUID]domain.Transfer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := make(map[uuid.UUID]domain.Transfer, len(r.transfers))
	for id, t := range r.transfers {
		snap[id] = *t
	}
	return snap
}

func (r *inMemoryTransferRepo) restore(snap map[uuid.UUID]domain.Transfer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transfers = make(map[uuid.UUID]*domain.Transfer, len(snap))
	for id, t := range snap {
		cp := t
		r.transfers[id] = &cp
	}
}

func sortByCreatedAt(transfers []domain.Transfer) {
	sort.Slice(transfers, func(i, j int) bool {
		return transfers[i].CreatedAt.Before(transfers[j].CreatedAt)
	})
}

// --- In-Memory Transactor ---

// inMemoryTransactor serializes transactions with a mutex: Begin blocks
// until the previous transaction commits or rolls back, approximating the
// row-level locking of the real database. Begin also snapshots both stores
// so Rollback can restore them, giving transactions the same all-or-nothing
// behavior as the SQL implementation.
type inMemoryTransactor struct {
	mu        sync.Mutex
	accounts  *inMemoryAccountRepo
	transfers *inMemoryTransferRepo
}

func newInMemoryTransactor(accounts *inMemoryAccountRepo, transfers *inMemoryTransferRepo) *inMemoryTransactor {
	return &inMemoryTransactor{
		accounts:  accounts,
		transfers: transfers,
	}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &serialTx{
		release:       &t.mu,
		accounts:      t.accounts,
		transfers:     t.transfers,
		accountsSnap:  t.accounts.snapshot(),
		transfersSnap: t.transfers.snapshot(),
	}, nil
}

// serialTx is a pgx.Tx that holds the transactor's lock until finished.
// Rollback restores the stores to their state at Begin.
type serialTx struct {
	release       *sync.Mutex
	accounts      *inMemoryAccountRepo
	transfers     *inMemoryTransferRepo
	accountsSnap  map[uuid.UUID]domain.Account
	transfersSnap map[uuid.UUID]domain.Transfer
	done          bool
}

func (t *serialTx) finish() {
	if !t.done {
		t.done = true
		t.release.Unlock()
	}
}

func (t *serialTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }

func (t *serialTx) Commit(ctx context.Context) error {
	t.finish()
	return nil
}

func (t *serialTx) Rollback(ctx context.Context) error {
	if !t.done {
		t.accounts.restore(t.accountsSnap)
		t.transfers.restore(t.transfersSnap)
	}
	t.finish()
	return nil
}

func (t *serialTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *serialTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *serialTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *serialTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *serialTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *serialTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *serialTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *serialTx) Conn() *pgx.Conn { return nil }
