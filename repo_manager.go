package session

import (
	"context"
	"database/sql"
	"errors"
	"log"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Accounts() Accounts
}

type mngr struct {
	db       *bun.DB
	accounts Accounts
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:       db,
		accounts: NewAccountsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Accounts() Accounts {
	return m.accounts
}

// accountStoreAdapter narrows the Accounts repository to the AccountStore
// surface the lifecycle manager consumes.
type accountStoreAdapter struct {
	accounts Accounts
}

// NewAccountStore adapts an Accounts repository into an AccountStore.
func NewAccountStore(accounts Accounts) AccountStore {
	return accountStoreAdapter{accounts: accounts}
}

func (a accountStoreAdapter) GetByIdentifier(ctx context.Context, identifier string) (*Account, error) {
	account, err := a.accounts.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, asNotFound(err)
	}
	return account, nil
}

func (a accountStoreAdapter) GetByID(ctx context.Context, id string) (*Account, error) {
	account, err := a.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, asNotFound(err)
	}
	return account, nil
}

func (a accountStoreAdapter) SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	return a.accounts.SetRefreshToken(ctx, id, token)
}

func (a accountStoreAdapter) RotateRefreshToken(ctx context.Context, id uuid.UUID, current, next string) error {
	return a.accounts.RotateRefreshToken(ctx, id, current, next)
}

func (a accountStoreAdapter) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.accounts.UpdatePassword(ctx, id, passwordHash)
}

// asNotFound translates the repository's database not-found category into the
// plain not-found category the lifecycle checks for. Lookup callers should not
// have to know about persistence error taxonomies.
func asNotFound(err error) error {
	if repository.IsRecordNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryNotFound, "account not found")
	}
	return err
}
