package session_test

import (
	"context"
	"database/sql"
	"testing"

	session "github.com/clipstream/go-session"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const sqliteCreateAccounts = `CREATE TABLE accounts (
    id TEXT NOT NULL PRIMARY KEY,
    handle TEXT NOT NULL,
    email TEXT NOT NULL,
    display_name TEXT NOT NULL DEFAULT '',
    avatar_url TEXT,
    cover_url TEXT,
    password_hash TEXT NOT NULL,
    refresh_token TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    deleted_at TIMESTAMP,
    UNIQUE (handle),
    UNIQUE (email)
);`

func setupAccountsRepo(t *testing.T) (session.Accounts, func()) {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec(sqliteCreateAccounts)
	require.NoError(t, err)

	cleanup := func() {
		_ = bunDB.Close()
		_ = db.Close()
	}

	return session.NewAccountsRepository(bunDB), cleanup
}

func TestAccountsRepositoryRegisterAndLookup(t *testing.T) {
	repo, cleanup := setupAccountsRepo(t)
	defer cleanup()

	ctx := context.Background()

	seed := testAccount("s3cret")
	seed.Handle = "Ada"
	seed.Email = "ADA@example.com"

	created, err := repo.Register(ctx, seed)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "ada", created.Handle)
	assert.Equal(t, "ada@example.com", created.Email)

	byHandle, err := repo.GetByIdentifier(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byHandle.ID)

	byEmail, err := repo.GetByIdentifier(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byID, err := repo.GetByIdentifier(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.Handle, byID.Handle)

	_, err = repo.GetByIdentifier(ctx, "nobody")
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))

	store := session.NewAccountStore(repo)
	_, err = store.GetByIdentifier(ctx, "nobody")
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))
}

func TestAccountsRepositoryDuplicateHandle(t *testing.T) {
	repo, cleanup := setupAccountsRepo(t)
	defer cleanup()

	ctx := context.Background()

	first := testAccount("s3cret")
	_, err := repo.Register(ctx, first)
	require.NoError(t, err)

	dup := testAccount("s3cret")
	dup.ID = uuid.New()
	dup.Email = "other@example.com"

	_, err = repo.Register(ctx, dup)
	require.Error(t, err)
	assert.True(t, repository.IsDuplicatedKey(err))
}

func TestAccountsRepositoryRotateRefreshToken(t *testing.T) {
	repo, cleanup := setupAccountsRepo(t)
	defer cleanup()

	ctx := context.Background()

	account := testAccount("s3cret")
	created, err := repo.Register(ctx, account)
	require.NoError(t, err)

	first := "refresh-token-1"
	require.NoError(t, repo.SetRefreshToken(ctx, created.ID, &first))

	t.Run("rotation replaces the matching token", func(t *testing.T) {
		err := repo.RotateRefreshToken(ctx, created.ID, "refresh-token-1", "refresh-token-2")
		require.NoError(t, err)

		stored, err := repo.GetByIdentifier(ctx, created.ID.String())
		require.NoError(t, err)
		require.NotNil(t, stored.RefreshToken)
		assert.Equal(t, "refresh-token-2", *stored.RefreshToken)
	})

	t.Run("replaying the rotated-out token loses", func(t *testing.T) {
		err := repo.RotateRefreshToken(ctx, created.ID, "refresh-token-1", "refresh-token-3")
		assert.ErrorIs(t, err, session.ErrRefreshTokenUsed)

		stored, err := repo.GetByIdentifier(ctx, created.ID.String())
		require.NoError(t, err)
		require.NotNil(t, stored.RefreshToken)
		assert.Equal(t, "refresh-token-2", *stored.RefreshToken)
	})

	t.Run("rotation after revocation loses", func(t *testing.T) {
		require.NoError(t, repo.SetRefreshToken(ctx, created.ID, nil))

		err := repo.RotateRefreshToken(ctx, created.ID, "refresh-token-2", "refresh-token-4")
		assert.ErrorIs(t, err, session.ErrRefreshTokenUsed)
	})

	t.Run("unknown account loses", func(t *testing.T) {
		err := repo.RotateRefreshToken(ctx, uuid.New(), "refresh-token-2", "refresh-token-5")
		assert.ErrorIs(t, err, session.ErrRefreshTokenUsed)
	})
}

func TestAccountsRepositoryUpdatePassword(t *testing.T) {
	repo, cleanup := setupAccountsRepo(t)
	defer cleanup()

	ctx := context.Background()

	account := testAccount("old-password")
	created, err := repo.Register(ctx, account)
	require.NoError(t, err)

	newHash := quickHash("new-password")
	require.NoError(t, repo.UpdatePassword(ctx, created.ID, newHash))

	stored, err := repo.GetByIdentifier(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, newHash, stored.PasswordHash)

	err = repo.UpdatePassword(ctx, uuid.New(), quickHash("whatever"))
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
}
