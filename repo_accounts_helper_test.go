package session

import (
	"errors"
	"testing"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestResolveAccountIdentifier(t *testing.T) {
	t.Parallel()

	t.Run("empty identifier yields nothing", func(t *testing.T) {
		assert.Empty(t, resolveAccountIdentifier("   "))
	})

	t.Run("uuid resolves the id column first", func(t *testing.T) {
		id := uuid.New().String()
		options := resolveAccountIdentifier(id)
		assert.Equal(t, "id", options[0].column)
		assert.Equal(t, id, options[0].value)
	})

	t.Run("email resolves email then handle", func(t *testing.T) {
		options := resolveAccountIdentifier("Ada@Example.com")
		assert.Len(t, options, 2)
		assert.Equal(t, "email", options[0].column)
		assert.Equal(t, "ada@example.com", options[0].value)
		assert.Equal(t, "handle", options[1].column)
	})

	t.Run("plain handle is lowercased", func(t *testing.T) {
		options := resolveAccountIdentifier("  AdaLovelace ")
		assert.Len(t, options, 1)
		assert.Equal(t, "handle", options[0].column)
		assert.Equal(t, "adalovelace", options[0].value)
	})
}

func TestPrepareAccountDefaults(t *testing.T) {
	t.Parallel()

	t.Run("assigns an id and normalizes identity", func(t *testing.T) {
		account := &Account{
			Handle: " Ada ",
			Email:  "ADA@Example.com",
		}
		prepareAccountDefaults(account)

		assert.NotEqual(t, uuid.Nil, account.ID)
		assert.Equal(t, "ada", account.Handle)
		assert.Equal(t, "ada@example.com", account.Email)
	})

	t.Run("keeps a preset id", func(t *testing.T) {
		id := uuid.New()
		account := &Account{ID: id, Handle: "ada", Email: "ada@example.com"}
		prepareAccountDefaults(account)
		assert.Equal(t, id, account.ID)
	})

	t.Run("nil record is a no-op", func(t *testing.T) {
		assert.NotPanics(t, func() { prepareAccountDefaults(nil) })
	})
}

func TestGetHandle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ada", getHandle("ada", "other@example.com"))
	assert.Equal(t, "ada", getHandle("", "ada@example.com"))
	assert.Equal(t, "", getHandle("", "no-at-sign"))
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "sqlite unique failure",
			err:  errors.New("constraint failed: UNIQUE constraint failed: accounts.handle (2067)"),
			want: true,
		},
		{
			name: "postgres unique failure",
			err:  errors.New(`ERROR: duplicate key value violates unique constraint "accounts_email_key" (SQLSTATE=23505)`),
			want: true,
		},
		{
			name: "repository-mapped duplicate key",
			err:  repository.MapDatabaseError(errors.New(`duplicate key value violates unique constraint "accounts_handle_key"`), "postgres"),
			want: true,
		},
		{
			name: "missing table is not a conflict",
			err:  errors.New("SQL logic error: no such table: accounts (1)"),
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}
