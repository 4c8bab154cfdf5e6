package session

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var updatePasswordSQL = `UPDATE "accounts" AS "acc"
SET
	"password_hash" = ?,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."id" = ?
) RETURNING *;`

// rotateRefreshTokenSQL is a conditional update: the stored token is only
// replaced when it still equals the presented one. Zero rows back means the
// token was already rotated or revoked, which turns the check-and-rotate into
// a single atomic operation instead of a read followed by a write.
var rotateRefreshTokenSQL = `UPDATE "accounts" AS "acc"
SET
	"refresh_token" = ?,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."id" = ?
)
AND (
	"acc"."refresh_token" = ?
) RETURNING *;`

type Accounts interface {
	repository.Repository[*Account]

	Register(ctx context.Context, account *Account) (*Account, error)
	RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)
	Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error)

	SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error
	SetRefreshTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token *string) error
	RotateRefreshToken(ctx context.Context, id uuid.UUID, current, next string) error
	RotateRefreshTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, current, next string) error

	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "handle"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) Register(ctx context.Context, account *Account) (*Account, error) {
	return a.RegisterTx(ctx, a.db, account)
}

func (a *accounts) RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	return a.CreateTx(ctx, tx, account)
}

func (a *accounts) Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	prepareAccountDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *accounts) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*Account, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

func (a *accounts) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*Account, error) {
	options := resolveAccountIdentifier(identifier)
	if len(options) == 0 {
		options = []identifierOption{
			{
				column: "id",
				value:  strings.TrimSpace(identifier),
			},
		}
	}

	for _, opt := range options {
		record := &Account{}
		q := tx.NewSelect().Model(record)

		for _, c := range criteria {
			q.Apply(c)
		}

		err := q.
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *accounts) SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	return a.SetRefreshTokenTx(ctx, a.db, id, token)
}

func (a *accounts) SetRefreshTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token *string) error {
	// Last write wins. Overwriting the single stored value is what revokes
	// the previous lineage; no token history is retained.
	_, err := tx.NewRaw(`
		UPDATE "accounts" AS "acc"
		SET
			"refresh_token" = ?,
			"updated_at" = CURRENT_TIMESTAMP
		WHERE
			("acc".id = ?)
			AND "acc"."deleted_at" IS NULL;
	`, token, id).Exec(ctx)

	return err
}

func (a *accounts) RotateRefreshToken(ctx context.Context, id uuid.UUID, current, next string) error {
	return a.RotateRefreshTokenTx(ctx, a.db, id, current, next)
}

func (a *accounts) RotateRefreshTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, current, next string) error {
	res, err := a.Repository.RawTx(ctx, tx, rotateRefreshTokenSQL, next, id.String(), current)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to rotate refresh token")
	}

	if len(res) == 0 {
		return ErrRefreshTokenUsed
	}

	return nil
}

func (a *accounts) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.UpdatePasswordTx(ctx, a.db, id, passwordHash)
}

func (a *accounts) UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, updatePasswordSQL, passwordHash, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	record.NormalizeIdentity()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

type identifierOption struct {
	column string
	value  string
}

func resolveAccountIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 3)

	if isUUID(trimmed) {
		options = append(options, identifierOption{
			column: "id",
			value:  trimmed,
		})
	}

	lowered := strings.ToLower(trimmed)

	if isEmail(lowered) {
		options = append(options, identifierOption{
			column: "email",
			value:  lowered,
		})
	}

	options = append(options, identifierOption{
		column: "handle",
		value:  lowered,
	})

	return options
}

// isUniqueViolation reports whether err is a unique-constraint failure from
// one of the supported dialects. Anything else is an infrastructure error and
// must not be reported as a conflict. The repository maps driver errors into
// its own categories, so check those first; the string match covers raw
// driver errors that bypassed the mapping.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if repository.IsDuplicatedKey(err) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}
