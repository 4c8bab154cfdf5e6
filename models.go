package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the identity root. Handle and email are globally unique; the
// refresh_token column holds at most one live value per account, so writing a
// new one implicitly invalidates the previous session lineage.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Handle        string     `bun:"handle,notnull,unique" json:"handle,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	DisplayName   string     `bun:"display_name,notnull" json:"displayName,omitempty"`
	AvatarURL     string     `bun:"avatar_url" json:"avatar,omitempty"`
	CoverURL      string     `bun:"cover_url" json:"coverImage,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	RefreshToken  *string    `bun:"refresh_token,nullzero" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// NormalizeIdentity lowercases the handle and email so lookups are
// case-insensitive regardless of how the account was typed at registration.
func (a *Account) NormalizeIdentity() *Account {
	a.Handle = strings.ToLower(strings.TrimSpace(a.Handle))
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	return a
}

// Principal is the request-scoped projection of an Account with the password
// hash and refresh token stripped. It is what gets attached to the request
// context and serialized back to clients.
type Principal struct {
	ID          uuid.UUID  `json:"id"`
	Handle      string     `json:"handle"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName"`
	AvatarURL   string     `json:"avatar,omitempty"`
	CoverURL    string     `json:"coverImage,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// NewPrincipal projects an account into its sanitized, request-scoped form.
func NewPrincipal(account *Account) *Principal {
	if account == nil {
		return nil
	}
	return &Principal{
		ID:          account.ID,
		Handle:      account.Handle,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		AvatarURL:   account.AvatarURL,
		CoverURL:    account.CoverURL,
		CreatedAt:   account.CreatedAt,
		UpdatedAt:   account.UpdatedAt,
	}
}
