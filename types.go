package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds the signing secrets, lifetimes, and transport knobs the
// subsystem consumes. Everything is supplied at construction; nothing is read
// from the environment at call time.
type Config interface {
	GetAccessSigningKey() string
	GetRefreshSigningKey() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetIssuer() string
	GetContextKey() string
	GetTokenLookup() string
	GetAuthScheme() string
	GetAccessCookieName() string
	GetRefreshCookieName() string
	// GetRevokeOnPasswordChange controls whether a successful password change
	// also clears the stored refresh token. Off keeps the current session
	// alive; on forces a fresh login everywhere.
	GetRevokeOnPasswordChange() bool
}

// TokenIssuer mints signed credential pairs.
type TokenIssuer interface {
	IssueAccessToken(principal *Principal) (string, error)
	IssueRefreshToken(id uuid.UUID) (string, error)
}

// TokenVerifier proves tokens by signature and expiry alone.
type TokenVerifier interface {
	VerifyAccessToken(raw string) (*AccessClaims, error)
	VerifyRefreshToken(raw string) (*RefreshClaims, error)
}

// TokenCodec is the full credential codec surface.
type TokenCodec interface {
	TokenIssuer
	TokenVerifier
}

// AccountStore is the only place refresh-token state persists. A nil token
// revokes the session lineage.
type AccountStore interface {
	GetByIdentifier(ctx context.Context, identifier string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error
	RotateRefreshToken(ctx context.Context, id uuid.UUID, current, next string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// Manager drives the session lineage state machine: login, rotation, logout,
// and password change.
type Manager interface {
	Login(ctx context.Context, identifier, password string) (*LoginResult, error)
	Refresh(ctx context.Context, presented string) (*TokenPair, error)
	Logout(ctx context.Context, id uuid.UUID) error
	ChangePassword(ctx context.Context, id uuid.UUID, oldPassword, newPassword string) error
}

// PasswordHasher authenticates passwords
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// TokenPair is the issued access/refresh credential pair.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResult is what a successful login returns: the sanitized principal
// plus both tokens, which also travel as cookies.
type LoginResult struct {
	Principal *Principal `json:"principal"`
	TokenPair
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
