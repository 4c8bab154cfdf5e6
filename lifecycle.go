package session

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Lifecycle orchestrates login, refresh rotation, logout, and password change
// for the single session lineage each account carries. Every operation either
// returns a success payload or fails with one tagged error; no operation
// partially succeeds, and a failed refresh never rotates the stored token.
type Lifecycle struct {
	store                  AccountStore
	codec                  TokenCodec
	logger                 Logger
	revokeOnPasswordChange bool
}

var _ Manager = (*Lifecycle)(nil)

// NewLifecycle returns a lifecycle manager wired to the given store, with a
// codec built from the explicit configuration.
func NewLifecycle(store AccountStore, cfg Config) *Lifecycle {
	return &Lifecycle{
		store:                  store,
		codec:                  NewCodec(cfg, defLogger{}),
		logger:                 defLogger{},
		revokeOnPasswordChange: cfg.GetRevokeOnPasswordChange(),
	}
}

func (s *Lifecycle) WithLogger(logger Logger) *Lifecycle {
	s.logger = logger
	return s
}

// WithCodec replaces the credential codec, mostly for tests.
func (s *Lifecycle) WithCodec(codec TokenCodec) *Lifecycle {
	s.codec = codec
	return s
}

// Codec returns the credential codec used by this lifecycle manager.
func (s *Lifecycle) Codec() TokenCodec {
	return s.codec
}

// Login is the Anonymous to Authenticated transition: look the account up by
// handle or email, verify the password, mint a fresh pair, and persist the
// refresh token as the account's single live lineage.
func (s *Lifecycle) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	account, err := s.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Info("login lookup missed: %s", identifier)
			return nil, ErrAccountNotFound
		}
		s.logger.Error("login lookup failed: %s", err)
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account during login")
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		s.logger.Info("login password mismatch for account %s", account.ID)
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, account)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Principal: NewPrincipal(account),
		TokenPair: *pair,
	}, nil
}

// Refresh is the Authenticated to Refreshed transition. The presented token
// must verify cryptographically and still match the stored value; the match
// and the overwrite happen in one conditional update, so a token that was
// already used cannot win the race a second time.
func (s *Lifecycle) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	if presented == "" {
		return nil, ErrMissingCredential
	}

	claims, err := s.codec.VerifyRefreshToken(presented)
	if err != nil {
		s.logger.Info("refresh token verification failed: %s", err)
		return nil, err
	}

	id, err := claims.AccountUUID()
	if err != nil {
		s.logger.Error("refresh token carries malformed subject %q", claims.AccountID())
		return nil, ErrTokenMalformed
	}

	account, err := s.store.GetByID(ctx, id.String())
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrStalePrincipal
		}
		s.logger.Error("refresh lookup failed: %s", err)
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account during refresh")
	}

	accessToken, err := s.codec.IssueAccessToken(NewPrincipal(account))
	if err != nil {
		s.logger.Error("refresh failed to issue access token: %s", err)
		return nil, err
	}

	refreshToken, err := s.codec.IssueRefreshToken(account.ID)
	if err != nil {
		s.logger.Error("refresh failed to issue refresh token: %s", err)
		return nil, err
	}

	if err := s.store.RotateRefreshToken(ctx, account.ID, presented, refreshToken); err != nil {
		s.logger.Info("refresh rotation rejected for account %s: %s", account.ID, err)
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Logout clears the stored refresh token unconditionally, moving the lineage
// to its terminal Revoked state. Logging out twice is not an error.
func (s *Lifecycle) Logout(ctx context.Context, id uuid.UUID) error {
	if err := s.store.SetRefreshToken(ctx, id, nil); err != nil {
		s.logger.Error("logout failed to clear refresh token for account %s: %s", id, err)
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke session")
	}
	return nil
}

// ChangePassword verifies the old password and persists a hash of the new
// one. Whether the live session survives is policy: with
// RevokeOnPasswordChange set, the stored refresh token is cleared too.
func (s *Lifecycle) ChangePassword(ctx context.Context, id uuid.UUID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return ErrMissingPassword
	}

	account, err := s.store.GetByID(ctx, id.String())
	if err != nil {
		if errors.IsNotFound(err) {
			return ErrAccountNotFound
		}
		s.logger.Error("change password lookup failed: %s", err)
		return errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account during password change")
	}

	if err := ComparePasswordAndHash(oldPassword, account.PasswordHash); err != nil {
		return ErrInvalidOldPassword
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) && richErr.Category == errors.CategoryValidation {
			return richErr
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to hash new password")
	}

	if err := s.store.UpdatePassword(ctx, account.ID, hash); err != nil {
		s.logger.Error("change password persist failed for account %s: %s", account.ID, err)
		return errors.Wrap(err, errors.CategoryInternal, "failed to persist new password")
	}

	if s.revokeOnPasswordChange {
		if err := s.store.SetRefreshToken(ctx, account.ID, nil); err != nil {
			s.logger.Error("change password failed to revoke session for account %s: %s", account.ID, err)
			return errors.Wrap(err, errors.CategoryInternal, "failed to revoke session after password change")
		}
	}

	return nil
}

// LoadPrincipal resolves a verified token subject into the sanitized
// principal the request pipeline attaches. A missing account means the
// credential outlived its owner.
func (s *Lifecycle) LoadPrincipal(ctx context.Context, id string) (*Principal, error) {
	account, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrStalePrincipal
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load principal")
	}

	return NewPrincipal(account), nil
}

func (s *Lifecycle) issuePair(ctx context.Context, account *Account) (*TokenPair, error) {
	accessToken, err := s.codec.IssueAccessToken(NewPrincipal(account))
	if err != nil {
		s.logger.Error("failed to issue access token: %s", err)
		return nil, err
	}

	refreshToken, err := s.codec.IssueRefreshToken(account.ID)
	if err != nil {
		s.logger.Error("failed to issue refresh token: %s", err)
		return nil, err
	}

	if err := s.store.SetRefreshToken(ctx, account.ID, &refreshToken); err != nil {
		s.logger.Error("failed to persist refresh token for account %s: %s", account.ID, err)
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to persist session")
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
