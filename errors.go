package session

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeAccountNotFound   = "account_not_found"
	TextCodeInvalidCreds      = "invalid_credentials"
	TextCodeMissingCredential = "missing_credential"
	TextCodeMissingPassword   = "missing_password"
	TextCodeInvalidOldPass    = "invalid_old_password"
	TextCodeEmptyPassword     = "empty_password"
	TextCodeTokenExpired      = "token_expired"
	TextCodeTokenMalformed    = "token_malformed"
	TextCodeBadSignature      = "token_bad_signature"
	TextCodeRefreshUsed       = "refresh_token_used"
	TextCodeUnauthorized      = "unauthorized"
	TextCodeStalePrincipal    = "stale_principal"
	TextCodeDuplicateAccount  = "duplicate_account"
)

// ErrAccountNotFound is returned when no account matches a lookup identifier.
// Surfacing this distinctly from a password mismatch leaks account existence;
// the public API distinguishes the two, so the subsystem does too.
var ErrAccountNotFound = errors.New("account does not exist", errors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidCredentials is returned on any password mismatch.
var ErrInvalidCredentials = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrMissingCredential is returned when a request carries no token at all.
var ErrMissingCredential = errors.New("missing credential", errors.CategoryAuth).
	WithTextCode(TextCodeMissingCredential).
	WithCode(errors.CodeUnauthorized)

// ErrMissingPassword is returned when a password change omits either value.
var ErrMissingPassword = errors.New("old and new password are required", errors.CategoryBadInput).
	WithTextCode(TextCodeMissingPassword).
	WithCode(errors.CodeBadRequest)

// ErrInvalidOldPassword is returned when a password change presents the wrong
// current password. Unlike a login mismatch the caller is already
// authenticated, so this reads as bad input rather than a credential failure.
var ErrInvalidOldPassword = errors.New("invalid old password", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidOldPass).
	WithCode(errors.CodeBadRequest)

// ErrNoEmptyString guards the hasher against hashing an empty secret.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrTokenExpired is returned when a token's signed expiry has elapsed.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when the presented token is not a structurally
// valid JWT. Kept distinct from a signature failure for observability; both
// surface to clients as a plain 401.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenSignature is returned when a token's signature does not verify
// against the configured secret.
var ErrTokenSignature = errors.New("token signature is invalid", errors.CategoryAuth).
	WithTextCode(TextCodeBadSignature).
	WithCode(errors.CodeUnauthorized)

// ErrRefreshTokenUsed is returned when a cryptographically valid refresh token
// no longer matches the stored value: it was already rotated or revoked.
var ErrRefreshTokenUsed = errors.New("refresh token is expired or used", errors.CategoryAuth).
	WithTextCode(TextCodeRefreshUsed).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthorized covers the generic gate failure: no token, unverifiable
// token, or a principal that no longer exists.
var ErrUnauthorized = errors.New("unauthorized request", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(errors.CodeUnauthorized)

// ErrStalePrincipal is returned when a verified token references an account
// that has since been removed.
var ErrStalePrincipal = errors.New("account for credential no longer exists", errors.CategoryAuth).
	WithTextCode(TextCodeStalePrincipal).
	WithCode(errors.CodeUnauthorized)

// ErrDuplicateAccount is returned when a handle or email is already taken.
var ErrDuplicateAccount = errors.New("an account with that handle or email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateAccount).
	WithCode(errors.CodeConflict)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}

	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for structurally invalid tokens
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}

	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
