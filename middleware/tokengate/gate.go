package tokengate

import (
	"context"
	"errors"

	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup     = "cookie:accessToken,header:" + router.HeaderAuthorization
	ErrTokenMissingOrEmpty = errors.New("missing or malformed JWT")
)

// AccessVerifier checks an access token's signature and expiry.
// This mirrors the verifier surface of the session package without
// creating an import cycle.
type AccessVerifier interface {
	VerifyAccessToken(raw string) (AuthClaims, error)
}

// AuthClaims is the claim surface the gate needs from a verified token.
// This mirrors the AuthClaims interface from the session package.
type AuthClaims interface {
	Subject() string
	AccountID() string
	Handle() string
	Email() string
}

// PrincipalLoader resolves verified claims into the value attached under
// ContextKey, usually the sanitized account record. Returning an error
// rejects the request even though the token verified; a deleted account
// keeps a live token from working.
type PrincipalLoader func(ctx context.Context, claims AuthClaims) (any, error)

// ValidationListener is invoked after a token has been verified but before
// the principal is loaded.
type ValidationListener func(ctx router.Context, claims AuthClaims) error

type Config struct {
	// Filter skips the gate entirely when it returns true.
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler

	// Verifier is required.
	Verifier AccessVerifier

	// PrincipalLoader is optional; without it the claims themselves are
	// attached under ContextKey.
	PrincipalLoader PrincipalLoader

	// ContextKey is the locals key for the loaded principal.
	ContextKey string
	// ClaimsKey is the locals key for the verified claims.
	ClaimsKey string

	// TokenLookup is a comma separated list of sources tried in order,
	// e.g. "cookie:accessToken,header:Authorization". The first source
	// that yields a token wins.
	TokenLookup string
	AuthScheme  string

	// ContextEnricher propagates claims to the standard Go context after
	// successful verification.
	ContextEnricher func(c context.Context, claims AuthClaims) context.Context

	// ValidationListeners run after verification succeeds. Use them to emit
	// events or perform bookkeeping before the request proceeds.
	ValidationListeners []ValidationListener
}

// New builds the gate handler. The configured SuccessHandler calls Next by
// default, so the handler chains like any other middleware.
func New(config ...Config) router.HandlerFunc {
	cfg := GetDefaultConfig(config...)
	return func(ctx router.Context) error {
		if cfg.Filter != nil && cfg.Filter(ctx) {
			return ctx.Next()
		}

		raw, err := ExtractRawTokenFromContext(ctx, cfg.getExtractors())
		if err != nil {
			return cfg.ErrorHandler(ctx, err)
		}

		claims, err := cfg.Verifier.VerifyAccessToken(raw)
		if err != nil {
			return cfg.ErrorHandler(ctx, err)
		}

		if err := cfg.runValidationListeners(ctx, claims); err != nil {
			return cfg.ErrorHandler(ctx, err)
		}

		ctx.Locals(cfg.ClaimsKey, claims)

		if cfg.PrincipalLoader != nil {
			principal, err := cfg.PrincipalLoader(ctx.Context(), claims)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}
			ctx.Locals(cfg.ContextKey, principal)
		} else {
			ctx.Locals(cfg.ContextKey, claims)
		}

		if cfg.ContextEnricher != nil {
			stdCtx := ctx.Context()
			ctx.SetContext(cfg.ContextEnricher(stdCtx, claims))
		}

		return cfg.SuccessHandler(ctx)
	}
}

func ExtractRawTokenFromContext(ctx router.Context, extractors []TokenExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			if err.Error() == ErrTokenMissingOrEmpty.Error() {
				return c.Status(router.StatusBadRequest).SendString(ErrTokenMissingOrEmpty.Error())
			}
			return c.Status(router.StatusUnauthorized).SendString("Invalid or expired token")
		}
	}

	if cfg.Verifier == nil {
		panic("SESSION: token gate configuration: Verifier is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "principal"
	}

	if cfg.ClaimsKey == "" {
		cfg.ClaimsKey = "claims"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func (cfg *Config) getExtractors() []TokenExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func (cfg *Config) runValidationListeners(ctx router.Context, claims AuthClaims) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(ctx, claims); err != nil {
			return err
		}
	}
	return nil
}
