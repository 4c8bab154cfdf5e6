package session

import (
	"context"
	"time"

	"github.com/clipstream/go-session/middleware/tokengate"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// LoginPayload carries the credentials a login request presents.
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
}

// RouteSessions bridges the lifecycle manager to the HTTP surface: it sets
// and clears the session cookie pair and builds the request gate for
// protected routes.
type RouteSessions struct {
	manager               *Lifecycle
	cfg                   Config
	accessCookieDuration  time.Duration
	refreshCookieDuration time.Duration
	Logger                Logger
	ErrorHandler          func(c router.Context, err error) error
}

func NewHTTPSessions(manager *Lifecycle, cfg Config) (*RouteSessions, error) {
	accessCookieDuration := 24 * time.Hour
	if cfg.GetAccessTokenTTL() > 0 {
		accessCookieDuration = cfg.GetAccessTokenTTL()
	}

	refreshCookieDuration := accessCookieDuration
	if cfg.GetRefreshTokenTTL() > 0 {
		refreshCookieDuration = cfg.GetRefreshTokenTTL()
	}

	a := &RouteSessions{
		cfg:                   cfg,
		manager:               manager,
		Logger:                defLogger{},
		accessCookieDuration:  accessCookieDuration,
		refreshCookieDuration: refreshCookieDuration,
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

func (a RouteSessions) GetAccessCookieDuration() time.Duration {
	return a.accessCookieDuration
}

func (a RouteSessions) GetRefreshCookieDuration() time.Duration {
	return a.refreshCookieDuration
}

// ProtectedRoute builds the gate middleware for routes that require a live
// access token. The verified principal ends up both in router locals and in
// the request's standard context.
func (a *RouteSessions) ProtectedRoute(errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return tokengate.New(tokengate.Config{
			ErrorHandler: errorHandler,
			Verifier:     gateVerifier{codec: a.manager.Codec()},
			PrincipalLoader: func(ctx context.Context, claims tokengate.AuthClaims) (any, error) {
				return a.manager.LoadPrincipal(ctx, claims.AccountID())
			},
			AuthScheme:  a.cfg.GetAuthScheme(),
			ContextKey:  a.cfg.GetContextKey(),
			TokenLookup: a.cfg.GetTokenLookup(),
			ContextEnricher: func(ctx context.Context, claims tokengate.AuthClaims) context.Context {
				if ac, ok := claims.(AuthClaims); ok {
					ctx = WithClaimsContext(ctx, ac)
				}
				return ctx
			},
		})
	}
}

// Login authenticates the payload and, on success, installs the session
// cookie pair. The result is returned so controllers can include the
// sanitized principal in the response body.
func (a *RouteSessions) Login(ctx router.Context, payload LoginPayload) (*LoginResult, error) {
	result, err := a.manager.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return nil, err
	}

	a.SetSessionCookies(ctx, &result.TokenPair)
	return result, nil
}

// Refresh rotates the session using the presented refresh token and installs
// the replacement cookie pair.
func (a *RouteSessions) Refresh(ctx router.Context, presented string) (*TokenPair, error) {
	pair, err := a.manager.Refresh(ctx.Context(), presented)
	if err != nil {
		return nil, err
	}

	a.SetSessionCookies(ctx, pair)
	return pair, nil
}

// Logout clears the cookie pair. Revoking the stored token is the
// controller's call since it needs the authenticated principal.
func (a *RouteSessions) Logout(ctx router.Context) {
	a.ClearSessionCookies(ctx)
}

// MakeClientRouteAuthErrorHandler normalizes gate failures into tagged
// errors. With optional set the request proceeds without a principal.
func (a *RouteSessions) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding: %s", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

// SetSessionCookies installs both tokens as HTTP only cookies. The refresh
// cookie lives as long as the refresh token it carries.
func (a *RouteSessions) SetSessionCookies(c router.Context, pair *TokenPair) {
	a.cookieSet(c, a.cfg.GetAccessCookieName(), pair.AccessToken, a.accessCookieDuration)
	a.cookieSet(c, a.cfg.GetRefreshCookieName(), pair.RefreshToken, a.refreshCookieDuration)
}

// ClearSessionCookies expires both session cookies.
func (a *RouteSessions) ClearSessionCookies(c router.Context) {
	a.cookieDel(c, a.cfg.GetAccessCookieName())
	a.cookieDel(c, a.cfg.GetRefreshCookieName())
}

func (a *RouteSessions) cookieSet(c router.Context, name, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteSessions) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteSessions) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler: %s category=%s details=%s",
		richErr.Message,
		richErr.Category,
		print.MaybePrettyJSON(richErr.Metadata),
	)

	code := richErr.Code
	if code == 0 {
		code = errors.CodeInternal
	}

	return c.JSON(code, map[string]any{
		"error": richErr.Message,
		"code":  richErr.TextCode,
	})
}

// gateVerifier adapts the session codec to the gate's verifier surface.
type gateVerifier struct {
	codec TokenCodec
}

func (v gateVerifier) VerifyAccessToken(raw string) (tokengate.AuthClaims, error) {
	claims, err := v.codec.VerifyAccessToken(raw)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
