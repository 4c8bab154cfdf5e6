package session

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Patch(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// ControllerRoutes holds the route paths the controller registers.
type ControllerRoutes struct {
	Login          string
	Logout         string
	Refresh        string
	Register       string
	Me             string
	Account        string
	ChangePassword string
}

// HTTPController exposes the session lifecycle as a JSON API.
type HTTPController struct {
	Logger    Logger
	Routes    *ControllerRoutes
	sessions  *RouteSessions
	registrar *RegisterAccountHandler
	repo      RepositoryManager
	cfg       Config
}

func NewHTTPController(sessions *RouteSessions, repo RepositoryManager, cfg Config) *HTTPController {
	return &HTTPController{
		Logger:    defLogger{},
		sessions:  sessions,
		registrar: NewRegisterAccountHandler(repo),
		repo:      repo,
		cfg:       cfg,
		Routes: &ControllerRoutes{
			Login:          "/login",
			Logout:         "/logout",
			Refresh:        "/refresh",
			Register:       "/register",
			Me:             "/me",
			Account:        "/account",
			ChangePassword: "/change-password",
		},
	}
}

func (a *HTTPController) WithLogger(logger Logger) *HTTPController {
	a.Logger = logger
	return a
}

// RegisterRoutes wires the session endpoints. Everything past login,
// refresh, and register requires a live principal; logout included, so a
// revocation always reaches the store.
func (a *HTTPController) RegisterRoutes(app RouteRegistrar) {
	required := a.sessions.ProtectedRoute(a.sessions.MakeClientRouteAuthErrorHandler(false))

	app.Post(a.Routes.Login, a.LoginPost)
	app.Post(a.Routes.Refresh, a.RefreshPost)
	app.Post(a.Routes.Register, a.RegisterPost)
	app.Post(a.Routes.Logout, a.LogoutPost, required)
	app.Get(a.Routes.Me, a.MeShow, required)
	app.Patch(a.Routes.Account, a.AccountUpdate, required)
	app.Patch(a.Routes.ChangePassword, a.ChangePasswordPatch, required)
}

// LoginRequest is the credential payload a login presents.
type LoginRequest struct {
	Identifier string `json:"identifier" form:"identifier"`
	Password   string `json:"password" form:"password"`
}

func (r LoginRequest) GetIdentifier() string { return r.Identifier }
func (r LoginRequest) GetPassword() string   { return r.Password }

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 100)),
	)
}

// LoginPost authenticates a credential pair and installs the session
// cookies. The body mirrors what the cookies carry so non-browser clients
// can hold the tokens themselves.
func (a *HTTPController) LoginPost(ctx router.Context) error {
	payload := LoginRequest{}
	if err := ctx.Bind(&payload); err != nil {
		return a.respondError(ctx, errors.Wrap(err, errors.CategoryBadInput, "invalid login payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.respondValidation(ctx, err)
	}

	result, err := a.sessions.Login(ctx, payload)
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

// RefreshRequest carries a refresh token for clients that do not use the
// cookie transport.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken"`
}

// RefreshPost rotates the session. The token comes from the refresh cookie
// when present, otherwise from the request body.
func (a *HTTPController) RefreshPost(ctx router.Context) error {
	presented := ctx.Cookies(a.cfg.GetRefreshCookieName())
	if presented == "" {
		payload := RefreshRequest{}
		if err := ctx.Bind(&payload); err == nil {
			presented = payload.RefreshToken
		}
	}

	pair, err := a.sessions.Refresh(ctx, presented)
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, pair)
}

// LogoutPost revokes the stored refresh token for the authenticated
// principal and clears the session cookies. Revoking an already revoked
// lineage is a no-op, so logging out twice lands in the same place.
func (a *HTTPController) LogoutPost(ctx router.Context) error {
	principal, ok := GetRouterPrincipal(ctx, a.cfg.GetContextKey())
	if !ok {
		return a.respondError(ctx, ErrUnauthorized)
	}

	if err := a.sessions.manager.Logout(ctx.Context(), principal.ID); err != nil {
		return a.respondError(ctx, err)
	}

	a.sessions.Logout(ctx)
	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "logged_out",
	})
}

// RegisterRequest is the payload for account creation.
type RegisterRequest struct {
	Handle      string `json:"handle" form:"handle"`
	Email       string `json:"email" form:"email"`
	DisplayName string `json:"displayName" form:"displayName"`
	Password    string `json:"password" form:"password"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Handle, validation.Required, validation.Length(2, 60)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.DisplayName, validation.Length(0, 200)),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
	)
}

// RegisterPost creates an account and logs it straight in, so the client
// lands with a live session and the sanitized principal.
func (a *HTTPController) RegisterPost(ctx router.Context) error {
	payload := RegisterRequest{}
	if err := ctx.Bind(&payload); err != nil {
		return a.respondError(ctx, errors.Wrap(err, errors.CategoryBadInput, "invalid registration payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.respondValidation(ctx, err)
	}

	account, err := a.registrar.Execute(ctx.Context(), RegisterAccountMessage{
		Handle:      payload.Handle,
		Email:       payload.Email,
		DisplayName: payload.DisplayName,
		Password:    payload.Password,
	})
	if err != nil {
		return a.respondError(ctx, err)
	}

	result, err := a.sessions.Login(ctx, LoginRequest{
		Identifier: account.Handle,
		Password:   payload.Password,
	})
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, result)
}

// MeShow returns the principal the gate attached.
func (a *HTTPController) MeShow(ctx router.Context) error {
	principal, ok := GetRouterPrincipal(ctx, a.cfg.GetContextKey())
	if !ok {
		return a.respondError(ctx, ErrUnauthorized)
	}

	return ctx.JSON(router.StatusOK, principal)
}

// UpdateAccountRequest carries the mutable profile fields. Pointers
// distinguish an omitted field from an explicit empty value.
type UpdateAccountRequest struct {
	DisplayName *string `json:"displayName" form:"displayName"`
	Email       *string `json:"email" form:"email"`
	AvatarURL   *string `json:"avatar" form:"avatar"`
	CoverURL    *string `json:"coverImage" form:"coverImage"`
}

func (r UpdateAccountRequest) Validate() error {
	if r.DisplayName == nil && r.Email == nil && r.AvatarURL == nil && r.CoverURL == nil {
		return validation.NewError("validation_empty_patch", "at least one field is required")
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.DisplayName, validation.Length(1, 200)),
		validation.Field(&r.Email, is.Email),
		validation.Field(&r.AvatarURL, is.URL),
		validation.Field(&r.CoverURL, is.URL),
	)
}

// AccountUpdate patches the authenticated account's profile fields.
func (a *HTTPController) AccountUpdate(ctx router.Context) error {
	principal, ok := GetRouterPrincipal(ctx, a.cfg.GetContextKey())
	if !ok {
		return a.respondError(ctx, ErrUnauthorized)
	}

	payload := UpdateAccountRequest{}
	if err := ctx.Bind(&payload); err != nil {
		return a.respondError(ctx, errors.Wrap(err, errors.CategoryBadInput, "invalid account payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.respondValidation(ctx, err)
	}

	account, err := a.repo.Accounts().GetByID(ctx.Context(), principal.ID.String())
	if err != nil {
		return a.respondError(ctx, err)
	}

	if payload.DisplayName != nil {
		account.DisplayName = *payload.DisplayName
	}
	if payload.Email != nil {
		account.Email = *payload.Email
	}
	if payload.AvatarURL != nil {
		account.AvatarURL = *payload.AvatarURL
	}
	if payload.CoverURL != nil {
		account.CoverURL = *payload.CoverURL
	}
	account.NormalizeIdentity()

	updated, err := a.repo.Accounts().Update(ctx.Context(), account, repository.UpdateByID(account.ID.String()))
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, NewPrincipal(updated))
}

// ChangePasswordRequest carries the old and replacement passwords.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" form:"oldPassword"`
	NewPassword string `json:"newPassword" form:"newPassword"`
}

func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(10, 100)),
	)
}

// ChangePasswordPatch verifies the old password and stores a hash of the
// new one for the authenticated account.
func (a *HTTPController) ChangePasswordPatch(ctx router.Context) error {
	principal, ok := GetRouterPrincipal(ctx, a.cfg.GetContextKey())
	if !ok {
		return a.respondError(ctx, ErrUnauthorized)
	}

	payload := ChangePasswordRequest{}
	if err := ctx.Bind(&payload); err != nil {
		return a.respondError(ctx, errors.Wrap(err, errors.CategoryBadInput, "invalid password payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.respondValidation(ctx, err)
	}

	if err := a.sessions.manager.ChangePassword(ctx.Context(), principal.ID, payload.OldPassword, payload.NewPassword); err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "password_changed",
	})
}

func (a *HTTPController) respondValidation(ctx router.Context, err error) error {
	a.Logger.Info("payload validation failed: %s", err)
	return ctx.JSON(router.StatusBadRequest, map[string]any{
		"error":  "validation failed",
		"fields": err,
	})
}

func (a *HTTPController) respondError(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	code := richErr.Code
	if code == 0 {
		code = errors.CodeInternal
	}

	if code >= 500 {
		a.Logger.Error("request failed (%s): %s", richErr.Category, richErr.Message)
	}

	return ctx.JSON(code, map[string]any{
		"error": richErr.Message,
		"code":  richErr.TextCode,
	})
}
