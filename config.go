package session

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Settings is the concrete Config implementation. Two independent secrets are
// mandatory: compromise of one must not allow minting tokens of the other
// kind. Durations are expressions like "24h" so they survive JSON and YAML
// hydration.
type Settings struct {
	AccessSigningKey       string `json:"access_signing_key" yaml:"access_signing_key"`
	RefreshSigningKey      string `json:"refresh_signing_key" yaml:"refresh_signing_key"`
	AccessTokenTTL         string `json:"access_token_ttl" yaml:"access_token_ttl"`
	RefreshTokenTTL        string `json:"refresh_token_ttl" yaml:"refresh_token_ttl"`
	Issuer                 string `json:"issuer" yaml:"issuer"`
	ContextKey             string `json:"context_key" yaml:"context_key"`
	TokenLookup            string `json:"token_lookup" yaml:"token_lookup"`
	AuthScheme             string `json:"auth_scheme" yaml:"auth_scheme"`
	AccessCookieName       string `json:"access_cookie_name" yaml:"access_cookie_name"`
	RefreshCookieName      string `json:"refresh_cookie_name" yaml:"refresh_cookie_name"`
	RevokeOnPasswordChange bool   `json:"revoke_on_password_change" yaml:"revoke_on_password_change"`
}

var _ Config = (*Settings)(nil)

const (
	// DefaultAccessCookie carries the access token on every request.
	DefaultAccessCookie = "accessToken"
	// DefaultRefreshCookie carries the refresh token; only /refresh reads it.
	DefaultRefreshCookie = "refreshToken"
)

const (
	defaultAccessTTL  = time.Hour * 24
	defaultRefreshTTL = time.Hour * 24 * 10
)

// DefaultSettings fills in everything except the two signing keys.
func DefaultSettings() Settings {
	return Settings{
		AccessTokenTTL:    "24h",
		RefreshTokenTTL:   "240h",
		Issuer:            "clipstream",
		ContextKey:        "principal",
		TokenLookup:       "cookie:" + DefaultAccessCookie + ",header:Authorization",
		AuthScheme:        "Bearer",
		AccessCookieName:  DefaultAccessCookie,
		RefreshCookieName: DefaultRefreshCookie,
	}
}

// Validate will run validation rules
func (s Settings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.AccessSigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&s.RefreshSigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&s.AccessTokenTTL, validation.By(validDurationExpression)),
		validation.Field(&s.RefreshTokenTTL, validation.By(validDurationExpression)),
		validation.Field(&s.RefreshSigningKey, validation.By(func(any) error {
			if s.RefreshSigningKey == s.AccessSigningKey {
				return validation.NewError("validation_distinct_keys", "access and refresh signing keys must differ")
			}
			return nil
		})),
	)
}

func validDurationExpression(value any) error {
	expr, _ := value.(string)
	if expr == "" {
		return nil
	}
	if _, err := time.ParseDuration(expr); err != nil {
		return validation.NewError("validation_duration", "must be a duration expression like 24h")
	}
	return nil
}

func (s Settings) GetAccessSigningKey() string { return s.AccessSigningKey }

func (s Settings) GetRefreshSigningKey() string { return s.RefreshSigningKey }

func (s Settings) GetAccessTokenTTL() time.Duration {
	return parseDurationOr(s.AccessTokenTTL, defaultAccessTTL)
}

func (s Settings) GetRefreshTokenTTL() time.Duration {
	return parseDurationOr(s.RefreshTokenTTL, defaultRefreshTTL)
}

func (s Settings) GetIssuer() string { return s.Issuer }

func (s Settings) GetContextKey() string {
	if s.ContextKey == "" {
		return "principal"
	}
	return s.ContextKey
}

func (s Settings) GetTokenLookup() string {
	if s.TokenLookup == "" {
		return "cookie:" + s.GetAccessCookieName() + ",header:Authorization"
	}
	return s.TokenLookup
}

func (s Settings) GetAuthScheme() string {
	if s.AuthScheme == "" {
		return "Bearer"
	}
	return s.AuthScheme
}

func (s Settings) GetAccessCookieName() string {
	if s.AccessCookieName == "" {
		return DefaultAccessCookie
	}
	return s.AccessCookieName
}

func (s Settings) GetRefreshCookieName() string {
	if s.RefreshCookieName == "" {
		return DefaultRefreshCookie
	}
	return s.RefreshCookieName
}

func (s Settings) GetRevokeOnPasswordChange() bool { return s.RevokeOnPasswordChange }

func parseDurationOr(expr string, def time.Duration) time.Duration {
	if expr == "" {
		return def
	}
	dur, err := time.ParseDuration(expr)
	if err != nil {
		return def
	}
	return dur
}
