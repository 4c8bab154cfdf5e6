package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Codec creates and verifies the signed, time-bounded tokens that carry a
// principal identifier and claim set. Access and refresh tokens use distinct
// secrets and lifetimes so compromise of one class cannot mint the other.
type Codec struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	logger     Logger
}

var _ TokenCodec = (*Codec)(nil)

// NewCodec creates a credential codec from explicit configuration.
func NewCodec(cfg Config, logger Logger) *Codec {
	if logger == nil {
		logger = defLogger{}
	}
	return &Codec{
		accessKey:  []byte(cfg.GetAccessSigningKey()),
		refreshKey: []byte(cfg.GetRefreshSigningKey()),
		accessTTL:  cfg.GetAccessTokenTTL(),
		refreshTTL: cfg.GetRefreshTokenTTL(),
		issuer:     cfg.GetIssuer(),
		logger:     logger,
	}
}

// IssueAccessToken signs the principal's public claims with the access-token
// secret and the configured access TTL.
func (c *Codec) IssueAccessToken(principal *Principal) (string, error) {
	if principal == nil {
		return "", errors.New("principal must not be nil", errors.CategoryInternal)
	}

	now := time.Now()
	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   principal.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
		},
		UID:  principal.ID.String(),
		User: principal.Handle,
		Mail: principal.Email,
		Name: principal.DisplayName,
	}
	ensureTokenID(&claims.RegisteredClaims)

	return c.sign(claims, c.accessKey)
}

// IssueRefreshToken signs a minimal claim set with the refresh-token secret
// and the longer refresh TTL.
func (c *Codec) IssueRefreshToken(id uuid.UUID) (string, error) {
	now := time.Now()
	claims := &RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   id.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.refreshTTL)),
		},
		UID: id.String(),
	}
	ensureTokenID(&claims.RegisteredClaims)

	return c.sign(claims, c.refreshKey)
}

// VerifyAccessToken parses and validates an access token against the
// access-token secret, returning its structured claims.
func (c *Codec) VerifyAccessToken(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.verify(raw, claims, c.accessKey); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefreshToken parses and validates a refresh token against the
// refresh-token secret. A valid result only proves the signature and expiry;
// the lifecycle manager still has to match it to the stored value.
func (c *Codec) VerifyRefreshToken(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.verify(raw, claims, c.refreshKey); err != nil {
		return nil, err
	}
	return claims, nil
}

// ensureTokenID assigns a unique jti so two tokens minted for the same
// subject within the same second still differ. Rotation stores the refresh
// token by value; identical tokens would let a rotated-out token keep
// matching the stored one.
func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}

func (c *Codec) sign(claims jwt.Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return signed, nil
}

func (c *Codec) verify(raw string, claims jwt.Claims, key []byte) error {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if c.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(c.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			c.logger.Error("codec encountered unexpected signing method %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
				WithTextCode(ErrTokenMalformed.TextCode).
				WithCode(ErrTokenMalformed.Code)
		default:
			return errors.Wrap(err, ErrTokenSignature.Category, ErrTokenSignature.Message).
				WithTextCode(ErrTokenSignature.TextCode).
				WithCode(ErrTokenSignature.Code)
		}
	}

	if !token.Valid {
		c.logger.Error("codec could not validate token claims")
		return ErrTokenSignature
	}

	return nil
}
