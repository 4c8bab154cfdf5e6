package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthClaims is the verified view of an access token the rest of the system
// consumes.
type AuthClaims interface {
	Subject() string
	AccountID() string
	Handle() string
	Email() string
	DisplayName() string
	Expires() time.Time
	IssuedAt() time.Time
}

// AccessClaims is the short-lived, stateless assertion carried by an access
// token. Validity is proven by signature and expiry alone; nothing here is
// persisted.
type AccessClaims struct {
	jwt.RegisteredClaims
	UID  string `json:"uid,omitempty"`
	User string `json:"handle,omitempty"`
	Mail string `json:"email,omitempty"`
	Name string `json:"displayName,omitempty"`
}

var _ AuthClaims = (*AccessClaims)(nil)

// Subject returns the subject claim
func (c *AccessClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// AccountID returns the principal identifier the token asserts.
func (c *AccessClaims) AccountID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Handle returns the account's unique handle
func (c *AccessClaims) Handle() string {
	return c.User
}

// Email returns the account's contact address
func (c *AccessClaims) Email() string {
	return c.Mail
}

// DisplayName returns the account's display name
func (c *AccessClaims) DisplayName() string {
	return c.Name
}

// Expires returns the expiration time
func (c *AccessClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *AccessClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// RefreshClaims is the minimal, longer-lived assertion carried by a refresh
// token: just the principal id and the time bounds. Its authority further
// depends on matching the single value stored on the account record.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UID string `json:"uid,omitempty"`
}

// AccountID returns the principal identifier the token asserts.
func (c *RefreshClaims) AccountID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// AccountUUID parses the asserted principal id.
func (c *RefreshClaims) AccountUUID() (uuid.UUID, error) {
	return uuid.Parse(c.AccountID())
}

// Expires returns the expiration time
func (c *RefreshClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}
