package session

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestGetClaims(t *testing.T) {
	tests := []struct {
		name     string
		setupCtx func() context.Context
		wantOK   bool
	}{
		{
			name: "should return claims when present in context",
			setupCtx: func() context.Context {
				claims := &AccessClaims{
					RegisteredClaims: jwt.RegisteredClaims{
						Subject: "acc-123",
					},
					UID:  "acc-123",
					User: "ada",
				}
				return WithClaimsContext(context.Background(), claims)
			},
			wantOK: true,
		},
		{
			name: "should return false when no claims in context",
			setupCtx: func() context.Context {
				return context.Background()
			},
			wantOK: false,
		},
		{
			name: "should return false when context has wrong type",
			setupCtx: func() context.Context {
				return context.WithValue(context.Background(), claimsCtxKey, "not-a-claims-object")
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, ok := GetClaims(tt.setupCtx())
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, "acc-123", claims.AccountID())
			} else {
				assert.Nil(t, claims)
			}
		})
	}
}

func TestPrincipalFromContext(t *testing.T) {
	id := uuid.New()
	principal := &Principal{ID: id, Handle: "ada"}

	t.Run("round trip", func(t *testing.T) {
		ctx := WithPrincipalContext(context.Background(), principal)
		got, ok := PrincipalFromContext(ctx)
		assert.True(t, ok)
		assert.Equal(t, id, got.ID)
	})

	t.Run("absent", func(t *testing.T) {
		got, ok := PrincipalFromContext(context.Background())
		assert.False(t, ok)
		assert.Nil(t, got)
	})
}

func TestGetRouterPrincipal(t *testing.T) {
	principal := &Principal{ID: uuid.New(), Handle: "ada"}

	t.Run("present under default key", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.LocalsMock["principal"] = principal

		got, ok := GetRouterPrincipal(ctx, "")
		assert.True(t, ok)
		assert.Equal(t, principal, got)
	})

	t.Run("present under custom key", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.LocalsMock["who"] = principal

		got, ok := GetRouterPrincipal(ctx, "who")
		assert.True(t, ok)
		assert.Equal(t, principal, got)
	})

	t.Run("absent", func(t *testing.T) {
		ctx := router.NewMockContext()

		_, ok := GetRouterPrincipal(ctx, "")
		assert.False(t, ok)
	})

	t.Run("wrong type", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.LocalsMock["principal"] = "not-a-principal"

		_, ok := GetRouterPrincipal(ctx, "")
		assert.False(t, ok)
	})
}

func TestGetRouterClaims(t *testing.T) {
	claims := &AccessClaims{UID: "acc-123"}

	ctx := router.NewMockContext()
	ctx.LocalsMock["claims"] = claims

	got, ok := GetRouterClaims(ctx, "")
	assert.True(t, ok)
	assert.Equal(t, "acc-123", got.AccountID())

	empty := router.NewMockContext()
	_, ok = GetRouterClaims(empty, "")
	assert.False(t, ok)
}
