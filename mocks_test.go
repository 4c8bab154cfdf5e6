package session_test

import (
	"context"
	"sync"

	session "github.com/clipstream/go-session"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

// MockAccountStore implements session.AccountStore
type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) GetByIdentifier(ctx context.Context, identifier string) (*session.Account, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Account), args.Error(1)
}

func (m *MockAccountStore) GetByID(ctx context.Context, id string) (*session.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Account), args.Error(1)
}

func (m *MockAccountStore) SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

func (m *MockAccountStore) RotateRefreshToken(ctx context.Context, id uuid.UUID, current, next string) error {
	args := m.Called(ctx, id, current, next)
	return args.Error(0)
}

func (m *MockAccountStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

// fakeAccountStore holds accounts in memory with the same conditional swap
// semantics the SQL layer implements. It backs the rotation lineage tests
// where the interplay between stored and presented tokens is the subject.
type fakeAccountStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*session.Account
}

func newFakeAccountStore(accounts ...*session.Account) *fakeAccountStore {
	s := &fakeAccountStore{accounts: map[uuid.UUID]*session.Account{}}
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}
	return s
}

func notFoundErr() error {
	return goerrors.New("record not found", goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound)
}

func (s *fakeAccountStore) GetByIdentifier(ctx context.Context, identifier string) (*session.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Handle == identifier || a.Email == identifier || a.ID.String() == identifier {
			cp := *a
			return &cp, nil
		}
	}
	return nil, notFoundErr()
}

func (s *fakeAccountStore) GetByID(ctx context.Context, id string) (*session.Account, error) {
	return s.GetByIdentifier(ctx, id)
}

func (s *fakeAccountStore) SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return notFoundErr()
	}
	a.RefreshToken = token
	return nil
}

func (s *fakeAccountStore) RotateRefreshToken(ctx context.Context, id uuid.UUID, current, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return session.ErrRefreshTokenUsed
	}
	if a.RefreshToken == nil || *a.RefreshToken != current {
		return session.ErrRefreshTokenUsed
	}
	a.RefreshToken = &next
	return nil
}

func (s *fakeAccountStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return notFoundErr()
	}
	a.PasswordHash = passwordHash
	return nil
}

// quietLogger swallows log output in tests.
type quietLogger struct{}

func (quietLogger) Debug(format string, args ...any) {}
func (quietLogger) Info(format string, args ...any)  {}
func (quietLogger) Warn(format string, args ...any)  {}
func (quietLogger) Error(format string, args ...any) {}

func testSettings() session.Settings {
	s := session.DefaultSettings()
	s.AccessSigningKey = "test-access-signing-key"
	s.RefreshSigningKey = "test-refresh-signing-key"
	return s
}

// quickHash uses a low cost so tests do not pay the production work factor.
func quickHash(password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(hash)
}

func testAccount(password string) *session.Account {
	return &session.Account{
		ID:           uuid.New(),
		Handle:       "ada",
		Email:        "ada@example.com",
		DisplayName:  "Ada Lovelace",
		PasswordHash: quickHash(password),
	}
}
