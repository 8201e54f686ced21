package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/account-api/internal/auth"
	"github.com/spec-kit/account-api/internal/config"
	"github.com/spec-kit/account-api/internal/domain"
	"github.com/spec-kit/account-api/internal/events"
	"github.com/spec-kit/account-api/internal/repository"
)

const testPassword = "Secret123"

type memoryDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	err     error
}

func newMemoryDenylist() *memoryDenylist {
	return &memoryDenylist{revoked: map[string]time.Duration{}}
}

func (d *memoryDenylist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.revoked[jti] = ttl
	return nil
}

func (d *memoryDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	_, ok := d.revoked[jti]
	return ok, nil
}

type stubLimiter struct {
	allowed    bool
	retryAfter time.Duration
	err        error
	keys       []string
}

func (l *stubLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.keys = append(l.keys, key)
	return l.allowed, l.retryAfter, l.err
}

type serviceFixture struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	denylist   *memoryDenylist
	limiter    *stubLimiter
	dispatcher events.Dispatcher
	published  []events.Event
	userSvc    *UserService
	authSvc    *AuthService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		users:      repository.NewMemoryUserRepository(),
		tokens:     auth.NewTokenManager("test-secret", time.Minute, time.Hour),
		denylist:   newMemoryDenylist(),
		limiter:    &stubLimiter{allowed: true},
		dispatcher: events.NewInMemoryDispatcher(zap.NewNop()),
	}
	for _, typ := range []events.EventType{
		events.EventUserRegistered, events.EventUserUpdated, events.EventUserDeleted,
		events.EventUserLoggedIn, events.EventUserLoggedOut,
	} {
		f.dispatcher.Subscribe(typ, func(_ context.Context, e events.Event) error {
			f.published = append(f.published, e)
			return nil
		})
	}

	f.userSvc = NewUserService(config.AuthConfig{BcryptCost: bcrypt.MinCost}, UserDependencies{
		UserRepo:   f.users,
		Dispatcher: f.dispatcher,
	})
	f.authSvc = NewAuthService(AuthDependencies{
		BcryptCost: bcrypt.MinCost,
		UserRepo:   f.users,
		Tokens:     f.tokens,
		Denylist:   f.denylist,
		Limiter:    f.limiter,
		Dispatcher: f.dispatcher,
	})
	return f
}

func (f *serviceFixture) register(t *testing.T, username string) *domain.User {
	t.Helper()
	user, err := f.userSvc.Create(context.Background(), UserCreateInput{
		Email:    username + "@example.com",
		Username: username,
		Password: testPassword,
	})
	require.NoError(t, err)
	return user
}

func (f *serviceFixture) superuser(t *testing.T, username string) *domain.User {
	t.Helper()
	user := f.register(t, username)
	user.IsSuperuser = true
	require.NoError(t, f.users.Update(context.Background(), user))
	return user
}

func (f *serviceFixture) eventTypes() []events.EventType {
	out := make([]events.EventType, 0, len(f.published))
	for _, e := range f.published {
		out = append(out, e.Type)
	}
	return out
}
