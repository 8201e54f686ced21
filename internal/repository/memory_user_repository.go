package repository

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/account-api/internal/domain"
)

// memoryUserRepository keeps users in process memory. Used when no database is configured
// and by tests. Uniqueness is enforced under the same lock as the write.
type memoryUserRepository struct {
	mu         sync.RWMutex
	nextID     int64
	byID       map[int64]domain.User
	byEmail    map[string]int64
	byUsername map[string]int64
	now        func() time.Time
}

// NewMemoryUserRepository returns an empty in-memory store.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		byID:       make(map[int64]domain.User),
		byEmail:    make(map[string]int64),
		byUsername: make(map[string]int64),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *memoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return &DuplicateError{Field: "email"}
	}
	if _, ok := r.byUsername[user.Username]; ok {
		return &DuplicateError{Field: "username"}
	}

	r.nextID++
	now := r.now()
	user.ID = r.nextID
	user.CreatedAt = now
	user.UpdatedAt = now

	r.byID[user.ID] = cloneUser(*user)
	r.byEmail[user.Email] = user.ID
	r.byUsername[user.Username] = user.ID
	return nil
}

func (r *memoryUserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[user.ID]
	if !ok {
		return ErrNotFound
	}
	if id, taken := r.byEmail[user.Email]; taken && id != user.ID {
		return &DuplicateError{Field: "email"}
	}
	if id, taken := r.byUsername[user.Username]; taken && id != user.ID {
		return &DuplicateError{Field: "username"}
	}

	delete(r.byEmail, current.Email)
	delete(r.byUsername, current.Username)

	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = r.now()
	r.byID[user.ID] = cloneUser(*user)
	r.byEmail[user.Email] = user.ID
	r.byUsername[user.Username] = user.ID
	return nil
}

func (r *memoryUserRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	delete(r.byEmail, user.Email)
	delete(r.byUsername, user.Username)
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneUser(user)
	return &out, nil
}

func (r *memoryUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	id, ok := r.byUsername[username]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *memoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[email]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func cloneUser(u domain.User) domain.User {
	if u.FullName != nil {
		name := *u.FullName
		u.FullName = &name
	}
	return u
}
