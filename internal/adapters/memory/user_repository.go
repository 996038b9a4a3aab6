// Package memory provides a process-local user store for local development
// and tests. Production deployments use the postgres adapter.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/lumioapp/auth-service/internal/domain"
)

type UserRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]domain.User
	byEmail map[string]uuid.UUID
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[uuid.UUID]domain.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *UserRepository) GetByID(_ context.Context, userID uuid.UUID) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) GetByVerificationToken(_ context.Context, token string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.byID {
		if user.VerificationToken != nil && *user.VerificationToken == token {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (r *UserRepository) Create(_ context.Context, user domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[user.Email]; exists {
		return domain.User{}, domain.ErrConflict
	}
	if user.UserID == uuid.Nil {
		user.UserID = uuid.New()
	}
	r.byID[user.UserID] = user
	r.byEmail[user.Email] = user.UserID
	return user, nil
}

func (r *UserRepository) Update(_ context.Context, user domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[user.UserID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	if existing.Email != user.Email {
		delete(r.byEmail, existing.Email)
		r.byEmail[user.Email] = user.UserID
	}
	r.byID[user.UserID] = user
	return user, nil
}
