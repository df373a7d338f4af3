package memory

import (
	"context"
	"sync"

	"quiz-battle-service/internal/domain"
)

// Account is a seeded user and the bearer token that resolves to it.
type Account struct {
	Token string
	domain.Identity
}

// UserDirectory resolves tokens against a fixed set of accounts and keeps
// ratings in memory.
type UserDirectory struct {
	mu      sync.RWMutex
	byToken map[string]int64
	users   map[int64]domain.Identity
}

func NewUserDirectory(accounts ...Account) *UserDirectory {
	d := &UserDirectory{
		byToken: make(map[string]int64, len(accounts)),
		users:   make(map[int64]domain.Identity, len(accounts)),
	}
	for _, a := range accounts {
		d.byToken[a.Token] = a.ID
		d.users[a.ID] = a.Identity
	}
	return d
}

func (d *UserDirectory) Authenticate(_ context.Context, token string) (domain.Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byToken[token]
	if !ok {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	return d.users[id], nil
}

func (d *UserDirectory) UpdateRating(_ context.Context, userID int64, rating int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.Rating = rating
	d.users[userID] = user
	return nil
}

// Rating returns the stored rating of userID.
func (d *UserDirectory) Rating(userID int64) (int, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	user, ok := d.users[userID]
	return user.Rating, ok
}
