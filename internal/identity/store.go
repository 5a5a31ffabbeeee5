// Package identity holds the canonical user records. Members refer to users
// by id only; nothing in this package knows about workspaces.
package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"meetspace-api/internal/domain"

	"github.com/google/uuid"
)

// Persister stores user records outside the process. The store calls it
// before publishing a change; an error aborts the change.
type Persister interface {
	SaveUser(ctx context.Context, user domain.User) error
}

// Store is the in-memory identity store.
type Store struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	byEmail map[string]string

	persister Persister
	now       func() time.Time
}

// NewStore creates an empty store. persister may be nil.
func NewStore(persister Persister) *Store {
	return &Store{
		users:     make(map[string]domain.User),
		byEmail:   make(map[string]string),
		persister: persister,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a user with a fresh id and its own calendar id.
func (s *Store) Register(ctx context.Context, name, email, phone string) (domain.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return domain.User{}, fmt.Errorf("register user: email is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[email]; taken {
		return domain.User{}, domain.ErrEmailTaken
	}

	now := s.now()
	user := domain.User{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(name),
		Email:      email,
		Phone:      strings.TrimSpace(phone),
		CalendarID: uuid.NewString(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if s.persister != nil {
		if err := s.persister.SaveUser(ctx, user); err != nil {
			return domain.User{}, fmt.Errorf("persist user: %w", err)
		}
	}

	s.users[user.ID] = user
	s.byEmail[email] = user.ID
	return user, nil
}

// Get returns the user with the given id.
func (s *Store) Get(userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

// Exists reports whether a user id is known.
func (s *Store) Exists(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[userID]
	return ok
}

// UpdateProfile changes the mutable name and contact fields.
func (s *Store) UpdateProfile(ctx context.Context, userID string, upd domain.ProfileUpdate) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	oldEmail := user.Email

	if upd.Name != nil {
		user.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Phone != nil {
		user.Phone = strings.TrimSpace(*upd.Phone)
	}
	if upd.Email != nil {
		email := normalizeEmail(*upd.Email)
		if email == "" {
			return domain.User{}, fmt.Errorf("update user: email is required")
		}
		if owner, taken := s.byEmail[email]; taken && owner != userID {
			return domain.User{}, domain.ErrEmailTaken
		}
		user.Email = email
	}
	user.UpdatedAt = s.now()

	if s.persister != nil {
		if err := s.persister.SaveUser(ctx, user); err != nil {
			return domain.User{}, fmt.Errorf("persist user: %w", err)
		}
	}

	if oldEmail != user.Email {
		delete(s.byEmail, oldEmail)
		s.byEmail[user.Email] = userID
	}
	s.users[userID] = user
	return user, nil
}

// Restore loads previously persisted users without calling the persister.
func (s *Store) Restore(users []domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range users {
		u.Email = normalizeEmail(u.Email)
		s.users[u.ID] = u
		s.byEmail[u.Email] = u.ID
	}
}

// Len returns the number of registered users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
