// Package account tracks the learner signed in to this service instance.
package account

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"codemaster-service/internal/app"
	"codemaster-service/internal/domain"
	"codemaster-service/internal/logger"
)

// Context is the explicit current-learner context. User is nil when nobody
// is signed in.
type Context struct {
	User *domain.User
}

// SignedIn reports whether a learner is active.
func (c Context) SignedIn() bool { return c.User != nil }

// UserID is empty for anonymous visitors.
func (c Context) UserID() string {
	if c.User == nil {
		return ""
	}
	return c.User.ID
}

// Service registers, signs in and signs out learners. Credentials are stored
// and compared in plain text; the local store is not a trust boundary.
type Service struct {
	users app.UserStore
	log   *logger.Logger
	now   func() time.Time
	newID func() string

	mu      sync.RWMutex
	current Context
}

func NewService(users app.UserStore, log *logger.Logger) *Service {
	return &Service{
		users: users,
		log:   log.With("component", "account"),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Register creates a learner and makes it the active one.
func (s *Service) Register(ctx context.Context, name, email, password string) (domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	if _, err := s.users.FindUserByEmail(ctx, email); err == nil {
		return domain.User{}, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, err
	}

	user := domain.User{
		ID:             s.newID(),
		Name:           strings.TrimSpace(name),
		Email:          email,
		Password:       password,
		JoinedDate:     s.now().UTC(),
		Progress:       domain.Progress{},
		Certifications: []domain.Certificate{},
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	s.activate(ctx, user)
	s.log.Info("learner registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Login signs in an existing learner.
func (s *Service) Login(ctx context.Context, email, password string) (domain.User, error) {
	user, err := s.users.FindUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, err
	}
	if user.Password != password {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	s.activate(ctx, user)
	s.log.Info("learner signed in", "user_id", user.ID)
	return user, nil
}

// Logout clears the active learner.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.current = Context{}
	s.mu.Unlock()
	if err := s.users.ClearActiveUser(ctx); err != nil {
		s.log.Warn("active learner not cleared", "error", err)
		return err
	}
	return nil
}

// Load restores the active learner from the store. Any store failure yields
// an anonymous context.
func (s *Service) Load(ctx context.Context) Context {
	id, err := s.users.ActiveUser(ctx)
	if err != nil {
		s.log.Warn("active learner not loaded", "error", err)
		return s.set(Context{})
	}
	if id == "" {
		return s.set(Context{})
	}
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		s.log.Warn("active learner not loaded", "user_id", id, "error", err)
		return s.set(Context{})
	}
	return s.set(Context{User: &user})
}

// Current returns the learner context without touching the store.
func (s *Service) Current() Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Refresh re-reads the active learner so progress and certificates written by
// lesson sessions are visible.
func (s *Service) Refresh(ctx context.Context) Context {
	cur := s.Current()
	if !cur.SignedIn() {
		return cur
	}
	user, err := s.users.GetUser(ctx, cur.User.ID)
	if err != nil {
		s.log.Warn("learner not refreshed", "user_id", cur.User.ID, "error", err)
		return cur
	}
	return s.set(Context{User: &user})
}

func (s *Service) activate(ctx context.Context, user domain.User) {
	s.set(Context{User: &user})
	if err := s.users.SetActiveUser(ctx, user.ID); err != nil {
		s.log.Warn("active learner not persisted", "user_id", user.ID, "error", err)
	}
}

func (s *Service) set(c Context) Context {
	s.mu.Lock()
	s.current = c
	s.mu.Unlock()
	return c
}
