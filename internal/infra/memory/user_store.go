package memory

import (
	"context"
	"strings"
	"sync"

	"codemaster-service/internal/domain"
)

// UserStore keeps learner records in process memory. It is the fallback
// when no persistent store is configured or the configured one is unavailable;
// nothing survives a restart.
type UserStore struct {
	mu     sync.RWMutex
	users  map[string]domain.User
	emails map[string]string
	active string
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:  make(map[string]domain.User),
		emails: make(map[string]string),
	}
}

func (s *UserStore) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := normalizeEmail(user.Email)
	if _, ok := s.emails[email]; ok {
		return domain.ErrUserExists
	}
	if _, ok := s.users[user.ID]; ok {
		return domain.ErrUserExists
	}
	s.users[user.ID] = CloneUser(user)
	s.emails[email] = user.ID
	return nil
}

func (s *UserStore) GetUser(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return CloneUser(user), nil
}

func (s *UserStore) FindUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[normalizeEmail(email)]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return CloneUser(s.users[id]), nil
}

func (s *UserStore) UpsertProgress(_ context.Context, userID string, entry domain.ProgressEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if user.Progress == nil {
		user.Progress = domain.Progress{}
	}
	user.Progress.Upsert(entry)
	s.users[userID] = user
	return nil
}

func (s *UserStore) AppendCertificate(_ context.Context, userID string, cert domain.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.Certifications = append(user.Certifications, cert)
	s.users[userID] = user
	return nil
}

func (s *UserStore) ActiveUser(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active, nil
}

func (s *UserStore) SetActiveUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	s.active = userID
	return nil
}

func (s *UserStore) ClearActiveUser(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = ""
	return nil
}

// CloneUser deep-copies the progress map and certificate list.
func CloneUser(u domain.User) domain.User {
	progress := make(domain.Progress, len(u.Progress))
	for course, lessons := range u.Progress {
		copied := make(map[string]domain.ProgressEntry, len(lessons))
		for id, e := range lessons {
			copied[id] = e
		}
		progress[course] = copied
	}
	u.Progress = progress
	u.Certifications = append([]domain.Certificate(nil), u.Certifications...)
	return u
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
