package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"codemaster-service/internal/domain"
)

var (
	bucketUsers  = []byte("users")
	bucketEmails = []byte("emails")
	bucketMeta   = []byte("meta")

	keyActiveUser = []byte("active_user")
)

// UserStore keeps learner records in a local bbolt file. Each operation is a
// single transaction, so a progress upsert never rewrites other users.
type UserStore struct {
	db *bbolt.DB
}

// Open opens (or creates) the database file and its buckets.
func Open(path string) (*UserStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create bolt dir: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketUsers, bucketEmails, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &UserStore{db: db}, nil
}

func (s *UserStore) Close() error {
	return s.db.Close()
}

func (s *UserStore) CreateUser(_ context.Context, user domain.User) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		emails := tx.Bucket(bucketEmails)
		email := normalizeEmail(user.Email)
		if emails.Get([]byte(email)) != nil {
			return domain.ErrUserExists
		}
		users := tx.Bucket(bucketUsers)
		if users.Get([]byte(user.ID)) != nil {
			return domain.ErrUserExists
		}
		if err := put(users, user.ID, user); err != nil {
			return err
		}
		return emails.Put([]byte(email), []byte(user.ID))
	})
}

func (s *UserStore) GetUser(_ context.Context, userID string) (domain.User, error) {
	var user domain.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		user, err = get(tx.Bucket(bucketUsers), userID)
		return err
	})
	return user, err
}

func (s *UserStore) FindUserByEmail(_ context.Context, email string) (domain.User, error) {
	var user domain.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketEmails).Get([]byte(normalizeEmail(email)))
		if id == nil {
			return domain.ErrUserNotFound
		}
		var err error
		user, err = get(tx.Bucket(bucketUsers), string(id))
		return err
	})
	return user, err
}

func (s *UserStore) UpsertProgress(_ context.Context, userID string, entry domain.ProgressEntry) error {
	return s.update(userID, func(u *domain.User) {
		if u.Progress == nil {
			u.Progress = domain.Progress{}
		}
		u.Progress.Upsert(entry)
	})
}

func (s *UserStore) AppendCertificate(_ context.Context, userID string, cert domain.Certificate) error {
	return s.update(userID, func(u *domain.User) {
		u.Certifications = append(u.Certifications, cert)
	})
}

func (s *UserStore) ActiveUser(_ context.Context) (string, error) {
	var id string
	err := s.db.View(func(tx *bbolt.Tx) error {
		id = string(tx.Bucket(bucketMeta).Get(keyActiveUser))
		return nil
	})
	return id, err
}

func (s *UserStore) SetActiveUser(_ context.Context, userID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketUsers).Get([]byte(userID)) == nil {
			return domain.ErrUserNotFound
		}
		return tx.Bucket(bucketMeta).Put(keyActiveUser, []byte(userID))
	})
}

func (s *UserStore) ClearActiveUser(_ context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Delete(keyActiveUser)
	})
}

// update is a keyed read-modify-write of one user inside one transaction.
func (s *UserStore) update(userID string, fn func(u *domain.User)) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		users := tx.Bucket(bucketUsers)
		user, err := get(users, userID)
		if err != nil {
			return err
		}
		fn(&user)
		return put(users, userID, user)
	})
}

func put[T any](b *bbolt.Bucket, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}

func get(b *bbolt.Bucket, key string) (domain.User, error) {
	var out domain.User
	v := b.Get([]byte(key))
	if v == nil {
		return out, domain.ErrUserNotFound
	}
	if err := json.Unmarshal(v, &out); err != nil {
		return out, fmt.Errorf("decode user %s: %w", key, err)
	}
	return out, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
