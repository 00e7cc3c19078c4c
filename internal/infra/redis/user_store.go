package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"codemaster-service/internal/domain"
)

const maxTxRetries = 5

// UserStore keeps learner records in Redis.
//
//	SET codemaster:user:{id}      <json user>
//	SET codemaster:email:{email}  {id}
//	SET codemaster:active         {id}
//
// Progress and certificate writes are optimistic WATCH/MULTI transactions on
// the user key, so concurrent writers never lose each other's entries.
type UserStore struct {
	client *redis.Client
}

func NewUserStore(client *redis.Client) *UserStore {
	return &UserStore{client: client}
}

func (s *UserStore) CreateUser(ctx context.Context, user domain.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	ok, err := s.client.SetNX(ctx, emailKey(user.Email), user.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("reserve email: %w", err)
	}
	if !ok {
		return domain.ErrUserExists
	}
	created, err := s.client.SetNX(ctx, userKey(user.ID), raw, 0).Result()
	if err != nil || !created {
		_ = s.client.Del(ctx, emailKey(user.Email)).Err()
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return domain.ErrUserExists
	}
	return nil
}

func (s *UserStore) GetUser(ctx context.Context, userID string) (domain.User, error) {
	return s.load(ctx, s.client, userID)
}

func (s *UserStore) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	id, err := s.client.Get(ctx, emailKey(email)).Result()
	if isMiss(err) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("lookup email: %w", err)
	}
	return s.load(ctx, s.client, id)
}

func (s *UserStore) UpsertProgress(ctx context.Context, userID string, entry domain.ProgressEntry) error {
	return s.update(ctx, userID, func(u *domain.User) {
		if u.Progress == nil {
			u.Progress = domain.Progress{}
		}
		u.Progress.Upsert(entry)
	})
}

func (s *UserStore) AppendCertificate(ctx context.Context, userID string, cert domain.Certificate) error {
	return s.update(ctx, userID, func(u *domain.User) {
		u.Certifications = append(u.Certifications, cert)
	})
}

func (s *UserStore) ActiveUser(ctx context.Context) (string, error) {
	id, err := s.client.Get(ctx, activeKey).Result()
	if isMiss(err) {
		return "", nil
	}
	return id, err
}

func (s *UserStore) SetActiveUser(ctx context.Context, userID string) error {
	n, err := s.client.Exists(ctx, userKey(userID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return s.client.Set(ctx, activeKey, userID, 0).Err()
}

func (s *UserStore) ClearActiveUser(ctx context.Context) error {
	return s.client.Del(ctx, activeKey).Err()
}

func (s *UserStore) update(ctx context.Context, userID string, fn func(u *domain.User)) error {
	key := userKey(userID)
	txf := func(tx *redis.Tx) error {
		user, err := s.load(ctx, tx, userID)
		if err != nil {
			return err
		}
		fn(&user)
		raw, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("encode user: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update user %s: %w", userID, redis.TxFailedErr)
}

func (s *UserStore) load(ctx context.Context, c redis.Cmdable, userID string) (domain.User, error) {
	raw, err := c.Get(ctx, userKey(userID)).Bytes()
	if isMiss(err) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return domain.User{}, fmt.Errorf("decode user %s: %w", userID, err)
	}
	return user, nil
}

const activeKey = "codemaster:active"

func userKey(id string) string {
	return "codemaster:user:" + id
}

func emailKey(email string) string {
	return "codemaster:email:" + strings.ToLower(strings.TrimSpace(email))
}

// isMiss reports a plain cache miss as opposed to a Redis failure.
func isMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}
