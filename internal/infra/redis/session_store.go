package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"codemaster-service/internal/infra/memory"
)

// SessionStore keeps lesson sessions in process so broadcasts and scheduled
// tasks keep working, and mirrors each open session as a Redis marker so
// other tools can see which lessons are open.
type SessionStore struct {
	*memory.SessionStore
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	s := &SessionStore{client: client, ttl: ttl}
	s.SessionStore = memory.NewSessionStoreWithHooks(memory.SessionHooks{
		Opened: s.markOpen,
		Closed: s.markClosed,
	})
	return s
}

// Marker writes are best effort; a Redis outage must not close lessons.
func (s *SessionStore) markOpen(key string) {
	_ = s.client.Set(context.Background(), s.key(key), "1", s.ttl).Err()
}

func (s *SessionStore) markClosed(key string) {
	_ = s.client.Del(context.Background(), s.key(key)).Err()
}

func (s *SessionStore) key(key string) string {
	return "codemaster:session:" + key
}
