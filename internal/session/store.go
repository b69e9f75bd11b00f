package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	redis "github.com/redis/go-redis/v9"

	"supplygw/internal/model"
)

// ErrNoSession is returned by Load when nothing is stored.
var ErrNoSession = errors.New("no stored session")

// Store persists the bearer token across restarts of the client context. It
// holds at most one session; Clear is always safe to call redundantly.
type Store interface {
	Load(ctx context.Context) (model.Session, error)
	Save(ctx context.Context, s model.Session) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the session in process memory. Used when no REDIS_URL is
// configured; survives nothing, which matches an ephemeral client context.
type MemoryStore struct {
	mu      sync.Mutex
	sess    model.Session
	present bool
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(ctx context.Context) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.present {
		return model.Session{}, ErrNoSession
	}
	return m.sess, nil
}

func (m *MemoryStore) Save(ctx context.Context, s model.Session) error {
	m.mu.Lock()
	m.sess, m.present = s, true
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.sess, m.present = model.Session{}, false
	m.mu.Unlock()
	return nil
}

// RedisStore persists the session under one key per client context, so a
// restarted console resumes Authenticated without re-prompting. No TTL is set:
// expiry is observed reactively when a downstream call reports 401/403.
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(redisURL, contextID string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if contextID == "" {
		contextID = "default"
	}
	return &RedisStore{rdb: redis.NewClient(opt), key: "session:" + contextID}, nil
}

func (s *RedisStore) Load(ctx context.Context) (model.Session, error) {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Session{}, ErrNoSession
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("load session: %w", err)
	}
	var sess model.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return model.Session{}, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess model.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key, raw, 0).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key).Err()
}
