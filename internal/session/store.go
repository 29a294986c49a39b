package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/cafe-storefront/internal/lock"
)

// ErrNotFound is returned when the session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

const keyPrefix = "session:"

// Store persists sessions as JSON documents in Redis with a sliding TTL.
type Store struct {
	client *redis.Client
	locker lock.Locker
	ttl    time.Duration
	now    func() time.Time
}

// NewStore constructs a Redis-backed session store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Store{
		client: client,
		locker: lock.Locker{R: client, Prefix: "lock:"},
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns the session lifetime.
func (s *Store) TTL() time.Duration { return s.ttl }

// New creates and saves an anonymous session.
func (s *Store) New(ctx context.Context) (Session, error) {
	now := s.now().UTC()
	sess := Session{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	if err := s.Save(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Load fetches the session by id.
func (s *Store) Load(ctx context.Context, id string) (Session, error) {
	if strings.TrimSpace(id) == "" {
		return Session{}, ErrNotFound
	}
	data, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

// Save writes the session and refreshes its TTL.
func (s *Store) Save(ctx context.Context, sess Session) error {
	if strings.TrimSpace(sess.ID) == "" {
		return errors.New("session id is required")
	}
	sess.UpdatedAt = s.now().UTC()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = sess.UpdatedAt
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.client.Set(ctx, keyPrefix+sess.ID, data, s.ttl).Err()
}

// Clear deletes the session.
func (s *Store) Clear(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	return s.client.Del(ctx, keyPrefix+id).Err()
}

// Update loads the session, applies fn and saves the result while holding
// the session lock, so concurrent requests of one visitor do not overwrite
// each other.
func (s *Store) Update(ctx context.Context, id string, fn func(*Session) error) (Session, error) {
	var out Session
	err := s.locker.WithLock(ctx, keyPrefix+id, 5*time.Second, func(ctx context.Context) error {
		sess, err := s.Load(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(&sess); err != nil {
			return err
		}
		if err := s.Save(ctx, sess); err != nil {
			return err
		}
		out = sess
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return out, nil
}
