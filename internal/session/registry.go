// Package session keeps track of signed-in sessions: the server-side
// registry in Redis and the client-side store that remembers who is signed in.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

var ErrSessionNotFound = errors.New("session not found")

// Session is the server-side record of one sign-in.
type Session struct {
	ID        string    `json:"id"`
	UserID    int       `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Method    string    `json:"method"`
	CreatedAt time.Time `json:"created_at"`
}

type Registry struct {
	redis redis.Cmdable
	ttl   time.Duration
	newID func() string
	now   func() time.Time
}

func NewRegistry(rdb redis.Cmdable, ttl time.Duration) *Registry {
	return &Registry{
		redis: rdb,
		ttl:   ttl,
		newID: uuid.NewString,
		now:   time.Now,
	}
}

func key(id string) string {
	return keyPrefix + id
}

// Create opens a session for the user and returns it with a fresh id.
func (r *Registry) Create(ctx context.Context, userID int, email, role, method string) (*Session, error) {
	s := &Session{
		ID:        r.newID(),
		UserID:    userID,
		Email:     email,
		Role:      role,
		Method:    method,
		CreatedAt: r.now().UTC(),
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	if err := r.redis.Set(ctx, key(s.ID), string(data), r.ttl).Err(); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return s, nil
}

func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}

	data, err := r.redis.Get(ctx, key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	var s Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *Registry) Active(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	n, err := r.redis.Exists(ctx, key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return n > 0, nil
}

// Destroy ends the session. Destroying an unknown session is not an error.
func (r *Registry) Destroy(ctx context.Context, id string) error {
	if err := r.redis.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
