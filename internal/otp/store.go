// Package otp issues and checks one-time sign-in codes kept in Redis.
package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"karyalay/internal/auth"
	"karyalay/internal/logger"

	"github.com/redis/go-redis/v9"
)

const (
	CodeLength  = 6
	CodeTTL     = 10 * time.Minute
	MaxAttempts = 5

	keyPrefix = "otp:"
)

var (
	ErrCodeInvalid     = errors.New("code does not match")
	ErrCodeExpired     = errors.New("code not found or expired")
	ErrTooManyAttempts = errors.New("too many attempts, request a new code")
)

// verifyScript counts one attempt against the code at KEYS[1] and returns
// {attempts, code}, or nil when no code is outstanding.
var verifyScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return false
end
local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
return {attempts, redis.call('HGET', KEYS[1], 'code')}
`)

// Store keeps one code per email as a Redis hash with fields code and
// attempts.
type Store struct {
	redis    redis.Cmdable
	generate func() (string, error)
}

func NewStore(rdb redis.Cmdable) *Store {
	return &Store{
		redis:    rdb,
		generate: func() (string, error) { return auth.GenerateCode(CodeLength) },
	}
}

func key(email string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(email))
}

// Issue creates a new code for email, replacing any outstanding one.
func (s *Store) Issue(ctx context.Context, email string) (string, error) {
	code, err := s.generate()
	if err != nil {
		return "", err
	}

	k := key(email)
	if err := s.redis.HSet(ctx, k, "code", code, "attempts", 0).Err(); err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}
	if err := s.redis.Expire(ctx, k, CodeTTL).Err(); err != nil {
		s.discard(ctx, k)
		return "", fmt.Errorf("expire code: %w", err)
	}
	return code, nil
}

// Verify consumes the code for email. Every call counts as an attempt, and
// the count is taken atomically in Redis so concurrent guesses cannot share
// a slot. Once MaxAttempts is reached the code is gone. Only the caller
// that deletes the code succeeds.
func (s *Store) Verify(ctx context.Context, email, code string) error {
	k := key(email)

	res, err := verifyScript.Run(ctx, s.redis, []string{k}).Slice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCodeExpired
		}
		return fmt.Errorf("check code: %w", err)
	}

	attempts, stored, ok := parseAttempt(res)
	if !ok {
		s.discard(ctx, k)
		return ErrCodeExpired
	}

	if attempts > MaxAttempts {
		s.discard(ctx, k)
		return ErrTooManyAttempts
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) == 1 {
		deleted, err := s.redis.Del(ctx, k).Result()
		if err != nil {
			return fmt.Errorf("consume code: %w", err)
		}
		if deleted == 0 {
			return ErrCodeExpired
		}
		return nil
	}

	if attempts >= MaxAttempts {
		s.discard(ctx, k)
		return ErrTooManyAttempts
	}
	return ErrCodeInvalid
}

func parseAttempt(res []interface{}) (int64, string, bool) {
	if len(res) != 2 {
		return 0, "", false
	}
	attempts, ok := res[0].(int64)
	if !ok {
		return 0, "", false
	}
	code, ok := res[1].(string)
	if !ok || code == "" {
		return 0, "", false
	}
	return attempts, code, true
}

func (s *Store) discard(ctx context.Context, k string) {
	if err := s.redis.Del(ctx, k).Err(); err != nil {
		logger.Error("failed to delete one-time code", "key", k, "error", err)
	}
}
