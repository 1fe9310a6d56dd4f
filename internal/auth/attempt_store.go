package auth

import (
	"context"
	"time"

	"formini/internal/cache"
	"formini/internal/model"
)

const (
	loginAttemptKeyPrefix = "login_attempts:"
	loginLockKeyPrefix    = "login_lock:"

	// MaxLoginAttempts is the number of failed passwords that triggers a lockout.
	MaxLoginAttempts = 5
	// LoginLockDuration is both the failure counting window and the lockout length.
	LoginLockDuration = 30 * time.Minute
)

// AttemptStoreInterface defines the failed-login bookkeeping used by password logins.
type AttemptStoreInterface interface {
	IsLocked(ctx context.Context, email string) bool
	RecordFailure(ctx context.Context, email string) (locked bool)
	Reset(ctx context.Context, email string)
}

// AttemptStore keeps failed-login counters in Redis. When Redis is down it
// reports nothing locked.
type AttemptStore struct {
	cache *cache.Client
}

// Ensure AttemptStore implements AttemptStoreInterface
var _ AttemptStoreInterface = (*AttemptStore)(nil)

// NewAttemptStore creates a new attempt store.
func NewAttemptStore(cache *cache.Client) *AttemptStore {
	return &AttemptStore{cache: cache}
}

// IsLocked reports whether email is currently locked out.
func (s *AttemptStore) IsLocked(ctx context.Context, email string) bool {
	return s.cache.Exists(ctx, loginLockKeyPrefix+model.NormalizeEmail(email))
}

// RecordFailure counts a failed password and locks the email once the limit is reached.
func (s *AttemptStore) RecordFailure(ctx context.Context, email string) bool {
	email = model.NormalizeEmail(email)
	count, _ := s.cache.Incr(ctx, loginAttemptKeyPrefix+email, LoginLockDuration)
	if count < MaxLoginAttempts {
		return false
	}
	_ = s.cache.Set(ctx, loginLockKeyPrefix+email, []byte("1"), LoginLockDuration)
	_ = s.cache.Delete(ctx, loginAttemptKeyPrefix+email)
	return true
}

// Reset clears counters after a successful login.
func (s *AttemptStore) Reset(ctx context.Context, email string) {
	email = model.NormalizeEmail(email)
	_ = s.cache.Delete(ctx, loginAttemptKeyPrefix+email, loginLockKeyPrefix+email)
}

// NoopAttemptStore never locks anyone out.
type NoopAttemptStore struct{}

// IsLocked always reports false.
func (NoopAttemptStore) IsLocked(context.Context, string) bool { return false }

// RecordFailure never locks.
func (NoopAttemptStore) RecordFailure(context.Context, string) bool { return false }

// Reset does nothing.
func (NoopAttemptStore) Reset(context.Context, string) {}
