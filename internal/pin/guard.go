package pin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/kudifi/kudifi/internal/account"
)

const (
	retryKeyPrefix = "pinfail:"

	// bcryptCost matches the cost the credential hashes were originally minted at.
	bcryptCost = 10
)

var (
	// ErrLockedOut indicates the identity exhausted its failed attempts for
	// the current lockout window.
	ErrLockedOut = errors.New("pin locked out")

	// ErrMismatch indicates the supplied PIN does not match the stored hash.
	ErrMismatch = errors.New("pin mismatch")
)

// Guard verifies PINs and tracks consecutive failures per identity in Redis.
// The cache is the sole source of truth for lockout state; nothing is cached
// in-process, so concurrent requests for one identity observe the same counter.
type Guard struct {
	accounts      account.Repository
	cache         *redis.Client
	maxAttempts   int
	lockoutWindow time.Duration
}

// NewGuard builds a Guard.
func NewGuard(accounts account.Repository, cache *redis.Client, maxAttempts int, lockoutWindow time.Duration) *Guard {
	return &Guard{accounts: accounts, cache: cache, maxAttempts: maxAttempts, lockoutWindow: lockoutWindow}
}

// MaxAttempts returns the configured failure ceiling.
func (g *Guard) MaxAttempts() int {
	return g.maxAttempts
}

// Set hashes the plaintext PIN and stores it on the account. The repository
// refuses to overwrite an existing hash, so the credential is write-once.
func (g *Guard) Set(ctx context.Context, acctID, plaintext string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return err
	}
	if err := g.accounts.SetPINHash(ctx, acctID, hash); err != nil {
		return fmt.Errorf("store pin hash: %w", err)
	}
	return nil
}

// Attempts returns the number of failed attempts recorded inside the current
// lockout window. A missing counter reads as zero.
func (g *Guard) Attempts(ctx context.Context, identity string) (int, error) {
	n, err := g.cache.Get(ctx, retryKeyPrefix+identity).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		// Fail closed: an unreadable counter must not grant extra attempts.
		return 0, fmt.Errorf("read retry counter: %w", err)
	}
	return n, nil
}

// Verify compares the plaintext PIN against the account's stored hash,
// enforcing the lockout first so a blocked identity never reaches bcrypt.
// On failure the counter is incremented and its expiry reset to the lockout
// window; on success the counter is deleted.
func (g *Guard) Verify(ctx context.Context, acct account.Account, plaintext string) (int, error) {
	attempts, err := g.Attempts(ctx, acct.PhoneNumber)
	if err != nil {
		return 0, err
	}
	if attempts >= g.maxAttempts {
		return attempts, ErrLockedOut
	}

	if bcrypt.CompareHashAndPassword(acct.PINHash, []byte(plaintext)) != nil {
		n, err := g.recordFailure(ctx, acct.PhoneNumber)
		if err != nil {
			return attempts, err
		}
		return n, ErrMismatch
	}

	if err := g.cache.Del(ctx, retryKeyPrefix+acct.PhoneNumber).Err(); err != nil {
		return 0, fmt.Errorf("clear retry counter: %w", err)
	}
	return 0, nil
}

func (g *Guard) recordFailure(ctx context.Context, identity string) (int, error) {
	key := retryKeyPrefix + identity
	n, err := g.cache.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment retry counter: %w", err)
	}
	if err := g.cache.Expire(ctx, key, g.lockoutWindow).Err(); err != nil {
		return int(n), fmt.Errorf("expire retry counter: %w", err)
	}
	return int(n), nil
}
