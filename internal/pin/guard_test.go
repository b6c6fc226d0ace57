package pin

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/kudifi/kudifi/internal/account"
)

func setupGuard(t *testing.T) (*Guard, account.Repository, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	repo := account.NewMemoryRepository()
	return NewGuard(repo, cache, 3, time.Hour), repo, mr
}

func registerAccount(t *testing.T, g *Guard, repo account.Repository, phoneNumber, pinCode string) account.Account {
	t.Helper()
	ctx := context.Background()
	acct := account.Account{ID: "11111111-1111-1111-1111-111111111111", PhoneNumber: phoneNumber, WalletAddr: "0xabc"}
	if err := repo.Create(ctx, acct); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if err := g.Set(ctx, acct.ID, pinCode); err != nil {
		t.Fatalf("set pin: %v", err)
	}
	stored, err := repo.FindByPhone(ctx, phoneNumber)
	if err != nil {
		t.Fatalf("reload account: %v", err)
	}
	return stored
}

func TestSetIsWriteOnce(t *testing.T) {
	g, repo, _ := setupGuard(t)
	acct := registerAccount(t, g, repo, "+233541234567", "1234")

	if !acct.HasPIN() {
		t.Fatal("expected pin hash to be stored")
	}
	if err := g.Set(context.Background(), acct.ID, "9999"); !errors.Is(err, account.ErrPINAlreadySet) {
		t.Fatalf("expected ErrPINAlreadySet, got %v", err)
	}
}

func TestVerifySuccessClearsCounter(t *testing.T) {
	g, repo, mr := setupGuard(t)
	acct := registerAccount(t, g, repo, "+233541234567", "1234")
	ctx := context.Background()

	if _, err := g.Verify(ctx, acct, "0000"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if mr.Exists("pinfail:+233541234567") == false {
		t.Fatal("expected retry counter after failure")
	}

	if _, err := g.Verify(ctx, acct, "1234"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if mr.Exists("pinfail:+233541234567") {
		t.Fatal("expected retry counter deleted on success")
	}
}

func TestVerifyLockoutAfterMaxFailures(t *testing.T) {
	g, repo, _ := setupGuard(t)
	acct := registerAccount(t, g, repo, "+233541234567", "1234")
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		n, err := g.Verify(ctx, acct, "0000")
		if !errors.Is(err, ErrMismatch) {
			t.Fatalf("attempt %d: expected mismatch, got %v", i, err)
		}
		if n != i {
			t.Fatalf("attempt %d: counter = %d", i, n)
		}
	}

	// The window is exhausted: even the correct PIN is refused until expiry.
	if _, err := g.Verify(ctx, acct, "1234"); !errors.Is(err, ErrLockedOut) {
		t.Fatalf("expected lockout, got %v", err)
	}
}

func TestLockoutWindowExpiry(t *testing.T) {
	g, repo, mr := setupGuard(t)
	acct := registerAccount(t, g, repo, "+233541234567", "1234")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		g.Verify(ctx, acct, "0000")
	}
	if _, err := g.Verify(ctx, acct, "1234"); !errors.Is(err, ErrLockedOut) {
		t.Fatalf("expected lockout, got %v", err)
	}

	mr.FastForward(time.Hour + time.Minute)

	if _, err := g.Verify(ctx, acct, "1234"); err != nil {
		t.Fatalf("expected success after window expiry, got %v", err)
	}
}

func TestVerifyFailsClosedOnCacheError(t *testing.T) {
	g, repo, mr := setupGuard(t)
	acct := registerAccount(t, g, repo, "+233541234567", "1234")

	mr.Close()

	if _, err := g.Verify(context.Background(), acct, "1234"); err == nil {
		t.Fatal("expected error when the counter store is unreachable")
	}
}
