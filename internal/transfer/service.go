package transfer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kudifi/kudifi/internal/account"
	"github.com/kudifi/kudifi/internal/engine"
	"github.com/kudifi/kudifi/internal/notification"
	"github.com/kudifi/kudifi/internal/purchase"
	"github.com/kudifi/kudifi/internal/tokens"
)

const (
	confirmLockPrefix = "confirm:"
	confirmLockTTL    = 30 * time.Second
)

var (
	// ErrInvalidAmount indicates a non-numeric, non-positive or over-ceiling amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientFunds indicates the sender's balance cannot cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrBusy indicates another request for the same identity is already inside
	// the confirm-and-execute step.
	ErrBusy = errors.New("transfer already in progress")
)

// Service coordinates balance checks, recipient resolution and transfer or
// purchase side effects. The wallet engine's transfer primitive is invoked at
// most once per confirmed step; failures surface to the caller instead of
// being retried.
type Service struct {
	engineSvc engine.Service
	accounts  account.Repository
	purchases purchase.Repository
	cache     *redis.Client
	notifier  notification.Notifier
	ceiling   float64
}

// NewService constructs a transfer service.
func NewService(engineSvc engine.Service, accounts account.Repository, purchases purchase.Repository, cache *redis.Client, notifier notification.Notifier, ceiling float64) *Service {
	return &Service{
		engineSvc: engineSvc,
		accounts:  accounts,
		purchases: purchases,
		cache:     cache,
		notifier:  notifier,
		ceiling:   ceiling,
	}
}

// ValidateAmount parses a decimal amount string and enforces the positive
// range and the configured ceiling.
func (s *Service) ValidateAmount(raw string) (float64, error) {
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	if amount > s.ceiling {
		return 0, fmt.Errorf("%w: above limit of %v", ErrInvalidAmount, s.ceiling)
	}
	return amount, nil
}

// Balance reads the base-unit balance of the account's primary wallet for the
// token. Engine failures surface as-is; an error never reads as zero.
func (s *Service) Balance(ctx context.Context, acct account.Account, token tokens.Token) (*big.Int, error) {
	return s.engineSvc.TokenBalance(ctx, acct.WalletAddr, token)
}

// CheckFunds verifies the sender can cover the raw amount and returns the
// amount in base units. Called twice per transfer: once when the amount is
// entered and again right before PIN verification, because the pause between
// screens is unbounded.
func (s *Service) CheckFunds(ctx context.Context, acct account.Account, token tokens.Token, rawAmount string) (*big.Int, error) {
	if _, err := s.ValidateAmount(rawAmount); err != nil {
		return nil, err
	}
	units, err := tokens.ToBaseUnits(rawAmount, token.Decimals)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	balance, err := s.Balance(ctx, acct, token)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(units) < 0 {
		return nil, ErrInsufficientFunds
	}
	return units, nil
}

// ResolveOrProvisionRecipient finds the account for a phone number, creating a
// wallet and account when none exists. Sending to an unregistered number
// silently onboards it; the recipient sets a PIN on their own first dial-in.
func (s *Service) ResolveOrProvisionRecipient(ctx context.Context, phoneNumber string) (account.Account, error) {
	acct, err := s.accounts.FindByPhone(ctx, phoneNumber)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, account.ErrNotFound) {
		return account.Account{}, err
	}

	return s.Provision(ctx, phoneNumber)
}

// Provision creates a wallet with the engine and persists a new account for
// the phone number.
func (s *Service) Provision(ctx context.Context, phoneNumber string) (account.Account, error) {
	wallet, err := s.engineSvc.CreateWallet(ctx, "Kudifi Account")
	if err != nil {
		return account.Account{}, err
	}

	acct := account.Account{
		ID:              uuid.New().String(),
		PhoneNumber:     phoneNumber,
		WalletAddr:      wallet.Address,
		SmartWalletAddr: wallet.SmartAccountAddress,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		return account.Account{}, fmt.Errorf("persist account: %w", err)
	}
	return acct, nil
}

// Execute converts the amount to base units and invokes the engine transfer
// exactly once. No retry happens at this layer; a duplicate send is worse than
// a failed one.
func (s *Service) Execute(ctx context.Context, from account.Account, toAddr string, token tokens.Token, rawAmount string) (string, error) {
	units, err := tokens.ToBaseUnits(rawAmount, token.Decimals)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	txHash, err := s.engineSvc.Transfer(ctx, engine.TransferRequest{
		From:  from.WalletAddr,
		To:    toAddr,
		Token: token,
		Units: units,
	})
	if err != nil {
		return "", err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTokenTransfer,
			Destination: toAddr,
			Body:        fmt.Sprintf("Received %s %s (tx %s)", rawAmount, token.Symbol, txHash),
		})
	}
	return txHash, nil
}

// RecordPurchase inserts one PENDING purchase intent. Fulfillment is handled
// by an external process watching the purchases table.
func (s *Service) RecordPurchase(ctx context.Context, acct account.Account, token tokens.Token, amountGHS float64) (purchase.Intent, error) {
	intent := purchase.Intent{
		ID:          uuid.New().String(),
		AccountID:   acct.ID,
		Provider:    purchase.ProviderMTN,
		PhoneNumber: acct.PhoneNumber,
		TokenSymbol: token.Symbol,
		Amount:      amountGHS,
		Status:      purchase.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.purchases.Create(ctx, intent); err != nil {
		return purchase.Intent{}, fmt.Errorf("persist purchase intent: %w", err)
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindPurchaseIntent,
			Destination: acct.PhoneNumber,
			Body:        fmt.Sprintf("Purchase of GHS %v %s pending", amountGHS, token.Symbol),
		})
	}
	return intent, nil
}

// AcquireConfirmLock serializes the confirm-and-execute step per identity so a
// double-tapped confirmation cannot trigger two transfers. The returned
// release function is best-effort; the TTL bounds a leaked lock.
func (s *Service) AcquireConfirmLock(ctx context.Context, identity string) (func(), error) {
	key := confirmLockPrefix + identity
	ok, err := s.cache.SetNX(ctx, key, "1", confirmLockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire confirm lock: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}
	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.cache.Del(releaseCtx, key)
	}
	return release, nil
}
