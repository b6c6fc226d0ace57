package engine

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/kudifi/kudifi/internal/tokens"
)

// Fake is an in-memory engine for unit tests. Balances are keyed by
// address and token symbol; every executed transfer is recorded.
type Fake struct {
	mu        sync.Mutex
	nextID    int
	balances  map[string]*big.Int
	Transfers []TransferRequest

	// FailTransfers makes Transfer return ErrUpstream without executing.
	FailTransfers bool
	// FailBalances makes TokenBalance return ErrUpstream.
	FailBalances bool
}

// NewFake builds an empty fake engine.
func NewFake() *Fake {
	return &Fake{balances: make(map[string]*big.Int)}
}

// SeedBalance sets the balance for an address/token pair in base units.
func (f *Fake) SeedBalance(address string, token tokens.Token, units *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[address+":"+token.Symbol] = new(big.Int).Set(units)
}

func (f *Fake) CreateWallet(_ context.Context, _ string) (Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return Wallet{
		Address:             fmt.Sprintf("0xwallet%04d", f.nextID),
		SmartAccountAddress: fmt.Sprintf("0xsmart%04d", f.nextID),
	}, nil
}

func (f *Fake) TokenBalance(_ context.Context, address string, token tokens.Token) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailBalances {
		return nil, ErrUpstream
	}
	units, ok := f.balances[address+":"+token.Symbol]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(units), nil
}

func (f *Fake) Transfer(_ context.Context, req TransferRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailTransfers {
		return "", ErrUpstream
	}
	f.Transfers = append(f.Transfers, req)
	key := req.From + ":" + req.Token.Symbol
	if units, ok := f.balances[key]; ok {
		units.Sub(units, req.Units)
	}
	return fmt.Sprintf("0xtx%04d", len(f.Transfers)), nil
}

var _ Service = (*Fake)(nil)
