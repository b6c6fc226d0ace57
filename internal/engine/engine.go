package engine

import (
	"context"
	"errors"
	"math/big"

	"github.com/kudifi/kudifi/internal/tokens"
)

// ErrUpstream indicates the wallet engine failed or returned an unusable
// response. Callers must surface it, never treat it as a zero balance.
var ErrUpstream = errors.New("wallet engine failure")

// Wallet is the pair of addresses the engine provisions per account.
type Wallet struct {
	Address             string
	SmartAccountAddress string
}

// TransferRequest captures one on-chain transfer in base units.
type TransferRequest struct {
	From  string
	To    string
	Token tokens.Token
	Units *big.Int
}

// Service is the wallet-engine collaborator: custody, balance reads and
// transfer execution all happen behind it. Signing internals are out of scope.
type Service interface {
	CreateWallet(ctx context.Context, label string) (Wallet, error)
	TokenBalance(ctx context.Context, address string, token tokens.Token) (*big.Int, error)
	Transfer(ctx context.Context, req TransferRequest) (string, error)
}
