package engine

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kudifi/kudifi/internal/tokens"
)

func TestTransferMakesExactlyOneAttempt(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("x-secret-key") != "sk" || r.Header.Get("x-vault-access-token") != "vt" {
			t.Errorf("missing engine credentials on %s %s", r.Method, r.URL.Path)
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := NewHTTPClient(srv.URL, "sk", "vt")
	usdt, _ := tokens.BySymbol("USDT")

	_, err := c.Transfer(context.Background(), TransferRequest{
		From:  "0xsender",
		To:    "0xrecipient",
		Token: usdt,
		Units: big.NewInt(1),
	})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}

	// A failed transfer must never be resubmitted: the engine may have
	// enqueued it before answering, and a second attempt risks a double-send.
	if got := hits.Load(); got != 1 {
		t.Fatalf("transfer made %d attempts, want exactly 1", got)
	}
}

func TestTokenBalanceRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"result":{"value":"42"}}`))
	}))
	t.Cleanup(srv.Close)

	c := NewHTTPClient(srv.URL, "sk", "vt")
	usdt, _ := tokens.BySymbol("USDT")

	units, err := c.TokenBalance(context.Background(), "0xsender", usdt)
	if err != nil {
		t.Fatalf("balance after transient failures: %v", err)
	}
	if units.String() != "42" {
		t.Fatalf("unexpected balance: %s", units)
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("balance made %d attempts, want 3", got)
	}
}

func TestCreateWalletRejectsEmptyAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{}}`))
	}))
	t.Cleanup(srv.Close)

	c := NewHTTPClient(srv.URL, "sk", "vt")
	if _, err := c.CreateWallet(context.Background(), "test"); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected upstream error for empty address, got %v", err)
	}
}
