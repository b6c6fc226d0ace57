package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/kudifi/kudifi/internal/tokens"
)

const (
	requestTimeout = 5 * time.Second
	readRetries    = 2
)

// HTTPClient talks to the hosted wallet engine over its REST API. Balance
// reads go through a retrying client (transient status codes only); wallet
// creation and transfer execution are sent exactly once, because a retried
// transfer risks a double-send.
type HTTPClient struct {
	baseURL          string
	secretKey        string
	vaultAccessToken string
	reads            *http.Client
	writes           *http.Client
}

// NewHTTPClient builds an engine client for the given base URL and credentials.
func NewHTTPClient(baseURL, secretKey, vaultAccessToken string) *HTTPClient {
	retrying := retryablehttp.NewClient()
	retrying.RetryMax = readRetries
	retrying.HTTPClient.Timeout = requestTimeout
	retrying.Logger = nil

	return &HTTPClient{
		baseURL:          strings.TrimRight(baseURL, "/"),
		secretKey:        secretKey,
		vaultAccessToken: vaultAccessToken,
		reads:            retrying.StandardClient(),
		writes:           &http.Client{Timeout: requestTimeout},
	}
}

// CreateWallet provisions a new server wallet with the given label.
func (c *HTTPClient) CreateWallet(ctx context.Context, label string) (Wallet, error) {
	var out struct {
		Result struct {
			Address             string `json:"address"`
			SmartAccountAddress string `json:"smartAccountAddress"`
		} `json:"result"`
	}
	err := c.do(ctx, c.writes, http.MethodPost, "/v1/accounts", map[string]string{"label": label}, &out)
	if err != nil {
		return Wallet{}, err
	}
	if out.Result.Address == "" {
		return Wallet{}, fmt.Errorf("%w: create wallet returned empty address", ErrUpstream)
	}
	return Wallet{Address: out.Result.Address, SmartAccountAddress: out.Result.SmartAccountAddress}, nil
}

// TokenBalance reads the base-unit balance of the address for the token.
func (c *HTTPClient) TokenBalance(ctx context.Context, address string, token tokens.Token) (*big.Int, error) {
	path := fmt.Sprintf("/v1/wallets/%s/balance?tokenAddress=%s", url.PathEscape(address), url.QueryEscape(token.Address))
	var out struct {
		Result struct {
			Value string `json:"value"`
		} `json:"result"`
	}
	if err := c.do(ctx, c.reads, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	units, ok := new(big.Int).SetString(out.Result.Value, 10)
	if !ok {
		return nil, fmt.Errorf("%w: unparseable balance %q", ErrUpstream, out.Result.Value)
	}
	return units, nil
}

// Transfer enqueues one transfer and returns its transaction hash. Exactly one
// HTTP attempt is made; any failure is surfaced to the caller as upstream.
func (c *HTTPClient) Transfer(ctx context.Context, req TransferRequest) (string, error) {
	body := map[string]string{
		"from":         req.From,
		"to":           req.To,
		"tokenAddress": req.Token.Address,
		"amount":       req.Units.String(),
	}
	var out struct {
		Result struct {
			TransactionHash string `json:"transactionHash"`
		} `json:"result"`
	}
	if err := c.do(ctx, c.writes, http.MethodPost, "/v1/transfers", body, &out); err != nil {
		return "", err
	}
	if out.Result.TransactionHash == "" {
		return "", fmt.Errorf("%w: transfer returned no transaction hash", ErrUpstream)
	}
	return out.Result.TransactionHash, nil
}

func (c *HTTPClient) do(ctx context.Context, client *http.Client, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("x-secret-key", c.secretKey)
	req.Header.Set("x-vault-access-token", c.vaultAccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s: status %d: %s", ErrUpstream, method, path, resp.StatusCode, string(raw))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	return nil
}

var _ Service = (*HTTPClient)(nil)
