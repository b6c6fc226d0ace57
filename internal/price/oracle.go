package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/redis/go-redis/v9"
)

const (
	hermesBaseURL = "https://hermes.pyth.network"
	fxRateURL     = "https://latest.currency-api.pages.dev/v1/currencies/usd.json"

	fxCacheKey    = "usd_ghs_rate"
	fxTTL         = 24 * time.Hour
	tokenPriceTTL = 5 * time.Minute

	requestTimeout = 5 * time.Second
)

// ErrUnavailable indicates no usable price could be obtained for a symbol.
var ErrUnavailable = errors.New("price unavailable")

// Oracle quotes token prices in GHS.
type Oracle interface {
	TokenPriceGHS(ctx context.Context, symbol string) (float64, error)
}

// HTTPOracle combines Pyth Hermes USD prices with a USD to GHS FX rate and
// caches both in Redis so a browsing session does not hammer the upstreams.
type HTTPOracle struct {
	cache  *redis.Client
	client *http.Client
	hermes string
	fxURL  string
}

// NewHTTPOracle builds an oracle using the public Hermes and FX endpoints.
func NewHTTPOracle(cache *redis.Client) *HTTPOracle {
	retrying := retryablehttp.NewClient()
	retrying.RetryMax = 2
	retrying.HTTPClient.Timeout = requestTimeout
	retrying.Logger = nil

	return &HTTPOracle{
		cache:  cache,
		client: retrying.StandardClient(),
		hermes: hermesBaseURL,
		fxURL:  fxRateURL,
	}
}

// NewHTTPOracleWithEndpoints is NewHTTPOracle with overridable upstreams, for tests.
func NewHTTPOracleWithEndpoints(cache *redis.Client, hermes, fxURL string) *HTTPOracle {
	o := NewHTTPOracle(cache)
	o.hermes = strings.TrimRight(hermes, "/")
	o.fxURL = fxURL
	return o
}

// TokenPriceGHS returns the GHS price of one unit of the token.
func (o *HTTPOracle) TokenPriceGHS(ctx context.Context, symbol string) (float64, error) {
	cacheKey := "price_ghs_" + strings.ToLower(symbol)
	if cached, err := o.cache.Get(ctx, cacheKey).Float64(); err == nil {
		return cached, nil
	}

	usd, err := o.latestUSDPrice(ctx, symbol)
	if err != nil {
		return 0, err
	}
	fx, err := o.usdToGHS(ctx)
	if err != nil {
		return 0, err
	}

	ghs := round2(usd * fx)
	if err := o.cache.Set(ctx, cacheKey, ghs, tokenPriceTTL).Err(); err != nil {
		return 0, fmt.Errorf("cache token price: %w", err)
	}
	return ghs, nil
}

func (o *HTTPOracle) latestUSDPrice(ctx context.Context, symbol string) (float64, error) {
	feedID, err := o.priceFeedID(ctx, symbol)
	if err != nil {
		return 0, err
	}

	var out struct {
		Parsed []struct {
			Price struct {
				Price string `json:"price"`
				Expo  int    `json:"expo"`
			} `json:"price"`
		} `json:"parsed"`
	}
	endpoint := o.hermes + "/v2/updates/price/latest?ids[]=" + url.QueryEscape(feedID)
	if err := o.getJSON(ctx, endpoint, &out); err != nil {
		return 0, err
	}
	if len(out.Parsed) == 0 {
		return 0, fmt.Errorf("%w: no price update for %s", ErrUnavailable, symbol)
	}

	raw, err := strconv.ParseFloat(out.Parsed[0].Price.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad price for %s: %v", ErrUnavailable, symbol, err)
	}
	expo := out.Parsed[0].Price.Expo
	for ; expo < 0; expo++ {
		raw /= 10
	}
	for ; expo > 0; expo-- {
		raw *= 10
	}
	return raw, nil
}

func (o *HTTPOracle) priceFeedID(ctx context.Context, symbol string) (string, error) {
	var feeds []struct {
		ID string `json:"id"`
	}
	endpoint := o.hermes + "/v2/price_feeds?asset_type=crypto&query=" + url.QueryEscape(symbol)
	if err := o.getJSON(ctx, endpoint, &feeds); err != nil {
		return "", err
	}
	if len(feeds) == 0 {
		return "", fmt.Errorf("%w: no feed for %s", ErrUnavailable, symbol)
	}
	return feeds[0].ID, nil
}

func (o *HTTPOracle) usdToGHS(ctx context.Context) (float64, error) {
	if cached, err := o.cache.Get(ctx, fxCacheKey).Float64(); err == nil {
		return cached, nil
	}

	var out struct {
		USD struct {
			GHS float64 `json:"ghs"`
		} `json:"usd"`
	}
	if err := o.getJSON(ctx, o.fxURL, &out); err != nil {
		return 0, err
	}
	if out.USD.GHS <= 0 {
		return 0, fmt.Errorf("%w: bad usd/ghs rate", ErrUnavailable)
	}

	if err := o.cache.Set(ctx, fxCacheKey, out.USD.GHS, fxTTL).Err(); err != nil {
		return 0, fmt.Errorf("cache fx rate: %w", err)
	}
	return out.USD.GHS, nil
}

func (o *HTTPOracle) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: status %d", ErrUnavailable, endpoint, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUnavailable, endpoint, err)
	}
	return nil
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

// Fixed is a static oracle for tests.
type Fixed map[string]float64

// TokenPriceGHS returns the configured rate or ErrUnavailable.
func (f Fixed) TokenPriceGHS(_ context.Context, symbol string) (float64, error) {
	rate, ok := f[symbol]
	if !ok {
		return 0, ErrUnavailable
	}
	return rate, nil
}
