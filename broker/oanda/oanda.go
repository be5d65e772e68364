// Package oanda implements the market data source against OANDA's v3 REST
// API. Candles come from the instrument candles endpoint, quotes from the
// account pricing endpoint. Only complete candles are returned.
package oanda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"ufotrader/broker"
	"ufotrader/market"
)

const (
	// PracticeURL is OANDA's practice/demo environment.
	PracticeURL = "https://api-fxpractice.oanda.com"
	// LiveURL is OANDA's live trading environment.
	LiveURL = "https://api-fxtrade.oanda.com"

	maxCandleCount = 5000
)

// granularities maps internal timeframes to OANDA candle granularities.
var granularities = map[market.Timeframe]string{
	market.M5:  "M5",
	market.M15: "M15",
	market.H1:  "H1",
	market.H4:  "H4",
	market.D1:  "D",
}

// Client is an OANDA v3 REST client scoped to one account.
type Client struct {
	baseURL    string
	token      string
	accountID  string
	httpClient *http.Client
}

// NewClient returns a client against the practice or live environment.
func NewClient(token, accountID string, practice bool) *Client {
	baseURL := LiveURL
	if practice {
		baseURL = PracticeURL
	}
	return &Client{
		baseURL:   baseURL,
		token:     token,
		accountID: accountID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// instrument renders a pair in OANDA's underscore form, e.g. EUR_USD.
func instrument(pair market.Pair) string {
	return pair.Base + "_" + pair.Quote
}

type candleData struct {
	O string `json:"o"`
	H string `json:"h"`
	L string `json:"l"`
	C string `json:"c"`
}

type apiCandle struct {
	Complete bool       `json:"complete"`
	Time     string     `json:"time"`
	Mid      candleData `json:"mid"`
}

type candlesResponse struct {
	Instrument string      `json:"instrument"`
	Candles    []apiCandle `json:"candles"`
}

// GetBars fetches up to count complete mid-price candles, oldest first.
func (c *Client) GetBars(ctx context.Context, pair market.Pair, tf market.Timeframe, count int) ([]market.Bar, error) {
	gran, ok := granularities[tf]
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe %s", tf)
	}
	if count <= 0 || count > maxCandleCount {
		return nil, fmt.Errorf("candle count %d out of range", count)
	}

	params := url.Values{}
	params.Set("price", "M")
	params.Set("granularity", gran)
	params.Set("count", strconv.Itoa(count))

	apiURL := fmt.Sprintf("%s/v3/instruments/%s/candles?%s", c.baseURL, instrument(pair), params.Encode())

	var resp candlesResponse
	if err := c.get(ctx, apiURL, &resp); err != nil {
		return nil, fmt.Errorf("%w: candles %s %s: %v", broker.ErrDataUnavailable, pair, tf, err)
	}

	bars := make([]market.Bar, 0, len(resp.Candles))
	for _, ac := range resp.Candles {
		if !ac.Complete {
			continue
		}
		t, err := time.Parse(time.RFC3339, ac.Time)
		if err != nil {
			return nil, fmt.Errorf("parse candle time %s: %w", ac.Time, err)
		}
		open, err := parsePrice(ac.Mid.O)
		if err != nil {
			return nil, err
		}
		high, err := parsePrice(ac.Mid.H)
		if err != nil {
			return nil, err
		}
		low, err := parsePrice(ac.Mid.L)
		if err != nil {
			return nil, err
		}
		cls, err := parsePrice(ac.Mid.C)
		if err != nil {
			return nil, err
		}
		bars = append(bars, market.Bar{Time: t, Open: open, High: high, Low: low, Close: cls})
	}
	return bars, nil
}

type pricingResponse struct {
	Prices []struct {
		Instrument string `json:"instrument"`
		Time       string `json:"time"`
		Bids       []struct {
			Price string `json:"price"`
		} `json:"bids"`
		Asks []struct {
			Price string `json:"price"`
		} `json:"asks"`
	} `json:"prices"`
}

// GetPrice fetches the current dealable quote from the account pricing
// endpoint.
func (c *Client) GetPrice(ctx context.Context, pair market.Pair) (market.Price, error) {
	params := url.Values{}
	params.Set("instruments", instrument(pair))

	apiURL := fmt.Sprintf("%s/v3/accounts/%s/pricing?%s", c.baseURL, c.accountID, params.Encode())

	var resp pricingResponse
	if err := c.get(ctx, apiURL, &resp); err != nil {
		return market.Price{}, fmt.Errorf("%w: pricing %s: %v", broker.ErrDataUnavailable, pair, err)
	}
	if len(resp.Prices) == 0 || len(resp.Prices[0].Bids) == 0 || len(resp.Prices[0].Asks) == 0 {
		return market.Price{}, fmt.Errorf("%w: no quote for %s", broker.ErrDataUnavailable, pair)
	}

	p := resp.Prices[0]
	bid, err := parsePrice(p.Bids[0].Price)
	if err != nil {
		return market.Price{}, err
	}
	ask, err := parsePrice(p.Asks[0].Price)
	if err != nil {
		return market.Price{}, err
	}
	at, err := time.Parse(time.RFC3339, p.Time)
	if err != nil {
		at = time.Now().UTC()
	}
	return market.Price{Bid: bid, Ask: ask, Time: at}, nil
}

// get performs an authorized GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, apiURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parsePrice(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", s, err)
	}
	return f, nil
}
