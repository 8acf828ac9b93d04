// Package marketdata is the HTTP client for the external quote and
// fundamentals provider. Values leave this package as decimal strings.
package marketdata

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// maxBatchSize is the provider's per-call symbol limit.
const maxBatchSize = 100

const sourceName = "marketdata"

// Client is the market data API client
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new market data client
func NewClient(baseURL, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "marketdata").Logger(),
	}
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []map[string]interface{} `json:"result"`
		Error  interface{}              `json:"error"`
	} `json:"quoteResponse"`
}

// GetQuotes fetches current price quotes for symbols, batching requests to the
// provider's symbol limit.
func (c *Client) GetQuotes(symbols []string) ([]Quote, error) {
	var quotes []Quote

	for start := 0; start < len(symbols); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(symbols) {
			end = len(symbols)
		}

		batch, err := c.fetchQuoteBatch(symbols[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to fetch quote batch: %w", err)
		}
		quotes = append(quotes, batch...)
	}

	return quotes, nil
}

func (c *Client) fetchQuoteBatch(symbols []string) ([]Quote, error) {
	params := url.Values{}
	params.Add("symbols", strings.Join(symbols, ","))
	params.Add("fields", "symbol,regularMarketPrice,currency,regularMarketTime")

	results, err := c.getWithRetry("/v7/finance/quote", params, 3)
	if err != nil {
		return nil, err
	}

	fetchedAt := time.Now()
	var quotes []Quote
	for _, info := range results {
		symbol := getString(info, "symbol", "")
		price := getDecimalString(info, "regularMarketPrice")
		if symbol == "" || price == nil {
			continue
		}

		priceDate := fetchedAt
		if ts := getInt64(info, "regularMarketTime"); ts != nil {
			priceDate = time.Unix(*ts, 0)
		}

		quotes = append(quotes, Quote{
			Symbol:    symbol,
			Close:     *price,
			Currency:  getString(info, "currency", ""),
			Source:    sourceName,
			PriceDate: priceDate,
			FetchedAt: fetchedAt,
			IsStale:   fetchedAt.Sub(priceDate) > 24*time.Hour,
		})
	}

	return quotes, nil
}

// GetFundamentals fetches the fundamentals snapshot for one symbol. Metrics
// the provider has no value for are present in the map as nil.
func (c *Client) GetFundamentals(symbol string) (*FundamentalsSnapshot, error) {
	params := url.Values{}
	params.Add("symbols", symbol)
	params.Add("fields", "symbol,trailingPE,forwardPE,pegRatio,priceToBook,dividendYield,"+
		"payoutRatio,profitMargins,debtToEquity,currentRatio,returnOnEquity,revenueGrowth,marketCap")

	results, err := c.getWithRetry("/v7/finance/quote", params, 3)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no fundamentals returned for symbol %s", symbol)
	}

	info := results[0]
	return &FundamentalsSnapshot{
		Symbol: symbol,
		Metrics: map[string]*string{
			MetricPERatio:       getDecimalString(info, "trailingPE"),
			MetricForwardPE:     getDecimalString(info, "forwardPE"),
			MetricPEGRatio:      getDecimalString(info, "pegRatio"),
			MetricPriceToBook:   getDecimalString(info, "priceToBook"),
			MetricDividendYield: getDecimalString(info, "dividendYield"),
			MetricPayoutRatio:   getDecimalString(info, "payoutRatio"),
			MetricProfitMargin:  getDecimalString(info, "profitMargins"),
			MetricDebtToEquity:  getDecimalString(info, "debtToEquity"),
			MetricCurrentRatio:  getDecimalString(info, "currentRatio"),
			MetricROE:           getDecimalString(info, "returnOnEquity"),
			MetricRevenueGrowth: getDecimalString(info, "revenueGrowth"),
			MetricMarketCap:     getDecimalString(info, "marketCap"),
		},
		Source:    sourceName,
		FetchedAt: time.Now(),
	}, nil
}

// GetExchangeRate fetches the current rate for a currency pair, quoted via the
// provider's pair symbols (e.g. EURUSD=X).
func (c *Client) GetExchangeRate(from, to string) (*RateQuote, error) {
	pairSymbol := fmt.Sprintf("%s%s=X", strings.ToUpper(from), strings.ToUpper(to))

	quotes, err := c.GetQuotes([]string{pairSymbol})
	if err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("no rate returned for pair %s/%s", from, to)
	}

	q := quotes[0]
	return &RateQuote{
		FromCurrency: strings.ToUpper(from),
		ToCurrency:   strings.ToUpper(to),
		Rate:         q.Close,
		Source:       q.Source,
		RateDate:     q.PriceDate,
	}, nil
}

// getWithRetry performs a GET with exponential backoff on failure.
func (c *Client) getWithRetry(path string, params url.Values, maxRetries int) ([]map[string]interface{}, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		results, err := c.get(path, params)
		if err == nil {
			return results, nil
		}

		lastErr = err
		if attempt < maxRetries-1 {
			waitTime := time.Duration(1<<uint(attempt)) * time.Second
			c.log.Warn().Err(err).
				Str("path", path).
				Int("attempt", attempt+1).
				Dur("wait", waitTime).
				Msg("Provider request failed, retrying")
			time.Sleep(waitTime)
		}
	}
	return nil, fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) get(path string, params url.Values) ([]map[string]interface{}, error) {
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "folioplan/1.0")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result quoteResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("provider error: %v", result.QuoteResponse.Error)
	}

	return result.QuoteResponse.Result, nil
}

// Helper functions to safely extract values from provider payloads.

// getDecimalString converts a numeric provider value into its exact decimal
// string form. Missing or non-numeric values map to nil.
func getDecimalString(m map[string]interface{}, key string) *string {
	val, ok := m[key]
	if !ok || val == nil {
		return nil
	}

	var s string
	switch v := val.(type) {
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case json.Number:
		s = v.String()
	case string:
		s = v
	default:
		return nil
	}
	return &s
}

func getInt64(m map[string]interface{}, key string) *int64 {
	if val, ok := m[key]; ok && val != nil {
		switch v := val.(type) {
		case float64:
			i := int64(v)
			return &i
		case int:
			i := int64(v)
			return &i
		case int64:
			return &v
		}
	}
	return nil
}

func getString(m map[string]interface{}, key string, defaultVal string) string {
	if val, ok := m[key]; ok && val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return defaultVal
}
