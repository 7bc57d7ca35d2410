// Package ebay implements the eBay Browse API adapter.
package ebay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonesrussell/flipscout/internal/domain"
	"github.com/jonesrussell/flipscout/internal/logger"
	"github.com/jonesrussell/flipscout/internal/scrape"
)

const (
	defaultBaseURL = "https://api.ebay.com/buy/browse/v1"
	soldSearchPath = "/item_sales/search"
	itemSearchPath = "/item_summary/search"

	requestTimeout  = 30 * time.Second
	maxResponseSize = 4 << 20
)

// Config holds eBay API credentials and endpoint settings.
type Config struct {
	// Token is the OAuth application access token.
	Token   string `env:"EBAY_API_TOKEN" yaml:"token"`
	BaseURL string `yaml:"base_url"`
}

// Adapter fetches listings from the eBay Browse API with bearer-token auth.
type Adapter struct {
	cfg    Config
	client *http.Client
	logger logger.Logger
	retry  scrape.RetryConfig
}

// New creates an eBay adapter.
func New(cfg Config, log logger.Logger) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: requestTimeout},
		logger: log,
		retry:  scrape.DefaultRetryConfig(),
	}
}

// Platform identifies the marketplace this adapter serves.
func (a *Adapter) Platform() domain.Platform {
	return domain.PlatformEBay
}

// Fetch returns active listings matching the search parameters.
func (a *Adapter) Fetch(ctx context.Context, params domain.SearchParams) ([]scrape.RawItem, error) {
	return a.search(ctx, itemSearchPath, params, false)
}

// FetchSold returns recently completed sales for the same query, feeding the
// price-history store.
func (a *Adapter) FetchSold(ctx context.Context, params domain.SearchParams) ([]scrape.RawItem, error) {
	return a.search(ctx, soldSearchPath, params, true)
}

func (a *Adapter) search(ctx context.Context, path string, params domain.SearchParams, sold bool) ([]scrape.RawItem, error) {
	if strings.TrimSpace(a.cfg.Token) == "" {
		return nil, scrape.NotConfigured("eBay API token is missing")
	}

	endpoint := a.cfg.BaseURL + path + "?" + a.buildQuery(params)

	var items []scrape.RawItem
	err := scrape.Do(ctx, a.retry, func() error {
		fetched, fetchErr := a.doSearch(ctx, endpoint, sold)
		if fetchErr != nil {
			return fetchErr
		}
		items = fetched
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ebay search: %w", err)
	}

	a.logger.Debug("eBay search complete",
		logger.String("keywords", params.Keywords),
		logger.Bool("sold", sold),
		logger.Int("items", len(items)),
	)

	return items, nil
}

// buildQuery translates search parameters into Browse API query syntax.
func (a *Adapter) buildQuery(params domain.SearchParams) string {
	q := url.Values{}
	q.Set("q", params.Keywords)
	q.Set("limit", strconv.Itoa(params.Limit))

	var filters []string
	if params.MinPrice > 0 || params.MaxPrice > 0 {
		low, high := "", ""
		if params.MinPrice > 0 {
			low = strconv.FormatFloat(params.MinPrice, 'f', 2, 64)
		}
		if params.MaxPrice > 0 {
			high = strconv.FormatFloat(params.MaxPrice, 'f', 2, 64)
		}
		filters = append(filters, fmt.Sprintf("price:[%s..%s]", low, high), "priceCurrency:USD")
	}
	if params.Condition != "" {
		if id, ok := conditionFilters[params.Condition]; ok {
			filters = append(filters, "conditionIds:{"+id+"}")
		}
	}
	if len(filters) > 0 {
		q.Set("filter", strings.Join(filters, ","))
	}
	if params.Category != "" {
		if id, ok := categoryIDs[strings.ToLower(params.Category)]; ok {
			q.Set("category_ids", id)
		}
	}

	return q.Encode()
}

func (a *Adapter) doSearch(ctx context.Context, endpoint string, sold bool) ([]scrape.RawItem, error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if reqErr != nil {
		return nil, fmt.Errorf("build request: %w", reqErr)
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", "EBAY_US")

	resp, doErr := a.client.Do(req)
	if doErr != nil {
		return nil, scrape.Transient(doErr)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if readErr != nil {
		return nil, scrape.Transient(readErr)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, scrape.NotConfigured("eBay rejected credentials (status %d)", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, scrape.Blocked("eBay rate limit (status %d)", resp.StatusCode)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, scrape.Transient(fmt.Errorf("eBay server error (status %d)", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	if scrape.LooksBlocked(string(body)) {
		return nil, scrape.Blocked("anti-bot markers in eBay response body")
	}

	var payload searchResponse
	if unmarshalErr := json.Unmarshal(body, &payload); unmarshalErr != nil {
		return nil, fmt.Errorf("decode response: %w", unmarshalErr)
	}

	items := make([]scrape.RawItem, 0, len(payload.ItemSummaries))
	for i := range payload.ItemSummaries {
		if len(items) >= domain.MaxResultsPerScan {
			break
		}
		items = append(items, payload.ItemSummaries[i].toRawItem(sold))
	}

	return items, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
