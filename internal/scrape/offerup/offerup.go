// Package offerup implements the OfferUp adapter. Scraping is delegated to a
// remote scraper function that runs closer to residential egress; this
// adapter only speaks to that function and maps its failures onto the shared
// taxonomy.
package offerup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonesrussell/flipscout/internal/domain"
	"github.com/jonesrussell/flipscout/internal/logger"
	"github.com/jonesrussell/flipscout/internal/scrape"
)

const (
	requestTimeout  = 60 * time.Second
	maxResponseSize = 4 << 20
)

// Config holds the remote scraper function settings.
type Config struct {
	// FunctionURL is the endpoint of the deployed scraper function.
	FunctionURL string `env:"OFFERUP_FUNCTION_URL" yaml:"function_url"`
	// ServiceKey authenticates this service to the function.
	ServiceKey string `env:"OFFERUP_SERVICE_KEY" yaml:"service_key"`
}

// Adapter delegates OfferUp searches to the remote function.
type Adapter struct {
	cfg    Config
	client *http.Client
	logger logger.Logger
	retry  scrape.RetryConfig
}

// New creates an OfferUp adapter.
func New(cfg Config, log logger.Logger) *Adapter {
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: requestTimeout},
		logger: log,
		retry:  scrape.DefaultRetryConfig(),
	}
}

// Platform identifies the marketplace this adapter serves.
func (a *Adapter) Platform() domain.Platform {
	return domain.PlatformOfferUp
}

// functionRequest is the payload the remote function expects.
type functionRequest struct {
	Keywords string  `json:"keywords"`
	Category string  `json:"category,omitempty"`
	Location string  `json:"location,omitempty"`
	MinPrice float64 `json:"min_price,omitempty"`
	MaxPrice float64 `json:"max_price,omitempty"`
	Limit    int     `json:"limit"`
}

type functionResponse struct {
	Items []functionItem `json:"items"`
	Error *functionError `json:"error,omitempty"`
}

type functionError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type functionItem struct {
	ID        string   `json:"id"`
	URL       string   `json:"url"`
	Title     string   `json:"title"`
	Details   string   `json:"details"`
	Price     string   `json:"price"`
	Condition string   `json:"condition"`
	Location  string   `json:"location"`
	Seller    string   `json:"seller"`
	Images    []string `json:"images"`
	PostedAt  string   `json:"posted_at"`
}

// Fetch returns active listings matching the search parameters.
func (a *Adapter) Fetch(ctx context.Context, params domain.SearchParams) ([]scrape.RawItem, error) {
	if strings.TrimSpace(a.cfg.FunctionURL) == "" || strings.TrimSpace(a.cfg.ServiceKey) == "" {
		return nil, scrape.NotConfigured("OfferUp scraper function URL or service key is missing")
	}

	payload, marshalErr := json.Marshal(functionRequest{
		Keywords: params.Keywords,
		Category: params.Category,
		Location: params.Location,
		MinPrice: params.MinPrice,
		MaxPrice: params.MaxPrice,
		Limit:    params.Limit,
	})
	if marshalErr != nil {
		return nil, fmt.Errorf("marshal function request: %w", marshalErr)
	}

	var items []scrape.RawItem
	err := scrape.Do(ctx, a.retry, func() error {
		fetched, callErr := a.invoke(ctx, payload)
		if callErr != nil {
			return callErr
		}
		items = fetched
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("offerup search: %w", err)
	}

	a.logger.Debug("OfferUp search complete",
		logger.String("keywords", params.Keywords),
		logger.Int("items", len(items)),
	)

	return items, nil
}

func (a *Adapter) invoke(ctx context.Context, payload []byte) ([]scrape.RawItem, error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.FunctionURL, bytes.NewReader(payload))
	if reqErr != nil {
		return nil, fmt.Errorf("build request: %w", reqErr)
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.ServiceKey)
	req.Header.Set("Content-Type", "application/json")

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
		return nil, scrape.NotConfigured("scraper function rejected service key (status %d)", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, scrape.Blocked("scraper function rate limited (status %d)", resp.StatusCode)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, scrape.Transient(fmt.Errorf("scraper function error (status %d)", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected function status %d", resp.StatusCode)
	}

	var parsed functionResponse
	if unmarshalErr := json.Unmarshal(body, &parsed); unmarshalErr != nil {
		return nil, fmt.Errorf("decode function response: %w", unmarshalErr)
	}

	if parsed.Error != nil {
		return nil, mapFunctionError(parsed.Error)
	}

	items := make([]scrape.RawItem, 0, len(parsed.Items))
	for _, fi := range parsed.Items {
		if len(items) >= domain.MaxResultsPerScan {
			break
		}
		item := scrape.RawItem{
			NativeID:    fi.ID,
			URL:         fi.URL,
			Title:       fi.Title,
			Description: fi.Details,
			RawPrice:    fi.Price,
			Condition:   fi.Condition,
			Location:    fi.Location,
			SellerName:  fi.Seller,
			ImageURLs:   fi.Images,
		}
		if fi.PostedAt != "" {
			if posted, parseErr := time.Parse(time.RFC3339, fi.PostedAt); parseErr == nil {
				item.PostedAt = &posted
			}
		}
		items = append(items, item)
	}

	return items, nil
}

// mapFunctionError translates the function's error payload onto the shared
// adapter taxonomy.
func mapFunctionError(fe *functionError) error {
	switch strings.ToLower(fe.Code) {
	case "unauthorized", "missing_credentials":
		return scrape.NotConfigured("scraper function: %s", fe.Message)
	case "blocked", "captcha", "rate_limited":
		return scrape.Blocked("scraper function: %s", fe.Message)
	case "timeout", "upstream_unavailable":
		return scrape.Transient(fmt.Errorf("scraper function: %s", fe.Message))
	default:
		return fmt.Errorf("scraper function failed: %s (%s)", fe.Message, fe.Code)
	}
}
