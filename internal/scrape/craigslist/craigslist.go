// Package craigslist implements the Craigslist adapter. Craigslist has no
// public API, so the adapter mimics a browser client against the search
// endpoints a browser would hit and parses the returned markup.
package craigslist

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/flipscout/internal/domain"
	"github.com/jonesrussell/flipscout/internal/logger"
	"github.com/jonesrussell/flipscout/internal/scrape"
)

const (
	defaultSite = "sfbay"

	requestTimeout  = 30 * time.Second
	maxResponseSize = 8 << 20

	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
)

// Config holds Craigslist adapter settings.
type Config struct {
	// Site is the Craigslist subdomain to search (e.g. "sfbay", "newyork").
	Site string `env:"CRAIGSLIST_SITE" yaml:"site"`
	// BaseURL overrides the site-derived endpoint.
	BaseURL string `yaml:"base_url"`
}

// Adapter fetches listings from Craigslist search pages.
type Adapter struct {
	cfg    Config
	client *http.Client
	logger logger.Logger
	retry  scrape.RetryConfig
}

// New creates a Craigslist adapter.
func New(cfg Config, log logger.Logger) *Adapter {
	if cfg.Site == "" {
		cfg.Site = defaultSite
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
	return domain.PlatformCraigslist
}

// Fetch returns active listings matching the search parameters.
func (a *Adapter) Fetch(ctx context.Context, params domain.SearchParams) ([]scrape.RawItem, error) {
	endpoint := a.searchURL(params)

	var items []scrape.RawItem
	err := scrape.Do(ctx, a.retry, func() error {
		fetched, fetchErr := a.doSearch(ctx, endpoint, params.Limit)
		if fetchErr != nil {
			return fetchErr
		}
		items = fetched
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("craigslist search: %w", err)
	}

	a.logger.Debug("Craigslist search complete",
		logger.String("site", a.cfg.Site),
		logger.String("keywords", params.Keywords),
		logger.Int("items", len(items)),
	)

	return items, nil
}

func (a *Adapter) searchURL(params domain.SearchParams) string {
	q := url.Values{}
	q.Set("query", params.Keywords)
	q.Set("sort", "date")
	if params.MinPrice > 0 {
		q.Set("min_price", strconv.Itoa(int(params.MinPrice)))
	}
	if params.MaxPrice > 0 {
		q.Set("max_price", strconv.Itoa(int(params.MaxPrice)))
	}

	base := a.cfg.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.craigslist.org", a.cfg.Site)
	}
	return fmt.Sprintf("%s/search/%s?%s", base, sectionFor(params.Category), q.Encode())
}

// sectionFor maps category labels onto Craigslist search sections,
// defaulting to the for-sale firehose.
func sectionFor(category string) string {
	switch strings.ToLower(category) {
	case "electronics":
		return "ela"
	case "furniture":
		return "fua"
	case "tools":
		return "tla"
	case "sporting":
		return "sga"
	case "toys":
		return "taa"
	case "appliances":
		return "ppa"
	default:
		return "sss"
	}
}

func (a *Adapter) doSearch(ctx context.Context, endpoint string, limit int) ([]scrape.RawItem, error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if reqErr != nil {
		return nil, fmt.Errorf("build request: %w", reqErr)
	}

	// Header set a real browser would send; Craigslist serves the static
	// result markup to clients that look like one.
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", fmt.Sprintf("https://%s.craigslist.org/", a.cfg.Site))

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
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		return nil, scrape.Blocked("craigslist returned status %d", resp.StatusCode)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, scrape.Transient(fmt.Errorf("craigslist server error (status %d)", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if scrape.LooksBlocked(string(body)) {
		return nil, scrape.Blocked("anti-bot markers in craigslist response body")
	}

	items, parseErr := parseResults(string(body), limit)
	if parseErr != nil {
		return nil, fmt.Errorf("parse results: %w", parseErr)
	}

	return items, nil
}

// parseResults extracts listings from a search results page. It tries the
// current static-result markup first and falls back to the legacy gallery
// markup so either rendering of the page yields items.
func parseResults(body string, limit int) ([]scrape.RawItem, error) {
	doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(body))
	if docErr != nil {
		return nil, fmt.Errorf("parse html: %w", docErr)
	}

	if limit <= 0 || limit > domain.MaxResultsPerScan {
		limit = domain.MaxResultsPerScan
	}

	items := parseStaticResults(doc, limit)
	if len(items) == 0 {
		items = parseGalleryResults(doc, limit)
	}

	return items, nil
}

func parseStaticResults(doc *goquery.Document, limit int) []scrape.RawItem {
	var items []scrape.RawItem

	doc.Find("li.cl-static-search-result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("a").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return true
		}

		item := scrape.RawItem{
			URL:      href,
			Title:    strings.TrimSpace(sel.Find(".title").First().Text()),
			RawPrice: strings.TrimSpace(sel.Find(".price").First().Text()),
			Location: strings.TrimSpace(sel.Find(".location").First().Text()),
		}
		if item.Title == "" {
			item.Title = strings.TrimSpace(link.Text())
		}

		items = append(items, item)
		return len(items) < limit
	})

	return items
}

func parseGalleryResults(doc *goquery.Document, limit int) []scrape.RawItem {
	var items []scrape.RawItem

	doc.Find("li.result-row, div.gallery-card").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("a.result-title, a.posting-title, a[href*='.html']").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return true
		}

		item := scrape.RawItem{
			URL:      href,
			Title:    strings.TrimSpace(link.Text()),
			RawPrice: strings.TrimSpace(sel.Find(".result-price, .priceinfo").First().Text()),
			Location: strings.Trim(strings.TrimSpace(sel.Find(".result-hood, .meta .location").First().Text()), "()"),
		}

		if img, imgOK := sel.Find("img").First().Attr("src"); imgOK {
			item.ImageURLs = append(item.ImageURLs, img)
		}
		if t, timeOK := sel.Find("time").First().Attr("datetime"); timeOK {
			if posted, parseErr := time.Parse("2006-01-02 15:04", t); parseErr == nil {
				item.PostedAt = &posted
			}
		}

		items = append(items, item)
		return len(items) < limit
	})

	return items
}
