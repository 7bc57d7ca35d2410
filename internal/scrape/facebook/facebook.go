// Package facebook implements the Facebook Marketplace adapter. Marketplace
// has no usable API surface, so listings are extracted with a headless
// browser driven by chromedp.
package facebook

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/jonesrussell/flipscout/internal/domain"
	"github.com/jonesrussell/flipscout/internal/logger"
	"github.com/jonesrussell/flipscout/internal/scrape"
)

const (
	baseURL = "https://www.facebook.com/marketplace"

	// listingSelector is the anchor present once result cards render.
	listingSelector = `a[href*="/marketplace/item/"]`

	defaultNavTimeout  = 90 * time.Second
	defaultWaitTimeout = 15 * time.Second

	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
)

// blockedResources keeps page loads fast; none of these are needed to read
// result cards out of the DOM.
var blockedResources = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg",
	"*.woff", "*.woff2", "*.ttf",
	"*.mp4", "*.webm", "*.m4v",
	"*doubleclick*", "*google-analytics*",
}

// loginWallMarkers indicate Facebook is demanding auth or a checkpoint
// instead of serving results.
var loginWallMarkers = []string{
	"log in to continue",
	"you must log in",
	"login_form",
	"checkpoint required",
}

// Config holds Facebook adapter settings.
type Config struct {
	// City scopes the marketplace search (e.g. "seattle", "nyc").
	City string `env:"FACEBOOK_CITY" yaml:"city"`
	// ChromePath overrides browser binary discovery.
	ChromePath string `env:"CHROME_BIN" yaml:"chrome_path"`
	Headless   bool   `yaml:"headless"`
}

// Adapter fetches listings from Facebook Marketplace with a headless browser.
// Each Fetch owns a single browser instance and releases it on every exit
// path, success or failure.
type Adapter struct {
	cfg    Config
	logger logger.Logger
}

// New creates a Facebook Marketplace adapter.
func New(cfg Config, log logger.Logger) *Adapter {
	if cfg.City == "" {
		cfg.City = "seattle"
	}
	return &Adapter{cfg: cfg, logger: log}
}

// Platform identifies the marketplace this adapter serves.
func (a *Adapter) Platform() domain.Platform {
	return domain.PlatformFacebook
}

type card struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Price    string `json:"price"`
	Location string `json:"location"`
	Image    string `json:"image"`
}

// Fetch returns active listings matching the search parameters.
func (a *Adapter) Fetch(ctx context.Context, params domain.SearchParams) ([]scrape.RawItem, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", a.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	if bin := a.chromeBinary(); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, defaultNavTimeout)
	defer cancelTimeout()

	searchURL := a.searchURL(params)
	a.logger.Debug("Facebook marketplace navigation", logger.String("url", searchURL))

	var bodyText string
	err := chromedp.Run(browserCtx,
		network.Enable(),
		network.SetBlockedURLS(blockedResources),
		chromedp.Navigate(searchURL),
		chromedp.Sleep(3*time.Second),
		chromedp.Text("body", &bodyText, chromedp.ByQuery),
	)
	if err != nil {
		return nil, scrape.Transient(fmt.Errorf("navigate marketplace: %w", err))
	}

	// Blocked and empty are different outcomes: check for anti-bot and
	// login walls before trying to extract anything.
	if blockErr := detectBlock(bodyText); blockErr != nil {
		return nil, blockErr
	}

	cards, extractErr := a.extractCards(browserCtx, params.Limit)
	if extractErr != nil {
		return nil, extractErr
	}

	items := make([]scrape.RawItem, 0, len(cards))
	for _, c := range cards {
		if c.URL == "" {
			continue
		}
		item := scrape.RawItem{
			URL:      c.URL,
			Title:    c.Title,
			RawPrice: c.Price,
			Location: c.Location,
		}
		if c.Image != "" {
			item.ImageURLs = append(item.ImageURLs, c.Image)
		}
		items = append(items, item)
	}

	a.logger.Debug("Facebook search complete",
		logger.String("keywords", params.Keywords),
		logger.Int("items", len(items)),
	)

	return items, nil
}

func detectBlock(bodyText string) error {
	if scrape.LooksBlocked(bodyText) {
		return scrape.Blocked("anti-bot markers in marketplace page")
	}
	lower := strings.ToLower(bodyText)
	for _, marker := range loginWallMarkers {
		if strings.Contains(lower, marker) {
			return scrape.Blocked("marketplace served a login wall")
		}
	}
	return nil
}

// extractCards waits a bounded time for the result cards to render and falls
// back to scanning whatever the page contains if they never do.
func (a *Adapter) extractCards(browserCtx context.Context, limit int) ([]card, error) {
	if limit <= 0 || limit > domain.MaxResultsPerScan {
		limit = domain.MaxResultsPerScan
	}

	waitCtx, cancelWait := context.WithTimeout(browserCtx, defaultWaitTimeout)
	waitErr := chromedp.Run(waitCtx, chromedp.WaitReady(listingSelector, chromedp.ByQuery))
	cancelWait()

	if waitErr != nil {
		a.logger.Warn("Marketplace result selector never appeared, scanning raw page",
			logger.Error(waitErr))
	}

	var cards []card
	extractErr := chromedp.Run(browserCtx,
		chromedp.Evaluate(extractScript(limit), &cards),
	)
	if extractErr != nil {
		return nil, scrape.Transient(fmt.Errorf("extract cards: %w", extractErr))
	}

	return cards, nil
}

func (a *Adapter) searchURL(params domain.SearchParams) string {
	q := url.Values{}
	q.Set("query", params.Keywords)
	if params.MinPrice > 0 {
		q.Set("minPrice", strconv.Itoa(int(params.MinPrice)))
	}
	if params.MaxPrice > 0 {
		q.Set("maxPrice", strconv.Itoa(int(params.MaxPrice)))
	}
	return fmt.Sprintf("%s/%s/search?%s", baseURL, a.cfg.City, q.Encode())
}

// extractScript builds the in-page extraction routine. It reads result cards
// when present and degrades to bare item links when the layout has shifted.
func extractScript(limit int) string {
	return `
		(function() {
			var results = [];
			var seen = {};
			var limit = ` + strconv.Itoa(limit) + `;
			var links = document.querySelectorAll('a[href*="/marketplace/item/"]');
			for (var i = 0; i < links.length && results.length < limit; i++) {
				var link = links[i];
				var href = link.href.split('?')[0];
				if (!href || seen[href]) continue;
				seen[href] = true;

				var lines = (link.innerText || '')
					.split('\n')
					.map(function(l) { return l.trim(); })
					.filter(Boolean);

				var price = lines.find(function(l) { return /[$€£]\s?[\d,]/.test(l); }) || '';
				var rest = lines.filter(function(l) { return l !== price; });

				var img = link.querySelector('img');

				results.push({
					url: href,
					title: rest[0] || '',
					price: price,
					location: rest[1] || '',
					image: img ? (img.src || '') : ''
				});
			}
			return results;
		})()
	`
}

func (a *Adapter) chromeBinary() string {
	if a.cfg.ChromePath != "" {
		return a.cfg.ChromePath
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}
	for _, name := range []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}
