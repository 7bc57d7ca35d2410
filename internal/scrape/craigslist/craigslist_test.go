package craigslist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/flipscout/internal/domain"
	"github.com/jonesrussell/flipscout/internal/logger"
	"github.com/jonesrussell/flipscout/internal/scrape"
)

const staticBody = `<html><body><ol>
<li class="cl-static-search-result" title="Sony A6000 camera body">
  <a href="https://sfbay.craigslist.org/sfc/ele/d/sony-a6000/7700000001.html">
    <div class="title">Sony A6000 camera body</div>
    <div class="details">
      <div class="price">$350</div>
      <div class="location">san francisco</div>
    </div>
  </a>
</li>
<li class="cl-static-search-result" title="Canon lens">
  <a href="https://sfbay.craigslist.org/eby/ele/d/canon-lens/7700000002.html">
    <div class="title">Canon 50mm lens</div>
    <div class="details">
      <div class="price">$120</div>
      <div class="location">oakland</div>
    </div>
  </a>
</li>
</ol></body></html>`

const galleryBody = `<html><body><ul>
<li class="result-row">
  <img src="https://images.craigslist.org/abc_300x300.jpg">
  <time datetime="2025-08-10 14:30">Aug 10</time>
  <a class="result-title" href="https://sfbay.craigslist.org/sfc/ele/d/dewalt-drill/7700000003.html">DeWalt drill kit</a>
  <span class="result-price">$95</span>
  <span class="result-hood">(mission district)</span>
</li>
</ul></body></html>`

func testAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a := New(Config{Site: "sfbay", BaseURL: srv.URL}, logger.NewNop())
	a.retry.Sleep = func(context.Context, time.Duration) error { return nil }
	return a
}

func TestFetch_ParsesStaticResults(t *testing.T) {
	var gotPath string
	var gotQuery url.Values
	a := testAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Write([]byte(staticBody))
	})

	items, err := a.Fetch(context.Background(), domain.SearchParams{
		Keywords: "camera",
		Category: "electronics",
		MaxPrice: 400,
		Limit:    20,
	})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "/search/ela", gotPath)
	assert.Equal(t, "camera", gotQuery.Get("query"))
	assert.Equal(t, "400", gotQuery.Get("max_price"))

	first := items[0]
	assert.Equal(t, "Sony A6000 camera body", first.Title)
	assert.Equal(t, "$350", first.RawPrice)
	assert.Equal(t, "san francisco", first.Location)
	assert.Contains(t, first.URL, "7700000001.html")
}

func TestFetch_FallsBackToGalleryResults(t *testing.T) {
	a := testAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(galleryBody))
	})

	items, err := a.Fetch(context.Background(), domain.SearchParams{Keywords: "drill", Limit: 20})
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "DeWalt drill kit", item.Title)
	assert.Equal(t, "$95", item.RawPrice)
	assert.Equal(t, "mission district", item.Location)
	assert.Equal(t, []string{"https://images.craigslist.org/abc_300x300.jpg"}, item.ImageURLs)
	require.NotNil(t, item.PostedAt)
	assert.Equal(t, time.August, item.PostedAt.Month())
}

func TestFetch_AntiBotBodyBlocked(t *testing.T) {
	calls := 0
	a := testAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Write([]byte(`<html><body><h1>Robot check</h1>Please verify you are a human</body></html>`))
	})

	_, err := a.Fetch(context.Background(), domain.SearchParams{Keywords: "camera", Limit: 20})
	assert.ErrorIs(t, err, scrape.ErrBlocked)
	assert.Equal(t, 1, calls, "blocked responses must not be retried")
}

func TestFetch_ForbiddenBlocked(t *testing.T) {
	a := testAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := a.Fetch(context.Background(), domain.SearchParams{Keywords: "camera", Limit: 20})
	assert.ErrorIs(t, err, scrape.ErrBlocked)
}

func TestFetch_ServerErrorRetried(t *testing.T) {
	calls := 0
	a := testAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(staticBody))
	})

	items, err := a.Fetch(context.Background(), domain.SearchParams{Keywords: "camera", Limit: 20})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 2, calls)
}

func TestParseResults_LimitApplies(t *testing.T) {
	items, err := parseResults(staticBody, 1)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestParseResults_EmptyPage(t *testing.T) {
	items, err := parseResults("<html><body><p>Nothing found.</p></body></html>", 20)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSectionFor(t *testing.T) {
	assert.Equal(t, "ela", sectionFor("Electronics"))
	assert.Equal(t, "tla", sectionFor("tools"))
	assert.Equal(t, "sss", sectionFor(""))
	assert.Equal(t, "sss", sectionFor("unknown"))
}
