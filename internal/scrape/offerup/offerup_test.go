package offerup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/flipscout/internal/domain"
	"github.com/jonesrussell/flipscout/internal/logger"
	"github.com/jonesrussell/flipscout/internal/scrape"
)

const functionBody = `{
	"items": [
		{
			"id": "ou-1001",
			"url": "https://offerup.com/item/detail/ou-1001",
			"title": "KitchenAid stand mixer",
			"details": "Works great, minor scratches.",
			"price": "$140",
			"condition": "Used - Good",
			"location": "Tacoma, WA",
			"seller": "amy",
			"images": ["https://img.offerup.com/1.jpg"],
			"posted_at": "2025-08-20T10:00:00Z"
		}
	]
}`

func testAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a := New(Config{FunctionURL: srv.URL, ServiceKey: "test-key"}, logger.NewNop())
	a.retry.Sleep = func(context.Context, time.Duration) error { return nil }
	return a
}

func TestFetch_MapsFunctionItems(t *testing.T) {
	var gotAuth string
	var gotReq functionRequest
	a := testAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(functionBody))
	})

	items, err := a.Fetch(context.Background(), domain.SearchParams{
		Keywords: "stand mixer",
		MaxPrice: 200,
		Limit:    20,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "stand mixer", gotReq.Keywords)
	assert.InDelta(t, 200.0, gotReq.MaxPrice, 0.001)

	item := items[0]
	assert.Equal(t, "ou-1001", item.NativeID)
	assert.Equal(t, "KitchenAid stand mixer", item.Title)
	assert.Equal(t, "$140", item.RawPrice)
	assert.Equal(t, "Used - Good", item.Condition)
	assert.Equal(t, "Tacoma, WA", item.Location)
	assert.Equal(t, "amy", item.SellerName)
	require.NotNil(t, item.PostedAt)
	assert.Equal(t, 20, item.PostedAt.Day())
}

func TestFetch_MissingConfigNotConfigured(t *testing.T) {
	a := New(Config{}, logger.NewNop())

	_, err := a.Fetch(context.Background(), domain.SearchParams{Keywords: "anything", Limit: 10})
	assert.ErrorIs(t, err, scrape.ErrNotConfigured)
}

func TestFetch_RejectedServiceKeyNotConfigured(t *testing.T) {
	a := testAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := a.Fetch(context.Background(), domain.SearchParams{Keywords: "anything", Limit: 10})
	assert.ErrorIs(t, err, scrape.ErrNotConfigured)
}

func TestFetch_ErrorPayloadMapped(t *testing.T) {
	calls := 0
	a := testAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Write([]byte(`{"error": {"code": "captcha", "message": "challenge page served"}}`))
	})

	_, err := a.Fetch(context.Background(), domain.SearchParams{Keywords: "anything", Limit: 10})
	assert.ErrorIs(t, err, scrape.ErrBlocked)
	assert.Equal(t, 1, calls, "blocked responses must not be retried")
}

func TestFetch_TransientErrorPayloadRetried(t *testing.T) {
	calls := 0
	a := testAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 2 {
			w.Write([]byte(`{"error": {"code": "timeout", "message": "upstream timed out"}}`))
			return
		}
		w.Write([]byte(functionBody))
	})

	items, err := a.Fetch(context.Background(), domain.SearchParams{Keywords: "anything", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 2, calls)
}

func TestMapFunctionError(t *testing.T) {
	cases := []struct {
		code string
		want error
	}{
		{"unauthorized", scrape.ErrNotConfigured},
		{"missing_credentials", scrape.ErrNotConfigured},
		{"blocked", scrape.ErrBlocked},
		{"captcha", scrape.ErrBlocked},
		{"rate_limited", scrape.ErrBlocked},
		{"timeout", scrape.ErrTransient},
		{"upstream_unavailable", scrape.ErrTransient},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			err := mapFunctionError(&functionError{Code: tc.code, Message: "m"})
			assert.ErrorIs(t, err, tc.want)
		})
	}

	err := mapFunctionError(&functionError{Code: "exploded", Message: "boom"})
	assert.NotErrorIs(t, err, scrape.ErrNotConfigured)
	assert.NotErrorIs(t, err, scrape.ErrBlocked)
	assert.NotErrorIs(t, err, scrape.ErrTransient)
}
