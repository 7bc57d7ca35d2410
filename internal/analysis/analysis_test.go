package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/flipscout/internal/domain"
	"github.com/jonesrussell/flipscout/internal/logger"
	"github.com/jonesrussell/flipscout/internal/metrics"
)

type stubCompleter struct {
	response string
	err      error
	calls    int
}

func (s *stubCompleter) Complete(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.response, s.err
}

type memoryCache struct {
	entries map[string]*domain.AnalysisCacheEntry
	getErr  error
	putErr  error
	puts    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]*domain.AnalysisCacheEntry{}}
}

func (m *memoryCache) Get(_ context.Context, listingID string, now time.Time) (*domain.AnalysisCacheEntry, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	entry, ok := m.entries[listingID]
	if !ok || entry.Expired(now) {
		return nil, nil
	}
	return entry, nil
}

func (m *memoryCache) Put(_ context.Context, entry *domain.AnalysisCacheEntry) error {
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	m.entries[entry.ListingID] = entry
	return nil
}

const validResponse = `{
	"flippability_score": 82,
	"confidence": "high",
	"estimated_value": 450,
	"condition": "very good",
	"features": ["original box"],
	"issues": [],
	"risks": ["seasonal demand"],
	"summary": "Solid flip candidate."
}`

func testListing(id string) *domain.Listing {
	return &domain.Listing{
		ID:          id,
		Title:       "Sony camera",
		AskingPrice: 250,
		Condition:   domain.ConditionGood,
	}
}

func TestAnalyze_ParsesProviderResponse(t *testing.T) {
	completer := &stubCompleter{response: validResponse}
	a := New(completer, newMemoryCache(), Config{}, logger.NewNop())

	result, err := a.Analyze(context.Background(), testListing("l1"))

	require.NoError(t, err)
	assert.Equal(t, "l1", result.ListingID)
	assert.Equal(t, 82, result.FlippabilityScore)
	assert.Equal(t, domain.ConfidenceHigh, result.Confidence)
	assert.Equal(t, 450.0, result.EstimatedValue)
	assert.False(t, result.Cached)
}

func TestAnalyze_CacheHitSkipsProvider(t *testing.T) {
	completer := &stubCompleter{response: validResponse}
	cache := newMemoryCache()
	a := New(completer, cache, Config{}, logger.NewNop())

	_, err := a.Analyze(context.Background(), testListing("l1"))
	require.NoError(t, err)
	require.Equal(t, 1, completer.calls)

	result, err := a.Analyze(context.Background(), testListing("l1"))
	require.NoError(t, err)

	assert.Equal(t, 1, completer.calls, "second call must be served from cache")
	assert.True(t, result.Cached)
	assert.Equal(t, 82, result.FlippabilityScore)
}

func TestAnalyze_ExpiredEntryTriggersFreshCall(t *testing.T) {
	completer := &stubCompleter{response: validResponse}
	cache := newMemoryCache()

	payload, _ := json.Marshal(&domain.AnalysisResult{FlippabilityScore: 10})
	cache.entries["l1"] = &domain.AnalysisCacheEntry{
		ListingID: "l1",
		Result:    payload,
		ExpiresAt: time.Now().Add(-time.Minute),
	}

	a := New(completer, cache, Config{}, logger.NewNop())
	result, err := a.Analyze(context.Background(), testListing("l1"))

	require.NoError(t, err)
	assert.Equal(t, 1, completer.calls)
	assert.Equal(t, 82, result.FlippabilityScore)
}

func TestAnalyze_ToleratesCodeFences(t *testing.T) {
	completer := &stubCompleter{response: "```json\n" + validResponse + "\n```"}
	a := New(completer, nil, Config{}, logger.NewNop())

	result, err := a.Analyze(context.Background(), testListing("l1"))

	require.NoError(t, err)
	assert.Equal(t, 82, result.FlippabilityScore)
}

func TestAnalyze_ToleratesSurroundingProse(t *testing.T) {
	completer := &stubCompleter{response: "Here is my assessment:\n" + validResponse + "\nHope that helps."}
	a := New(completer, nil, Config{}, logger.NewNop())

	result, err := a.Analyze(context.Background(), testListing("l1"))

	require.NoError(t, err)
	assert.Equal(t, 82, result.FlippabilityScore)
}

func TestAnalyze_SanitizesResult(t *testing.T) {
	completer := &stubCompleter{response: `{"flippability_score": 250, "confidence": "certain"}`}
	a := New(completer, nil, Config{}, logger.NewNop())

	result, err := a.Analyze(context.Background(), testListing("l1"))

	require.NoError(t, err)
	assert.Equal(t, 100, result.FlippabilityScore)
	assert.Equal(t, domain.ConfidenceMedium, result.Confidence)
	assert.NotNil(t, result.Features)
	assert.NotNil(t, result.Issues)
	assert.NotNil(t, result.Risks)
}

func TestAnalyze_NonJSONResponse(t *testing.T) {
	completer := &stubCompleter{response: "I cannot assess this listing."}
	a := New(completer, nil, Config{}, logger.NewNop())

	_, err := a.Analyze(context.Background(), testListing("l1"))

	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestAnalyze_CacheWriteFailureIsSwallowed(t *testing.T) {
	completer := &stubCompleter{response: validResponse}
	cache := newMemoryCache()
	cache.putErr = errors.New("disk full")
	a := New(completer, cache, Config{}, logger.NewNop())

	result, err := a.Analyze(context.Background(), testListing("l1"))

	require.NoError(t, err)
	assert.Equal(t, 82, result.FlippabilityScore)
	assert.Equal(t, 1, cache.puts)
}

func TestAnalyze_CacheReadFailureDegradesToLiveCall(t *testing.T) {
	completer := &stubCompleter{response: validResponse}
	cache := newMemoryCache()
	cache.getErr = errors.New("db down")
	a := New(completer, cache, Config{}, logger.NewNop())

	result, err := a.Analyze(context.Background(), testListing("l1"))

	require.NoError(t, err)
	assert.Equal(t, 1, completer.calls)
	assert.False(t, result.Cached)
}

func TestAnalyzeBatch_Accounting(t *testing.T) {
	completer := &stubCompleter{response: validResponse}
	cache := newMemoryCache()
	a := New(completer, cache, Config{}, logger.NewNop())

	// Prime the cache for l1 so the batch sees one cached result.
	_, err := a.Analyze(context.Background(), testListing("l1"))
	require.NoError(t, err)

	completer.err = nil
	listings := []*domain.Listing{testListing("l1"), testListing("l2")}
	report := a.AnalyzeBatch(context.Background(), listings)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Successful)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 1, report.Cached)
	assert.Len(t, report.Results, 2)
}

func TestAnalyzeBatch_FailuresDoNotAbort(t *testing.T) {
	completer := &stubCompleter{err: errors.New("provider down")}
	a := New(completer, nil, Config{}, logger.NewNop())

	listings := []*domain.Listing{testListing("l1"), testListing("l2"), testListing("l3")}
	report := a.AnalyzeBatch(context.Background(), listings)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 0, report.Successful)
	assert.Equal(t, 3, report.Failed)
	assert.Equal(t, report.Total, report.Successful+report.Failed)
	assert.Len(t, report.Errors, 3)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}

func TestAnalyze_InstrumentsCallsAndCacheHits(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	completer := &stubCompleter{response: validResponse}
	a := New(completer, newMemoryCache(), Config{}, logger.NewNop(), WithMetrics(m))

	_, err := a.Analyze(context.Background(), testListing("l1"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisCalls.WithLabelValues("success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.AnalysisCacheHits))

	_, err = a.Analyze(context.Background(), testListing("l1"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisCalls.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisCacheHits))
}

func TestAnalyze_InstrumentsFailedCalls(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	completer := &stubCompleter{err: errors.New("provider down")}
	a := New(completer, nil, Config{}, logger.NewNop(), WithMetrics(m))

	_, err := a.Analyze(context.Background(), testListing("l1"))
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisCalls.WithLabelValues("error")))
}

func TestBuildPrompt_IncludesListingFacts(t *testing.T) {
	l := testListing("l1")
	l.Description = "Ships fast, lens cap included."
	l.ImageURLs = domain.StringSlice{"https://img/1.jpg", "https://img/2.jpg", "https://img/3.jpg"}

	prompt := buildPrompt(l)
	assert.Contains(t, prompt, "Title: Sony camera")
	assert.Contains(t, prompt, "Asking price: $250.00")
	assert.Contains(t, prompt, "Photos: 3")
	assert.Contains(t, prompt, "Ships fast")
}
