package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/flipscout/internal/database"
	"github.com/jonesrussell/flipscout/internal/domain"
	"github.com/jonesrussell/flipscout/internal/logger"
	"github.com/jonesrussell/flipscout/internal/scan"
	"github.com/jonesrussell/flipscout/internal/scrape"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Scanner runs scan jobs.
type Scanner interface {
	RunScan(ctx context.Context, ownerID string, platform domain.Platform, params domain.SearchParams) (*scan.Result, error)
}

// JobReader reads scrape jobs.
type JobReader interface {
	GetByID(ctx context.Context, id string) (*domain.ScrapeJob, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.ScrapeJob, error)
}

// ListingReader reads listings.
type ListingReader interface {
	GetByID(ctx context.Context, id string) (*domain.Listing, error)
	ListByOwner(ctx context.Context, ownerID string, status domain.ListingStatus, limit, offset int) ([]*domain.Listing, error)
}

// Analyzer runs deep analysis for listings.
type Analyzer interface {
	Analyze(ctx context.Context, l *domain.Listing) (*domain.AnalysisResult, error)
	AnalyzeBatch(ctx context.Context, listings []*domain.Listing) *domain.BatchAnalysisReport
}

// Handler serves the v1 API.
type Handler struct {
	scanner  Scanner
	jobs     JobReader
	listings ListingReader
	analyzer Analyzer
	// defaultOwner attributes requests that carry no owner_id.
	defaultOwner string
	logger       logger.Logger
}

// NewHandler creates the API handler. The analyzer may be nil when no
// provider credentials are configured.
func NewHandler(scanner Scanner, jobs JobReader, listings ListingReader, analyzer Analyzer, defaultOwner string, log logger.Logger) *Handler {
	return &Handler{
		scanner:      scanner,
		jobs:         jobs,
		listings:     listings,
		analyzer:     analyzer,
		defaultOwner: defaultOwner,
		logger:       log,
	}
}

// ScanRequest is the body of POST /api/v1/scans.
type ScanRequest struct {
	Platform string  `json:"platform" binding:"required"`
	Keywords string  `json:"keywords" binding:"required"`
	Category string  `json:"category"`
	Location string  `json:"location"`
	MinPrice float64 `json:"min_price"`
	MaxPrice float64 `json:"max_price"`
	Limit    int     `json:"limit"`
	OwnerID  string  `json:"owner_id"`
}

// TriggerScan runs a scan synchronously and returns its summary. The job is
// persisted even when the scan fails, so the failure stays auditable.
func (h *Handler) TriggerScan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	platform := domain.Platform(req.Platform)
	if !platform.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown platform", "platform": req.Platform})
		return
	}

	params := domain.SearchParams{
		Keywords: req.Keywords,
		Category: req.Category,
		Location: req.Location,
		MinPrice: req.MinPrice,
		MaxPrice: req.MaxPrice,
		Limit:    req.Limit,
	}

	result, err := h.scanner.RunScan(c.Request.Context(), h.owner(req.OwnerID), platform, params)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyKeywords) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Scan request failed",
			logger.String("platform", req.Platform),
			logger.Error(err),
		)

		status := scanFailureStatus(err)
		payload := gin.H{"error": "Scan failed", "details": err.Error()}
		if result != nil {
			payload["job_id"] = result.JobID
		}
		c.JSON(status, payload)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetJob returns one scrape job by ID.
func (h *Handler) GetJob(c *gin.Context) {
	job, err := h.jobs.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		h.logger.Error("Job lookup failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load job"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListJobs returns the owner's jobs, newest first.
func (h *Handler) ListJobs(c *gin.Context) {
	limit, offset := pagination(c)

	jobs, err := h.jobs.ListByOwner(c.Request.Context(), h.owner(c.Query("owner_id")), limit, offset)
	if err != nil {
		h.logger.Error("Job list failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list jobs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}

// GetListing returns one listing by ID.
func (h *Handler) GetListing(c *gin.Context) {
	l, err := h.listings.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrListingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
			return
		}
		h.logger.Error("Listing lookup failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load listing"})
		return
	}
	c.JSON(http.StatusOK, l)
}

// ListListings returns the owner's listings, optionally filtered by status
// (e.g. ?status=opportunity).
func (h *Handler) ListListings(c *gin.Context) {
	limit, offset := pagination(c)
	status := domain.ListingStatus(c.Query("status"))

	listings, err := h.listings.ListByOwner(c.Request.Context(), h.owner(c.Query("owner_id")), status, limit, offset)
	if err != nil {
		h.logger.Error("Listing list failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list listings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings, "count": len(listings)})
}

// AnalyzeListing runs deep analysis for one stored listing.
func (h *Handler) AnalyzeListing(c *gin.Context) {
	if h.analyzer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Analysis is not configured"})
		return
	}

	l, err := h.listings.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrListingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
			return
		}
		h.logger.Error("Listing lookup failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load listing"})
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), l)
	if err != nil {
		h.logger.Error("Listing analysis failed",
			logger.String("listing_id", l.ID),
			logger.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Analysis failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// BatchAnalyzeRequest is the body of POST /api/v1/analyze.
type BatchAnalyzeRequest struct {
	ListingIDs []string `json:"listing_ids" binding:"required"`
	OwnerID    string   `json:"owner_id"`
}

// AnalyzeBatch runs deep analysis for a set of stored listings. Listings
// that cannot be loaded are reported per-ID; one bad ID never fails the
// batch.
func (h *Handler) AnalyzeBatch(c *gin.Context) {
	if h.analyzer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Analysis is not configured"})
		return
	}

	var req BatchAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if len(req.ListingIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "listing_ids must not be empty"})
		return
	}

	loadErrors := make(map[string]string)
	listings := make([]*domain.Listing, 0, len(req.ListingIDs))
	for _, id := range req.ListingIDs {
		l, err := h.listings.GetByID(c.Request.Context(), id)
		if err != nil {
			loadErrors[id] = err.Error()
			continue
		}
		listings = append(listings, l)
	}

	report := h.analyzer.AnalyzeBatch(c.Request.Context(), listings)
	report.Total += len(loadErrors)
	report.Failed += len(loadErrors)
	for id, msg := range loadErrors {
		report.Errors[id] = msg
	}

	c.JSON(http.StatusOK, report)
}

// scanFailureStatus maps the adapter error taxonomy onto distinct statuses:
// missing credentials, being blocked or rate limited, and everything else
// must stay distinguishable to callers.
func scanFailureStatus(err error) int {
	switch scrape.Classify(err) {
	case scrape.ClassNotConfigured:
		return http.StatusServiceUnavailable
	case scrape.ClassBlocked:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

func (h *Handler) owner(requested string) string {
	if requested != "" {
		return requested
	}
	return h.defaultOwner
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
