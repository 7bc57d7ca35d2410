// Package normalize maps raw adapter items into the canonical listing model.
// Everything here is a pure function: no I/O, no side effects.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/jonesrussell/flipscout/internal/domain"
	"github.com/jonesrussell/flipscout/internal/scrape"
)

// SkipReason explains why a raw item was not eligible for persistence.
// Skipped items are counted, never stored, and never abort the job.
type SkipReason string

const (
	SkipNone          SkipReason = ""
	SkipMissingFields SkipReason = "missing_fields"
	SkipBadPrice      SkipReason = "bad_price"
)

// Normalize converts one raw item into a canonical listing. The returned
// reason is SkipNone when the listing is eligible for persistence.
func Normalize(ownerID string, platform domain.Platform, raw scrape.RawItem, now time.Time) (*domain.Listing, SkipReason) {
	title := strings.TrimSpace(raw.Title)
	pageURL := strings.TrimSpace(raw.URL)
	externalID := ExternalID(raw.NativeID, pageURL)

	if title == "" || pageURL == "" || externalID == "" {
		return nil, SkipMissingFields
	}

	price := raw.Price
	if price == 0 && raw.RawPrice != "" {
		parsed, ok := ParsePrice(raw.RawPrice)
		if !ok {
			return nil, SkipBadPrice
		}
		price = parsed
	}
	if price <= 0 {
		return nil, SkipBadPrice
	}

	description := strings.TrimSpace(raw.Description)
	category := DetectCategory(raw.Category, title, description)

	listing := &domain.Listing{
		OwnerID:       ownerID,
		Platform:      platform,
		ExternalID:    externalID,
		URL:           pageURL,
		Title:         title,
		Description:   description,
		AskingPrice:   price,
		Condition:     NormalizeCondition(raw.Condition),
		Location:      DeriveLocation(raw),
		SellerName:    strings.TrimSpace(raw.SellerName),
		SellerContact: strings.TrimSpace(raw.SellerContact),
		ImageURLs:     CoalesceImages(raw),
		Category:      category,
		Brand:         DetectBrand(title, description),
		PostedAt:      raw.PostedAt,
		ScrapedAt:     now,
		Status:        domain.ListingStatusNew,
	}

	return listing, SkipNone
}

// trailing or embedded numeric run at least this long is treated as the
// provider's native identifier inside a URL.
var urlIDPattern = regexp.MustCompile(`(\d{5,})`)

// ExternalID derives a stable source-native identifier, preferring the
// provider's id field and falling back to the URL.
func ExternalID(nativeID, rawURL string) string {
	if id := strings.TrimSpace(nativeID); id != "" {
		return id
	}
	if rawURL == "" {
		return ""
	}

	trimmed := strings.TrimSuffix(rawURL, "/")
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}

	if m := urlIDPattern.FindString(trimmed); m != "" {
		return m
	}

	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 && idx < len(trimmed)-1 {
		segment := strings.TrimSuffix(trimmed[idx+1:], ".html")
		return segment
	}

	return ""
}

// CoalesceImages merges all image fields into a single ordered list,
// filtering empty values and duplicates.
func CoalesceImages(raw scrape.RawItem) domain.StringSlice {
	var images domain.StringSlice
	seen := make(map[string]struct{})

	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" {
			return
		}
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		images = append(images, u)
	}

	for _, u := range raw.ImageURLs {
		add(u)
	}
	add(raw.ThumbnailURL)

	return images
}

// DeriveLocation builds a human-readable location string from the structured
// fields, returning empty (absent) rather than a synthesized placeholder.
func DeriveLocation(raw scrape.RawItem) string {
	if loc := strings.TrimSpace(raw.Location); loc != "" {
		return loc
	}

	city := strings.TrimSpace(raw.City)
	region := strings.TrimSpace(raw.Region)
	switch {
	case city != "" && region != "":
		return city + ", " + region
	case city != "":
		return city
	case region != "":
		return region
	default:
		return ""
	}
}
