// Package classify splits scored listings into "all" and "opportunities".
package classify

import (
	"context"

	"github.com/jonesrussell/flipscout/internal/domain"
	"github.com/jonesrussell/flipscout/internal/events"
	"github.com/jonesrussell/flipscout/internal/logger"
)

// DefaultMinValueScore is the opportunity threshold used when the caller
// supplies none.
const DefaultMinValueScore = 70

// Criteria are the viability rules. A listing qualifies as an opportunity
// iff its value score meets the threshold and, when a ceiling is set, its
// asking price does not exceed it.
type Criteria struct {
	// MinValueScore is inclusive: a score exactly at the threshold qualifies.
	MinValueScore int
	// MaxPrice is the optional asking-price ceiling; zero means no ceiling.
	MaxPrice float64
}

// DefaultCriteria returns the standard viability rules.
func DefaultCriteria() Criteria {
	return Criteria{MinValueScore: DefaultMinValueScore}
}

// Result holds both partitions. All listings are retained in All in input
// order regardless of viability.
type Result struct {
	All           []*domain.Listing
	Opportunities []*domain.Listing
}

// Classifier applies the criteria and announces results on the broker.
type Classifier struct {
	criteria  Criteria
	publisher events.Publisher
	logger    logger.Logger
}

// New creates a classifier. The publisher may be nil, in which case no
// events are emitted (used by tests and one-shot CLI runs).
func New(criteria Criteria, publisher events.Publisher, log logger.Logger) *Classifier {
	if criteria.MinValueScore <= 0 {
		criteria.MinValueScore = DefaultMinValueScore
	}
	return &Classifier{criteria: criteria, publisher: publisher, logger: log}
}

// Classify partitions the listings, stamps each listing's status, and emits
// listing.found / opportunity.created events as listings land.
func (c *Classifier) Classify(ctx context.Context, listings []*domain.Listing) Result {
	result := Result{All: listings}

	for _, l := range listings {
		if c.IsOpportunity(l) {
			l.Status = domain.ListingStatusOpportunity
			result.Opportunities = append(result.Opportunities, l)
			c.announce(ctx, events.NewOpportunityEvent(l))
		} else {
			l.Status = domain.ListingStatusNew
		}
		c.announce(ctx, events.NewListingFoundEvent(l))
	}

	return result
}

// IsOpportunity applies the threshold rules to a single listing.
func (c *Classifier) IsOpportunity(l *domain.Listing) bool {
	if l.ValueScore < c.criteria.MinValueScore {
		return false
	}
	if c.criteria.MaxPrice > 0 && l.AskingPrice > c.criteria.MaxPrice {
		return false
	}
	return true
}

func (c *Classifier) announce(ctx context.Context, event events.Event) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.Warn("Event publish failed", logger.Error(err), logger.String("event_type", event.Type))
	}
}
