// Package events provides the live-update broker. Job, listing, and
// opportunity events fan out to subscribed connections as newline-delimited
// typed text events with JSON payloads.
package events

import (
	"context"
	"time"

	"github.com/jonesrussell/flipscout/internal/domain"
)

// Event types emitted by the pipeline.
const (
	TypePing               = "ping"
	TypeListingFound       = "listing.found"
	TypeOpportunityCreated = "opportunity.created"
	TypeJobComplete        = "job.complete"
)

// Event is one typed message with a JSON-serializable payload.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Publisher sends events to the broker.
type Publisher interface {
	// Publish sends an event to all connected subscribers. It never blocks
	// on slow subscribers.
	Publish(ctx context.Context, event Event) error
}

// Subscriber receives events from the broker.
type Subscriber interface {
	// Subscribe returns a channel that receives events and a cleanup func
	// that must be called on disconnect. The channel is closed when the
	// subscription ends.
	Subscribe(ctx context.Context) (<-chan Event, func())
}

// ListingFoundData is the payload for listing.found events.
type ListingFoundData struct {
	ListingID  string          `json:"listing_id"`
	Platform   domain.Platform `json:"platform"`
	Title      string          `json:"title"`
	Price      float64         `json:"price"`
	ValueScore int             `json:"value_score"`
	Timestamp  string          `json:"timestamp"`
}

// OpportunityData is the payload for opportunity.created events.
type OpportunityData struct {
	ListingID       string          `json:"listing_id"`
	Platform        domain.Platform `json:"platform"`
	Title           string          `json:"title"`
	Price           float64         `json:"price"`
	EstimatedValue  float64         `json:"estimated_value"`
	ProfitPotential float64         `json:"profit_potential"`
	ValueScore      int             `json:"value_score"`
	Timestamp       string          `json:"timestamp"`
}

// JobCompleteData is the payload for job.complete events.
type JobCompleteData struct {
	JobID              string          `json:"job_id"`
	Platform           domain.Platform `json:"platform"`
	Status             string          `json:"status"`
	ListingsFound      int             `json:"listings_found"`
	OpportunitiesFound int             `json:"opportunities_found"`
	ErrorMessage       string          `json:"error_message,omitempty"`
	Timestamp          string          `json:"timestamp"`
}

// NewListingFoundEvent creates a listing.found event.
func NewListingFoundEvent(l *domain.Listing) Event {
	return Event{
		Type: TypeListingFound,
		Data: ListingFoundData{
			ListingID:  l.ID,
			Platform:   l.Platform,
			Title:      l.Title,
			Price:      l.AskingPrice,
			ValueScore: l.ValueScore,
			Timestamp:  timestamp(),
		},
	}
}

// NewOpportunityEvent creates an opportunity.created event.
func NewOpportunityEvent(l *domain.Listing) Event {
	return Event{
		Type: TypeOpportunityCreated,
		Data: OpportunityData{
			ListingID:       l.ID,
			Platform:        l.Platform,
			Title:           l.Title,
			Price:           l.AskingPrice,
			EstimatedValue:  l.EstimatedValue,
			ProfitPotential: l.ProfitPotential,
			ValueScore:      l.ValueScore,
			Timestamp:       timestamp(),
		},
	}
}

// NewJobCompleteEvent creates a job.complete event.
func NewJobCompleteEvent(job *domain.ScrapeJob) Event {
	data := JobCompleteData{
		JobID:              job.ID,
		Platform:           job.Platform,
		Status:             string(job.Status),
		ListingsFound:      job.ListingsFound,
		OpportunitiesFound: job.OpportunitiesFound,
		Timestamp:          timestamp(),
	}
	if job.ErrorMessage != nil {
		data.ErrorMessage = *job.ErrorMessage
	}
	return Event{Type: TypeJobComplete, Data: data}
}

// NewPingEvent creates a ping event.
func NewPingEvent() Event {
	return Event{
		Type: TypePing,
		Data: map[string]string{"timestamp": timestamp()},
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
