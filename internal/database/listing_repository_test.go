//nolint:testpackage // exercises unexported query helpers
package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/jonesrussell/flipscout/internal/domain"
)

func sampleListing() *domain.Listing {
	l := &domain.Listing{
		OwnerID:     "owner-1",
		Platform:    domain.PlatformCraigslist,
		ExternalID:  "7712345678",
		URL:         "https://sfbay.craigslist.org/7712345678.html",
		Title:       "DeWalt drill",
		AskingPrice: 80,
		Condition:   domain.ConditionGood,
		ImageURLs:   domain.StringSlice{"https://img/1.jpg"},
		Category:    "tools",
		Brand:       "DeWalt",
		ScrapedAt:   time.Now(),
		Status:      domain.ListingStatusNew,
	}
	l.EstimatedValue = 129.6
	l.ValueScore = 55
	l.Comparables = domain.ComparableList{{Type: domain.ComparableSold, Title: "sold", Price: 120}}
	l.Tags = domain.StringSlice{"tools", "good"}
	return l
}

func TestListingRepository_Upsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepository(db)

	created := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	mock.ExpectQuery("INSERT INTO listings").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow("db-assigned-id", created, updated))

	l := sampleListing()
	if err := repo.Upsert(context.Background(), l); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	// The stored row's identity and timestamps win over the candidate's.
	if l.ID != "db-assigned-id" {
		t.Errorf("ID = %q, want db-assigned-id", l.ID)
	}
	if !l.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", l.CreatedAt, created)
	}
	if !l.UpdatedAt.Equal(updated) {
		t.Errorf("UpdatedAt = %v, want %v", l.UpdatedAt, updated)
	}

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestListingRepository_UpsertQueryFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepository(db)

	mock.ExpectQuery("INSERT INTO listings").
		WillReturnError(errors.New("connection reset"))

	err := repo.Upsert(context.Background(), sampleListing())
	if err == nil {
		t.Fatal("Upsert() expected error")
	}
}

func TestListingRepository_GetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM listings").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrListingNotFound) {
		t.Errorf("GetByID() error = %v, want ErrListingNotFound", err)
	}
}

func TestListingRepository_ListByOwnerStatusFilter(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM listings").
		WithArgs("owner-1", domain.ListingStatusOpportunity, 50, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id"}))

	_, err := repo.ListByOwner(context.Background(), "owner-1", domain.ListingStatusOpportunity, 50, 0)
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}
