// Package store implements every persistence operation behind the HTTP API.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"housing-listings-backend/internal/auth"
	"housing-listings-backend/internal/dto"
	"housing-listings-backend/internal/filter"
	"housing-listings-backend/internal/model"
	"housing-listings-backend/internal/query"
)

var (
	// ErrNotFound is returned when a single entity does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller may not perform the operation.
	ErrForbidden = errors.New("forbidden")
)

// Store defines the interface for all database operations.
type Store interface {
	Ping(ctx context.Context) error

	ListListings(ctx context.Context, caller auth.Caller, p ListingParams) (query.Paginated[dto.Listing], error)
	GetListing(ctx context.Context, caller auth.Caller, id string, view dto.View) (dto.Listing, error)
	CreateListing(ctx context.Context, caller auth.Caller, in dto.Listing) (dto.Listing, error)
	UpdateListing(ctx context.Context, caller auth.Caller, id string, in dto.Listing) (dto.Listing, bool, error)
	DeleteListing(ctx context.Context, caller auth.Caller, id string) error
	ApplicationCounts(ctx context.Context, listingIDs []string) (map[string]int64, error)

	ListApplications(ctx context.Context, caller auth.Caller, p ApplicationParams) (query.Paginated[dto.Application], error)
	ListingApplications(ctx context.Context, caller auth.Caller, listingID string) ([]dto.Application, error)
	GetApplication(ctx context.Context, caller auth.Caller, id string) (dto.Application, error)
	CreateApplication(ctx context.Context, caller auth.Caller, in dto.Application) (dto.Application, error)
	FlaggedSets(ctx context.Context, caller auth.Caller, listingID string) ([]dto.FlaggedSet, error)
	MarkDuplicate(ctx context.Context, caller auth.Caller, ids []string, flag bool) error

	ListJurisdictions(ctx context.Context) ([]dto.Jurisdiction, error)
	GetJurisdiction(ctx context.Context, id string) (dto.Jurisdiction, error)
	ListMultiselectQuestions(ctx context.Context, clauses []filter.Clause) ([]dto.MultiselectQuestion, error)

	GetSubscription(ctx context.Context, endpoint string) (dto.Subscription, error)
	PutSubscription(ctx context.Context, in SubscriptionInput) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForJurisdiction(ctx context.Context, jurisdictionID string) ([]model.PushSubscription, error)

	UpsertExternalListings(ctx context.Context, jurisdictionID string, items []dto.Listing) ([]ListingOpened, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// validID reports whether id can be compared against a uuid column.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
