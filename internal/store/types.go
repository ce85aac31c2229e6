package store

import (
	"housing-listings-backend/internal/dto"
	"housing-listings-backend/internal/filter"
)

// ListingParams are the list-listings inputs handed over by the HTTP layer.
type ListingParams struct {
	Clauses  []filter.Clause
	OrderBy  []string
	OrderDir []string
	Page     int
	Limit    int
	View     dto.View
}

// ApplicationParams are the list-applications inputs handed over by the HTTP layer.
type ApplicationParams struct {
	Clauses  []filter.Clause
	OrderBy  []string
	OrderDir []string
	Page     int
	Limit    int
	Search   string
}

// SubscriptionInput creates or replaces a push subscription.
type SubscriptionInput struct {
	Endpoint        string   `json:"endpoint" binding:"required"`
	P256DH          string   `json:"p256dh" binding:"required"`
	Auth            string   `json:"auth" binding:"required"`
	Language        string   `json:"language"`
	JurisdictionIDs []string `json:"jurisdictionIds"`
}

// ListingOpened describes a listing that just became active.
type ListingOpened struct {
	ListingID      string
	Name           string
	JurisdictionID string
}
