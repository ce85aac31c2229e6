package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"gorm.io/gorm"

	"housing-listings-backend/internal/dto"
	"housing-listings-backend/internal/filter"
	"housing-listings-backend/internal/model"
)

// UpsertExternalListings creates or replaces imported listings keyed by external ID.
// Upstream leasing agents, preference questions and AMI charts refer to foreign rows
// and are dropped. Items that fail validation are skipped.
func (s *gormStore) UpsertExternalListings(ctx context.Context, jurisdictionID string, items []dto.Listing) ([]ListingOpened, error) {
	if !validID(jurisdictionID) {
		return nil, &filter.ValidationError{Reason: "feed jurisdiction id is required"}
	}

	var opened []ListingOpened
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var jurisdiction model.Jurisdiction
		if err := tx.Select("id").First(&jurisdiction, "id = ?", jurisdictionID).Error; err != nil {
			return fmt.Errorf("failed to look up feed jurisdiction %s: %w", jurisdictionID, notFound(err))
		}

		for _, item := range items {
			in, ok := externalListing(jurisdictionID, item)
			if !ok {
				continue
			}

			var existing model.Listing
			err := tx.First(&existing, "external_id = ?", *in.ExternalID).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				listing := listingModel(in)
				if err := tx.Omit("LeasingAgents").Create(&listing).Error; err != nil {
					return fmt.Errorf("failed to create imported listing %s: %w", *in.ExternalID, err)
				}
				if listing.Status == model.ListingActive {
					opened = append(opened, ListingOpened{ListingID: listing.ID, Name: listing.Name, JurisdictionID: listing.JurisdictionID})
				}
			case err != nil:
				return fmt.Errorf("failed to look up imported listing %s: %w", *in.ExternalID, err)
			default:
				became, err := replaceListing(tx, existing, in)
				if err != nil {
					return err
				}
				if became {
					opened = append(opened, ListingOpened{ListingID: existing.ID, Name: in.Name, JurisdictionID: jurisdictionID})
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return opened, nil
}

func externalListing(jurisdictionID string, item dto.Listing) (dto.Listing, bool) {
	externalID := item.ID
	if item.ExternalID != nil && *item.ExternalID != "" {
		externalID = *item.ExternalID
	}
	if externalID == "" {
		return dto.Listing{}, false
	}
	item.ExternalID = &externalID
	item.Jurisdiction = dto.JurisdictionRef{ID: jurisdictionID}
	item.LeasingAgents = nil
	item.Preferences = nil
	item.Property.Units = slices.Clone(item.Property.Units)
	for i := range item.Property.Units {
		item.Property.Units[i].AmiChart = nil
	}
	if validateListing(item) != nil {
		return dto.Listing{}, false
	}
	return item, true
}
