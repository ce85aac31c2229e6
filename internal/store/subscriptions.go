package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"housing-listings-backend/internal/dto"
	"housing-listings-backend/internal/filter"
	"housing-listings-backend/internal/model"
)

// PutSubscription creates or replaces a subscription and its jurisdictions.
func (s *gormStore) PutSubscription(ctx context.Context, in SubscriptionInput) error {
	for _, id := range in.JurisdictionIDs {
		if !validID(id) {
			return &filter.ValidationError{Reason: fmt.Sprintf("%q is not a jurisdiction id", id)}
		}
	}
	subscription := model.PushSubscription{
		Endpoint: in.Endpoint,
		P256DH:   in.P256DH,
		Auth:     in.Auth,
		Language: in.Language,
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "language"}),
		}).Create(&subscription).Error; err != nil {
			return fmt.Errorf("failed to upsert subscription: %w", err)
		}

		var jurisdictions []*model.Jurisdiction
		if len(in.JurisdictionIDs) > 0 {
			if err := tx.Find(&jurisdictions, "id IN ?", in.JurisdictionIDs).Error; err != nil {
				return fmt.Errorf("failed to look up jurisdictions: %w", err)
			}
			if len(jurisdictions) != len(uniqueIDs(in.JurisdictionIDs)) {
				return &filter.ValidationError{Reason: "unknown jurisdiction"}
			}
		}

		if err := tx.Model(&subscription).Association("Jurisdictions").Replace(&jurisdictions); err != nil {
			return fmt.Errorf("failed to set subscription jurisdictions: %w", err)
		}
		return nil
	})
}

// DeleteSubscription removes a subscription and its jurisdiction links.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subscription := model.PushSubscription{Endpoint: endpoint}
		if err := tx.Model(&subscription).Association("Jurisdictions").Clear(); err != nil {
			return fmt.Errorf("failed to clear subscription jurisdictions: %w", err)
		}
		if err := tx.Delete(&subscription).Error; err != nil {
			return fmt.Errorf("failed to delete subscription: %w", err)
		}
		return nil
	})
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (dto.Subscription, error) {
	var subscription model.PushSubscription
	if err := s.db.WithContext(ctx).
		Preload("Jurisdictions", func(db *gorm.DB) *gorm.DB { return db.Order("jurisdictions.name ASC") }).
		First(&subscription, "endpoint = ?", endpoint).Error; err != nil {
		return dto.Subscription{}, notFound(err)
	}
	return dto.SubscriptionFrom(subscription), nil
}

// SubscriptionsForJurisdiction returns every subscription following jurisdictionID.
func (s *gormStore) SubscriptionsForJurisdiction(ctx context.Context, jurisdictionID string) ([]model.PushSubscription, error) {
	var subscriptions []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_jurisdictions sj ON sj.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("sj.jurisdiction_id = ?", jurisdictionID).
		Find(&subscriptions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for jurisdiction %s: %w", jurisdictionID, err)
	}
	return subscriptions, nil
}
