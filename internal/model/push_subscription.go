package model

import "time"

// PushSubscription holds a browser push subscription interested in new listings.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	Language  string    `gorm:"size:16"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Jurisdictions []*Jurisdiction `gorm:"many2many:subscription_jurisdictions;"`
}

// All lists every migrated model in dependency order.
func All() []any {
	return []any{
		&Jurisdiction{},
		&User{},
		&AmiChart{},
		&AmiChartItem{},
		&MultiselectQuestion{},
		&Listing{},
		&Property{},
		&Unit{},
		&ListingEvent{},
		&ApplicationMethod{},
		&ListingMultiselectQuestion{},
		&Application{},
		&Applicant{},
		&HouseholdMember{},
		&ApplicationPreference{},
		&Demographics{},
		&PushSubscription{},
	}
}
