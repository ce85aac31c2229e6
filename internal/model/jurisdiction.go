package model

// Jurisdiction scopes listings, users and multiselect questions to a region.
type Jurisdiction struct {
	Base
	Name                        string `gorm:"uniqueIndex;size:128;not null"`
	PublicURL                   string `gorm:"size:256"`
	PartnersPortalURL           string `gorm:"size:256"`
	EmailFromAddress            string `gorm:"size:256"`
	EnablePartnerSettings       bool   `gorm:"not null;default:false"`
	EnableAccessibilityFeatures bool   `gorm:"not null;default:false"`
	EnableUtilitiesIncluded     bool   `gorm:"not null;default:false"`
	EnableGeocodingPreferences  bool   `gorm:"not null;default:false"`
}
