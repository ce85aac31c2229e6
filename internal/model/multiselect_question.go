package model

// ApplicationSection names the application step a multiselect question belongs to.
type ApplicationSection string

const (
	SectionPreferences ApplicationSection = "preferences"
	SectionPrograms    ApplicationSection = "programs"
)

// MultiselectQuestion is a jurisdiction-defined preference or program question.
type MultiselectQuestion struct {
	Base
	JurisdictionID     string             `gorm:"type:uuid;not null;index"`
	Text               string             `gorm:"size:512;not null"`
	Description        string             `gorm:"type:text"`
	SubText            string             `gorm:"type:text"`
	OptOutText         string             `gorm:"size:256"`
	HideFromListing    bool               `gorm:"not null;default:false"`
	ApplicationSection ApplicationSection `gorm:"size:32;not null;index"`
}

// ListingMultiselectQuestion links a question to a listing at a display position.
type ListingMultiselectQuestion struct {
	ListingID             string `gorm:"type:uuid;primaryKey"`
	MultiselectQuestionID string `gorm:"type:uuid;primaryKey"`
	Ordinal               int    `gorm:"not null;default:0"`

	// Associations
	MultiselectQuestion MultiselectQuestion `gorm:"constraint:OnDelete:CASCADE"`
}
