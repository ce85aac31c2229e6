package model

// User is an account. Roles are flags, not a type hierarchy.
type User struct {
	Base
	Email                 string `gorm:"uniqueIndex;size:256;not null"`
	FirstName             string `gorm:"size:128"`
	LastName              string `gorm:"size:128"`
	PhoneNumber           string `gorm:"size:32"`
	PasswordHash          string `gorm:"size:256"`
	IsAdmin               bool   `gorm:"not null;default:false"`
	IsPartner             bool   `gorm:"not null;default:false"`
	IsJurisdictionalAdmin bool   `gorm:"not null;default:false"`

	// Associations
	Jurisdictions []Jurisdiction `gorm:"many2many:user_jurisdictions;"`
}
