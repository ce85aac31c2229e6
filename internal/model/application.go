package model

import "time"

// ApplicationStatus tracks an application through review.
type ApplicationStatus string

const (
	ApplicationDraft     ApplicationStatus = "draft"
	ApplicationSubmitted ApplicationStatus = "submitted"
	ApplicationRemoved   ApplicationStatus = "removed"
)

// SubmissionType records how an application reached the system.
type SubmissionType string

const (
	SubmissionElectronic SubmissionType = "electronical"
	SubmissionPaper      SubmissionType = "paper"
)

// Application is a renter's submission to exactly one listing.
type Application struct {
	Base
	ListingID         string            `gorm:"type:uuid;not null;index"`
	UserID            *string           `gorm:"type:uuid;index"`
	ConfirmationCode  string            `gorm:"size:16;not null;uniqueIndex"`
	Status            ApplicationStatus `gorm:"size:32;not null"`
	SubmissionType    SubmissionType    `gorm:"size:32;not null"`
	SubmissionDate    *time.Time        `gorm:"index"`
	Language          string            `gorm:"size:16"`
	HouseholdSize     int               `gorm:"not null;default:1"`
	Income            string            `gorm:"size:64"`
	IncomePeriod      string            `gorm:"size:16"`
	IncomeVouchers    bool              `gorm:"not null;default:false"`
	AcceptedTerms     bool              `gorm:"not null;default:false"`
	MarkedAsDuplicate bool              `gorm:"not null;default:false"`

	// Associations
	Listing              Listing                 `gorm:"constraint:OnDelete:CASCADE"`
	Applicant            Applicant               `gorm:"foreignKey:ApplicationID"`
	HouseholdMembers     []HouseholdMember       `gorm:"foreignKey:ApplicationID"`
	PreferenceSelections []ApplicationPreference `gorm:"foreignKey:ApplicationID"`
	Demographics         *Demographics           `gorm:"foreignKey:ApplicationID"`
}

// Applicant is the primary contact of an application.
type Applicant struct {
	Base
	ApplicationID string `gorm:"type:uuid;not null;uniqueIndex"`
	FirstName     string `gorm:"size:128"`
	MiddleName    string `gorm:"size:128"`
	LastName      string `gorm:"size:128;index"`
	BirthMonth    string `gorm:"size:2"`
	BirthDay      string `gorm:"size:2"`
	BirthYear     string `gorm:"size:4"`
	EmailAddress  string `gorm:"size:256;index"`
	PhoneNumber   string `gorm:"size:32"`
	Street        string `gorm:"size:256"`
	City          string `gorm:"size:128"`
	State         string `gorm:"size:64"`
	ZipCode       string `gorm:"size:16"`
}

// HouseholdMember is an additional person on an application.
type HouseholdMember struct {
	Base
	ApplicationID string `gorm:"type:uuid;not null;index"`
	OrderID       int    `gorm:"not null;default:0"`
	FirstName     string `gorm:"size:128"`
	LastName      string `gorm:"size:128"`
	BirthMonth    string `gorm:"size:2"`
	BirthDay      string `gorm:"size:2"`
	BirthYear     string `gorm:"size:4"`
	Relationship  string `gorm:"size:64"`
}

// ApplicationPreference is the applicant's answer to one multiselect question.
type ApplicationPreference struct {
	ID                    int64  `gorm:"primaryKey;autoIncrement"`
	ApplicationID         string `gorm:"type:uuid;not null;index"`
	MultiselectQuestionID string `gorm:"type:uuid;not null"`
	Claimed               bool   `gorm:"not null;default:false"`
	OptionKey             string `gorm:"size:128"`
}

// Demographics holds optional self-reported survey answers.
type Demographics struct {
	ID                int64  `gorm:"primaryKey;autoIncrement"`
	ApplicationID     string `gorm:"type:uuid;not null;uniqueIndex"`
	Ethnicity         string `gorm:"size:64"`
	Race              string `gorm:"size:256"`
	Gender            string `gorm:"size:64"`
	SexualOrientation string `gorm:"size:64"`
	HowDidYouHear     string `gorm:"size:256"`
}
