package dto

import (
	"time"

	"housing-listings-backend/internal/model"
)

// Application is the transport shape of an application.
type Application struct {
	ID                   string                `json:"id"`
	ListingID            string                `json:"listingId"`
	UserID               *string               `json:"userId"`
	ConfirmationCode     string                `json:"confirmationCode"`
	Status               string                `json:"status"`
	SubmissionType       string                `json:"submissionType"`
	SubmissionDate       *time.Time            `json:"submissionDate"`
	Language             string                `json:"language"`
	HouseholdSize        int                   `json:"householdSize"`
	Income               string                `json:"income"`
	IncomePeriod         string                `json:"incomePeriod"`
	IncomeVouchers       bool                  `json:"incomeVouchers"`
	AcceptedTerms        bool                  `json:"acceptedTerms"`
	MarkedAsDuplicate    bool                  `json:"markedAsDuplicate"`
	Applicant            Applicant             `json:"applicant"`
	HouseholdMembers     []HouseholdMember     `json:"householdMember"`
	PreferenceSelections []PreferenceSelection `json:"preferences"`
	Demographics         *Demographics         `json:"demographics,omitempty"`
	CreatedAt            time.Time             `json:"createdAt"`
	UpdatedAt            time.Time             `json:"updatedAt"`
}

// Applicant is the primary contact of an application.
type Applicant struct {
	FirstName    string `json:"firstName"`
	MiddleName   string `json:"middleName"`
	LastName     string `json:"lastName"`
	BirthMonth   string `json:"birthMonth"`
	BirthDay     string `json:"birthDay"`
	BirthYear    string `json:"birthYear"`
	EmailAddress string `json:"emailAddress"`
	PhoneNumber  string `json:"phoneNumber"`
	Street       string `json:"street"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zipCode"`
}

// HouseholdMember is an additional person on an application.
type HouseholdMember struct {
	OrderID      int    `json:"orderId"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	BirthMonth   string `json:"birthMonth"`
	BirthDay     string `json:"birthDay"`
	BirthYear    string `json:"birthYear"`
	Relationship string `json:"relationship"`
}

// PreferenceSelection is one answered multiselect question.
type PreferenceSelection struct {
	MultiselectQuestionID string `json:"multiselectQuestionId"`
	Claimed               bool   `json:"claimed"`
	OptionKey             string `json:"optionKey"`
}

// Demographics holds optional survey answers.
type Demographics struct {
	Ethnicity         string `json:"ethnicity"`
	Race              string `json:"race"`
	Gender            string `json:"gender"`
	SexualOrientation string `json:"sexualOrientation"`
	HowDidYouHear     string `json:"howDidYouHear"`
}

// ApplicationFrom maps an application and whatever children were loaded.
func ApplicationFrom(a model.Application) Application {
	out := Application{
		ID:                   a.ID,
		ListingID:            a.ListingID,
		UserID:               a.UserID,
		ConfirmationCode:     a.ConfirmationCode,
		Status:               string(a.Status),
		SubmissionType:       string(a.SubmissionType),
		SubmissionDate:       a.SubmissionDate,
		Language:             a.Language,
		HouseholdSize:        a.HouseholdSize,
		Income:               a.Income,
		IncomePeriod:         a.IncomePeriod,
		IncomeVouchers:       a.IncomeVouchers,
		AcceptedTerms:        a.AcceptedTerms,
		MarkedAsDuplicate:    a.MarkedAsDuplicate,
		Applicant:            ApplicantFrom(a.Applicant),
		HouseholdMembers:     make([]HouseholdMember, len(a.HouseholdMembers)),
		PreferenceSelections: make([]PreferenceSelection, len(a.PreferenceSelections)),
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
	}
	for i, m := range a.HouseholdMembers {
		out.HouseholdMembers[i] = HouseholdMember{
			OrderID:      m.OrderID,
			FirstName:    m.FirstName,
			LastName:     m.LastName,
			BirthMonth:   m.BirthMonth,
			BirthDay:     m.BirthDay,
			BirthYear:    m.BirthYear,
			Relationship: m.Relationship,
		}
	}
	for i, p := range a.PreferenceSelections {
		out.PreferenceSelections[i] = PreferenceSelection{
			MultiselectQuestionID: p.MultiselectQuestionID,
			Claimed:               p.Claimed,
			OptionKey:             p.OptionKey,
		}
	}
	if a.Demographics != nil {
		out.Demographics = &Demographics{
			Ethnicity:         a.Demographics.Ethnicity,
			Race:              a.Demographics.Race,
			Gender:            a.Demographics.Gender,
			SexualOrientation: a.Demographics.SexualOrientation,
			HowDidYouHear:     a.Demographics.HowDidYouHear,
		}
	}
	return out
}

// ApplicationsFrom maps a slice of applications.
func ApplicationsFrom(as []model.Application) []Application {
	out := make([]Application, len(as))
	for i, a := range as {
		out[i] = ApplicationFrom(a)
	}
	return out
}

// ApplicantFrom maps an applicant.
func ApplicantFrom(a model.Applicant) Applicant {
	return Applicant{
		FirstName:    a.FirstName,
		MiddleName:   a.MiddleName,
		LastName:     a.LastName,
		BirthMonth:   a.BirthMonth,
		BirthDay:     a.BirthDay,
		BirthYear:    a.BirthYear,
		EmailAddress: a.EmailAddress,
		PhoneNumber:  a.PhoneNumber,
		Street:       a.Street,
		City:         a.City,
		State:        a.State,
		ZipCode:      a.ZipCode,
	}
}

// FlaggedSet is a group of applications to one listing that look like duplicates.
type FlaggedSet struct {
	Rule         string        `json:"rule"`
	Key          string        `json:"key"`
	Applications []Application `json:"applications"`
}
