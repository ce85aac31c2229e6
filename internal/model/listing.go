package model

import "time"

// ListingStatus is the publication state of a listing.
type ListingStatus string

const (
	ListingActive  ListingStatus = "active"
	ListingPending ListingStatus = "pending"
	ListingClosed  ListingStatus = "closed"
)

// Valid reports whether s is one of the known statuses.
func (s ListingStatus) Valid() bool {
	switch s {
	case ListingActive, ListingPending, ListingClosed:
		return true
	}
	return false
}

// ReviewOrder is the policy used to rank applications for a listing.
type ReviewOrder string

const (
	ReviewOrderLottery        ReviewOrder = "lottery"
	ReviewOrderFirstComeFirst ReviewOrder = "firstComeFirstServe"
	ReviewOrderWaitlist       ReviewOrder = "waitlist"
)

// Listing is a rental property's public posting.
type Listing struct {
	Base
	ExternalID          *string       `gorm:"uniqueIndex;size:128"`
	Name                string        `gorm:"size:256;not null;index"`
	Status              ListingStatus `gorm:"size:32;not null;index"`
	ReviewOrderType     ReviewOrder   `gorm:"size:32;not null;default:lottery"`
	ApplicationOpenDate *time.Time
	ApplicationDueDate  *time.Time `gorm:"index"`
	IsWaitlistOpen      bool       `gorm:"not null;default:false"`
	WaitlistMaxSize     *int
	DisplayWaitlistSize bool   `gorm:"not null;default:false"`
	ApplicationFee      string `gorm:"size:64"`
	DepositMin          string `gorm:"size:64"`
	DepositMax          string `gorm:"size:64"`
	CostsNotIncluded    string `gorm:"type:text"`
	JurisdictionID      string `gorm:"type:uuid;not null;index"`

	// Associations
	Jurisdiction         Jurisdiction                 `gorm:"constraint:OnDelete:RESTRICT"`
	Property             Property                     `gorm:"foreignKey:ListingID"`
	Events               []ListingEvent               `gorm:"foreignKey:ListingID"`
	ApplicationMethods   []ApplicationMethod          `gorm:"foreignKey:ListingID"`
	MultiselectQuestions []ListingMultiselectQuestion `gorm:"foreignKey:ListingID"`
	LeasingAgents        []User                       `gorm:"many2many:listing_leasing_agents;"`
	Applications         []Application                `gorm:"foreignKey:ListingID"`
}

// ListingEventType classifies a listing event.
type ListingEventType string

const (
	EventOpenHouse      ListingEventType = "openHouse"
	EventPublicLottery  ListingEventType = "publicLottery"
	EventLotteryResults ListingEventType = "lotteryResults"
)

// ListingEvent is a dated event attached to a listing (open house, lottery).
type ListingEvent struct {
	Base
	ListingID string           `gorm:"type:uuid;not null;index"`
	Type      ListingEventType `gorm:"size:32;not null"`
	StartTime *time.Time
	EndTime   *time.Time
	URL       string `gorm:"size:256"`
	Note      string `gorm:"type:text"`
	Label     string `gorm:"size:128"`
}

// ApplicationMethod describes one way an applicant may apply to a listing.
type ApplicationMethod struct {
	Base
	ListingID                     string `gorm:"type:uuid;not null;index"`
	Type                          string `gorm:"size:32;not null"`
	Label                         string `gorm:"size:128"`
	ExternalReference             string `gorm:"size:256"`
	AcceptsPostmarkedApplications bool   `gorm:"not null;default:false"`
	PhoneNumber                   string `gorm:"size:32"`
}
