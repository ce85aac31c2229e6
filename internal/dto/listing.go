// Package dto maps persisted entities onto the transport shapes the API exposes.
// Only fields declared here ever leave the process.
package dto

import (
	"time"

	"housing-listings-backend/internal/model"
)

// View selects how much of a listing graph is loaded and returned.
type View string

const (
	ViewBase View = "base"
	ViewFull View = "full"
)

// ParseView validates a view name; empty means base.
func ParseView(s string) (View, bool) {
	switch View(s) {
	case "", ViewBase:
		return ViewBase, true
	case ViewFull:
		return ViewFull, true
	}
	return "", false
}

// Listing is the transport shape of a listing.
type Listing struct {
	ID                  string              `json:"id"`
	ExternalID          *string             `json:"externalId,omitempty"`
	Name                string              `json:"name"`
	Status              string              `json:"status"`
	ReviewOrderType     string              `json:"reviewOrderType"`
	ApplicationOpenDate *time.Time          `json:"applicationOpenDate"`
	ApplicationDueDate  *time.Time          `json:"applicationDueDate"`
	IsWaitlistOpen      bool                `json:"isWaitlistOpen"`
	WaitlistMaxSize     *int                `json:"waitlistMaxSize"`
	DisplayWaitlistSize bool                `json:"displayWaitlistSize"`
	ApplicationFee      string              `json:"applicationFee"`
	DepositMin          string              `json:"depositMin"`
	DepositMax          string              `json:"depositMax"`
	CostsNotIncluded    string              `json:"costsNotIncluded"`
	Jurisdiction        JurisdictionRef     `json:"jurisdiction"`
	Property            Property            `json:"property"`
	Events              []ListingEvent      `json:"events,omitempty"`
	ApplicationMethods  []ApplicationMethod `json:"applicationMethods,omitempty"`
	Preferences         []ListingQuestion   `json:"listingMultiselectQuestions,omitempty"`
	LeasingAgents       []UserRef           `json:"leasingAgents,omitempty"`
	ApplicationCount    *int64              `json:"applicationCount,omitempty"`
	UnitsSummary        UnitsSummary        `json:"unitsSummary"`
	CreatedAt           time.Time           `json:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt"`
}

// JurisdictionRef is the short form of a jurisdiction embedded in other shapes.
type JurisdictionRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserRef is the short form of a user embedded in other shapes.
type UserRef struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Property is the transport shape of a listing's building.
type Property struct {
	ID           string   `json:"id"`
	Neighborhood string   `json:"neighborhood"`
	Street       string   `json:"street"`
	Street2      string   `json:"street2"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	ZipCode      string   `json:"zipCode"`
	County       string   `json:"county"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	YearBuilt    *int     `json:"yearBuilt"`
	Amenities    string   `json:"amenities"`
	PetPolicy    string   `json:"petPolicy"`
	Units        []Unit   `json:"units"`
}

// Unit is the transport shape of a unit.
type Unit struct {
	ID               string    `json:"id"`
	UnitNumber       string    `json:"number"`
	UnitType         string    `json:"unitType"`
	NumBedrooms      int       `json:"numBedrooms"`
	NumBathrooms     float64   `json:"numBathrooms"`
	Floor            *int      `json:"floor"`
	SqFeet           *int      `json:"sqFeet"`
	MinOccupancy     int       `json:"minOccupancy"`
	MaxOccupancy     int       `json:"maxOccupancy"`
	MonthlyRent      float64   `json:"monthlyRent"`
	MonthlyIncomeMin float64   `json:"monthlyIncomeMin"`
	AnnualIncomeMax  float64   `json:"annualIncomeMax"`
	AmiPercentage    int       `json:"amiPercentage"`
	Status           string    `json:"status"`
	PriorityType     string    `json:"priorityType"`
	AmiChart         *AmiChart `json:"amiChart,omitempty"`
}

// AmiChart is the transport shape of an AMI chart.
type AmiChart struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Items []AmiChartItem `json:"items"`
}

// AmiChartItem is one row of an AMI chart.
type AmiChartItem struct {
	PercentOfAmi  int `json:"percentOfAmi"`
	HouseholdSize int `json:"householdSize"`
	Income        int `json:"income"`
}

// UnitsSummary aggregates the units of a listing for list views.
type UnitsSummary struct {
	TotalUnits       int     `json:"totalUnits"`
	MinMonthlyRent   float64 `json:"minMonthlyRent"`
	MaxMonthlyRent   float64 `json:"maxMonthlyRent"`
	MinBedrooms      int     `json:"minBedrooms"`
	MaxBedrooms      int     `json:"maxBedrooms"`
	MaxAmiPercentage int     `json:"maxAmiPercentage"`
}

// ListingEvent is the transport shape of a listing event.
type ListingEvent struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
	URL       string     `json:"url"`
	Note      string     `json:"note"`
	Label     string     `json:"label"`
}

// ApplicationMethod is the transport shape of an application method.
type ApplicationMethod struct {
	ID                            string `json:"id"`
	Type                          string `json:"type"`
	Label                         string `json:"label"`
	ExternalReference             string `json:"externalReference"`
	AcceptsPostmarkedApplications bool   `json:"acceptsPostmarkedApplications"`
	PhoneNumber                   string `json:"phoneNumber"`
}

// ListingQuestion is a multiselect question at its position on a listing.
type ListingQuestion struct {
	Ordinal             int                 `json:"ordinal"`
	MultiselectQuestion MultiselectQuestion `json:"multiselectQuestion"`
}

// ListingFrom maps a listing. Collections that were not loaded map to empty.
func ListingFrom(l model.Listing) Listing {
	out := Listing{
		ID:                  l.ID,
		ExternalID:          l.ExternalID,
		Name:                l.Name,
		Status:              string(l.Status),
		ReviewOrderType:     string(l.ReviewOrderType),
		ApplicationOpenDate: l.ApplicationOpenDate,
		ApplicationDueDate:  l.ApplicationDueDate,
		IsWaitlistOpen:      l.IsWaitlistOpen,
		WaitlistMaxSize:     l.WaitlistMaxSize,
		DisplayWaitlistSize: l.DisplayWaitlistSize,
		ApplicationFee:      l.ApplicationFee,
		DepositMin:          l.DepositMin,
		DepositMax:          l.DepositMax,
		CostsNotIncluded:    l.CostsNotIncluded,
		Jurisdiction:        JurisdictionRef{ID: l.Jurisdiction.ID, Name: l.Jurisdiction.Name},
		Property:            PropertyFrom(l.Property),
		CreatedAt:           l.CreatedAt,
		UpdatedAt:           l.UpdatedAt,
	}
	if out.Jurisdiction.ID == "" {
		out.Jurisdiction.ID = l.JurisdictionID
	}
	out.UnitsSummary = summarize(l.Property.Units)

	for _, e := range l.Events {
		out.Events = append(out.Events, ListingEvent{
			ID:        e.ID,
			Type:      string(e.Type),
			StartTime: e.StartTime,
			EndTime:   e.EndTime,
			URL:       e.URL,
			Note:      e.Note,
			Label:     e.Label,
		})
	}
	for _, m := range l.ApplicationMethods {
		out.ApplicationMethods = append(out.ApplicationMethods, ApplicationMethod{
			ID:                            m.ID,
			Type:                          m.Type,
			Label:                         m.Label,
			ExternalReference:             m.ExternalReference,
			AcceptsPostmarkedApplications: m.AcceptsPostmarkedApplications,
			PhoneNumber:                   m.PhoneNumber,
		})
	}
	for _, q := range l.MultiselectQuestions {
		out.Preferences = append(out.Preferences, ListingQuestion{
			Ordinal:             q.Ordinal,
			MultiselectQuestion: MultiselectQuestionFrom(q.MultiselectQuestion),
		})
	}
	for _, u := range l.LeasingAgents {
		out.LeasingAgents = append(out.LeasingAgents, UserRef{
			ID:        u.ID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Email:     u.Email,
		})
	}
	return out
}

// ListingsFrom maps a slice of listings.
func ListingsFrom(ls []model.Listing) []Listing {
	out := make([]Listing, len(ls))
	for i, l := range ls {
		out[i] = ListingFrom(l)
	}
	return out
}

// PropertyFrom maps a property and its units.
func PropertyFrom(p model.Property) Property {
	out := Property{
		ID:           p.ID,
		Neighborhood: p.Neighborhood,
		Street:       p.Street,
		Street2:      p.Street2,
		City:         p.City,
		State:        p.State,
		ZipCode:      p.ZipCode,
		County:       p.County,
		Latitude:     p.Latitude,
		Longitude:    p.Longitude,
		YearBuilt:    p.YearBuilt,
		Amenities:    p.Amenities,
		PetPolicy:    p.PetPolicy,
		Units:        make([]Unit, len(p.Units)),
	}
	for i, u := range p.Units {
		out.Units[i] = UnitFrom(u)
	}
	return out
}

// UnitFrom maps a unit and, when loaded, its AMI chart.
func UnitFrom(u model.Unit) Unit {
	out := Unit{
		ID:               u.ID,
		UnitNumber:       u.UnitNumber,
		UnitType:         u.UnitType,
		NumBedrooms:      u.NumBedrooms,
		NumBathrooms:     u.NumBathrooms,
		Floor:            u.Floor,
		SqFeet:           u.SqFeet,
		MinOccupancy:     u.MinOccupancy,
		MaxOccupancy:     u.MaxOccupancy,
		MonthlyRent:      u.MonthlyRent,
		MonthlyIncomeMin: u.MonthlyIncomeMin,
		AnnualIncomeMax:  u.AnnualIncomeMax,
		AmiPercentage:    u.AmiPercentage,
		Status:           u.Status,
		PriorityType:     u.PriorityType,
	}
	if u.AmiChart != nil {
		chart := AmiChart{ID: u.AmiChart.ID, Name: u.AmiChart.Name, Items: make([]AmiChartItem, len(u.AmiChart.Items))}
		for i, it := range u.AmiChart.Items {
			chart.Items[i] = AmiChartItem{PercentOfAmi: it.PercentOfAmi, HouseholdSize: it.HouseholdSize, Income: it.Income}
		}
		out.AmiChart = &chart
	}
	return out
}

func summarize(units []model.Unit) UnitsSummary {
	var s UnitsSummary
	for i, u := range units {
		if i == 0 {
			s.MinMonthlyRent, s.MaxMonthlyRent = u.MonthlyRent, u.MonthlyRent
			s.MinBedrooms, s.MaxBedrooms = u.NumBedrooms, u.NumBedrooms
		}
		s.MinMonthlyRent = min(s.MinMonthlyRent, u.MonthlyRent)
		s.MaxMonthlyRent = max(s.MaxMonthlyRent, u.MonthlyRent)
		s.MinBedrooms = min(s.MinBedrooms, u.NumBedrooms)
		s.MaxBedrooms = max(s.MaxBedrooms, u.NumBedrooms)
		s.MaxAmiPercentage = max(s.MaxAmiPercentage, u.AmiPercentage)
	}
	s.TotalUnits = len(units)
	return s
}

// AttachApplicationCounts sets the per-listing application count, keyed by listing ID.
// Listings absent from counts get zero.
func AttachApplicationCounts(items []Listing, counts map[string]int64) {
	for i := range items {
		n := counts[items[i].ID]
		items[i].ApplicationCount = &n
	}
}
