package model

// Property is the building a listing advertises. Every listing owns exactly one.
type Property struct {
	Base
	ListingID    string `gorm:"type:uuid;not null;uniqueIndex"`
	Neighborhood string `gorm:"size:128;index"`
	Street       string `gorm:"size:256"`
	Street2      string `gorm:"size:256"`
	City         string `gorm:"size:128;index"`
	State        string `gorm:"size:64"`
	ZipCode      string `gorm:"size:16;index"`
	County       string `gorm:"size:128"`
	Latitude     *float64
	Longitude    *float64
	YearBuilt    *int
	Amenities    string `gorm:"type:text"`
	PetPolicy    string `gorm:"type:text"`

	// Associations
	Units []Unit `gorm:"foreignKey:PropertyID"`
}
