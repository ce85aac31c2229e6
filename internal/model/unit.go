package model

// Unit is one rentable unit type or instance of a property.
type Unit struct {
	Base
	PropertyID       string  `gorm:"type:uuid;not null;index"`
	AmiChartID       *string `gorm:"type:uuid;index"`
	UnitNumber       string  `gorm:"size:32"`
	UnitType         string  `gorm:"size:32;not null"`
	NumBedrooms      int     `gorm:"not null;default:0;index"`
	NumBathrooms     float64 `gorm:"not null;default:0"`
	Floor            *int
	SqFeet           *int
	MinOccupancy     int     `gorm:"not null;default:1"`
	MaxOccupancy     int     `gorm:"not null;default:1"`
	MonthlyRent      float64 `gorm:"not null;default:0;index"`
	MonthlyIncomeMin float64 `gorm:"not null;default:0"`
	AnnualIncomeMax  float64 `gorm:"not null;default:0"`
	AmiPercentage    int     `gorm:"not null;default:0"`
	Status           string  `gorm:"size:32;not null;default:available"`
	PriorityType     string  `gorm:"size:64"`

	// Associations
	AmiChart *AmiChart `gorm:"constraint:OnDelete:SET NULL"`
}

// AmiChart is an Area Median Income reference table.
type AmiChart struct {
	Base
	Name           string         `gorm:"size:128;not null"`
	JurisdictionID string         `gorm:"type:uuid;not null;index"`
	Items          []AmiChartItem `gorm:"foreignKey:AmiChartID"`
}

// AmiChartItem is the income ceiling for one household size at one AMI percentage.
type AmiChartItem struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	AmiChartID    string `gorm:"type:uuid;not null;index"`
	PercentOfAmi  int    `gorm:"not null"`
	HouseholdSize int    `gorm:"not null"`
	Income        int    `gorm:"not null"`
}
