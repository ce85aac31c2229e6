package filter

// ListingFields are the filterable listing fields. Columns refer to the joins of
// the listing inner selector (listings, properties, units, listing_leasing_agents).
var ListingFields = MustFieldMap(map[string]Column{
	"id":                 {Expr: "listings.id", Kind: KindID},
	"name":               {Expr: "listings.name", Kind: KindText},
	"status":             {Expr: "listings.status", Kind: KindText},
	"jurisdiction":       {Expr: "listings.jurisdiction_id", Kind: KindID},
	"reviewOrderType":    {Expr: "listings.review_order_type", Kind: KindText},
	"isWaitlistOpen":     {Expr: "listings.is_waitlist_open", Kind: KindBool},
	"applicationDueDate": {Expr: "listings.application_due_date", Kind: KindDate, Ranged: true},
	"neighborhood":       {Expr: "properties.neighborhood", Kind: KindText},
	"city":               {Expr: "properties.city", Kind: KindText},
	"zipcode":            {Expr: "properties.zip_code", Kind: KindText},
	"bedrooms":           {Expr: "units.num_bedrooms", Kind: KindNumber, Ranged: true},
	"monthlyRent":        {Expr: "units.monthly_rent", Kind: KindNumber, Ranged: true},
	"amiPercentage":      {Expr: "units.ami_percentage", Kind: KindNumber, Ranged: true},
	"leasingAgent":       {Expr: "listing_leasing_agents.user_id", Kind: KindID},
})

// ApplicationFields are the filterable application fields (applications, applicants).
var ApplicationFields = MustFieldMap(map[string]Column{
	"listingId":         {Expr: "applications.listing_id", Kind: KindID},
	"userId":            {Expr: "applications.user_id", Kind: KindID},
	"status":            {Expr: "applications.status", Kind: KindText},
	"submissionType":    {Expr: "applications.submission_type", Kind: KindText},
	"markedAsDuplicate": {Expr: "applications.marked_as_duplicate", Kind: KindBool},
	"submissionDate":    {Expr: "applications.submission_date", Kind: KindDate, Ranged: true},
	"householdSize":     {Expr: "applications.household_size", Kind: KindNumber, Ranged: true},
	"applicantEmail":    {Expr: "applicants.email_address", Kind: KindText},
	"applicantLastName": {Expr: "applicants.last_name", Kind: KindText},
})

// MultiselectQuestionFields are the filterable multiselect question fields.
var MultiselectQuestionFields = MustFieldMap(map[string]Column{
	"jurisdiction":       {Expr: "multiselect_questions.jurisdiction_id", Kind: KindID},
	"applicationSection": {Expr: "multiselect_questions.application_section", Kind: KindText},
})
