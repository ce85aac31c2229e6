package dto

// listingFields are the top-level JSON keys a listing may carry.
var listingFields = []string{
	"id", "externalId", "name", "status", "reviewOrderType",
	"applicationOpenDate", "applicationDueDate", "isWaitlistOpen", "waitlistMaxSize",
	"displayWaitlistSize", "applicationFee", "depositMin", "depositMax", "costsNotIncluded",
	"jurisdiction", "property", "events", "applicationMethods",
	"listingMultiselectQuestions", "leasingAgents", "applicationCount", "unitsSummary",
	"createdAt", "updatedAt",
}

// ListingFields returns the allow-list of top-level listing keys.
func ListingFields() []string {
	out := make([]string, len(listingFields))
	copy(out, listingFields)
	return out
}
