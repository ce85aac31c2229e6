package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"housing-listings-backend/internal/auth"
	"housing-listings-backend/internal/dto"
	"housing-listings-backend/internal/filter"
	"housing-listings-backend/internal/model"
	"housing-listings-backend/internal/query"
)

var applicationBase = query.Base{
	Table:    "applications",
	IDColumn: "applications.id",
	Joins: []string{
		"LEFT JOIN applicants ON applicants.application_id = applications.id",
		"LEFT JOIN listings ON listings.id = applications.listing_id",
	},
}

var applicationSorts = query.SortMap{
	"submissionDate": "applications.submission_date",
	"createdAt":      "applications.created_at",
	"status":         "applications.status",
	"householdSize":  "applications.household_size",
}

// Flagged-set rules.
const (
	RuleEmail      = "email"
	RuleNameAndDOB = "nameAndDOB"
)

func loadApplications(outer *gorm.DB) ([]model.Application, error) {
	var apps []model.Application
	err := outer.
		Preload("Applicant").
		Preload("HouseholdMembers", func(db *gorm.DB) *gorm.DB {
			return db.Order("household_members.order_id ASC, household_members.id ASC")
		}).
		Preload("PreferenceSelections", func(db *gorm.DB) *gorm.DB {
			return db.Order("application_preferences.id ASC")
		}).
		Preload("Demographics").
		Find(&apps).Error
	if err != nil {
		return nil, err
	}
	return apps, nil
}

// scopeApplications restricts spec to what caller may see.
func scopeApplications(spec query.Spec, caller auth.Caller) (query.Spec, error) {
	switch {
	case caller.IsAdmin:
		return spec, nil
	case caller.Staff():
		if len(caller.JurisdictionIDs) == 0 {
			return spec, ErrForbidden
		}
		return spec.WithFilter(filter.Predicate{
			SQL:    "listings.jurisdiction_id IN @caller_jurisdictions",
			Params: map[string]any{"caller_jurisdictions": caller.JurisdictionIDs},
		}), nil
	case !caller.Anonymous():
		return spec.WithFilter(filter.Predicate{
			SQL:    "applications.user_id = @caller_user",
			Params: map[string]any{"caller_user": caller.UserID},
		}), nil
	}
	return spec, ErrForbidden
}

func searchPredicate(search string) filter.Predicate {
	term := "%" + strings.ToLower(search) + "%"
	return filter.Predicate{
		SQL: "(LOWER(applicants.first_name) LIKE @search OR LOWER(applicants.last_name) LIKE @search" +
			" OR LOWER(applicants.email_address) LIKE @search OR LOWER(applications.confirmation_code) LIKE @search)",
		Params: map[string]any{"search": term},
	}
}

// ListApplications runs the list pipeline over applications visible to caller.
func (s *gormStore) ListApplications(ctx context.Context, caller auth.Caller, p ApplicationParams) (query.Paginated[dto.Application], error) {
	spec, err := scopeApplications(query.New(applicationBase), caller)
	if err != nil {
		return query.Paginated[dto.Application]{}, err
	}
	preds, err := filter.Translate(filter.ApplicationFields, p.Clauses)
	if err != nil {
		return query.Paginated[dto.Application]{}, err
	}
	orders, err := applicationSorts.Resolve(p.OrderBy, p.OrderDir)
	if err != nil {
		return query.Paginated[dto.Application]{}, err
	}
	spec = spec.WithFilter(preds...).WithOrder(orders...).WithPage(p.Page, p.Limit)
	if p.Search != "" {
		spec = spec.WithFilter(searchPredicate(p.Search))
	}

	page, err := query.Execute(ctx, s.db, spec, loadApplications)
	if err != nil {
		return query.Paginated[dto.Application]{}, err
	}
	return query.Paginated[dto.Application]{Items: dto.ApplicationsFrom(page.Items), Meta: page.Meta}, nil
}

// ListingApplications returns every non-removed application of one listing.
func (s *gormStore) ListingApplications(ctx context.Context, caller auth.Caller, listingID string) ([]dto.Application, error) {
	apps, err := s.listingApplications(ctx, caller, listingID)
	if err != nil {
		return nil, err
	}
	return dto.ApplicationsFrom(apps), nil
}

func (s *gormStore) listingApplications(ctx context.Context, caller auth.Caller, listingID string) ([]model.Application, error) {
	if !caller.Staff() {
		return nil, ErrForbidden
	}
	if !validID(listingID) {
		return nil, ErrNotFound
	}
	var listing model.Listing
	if err := s.db.WithContext(ctx).Select("id", "jurisdiction_id").First(&listing, "id = ?", listingID).Error; err != nil {
		return nil, notFound(err)
	}
	if !caller.InJurisdiction(listing.JurisdictionID) {
		return nil, ErrForbidden
	}
	apps, err := loadApplications(s.db.WithContext(ctx).
		Where("listing_id = ? AND status <> ?", listingID, model.ApplicationRemoved).
		Order("submission_date ASC, created_at ASC, id ASC"))
	if err != nil {
		return nil, fmt.Errorf("failed to load applications of listing %s: %w", listingID, err)
	}
	return apps, nil
}

// GetApplication loads one application visible to caller.
func (s *gormStore) GetApplication(ctx context.Context, caller auth.Caller, id string) (dto.Application, error) {
	if !validID(id) {
		return dto.Application{}, ErrNotFound
	}
	apps, err := loadApplications(s.db.WithContext(ctx).Preload("Listing").Where("applications.id = ?", id))
	if err != nil {
		return dto.Application{}, fmt.Errorf("failed to load application %s: %w", id, err)
	}
	if len(apps) == 0 || !visible(caller, apps[0]) {
		return dto.Application{}, ErrNotFound
	}
	return dto.ApplicationFrom(apps[0]), nil
}

func visible(caller auth.Caller, a model.Application) bool {
	if caller.Staff() {
		return caller.InJurisdiction(a.Listing.JurisdictionID)
	}
	return !caller.Anonymous() && a.UserID != nil && *a.UserID == caller.UserID
}

// CreateApplication stores a submission to an active listing.
func (s *gormStore) CreateApplication(ctx context.Context, caller auth.Caller, in dto.Application) (dto.Application, error) {
	if !validID(in.ListingID) {
		return dto.Application{}, &filter.ValidationError{Reason: "listing id is required"}
	}
	if in.HouseholdSize < 0 {
		return dto.Application{}, &filter.ValidationError{Reason: "household size cannot be negative"}
	}

	app := applicationModel(in)
	if !caller.Anonymous() && !caller.Staff() {
		uid := caller.UserID
		app.UserID = &uid
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing model.Listing
		if err := tx.Select("id", "status").First(&listing, "id = ?", in.ListingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &filter.ValidationError{Reason: fmt.Sprintf("unknown listing %s", in.ListingID)}
			}
			return fmt.Errorf("failed to look up listing: %w", err)
		}
		if listing.Status != model.ListingActive {
			return &filter.ValidationError{Reason: "listing is not accepting applications"}
		}
		if err := tx.Create(&app).Error; err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}
		return nil
	})
	if err != nil {
		return dto.Application{}, err
	}

	apps, err := loadApplications(s.db.WithContext(ctx).Where("applications.id = ?", app.ID))
	if err != nil {
		return dto.Application{}, fmt.Errorf("failed to reload application %s: %w", app.ID, err)
	}
	if len(apps) == 0 {
		return dto.Application{}, ErrNotFound
	}
	return dto.ApplicationFrom(apps[0]), nil
}

// confirmationCode is eight upper-case hex characters.
func confirmationCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func applicationModel(in dto.Application) model.Application {
	a := model.Application{
		ListingID:         in.ListingID,
		ConfirmationCode:  confirmationCode(),
		Status:            model.ApplicationStatus(in.Status),
		SubmissionType:    model.SubmissionType(in.SubmissionType),
		SubmissionDate:    in.SubmissionDate,
		Language:          in.Language,
		HouseholdSize:     in.HouseholdSize,
		Income:            in.Income,
		IncomePeriod:      in.IncomePeriod,
		IncomeVouchers:    in.IncomeVouchers,
		AcceptedTerms:     in.AcceptedTerms,
		MarkedAsDuplicate: false,
		Applicant: model.Applicant{
			FirstName:    in.Applicant.FirstName,
			MiddleName:   in.Applicant.MiddleName,
			LastName:     in.Applicant.LastName,
			BirthMonth:   in.Applicant.BirthMonth,
			BirthDay:     in.Applicant.BirthDay,
			BirthYear:    in.Applicant.BirthYear,
			EmailAddress: in.Applicant.EmailAddress,
			PhoneNumber:  in.Applicant.PhoneNumber,
			Street:       in.Applicant.Street,
			City:         in.Applicant.City,
			State:        in.Applicant.State,
			ZipCode:      in.Applicant.ZipCode,
		},
	}
	if a.Status == "" {
		a.Status = model.ApplicationSubmitted
	}
	if a.SubmissionType == "" {
		a.SubmissionType = model.SubmissionElectronic
	}
	if a.HouseholdSize == 0 {
		a.HouseholdSize = 1 + len(in.HouseholdMembers)
	}
	if a.SubmissionDate == nil && a.Status == model.ApplicationSubmitted {
		t := now()
		a.SubmissionDate = &t
	}
	for _, m := range in.HouseholdMembers {
		a.HouseholdMembers = append(a.HouseholdMembers, model.HouseholdMember{
			OrderID:      m.OrderID,
			FirstName:    m.FirstName,
			LastName:     m.LastName,
			BirthMonth:   m.BirthMonth,
			BirthDay:     m.BirthDay,
			BirthYear:    m.BirthYear,
			Relationship: m.Relationship,
		})
	}
	for _, p := range in.PreferenceSelections {
		a.PreferenceSelections = append(a.PreferenceSelections, model.ApplicationPreference{
			MultiselectQuestionID: p.MultiselectQuestionID,
			Claimed:               p.Claimed,
			OptionKey:             p.OptionKey,
		})
	}
	if in.Demographics != nil {
		a.Demographics = &model.Demographics{
			Ethnicity:         in.Demographics.Ethnicity,
			Race:              in.Demographics.Race,
			Gender:            in.Demographics.Gender,
			SexualOrientation: in.Demographics.SexualOrientation,
			HowDidYouHear:     in.Demographics.HowDidYouHear,
		}
	}
	return a
}

// FlaggedSets groups a listing's applications that share an email address or a
// name and date of birth. Only groups of two or more are returned.
func (s *gormStore) FlaggedSets(ctx context.Context, caller auth.Caller, listingID string) ([]dto.FlaggedSet, error) {
	apps, err := s.listingApplications(ctx, caller, listingID)
	if err != nil {
		return nil, err
	}

	groups := map[[2]string][]model.Application{}
	for _, a := range apps {
		if email := strings.ToLower(strings.TrimSpace(a.Applicant.EmailAddress)); email != "" {
			key := [2]string{RuleEmail, email}
			groups[key] = append(groups[key], a)
		}
		if key, ok := nameAndDOBKey(a.Applicant); ok {
			k := [2]string{RuleNameAndDOB, key}
			groups[k] = append(groups[k], a)
		}
	}

	sets := make([]dto.FlaggedSet, 0)
	for key, members := range groups {
		if len(members) < 2 {
			continue
		}
		sets = append(sets, dto.FlaggedSet{Rule: key[0], Key: key[1], Applications: dto.ApplicationsFrom(members)})
	}
	sort.Slice(sets, func(i, j int) bool {
		if sets[i].Rule != sets[j].Rule {
			return sets[i].Rule < sets[j].Rule
		}
		return sets[i].Key < sets[j].Key
	})
	return sets, nil
}

func nameAndDOBKey(a model.Applicant) (string, bool) {
	first := strings.ToLower(strings.TrimSpace(a.FirstName))
	last := strings.ToLower(strings.TrimSpace(a.LastName))
	if first == "" || last == "" || a.BirthYear == "" || a.BirthMonth == "" || a.BirthDay == "" {
		return "", false
	}
	return fmt.Sprintf("%s %s %s-%s-%s", first, last, a.BirthYear, a.BirthMonth, a.BirthDay), true
}

// MarkDuplicate sets the duplicate flag on the given applications.
func (s *gormStore) MarkDuplicate(ctx context.Context, caller auth.Caller, ids []string, flag bool) error {
	if !caller.Staff() {
		return ErrForbidden
	}
	if len(ids) == 0 {
		return &filter.ValidationError{Reason: "at least one application id is required"}
	}
	for _, id := range ids {
		if !validID(id) {
			return &filter.ValidationError{Reason: fmt.Sprintf("%q is not an application id", id)}
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var jurisdictions []string
		if err := tx.Model(&model.Application{}).
			Joins("JOIN listings ON listings.id = applications.listing_id").
			Where("applications.id IN ?", ids).
			Distinct().
			Pluck("listings.jurisdiction_id", &jurisdictions).Error; err != nil {
			return fmt.Errorf("failed to look up applications: %w", err)
		}
		for _, j := range jurisdictions {
			if !caller.InJurisdiction(j) {
				return ErrForbidden
			}
		}
		res := tx.Model(&model.Application{}).Where("id IN ?", ids).Update("marked_as_duplicate", flag)
		if res.Error != nil {
			return fmt.Errorf("failed to mark duplicates: %w", res.Error)
		}
		if int(res.RowsAffected) != len(uniqueIDs(ids)) {
			return ErrNotFound
		}
		return nil
	})
}

func uniqueIDs(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// deleteApplications removes the applications selected by ids and their children.
func deleteApplications(tx *gorm.DB, ids *gorm.DB) error {
	steps := []struct {
		what  string
		model any
	}{
		{"applicants", &model.Applicant{}},
		{"household members", &model.HouseholdMember{}},
		{"preferences", &model.ApplicationPreference{}},
		{"demographics", &model.Demographics{}},
	}
	for _, step := range steps {
		if err := tx.Where("application_id IN (?)", ids).Delete(step.model).Error; err != nil {
			return fmt.Errorf("failed to delete application %s: %w", step.what, err)
		}
	}
	if err := tx.Where("id IN (?)", ids).Delete(&model.Application{}).Error; err != nil {
		return fmt.Errorf("failed to delete applications: %w", err)
	}
	return nil
}
