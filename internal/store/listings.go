package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"housing-listings-backend/internal/auth"
	"housing-listings-backend/internal/dto"
	"housing-listings-backend/internal/filter"
	"housing-listings-backend/internal/model"
	"housing-listings-backend/internal/query"
)

// listingBase joins everything the listing field map can reference.
var listingBase = query.Base{
	Table:    "listings",
	IDColumn: "listings.id",
	Joins: []string{
		"LEFT JOIN properties ON properties.listing_id = listings.id",
		"LEFT JOIN units ON units.property_id = properties.id",
		"LEFT JOIN listing_leasing_agents ON listing_leasing_agents.listing_id = listings.id",
	},
}

// listingSorts only names listing columns so the grouped inner selector stays valid.
var listingSorts = query.SortMap{
	"name":                "listings.name",
	"status":              "listings.status",
	"applicationDueDate":  "listings.application_due_date",
	"mostRecentlyUpdated": "listings.updated_at",
	"createdAt":           "listings.created_at",
}

// loadListings preloads the graph for view with every nested collection ordered.
func loadListings(view dto.View) query.Loader[model.Listing] {
	return func(outer *gorm.DB) ([]model.Listing, error) {
		tx := outer.
			Preload("Jurisdiction").
			Preload("Property").
			Preload("Property.Units", func(db *gorm.DB) *gorm.DB {
				return db.Order("units.max_occupancy ASC, units.num_bedrooms ASC, units.id ASC")
			})
		if view == dto.ViewFull {
			tx = tx.
				Preload("Property.Units.AmiChart").
				Preload("Property.Units.AmiChart.Items", func(db *gorm.DB) *gorm.DB {
					return db.Order("ami_chart_items.percent_of_ami ASC, ami_chart_items.household_size ASC")
				}).
				Preload("Events", func(db *gorm.DB) *gorm.DB {
					return db.Order("listing_events.start_time ASC, listing_events.id ASC")
				}).
				Preload("ApplicationMethods", func(db *gorm.DB) *gorm.DB {
					return db.Order("application_methods.type ASC, application_methods.id ASC")
				}).
				Preload("MultiselectQuestions", func(db *gorm.DB) *gorm.DB {
					return db.Order("listing_multiselect_questions.ordinal ASC")
				}).
				Preload("MultiselectQuestions.MultiselectQuestion").
				Preload("LeasingAgents", func(db *gorm.DB) *gorm.DB {
					return db.Order("users.last_name ASC, users.id ASC")
				})
		}
		var listings []model.Listing
		if err := tx.Find(&listings).Error; err != nil {
			return nil, err
		}
		return listings, nil
	}
}

// ListListings runs the filter, compose, page and map pipeline for listings.
func (s *gormStore) ListListings(ctx context.Context, caller auth.Caller, p ListingParams) (query.Paginated[dto.Listing], error) {
	preds, err := filter.Translate(filter.ListingFields, p.Clauses)
	if err != nil {
		return query.Paginated[dto.Listing]{}, err
	}
	orders, err := listingSorts.Resolve(p.OrderBy, p.OrderDir)
	if err != nil {
		return query.Paginated[dto.Listing]{}, err
	}

	spec := query.New(listingBase).WithFilter(preds...).WithOrder(orders...).WithPage(p.Page, p.Limit)
	page, err := query.Execute(ctx, s.db, spec, loadListings(p.View))
	if err != nil {
		return query.Paginated[dto.Listing]{}, err
	}

	out := query.Paginated[dto.Listing]{Items: dto.ListingsFrom(page.Items), Meta: page.Meta}
	if caller.Privileged() && len(out.Items) > 0 {
		if err := s.attachCounts(ctx, out.Items); err != nil {
			return query.Paginated[dto.Listing]{}, err
		}
	}
	return out, nil
}

func (s *gormStore) attachCounts(ctx context.Context, items []dto.Listing) error {
	ids := make([]string, len(items))
	for i, l := range items {
		ids[i] = l.ID
	}
	counts, err := s.ApplicationCounts(ctx, ids)
	if err != nil {
		return err
	}
	dto.AttachApplicationCounts(items, counts)
	return nil
}

// ApplicationCounts counts applications per listing in one grouped query.
func (s *gormStore) ApplicationCounts(ctx context.Context, listingIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(listingIDs))
	if len(listingIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		ListingID string
		Total     int64
	}
	if err := s.db.WithContext(ctx).
		Model(&model.Application{}).
		Select("listing_id, COUNT(*) AS total").
		Where("listing_id IN ?", listingIDs).
		Group("listing_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count applications: %w", err)
	}
	for _, r := range rows {
		counts[r.ListingID] = r.Total
	}
	return counts, nil
}

// GetListing loads one listing graph.
func (s *gormStore) GetListing(ctx context.Context, caller auth.Caller, id string, view dto.View) (dto.Listing, error) {
	if !validID(id) {
		return dto.Listing{}, ErrNotFound
	}
	listings, err := loadListings(view)(s.db.WithContext(ctx).Where("listings.id = ?", id))
	if err != nil {
		return dto.Listing{}, fmt.Errorf("failed to load listing %s: %w", id, err)
	}
	if len(listings) == 0 {
		return dto.Listing{}, ErrNotFound
	}
	items := []dto.Listing{dto.ListingFrom(listings[0])}
	if caller.Privileged() {
		if err := s.attachCounts(ctx, items); err != nil {
			return dto.Listing{}, err
		}
	}
	return items[0], nil
}

// CreateListing stores a listing with its property, units and child collections.
func (s *gormStore) CreateListing(ctx context.Context, caller auth.Caller, in dto.Listing) (dto.Listing, error) {
	if !caller.Staff() {
		return dto.Listing{}, ErrForbidden
	}
	if err := validateListing(in); err != nil {
		return dto.Listing{}, err
	}
	if !caller.InJurisdiction(in.Jurisdiction.ID) {
		return dto.Listing{}, ErrForbidden
	}

	listing := listingModel(in)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkListingRefs(tx, in); err != nil {
			return err
		}
		if err := tx.Omit("LeasingAgents").Create(&listing).Error; err != nil {
			return fmt.Errorf("failed to create listing: %w", err)
		}
		return replaceLeasingAgents(tx, &listing, in.LeasingAgents)
	})
	if err != nil {
		return dto.Listing{}, err
	}
	return s.GetListing(ctx, caller, listing.ID, dto.ViewFull)
}

// UpdateListing replaces a listing's fields and children. The flag reports whether
// the listing transitioned to active.
func (s *gormStore) UpdateListing(ctx context.Context, caller auth.Caller, id string, in dto.Listing) (dto.Listing, bool, error) {
	if !caller.Staff() {
		return dto.Listing{}, false, ErrForbidden
	}
	if !validID(id) {
		return dto.Listing{}, false, ErrNotFound
	}
	if err := validateListing(in); err != nil {
		return dto.Listing{}, false, err
	}

	var opened bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Listing
		if err := tx.First(&existing, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if !caller.InJurisdiction(existing.JurisdictionID) || !caller.InJurisdiction(in.Jurisdiction.ID) {
			return ErrForbidden
		}
		if err := checkListingRefs(tx, in); err != nil {
			return err
		}
		var err error
		opened, err = replaceListing(tx, existing, in)
		return err
	})
	if err != nil {
		return dto.Listing{}, false, err
	}
	out, err := s.GetListing(ctx, caller, id, dto.ViewFull)
	return out, opened, err
}

// replaceListing overwrites existing with in, recreating every child row.
func replaceListing(tx *gorm.DB, existing model.Listing, in dto.Listing) (bool, error) {
	if err := deleteListingChildren(tx, existing.ID); err != nil {
		return false, err
	}
	listing := listingModel(in)
	listing.ID = existing.ID
	listing.CreatedAt = existing.CreatedAt
	if listing.ExternalID == nil {
		listing.ExternalID = existing.ExternalID
	}
	if err := tx.Omit("LeasingAgents").Save(&listing).Error; err != nil {
		return false, fmt.Errorf("failed to update listing %s: %w", existing.ID, err)
	}
	if err := replaceLeasingAgents(tx, &listing, in.LeasingAgents); err != nil {
		return false, err
	}
	return existing.Status != model.ListingActive && listing.Status == model.ListingActive, nil
}

// DeleteListing removes a listing, its children and its applications.
func (s *gormStore) DeleteListing(ctx context.Context, caller auth.Caller, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Listing
		if err := tx.First(&existing, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if !caller.Staff() || !caller.InJurisdiction(existing.JurisdictionID) {
			return ErrForbidden
		}
		if err := deleteListingChildren(tx, id); err != nil {
			return err
		}
		if err := deleteApplications(tx, tx.Model(&model.Application{}).Select("id").Where("listing_id = ?", id)); err != nil {
			return err
		}
		if err := tx.Model(&existing).Association("LeasingAgents").Clear(); err != nil {
			return fmt.Errorf("failed to clear leasing agents of listing %s: %w", id, err)
		}
		if err := tx.Delete(&model.Listing{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete listing %s: %w", id, err)
		}
		return nil
	})
}

func deleteListingChildren(tx *gorm.DB, listingID string) error {
	properties := tx.Model(&model.Property{}).Select("id").Where("listing_id = ?", listingID)
	steps := []struct {
		what  string
		model any
		where *gorm.DB
	}{
		{"units", &model.Unit{}, tx.Where("property_id IN (?)", properties)},
		{"properties", &model.Property{}, tx.Where("listing_id = ?", listingID)},
		{"events", &model.ListingEvent{}, tx.Where("listing_id = ?", listingID)},
		{"application methods", &model.ApplicationMethod{}, tx.Where("listing_id = ?", listingID)},
		{"multiselect questions", &model.ListingMultiselectQuestion{}, tx.Where("listing_id = ?", listingID)},
	}
	for _, step := range steps {
		if err := step.where.Delete(step.model).Error; err != nil {
			return fmt.Errorf("failed to delete %s of listing %s: %w", step.what, listingID, err)
		}
	}
	return nil
}

func validateListing(in dto.Listing) error {
	switch {
	case in.Name == "":
		return &filter.ValidationError{Reason: "name is required"}
	case !model.ListingStatus(in.Status).Valid():
		return &filter.ValidationError{Reason: fmt.Sprintf("unknown status %q", in.Status)}
	case !validID(in.Jurisdiction.ID):
		return &filter.ValidationError{Reason: "jurisdiction id is required"}
	}
	for _, u := range in.Property.Units {
		if u.AmiChart != nil && !validID(u.AmiChart.ID) {
			return &filter.ValidationError{Reason: fmt.Sprintf("unit %q references an invalid ami chart", u.UnitNumber)}
		}
	}
	for _, q := range in.Preferences {
		if !validID(q.MultiselectQuestion.ID) {
			return &filter.ValidationError{Reason: "multiselect question id is required"}
		}
	}
	for _, a := range in.LeasingAgents {
		if !validID(a.ID) {
			return &filter.ValidationError{Reason: "leasing agent id is required"}
		}
	}
	return nil
}

// checkListingRefs verifies that every referenced row exists.
func checkListingRefs(tx *gorm.DB, in dto.Listing) error {
	var jurisdiction model.Jurisdiction
	if err := tx.Select("id").First(&jurisdiction, "id = ?", in.Jurisdiction.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &filter.ValidationError{Reason: fmt.Sprintf("unknown jurisdiction %s", in.Jurisdiction.ID)}
		}
		return fmt.Errorf("failed to look up jurisdiction: %w", err)
	}

	questionIDs := make([]string, 0, len(in.Preferences))
	for _, q := range in.Preferences {
		questionIDs = append(questionIDs, q.MultiselectQuestion.ID)
	}
	if err := countRefs(tx, &model.MultiselectQuestion{}, questionIDs, "multiselect question"); err != nil {
		return err
	}

	chartIDs := make([]string, 0)
	for _, u := range in.Property.Units {
		if u.AmiChart != nil {
			chartIDs = append(chartIDs, u.AmiChart.ID)
		}
	}
	return countRefs(tx, &model.AmiChart{}, chartIDs, "ami chart")
}

func countRefs(tx *gorm.DB, m any, ids []string, what string) error {
	unique := map[string]struct{}{}
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	if len(unique) == 0 {
		return nil
	}
	var n int64
	if err := tx.Model(m).Where("id IN ?", ids).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to look up %s references: %w", what, err)
	}
	if int(n) != len(unique) {
		return &filter.ValidationError{Reason: fmt.Sprintf("unknown %s reference", what)}
	}
	return nil
}

func replaceLeasingAgents(tx *gorm.DB, listing *model.Listing, agents []dto.UserRef) error {
	ids := make([]string, 0, len(agents))
	for id := range uniqueIDs(agentIDs(agents)) {
		ids = append(ids, id)
	}
	var users []model.User
	if len(ids) > 0 {
		if err := tx.Find(&users, "id IN ?", ids).Error; err != nil {
			return fmt.Errorf("failed to look up leasing agents: %w", err)
		}
		if len(users) != len(ids) {
			return &filter.ValidationError{Reason: "unknown leasing agent"}
		}
	}
	if err := tx.Model(listing).Association("LeasingAgents").Replace(&users); err != nil {
		return fmt.Errorf("failed to set leasing agents: %w", err)
	}
	return nil
}

func agentIDs(agents []dto.UserRef) []string {
	ids := make([]string, len(agents))
	for i, a := range agents {
		ids[i] = a.ID
	}
	return ids
}

// listingModel builds the entity graph for in. Child IDs are always fresh.
func listingModel(in dto.Listing) model.Listing {
	l := model.Listing{
		ExternalID:          in.ExternalID,
		Name:                in.Name,
		Status:              model.ListingStatus(in.Status),
		ReviewOrderType:     model.ReviewOrder(in.ReviewOrderType),
		ApplicationOpenDate: in.ApplicationOpenDate,
		ApplicationDueDate:  in.ApplicationDueDate,
		IsWaitlistOpen:      in.IsWaitlistOpen,
		WaitlistMaxSize:     in.WaitlistMaxSize,
		DisplayWaitlistSize: in.DisplayWaitlistSize,
		ApplicationFee:      in.ApplicationFee,
		DepositMin:          in.DepositMin,
		DepositMax:          in.DepositMax,
		CostsNotIncluded:    in.CostsNotIncluded,
		JurisdictionID:      in.Jurisdiction.ID,
		Property: model.Property{
			Neighborhood: in.Property.Neighborhood,
			Street:       in.Property.Street,
			Street2:      in.Property.Street2,
			City:         in.Property.City,
			State:        in.Property.State,
			ZipCode:      in.Property.ZipCode,
			County:       in.Property.County,
			Latitude:     in.Property.Latitude,
			Longitude:    in.Property.Longitude,
			YearBuilt:    in.Property.YearBuilt,
			Amenities:    in.Property.Amenities,
			PetPolicy:    in.Property.PetPolicy,
		},
	}
	if l.ReviewOrderType == "" {
		l.ReviewOrderType = model.ReviewOrderLottery
	}
	for _, u := range in.Property.Units {
		unit := model.Unit{
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
		if unit.Status == "" {
			unit.Status = "available"
		}
		if u.AmiChart != nil {
			id := u.AmiChart.ID
			unit.AmiChartID = &id
		}
		l.Property.Units = append(l.Property.Units, unit)
	}
	for _, e := range in.Events {
		l.Events = append(l.Events, model.ListingEvent{
			Type:      model.ListingEventType(e.Type),
			StartTime: e.StartTime,
			EndTime:   e.EndTime,
			URL:       e.URL,
			Note:      e.Note,
			Label:     e.Label,
		})
	}
	for _, m := range in.ApplicationMethods {
		l.ApplicationMethods = append(l.ApplicationMethods, model.ApplicationMethod{
			Type:                          m.Type,
			Label:                         m.Label,
			ExternalReference:             m.ExternalReference,
			AcceptsPostmarkedApplications: m.AcceptsPostmarkedApplications,
			PhoneNumber:                   m.PhoneNumber,
		})
	}
	for _, q := range in.Preferences {
		l.MultiselectQuestions = append(l.MultiselectQuestions, model.ListingMultiselectQuestion{
			MultiselectQuestionID: q.MultiselectQuestion.ID,
			Ordinal:               q.Ordinal,
		})
	}
	return l
}

func now() time.Time { return time.Now().UTC() }
