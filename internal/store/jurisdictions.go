package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"housing-listings-backend/internal/dto"
	"housing-listings-backend/internal/filter"
	"housing-listings-backend/internal/model"
	"housing-listings-backend/internal/query"
)

var multiselectBase = query.Base{
	Table:    "multiselect_questions",
	IDColumn: "multiselect_questions.id",
}

func (s *gormStore) ListJurisdictions(ctx context.Context) ([]dto.Jurisdiction, error) {
	var rows []model.Jurisdiction
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list jurisdictions: %w", err)
	}
	out := make([]dto.Jurisdiction, len(rows))
	for i, j := range rows {
		out[i] = dto.JurisdictionFrom(j)
	}
	return out, nil
}

func (s *gormStore) GetJurisdiction(ctx context.Context, id string) (dto.Jurisdiction, error) {
	if !validID(id) {
		return dto.Jurisdiction{}, ErrNotFound
	}
	var j model.Jurisdiction
	if err := s.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return dto.Jurisdiction{}, notFound(err)
	}
	return dto.JurisdictionFrom(j), nil
}

// ListMultiselectQuestions returns every question matching clauses, ordered by text.
func (s *gormStore) ListMultiselectQuestions(ctx context.Context, clauses []filter.Clause) ([]dto.MultiselectQuestion, error) {
	preds, err := filter.Translate(filter.MultiselectQuestionFields, clauses)
	if err != nil {
		return nil, err
	}
	spec := query.New(multiselectBase).
		WithFilter(preds...).
		WithOrder(query.Order{Column: "multiselect_questions.text"})

	page, err := query.Execute(ctx, s.db, spec, func(outer *gorm.DB) ([]model.MultiselectQuestion, error) {
		var qs []model.MultiselectQuestion
		err := outer.Find(&qs).Error
		return qs, err
	})
	if err != nil {
		return nil, err
	}
	out := make([]dto.MultiselectQuestion, len(page.Items))
	for i, q := range page.Items {
		out[i] = dto.MultiselectQuestionFrom(q)
	}
	return out, nil
}
