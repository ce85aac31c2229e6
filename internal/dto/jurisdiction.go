package dto

import "housing-listings-backend/internal/model"

// Jurisdiction is the transport shape of a jurisdiction.
type Jurisdiction struct {
	ID                          string `json:"id"`
	Name                        string `json:"name"`
	PublicURL                   string `json:"publicUrl"`
	PartnersPortalURL           string `json:"partnersPortalUrl"`
	EmailFromAddress            string `json:"emailFromAddress"`
	EnablePartnerSettings       bool   `json:"enablePartnerSettings"`
	EnableAccessibilityFeatures bool   `json:"enableAccessibilityFeatures"`
	EnableUtilitiesIncluded     bool   `json:"enableUtilitiesIncluded"`
	EnableGeocodingPreferences  bool   `json:"enableGeocodingPreferences"`
}

func JurisdictionFrom(j model.Jurisdiction) Jurisdiction {
	return Jurisdiction{
		ID:                          j.ID,
		Name:                        j.Name,
		PublicURL:                   j.PublicURL,
		PartnersPortalURL:           j.PartnersPortalURL,
		EmailFromAddress:            j.EmailFromAddress,
		EnablePartnerSettings:       j.EnablePartnerSettings,
		EnableAccessibilityFeatures: j.EnableAccessibilityFeatures,
		EnableUtilitiesIncluded:     j.EnableUtilitiesIncluded,
		EnableGeocodingPreferences:  j.EnableGeocodingPreferences,
	}
}

// MultiselectQuestion is the transport shape of a preference or program question.
type MultiselectQuestion struct {
	ID                 string `json:"id"`
	JurisdictionID     string `json:"jurisdictionId"`
	Text               string `json:"text"`
	Description        string `json:"description"`
	SubText            string `json:"subText"`
	OptOutText         string `json:"optOutText"`
	HideFromListing    bool   `json:"hideFromListing"`
	ApplicationSection string `json:"applicationSection"`
}

func MultiselectQuestionFrom(q model.MultiselectQuestion) MultiselectQuestion {
	return MultiselectQuestion{
		ID:                 q.ID,
		JurisdictionID:     q.JurisdictionID,
		Text:               q.Text,
		Description:        q.Description,
		SubText:            q.SubText,
		OptOutText:         q.OptOutText,
		HideFromListing:    q.HideFromListing,
		ApplicationSection: string(q.ApplicationSection),
	}
}

// Subscription is the transport shape of a push subscription.
type Subscription struct {
	Endpoint        string   `json:"endpoint"`
	Language        string   `json:"language"`
	JurisdictionIDs []string `json:"jurisdictionIds"`
}

func SubscriptionFrom(s model.PushSubscription) Subscription {
	out := Subscription{Endpoint: s.Endpoint, Language: s.Language, JurisdictionIDs: make([]string, 0, len(s.Jurisdictions))}
	for _, j := range s.Jurisdictions {
		out.JurisdictionIDs = append(out.JurisdictionIDs, j.ID)
	}
	return out
}
