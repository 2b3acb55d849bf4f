// Package models holds the canonical benefit content types as served by
// the upstream content provider. Records are read-only here; authoring
// happens upstream.
package models

import "time"

// BenefitRecord is one benefit scheme as the content provider publishes
// it. DocumentID is the canonical identifier used on the network.
type BenefitRecord struct {
	DocumentID           string            `json:"documentId"`
	Title                string            `json:"title"`
	LongDescription      string            `json:"longDescription"`
	Status               string            `json:"status,omitempty"`
	ImageURL             string            `json:"imageUrl,omitempty"`
	ApplicationOpenDate  time.Time         `json:"applicationOpenDate"`
	ApplicationCloseDate time.Time         `json:"applicationCloseDate"`
	Eligibility          []EligibilityRule `json:"eligibility,omitempty"`
	Documents            []Document        `json:"documents,omitempty"`
	Benefits             []BenefitItem     `json:"benefits,omitempty"`
	Exclusions           []Exclusion       `json:"exclusions,omitempty"`
	SponsoringEntities   []Entity          `json:"sponsoringEntities,omitempty"`
	ProvidingEntity      *Entity           `json:"providingEntity,omitempty"`
	ApplicationForm      []FieldGroup      `json:"applicationForm,omitempty"`
	CreatedBy            *CreatorRef       `json:"createdBy,omitempty"`
}

// EligibilityRule is one declarative condition an applicant's declared
// attributes are checked against.
type EligibilityRule struct {
	ID          int          `json:"id,omitempty"`
	Type        string       `json:"type"`
	Evidence    string       `json:"evidence"`
	Description string       `json:"description,omitempty"`
	Criteria    RuleCriteria `json:"criteria"`
}

// RuleCriteria carries the operator and threshold side of a rule.
// ConditionValues may be a scalar or a list depending on the condition.
type RuleCriteria struct {
	Name            string `json:"name,omitempty"`
	Condition       string `json:"condition"`
	ConditionValues any    `json:"conditionValues"`
}

// Document is a required or optional proof document.
type Document struct {
	ID            int      `json:"id,omitempty"`
	DocumentType  string   `json:"documentType"`
	IsRequired    bool     `json:"isRequired"`
	AllowedProofs []string `json:"allowedProofs,omitempty"`
}

// BenefitItem is one financial or non-monetary component of a scheme.
// Component mirrors the upstream discriminator and is stripped before
// the item is serialized into catalog tags.
type BenefitItem struct {
	ID          int    `json:"id,omitempty"`
	Component   string `json:"__component,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type Exclusion struct {
	ID          int    `json:"id,omitempty"`
	Description string `json:"description"`
}

// Entity is a providing or sponsoring organisation.
type Entity struct {
	ID           int    `json:"id,omitempty"`
	Name         string `json:"name"`
	Type         string `json:"type,omitempty"`
	SponsorShare string `json:"sponsorShare,omitempty"`
}

// FieldGroup is one titled section of the application form.
type FieldGroup struct {
	ID               int         `json:"id,omitempty"`
	FieldsGroupName  string      `json:"fieldsGroupName"`
	FieldsGroupLabel string      `json:"fieldsGroupLabel"`
	Fields           []FormField `json:"fields,omitempty"`
}

// FormField is one input of the application form.
type FormField struct {
	ID       int           `json:"id,omitempty"`
	Name     string        `json:"name"`
	Label    string        `json:"label"`
	Type     string        `json:"type,omitempty"`
	Required bool          `json:"required,omitempty"`
	Options  []FieldOption `json:"options,omitempty"`
}

type FieldOption struct {
	ID    int    `json:"id,omitempty"`
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
}

// CreatorRef identifies the upstream identity that authored a benefit.
type CreatorRef struct {
	ID string `json:"id"`
}

// Published reports whether the record is visible to the network.
func (b *BenefitRecord) Published() bool {
	return b.Status == "" || b.Status == "published"
}
