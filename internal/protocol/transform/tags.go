package transform

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	benefit "benefit-gateway/internal/benefit/models"
	"benefit-gateway/internal/protocol"
	dErrors "benefit-gateway/pkg/domain-errors"
)

// Tag group codes as the network schema names them.
const (
	TagEligibility     = "eligibility"
	TagRequiredDocs    = "required-docs"
	TagBenefits        = "benefits"
	TagExclusions      = "exclusions"
	TagSponsors        = "sponsoringEntities"
	TagApplicationForm = "applicationForm"
)

// buildTags assembles the six detail tag groups concurrently. Groups
// with an empty source list are omitted entirely. Order of the surviving
// groups is fixed regardless of completion order.
func (t *Transformer) buildTags(ctx context.Context, b *benefit.BenefitRecord) ([]protocol.Tag, error) {
	groups := make([]*protocol.Tag, 6)
	var mu sync.Mutex
	g, _ := errgroup.WithContext(ctx)

	build := func(slot int, fn func() (*protocol.Tag, error)) {
		g.Go(func() error {
			tag, err := fn()
			if err != nil {
				return err
			}
			mu.Lock()
			groups[slot] = tag
			mu.Unlock()
			return nil
		})
	}

	build(0, func() (*protocol.Tag, error) { return eligibilityTags(b.Eligibility) })
	build(1, func() (*protocol.Tag, error) { return documentTags(b.Documents) })
	build(2, func() (*protocol.Tag, error) { return benefitTags(b.Benefits) })
	build(3, func() (*protocol.Tag, error) { return exclusionTags(b.Exclusions) })
	build(4, func() (*protocol.Tag, error) { return sponsorTags(b.SponsoringEntities) })
	build(5, func() (*protocol.Tag, error) { return applicationFormTags(b.ApplicationForm) })

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var tags []protocol.Tag
	for _, group := range groups {
		if group != nil {
			tags = append(tags, *group)
		}
	}
	return tags, nil
}

// tagGroup is the one generic builder behind every detail group: skip
// empty lists, map each record to a descriptor, serialize the record
// with its internal ids stripped.
func tagGroup[T any](list []T, group protocol.Descriptor, entry func(T) protocol.Descriptor, strip ...string) (*protocol.Tag, error) {
	if len(list) == 0 {
		return nil, nil
	}
	entries := make([]protocol.TagEntry, 0, len(list))
	for _, rec := range list {
		value, err := stripJSON(rec, strip...)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "serialize tag value")
		}
		entries = append(entries, protocol.TagEntry{
			Descriptor: entry(rec),
			Value:      value,
			Display:    true,
		})
	}
	return &protocol.Tag{Display: true, Descriptor: group, List: entries}, nil
}

func eligibilityTags(rules []benefit.EligibilityRule) (*protocol.Tag, error) {
	return tagGroup(rules,
		protocol.Descriptor{Code: TagEligibility, Name: "Eligibility"},
		func(r benefit.EligibilityRule) protocol.Descriptor {
			return protocol.Descriptor{
				Code:      r.Evidence,
				Name:      titleCase(r.Type) + " - " + r.Evidence,
				ShortDesc: r.Description,
			}
		})
}

func documentTags(docs []benefit.Document) (*protocol.Tag, error) {
	return tagGroup(docs,
		protocol.Descriptor{Code: TagRequiredDocs, Name: "Required Documents"},
		func(d benefit.Document) protocol.Descriptor {
			if d.IsRequired {
				return protocol.Descriptor{Code: "mandatory-doc", Name: "Mandatory Document"}
			}
			return protocol.Descriptor{Code: "optional-doc", Name: "Optional Document"}
		})
}

func benefitTags(items []benefit.BenefitItem) (*protocol.Tag, error) {
	return tagGroup(items,
		protocol.Descriptor{Code: TagBenefits, Name: "Benefits"},
		func(b benefit.BenefitItem) protocol.Descriptor {
			return protocol.Descriptor{Code: "financial", Name: b.Title}
		},
		"__component")
}

func exclusionTags(exclusions []benefit.Exclusion) (*protocol.Tag, error) {
	return tagGroup(exclusions,
		protocol.Descriptor{Code: TagExclusions, Name: "Exclusions"},
		func(benefit.Exclusion) protocol.Descriptor {
			return protocol.Descriptor{Code: "ineligibility", Name: "Ineligibility Condition"}
		})
}

func sponsorTags(entities []benefit.Entity) (*protocol.Tag, error) {
	return tagGroup(entities,
		protocol.Descriptor{Code: TagSponsors, Name: "Sponsoring Entities"},
		func(benefit.Entity) protocol.Descriptor {
			return protocol.Descriptor{Code: TagSponsors, Name: "Entities Sponsoring Benefits"}
		})
}

// applicationFormTags flattens every field group into one field list,
// each field annotated with its parent group's name and label.
func applicationFormTags(form []benefit.FieldGroup) (*protocol.Tag, error) {
	if len(form) == 0 {
		return nil, nil
	}

	type flatField struct {
		benefit.FormField
		FieldsGroupName  string `json:"fieldsGroupName"`
		FieldsGroupLabel string `json:"fieldsGroupLabel"`
	}

	var fields []flatField
	for _, group := range form {
		for _, field := range group.Fields {
			fields = append(fields, flatField{
				FormField:        field,
				FieldsGroupName:  group.FieldsGroupName,
				FieldsGroupLabel: group.FieldsGroupLabel,
			})
		}
	}

	return tagGroup(fields,
		protocol.Descriptor{Code: TagApplicationForm, Name: "Application Form"},
		func(f flatField) protocol.Descriptor {
			return protocol.Descriptor{
				Code: "applicationFormField-" + f.Name,
				Name: "Application Form Field - " + f.Label,
			}
		})
}

// stripJSON serializes v with its internal identifier fields removed.
// "id" is always stripped; extra keys are per-record-type.
func stripJSON(v any, extra ...string) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		// Non-object values pass through untouched.
		return string(raw), nil
	}
	delete(m, "id")
	for _, key := range extra {
		delete(m, key)
	}
	out, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
