package transform

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	benefit "benefit-gateway/internal/benefit/models"
	"benefit-gateway/internal/protocol"
	dErrors "benefit-gateway/pkg/domain-errors"
)

func testBenefit() benefit.BenefitRecord {
	open := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	close := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	return benefit.BenefitRecord{
		DocumentID:           "doc-123",
		Title:                "Merit Scholarship",
		LongDescription:      "Scholarship for meritorious students",
		ApplicationOpenDate:  open,
		ApplicationCloseDate: close,
		ProvidingEntity:      &benefit.Entity{Name: "State Education Board"},
		Eligibility: []benefit.EligibilityRule{{
			ID:       7,
			Type:     "academic",
			Evidence: "marks",
			Criteria: benefit.RuleCriteria{Condition: "gte", ConditionValues: 60},
		}},
		Documents: []benefit.Document{
			{ID: 1, DocumentType: "marksheet", IsRequired: true},
			{ID: 2, DocumentType: "incomeCertificate", IsRequired: false},
		},
		Benefits: []benefit.BenefitItem{{
			ID:          3,
			Component:   "benefit.financial-benefit",
			Title:       "Tuition support",
			Description: "₹12,000 per year plus ₹500 books allowance",
		}},
		ApplicationForm: []benefit.FieldGroup{{
			FieldsGroupName:  "personal",
			FieldsGroupLabel: "Personal Details",
			Fields: []benefit.FormField{
				{Name: "firstName", Label: "First Name", Type: "string", Required: true},
			},
		}},
	}
}

func newTestTransformer() *Transformer {
	return New("onest:financial-support", "bpp.example.org", "https://bpp.example.org")
}

func TestToCatalogBuildsItem(t *testing.T) {
	tr := newTestTransformer()
	env, err := tr.ToCatalog(context.Background(), protocol.Context{
		Domain:        "onest:financial-support",
		TransactionID: "txn-1",
		BapID:         "bap.example.org",
		BapURI:        "https://bap.example.org",
	}, []benefit.BenefitRecord{testBenefit()}, "on_search", true)
	require.NoError(t, err)

	assert.Equal(t, "on_search", env.Context.Action)
	assert.Equal(t, "txn-1", env.Context.TransactionID, "caller transaction_id must be echoed")
	assert.NotEmpty(t, env.Context.MessageID)
	assert.Equal(t, "bpp.example.org", env.Context.BppID)
	assert.Equal(t, "1.1.0", env.Context.Version)
	assert.Equal(t, "PT10M", env.Context.TTL)

	require.NotNil(t, env.Message.Catalog)
	require.Len(t, env.Message.Catalog.Providers, 1)
	provider := env.Message.Catalog.Providers[0]
	assert.Equal(t, "State Education Board", provider.Descriptor.Name)
	require.Len(t, provider.Items, 1)

	item := provider.Items[0]
	assert.Equal(t, "doc-123", item.ID)
	assert.Equal(t, "INR", item.Price.Currency)
	assert.Equal(t, "12500", item.Price.Value)
	assert.Equal(t, "2025-01-01T00:00:00Z", item.Time.Range.Start)
	assert.False(t, item.Rateable)
}

func TestToCatalogGeneratesTransactionIDForFreshExchange(t *testing.T) {
	tr := newTestTransformer()
	env, err := tr.ToCatalog(context.Background(), protocol.Context{}, []benefit.BenefitRecord{testBenefit()}, "on_search", false)
	require.NoError(t, err)
	assert.NotEmpty(t, env.Context.TransactionID)
}

func TestToCatalogFreshMessageIDPerCall(t *testing.T) {
	tr := newTestTransformer()
	reqCtx := protocol.Context{TransactionID: "txn-9"}
	benefits := []benefit.BenefitRecord{testBenefit()}

	first, err := tr.ToCatalog(context.Background(), reqCtx, benefits, "on_select", false)
	require.NoError(t, err)
	second, err := tr.ToCatalog(context.Background(), reqCtx, benefits, "on_select", false)
	require.NoError(t, err)
	assert.NotEqual(t, first.Context.MessageID, second.Context.MessageID)
}

func TestToCatalogWithoutTagsOmitsTagsField(t *testing.T) {
	tr := newTestTransformer()
	env, err := tr.ToCatalog(context.Background(), protocol.Context{TransactionID: "t"}, []benefit.BenefitRecord{testBenefit()}, "on_select", false)
	require.NoError(t, err)

	item := env.Message.Catalog.Providers[0].Items[0]
	assert.Nil(t, item.Tags)

	raw, err := json.Marshal(item)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"tags"`)
}

func TestToCatalogNilInputFailsFast(t *testing.T) {
	tr := newTestTransformer()
	_, err := tr.ToCatalog(context.Background(), protocol.Context{}, nil, "on_search", true)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))
}

func TestTagGroups(t *testing.T) {
	tr := newTestTransformer()
	env, err := tr.ToCatalog(context.Background(), protocol.Context{TransactionID: "t"}, []benefit.BenefitRecord{testBenefit()}, "on_search", true)
	require.NoError(t, err)

	tags := env.Message.Catalog.Providers[0].Items[0].Tags
	codes := make([]string, 0, len(tags))
	for _, tag := range tags {
		codes = append(codes, tag.Descriptor.Code)
	}
	// Exclusions and sponsors are empty on the fixture, so those groups
	// must be absent rather than present-but-empty.
	assert.Equal(t, []string{TagEligibility, TagRequiredDocs, TagBenefits, TagApplicationForm}, codes)
}

func TestEligibilityTagEntry(t *testing.T) {
	tag, err := eligibilityTags(testBenefit().Eligibility)
	require.NoError(t, err)
	require.NotNil(t, tag)
	require.Len(t, tag.List, 1)

	entry := tag.List[0]
	assert.Equal(t, "marks", entry.Descriptor.Code)
	assert.Equal(t, "Academic - marks", entry.Descriptor.Name)

	var value map[string]any
	require.NoError(t, json.Unmarshal([]byte(entry.Value), &value))
	assert.NotContains(t, value, "id", "internal id must be stripped from tag values")
	assert.Equal(t, "academic", value["type"])
}

func TestDocumentTagsMandatoryFlag(t *testing.T) {
	tag, err := documentTags(testBenefit().Documents)
	require.NoError(t, err)
	require.Len(t, tag.List, 2)
	assert.Equal(t, "mandatory-doc", tag.List[0].Descriptor.Code)
	assert.Equal(t, "optional-doc", tag.List[1].Descriptor.Code)
}

func TestBenefitTagsStripComponent(t *testing.T) {
	tag, err := benefitTags(testBenefit().Benefits)
	require.NoError(t, err)
	require.Len(t, tag.List, 1)

	var value map[string]any
	require.NoError(t, json.Unmarshal([]byte(tag.List[0].Value), &value))
	assert.NotContains(t, value, "__component")
	assert.NotContains(t, value, "id")
}

func TestApplicationFormTagsFlattenGroups(t *testing.T) {
	tag, err := applicationFormTags(testBenefit().ApplicationForm)
	require.NoError(t, err)
	require.Len(t, tag.List, 1)

	entry := tag.List[0]
	assert.Equal(t, "applicationFormField-firstName", entry.Descriptor.Code)

	var value map[string]any
	require.NoError(t, json.Unmarshal([]byte(entry.Value), &value))
	assert.Equal(t, "personal", value["fieldsGroupName"])
	assert.Equal(t, "Personal Details", value["fieldsGroupLabel"])
}

func TestEmptyGroupOmitted(t *testing.T) {
	tag, err := exclusionTags(nil)
	require.NoError(t, err)
	assert.Nil(t, tag)
}

func TestEstimateTotalValue(t *testing.T) {
	cases := []struct {
		name  string
		items []benefit.BenefitItem
		want  string
	}{
		{"no items", nil, "0"},
		{"no amounts in text", []benefit.BenefitItem{{Description: "free books"}}, "0"},
		{"single amount", []benefit.BenefitItem{{Description: "₹5000 stipend"}}, "5000"},
		{"comma grouped", []benefit.BenefitItem{{Description: "₹1,20,000 per annum"}}, "120000"},
		{"multiple matches across items", []benefit.BenefitItem{
			{Description: "₹12,000 plus ₹500"},
			{Description: "hostel worth ₹3,000"},
		}, "15500"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, EstimateTotalValue(tc.items))
		})
	}
}
