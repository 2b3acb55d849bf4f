// Package transform maps canonical benefit records into protocol
// catalog envelopes. It is pure: no store or network access.
package transform

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	benefit "benefit-gateway/internal/benefit/models"
	"benefit-gateway/internal/protocol"
	dErrors "benefit-gateway/pkg/domain-errors"
)

const (
	protocolVersion = "1.1.0"
	protocolTTL     = "PT10M"

	// FulfillmentID is the single synthetic fulfillment all catalog
	// entries and status responses hang off.
	FulfillmentID = "FULFILL_UNIFIED"
)

// Transformer builds protocol envelopes for this gateway's network
// identity. It carries no per-request state; the caller's context is
// threaded through every call.
type Transformer struct {
	domain string
	bppID  string
	bppURI string
}

func New(domain, bppID, bppURI string) *Transformer {
	return &Transformer{domain: domain, bppID: bppID, bppURI: bppURI}
}

// ToCatalog converts benefit records into a catalog envelope for the
// given response action. When includeTags is false the items carry no
// tags field at all.
//
// The inbound context is preserved except for protocol-owned fields,
// which are always recomputed: message_id is fresh per call;
// transaction_id is echoed verbatim when the caller supplied one and
// generated only for fresh exchanges.
func (t *Transformer) ToCatalog(ctx context.Context, reqCtx protocol.Context, benefits []benefit.BenefitRecord, action string, includeTags bool) (*protocol.Envelope, error) {
	if benefits == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "expected a list of benefits")
	}

	items := make([]protocol.Item, len(benefits))
	g, gctx := errgroup.WithContext(ctx)
	for i := range benefits {
		i := i
		g.Go(func() error {
			item, err := t.buildItem(gctx, &benefits[i], includeTags)
			if err != nil {
				return err
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &protocol.Envelope{
		Context: t.responseContext(reqCtx, action),
		Message: protocol.Message{
			Catalog: &protocol.Catalog{
				Descriptor: protocol.Descriptor{Name: t.bppID},
				Providers:  []protocol.Provider{t.buildProvider(benefits, items)},
			},
		},
	}, nil
}

func (t *Transformer) buildItem(ctx context.Context, b *benefit.BenefitRecord, includeTags bool) (protocol.Item, error) {
	item := protocol.Item{
		ID: b.DocumentID,
		Descriptor: protocol.Descriptor{
			Name:     b.Title,
			LongDesc: b.LongDescription,
		},
		Price: protocol.Price{
			Currency: "INR",
			Value:    EstimateTotalValue(b.Benefits),
		},
		Time: protocol.TimeRange{Range: protocol.Range{
			Start: b.ApplicationOpenDate.UTC().Format(time.RFC3339),
			End:   b.ApplicationCloseDate.UTC().Format(time.RFC3339),
		}},
		Rateable: false,
	}

	if includeTags {
		tags, err := t.buildTags(ctx, b)
		if err != nil {
			return protocol.Item{}, err
		}
		item.Tags = tags
	}
	return item, nil
}

// buildProvider assembles the single provider block. Descriptor falls
// back to a generic name when the first benefit has no providing entity.
func (t *Transformer) buildProvider(benefits []benefit.BenefitRecord, items []protocol.Item) protocol.Provider {
	providerName := "Unknown Provider"
	var images []string
	if len(benefits) > 0 {
		if pe := benefits[0].ProvidingEntity; pe != nil && pe.Name != "" {
			providerName = pe.Name
		}
		if benefits[0].ImageURL != "" {
			images = []string{benefits[0].ImageURL}
		}
	}

	return protocol.Provider{
		ID: t.bppID,
		Descriptor: protocol.Descriptor{
			Name:      providerName,
			ShortDesc: "Multiple scholarships offered",
			Images:    images,
		},
		Categories: []protocol.Category{{
			ID: "CAT_SCHOLARSHIP",
			Descriptor: protocol.Descriptor{
				Code: "scholarship",
				Name: "Scholarship",
			},
		}},
		Fulfillments: []protocol.Fulfillment{{
			ID:       FulfillmentID,
			Tracking: false,
		}},
		Locations: []protocol.Location{{
			ID:    "L1",
			City:  protocol.CodeName{Name: "Pune", Code: "std:020"},
			State: protocol.CodeName{Name: "Maharashtra", Code: "MH"},
		}},
		Items:    items,
		Rateable: false,
	}
}

func (t *Transformer) responseContext(reqCtx protocol.Context, action string) protocol.Context {
	out := reqCtx
	if out.Version == "" {
		out.Version = protocolVersion
	}
	if out.TTL == "" {
		out.TTL = protocolTTL
	}
	out.Domain = t.domain
	out.Action = action
	out.MessageID = uuid.NewString()
	out.Timestamp = time.Now().UTC().Format(time.RFC3339)
	out.BppID = t.bppID
	out.BppURI = t.bppURI
	if out.TransactionID == "" {
		out.TransactionID = uuid.NewString()
	}
	return out
}
