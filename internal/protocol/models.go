// Package protocol defines the wire shapes exchanged with the network:
// the per-message context envelope and the catalog/order structures
// nested under message. Field names follow the network schema, not Go
// conventions.
package protocol

// Context is the per-request protocol envelope. transaction_id persists
// verbatim across an exchange; message_id is fresh per message.
type Context struct {
	Domain        string `json:"domain,omitempty"`
	Action        string `json:"action,omitempty"`
	Version       string `json:"version,omitempty"`
	TTL           string `json:"ttl,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	MessageID     string `json:"message_id,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
	BapID         string `json:"bap_id,omitempty"`
	BapURI        string `json:"bap_uri,omitempty"`
	BppID         string `json:"bpp_id,omitempty"`
	BppURI        string `json:"bpp_uri,omitempty"`
}

type Descriptor struct {
	Code      string   `json:"code,omitempty"`
	Name      string   `json:"name,omitempty"`
	ShortDesc string   `json:"short_desc,omitempty"`
	LongDesc  string   `json:"long_desc,omitempty"`
	Images    []string `json:"images,omitempty"`
}

type Price struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

type TimeRange struct {
	Range Range `json:"range"`
}

type Range struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Tag is one display group of catalog metadata.
type Tag struct {
	Display    bool       `json:"display"`
	Descriptor Descriptor `json:"descriptor"`
	List       []TagEntry `json:"list"`
}

type TagEntry struct {
	Descriptor Descriptor `json:"descriptor"`
	Value      string     `json:"value"`
	Display    bool       `json:"display"`
}

// Item is one benefit as presented in a catalog. ApplicationID and
// TransactionID are set only on init/update responses, where the item
// must carry this system's identifiers back to the caller.
type Item struct {
	ID            string     `json:"id"`
	Descriptor    Descriptor `json:"descriptor"`
	Price         Price      `json:"price"`
	Time          TimeRange  `json:"time"`
	Rateable      bool       `json:"rateable"`
	Tags          []Tag      `json:"tags,omitempty"`
	ApplicationID string     `json:"applicationId,omitempty"`
	TransactionID string     `json:"transactionId,omitempty"`
}

type Category struct {
	ID         string     `json:"id"`
	Descriptor Descriptor `json:"descriptor"`
}

type FulfillmentState struct {
	Descriptor Descriptor `json:"descriptor"`
	UpdatedAt  string     `json:"updated_at"`
}

type Fulfillment struct {
	ID       string            `json:"id"`
	Type     string            `json:"type,omitempty"`
	Tracking bool              `json:"tracking"`
	State    *FulfillmentState `json:"state,omitempty"`
}

type CodeName struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type Location struct {
	ID    string   `json:"id"`
	City  CodeName `json:"city"`
	State CodeName `json:"state"`
}

type Provider struct {
	ID           string        `json:"id"`
	Descriptor   Descriptor    `json:"descriptor"`
	Categories   []Category    `json:"categories,omitempty"`
	Fulfillments []Fulfillment `json:"fulfillments,omitempty"`
	Locations    []Location    `json:"locations,omitempty"`
	Items        []Item        `json:"items,omitempty"`
	Rateable     bool          `json:"rateable"`
}

type Catalog struct {
	Descriptor Descriptor `json:"descriptor"`
	Providers  []Provider `json:"providers"`
}

// Envelope is a full outbound protocol message.
type Envelope struct {
	Context Context `json:"context"`
	Message Message `json:"message"`
}

type Message struct {
	Catalog *Catalog  `json:"catalog,omitempty"`
	Order   *OutOrder `json:"order,omitempty"`
}

// OutOrder is the order block of init/update/confirm/status responses.
// confirm/status use the singular Provider form; init/update use the
// plural Providers form, per the network schema.
type OutOrder struct {
	ID           string        `json:"id,omitempty"`
	Provider     *Provider     `json:"provider,omitempty"`
	Providers    []Provider    `json:"providers,omitempty"`
	Items        []Item        `json:"items,omitempty"`
	Fulfillments []Fulfillment `json:"fulfillments,omitempty"`
}

// --- inbound request shapes ---

type ItemRef struct {
	ID string `json:"id"`
}

type InCustomer struct {
	ApplicationData map[string]any `json:"applicationData"`
}

type InFulfillment struct {
	Customer InCustomer `json:"customer"`
}

type InOrder struct {
	Items        []ItemRef       `json:"items,omitempty"`
	Fulfillments []InFulfillment `json:"fulfillments,omitempty"`
}

// Request is the inbound message for all five protocol actions. Only
// status uses OrderID; the others carry an Order.
type Request struct {
	Context Context `json:"context"`
	Message struct {
		Order   *InOrder `json:"order,omitempty"`
		OrderID string   `json:"order_id,omitempty"`
	} `json:"message"`
}

// FirstItemID returns the id of the first order item, or "".
func (r *Request) FirstItemID() string {
	if r.Message.Order == nil || len(r.Message.Order.Items) == 0 {
		return ""
	}
	return r.Message.Order.Items[0].ID
}

// ApplicationData returns the payload nested under the order's first
// fulfillment customer, or nil.
func (r *Request) ApplicationData() map[string]any {
	if r.Message.Order == nil || len(r.Message.Order.Fulfillments) == 0 {
		return nil
	}
	return r.Message.Order.Fulfillments[0].Customer.ApplicationData
}
