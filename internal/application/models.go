// Package application owns the lifecycle records created when a network
// participant applies for a benefit: the application row, its attachment
// files, and the stores that persist them.
package application

import "time"

// Application statuses move pending -> approved/rejected, with resubmit
// as the request-changes path.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusResubmit = "resubmit"
)

// Eligibility statuses set by the periodic recheck.
const (
	EligibilityUnknown    = "unknown"
	EligibilityEligible   = "eligible"
	EligibilityIneligible = "ineligible"
)

// Application is one applicant's submission against a benefit. The
// ApplicationData payload is stored encrypted at rest; stores return it
// decrypted.
type Application struct {
	ID                   string         `json:"id"`
	BenefitID            string         `json:"benefitId"`
	CustomerID           string         `json:"customerId"`
	BapID                string         `json:"bapId"`
	TransactionID        string         `json:"transactionId"`
	Status               string         `json:"status"`
	OrderID              string         `json:"orderId,omitempty"`
	Remark               string         `json:"remark,omitempty"`
	ApplicationData      map[string]any `json:"applicationData"`
	EligibilityStatus    string         `json:"eligibilityStatus"`
	EligibilityResult    map[string]any `json:"eligibilityResult,omitempty"`
	EligibilityCheckedAt *time.Time     `json:"eligibilityCheckedAt,omitempty"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
}

// File is one attachment extracted from an application payload and
// written to storage. Storage is "local" for filesystem-backed files.
type File struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"applicationId"`
	Storage       string    `json:"storage"`
	FilePath      string    `json:"filePath"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Filter narrows Find queries. Zero-value fields are ignored; a Find
// matching more than one row is the caller's bug.
type Filter struct {
	OrderID   string
	BenefitID string
}

// Patch carries the mutable fields of an update. Nil pointers leave the
// column untouched.
type Patch struct {
	Status               *string
	OrderID              *string
	Remark               *string
	ApplicationData      map[string]any
	EligibilityStatus    *string
	EligibilityResult    map[string]any
	EligibilityCheckedAt *time.Time
}
