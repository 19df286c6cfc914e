// Package types provides domain models shared across SegmentKeeper components.
//
// Zero-dependency design: types.go, rules.go and errors.go use only the standard
// library so the HTTP layer, the stores and the estimators agree on one shape.
// ID utilities in ids.go import uuid but are isolated from the rest.
//
// Storage encodings (bson documents, SQL rows) live next to their stores; this
// package only carries JSON tags because JSON is the wire format.
package types

import "time"

// SegmentID represents a UUIDv7 segment identifier.
// String alias enables type safety while maintaining JSON string serialization.
// UUIDv7 time-ordering keeps identifiers sortable in creation order.
type SegmentID string

// LogID represents a UUIDv7 communication log identifier.
type LogID string

// CustomerID is the identifier of a customer record.
type CustomerID string

// PrincipalID is the opaque identifier issued by the authentication collaborator.
type PrincipalID string

// Segment is a named, conjunctive collection of rules with an outreach message.
// Segments are immutable once persisted.
type Segment struct {
	ID        SegmentID   `json:"id"`
	Name      string      `json:"name"`
	Rules     []Rule      `json:"rules"`
	Message   string      `json:"message"`
	OwnerID   PrincipalID `json:"ownerId"`
	CreatedAt time.Time   `json:"createdAt"`
}

// DeliveryStatus is the per-recipient state of a campaign send.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "PENDING"
	DeliverySent    DeliveryStatus = "SENT"
	DeliveryFailed  DeliveryStatus = "FAILED"
)

// Valid reports whether s is one of the known delivery states.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryPending, DeliverySent, DeliveryFailed:
		return true
	}
	return false
}

// Delivery records the status of a campaign message for one customer.
type Delivery struct {
	CustomerID CustomerID     `json:"customerId"`
	Status     DeliveryStatus `json:"status"`
}

// CommunicationLog records a campaign send against a segment.
// SegmentID is a weak reference: the segment may no longer exist.
type CommunicationLog struct {
	ID               LogID      `json:"id"`
	SegmentID        SegmentID  `json:"segmentId"`
	CampaignName     string     `json:"campaignName"`
	Message          string     `json:"message"`
	AudienceSize     int        `json:"audienceSize"`
	DeliveryStatuses []Delivery `json:"deliveryStatuses"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Customer is one member of the population that rules are evaluated against.
// LastPurchaseDate is the zero time when the customer never purchased.
type Customer struct {
	ID               CustomerID `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	TotalSpend       float64    `json:"totalSpend"`
	VisitCount       int        `json:"visitCount"`
	LastPurchaseDate time.Time  `json:"lastPurchaseDate"`
}

// Pagination limits applied when callers omit or abuse page parameters.
const (
	// DefaultPage is the first page; pages are 1-based.
	DefaultPage = 1

	// DefaultPageSize matches the page size the web client requests.
	DefaultPageSize = 10

	// MaxPageSize caps a single listing to bound memory per request.
	MaxPageSize = 100
)

// TotalPages returns ceil(total / pageSize), or 0 when pageSize is not positive.
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// CampaignRecord is a CommunicationLog joined with the segment it targeted.
// SegmentName and Rules stay empty when the segment no longer exists.
type CampaignRecord struct {
	CommunicationLog
	SegmentName string `json:"segmentName,omitempty"`
	Rules       []Rule `json:"rules,omitempty"`
}
