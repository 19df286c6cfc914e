package types

import "github.com/google/uuid"

// NewSegmentID generates a time-ordered UUIDv7 segment identifier.
// Panics if the generator cannot read randomness.
func NewSegmentID() SegmentID {
	return SegmentID(uuid.Must(uuid.NewV7()).String())
}

// NewLogID generates a UUIDv7 communication log identifier.
func NewLogID() LogID {
	return LogID(uuid.Must(uuid.NewV7()).String())
}

// NewCustomerID generates a UUIDv7 customer identifier for imports without one.
func NewCustomerID() CustomerID {
	return CustomerID(uuid.Must(uuid.NewV7()).String())
}

// ParseSegmentID validates and converts a string to SegmentID.
// Rejects malformed UUIDs to prevent invalid IDs from reaching the store.
func ParseSegmentID(s string) (SegmentID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return SegmentID(s), nil
}
