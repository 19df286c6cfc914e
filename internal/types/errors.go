package types

import "errors"

// Sentinel errors for SegmentKeeper operations.
// Callers wrap these with context via %w and match them with errors.Is.
var (
	// ErrInvalidName indicates a segment name shorter than MinSegmentNameLength after trimming.
	ErrInvalidName = errors.New("valid name required (min 3 chars)")

	// ErrInvalidRules indicates an empty or malformed rule sequence.
	ErrInvalidRules = errors.New("invalid rules")

	// ErrInvalidMessage indicates a message without the [Name] placeholder.
	ErrInvalidMessage = errors.New("valid message with [Name] placeholder required")

	// ErrInvalidPage indicates non-positive page or page size parameters.
	ErrInvalidPage = errors.New("invalid pagination parameters")

	// ErrInvalidCampaign indicates a campaign without a name or segment reference.
	ErrInvalidCampaign = errors.New("invalid campaign")

	// ErrSegmentNotFound indicates the referenced segment does not exist.
	ErrSegmentNotFound = errors.New("segment not found")

	// ErrStoreFailure indicates the segment store failed to read or write.
	ErrStoreFailure = errors.New("store failure")

	// ErrUpstreamUnavailable indicates the generative-text service could not produce a message.
	// Recovered locally; never surfaced to API callers.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
