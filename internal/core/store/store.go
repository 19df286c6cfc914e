// Package store persists segments, campaign logs and customers.
//
// Two backends share the Store interface: SQLStore (SQLite or PostgreSQL via
// sqlx and named queries) and MongoStore (MongoDB document collections).
// Open selects the backend from the URL scheme.
package store

import (
	"context"
	"fmt"
	"net/url"

	"github.com/solatis/segmentkeeper/internal/core/db"
	"github.com/solatis/segmentkeeper/internal/types"
)

// Store is the persistence boundary for SegmentKeeper.
// Implementations are safe for concurrent use.
type Store interface {
	// CreateSegment persists seg, assigning an ID when seg.ID is empty.
	CreateSegment(ctx context.Context, seg *types.Segment) error

	// GetSegment returns types.ErrSegmentNotFound when no segment has the ID.
	GetSegment(ctx context.Context, id types.SegmentID) (*types.Segment, error)

	// ListSegments returns segments in insertion order.
	ListSegments(ctx context.Context, offset, limit int) ([]types.Segment, error)
	CountSegments(ctx context.Context) (int, error)

	CreateCommunicationLog(ctx context.Context, log *types.CommunicationLog) error

	// ListCommunicationLogs returns logs newest first.
	ListCommunicationLogs(ctx context.Context, offset, limit int) ([]types.CommunicationLog, error)
	CountCommunicationLogs(ctx context.Context) (int, error)

	CreateCustomer(ctx context.Context, c *types.Customer) error

	// ForEachCustomer streams every stored customer to fn, stopping at the first error.
	ForEachCustomer(ctx context.Context, fn func(*types.Customer) error) error

	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the backend named by the URL scheme.
// SQL backends must already be migrated (see the migrate command).
func Open(ctx context.Context, rawURL string) (Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid store URL: %w", err)
	}

	switch u.Scheme {
	case "mongodb", "mongodb+srv":
		return OpenMongo(ctx, rawURL)
	case "sqlite", "postgres", "postgresql":
		conn, err := db.Open(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		s, err := NewSQLStore(conn)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store scheme: %s (expected sqlite, postgres or mongodb)", u.Scheme)
	}
}

func assignSegmentDefaults(seg *types.Segment) {
	if seg.ID == "" {
		seg.ID = types.NewSegmentID()
	}
	seg.CreatedAt = seg.CreatedAt.UTC()
}

func prepareLog(log *types.CommunicationLog) error {
	for _, d := range log.DeliveryStatuses {
		if !d.Status.Valid() {
			return fmt.Errorf("unknown delivery status %q for customer %s", d.Status, d.CustomerID)
		}
	}
	if log.ID == "" {
		log.ID = types.NewLogID()
	}
	if log.DeliveryStatuses == nil {
		log.DeliveryStatuses = []types.Delivery{}
	}
	log.CreatedAt = log.CreatedAt.UTC()
	return nil
}

func assignCustomerDefaults(c *types.Customer) {
	if c.ID == "" {
		c.ID = types.NewCustomerID()
	}
}
