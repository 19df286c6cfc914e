package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/segmentkeeper/internal/core/db"
	"github.com/solatis/segmentkeeper/internal/types"
)

// customerBatchSize bounds rows held in memory while streaming customers.
const customerBatchSize = 500

// SQLStore implements Store on SQLite or PostgreSQL.
// Timestamps are stored as RFC 3339 text in UTC; rules and deliveries as JSON.
type SQLStore struct {
	conn    *sqlx.DB
	queries *db.Queries
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps a migrated connection.
func NewSQLStore(conn *sqlx.DB) (*SQLStore, error) {
	queries, err := db.LoadQueries(conn)
	if err != nil {
		return nil, err
	}
	return &SQLStore{conn: conn, queries: queries}, nil
}

// DB returns the underlying connection for migration checks.
func (s *SQLStore) DB() *sqlx.DB {
	return s.conn
}

type segmentRow struct {
	ID        string `db:"segment_id"`
	Name      string `db:"name"`
	Rules     string `db:"rules"`
	Message   string `db:"message"`
	OwnerID   string `db:"owner_id"`
	CreatedAt string `db:"created_at"`
}

func (r segmentRow) toSegment() (types.Segment, error) {
	seg := types.Segment{
		ID:      types.SegmentID(r.ID),
		Name:    r.Name,
		Message: r.Message,
		OwnerID: types.PrincipalID(r.OwnerID),
	}
	if err := json.Unmarshal([]byte(r.Rules), &seg.Rules); err != nil {
		return types.Segment{}, fmt.Errorf("failed to decode rules for segment %s: %w", r.ID, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return types.Segment{}, fmt.Errorf("failed to parse created_at for segment %s: %w", r.ID, err)
	}
	seg.CreatedAt = createdAt
	return seg, nil
}

type logRow struct {
	ID               string `db:"log_id"`
	SegmentID        string `db:"segment_id"`
	CampaignName     string `db:"campaign_name"`
	Message          string `db:"message"`
	AudienceSize     int    `db:"audience_size"`
	DeliveryStatuses string `db:"delivery_statuses"`
	CreatedAt        string `db:"created_at"`
}

func (r logRow) toLog() (types.CommunicationLog, error) {
	log := types.CommunicationLog{
		ID:           types.LogID(r.ID),
		SegmentID:    types.SegmentID(r.SegmentID),
		CampaignName: r.CampaignName,
		Message:      r.Message,
		AudienceSize: r.AudienceSize,
	}
	if err := json.Unmarshal([]byte(r.DeliveryStatuses), &log.DeliveryStatuses); err != nil {
		return types.CommunicationLog{}, fmt.Errorf("failed to decode deliveries for log %s: %w", r.ID, err)
	}
	if log.DeliveryStatuses == nil {
		log.DeliveryStatuses = []types.Delivery{}
	}
	createdAt, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return types.CommunicationLog{}, fmt.Errorf("failed to parse created_at for log %s: %w", r.ID, err)
	}
	log.CreatedAt = createdAt
	return log, nil
}

type customerRow struct {
	Seq              int64          `db:"seq"`
	ID               string         `db:"customer_id"`
	Name             string         `db:"name"`
	Email            string         `db:"email"`
	TotalSpend       float64        `db:"total_spend"`
	VisitCount       int            `db:"visit_count"`
	LastPurchaseDate sql.NullString `db:"last_purchase_date"`
}

func (r customerRow) toCustomer() (types.Customer, error) {
	c := types.Customer{
		ID:         types.CustomerID(r.ID),
		Name:       r.Name,
		Email:      r.Email,
		TotalSpend: r.TotalSpend,
		VisitCount: r.VisitCount,
	}
	if r.LastPurchaseDate.Valid && r.LastPurchaseDate.String != "" {
		ts, err := time.Parse(time.RFC3339Nano, r.LastPurchaseDate.String)
		if err != nil {
			return types.Customer{}, fmt.Errorf("failed to parse last_purchase_date for customer %s: %w", r.ID, err)
		}
		c.LastPurchaseDate = ts
	}
	return c, nil
}

func (s *SQLStore) CreateSegment(ctx context.Context, seg *types.Segment) error {
	assignSegmentDefaults(seg)

	rules, err := json.Marshal(seg.Rules)
	if err != nil {
		return fmt.Errorf("failed to encode rules: %w", err)
	}

	_, err = s.queries.ExecContext(ctx, "insert-segment",
		string(seg.ID), seg.Name, string(rules), seg.Message, string(seg.OwnerID),
		seg.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert segment: %w", err)
	}
	return nil
}

func (s *SQLStore) GetSegment(ctx context.Context, id types.SegmentID) (*types.Segment, error) {
	var row segmentRow
	err := s.queries.GetContext(ctx, "get-segment", &row, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", types.ErrSegmentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load segment %s: %w", id, err)
	}

	seg, err := row.toSegment()
	if err != nil {
		return nil, err
	}
	return &seg, nil
}

func (s *SQLStore) ListSegments(ctx context.Context, offset, limit int) ([]types.Segment, error) {
	var rows []segmentRow
	if err := s.queries.SelectContext(ctx, "list-segments", &rows, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}

	segments := make([]types.Segment, 0, len(rows))
	for _, row := range rows {
		seg, err := row.toSegment()
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func (s *SQLStore) CountSegments(ctx context.Context) (int, error) {
	var count int
	if err := s.queries.GetContext(ctx, "count-segments", &count); err != nil {
		return 0, fmt.Errorf("failed to count segments: %w", err)
	}
	return count, nil
}

func (s *SQLStore) CreateCommunicationLog(ctx context.Context, log *types.CommunicationLog) error {
	if err := prepareLog(log); err != nil {
		return err
	}

	deliveries, err := json.Marshal(log.DeliveryStatuses)
	if err != nil {
		return fmt.Errorf("failed to encode deliveries: %w", err)
	}

	_, err = s.queries.ExecContext(ctx, "insert-communication-log",
		string(log.ID), string(log.SegmentID), log.CampaignName, log.Message,
		log.AudienceSize, string(deliveries), log.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert communication log: %w", err)
	}
	return nil
}

func (s *SQLStore) ListCommunicationLogs(ctx context.Context, offset, limit int) ([]types.CommunicationLog, error) {
	var rows []logRow
	if err := s.queries.SelectContext(ctx, "list-communication-logs", &rows, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list communication logs: %w", err)
	}

	logs := make([]types.CommunicationLog, 0, len(rows))
	for _, row := range rows {
		log, err := row.toLog()
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, nil
}

func (s *SQLStore) CountCommunicationLogs(ctx context.Context) (int, error) {
	var count int
	if err := s.queries.GetContext(ctx, "count-communication-logs", &count); err != nil {
		return 0, fmt.Errorf("failed to count communication logs: %w", err)
	}
	return count, nil
}

func (s *SQLStore) CreateCustomer(ctx context.Context, c *types.Customer) error {
	assignCustomerDefaults(c)

	var lastPurchase sql.NullString
	if !c.LastPurchaseDate.IsZero() {
		lastPurchase = sql.NullString{String: c.LastPurchaseDate.UTC().Format(time.RFC3339Nano), Valid: true}
	}

	_, err := s.queries.ExecContext(ctx, "insert-customer",
		string(c.ID), c.Name, c.Email, c.TotalSpend, c.VisitCount, lastPurchase,
	)
	if err != nil {
		return fmt.Errorf("failed to insert customer %s: %w", c.ID, err)
	}
	return nil
}

// ForEachCustomer pages through customers by seq so no cursor is held open
// while fn runs.
func (s *SQLStore) ForEachCustomer(ctx context.Context, fn func(*types.Customer) error) error {
	var after int64
	for {
		var rows []customerRow
		if err := s.queries.SelectContext(ctx, "list-customers-after", &rows, after, customerBatchSize); err != nil {
			return fmt.Errorf("failed to list customers: %w", err)
		}

		for _, row := range rows {
			c, err := row.toCustomer()
			if err != nil {
				return err
			}
			if err := fn(&c); err != nil {
				return err
			}
			after = row.Seq
		}

		if len(rows) < customerBatchSize {
			return nil
		}
	}
}

func (s *SQLStore) Ping(ctx context.Context) error {
	var one int
	return s.queries.GetContext(ctx, "ping", &one)
}

func (s *SQLStore) Close() error {
	return s.conn.Close()
}
