package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/solatis/segmentkeeper/internal/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

// Collection names and the database used when the URI names none.
const (
	SegmentsCollection          = "segments"
	CommunicationLogsCollection = "communication_logs"
	CustomersCollection         = "customers"

	DefaultMongoDatabase = "segmentkeeper"
)

const mongoConnectTimeout = 10 * time.Second

// MongoStore implements Store on MongoDB collections.
// Documents use camelCase keys and UUIDv7 string _id values.
type MongoStore struct {
	client    *mongo.Client
	segments  *mongo.Collection
	logs      *mongo.Collection
	customers *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

// OpenMongo connects to uri and verifies the primary is reachable.
func OpenMongo(ctx context.Context, uri string) (*MongoStore, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid mongodb URI: %w", err)
	}
	database := cs.Database
	if database == "" {
		database = DefaultMongoDatabase
	}

	connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := NewMongoStore(client.Database(database))
	s.client = client
	return s, nil
}

// NewMongoStore uses the given database without owning its client.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		segments:  db.Collection(SegmentsCollection),
		logs:      db.Collection(CommunicationLogsCollection),
		customers: db.Collection(CustomersCollection),
	}
}

type ruleDoc struct {
	Field    string `bson:"field"`
	Operator string `bson:"operator"`
	Value    string `bson:"value"`
}

type segmentDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Rules     []ruleDoc `bson:"rules"`
	Message   string    `bson:"message"`
	OwnerID   string    `bson:"ownerId"`
	CreatedAt time.Time `bson:"createdAt"`
}

func newSegmentDoc(seg *types.Segment) segmentDoc {
	doc := segmentDoc{
		ID:        string(seg.ID),
		Name:      seg.Name,
		Rules:     make([]ruleDoc, 0, len(seg.Rules)),
		Message:   seg.Message,
		OwnerID:   string(seg.OwnerID),
		CreatedAt: seg.CreatedAt,
	}
	for _, r := range seg.Rules {
		doc.Rules = append(doc.Rules, ruleDoc{Field: string(r.Field), Operator: string(r.Operator), Value: r.Value})
	}
	return doc
}

func (d segmentDoc) toSegment() types.Segment {
	seg := types.Segment{
		ID:        types.SegmentID(d.ID),
		Name:      d.Name,
		Rules:     make([]types.Rule, 0, len(d.Rules)),
		Message:   d.Message,
		OwnerID:   types.PrincipalID(d.OwnerID),
		CreatedAt: d.CreatedAt.UTC(),
	}
	for _, r := range d.Rules {
		seg.Rules = append(seg.Rules, types.Rule{
			Field:    types.Field(r.Field),
			Operator: types.Operator(r.Operator),
			Value:    r.Value,
		})
	}
	return seg
}

type deliveryDoc struct {
	CustomerID string `bson:"customerId"`
	Status     string `bson:"status"`
}

type logDoc struct {
	ID               string        `bson:"_id"`
	SegmentID        string        `bson:"segmentId"`
	CampaignName     string        `bson:"campaignName"`
	Message          string        `bson:"message"`
	AudienceSize     int           `bson:"audienceSize"`
	DeliveryStatuses []deliveryDoc `bson:"deliveryStatuses"`
	CreatedAt        time.Time     `bson:"createdAt"`
}

func newLogDoc(log *types.CommunicationLog) logDoc {
	doc := logDoc{
		ID:               string(log.ID),
		SegmentID:        string(log.SegmentID),
		CampaignName:     log.CampaignName,
		Message:          log.Message,
		AudienceSize:     log.AudienceSize,
		DeliveryStatuses: make([]deliveryDoc, 0, len(log.DeliveryStatuses)),
		CreatedAt:        log.CreatedAt,
	}
	for _, d := range log.DeliveryStatuses {
		doc.DeliveryStatuses = append(doc.DeliveryStatuses, deliveryDoc{CustomerID: string(d.CustomerID), Status: string(d.Status)})
	}
	return doc
}

func (d logDoc) toLog() types.CommunicationLog {
	log := types.CommunicationLog{
		ID:               types.LogID(d.ID),
		SegmentID:        types.SegmentID(d.SegmentID),
		CampaignName:     d.CampaignName,
		Message:          d.Message,
		AudienceSize:     d.AudienceSize,
		DeliveryStatuses: make([]types.Delivery, 0, len(d.DeliveryStatuses)),
		CreatedAt:        d.CreatedAt.UTC(),
	}
	for _, del := range d.DeliveryStatuses {
		log.DeliveryStatuses = append(log.DeliveryStatuses, types.Delivery{
			CustomerID: types.CustomerID(del.CustomerID),
			Status:     types.DeliveryStatus(del.Status),
		})
	}
	return log
}

type customerDoc struct {
	ID               string     `bson:"_id"`
	Name             string     `bson:"name"`
	Email            string     `bson:"email"`
	TotalSpend       float64    `bson:"totalSpend"`
	VisitCount       int        `bson:"visitCount"`
	LastPurchaseDate *time.Time `bson:"lastPurchaseDate,omitempty"`
}

func (d customerDoc) toCustomer() types.Customer {
	c := types.Customer{
		ID:         types.CustomerID(d.ID),
		Name:       d.Name,
		Email:      d.Email,
		TotalSpend: d.TotalSpend,
		VisitCount: d.VisitCount,
	}
	if d.LastPurchaseDate != nil {
		c.LastPurchaseDate = d.LastPurchaseDate.UTC()
	}
	return c
}

func (s *MongoStore) CreateSegment(ctx context.Context, seg *types.Segment) error {
	assignSegmentDefaults(seg)
	if _, err := s.segments.InsertOne(ctx, newSegmentDoc(seg)); err != nil {
		return fmt.Errorf("failed to insert segment: %w", err)
	}
	return nil
}

func (s *MongoStore) GetSegment(ctx context.Context, id types.SegmentID) (*types.Segment, error) {
	var doc segmentDoc
	err := s.segments.FindOne(ctx, bson.D{{Key: "_id", Value: string(id)}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", types.ErrSegmentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load segment %s: %w", id, err)
	}

	seg := doc.toSegment()
	return &seg, nil
}

// insertionOrder sorts by creation time with the time-ordered _id as tiebreak.
func insertionOrder(direction int) bson.D {
	return bson.D{{Key: "createdAt", Value: direction}, {Key: "_id", Value: direction}}
}

func pageOptions(offset, limit, direction int) *options.FindOptions {
	return options.Find().
		SetSort(insertionOrder(direction)).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
}

func (s *MongoStore) ListSegments(ctx context.Context, offset, limit int) ([]types.Segment, error) {
	cursor, err := s.segments.Find(ctx, bson.D{}, pageOptions(offset, limit, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}

	var docs []segmentDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode segments: %w", err)
	}

	segments := make([]types.Segment, 0, len(docs))
	for _, doc := range docs {
		segments = append(segments, doc.toSegment())
	}
	return segments, nil
}

func (s *MongoStore) CountSegments(ctx context.Context) (int, error) {
	n, err := s.segments.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count segments: %w", err)
	}
	return int(n), nil
}

func (s *MongoStore) CreateCommunicationLog(ctx context.Context, log *types.CommunicationLog) error {
	if err := prepareLog(log); err != nil {
		return err
	}
	if _, err := s.logs.InsertOne(ctx, newLogDoc(log)); err != nil {
		return fmt.Errorf("failed to insert communication log: %w", err)
	}
	return nil
}

func (s *MongoStore) ListCommunicationLogs(ctx context.Context, offset, limit int) ([]types.CommunicationLog, error) {
	cursor, err := s.logs.Find(ctx, bson.D{}, pageOptions(offset, limit, -1))
	if err != nil {
		return nil, fmt.Errorf("failed to list communication logs: %w", err)
	}

	var docs []logDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode communication logs: %w", err)
	}

	logs := make([]types.CommunicationLog, 0, len(docs))
	for _, doc := range docs {
		logs = append(logs, doc.toLog())
	}
	return logs, nil
}

func (s *MongoStore) CountCommunicationLogs(ctx context.Context) (int, error) {
	n, err := s.logs.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count communication logs: %w", err)
	}
	return int(n), nil
}

func (s *MongoStore) CreateCustomer(ctx context.Context, c *types.Customer) error {
	assignCustomerDefaults(c)

	doc := customerDoc{
		ID:         string(c.ID),
		Name:       c.Name,
		Email:      c.Email,
		TotalSpend: c.TotalSpend,
		VisitCount: c.VisitCount,
	}
	if !c.LastPurchaseDate.IsZero() {
		ts := c.LastPurchaseDate.UTC()
		doc.LastPurchaseDate = &ts
	}

	if _, err := s.customers.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert customer %s: %w", c.ID, err)
	}
	return nil
}

func (s *MongoStore) ForEachCustomer(ctx context.Context, fn func(*types.Customer) error) error {
	cursor, err := s.customers.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return fmt.Errorf("failed to list customers: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc customerDoc
		if err := cursor.Decode(&doc); err != nil {
			return fmt.Errorf("failed to decode customer: %w", err)
		}
		c := doc.toCustomer()
		if err := fn(&c); err != nil {
			return err
		}
	}
	return cursor.Err()
}

func (s *MongoStore) Ping(ctx context.Context) error {
	if s.client == nil {
		return s.segments.Database().RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
	}
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client when the store opened it.
func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
