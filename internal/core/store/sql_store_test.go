package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/solatis/segmentkeeper/internal/core/db"
	"github.com/solatis/segmentkeeper/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	ctx := context.Background()

	conn, err := db.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	_, err = db.MigrateUp(ctx, conn)
	require.NoError(t, err)

	s, err := NewSQLStore(conn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSegment(name string) *types.Segment {
	return &types.Segment{
		Name:      name,
		Rules:     []types.Rule{{Field: types.FieldTotalSpend, Operator: types.OpGreaterThan, Value: "1000"}},
		Message:   "Hi [Name], thanks for shopping with us",
		OwnerID:   "admin-1",
		CreatedAt: time.Date(2025, 3, 14, 9, 26, 53, 589000000, time.UTC),
	}
}

func TestSQLStoreSegments(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLStore(t)

	seg := sampleSegment("High Spenders")
	require.NoError(t, s.CreateSegment(ctx, seg))
	require.NotEmpty(t, seg.ID, "store assigns an ID")

	got, err := s.GetSegment(ctx, seg.ID)
	require.NoError(t, err)
	assert.Equal(t, seg.Name, got.Name)
	assert.Equal(t, seg.Rules, got.Rules)
	assert.Equal(t, seg.Message, got.Message)
	assert.Equal(t, seg.OwnerID, got.OwnerID)
	assert.True(t, seg.CreatedAt.Equal(got.CreatedAt), "created_at round-trips with sub-second precision")

	_, err = s.GetSegment(ctx, types.NewSegmentID())
	assert.True(t, errors.Is(err, types.ErrSegmentNotFound))
}

func TestSQLStorePagination(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLStore(t)

	for i := 1; i <= 25; i++ {
		require.NoError(t, s.CreateSegment(ctx, sampleSegment(fmt.Sprintf("Segment %02d", i))))
	}

	count, err := s.CountSegments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, count)
	assert.Equal(t, 3, types.TotalPages(count, 10))

	page3, err := s.ListSegments(ctx, 20, 10)
	require.NoError(t, err)
	require.Len(t, page3, 5)
	assert.Equal(t, "Segment 21", page3[0].Name, "insertion order preserved")
	assert.Equal(t, "Segment 25", page3[4].Name)

	beyond, err := s.ListSegments(ctx, 30, 10)
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestSQLStoreCommunicationLogs(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLStore(t)

	seg := sampleSegment("Loyal Customers")
	require.NoError(t, s.CreateSegment(ctx, seg))

	for i := 1; i <= 3; i++ {
		log := &types.CommunicationLog{
			SegmentID:    seg.ID,
			CampaignName: fmt.Sprintf("Campaign %d", i),
			Message:      "Hi [Name]",
			AudienceSize: 100 * i,
			CreatedAt:    time.Now().UTC(),
		}
		require.NoError(t, s.CreateCommunicationLog(ctx, log))
		require.NotEmpty(t, log.ID)
	}

	count, err := s.CountCommunicationLogs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	logs, err := s.ListCommunicationLogs(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "Campaign 3", logs[0].CampaignName, "newest first")
	assert.Equal(t, seg.ID, logs[0].SegmentID)
	assert.Equal(t, 300, logs[0].AudienceSize)
	assert.NotNil(t, logs[0].DeliveryStatuses)
	assert.Empty(t, logs[0].DeliveryStatuses)
}

func TestSQLStoreRejectsUnknownDeliveryStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLStore(t)

	err := s.CreateCommunicationLog(ctx, &types.CommunicationLog{
		SegmentID:    types.NewSegmentID(),
		CampaignName: "Bounced",
		Message:      "Hi [Name]",
		DeliveryStatuses: []types.Delivery{
			{CustomerID: types.NewCustomerID(), Status: types.DeliverySent},
			{CustomerID: types.NewCustomerID(), Status: "BOUNCED"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOUNCED")

	count, err := s.CountCommunicationLogs(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSQLStoreCustomers(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLStore(t)

	purchased := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateCustomer(ctx, &types.Customer{Name: "Ada", TotalSpend: 1500, VisitCount: 4, LastPurchaseDate: purchased}))
	require.NoError(t, s.CreateCustomer(ctx, &types.Customer{Name: "Grace", TotalSpend: 20}))

	var seen []types.Customer
	err := s.ForEachCustomer(ctx, func(c *types.Customer) error {
		seen = append(seen, *c)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.Equal(t, "Ada", seen[0].Name)
	assert.True(t, purchased.Equal(seen[0].LastPurchaseDate))
	assert.True(t, seen[1].LastPurchaseDate.IsZero())

	stop := errors.New("stop")
	err = s.ForEachCustomer(ctx, func(*types.Customer) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestSQLStorePing(t *testing.T) {
	s := newTestSQLStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestOpenUnsupportedScheme(t *testing.T) {
	_, err := Open(context.Background(), "redis://localhost:6379")
	assert.Error(t, err)
}
