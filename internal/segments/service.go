// Package segments validates and persists segments and records campaigns against them.
//
// Segment creation is a small state machine: a request is Received, then either
// Rejected (name, rules or message invalid) or Validated and then Persisted.
// Nothing is written until every check has passed.
package segments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/solatis/segmentkeeper/internal/audience"
	"github.com/solatis/segmentkeeper/internal/core/metrics"
	"github.com/solatis/segmentkeeper/internal/messages"
	"github.com/solatis/segmentkeeper/internal/rules"
	"github.com/solatis/segmentkeeper/internal/types"
	"go.uber.org/zap"
)

// Store is the persistence the service needs. Satisfied by store.Store.
type Store interface {
	CreateSegment(ctx context.Context, seg *types.Segment) error
	GetSegment(ctx context.Context, id types.SegmentID) (*types.Segment, error)
	ListSegments(ctx context.Context, offset, limit int) ([]types.Segment, error)
	CountSegments(ctx context.Context) (int, error)
	CreateCommunicationLog(ctx context.Context, log *types.CommunicationLog) error
	ListCommunicationLogs(ctx context.Context, offset, limit int) ([]types.CommunicationLog, error)
	CountCommunicationLogs(ctx context.Context) (int, error)
}

// Options configures pagination and collaborators.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
	Logger          *zap.Logger

	// Now returns the creation timestamp; defaults to time.Now.
	Now func() time.Time
}

// Service implements segment creation, listing, preview and campaign history.
type Service struct {
	store           Store
	estimator       audience.Estimator
	logger          *zap.Logger
	now             func() time.Time
	defaultPageSize int
	maxPageSize     int
}

// NewService wires a service to its store and audience estimator.
func NewService(store Store, estimator audience.Estimator, opts Options) *Service {
	s := &Service{
		store:           store,
		estimator:       estimator,
		logger:          opts.Logger,
		now:             opts.Now,
		defaultPageSize: opts.DefaultPageSize,
		maxPageSize:     opts.MaxPageSize,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.defaultPageSize <= 0 {
		s.defaultPageSize = types.DefaultPageSize
	}
	if s.maxPageSize <= 0 {
		s.maxPageSize = types.MaxPageSize
	}
	return s
}

// DefaultPageSize is the page size used when a caller does not ask for one.
func (s *Service) DefaultPageSize() int {
	return s.defaultPageSize
}

// CreateSegment validates the request and persists a new segment.
// Returns ErrInvalidName, ErrInvalidRules or ErrInvalidMessage without touching
// the store, and ErrStoreFailure when the write fails.
func (s *Service) CreateSegment(ctx context.Context, name string, raw []types.RawRule, message string, owner types.PrincipalID) (*types.Segment, error) {
	start := time.Now()
	s.logger.Debug("segment received", zap.String("owner", string(owner)))

	seg, err := s.validate(name, raw, message, owner)
	if err != nil {
		metrics.RecordSegmentCreate("rejected", time.Since(start).Seconds())
		s.logger.Debug("segment rejected", zap.Error(err))
		return nil, err
	}
	s.logger.Debug("segment validated", zap.String("name", seg.Name), zap.Int("rules", len(seg.Rules)))

	if err := s.store.CreateSegment(ctx, seg); err != nil {
		metrics.RecordSegmentCreate("failed", time.Since(start).Seconds())
		s.logger.Error("failed to persist segment", zap.String("name", seg.Name), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", types.ErrStoreFailure, err)
	}

	metrics.RecordSegmentCreate("persisted", time.Since(start).Seconds())
	s.logger.Debug("segment persisted", zap.String("id", string(seg.ID)), zap.String("name", seg.Name))
	return seg, nil
}

func (s *Service) validate(name string, raw []types.RawRule, message string, owner types.PrincipalID) (*types.Segment, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < types.MinSegmentNameLength {
		return nil, types.ErrInvalidName
	}

	normalized, err := rules.Normalize(raw)
	if err != nil {
		return nil, err
	}

	message = strings.TrimSpace(message)
	if !messages.HasPlaceholder(message) {
		return nil, types.ErrInvalidMessage
	}

	return &types.Segment{
		Name:      name,
		Rules:     normalized,
		Message:   message,
		OwnerID:   owner,
		CreatedAt: s.now().UTC(),
	}, nil
}

// Page is one page of segments.
type Page struct {
	Segments    []types.Segment `json:"segments"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
}

// ListSegments returns segments in insertion order. Page is 1-based and
// pageSize is capped at the configured maximum.
func (s *Service) ListSegments(ctx context.Context, page, pageSize int) (*Page, error) {
	offset, limit, err := s.window(page, pageSize)
	if err != nil {
		return nil, err
	}

	total, err := s.store.CountSegments(ctx)
	if err != nil {
		s.logger.Error("failed to count segments", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", types.ErrStoreFailure, err)
	}

	segments, err := s.store.ListSegments(ctx, offset, limit)
	if err != nil {
		s.logger.Error("failed to list segments", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", types.ErrStoreFailure, err)
	}
	if segments == nil {
		segments = []types.Segment{}
	}

	return &Page{
		Segments:    segments,
		TotalPages:  types.TotalPages(total, limit),
		CurrentPage: page,
	}, nil
}

func (s *Service) window(page, pageSize int) (offset, limit int, err error) {
	if page < 1 || pageSize < 1 {
		return 0, 0, fmt.Errorf("%w: page and limit must be positive", types.ErrInvalidPage)
	}
	limit = min(pageSize, s.maxPageSize)
	if page-1 > (math.MaxInt-1)/limit {
		return 0, 0, fmt.Errorf("%w: page %d is out of range", types.ErrInvalidPage, page)
	}
	return (page - 1) * limit, limit, nil
}

// Preview normalizes the rules and estimates the audience they would reach.
func (s *Service) Preview(ctx context.Context, raw []types.RawRule) (audience.Estimate, error) {
	normalized, err := rules.Normalize(raw)
	if err != nil {
		return audience.Estimate{}, err
	}

	est, err := s.estimator.Estimate(ctx, normalized)
	if err != nil {
		s.logger.Error("audience estimation failed", zap.Error(err))
		return audience.Estimate{}, err
	}

	metrics.RecordAudienceEstimate(est.AudienceSize)
	return est, nil
}

// RecordCampaign logs a campaign send against an existing segment with an
// audience snapshot. No messages are dispatched.
func (s *Service) RecordCampaign(ctx context.Context, segmentID types.SegmentID, campaignName, message string) (*types.CommunicationLog, error) {
	campaignName = strings.TrimSpace(campaignName)
	if campaignName == "" {
		return nil, fmt.Errorf("%w: campaign name required", types.ErrInvalidCampaign)
	}
	if strings.TrimSpace(string(segmentID)) == "" {
		return nil, fmt.Errorf("%w: segment id required", types.ErrInvalidCampaign)
	}
	segmentID, err := types.ParseSegmentID(strings.TrimSpace(string(segmentID)))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed segment id", types.ErrInvalidCampaign)
	}
	message = strings.TrimSpace(message)
	if !messages.HasPlaceholder(message) {
		return nil, types.ErrInvalidMessage
	}

	seg, err := s.store.GetSegment(ctx, segmentID)
	if errors.Is(err, types.ErrSegmentNotFound) {
		return nil, err
	}
	if err != nil {
		s.logger.Error("failed to load segment", zap.String("segment_id", string(segmentID)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", types.ErrStoreFailure, err)
	}

	est, err := s.estimator.Estimate(ctx, seg.Rules)
	if err != nil {
		s.logger.Error("audience estimation failed", zap.String("segment_id", string(segmentID)), zap.Error(err))
		return nil, err
	}

	log := &types.CommunicationLog{
		SegmentID:        seg.ID,
		CampaignName:     campaignName,
		Message:          message,
		AudienceSize:     est.AudienceSize,
		DeliveryStatuses: []types.Delivery{},
		CreatedAt:        s.now().UTC(),
	}
	if err := s.store.CreateCommunicationLog(ctx, log); err != nil {
		s.logger.Error("failed to persist communication log", zap.String("segment_id", string(segmentID)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", types.ErrStoreFailure, err)
	}

	s.logger.Info("campaign recorded",
		zap.String("id", string(log.ID)),
		zap.String("segment_id", string(seg.ID)),
		zap.Int("audience_size", log.AudienceSize))
	return log, nil
}

// CampaignPage is one page of campaign history.
type CampaignPage struct {
	Campaigns   []types.CampaignRecord `json:"campaigns"`
	TotalPages  int                    `json:"totalPages"`
	CurrentPage int                    `json:"currentPage"`
}

// CampaignHistory returns campaign logs newest first, each joined with its
// segment's name and rules when the segment still exists.
func (s *Service) CampaignHistory(ctx context.Context, page, pageSize int) (*CampaignPage, error) {
	offset, limit, err := s.window(page, pageSize)
	if err != nil {
		return nil, err
	}

	total, err := s.store.CountCommunicationLogs(ctx)
	if err != nil {
		s.logger.Error("failed to count communication logs", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", types.ErrStoreFailure, err)
	}

	logs, err := s.store.ListCommunicationLogs(ctx, offset, limit)
	if err != nil {
		s.logger.Error("failed to list communication logs", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", types.ErrStoreFailure, err)
	}

	segments := make(map[types.SegmentID]*types.Segment)
	records := make([]types.CampaignRecord, 0, len(logs))
	for _, log := range logs {
		seg, ok := segments[log.SegmentID]
		if !ok {
			seg, err = s.store.GetSegment(ctx, log.SegmentID)
			switch {
			case errors.Is(err, types.ErrSegmentNotFound):
				seg = nil
			case err != nil:
				s.logger.Error("failed to load segment", zap.String("segment_id", string(log.SegmentID)), zap.Error(err))
				return nil, fmt.Errorf("%w: %w", types.ErrStoreFailure, err)
			}
			segments[log.SegmentID] = seg
		}

		record := types.CampaignRecord{CommunicationLog: log}
		if seg != nil {
			record.SegmentName = seg.Name
			record.Rules = seg.Rules
		}
		records = append(records, record)
	}

	return &CampaignPage{
		Campaigns:   records,
		TotalPages:  types.TotalPages(total, limit),
		CurrentPage: page,
	}, nil
}
