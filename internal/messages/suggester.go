package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/solatis/segmentkeeper/internal/core/metrics"
	"github.com/solatis/segmentkeeper/internal/types"
)

// MaxSuggestions bounds the number of candidates returned to clients.
const MaxSuggestions = 3

// Generator produces a free-form outreach message for an objective.
// Implementations may call external services and may fail.
type Generator interface {
	Generate(ctx context.Context, objective string) (string, error)
}

// Generation failures that are not transport errors.
var (
	errRateLimited        = fmt.Errorf("%w: rate limited", types.ErrUpstreamUnavailable)
	errEmptyResponse      = fmt.Errorf("%w: empty response", types.ErrUpstreamUnavailable)
	errMissingPlaceholder = fmt.Errorf("%w: response missing %s placeholder", types.ErrUpstreamUnavailable, types.NamePlaceholder)
)

// SuggesterOptions configures the enrichment path.
type SuggesterOptions struct {
	// Timeout bounds a single Generate call. Zero disables the bound.
	Timeout time.Duration
	// Limiter throttles Generate calls; nil means unlimited.
	Limiter *rate.Limiter
	Logger  *zap.Logger
}

// Suggester returns message candidates for an objective, optionally enriched
// by a Generator. Safe for concurrent use.
type Suggester struct {
	generator Generator
	timeout   time.Duration
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// NewSuggester creates a suggester. A nil generator disables enrichment.
func NewSuggester(generator Generator, opts SuggesterOptions) *Suggester {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Suggester{
		generator: generator,
		timeout:   opts.Timeout,
		limiter:   opts.Limiter,
		logger:    logger,
	}
}

// Suggest returns 1-3 candidates, each containing the [Name] placeholder.
// Generator failures are logged and replaced by the deterministic templates.
func (s *Suggester) Suggest(ctx context.Context, objective string) []string {
	fallback := Select(objective)
	if s.generator == nil {
		return fallback
	}

	generated, err := s.generate(ctx, objective)
	if err != nil {
		reason := fallbackReason(err)
		metrics.RecordSuggestionFallback(reason)
		s.logger.Warn("message generation failed, using templates",
			zap.String("reason", reason),
			zap.Error(err))
		return fallback
	}

	out := make([]string, 0, MaxSuggestions)
	out = append(out, generated)
	for _, t := range fallback {
		if len(out) == MaxSuggestions {
			break
		}
		out = append(out, t)
	}
	return out
}

// generate calls the generator under the limiter and timeout and validates its output.
func (s *Suggester) generate(ctx context.Context, objective string) (string, error) {
	if s.limiter != nil && !s.limiter.Allow() {
		return "", errRateLimited
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	text, err := s.generator.Generate(ctx, objective)
	if err != nil {
		if errors.Is(err, types.ErrUpstreamUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", types.ErrUpstreamUnavailable, err)
	}

	text = CleanGenerated(text)
	if text == "" {
		return "", errEmptyResponse
	}
	if !HasPlaceholder(text) {
		return "", errMissingPlaceholder
	}
	return text, nil
}

// CleanGenerated strips markdown code fences and surrounding whitespace.
func CleanGenerated(text string) string {
	text = strings.ReplaceAll(text, "```javascript", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// fallbackReason classifies a generation failure for metrics labels.
func fallbackReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, errRateLimited):
		return "rate_limited"
	case errors.Is(err, errEmptyResponse):
		return "empty"
	case errors.Is(err, errMissingPlaceholder):
		return "invalid"
	default:
		return "error"
	}
}
