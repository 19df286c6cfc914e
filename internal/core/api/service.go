// Package api exposes the segment, message-suggestion and campaign routes over HTTP/JSON.
package api

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/solatis/segmentkeeper/internal/core/auth"
	"github.com/solatis/segmentkeeper/internal/segments"
	"go.uber.org/zap"
)

// Suggester produces candidate outreach messages for an objective.
type Suggester interface {
	Suggest(ctx context.Context, objective string) []string
}

// Handler serves the /api routes.
// Thin layer: request decoding, principal checks and error mapping only.
type Handler struct {
	segments    *segments.Service
	suggester   Suggester
	auth        *auth.Authenticator
	logger      *zap.Logger
	development bool
}

// Options configures a Handler.
type Options struct {
	Logger *zap.Logger

	// Development includes error details in 5xx responses.
	Development bool
}

// NewHandler creates the API handler with its dependencies.
func NewHandler(svc *segments.Service, suggester Suggester, authenticator *auth.Authenticator, opts Options) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("segment service cannot be nil")
	}
	if suggester == nil {
		return nil, errors.New("suggester cannot be nil")
	}
	if authenticator == nil {
		return nil, errors.New("authenticator cannot be nil")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Handler{
		segments:    svc,
		suggester:   suggester,
		auth:        authenticator,
		logger:      logger,
		development: opts.Development,
	}, nil
}

// Register mounts every /api route on r.
// Reads need any authenticated principal; writes and AI calls need an admin.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api", h.auth.Middleware())
	api.GET("/segments", h.ListSegments)
	api.GET("/campaigns/history", h.CampaignHistory)

	admin := api.Group("", auth.RequireAdmin())
	admin.POST("/segments/preview", h.PreviewSegment)
	admin.POST("/message-suggestions", h.SuggestMessages)
	admin.POST("/segments", h.CreateSegment)
	admin.POST("/campaigns", h.RecordCampaign)
}
