package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/solatis/segmentkeeper/internal/core/auth"
	"github.com/solatis/segmentkeeper/internal/types"
)

type createSegmentRequest struct {
	Name    string          `json:"name"`
	Rules   json.RawMessage `json:"rules"`
	Message string          `json:"message"`
}

type previewRequest struct {
	Rules json.RawMessage `json:"rules"`
}

type previewResponse struct {
	AudienceSize   int    `json:"audienceSize"`
	EstimatedReach string `json:"estimatedReach"`
}

type suggestionsRequest struct {
	Objective string `json:"objective"`
}

type suggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// errRulesNotArray is reported when the rules member is absent or not a JSON array.
const errRulesNotArray = "Rules array required"

// decodeRules returns ok=false when raw is absent or not a JSON array.
// Elements that do not decode as rules are reported as ErrInvalidRules.
// Numeric values stay json.Number so large integers keep every digit.
func decodeRules(raw json.RawMessage) ([]types.RawRule, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false, nil
	}

	var rules []types.RawRule
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&rules); err != nil {
		return nil, true, fmt.Errorf("%w: %v", types.ErrInvalidRules, err)
	}
	return rules, true, nil
}

// ListSegments handles GET /api/segments?page&limit.
func (h *Handler) ListSegments(c *gin.Context) {
	page, size, err := pageParams(c, h.segments.DefaultPageSize())
	if err != nil {
		h.respondError(c, err, "Failed to fetch segments")
		return
	}

	result, err := h.segments.ListSegments(c.Request.Context(), page, size)
	if err != nil {
		h.respondError(c, err, "Failed to fetch segments")
		return
	}

	c.JSON(http.StatusOK, result)
}

// PreviewSegment handles POST /api/segments/preview.
func (h *Handler) PreviewSegment(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, errRulesNotArray)
		return
	}

	rules, ok, err := decodeRules(req.Rules)
	if !ok {
		badRequest(c, errRulesNotArray)
		return
	}
	if err != nil {
		h.respondError(c, err, "Failed to preview segment")
		return
	}

	est, err := h.segments.Preview(c.Request.Context(), rules)
	if err != nil {
		h.respondError(c, err, "Failed to preview segment")
		return
	}

	c.JSON(http.StatusOK, previewResponse{
		AudienceSize:   est.AudienceSize,
		EstimatedReach: est.EstimatedReach(),
	})
}

// SuggestMessages handles POST /api/message-suggestions.
// Always answers 200 once an objective is present; generator failures degrade to templates.
func (h *Handler) SuggestMessages(c *gin.Context) {
	var req suggestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Objective) == "" {
		badRequest(c, "Objective required")
		return
	}

	c.JSON(http.StatusOK, suggestionsResponse{
		Suggestions: h.suggester.Suggest(c.Request.Context(), req.Objective),
	})
}

// CreateSegment handles POST /api/segments.
func (h *Handler) CreateSegment(c *gin.Context) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: auth.ErrMissingToken.Error()})
		return
	}

	var req createSegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	// The name is checked first so a bad name is reported before bad rules.
	if len([]rune(strings.TrimSpace(req.Name))) < types.MinSegmentNameLength {
		h.respondError(c, types.ErrInvalidName, "Failed to create segment")
		return
	}

	rules, isArray, err := decodeRules(req.Rules)
	if !isArray {
		h.respondError(c, fmt.Errorf("%w: at least one rule required", types.ErrInvalidRules), "Failed to create segment")
		return
	}
	if err != nil {
		h.respondError(c, err, "Failed to create segment")
		return
	}

	seg, err := h.segments.CreateSegment(c.Request.Context(), req.Name, rules, req.Message, principal.OwnerID())
	if err != nil {
		h.respondError(c, err, "Failed to create segment")
		return
	}

	c.JSON(http.StatusCreated, seg)
}
