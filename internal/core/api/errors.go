package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/solatis/segmentkeeper/internal/types"
	"go.uber.org/zap"
)

// errorResponse is the JSON body of every failed request.
// Details carries the internal error text and is only set in development.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// statusFor maps domain sentinels onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidName),
		errors.Is(err, types.ErrInvalidRules),
		errors.Is(err, types.ErrInvalidMessage),
		errors.Is(err, types.ErrInvalidPage),
		errors.Is(err, types.ErrInvalidCampaign):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrSegmentNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its mapped status. Client errors expose the
// error text; server errors expose only summary, plus details in development.
func (h *Handler) respondError(c *gin.Context, err error, summary string) {
	status := statusFor(err)
	if status < http.StatusInternalServerError {
		c.JSON(status, errorResponse{Error: capitalize(err.Error())})
		return
	}

	h.logger.Error(summary, zap.String("route", c.FullPath()), zap.Error(err))
	_ = c.Error(err)

	resp := errorResponse{Error: summary}
	if h.development {
		resp.Details = err.Error()
	}
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// pageParams reads ?page and ?limit, falling back to defaults when absent.
// Present but malformed values are rejected rather than silently defaulted.
func pageParams(c *gin.Context, defaultSize int) (page, size int, err error) {
	page, err = intQuery(c, "page", types.DefaultPage)
	if err != nil {
		return 0, 0, err
	}
	size, err = intQuery(c, "limit", defaultSize)
	if err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", types.ErrInvalidPage, key)
	}
	return v, nil
}
