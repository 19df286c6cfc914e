package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/solatis/segmentkeeper/internal/audience"
	"github.com/solatis/segmentkeeper/internal/core/auth"
	"github.com/solatis/segmentkeeper/internal/core/db"
	"github.com/solatis/segmentkeeper/internal/core/store"
	"github.com/solatis/segmentkeeper/internal/messages"
	"github.com/solatis/segmentkeeper/internal/segments"
	"github.com/solatis/segmentkeeper/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte(strings.Repeat("k", 32))

type testEnv struct {
	router *gin.Engine
	store  *store.SQLStore
	admin  string
	user   string
}

func newTestEnv(t *testing.T, development bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	conn, err := db.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	_, err = db.MigrateUp(ctx, conn)
	require.NoError(t, err)
	st, err := store.NewSQLStore(conn)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	svc := segments.NewService(st, audience.NewRandomEstimator(rand.NewPCG(1, 2)), segments.Options{
		DefaultPageSize: 10,
		MaxPageSize:     100,
	})
	h, err := NewHandler(svc, messages.NewSuggester(nil, messages.SuggesterOptions{}), auth.NewAuthenticator(testKey, nil), Options{
		Development: development,
	})
	require.NoError(t, err)

	r := gin.New()
	h.Register(r)

	admin, err := auth.IssueToken(testKey, auth.Principal{ID: "admin-1", Role: auth.RoleAdmin, Email: "admin@example.com"}, time.Hour)
	require.NoError(t, err)
	user, err := auth.IssueToken(testKey, auth.Principal{ID: "user-1", Role: 0, Email: "user@example.com"}, time.Hour)
	require.NoError(t, err)

	return &testEnv{router: r, store: st, admin: admin, user: user}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func highSpenders() map[string]any {
	return map[string]any{
		"name":    "High Spenders",
		"rules":   []map[string]any{{"field": "total_spend", "operator": ">", "value": 1000}},
		"message": "Hi [Name], enjoy 10% off",
	}
}

func TestCreateSegment(t *testing.T) {
	t.Run("admin creates segment", func(t *testing.T) {
		env := newTestEnv(t, false)

		w := env.do(t, http.MethodPost, "/api/segments", env.admin, highSpenders())
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		seg := decode[types.Segment](t, w)
		assert.NotEmpty(t, seg.ID)
		assert.Equal(t, "High Spenders", seg.Name)
		require.Len(t, seg.Rules, 1)
		assert.Equal(t, "1000", seg.Rules[0].Value)
		assert.Equal(t, types.PrincipalID("admin-1"), seg.OwnerID)

		count, err := env.store.CountSegments(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("large integer value keeps every digit", func(t *testing.T) {
		env := newTestEnv(t, false)

		body := `{"name":"Whales","rules":[{"field":"total_spend","operator":">","value":9007199254740993}],"message":"Hi [Name]"}`
		w := env.do(t, http.MethodPost, "/api/segments", env.admin, body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		seg := decode[types.Segment](t, w)
		require.Len(t, seg.Rules, 1)
		assert.Equal(t, "9007199254740993", seg.Rules[0].Value)
	})

	t.Run("non-admin is forbidden and nothing persisted", func(t *testing.T) {
		env := newTestEnv(t, false)

		w := env.do(t, http.MethodPost, "/api/segments", env.user, highSpenders())
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Access denied. Admins only.", decode[errorResponse](t, w).Error)

		count, err := env.store.CountSegments(context.Background())
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("missing token", func(t *testing.T) {
		env := newTestEnv(t, false)
		w := env.do(t, http.MethodPost, "/api/segments", "", highSpenders())
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "No token provided", decode[errorResponse](t, w).Error)
	})

	t.Run("invalid token", func(t *testing.T) {
		env := newTestEnv(t, false)
		w := env.do(t, http.MethodPost, "/api/segments", "forged.token.value", highSpenders())
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid token", decode[errorResponse](t, w).Error)
	})

	rejections := []struct {
		name    string
		mutate  func(map[string]any)
		wantMsg string
	}{
		{"short name", func(b map[string]any) { b["name"] = " ab " }, "Valid name required (min 3 chars)"},
		{"missing rules", func(b map[string]any) { delete(b, "rules") }, "Invalid rules: at least one rule required"},
		{"empty rules", func(b map[string]any) { b["rules"] = []any{} }, "Invalid rules"},
		{"rules not array", func(b map[string]any) { b["rules"] = "total_spend > 5" }, "Invalid rules"},
		{"non-numeric spend", func(b map[string]any) {
			b["rules"] = []map[string]any{{"field": "total_spend", "operator": ">", "value": "lots"}}
		}, "Invalid rules"},
		{"missing placeholder", func(b map[string]any) { b["message"] = "Hello there" }, "Valid message with [Name] placeholder required"},
	}

	for _, tt := range rejections {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, false)
			body := highSpenders()
			tt.mutate(body)

			w := env.do(t, http.MethodPost, "/api/segments", env.admin, body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decode[errorResponse](t, w).Error, tt.wantMsg)

			count, err := env.store.CountSegments(context.Background())
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		env := newTestEnv(t, false)
		w := env.do(t, http.MethodPost, "/api/segments", env.admin, "{not json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListSegments(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	for i := 1; i <= 25; i++ {
		seg := &types.Segment{
			Name:      fmt.Sprintf("Segment %02d", i),
			Rules:     []types.Rule{{Field: types.FieldVisitCount, Operator: types.OpGreaterThan, Value: "3"}},
			Message:   "Hi [Name]",
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, env.store.CreateSegment(ctx, seg))
	}

	t.Run("page three of ten", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/segments?page=3&limit=10", env.user, nil)
		require.Equal(t, http.StatusOK, w.Code)

		page := decode[segments.Page](t, w)
		assert.Len(t, page.Segments, 5)
		assert.Equal(t, 3, page.TotalPages)
		assert.Equal(t, 3, page.CurrentPage)
	})

	t.Run("defaults", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/segments", env.user, nil)
		require.Equal(t, http.StatusOK, w.Code)

		page := decode[segments.Page](t, w)
		assert.Len(t, page.Segments, 10)
		assert.Equal(t, 1, page.CurrentPage)
		assert.Equal(t, "Segment 01", page.Segments[0].Name)
	})

	for _, query := range []string{"page=0", "limit=-1", "page=abc", "page=9223372036854775807&limit=10"} {
		t.Run("invalid "+query, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/segments?"+query, env.user, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	t.Run("requires token", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/segments", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestPreviewSegment(t *testing.T) {
	env := newTestEnv(t, false)

	t.Run("estimate within bounds", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/segments/preview", env.admin, map[string]any{
			"rules": []map[string]any{{"field": "visit_count", "operator": "<", "value": "5"}},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := decode[previewResponse](t, w)
		assert.GreaterOrEqual(t, resp.AudienceSize, 100)
		assert.LessOrEqual(t, resp.AudienceSize, 1099)
		assert.Equal(t, audience.NewEstimate(resp.AudienceSize).EstimatedReach(), resp.EstimatedReach)
	})

	t.Run("rules not an array", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/segments/preview", env.admin, map[string]any{"rules": "x"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Rules array required", decode[errorResponse](t, w).Error)
	})

	t.Run("empty rules", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/segments/preview", env.admin, map[string]any{"rules": []any{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/segments/preview", env.user, map[string]any{"rules": []any{}})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestSuggestMessages(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/api/message-suggestions", env.admin, map[string]any{"objective": "Welcome new users"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[suggestionsResponse](t, w)
	assert.Equal(t, messages.Select("welcome"), resp.Suggestions)

	w = env.do(t, http.MethodPost, "/api/message-suggestions", env.admin, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Objective required", decode[errorResponse](t, w).Error)

	w = env.do(t, http.MethodPost, "/api/message-suggestions", env.user, map[string]any{"objective": "sale"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCampaigns(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/api/segments", env.admin, highSpenders())
	require.Equal(t, http.StatusCreated, w.Code)
	seg := decode[types.Segment](t, w)

	t.Run("record campaign", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/campaigns", env.admin, map[string]any{
			"segmentId":    seg.ID,
			"campaignName": "Spring Sale",
			"message":      "Hi [Name], spring deals inside",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		log := decode[types.CommunicationLog](t, w)
		assert.Equal(t, seg.ID, log.SegmentID)
		assert.GreaterOrEqual(t, log.AudienceSize, 100)
	})

	t.Run("unknown segment", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/campaigns", env.admin, map[string]any{
			"segmentId":    types.NewSegmentID(),
			"campaignName": "Spring Sale",
			"message":      "Hi [Name]",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed segment id", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/campaigns", env.admin, map[string]any{
			"segmentId":    "segment-42",
			"campaignName": "Spring Sale",
			"message":      "Hi [Name]",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/campaigns", env.user, map[string]any{
			"segmentId": seg.ID, "campaignName": "X", "message": "Hi [Name]",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("history joins segment", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/campaigns/history", env.user, nil)
		require.Equal(t, http.StatusOK, w.Code)

		page := decode[segments.CampaignPage](t, w)
		require.Len(t, page.Campaigns, 1)
		assert.Equal(t, "Spring Sale", page.Campaigns[0].CampaignName)
		assert.Equal(t, "High Spenders", page.Campaigns[0].SegmentName)
		require.Len(t, page.Campaigns[0].Rules, 1)
		assert.Equal(t, "1000", page.Campaigns[0].Rules[0].Value)
	})
}

func TestErrorDetails(t *testing.T) {
	for _, development := range []bool{true, false} {
		t.Run(fmt.Sprintf("development=%v", development), func(t *testing.T) {
			env := newTestEnv(t, development)
			require.NoError(t, env.store.Close())

			w := env.do(t, http.MethodGet, "/api/segments", env.user, nil)
			require.Equal(t, http.StatusInternalServerError, w.Code)

			resp := decode[errorResponse](t, w)
			assert.Equal(t, "Failed to fetch segments", resp.Error)
			if development {
				assert.NotEmpty(t, resp.Details)
			} else {
				assert.Empty(t, resp.Details)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{types.ErrInvalidName, http.StatusBadRequest},
		{fmt.Errorf("%w: rule 1", types.ErrInvalidRules), http.StatusBadRequest},
		{types.ErrInvalidMessage, http.StatusBadRequest},
		{types.ErrInvalidPage, http.StatusBadRequest},
		{types.ErrInvalidCampaign, http.StatusBadRequest},
		{types.ErrSegmentNotFound, http.StatusNotFound},
		{types.ErrStoreFailure, http.StatusInternalServerError},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
