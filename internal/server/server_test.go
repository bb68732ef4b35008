package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/talentloop/internal/clock"
	"github.com/smallbiznis/talentloop/internal/config"
	entitlementdomain "github.com/smallbiznis/talentloop/internal/entitlement/domain"
	"github.com/smallbiznis/talentloop/internal/entitlement/mocks"
	forumdomain "github.com/smallbiznis/talentloop/internal/forum/domain"
	forumservice "github.com/smallbiznis/talentloop/internal/forum/service"
	"github.com/smallbiznis/talentloop/internal/observability"
	paymentdomain "github.com/smallbiznis/talentloop/internal/payment/domain"
	"github.com/smallbiznis/talentloop/internal/plan"
	"github.com/smallbiznis/talentloop/internal/ratelimit"
	"github.com/smallbiznis/talentloop/internal/requestmetrics"
	"github.com/smallbiznis/talentloop/pkg/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type paymentStub struct {
	err      error
	provider string
	payload  []byte
	calls    int
}

func (p *paymentStub) IngestWebhook(_ context.Context, provider string, payload []byte, _ http.Header) error {
	p.calls++
	p.provider = provider
	p.payload = payload
	return p.err
}

type testEnv struct {
	engine       *gin.Engine
	payments     *paymentStub
	entitlements *mocks.MockService
	metrics      *requestmetrics.Service
}

func newTestEnv(t *testing.T, limiter *ratelimit.ForumWriteLimiter) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	forum := forumservice.NewService(zap.NewNop(), docstore.NewMemoryBackend(forumservice.EmptyDocument), fake, nil)
	metrics := requestmetrics.NewService(zap.NewNop(), docstore.NewMemoryBackend(requestmetrics.EmptyDocument), fake)
	payments := &paymentStub{}
	entitlements := mocks.NewMockService(gomock.NewController(t))

	engine := NewEngine(EngineParams{
		ObsCfg:         observability.Config{Environment: "test"},
		RequestMetrics: metrics,
	})
	srv := NewServer(ServerParams{
		Gin:            engine,
		Cfg:            config.Config{},
		PaymentSvc:     payments,
		ForumSvc:       forum,
		EntitlementSvc: entitlements,
		RequestMetrics: metrics,
		ForumLimiter:   limiter,
	})
	srv.RegisterAPIRoutes()

	return &testEnv{
		engine:       engine,
		payments:     payments,
		entitlements: entitlements,
		metrics:      metrics,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(v)
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	return envelope.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Error
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestForumRoutesLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/forum/posts", gin.H{
		"title":    "Remote offers",
		"body":     "How do you compare them?",
		"category": "Job Search",
		"tags":     []string{"Remote"},
		"authorId": "u1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	post := decodeData[forumdomain.Post](t, rec)
	assert.Equal(t, int64(1), post.ID)

	rec = env.do(t, http.MethodPost, "/api/forum/posts/1/replies", gin.H{"body": "Total comp first", "authorId": "u2"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reply := decodeData[forumdomain.Reply](t, rec)

	rec = env.do(t, http.MethodPost, "/api/forum/posts/1/like", gin.H{"userId": "u2"})
	require.Equal(t, http.StatusOK, rec.Code)
	like := decodeData[forumdomain.LikeResult](t, rec)
	assert.Equal(t, forumdomain.LikeResult{Likes: 1, IsLiked: true}, like)

	rec = env.do(t, http.MethodPost, "/api/forum/posts/1/replies/"+itoa(reply.ID)+"/like", gin.H{"userId": "u1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/forum/posts/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decodeData[forumdomain.PostDetail](t, rec)
	assert.Equal(t, 1, detail.Views)
	assert.Equal(t, 1, detail.Replies)
	require.Len(t, detail.ReplyList, 1)
	assert.Equal(t, 1, detail.ReplyList[0].Likes)

	rec = env.do(t, http.MethodGet, "/api/forum/posts?category=job+search&search=remote", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeData[forumdomain.PostPage](t, rec)
	assert.Equal(t, 1, page.Total)

	rec = env.do(t, http.MethodPut, "/api/forum/posts/1/category", gin.H{"category": "Hiring"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/forum/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	counts := map[string]int{}
	for _, c := range decodeData[[]forumdomain.Category](t, rec) {
		counts[c.Name] = c.Count
	}
	assert.Equal(t, 0, counts["Job Search"])
	assert.Equal(t, 1, counts["Hiring"])

	rec = env.do(t, http.MethodDelete, "/api/forum/posts/1/replies/"+itoa(reply.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/forum/posts/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/forum/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeData[forumdomain.Stats](t, rec)
	assert.Zero(t, stats.TotalPosts)
	assert.Zero(t, stats.TotalReplies)
	assert.Equal(t, int64(1), stats.LastPostID)
}

func TestForumRouteErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/api/forum/posts", gin.H{"title": "t", "body": "b", "category": "General"})
	require.Equal(t, http.StatusCreated, rec.Code)

	cases := []struct {
		name     string
		method   string
		path     string
		body     any
		wantCode int
		wantType string
	}{
		{"missing title", http.MethodPost, "/api/forum/posts", gin.H{"body": "b"}, http.StatusBadRequest, "validation_error"},
		{"malformed json", http.MethodPost, "/api/forum/posts", []byte("{"), http.StatusBadRequest, "validation_error"},
		{"bad id", http.MethodGet, "/api/forum/posts/abc", nil, http.StatusBadRequest, "validation_error"},
		{"bad page", http.MethodGet, "/api/forum/posts?page=x", nil, http.StatusBadRequest, "validation_error"},
		{"update missing", http.MethodPatch, "/api/forum/posts/99", gin.H{"body": "x"}, http.StatusNotFound, "not_found"},
		{"delete missing", http.MethodDelete, "/api/forum/posts/99", nil, http.StatusNotFound, "not_found"},
		{"unknown category", http.MethodPut, "/api/forum/posts/1/category", gin.H{"category": "Gardening"}, http.StatusBadRequest, "validation_error"},
		{"reply to missing post", http.MethodPost, "/api/forum/posts/99/replies", gin.H{"body": "x"}, http.StatusNotFound, "not_found"},
		{"delete missing reply", http.MethodDelete, "/api/forum/posts/1/replies/5", nil, http.StatusNotFound, "not_found"},
		{"like without user", http.MethodPost, "/api/forum/posts/1/like", gin.H{}, http.StatusBadRequest, "validation_error"},
		{"like missing post", http.MethodPost, "/api/forum/posts/99/like", gin.H{"userId": "u"}, http.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tc.wantType, decodeError(t, rec).Type)
		})
	}
}

func TestGetMissingPostReturnsNullData(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/forum/posts/42", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":null}`, rec.Body.String())
}

func TestPaymentWebhook(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/payments/webhooks/stripe", []byte(`{"id":"evt_1"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stripe", env.payments.provider)
	assert.JSONEq(t, `{"id":"evt_1"}`, string(env.payments.payload))

	env.payments.err = paymentdomain.ErrInvalidSignature
	rec = env.do(t, http.MethodPost, "/api/payments/webhooks/stripe", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_signature", payload.Errors[0].Code)

	env.payments.err = paymentdomain.ErrProviderNotFound
	rec = env.do(t, http.MethodPost, "/api/payments/webhooks/paypal", []byte(`{}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 3, env.payments.calls)
}

func TestGetEntitlement(t *testing.T) {
	env := newTestEnv(t, nil)
	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	env.entitlements.EXPECT().Get(gomock.Any(), "u@x.com").Return(entitlementdomain.Record{
		Email:     "u@x.com",
		PlanTier:  plan.TierPremium,
		PlanEndAt: &end,
		Featured:  true,
	}, nil)
	env.entitlements.EXPECT().Get(gomock.Any(), "ghost@x.com").Return(entitlementdomain.Record{}, entitlementdomain.ErrNotFound)
	env.entitlements.EXPECT().Get(gomock.Any(), "nope").Return(entitlementdomain.Record{}, entitlementdomain.ErrInvalidEmail)

	rec := env.do(t, http.MethodGet, "/api/entitlements/u@x.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeData[entitlementResponse](t, rec)
	assert.Equal(t, plan.TierPremium, got.PlanTier)
	assert.Equal(t, plan.TierPremium.Features(), got.Features)
	assert.True(t, got.Featured)

	rec = env.do(t, http.MethodGet, "/api/entitlements/ghost@x.com", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/entitlements/nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestMetricsRoutes(t *testing.T) {
	env := newTestEnv(t, nil)

	env.do(t, http.MethodGet, "/api/forum/posts", nil)
	env.do(t, http.MethodGet, "/api/forum/posts/abc", nil)
	env.do(t, http.MethodGet, "/health", nil)

	rec := env.do(t, http.MethodGet, "/api/metrics/requests", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decodeData[requestmetrics.Document](t, rec)
	assert.Equal(t, int64(2), doc.Requests.Total)
	assert.Equal(t, int64(1), doc.Errors.Total)
	assert.Equal(t, int64(1), doc.Errors.ByStatus["400"])

	rec = env.do(t, http.MethodDelete, "/api/metrics/requests", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	snapshot, err := env.metrics.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snapshot.Requests.Total)
}

func TestForumWriteRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter, err := ratelimit.NewForumWriteLimiter(config.Config{
		RateLimit: config.RateLimitConfig{Enabled: true, ForumWriteRate: 0.01, ForumWriteBurst: 1},
	}, client)
	require.NoError(t, err)
	env := newTestEnv(t, limiter)

	post := func(user string) *httptest.ResponseRecorder {
		raw, _ := json.Marshal(gin.H{"title": "t", "body": "b"})
		req := httptest.NewRequest(http.MethodPost, "/api/forum/posts", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(headerUserID, user)
		rec := httptest.NewRecorder()
		env.engine.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusCreated, post("alice").Code)
	limited := post("alice")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusCreated, post("bob").Code)

	// Reads are never throttled.
	rec := env.do(t, http.MethodGet, "/api/forum/posts", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
