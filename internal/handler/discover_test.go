package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shorts-radar/shorts-discovery-go/internal/db/repository"
	"github.com/shorts-radar/shorts-discovery-go/internal/models"
	"github.com/shorts-radar/shorts-discovery-go/internal/service"
)

type fakeAggregates struct {
	repository.VideoRepository
	aggregates []repository.ShortAggregate
}

func (f *fakeAggregates) RecentShortAggregates(_ context.Context, _ time.Time) ([]repository.ShortAggregate, error) {
	return f.aggregates, nil
}

type fakeMetricsStore struct {
	rows []*models.ChannelMetrics
}

func (f *fakeMetricsStore) ReplaceAll(_ context.Context, rows []*models.ChannelMetrics) error {
	f.rows = rows
	return nil
}

type fakeEnqueuer struct {
	chartCalls   int
	searchCalls  int
	metricsCalls int
	lastNovelty  bool
	err          error
}

func (f *fakeEnqueuer) EnqueueChartDiscovery() error {
	f.chartCalls++
	return f.err
}

func (f *fakeEnqueuer) EnqueueSearchDiscovery(novelty bool) error {
	f.searchCalls++
	f.lastNovelty = novelty
	return f.err
}

func (f *fakeEnqueuer) EnqueueMetricsRecompute() error {
	f.metricsCalls++
	return f.err
}

func TestTriggerDiscoveryUnknownStrategy(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewDiscoverHandler(nil, nil, 10, 40)
	router := gin.New()
	router.POST("/api/v1/discover", h.TriggerDiscovery)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/discover?strategy=bogus", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body models.TriggerResponseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.OK)
	assert.Contains(t, body.Error, "bogus")
}

func TestTriggerDiscoveryAsync(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(enqueuer *fakeEnqueuer) *gin.Engine {
		h := NewDiscoverHandler(nil, nil, 10, 40)
		if enqueuer != nil {
			h.SetEnqueuer(enqueuer)
		}
		router := gin.New()
		router.POST("/api/v1/discover", h.TriggerDiscovery)
		return router
	}

	t.Run("chart run is queued", func(t *testing.T) {
		enqueuer := &fakeEnqueuer{}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/discover?async=1", nil)
		newRouter(enqueuer).ServeHTTP(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, 1, enqueuer.chartCalls)

		var body models.TriggerResponseDTO
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.True(t, body.OK)
		assert.True(t, body.Queued)
		assert.Empty(t, body.RunID)
	})

	t.Run("search run carries novelty flag", func(t *testing.T) {
		enqueuer := &fakeEnqueuer{}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/discover?strategy=search&novelty=1&async=true", nil)
		newRouter(enqueuer).ServeHTTP(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, 1, enqueuer.searchCalls)
		assert.True(t, enqueuer.lastNovelty)
	})

	t.Run("unknown strategy rejected before enqueue", func(t *testing.T) {
		enqueuer := &fakeEnqueuer{}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/discover?strategy=bogus&async=1", nil)
		newRouter(enqueuer).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, enqueuer.chartCalls)
		assert.Zero(t, enqueuer.searchCalls)
	})

	t.Run("no queue configured", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/discover?async=1", nil)
		newRouter(nil).ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("enqueue failure", func(t *testing.T) {
		enqueuer := &fakeEnqueuer{err: errors.New("redis down")}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/discover?async=1", nil)
		newRouter(enqueuer).ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestRecomputeMetricsAsync(t *testing.T) {
	gin.SetMode(gin.TestMode)

	enqueuer := &fakeEnqueuer{}
	h := NewDiscoverHandler(nil, nil, 10, 40)
	h.SetEnqueuer(enqueuer)
	router := gin.New()
	router.POST("/api/v1/metrics/recompute", h.RecomputeMetrics)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/metrics/recompute?async=1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, enqueuer.metricsCalls)
}

func TestRecomputeMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)

	subs := int64(100)
	videos := &fakeAggregates{aggregates: []repository.ShortAggregate{
		{ChannelID: "ch-a", SubscriberCount: &subs, ShortCount: 2, TotalViews: 400},
	}}
	store := &fakeMetricsStore{}
	engine := service.NewMetricsEngine(videos, store, 14)

	h := NewDiscoverHandler(nil, engine, 10, 40)
	router := gin.New()
	router.POST("/api/v1/metrics/recompute", h.RecomputeMetrics)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/metrics/recompute", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(1), body["channels"])
	require.Len(t, store.rows, 1)
}
