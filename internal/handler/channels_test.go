package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shorts-radar/shorts-discovery-go/internal/db"
	"github.com/shorts-radar/shorts-discovery-go/internal/db/repository"
	"github.com/shorts-radar/shorts-discovery-go/internal/models"
	"github.com/shorts-radar/shorts-discovery-go/internal/service"
)

type fakeRankRepo struct {
	lastSpec *repository.RankSpec
	results  []*models.RankedChannel
	err      error
}

func (f *fakeRankRepo) Query(_ context.Context, spec *repository.RankSpec, _ int) ([]*models.RankedChannel, error) {
	f.lastSpec = spec
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeRunRepo struct {
	latest uuid.UUID
	err    error
}

func (f *fakeRunRepo) Create(_ context.Context, _ *models.DiscoveryRun) error { return nil }

func (f *fakeRunRepo) LatestRunID(_ context.Context) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	return f.latest, nil
}

type fakeVideoWindows struct {
	repository.VideoRepository
	shorts   []string
	longform []string
	err      error
}

func (f *fakeVideoWindows) ChannelIDsWithShortsSince(_ context.Context, _ time.Time) ([]string, error) {
	return f.shorts, f.err
}

func (f *fakeVideoWindows) ChannelIDsWithLongformSince(_ context.Context, _ time.Time) ([]string, error) {
	return f.longform, f.err
}

func setupChannelsRouter(rank repository.RankRepository, runs repository.DiscoveryRunRepository, videos repository.VideoRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)

	eligibility := service.NewEligibilityEngine(videos, 14, 150)
	h := NewChannelsHandler(rank, eligibility, runs, 200)

	router := gin.New()
	router.GET("/api/v1/channels", h.ListChannels)
	return router
}

func doGet(t *testing.T, router *gin.Engine, target string) (*httptest.ResponseRecorder, models.ChannelsResponseDTO) {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	router.ServeHTTP(w, req)

	var body models.ChannelsResponseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestListChannels(t *testing.T) {
	title := "gaming clips"
	rank := &fakeRankRepo{results: []*models.RankedChannel{{ChannelID: "ch-a", Title: &title}}}
	router := setupChannelsRouter(rank, &fakeRunRepo{}, &fakeVideoWindows{})

	w, body := doGet(t, router, "/api/v1/channels?sort=ratio&order=desc")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, body.OK)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "ch-a", body.Results[0].ChannelID)

	require.NotNil(t, rank.lastSpec)
	assert.Equal(t, repository.SortByRatio, rank.lastSpec.Primary.Key)
	assert.True(t, rank.lastSpec.Primary.Descending)
	assert.Nil(t, rank.lastSpec.EligibleIDs)
}

func TestListChannelsEmptyResultIsOK(t *testing.T) {
	router := setupChannelsRouter(&fakeRankRepo{}, &fakeRunRepo{}, &fakeVideoWindows{})

	w, body := doGet(t, router, "/api/v1/channels")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, body.OK, "an empty result set is a success, not an error")
	assert.NotNil(t, body.Results)
	assert.Empty(t, body.Results)
}

func TestListChannelsFullParameterSet(t *testing.T) {
	rank := &fakeRankRepo{}
	router := setupChannelsRouter(rank, &fakeRunRepo{}, &fakeVideoWindows{})

	w, _ := doGet(t, router, "/api/v1/channels?sort=recent_avg&order=asc&sort2=subscribers&order2=desc"+
		"&min_subs=1000&max_subs=50000&min_videos=5&max_videos=500&min_avg_views=100&max_avg_views=100000"+
		"&require_metrics=1&min_recent_shorts=4&title=gaming&limit=25")

	require.Equal(t, http.StatusOK, w.Code)

	spec := rank.lastSpec
	require.NotNil(t, spec)
	assert.Equal(t, repository.SortByRecentAvg, spec.Primary.Key)
	assert.False(t, spec.Primary.Descending)
	require.NotNil(t, spec.Secondary)
	assert.Equal(t, repository.SortBySubscribers, spec.Secondary.Key)
	assert.True(t, spec.Secondary.Descending)
	assert.Equal(t, int64(1000), *spec.Subscribers.Min)
	assert.Equal(t, int64(50000), *spec.Subscribers.Max)
	assert.Equal(t, int64(5), *spec.VideoCount.Min)
	assert.Equal(t, int64(500), *spec.VideoCount.Max)
	assert.Equal(t, int64(100), *spec.RecentAvgViews.Min)
	assert.Equal(t, int64(100000), *spec.RecentAvgViews.Max)
	assert.True(t, spec.RequireMetrics)
	assert.Equal(t, 4, spec.MinRecentShorts)
	assert.Equal(t, "gaming", spec.TitleContains)
	assert.Equal(t, 25, spec.Limit)
}

func TestListChannelsBadParams(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{name: "unknown sort key", target: "/api/v1/channels?sort=bogus"},
		{name: "non-numeric range bound", target: "/api/v1/channels?min_subs=abc"},
		{name: "negative recent shorts gate", target: "/api/v1/channels?min_recent_shorts=-1"},
		{name: "zero limit", target: "/api/v1/channels?limit=0"},
		{name: "malformed run id", target: "/api/v1/channels?run=not-a-uuid"},
	}

	router := setupChannelsRouter(&fakeRankRepo{}, &fakeRunRepo{}, &fakeVideoWindows{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := doGet(t, router, tt.target)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, body.OK)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestListChannelsEligibleOnly(t *testing.T) {
	rank := &fakeRankRepo{}
	videos := &fakeVideoWindows{shorts: []string{"ch-a", "ch-b"}, longform: []string{"ch-b"}}
	router := setupChannelsRouter(rank, &fakeRunRepo{}, videos)

	w, _ := doGet(t, router, "/api/v1/channels?eligible_only=1")

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, rank.lastSpec)
	assert.Equal(t, []string{"ch-a"}, rank.lastSpec.EligibleIDs)
}

func TestListChannelsEligibleOnlyEmptySetStillFilters(t *testing.T) {
	rank := &fakeRankRepo{}
	router := setupChannelsRouter(rank, &fakeRunRepo{}, &fakeVideoWindows{})

	w, _ := doGet(t, router, "/api/v1/channels?eligible_only=true")

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, rank.lastSpec)
	require.NotNil(t, rank.lastSpec.EligibleIDs, "empty eligible set must filter to nothing, not disable the filter")
	assert.Empty(t, rank.lastSpec.EligibleIDs)
}

func TestListChannelsEligibilityStoreFailure(t *testing.T) {
	rank := &fakeRankRepo{}
	router := setupChannelsRouter(rank, &fakeRunRepo{}, &fakeVideoWindows{err: assert.AnError})

	w, body := doGet(t, router, "/api/v1/channels?eligible_only=1")

	assert.Equal(t, http.StatusInternalServerError, w.Code, "a failing store query is not a bad request")
	assert.False(t, body.OK)
	assert.Equal(t, "eligibility query failed", body.Error)
	assert.Nil(t, rank.lastSpec, "query must not run after a failed filter resolution")
}

func TestListChannelsRunLatest(t *testing.T) {
	runID := uuid.New()
	rank := &fakeRankRepo{}
	router := setupChannelsRouter(rank, &fakeRunRepo{latest: runID}, &fakeVideoWindows{})

	w, _ := doGet(t, router, "/api/v1/channels?run=latest")

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, rank.lastSpec.RunID)
	assert.Equal(t, runID, *rank.lastSpec.RunID)
}

func TestListChannelsRunLatestWithoutRuns(t *testing.T) {
	router := setupChannelsRouter(&fakeRankRepo{}, &fakeRunRepo{err: db.ErrNotFound}, &fakeVideoWindows{})

	w, body := doGet(t, router, "/api/v1/channels?run=latest")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, body.OK)
}

func TestListChannelsRunLatestLookupFailure(t *testing.T) {
	router := setupChannelsRouter(&fakeRankRepo{}, &fakeRunRepo{err: assert.AnError}, &fakeVideoWindows{})

	w, body := doGet(t, router, "/api/v1/channels?run=latest")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, body.OK)
	assert.Equal(t, "latest run lookup failed", body.Error)
}

func TestListChannelsQueryFailure(t *testing.T) {
	rank := &fakeRankRepo{err: assert.AnError}
	router := setupChannelsRouter(rank, &fakeRunRepo{}, &fakeVideoWindows{})

	w, body := doGet(t, router, "/api/v1/channels")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, body.OK)
	assert.NotEmpty(t, body.Error)
}
