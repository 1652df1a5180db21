package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shorts-radar/shorts-discovery-go/internal/db/repository"
)

func int64p(v int64) *int64 { return &v }

func TestBuildMetricsRows(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name          string
		agg           repository.ShortAggregate
		expectedAvg   *float64
		expectedRatio *float64
	}{
		{
			name: "average of two shorts",
			agg: repository.ShortAggregate{
				ChannelID:       "ch-a",
				SubscriberCount: int64p(100),
				ShortCount:      2,
				TotalViews:      400,
			},
			expectedAvg:   float64p(200),
			expectedRatio: float64p(2),
		},
		{
			name: "no recent shorts leaves avg and ratio undefined",
			agg: repository.ShortAggregate{
				ChannelID:       "ch-b",
				SubscriberCount: int64p(100),
			},
			expectedAvg:   nil,
			expectedRatio: nil,
		},
		{
			name: "zero subscribers leaves ratio undefined",
			agg: repository.ShortAggregate{
				ChannelID:       "ch-c",
				SubscriberCount: int64p(0),
				ShortCount:      1,
				TotalViews:      50,
			},
			expectedAvg:   float64p(50),
			expectedRatio: nil,
		},
		{
			name: "unknown subscribers leaves ratio undefined",
			agg: repository.ShortAggregate{
				ChannelID:  "ch-d",
				ShortCount: 1,
				TotalViews: 50,
			},
			expectedAvg:   float64p(50),
			expectedRatio: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := buildMetricsRows([]repository.ShortAggregate{tt.agg}, 14, now)
			require.Len(t, rows, 1)

			row := rows[0]
			assert.Equal(t, tt.agg.ChannelID, row.ChannelID)
			assert.Equal(t, 14, row.RecentDays)
			assert.Equal(t, tt.agg.ShortCount, row.RecentShortCount)
			assert.Equal(t, tt.agg.TotalViews, row.RecentTotalViews)
			assert.Equal(t, now, row.ComputedAt)

			if tt.expectedAvg == nil {
				assert.Nil(t, row.RecentAvgViews)
			} else {
				require.NotNil(t, row.RecentAvgViews)
				assert.InDelta(t, *tt.expectedAvg, *row.RecentAvgViews, 1e-9)
			}

			if tt.expectedRatio == nil {
				assert.Nil(t, row.RatioViewsPerSub)
			} else {
				require.NotNil(t, row.RatioViewsPerSub)
				assert.InDelta(t, *tt.expectedRatio, *row.RatioViewsPerSub, 1e-9)
			}
		})
	}
}

func float64p(v float64) *float64 { return &v }

func TestRecomputeCoversAllChannels(t *testing.T) {
	videos := newFakeVideoRepo()
	videos.aggregates = []repository.ShortAggregate{
		{ChannelID: "ch-a", SubscriberCount: int64p(1000), ShortCount: 2, TotalViews: 400},
		{ChannelID: "ch-b"}, // tracked channel with no recent shorts still gets a row
	}
	metricsRepo := &fakeMetricsRepo{}

	engine := NewMetricsEngine(videos, metricsRepo, 14)

	count, err := engine.Recompute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, metricsRepo.rows, 2)

	assert.NotNil(t, metricsRepo.rows[0].RecentAvgViews)
	assert.Nil(t, metricsRepo.rows[1].RecentAvgViews)
}
