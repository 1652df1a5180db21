// Package models contains the data models and DTOs for the shorts discovery service.
package models

import (
	"time"

	"github.com/google/uuid"
)

// DiscoveryStrategy identifies which seeding strategy produced a run.
type DiscoveryStrategy string

// DiscoveryStrategy constants define the available seeding strategies.
const (
	StrategyChart  DiscoveryStrategy = "CHART"
	StrategySearch DiscoveryStrategy = "SEARCH"
)

// Channel mirrors a YouTube channel. Rows are refreshed on every upsert, never deleted.
// Pointer fields carry "unknown" for partial writes: an upsert with a nil field must not
// clobber a previously stored value.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Channel struct {
	ChannelID       string     `json:"channel_id"`
	Title           *string    `json:"title"`
	Country         *string    `json:"country"`
	PublishedAt     *time.Time `json:"published_at"`
	SubscriberCount *int64     `json:"subscriber_count"`
	VideoCount      *int64     `json:"video_count"`
	ViewCount       *int64     `json:"view_count"`
	DiscoveryRunID  *uuid.UUID `json:"discovery_run_id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Video mirrors a YouTube video. Created once per external ID, counters refreshed on
// re-discovery.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Video struct {
	VideoID         string     `json:"video_id"`
	ChannelID       string     `json:"channel_id"`
	Title           *string    `json:"title"`
	PublishedAt     *time.Time `json:"published_at"`
	DurationSeconds int        `json:"duration_seconds"`
	IsShort         bool       `json:"is_short"`
	ViewCount       *int64     `json:"view_count"`
	LikeCount       *int64     `json:"like_count"`
	CommentCount    *int64     `json:"comment_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ChannelSnapshot is an append-only capture of a channel's volatile counters.
type ChannelSnapshot struct {
	ChannelID       string    `json:"channel_id"`
	CapturedAt      time.Time `json:"captured_at"`
	SubscriberCount int64     `json:"subscriber_count"`
	VideoCount      int64     `json:"video_count"`
	ViewCount       int64     `json:"view_count"`
}

// VideoSnapshot is an append-only capture of a video's volatile counters.
type VideoSnapshot struct {
	VideoID      string    `json:"video_id"`
	CapturedAt   time.Time `json:"captured_at"`
	ViewCount    int64     `json:"view_count"`
	LikeCount    int64     `json:"like_count"`
	CommentCount int64     `json:"comment_count"`
}

// ChannelMetrics is a derived per-channel aggregate over the recent window. It is rebuilt
// wholesale on every recompute, never patched. RecentAvgViews and RatioViewsPerSub are nil
// when undefined (no recent shorts, or zero/hidden subscriber count), never zero.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ChannelMetrics struct {
	ChannelID        string    `json:"channel_id"`
	RecentDays       int       `json:"recent_days"`
	RecentShortCount int       `json:"recent_short_count"`
	RecentTotalViews int64     `json:"recent_total_views"`
	RecentAvgViews   *float64  `json:"recent_avg_views"`
	RatioViewsPerSub *float64  `json:"ratio_views_per_sub"`
	ComputedAt       time.Time `json:"computed_at"`
}

// DiscoveryRun marks a single execution of the discovery engine. Immutable after creation.
type DiscoveryRun struct {
	ID        uuid.UUID         `json:"id"`
	Strategy  DiscoveryStrategy `json:"strategy"`
	CreatedAt time.Time         `json:"created_at"`
}

// RunStats summarizes what a discovery run touched.
type RunStats struct {
	ChannelsCrawled  int `json:"channelsCrawled"`
	ChannelsUpserted int `json:"channelsUpserted"`
	ShortsUpserted   int `json:"shortsUpserted"`
	SnapshotsWritten int `json:"snapshotsWritten"`
	SkippedRecords   int `json:"skippedRecords"`
	FailedBatches    int `json:"failedBatches"`
}

// RankedChannel is a channel joined with its latest metrics, as served by the ranking
// query.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RankedChannel struct {
	ChannelID        string     `json:"channel_id"`
	Title            *string    `json:"title"`
	Country          *string    `json:"country"`
	PublishedAt      *time.Time `json:"published_at"`
	SubscriberCount  *int64     `json:"subscriber_count"`
	VideoCount       *int64     `json:"video_count"`
	ViewCount        *int64     `json:"view_count"`
	RecentShortCount *int       `json:"recent_short_count"`
	RecentAvgViews   *float64   `json:"recent_avg_views"`
	RatioViewsPerSub *float64   `json:"ratio_views_per_sub"`
}

// TriggerResponseDTO is the envelope returned by the discover/recompute triggers.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type TriggerResponseDTO struct {
	OK           bool      `json:"ok"`
	Queued       bool      `json:"queued,omitempty"`
	RunID        string    `json:"runId,omitempty"`
	Stats        *RunStats `json:"stats,omitempty"`
	ShortSeconds string    `json:"shortSeconds,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// ChannelsResponseDTO is the envelope returned by the ranking query.
type ChannelsResponseDTO struct {
	OK      bool             `json:"ok"`
	Results []*RankedChannel `json:"results"`
	Error   string           `json:"error,omitempty"`
}
