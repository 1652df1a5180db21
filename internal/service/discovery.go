// Package service contains the discovery, eligibility and metrics engines that make
// up the core pipeline.
package service

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shorts-radar/shorts-discovery-go/internal/config"
	"github.com/shorts-radar/shorts-discovery-go/internal/db/repository"
	"github.com/shorts-radar/shorts-discovery-go/internal/metrics"
	"github.com/shorts-radar/shorts-discovery-go/internal/models"
	"github.com/shorts-radar/shorts-discovery-go/internal/youtube"
	"github.com/shorts-radar/shorts-discovery-go/pkg/logger"
)

// PlatformClient is the narrow call interface the discovery engine needs from the
// quota-aware API client. Keeping it narrow lets tests inject a fake client with
// scripted failure sequences.
type PlatformClient interface {
	MostPopular(ctx context.Context, region string, maxResults int64) ([]youtube.VideoItem, error)
	VideosByID(ctx context.Context, videoIDs []string) ([]youtube.VideoItem, error)
	ChannelsByID(ctx context.Context, channelIDs []string) ([]youtube.ChannelItem, error)
	PlaylistUploads(ctx context.Context, playlistID string, maxResults int64) ([]string, error)
	SearchVideos(ctx context.Context, region string, publishedAfter time.Time, maxResults int64) ([]string, error)
}

// RunEventPublisher receives a notification when a discovery run completes. Optional;
// a nil publisher disables run events.
type RunEventPublisher interface {
	PublishRunCompleted(ctx context.Context, run *models.DiscoveryRun, stats *models.RunStats) error
}

// DiscoveryService seeds candidate channels from the platform and writes them through
// the ingestion store. Both seeding strategies are idempotent: re-discovering an
// external ID refreshes the stored row instead of duplicating it.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DiscoveryService struct {
	client     PlatformClient
	channels   repository.ChannelRepository
	videos     repository.VideoRepository
	snapshots  repository.SnapshotRepository
	runs       repository.DiscoveryRunRepository
	publisher  RunEventPublisher
	classifier youtube.Classifier
	cfg        config.DiscoveryConfig
	metrics    metrics.Provider

	now  func() time.Time
	intN func(n int) int
}

// NewDiscoveryService creates a discovery service. publisher may be nil.
func NewDiscoveryService(
	client PlatformClient,
	channels repository.ChannelRepository,
	videos repository.VideoRepository,
	snapshots repository.SnapshotRepository,
	runs repository.DiscoveryRunRepository,
	publisher RunEventPublisher,
	classifier youtube.Classifier,
	cfg config.DiscoveryConfig,
	provider metrics.Provider,
) *DiscoveryService {
	if provider == nil {
		provider = metrics.Noop()
	}
	if cfg.ChannelConcurrency <= 0 {
		cfg.ChannelConcurrency = 4
	}

	return &DiscoveryService{
		client:     client,
		channels:   channels,
		videos:     videos,
		snapshots:  snapshots,
		runs:       runs,
		publisher:  publisher,
		classifier: classifier,
		cfg:        cfg,
		metrics:    provider,
		now:        time.Now,
		intN:       rand.IntN,
	}
}

// RunChartDiscovery seeds candidate channels from the per-region trending charts,
// then crawls each retained channel's uploads and ingests its shorts.
//
// Cancellation stops new platform calls promptly; writes already handed to the store
// run to completion so no record is left half-written.
func (s *DiscoveryService) RunChartDiscovery(ctx context.Context) (*models.DiscoveryRun, *models.RunStats, error) {
	started := s.now()
	stats := &models.RunStats{}

	run := &models.DiscoveryRun{ID: uuid.New(), Strategy: models.StrategyChart}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, stats, err
	}

	channelIDs, err := s.seedFromCharts(ctx)
	if err != nil {
		return run, stats, err
	}

	channelIDs = dedupe(channelIDs)
	if len(channelIDs) > s.cfg.MaxChannelsPerRun {
		channelIDs = channelIDs[:s.cfg.MaxChannelsPerRun]
	}

	if len(channelIDs) == 0 {
		logger.Log.Info("chart discovery found no candidates", zap.String("runId", run.ID.String()))
		return run, stats, nil
	}

	details, err := s.fetchAndStoreChannels(ctx, run, channelIDs, stats)
	if err != nil {
		return run, stats, err
	}

	if err := s.crawlUploads(ctx, details, stats); err != nil {
		return run, stats, err
	}

	s.metrics.ObserveRunDuration(string(models.StrategyChart), s.now().Sub(started))
	s.publishCompleted(ctx, run, stats)

	logger.Log.Info("chart discovery completed",
		zap.String("runId", run.ID.String()),
		zap.Int("channelsCrawled", stats.ChannelsCrawled),
		zap.Int("shortsUpserted", stats.ShortsUpserted),
	)

	return run, stats, nil
}

// RunSearchDiscovery seeds candidate videos from a recency/popularity search per
// region, over a lookback window re-randomized each run so repeated runs sample
// different slices of recent time. When novelty is set, channels refreshed within the
// novelty window are excluded so the run is forced toward previously-unseen channels.
func (s *DiscoveryService) RunSearchDiscovery(ctx context.Context, novelty bool) (*models.DiscoveryRun, *models.RunStats, error) {
	started := s.now()
	stats := &models.RunStats{}

	run := &models.DiscoveryRun{ID: uuid.New(), Strategy: models.StrategySearch}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, stats, err
	}

	lookbackDays := s.cfg.SearchLookbackMinDays
	if spread := s.cfg.SearchLookbackMaxDays - s.cfg.SearchLookbackMinDays; spread > 0 {
		lookbackDays += s.intN(spread + 1)
	}
	publishedAfter := s.now().Add(-time.Duration(lookbackDays) * 24 * time.Hour)

	videoIDs, err := s.seedFromSearch(ctx, publishedAfter)
	if err != nil {
		return run, stats, err
	}

	shorts := s.fetchShorts(ctx, dedupe(videoIDs), stats)

	if novelty {
		shorts, err = s.filterNovel(ctx, shorts, stats)
		if err != nil {
			return run, stats, err
		}
	}

	if len(shorts) == 0 {
		logger.Log.Info("search discovery found no shorts",
			zap.String("runId", run.ID.String()),
			zap.Int("lookbackDays", lookbackDays),
		)
		return run, stats, nil
	}

	channelIDs := make([]string, 0, len(shorts))
	for _, item := range shorts {
		channelIDs = append(channelIDs, item.ChannelID)
	}

	if _, err := s.fetchAndStoreChannels(ctx, run, dedupe(channelIDs), stats); err != nil {
		return run, stats, err
	}

	s.storeShorts(ctx, shorts, stats)

	s.metrics.ObserveRunDuration(string(models.StrategySearch), s.now().Sub(started))
	s.publishCompleted(ctx, run, stats)

	logger.Log.Info("search discovery completed",
		zap.String("runId", run.ID.String()),
		zap.Int("lookbackDays", lookbackDays),
		zap.Bool("novelty", novelty),
		zap.Int("shortsUpserted", stats.ShortsUpserted),
	)

	return run, stats, nil
}

// seedFromCharts collects candidate channel IDs from every region's trending chart.
// Regions are fetched concurrently; the platform rate-limits per credential, not per
// connection, so fan-out here is free quota-wise.
func (s *DiscoveryService) seedFromCharts(ctx context.Context) ([]string, error) {
	var (
		mu         sync.Mutex
		channelIDs []string
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, region := range s.cfg.Regions {
		g.Go(func() error {
			items, err := s.client.MostPopular(gctx, region, int64(s.cfg.MostPopularPerRegion))
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			for _, item := range items {
				if item.ChannelID != "" {
					channelIDs = append(channelIDs, item.ChannelID)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return channelIDs, nil
}

// seedFromSearch collects candidate video IDs from every region's search results.
func (s *DiscoveryService) seedFromSearch(ctx context.Context, publishedAfter time.Time) ([]string, error) {
	var (
		mu       sync.Mutex
		videoIDs []string
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, region := range s.cfg.Regions {
		g.Go(func() error {
			ids, err := s.client.SearchVideos(gctx, region, publishedAfter, int64(s.cfg.SearchPerRegion))
			if err != nil {
				return err
			}

			mu.Lock()
			videoIDs = append(videoIDs, ids...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return videoIDs, nil
}

// fetchAndStoreChannels fetches full details for the given channel IDs in API-sized
// batches, upserts the channels stamped with the run ID, and appends counter
// snapshots.
func (s *DiscoveryService) fetchAndStoreChannels(ctx context.Context, run *models.DiscoveryRun, channelIDs []string, stats *models.RunStats) ([]youtube.ChannelItem, error) {
	var details []youtube.ChannelItem

	for _, batch := range youtube.BatchIDs(channelIDs, youtube.MaxIDsPerCall) {
		items, err := s.client.ChannelsByID(ctx, batch)
		if err != nil {
			return details, err
		}
		details = append(details, items...)
	}

	now := s.now()
	rows := make([]*models.Channel, 0, len(details))
	snapshots := make([]*models.ChannelSnapshot, 0, len(details))

	for _, item := range details {
		if item.ID == "" {
			stats.SkippedRecords++
			continue
		}
		rows = append(rows, channelRow(item, run.ID))
		snapshots = append(snapshots, &models.ChannelSnapshot{
			ChannelID:       item.ID,
			CapturedAt:      now,
			SubscriberCount: item.SubscriberCount,
			VideoCount:      item.VideoCount,
			ViewCount:       item.ViewCount,
		})
	}

	// Store writes outlive cancellation so a half-finished batch is not torn.
	storeCtx := context.WithoutCancel(ctx)

	upserted, err := s.channels.UpsertChannels(storeCtx, rows)
	stats.ChannelsUpserted += upserted
	s.metrics.IncUpserted("channel", upserted)
	if err != nil {
		stats.FailedBatches++
		logger.Log.Error("channel upsert batch failed", zap.Error(err))
	}

	written, err := s.snapshots.InsertChannelSnapshots(storeCtx, snapshots)
	stats.SnapshotsWritten += written
	if err != nil {
		stats.FailedBatches++
		logger.Log.Error("channel snapshot batch failed", zap.Error(err))
	}

	return details, nil
}

// crawlUploads walks each channel's uploads playlist and ingests the shorts it finds.
// Channels are crawled with bounded concurrency; a failing channel is counted and
// skipped unless the whole credential pool is exhausted, which aborts the run.
func (s *DiscoveryService) crawlUploads(ctx context.Context, details []youtube.ChannelItem, stats *models.RunStats) error {
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ChannelConcurrency)

	for _, channel := range details {
		if channel.UploadsPlaylistID == "" {
			mu.Lock()
			stats.SkippedRecords++
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			videoIDs, err := s.client.PlaylistUploads(gctx, channel.UploadsPlaylistID, int64(s.cfg.UploadsPerChannel))
			if err != nil {
				if youtube.IsQuotaExhausted(err) {
					return err
				}
				mu.Lock()
				stats.FailedBatches++
				mu.Unlock()
				logger.Log.Warn("uploads crawl failed",
					zap.String("channelId", channel.ID),
					zap.Error(err),
				)
				return nil
			}

			mu.Lock()
			stats.ChannelsCrawled++
			mu.Unlock()

			shorts := s.fetchShortsLocked(gctx, dedupe(videoIDs), stats, &mu)
			s.storeShortsLocked(gctx, shorts, stats, &mu)
			return nil
		})
	}

	return g.Wait()
}

// fetchShorts fetches full video details in API-sized batches and keeps only the
// items the classifier tags as shorts. The platform's coarse "short" search filter is
// never trusted on its own.
func (s *DiscoveryService) fetchShorts(ctx context.Context, videoIDs []string, stats *models.RunStats) []youtube.VideoItem {
	var mu sync.Mutex
	return s.fetchShortsLocked(ctx, videoIDs, stats, &mu)
}

func (s *DiscoveryService) fetchShortsLocked(ctx context.Context, videoIDs []string, stats *models.RunStats, mu *sync.Mutex) []youtube.VideoItem {
	var shorts []youtube.VideoItem

	for _, batch := range youtube.BatchIDs(videoIDs, youtube.MaxIDsPerCall) {
		items, err := s.client.VideosByID(ctx, batch)
		if err != nil {
			mu.Lock()
			stats.FailedBatches++
			mu.Unlock()
			logger.Log.Warn("video details batch failed", zap.Error(err))
			continue
		}

		for _, item := range items {
			if item.ID == "" || item.ChannelID == "" {
				mu.Lock()
				stats.SkippedRecords++
				mu.Unlock()
				continue
			}
			if _, isShort := s.classifier.ClassifyDuration(item.Duration); isShort {
				shorts = append(shorts, item)
			}
		}
	}

	return shorts
}

// storeShorts upserts short videos and appends their counter snapshots.
func (s *DiscoveryService) storeShorts(ctx context.Context, shorts []youtube.VideoItem, stats *models.RunStats) {
	var mu sync.Mutex
	s.storeShortsLocked(ctx, shorts, stats, &mu)
}

func (s *DiscoveryService) storeShortsLocked(ctx context.Context, shorts []youtube.VideoItem, stats *models.RunStats, mu *sync.Mutex) {
	if len(shorts) == 0 {
		return
	}

	now := s.now()
	rows := make([]*models.Video, 0, len(shorts))
	snapshots := make([]*models.VideoSnapshot, 0, len(shorts))

	for _, item := range shorts {
		seconds, isShort := s.classifier.ClassifyDuration(item.Duration)
		rows = append(rows, videoRow(item, seconds, isShort))
		snapshots = append(snapshots, &models.VideoSnapshot{
			VideoID:      item.ID,
			CapturedAt:   now,
			ViewCount:    item.ViewCount,
			LikeCount:    item.LikeCount,
			CommentCount: item.CommentCount,
		})
	}

	storeCtx := context.WithoutCancel(ctx)

	upserted, err := s.videos.UpsertVideos(storeCtx, rows)
	mu.Lock()
	stats.ShortsUpserted += upserted
	if err != nil {
		stats.FailedBatches++
	}
	mu.Unlock()
	s.metrics.IncUpserted("video", upserted)
	if err != nil {
		logger.Log.Error("video upsert batch failed", zap.Error(err))
	}

	written, err := s.snapshots.InsertVideoSnapshots(storeCtx, snapshots)
	mu.Lock()
	stats.SnapshotsWritten += written
	if err != nil {
		stats.FailedBatches++
	}
	mu.Unlock()
	if err != nil {
		logger.Log.Error("video snapshot batch failed", zap.Error(err))
	}
}

// filterNovel drops candidates whose channel was already refreshed within the novelty
// window.
func (s *DiscoveryService) filterNovel(ctx context.Context, shorts []youtube.VideoItem, stats *models.RunStats) ([]youtube.VideoItem, error) {
	known, err := s.channels.RefreshedSince(ctx, s.now().Add(-s.cfg.NoveltyWindow))
	if err != nil {
		return nil, err
	}

	novel := shorts[:0]
	for _, item := range shorts {
		if _, seen := known[item.ChannelID]; seen {
			stats.SkippedRecords++
			continue
		}
		novel = append(novel, item)
	}

	return novel, nil
}

func (s *DiscoveryService) publishCompleted(ctx context.Context, run *models.DiscoveryRun, stats *models.RunStats) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRunCompleted(ctx, run, stats); err != nil {
		logger.Log.Warn("failed to publish run event",
			zap.String("runId", run.ID.String()),
			zap.Error(err),
		)
	}
}

func channelRow(item youtube.ChannelItem, runID uuid.UUID) *models.Channel {
	return &models.Channel{
		ChannelID:       item.ID,
		Title:           strPtr(item.Title),
		Country:         strPtr(item.Country),
		PublishedAt:     timePtr(item.PublishedAt),
		SubscriberCount: int64Ptr(item.SubscriberCount),
		VideoCount:      int64Ptr(item.VideoCount),
		ViewCount:       int64Ptr(item.ViewCount),
		DiscoveryRunID:  &runID,
	}
}

func videoRow(item youtube.VideoItem, seconds int, isShort bool) *models.Video {
	return &models.Video{
		VideoID:         item.ID,
		ChannelID:       item.ChannelID,
		Title:           strPtr(item.Title),
		PublishedAt:     timePtr(item.PublishedAt),
		DurationSeconds: seconds,
		IsShort:         isShort,
		ViewCount:       int64Ptr(item.ViewCount),
		LikeCount:       int64Ptr(item.LikeCount),
		CommentCount:    int64Ptr(item.CommentCount),
	}
}

// dedupe removes duplicate IDs preserving first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Helper functions for pointer conversions

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func int64Ptr(i int64) *int64 {
	return &i
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
