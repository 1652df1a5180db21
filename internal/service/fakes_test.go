package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shorts-radar/shorts-discovery-go/internal/db"
	"github.com/shorts-radar/shorts-discovery-go/internal/db/repository"
	"github.com/shorts-radar/shorts-discovery-go/internal/models"
	"github.com/shorts-radar/shorts-discovery-go/internal/youtube"
)

// fakePlatformClient scripts platform responses per operation.
type fakePlatformClient struct {
	mu sync.Mutex

	mostPopular     map[string][]youtube.VideoItem
	searchResults   map[string][]string
	videos          map[string]youtube.VideoItem
	channels        map[string]youtube.ChannelItem
	playlistUploads map[string][]string

	mostPopularErr error
	videosErr      error
	channelsErr    error
	playlistErr    error
	searchErr      error

	videosByIDCalls int
	searchAfter     time.Time
}

func (f *fakePlatformClient) MostPopular(_ context.Context, region string, _ int64) ([]youtube.VideoItem, error) {
	if f.mostPopularErr != nil {
		return nil, f.mostPopularErr
	}
	return f.mostPopular[region], nil
}

func (f *fakePlatformClient) VideosByID(_ context.Context, videoIDs []string) ([]youtube.VideoItem, error) {
	f.mu.Lock()
	f.videosByIDCalls++
	f.mu.Unlock()

	if f.videosErr != nil {
		return nil, f.videosErr
	}

	var items []youtube.VideoItem
	for _, id := range videoIDs {
		if item, ok := f.videos[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (f *fakePlatformClient) ChannelsByID(_ context.Context, channelIDs []string) ([]youtube.ChannelItem, error) {
	if f.channelsErr != nil {
		return nil, f.channelsErr
	}

	var items []youtube.ChannelItem
	for _, id := range channelIDs {
		if item, ok := f.channels[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (f *fakePlatformClient) PlaylistUploads(_ context.Context, playlistID string, _ int64) ([]string, error) {
	if f.playlistErr != nil {
		return nil, f.playlistErr
	}
	return f.playlistUploads[playlistID], nil
}

func (f *fakePlatformClient) SearchVideos(_ context.Context, region string, publishedAfter time.Time, _ int64) ([]string, error) {
	f.mu.Lock()
	f.searchAfter = publishedAfter
	f.mu.Unlock()

	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResults[region], nil
}

// fakeChannelRepo records upserts in memory.
type fakeChannelRepo struct {
	mu        sync.Mutex
	upserted  map[string]*models.Channel
	refreshed map[string]struct{}
	upsertErr error
}

func newFakeChannelRepo() *fakeChannelRepo {
	return &fakeChannelRepo{
		upserted:  make(map[string]*models.Channel),
		refreshed: make(map[string]struct{}),
	}
}

func (f *fakeChannelRepo) UpsertChannels(_ context.Context, channels []*models.Channel) (int, error) {
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range channels {
		f.upserted[ch.ChannelID] = ch
	}
	return len(channels), nil
}

func (f *fakeChannelRepo) GetChannelByID(_ context.Context, channelID string) (*models.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.upserted[channelID]; ok {
		return ch, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeChannelRepo) RefreshedSince(_ context.Context, _ time.Time) (map[string]struct{}, error) {
	return f.refreshed, nil
}

// fakeVideoRepo records upserts and serves scripted window queries.
type fakeVideoRepo struct {
	mu            sync.Mutex
	upserted      map[string]*models.Video
	shortsSince   []string
	longformSince []string
	aggregates    []repository.ShortAggregate
	upsertErr     error
}

func newFakeVideoRepo() *fakeVideoRepo {
	return &fakeVideoRepo{upserted: make(map[string]*models.Video)}
}

func (f *fakeVideoRepo) UpsertVideos(_ context.Context, videos []*models.Video) (int, error) {
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range videos {
		f.upserted[v.VideoID] = v
	}
	return len(videos), nil
}

func (f *fakeVideoRepo) GetVideoByID(_ context.Context, videoID string) (*models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.upserted[videoID]; ok {
		return v, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeVideoRepo) ChannelIDsWithShortsSince(_ context.Context, _ time.Time) ([]string, error) {
	return f.shortsSince, nil
}

func (f *fakeVideoRepo) ChannelIDsWithLongformSince(_ context.Context, _ time.Time) ([]string, error) {
	return f.longformSince, nil
}

func (f *fakeVideoRepo) RecentShortAggregates(_ context.Context, _ time.Time) ([]repository.ShortAggregate, error) {
	return f.aggregates, nil
}

// fakeSnapshotRepo counts snapshot writes.
type fakeSnapshotRepo struct {
	mu               sync.Mutex
	channelSnapshots []*models.ChannelSnapshot
	videoSnapshots   []*models.VideoSnapshot
}

func (f *fakeSnapshotRepo) InsertChannelSnapshots(_ context.Context, snapshots []*models.ChannelSnapshot) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channelSnapshots = append(f.channelSnapshots, snapshots...)
	return len(snapshots), nil
}

func (f *fakeSnapshotRepo) InsertVideoSnapshots(_ context.Context, snapshots []*models.VideoSnapshot) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videoSnapshots = append(f.videoSnapshots, snapshots...)
	return len(snapshots), nil
}

// fakeRunRepo records created runs.
type fakeRunRepo struct {
	mu   sync.Mutex
	runs []*models.DiscoveryRun
}

func (f *fakeRunRepo) Create(_ context.Context, run *models.DiscoveryRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run.CreatedAt = time.Now()
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeRunRepo) LatestRunID(_ context.Context) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.runs) == 0 {
		return uuid.Nil, db.ErrNotFound
	}
	return f.runs[len(f.runs)-1].ID, nil
}

// fakeMetricsRepo captures the last ReplaceAll payload.
type fakeMetricsRepo struct {
	mu   sync.Mutex
	rows []*models.ChannelMetrics
}

func (f *fakeMetricsRepo) ReplaceAll(_ context.Context, rows []*models.ChannelMetrics) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = rows
	return nil
}

// fakePublisher records run events.
type fakePublisher struct {
	mu     sync.Mutex
	events []*models.DiscoveryRun
}

func (f *fakePublisher) PublishRunCompleted(_ context.Context, run *models.DiscoveryRun, _ *models.RunStats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, run)
	return nil
}
