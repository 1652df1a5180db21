// Package youtube wraps the YouTube Data API v3 behind a quota-aware client that
// rotates across a pool of API keys, plus the duration classifier that tags videos
// as short-form.
package youtube

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/shorts-radar/shorts-discovery-go/internal/metrics"
	"github.com/shorts-radar/shorts-discovery-go/pkg/logger"
)

// MaxIDsPerCall is the platform's maximum number of IDs per videos.list or
// channels.list call.
const MaxIDsPerCall = 50

const defaultCallTimeout = 15 * time.Second

// Client executes named API operations against the YouTube Data API, hiding
// multi-credential rotation from callers. Each logical call tries every configured
// key at most once, in order, and rotates only on quota-class failures.
type Client struct {
	services []*yt.Service
	locks    []sync.Mutex
	timeout  time.Duration
	metrics  metrics.Provider
}

// NewClient creates a client over an ordered list of API keys. One service is built
// per key; a key is never used by two in-flight calls at once so its quota
// accounting stays serialized.
func NewClient(ctx context.Context, apiKeys []string, callTimeout time.Duration, provider metrics.Provider) (*Client, error) {
	if len(apiKeys) == 0 {
		return nil, ErrNoCredentials
	}
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	if provider == nil {
		provider = metrics.Noop()
	}

	services := make([]*yt.Service, 0, len(apiKeys))
	for _, key := range apiKeys {
		service, err := yt.NewService(ctx, option.WithAPIKey(key))
		if err != nil {
			return nil, fmt.Errorf("failed to create YouTube service: %w", err)
		}
		services = append(services, service)
	}

	return &Client{
		services: services,
		locks:    make([]sync.Mutex, len(services)),
		timeout:  callTimeout,
		metrics:  provider,
	}, nil
}

// Credentials returns the number of configured API keys.
func (c *Client) Credentials() int {
	return len(c.services)
}

type apiCall func(ctx context.Context, svc *yt.Service) error

// withRotation runs one logical operation, trying each credential at most once.
// Non-retryable errors surface immediately without rotating; exhausting every
// credential on retryable errors yields a *QuotaExhaustedError.
func (c *Client) withRotation(ctx context.Context, op string, call apiCall) error {
	var last error

	for i := range c.services {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.attempt(ctx, i, call)
		if err == nil {
			c.metrics.IncAPICall(op)
			return nil
		}

		if !isRetryable(err) {
			c.metrics.IncAPICall(op)
			return fmt.Errorf("%s: %w", op, err)
		}

		logger.Log.Warn("rotating YouTube API key",
			zap.String("operation", op),
			zap.Int("keyIndex", i),
			zap.Error(err),
		)
		c.metrics.IncCredentialRotation(op)
		last = err
	}

	c.metrics.IncQuotaExhausted(op)
	return &QuotaExhaustedError{Attempts: len(c.services), Last: last}
}

func (c *Client) attempt(ctx context.Context, i int, call apiCall) error {
	c.locks[i].Lock()
	defer c.locks[i].Unlock()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return call(callCtx, c.services[i])
}

// MostPopular fetches the trending chart for a region and returns its items.
func (c *Client) MostPopular(ctx context.Context, region string, maxResults int64) ([]VideoItem, error) {
	var items []VideoItem

	err := c.withRotation(ctx, "videos.mostPopular", func(ctx context.Context, svc *yt.Service) error {
		response, err := svc.Videos.List([]string{"snippet"}).
			Chart("mostPopular").
			RegionCode(region).
			MaxResults(maxResults).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}

		items = items[:0]
		for _, item := range response.Items {
			items = append(items, mapVideoItem(item))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}

// VideosByID fetches full details for up to MaxIDsPerCall videos in one batch.
func (c *Client) VideosByID(ctx context.Context, videoIDs []string) ([]VideoItem, error) {
	if len(videoIDs) == 0 {
		return nil, nil
	}
	if len(videoIDs) > MaxIDsPerCall {
		return nil, fmt.Errorf("too many video IDs (max %d, got %d)", MaxIDsPerCall, len(videoIDs))
	}

	var items []VideoItem

	err := c.withRotation(ctx, "videos.list", func(ctx context.Context, svc *yt.Service) error {
		response, err := svc.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
			Id(videoIDs...).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}

		items = items[:0]
		for _, item := range response.Items {
			items = append(items, mapVideoItem(item))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}

// ChannelsByID fetches full details for up to MaxIDsPerCall channels, including the
// canonical uploads playlist reference.
func (c *Client) ChannelsByID(ctx context.Context, channelIDs []string) ([]ChannelItem, error) {
	if len(channelIDs) == 0 {
		return nil, nil
	}
	if len(channelIDs) > MaxIDsPerCall {
		return nil, fmt.Errorf("too many channel IDs (max %d, got %d)", MaxIDsPerCall, len(channelIDs))
	}

	var items []ChannelItem

	err := c.withRotation(ctx, "channels.list", func(ctx context.Context, svc *yt.Service) error {
		response, err := svc.Channels.List([]string{"snippet", "statistics", "contentDetails"}).
			Id(channelIDs...).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}

		items = items[:0]
		for _, item := range response.Items {
			items = append(items, mapChannelItem(item))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}

// PlaylistUploads returns the most recent video IDs of an uploads playlist.
func (c *Client) PlaylistUploads(ctx context.Context, playlistID string, maxResults int64) ([]string, error) {
	var videoIDs []string

	err := c.withRotation(ctx, "playlistItems.list", func(ctx context.Context, svc *yt.Service) error {
		response, err := svc.PlaylistItems.List([]string{"contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(maxResults).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}

		videoIDs = videoIDs[:0]
		for _, item := range response.Items {
			if item.ContentDetails != nil && item.ContentDetails.VideoId != "" {
				videoIDs = append(videoIDs, item.ContentDetails.VideoId)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return videoIDs, nil
}

// SearchVideos runs a popularity-ordered search for recent short-form uploads in a
// region. The platform's "short" duration filter is a coarse pre-filter (under 4
// minutes); callers must still classify the exact duration.
func (c *Client) SearchVideos(ctx context.Context, region string, publishedAfter time.Time, maxResults int64) ([]string, error) {
	var videoIDs []string

	err := c.withRotation(ctx, "search.list", func(ctx context.Context, svc *yt.Service) error {
		response, err := svc.Search.List([]string{"id"}).
			Type("video").
			RegionCode(region).
			Order("viewCount").
			PublishedAfter(publishedAfter.UTC().Format(time.RFC3339)).
			VideoDuration("short").
			MaxResults(maxResults).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}

		videoIDs = videoIDs[:0]
		for _, item := range response.Items {
			if item.Id != nil && item.Id.VideoId != "" {
				videoIDs = append(videoIDs, item.Id.VideoId)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return videoIDs, nil
}
