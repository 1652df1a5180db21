package youtube

import (
	"time"

	yt "google.golang.org/api/youtube/v3"
)

// VideoItem is the slice of a videos.list response the discovery pipeline consumes.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type VideoItem struct {
	ID           string
	ChannelID    string
	Title        string
	PublishedAt  time.Time
	Duration     string
	ViewCount    int64
	LikeCount    int64
	CommentCount int64
}

// ChannelItem is the slice of a channels.list response the discovery pipeline consumes.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ChannelItem struct {
	ID                string
	Title             string
	Country           string
	PublishedAt       time.Time
	SubscriberCount   int64
	VideoCount        int64
	ViewCount         int64
	UploadsPlaylistID string
}

func mapVideoItem(v *yt.Video) VideoItem {
	item := VideoItem{ID: v.Id}

	if v.Snippet != nil {
		item.ChannelID = v.Snippet.ChannelId
		item.Title = v.Snippet.Title
		item.PublishedAt = parseTimestamp(v.Snippet.PublishedAt)
	}
	if v.ContentDetails != nil {
		item.Duration = v.ContentDetails.Duration
	}
	if v.Statistics != nil {
		item.ViewCount = int64(v.Statistics.ViewCount)
		item.LikeCount = int64(v.Statistics.LikeCount)
		item.CommentCount = int64(v.Statistics.CommentCount)
	}

	return item
}

func mapChannelItem(c *yt.Channel) ChannelItem {
	item := ChannelItem{ID: c.Id}

	if c.Snippet != nil {
		item.Title = c.Snippet.Title
		item.Country = c.Snippet.Country
		item.PublishedAt = parseTimestamp(c.Snippet.PublishedAt)
	}
	if c.Statistics != nil {
		// Hidden subscriber counts read as zero rather than as a stale number.
		if !c.Statistics.HiddenSubscriberCount {
			item.SubscriberCount = int64(c.Statistics.SubscriberCount)
		}
		item.VideoCount = int64(c.Statistics.VideoCount)
		item.ViewCount = int64(c.Statistics.ViewCount)
	}
	if c.ContentDetails != nil && c.ContentDetails.RelatedPlaylists != nil {
		item.UploadsPlaylistID = c.ContentDetails.RelatedPlaylists.Uploads
	}

	return item
}

// parseTimestamp parses RFC3339 timestamps from the YouTube API. A zero time is
// returned for missing or malformed values.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// BatchIDs splits a list of external IDs into batches respecting the API's
// maximum IDs per call.
func BatchIDs(ids []string, batchSize int) [][]string {
	if batchSize <= 0 || batchSize > MaxIDsPerCall {
		batchSize = MaxIDsPerCall
	}

	var batches [][]string
	for i := 0; i < len(ids); i += batchSize {
		end := i + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[i:end])
	}

	return batches
}
