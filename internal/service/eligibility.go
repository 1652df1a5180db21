package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shorts-radar/shorts-discovery-go/internal/db/repository"
)

// EligibilityEngine computes which channels currently qualify as "shorts-only, active
// now": at least one short inside the activity window and zero long-form videos
// inside the (longer) absence window. The result is recomputed on every call: video
// data changes between discovery runs, so caching here would serve stale membership.
type EligibilityEngine struct {
	videos      repository.VideoRepository
	shortWindow time.Duration
	longWindow  time.Duration
	now         func() time.Time
}

// NewEligibilityEngine creates an engine over the given windows, expressed in days.
func NewEligibilityEngine(videos repository.VideoRepository, shortActivityDays, longAbsenceDays int) *EligibilityEngine {
	return &EligibilityEngine{
		videos:      videos,
		shortWindow: time.Duration(shortActivityDays) * 24 * time.Hour,
		longWindow:  time.Duration(longAbsenceDays) * 24 * time.Hour,
		now:         time.Now,
	}
}

// EligibleChannelIDs returns the channel IDs eligible right now. A channel with no
// tracked videos is absent from the short set and therefore never eligible.
func (e *EligibilityEngine) EligibleChannelIDs(ctx context.Context) ([]string, error) {
	now := e.now()

	shortSet, err := e.videos.ChannelIDsWithShortsSince(ctx, now.Add(-e.shortWindow))
	if err != nil {
		return nil, fmt.Errorf("short activity window: %w", err)
	}

	longSet, err := e.videos.ChannelIDsWithLongformSince(ctx, now.Add(-e.longWindow))
	if err != nil {
		return nil, fmt.Errorf("long absence window: %w", err)
	}

	return subtractChannelSet(shortSet, longSet), nil
}

// subtractChannelSet returns the members of include that are not in exclude,
// preserving include's order.
func subtractChannelSet(include, exclude []string) []string {
	excluded := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}

	result := make([]string, 0, len(include))
	for _, id := range include {
		if _, ok := excluded[id]; !ok {
			result = append(result, id)
		}
	}

	return result
}
