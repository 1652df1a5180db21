package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shorts-radar/shorts-discovery-go/internal/db"
	"github.com/shorts-radar/shorts-discovery-go/internal/db/repository"
	"github.com/shorts-radar/shorts-discovery-go/internal/models"
	"github.com/shorts-radar/shorts-discovery-go/internal/service"
	"github.com/shorts-radar/shorts-discovery-go/pkg/logger"
)

// ChannelsHandler serves the ranked channel query.
type ChannelsHandler struct {
	rank        repository.RankRepository
	eligibility *service.EligibilityEngine
	runs        repository.DiscoveryRunRepository
	maxResults  int
}

// NewChannelsHandler creates a new ChannelsHandler.
func NewChannelsHandler(rank repository.RankRepository, eligibility *service.EligibilityEngine, runs repository.DiscoveryRunRepository, maxResults int) *ChannelsHandler {
	if maxResults <= 0 {
		maxResults = repository.DefaultMaxResults
	}
	return &ChannelsHandler{
		rank:        rank,
		eligibility: eligibility,
		runs:        runs,
		maxResults:  maxResults,
	}
}

// ListChannels handles GET /api/v1/channels.
//
// Query parameters:
//   - sort, sort2: ratio | recent_avg | total_views | subscribers | video_count | first_upload
//   - order, order2: asc | desc (desc default for sort, asc default for sort2)
//   - min_subs, max_subs, min_videos, max_videos, min_avg_views, max_avg_views
//   - require_metrics: 1/true
//   - min_recent_shorts: integer gate on in-window short count
//   - title: case-insensitive substring match
//   - eligible_only: 1/true restricts to currently eligible channels
//   - run: a run UUID, or "latest"
//   - limit: row cap, clamped to the configured maximum
func (h *ChannelsHandler) ListChannels(c *gin.Context) {
	spec, err := h.parseSpec(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ChannelsResponseDTO{
			OK:    false,
			Error: err.Error(),
		})
		return
	}

	// Store-backed filters resolve after parsing so their failures surface as
	// internal errors, not bad requests.
	if boolParam(c, "eligible_only") {
		ids, err := h.eligibility.EligibleChannelIDs(c.Request.Context())
		if err != nil {
			logger.Log.Error("eligibility query failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, models.ChannelsResponseDTO{
				OK:    false,
				Error: "eligibility query failed",
			})
			return
		}
		if ids == nil {
			ids = []string{}
		}
		spec.EligibleIDs = ids
	}

	if c.Query("run") == "latest" {
		id, err := h.runs.LatestRunID(c.Request.Context())
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				c.JSON(http.StatusBadRequest, models.ChannelsResponseDTO{
					OK:    false,
					Error: "no discovery runs recorded yet",
				})
				return
			}
			logger.Log.Error("latest run lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, models.ChannelsResponseDTO{
				OK:    false,
				Error: "latest run lookup failed",
			})
			return
		}
		spec.RunID = &id
	}

	results, err := h.rank.Query(c.Request.Context(), spec, h.maxResults)
	if err != nil {
		logger.Log.Error("channel query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ChannelsResponseDTO{
			OK:    false,
			Error: "channel query failed",
		})
		return
	}

	if results == nil {
		results = []*models.RankedChannel{}
	}

	c.JSON(http.StatusOK, models.ChannelsResponseDTO{
		OK:      true,
		Results: results,
	})
}

func (h *ChannelsHandler) parseSpec(c *gin.Context) (*repository.RankSpec, error) {
	spec := &repository.RankSpec{}

	primaryKey, err := parseSortKey(c.DefaultQuery("sort", "ratio"))
	if err != nil {
		return nil, err
	}
	spec.Primary = repository.SortOrder{
		Key:        primaryKey,
		Descending: c.DefaultQuery("order", "desc") != "asc",
	}

	if raw := c.Query("sort2"); raw != "" {
		key, err := parseSortKey(raw)
		if err != nil {
			return nil, err
		}
		spec.Secondary = &repository.SortOrder{
			Key:        key,
			Descending: c.DefaultQuery("order2", "asc") == "desc",
		}
	}

	if spec.Subscribers.Min, err = parseInt64Param(c, "min_subs"); err != nil {
		return nil, err
	}
	if spec.Subscribers.Max, err = parseInt64Param(c, "max_subs"); err != nil {
		return nil, err
	}
	if spec.VideoCount.Min, err = parseInt64Param(c, "min_videos"); err != nil {
		return nil, err
	}
	if spec.VideoCount.Max, err = parseInt64Param(c, "max_videos"); err != nil {
		return nil, err
	}
	if spec.RecentAvgViews.Min, err = parseInt64Param(c, "min_avg_views"); err != nil {
		return nil, err
	}
	if spec.RecentAvgViews.Max, err = parseInt64Param(c, "max_avg_views"); err != nil {
		return nil, err
	}

	spec.RequireMetrics = boolParam(c, "require_metrics")
	spec.TitleContains = c.Query("title")

	if raw := c.Query("min_recent_shorts"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid min_recent_shorts %q", raw)
		}
		spec.MinRecentShorts = n
	}

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid limit %q", raw)
		}
		spec.Limit = n
	}

	if raw := c.Query("run"); raw != "" && raw != "latest" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid run id %q", raw)
		}
		spec.RunID = &id
	}

	return spec, nil
}

func parseSortKey(raw string) (repository.SortKey, error) {
	switch raw {
	case "ratio":
		return repository.SortByRatio, nil
	case "recent_avg":
		return repository.SortByRecentAvg, nil
	case "total_views":
		return repository.SortByTotalViews, nil
	case "subscribers":
		return repository.SortBySubscribers, nil
	case "video_count":
		return repository.SortByVideoCount, nil
	case "first_upload":
		return repository.SortByFirstUpload, nil
	default:
		return 0, fmt.Errorf("unknown sort key %q", raw)
	}
}

func parseInt64Param(c *gin.Context, name string) (*int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", name, raw)
	}
	return &v, nil
}

func boolParam(c *gin.Context, name string) bool {
	v := c.Query(name)
	return v == "1" || v == "true"
}
