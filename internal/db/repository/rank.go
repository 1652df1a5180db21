package repository

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DefaultMaxResults caps the ranking query when no tighter limit is configured.
const DefaultMaxResults = 200

// SortKey is the closed set of columns a ranking query may sort on. The composer
// switches exhaustively over it, so adding a key is a compile-checked extension
// rather than a string-matching branch.
type SortKey int

// SortKey variants.
const (
	SortByRatio SortKey = iota
	SortByRecentAvg
	SortByTotalViews
	SortBySubscribers
	SortByVideoCount
	SortByFirstUpload
)

func (k SortKey) column() (string, error) {
	switch k {
	case SortByRatio:
		return "m.ratio_views_per_sub", nil
	case SortByRecentAvg:
		return "m.recent_avg_views", nil
	case SortByTotalViews:
		return "c.view_count", nil
	case SortBySubscribers:
		return "c.subscriber_count", nil
	case SortByVideoCount:
		return "c.video_count", nil
	case SortByFirstUpload:
		return "c.published_at", nil
	default:
		return "", fmt.Errorf("unknown sort key %d", k)
	}
}

// SortOrder pairs a key with a direction.
type SortOrder struct {
	Key        SortKey
	Descending bool
}

// Range is an inclusive numeric filter. A nil bound is open.
type Range struct {
	Min *int64
	Max *int64
}

func (r Range) active() bool {
	return r.Min != nil || r.Max != nil
}

// RankSpec is the full filter/sort parameter set of the ranking query.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RankSpec struct {
	Primary   SortOrder
	Secondary *SortOrder

	Subscribers    Range
	VideoCount     Range
	RecentAvgViews Range

	RequireMetrics  bool
	MinRecentShorts int
	TitleContains   string

	// EligibleOnly channel IDs; nil means the eligibility pre-filter is off.
	EligibleIDs []string

	// RunID scopes results to channels stamped by one discovery run.
	RunID *uuid.UUID

	Limit int
}

// BuildRankQuery composes the spec into a single bounded SQL query over the
// channel/metrics join. Rows with an undefined sort value always sort last,
// regardless of direction.
func BuildRankQuery(spec *RankSpec, maxResults int) (string, []any, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	appendRange := func(column string, r Range) {
		if r.Min != nil {
			conditions = append(conditions, fmt.Sprintf("%s >= %s", column, arg(*r.Min)))
		}
		if r.Max != nil {
			conditions = append(conditions, fmt.Sprintf("%s <= %s", column, arg(*r.Max)))
		}
	}

	appendRange("c.subscriber_count", spec.Subscribers)
	appendRange("c.video_count", spec.VideoCount)
	appendRange("m.recent_avg_views", spec.RecentAvgViews)

	if spec.RequireMetrics {
		conditions = append(conditions, "m.channel_id IS NOT NULL")
	}
	if spec.MinRecentShorts > 0 {
		conditions = append(conditions, fmt.Sprintf("m.recent_short_count >= %s", arg(spec.MinRecentShorts)))
	}
	if spec.TitleContains != "" {
		conditions = append(conditions, fmt.Sprintf("c.title ILIKE %s", arg("%"+spec.TitleContains+"%")))
	}
	if spec.EligibleIDs != nil {
		conditions = append(conditions, fmt.Sprintf("c.channel_id = ANY(%s)", arg(spec.EligibleIDs)))
	}
	if spec.RunID != nil {
		conditions = append(conditions, fmt.Sprintf("c.discovery_run_id = %s", arg(*spec.RunID)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	orderClause, err := buildOrderClause(spec.Primary, spec.Secondary)
	if err != nil {
		return "", nil, err
	}

	limit := spec.Limit
	if limit <= 0 || limit > maxResults {
		limit = maxResults
	}

	query := fmt.Sprintf(`
		SELECT c.channel_id, c.title, c.country, c.published_at, c.subscriber_count,
		       c.video_count, c.view_count,
		       m.recent_short_count, m.recent_avg_views, m.ratio_views_per_sub
		FROM channels c
		LEFT JOIN channel_metrics m ON m.channel_id = c.channel_id
		%s
		%s
		LIMIT %s
	`, whereClause, orderClause, arg(limit))

	return query, args, nil
}

func buildOrderClause(primary SortOrder, secondary *SortOrder) (string, error) {
	terms := make([]string, 0, 3)

	term, err := orderTerm(primary)
	if err != nil {
		return "", err
	}
	terms = append(terms, term)

	if secondary != nil {
		term, err := orderTerm(*secondary)
		if err != nil {
			return "", err
		}
		terms = append(terms, term)
	}

	// Stable final tie-break keeps pagination deterministic.
	terms = append(terms, "c.channel_id ASC")

	return "ORDER BY " + strings.Join(terms, ", "), nil
}

func orderTerm(order SortOrder) (string, error) {
	column, err := order.Key.column()
	if err != nil {
		return "", err
	}

	direction := "ASC"
	if order.Descending {
		direction = "DESC"
	}

	// NULLS LAST in both directions: an undefined sort value never outranks a
	// defined one.
	return fmt.Sprintf("%s %s NULLS LAST", column, direction), nil
}
