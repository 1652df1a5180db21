package youtube

import (
	"regexp"
	"strconv"
)

var durationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseDuration converts an ISO 8601 duration (PT#H#M#S) to seconds.
// Example: "PT1M30S" -> 90. Malformed or empty input yields 0, never an error:
// classification is a best-effort tag, not a correctness-critical parse.
func ParseDuration(duration string) int {
	match := durationPattern.FindStringSubmatch(duration)
	if match == nil {
		return 0
	}

	hours := atoiOrZero(match[1])
	minutes := atoiOrZero(match[2])
	seconds := atoiOrZero(match[3])

	return hours*3600 + minutes*60 + seconds
}

func atoiOrZero(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// Classifier decides whether a duration counts as a short. The band is inclusive on both
// ends and comes from configuration (observed deployments use 10-40s and 10-60s).
type Classifier struct {
	MinSeconds int
	MaxSeconds int
}

// IsShort reports whether the given duration falls within the short band.
func (c Classifier) IsShort(seconds int) bool {
	return seconds >= c.MinSeconds && seconds <= c.MaxSeconds
}

// ClassifyDuration parses an ISO 8601 duration and tags it in one step.
func (c Classifier) ClassifyDuration(duration string) (seconds int, isShort bool) {
	seconds = ParseDuration(duration)
	return seconds, c.IsShort(seconds)
}
