package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEligibleChannelIDs(t *testing.T) {
	tests := []struct {
		name          string
		shortsSince   []string
		longformSince []string
		expected      []string
	}{
		{
			name:        "shorts only channel is eligible",
			shortsSince: []string{"ch-a"},
			expected:    []string{"ch-a"},
		},
		{
			name:          "recent longform disqualifies",
			shortsSince:   []string{"ch-a", "ch-b"},
			longformSince: []string{"ch-b"},
			expected:      []string{"ch-a"},
		},
		{
			name:          "longform long ago but shorts inactive",
			longformSince: []string{"ch-c"},
			expected:      []string{},
		},
		{
			name:     "no tracked videos means not eligible",
			expected: []string{},
		},
		{
			name:          "disjoint sets",
			shortsSince:   []string{"ch-a", "ch-b", "ch-c"},
			longformSince: []string{"ch-d", "ch-e"},
			expected:      []string{"ch-a", "ch-b", "ch-c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			videos := newFakeVideoRepo()
			videos.shortsSince = tt.shortsSince
			videos.longformSince = tt.longformSince

			engine := NewEligibilityEngine(videos, 14, 150)

			ids, err := engine.EligibleChannelIDs(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestEligibilityRecomputedPerCall(t *testing.T) {
	videos := newFakeVideoRepo()
	videos.shortsSince = []string{"ch-a"}

	engine := NewEligibilityEngine(videos, 14, 150)

	ids, err := engine.EligibleChannelIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ch-a"}, ids)

	// New longform upload appears between calls; the next answer must reflect it.
	videos.longformSince = []string{"ch-a"}

	ids, err = engine.EligibleChannelIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSubtractChannelSet(t *testing.T) {
	result := subtractChannelSet([]string{"a", "b", "c"}, []string{"b"})
	assert.Equal(t, []string{"a", "c"}, result)

	result = subtractChannelSet([]string{"a"}, nil)
	assert.Equal(t, []string{"a"}, result)

	result = subtractChannelSet(nil, []string{"a"})
	assert.Empty(t, result)
}
