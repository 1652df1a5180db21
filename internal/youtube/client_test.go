package youtube

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	yt "google.golang.org/api/youtube/v3"
)

func quotaErr(reason string) error {
	return &googleapi.Error{
		Code:    403,
		Message: reason,
		Errors:  []googleapi.ErrorItem{{Reason: reason}},
	}
}

func newTestClient(t *testing.T, keys int) *Client {
	t.Helper()

	apiKeys := make([]string, 0, keys)
	for i := 0; i < keys; i++ {
		apiKeys = append(apiKeys, "test-key")
	}

	client, err := NewClient(context.Background(), apiKeys, time.Second, nil)
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), nil, time.Second, nil)
	assert.ErrorIs(t, err, ErrNoCredentials)

	_, err = NewClient(context.Background(), []string{}, time.Second, nil)
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestWithRotationSucceedsFirstKey(t *testing.T) {
	client := newTestClient(t, 3)

	attempts := 0
	err := client.withRotation(context.Background(), "test.op", func(_ context.Context, _ *yt.Service) error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts, "a successful call must not touch further keys")
}

func TestWithRotationRotatesOnQuotaError(t *testing.T) {
	client := newTestClient(t, 3)

	attempts := 0
	err := client.withRotation(context.Background(), "test.op", func(_ context.Context, _ *yt.Service) error {
		attempts++
		if attempts < 3 {
			return quotaErr("quotaExceeded")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRotationExhaustsAllKeys(t *testing.T) {
	client := newTestClient(t, 3)

	attempts := 0
	err := client.withRotation(context.Background(), "test.op", func(_ context.Context, _ *yt.Service) error {
		attempts++
		return quotaErr("rateLimitExceeded")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts, "each key is tried exactly once")

	var qe *QuotaExhaustedError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, 3, qe.Attempts)
	assert.True(t, IsQuotaExhausted(err))
}

func TestWithRotationTerminalErrorDoesNotRotate(t *testing.T) {
	client := newTestClient(t, 3)

	terminal := &googleapi.Error{Code: 400, Message: "invalid argument"}

	attempts := 0
	err := client.withRotation(context.Background(), "test.op", func(_ context.Context, _ *yt.Service) error {
		attempts++
		return terminal
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts, "a non-quota error must surface without burning other keys")
	assert.False(t, IsQuotaExhausted(err))

	var apiErr *googleapi.Error
	assert.ErrorAs(t, err, &apiErr)
}

func TestWithRotationServerErrorRotates(t *testing.T) {
	// A 5xx is ambiguous: quota may or may not have been consumed, so the next
	// credential is tried within the same bounded budget.
	client := newTestClient(t, 2)

	attempts := 0
	err := client.withRotation(context.Background(), "test.op", func(_ context.Context, _ *yt.Service) error {
		attempts++
		return &googleapi.Error{Code: 503, Message: "backend error"}
	})

	require.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.True(t, IsQuotaExhausted(err))
}

func TestWithRotationTimeoutRotates(t *testing.T) {
	client := newTestClient(t, 2)

	attempts := 0
	err := client.withRotation(context.Background(), "test.op", func(_ context.Context, _ *yt.Service) error {
		attempts++
		return context.DeadlineExceeded
	})

	require.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.True(t, IsQuotaExhausted(err))
}

func TestWithRotationStopsOnCanceledContext(t *testing.T) {
	client := newTestClient(t, 3)

	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := client.withRotation(ctx, "test.op", func(_ context.Context, _ *yt.Service) error {
		attempts++
		cancel()
		return quotaErr("quotaExceeded")
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, attempts, "cancellation must stop rotation before the next key")
}

func TestIsQuotaError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "quotaExceeded", err: quotaErr("quotaExceeded"), expected: true},
		{name: "dailyLimitExceeded", err: quotaErr("dailyLimitExceeded"), expected: true},
		{name: "userRateLimitExceeded", err: quotaErr("userRateLimitExceeded"), expected: true},
		{name: "rateLimitExceeded", err: quotaErr("rateLimitExceeded"), expected: true},
		{name: "forbidden without reason", err: &googleapi.Error{Code: 403}, expected: false},
		{name: "not found", err: quotaErr("notFound"), expected: false},
		{name: "plain error", err: errors.New("boom"), expected: false},
		{name: "wrapped quota error", err: &QuotaExhaustedError{Attempts: 2, Last: quotaErr("quotaExceeded")}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsQuotaError(tt.err))
		})
	}
}

func TestVideosByIDRejectsOversizedBatch(t *testing.T) {
	client := newTestClient(t, 1)

	ids := make([]string, MaxIDsPerCall+1)
	for i := range ids {
		ids[i] = "v"
	}

	_, err := client.VideosByID(context.Background(), ids)
	assert.Error(t, err)

	_, err = client.ChannelsByID(context.Background(), ids)
	assert.Error(t, err)
}

func TestVideosByIDEmptyBatch(t *testing.T) {
	client := newTestClient(t, 1)

	items, err := client.VideosByID(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, items)
}

func TestBatchIDs(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}

	batches := BatchIDs(ids, 2)
	require.Len(t, batches, 3)
	assert.Equal(t, []string{"a", "b"}, batches[0])
	assert.Equal(t, []string{"c", "d"}, batches[1])
	assert.Equal(t, []string{"e"}, batches[2])

	assert.Empty(t, BatchIDs(nil, 2))

	whole := BatchIDs(ids, 50)
	require.Len(t, whole, 1)
	assert.Equal(t, ids, whole[0])
}
