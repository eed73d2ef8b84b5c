package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paygate/backend/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func (s *sleepRecorder) total() time.Duration {
	var sum time.Duration
	for _, d := range s.delays {
		sum += d
	}
	return sum
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	for _, k := range []int{0, 1, 2, 4} {
		rec := &sleepRecorder{}
		calls := 0
		ok, result, err := retry.Do(context.Background(), retry.Policy{
			MaxRetries: 5,
			BaseDelay:  time.Second,
			Sleep:      rec.sleep,
		}, func(_ context.Context, attempt int) (bool, string, error) {
			calls++
			if attempt <= k {
				return false, "", errors.New("transient")
			}
			return true, "done", nil
		})

		assert.True(t, ok)
		assert.Equal(t, "done", result)
		assert.NoError(t, err)
		assert.Equal(t, k+1, calls)

		var want time.Duration
		for i := 0; i < k; i++ {
			want += time.Second * time.Duration(1<<i)
		}
		assert.Equal(t, want, rec.total(), "k=%d", k)
	}
}

func TestDo_AlwaysFailing(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	ok, result, err := retry.Do(context.Background(), retry.Policy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		Sleep:      rec.sleep,
	}, func(_ context.Context, _ int) (bool, *string, error) {
		calls++
		return false, nil, errors.New("boom")
	})

	assert.False(t, ok)
	assert.Nil(t, result)
	require.Error(t, err)
	assert.Equal(t, "boom", err.Error())
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
}

func TestDo_PanicIsTreatedAsFailure(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	ok, _, err := retry.Do(context.Background(), retry.Policy{
		MaxRetries: 2,
		BaseDelay:  10 * time.Millisecond,
		Sleep:      rec.sleep,
	}, func(_ context.Context, _ int) (bool, int, error) {
		calls++
		panic("kaboom")
	})

	assert.False(t, ok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Equal(t, 2, calls)
}

func TestDo_FalseWithoutError(t *testing.T) {
	ok, result, err := retry.Do(context.Background(), retry.Policy{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		Sleep:      (&sleepRecorder{}).sleep,
	}, func(_ context.Context, attempt int) (bool, int, error) {
		return false, attempt * 10, nil
	})

	assert.False(t, ok)
	assert.Equal(t, 20, result)
	assert.ErrorIs(t, err, retry.ErrAttemptFailed)
}

func TestDo_OnAttemptSequence(t *testing.T) {
	type call struct {
		attempt int
		success bool
	}
	var seen []call
	retry.Do(context.Background(), retry.Policy{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		Sleep:      (&sleepRecorder{}).sleep,
		OnAttempt: func(attempt int, success bool, _ error) {
			seen = append(seen, call{attempt, success})
		},
	}, func(_ context.Context, attempt int) (bool, struct{}, error) {
		return attempt == 2, struct{}{}, nil
	})

	assert.Equal(t, []call{{1, false}, {2, true}}, seen)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	ok, _, err := retry.Do(ctx, retry.Policy{
		MaxRetries: 5,
		BaseDelay:  time.Hour,
	}, func(_ context.Context, _ int) (bool, int, error) {
		calls++
		cancel()
		return false, 0, errors.New("down")
	})

	assert.False(t, ok)
	assert.EqualError(t, err, "down")
	assert.Equal(t, 1, calls)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Second, retry.Backoff(time.Second, 1))
	assert.Equal(t, 2*time.Second, retry.Backoff(time.Second, 2))
	assert.Equal(t, 4*time.Second, retry.Backoff(time.Second, 3))
	assert.Equal(t, 500*time.Millisecond, retry.Backoff(500*time.Millisecond, 0))
}
