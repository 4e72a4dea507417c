package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsridhar76/go-orderevents/internal/domain"
)

func newTestRetrier(t *testing.T, policy RetryPolicy, rec *sleepRecorder) *Retrier {
	t.Helper()
	r, err := NewRetrier(testLogger(), policy, WithSleep(rec.sleep))
	require.NoError(t, err)
	return r
}

func TestRetrier_SucceedsFirstAttempt(t *testing.T) {
	rec := &sleepRecorder{}
	r := newTestRetrier(t, DefaultRetryPolicy(), rec)

	out := r.Do(context.Background(), Message{Topic: domain.TopicOrderCreated}, func(context.Context, Message) error {
		return nil
	})

	assert.Equal(t, StateSuccess, out.State)
	assert.Equal(t, 1, out.Attempts)
	assert.NoError(t, out.Err)
	assert.Empty(t, rec.sleeps)
}

func TestRetrier_FailsOnceThenSucceeds(t *testing.T) {
	rec := &sleepRecorder{}
	r := newTestRetrier(t, DefaultRetryPolicy(), rec)

	var attempts []int
	out := r.Do(context.Background(), Message{}, func(_ context.Context, msg Message) error {
		attempts = append(attempts, msg.Attempt)
		if msg.Attempt == 1 {
			return errors.New("transient")
		}
		return nil
	})

	assert.Equal(t, StateSuccess, out.State)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, []int{1, 2}, attempts)
	assert.Equal(t, []time.Duration{2 * time.Second}, rec.sleeps)
}

func TestRetrier_AlwaysFails(t *testing.T) {
	rec := &sleepRecorder{}
	r := newTestRetrier(t, DefaultRetryPolicy(), rec)
	boom := errors.New("boom")

	calls := 0
	out := r.Do(context.Background(), Message{}, func(context.Context, Message) error {
		calls++
		return boom
	})

	assert.Equal(t, StateFailedTerminal, out.State)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, out.Attempts)
	assert.ErrorIs(t, out.Err, boom)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, rec.sleeps)
}

func TestRetrier_RealBackoffSeparatesAttempts(t *testing.T) {
	const backoff = 30 * time.Millisecond
	r, err := NewRetrier(testLogger(), RetryPolicy{MaxAttempts: 3, Backoff: backoff})
	require.NoError(t, err)

	var stamps []time.Time
	out := r.Do(context.Background(), Message{}, func(context.Context, Message) error {
		stamps = append(stamps, time.Now())
		return errors.New("boom")
	})

	require.Equal(t, StateFailedTerminal, out.State)
	require.Len(t, stamps, 3)
	for i := 1; i < len(stamps); i++ {
		assert.GreaterOrEqual(t, stamps[i].Sub(stamps[i-1]), backoff)
	}
}

func TestRetrier_IgnoresCancellation(t *testing.T) {
	rec := &sleepRecorder{}
	r := newTestRetrier(t, DefaultRetryPolicy(), rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	out := r.Do(ctx, Message{}, func(ctx context.Context, _ Message) error {
		calls++
		return ctx.Err()
	})

	// The handler never sees the cancelled parent, so it succeeds at once.
	assert.Equal(t, StateSuccess, out.State)
	assert.Equal(t, 1, calls)
}

func TestRetrier_PanicIsAttemptFailure(t *testing.T) {
	rec := &sleepRecorder{}
	r := newTestRetrier(t, RetryPolicy{MaxAttempts: 2, Backoff: time.Second}, rec)

	out := r.Do(context.Background(), Message{}, func(context.Context, Message) error {
		panic("nil map")
	})

	assert.Equal(t, StateFailedTerminal, out.State)
	assert.Equal(t, 2, out.Attempts)
	assert.ErrorContains(t, out.Err, "nil map")
}

func TestRetrier_SingleAttemptNeverSleeps(t *testing.T) {
	rec := &sleepRecorder{}
	r := newTestRetrier(t, RetryPolicy{MaxAttempts: 1, Backoff: time.Hour}, rec)

	out := r.Do(context.Background(), Message{}, func(context.Context, Message) error {
		return errors.New("boom")
	})

	assert.Equal(t, StateFailedTerminal, out.State)
	assert.Equal(t, 1, out.Attempts)
	assert.Empty(t, rec.sleeps)
}

func TestRetryPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultRetryPolicy().Validate())
	assert.Error(t, RetryPolicy{MaxAttempts: 0}.Validate())
	assert.Error(t, RetryPolicy{MaxAttempts: 1, Backoff: -time.Second}.Validate())

	_, err := NewRetrier(testLogger(), RetryPolicy{})
	assert.Error(t, err)
}

func TestDeliveryState_String(t *testing.T) {
	assert.Equal(t, "retry_scheduled", StateRetryScheduled.String())
	assert.Equal(t, "failed_terminal", StateFailedTerminal.String())
	assert.Equal(t, "state(9)", DeliveryState(9).String())
}
