package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryPolicy bounds how long one delivery may occupy a consumer.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy is three attempts two seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 2 * time.Second}
}

// Validate rejects policies that would never attempt a delivery.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be >= 1 (got %d)", p.MaxAttempts)
	}
	if p.Backoff < 0 {
		return fmt.Errorf("retry backoff must be >= 0 (got %s)", p.Backoff)
	}
	return nil
}

// DeliveryState is a state of the per-delivery retry machine.
type DeliveryState int

const (
	StateReceived DeliveryState = iota
	StateProcessing
	StateSuccess
	StateRetryScheduled
	StateFailedTerminal
)

func (s DeliveryState) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateProcessing:
		return "processing"
	case StateSuccess:
		return "success"
	case StateRetryScheduled:
		return "retry_scheduled"
	case StateFailedTerminal:
		return "failed_terminal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome is the terminal result of one delivery.
type Outcome struct {
	State    DeliveryState
	Attempts int
	Err      error
}

// Retrier drives a delivery through
// RECEIVED -> PROCESSING -> {SUCCESS, RETRY_SCHEDULED, FAILED_TERMINAL}.
type Retrier struct {
	policy RetryPolicy
	sleep  func(time.Duration)
	log    *slog.Logger
}

// RetrierOption customizes a Retrier.
type RetrierOption func(*Retrier)

// WithSleep replaces the function used to wait between attempts.
func WithSleep(sleep func(time.Duration)) RetrierOption {
	return func(r *Retrier) { r.sleep = sleep }
}

// NewRetrier creates a Retrier for policy.
func NewRetrier(log *slog.Logger, policy RetryPolicy, opts ...RetrierOption) (*Retrier, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	r := &Retrier{
		policy: policy,
		sleep:  time.Sleep,
		log:    log.With("component", "retrier"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Do runs fn until it succeeds or the attempt budget is spent. The sequence is
// detached from ctx cancellation: once started, a delivery always reaches
// SUCCESS or FAILED_TERMINAL.
func (r *Retrier) Do(ctx context.Context, msg Message, fn HandlerFunc) Outcome {
	ctx = context.WithoutCancel(ctx)

	var (
		state   = StateReceived
		attempt int
		err     error
	)

	for {
		switch state {
		case StateReceived:
			attempt++
			state = StateProcessing

		case StateProcessing:
			msg.Attempt = attempt
			err = invoke(ctx, msg, fn)
			switch {
			case err == nil:
				state = StateSuccess
			case attempt < r.policy.MaxAttempts:
				state = StateRetryScheduled
			default:
				state = StateFailedTerminal
			}

		case StateRetryScheduled:
			r.log.WarnContext(ctx, "delivery attempt failed, retrying",
				slog.String("topic", msg.Topic.String()),
				slog.String("message_id", msg.ID),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", r.policy.MaxAttempts),
				slog.Duration("backoff", r.policy.Backoff),
				slog.String("error", err.Error()),
			)
			if r.policy.Backoff > 0 {
				r.sleep(r.policy.Backoff)
			}
			state = StateReceived

		case StateSuccess, StateFailedTerminal:
			return Outcome{State: state, Attempts: attempt, Err: err}
		}
	}
}

// invoke calls fn, turning a panic into an attempt failure.
func invoke(ctx context.Context, msg Message, fn HandlerFunc) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return fn(ctx, msg)
}
